package isa

// LoadStoreOp is an 8-bit load/store pipe opcode.
type LoadStoreOp uint8

const (
	OpLdStNoop          LoadStoreOp = 0x03
	OpStCubemapCoords   LoadStoreOp = 0x0E
	OpPerspectiveDivZ   LoadStoreOp = 0x12
	OpPerspectiveDivW   LoadStoreOp = 0x13
	OpLdInt4            LoadStoreOp = 0x90
	OpLdAttr32          LoadStoreOp = 0x94
	OpLdAttr16          LoadStoreOp = 0x95
	OpLdVary32          LoadStoreOp = 0x98
	OpLdVary16          LoadStoreOp = 0x99
	OpLdColorBuffer16   LoadStoreOp = 0x9D
	OpLdUniform16       LoadStoreOp = 0xAC
	OpLdUniform32       LoadStoreOp = 0xB0
	OpLdColorBuffer8    LoadStoreOp = 0xBA
	OpStInt4            LoadStoreOp = 0xD0
	OpStVary32          LoadStoreOp = 0xD4
	OpStVary16          LoadStoreOp = 0xD5
)

type ldstOpInfo struct {
	name  string
	mode  RegMode
	store bool
}

var ldstOpTable = [256]ldstOpInfo{
	OpLdStNoop:        {"ld_st_noop", RegMode32, false},
	OpStCubemapCoords: {"st_cubemap_coords", RegMode32, true},
	OpPerspectiveDivZ: {"ldst_perspective_division_z", RegMode32, false},
	OpPerspectiveDivW: {"ldst_perspective_division_w", RegMode32, false},
	OpLdInt4:          {"ld_int4", RegMode32, false},
	OpLdAttr32:        {"ld_attr_32", RegMode32, false},
	OpLdAttr16:        {"ld_attr_16", RegMode16, false},
	OpLdVary32:        {"ld_vary_32", RegMode32, false},
	OpLdVary16:        {"ld_vary_16", RegMode16, false},
	OpLdColorBuffer16: {"ld_color_buffer_16", RegMode16, false},
	OpLdUniform16:     {"ld_uniform_16", RegMode16, false},
	OpLdUniform32:     {"ld_uniform_32", RegMode32, false},
	OpLdColorBuffer8:  {"ld_color_buffer_8", RegMode32, false},
	OpStInt4:          {"st_int4", RegMode32, true},
	OpStVary32:        {"st_vary_32", RegMode32, true},
	OpStVary16:        {"st_vary_16", RegMode16, true},
}

// Name returns the mnemonic, or "" for an unallocated opcode.
func (op LoadStoreOp) Name() string { return ldstOpTable[op].name }

// IsStore reports whether op writes memory rather than a register.
func (op LoadStoreOp) IsStore() bool { return ldstOpTable[op].store }

// Mode returns the per-component register width the op transfers.
func (op LoadStoreOp) Mode() RegMode { return ldstOpTable[op].mode }

// IsVarying reports whether op reads or writes a varying, which carries
// interpolation qualifiers in its parameter field.
func (op LoadStoreOp) IsVarying() bool {
	switch op {
	case OpLdVary16, OpLdVary32, OpStVary16, OpStVary32:
		return true
	}
	return false
}
