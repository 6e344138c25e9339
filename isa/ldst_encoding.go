package isa

// VaryingParameter describes how a varying load interpolates its value.
// It packs into the low bits of the load/store varying_parameters field.
type VaryingParameter struct {
	Flat          bool
	IsVarying     bool
	Interpolation Interpolation
}

// Pack encodes the parameter into its 10-bit form.
func (p VaryingParameter) Pack() uint16 {
	var v uint16
	if p.Flat {
		v |= 1 << 4
	}
	if p.IsVarying {
		v |= 1 << 5
	}
	v |= uint16(p.Interpolation&3) << 6
	return v
}

// UnpackVaryingParameter decodes a 10-bit varying parameter field.
func UnpackVaryingParameter(v uint16) VaryingParameter {
	return VaryingParameter{
		Flat:          v&(1<<4) != 0,
		IsVarying:     v&(1<<5) != 0,
		Interpolation: Interpolation(v >> 6 & 3),
	}
}

// LoadStoreWord is one 60-bit half of a load/store bundle.
type LoadStoreWord struct {
	Op                LoadStoreOp
	Reg               uint8
	Mask              uint8
	Swizzle           uint8
	Unknown           uint16
	VaryingParameters uint16 // 10 bits
	Address           uint16 // 9 bits
}

// NopLoadStoreWord is the padding word used when a bundle carries a
// single load/store instruction.
func NopLoadStoreWord() LoadStoreWord {
	return LoadStoreWord{Op: OpLdStNoop, Swizzle: SwizzleXYZW}
}

// Pack encodes the word into its 60-bit form, low bits first.
func (w LoadStoreWord) Pack() uint64 {
	return uint64(w.Op) |
		uint64(w.Reg&31)<<8 |
		uint64(w.Mask&0xF)<<13 |
		uint64(w.Swizzle)<<17 |
		uint64(w.Unknown)<<25 |
		uint64(w.VaryingParameters&0x3FF)<<41 |
		uint64(w.Address&0x1FF)<<51
}

// UnpackLoadStoreWord decodes a 60-bit load/store word.
func UnpackLoadStoreWord(v uint64) LoadStoreWord {
	return LoadStoreWord{
		Op:                LoadStoreOp(v),
		Reg:               uint8(v >> 8 & 31),
		Mask:              uint8(v >> 13 & 0xF),
		Swizzle:           uint8(v >> 17),
		Unknown:           uint16(v >> 25),
		VaryingParameters: uint16(v >> 41 & 0x3FF),
		Address:           uint16(v >> 51 & 0x1FF),
	}
}

// LoadStorePair is a full 128-bit load/store bundle holding up to two
// words.
type LoadStorePair struct {
	Type     Tag
	NextType Tag
	Word1    LoadStoreWord
	Word2    LoadStoreWord
}

// Pack encodes the bundle into 16 bytes, little endian.
func (p LoadStorePair) Pack() [16]byte {
	var out [16]byte
	w1 := p.Word1.Pack()
	w2 := p.Word2.Pack()
	lo := uint64(p.Type&0xF) | uint64(p.NextType&0xF)<<4 | w1<<8
	hi := w1>>56 | w2<<4
	putUint64(out[0:8], lo)
	putUint64(out[8:16], hi)
	return out
}

// UnpackLoadStorePair decodes a 128-bit load/store bundle.
func UnpackLoadStorePair(b [16]byte) LoadStorePair {
	lo := getUint64(b[0:8])
	hi := getUint64(b[8:16])
	return LoadStorePair{
		Type:     Tag(lo & 0xF),
		NextType: Tag(lo >> 4 & 0xF),
		Word1:    UnpackLoadStoreWord(lo>>8 | hi<<56&(1<<60-1)),
		Word2:    UnpackLoadStoreWord(hi >> 4 & (1<<60 - 1)),
	}
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
