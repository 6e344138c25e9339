package isa

// Tag identifies a bundle's pipe and quadword size. It occupies the low
// four bits of the bundle's first control word; the next four bits hold
// the following bundle's tag for instruction prefetch.
type Tag uint8

const (
	TagInvalid         Tag = 0x0
	TagBreak           Tag = 0x1
	TagTexture4VTX     Tag = 0x2
	TagTexture4        Tag = 0x3
	TagTexture4Barrier Tag = 0x4
	TagLoadStore4      Tag = 0x5
	TagALU4            Tag = 0x8
	TagALU8            Tag = 0x9
	TagALU12           Tag = 0xA
	TagALU16           Tag = 0xB
	TagALU4Writeout    Tag = 0xC
	TagALU8Writeout    Tag = 0xD
	TagALU12Writeout   Tag = 0xE
	TagALU16Writeout   Tag = 0xF
)

type tagProps struct {
	name      string
	quadwords uint8
}

var tagTable = [16]tagProps{
	TagInvalid:         {"invalid", 0},
	TagBreak:           {"break", 0},
	TagTexture4VTX:     {"tex/vt", 1},
	TagTexture4:        {"tex", 1},
	TagTexture4Barrier: {"tex/bar", 1},
	TagLoadStore4:      {"ldst", 1},
	0x6:                {"unk1", 1},
	0x7:                {"unk2", 1},
	TagALU4:            {"alu/4", 1},
	TagALU8:            {"alu/8", 2},
	TagALU12:           {"alu/12", 3},
	TagALU16:           {"alu/16", 4},
	TagALU4Writeout:    {"aluw/4", 1},
	TagALU8Writeout:    {"aluw/8", 2},
	TagALU12Writeout:   {"aluw/12", 3},
	TagALU16Writeout:   {"aluw/16", 4},
}

// Quadwords returns the size of a bundle with this tag in 16-byte units.
func (t Tag) Quadwords() int { return int(tagTable[t&0xF].quadwords) }

// String returns the short mnemonic used by the disassembler.
func (t Tag) String() string { return tagTable[t&0xF].name }

// IsALU reports whether the tag denotes an ALU bundle of any size.
func (t Tag) IsALU() bool { return t >= TagALU4 }

// IsTexture reports whether the tag denotes a texture bundle.
func (t Tag) IsTexture() bool {
	return t == TagTexture4 || t == TagTexture4VTX || t == TagTexture4Barrier
}

// Unit is a VLIW slot enable bit within an ALU bundle's control word.
// The two pipeline stages execute in parallel:
//
//	stage 1: [ VMUL ] [ SADD ]
//	stage 2: [ VADD ] [ SMUL ] [ VLUT ] [ BRANCH ]
type Unit uint32

const (
	UnitVMUL      Unit = 1 << 17
	UnitSADD      Unit = 1 << 19
	UnitVADD      Unit = 1 << 21
	UnitSMUL      Unit = 1 << 23
	UnitVLUT      Unit = 1 << 25
	UnitBrCompact Unit = 1 << 26
	UnitBranch    Unit = 1 << 27
)

const (
	UnitsMul       = UnitVMUL | UnitSMUL
	UnitsAdd       = UnitVADD | UnitSADD
	UnitsScalar    = UnitSADD | UnitSMUL
	UnitsVector    = UnitVMUL | UnitVADD
	UnitsAnyVector = UnitsVector | UnitVLUT
	UnitsMost      = UnitsMul | UnitsAdd
	UnitsAll       = UnitsMost | UnitVLUT
)

// IsBranch reports whether the unit is one of the two branch slots.
func (u Unit) IsBranch() bool {
	return u == UnitBrCompact || u == UnitBranch
}

// Work registers are r0-r15 (fewer if uniforms are pushed past the
// cutoff). The upper half of the file is special-purpose.
const (
	RegisterUnused      = 24
	RegisterConstant    = 26
	RegisterVaryingBase = 26
	RegisterOffset      = 27
	RegisterTextureBase = 28
	RegisterSelect      = 31
)

// WorkRegisterCount returns how many general-purpose registers remain
// given the uniform cutoff (uniforms past 8 steal work registers).
func WorkRegisterCount(uniformCutoff int) int {
	n := uniformCutoff - 8
	if n < 0 {
		n = 0
	}
	return 16 - n
}

// UniformRegister returns the register aliasing uniform slot off, which
// counts down from r23.
func UniformRegister(off int) int { return 23 - off }

// Value indices below FixedMinimum are virtual temporaries; indices at
// or above it name a physical register directly. IndexUnused marks an
// absent source or destination.
const (
	FixedShift   = 24
	FixedMinimum = 1 << FixedShift
	IndexUnused  = -1
)

// FixedRegister returns the value index pinned to physical register r.
func FixedRegister(r int) int { return (1 + r) << FixedShift }

// RegisterFromFixed inverts FixedRegister.
func RegisterFromFixed(idx int) int { return (idx >> FixedShift) - 1 }

// IsFixed reports whether idx names a physical register.
func IsFixed(idx int) bool { return idx >= FixedMinimum }

// Vector components, two bits each within a swizzle.
const (
	ComponentX = 0
	ComponentY = 1
	ComponentZ = 2
	ComponentW = 3
)

// Swizzle packs four 2-bit lane selectors, lane 0 in the low bits.
func Swizzle(a, b, c, d uint8) uint8 {
	return a | b<<2 | c<<4 | d<<6
}

// Common swizzles.
var (
	SwizzleXYZW = Swizzle(ComponentX, ComponentY, ComponentZ, ComponentW)
	SwizzleXXXX = Swizzle(ComponentX, ComponentX, ComponentX, ComponentX)
	SwizzleWWWW = Swizzle(ComponentW, ComponentW, ComponentW, ComponentW)
)

// SwizzleFromArray packs the first four entries of comps as a swizzle.
func SwizzleFromArray(comps []uint8) uint8 {
	return Swizzle(comps[0], comps[1], comps[2], comps[3])
}

// SwizzleLane extracts lane selector i from a packed swizzle.
func SwizzleLane(swizzle uint8, i int) uint8 {
	return (swizzle >> (2 * uint(i))) & 3
}

// ComposeSwizzle applies outer after inner: lane i of the result reads
// inner's lane outer[i].
func ComposeSwizzle(inner, outer uint8) uint8 {
	var out uint8
	for i := 0; i < 4; i++ {
		c := SwizzleLane(inner, int(SwizzleLane(outer, i)))
		out |= c << (2 * uint(i))
	}
	return out
}

// SwizzleAccessMask returns the 4-bit mask of components a swizzle reads.
func SwizzleAccessMask(swizzle uint8) uint8 {
	var mask uint8
	for i := 0; i < 4; i++ {
		mask |= 1 << SwizzleLane(swizzle, i)
	}
	return mask
}

// ExpandWritemask converts the 4-bit MIR mask to the 8-bit ALU encoding
// by doubling each bit (32-bit components span two 16-bit lanes).
func ExpandWritemask(mask uint8) uint8 {
	var out uint8
	for i := 0; i < 4; i++ {
		if mask&(1<<uint(i)) != 0 {
			out |= 3 << (2 * uint(i))
		}
	}
	return out
}

// SqueezeWritemask inverts ExpandWritemask, keeping a lane if either of
// its halves is written.
func SqueezeWritemask(mask uint8) uint8 {
	var out uint8
	for i := 0; i < 4; i++ {
		if mask&(3<<(2*uint(i))) != 0 {
			out |= 1 << uint(i)
		}
	}
	return out
}

// RegMode selects the per-component width of an ALU operation.
type RegMode uint8

const (
	RegMode8  RegMode = 0
	RegMode16 RegMode = 1
	RegMode32 RegMode = 2
	RegMode64 RegMode = 3
)

// Bits returns the component width in bits.
func (m RegMode) Bits() int { return 8 << m }

// DestOverride narrows the destination to one half of the register.
type DestOverride uint8

const (
	DestOverrideLower DestOverride = 0
	DestOverrideUpper DestOverride = 1
	DestOverrideNone  DestOverride = 2
)

// OutMod post-modifies an ALU result. The float and integer
// interpretations share an encoding space.
type OutMod uint8

const (
	OutModNone OutMod = 0
	OutModPos  OutMod = 1
	OutModInt  OutMod = 2
	OutModSat  OutMod = 3
)

// Integer reading of the outmod field.
const (
	OutModIntSatSigned   OutMod = 0
	OutModIntSatUnsigned OutMod = 1
	OutModIntNone        OutMod = 2
	OutModIntHi          OutMod = 3
)

// Condition codes for conditional branches.
type Condition uint8

const (
	ConditionWrite0 Condition = 0
	ConditionFalse  Condition = 1
	ConditionTrue   Condition = 2
	ConditionAlways Condition = 3
)

// JumpOp selects the fixed-function behavior of a branch word.
type JumpOp uint8

const (
	JumpOpBranchUncond      JumpOp = 1
	JumpOpBranchCond        JumpOp = 2
	JumpOpDiscard           JumpOp = 4
	JumpOpTilebufferPending JumpOp = 6
	JumpOpWriteout          JumpOp = 7
)

// Interpolation qualifiers carried by varying loads.
type Interpolation uint8

const (
	InterpCentroid Interpolation = 1
	InterpDefault  Interpolation = 2
)
