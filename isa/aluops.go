package isa

// ALUOp is an 8-bit ALU opcode.
type ALUOp uint8

const (
	OpFAdd       ALUOp = 0x10
	OpFMul       ALUOp = 0x14
	OpFMin       ALUOp = 0x28
	OpFMax       ALUOp = 0x2C
	OpFMov       ALUOp = 0x30
	OpFRoundEven ALUOp = 0x34
	OpFTrunc     ALUOp = 0x35
	OpFFloor     ALUOp = 0x36
	OpFCeil      ALUOp = 0x37
	OpFFma       ALUOp = 0x38
	OpFDot3      ALUOp = 0x3C
	OpFDot3R     ALUOp = 0x3D
	OpFDot4      ALUOp = 0x3E
	OpFReduce    ALUOp = 0x3F
	OpIAdd       ALUOp = 0x40
	OpIShlAdd    ALUOp = 0x41
	OpISub       ALUOp = 0x46
	OpIMul       ALUOp = 0x58
	OpIMin       ALUOp = 0x60
	OpUMin       ALUOp = 0x61
	OpIMax       ALUOp = 0x62
	OpUMax       ALUOp = 0x63
	OpIAsr       ALUOp = 0x68
	OpILsr       ALUOp = 0x69
	OpIShl       ALUOp = 0x6E
	OpIAnd       ALUOp = 0x70
	OpIOr        ALUOp = 0x71
	OpINor       ALUOp = 0x72
	OpINand      ALUOp = 0x73
	OpIAndNot    ALUOp = 0x74
	OpIOrNot     ALUOp = 0x75
	OpIXor       ALUOp = 0x76
	OpINxor      ALUOp = 0x77
	OpIMov       ALUOp = 0x7B
	OpIAbs       ALUOp = 0x7C
	OpFEq        ALUOp = 0x80
	OpFNe        ALUOp = 0x81
	OpFLt        ALUOp = 0x82
	OpFLe        ALUOp = 0x83
	OpFBallEq    ALUOp = 0x88
	OpFBallLt    ALUOp = 0x8A
	OpFBallLte   ALUOp = 0x8B
	OpFBanyNeq   ALUOp = 0x91
	OpFBanyLt    ALUOp = 0x92
	OpFBanyLte   ALUOp = 0x93
	OpF2I        ALUOp = 0x99
	OpF2U8       ALUOp = 0x9C
	OpF2U        ALUOp = 0x9D
	OpIEq        ALUOp = 0xA0
	OpINe        ALUOp = 0xA1
	OpULt        ALUOp = 0xA2
	OpULe        ALUOp = 0xA3
	OpILt        ALUOp = 0xA4
	OpILe        ALUOp = 0xA5
	OpIBallEq    ALUOp = 0xA8
	OpUBallLt    ALUOp = 0xAA
	OpUBallLte   ALUOp = 0xAB
	OpIBallLt    ALUOp = 0xAC
	OpIBallLte   ALUOp = 0xAD
	OpIBanyEq    ALUOp = 0xB0
	OpIBanyNeq   ALUOp = 0xB1
	OpUBanyLt    ALUOp = 0xB2
	OpUBanyLte   ALUOp = 0xB3
	OpIBanyLt    ALUOp = 0xB4
	OpIBanyLte   ALUOp = 0xB5
	OpI2F        ALUOp = 0xB8
	OpU2F        ALUOp = 0xBC
	OpICSelV     ALUOp = 0xC0
	OpICSel      ALUOp = 0xC1
	OpFCSelV     ALUOp = 0xC4
	OpFCSel      ALUOp = 0xC5
	OpFRound     ALUOp = 0xC6
	OpFAtanPt2   ALUOp = 0xE8
	OpFPowPt1    ALUOp = 0xEC
	OpFRcp       ALUOp = 0xF0
	OpFRsqrt     ALUOp = 0xF2
	OpFSqrt      ALUOp = 0xF3
	OpFExp2      ALUOp = 0xF4
	OpFLog2      ALUOp = 0xF5
	OpFSin       ALUOp = 0xF6
	OpFCos       ALUOp = 0xF7
	OpFAtan2Pt1  ALUOp = 0xF9
)

// Property flags packed alongside the unit mask. CHANNEL_COUNT occupies
// the low two bits, stored off by one so zero means "not a reducer".
type OpProps uint32

const (
	QuirkFlippedR24 OpProps = 1 << 2
	OpCommutes      OpProps = 1 << 3
	OpTypeConvert   OpProps = 1 << 4
)

// ChannelCount encodes a fixed reduction width of c components.
func ChannelCount(c int) OpProps { return OpProps(c - 1) }

// FixedChannels decodes ChannelCount; zero means the op is not a
// fixed-width reducer.
func (p OpProps) FixedChannels() int {
	if p&3 == 0 {
		return 0
	}
	return int(p&3) + 1
}

// Units extracts the slot mask from packed props.
func (p OpProps) Units() Unit { return Unit(p) & UnitsAll }

type aluOpInfo struct {
	name  string
	props OpProps
}

var aluOpTable = [256]aluOpInfo{
	OpFAdd:       {"fadd", OpProps(UnitsAdd) | OpCommutes},
	OpFMul:       {"fmul", OpProps(UnitsMul|UnitVLUT) | OpCommutes},
	OpFMin:       {"fmin", OpProps(UnitsMost) | OpCommutes},
	OpFMax:       {"fmax", OpProps(UnitsMost) | OpCommutes},
	OpFMov:       {"fmov", OpProps(UnitsAll) | QuirkFlippedR24},
	OpFRoundEven: {"froundeven", OpProps(UnitsAdd)},
	OpFTrunc:     {"ftrunc", OpProps(UnitsAdd)},
	OpFFloor:     {"ffloor", OpProps(UnitsAdd)},
	OpFCeil:      {"fceil", OpProps(UnitsAdd)},
	OpFFma:       {"ffma", OpProps(UnitVLUT)},
	OpFDot3:      {"fdot3", OpProps(UnitVMUL) | ChannelCount(3) | OpCommutes},
	OpFDot3R:     {"fdot3r", OpProps(UnitVMUL) | ChannelCount(3) | OpCommutes},
	OpFDot4:      {"fdot4", OpProps(UnitVMUL) | ChannelCount(4) | OpCommutes},
	OpFReduce:    {"freduce", OpProps(UnitsAdd)},
	OpIAdd:       {"iadd", OpProps(UnitsMost) | OpCommutes},
	OpIShlAdd:    {"ishladd", OpProps(UnitsMul)},
	OpISub:       {"isub", OpProps(UnitsMost)},
	OpIMul:       {"imul", OpProps(UnitsMul) | OpCommutes},
	OpIMin:       {"imin", OpProps(UnitsMost) | OpCommutes},
	OpUMin:       {"umin", OpProps(UnitsMost) | OpCommutes},
	OpIMax:       {"imax", OpProps(UnitsMost) | OpCommutes},
	OpUMax:       {"umax", OpProps(UnitsMost) | OpCommutes},
	OpIAsr:       {"iasr", OpProps(UnitsAdd)},
	OpILsr:       {"ilsr", OpProps(UnitsAdd)},
	OpIShl:       {"ishl", OpProps(UnitsAdd)},
	OpIAnd:       {"iand", OpProps(UnitsMost) | OpCommutes},
	OpIOr:        {"ior", OpProps(UnitsMost) | OpCommutes},
	OpINor:       {"inor", OpProps(UnitsMost) | OpCommutes},
	OpINand:      {"inand", OpProps(UnitsMost) | OpCommutes},
	OpIAndNot:    {"iandnot", OpProps(UnitsMost)},
	OpIOrNot:     {"iornot", OpProps(UnitsMost)},
	OpIXor:       {"ixor", OpProps(UnitsMost) | OpCommutes},
	OpINxor:      {"inxor", OpProps(UnitsMost) | OpCommutes},
	OpIMov:       {"imov", OpProps(UnitsAll) | QuirkFlippedR24},
	OpIAbs:       {"iabs", OpProps(UnitsAdd)},
	OpFEq:        {"feq", OpProps(UnitsMost) | OpCommutes | OpTypeConvert},
	OpFNe:        {"fne", OpProps(UnitsMost) | OpCommutes | OpTypeConvert},
	OpFLt:        {"flt", OpProps(UnitsMost) | OpTypeConvert},
	OpFLe:        {"fle", OpProps(UnitsMost) | OpTypeConvert},
	OpFBallEq:    {"fball_eq", OpProps(UnitsVector) | ChannelCount(4) | OpCommutes | OpTypeConvert},
	OpFBallLt:    {"fball_lt", OpProps(UnitsVector) | ChannelCount(4) | OpTypeConvert},
	OpFBallLte:   {"fball_lte", OpProps(UnitsVector) | ChannelCount(4) | OpTypeConvert},
	OpFBanyNeq:   {"fbany_neq", OpProps(UnitsVector) | ChannelCount(4) | OpCommutes | OpTypeConvert},
	OpFBanyLt:    {"fbany_lt", OpProps(UnitsVector) | ChannelCount(4) | OpTypeConvert},
	OpFBanyLte:   {"fbany_lte", OpProps(UnitsVector) | ChannelCount(4) | OpTypeConvert},
	OpF2I:        {"f2i", OpProps(UnitsAdd) | OpTypeConvert},
	OpF2U8:       {"f2u8", OpProps(UnitsAdd) | OpTypeConvert},
	OpF2U:        {"f2u", OpProps(UnitsAdd) | OpTypeConvert},
	OpIEq:        {"ieq", OpProps(UnitsMost) | OpCommutes},
	OpINe:        {"ine", OpProps(UnitsMost) | OpCommutes},
	OpULt:        {"ult", OpProps(UnitsMost)},
	OpULe:        {"ule", OpProps(UnitsMost)},
	OpILt:        {"ilt", OpProps(UnitsMost)},
	OpILe:        {"ile", OpProps(UnitsMost)},
	OpIBallEq:    {"iball_eq", OpProps(UnitsVector) | ChannelCount(4) | OpCommutes},
	OpUBallLt:    {"uball_lt", OpProps(UnitsVector) | ChannelCount(4)},
	OpUBallLte:   {"uball_lte", OpProps(UnitsVector) | ChannelCount(4)},
	OpIBallLt:    {"iball_lt", OpProps(UnitsVector) | ChannelCount(4)},
	OpIBallLte:   {"iball_lte", OpProps(UnitsVector) | ChannelCount(4)},
	OpIBanyEq:    {"ibany_eq", OpProps(UnitsVector) | ChannelCount(4) | OpCommutes},
	OpIBanyNeq:   {"ibany_neq", OpProps(UnitsVector) | ChannelCount(4) | OpCommutes},
	OpUBanyLt:    {"ubany_lt", OpProps(UnitsVector) | ChannelCount(4)},
	OpUBanyLte:   {"ubany_lte", OpProps(UnitsVector) | ChannelCount(4)},
	OpIBanyLt:    {"ibany_lt", OpProps(UnitsVector) | ChannelCount(4)},
	OpIBanyLte:   {"ibany_lte", OpProps(UnitsVector) | ChannelCount(4)},
	OpI2F:        {"i2f", OpProps(UnitsAdd) | OpTypeConvert},
	OpU2F:        {"u2f", OpProps(UnitsAdd) | OpTypeConvert},
	OpICSelV:     {"icsel_v", OpProps(UnitVADD | UnitSMUL)},
	OpICSel:      {"icsel", OpProps(UnitVADD | UnitSMUL)},
	OpFCSelV:     {"fcsel_v", OpProps(UnitVADD | UnitSMUL)},
	OpFCSel:      {"fcsel", OpProps(UnitVADD | UnitSMUL)},
	OpFRound:     {"fround", OpProps(UnitsAdd)},
	OpFAtanPt2:   {"fatan_pt2", OpProps(UnitVLUT)},
	OpFPowPt1:    {"fpow_pt1", OpProps(UnitVLUT)},
	OpFRcp:       {"frcp", OpProps(UnitVLUT)},
	OpFRsqrt:     {"frsqrt", OpProps(UnitVLUT)},
	OpFSqrt:      {"fsqrt", OpProps(UnitVLUT)},
	OpFExp2:      {"fexp2", OpProps(UnitVLUT)},
	OpFLog2:      {"flog2", OpProps(UnitVLUT)},
	OpFSin:       {"fsin", OpProps(UnitVLUT)},
	OpFCos:       {"fcos", OpProps(UnitVLUT)},
	OpFAtan2Pt1:  {"fatan2_pt1", OpProps(UnitVLUT)},
}

// Props returns the packed unit mask and flags for op.
func (op ALUOp) Props() OpProps { return aluOpTable[op].props }

// Name returns the mnemonic, or "" for an unallocated opcode.
func (op ALUOp) Name() string { return aluOpTable[op].name }

// Commutes reports whether swapping the two sources is legal.
func (op ALUOp) Commutes() bool { return op.Props()&OpCommutes != 0 }

// IsCSel reports whether op is a conditional select of any width.
func (op ALUOp) IsCSel() bool { return op >= OpICSelV && op <= OpFCSel }

// IsCSelV reports whether op is a vector conditional select.
func (op ALUOp) IsCSelV() bool { return op == OpICSelV || op == OpFCSelV }

// IsInteger reports whether op operates in the integer domain, which
// flips the meaning of the source and output modifier bits.
func (op ALUOp) IsInteger() bool {
	return (op >= 0x40 && op <= 0x7E) || (op >= 0xA0 && op <= 0xC1)
}

// IsIntegerOut reports whether op produces an integer result.
func (op ALUOp) IsIntegerOut() bool {
	return op.IsInteger() || op == OpF2I || op == OpF2U || op == OpF2U8
}
