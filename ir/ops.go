package ir

// AluOp enumerates the arithmetic opcodes the backend recognizes.
// Comparison results are full-width booleans (0 or ~0).
type AluOp uint8

const (
	OpFAdd AluOp = iota
	OpFSub
	OpFMul
	OpFMin
	OpFMax
	OpFMov
	OpFAbs
	OpFNeg
	OpFSat
	OpFFloor
	OpFCeil
	OpFTrunc
	OpFRoundEven
	OpFFma
	OpFDot3
	OpFDot4

	OpIAdd
	OpISub
	OpIMul
	OpIMin
	OpUMin
	OpIMax
	OpUMax
	OpIMov
	OpIAbs
	OpIAnd
	OpIOr
	OpIXor
	OpINot
	OpIShl
	OpIShr
	OpUShr

	OpFEq
	OpFNe
	OpFLt
	OpFGe
	OpIEq
	OpINe
	OpILt
	OpIGe
	OpULt
	OpUGe

	OpB2F32
	OpF2B32
	OpI2F32
	OpU2F32
	OpF2I32
	OpF2U32

	OpBCSel

	OpFRcp
	OpFRsq
	OpFSqrt
	OpFExp2
	OpFLog2
	OpFSin
	OpFCos
)

var aluOpNames = [...]string{
	OpFAdd:       "fadd",
	OpFSub:       "fsub",
	OpFMul:       "fmul",
	OpFMin:       "fmin",
	OpFMax:       "fmax",
	OpFMov:       "fmov",
	OpFAbs:       "fabs",
	OpFNeg:       "fneg",
	OpFSat:       "fsat",
	OpFFloor:     "ffloor",
	OpFCeil:      "fceil",
	OpFTrunc:     "ftrunc",
	OpFRoundEven: "fround_even",
	OpFFma:       "ffma",
	OpFDot3:      "fdot3",
	OpFDot4:      "fdot4",
	OpIAdd:       "iadd",
	OpISub:       "isub",
	OpIMul:       "imul",
	OpIMin:       "imin",
	OpUMin:       "umin",
	OpIMax:       "imax",
	OpUMax:       "umax",
	OpIMov:       "imov",
	OpIAbs:       "iabs",
	OpIAnd:       "iand",
	OpIOr:        "ior",
	OpIXor:       "ixor",
	OpINot:       "inot",
	OpIShl:       "ishl",
	OpIShr:       "ishr",
	OpUShr:       "ushr",
	OpFEq:        "feq",
	OpFNe:        "fne",
	OpFLt:        "flt",
	OpFGe:        "fge",
	OpIEq:        "ieq",
	OpINe:        "ine",
	OpILt:        "ilt",
	OpIGe:        "ige",
	OpULt:        "ult",
	OpUGe:        "uge",
	OpB2F32:      "b2f32",
	OpF2B32:      "f2b32",
	OpI2F32:      "i2f32",
	OpU2F32:      "u2f32",
	OpF2I32:      "f2i32",
	OpF2U32:      "f2u32",
	OpBCSel:      "bcsel",
	OpFRcp:       "frcp",
	OpFRsq:       "frsq",
	OpFSqrt:      "fsqrt",
	OpFExp2:      "fexp2",
	OpFLog2:      "flog2",
	OpFSin:       "fsin",
	OpFCos:       "fcos",
}

func (op AluOp) String() string {
	if int(op) < len(aluOpNames) {
		return aluOpNames[op]
	}
	return "invalid"
}

// NumSrcs returns how many sources the opcode consumes.
func (op AluOp) NumSrcs() int {
	switch op {
	case OpFMov, OpFAbs, OpFNeg, OpFSat, OpFFloor, OpFCeil, OpFTrunc,
		OpFRoundEven, OpIMov, OpIAbs, OpINot, OpB2F32, OpF2B32,
		OpI2F32, OpU2F32, OpF2I32, OpF2U32,
		OpFRcp, OpFRsq, OpFSqrt, OpFExp2, OpFLog2, OpFSin, OpFCos:
		return 1
	case OpFFma, OpBCSel:
		return 3
	default:
		return 2
	}
}

// IntrinsicOp enumerates the recognized intrinsic operations; anything
// else in the input is an unsupported-op error during lowering.
type IntrinsicOp uint8

const (
	IntrLoadUniform IntrinsicOp = iota
	IntrLoadInput
	IntrStoreOutput
	IntrLoadViewportScale
	IntrLoadViewportOffset
	IntrLoadColorBuffer
	IntrLoadAlphaRef
	IntrDiscard
	IntrDiscardIf
)

var intrinsicNames = [...]string{
	IntrLoadUniform:        "load_uniform",
	IntrLoadInput:          "load_input",
	IntrStoreOutput:        "store_output",
	IntrLoadViewportScale:  "load_viewport_scale",
	IntrLoadViewportOffset: "load_viewport_offset",
	IntrLoadColorBuffer:    "load_color_buffer",
	IntrLoadAlphaRef:       "load_alpha_ref",
	IntrDiscard:            "discard",
	IntrDiscardIf:          "discard_if",
}

func (op IntrinsicOp) String() string {
	if int(op) < len(intrinsicNames) {
		return intrinsicNames[op]
	}
	return "invalid"
}
