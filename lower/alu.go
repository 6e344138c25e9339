package lower

import (
	"tlog.app/go/errors"

	"github.com/gogpu/midgard/ir"
	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

// aluOps maps input opcodes with a direct hardware counterpart. imov
// deliberately selects fmov: the integer move loses precision through
// the texture pipeline.
var aluOps = map[ir.AluOp]isa.ALUOp{
	ir.OpFAdd:       isa.OpFAdd,
	ir.OpFMul:       isa.OpFMul,
	ir.OpFMin:       isa.OpFMin,
	ir.OpFMax:       isa.OpFMax,
	ir.OpFMov:       isa.OpFMov,
	ir.OpFFloor:     isa.OpFFloor,
	ir.OpFCeil:      isa.OpFCeil,
	ir.OpFTrunc:     isa.OpFTrunc,
	ir.OpFRoundEven: isa.OpFRoundEven,
	ir.OpFDot3:      isa.OpFDot3,
	ir.OpFDot4:      isa.OpFDot4,
	ir.OpIAdd:       isa.OpIAdd,
	ir.OpISub:       isa.OpISub,
	ir.OpIMul:       isa.OpIMul,
	ir.OpIMin:       isa.OpIMin,
	ir.OpUMin:       isa.OpUMin,
	ir.OpIMax:       isa.OpIMax,
	ir.OpUMax:       isa.OpUMax,
	ir.OpIMov:       isa.OpFMov,
	ir.OpIAbs:       isa.OpIAbs,
	ir.OpIAnd:       isa.OpIAnd,
	ir.OpIOr:        isa.OpIOr,
	ir.OpIXor:       isa.OpIXor,
	ir.OpIShl:       isa.OpIShl,
	ir.OpIShr:       isa.OpIAsr,
	ir.OpUShr:       isa.OpILsr,
	ir.OpFEq:        isa.OpFEq,
	ir.OpFNe:        isa.OpFNe,
	ir.OpFLt:        isa.OpFLt,
	ir.OpIEq:        isa.OpIEq,
	ir.OpINe:        isa.OpINe,
	ir.OpILt:        isa.OpILt,
	ir.OpULt:        isa.OpULt,
	ir.OpI2F32:      isa.OpI2F,
	ir.OpU2F32:      isa.OpU2F,
	ir.OpF2I32:      isa.OpF2I,
	ir.OpF2U32:      isa.OpF2U,
	ir.OpFRcp:       isa.OpFRcp,
	ir.OpFRsq:       isa.OpFRsqrt,
	ir.OpFSqrt:      isa.OpFSqrt,
	ir.OpFExp2:      isa.OpFExp2,
	ir.OpFLog2:      isa.OpFLog2,
	ir.OpFSin:       isa.OpFSin,
	ir.OpFCos:       isa.OpFCos,
}

// operand is a value index with the source modifiers that ride along.
type operand struct {
	index int
	mod   isa.VectorALUSrc
}

func (c *context) operand(s ir.Src) operand {
	return operand{
		index: c.valueIndex(s.Value),
		mod: isa.VectorALUSrc{
			Abs:     s.Abs,
			Negate:  s.Negate,
			Swizzle: isa.SwizzleFromArray(s.Swizzle[:]),
		},
	}
}

func rawOperand(index int) operand {
	return operand{index: index, mod: isa.VectorALUSrc{Swizzle: isa.SwizzleXYZW}}
}

// buildAlu assembles an ALU instruction, honoring the flipped-r24
// quirk: affected unary ops carry their operand in the second slot.
func buildAlu(op isa.ALUOp, dest int, mask uint8, srcs ...operand) mir.Instruction {
	ins := mir.New(isa.TagALU4)
	ins.Op = op
	ins.RegMode = isa.RegMode32
	ins.Dest = dest
	ins.Mask = mask

	flipped := op.Props()&isa.QuirkFlippedR24 != 0
	switch len(srcs) {
	case 1:
		if flipped {
			ins.Src1 = srcs[0].index
			ins.Mod[1] = srcs[0].mod
		} else {
			ins.Src0 = srcs[0].index
			ins.Mod[0] = srcs[0].mod
		}
	case 2:
		ins.Src0 = srcs[0].index
		ins.Mod[0] = srcs[0].mod
		ins.Src1 = srcs[1].index
		ins.Mod[1] = srcs[1].mod
	}
	return ins
}

func (c *context) emitAlu(a *ir.Alu) error {
	dest := c.valueIndex(a.Dest.Value)
	mask := a.Dest.WriteMask

	var ins mir.Instruction

	switch a.Op {
	case ir.OpBCSel:
		// The condition is hardcoded into r31 at schedule time, so
		// the select itself is binary with the condition riding in
		// the third slot.
		ins = buildAlu(isa.OpFCSel, dest, mask, c.operand(a.Srcs[1]), c.operand(a.Srcs[2]))
		ins.Src2 = c.valueIndex(a.Srcs[0].Value)
		c.emit(ins)
		return nil

	case ir.OpFFma:
		// No usable fused form; expand to a multiply feeding an add.
		t := c.temp()
		c.emit(buildAlu(isa.OpFMul, t, mask, c.operand(a.Srcs[0]), c.operand(a.Srcs[1])))
		ins = buildAlu(isa.OpFAdd, dest, mask, rawOperand(t), c.operand(a.Srcs[2]))

	case ir.OpFSub:
		s1 := c.operand(a.Srcs[1])
		s1.mod.Negate = !s1.mod.Negate
		ins = buildAlu(isa.OpFAdd, dest, mask, c.operand(a.Srcs[0]), s1)

	case ir.OpFNeg:
		s := c.operand(a.Srcs[0])
		s.mod.Negate = !s.mod.Negate
		ins = buildAlu(isa.OpFMov, dest, mask, s)

	case ir.OpFAbs:
		s := c.operand(a.Srcs[0])
		s.mod.Abs = true
		s.mod.Negate = false
		ins = buildAlu(isa.OpFMov, dest, mask, s)

	case ir.OpFSat:
		ins = buildAlu(isa.OpFMov, dest, mask, c.operand(a.Srcs[0]))
		ins.OutMod = isa.OutModSat

	case ir.OpINot:
		ins = buildAlu(isa.OpIMov, dest, mask, c.operand(a.Srcs[0]))
		ins.Invert = true

	case ir.OpFGe, ir.OpIGe, ir.OpUGe:
		// Lower to less-or-equal with the arguments flipped.
		var op isa.ALUOp
		switch a.Op {
		case ir.OpFGe:
			op = isa.OpFLe
		case ir.OpIGe:
			op = isa.OpILe
		default:
			op = isa.OpULe
		}
		ins = buildAlu(op, dest, mask, c.operand(a.Srcs[1]), c.operand(a.Srcs[0]))

	case ir.OpB2F32:
		// The full-width boolean is masked against an embedded 1.0,
		// too wide for an inline half constant.
		ins = buildAlu(isa.OpIAnd, dest, mask, c.operand(a.Srcs[0]))
		ins.Src1 = isa.FixedRegister(isa.RegisterConstant)
		ins.HasConstants = true
		ins.Constants[0] = 1.0
		ins.Mod[1] = isa.VectorALUSrc{Swizzle: isa.SwizzleXXXX}

	case ir.OpF2B32:
		ins = buildAlu(isa.OpFNe, dest, mask, c.operand(a.Srcs[0]))
		ins.Src1 = isa.FixedRegister(isa.RegisterConstant)
		ins.HasConstants = true
		ins.Constants[0] = 0
		ins.Mod[1] = isa.VectorALUSrc{Swizzle: isa.SwizzleXXXX}

	default:
		op, ok := aluOps[a.Op]
		if !ok {
			return errors.New("unhandled alu op %v", a.Op)
		}
		srcs := make([]operand, len(a.Srcs))
		for i, s := range a.Srcs {
			srcs[i] = c.operand(s)
		}
		ins = buildAlu(op, dest, mask, srcs...)
	}

	// True table ops compute one lane at a time; split them into a
	// scalar instruction per written component.
	if ins.Op.Props().Units() == isa.UnitVLUT {
		c.scalarizeTableOp(ins)
		return nil
	}

	c.emit(ins)
	return nil
}

func (c *context) scalarizeTableOp(ins mir.Instruction) {
	orig := ins.Mod[0].Swizzle
	for comp := 0; comp < 4; comp++ {
		if ins.Mask&(1<<uint(comp)) == 0 {
			continue
		}
		lane := isa.SwizzleLane(orig, comp)
		split := ins
		split.Mask = 1 << uint(comp)
		split.Mod[0].Swizzle = isa.Swizzle(lane, lane, lane, lane)
		c.emit(split)
	}
}
