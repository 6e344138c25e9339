package lower

import (
	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

// writeoutBranch is a pre-packed compact branch performing framebuffer
// writeout. The hardware may refuse the first attempt, so writeout is
// issued as a two-instruction loop: try at offset 0, retry at -1.
func writeoutBranch(offset int8) mir.Instruction {
	ins := mir.New(isa.TagALU4)
	ins.CompactBranch = true
	ins.PrepackedOp = true
	ins.Writeout = true
	ins.Unit = isa.UnitBrCompact
	ins.PackedCompact = isa.BranchCond{
		Op:      isa.JumpOpWriteout,
		DestTag: isa.TagALU4,
		Offset:  offset,
		Cond:    isa.ConditionAlways,
	}.Pack()
	return ins
}

func (c *context) emitFragmentEpilogue() {
	// A constant output never saw a real instruction, so the move
	// into r0 has to be spelled out here.
	if v, ok := c.constants[c.fragmentOutput]; ok && c.fragmentOutput != isa.IndexUnused {
		ins := mir.Mov(isa.FixedRegister(0), isa.FixedRegister(isa.RegisterConstant))
		c.attachConstants(&ins, v)
		c.emit(ins)
	}

	c.emit(writeoutBranch(0))
	c.emit(writeoutBranch(-1))
}

// emitBlendEpilogue converts the blended vec4 in r0 to RGBA8888 and
// writes it out. The scale and convert run in narrow register modes,
// so their masks are the raw hardware fields.
func (c *context) emitBlendEpilogue() {
	// vmul.fmul.none.fulllow hr48, r0, #255
	scale := mir.New(isa.TagALU4)
	scale.Unit = isa.UnitVMUL
	scale.Op = isa.OpFMul
	scale.RegMode = isa.RegMode32
	scale.Override = isa.DestOverrideLower
	scale.Mask = 0xF
	scale.Src0 = isa.FixedRegister(0)
	scale.Dest = isa.FixedRegister(24)
	scale.HasInlineConstant = true
	scale.InlineConstant = isa.FloatToHalf(255.0)
	c.emit(scale)

	// vadd.f2u8.pos.low hr0, hr48, #0
	convert := mir.New(isa.TagALU4)
	convert.Op = isa.OpF2U8
	convert.RegMode = isa.RegMode16
	convert.Override = isa.DestOverrideLower
	convert.OutMod = isa.OutModPos
	convert.Mask = 0xF
	convert.Src0 = isa.FixedRegister(24)
	convert.Mod[0].Half = true
	convert.Dest = isa.FixedRegister(0)
	convert.HasInlineConstant = true
	c.emit(convert)

	// vmul.imov.quarter r0, r0, r0 feeding each writeout attempt.
	mov8 := mir.New(isa.TagALU4)
	mov8.Op = isa.OpIMov
	mov8.RegMode = isa.RegMode8
	mov8.Mask = 0xFF
	mov8.Src1 = isa.FixedRegister(0)
	mov8.Dest = isa.FixedRegister(0)

	c.emit(mov8)
	c.emit(writeoutBranch(0))
	c.emit(mov8)
	c.emit(writeoutBranch(-1))
}
