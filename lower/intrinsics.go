package lower

import (
	"math"

	"tlog.app/go/errors"

	"github.com/gogpu/midgard/ir"
	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

func (c *context) emitIntrinsic(n *ir.Intrinsic) error {
	switch n.Op {
	case ir.IntrDiscard, ir.IntrDiscardIf:
		conditional := n.Op == ir.IntrDiscardIf
		br := mir.AluBranch(0, mir.TargetDiscard, 0, conditional, false)
		if conditional {
			br.Src2 = c.valueIndex(n.Src.Value)
		}
		c.emit(br)
		c.canDiscard = true
		return nil

	case ir.IntrLoadUniform:
		dest := c.valueIndex(n.Dest.Value)
		if c.opts.IsBlend {
			// A blend shader's only uniform is the blend constant,
			// patched into the binary by the command stream.
			ins := mir.Mov(dest, isa.FixedRegister(isa.RegisterConstant))
			ins.HasConstants = true
			ins.HasBlendConstant = true
			c.emit(ins)
			return nil
		}
		if n.Base >= c.uniformCount {
			c.uniformCount = n.Base + 1
		}
		c.emitUniformRead(dest, len(c.sysvals)+n.Base)
		return nil

	case ir.IntrLoadInput:
		dest := c.valueIndex(n.Dest.Value)
		switch {
		case c.opts.IsBlend:
			// Source color is preloaded into r0.
			c.pinned[dest] = 0
		case c.stage == ir.StageFragment:
			if n.Base >= c.varyingCount {
				c.varyingCount = n.Base + 1
			}
			ins := mir.Load(isa.OpLdVary32, dest, uint16(n.Base))
			ins.LoadStore.VaryingParameters = isa.VaryingParameter{
				IsVarying:     true,
				Interpolation: isa.InterpDefault,
			}.Pack()
			ins.LoadStore.Unknown = 0x1E9E
			c.emit(ins)
		default:
			if n.Base >= c.attributeCount {
				c.attributeCount = n.Base + 1
			}
			ins := mir.Load(isa.OpLdAttr32, dest, uint16(n.Base))
			ins.LoadStore.Unknown = 0x1E1E
			ins.LoadStore.Mask = n.Dest.WriteMask
			ins.Mask = n.Dest.WriteMask
			c.emit(ins)
		}
		return nil

	case ir.IntrStoreOutput:
		src := c.valueIndex(n.Src.Value)
		switch c.stage {
		case ir.StageFragment:
			// The fragment color is not stored through the
			// load/store pipe; it sits in r0 when the writeout
			// branch fires.
			c.pinned[src] = 0
			c.fragmentOutput = src
		case ir.StageVertex:
			if n.Base >= c.varyingCount {
				c.varyingCount = n.Base + 1
			}
			if v, ok := c.constants[src]; ok {
				// A constant varying never sees a real write, so
				// the deferred-store scan would miss it. Feed the
				// constant through r26 and store right away.
				ins := mir.Mov(isa.FixedRegister(isa.RegisterVaryingBase), isa.FixedRegister(isa.RegisterConstant))
				c.attachConstants(&ins, v)
				c.emit(ins)

				st := mir.Store(isa.OpStVary32, isa.FixedRegister(0), uint16(n.Base))
				st.LoadStore.Unknown = 0x1E9E
				c.emit(st)
			} else {
				// Defer until the last write is known.
				c.varyings[src] = n.Base
			}
		}
		return nil

	case ir.IntrLoadViewportScale, ir.IntrLoadViewportOffset:
		sv, _ := sysvalFor(n.Op)
		c.emitUniformRead(c.valueIndex(n.Dest.Value), c.sysvalID[sv])
		return nil

	case ir.IntrLoadColorBuffer:
		return c.emitColorBufferRead(n)

	case ir.IntrLoadAlphaRef:
		// The reference value is a compile-time constant; stash it
		// in the constant cache like any other immediate.
		c.constants[c.valueIndex(n.Dest.Value)] = [4]uint32{math.Float32bits(c.opts.AlphaRef)}
		return nil

	default:
		return errors.New("unhandled intrinsic %v", n.Op)
	}
}

// emitUniformRead reads uniform slot offset into dest, either for free
// through the pushed-uniform registers or with a real load.
func (c *context) emitUniformRead(dest, offset int) {
	if offset < c.opts.UniformCutoff {
		// Pushed uniforms are just registers, counting down from
		// r23. Alias while still in SSA space so the read is free.
		c.alias(dest, isa.FixedRegister(isa.UniformRegister(offset)))
		return
	}

	ins := mir.Load(isa.OpLdUniform32, dest, 0)
	ins.LoadStore.VaryingParameters = uint16(offset&7) << 7
	ins.LoadStore.Address = uint16(offset >> 3)
	ins.LoadStore.Unknown = 0x1E00
	c.emit(ins)
}

// emitColorBufferRead loads the destination framebuffer color for a
// blend shader, one byte lane at a time, then normalizes to [0, 1].
func (c *context) emitColorBufferRead(n *ir.Intrinsic) error {
	if !c.opts.IsBlend {
		return errors.New("color buffer read outside a blend shader")
	}

	dest := c.valueIndex(n.Dest.Value)

	ins := mir.Load(isa.OpLdColorBuffer8, dest, 0)
	ins.LoadStore.Swizzle = isa.SwizzleXXXX
	for comp := 0; comp < 4; comp++ {
		ins.LoadStore.Mask = 1 << uint(comp)
		ins.Mask = ins.LoadStore.Mask
		ins.LoadStore.Unknown = uint16(comp)
		c.emit(ins)
	}

	// vadd.u2f hr(dest), abs(hr(dest)), #0
	u2f := mir.New(isa.TagALU4)
	u2f.Op = isa.OpU2F
	u2f.RegMode = isa.RegMode16
	u2f.Mask = 0xF
	u2f.Src0 = dest
	u2f.Mod[0].Abs = true
	u2f.Mod[0].Half = true
	u2f.Dest = dest
	u2f.HasInlineConstant = true
	c.emit(u2f)

	// vmul.fmul.sat r(dest), hr(dest), #1/255
	scale := mir.New(isa.TagALU4)
	scale.Op = isa.OpFMul
	scale.RegMode = isa.RegMode32
	scale.OutMod = isa.OutModSat
	scale.Mask = 0xF
	scale.Src0 = dest
	scale.Mod[0].Half = true
	scale.Dest = dest
	scale.HasInlineConstant = true
	scale.InlineConstant = isa.FloatToHalf(1.0 / 255.0)
	c.emit(scale)

	return nil
}
