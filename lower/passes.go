package lower

import (
	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

// effectiveWritemask is the written mask an op really has: fixed-width
// reductions always produce their channel count.
func effectiveWritemask(op isa.ALUOp, mask uint8) uint8 {
	if n := op.Props().FixedChannels(); n > 0 {
		return uint8(1<<uint(n)) - 1
	}
	return mask
}

// inlineAluConstants attaches cached load_const values to the ALU
// instructions reading them, routing the read through the constant
// register.
func (c *context) inlineAluConstants(blk *mir.Block) {
	constReg := isa.FixedRegister(isa.RegisterConstant)

	snapshot := append([]*mir.Instruction(nil), blk.Instructions...)
	for _, ins := range snapshot {
		if ins.Type != isa.TagALU4 || ins.CompactBranch {
			continue
		}
		if ins.HasConstants {
			continue
		}

		if v, ok := c.constants[ins.Src0]; ok && ins.Src0 != isa.IndexUnused {
			c.attachConstants(ins, v)
			ins.Src0 = constReg
		}

		if ins.HasInlineConstant || ins.Src1 == isa.IndexUnused {
			continue
		}
		v, ok := c.constants[ins.Src1]
		if !ok {
			continue
		}

		if !ins.HasConstants {
			c.attachConstants(ins, v)
			ins.Src1 = constReg
			continue
		}

		// Two distinct vec4 constants, as a csel can produce. Only
		// one fits the constant register, so spill the second
		// through a move. The destination register is about to be
		// wiped anyway, making it a safe scratch.
		scratch := ins.Dest
		mov := mir.Mov(scratch, constReg)
		c.attachConstants(&mov, v)
		mov.Unit = isa.UnitVLUT
		ins.Src1 = scratch
		blk.InsertBefore(ins, mov)
	}
}

// embeddedToInlineConstant demotes a 128-bit embedded constant to a
// 16-bit inline immediate when the accessed lanes agree and fit a
// half float, freeing the bundle's constant slot.
func (c *context) embeddedToInlineConstant(blk *mir.Block) {
	constReg := isa.FixedRegister(isa.RegisterConstant)

	for _, ins := range blk.Instructions {
		if !ins.HasConstants || ins.HasInlineConstant || ins.HasBlendConstant {
			continue
		}

		// Only the second source can hold an immediate. Flip the
		// arguments when the opcode allows it.
		if ins.Src0 == constReg {
			switch ins.Op {
			case isa.OpFNe, isa.OpFAdd, isa.OpFMul, isa.OpFMin, isa.OpFMax,
				isa.OpIAdd, isa.OpIMul, isa.OpFEq, isa.OpIEq, isa.OpINe,
				isa.OpIAnd, isa.OpIOr, isa.OpIXor:
				ins.Src0, ins.Src1 = ins.Src1, ins.Src0
				ins.Mod[0], ins.Mod[1] = ins.Mod[1], ins.Mod[0]
			}
		}

		if ins.Src1 != constReg {
			continue
		}

		src := ins.Mod[1]
		component := isa.SwizzleLane(src.Swizzle, 0)

		// Half precision cannot hold an arbitrary 32-bit integer.
		if ins.Op.IsInteger() {
			continue
		}

		if src.Abs || src.Negate || src.Half || src.RepLow || src.RepHigh {
			continue
		}

		// Reject vector constants: every lane the mask reads must
		// match the first.
		value := ins.ConstantWord(int(component))
		mask := effectiveWritemask(ins.Op, ins.Mask)
		vector := false
		for comp := 1; comp < 4; comp++ {
			if mask&(1<<uint(comp)) == 0 {
				continue
			}
			if ins.ConstantWord(int(isa.SwizzleLane(src.Swizzle, comp))) != value {
				vector = true
				break
			}
		}
		if vector {
			continue
		}

		ins.HasConstants = false
		ins.Src1 = isa.IndexUnused
		ins.HasInlineConstant = true
		ins.InlineConstant = isa.FloatToHalf(ins.Constants[component])
	}
}

// actualiseAliases rewrites every use of an aliased value to its
// target, then materializes a real move for any alias nothing read.
func (c *context) actualiseAliases(blk *mir.Block) {
	for _, ins := range blk.Instructions {
		ins.Src0 = c.mapAlias(ins.Src0)
		if !ins.HasInlineConstant {
			ins.Src1 = c.mapAlias(ins.Src1)
		}
		ins.Src2 = c.mapAlias(ins.Src2)
	}

	for _, base := range sortedKeys(c.leftover) {
		blk.Append(mir.Mov(base, c.aliases[base]))
	}
	c.leftover = map[int]bool{}
}

// emitVaryingStores walks the block backwards looking for the final
// write to each deferred varying and plants the store there. Varyings
// route through r26; the store names it as register select 0.
func (c *context) emitVaryingStores(blk *mir.Block) {
	for i := len(blk.Instructions) - 1; i >= 0; i-- {
		ins := blk.Instructions[i]
		offset, ok := c.varyings[ins.Dest]
		if !ok || ins.Dest == isa.IndexUnused {
			continue
		}

		mov := mir.Mov(isa.FixedRegister(isa.RegisterVaryingBase), ins.Dest)

		st := mir.Store(isa.OpStVary32, isa.FixedRegister(0), uint16(offset))
		st.LoadStore.Unknown = 0x1E9E

		blk.InsertAfter(ins, st)
		blk.InsertAfter(ins, mov)

		delete(c.varyings, ins.Dest)
	}
}

// eliminateOrphanMoves drops moves whose destination is dead, the
// usual fate of the copies the texture pipeline leaves behind.
func (c *context) eliminateOrphanMoves(blk *mir.Block) {
	snapshot := append([]*mir.Instruction(nil), blk.Instructions...)
	for _, ins := range snapshot {
		if ins.Type != isa.TagALU4 || ins.Op != isa.OpFMov {
			continue
		}
		if ins.Dest == isa.IndexUnused || isa.IsFixed(ins.Dest) {
			continue
		}
		if _, pinned := c.pinned[ins.Dest]; pinned {
			continue
		}
		if c.prog.IsLiveAfter(blk, ins, ins.Dest) {
			continue
		}
		blk.Remove(ins)
	}
}

// pairLoadStore nudges lone load/store ops together so the scheduler
// can fill both halves of a load/store word.
func (c *context) pairLoadStore(blk *mir.Block) {
	for i := 0; i < len(blk.Instructions); i++ {
		ins := blk.Instructions[i]
		if ins.Type != isa.TagLoadStore4 {
			continue
		}

		if i+1 < len(blk.Instructions) && blk.Instructions[i+1].Type == isa.TagLoadStore4 {
			// Already paired.
			i++
			continue
		}

		// Bounded search for a pairable load; dragging one too far
		// forward wrecks register pressure.
		search := 8
		for j := i + 1; j < len(blk.Instructions) && search > 0; j++ {
			search--
			cand := blk.Instructions[j]
			if cand.Type != isa.TagLoadStore4 {
				continue
			}
			if cand.LoadStore.Op.IsStore() {
				continue
			}

			blk.Remove(cand)
			blk.InsertBefore(ins, *cand)
			i++
			break
		}
	}
}
