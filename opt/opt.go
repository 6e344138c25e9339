// Package opt holds the machine-level peephole passes that run between
// lowering and register allocation. Each pass reports whether it made
// progress; passes that can unlock one another iterate to fixpoint.
package opt

import (
	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

// Run applies the peephole passes to the program. pinned lists value
// indices whose registers are dictated by the ABI; writes to them are
// never dead.
func Run(p *mir.Program, pinned map[int]int) {
	for {
		progress := false
		for _, b := range p.Blocks {
			progress = removeDeadMoves(p, b, pinned) || progress
			progress = propagateNot(p, b) || progress
			progress = fuseDestInvert(b) || progress
			progress = combinePerspective(p, b) || progress
		}
		if !progress {
			break
		}
	}

	// Whatever inverts the fusion passes could not absorb become
	// explicit complements.
	for _, b := range p.Blocks {
		expandInvert(p, b)
	}
}

// removeDeadMoves drops moves whose destination nothing reads.
func removeDeadMoves(p *mir.Program, blk *mir.Block, pinned map[int]int) bool {
	progress := false
	snapshot := append([]*mir.Instruction(nil), blk.Instructions...)
	for _, ins := range snapshot {
		if !ins.IsAluMove() {
			continue
		}
		if ins.Dest == isa.IndexUnused || isa.IsFixed(ins.Dest) {
			continue
		}
		if _, ok := pinned[ins.Dest]; ok {
			continue
		}
		if p.IsLiveAfter(blk, ins, ins.Dest) {
			continue
		}
		blk.Remove(ins)
		progress = true
	}
	return progress
}

// propagateNot pushes the invert flag of a pure integer move back onto
// the producer of its operand, letting the move drop out later.
func propagateNot(p *mir.Program, blk *mir.Block) bool {
	progress := false
	for _, ins := range blk.Instructions {
		if ins.Type != isa.TagALU4 || ins.CompactBranch {
			continue
		}
		if ins.Op != isa.OpIMov || !ins.Invert {
			continue
		}
		src := ins.Src1
		if ins.HasInlineConstant || !p.SingleDef(src) || !p.SingleUse(src) {
			continue
		}

		applied := false
		p.ForEachInstr(func(_ *mir.Block, prod *mir.Instruction) {
			if applied || prod.Dest != src || prod.Type != isa.TagALU4 || prod.CompactBranch {
				return
			}
			prod.Invert = !prod.Invert
			ins.Invert = false
			applied = true
		})
		progress = progress || applied
	}
	return progress
}

// invertedBitwise pairs each bitwise op with its complemented form.
var invertedBitwise = map[isa.ALUOp]isa.ALUOp{
	isa.OpIAnd:  isa.OpINand,
	isa.OpIOr:   isa.OpINor,
	isa.OpIXor:  isa.OpINxor,
	isa.OpINand: isa.OpIAnd,
	isa.OpINor:  isa.OpIOr,
	isa.OpINxor: isa.OpIXor,
}

// fuseDestInvert absorbs a pending invert into a bitwise opcode, which
// the hardware provides in complemented form for free.
func fuseDestInvert(blk *mir.Block) bool {
	progress := false
	for _, ins := range blk.Instructions {
		if ins.Type != isa.TagALU4 || ins.CompactBranch || !ins.Invert {
			continue
		}
		op, ok := invertedBitwise[ins.Op]
		if !ok {
			continue
		}
		ins.Op = op
		ins.Invert = false
		progress = true
	}
	return progress
}

// expandInvert rewrites any surviving invert flag into an explicit
// inor against zero, since the flag itself has no encoding.
func expandInvert(p *mir.Program, blk *mir.Block) {
	snapshot := append([]*mir.Instruction(nil), blk.Instructions...)
	for _, ins := range snapshot {
		if ins.Type != isa.TagALU4 || ins.CompactBranch || !ins.Invert {
			continue
		}

		t := p.TempCount
		p.TempCount++

		not := mir.New(isa.TagALU4)
		not.Op = isa.OpINor
		not.RegMode = isa.RegMode32
		not.OutMod = isa.OutModIntNone
		not.Mask = ins.Mask
		not.Dest = ins.Dest
		not.Src0 = t
		not.HasInlineConstant = true

		ins.Dest = t
		ins.Invert = false
		blk.InsertAfter(ins, not)
	}
}

// simpleSwizzle reports whether every lane enabled in mask reads its
// own component.
func simpleSwizzle(swizzle uint8, mask uint8) bool {
	for comp := 0; comp < 4; comp++ {
		if mask&(1<<uint(comp)) == 0 {
			continue
		}
		if isa.SwizzleLane(swizzle, comp) != uint8(comp) {
			return false
		}
	}
	return true
}

// combinePerspective collapses fmul(a, frcp(a.w).xxxx) into the
// load/store pipe's perspective division op, freeing two ALU slots on
// the hottest path of any projective shader.
func combinePerspective(p *mir.Program, blk *mir.Block) bool {
	progress := false
	snapshot := append([]*mir.Instruction(nil), blk.Instructions...)
	for _, ins := range snapshot {
		if ins.Type != isa.TagALU4 || ins.CompactBranch || ins.Op != isa.OpFMul {
			continue
		}
		if ins.HasInlineConstant || ins.HasConstants {
			continue
		}
		if !simpleSwizzle(ins.Mod[0].Swizzle, ins.Mask) {
			continue
		}
		if ins.Mod[1].Swizzle != isa.SwizzleXXXX {
			continue
		}

		rcp := ins.Src1
		if !p.SingleDef(rcp) || !p.SingleDef(ins.Dest) || !p.SingleUse(rcp) {
			continue
		}

		var producer *mir.Instruction
		for _, sub := range blk.Instructions {
			if sub.Dest == rcp {
				producer = sub
				break
			}
		}
		if producer == nil || producer.Type != isa.TagALU4 || producer.Op != isa.OpFRcp {
			continue
		}
		if producer.Src0 != ins.Src0 {
			continue
		}

		component := isa.SwizzleLane(producer.Mod[0].Swizzle, 0)
		var op isa.LoadStoreOp
		switch component {
		case isa.ComponentW:
			op = isa.OpPerspectiveDivW
		case isa.ComponentZ:
			op = isa.OpPerspectiveDivZ
		default:
			continue
		}

		div := mir.Load(op, ins.Dest, 0)
		div.Mask = ins.Mask
		div.LoadStore.Mask = ins.Mask
		div.Src0 = ins.Src0
		div.LoadStore.Unknown = 0x24

		blk.InsertBefore(ins, div)
		blk.Remove(ins)
		blk.Remove(producer)
		progress = true
	}
	return progress
}
