// Package encode serializes scheduled bundles into the flat binary the
// hardware executes. Branch placeholders are resolved to quadword
// offsets first, since block sizes are only known once scheduling is
// done; each bundle then carries the following bundle's tag so the
// frontend can prefetch across bundle boundaries.
package encode

import (
	"tlog.app/go/errors"

	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

// ErrBranchRange reports a branch whose quadword offset does not fit
// the encoding chosen for it during scheduling.
var ErrBranchRange = errors.New("branch offset out of range")

// Encode lowers every branch to its packed form and emits the program
// as a flat byte stream. It returns the tag of the first bundle
// executed, which the command stream needs to seed prefetch.
func Encode(p *mir.Program) ([]byte, isa.Tag, error) {
	if err := fixupBranches(p); err != nil {
		return nil, 0, err
	}

	// Lookahead must see across block boundaries, so flatten the
	// bundle list up front.
	var bundles []*mir.Bundle
	for _, b := range p.Blocks {
		bundles = append(bundles, b.Bundles...)
	}

	var buf buffer
	for i, bundle := range bundles {
		emitBundle(&buf, bundle, lookahead(bundles, i))
	}

	first, err := firstTag(p, 0)
	if err != nil {
		return nil, 0, err
	}
	return buf.b, first, nil
}

// lookahead returns the tag prefetched alongside bundle i. The value
// after the final bundle is a terminator, and an ALU bundle in final
// position supplies its own terminator, so both report TagBreak.
func lookahead(bundles []*mir.Bundle, i int) isa.Tag {
	if i+1 >= len(bundles) {
		return isa.TagBreak
	}
	next := bundles[i+1].Tag
	if i+2 >= len(bundles) && next.IsALU() {
		return isa.TagBreak
	}
	return next
}

// firstTag returns the tag of the first bundle at or after block idx,
// skipping over blocks scheduling left empty.
func firstTag(p *mir.Program, idx int) (isa.Tag, error) {
	for ; idx < len(p.Blocks); idx++ {
		if bundles := p.Blocks[idx].Bundles; len(bundles) > 0 {
			return bundles[0].Tag, nil
		}
	}
	return 0, errors.New("no bundle at or after block %d", idx)
}

// fixupBranches packs every placeholder branch now that block quadword
// counts are final. Pre-packed writeout loops are left alone.
func fixupBranches(p *mir.Program) error {
	for bidx, b := range p.Blocks {
		for bun, bundle := range b.Bundles {
			for _, ins := range bundle.Instructions {
				if !ins.Unit.IsBranch() || ins.PrepackedOp {
					continue
				}
				if err := packBranch(p, b, bidx, bun, ins); err != nil {
					return errors.Wrap(err, "block %d", bidx)
				}
			}
		}
	}
	return nil
}

func packBranch(p *mir.Program, b *mir.Block, bidx, bun int, ins *mir.Instruction) error {
	compact := ins.Unit == isa.UnitBrCompact
	conditional := ins.Branch.Conditional
	discard := ins.Branch.Target == mir.TargetDiscard
	target := ins.Branch.TargetBlock

	// Discards jump straight past the end of the shader and never
	// land on another bundle.
	var destTag isa.Tag
	if !discard {
		var err error
		destTag, err = firstTag(p, target)
		if err != nil {
			return err
		}
	}

	// Offsets count quadwords between the end of this bundle's block
	// span and the start of the target block.
	offset := 0
	switch {
	case discard:
		for _, later := range b.Bundles[bun+1:] {
			offset += later.Tag.Quadwords()
		}
		for _, blk := range p.Blocks[bidx+1:] {
			offset += blk.QuadwordCount
		}
	case target > bidx:
		for _, blk := range p.Blocks[bidx+1 : target] {
			offset += blk.QuadwordCount
		}
	default:
		for _, blk := range p.Blocks[target : bidx+1] {
			offset -= blk.QuadwordCount
		}
	}

	// Unconditional extended branches misbehave, so far jumps are
	// always encoded conditionally with the condition forced true.
	cond := isa.ConditionTrue
	switch {
	case !conditional:
		cond = isa.ConditionAlways
	case ins.Branch.InvertCond:
		cond = isa.ConditionFalse
	}

	op := isa.JumpOpBranchCond
	switch {
	case discard:
		op = isa.JumpOpDiscard
	case compact && !conditional:
		op = isa.JumpOpBranchUncond
	}

	if !compact {
		ins.PackedExtended = isa.BranchExtended{
			Op:      op,
			DestTag: destTag,
			Offset:  int32(offset),
			Cond:    isa.ReplicateCond(cond),
		}
		return nil
	}

	if offset < -64 || offset > 63 {
		return errors.Wrap(ErrBranchRange, "compact offset %d", offset)
	}

	if conditional || discard {
		ins.PackedCompact = isa.BranchCond{
			Op:      op,
			DestTag: destTag,
			Offset:  int8(offset),
			Cond:    cond,
		}.Pack()
	} else {
		ins.PackedCompact = isa.BranchUncond{
			Op:      op,
			DestTag: destTag,
			Unknown: 1,
			Offset:  int8(offset),
		}.Pack()
	}
	return nil
}

func emitBundle(buf *buffer, bundle *mir.Bundle, next isa.Tag) {
	switch {
	case bundle.Tag.IsALU():
		emitALU(buf, bundle, next)

	case bundle.Tag == isa.TagLoadStore4:
		pair := isa.LoadStorePair{
			Type:     bundle.Tag,
			NextType: next,
			Word1:    bundle.Instructions[0].LoadStore,
			Word2:    isa.NopLoadStoreWord(),
		}
		if len(bundle.Instructions) == 2 {
			pair.Word2 = bundle.Instructions[1].LoadStore
		}
		packed := pair.Pack()
		buf.bytes(packed[:])

	default:
		ins := bundle.Instructions[0]
		ins.Texture.Type = bundle.Tag
		ins.Texture.NextType = next
		packed := ins.Texture.Pack()
		buf.bytes(packed[:])
	}
}

func emitALU(buf *buffer, bundle *mir.Bundle, next isa.Tag) {
	control := uint32(bundle.Tag) | uint32(next)<<4
	for _, ins := range bundle.Instructions {
		control |= uint32(ins.Unit)
	}
	buf.u32(control)

	// Register words come before any body. Branches carry no
	// registers of their own.
	for _, ins := range bundle.Instructions {
		if ins.CompactBranch || ins.PrepackedOp {
			continue
		}
		regs := ins.Registers
		if ins.HasInlineConstant {
			regs.Src2Reg, _ = isa.EncodeVectorImm(ins.InlineConstant)
		}
		buf.u16(regs.Pack())
	}

	for _, ins := range bundle.Instructions {
		switch {
		case ins.Unit&isa.UnitsAnyVector != 0:
			buf.u48(vectorBody(ins).Pack())
		case ins.Unit == isa.UnitBrCompact:
			buf.u16(ins.PackedCompact)
		case ins.Unit == isa.UnitBranch:
			buf.u48(ins.PackedExtended.Pack())
		default:
			buf.u32(scalarBody(ins).Pack())
		}
	}

	buf.zeros(bundle.Padding)

	if bundle.HasEmbeddedConstants {
		buf.bytes(bundle.Constants[:])
	}
}

// writemask returns the 8-bit hardware mask. 32-bit instructions carry
// a component mask that expands two lanes per component; narrower
// modes already hold the raw field.
func writemask(ins *mir.Instruction) uint8 {
	if ins.RegMode == isa.RegMode32 {
		return isa.ExpandWritemask(ins.Mask)
	}
	return ins.Mask
}

func vectorBody(ins *mir.Instruction) isa.VectorALU {
	body := isa.VectorALU{
		Op:           ins.Op,
		RegMode:      ins.RegMode,
		Src1:         ins.Mod[0],
		Src2:         ins.Mod[1],
		DestOverride: ins.Override,
		OutMod:       ins.OutMod,
		Mask:         writemask(ins),
	}
	if ins.HasInlineConstant {
		_, body.Src2Imm = isa.EncodeVectorImm(ins.InlineConstant)
		body.UseImmField = true
	}
	return body
}

// scalarBody demotes a vector payload for the SADD and SMUL slots,
// which share the vector instruction set but address one component.
func scalarBody(ins *mir.Instruction) isa.ScalarALU {
	body := isa.ScalarALU{
		Op:              ins.Op,
		Src1:            scalarSource(ins.Mod[0]),
		Src2:            scalarSource(ins.Mod[1]),
		OutMod:          ins.OutMod,
		OutputFull:      true,
		OutputComponent: componentFromMask(writemask(ins)) << 1,
	}
	if ins.HasInlineConstant {
		_, body.Src2Imm = isa.EncodeScalarImm(ins.InlineConstant)
		body.UseImmField = true
	}
	return body
}

func scalarSource(m isa.VectorALUSrc) isa.ScalarALUSrc {
	// Full-width components occupy every other half-word slot.
	return isa.ScalarALUSrc{
		Abs:       m.Abs,
		Negate:    m.Negate,
		Full:      !m.Half,
		Component: isa.SwizzleLane(m.Swizzle, 0) << 1,
	}
}

// componentFromMask picks the component a scalar result lands in from
// the expanded writemask.
func componentFromMask(mask uint8) uint8 {
	for c := uint8(0); c < 4; c++ {
		if mask&(3<<(2*c)) != 0 {
			return c
		}
	}
	return 0
}

// buffer accumulates the emitted stream little-endian.
type buffer struct {
	b []byte
}

func (buf *buffer) u16(v uint16) {
	buf.b = append(buf.b, byte(v), byte(v>>8))
}

func (buf *buffer) u32(v uint32) {
	buf.b = append(buf.b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (buf *buffer) u48(v uint64) {
	buf.b = append(buf.b,
		byte(v), byte(v>>8), byte(v>>16),
		byte(v>>24), byte(v>>32), byte(v>>40))
}

func (buf *buffer) bytes(p []byte) {
	buf.b = append(buf.b, p...)
}

func (buf *buffer) zeros(n int) {
	buf.b = append(buf.b, make([]byte, n)...)
}
