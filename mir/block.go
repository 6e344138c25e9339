package mir

import "github.com/gogpu/midgard/isa"

// Bundle is one scheduled VLIW instruction group, produced by the
// scheduler and consumed by the encoder.
type Bundle struct {
	Tag          isa.Tag
	Instructions []*Instruction

	// Embedded constant vector shared by the whole ALU bundle.
	HasEmbeddedConstants bool
	Constants            [16]byte
	HasBlendConstant     bool

	// Bytes of zero padding appended to round the bundle up to a
	// whole quadword count.
	Padding int
}

// Block is a basic block: a run of instructions ended by at most one
// branch.
type Block struct {
	Index        int
	Instructions []*Instruction

	Successors   []*Block
	Predecessors []*Block

	// Filled in by the scheduler.
	Scheduled     bool
	Bundles       []*Bundle
	QuadwordCount int

	// Per-temporary component liveness, valid while Program.Liveness
	// is set.
	LiveIn  []uint8
	LiveOut []uint8

	visited bool
}

// AddSuccessor links blk after b in the flow graph.
func (b *Block) AddSuccessor(blk *Block) {
	for _, s := range b.Successors {
		if s == blk {
			return
		}
	}
	b.Successors = append(b.Successors, blk)
	blk.Predecessors = append(blk.Predecessors, b)
}

// Append adds an instruction at the end of the block and returns it.
func (b *Block) Append(ins Instruction) *Instruction {
	p := new(Instruction)
	*p = ins
	b.Instructions = append(b.Instructions, p)
	return p
}

// InsertBefore places ins immediately before pos.
func (b *Block) InsertBefore(pos *Instruction, ins Instruction) *Instruction {
	p := new(Instruction)
	*p = ins
	at := b.index(pos)
	b.Instructions = append(b.Instructions, nil)
	copy(b.Instructions[at+1:], b.Instructions[at:])
	b.Instructions[at] = p
	return p
}

// InsertAfter places ins immediately after pos.
func (b *Block) InsertAfter(pos *Instruction, ins Instruction) *Instruction {
	p := new(Instruction)
	*p = ins
	at := b.index(pos) + 1
	b.Instructions = append(b.Instructions, nil)
	copy(b.Instructions[at+1:], b.Instructions[at:])
	b.Instructions[at] = p
	return p
}

// Remove deletes ins from the block.
func (b *Block) Remove(ins *Instruction) {
	at := b.index(ins)
	b.Instructions = append(b.Instructions[:at], b.Instructions[at+1:]...)
}

func (b *Block) index(ins *Instruction) int {
	for i, p := range b.Instructions {
		if p == ins {
			return i
		}
	}
	panic("instruction not in block")
}

// Program is a flat list of blocks in emission order plus the shared
// temporary numbering.
type Program struct {
	Blocks    []*Block
	TempCount int

	// RegisterStart and RegisterEnd bracket the value indices backed
	// by input registers, which may be written more than once. Every
	// index outside the range is single-def.
	RegisterStart int
	RegisterEnd   int

	// Liveness reports whether per-block live masks are current.
	Liveness bool
}

// SingleDef reports whether value has exactly one writer, a
// precondition for rewriting its producer in place.
func (p *Program) SingleDef(value int) bool {
	if value == isa.IndexUnused || isa.IsFixed(value) {
		return false
	}
	return value < p.RegisterStart || value >= p.RegisterEnd
}

// AddBlock appends a fresh empty block.
func (p *Program) AddBlock() *Block {
	b := &Block{Index: len(p.Blocks)}
	p.Blocks = append(p.Blocks, b)
	return b
}

// ExitBlock returns the final block in emission order.
func (p *Program) ExitBlock() *Block {
	return p.Blocks[len(p.Blocks)-1]
}

// ForEachInstr calls fn for every instruction in program order.
func (p *Program) ForEachInstr(fn func(*Block, *Instruction)) {
	for _, b := range p.Blocks {
		for _, ins := range b.Instructions {
			fn(b, ins)
		}
	}
}

// RewriteIndexSrc replaces reads of old with new program-wide.
func (p *Program) RewriteIndexSrc(old, new int) {
	p.ForEachInstr(func(_ *Block, ins *Instruction) {
		ins.RewriteSrc(old, new)
	})
}

// RewriteIndexSrcTag is RewriteIndexSrc restricted to one pipe.
func (p *Program) RewriteIndexSrcTag(old, new int, tag isa.Tag) {
	p.ForEachInstr(func(_ *Block, ins *Instruction) {
		if ins.Type == tag {
			ins.RewriteSrc(old, new)
		}
	})
}

// RewriteIndexDst replaces writes of old with new program-wide.
func (p *Program) RewriteIndexDst(old, new int) {
	p.ForEachInstr(func(_ *Block, ins *Instruction) {
		if ins.Dest == old {
			ins.Dest = new
		}
	})
}

// RewriteIndex replaces both reads and writes of old with new.
func (p *Program) RewriteIndex(old, new int) {
	p.RewriteIndexSrc(old, new)
	p.RewriteIndexDst(old, new)
}

// UseCount returns how many instructions read value.
func (p *Program) UseCount(value int) int {
	n := 0
	p.ForEachInstr(func(_ *Block, ins *Instruction) {
		if ins.HasArg(value) {
			n++
		}
	})
	return n
}

// SingleUse reports whether value is read at most once, the cheap
// profitability test for forwarding optimizations.
func (p *Program) SingleUse(value int) bool {
	return p.UseCount(value) <= 1
}

// SpecialIndex reports whether value feeds a non-ALU pipe, which pins
// it to the special register ranges.
func (p *Program) SpecialIndex(value int) bool {
	special := false
	p.ForEachInstr(func(_ *Block, ins *Instruction) {
		if ins.Type != isa.TagLoadStore4 && ins.Type != isa.TagTexture4 {
			return
		}
		if ins.HasArg(value) {
			special = true
		}
	})
	return special
}

// SqueezeIndex renumbers temporaries densely so allocator arrays stay
// proportional to the live value count. It returns the old-to-new
// mapping so external tables keyed by value index can follow along.
func (p *Program) SqueezeIndex() map[int]int {
	remap := make(map[int]int)
	next := 0
	lookup := func(idx int) int {
		if idx == isa.IndexUnused || isa.IsFixed(idx) {
			return idx
		}
		n, ok := remap[idx]
		if !ok {
			n = next
			next++
			remap[idx] = n
		}
		return n
	}
	p.ForEachInstr(func(_ *Block, ins *Instruction) {
		ins.Dest = lookup(ins.Dest)
		ins.Src0 = lookup(ins.Src0)
		if !ins.HasInlineConstant {
			ins.Src1 = lookup(ins.Src1)
		}
		ins.Src2 = lookup(ins.Src2)
	})
	p.TempCount = next
	return remap
}
