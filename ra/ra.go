// Package ra colors MIR temporaries onto the Midgard register file. It
// builds a per-component interference graph over the liveness masks,
// colors it greedily toward the lowest register numbers, and spills
// through thread-local storage when the work registers run out.
package ra

import (
	"tlog.app/go/errors"

	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

// maxIterations bounds the spill loop; each iteration spills one node.
const maxIterations = 1000

// Options configure allocation for one program.
type Options struct {
	// UniformCutoff determines how many work registers the pushed
	// uniforms consume.
	UniformCutoff int

	// Pinned maps value indices to the work register the ABI demands
	// for them, r0 for fragment outputs and blend inputs.
	Pinned map[int]int
}

// Result reports the register and scratch footprint of the allocation.
type Result struct {
	// WorkRegisterCount is the number of work registers the program
	// touches, at least 1.
	WorkRegisterCount int

	// TLSSize is the thread-local scratch footprint in bytes.
	TLSSize int

	// Colors maps each value index to its work register, for passes
	// that still need to resolve indices the descriptors do not cover.
	Colors []int

	Spills int
	Fills  int
}

type allocator struct {
	prog      *mir.Program
	workCount int
	pinned    map[int]int

	colors []int
	adj    []map[int]bool

	spillSlots int
	spills     int
	fills      int
}

// Allocate rewrites the program's value indices into physical register
// assignments, recorded in each instruction's register descriptor.
func Allocate(p *mir.Program, opts Options) (*Result, error) {
	a := &allocator{
		prog:      p,
		workCount: isa.WorkRegisterCount(opts.UniformCutoff),
		pinned:    map[int]int{},
	}
	for v, reg := range opts.Pinned {
		a.pinned[v] = reg
	}

	for iter := 0; iter < maxIterations; iter++ {
		remap := p.SqueezeIndex()
		a.renamePinned(remap)

		p.InvalidateLiveness()
		p.ComputeLiveness()

		failed := a.color()
		if failed < 0 {
			return a.install(), nil
		}

		node := a.chooseSpill(failed)
		if node < 0 {
			return nil, errors.New("%d work registers, nothing left to spill", a.workCount)
		}
		a.spill(node)
	}

	return nil, errors.New("spill loop did not converge after %d rounds", maxIterations)
}

func (a *allocator) renamePinned(remap map[int]int) {
	renamed := map[int]int{}
	for old, reg := range a.pinned {
		if n, ok := remap[old]; ok {
			renamed[n] = reg
		}
	}
	a.pinned = renamed
}

// interfere records that the written components of dest overlap a live
// temporary.
func (a *allocator) interfere(dest, other int) {
	if dest == other {
		return
	}
	a.adj[dest][other] = true
	a.adj[other][dest] = true
}

func validTemp(idx, count int) bool {
	return idx >= 0 && idx < count && !isa.IsFixed(idx)
}

// buildInterference walks each block backwards with a live mask copy,
// adding an edge whenever a write overlaps, componentwise, a value
// live across it.
func (a *allocator) buildInterference() {
	count := a.prog.TempCount
	a.adj = make([]map[int]bool, count)
	for i := range a.adj {
		a.adj[i] = map[int]bool{}
	}

	for _, b := range a.prog.Blocks {
		live := make([]uint8, count)
		copy(live, b.LiveOut)

		for i := len(b.Instructions) - 1; i >= 0; i-- {
			ins := b.Instructions[i]
			if validTemp(ins.Dest, count) && ins.Mask != 0 {
				for t := 0; t < count; t++ {
					if live[t]&ins.Mask != 0 {
						a.interfere(ins.Dest, t)
					}
				}
			}
			mir.LivenessUpdate(live, ins)
		}
	}
}

// color assigns every temporary the lowest free register in its class.
// It returns the first node that could not be colored, or -1 on
// success.
func (a *allocator) color() int {
	count := a.prog.TempCount
	a.buildInterference()

	a.colors = make([]int, count)
	for i := range a.colors {
		a.colors[i] = -1
	}

	// ABI-pinned nodes are seeded first and their registers reserved
	// outright: their values stay meaningful past their last MIR use
	// (the writeout reads r0 behind the allocator's back).
	reserved := map[int]bool{}
	for node, reg := range a.pinned {
		if node < count {
			a.colors[node] = reg
			reserved[reg] = true
		}
	}

	for node := 0; node < count; node++ {
		if a.colors[node] >= 0 {
			continue
		}

		var taken [32]bool
		for other := range a.adj[node] {
			if c := a.colors[other]; c >= 0 {
				taken[c] = true
			}
		}

		reg := -1
		for r := 0; r < a.workCount; r++ {
			if !taken[r] && !reserved[r] {
				reg = r
				break
			}
		}
		if reg < 0 {
			return node
		}
		a.colors[node] = reg
	}
	return -1
}

// chooseSpill picks the node to evict after a coloring failure: the
// failing node itself when legal, otherwise the most-constrained
// spillable node. Fill destinations are never spilled, or the loop
// would not terminate.
func (a *allocator) chooseSpill(failed int) int {
	noSpill := map[int]bool{}
	a.prog.ForEachInstr(func(_ *mir.Block, ins *mir.Instruction) {
		if ins.NoSpill && validTemp(ins.Dest, a.prog.TempCount) {
			noSpill[ins.Dest] = true
		}
	})

	spillable := func(n int) bool {
		if noSpill[n] {
			return false
		}
		_, pinned := a.pinned[n]
		return !pinned
	}

	if spillable(failed) {
		return failed
	}

	best, bestDegree := -1, 0
	for n := 0; n < a.prog.TempCount; n++ {
		if !spillable(n) {
			continue
		}
		if d := len(a.adj[n]); d > bestDegree {
			best, bestDegree = n, d
		}
	}
	return best
}

// scratchAccess builds the st_int4/ld_int4 scratch instruction for TLS
// slot, a 16-byte vec4 in thread-local storage.
func scratchAccess(srcdest, slot int, store bool, mask uint8) mir.Instruction {
	byteOff := slot * 16

	var ins mir.Instruction
	if store {
		ins = mir.Store(isa.OpStInt4, srcdest, 0)
	} else {
		ins = mir.Load(isa.OpLdInt4, srcdest, 0)
	}
	ins.Mask = mask
	ins.LoadStore.Mask = mask
	ins.LoadStore.Swizzle = isa.SwizzleXYZW
	ins.LoadStore.Unknown = 0x1EEA
	ins.LoadStore.VaryingParameters = uint16(byteOff&0x1FF) << 1
	ins.LoadStore.Address = uint16(byteOff >> 9)
	ins.NoSpill = true
	return ins
}

// spill evicts node to thread-local storage: every write is redirected
// through r26 into a scratch store, and a fill is planted ahead of each
// read.
func (a *allocator) spill(node int) {
	slot := a.spillSlots
	a.spillSlots++

	// Components the program ever reads from the node; fills load no
	// more than that, or spilling could raise pressure and loop.
	var readMask uint8
	a.prog.ForEachInstr(func(_ *mir.Block, ins *mir.Instruction) {
		readMask |= ins.MaskOfReadComponents(node)
	})

	// Scratch traffic must not itself be rewritten below.
	planted := map[*mir.Instruction]bool{}

	for _, b := range a.prog.Blocks {
		snapshot := append([]*mir.Instruction(nil), b.Instructions...)
		for _, ins := range snapshot {
			if ins.Dest != node {
				continue
			}
			ins.Dest = isa.FixedRegister(isa.RegisterVaryingBase)
			ins.NoSpill = true

			st := scratchAccess(ins.Dest, slot, true, ins.Mask)
			planted[b.InsertAfter(ins, st)] = true
			a.spills++
		}
	}

	for _, b := range a.prog.Blocks {
		snapshot := append([]*mir.Instruction(nil), b.Instructions...)
		for si, ins := range snapshot {
			if planted[ins] || !ins.HasArg(node) {
				continue
			}

			fresh := a.prog.TempCount
			a.prog.TempCount++

			// Keep a select adjacent to its condition: plant the
			// fill one instruction earlier.
			before := ins
			if ins.Type == isa.TagALU4 && !ins.CompactBranch && ins.Op.IsCSel() && si > 0 {
				before = snapshot[si-1]
			}

			ld := scratchAccess(fresh, slot, false, readMask)
			planted[b.InsertBefore(before, ld)] = true

			ins.RewriteSrc(node, fresh)
			a.fills++
		}
	}

	a.prog.InvalidateLiveness()
}

// dealias maps a value index to its physical register.
func (a *allocator) dealias(idx int, maxWork *int) uint8 {
	if idx == isa.IndexUnused {
		return isa.RegisterUnused
	}
	if isa.IsFixed(idx) {
		return uint8(isa.RegisterFromFixed(idx))
	}
	reg := a.colors[idx]
	if reg > *maxWork {
		*maxWork = reg
	}
	return uint8(reg)
}

// install rewrites every instruction's register descriptor from the
// coloring. Value indices stay in place so later passes can still
// reason about dataflow.
func (a *allocator) install() *Result {
	maxWork := 0

	a.prog.ForEachInstr(func(_ *mir.Block, ins *mir.Instruction) {
		if ins.CompactBranch {
			return
		}

		switch ins.Type {
		case isa.TagALU4:
			ins.Registers.Src1Reg = a.dealias(ins.Src0, &maxWork)
			ins.Registers.Src2Imm = ins.HasInlineConstant
			if !ins.HasInlineConstant {
				ins.Registers.Src2Reg = a.dealias(ins.Src1, &maxWork)
			}
			ins.Registers.OutReg = a.dealias(ins.Dest, &maxWork)

		case isa.TagLoadStore4:
			if ins.LoadStore.Op.IsStore() {
				reg := a.dealias(ins.Src0, &maxWork)
				if ins.LoadStore.Op == isa.OpStInt4 {
					// Scratch stores name r26/r27 by select bit.
					reg -= isa.RegisterVaryingBase
				}
				ins.LoadStore.Reg = reg
			} else {
				ins.LoadStore.Reg = a.dealias(ins.Dest, &maxWork)
			}
		}
	})

	return &Result{
		WorkRegisterCount: maxWork + 1,
		TLSSize:           a.spillSlots * 16,
		Colors:            a.colors,
		Spills:            a.spills,
		Fills:             a.fills,
	}
}
