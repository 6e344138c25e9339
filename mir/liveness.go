package mir

import "github.com/gogpu/midgard/isa"

func livenessGen(live []uint8, node int, mask uint8) {
	if node < 0 || node >= len(live) {
		return
	}
	live[node] |= mask
}

func livenessKill(live []uint8, node int, mask uint8) {
	if node < 0 || node >= len(live) {
		return
	}
	live[node] &^= mask
}

// LivenessUpdate steps live backwards over one instruction:
// live_in = GEN + (live_out - KILL).
func LivenessUpdate(live []uint8, ins *Instruction) {
	livenessKill(live, ins.Dest, ins.Mask)
	for _, src := range ins.Sources() {
		livenessGen(live, src, ins.MaskOfReadComponents(src))
	}
}

func (p *Program) livenessBlockUpdate(b *Block) bool {
	for _, succ := range b.Successors {
		for i := 0; i < p.TempCount; i++ {
			b.LiveOut[i] |= succ.LiveIn[i]
		}
	}

	live := make([]uint8, p.TempCount)
	copy(live, b.LiveOut)

	for i := len(b.Instructions) - 1; i >= 0; i-- {
		LivenessUpdate(live, b.Instructions[i])
	}

	progress := false
	for i := 0; i < p.TempCount && !progress; i++ {
		progress = b.LiveIn[i] != live[i]
	}
	b.LiveIn = live
	return progress
}

// ComputeLiveness fills per-block live masks with a backwards-may
// fixed-point pass seeded from the exit block. It is a no-op while the
// existing masks are still valid.
func (p *Program) ComputeLiveness() {
	if p.Liveness {
		return
	}

	for _, b := range p.Blocks {
		b.LiveIn = make([]uint8, p.TempCount)
		b.LiveOut = make([]uint8, p.TempCount)
	}

	exit := p.ExitBlock()
	work := []*Block{exit}
	queued := map[*Block]bool{exit: true}

	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		delete(queued, b)

		progress := p.livenessBlockUpdate(b)

		if progress || b == exit {
			for _, pred := range b.Predecessors {
				if !queued[pred] {
					queued[pred] = true
					work = append(work, pred)
				}
			}
		}
	}

	p.Liveness = true
}

// InvalidateLiveness drops the per-block masks after a pass mutates the
// program.
func (p *Program) InvalidateLiveness() {
	if !p.Liveness {
		return
	}
	p.Liveness = false
	for _, b := range p.Blocks {
		b.LiveIn = nil
		b.LiveOut = nil
	}
}

func (p *Program) liveAfterSuccessors(b *Block, src int) bool {
	for _, succ := range b.Successors {
		if succ.visited {
			continue
		}
		succ.visited = true

		var overwritten uint8
		for _, ins := range succ.Instructions {
			if ins.MaskOfReadComponents(src)&^overwritten != 0 {
				return true
			}
			if ins.Dest == src {
				overwritten |= ins.Mask
			}
		}

		if p.liveAfterSuccessors(succ, src) {
			return true
		}
	}
	return false
}

// IsLiveAfter reports whether src is read again anywhere after start
// within its block or along any path leaving it.
func (p *Program) IsLiveAfter(b *Block, start *Instruction, src int) bool {
	if src == isa.IndexUnused {
		return false
	}

	seen := false
	for _, ins := range b.Instructions {
		if ins == start {
			seen = true
			continue
		}
		if seen && ins.HasArg(src) {
			return true
		}
	}

	live := p.liveAfterSuccessors(b, src)
	for _, blk := range p.Blocks {
		blk.visited = false
	}
	return live
}
