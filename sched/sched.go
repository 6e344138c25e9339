// Package sched groups allocated MIR into VLIW bundles. ALU work is
// packed under the two-stage slot model
//
//	stage 1: [ VMUL ] [ SADD ]
//	stage 2: [ VADD ] [ SMUL ] [ VLUT ] [ BRANCH ]
//
// where a stage-1 result may feed stage 2 within the same bundle but
// units inside one stage run in parallel. Scheduling walks each block
// backwards over a per-component dependency graph: an instruction is
// ready once everything that consumes it has been placed, so bundles
// come out last-first and are reversed at the end.
package sched

import (
	"math"

	"tlog.app/go/errors"

	"github.com/gogpu/midgard/ir"
	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

// Options configure scheduling for one program.
type Options struct {
	Stage ir.Stage

	// Colors is the value-to-register map produced by allocation,
	// needed when a condition must be copied into r31.
	Colors []int
}

// Result reports program-level facts only known once bundles exist.
type Result struct {
	// QuadwordCount is the total encoded size in 16-byte units.
	QuadwordCount int

	// BlendConstantOffset is the byte offset of the quadword holding
	// the blend constant, or -1 when the program has none. The driver
	// patches the constant there at draw time.
	BlendConstantOffset int
}

// Schedule fills every block's bundle list and quadword count.
func Schedule(p *mir.Program, opts Options) (*Result, error) {
	s := &scheduler{prog: p, opts: opts}

	s.markLastTexture()

	for _, b := range p.Blocks {
		if err := s.scheduleBlock(b); err != nil {
			return nil, errors.Wrap(err, "block %d", b.Index)
		}
	}

	res := &Result{BlendConstantOffset: -1}
	for _, b := range p.Blocks {
		for _, bundle := range b.Bundles {
			q := bundle.Tag.Quadwords()
			if bundle.HasBlendConstant {
				res.BlendConstantOffset = (res.QuadwordCount + q - 1) * 16
			}
			res.QuadwordCount += q
		}
	}
	return res, nil
}

type scheduler struct {
	prog *mir.Program
	opts Options

	// Per-block state, rebuilt by scheduleBlock.
	instructions []*mir.Instruction
	deps         []map[int]bool
	nrDeps       []int
	worklist     []bool
}

// The texture pipe wants cont set on every word but the final one,
// which carries last instead.
func (s *scheduler) markLastTexture() {
	var last *mir.Instruction
	s.prog.ForEachInstr(func(_ *mir.Block, ins *mir.Instruction) {
		if ins.Type == isa.TagTexture4 {
			last = ins
		}
	})
	if last != nil {
		last.Texture.Cont = false
		last.Texture.Last = true
	}
}

// register resolves a value index to its physical register.
func (s *scheduler) register(v int) uint8 {
	if isa.IsFixed(v) {
		return uint8(isa.RegisterFromFixed(v))
	}
	return uint8(s.opts.Colors[v])
}

const componentCount = 4

// buildDependencyGraph records, for every pair touching the same value
// with overlapping components, that the earlier instruction may not be
// scheduled until the later one has been. Branch edges additionally
// force everything in the block to stay behind the branch.
func (s *scheduler) buildDependencyGraph() {
	count := len(s.instructions)
	s.deps = make([]map[int]bool, count)
	s.nrDeps = make([]int, count)
	for i := range s.deps {
		s.deps[i] = map[int]bool{}
	}

	// Physical registers get graph nodes of their own, after the
	// temporaries. Dataflow that routes through the fixed file (texture
	// coordinates in r28/r29, varyings and cubemap coords through the
	// r26/r27 window) has to order exactly like temporary dataflow.
	nodes := s.prog.TempCount
	total := nodes + 32
	lastRead := make([][]int, total*componentCount)
	lastWrite := make([][]int, total*componentCount)

	addDependency := func(table [][]int, node int, mask uint8, child int) {
		for c := 0; c < componentCount; c++ {
			if mask&(1<<c) == 0 {
				continue
			}
			for _, parent := range table[node*componentCount+c] {
				if !s.deps[parent][child] {
					s.deps[parent][child] = true
					s.nrDeps[child]++
				}
			}
		}
	}
	markAccess := func(table [][]int, node int, mask uint8, parent int) {
		for c := 0; c < componentCount; c++ {
			if mask&(1<<c) != 0 {
				table[node*componentCount+c] = append(table[node*componentCount+c], parent)
			}
		}
	}
	node := func(v int) int {
		switch {
		case v >= 0 && v < nodes:
			return v
		case isa.IsFixed(v):
			return nodes + isa.RegisterFromFixed(v)
		default:
			return -1
		}
	}

	type access struct {
		node int
		mask uint8
	}
	// accesses lists the graph nodes an instruction reads and writes,
	// including the implicit physical-register traffic the value
	// indices do not show. Texture words carry no indices at all: they
	// read coordinates from and write results to r28/r29 by select
	// bit. Stores name the r26/r27 window by select, and the cubemap
	// store reads r27 while writing the texture register in Src0.
	accesses := func(ins *mir.Instruction) (reads, writes []access) {
		switch {
		case ins.Type == isa.TagTexture4:
			in := nodes + isa.RegisterTextureBase
			if ins.Texture.InRegSelect {
				in++
			}
			out := nodes + isa.RegisterTextureBase
			if ins.Texture.OutRegSelect {
				out++
			}
			reads = append(reads, access{in, 0xF})
			writes = append(writes, access{out, ins.Mask})

		case ins.Type == isa.TagLoadStore4 && ins.LoadStore.Op == isa.OpStCubemapCoords:
			reads = append(reads, access{nodes + isa.RegisterOffset, 0xF})
			if n := node(ins.Src0); n >= 0 {
				writes = append(writes, access{n, ins.Mask})
			}
			return reads, writes
		}

		for _, src := range ins.Sources() {
			n := node(src)
			if ins.Type == isa.TagLoadStore4 && ins.LoadStore.Op.IsStore() && isa.IsFixed(src) {
				n = nodes + isa.RegisterVaryingBase + isa.RegisterFromFixed(src)
			}
			if n >= 0 {
				reads = append(reads, access{n, ins.MaskOfReadComponents(src)})
			}
		}
		if n := node(ins.Dest); n >= 0 {
			writes = append(writes, access{n, ins.Mask})
		}
		return reads, writes
	}

	for i := count - 1; i >= 0; i-- {
		ins := s.instructions[i]
		if ins.CompactBranch {
			continue
		}
		reads, writes := accesses(ins)

		for _, r := range reads {
			addDependency(lastWrite, r.node, r.mask, i)
		}
		for _, w := range writes {
			addDependency(lastRead, w.node, w.mask, i)
			addDependency(lastWrite, w.node, w.mask, i)
			markAccess(lastWrite, w.node, w.mask, i)
		}
		for _, r := range reads {
			markAccess(lastRead, r.node, r.mask, i)
		}
	}

	for i, ins := range s.instructions {
		if !ins.CompactBranch {
			continue
		}
		for j := 0; j < i; j++ {
			if !s.deps[i][j] {
				s.deps[i][j] = true
				s.nrDeps[j]++
			}
		}
	}
}

func (s *scheduler) initWorklist() {
	s.worklist = make([]bool, len(s.instructions))
	for i, n := range s.nrDeps {
		if n == 0 {
			s.worklist[i] = true
		}
	}
}

// updateWorklist retires done, releasing any instruction whose only
// remaining dependency it was.
func (s *scheduler) updateWorklist(done *mir.Instruction) {
	if done == nil {
		return
	}
	idx := -1
	for i, ins := range s.instructions {
		if ins == done {
			idx = i
			break
		}
	}
	if idx < 0 {
		return // injected, not part of the graph
	}
	for child := range s.deps[idx] {
		s.nrDeps[child]--
		if s.nrDeps[child] == 0 {
			s.worklist[child] = true
		}
	}
	s.deps[idx] = nil
}

// predicate narrows instruction choice during bundle construction and
// carries the bundle's embedded constant bank.
type predicate struct {
	tag     isa.Tag
	anyTag  bool
	unit    isa.Unit
	anyUnit bool

	// exclude rejects writers of this value, so a condition cannot be
	// clobbered by a co-scheduled instruction.
	exclude int

	// noCSel rejects conditional selects, which only fit the vadd slot
	// of a bundle whose r31 is still free.
	noCSel bool

	// writeR0 restricts choice to full writes of register 0, for
	// writeout bundles.
	writeR0 bool

	bank          [4]uint32
	bankWords     int
	halfBank      bool
	blendConstant bool
}

func newPredicate() *predicate {
	return &predicate{anyTag: true, anyUnit: true, exclude: isa.IndexUnused}
}

// fitConstants reports whether ins's embedded constants can share the
// bundle's constant bank, merging identical words. When destructive,
// the bank is updated and ins's swizzles are rewritten to index it.
func (pred *predicate) fitConstants(ins *mir.Instruction, destructive bool) bool {
	if ins.HasBlendConstant {
		if pred.bankWords > 0 {
			return false
		}
		if destructive {
			pred.blendConstant = true
			pred.bankWords = 4
		}
		return true
	}

	if !ins.HasConstants {
		return true
	}
	if pred.blendConstant {
		return false
	}

	if ins.RegMode == isa.RegMode16 {
		// Half constants claim the whole bank as four packed pairs.
		if pred.bankWords > 0 {
			return false
		}
		if destructive {
			for i := 0; i < 4; i++ {
				h := uint32(isa.FloatToHalf(ins.Constants[i]))
				pred.bank[i/2] |= h << (16 * uint(i%2))
			}
			pred.bankWords = 4
			pred.halfBank = true
		}
		return true
	}
	if pred.halfBank {
		return false
	}

	needed := ins.MaskOfReadComponents(isa.FixedRegister(isa.RegisterConstant))

	bank := pred.bank
	words := pred.bankWords
	var indices [4]uint8

	for lane := 0; lane < 4; lane++ {
		if needed&(1<<lane) == 0 {
			continue
		}
		word := math.Float32bits(ins.Constants[lane])

		found := false
		for j := 0; j < words; j++ {
			if bank[j] == word {
				indices[lane] = uint8(j)
				found = true
				break
			}
		}
		if found {
			continue
		}
		if words == 4 {
			return false
		}
		bank[words] = word
		indices[lane] = uint8(words)
		words++
	}

	if !destructive {
		return true
	}

	pred.bank = bank
	pred.bankWords = words

	remap := isa.SwizzleFromArray(indices[:])
	constant := isa.FixedRegister(isa.RegisterConstant)
	if ins.Src0 == constant {
		ins.Mod[0].Swizzle = isa.ComposeSwizzle(remap, ins.Mod[0].Swizzle)
	}
	if ins.Src1 == constant && !ins.HasInlineConstant {
		ins.Mod[1].Swizzle = isa.ComposeSwizzle(remap, ins.Mod[1].Swizzle)
	}
	return true
}

// choose picks the highest-indexed ready instruction matching the
// predicate, simulating in-order issue. A window over the most recent
// entries keeps live ranges from ballooning.
func (s *scheduler) choose(pred *predicate) *mir.Instruction {
	const maxDistance = 6

	maxActive := 0
	for i, ready := range s.worklist {
		if ready && i > maxActive {
			maxActive = i
		}
	}

	best := -1
	for i, ready := range s.worklist {
		if !ready || maxActive-i >= maxDistance {
			continue
		}
		ins := s.instructions[i]

		if !pred.anyTag && ins.Type != pred.tag {
			continue
		}
		if pred.exclude != isa.IndexUnused && ins.Dest == pred.exclude {
			continue
		}
		if !pred.anyUnit {
			if ins.CompactBranch || ins.Op.Props().Units()&pred.unit == 0 {
				continue
			}
		}
		if pred.noCSel && !ins.CompactBranch && ins.Op.IsCSel() {
			continue
		}
		if pred.writeR0 {
			if ins.Type != isa.TagALU4 || ins.CompactBranch {
				continue
			}
			if ins.Registers.OutReg != 0 || ins.Mask != 0xF {
				continue
			}
		}
		if ins.Type == isa.TagALU4 && !ins.CompactBranch && !pred.fitConstants(ins, false) {
			continue
		}
		if i > best {
			best = i
		}
	}

	if best < 0 {
		return nil
	}
	s.worklist[best] = false
	return s.instructions[best]
}

func (s *scheduler) chooseBundleTag() (isa.Tag, bool) {
	for i := len(s.worklist) - 1; i >= 0; i-- {
		if s.worklist[i] {
			return s.instructions[i].Type, true
		}
	}
	return 0, false
}

func (s *scheduler) scheduleBlock(b *mir.Block) error {
	b.Bundles = nil
	b.QuadwordCount = 0
	b.Scheduled = true

	if len(b.Instructions) == 0 {
		return nil
	}

	s.instructions = append([]*mir.Instruction(nil), b.Instructions...)
	s.buildDependencyGraph()
	s.initWorklist()

	remaining := len(s.instructions)
	var reversed []*mir.Bundle

	for remaining > 0 {
		tag, ok := s.chooseBundleTag()
		if !ok {
			return errors.New("dependency cycle with %d instructions unplaced", remaining)
		}

		var bundle *mir.Bundle
		switch tag {
		case isa.TagALU4:
			bundle = s.scheduleALU(b)
		case isa.TagLoadStore4:
			bundle = s.scheduleLoadStore()
		case isa.TagTexture4:
			bundle = s.scheduleTexture()
		default:
			return errors.New("unschedulable pipe tag %v", tag)
		}

		progress := 0
		for _, ins := range bundle.Instructions {
			if !ins.Injected {
				progress++
			}
		}
		if progress == 0 {
			return errors.New("no instruction fits a %v bundle", tag)
		}
		remaining -= progress
		reversed = append(reversed, bundle)
	}

	for i := len(reversed) - 1; i >= 0; i-- {
		b.Bundles = append(b.Bundles, reversed[i])
		b.QuadwordCount += reversed[i].Tag.Quadwords()
	}
	return nil
}

func (s *scheduler) scheduleTexture() *mir.Bundle {
	pred := newPredicate()
	pred.anyTag = false
	pred.tag = isa.TagTexture4

	ins := s.choose(pred)
	s.updateWorklist(ins)

	tag := isa.TagTexture4
	if s.opts.Stage != ir.StageFragment {
		tag = isa.TagTexture4VTX
	}
	return &mir.Bundle{Tag: tag, Instructions: []*mir.Instruction{ins}}
}

func (s *scheduler) scheduleLoadStore() *mir.Bundle {
	pred := newPredicate()
	pred.anyTag = false
	pred.tag = isa.TagLoadStore4

	// Both words of the pair issue together, so the worklist must not
	// be updated in between or the second pick could depend on the
	// first.
	ins := s.choose(pred)
	pair := s.choose(pred)

	out := &mir.Bundle{Tag: isa.TagLoadStore4, Instructions: []*mir.Instruction{ins}}
	if pair != nil {
		out.Instructions = append(out.Instructions, pair)
	}

	s.updateWorklist(ins)
	s.updateWorklist(pair)
	return out
}

// concurrentSafe reports whether two instructions may occupy parallel
// units of the same stage: the second must not read or overwrite what
// the first writes.
func concurrentSafe(first, second *mir.Instruction) bool {
	if first.CompactBranch || second.CompactBranch {
		return true
	}
	if first.Dest == isa.IndexUnused {
		return true
	}

	srcs := [2]int{second.Src0, second.Src1}
	for i, src := range srcs {
		if src != first.Dest {
			continue
		}
		if i == 1 && second.HasInlineConstant {
			continue
		}
		if first.Type != isa.TagALU4 {
			return false
		}
		if isa.SwizzleAccessMask(second.Mod[i].Swizzle)&first.Mask != 0 {
			return false
		}
	}

	if second.Dest == first.Dest && second.Mask&first.Mask != 0 {
		return false
	}
	return true
}

func hazard(segment []*mir.Instruction, candidate *mir.Instruction) bool {
	for _, ins := range segment {
		if ins != nil && !concurrentSafe(ins, candidate) {
			return true
		}
	}
	return false
}

// alu bundle slots in encoding order.
type aluSlots struct {
	vmul, sadd, vadd, smul, vlut, branch *mir.Instruction
}

func (sl *aluSlots) list() []*mir.Instruction {
	var out []*mir.Instruction
	for _, ins := range []*mir.Instruction{sl.vmul, sl.sadd, sl.vadd, sl.smul, sl.vlut, sl.branch} {
		if ins != nil {
			out = append(out, ins)
		}
	}
	return out
}

// place assigns ins its unit and stores it in the matching slot.
func (sl *aluSlots) place(ins *mir.Instruction, unit isa.Unit) {
	ins.Unit = unit
	switch unit {
	case isa.UnitVMUL:
		sl.vmul = ins
	case isa.UnitSADD:
		sl.sadd = ins
	case isa.UnitVADD:
		sl.vadd = ins
	case isa.UnitSMUL:
		sl.smul = ins
	case isa.UnitVLUT:
		sl.vlut = ins
	}
}

func bytesForInstruction(ins *mir.Instruction) int {
	switch {
	case ins.Unit == isa.UnitBranch:
		return 6 // extended branch
	case ins.CompactBranch:
		return 2
	case ins.Unit == isa.UnitSADD || ins.Unit == isa.UnitSMUL:
		return 2 + 4 // reg info + 32-bit scalar word
	default:
		return 2 + 6 // reg info + 48-bit vector word
	}
}

func (s *scheduler) scheduleALU(b *mir.Block) *mir.Bundle {
	pred := newPredicate()
	pred.anyTag = false
	pred.tag = isa.TagALU4

	var slots aluSlots

	// Stage-2 occupants retire before the stage-1 slots are filled, so
	// their operands may be produced one stage earlier in the same
	// bundle. Everything else holds its dependents until the bundle is
	// complete.
	var stage2Retire, finalRetire []*mir.Instruction

	writeout := false

	// A branch ends the bundle, so it is taken first and retired
	// immediately: whatever it releases may still pack alongside it.
	if br := s.chooseBranch(); br != nil {
		slots.branch = br
		s.updateWorklist(br)
		writeout = br.Writeout

		if br.Branch.Conditional && br.Branch.Target == mir.TargetDiscard {
			// Inverted conditions do not fit the compact form.
			br.Unit = isa.UnitBranch
		}

		// Fragment writeout reads all of r0, which must be written in
		// the same bundle.
		if writeout {
			pred.writeR0 = true
			pred.anyUnit = false
			pred.unit = isa.UnitVMUL
			writer := s.choose(pred)
			pred.writeR0 = false
			pred.anyUnit = true

			if writer != nil {
				slots.place(writer, isa.UnitVMUL)
				pred.fitConstants(writer, true)
				finalRetire = append(finalRetire, writer)
			} else {
				slots.place(s.injectMove(b, br), isa.UnitVMUL)
			}
		}

		// A conditional branch consumes r31.w from the smul slot.
		if br.Branch.Conditional && !br.PrepackedOp {
			cond := s.scheduleCondition(b, br, false)
			pred.exclude = cond.excludeDest
			slots.place(cond.ins, isa.UnitSMUL)
			if !cond.injected {
				stage2Retire = append(stage2Retire, cond.ins)
			}
		}
	}

	if !writeout {
		stage2 := []*mir.Instruction{slots.smul, slots.branch}
		for _, unit := range []isa.Unit{isa.UnitVADD, isa.UnitSMUL, isa.UnitVLUT} {
			// A select needs the vadd slot plus a condition slot in
			// stage 1, and a branch condition already owns r31.
			pred.noCSel = unit != isa.UnitVADD || slots.smul != nil
			if ins := s.fillSlot(&slots, unit, pred, stage2); ins != nil {
				stage2 = append(stage2, ins)
				stage2Retire = append(stage2Retire, ins)
			}
		}
		pred.noCSel = false

		for _, ins := range stage2Retire {
			s.updateWorklist(ins)
		}
		stage2Retire = nil

		// A select consumes r31 written one stage earlier, by the
		// comparison if it could be pulled in, otherwise by a copy.
		if csel := slots.csel(); csel != nil {
			vector := csel.Op.IsCSelV()
			cond := s.scheduleCondition(b, csel, vector)
			pred.exclude = cond.excludeDest
			if vector {
				slots.place(cond.ins, isa.UnitVMUL)
			} else {
				slots.place(cond.ins, isa.UnitSADD)
			}
			if !cond.injected {
				finalRetire = append(finalRetire, cond.ins)
			}
		}

		stage1 := []*mir.Instruction{slots.vmul, slots.sadd}
		for _, unit := range []isa.Unit{isa.UnitVMUL, isa.UnitSADD} {
			if ins := s.fillSlot(&slots, unit, pred, stage1); ins != nil {
				stage1 = append(stage1, ins)
				finalRetire = append(finalRetire, ins)
			}
		}
	}

	for _, ins := range stage2Retire {
		s.updateWorklist(ins)
	}
	for _, ins := range finalRetire {
		s.updateWorklist(ins)
	}

	// Assemble: control word, bodies, pad to a quadword boundary,
	// then a full quadword for constants if present.
	bundle := &mir.Bundle{Tag: isa.TagALU4, Instructions: slots.list()}

	bytes := 4
	for _, ins := range bundle.Instructions {
		bytes += bytesForInstruction(ins)
	}
	if bytes&15 != 0 {
		bundle.Padding = 16 - bytes&15
		bytes += bundle.Padding
	}
	if pred.bankWords > 0 || pred.blendConstant {
		bundle.HasEmbeddedConstants = true
		bundle.HasBlendConstant = pred.blendConstant
		for i, w := range pred.bank {
			bundle.Constants[i*4+0] = byte(w)
			bundle.Constants[i*4+1] = byte(w >> 8)
			bundle.Constants[i*4+2] = byte(w >> 16)
			bundle.Constants[i*4+3] = byte(w >> 24)
		}
		bytes += 16
	}

	bundle.Tag = isa.TagALU4 + isa.Tag(bytes/16) - 1
	if writeout {
		bundle.Tag |= 0x4
	}
	return bundle
}

// chooseBranch takes a ready branch off the worklist. At most one can
// be ready at a time, since a branch holds everything before it.
func (s *scheduler) chooseBranch() *mir.Instruction {
	for i := len(s.worklist) - 1; i >= 0; i-- {
		if s.worklist[i] && s.instructions[i].CompactBranch {
			s.worklist[i] = false
			return s.instructions[i]
		}
	}
	return nil
}

// csel returns the bundle's conditional select, if one was placed.
func (sl *aluSlots) csel() *mir.Instruction {
	if sl.vadd != nil && sl.vadd.Op.IsCSel() {
		return sl.vadd
	}
	return nil
}

// fillSlot tries to pack one more instruction into an empty unit,
// rejecting anything that conflicts with the units already running in
// the same stage.
func (s *scheduler) fillSlot(slots *aluSlots, unit isa.Unit, pred *predicate, segment []*mir.Instruction) *mir.Instruction {
	switch unit {
	case isa.UnitVMUL:
		if slots.vmul != nil {
			return nil
		}
	case isa.UnitSADD:
		if slots.sadd != nil {
			return nil
		}
	case isa.UnitVADD:
		if slots.vadd != nil {
			return nil
		}
	case isa.UnitSMUL:
		if slots.smul != nil {
			return nil
		}
	case isa.UnitVLUT:
		if slots.vlut != nil {
			return nil
		}
	}

	pred.anyUnit = false
	pred.unit = unit
	ins := s.choose(pred)
	pred.anyUnit = true

	if ins == nil {
		return nil
	}
	if (!scalarOnly(unit) || isScalar(ins)) && !hazard(segment, ins) {
		slots.place(ins, unit)
		pred.fitConstants(ins, true)
		return ins
	}

	// Unfit for this slot; put it back for a later bundle.
	s.requeue(ins)
	return nil
}

func scalarOnly(unit isa.Unit) bool {
	return unit == isa.UnitSADD || unit == isa.UnitSMUL
}

// isScalar reports whether the instruction can run on a scalar unit.
func isScalar(ins *mir.Instruction) bool {
	if ins.RegMode != isa.RegMode16 && ins.RegMode != isa.RegMode32 {
		return false
	}
	if ins.Override != isa.DestOverrideNone {
		return false
	}
	if ins.RegMode == isa.RegMode16 && (ins.Mod[0].Half || ins.Mod[1].Half) {
		return false
	}
	return ins.Mask != 0 && ins.Mask&(ins.Mask-1) == 0
}

func (s *scheduler) requeue(ins *mir.Instruction) {
	for i, in := range s.instructions {
		if in == ins {
			s.worklist[i] = true
			return
		}
	}
}

// injectMove fabricates a full move of r0 onto itself so the writeout
// sees its argument written in-bundle.
func (s *scheduler) injectMove(b *mir.Block, branch *mir.Instruction) *mir.Instruction {
	mov := mir.Mov(isa.FixedRegister(0), isa.FixedRegister(0))
	mov.Injected = true
	mov.Registers = isa.RegInfo{
		Src1Reg: isa.RegisterUnused,
		Src2Reg: 0,
		OutReg:  0,
	}
	return b.InsertBefore(branch, mov)
}

type condition struct {
	ins         *mir.Instruction
	excludeDest int
	injected    bool
}

// scheduleCondition finds or fabricates the instruction producing the
// condition for user and rewrites it to target r31. A single-use,
// same-block, constant-free comparison is pulled into the bundle
// directly; anything else gets a replicating move.
func (s *scheduler) scheduleCondition(b *mir.Block, user *mir.Instruction, vector bool) condition {
	condValue := user.Src2
	out := condition{}

	if !vector {
		if i := s.mobileComparison(condValue); i >= 0 && s.worklist[i] {
			s.worklist[i] = false
			out.ins = s.instructions[i]
		}
	}

	if out.ins == nil {
		mov := mir.Mov(condValue, condValue)
		if vector {
			mov.Mask = 0xF
		} else {
			mov.Mask = 0x1
			mov.Mod[1].Swizzle = isa.SwizzleXXXX
		}
		mov.Injected = true
		mov.Registers = isa.RegInfo{
			Src1Reg: isa.RegisterUnused,
			Src2Reg: s.register(condValue),
			OutReg:  isa.RegisterSelect,
		}
		out.ins = b.InsertBefore(user, mov)
		out.injected = true
	}

	out.excludeDest = out.ins.Dest
	out.ins.Dest = isa.FixedRegister(isa.RegisterSelect)
	out.ins.Registers.OutReg = isa.RegisterSelect

	if !vector {
		out.ins.Mask = 1 << isa.ComponentW
		for i := range out.ins.Mod {
			out.ins.Mod[i].Swizzle = out.ins.Mod[i].Swizzle << 6 & 0xFF
		}
	}
	return out
}

// mobileComparison returns the in-block index of the condition's
// producer when it may be relocated into the consuming bundle.
func (s *scheduler) mobileComparison(cond int) int {
	if cond == isa.IndexUnused || isa.IsFixed(cond) {
		return -1
	}
	if !s.prog.SingleUse(cond) {
		return -1
	}

	found := -1
	for i, ins := range s.instructions {
		if ins.Dest != cond {
			continue
		}
		if ins.Type != isa.TagALU4 || ins.CompactBranch {
			return -1
		}
		// Rewriting to .w breaks ops with a fixed channel count.
		if ins.Op.Props().FixedChannels() != 0 {
			return -1
		}
		if ins.HasConstants {
			return -1
		}
		// A select would need a condition of its own.
		if ins.Op.IsCSel() {
			return -1
		}
		if found >= 0 {
			return -1
		}
		found = i
	}
	return found
}
