// Package lower translates the structured input IR into MIR: one
// instruction selection pass over each basic block, followed by the
// constant, alias and varying fixups that must run before scheduling
// and register allocation.
package lower

import (
	"sort"

	"tlog.app/go/errors"

	"github.com/gogpu/midgard/ir"
	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

// Sysval identifies a driver-provided value preloaded into the prefix
// area of the uniform file.
type Sysval uint8

const (
	SysvalViewportScale Sysval = iota + 1
	SysvalViewportOffset
)

// Options configure lowering of one shader.
type Options struct {
	// UniformCutoff is the number of uniform slots pushed into
	// registers r23 and down. Loads below the cutoff are free.
	UniformCutoff int

	// IsBlend marks a blend shader: inputs arrive preloaded in r0,
	// uniforms hold the blend constant and the epilogue converts to
	// RGBA8888 before writeout.
	IsBlend bool

	// AlphaRef is the constant substituted for alpha-test reference
	// loads.
	AlphaRef float32
}

// Result is the lowered program plus the bookkeeping later stages and
// the command stream need.
type Result struct {
	Program *mir.Program

	// Sysvals lists prefix uniforms in slot order.
	Sysvals []Sysval

	UniformCount   int
	AttributeCount int
	VaryingCount   int

	// Pinned maps value indices to the work register they must
	// occupy, r0 for fragment outputs.
	Pinned map[int]int

	CanDiscard bool
}

type context struct {
	prog  *mir.Program
	fn    *ir.Function
	stage ir.Stage
	opts  Options

	current  *mir.Block
	nextTemp int

	// constants caches load_const values by index until a user
	// attaches them as embedded constants.
	constants map[int][4]uint32

	// aliases maps value indices onto other indices, typically fixed
	// registers; leftover tracks aliases not yet consumed by a
	// rewritten use.
	aliases  map[int]int
	leftover map[int]bool

	// varyings records deferred vertex varying stores by value index.
	varyings map[int]int

	pinned map[int]int

	sysvalID map[Sysval]int
	sysvals  []Sysval

	texOpCount   int
	textureIndex [2]int

	loopCount   int
	currentLoop int

	instructionCount int

	canDiscard     bool
	fragmentOutput int

	uniformCount   int
	attributeCount int
	varyingCount   int
}

// Lower translates the module's entry point into an unscheduled MIR
// program.
func Lower(m *ir.Module, opts Options) (*Result, error) {
	fn, err := m.EntryPoint()
	if err != nil {
		return nil, errors.Wrap(err, "entry point")
	}

	c := &context{
		prog: &mir.Program{
			RegisterStart: fn.SSACount,
			RegisterEnd:   fn.SSACount + fn.RegisterCount,
		},
		fn:             fn,
		stage:          m.Stage,
		opts:           opts,
		nextTemp:       fn.SSACount + fn.RegisterCount,
		constants:      map[int][4]uint32{},
		aliases:        map[int]int{},
		leftover:       map[int]bool{},
		varyings:       map[int]int{},
		pinned:         map[int]int{},
		sysvalID:       map[Sysval]int{},
		fragmentOutput: isa.IndexUnused,
	}

	c.assignSysvals(fn.Body)

	if err := c.emitCFList(fn.Body); err != nil {
		return nil, err
	}

	// The epilogue lives in a trailing block of its own so branch
	// targets past the body resolve to it.
	final := c.startBlock()
	if c.stage == ir.StageFragment {
		if c.opts.IsBlend {
			c.emitBlendEpilogue()
		} else {
			c.emitFragmentEpilogue()
		}
	}
	c.finishBlock(final)

	c.connectBlocks()

	for _, b := range c.prog.Blocks {
		c.eliminateOrphanMoves(b)
	}

	c.prog.TempCount = c.nextTemp

	return &Result{
		Program:        c.prog,
		Sysvals:        c.sysvals,
		UniformCount:   c.uniformCount,
		AttributeCount: c.attributeCount,
		VaryingCount:   c.varyingCount,
		Pinned:         c.pinned,
		CanDiscard:     c.canDiscard,
	}, nil
}

func (c *context) valueIndex(v ir.Value) int {
	if v.IsSSA {
		return v.Index
	}
	return c.fn.SSACount + v.Index
}

func (c *context) temp() int {
	n := c.nextTemp
	c.nextTemp++
	return n
}

func (c *context) emit(ins mir.Instruction) *mir.Instruction {
	return c.current.Append(ins)
}

func (c *context) alias(index, to int) {
	c.aliases[index] = to
	c.leftover[index] = true
}

func (c *context) unalias(index int) {
	delete(c.aliases, index)
	delete(c.leftover, index)
}

func (c *context) startBlock() *mir.Block {
	b := c.prog.AddBlock()
	c.current = b
	c.textureIndex = [2]int{isa.IndexUnused, isa.IndexUnused}
	return b
}

func (c *context) emitBlock(b *ir.Block) (*mir.Block, error) {
	blk := c.startBlock()
	for _, ins := range b.Instrs {
		if err := c.emitInstr(ins); err != nil {
			return nil, err
		}
		c.instructionCount++
	}
	c.finishBlock(blk)
	return blk, nil
}

// finishBlock runs the per-block fixups that must see the block's full
// instruction list.
func (c *context) finishBlock(blk *mir.Block) {
	c.inlineAluConstants(blk)
	c.embeddedToInlineConstant(blk)
	c.actualiseAliases(blk)
	c.emitVaryingStores(blk)
	c.pairLoadStore(blk)
}

func (c *context) emitInstr(instr ir.Instr) error {
	switch instr := instr.(type) {
	case *ir.Alu:
		return c.emitAlu(instr)
	case *ir.Intrinsic:
		return c.emitIntrinsic(instr)
	case *ir.Tex:
		return c.emitTex(instr)
	case *ir.LoadConst:
		c.constants[c.valueIndex(instr.Dest.Value)] = instr.Value
		return nil
	case *ir.Jump:
		c.emitJump(instr)
		return nil
	case *ir.Undef:
		// Reads of an undef are free to see garbage.
		return nil
	default:
		return errors.New("unhandled instruction %T", instr)
	}
}

func (c *context) emitJump(j *ir.Jump) {
	target := mir.TargetBreak
	if j.Kind == ir.JumpContinue {
		target = mir.TargetContinue
	}
	c.emit(mir.AluBranch(0, target, c.currentLoop, false, false))
}

func (c *context) emitCFList(nodes []ir.Node) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case *ir.Block:
			if _, err := c.emitBlock(n); err != nil {
				return err
			}
		case *ir.If:
			if err := c.emitIf(n); err != nil {
				return err
			}
		case *ir.Loop:
			if err := c.emitLoop(n); err != nil {
				return err
			}
		}
	}
	if len(nodes) == 0 {
		if _, err := c.emitBlock(&ir.Block{}); err != nil {
			return err
		}
	}
	return nil
}

func (c *context) emitIf(n *ir.If) error {
	if c.current == nil {
		c.startBlock()
	}

	// Speculatively branch over the then side; the target is patched
	// once the successor blocks exist. The branch is taken when the
	// condition is false, hence the inverted sense.
	thenBranch := c.emit(mir.AluBranch(0, mir.TargetGoto, -1, true, true))
	thenBranch.Src2 = c.valueIndex(n.Cond.Value)

	if err := c.emitCFList(n.Then); err != nil {
		return err
	}

	// Jump from the end of the then side over the else side.
	thenExit := c.emit(mir.AluBranch(0, mir.TargetGoto, -1, false, false))
	exitBlock := c.current

	elseIdx := len(c.prog.Blocks)
	countIn := c.instructionCount
	if err := c.emitCFList(n.Else); err != nil {
		return err
	}
	afterElseIdx := len(c.prog.Blocks)

	if c.instructionCount == countIn {
		// The else side is empty, so the exit jump is pointless.
		exitBlock.Remove(thenExit)
		thenBranch.Branch.TargetBlock = afterElseIdx
	} else {
		thenBranch.Branch.TargetBlock = elseIdx
		thenExit.Branch.TargetBlock = afterElseIdx
	}
	return nil
}

func (c *context) emitLoop(n *ir.Loop) error {
	if c.current == nil {
		c.startBlock()
	}

	c.loopCount++
	loopIdx := c.loopCount
	prevLoop := c.currentLoop
	c.currentLoop = loopIdx

	startIdx := len(c.prog.Blocks)
	if err := c.emitCFList(n.Body); err != nil {
		return err
	}

	c.emit(mir.AluBranch(0, mir.TargetGoto, startIdx, false, false))

	breakIdx := len(c.prog.Blocks)

	// Now that the surrounding block numbers are known, retarget the
	// break and continue placeholders belonging to this loop.
	for _, blk := range c.prog.Blocks[startIdx:] {
		for _, ins := range blk.Instructions {
			if !ins.CompactBranch || ins.PrepackedOp {
				continue
			}
			if ins.Branch.TargetBlock != loopIdx {
				continue
			}
			switch ins.Branch.Target {
			case mir.TargetBreak:
				ins.Branch.Target = mir.TargetGoto
				ins.Branch.TargetBlock = breakIdx
			case mir.TargetContinue:
				ins.Branch.Target = mir.TargetGoto
				ins.Branch.TargetBlock = startIdx
			}
		}
	}

	c.currentLoop = prevLoop
	return nil
}

// connectBlocks wires the flow graph once every branch target is a
// concrete block index.
func (c *context) connectBlocks() {
	for i, b := range c.prog.Blocks {
		fallthru := true
		for j, ins := range b.Instructions {
			if !ins.CompactBranch || ins.PrepackedOp {
				continue
			}
			switch ins.Branch.Target {
			case mir.TargetGoto:
				if ins.Branch.TargetBlock < len(c.prog.Blocks) {
					b.AddSuccessor(c.prog.Blocks[ins.Branch.TargetBlock])
				}
				if !ins.Branch.Conditional && j == len(b.Instructions)-1 {
					fallthru = false
				}
			case mir.TargetDiscard:
				b.AddSuccessor(c.prog.ExitBlock())
			}
		}
		if fallthru && i+1 < len(c.prog.Blocks) {
			b.AddSuccessor(c.prog.Blocks[i+1])
		}
	}
}

func (c *context) assignSysvals(nodes []ir.Node) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *ir.Block:
			for _, instr := range n.Instrs {
				in, ok := instr.(*ir.Intrinsic)
				if !ok {
					continue
				}
				if sv, ok := sysvalFor(in.Op); ok {
					c.addSysval(sv)
				}
			}
		case *ir.If:
			c.assignSysvals(n.Then)
			c.assignSysvals(n.Else)
		case *ir.Loop:
			c.assignSysvals(n.Body)
		}
	}
}

func sysvalFor(op ir.IntrinsicOp) (Sysval, bool) {
	switch op {
	case ir.IntrLoadViewportScale:
		return SysvalViewportScale, true
	case ir.IntrLoadViewportOffset:
		return SysvalViewportOffset, true
	}
	return 0, false
}

func (c *context) addSysval(sv Sysval) {
	if _, ok := c.sysvalID[sv]; ok {
		return
	}
	c.sysvalID[sv] = len(c.sysvals)
	c.sysvals = append(c.sysvals, sv)
}

func (c *context) attachConstants(ins *mir.Instruction, v [4]uint32) {
	ins.HasConstants = true
	for i, w := range v {
		ins.SetConstantWord(i, w)
	}
}

func (c *context) mapAlias(ref int) int {
	if a, ok := c.aliases[ref]; ok {
		delete(c.leftover, ref)
		return a
	}
	return ref
}

func sortedKeys(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
