// Package midgard compiles shader IR into binaries for the Arm Mali
// Midgard GPU family.
//
// The compiler lowers a structured input IR (see the ir package) through
// a machine-level representation, allocates the Midgard register file,
// packs instructions into VLIW bundles and emits the binary the hardware
// executes, together with the metadata a driver needs to bind it.
//
// Example usage:
//
//	module := &ir.Module{Stage: ir.StageFragment, Functions: []*ir.Function{fn}}
//	prog, err := midgard.Compile(module, midgard.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	upload(prog.Compiled, prog.FirstTag)
//
// Pass-level dumps are gated on tlog topics: "nir" for the input IR,
// "mir" for the scheduled machine IR and "disasm" for a disassembly of
// the emitted binary.
package midgard

import (
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/gogpu/midgard/disasm"
	"github.com/gogpu/midgard/encode"
	"github.com/gogpu/midgard/ir"
	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/lower"
	"github.com/gogpu/midgard/mir"
	"github.com/gogpu/midgard/opt"
	"github.com/gogpu/midgard/ra"
	"github.com/gogpu/midgard/sched"
)

// Compilation failures fall into four kinds, matched with errors.Is.
// The wrapped cause carries the stage-specific detail.
var (
	// ErrUnsupportedOp reports an input instruction the lowering does
	// not recognize.
	ErrUnsupportedOp = errors.New("unsupported operation")

	// ErrRegisterAllocationFailed reports that the spill loop gave up
	// before finding a valid coloring.
	ErrRegisterAllocationFailed = errors.New("register allocation failed")

	// ErrInternal reports a violated machine invariant: a bad bundle
	// tag, too many embedded constants, an overfull bundle.
	ErrInternal = errors.New("internal compiler error")

	// ErrEncodeMismatch reports a branch whose resolved offset does
	// not fit the encoding scheduling chose for it.
	ErrEncodeMismatch = errors.New("encoding mismatch")
)

type compileError struct {
	kind error
	err  error
}

func (e *compileError) Error() string { return e.kind.Error() + ": " + e.err.Error() }
func (e *compileError) Unwrap() error { return e.err }

func (e *compileError) Is(target error) bool { return target == e.kind }

func fail(kind, err error) error { return &compileError{kind: kind, err: err} }

// Options configure compilation of one shader.
type Options struct {
	// IsBlend compiles a blend shader: the framebuffer color arrives
	// preloaded in r0 and the epilogue converts to RGBA8888 before
	// writeout.
	IsBlend bool

	// AlphaRef is the alpha-test reference value substituted for
	// load_alpha_ref reads and reported back to the driver.
	AlphaRef float32

	// UniformCutoff is the number of uniform slots the driver pushes
	// into registers; reads below the cutoff cost no load.
	UniformCutoff int
}

// DefaultOptions returns the options a plain fragment or vertex shader
// wants.
func DefaultOptions() Options {
	return Options{
		UniformCutoff: 8,
	}
}

// Program is a compiled shader plus the metadata the command stream
// needs to run it.
type Program struct {
	// Compiled is the binary, a sequence of 16-byte quadwords.
	Compiled []byte

	// FirstTag seeds instruction prefetch; the tag of the first
	// bundle executed.
	FirstTag isa.Tag

	// WorkRegisterCount is how many work registers the program
	// touches, at least 1.
	WorkRegisterCount int

	// UniformCount counts uniform slots including appended sysvals;
	// UniformCutoff echoes the option the program was compiled with.
	UniformCount  int
	UniformCutoff int

	AttributeCount int
	VaryingCount   int

	// Sysvals lists the system values the driver must inject after
	// the user uniforms, in slot order.
	Sysvals []lower.Sysval

	// CanDiscard is set when any path through a fragment shader may
	// discard, which disqualifies early depth testing.
	CanDiscard bool

	// BlendConstantOffset is the byte offset of the embedded blend
	// constant for draw-time patching, or -1 when the program has
	// none.
	BlendConstantOffset int

	// TLSSize is the thread-local scratch footprint in bytes, zero
	// unless allocation spilled.
	TLSSize int

	AlphaRef float32
}

// Compile translates the module's entry point into a Midgard binary.
//
// The pipeline is lowering to machine IR, peephole cleanup, register
// allocation with spilling, VLIW bundle scheduling and binary emission.
// There is no partial success: any stage failing fails the compile.
func Compile(m *ir.Module, opts Options) (*Program, error) {
	if tlog.If("nir") {
		dumpIR(m)
	}

	low, err := lower.Lower(m, lower.Options{
		UniformCutoff: opts.UniformCutoff,
		IsBlend:       opts.IsBlend,
		AlphaRef:      opts.AlphaRef,
	})
	if err != nil {
		return nil, fail(ErrUnsupportedOp, err)
	}

	opt.Run(low.Program, low.Pinned)

	alloc, err := ra.Allocate(low.Program, ra.Options{
		UniformCutoff: opts.UniformCutoff,
		Pinned:        low.Pinned,
	})
	if err != nil {
		return nil, fail(ErrRegisterAllocationFailed, err)
	}

	bundled, err := sched.Schedule(low.Program, sched.Options{
		Stage:  m.Stage,
		Colors: alloc.Colors,
	})
	if err != nil {
		return nil, fail(ErrInternal, err)
	}

	if tlog.If("mir") {
		dumpMIR(low.Program)
	}

	code, first, err := encode.Encode(low.Program)
	if err != nil {
		kind := ErrInternal
		if errors.Is(err, encode.ErrBranchRange) {
			kind = ErrEncodeMismatch
		}
		return nil, fail(kind, err)
	}

	if tlog.If("disasm") {
		tlog.Printw("disassembly", "text", disasm.Disassemble(code))
	}

	return &Program{
		Compiled:            code,
		FirstTag:            first,
		WorkRegisterCount:   alloc.WorkRegisterCount,
		UniformCount:        low.UniformCount,
		UniformCutoff:       opts.UniformCutoff,
		AttributeCount:      low.AttributeCount,
		VaryingCount:        low.VaryingCount,
		Sysvals:             low.Sysvals,
		CanDiscard:          low.CanDiscard,
		BlendConstantOffset: bundled.BlendConstantOffset,
		TLSSize:             alloc.TLSSize,
		AlphaRef:            opts.AlphaRef,
	}, nil
}

func dumpIR(m *ir.Module) {
	tlog.Printw("input module", "stage", m.Stage, "functions", len(m.Functions))

	fn, err := m.EntryPoint()
	if err != nil {
		return
	}

	tlog.Printw("entry point", "name", fn.Name, "ssa", fn.SSACount, "registers", fn.RegisterCount)
	dumpIRNodes(fn.Body, 0)
}

func dumpIRNodes(nodes []ir.Node, depth int) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *ir.Block:
			for _, instr := range n.Instrs {
				dumpIRInstr(instr, depth)
			}
		case *ir.If:
			tlog.Printw("if", "depth", depth, "cond", n.Cond.Value.Index)
			dumpIRNodes(n.Then, depth+1)
			if len(n.Else) > 0 {
				tlog.Printw("else", "depth", depth)
				dumpIRNodes(n.Else, depth+1)
			}
		case *ir.Loop:
			tlog.Printw("loop", "depth", depth)
			dumpIRNodes(n.Body, depth+1)
		}
	}
}

func dumpIRInstr(instr ir.Instr, depth int) {
	switch i := instr.(type) {
	case *ir.Alu:
		srcs := make([]int, len(i.Srcs))
		for n, s := range i.Srcs {
			srcs[n] = s.Value.Index
		}
		tlog.Printw("alu", "depth", depth, "op", i.Op, "dest", i.Dest.Value.Index, "srcs", srcs)
	case *ir.Intrinsic:
		tlog.Printw("intrinsic", "depth", depth, "op", i.Op, "dest", i.Dest.Value.Index, "base", i.Base)
	case *ir.Tex:
		tlog.Printw("tex", "depth", depth, "dest", i.Dest.Value.Index, "texture", i.Texture, "sampler", i.Sampler)
	case *ir.LoadConst:
		tlog.Printw("load_const", "depth", depth, "dest", i.Dest.Value.Index, "value", i.Value)
	case *ir.Jump:
		tlog.Printw("jump", "depth", depth, "kind", i.Kind)
	case *ir.Undef:
		tlog.Printw("undef", "depth", depth, "dest", i.Dest.Value.Index)
	}
}

func dumpMIR(p *mir.Program) {
	for _, b := range p.Blocks {
		tlog.Printw("block", "index", b.Index, "bundles", len(b.Bundles))

		for _, bun := range b.Bundles {
			tlog.Printw("bundle", "tag", bun.Tag, "quadwords", bun.Tag.Quadwords())

			for _, ins := range bun.Instructions {
				switch {
				case ins.Type == isa.TagLoadStore4:
					tlog.Printw("ldst", "op", ins.LoadStore.Op.Name(), "dest", ins.Dest, "src", ins.Src0)
				case ins.Type.IsTexture():
					tlog.Printw("tex", "op", ins.Texture.Op, "dest", ins.Dest, "src", ins.Src0)
				case ins.IsBranch():
					tlog.Printw("branch", "unit", ins.Unit, "target", ins.Branch.TargetBlock, "conditional", ins.Branch.Conditional)
				default:
					tlog.Printw("alu", "op", ins.Op.Name(), "unit", ins.Unit,
						"dest", ins.Dest, "src0", ins.Src0, "src1", ins.Src1, "mask", ins.Mask)
				}
			}
		}
	}
}
