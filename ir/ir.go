// Package ir defines the input intermediate representation accepted by
// the compiler: structured control flow over basic blocks of typed
// instructions, in SSA form with optional mutable registers.
//
// The IR is assumed to arrive pre-optimized from an upstream frontend;
// this package only models and validates it.
package ir

import "tlog.app/go/errors"

// Stage selects the shader kind being compiled.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
)

func (s Stage) String() string {
	if s == StageVertex {
		return "vertex"
	}
	return "fragment"
}

// Value names either an SSA definition (immutable, single assignment)
// or a mutable register, per the IsSSA flag.
type Value struct {
	Index int
	IsSSA bool
}

// Src is one instruction input: a value read through a swizzle with
// optional float modifiers.
type Src struct {
	Value   Value
	Swizzle [4]uint8
	Abs     bool
	Negate  bool
}

// SwizzleIdentity is the no-op lane selection.
var SwizzleIdentity = [4]uint8{0, 1, 2, 3}

// NewSrc reads an SSA value with an identity swizzle.
func NewSrc(index int) Src {
	return Src{Value: Value{Index: index, IsSSA: true}, Swizzle: SwizzleIdentity}
}

// Dest is one instruction output with a per-component write mask.
type Dest struct {
	Value     Value
	WriteMask uint8
}

// NewDest writes all four components of an SSA value.
func NewDest(index int) Dest {
	return Dest{Value: Value{Index: index, IsSSA: true}, WriteMask: 0xF}
}

// Instr is the closed set of instruction kinds.
type Instr interface {
	isInstr()
}

// Node is the closed set of control-flow constructs.
type Node interface {
	isNode()
}

// Block is a straight-line run of instructions.
type Block struct {
	Instrs []Instr
}

// If executes Then or Else depending on a scalar boolean condition.
type If struct {
	Cond Src
	Then []Node
	Else []Node
}

// Loop repeats its body until a Jump breaks out.
type Loop struct {
	Body []Node
}

func (*Block) isNode() {}
func (*If) isNode()    {}
func (*Loop) isNode()  {}

// Alu is a pure arithmetic or logical operation.
type Alu struct {
	Op   AluOp
	Dest Dest
	Srcs []Src
}

// Intrinsic is a side-effecting or stage-dependent operation. Base
// addresses the uniform, attribute or varying slot where relevant.
type Intrinsic struct {
	Op   IntrinsicOp
	Dest Dest
	Src  Src
	Base int
}

// TexDim is the sampled texture's dimensionality.
type TexDim uint8

const (
	TexDim2D TexDim = iota
	TexDim3D
	TexDimCube
)

// TexOpKind distinguishes filtered sampling from raw texel fetch.
type TexOpKind uint8

const (
	TexOpSample TexOpKind = iota
	TexOpFetch
)

// Tex samples a texture.
type Tex struct {
	Kind    TexOpKind
	Dim     TexDim
	Dest    Dest
	Coord   Src
	Texture int
	Sampler int
}

// LoadConst materializes up to four 32-bit immediate components.
type LoadConst struct {
	Dest  Dest
	Value [4]uint32
}

// JumpKind is the structured jump variety.
type JumpKind uint8

const (
	JumpBreak JumpKind = iota
	JumpContinue
)

// Jump leaves or restarts the innermost loop.
type Jump struct {
	Kind JumpKind
}

// Undef defines a value whose contents are unspecified.
type Undef struct {
	Dest Dest
}

func (*Alu) isInstr()       {}
func (*Intrinsic) isInstr() {}
func (*Tex) isInstr()       {}
func (*LoadConst) isInstr() {}
func (*Jump) isInstr()      {}
func (*Undef) isInstr()     {}

// Function is one shader entry point: structured control flow plus the
// SSA and register index spaces.
type Function struct {
	Name          string
	Body          []Node
	SSACount      int
	RegisterCount int
}

// Module is the compilation unit handed to the backend.
type Module struct {
	Stage     Stage
	Functions []*Function
}

// EntryPoint returns the function the backend compiles.
func (m *Module) EntryPoint() (*Function, error) {
	if len(m.Functions) == 0 {
		return nil, errors.New("module has no functions")
	}
	return m.Functions[len(m.Functions)-1], nil
}
