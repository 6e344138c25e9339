package mir

import (
	"math"

	"github.com/gogpu/midgard/isa"
)

// BranchTarget distinguishes what a branch points at before block
// offsets are known.
type BranchTarget uint8

const (
	TargetGoto BranchTarget = iota
	TargetBreak
	TargetContinue
	TargetDiscard
)

// Branch is the high-level form of a control transfer, resolved to a
// concrete offset after scheduling.
type Branch struct {
	Op          isa.JumpOp
	Conditional bool
	InvertCond  bool
	Target      BranchTarget
	TargetBlock int // block index, or loop index for break/continue
}

// Instruction is one logical operation. Type holds the pipe it executes
// on (ALU, load/store or texture); the matching payload field carries
// the pipe-specific state.
type Instruction struct {
	Type isa.Tag

	Dest int
	Src0 int
	Src1 int
	Src2 int // condition input for selects and branches

	// Src1 is a 16-bit inline constant rather than a value index.
	HasInlineConstant bool
	InlineConstant    uint16

	Mask uint8

	// ALU state. Modifiers are kept unpacked until emission.
	Op      isa.ALUOp
	RegMode isa.RegMode
	OutMod  isa.OutMod
	Mod     [2]isa.VectorALUSrc

	// Invert complements the result bitwise. It has no direct
	// encoding; a peephole either fuses it into the opcode or a
	// later pass expands it to an explicit inor.
	Invert bool

	Override isa.DestOverride

	// Embedded constant vector, read through register r26.
	HasConstants     bool
	Constants        [4]float32
	HasBlendConstant bool

	// Scheduling state. Injected marks fills the scheduler fabricated
	// itself, which exist only inside a bundle.
	Unit     isa.Unit
	NoSpill  bool
	Injected bool

	// Register allocation results for ALU instructions.
	Registers isa.RegInfo

	LoadStore isa.LoadStoreWord
	Texture   isa.TextureWord

	CompactBranch  bool
	Writeout       bool
	PrepackedOp    bool // branch payload already packed (loop back-edges)
	PackedCompact  uint16
	PackedExtended isa.BranchExtended
	Branch         Branch
}

// New returns a blank instruction for the given pipe with every value
// slot marked unused.
func New(tag isa.Tag) Instruction {
	return Instruction{
		Type:     tag,
		Dest:     isa.IndexUnused,
		Src0:     isa.IndexUnused,
		Src1:     isa.IndexUnused,
		Src2:     isa.IndexUnused,
		Override: isa.DestOverrideNone,
		Mod: [2]isa.VectorALUSrc{
			{Swizzle: isa.SwizzleXYZW},
			{Swizzle: isa.SwizzleXYZW},
		},
	}
}

// Mov builds a 32-bit fmov from src to dest with an identity swizzle
// and a full mask.
func Mov(dest, src int) Instruction {
	return AluMov(isa.OpFMov, dest, src)
}

// IMov is Mov in the integer domain, leaving the bit pattern untouched.
func IMov(dest, src int) Instruction {
	return AluMov(isa.OpIMov, dest, src)
}

// AluMov builds a unary ALU instruction of the given move-like op.
func AluMov(op isa.ALUOp, dest, src int) Instruction {
	return Instruction{
		Type:     isa.TagALU4,
		Dest:     dest,
		Src0:     isa.IndexUnused,
		Src1:     src,
		Src2:     isa.IndexUnused,
		Mask:     0xF,
		Op:       op,
		RegMode:  isa.RegMode32,
		Override: isa.DestOverrideNone,
		Mod: [2]isa.VectorALUSrc{
			{Swizzle: isa.SwizzleXYZW},
			{Swizzle: isa.SwizzleXYZW},
		},
	}
}

// Load builds a load of the given op reading slot address into dest.
func Load(op isa.LoadStoreOp, dest int, address uint16) Instruction {
	return Instruction{
		Type:     isa.TagLoadStore4,
		Dest:     dest,
		Src0:     isa.IndexUnused,
		Src1:     isa.IndexUnused,
		Src2:     isa.IndexUnused,
		Mask:     0xF,
		Override: isa.DestOverrideNone,
		LoadStore: isa.LoadStoreWord{
			Op:      op,
			Mask:    0xF,
			Swizzle: isa.SwizzleXYZW,
			Address: address,
		},
	}
}

// Store builds a store of the given op writing src to slot address.
func Store(op isa.LoadStoreOp, src int, address uint16) Instruction {
	i := Load(op, isa.IndexUnused, address)
	i.Dest = isa.IndexUnused
	i.Src0 = src
	return i
}

// AluBranch builds an unscheduled compact branch.
func AluBranch(op isa.JumpOp, target BranchTarget, block int, conditional, invert bool) Instruction {
	return Instruction{
		Type:          isa.TagALU4,
		Dest:          isa.IndexUnused,
		Src0:          isa.IndexUnused,
		Src1:          isa.IndexUnused,
		Src2:          isa.IndexUnused,
		Override:      isa.DestOverrideNone,
		CompactBranch: true,
		Branch: Branch{
			Op:          op,
			Conditional: conditional,
			InvertCond:  invert,
			Target:      target,
			TargetBlock: block,
		},
	}
}

// IsBranch reports whether the instruction is a control transfer.
func (i *Instruction) IsBranch() bool {
	return i.CompactBranch || i.Unit == isa.UnitBranch
}

// IsAluMove reports whether the instruction is a plain register move
// with no modifiers, the form copy propagation and dead code look for.
func (i *Instruction) IsAluMove() bool {
	if i.Type != isa.TagALU4 || i.CompactBranch {
		return false
	}
	return i.Op == isa.OpFMov || i.Op == isa.OpIMov
}

// HasArg reports whether the instruction reads value index arg.
func (i *Instruction) HasArg(arg int) bool {
	if arg == isa.IndexUnused {
		return false
	}
	if i.Src0 == arg || i.Src2 == arg {
		return true
	}
	return i.Src1 == arg && !i.HasInlineConstant
}

// Sources returns the value indices the instruction reads. Unused
// slots are omitted.
func (i *Instruction) Sources() []int {
	var out []int
	if i.Src0 != isa.IndexUnused {
		out = append(out, i.Src0)
	}
	if i.Src1 != isa.IndexUnused && !i.HasInlineConstant {
		out = append(out, i.Src1)
	}
	if i.Src2 != isa.IndexUnused {
		out = append(out, i.Src2)
	}
	return out
}

// RewriteSrc replaces reads of old with new in this instruction only.
func (i *Instruction) RewriteSrc(old, new int) {
	if i.Src0 == old {
		i.Src0 = new
	}
	if i.Src1 == old && !i.HasInlineConstant {
		i.Src1 = new
	}
	if i.Src2 == old {
		i.Src2 = new
	}
}

// ConstantWord returns the raw 32-bit pattern of embedded constant
// component c.
func (i *Instruction) ConstantWord(c int) uint32 {
	return math.Float32bits(i.Constants[c])
}

// SetConstantWord stores a raw 32-bit pattern into embedded constant
// component c.
func (i *Instruction) SetConstantWord(c int, v uint32) {
	i.Constants[c] = math.Float32frombits(v)
}

// NontrivialMod reports whether a source modifier would change the
// result of substituting the move away, considering only the components
// the instruction writes.
func NontrivialMod(src isa.VectorALUSrc, isInt bool, mask uint8) bool {
	if !isInt && (src.Abs || src.Negate) {
		return true
	}
	if src.Half {
		return true
	}
	for c := 0; c < 4; c++ {
		if mask&(1<<uint(c)) == 0 {
			continue
		}
		if isa.SwizzleLane(src.Swizzle, c) != uint8(c) {
			return true
		}
	}
	return false
}

// NontrivialSource2Mod reports whether the instruction's second source
// carries a modifier that matters.
func (i *Instruction) NontrivialSource2Mod() bool {
	return NontrivialMod(i.Mod[1], i.Op.IsInteger(), i.Mask)
}

// MaskOfReadComponents returns which components of value node the
// instruction reads.
func (i *Instruction) MaskOfReadComponents(node int) uint8 {
	if node == isa.IndexUnused {
		return 0
	}
	var mask uint8
	if i.Src2 == node {
		// conditions are consumed whole before scheduling pins them
		mask = 0xF
	}
	switch i.Type {
	case isa.TagLoadStore4, isa.TagTexture4:
		// address and coordinate registers are read whole
		if i.Src0 == node || (i.Src1 == node && !i.HasInlineConstant) {
			mask = 0xF
		}
	default:
		readMask := i.Mask
		if i.CompactBranch {
			// conditions live in r31.w
			readMask = 1 << isa.ComponentW
		} else if n := i.Op.Props().FixedChannels(); n > 0 {
			// reductions read their fixed channel count no
			// matter the written mask
			readMask = uint8(1<<uint(n)) - 1
		}
		if i.Src0 == node {
			mask |= swizzleReadMask(i.Mod[0].Swizzle, readMask)
		}
		if i.Src1 == node && !i.HasInlineConstant {
			mask |= swizzleReadMask(i.Mod[1].Swizzle, readMask)
		}
	}
	return mask
}

// swizzleReadMask returns the source components a swizzle reads for the
// written lanes only.
func swizzleReadMask(swizzle, mask uint8) uint8 {
	var out uint8
	for c := 0; c < 4; c++ {
		if mask&(1<<uint(c)) != 0 {
			out |= 1 << isa.SwizzleLane(swizzle, c)
		}
	}
	return out
}
