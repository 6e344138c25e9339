package mir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/midgard/isa"
)

func TestMovConstructors(t *testing.T) {
	m := Mov(3, 7)
	assert.Equal(t, isa.TagALU4, m.Type)
	assert.Equal(t, isa.OpFMov, m.Op)
	assert.Equal(t, 3, m.Dest)
	assert.Equal(t, isa.IndexUnused, m.Src0)
	assert.Equal(t, 7, m.Src1)
	assert.Equal(t, uint8(0xF), m.Mask)
	assert.True(t, m.IsAluMove())

	im := IMov(1, 2)
	assert.Equal(t, isa.OpIMov, im.Op)
	assert.True(t, im.IsAluMove())
}

func TestLoadStoreConstructors(t *testing.T) {
	ld := Load(isa.OpLdUniform32, 5, 2)
	assert.Equal(t, isa.TagLoadStore4, ld.Type)
	assert.Equal(t, 5, ld.Dest)
	assert.Equal(t, uint16(2), ld.LoadStore.Address)

	st := Store(isa.OpStVary32, 5, 1)
	assert.Equal(t, isa.IndexUnused, st.Dest)
	assert.Equal(t, 5, st.Src0)
}

func TestHasArgAndRewrite(t *testing.T) {
	m := Mov(0, 4)
	assert.True(t, m.HasArg(4))
	assert.False(t, m.HasArg(0))
	assert.False(t, m.HasArg(isa.IndexUnused))

	m.RewriteSrc(4, 9)
	assert.Equal(t, 9, m.Src1)

	// inline constants shadow src1
	m.HasInlineConstant = true
	assert.False(t, m.HasArg(9))
	m.RewriteSrc(9, 2)
	assert.Equal(t, 9, m.Src1)
}

func TestSources(t *testing.T) {
	ins := Instruction{
		Type: isa.TagALU4,
		Op:   isa.OpFAdd,
		Dest: 2,
		Src0: 0,
		Src1: 1,
		Src2: isa.IndexUnused,
	}
	assert.Equal(t, []int{0, 1}, ins.Sources())

	ins.HasInlineConstant = true
	assert.Equal(t, []int{0}, ins.Sources())
}

func TestMaskOfReadComponents(t *testing.T) {
	ins := Mov(1, 0)
	ins.Mask = 0x1
	ins.Mod[1].Swizzle = isa.SwizzleWWWW
	assert.Equal(t, uint8(0x8), ins.MaskOfReadComponents(0))

	ins.Mask = 0xF
	ins.Mod[1].Swizzle = isa.SwizzleXYZW
	assert.Equal(t, uint8(0xF), ins.MaskOfReadComponents(0))

	// non-ALU pipes read sources whole
	ld := Store(isa.OpStVary32, 3, 0)
	assert.Equal(t, uint8(0xF), ld.MaskOfReadComponents(3))
	assert.Equal(t, uint8(0), ld.MaskOfReadComponents(5))
}

func TestNontrivialMod(t *testing.T) {
	src := isa.VectorALUSrc{Swizzle: isa.SwizzleXYZW}
	assert.False(t, NontrivialMod(src, false, 0xF))

	src.Negate = true
	assert.True(t, NontrivialMod(src, false, 0xF))
	assert.False(t, NontrivialMod(src, true, 0xF))

	src = isa.VectorALUSrc{Swizzle: isa.SwizzleXXXX}
	assert.True(t, NontrivialMod(src, false, 0xF))
	assert.False(t, NontrivialMod(src, false, 0x1))
}

func TestBlockInsertRemove(t *testing.T) {
	var p Program
	b := p.AddBlock()

	a := b.Append(Mov(0, 1))
	c := b.Append(Mov(2, 3))
	mid := b.InsertBefore(c, Mov(4, 5))
	require.Len(t, b.Instructions, 3)
	assert.Same(t, mid, b.Instructions[1])

	tail := b.InsertAfter(c, Mov(6, 7))
	assert.Same(t, tail, b.Instructions[3])

	b.Remove(mid)
	require.Len(t, b.Instructions, 3)
	assert.Same(t, a, b.Instructions[0])
	assert.Same(t, c, b.Instructions[1])
}

func TestRewriteIndexAndUseCount(t *testing.T) {
	var p Program
	b := p.AddBlock()
	b.Append(Mov(1, 0))
	b.Append(Mov(2, 1))
	ins := b.Append(Instruction{
		Type: isa.TagALU4,
		Op:   isa.OpFAdd,
		Dest: 3,
		Src0: 1,
		Src1: 2,
		Src2: isa.IndexUnused,
		Mask: 0xF,
	})

	assert.Equal(t, 2, p.UseCount(1))
	assert.False(t, p.SingleUse(1))
	assert.True(t, p.SingleUse(2))

	p.RewriteIndex(1, 8)
	assert.Equal(t, 8, b.Instructions[0].Dest)
	assert.Equal(t, 8, b.Instructions[1].Src1)
	assert.Equal(t, 8, ins.Src0)
}

func TestSpecialIndex(t *testing.T) {
	var p Program
	b := p.AddBlock()
	b.Append(Mov(1, 0))
	b.Append(Store(isa.OpStVary32, 1, 0))

	assert.True(t, p.SpecialIndex(1))
	assert.False(t, p.SpecialIndex(0))
}

func TestSqueezeIndex(t *testing.T) {
	var p Program
	b := p.AddBlock()
	b.Append(Mov(100, 50))
	b.Append(Mov(isa.FixedRegister(0), 100))

	p.SqueezeIndex()
	assert.Equal(t, 2, p.TempCount)
	assert.Equal(t, 0, b.Instructions[0].Dest)
	assert.Equal(t, 1, b.Instructions[0].Src1)
	assert.Equal(t, isa.FixedRegister(0), b.Instructions[1].Dest)
	assert.Equal(t, 0, b.Instructions[1].Src1)
}

func TestLivenessStraightLine(t *testing.T) {
	var p Program
	b := p.AddBlock()
	b.Append(Mov(1, 0))
	b.Append(Mov(2, 1))
	p.TempCount = 3

	p.ComputeLiveness()
	require.True(t, p.Liveness)
	assert.Equal(t, uint8(0xF), b.LiveIn[0])
	assert.Zero(t, b.LiveIn[1])
	assert.Zero(t, b.LiveOut[2])

	p.InvalidateLiveness()
	assert.Nil(t, b.LiveIn)
}

func TestLivenessAcrossBlocks(t *testing.T) {
	var p Program
	b0 := p.AddBlock()
	b1 := p.AddBlock()
	b0.AddSuccessor(b1)

	b0.Append(Mov(1, 0))
	b1.Append(Mov(2, 1))
	p.TempCount = 3

	p.ComputeLiveness()
	assert.Equal(t, uint8(0xF), b0.LiveOut[1])
	assert.Equal(t, uint8(0xF), b1.LiveIn[1])
	assert.Zero(t, b1.LiveIn[0])
}

func TestIsLiveAfter(t *testing.T) {
	var p Program
	b0 := p.AddBlock()
	b1 := p.AddBlock()
	b0.AddSuccessor(b1)

	def := b0.Append(Mov(1, 0))
	use := b1.Append(Mov(2, 1))

	assert.True(t, p.IsLiveAfter(b0, def, 1))
	assert.False(t, p.IsLiveAfter(b1, use, 1))

	// overwritten before use in the successor
	b1.InsertBefore(use, Mov(1, 3))
	assert.False(t, p.IsLiveAfter(b0, def, 1))
}

func TestConstantWords(t *testing.T) {
	var ins Instruction
	ins.SetConstantWord(2, 0x3F800000)
	assert.Equal(t, float32(1.0), ins.Constants[2])
	assert.Equal(t, uint32(0x3F800000), ins.ConstantWord(2))
}

func TestBranchConstructor(t *testing.T) {
	br := AluBranch(isa.JumpOpBranchCond, TargetBreak, 2, true, true)
	assert.True(t, br.CompactBranch)
	assert.True(t, br.IsBranch())
	assert.False(t, br.IsAluMove())
	assert.Equal(t, TargetBreak, br.Branch.Target)
	assert.Equal(t, 2, br.Branch.TargetBlock)
}
