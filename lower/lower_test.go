package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/midgard/ir"
	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

func defaultOptions() Options {
	return Options{UniformCutoff: 8}
}

func lowerBlock(t *testing.T, stage ir.Stage, opts Options, ssaCount int, instrs ...ir.Instr) *Result {
	t.Helper()

	m := &ir.Module{
		Stage: stage,
		Functions: []*ir.Function{{
			Name:     "main",
			SSACount: ssaCount,
			Body:     []ir.Node{&ir.Block{Instrs: instrs}},
		}},
	}

	res, err := Lower(m, opts)
	require.NoError(t, err)
	return res
}

func allInstructions(p *mir.Program) []*mir.Instruction {
	var out []*mir.Instruction
	p.ForEachInstr(func(_ *mir.Block, ins *mir.Instruction) {
		out = append(out, ins)
	})
	return out
}

func findAlu(p *mir.Program, op isa.ALUOp) []*mir.Instruction {
	var out []*mir.Instruction
	p.ForEachInstr(func(_ *mir.Block, ins *mir.Instruction) {
		if ins.Type == isa.TagALU4 && !ins.CompactBranch && ins.Op == op {
			out = append(out, ins)
		}
	})
	return out
}

func findLoadStore(p *mir.Program, op isa.LoadStoreOp) []*mir.Instruction {
	var out []*mir.Instruction
	p.ForEachInstr(func(_ *mir.Block, ins *mir.Instruction) {
		if ins.Type == isa.TagLoadStore4 && ins.LoadStore.Op == op {
			out = append(out, ins)
		}
	})
	return out
}

func TestUniformAliasBelowCutoff(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 2,
		&ir.Intrinsic{Op: ir.IntrLoadUniform, Dest: ir.NewDest(0), Base: 2},
		&ir.Alu{Op: ir.OpFAdd, Dest: ir.NewDest(1), Srcs: []ir.Src{ir.NewSrc(0), ir.NewSrc(0)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(1), Base: 0},
	)

	require.Empty(t, findLoadStore(res.Program, isa.OpLdUniform32))

	adds := findAlu(res.Program, isa.OpFAdd)
	require.Len(t, adds, 1)
	want := isa.FixedRegister(isa.UniformRegister(2))
	assert.Equal(t, want, adds[0].Src0)
	assert.Equal(t, want, adds[0].Src1)

	assert.Equal(t, 0, res.Pinned[1])
	assert.Equal(t, 3, res.UniformCount)
}

func TestUniformLoadBeyondCutoff(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 1,
		&ir.Intrinsic{Op: ir.IntrLoadUniform, Dest: ir.NewDest(0), Base: 10},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(0), Base: 0},
	)

	loads := findLoadStore(res.Program, isa.OpLdUniform32)
	require.Len(t, loads, 1)
	ld := loads[0]
	assert.Equal(t, uint16(10&7)<<7, ld.LoadStore.VaryingParameters)
	assert.Equal(t, uint16(10>>3), ld.LoadStore.Address)
	assert.Equal(t, uint16(0x1E00), ld.LoadStore.Unknown)
	assert.Equal(t, 0, ld.Dest)
	assert.Equal(t, 11, res.UniformCount)
}

func TestVaryingLoadFragment(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 1,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 1},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(0), Base: 0},
	)

	loads := findLoadStore(res.Program, isa.OpLdVary32)
	require.Len(t, loads, 1)
	ld := loads[0]
	assert.Equal(t, uint16(1), ld.LoadStore.Address)
	assert.Equal(t, uint16(0x1E9E), ld.LoadStore.Unknown)

	p := isa.UnpackVaryingParameter(ld.LoadStore.VaryingParameters)
	assert.True(t, p.IsVarying)
	assert.Equal(t, isa.InterpDefault, p.Interpolation)
	assert.Equal(t, 2, res.VaryingCount)
}

func TestVertexAttributeAndVaryingStore(t *testing.T) {
	dest := ir.Dest{Value: ir.Value{Index: 0, IsSSA: true}, WriteMask: 0x7}

	res := lowerBlock(t, ir.StageVertex, defaultOptions(), 2,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: dest, Base: 0},
		&ir.Alu{Op: ir.OpFMov, Dest: ir.NewDest(1), Srcs: []ir.Src{ir.NewSrc(0)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(1), Base: 0},
	)

	attrs := findLoadStore(res.Program, isa.OpLdAttr32)
	require.Len(t, attrs, 1)
	assert.Equal(t, uint8(0x7), attrs[0].LoadStore.Mask)
	assert.Equal(t, uint16(0x1E1E), attrs[0].LoadStore.Unknown)

	stores := findLoadStore(res.Program, isa.OpStVary32)
	require.Len(t, stores, 1)
	st := stores[0]
	assert.Equal(t, uint16(0x1E9E), st.LoadStore.Unknown)
	assert.Equal(t, isa.FixedRegister(0), st.Src0)
	assert.Equal(t, uint16(0), st.LoadStore.Address)

	// The value routes through r26 immediately before the store.
	blk := res.Program.Blocks[0]
	var stPos int
	for i, ins := range blk.Instructions {
		if ins == st {
			stPos = i
		}
	}
	require.Greater(t, stPos, 0)
	mov := blk.Instructions[stPos-1]
	assert.Equal(t, isa.FixedRegister(isa.RegisterVaryingBase), mov.Dest)

	assert.Equal(t, 1, res.AttributeCount)
	assert.Equal(t, 1, res.VaryingCount)
}

func TestBoolToFloatEmbedsOne(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 3,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.Alu{Op: ir.OpFEq, Dest: ir.NewDest(1), Srcs: []ir.Src{ir.NewSrc(0), ir.NewSrc(0)}},
		&ir.Alu{Op: ir.OpB2F32, Dest: ir.NewDest(2), Srcs: []ir.Src{ir.NewSrc(1)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(2), Base: 0},
	)

	ands := findAlu(res.Program, isa.OpIAnd)
	require.Len(t, ands, 1)
	and := ands[0]
	assert.True(t, and.HasConstants)
	assert.Equal(t, uint32(0x3F800000), and.ConstantWord(0))
	assert.Equal(t, isa.FixedRegister(isa.RegisterConstant), and.Src1)
	assert.Equal(t, isa.SwizzleXXXX, and.Mod[1].Swizzle)
}

func TestFloatToBoolComparesZero(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 2,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.Alu{Op: ir.OpF2B32, Dest: ir.NewDest(1), Srcs: []ir.Src{ir.NewSrc(0)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(1), Base: 0},
	)

	// The zero splat demotes to an inline immediate, freeing the
	// bundle's constant slot.
	nes := findAlu(res.Program, isa.OpFNe)
	require.Len(t, nes, 1)
	assert.False(t, nes[0].HasConstants)
	assert.True(t, nes[0].HasInlineConstant)
	assert.Equal(t, uint16(0), nes[0].InlineConstant)
}

func TestInlineConstantPromotion(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 3,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.LoadConst{Dest: ir.NewDest(1), Value: [4]uint32{0x40000000, 0x40000000, 0x40000000, 0x40000000}},
		&ir.Alu{Op: ir.OpFMul, Dest: ir.NewDest(2), Srcs: []ir.Src{ir.NewSrc(0), ir.NewSrc(1)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(2), Base: 0},
	)

	muls := findAlu(res.Program, isa.OpFMul)
	require.Len(t, muls, 1)
	mul := muls[0]
	assert.False(t, mul.HasConstants)
	assert.True(t, mul.HasInlineConstant)
	assert.Equal(t, isa.FloatToHalf(2.0), mul.InlineConstant)
	assert.Equal(t, isa.IndexUnused, mul.Src1)
}

func TestVectorConstantStaysEmbedded(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 3,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.LoadConst{Dest: ir.NewDest(1), Value: [4]uint32{0x3F800000, 0x40000000, 0x40400000, 0x40800000}},
		&ir.Alu{Op: ir.OpFMul, Dest: ir.NewDest(2), Srcs: []ir.Src{ir.NewSrc(0), ir.NewSrc(1)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(2), Base: 0},
	)

	muls := findAlu(res.Program, isa.OpFMul)
	require.Len(t, muls, 1)
	assert.True(t, muls[0].HasConstants)
	assert.False(t, muls[0].HasInlineConstant)
	assert.Equal(t, isa.FixedRegister(isa.RegisterConstant), muls[0].Src1)
}

func TestTableOpScalarizes(t *testing.T) {
	dest := ir.Dest{Value: ir.Value{Index: 1, IsSSA: true}, WriteMask: 0x3}

	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 2,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.Alu{Op: ir.OpFRcp, Dest: dest, Srcs: []ir.Src{ir.NewSrc(0)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(1), Base: 0},
	)

	rcps := findAlu(res.Program, isa.OpFRcp)
	require.Len(t, rcps, 2)
	assert.Equal(t, uint8(0x1), rcps[0].Mask)
	assert.Equal(t, isa.SwizzleXXXX, rcps[0].Mod[0].Swizzle)
	assert.Equal(t, uint8(0x2), rcps[1].Mask)
	assert.Equal(t, isa.Swizzle(1, 1, 1, 1), rcps[1].Mod[0].Swizzle)
}

func TestGreaterEqualFlips(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 4,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(1), Base: 1},
		&ir.Alu{Op: ir.OpFGe, Dest: ir.NewDest(2), Srcs: []ir.Src{ir.NewSrc(0), ir.NewSrc(1)}},
		&ir.Alu{Op: ir.OpB2F32, Dest: ir.NewDest(3), Srcs: []ir.Src{ir.NewSrc(2)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(3), Base: 0},
	)

	les := findAlu(res.Program, isa.OpFLe)
	require.Len(t, les, 1)
	assert.Equal(t, 1, les[0].Src0)
	assert.Equal(t, 0, les[0].Src1)
}

func TestSelectCarriesCondition(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 5,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(1), Base: 1},
		&ir.Alu{Op: ir.OpFLt, Dest: ir.NewDest(2), Srcs: []ir.Src{ir.NewSrc(0), ir.NewSrc(1)}},
		&ir.Alu{Op: ir.OpBCSel, Dest: ir.NewDest(3), Srcs: []ir.Src{ir.NewSrc(2), ir.NewSrc(0), ir.NewSrc(1)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(3), Base: 0},
	)

	sels := findAlu(res.Program, isa.OpFCSel)
	require.Len(t, sels, 1)
	sel := sels[0]
	assert.Equal(t, 0, sel.Src0)
	assert.Equal(t, 1, sel.Src1)
	assert.Equal(t, 2, sel.Src2)
}

func TestDiscardIf(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 2,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.Alu{Op: ir.OpF2B32, Dest: ir.NewDest(1), Srcs: []ir.Src{ir.NewSrc(0)}},
		&ir.Intrinsic{Op: ir.IntrDiscardIf, Src: ir.NewSrc(1)},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(0), Base: 0},
	)

	assert.True(t, res.CanDiscard)

	var discard *mir.Instruction
	res.Program.ForEachInstr(func(_ *mir.Block, ins *mir.Instruction) {
		if ins.CompactBranch && ins.Branch.Target == mir.TargetDiscard {
			discard = ins
		}
	})
	require.NotNil(t, discard)
	assert.True(t, discard.Branch.Conditional)
	assert.Equal(t, 1, discard.Src2)

	// Discards jump to the end of the shader.
	exit := res.Program.ExitBlock()
	assert.Contains(t, res.Program.Blocks[0].Successors, exit)
}

func TestFragmentEpilogue(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 1,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(0), Base: 0},
	)

	last := res.Program.ExitBlock()
	n := len(last.Instructions)
	require.GreaterOrEqual(t, n, 2)

	first := last.Instructions[n-2]
	second := last.Instructions[n-1]
	require.True(t, first.PrepackedOp)
	require.True(t, second.PrepackedOp)

	br := isa.UnpackBranchCond(first.PackedCompact)
	assert.Equal(t, isa.JumpOpWriteout, br.Op)
	assert.Equal(t, int8(0), br.Offset)
	assert.Equal(t, isa.ConditionAlways, br.Cond)

	br = isa.UnpackBranchCond(second.PackedCompact)
	assert.Equal(t, int8(-1), br.Offset)
}

func TestFragmentEpilogueConstantOutput(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 1,
		&ir.LoadConst{Dest: ir.NewDest(0), Value: [4]uint32{0x3F800000, 0, 0, 0x3F800000}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(0), Base: 0},
	)

	last := res.Program.ExitBlock()
	var mov *mir.Instruction
	for _, ins := range last.Instructions {
		if ins.Type == isa.TagALU4 && !ins.CompactBranch && ins.Op == isa.OpFMov && ins.HasConstants {
			mov = ins
		}
	}
	require.NotNil(t, mov)
	assert.Equal(t, isa.FixedRegister(0), mov.Dest)
	assert.Equal(t, uint32(0x3F800000), mov.ConstantWord(0))
	assert.Equal(t, uint32(0x3F800000), mov.ConstantWord(3))
}

func TestBlendEpilogue(t *testing.T) {
	opts := defaultOptions()
	opts.IsBlend = true

	res := lowerBlock(t, ir.StageFragment, opts, 1,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(0), Base: 0},
	)

	last := res.Program.ExitBlock()
	var ops []isa.ALUOp
	writeouts := 0
	for _, ins := range last.Instructions {
		if ins.CompactBranch {
			writeouts++
			continue
		}
		ops = append(ops, ins.Op)
	}
	assert.Equal(t, []isa.ALUOp{isa.OpFMul, isa.OpF2U8, isa.OpIMov, isa.OpIMov}, ops)
	assert.Equal(t, 2, writeouts)

	scale := last.Instructions[0]
	assert.Equal(t, isa.FloatToHalf(255.0), scale.InlineConstant)
	assert.Equal(t, isa.DestOverrideLower, scale.Override)
	assert.Equal(t, isa.FixedRegister(24), scale.Dest)
}

func TestBlendConstantUniform(t *testing.T) {
	opts := defaultOptions()
	opts.IsBlend = true

	res := lowerBlock(t, ir.StageFragment, opts, 2,
		&ir.Intrinsic{Op: ir.IntrLoadUniform, Dest: ir.NewDest(0), Base: 0},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(0), Base: 0},
	)

	var blend *mir.Instruction
	res.Program.ForEachInstr(func(_ *mir.Block, ins *mir.Instruction) {
		if ins.HasBlendConstant {
			blend = ins
		}
	})
	require.NotNil(t, blend)
	assert.True(t, blend.HasConstants)
	assert.Equal(t, isa.FixedRegister(isa.RegisterConstant), blend.Src1)
}

func TestSysvalsArePrefixUniforms(t *testing.T) {
	res := lowerBlock(t, ir.StageVertex, defaultOptions(), 5,
		&ir.Intrinsic{Op: ir.IntrLoadViewportScale, Dest: ir.NewDest(0)},
		&ir.Intrinsic{Op: ir.IntrLoadViewportOffset, Dest: ir.NewDest(1)},
		&ir.Intrinsic{Op: ir.IntrLoadUniform, Dest: ir.NewDest(2), Base: 0},
		&ir.Alu{Op: ir.OpFAdd, Dest: ir.NewDest(3), Srcs: []ir.Src{ir.NewSrc(0), ir.NewSrc(1)}},
		&ir.Alu{Op: ir.OpFAdd, Dest: ir.NewDest(4), Srcs: []ir.Src{ir.NewSrc(3), ir.NewSrc(2)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(4), Base: 0},
	)

	require.Equal(t, []Sysval{SysvalViewportScale, SysvalViewportOffset}, res.Sysvals)

	// Sysvals take slots 0 and 1, pushing user uniforms up.
	var srcs []int
	for _, ins := range findAlu(res.Program, isa.OpFAdd) {
		srcs = append(srcs, ins.Src0, ins.Src1)
	}
	assert.Contains(t, srcs, isa.FixedRegister(isa.UniformRegister(0)))
	assert.Contains(t, srcs, isa.FixedRegister(isa.UniformRegister(1)))
	assert.Contains(t, srcs, isa.FixedRegister(isa.UniformRegister(2)))
}

func TestTextureRoundRobin(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 4,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.Tex{Kind: ir.TexOpSample, Dim: ir.TexDim2D, Dest: ir.NewDest(1), Coord: ir.NewSrc(0), Texture: 0, Sampler: 0},
		&ir.Tex{Kind: ir.TexOpSample, Dim: ir.TexDim2D, Dest: ir.NewDest(2), Coord: ir.NewSrc(0), Texture: 1, Sampler: 1},
		&ir.Alu{Op: ir.OpFAdd, Dest: ir.NewDest(3), Srcs: []ir.Src{ir.NewSrc(1), ir.NewSrc(2)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(3), Base: 0},
	)

	var texes []*mir.Instruction
	res.Program.ForEachInstr(func(_ *mir.Block, ins *mir.Instruction) {
		if ins.Type == isa.TagTexture4 {
			texes = append(texes, ins)
		}
	})
	require.Len(t, texes, 2)

	assert.False(t, texes[0].Texture.InRegSelect)
	assert.False(t, texes[0].Texture.OutRegSelect)
	assert.True(t, texes[1].Texture.InRegSelect)
	assert.True(t, texes[1].Texture.OutRegSelect)

	assert.Equal(t, uint8(isa.TexOpNormal), texes[0].Texture.Op)
	assert.Equal(t, uint8(isa.TexFormat2D), texes[0].Texture.Format)
	assert.Equal(t, uint16(1), texes[1].Texture.TextureHandle)
	assert.True(t, texes[0].Texture.Cont)

	// Texture results alias r28/r29, so the adder reads them
	// directly.
	adds := findAlu(res.Program, isa.OpFAdd)
	require.Len(t, adds, 1)
	assert.Equal(t, isa.FixedRegister(isa.RegisterTextureBase), adds[0].Src0)
	assert.Equal(t, isa.FixedRegister(isa.RegisterTextureBase+1), adds[0].Src1)
}

func TestCubemapCoordinates(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 2,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.Tex{Kind: ir.TexOpSample, Dim: ir.TexDimCube, Dest: ir.NewDest(1), Coord: ir.NewSrc(0)},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(1), Base: 0},
	)

	sts := findLoadStore(res.Program, isa.OpStCubemapCoords)
	require.Len(t, sts, 1)
	st := sts[0]
	assert.Equal(t, uint16(0x24), st.LoadStore.Unknown)
	assert.Equal(t, uint8(0x3), st.LoadStore.Mask)
	assert.Equal(t, isa.FixedRegister(isa.RegisterTextureBase), st.Src0)

	blk := res.Program.Blocks[0]
	var toR27 *mir.Instruction
	for _, ins := range blk.Instructions {
		if ins.IsAluMove() && ins.Dest == isa.FixedRegister(isa.RegisterOffset) {
			toR27 = ins
		}
	}
	require.NotNil(t, toR27)
	want := isa.Swizzle(isa.ComponentX, isa.ComponentY, isa.ComponentZ, isa.ComponentX)
	assert.Equal(t, want, toR27.Mod[1].Swizzle)
}

func TestOrphanMoveEliminated(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 2,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.Alu{Op: ir.OpFMov, Dest: ir.NewDest(1), Srcs: []ir.Src{ir.NewSrc(0)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(0), Base: 0},
	)

	for _, ins := range allInstructions(res.Program) {
		if ins.Type != isa.TagALU4 || ins.CompactBranch {
			continue
		}
		assert.NotEqual(t, 1, ins.Dest, "dead move should have been removed")
	}
}

func TestLoadStorePairing(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 4,
		&ir.Intrinsic{Op: ir.IntrLoadUniform, Dest: ir.NewDest(0), Base: 9},
		&ir.Alu{Op: ir.OpFMov, Dest: ir.NewDest(1), Srcs: []ir.Src{ir.NewSrc(0)}},
		&ir.Intrinsic{Op: ir.IntrLoadUniform, Dest: ir.NewDest(2), Base: 10},
		&ir.Alu{Op: ir.OpFAdd, Dest: ir.NewDest(3), Srcs: []ir.Src{ir.NewSrc(1), ir.NewSrc(2)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(3), Base: 0},
	)

	blk := res.Program.Blocks[0]
	for i, ins := range blk.Instructions {
		if ins.Type != isa.TagLoadStore4 {
			continue
		}
		require.Less(t, i+1, len(blk.Instructions))
		assert.Equal(t, isa.TagLoadStore4, blk.Instructions[i+1].Type)
		break
	}
}

func TestLoopBreakRetargets(t *testing.T) {
	m := &ir.Module{
		Stage: ir.StageFragment,
		Functions: []*ir.Function{{
			Name:     "main",
			SSACount: 1,
			Body: []ir.Node{
				&ir.Block{Instrs: []ir.Instr{
					&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
				}},
				&ir.Loop{Body: []ir.Node{
					&ir.Block{Instrs: []ir.Instr{&ir.Jump{Kind: ir.JumpBreak}}},
				}},
				&ir.Block{Instrs: []ir.Instr{
					&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(0), Base: 0},
				}},
			},
		}},
	}

	res, err := Lower(m, defaultOptions())
	require.NoError(t, err)

	body := res.Program.Blocks[1]
	require.Len(t, body.Instructions, 2)

	brk := body.Instructions[0]
	require.True(t, brk.CompactBranch)
	assert.Equal(t, mir.TargetGoto, brk.Branch.Target)
	assert.Equal(t, 2, brk.Branch.TargetBlock)

	back := body.Instructions[1]
	assert.Equal(t, mir.TargetGoto, back.Branch.Target)
	assert.Equal(t, 1, back.Branch.TargetBlock)
	assert.False(t, back.Branch.Conditional)

	// Both the loop header and the break continuation are successors.
	assert.Contains(t, body.Successors, res.Program.Blocks[1])
	assert.Contains(t, body.Successors, res.Program.Blocks[2])
}

func TestIfWithEmptyElse(t *testing.T) {
	m := &ir.Module{
		Stage: ir.StageFragment,
		Functions: []*ir.Function{{
			Name:     "main",
			SSACount: 3,
			Body: []ir.Node{
				&ir.Block{Instrs: []ir.Instr{
					&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
					&ir.Alu{Op: ir.OpF2B32, Dest: ir.NewDest(1), Srcs: []ir.Src{ir.NewSrc(0)}},
				}},
				&ir.If{
					Cond: ir.NewSrc(1),
					Then: []ir.Node{&ir.Block{Instrs: []ir.Instr{
						&ir.Intrinsic{Op: ir.IntrDiscard},
					}}},
				},
				&ir.Block{Instrs: []ir.Instr{
					&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(0), Base: 0},
				}},
			},
		}},
	}

	res, err := Lower(m, defaultOptions())
	require.NoError(t, err)

	head := res.Program.Blocks[0]
	var cond *mir.Instruction
	for _, ins := range head.Instructions {
		if ins.CompactBranch {
			cond = ins
		}
	}
	require.NotNil(t, cond)
	assert.True(t, cond.Branch.Conditional)
	assert.True(t, cond.Branch.InvertCond)
	assert.Equal(t, 1, cond.Src2)

	// With an empty else, the branch skips straight past the then
	// side; no exit jump survives in the then block.
	assert.Equal(t, 3, cond.Branch.TargetBlock)
	then := res.Program.Blocks[1]
	for _, ins := range then.Instructions {
		if ins.CompactBranch {
			assert.NotEqual(t, mir.TargetGoto, ins.Branch.Target)
		}
	}
}

func TestFmaExpands(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 4,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(1), Base: 1},
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(2), Base: 2},
		&ir.Alu{Op: ir.OpFFma, Dest: ir.NewDest(3), Srcs: []ir.Src{ir.NewSrc(0), ir.NewSrc(1), ir.NewSrc(2)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(3), Base: 0},
	)

	muls := findAlu(res.Program, isa.OpFMul)
	adds := findAlu(res.Program, isa.OpFAdd)
	require.Len(t, muls, 1)
	require.Len(t, adds, 1)
	assert.Equal(t, muls[0].Dest, adds[0].Src0)
	assert.Equal(t, 2, adds[0].Src1)
}

func TestSubtractNegatesSecondSource(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 3,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(1), Base: 1},
		&ir.Alu{Op: ir.OpFSub, Dest: ir.NewDest(2), Srcs: []ir.Src{ir.NewSrc(0), ir.NewSrc(1)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(2), Base: 0},
	)

	adds := findAlu(res.Program, isa.OpFAdd)
	require.Len(t, adds, 1)
	assert.True(t, adds[0].Mod[1].Negate)
	assert.False(t, adds[0].Mod[0].Negate)
}

func TestSaturateUsesOutMod(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 2,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.Alu{Op: ir.OpFSat, Dest: ir.NewDest(1), Srcs: []ir.Src{ir.NewSrc(0)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(1), Base: 0},
	)

	movs := findAlu(res.Program, isa.OpFMov)
	var sat *mir.Instruction
	for _, m := range movs {
		if m.OutMod == isa.OutModSat {
			sat = m
		}
	}
	require.NotNil(t, sat)
	// Flipped-r24 quirk: the operand rides in the second slot.
	assert.Equal(t, 0, sat.Src1)
	assert.Equal(t, isa.IndexUnused, sat.Src0)
}

func TestInvertFlagOnNot(t *testing.T) {
	res := lowerBlock(t, ir.StageFragment, defaultOptions(), 3,
		&ir.Intrinsic{Op: ir.IntrLoadInput, Dest: ir.NewDest(0), Base: 0},
		&ir.Alu{Op: ir.OpF2B32, Dest: ir.NewDest(1), Srcs: []ir.Src{ir.NewSrc(0)}},
		&ir.Alu{Op: ir.OpINot, Dest: ir.NewDest(2), Srcs: []ir.Src{ir.NewSrc(1)}},
		&ir.Intrinsic{Op: ir.IntrStoreOutput, Src: ir.NewSrc(2), Base: 0},
	)

	movs := findAlu(res.Program, isa.OpIMov)
	require.Len(t, movs, 1)
	assert.True(t, movs[0].Invert)
}
