package disasm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/midgard/encode"
	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

func aluIns(op isa.ALUOp, unit isa.Unit, regs isa.RegInfo) *mir.Instruction {
	ins := mir.New(isa.TagALU4)
	ins.Op = op
	ins.RegMode = isa.RegMode32
	ins.Mask = 0xF
	ins.Unit = unit
	ins.Registers = regs
	p := new(mir.Instruction)
	*p = ins
	return p
}

func aluBundle(tag isa.Tag, instrs ...*mir.Instruction) *mir.Bundle {
	bytes := 4
	for _, ins := range instrs {
		switch {
		case ins.Unit == isa.UnitBrCompact:
			bytes += 2
		case ins.Unit&isa.UnitsScalar != 0:
			bytes += 4
		default:
			bytes += 6
		}
		if !ins.CompactBranch && !ins.PrepackedOp {
			bytes += 2
		}
	}
	// Pad the body to its own quadword boundary; embedded constants
	// occupy a further quadword after the padding.
	var pad int
	if bytes&15 != 0 {
		pad = 16 - bytes&15
	}
	return &mir.Bundle{
		Tag:          tag,
		Instructions: instrs,
		Padding:      pad,
	}
}

func encodeBundles(t *testing.T, bundles ...*mir.Bundle) []byte {
	t.Helper()
	p := &mir.Program{}
	b := p.AddBlock()
	b.Bundles = bundles
	for _, bundle := range bundles {
		b.QuadwordCount += bundle.Tag.Quadwords()
	}
	bin, _, err := encode.Encode(p)
	require.NoError(t, err)
	return bin
}

func TestVectorMove(t *testing.T) {
	mov := aluIns(isa.OpFMov, isa.UnitVADD, isa.RegInfo{Src1Reg: 1, Src2Reg: 2, OutReg: 3})
	bin := encodeBundles(t, aluBundle(isa.TagALU4, mov))

	text := Disassemble(bin)
	assert.Contains(t, text, "vadd.fmov r3, r1, r2")
}

func TestScalarAdd(t *testing.T) {
	add := aluIns(isa.OpFAdd, isa.UnitSADD, isa.RegInfo{Src1Reg: 1, Src2Reg: 2, OutReg: 3})
	add.Mask = 0x8
	add.Mod[0].Swizzle = isa.SwizzleWWWW
	add.Mod[1].Swizzle = isa.SwizzleWWWW
	bin := encodeBundles(t, aluBundle(isa.TagALU4, add))

	text := Disassemble(bin)
	assert.Contains(t, text, "sadd.fadd r3.w, r1.w, r2.w")
}

func TestInlineConstant(t *testing.T) {
	mul := aluIns(isa.OpFMul, isa.UnitVMUL, isa.RegInfo{Src1Reg: 2, OutReg: 4, Src2Imm: true})
	mul.HasInlineConstant = true
	mul.InlineConstant = isa.FloatToHalf(2.0)
	bin := encodeBundles(t, aluBundle(isa.TagALU4, mul))

	text := Disassemble(bin)
	assert.Contains(t, text, "vmul.fmul r4, r2, #2")
}

func TestSwizzleAndModifiers(t *testing.T) {
	mul := aluIns(isa.OpFMul, isa.UnitVMUL, isa.RegInfo{Src1Reg: 1, Src2Reg: 2, OutReg: 0})
	mul.Mask = 0x7
	mul.Mod[0].Swizzle = isa.SwizzleXXXX
	mul.Mod[1].Negate = true
	bin := encodeBundles(t, aluBundle(isa.TagALU4, mul))

	text := Disassemble(bin)
	assert.Contains(t, text, "vmul.fmul r0.xyz, r1.xxxx, -r2")
}

func TestByteModeOverrideMaskPrintsRaw(t *testing.T) {
	// An override halves the 8-bit lanes below the narrowest named
	// component width; the mask must come out raw, not spin forever.
	mov := aluIns(isa.OpFMov, isa.UnitVMUL, isa.RegInfo{Src1Reg: 1, OutReg: 2})
	mov.RegMode = isa.RegMode8
	mov.Override = isa.DestOverrideLower
	mov.Mask = 0x0
	bin := encodeBundles(t, aluBundle(isa.TagALU4, mov))

	text := Disassemble(bin)
	assert.Contains(t, text, "/* 0 */")
}

func TestEmbeddedFloatConstants(t *testing.T) {
	mov := aluIns(isa.OpFMov, isa.UnitVMUL, isa.RegInfo{Src1Reg: 26, Src2Reg: 26})
	bundle := aluBundle(isa.TagALU8, mov)
	bundle.HasEmbeddedConstants = true
	for i, f := range [4]float32{1, 0, 0.5, 1} {
		bits := math.Float32bits(f)
		for j := 0; j < 4; j++ {
			bundle.Constants[4*i+j] = byte(bits >> (8 * j))
		}
	}
	bin := encodeBundles(t, bundle)

	text := Disassemble(bin)
	assert.Contains(t, text, "fconstants 1, 0, 0.5, 1")
}

func TestConditionalBranch(t *testing.T) {
	br := mir.AluBranch(isa.JumpOpBranchCond, mir.TargetGoto, 0, true, false)
	br.Unit = isa.UnitBrCompact
	bp := new(mir.Instruction)
	*bp = br
	mov := aluIns(isa.OpFMov, isa.UnitVMUL, isa.RegInfo{})

	p := &mir.Program{}
	b0 := p.AddBlock()
	b0.Bundles = []*mir.Bundle{aluBundle(isa.TagALU4, mov)}
	b0.QuadwordCount = 1
	b1 := p.AddBlock()
	b1.Bundles = []*mir.Bundle{aluBundle(isa.TagALU4, bp)}
	b1.QuadwordCount = 1

	bin, _, err := encode.Encode(p)
	require.NoError(t, err)

	text := Disassemble(bin)
	assert.Contains(t, text, "br.cond.true -2 -> alu1/8")
}

func TestWriteoutBranch(t *testing.T) {
	writeout := mir.New(isa.TagALU4)
	writeout.CompactBranch = true
	writeout.PrepackedOp = true
	writeout.Unit = isa.UnitBrCompact
	writeout.PackedCompact = isa.BranchCond{
		Op:      isa.JumpOpWriteout,
		DestTag: isa.TagALU4,
		Cond:    isa.ConditionAlways,
	}.Pack()
	bp := new(mir.Instruction)
	*bp = writeout
	mov := aluIns(isa.OpFMov, isa.UnitVMUL, isa.RegInfo{})
	bin := encodeBundles(t, aluBundle(isa.TagALU4Writeout, mov, bp))

	text := Disassemble(bin)
	assert.Contains(t, text, "br.write.always +0 -> alu1/8")
}

func TestLoadStorePair(t *testing.T) {
	pair := isa.LoadStorePair{
		Type:     isa.TagLoadStore4,
		NextType: isa.TagBreak,
		Word1: isa.LoadStoreWord{
			Op:      isa.OpLdAttr32,
			Reg:     1,
			Mask:    0xF,
			Swizzle: isa.SwizzleXYZW,
			Address: 26,
		},
		Word2: isa.NopLoadStoreWord(),
	}
	packed := pair.Pack()

	text := Disassemble(packed[:])
	assert.Contains(t, text, "ld_attr_32 r1.xyzw, 26")
	assert.NotContains(t, text, "ld_st_noop")
}

func TestUniformAddressReassembly(t *testing.T) {
	pair := isa.LoadStorePair{
		Type:     isa.TagLoadStore4,
		NextType: isa.TagBreak,
		Word1: isa.LoadStoreWord{
			Op:                isa.OpLdUniform32,
			Reg:               2,
			Mask:              0xF,
			Swizzle:           isa.SwizzleXYZW,
			Address:           3,
			VaryingParameters: 1 << 7,
		},
		Word2: isa.NopLoadStoreWord(),
	}
	packed := pair.Pack()

	text := Disassemble(packed[:])
	assert.Contains(t, text, "ld_uniform_32 r2.xyzw, 25")
}

func TestVaryingQualifiers(t *testing.T) {
	pair := isa.LoadStorePair{
		Type:     isa.TagLoadStore4,
		NextType: isa.TagBreak,
		Word1: isa.LoadStoreWord{
			Op:      isa.OpLdVary32,
			Mask:    0xF,
			Swizzle: isa.SwizzleXYZW,
			VaryingParameters: isa.VaryingParameter{
				IsVarying:     true,
				Flat:          true,
				Interpolation: isa.InterpCentroid,
			}.Pack(),
		},
		Word2: isa.NopLoadStoreWord(),
	}
	packed := pair.Pack()

	text := Disassemble(packed[:])
	assert.Contains(t, text, "ld_vary_32.flat.centroid")
}

func TestTextureWord(t *testing.T) {
	word := isa.TextureWord{
		Type:     isa.TagTexture4,
		NextType: isa.TagALU4,

		Op:      isa.TexOpNormal,
		Format:  isa.TexFormat2D,
		Filter:  true,
		Last:    true,
		OutFull: true,
		Mask:    0xF,
		Swizzle: isa.SwizzleXYZW,

		Unknown7: 1,

		InRegSwizzleLeft:  isa.ComponentX,
		InRegSwizzleRight: isa.ComponentY,

		TextureHandle: 2,
		SamplerHandle: 1,
	}
	packed := word.Pack()

	text := Disassemble(packed[:])
	assert.Contains(t, text, "texture.normal.2d.last r28.xyzw, texture2, sampler1, r28.xy")
	assert.NotContains(t, text, "unknown7")
}

func TestPrefetchTerminatorStopsTheWalk(t *testing.T) {
	pair := isa.LoadStorePair{
		Type:     isa.TagLoadStore4,
		NextType: isa.TagBreak,
		Word1:    isa.NopLoadStoreWord(),
		Word2:    isa.NopLoadStoreWord(),
	}
	packed := pair.Pack()

	code := append(packed[:], make([]byte, 16)...)
	text := Disassemble(code)
	assert.NotContains(t, text, "unknown word type")
}
