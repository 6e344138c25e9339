package lower

import (
	"github.com/gogpu/midgard/ir"
	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

func texFormat(d ir.TexDim) uint8 {
	switch d {
	case ir.TexDim3D:
		return isa.TexFormat3D
	case ir.TexDimCube:
		return isa.TexFormatCube
	default:
		return isa.TexFormat2D
	}
}

func (c *context) emitTex(t *ir.Tex) error {
	// The texture pipe owns r28/r29; alternate between them so two
	// back-to-back samples do not collide.
	reg := c.texOpCount & 1

	// Evict whatever result was parked in this register.
	if c.textureIndex[reg] != isa.IndexUnused {
		c.unalias(c.textureIndex[reg])
	}

	coord := c.valueIndex(t.Coord.Value)
	texReg := isa.FixedRegister(isa.RegisterTextureBase + reg)

	if t.Dim == ir.TexDimCube {
		// Cubemap coordinates load through r27 and a dedicated
		// load/store op copies them into the texture register.
		mov := mir.Mov(isa.FixedRegister(isa.RegisterOffset), coord)
		mov.Mod[1].Swizzle = isa.Swizzle(isa.ComponentX, isa.ComponentY, isa.ComponentZ, isa.ComponentX)
		c.emit(mov)

		st := mir.Store(isa.OpStCubemapCoords, texReg, 0)
		st.LoadStore.Unknown = 0x24
		st.LoadStore.Mask = 0x3
		st.Mask = 0x3
		st.LoadStore.Swizzle = mov.Mod[1].Swizzle
		c.emit(st)
	} else {
		mov := mir.Mov(texReg, coord)
		mov.Mod[1].Swizzle = isa.Swizzle(isa.ComponentX, isa.ComponentY, isa.ComponentX, isa.ComponentX)
		c.emit(mov)
	}

	op := uint8(isa.TexOpNormal)
	if t.Kind == ir.TexOpFetch {
		op = isa.TexOpTexelFetch
	}

	ins := mir.New(isa.TagTexture4)
	ins.Mask = 0xF
	ins.Texture = isa.TextureWord{
		Op:            op,
		Format:        texFormat(t.Dim),
		TextureHandle: uint16(t.Texture),
		SamplerHandle: uint16(t.Sampler),

		Swizzle: isa.SwizzleXYZW,
		Mask:    0xF,

		OutFull: true,
		Filter:  true,

		// Always set on sampling words.
		Unknown7: 1,

		// Assume another texture op follows; the scheduler clears
		// this on the last one.
		Cont: true,

		InRegSelect:  reg == 1,
		OutRegSelect: reg == 1,
	}

	if t.Dim == ir.TexDim3D {
		ins.Texture.InRegSwizzleRight = isa.ComponentX
		ins.Texture.InRegSwizzleLeft = isa.ComponentY
	} else {
		ins.Texture.InRegSwizzleLeft = isa.ComponentX
		ins.Texture.InRegSwizzleRight = isa.ComponentY
	}

	c.emit(ins)

	// Alias the destination onto the texture register and emit a
	// copy out of it; the copy dies if every use gets rewritten.
	dest := c.valueIndex(t.Dest.Value)
	c.alias(dest, texReg)
	c.textureIndex[reg] = dest
	c.emit(mir.Mov(dest, texReg))

	c.texOpCount++
	return nil
}
