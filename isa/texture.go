package isa

// Texture opcodes and dimension formats.
const (
	TexOpNormal     = 0x11
	TexOpTexelFetch = 0x14

	TexFormatCube = 0x00
	TexFormat2D   = 0x02
	TexFormat3D   = 0x03
)

// TextureWord is the full 128-bit texture bundle. Unknown fields carry
// hardware state that is preserved verbatim through a round trip.
type TextureWord struct {
	Type     Tag
	NextType Tag

	Op       uint8
	Shadow   bool
	Unknown3 bool

	// last is set on the final texture operation of the shader and
	// cont on every other one.
	Cont bool
	Last bool

	Format    uint8
	HasOffset bool
	Filter    bool

	InRegSelect       bool
	InRegUpper        bool
	InRegSwizzleLeft  uint8
	InRegSwizzleRight uint8

	Unknown1 uint8
	Unknown8 uint8

	OutFull      bool
	Unknown7     uint8
	OutRegSelect bool
	OutUpper     bool
	Mask         uint8
	Unknown2     uint8

	Swizzle  uint8
	Unknown4 uint8

	UnknownA        uint8
	OffsetUnknown1  bool
	OffsetRegSelect bool
	OffsetRegUpper  bool
	OffsetUnknown4  bool
	OffsetUnknown5  bool
	OffsetUnknown6  bool
	OffsetUnknown7  bool
	OffsetUnknown8  bool
	OffsetUnknown9  bool
	UnknownB        uint8

	// Bias in a fragment shader, LOD in a vertex shader, encoded as
	// int(2^8 * biasf). For texel fetch it is the LOD directly.
	Bias     uint8
	Unknown9 uint8

	TextureHandle uint16
	SamplerHandle uint16
}

func bit(b bool, n uint) uint64 {
	if b {
		return 1 << n
	}
	return 0
}

// Pack encodes the word into 16 bytes, little endian.
func (t TextureWord) Pack() [16]byte {
	lo := uint64(t.Type&0xF) |
		uint64(t.NextType&0xF)<<4 |
		uint64(t.Op&0x3F)<<8 |
		bit(t.Shadow, 14) |
		bit(t.Unknown3, 15) |
		bit(t.Cont, 16) |
		bit(t.Last, 17) |
		uint64(t.Format&31)<<18 |
		bit(t.HasOffset, 23) |
		bit(t.Filter, 24) |
		bit(t.InRegSelect, 25) |
		bit(t.InRegUpper, 26) |
		uint64(t.InRegSwizzleLeft&3)<<27 |
		uint64(t.InRegSwizzleRight&3)<<29 |
		uint64(t.Unknown1&3)<<31 |
		uint64(t.Unknown8&0xF)<<33 |
		bit(t.OutFull, 37) |
		uint64(t.Unknown7&3)<<38 |
		bit(t.OutRegSelect, 40) |
		bit(t.OutUpper, 41) |
		uint64(t.Mask&0xF)<<42 |
		uint64(t.Unknown2&3)<<46 |
		uint64(t.Swizzle)<<48 |
		uint64(t.Unknown4)<<56
	hi := uint64(t.UnknownA&0xF) |
		bit(t.OffsetUnknown1, 4) |
		bit(t.OffsetRegSelect, 5) |
		bit(t.OffsetRegUpper, 6) |
		bit(t.OffsetUnknown4, 7) |
		bit(t.OffsetUnknown5, 8) |
		bit(t.OffsetUnknown6, 9) |
		bit(t.OffsetUnknown7, 10) |
		bit(t.OffsetUnknown8, 11) |
		bit(t.OffsetUnknown9, 12) |
		uint64(t.UnknownB&7)<<13 |
		uint64(t.Bias)<<16 |
		uint64(t.Unknown9)<<24 |
		uint64(t.TextureHandle)<<32 |
		uint64(t.SamplerHandle)<<48
	var out [16]byte
	putUint64(out[0:8], lo)
	putUint64(out[8:16], hi)
	return out
}

// UnpackTextureWord decodes a 128-bit texture bundle.
func UnpackTextureWord(b [16]byte) TextureWord {
	lo := getUint64(b[0:8])
	hi := getUint64(b[8:16])
	return TextureWord{
		Type:     Tag(lo & 0xF),
		NextType: Tag(lo >> 4 & 0xF),
		Op:       uint8(lo >> 8 & 0x3F),
		Shadow:   lo&(1<<14) != 0,
		Unknown3: lo&(1<<15) != 0,
		Cont:     lo&(1<<16) != 0,
		Last:     lo&(1<<17) != 0,

		Format:    uint8(lo >> 18 & 31),
		HasOffset: lo&(1<<23) != 0,
		Filter:    lo&(1<<24) != 0,

		InRegSelect:       lo&(1<<25) != 0,
		InRegUpper:        lo&(1<<26) != 0,
		InRegSwizzleLeft:  uint8(lo >> 27 & 3),
		InRegSwizzleRight: uint8(lo >> 29 & 3),

		Unknown1: uint8(lo >> 31 & 3),
		Unknown8: uint8(lo >> 33 & 0xF),

		OutFull:      lo&(1<<37) != 0,
		Unknown7:     uint8(lo >> 38 & 3),
		OutRegSelect: lo&(1<<40) != 0,
		OutUpper:     lo&(1<<41) != 0,
		Mask:         uint8(lo >> 42 & 0xF),
		Unknown2:     uint8(lo >> 46 & 3),

		Swizzle:  uint8(lo >> 48),
		Unknown4: uint8(lo >> 56),

		UnknownA:        uint8(hi & 0xF),
		OffsetUnknown1:  hi&(1<<4) != 0,
		OffsetRegSelect: hi&(1<<5) != 0,
		OffsetRegUpper:  hi&(1<<6) != 0,
		OffsetUnknown4:  hi&(1<<7) != 0,
		OffsetUnknown5:  hi&(1<<8) != 0,
		OffsetUnknown6:  hi&(1<<9) != 0,
		OffsetUnknown7:  hi&(1<<10) != 0,
		OffsetUnknown8:  hi&(1<<11) != 0,
		OffsetUnknown9:  hi&(1<<12) != 0,
		UnknownB:        uint8(hi >> 13 & 7),

		Bias:     uint8(hi >> 16),
		Unknown9: uint8(hi >> 24),

		TextureHandle: uint16(hi >> 32),
		SamplerHandle: uint16(hi >> 48),
	}
}
