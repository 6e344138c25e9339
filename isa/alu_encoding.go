package isa

// VectorALUSrc describes one source of a vector ALU operation. It packs
// into a 13-bit field of the instruction body.
type VectorALUSrc struct {
	Abs     bool
	Negate  bool
	RepLow  bool
	RepHigh bool
	Half    bool
	Swizzle uint8
}

// Pack encodes the source into its 13-bit form.
func (s VectorALUSrc) Pack() uint16 {
	var v uint16
	if s.Abs {
		v |= 1 << 0
	}
	if s.Negate {
		v |= 1 << 1
	}
	if s.RepLow {
		v |= 1 << 2
	}
	if s.RepHigh {
		v |= 1 << 3
	}
	if s.Half {
		v |= 1 << 4
	}
	v |= uint16(s.Swizzle) << 5
	return v
}

// UnpackVectorALUSrc decodes a 13-bit source field.
func UnpackVectorALUSrc(v uint16) VectorALUSrc {
	return VectorALUSrc{
		Abs:     v&(1<<0) != 0,
		Negate:  v&(1<<1) != 0,
		RepLow:  v&(1<<2) != 0,
		RepHigh: v&(1<<3) != 0,
		Half:    v&(1<<4) != 0,
		Swizzle: uint8(v >> 5),
	}
}

// ApplySwizzle composes sw onto the source's existing swizzle.
func (s VectorALUSrc) ApplySwizzle(sw uint8) VectorALUSrc {
	s.Swizzle = ComposeSwizzle(s.Swizzle, sw)
	return s
}

// VectorALU is the 48-bit body of a vector ALU sub-instruction.
type VectorALU struct {
	Op           ALUOp
	RegMode      RegMode
	Src1         VectorALUSrc
	Src2         VectorALUSrc
	Src2Imm      uint16 // raw 13-bit field when the bundle uses an inline immediate
	UseImmField  bool
	DestOverride DestOverride
	OutMod       OutMod
	Mask         uint8
}

// Pack encodes the body into its 48-bit form, low bits first.
func (a VectorALU) Pack() uint64 {
	src2 := uint64(a.Src2.Pack())
	if a.UseImmField {
		src2 = uint64(a.Src2Imm)
	}
	return uint64(a.Op) |
		uint64(a.RegMode)<<8 |
		uint64(a.Src1.Pack())<<10 |
		src2<<23 |
		uint64(a.DestOverride)<<36 |
		uint64(a.OutMod)<<38 |
		uint64(a.Mask)<<40
}

// UnpackVectorALU decodes a 48-bit vector ALU body.
func UnpackVectorALU(v uint64) VectorALU {
	raw := uint16(v >> 23 & 0x1FFF)
	return VectorALU{
		Op:           ALUOp(v),
		RegMode:      RegMode(v >> 8 & 3),
		Src1:         UnpackVectorALUSrc(uint16(v >> 10 & 0x1FFF)),
		Src2:         UnpackVectorALUSrc(raw),
		Src2Imm:      raw,
		DestOverride: DestOverride(v >> 36 & 3),
		OutMod:       OutMod(v >> 38 & 3),
		Mask:         uint8(v >> 40),
	}
}

// ScalarALUSrc describes one source of a scalar ALU operation (6 bits).
type ScalarALUSrc struct {
	Abs       bool
	Negate    bool
	Full      bool
	Component uint8
}

// Pack encodes the source into its 6-bit form.
func (s ScalarALUSrc) Pack() uint16 {
	var v uint16
	if s.Abs {
		v |= 1 << 0
	}
	if s.Negate {
		v |= 1 << 1
	}
	if s.Full {
		v |= 1 << 2
	}
	v |= uint16(s.Component&7) << 3
	return v
}

// UnpackScalarALUSrc decodes a 6-bit source field.
func UnpackScalarALUSrc(v uint16) ScalarALUSrc {
	return ScalarALUSrc{
		Abs:       v&(1<<0) != 0,
		Negate:    v&(1<<1) != 0,
		Full:      v&(1<<2) != 0,
		Component: uint8(v >> 3 & 7),
	}
}

// ScalarALU is the 32-bit body of a scalar ALU sub-instruction.
type ScalarALU struct {
	Op              ALUOp
	Src1            ScalarALUSrc
	Src2            ScalarALUSrc
	Src2Imm         uint16 // raw 11-bit field when the bundle uses an inline immediate
	UseImmField     bool
	OutMod          OutMod
	OutputFull      bool
	OutputComponent uint8
}

// Pack encodes the body into its 32-bit form.
func (a ScalarALU) Pack() uint32 {
	src2 := uint32(a.Src2.Pack())
	if a.UseImmField {
		src2 = uint32(a.Src2Imm & 0x7FF)
	}
	v := uint32(a.Op) |
		uint32(a.Src1.Pack())<<8 |
		src2<<14 |
		uint32(a.OutMod)<<26 |
		uint32(a.OutputComponent&7)<<29
	if a.OutputFull {
		v |= 1 << 28
	}
	return v
}

// UnpackScalarALU decodes a 32-bit scalar ALU body.
func UnpackScalarALU(v uint32) ScalarALU {
	raw := uint16(v >> 14 & 0x7FF)
	return ScalarALU{
		Op:              ALUOp(v),
		Src1:            UnpackScalarALUSrc(uint16(v >> 8 & 0x3F)),
		Src2:            UnpackScalarALUSrc(uint16(raw & 0x3F)),
		Src2Imm:         raw,
		OutMod:          OutMod(v >> 26 & 3),
		OutputFull:      v&(1<<28) != 0,
		OutputComponent: uint8(v >> 29 & 7),
	}
}

// RegInfo is the 16-bit register descriptor preceding each ALU body.
type RegInfo struct {
	Src1Reg uint8
	Src2Reg uint8
	OutReg  uint8
	Src2Imm bool
}

// Pack encodes the descriptor into its 16-bit form.
func (r RegInfo) Pack() uint16 {
	v := uint16(r.Src1Reg&31) |
		uint16(r.Src2Reg&31)<<5 |
		uint16(r.OutReg&31)<<11
	if r.Src2Imm {
		v |= 1 << 10
	}
	return v
}

// UnpackRegInfo decodes a 16-bit register descriptor.
func UnpackRegInfo(v uint16) RegInfo {
	return RegInfo{
		Src1Reg: uint8(v & 31),
		Src2Reg: uint8(v >> 5 & 31),
		OutReg:  uint8(v >> 11 & 31),
		Src2Imm: v&(1<<10) != 0,
	}
}

// EncodeVectorImm splits a 16-bit inline immediate across the src2
// register slot (top five bits) and the vector source field.
func EncodeVectorImm(imm uint16) (src2Reg uint8, field uint16) {
	lower := imm & 0x7FF
	field = ((lower >> 8 & 0x7) | (lower & 0xFF << 3)) << 2
	return uint8(imm >> 11), field
}

// DecodeVectorImm reassembles an inline immediate from its vector
// encoding. field is the raw 13-bit src2 value.
func DecodeVectorImm(src2Reg uint8, field uint16) uint16 {
	imm := field >> 2
	var ret uint16
	ret = uint16(src2Reg) << 11
	ret |= (imm & 0x7) << 8
	ret |= imm >> 3 & 0xFF
	return ret
}

// EncodeScalarImm splits a 16-bit inline immediate across the src2
// register slot and the 11-bit scalar source field.
func EncodeScalarImm(imm uint16) (src2Reg uint8, field uint16) {
	lower := imm & 0x7FF
	field = lower >> 9 & 3
	field |= lower >> 6 & 4
	field |= lower >> 2 & 0x38
	field |= lower & 63 << 6
	return uint8(imm >> 11), field
}

// DecodeScalarImm reassembles an inline immediate from its scalar
// encoding.
func DecodeScalarImm(src2Reg uint8, field uint16) uint16 {
	var ret uint16
	ret = uint16(src2Reg) << 11
	ret |= (field & 3) << 9
	ret |= (field & 4) << 6
	ret |= (field & 0x38) << 2
	ret |= field >> 6
	return ret
}
