package isa

import "math"

// FloatToHalf converts a float32 to IEEE 754 binary16, rounding to
// nearest even. Out-of-range values become infinities.
func FloatToHalf(f float32) uint16 {
	u := math.Float32bits(f)
	sign := uint16(u >> 16 & 0x8000)
	exp := int32(u>>23&0xFF) - 127
	mant := u & 0x7FFFFF

	switch {
	case exp == 128: // inf or nan
		if mant != 0 {
			return sign | 0x7E00
		}
		return sign | 0x7C00
	case exp > 15:
		return sign | 0x7C00
	case exp >= -14:
		h := sign | uint16(exp+15)<<10 | uint16(mant>>13)
		// round to nearest even
		if mant&0x1FFF > 0x1000 || (mant&0x1FFF == 0x1000 && h&1 != 0) {
			h++
		}
		return h
	case exp >= -24:
		// subnormal
		mant |= 1 << 23
		shift := uint32(-exp - 1)
		h := sign | uint16(mant>>shift&0x3FF)
		rem := mant & (1<<shift - 1)
		half := uint32(1) << (shift - 1)
		if rem > half || (rem == half && h&1 != 0) {
			h++
		}
		return h
	default:
		return sign
	}
}

// HalfToFloat converts an IEEE 754 binary16 value to float32.
func HalfToFloat(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h >> 10 & 0x1F)
	mant := uint32(h & 0x3FF)

	switch {
	case exp == 0x1F:
		return math.Float32frombits(sign | 0x7F800000 | mant<<13)
	case exp != 0:
		return math.Float32frombits(sign | (exp+112)<<23 | mant<<13)
	case mant != 0:
		// subnormal: normalize
		e := uint32(113)
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		return math.Float32frombits(sign | e<<23 | (mant&0x3FF)<<13)
	default:
		return math.Float32frombits(sign)
	}
}
