package isa

// BranchUncond is the 16-bit unconditional branch word.
type BranchUncond struct {
	Op      JumpOp
	DestTag Tag
	Unknown uint8
	Offset  int8 // signed, 7 bits
}

// Pack encodes the branch into its 16-bit form.
func (b BranchUncond) Pack() uint16 {
	return uint16(b.Op&7) |
		uint16(b.DestTag&0xF)<<3 |
		uint16(b.Unknown&3)<<7 |
		uint16(uint8(b.Offset)&0x7F)<<9
}

// UnpackBranchUncond decodes a 16-bit unconditional branch word.
func UnpackBranchUncond(v uint16) BranchUncond {
	return BranchUncond{
		Op:      JumpOp(v & 7),
		DestTag: Tag(v >> 3 & 0xF),
		Unknown: uint8(v >> 7 & 3),
		Offset:  signExtend7(uint8(v >> 9 & 0x7F)),
	}
}

// BranchCond is the 16-bit conditional branch word.
type BranchCond struct {
	Op      JumpOp
	DestTag Tag
	Offset  int8 // signed, 7 bits
	Cond    Condition
}

// Pack encodes the branch into its 16-bit form.
func (b BranchCond) Pack() uint16 {
	return uint16(b.Op&7) |
		uint16(b.DestTag&0xF)<<3 |
		uint16(uint8(b.Offset)&0x7F)<<7 |
		uint16(b.Cond&3)<<14
}

// UnpackBranchCond decodes a 16-bit conditional branch word.
func UnpackBranchCond(v uint16) BranchCond {
	return BranchCond{
		Op:      JumpOp(v & 7),
		DestTag: Tag(v >> 3 & 0xF),
		Offset:  signExtend7(uint8(v >> 7 & 0x7F)),
		Cond:    Condition(v >> 14 & 3),
	}
}

// BranchExtended is the 48-bit long-range branch word. Cond holds a
// 2-bit condition replicated once per channel.
type BranchExtended struct {
	Op      JumpOp
	DestTag Tag
	Unknown uint8
	Offset  int32 // signed, 23 bits
	Cond    uint16
}

// Pack encodes the branch into its 48-bit form.
func (b BranchExtended) Pack() uint64 {
	return uint64(b.Op&7) |
		uint64(b.DestTag&0xF)<<3 |
		uint64(b.Unknown&3)<<7 |
		uint64(uint32(b.Offset)&0x7FFFFF)<<9 |
		uint64(b.Cond)<<32
}

// UnpackBranchExtended decodes a 48-bit branch word.
func UnpackBranchExtended(v uint64) BranchExtended {
	off := uint32(v >> 9 & 0x7FFFFF)
	if off&(1<<22) != 0 {
		off |= ^uint32(0x7FFFFF)
	}
	return BranchExtended{
		Op:      JumpOp(v & 7),
		DestTag: Tag(v >> 3 & 0xF),
		Unknown: uint8(v >> 7 & 3),
		Offset:  int32(off),
		Cond:    uint16(v >> 32),
	}
}

// ReplicateCond spreads a 2-bit condition across the eight channel
// slots of an extended branch.
func ReplicateCond(c Condition) uint16 {
	var v uint16
	for i := 0; i < 8; i++ {
		v |= uint16(c&3) << (2 * i)
	}
	return v
}

func signExtend7(v uint8) int8 {
	if v&(1<<6) != 0 {
		v |= 1 << 7
	}
	return int8(v)
}
