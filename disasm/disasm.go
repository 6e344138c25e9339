// Package disasm renders compiled binaries back into readable
// assembly. Decoding is best effort: unknown opcodes and unexplained
// hardware bits come out as comments rather than errors, since the
// output exists to diagnose the encoder and the ISA rather than to be
// consumed by tools.
package disasm

import (
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/midgard/isa"
)

// Disassemble decodes a compiled binary into text. Each quadword's low
// nibble selects the pipe; the walk stops at the prefetch terminator so
// trailing data is not misread as instructions.
func Disassemble(code []byte) string {
	w := &walker{}

	prefetch := false
	for i := 0; i+16 <= len(code); {
		tag := isa.Tag(code[i] & 0xF)
		quads := tag.Quadwords()

		switch {
		case tag.IsTexture():
			w.textureWord(code[i : i+16])

		case tag == isa.TagLoadStore4:
			w.loadStoreWord(code[i : i+16])

		case tag.IsALU():
			if i+16*quads > len(code) {
				w.printf("/* truncated %v bundle */\n", tag)
				return w.out.String()
			}
			w.aluWord(code[i:i+16*quads], quads)

			if prefetch {
				return w.out.String()
			}

			// Constant analysis is per ALU word.
			w.constantHalf = false
			w.constantInt = false

		default:
			w.printf("unknown word type %X:\n", uint8(tag))
			quads = 1
			w.quadWord(code[i : i+16])
		}

		w.printf("\n")

		next := code[i] >> 4 & 0xF
		i += 16 * quads

		// The prefetch nibble marks the final real instruction: a
		// terminator before the end means what follows is data.
		if i < len(code) && next == uint8(isa.TagBreak) {
			prefetch = true

			if !isa.Tag(code[i] & 0xF).IsALU() {
				return w.out.String()
			}
		}
	}
	return w.out.String()
}

// walker accumulates output plus the static analysis the constant
// banner needs: whether the current instruction is an integer op, and
// whether anything in the word read r26 at narrow or integer width.
type walker struct {
	out strings.Builder

	instructionInt bool
	constantHalf   bool
	constantInt    bool
}

func (w *walker) printf(format string, args ...interface{}) {
	fmt.Fprintf(&w.out, format, args...)
}

const components = "xyzwefghijklmnop"

func (w *walker) quadWord(word []byte) {
	for i := 0; i < 4; i++ {
		sep := ","
		if i == 3 {
			sep = ""
		}
		w.printf("0x%08X%s ", le32(word[4*i:]), sep)
	}
	w.printf("\n")
}

// Short tag form used in branch targets.
func (w *walker) tagShort(tag isa.Tag) {
	switch {
	case tag.IsTexture():
		w.printf("tex/%X", uint8(tag))
	case tag == isa.TagLoadStore4:
		w.printf("ldst")
	case tag.IsALU():
		w.printf("alu%d/%X", tag.Quadwords(), uint8(tag))
	case tag > 0:
		w.printf("%X", uint8(tag))
	default:
		w.printf("unk%X", uint8(tag))
	}
}

func (w *walker) aluOpcode(op isa.ALUOp) {
	if name := op.Name(); name != "" {
		w.printf("%s", name)
	} else {
		w.printf("alu_op_%02X", uint8(op))
	}
	w.instructionInt = op.IsInteger()
}

func prefixForBits(bits int) byte {
	switch bits {
	case 8:
		return 'q'
	case 16:
		return 'h'
	case 64:
		return 'd'
	}
	return 0
}

func (w *walker) reg(reg uint8, bits int) {
	// Reads of r26 decide how the embedded constants print.
	if reg == isa.RegisterConstant {
		w.constantInt = w.instructionInt
		w.constantHalf = bits < 32
	}

	if p := prefixForBits(bits); p != 0 {
		w.out.WriteByte(p)
	}
	w.printf("r%d", reg)
}

var outmodFloat = [4]string{"", ".pos", ".unk2", ".sat"}
var outmodInt = [4]string{".isat", ".usat", "", ".hi"}
var srcmodInt = [4]string{"sext(", "zext(", "", "("}

const intModShift = 3

func (w *walker) outmod(mod isa.OutMod, isInt bool) {
	if isInt {
		w.printf("%s", outmodInt[mod&3])
	} else {
		w.printf("%s", outmodFloat[mod&3])
	}
}

func (w *walker) swizzleLanes(swizzle uint8, upper bool) {
	for i := 0; i < 4; i++ {
		c := isa.SwizzleLane(swizzle, i)
		if upper {
			c += 4
		}
		w.out.WriteByte(components[c])
	}
}

func (w *walker) swizzleLanesDoubled(swizzle uint8, upper bool) {
	for i := 0; i < 4; i++ {
		c := isa.SwizzleLane(swizzle, i) * 2
		if upper {
			c += 8
		}
		w.out.WriteByte(components[c])
		w.out.WriteByte(components[c+1])
	}
}

func (w *walker) repComments(src isa.VectorALUSrc) {
	if src.RepHigh {
		w.printf(" /* rep_high */ ")
	}
	if src.RepLow {
		w.printf(" /* rep_low */ ")
	}
}

func (w *walker) swizzleVec4(swizzle uint8, src isa.VectorALUSrc) {
	w.repComments(src)
	if swizzle == isa.SwizzleXYZW {
		return
	}
	w.printf(".")
	w.swizzleLanes(swizzle, false)
}

func (w *walker) swizzleVec8(swizzle uint8, src isa.VectorALUSrc) {
	w.printf(".")
	w.swizzleLanes(swizzle, src.RepHigh)
	w.swizzleLanes(swizzle, !src.RepLow)
}

func (w *walker) swizzleVec16(swizzle uint8, src isa.VectorALUSrc, override isa.DestOverride) {
	w.printf(".")
	if override == isa.DestOverrideUpper {
		w.repComments(src)
		w.swizzleLanesDoubled(swizzle, !src.RepHigh && src.RepLow)
	} else {
		w.swizzleLanesDoubled(swizzle, src.RepHigh)
		w.swizzleLanesDoubled(swizzle, !src.RepLow)
	}
}

func (w *walker) swizzleVec2(swizzle uint8, src isa.VectorALUSrc) {
	w.repComments(src)
	if swizzle == isa.SwizzleXYZW {
		return
	}
	w.printf(".")
	for i := 0; i < 4; i += 2 {
		a := isa.SwizzleLane(swizzle, i)
		b := isa.SwizzleLane(swizzle, i+1)

		// Lane pairs normally sit adjacent; anything else is spelled
		// out so the output stays unambiguous.
		switch {
		case a&1 != 0:
			w.printf("[%c%c]", components[a], components[b])
		case a == b:
			w.printf("%c", components[a>>1])
		case b == a+1:
			w.printf("%c", "XY"[a>>1])
		default:
			w.printf("[%c%c]", components[a], components[b])
		}
	}
}

func bitsForMode(mode isa.RegMode) int { return mode.Bits() }

func (w *walker) vectorSrc(src isa.VectorALUSrc, mode isa.RegMode, reg uint8, override isa.DestOverride, isInt bool) {
	intMod := 0
	if src.Abs {
		intMod |= 1
	}
	if src.Negate {
		intMod |= 2
	}

	if isInt {
		w.printf("%s", srcmodInt[intMod])
	} else {
		if src.Negate {
			w.printf("-")
		}
		if src.Abs {
			w.printf("abs(")
		}
	}

	bits := bitsForMode(mode)
	if src.Half {
		bits >>= 1
	}
	w.reg(reg, bits)

	switch bits {
	case 16:
		w.swizzleVec8(src.Swizzle, src)
	case 8:
		w.swizzleVec16(src.Swizzle, src, override)
	case 32:
		w.swizzleVec4(src.Swizzle, src)
	case 64:
		w.swizzleVec2(src.Swizzle, src)
	}

	switch {
	case isInt && intMod == intModShift:
		w.printf(") << %d", bits)
	case isInt && intMod != 2:
		w.printf(")")
	case !isInt && src.Abs:
		w.printf(")")
	}
}

func (w *walker) immediate(imm uint16) {
	if w.instructionInt {
		w.printf("#%d", imm)
	} else {
		w.printf("#%g", isa.HalfToFloat(imm))
	}
}

func (w *walker) dest(reg uint8, mode isa.RegMode, override isa.DestOverride) int {
	bits := bitsForMode(mode)
	if override != isa.DestOverrideNone {
		bits /= 2
	}
	w.reg(reg, bits)
	return bits
}

func (w *walker) maskVec16(mask uint8, override isa.DestOverride) {
	w.printf(".")
	if override == isa.DestOverrideNone {
		for i := 0; i < 8; i++ {
			if mask&(1<<i) != 0 {
				w.out.WriteByte(components[i*2])
				w.out.WriteByte(components[i*2+1])
			}
		}
		return
	}
	off := 0
	if override == isa.DestOverrideUpper {
		off = 8
	}
	for i := 0; i < 8; i++ {
		if mask&(1<<i) != 0 {
			w.out.WriteByte(components[i+off])
		}
	}
}

// mask prints the 8-bit write mask at its logical width: one bit per
// half-word lane, so wider modes cover the lane pairs (or quads) and
// any straddling duplicate bits are surfaced raw.
func (w *walker) mask(mask uint8, bits int, override isa.DestOverride) {
	if bits == 8 {
		w.maskVec16(mask, override)
		return
	}

	if bits >= 32 && mask == 0xFF {
		return
	}
	if bits == 16 {
		if mask == 0x0F {
			return
		}
		if mask == 0xF0 {
			w.printf("'")
			return
		}
	}

	skip := bits / 16
	if skip < 1 {
		// Lanes narrower than 16 bits have no component spelling at
		// this width. Surface the raw mask instead of guessing.
		w.printf(" /* %X */", mask)
		return
	}

	w.printf(".")

	uppercase := bits > 32
	tripped := false

	for i := 0; i < 8; i += skip {
		a := mask&(1<<i) != 0
		for j := 1; j < skip; j++ {
			if (mask&(1<<(i+j)) != 0) != a {
				tripped = true
			}
		}
		if a {
			c := components[i/skip]
			if uppercase {
				c = c &^ 0x20
			}
			w.out.WriteByte(c)
		}
	}

	if tripped {
		w.printf(" /* %X */", mask)
	}
}

func (w *walker) mask4(mask uint8) {
	w.printf(".")
	for i := 0; i < 4; i++ {
		if mask&(1<<i) != 0 {
			w.out.WriteByte(components[i])
		}
	}
}

func (w *walker) vectorField(name string, body uint64, regWord uint16) {
	regs := isa.UnpackRegInfo(regWord)
	alu := isa.UnpackVectorALU(body)
	mode := alu.RegMode
	override := alu.DestOverride

	w.printf("%s.", name)
	w.aluOpcode(alu.Op)

	// With an override the destination width is no longer implied by
	// the op, so disambiguate with a size postfix.
	if override != isa.DestOverrideNone {
		if p := prefixForBits(bitsForMode(mode)); p != 0 {
			w.out.WriteByte(p)
		} else {
			w.printf("r")
		}
	}

	w.outmod(alu.OutMod, alu.Op.IsIntegerOut())
	w.printf(" ")

	mask := alu.Mask
	destSize := w.dest(regs.OutReg, mode, override)

	if mode == isa.RegMode32 || mode == isa.RegMode64 {
		switch override {
		case isa.DestOverrideLower:
			mask &= 0x0F
		case isa.DestOverrideUpper:
			mask &= 0xF0
		}
	}

	if override != isa.DestOverrideNone {
		known := override != 3
		if mode == isa.RegMode8 || !known {
			w.printf("/* do%d */ ", override)
		}
	}

	w.mask(mask, destSize, override)
	w.printf(", ")

	isInt := alu.Op.IsInteger()
	w.vectorSrc(alu.Src1, mode, regs.Src1Reg, override, isInt)
	w.printf(", ")

	if regs.Src2Imm {
		w.immediate(isa.DecodeVectorImm(regs.Src2Reg, alu.Src2Imm))
	} else {
		w.vectorSrc(alu.Src2, mode, regs.Src2Reg, override, isInt)
	}

	w.printf("\n")
}

func (w *walker) scalarSrc(src isa.ScalarALUSrc, reg uint8) {
	if src.Negate {
		w.printf("-")
	}
	if src.Abs {
		w.printf("abs(")
	}

	bits := 16
	if src.Full {
		bits = 32
	}
	w.reg(reg, bits)

	c := src.Component
	if src.Full {
		c >>= 1
	}
	w.printf(".%c", components[c])

	if src.Abs {
		w.printf(")")
	}
}

func (w *walker) scalarField(name string, body uint32, regWord uint16) {
	regs := isa.UnpackRegInfo(regWord)
	alu := isa.UnpackScalarALU(body)

	w.printf("%s.", name)
	w.aluOpcode(alu.Op)
	w.outmod(alu.OutMod, alu.Op.IsIntegerOut())
	w.printf(" ")

	bits := 16
	if alu.OutputFull {
		bits = 32
	}
	w.reg(regs.OutReg, bits)

	c := alu.OutputComponent
	if alu.OutputFull {
		c >>= 1
	}
	w.printf(".%c, ", components[c])

	w.scalarSrc(alu.Src1, regs.Src1Reg)
	w.printf(", ")

	if regs.Src2Imm {
		w.immediate(isa.DecodeScalarImm(regs.Src2Reg, alu.Src2Imm))
	} else {
		w.scalarSrc(alu.Src2, regs.Src2Reg)
	}

	w.printf("\n")
}

func (w *walker) branchOp(op isa.JumpOp) {
	switch op {
	case isa.JumpOpBranchUncond:
		w.printf("uncond.")
	case isa.JumpOpBranchCond:
		w.printf("cond.")
	case isa.JumpOpWriteout:
		w.printf("write.")
	case isa.JumpOpTilebufferPending:
		w.printf("tilebuffer.")
	case isa.JumpOpDiscard:
		w.printf("discard.")
	default:
		w.printf("unk%d.", uint8(op))
	}
}

func (w *walker) branchCond(cond isa.Condition) {
	switch cond {
	case isa.ConditionWrite0:
		w.printf("write0")
	case isa.ConditionFalse:
		w.printf("false")
	case isa.ConditionTrue:
		w.printf("true")
	case isa.ConditionAlways:
		w.printf("always")
	default:
		w.printf("unk%X", uint8(cond))
	}
}

func (w *walker) offsetArrow(offset int) {
	if offset >= 0 {
		w.printf("+")
	}
	w.printf("%d -> ", offset)
}

func (w *walker) compactBranch(word uint16) {
	if isa.JumpOp(word&7) == isa.JumpOpBranchUncond {
		br := isa.UnpackBranchUncond(word)
		w.printf("br.uncond ")
		if br.Unknown != 1 {
			w.printf("unknown:%d, ", br.Unknown)
		}
		w.offsetArrow(int(br.Offset))
		w.tagShort(br.DestTag)
		w.printf("\n")
		return
	}

	br := isa.UnpackBranchCond(word)
	w.printf("br.")
	w.branchOp(br.Op)
	w.branchCond(br.Cond)
	w.printf(" ")
	w.offsetArrow(int(br.Offset))
	w.tagShort(br.DestTag)
	w.printf("\n")
}

func (w *walker) extendedBranch(body uint64) {
	br := isa.UnpackBranchExtended(body)

	w.printf("brx.")
	w.branchOp(br.Op)

	// The 2-bit condition is replicated per channel; report it once
	// and flag any straggler.
	cond := isa.Condition(br.Cond & 3)
	if br.Cond != isa.ReplicateCond(cond) {
		w.printf("/* cond %04X */ ", br.Cond)
	}
	w.branchCond(cond)

	if br.Unknown != 0 {
		w.printf(".unknown%d", br.Unknown)
	}

	w.printf(" ")
	w.offsetArrow(int(br.Offset))
	w.tagShort(br.DestTag)
	w.printf("\n")
}

func (w *walker) aluWord(word []byte, quads int) {
	control := le32(word)

	fields := 0
	for _, bit := range []uint{17, 19, 21, 23, 25} {
		if control>>bit&1 != 0 {
			fields++
		}
	}

	for _, bit := range []uint{16, 18, 20, 22, 24} {
		if control>>bit&1 != 0 {
			w.printf("unknown bit %d enabled\n", bit)
		}
	}

	// Register descriptors pack right after the control word; bodies
	// follow them. Offsets count 16-bit halfwords.
	regOff := 2
	bodyOff := 2 + fields
	halfwords := 2 + fields

	// A control word claiming more units than the bundle holds would
	// walk off the quadwords, so check before every body read.
	fits := func(n int) bool {
		if 2*(bodyOff+n) > len(word) {
			w.printf("/* control word overruns bundle */\n")
			return false
		}
		return true
	}

	vector := func(name string) bool {
		if !fits(3) {
			return false
		}
		w.vectorField(name, le48(word[2*bodyOff:]), le16(word[2*regOff:]))
		regOff++
		bodyOff += 3
		halfwords += 3
		return true
	}
	scalar := func(name string) bool {
		if !fits(2) {
			return false
		}
		w.scalarField(name, le32(word[2*bodyOff:]), le16(word[2*regOff:]))
		regOff++
		bodyOff += 2
		halfwords += 2
		return true
	}

	if control&uint32(isa.UnitVMUL) != 0 && !vector("vmul") {
		return
	}
	if control&uint32(isa.UnitSADD) != 0 && !scalar("sadd") {
		return
	}
	if control&uint32(isa.UnitVADD) != 0 && !vector("vadd") {
		return
	}
	if control&uint32(isa.UnitSMUL) != 0 && !scalar("smul") {
		return
	}
	if control&uint32(isa.UnitVLUT) != 0 && !vector("lut") {
		return
	}
	if control&uint32(isa.UnitBrCompact) != 0 {
		if !fits(1) {
			return
		}
		w.compactBranch(le16(word[2*bodyOff:]))
		bodyOff++
		halfwords++
	}
	if control&uint32(isa.UnitBranch) != 0 {
		if !fits(3) {
			return
		}
		w.extendedBranch(le48(word[2*bodyOff:]))
		bodyOff += 3
		halfwords += 3
	}

	// A quadword beyond what the bodies need holds the embedded
	// constants, typed by the analysis gathered above.
	if quads > (halfwords+7)/8 {
		w.constants(word[16*quads-16:])
	}
}

func (w *walker) constants(quad []byte) {
	switch {
	case w.constantInt && w.constantHalf:
		w.printf("sconstants %d, %d, %d, %d\n",
			int16(le16(quad[0:])), int16(le16(quad[2:])),
			int16(le16(quad[4:])), int16(le16(quad[6:])))
	case w.constantInt:
		w.printf("iconstants %d, %d, %d, %d\n",
			int32(le32(quad[0:])), int32(le32(quad[4:])),
			int32(le32(quad[8:])), int32(le32(quad[12:])))
	case w.constantHalf:
		w.printf("hconstants %g, %g, %g, %g\n",
			isa.HalfToFloat(le16(quad[0:])), isa.HalfToFloat(le16(quad[2:])),
			isa.HalfToFloat(le16(quad[4:])), isa.HalfToFloat(le16(quad[6:])))
	default:
		w.printf("fconstants %g, %g, %g, %g\n",
			math.Float32frombits(le32(quad[0:])), math.Float32frombits(le32(quad[4:])),
			math.Float32frombits(le32(quad[8:])), math.Float32frombits(le32(quad[12:])))
	}
}

func (w *walker) varyingParameters(word isa.LoadStoreWord) {
	param := isa.UnpackVaryingParameter(word.VaryingParameters)

	if param.IsVarying {
		if param.Flat {
			w.printf(".flat")
		}
		if param.Interpolation != isa.InterpDefault && param.Interpolation != 0 {
			if param.Interpolation == isa.InterpCentroid {
				w.printf(".centroid")
			} else {
				w.printf(".interp%d", param.Interpolation)
			}
		}
	} else if param.Flat || param.Interpolation != 0 {
		w.printf(" /* is_varying not set but varying metadata attached */")
	}
}

func (w *walker) loadStoreInstr(word isa.LoadStoreWord) {
	if name := word.Op.Name(); name != "" {
		w.printf("%s", name)
	} else {
		w.printf("ldst_op_%02X", uint8(word.Op))
	}

	if word.Op.IsVarying() {
		w.varyingParameters(word)
	}

	w.printf(" r%d", word.Reg)
	w.mask4(word.Mask)

	// Uniforms split their address across two fields.
	address := int(word.Address)
	if word.Op == isa.OpLdUniform32 {
		lo := int(word.VaryingParameters >> 7)
		address = address<<3 | lo
	}
	w.printf(", %d", address)

	w.swizzleVec4(word.Swizzle, isa.VectorALUSrc{})

	w.printf(", 0x%X /* %X */\n", word.Unknown, word.VaryingParameters)
}

func (w *walker) loadStoreWord(word []byte) {
	var quad [16]byte
	copy(quad[:], word)
	pair := isa.UnpackLoadStorePair(quad)

	if pair.Word1.Op != isa.OpLdStNoop {
		w.loadStoreInstr(pair.Word1)
	}
	if pair.Word2.Op != isa.OpLdStNoop {
		w.loadStoreInstr(pair.Word2)
	}
}

func (w *walker) textureReg(full, sel, upper bool) {
	base := isa.RegisterTextureBase
	n := 0
	if sel {
		n = 1
	}
	if full {
		w.printf("r%d", base+n)
		if upper {
			w.printf("// error: out full / upper mutually exclusive\n")
		}
		return
	}
	half := (base + n) * 2
	if upper {
		half++
	}
	w.printf("hr%d", half)
}

func (w *walker) textureWord(word []byte) {
	var quad [16]byte
	copy(quad[:], word)
	tex := isa.UnpackTextureWord(quad)

	w.printf("texture")

	switch tex.Op {
	case isa.TexOpNormal:
		w.printf(".normal")
	case isa.TexOpTexelFetch:
		w.printf(".texelfetch")
	default:
		w.printf(".op_%d", tex.Op)
	}

	switch tex.Format {
	case isa.TexFormat2D:
		w.printf(".2d")
	case isa.TexFormat3D:
		w.printf(".3d")
	case isa.TexFormatCube:
		w.printf(".cube")
	default:
		w.printf(".fmt_%d", tex.Format)
	}

	if !tex.Filter {
		w.printf(".raw")
	}
	if tex.Shadow {
		w.printf(".shadow")
	}
	if tex.Cont {
		w.printf(".cont")
	}
	if tex.Last {
		w.printf(".last")
	}
	if tex.HasOffset {
		w.printf(".offset")
	}
	if tex.Bias != 0 {
		w.printf(".bias")
	}

	w.printf(" ")
	w.textureReg(tex.OutFull, tex.OutRegSelect, tex.OutUpper)
	w.mask4(tex.Mask)
	w.printf(", ")

	w.printf("texture%d, ", tex.TextureHandle)
	w.printf("sampler%d", tex.SamplerHandle)
	w.swizzleVec4(tex.Swizzle, isa.VectorALUSrc{})
	w.printf(", ")

	w.textureReg(true, tex.InRegSelect, tex.InRegUpper)
	w.printf(".%c%c", components[tex.InRegSwizzleLeft], components[tex.InRegSwizzleRight])

	if tex.HasOffset {
		w.printf(", ")
		w.textureReg(false, tex.OffsetRegSelect, tex.OffsetRegUpper)
	}

	if tex.Bias != 0 {
		w.printf(", %f", float64(tex.Bias)/256.0)
	}

	w.printf("\n")

	// Nonzero unexplained fields are evidence, so report them rather
	// than silently dropping bits.
	if tex.Unknown2 != 0 || tex.Unknown3 || tex.Unknown4 != 0 ||
		tex.UnknownA != 0 || tex.UnknownB != 0 ||
		tex.Unknown8 != 0 || tex.Unknown9 != 0 {
		w.printf("// unknown2 = 0x%x\n", tex.Unknown2)
		w.printf("// unknown3 = 0x%x\n", b2i(tex.Unknown3))
		w.printf("// unknown4 = 0x%x\n", tex.Unknown4)
		w.printf("// unknownA = 0x%x\n", tex.UnknownA)
		w.printf("// unknownB = 0x%x\n", tex.UnknownB)
		w.printf("// unknown8 = 0x%x\n", tex.Unknown8)
		w.printf("// unknown9 = 0x%x\n", tex.Unknown9)
	}

	if tex.OffsetUnknown1 || tex.OffsetRegSelect || tex.OffsetRegUpper ||
		tex.OffsetUnknown4 || tex.OffsetUnknown5 || tex.OffsetUnknown6 ||
		tex.OffsetUnknown7 || tex.OffsetUnknown8 || tex.OffsetUnknown9 {
		w.printf("// offset_unknown1 = 0x%x\n", b2i(tex.OffsetUnknown1))
		w.printf("// offset_reg_select = 0x%x\n", b2i(tex.OffsetRegSelect))
		w.printf("// offset_reg_upper = 0x%x\n", b2i(tex.OffsetRegUpper))
		w.printf("// offset_unknown4 = 0x%x\n", b2i(tex.OffsetUnknown4))
		w.printf("// offset_unknown5 = 0x%x\n", b2i(tex.OffsetUnknown5))
		w.printf("// offset_unknown6 = 0x%x\n", b2i(tex.OffsetUnknown6))
		w.printf("// offset_unknown7 = 0x%x\n", b2i(tex.OffsetUnknown7))
		w.printf("// offset_unknown8 = 0x%x\n", b2i(tex.OffsetUnknown8))
		w.printf("// offset_unknown9 = 0x%x\n", b2i(tex.OffsetUnknown9))
	}

	if tex.Unknown7 != 1 {
		w.printf("// (!) unknown7 = %d\n", tex.Unknown7)
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le48(b []byte) uint64 {
	var v uint64
	for i := 0; i < 6; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
