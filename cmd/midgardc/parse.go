package main

import (
	"math"
	"strconv"
	"strings"

	"tlog.app/go/errors"

	"github.com/gogpu/midgard/ir"
)

// parse reads the textual IR description into a single-function module.
func parse(source string) (*ir.Module, error) {
	p := &parser{
		maxSSA: -1,
		maxReg: -1,
		aluOps: map[string]ir.AluOp{},
	}
	for op := ir.OpFAdd; op <= ir.OpFCos; op++ {
		p.aluOps[op.String()] = op
	}

	for _, line := range strings.Split(source, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
		if len(fields) == 0 {
			continue
		}
		p.lines = append(p.lines, fields)
	}

	stage := ir.StageFragment
	if len(p.lines) > 0 && p.lines[0][0] == "stage" {
		switch {
		case len(p.lines[0]) != 2:
			return nil, errors.New("stage wants one argument")
		case p.lines[0][1] == "vertex":
			stage = ir.StageVertex
		case p.lines[0][1] == "fragment":
			stage = ir.StageFragment
		default:
			return nil, errors.New("unknown stage %q", p.lines[0][1])
		}
		p.pos++
	}

	body, err := p.nodes(false)
	if err != nil {
		return nil, err
	}

	fn := &ir.Function{
		Name:          "main",
		Body:          body,
		SSACount:      p.maxSSA + 1,
		RegisterCount: p.maxReg + 1,
	}

	return &ir.Module{Stage: stage, Functions: []*ir.Function{fn}}, nil
}

type parser struct {
	lines [][]string
	pos   int

	maxSSA int
	maxReg int

	aluOps map[string]ir.AluOp
}

// intrinsics maps the loads and stores that carry a slot address.
var intrinsics = map[string]ir.IntrinsicOp{
	"load_uniform":         ir.IntrLoadUniform,
	"load_input":           ir.IntrLoadInput,
	"store_output":         ir.IntrStoreOutput,
	"load_viewport_scale":  ir.IntrLoadViewportScale,
	"load_viewport_offset": ir.IntrLoadViewportOffset,
	"load_color_buffer":    ir.IntrLoadColorBuffer,
	"load_alpha_ref":       ir.IntrLoadAlphaRef,
}

// nodes parses statements until the closing brace of the current
// construct, or end of input at top level. It leaves "} else {" for the
// caller to observe at p.lines[p.pos-1].
func (p *parser) nodes(nested bool) ([]ir.Node, error) {
	var out []ir.Node
	var block *ir.Block

	flush := func() {
		if block != nil {
			out = append(out, block)
			block = nil
		}
	}
	emit := func(instr ir.Instr) {
		if block == nil {
			block = &ir.Block{}
		}
		block.Instrs = append(block.Instrs, instr)
	}

	for p.pos < len(p.lines) {
		f := p.lines[p.pos]
		p.pos++

		switch f[0] {
		case "}":
			if !nested {
				return nil, errors.New("unmatched }")
			}
			flush()
			return out, nil

		case "if":
			if len(f) != 3 || f[2] != "{" {
				return nil, errors.New("if wants: if <cond> {")
			}
			cond, err := p.src(f[1])
			if err != nil {
				return nil, err
			}
			then, err := p.nodes(true)
			if err != nil {
				return nil, err
			}
			node := &ir.If{Cond: cond, Then: then}
			if closer := p.lines[p.pos-1]; len(closer) == 3 && closer[1] == "else" {
				node.Else, err = p.nodes(true)
				if err != nil {
					return nil, err
				}
			}
			flush()
			out = append(out, node)

		case "loop":
			if len(f) != 2 || f[1] != "{" {
				return nil, errors.New("loop wants: loop {")
			}
			body, err := p.nodes(true)
			if err != nil {
				return nil, err
			}
			flush()
			out = append(out, &ir.Loop{Body: body})

		case "break":
			emit(&ir.Jump{Kind: ir.JumpBreak})
		case "continue":
			emit(&ir.Jump{Kind: ir.JumpContinue})

		case "discard":
			emit(&ir.Intrinsic{Op: ir.IntrDiscard})
		case "discard_if":
			if len(f) != 2 {
				return nil, errors.New("discard_if wants a condition")
			}
			cond, err := p.src(f[1])
			if err != nil {
				return nil, err
			}
			emit(&ir.Intrinsic{Op: ir.IntrDiscardIf, Src: cond})

		case "const":
			if len(f) != 6 {
				return nil, errors.New("const wants a destination and four components")
			}
			dest, err := p.dest(f[1])
			if err != nil {
				return nil, err
			}
			var value [4]uint32
			for i, tok := range f[2:] {
				value[i], err = component(tok)
				if err != nil {
					return nil, err
				}
			}
			emit(&ir.LoadConst{Dest: dest, Value: value})

		case "undef":
			if len(f) != 2 {
				return nil, errors.New("undef wants a destination")
			}
			dest, err := p.dest(f[1])
			if err != nil {
				return nil, err
			}
			emit(&ir.Undef{Dest: dest})

		default:
			instr, err := p.instruction(f)
			if err != nil {
				return nil, err
			}
			emit(instr)
		}
	}

	if nested {
		return nil, errors.New("missing }")
	}
	flush()
	return out, nil
}

func (p *parser) instruction(f []string) (ir.Instr, error) {
	if kind, dim, ok := texName(f[0]); ok {
		if len(f) != 7 || f[3] != "texture" || f[5] != "sampler" {
			return nil, errors.New("%s wants: %s <dest> <coord> texture <n> sampler <n>", f[0], f[0])
		}
		dest, err := p.dest(f[1])
		if err != nil {
			return nil, err
		}
		coord, err := p.src(f[2])
		if err != nil {
			return nil, err
		}
		texture, err := strconv.Atoi(f[4])
		if err != nil {
			return nil, errors.New("bad texture index %q", f[4])
		}
		sampler, err := strconv.Atoi(f[6])
		if err != nil {
			return nil, errors.New("bad sampler index %q", f[6])
		}
		return &ir.Tex{Kind: kind, Dim: dim, Dest: dest, Coord: coord, Texture: texture, Sampler: sampler}, nil
	}

	if op, ok := intrinsics[f[0]]; ok {
		instr := &ir.Intrinsic{Op: op}
		rest := f[1:]
		if len(rest) >= 1 {
			if op == ir.IntrStoreOutput {
				src, err := p.src(rest[0])
				if err != nil {
					return nil, err
				}
				instr.Src = src
			} else {
				dest, err := p.dest(rest[0])
				if err != nil {
					return nil, err
				}
				instr.Dest = dest
			}
			rest = rest[1:]
		}
		if len(rest) == 2 && rest[0] == "base" {
			base, err := strconv.Atoi(rest[1])
			if err != nil {
				return nil, errors.New("bad base %q", rest[1])
			}
			instr.Base = base
		} else if len(rest) != 0 {
			return nil, errors.New("%s wants: %s <value> [base <n>]", f[0], f[0])
		}
		return instr, nil
	}

	op, ok := p.aluOps[f[0]]
	if !ok {
		return nil, errors.New("unknown instruction %q", f[0])
	}
	if len(f) != 2+op.NumSrcs() {
		return nil, errors.New("%s wants %d sources", f[0], op.NumSrcs())
	}
	dest, err := p.dest(f[1])
	if err != nil {
		return nil, err
	}
	alu := &ir.Alu{Op: op, Dest: dest}
	for _, tok := range f[2:] {
		src, err := p.src(tok)
		if err != nil {
			return nil, err
		}
		alu.Srcs = append(alu.Srcs, src)
	}
	return alu, nil
}

func texName(name string) (ir.TexOpKind, ir.TexDim, bool) {
	kind := ir.TexOpSample
	if strings.HasPrefix(name, "fetch") {
		kind = ir.TexOpFetch
		name = "tex" + name[len("fetch"):]
	}
	switch name {
	case "tex2d":
		return kind, ir.TexDim2D, true
	case "tex3d":
		return kind, ir.TexDim3D, true
	case "texcube":
		return kind, ir.TexDimCube, true
	}
	return 0, 0, false
}

func (p *parser) value(tok string) (ir.Value, string, error) {
	name, suffix, _ := strings.Cut(tok, ".")
	if len(name) < 2 {
		return ir.Value{}, "", errors.New("bad value %q", tok)
	}
	index, err := strconv.Atoi(name[1:])
	if err != nil || index < 0 {
		return ir.Value{}, "", errors.New("bad value %q", tok)
	}
	switch name[0] {
	case '%':
		if index > p.maxSSA {
			p.maxSSA = index
		}
		return ir.Value{Index: index, IsSSA: true}, suffix, nil
	case 'r':
		if index > p.maxReg {
			p.maxReg = index
		}
		return ir.Value{Index: index}, suffix, nil
	}
	return ir.Value{}, "", errors.New("bad value %q", tok)
}

func (p *parser) src(tok string) (ir.Src, error) {
	src := ir.Src{Swizzle: ir.SwizzleIdentity}
	if strings.HasPrefix(tok, "-") {
		src.Negate = true
		tok = tok[1:]
	}
	if strings.HasPrefix(tok, "abs(") && strings.HasSuffix(tok, ")") {
		src.Abs = true
		tok = tok[len("abs(") : len(tok)-1]
	}

	value, suffix, err := p.value(tok)
	if err != nil {
		return ir.Src{}, err
	}
	src.Value = value

	if suffix != "" {
		if len(suffix) > 4 {
			return ir.Src{}, errors.New("swizzle %q too long", suffix)
		}
		for i := 0; i < 4; i++ {
			c := suffix[min(i, len(suffix)-1)]
			lane := strings.IndexByte("xyzw", c)
			if lane < 0 {
				return ir.Src{}, errors.New("bad swizzle %q", suffix)
			}
			src.Swizzle[i] = uint8(lane)
		}
	}
	return src, nil
}

func (p *parser) dest(tok string) (ir.Dest, error) {
	value, suffix, err := p.value(tok)
	if err != nil {
		return ir.Dest{}, err
	}
	dest := ir.Dest{Value: value, WriteMask: 0xF}
	if suffix != "" {
		dest.WriteMask = 0
		for i := 0; i < len(suffix); i++ {
			lane := strings.IndexByte("xyzw", suffix[i])
			if lane < 0 {
				return ir.Dest{}, errors.New("bad write mask %q", suffix)
			}
			dest.WriteMask |= 1 << lane
		}
	}
	return dest, nil
}

// component parses one constant component: an integer (0x-prefixed or
// decimal) taken as raw bits, or a float when it contains a dot.
func component(tok string) (uint32, error) {
	if strings.Contains(tok, ".") {
		f, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return 0, errors.New("bad constant %q", tok)
		}
		return math.Float32bits(float32(f)), nil
	}
	v, err := strconv.ParseUint(tok, 0, 32)
	if err != nil {
		return 0, errors.New("bad constant %q", tok)
	}
	return uint32(v), nil
}
