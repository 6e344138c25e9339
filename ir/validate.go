package ir

import "tlog.app/go/errors"

// Validate checks the structural rules the backend relies on: SSA
// values are defined exactly once and before every use, indices are in
// range, and jumps appear only inside loops.
func (m *Module) Validate() error {
	for _, fn := range m.Functions {
		if err := fn.validate(); err != nil {
			return errors.Wrap(err, "function %v", fn.Name)
		}
	}
	return nil
}

type validator struct {
	fn        *Function
	defined   []bool
	loopDepth int
}

func (fn *Function) validate() error {
	v := &validator{fn: fn, defined: make([]bool, fn.SSACount)}
	return v.nodes(fn.Body)
}

func (v *validator) nodes(nodes []Node) error {
	for _, n := range nodes {
		var err error
		switch n := n.(type) {
		case *Block:
			err = v.block(n)
		case *If:
			err = v.ifNode(n)
		case *Loop:
			v.loopDepth++
			err = v.nodes(n.Body)
			v.loopDepth--
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) ifNode(n *If) error {
	if err := v.src(n.Cond); err != nil {
		return errors.Wrap(err, "if condition")
	}
	if err := v.nodes(n.Then); err != nil {
		return err
	}
	return v.nodes(n.Else)
}

func (v *validator) block(b *Block) error {
	for _, ins := range b.Instrs {
		if err := v.instr(ins); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) instr(ins Instr) error {
	switch ins := ins.(type) {
	case *Alu:
		if int(ins.Op) >= len(aluOpNames) {
			return errors.New("invalid alu op %d", ins.Op)
		}
		if len(ins.Srcs) != ins.Op.NumSrcs() {
			return errors.New("%v: want %d sources, have %d",
				ins.Op, ins.Op.NumSrcs(), len(ins.Srcs))
		}
		for _, s := range ins.Srcs {
			if err := v.src(s); err != nil {
				return errors.Wrap(err, "%v", ins.Op)
			}
		}
		return v.dest(ins.Dest)
	case *Intrinsic:
		if int(ins.Op) >= len(intrinsicNames) {
			return errors.New("invalid intrinsic op %d", ins.Op)
		}
		switch ins.Op {
		case IntrStoreOutput, IntrDiscardIf:
			if err := v.src(ins.Src); err != nil {
				return errors.Wrap(err, "%v", ins.Op)
			}
		}
		switch ins.Op {
		case IntrStoreOutput, IntrDiscard, IntrDiscardIf:
			return nil
		}
		return v.dest(ins.Dest)
	case *Tex:
		if err := v.src(ins.Coord); err != nil {
			return errors.Wrap(err, "texture coordinate")
		}
		return v.dest(ins.Dest)
	case *LoadConst:
		return v.dest(ins.Dest)
	case *Jump:
		if v.loopDepth == 0 {
			return errors.New("jump outside loop")
		}
		return nil
	case *Undef:
		return v.dest(ins.Dest)
	}
	return errors.New("unknown instruction kind")
}

func (v *validator) src(s Src) error {
	for _, lane := range s.Swizzle {
		if lane > 3 {
			return errors.New("swizzle lane %d out of range", lane)
		}
	}
	if !s.Value.IsSSA {
		if s.Value.Index < 0 || s.Value.Index >= v.fn.RegisterCount {
			return errors.New("register %d out of range", s.Value.Index)
		}
		return nil
	}
	if s.Value.Index < 0 || s.Value.Index >= v.fn.SSACount {
		return errors.New("ssa value %d out of range", s.Value.Index)
	}
	if !v.defined[s.Value.Index] {
		return errors.New("ssa value %d used before definition", s.Value.Index)
	}
	return nil
}

func (v *validator) dest(d Dest) error {
	if d.WriteMask == 0 || d.WriteMask > 0xF {
		return errors.New("write mask %#x out of range", d.WriteMask)
	}
	if !d.Value.IsSSA {
		if d.Value.Index < 0 || d.Value.Index >= v.fn.RegisterCount {
			return errors.New("register %d out of range", d.Value.Index)
		}
		return nil
	}
	if d.Value.Index < 0 || d.Value.Index >= v.fn.SSACount {
		return errors.New("ssa value %d out of range", d.Value.Index)
	}
	if v.defined[d.Value.Index] {
		return errors.New("ssa value %d defined twice", d.Value.Index)
	}
	v.defined[d.Value.Index] = true
	return nil
}
