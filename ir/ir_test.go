package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleBlockModule(ssaCount int, instrs ...Instr) *Module {
	return &Module{
		Stage: StageFragment,
		Functions: []*Function{{
			Name:     "main",
			SSACount: ssaCount,
			Body:     []Node{&Block{Instrs: instrs}},
		}},
	}
}

func TestEntryPoint(t *testing.T) {
	m := &Module{}
	_, err := m.EntryPoint()
	assert.Error(t, err)

	m = singleBlockModule(0)
	fn, err := m.EntryPoint()
	require.NoError(t, err)
	assert.Equal(t, "main", fn.Name)
}

func TestValidateSimple(t *testing.T) {
	m := singleBlockModule(2,
		&LoadConst{Dest: NewDest(0), Value: [4]uint32{0x3F800000}},
		&Alu{Op: OpFMov, Dest: NewDest(1), Srcs: []Src{NewSrc(0)}},
		&Intrinsic{Op: IntrStoreOutput, Src: NewSrc(1)},
	)
	assert.NoError(t, m.Validate())
}

func TestValidateUseBeforeDef(t *testing.T) {
	m := singleBlockModule(2,
		&Alu{Op: OpFMov, Dest: NewDest(1), Srcs: []Src{NewSrc(0)}},
	)
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "used before definition")
}

func TestValidateDoubleDef(t *testing.T) {
	m := singleBlockModule(1,
		&Undef{Dest: NewDest(0)},
		&LoadConst{Dest: NewDest(0)},
	)
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defined twice")
}

func TestValidateSourceArity(t *testing.T) {
	m := singleBlockModule(2,
		&Undef{Dest: NewDest(0)},
		&Alu{Op: OpFAdd, Dest: NewDest(1), Srcs: []Src{NewSrc(0)}},
	)
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sources")
}

func TestValidateSwizzleRange(t *testing.T) {
	src := NewSrc(0)
	src.Swizzle = [4]uint8{0, 1, 2, 7}
	m := singleBlockModule(2,
		&Undef{Dest: NewDest(0)},
		&Alu{Op: OpFMov, Dest: NewDest(1), Srcs: []Src{src}},
	)
	assert.Error(t, m.Validate())
}

func TestValidateJumpOutsideLoop(t *testing.T) {
	m := singleBlockModule(0, &Jump{Kind: JumpBreak})
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jump outside loop")
}

func TestValidateJumpInsideLoop(t *testing.T) {
	m := &Module{
		Functions: []*Function{{
			Name: "main",
			Body: []Node{
				&Loop{Body: []Node{
					&Block{Instrs: []Instr{&Jump{Kind: JumpBreak}}},
				}},
			},
		}},
	}
	assert.NoError(t, m.Validate())
}

func TestValidateIfCondition(t *testing.T) {
	m := &Module{
		Functions: []*Function{{
			Name:     "main",
			SSACount: 1,
			Body: []Node{
				&If{Cond: NewSrc(0)},
			},
		}},
	}
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "if condition")
}

func TestValidateRegisters(t *testing.T) {
	m := &Module{
		Functions: []*Function{{
			Name:          "main",
			SSACount:      1,
			RegisterCount: 1,
			Body: []Node{&Block{Instrs: []Instr{
				&Undef{Dest: NewDest(0)},
				&Alu{
					Op:   OpFMov,
					Dest: Dest{Value: Value{Index: 0}, WriteMask: 0xF},
					Srcs: []Src{NewSrc(0)},
				},
			}}},
		}},
	}
	assert.NoError(t, m.Validate())

	m.Functions[0].RegisterCount = 0
	assert.Error(t, m.Validate())
}

func TestAluOpNumSrcs(t *testing.T) {
	assert.Equal(t, 1, OpFRcp.NumSrcs())
	assert.Equal(t, 2, OpFAdd.NumSrcs())
	assert.Equal(t, 3, OpFFma.NumSrcs())
	assert.Equal(t, 3, OpBCSel.NumSrcs())
}

func TestOpNames(t *testing.T) {
	assert.Equal(t, "fadd", OpFAdd.String())
	assert.Equal(t, "bcsel", OpBCSel.String())
	assert.Equal(t, "load_viewport_scale", IntrLoadViewportScale.String())
	assert.Equal(t, "fragment", StageFragment.String())
	assert.Equal(t, "vertex", StageVertex.String())
}
