package regalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitcore/internal/lir"
)

// program builds a single-block Program out of op/operand triples,
// each value referenced by a small integer used directly as its
// lir.ValueID.
func program(insts ...*lir.Instruction) *lir.Program {
	return &lir.Program{Blocks: []*lir.Block{{BlockID: 0, Insts: insts}}}
}

func def(op string, v lir.ValueID, uses ...lir.ValueID) *lir.Instruction {
	operands := make([]lir.Operand, 0, len(uses)+1)
	for _, u := range uses {
		operands = append(operands, lir.Operand{Mode: lir.ModeUse, Flag: lir.FlagReg, Value: u})
	}
	operands = append(operands, lir.Operand{Mode: lir.ModeDef, Flag: lir.FlagReg, Value: v})
	return &lir.Instruction{ID: -1, Op: op, Operands: operands}
}

func TestAllocateBasicStraightLine(t *testing.T) {
	// v0 = const; v1 = const; v2 = add(v0,v1); use(v2)
	p := program(
		def("const", 0),
		def("const", 1),
		def("add", 2, 0, 1),
		&lir.Instruction{ID: -1, Op: "return", Operands: []lir.Operand{{Mode: lir.ModeUse, Flag: lir.FlagReg, Value: 2}}},
	)
	res, err := Allocate(p, 4, 4)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Stats.DistinctRegisters, 4)
	for _, v := range []lir.ValueID{0, 1, 2} {
		reg, ok := res.Assignment[v]
		require.True(t, ok)
		assert.GreaterOrEqual(t, reg, 0)
	}
	// instructions got real, increasing, even ids
	last := -1
	for _, b := range p.Blocks {
		for _, inst := range b.Insts {
			if inst.Op == "reload" || inst.Op == "store" {
				continue
			}
			assert.Greater(t, inst.ID, last)
			last = inst.ID
		}
	}
}

func TestAllocateForcesSpillWhenRegistersExhausted(t *testing.T) {
	// Four values all simultaneously live, only 2 registers available:
	// v0..v3 defined, then all four used together by one instruction.
	p := program(
		def("const", 0),
		def("const", 1),
		def("const", 2),
		def("const", 3),
		&lir.Instruction{ID: -1, Op: "combine", Operands: []lir.Operand{
			{Mode: lir.ModeUse, Flag: lir.FlagReg, Value: 0},
			{Mode: lir.ModeUse, Flag: lir.FlagReg, Value: 1},
			{Mode: lir.ModeUse, Flag: lir.FlagReg, Value: 2},
			{Mode: lir.ModeUse, Flag: lir.FlagReg, Value: 3},
			{Mode: lir.ModeDef, Flag: lir.FlagReg, Value: 4},
		}},
	)
	res, err := Allocate(p, 2, 4)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Stats.DistinctRegisters, 2)
	assert.Greater(t, res.Stats.SpillMoves, 0)

	spilledCount := 0
	for _, reg := range res.Assignment {
		if reg < 0 {
			spilledCount++
		}
	}
	assert.GreaterOrEqual(t, spilledCount, 1)
}

func TestAllocateFailsWithInsufficientCalleeSaved(t *testing.T) {
	p := program(
		def("const", 0),
		def("const", 1),
		def("const", 2),
		&lir.Instruction{ID: -1, Op: "call", Safepoint: true, Operands: []lir.Operand{
			{Mode: lir.ModeAlive, Flag: lir.FlagReg, Value: 0},
			{Mode: lir.ModeAlive, Flag: lir.FlagReg, Value: 1},
			{Mode: lir.ModeAlive, Flag: lir.FlagReg, Value: 2},
			{Mode: lir.ModeDef, Flag: lir.FlagReg, Value: 3},
		}},
		&lir.Instruction{ID: -1, Op: "return", Operands: []lir.Operand{{Mode: lir.ModeUse, Flag: lir.FlagReg, Value: 3}}},
	)
	_, err := Allocate(p, 8, 1)
	require.Error(t, err)
	var target *InsufficientCalleeSaved
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 1, target.Have)
	assert.Greater(t, target.Need, 1)
}

func TestBuildIntervalsCoversDefToLastUse(t *testing.T) {
	p := program(
		def("const", 0),
		def("const", 1),
		def("add", 2, 0, 1),
	)
	numberInstructions(p)
	intervals := BuildIntervals(p)

	byValue := map[lir.ValueID]*LiveInterval{}
	for _, it := range intervals {
		byValue[it.Value] = it
	}
	require.Contains(t, byValue, lir.ValueID(0))
	require.Contains(t, byValue, lir.ValueID(2))
	// v0 is defined at instruction 0 and used at instruction 4 (the add;
	// instruction ids step by 2).
	assert.Equal(t, 0, byValue[0].Start)
	assert.Equal(t, 4, byValue[0].End)
	// v2 is defined and never used again in this snippet.
	assert.Equal(t, byValue[2].Start, byValue[2].End)
}
