package regalloc

import (
	"sort"

	"jitcore/internal/lir"
)

// insertSpillReloadMoves inserts a store immediately after a spilled
// value's defining instruction, and a reload prepended to every block
// where that value is live-in (spec.md §4.10 "insert spill and reload
// moves at block boundaries"), then tallies reg-to-reg vs. spill moves
// into stats.
func insertSpillReloadMoves(p *lir.Program, intervals []*LiveInterval, stats *Stats) {
	spilled := map[lir.ValueID]*LiveInterval{}
	for _, it := range intervals {
		if it.Spilled {
			spilled[it.Value] = it
		}
	}
	if len(spilled) == 0 {
		stats.RegToRegMoves = countRegToRegMoves(p, spilled)
		return
	}

	liveIn, _ := computeLiveSets(p)

	spilledValues := make([]lir.ValueID, 0, len(spilled))
	for v := range spilled {
		spilledValues = append(spilledValues, v)
	}
	sort.Slice(spilledValues, func(i, j int) bool { return spilledValues[i] < spilledValues[j] })

	for bi, b := range p.Blocks {
		insts := make([]*lir.Instruction, 0, len(b.Insts))

		for _, v := range spilledValues {
			if liveIn[bi][v] {
				insts = append(insts, &lir.Instruction{
					ID: -1, Op: "reload",
					Operands: []lir.Operand{
						{Mode: lir.ModeUse, Flag: lir.FlagStack, Value: v},
						{Mode: lir.ModeDef, Flag: lir.FlagReg, Value: v},
					},
				})
				stats.SpillMoves++
			}
		}

		for _, inst := range b.Insts {
			insts = append(insts, inst)
			_, defs := useDef(inst)
			for _, d := range defs {
				if it, ok := spilled[d]; ok && it.Start == inst.ID {
					insts = append(insts, &lir.Instruction{
						ID: -1, Op: "store",
						Operands: []lir.Operand{
							{Mode: lir.ModeUse, Flag: lir.FlagReg, Value: d},
							{Mode: lir.ModeDef, Flag: lir.FlagStack, Value: d},
						},
					})
					stats.SpillMoves++
				}
			}
		}

		b.Insts = insts
	}

	stats.RegToRegMoves = countRegToRegMoves(p, spilled)
}

// countRegToRegMoves counts non-spill moves already present in the
// program (e.g. ABI argument/result moves inserted by internal/lir's
// foreign-call lowering) between two register-resident values.
func countRegToRegMoves(p *lir.Program, spilled map[lir.ValueID]*LiveInterval) int {
	count := 0
	for _, b := range p.Blocks {
		for _, inst := range b.Insts {
			if inst.Op != "move" {
				continue
			}
			regToReg := true
			for _, op := range inst.Operands {
				if op.Flag != lir.FlagReg {
					regToReg = false
					break
				}
				if _, ok := spilled[op.Value]; ok {
					regToReg = false
					break
				}
			}
			if regToReg {
				count++
			}
		}
	}
	return count
}
