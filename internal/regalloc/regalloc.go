// Package regalloc implements linear-scan register allocation over LIR
// (spec.md §4.10): computing one live interval per value, walking
// intervals in increasing start order to assign free physical
// registers or spill, and numbering each instruction with the real id
// the LIR's pre-allocation sentinel (-1) stands in for.
package regalloc

import (
	"fmt"
	"sort"

	"jitcore/internal/lir"
)

// Stats records allocation outcomes, observable for testability
// (spec.md §4.10 "these are observable for testability").
type Stats struct {
	DistinctRegisters int
	RegToRegMoves     int
	SpillMoves        int
}

// InsufficientCalleeSaved is the fatal error spec.md §4.10 mandates
// when a safepoint instruction's live-in set needs more callee-saved
// registers than the target provides.
type InsufficientCalleeSaved struct {
	At   int // instruction id of the safepoint
	Need int
	Have int
}

func (e *InsufficientCalleeSaved) Error() string {
	return fmt.Sprintf("regalloc: instruction %d needs %d callee-saved registers, target has %d", e.At, e.Need, e.Have)
}

// Result is the outcome of Allocate: the input program, now numbered
// and with every operand assigned a register or stack slot, plus the
// allocation statistics.
type Result struct {
	Program *lir.Program
	Stats   Stats
	// Assignment maps each value to the register index it was
	// assigned, or -1 if it was spilled to the stack.
	Assignment map[lir.ValueID]int
}

// Allocate numbers p's instructions and assigns each live value a
// register out of numRegs, spilling when registers run out. At every
// safepoint instruction, if more than numCalleeSaved distinct values
// are simultaneously live in registers, allocation fails with
// InsufficientCalleeSaved.
func Allocate(p *lir.Program, numRegs, numCalleeSaved int) (*Result, error) {
	numberInstructions(p)

	intervals := BuildIntervals(p)
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Start < intervals[j].Start })

	a := &allocator{
		numRegs:    numRegs,
		assignment: map[lir.ValueID]int{},
	}
	for _, it := range intervals {
		a.expireOld(it)
		if len(a.active) < numRegs {
			reg := a.freeRegister()
			a.assignment[it.Value] = reg
			it.Reg = reg
			a.active = append(a.active, it)
			if reg+1 > a.stats.DistinctRegisters {
				a.stats.DistinctRegisters = reg + 1
			}
			continue
		}
		a.spillFarthest(it)
	}

	if err := a.checkSafepoints(p, intervals, numCalleeSaved); err != nil {
		return nil, err
	}

	applyAssignment(p, a.assignment)
	insertSpillReloadMoves(p, intervals, &a.stats)

	return &Result{Program: p, Stats: a.stats, Assignment: a.assignment}, nil
}

// numberInstructions assigns each instruction a real id, in increments
// of 2 (matching real JIT conventions, leaving odd ids free for moves
// inserted between instructions during spill/reload insertion).
func numberInstructions(p *lir.Program) {
	id := 0
	for _, b := range p.Blocks {
		for _, inst := range b.Insts {
			inst.ID = id
			id += 2
		}
	}
}

type allocator struct {
	numRegs    int
	active     []*LiveInterval
	assignment map[lir.ValueID]int
	stats      Stats
}

// expireOld drops from active every interval that ends before cur
// starts, returning its register to the free pool.
func (a *allocator) expireOld(cur *LiveInterval) {
	kept := a.active[:0]
	for _, it := range a.active {
		if it.End < cur.Start {
			continue
		}
		kept = append(kept, it)
	}
	a.active = kept
}

// freeRegister returns the lowest-numbered register not currently held
// by an active interval.
func (a *allocator) freeRegister() int {
	used := make(map[int]bool, len(a.active))
	for _, it := range a.active {
		used[it.Reg] = true
	}
	for r := 0; r < a.numRegs; r++ {
		if !used[r] {
			return r
		}
	}
	return 0
}

// spillFarthest spills the active interval whose End is farthest from
// cur's start (spec.md §4.10 "spill the interval whose next use is
// farthest"), giving cur its register if cur itself isn't the
// farthest-ending one; otherwise cur itself is spilled.
func (a *allocator) spillFarthest(cur *LiveInterval) {
	farthestIdx := -1
	for i, it := range a.active {
		if farthestIdx < 0 || it.End > a.active[farthestIdx].End {
			farthestIdx = i
		}
	}
	if farthestIdx < 0 || a.active[farthestIdx].End <= cur.End {
		cur.Spilled = true
		cur.Reg = -1
		a.assignment[cur.Value] = -1
		return
	}
	victim := a.active[farthestIdx]
	victim.Spilled = true
	reg := victim.Reg
	victim.Reg = -1
	a.assignment[victim.Value] = -1

	cur.Reg = reg
	a.assignment[cur.Value] = reg
	a.active[farthestIdx] = cur
}

// checkSafepoints walks every safepoint instruction and fails with
// InsufficientCalleeSaved if the count of register-resident values
// live at that point exceeds numCalleeSaved.
func (a *allocator) checkSafepoints(p *lir.Program, intervals []*LiveInterval, numCalleeSaved int) error {
	byValue := map[lir.ValueID]*LiveInterval{}
	for _, it := range intervals {
		byValue[it.Value] = it
	}
	for _, b := range p.Blocks {
		for _, inst := range b.Insts {
			if !inst.Safepoint {
				continue
			}
			live := 0
			for _, it := range intervals {
				if it.Reg >= 0 && it.Start <= inst.ID && inst.ID <= it.End {
					live++
				}
			}
			if live > numCalleeSaved {
				return &InsufficientCalleeSaved{At: inst.ID, Need: live, Have: numCalleeSaved}
			}
		}
	}
	return nil
}

// applyAssignment rewrites every operand referencing an allocated
// value to carry its assigned register or spill-slot flag.
func applyAssignment(p *lir.Program, assignment map[lir.ValueID]int) {
	for _, b := range p.Blocks {
		for _, inst := range b.Insts {
			for i := range inst.Operands {
				op := &inst.Operands[i]
				if op.Flag != lir.FlagReg {
					continue
				}
				if reg, ok := assignment[op.Value]; ok && reg < 0 {
					op.Flag = lir.FlagStack
				}
			}
		}
	}
}
