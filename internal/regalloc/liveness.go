package regalloc

import "jitcore/internal/lir"

// LiveInterval is one value's live range over LIR instruction ids.
//
// This is a deliberate simplification of spec.md §4.10: a real linear
// scanner tracks live ranges with holes (a value can die and be
// reborn across a branch), but this allocator tracks exactly one
// contiguous [Start,End] span per value, covering every point it is
// live anywhere in the program. This never under-allocates — a value
// never gets a register released while it is still truly live — but
// it can hold a register longer than strictly necessary across a
// branch where the value is dead on one side. See DESIGN.md.
type LiveInterval struct {
	Value   lir.ValueID
	Start   int
	End     int
	Reg     int // -1 until assigned, or permanently -1 if Spilled
	Spilled bool
}

// successorsOf returns the block ids a block's last instruction
// transfers control to: its branch Targets if the last instruction
// specifies any, else a fall-through to the next block in program
// order (the LIR has no explicit CFG of its own, so control flow is
// reconstructed from Program.Blocks order plus branch Targets).
func successorsOf(p *lir.Program, blockIdx int) []int {
	b := p.Blocks[blockIdx]
	if len(b.Insts) > 0 {
		last := b.Insts[len(b.Insts)-1]
		if len(last.Targets) > 0 {
			return last.Targets
		}
	}
	if blockIdx+1 < len(p.Blocks) {
		return []int{p.Blocks[blockIdx+1].BlockID}
	}
	return nil
}

func blockIndexByID(p *lir.Program) map[int]int {
	m := make(map[int]int, len(p.Blocks))
	for i, b := range p.Blocks {
		m[b.BlockID] = i
	}
	return m
}

// useDef returns the set of values an instruction uses (Use or Alive
// mode operands) and the set it defines (Def mode operands). Temp
// operands never extend or shorten liveness of any existing value;
// they are register-allocator scratch slots with no value identity in
// this model.
func useDef(inst *lir.Instruction) (uses, defs []lir.ValueID) {
	for _, op := range inst.Operands {
		if op.Flag != lir.FlagReg && op.Flag != lir.FlagStack {
			continue
		}
		switch op.Mode {
		case lir.ModeUse, lir.ModeAlive:
			uses = append(uses, op.Value)
		case lir.ModeDef:
			defs = append(defs, op.Value)
		}
	}
	return uses, defs
}

// computeLiveSets runs the classic backward liveness fixpoint over
// p's blocks (spec.md §4.10 "compute a live interval over LIR ids"),
// returning each block's live-in and live-out value sets.
func computeLiveSets(p *lir.Program) (liveIn, liveOut []map[lir.ValueID]bool) {
	n := len(p.Blocks)
	liveIn = make([]map[lir.ValueID]bool, n)
	liveOut = make([]map[lir.ValueID]bool, n)
	for i := range p.Blocks {
		liveIn[i] = map[lir.ValueID]bool{}
		liveOut[i] = map[lir.ValueID]bool{}
	}
	idxByID := blockIndexByID(p)

	changed := true
	for changed {
		changed = false
		for i := n - 1; i >= 0; i-- {
			out := map[lir.ValueID]bool{}
			for _, succID := range successorsOf(p, i) {
				si, ok := idxByID[succID]
				if !ok {
					continue
				}
				for v := range liveIn[si] {
					out[v] = true
				}
			}
			in := map[lir.ValueID]bool{}
			for v := range out {
				in[v] = true
			}
			insts := p.Blocks[i].Insts
			for j := len(insts) - 1; j >= 0; j-- {
				uses, defs := useDef(insts[j])
				for _, d := range defs {
					delete(in, d)
				}
				for _, u := range uses {
					in[u] = true
				}
			}
			if !mapsEqual(in, liveIn[i]) || !mapsEqual(out, liveOut[i]) {
				changed = true
			}
			liveIn[i] = in
			liveOut[i] = out
		}
	}
	return liveIn, liveOut
}

func mapsEqual(a, b map[lir.ValueID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// BuildIntervals computes one LiveInterval per value defined or used
// anywhere in p. Start is the defining instruction's id; End is the
// farthest point the value is live, extended to a block's final
// instruction id for every block the value is live-out of, so the
// single contiguous range never releases a register early.
func BuildIntervals(p *lir.Program) []*LiveInterval {
	liveIn, liveOut := computeLiveSets(p)

	starts := map[lir.ValueID]int{}
	ends := map[lir.ValueID]int{}
	order := []lir.ValueID{}
	seen := map[lir.ValueID]bool{}

	touch := func(v lir.ValueID, id int) {
		if !seen[v] {
			seen[v] = true
			order = append(order, v)
			starts[v] = id
			ends[v] = id
			return
		}
		if id < starts[v] {
			starts[v] = id
		}
		if id > ends[v] {
			ends[v] = id
		}
	}

	for bi, b := range p.Blocks {
		for _, inst := range b.Insts {
			uses, defs := useDef(inst)
			for _, u := range uses {
				touch(u, inst.ID)
			}
			for _, d := range defs {
				touch(d, inst.ID)
			}
		}
		if len(b.Insts) == 0 {
			continue
		}
		lastID := b.Insts[len(b.Insts)-1].ID
		for v := range liveOut[bi] {
			touch(v, lastID)
		}
		for v := range liveIn[bi] {
			if len(b.Insts) > 0 {
				touch(v, b.Insts[0].ID)
			}
		}
	}

	out := make([]*LiveInterval, 0, len(order))
	for _, v := range order {
		out = append(out, &LiveInterval{Value: v, Start: starts[v], End: ends[v], Reg: -1})
	}
	return out
}
