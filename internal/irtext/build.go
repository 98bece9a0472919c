package irtext

import (
	"fmt"

	"jitcore/internal/graph"
	"jitcore/internal/stamp"
)

var binaryOps = map[string]graph.BinaryOp{
	"add": graph.OpAdd, "sub": graph.OpSub, "mul": graph.OpMul, "div": graph.OpDiv,
	"and": graph.OpAnd, "or": graph.OpOr, "xor": graph.OpXor, "shl": graph.OpShl, "shr": graph.OpShr,
}

var compareOps = map[string]graph.CompareOp{
	"eq": graph.CmpEQ, "ne": graph.CmpNE, "lt": graph.CmpLT, "le": graph.CmpLE, "gt": graph.CmpGT, "ge": graph.CmpGE,
}

var intTypes = map[string]struct {
	bits   int
	signed bool
}{
	"i8": {8, true}, "i16": {16, true}, "i32": {32, true}, "i64": {64, true},
	"u8": {8, false}, "u16": {16, false}, "u32": {32, false}, "u64": {64, false},
}

func paramStamp(typeName string) stamp.Stamp {
	t, ok := intTypes[typeName]
	if !ok {
		t = intTypes["i32"]
	}
	return stamp.IntTop(t.bits, t.signed)
}

// Build constructs a graph.Graph from one straight-line Function
// fixture: a Begin successor of Start, one node per body instruction in
// source order, and a Return closing the block (spec.md §3 "Graph"
// lifecycle — every node is reachable from Start once built).
func Build(fn *Function) (*graph.Graph, error) {
	g := graph.New()
	entry := g.AddBegin(false)
	if err := g.SetSuccessors(g.Start(), []graph.ID{entry}); err != nil {
		return nil, fmt.Errorf("irtext: wiring entry: %w", err)
	}

	values := make(map[string]graph.ID, len(fn.Body))
	resolve := func(ref *ValueRef) (graph.ID, error) {
		id, ok := values[ref.Name]
		if !ok {
			return 0, fmt.Errorf("irtext: %%%s used before assignment", ref.Name)
		}
		return id, nil
	}

	var retID graph.ID
	haveReturn := false
	for _, instr := range fn.Body {
		switch {
		case instr.Assign != nil:
			id, err := buildAssign(g, fn, values, resolve, instr.Assign)
			if err != nil {
				return nil, err
			}
			values[instr.Assign.Dest] = id
		case instr.Return != nil:
			id, err := resolve(instr.Return.Value)
			if err != nil {
				return nil, err
			}
			retID = id
			haveReturn = true
		}
	}
	if !haveReturn {
		return nil, fmt.Errorf("irtext: function %q has no return instruction", fn.Name)
	}

	ret := g.AddReturn(retID, entry)
	if err := g.SetSuccessors(entry, []graph.ID{ret}); err != nil {
		return nil, fmt.Errorf("irtext: wiring return: %w", err)
	}
	return g, nil
}

func buildAssign(g *graph.Graph, fn *Function, values map[string]graph.ID, resolve func(*ValueRef) (graph.ID, error), a *Assign) (graph.ID, error) {
	rhs := a.Rhs
	switch {
	case rhs.Param != nil:
		typeName := "i32"
		if idx := rhs.Param.Index; idx >= 0 && idx < len(fn.Params) {
			typeName = fn.Params[idx].Type
		}
		return g.AddParameter(rhs.Param.Index, paramStamp(typeName)), nil

	case rhs.Const != nil:
		v := rhs.Const.Value
		return g.AddConstant(v, stamp.IntConstant(32, true, v)), nil

	case rhs.Bin != nil:
		op, ok := binaryOps[rhs.Bin.Op]
		if !ok {
			return 0, fmt.Errorf("irtext: %%%s: unknown binary op %q", a.Dest, rhs.Bin.Op)
		}
		left, err := resolve(rhs.Bin.Left)
		if err != nil {
			return 0, err
		}
		right, err := resolve(rhs.Bin.Right)
		if err != nil {
			return 0, err
		}
		id, err := g.AddBinary(op, left, right)
		if err != nil {
			return 0, fmt.Errorf("irtext: %%%s: %w", a.Dest, err)
		}
		return id, nil

	case rhs.Cmp != nil:
		op, ok := compareOps[rhs.Cmp.Op]
		if !ok {
			return 0, fmt.Errorf("irtext: %%%s: unknown compare op %q", a.Dest, rhs.Cmp.Op)
		}
		left, err := resolve(rhs.Cmp.Left)
		if err != nil {
			return 0, err
		}
		right, err := resolve(rhs.Cmp.Right)
		if err != nil {
			return 0, err
		}
		id, err := g.AddCompare(op, left, right)
		if err != nil {
			return 0, fmt.Errorf("irtext: %%%s: %w", a.Dest, err)
		}
		return id, nil

	case rhs.Neg != nil:
		v, err := resolve(rhs.Neg.Value)
		if err != nil {
			return 0, err
		}
		return g.AddUnary(true, v, g.Node(v).Stamp()), nil

	case rhs.Copy != nil:
		v, err := resolve(rhs.Copy.Value)
		if err != nil {
			return 0, err
		}
		return g.AddUnary(false, v, g.Node(v).Stamp()), nil

	default:
		return 0, fmt.Errorf("irtext: %%%s: empty instruction", a.Dest)
	}
}

// ParseAndBuild parses src's first function and builds its graph —
// convenience wrapper for the common single-function-fixture case used
// by golden tests and cmd/jitcompile.
func ParseAndBuild(filename, src string) (*graph.Graph, error) {
	prog, err := Parse(filename, src)
	if err != nil {
		return nil, fmt.Errorf("irtext: parse: %w", err)
	}
	if len(prog.Functions) == 0 {
		return nil, fmt.Errorf("irtext: %s: no function declared", filename)
	}
	return Build(prog.Functions[0])
}
