package canon

import (
	"fmt"

	"jitcore/internal/graph"
	"jitcore/internal/stamp"
)

// ConstantFolding replaces a Binary/Compare/Unary node whose operands
// are all live Constant nodes with a single folded Constant, matching
// scenario 1 of spec.md §8 ("After canonicalization, the return is a
// constant 42; graph contains no IntegerAddNode"). Grounded on the
// teacher's ConstantFolding pass (internal/ir/optimizations.go), here
// generalized from bytecode-level folding to graph-node folding.
type ConstantFolding struct{}

func (ConstantFolding) Name() string { return "ConstantFolding" }
func (ConstantFolding) Description() string {
	return "folds arithmetic/comparison/unary nodes over constant operands"
}

func (ConstantFolding) TryRewrite(g *graph.Graph, id graph.ID) bool {
	n := g.Node(id)
	switch n.Kind() {
	case graph.KindBinary:
		return foldBinary(g, id)
	case graph.KindCompare:
		return foldCompare(g, id)
	case graph.KindUnary:
		return foldUnary(g, id)
	default:
		return false
	}
}

func intConstantOf(g *graph.Graph, id graph.ID) (int64, bool) {
	n := g.Node(id)
	if n == nil || n.Kind() != graph.KindConstant {
		return 0, false
	}
	v, ok := g.ConstantValue(id)
	if !ok {
		return 0, false
	}
	i, ok := v.(int64)
	return i, ok
}

func foldBinary(g *graph.Graph, id graph.ID) bool {
	inputs := g.Inputs(id)
	if len(inputs) != 2 {
		return false
	}
	a, aok := intConstantOf(g, inputs[0])
	b, bok := intConstantOf(g, inputs[1])
	if !aok || !bok {
		return false
	}
	// The Binary node's own stamp may not have been inferred yet; the
	// fold's result width/signedness instead follows its left operand,
	// which (being a live Constant) always carries a real integer stamp.
	st := g.Node(inputs[0]).Stamp()
	op, _ := g.BinaryOp(id)
	var result int64
	switch op {
	case graph.OpAdd:
		result = a + b
	case graph.OpSub:
		result = a - b
	case graph.OpMul:
		result = a * b
	case graph.OpAnd:
		result = a & b
	case graph.OpOr:
		result = a | b
	case graph.OpXor:
		result = a ^ b
	case graph.OpDiv:
		if b == 0 {
			return false // division by zero is a runtime trap, not a fold
		}
		result = a / b
	default:
		return false
	}
	folded := g.AddConstant(result, stamp.IntConstant(st.Bits(), st.Signed(), result))
	g.ReplaceAtUsages(id, folded)
	g.SafeDelete(id)
	return true
}

func foldCompare(g *graph.Graph, id graph.ID) bool {
	inputs := g.Inputs(id)
	if len(inputs) != 2 {
		return false
	}
	a, aok := intConstantOf(g, inputs[0])
	b, bok := intConstantOf(g, inputs[1])
	if !aok || !bok {
		return false
	}
	op, _ := g.CompareOp(id)
	var truth bool
	switch op {
	case graph.CmpEQ:
		truth = a == b
	case graph.CmpNE:
		truth = a != b
	case graph.CmpLT:
		truth = a < b
	case graph.CmpLE:
		truth = a <= b
	case graph.CmpGT:
		truth = a > b
	case graph.CmpGE:
		truth = a >= b
	}
	var v int64
	if truth {
		v = 1
	}
	folded := g.AddConstant(v, stamp.IntConstant(1, false, v))
	g.ReplaceAtUsages(id, folded)
	g.SafeDelete(id)
	return true
}

func foldUnary(g *graph.Graph, id graph.ID) bool {
	inputs := g.Inputs(id)
	if len(inputs) != 1 {
		return false
	}
	v, ok := intConstantOf(g, inputs[0])
	if !ok {
		return false
	}
	st := g.Node(inputs[0]).Stamp()
	result := v
	if g.UnaryNegates(id) {
		result = -v
	}
	folded := g.AddConstant(result, stamp.IntConstant(st.Bits(), st.Signed(), result))
	g.ReplaceAtUsages(id, folded)
	g.SafeDelete(id)
	return true
}

// IdentitySimplification applies algebraic identities that never
// require knowing both operands' exact values: x+0, x-0, x*1, x*0,
// x&x, x|x (spec.md §4.5 "local algebraic rewrites").
type IdentitySimplification struct{}

func (IdentitySimplification) Name() string { return "IdentitySimplification" }
func (IdentitySimplification) Description() string {
	return "eliminates additive/multiplicative identities and annihilators"
}

func (IdentitySimplification) TryRewrite(g *graph.Graph, id graph.ID) bool {
	n := g.Node(id)
	if n.Kind() != graph.KindBinary {
		return false
	}
	inputs := g.Inputs(id)
	if len(inputs) != 2 {
		return false
	}
	left, right := inputs[0], inputs[1]
	op, _ := g.BinaryOp(id)

	if rc, ok := intConstantOf(g, right); ok {
		switch {
		case (op == graph.OpAdd || op == graph.OpSub || op == graph.OpOr || op == graph.OpXor) && rc == 0:
			g.ReplaceAtUsages(id, left)
			g.SafeDelete(id)
			return true
		case op == graph.OpMul && rc == 1:
			g.ReplaceAtUsages(id, left)
			g.SafeDelete(id)
			return true
		case op == graph.OpMul && rc == 0:
			zero := g.AddConstant(int64(0), g.Node(left).Stamp())
			g.ReplaceAtUsages(id, zero)
			g.SafeDelete(id)
			return true
		case op == graph.OpAnd && rc == 0:
			zero := g.AddConstant(int64(0), g.Node(left).Stamp())
			g.ReplaceAtUsages(id, zero)
			g.SafeDelete(id)
			return true
		}
	}
	if left == right {
		switch op {
		case graph.OpAnd, graph.OpOr:
			g.ReplaceAtUsages(id, left)
			g.SafeDelete(id)
			return true
		case graph.OpXor, graph.OpSub:
			zero := g.AddConstant(int64(0), g.Node(left).Stamp())
			g.ReplaceAtUsages(id, zero)
			g.SafeDelete(id)
			return true
		}
	}
	return false
}

// CommonSubexpressionElimination catches structural duplicates that
// construction-time value numbering missed — typically nodes created
// before a rewrite made them equal to an existing one (e.g. two
// Binary nodes that both fold an operand to the same constant).
// Grounded on the teacher's CommonSubexpressionElimination pass
// (internal/ir/optimizations.go), generalized from basic-block-local
// dedup to whole-graph dedup since nodes here are already floating
// values, not block-scoped instructions.
type CommonSubexpressionElimination struct{}

func (CommonSubexpressionElimination) Name() string { return "CommonSubexpressionElimination" }
func (CommonSubexpressionElimination) Description() string {
	return "merges structurally identical pure value nodes"
}

func (CommonSubexpressionElimination) TryRewrite(g *graph.Graph, id graph.ID) bool {
	n := g.Node(id)
	if !graph.IsValueNumberable(n.Kind()) {
		return false
	}
	key := fmt.Sprintf("%d|%v|%v", n.Kind(), n.Data(), g.Inputs(id))
	for _, other := range g.Iterate(n.Kind()) {
		if other == id || other >= id {
			continue
		}
		otherKey := fmt.Sprintf("%d|%v|%v", n.Kind(), g.Node(other).Data(), g.Inputs(other))
		if otherKey == key {
			g.ReplaceAtUsages(id, other)
			g.SafeDelete(id)
			return true
		}
	}
	return false
}

// DeadCodeElimination deletes floating value nodes with no remaining
// usages. Fixed (control-attached) nodes and graph roots are never
// touched here: removing control requires a dedicated CFG-aware pass,
// out of this rewrite's scope.
type DeadCodeElimination struct{}

func (DeadCodeElimination) Name() string { return "DeadCodeElimination" }
func (DeadCodeElimination) Description() string {
	return "removes floating value nodes with no remaining usages"
}

func (DeadCodeElimination) TryRewrite(g *graph.Graph, id graph.ID) bool {
	n := g.Node(id)
	if graph.IsFixed(n.Kind()) {
		return false
	}
	switch n.Kind() {
	case graph.KindParameter, graph.KindStart:
		return false
	}
	if len(g.Usages(id)) > 0 {
		return false
	}
	return g.SafeDelete(id) == nil
}
