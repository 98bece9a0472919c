package graph

import "jitcore/internal/stamp"

// InferStamp recomputes id's stamp from its current inputs according to
// its kind's rule, writes it back, and returns it. It is idempotent at
// fixpoint (spec.md §4.2): once inputs stop changing, repeated calls
// produce the same stamp.
func (g *Graph) InferStamp(id ID) stamp.Stamp {
	n := g.Node(id)
	if n == nil || n.deleted {
		return stamp.Stamp{}
	}
	var s stamp.Stamp
	switch n.kind {
	case KindBinary:
		s = g.inferBinary(n)
	case KindCompare:
		s = stamp.IntTop(1, false)
	case KindUnary:
		s = g.inferUnary(n)
	case KindPhi:
		s = g.inferPhi(n)
	case KindPi:
		s = n.stamp // set explicitly at construction by the guard that produced it
	case KindConstant:
		s = n.stamp
	default:
		s = n.stamp
	}
	n.stamp = s
	return s
}

func (g *Graph) inferBinary(n *Node) stamp.Stamp {
	if len(n.inputs) != 2 {
		return n.stamp
	}
	left, right := g.Node(n.inputs[0]), g.Node(n.inputs[1])
	if left == nil || right == nil {
		return n.stamp
	}
	op := n.data.(binaryData).Op
	ls, rs := left.stamp, right.stamp
	if ls.Kind() != stamp.KindInteger || rs.Kind() != stamp.KindInteger {
		return ls.Meet(rs) // conservative: punt to meet for non-integer arithmetic
	}
	switch op {
	case OpAdd:
		return stamp.IntRange(ls.Bits(), ls.Signed(), ls.Lower()+rs.Lower(), ls.Upper()+rs.Upper())
	case OpSub:
		return stamp.IntRange(ls.Bits(), ls.Signed(), ls.Lower()-rs.Upper(), ls.Upper()-rs.Lower())
	case OpMul:
		return inferMul(ls, rs)
	default:
		return ls.Unrestricted()
	}
}

func inferMul(ls, rs stamp.Stamp) stamp.Stamp {
	candidates := []int64{
		ls.Lower() * rs.Lower(), ls.Lower() * rs.Upper(),
		ls.Upper() * rs.Lower(), ls.Upper() * rs.Upper(),
	}
	lo, hi := candidates[0], candidates[0]
	for _, c := range candidates[1:] {
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}
	return stamp.IntRange(ls.Bits(), ls.Signed(), lo, hi)
}

func (g *Graph) inferUnary(n *Node) stamp.Stamp {
	if len(n.inputs) != 1 {
		return n.stamp
	}
	v := g.Node(n.inputs[0])
	if v == nil {
		return n.stamp
	}
	s := v.stamp
	if n.data.(unaryData).Negate && s.Kind() == stamp.KindInteger {
		return stamp.IntRange(s.Bits(), s.Signed(), -s.Upper(), -s.Lower())
	}
	return s
}

// inferPhi computes a phi's stamp as the meet of its value inputs'
// stamps (spec.md §3 invariant: "a value node's stamp is the meet of
// the stamps implied by its inputs").
func (g *Graph) inferPhi(n *Node) stamp.Stamp {
	_, values := g.PhiMerge(n.id)
	if len(values) == 0 {
		return n.stamp
	}
	acc := g.Node(values[0]).stamp
	for _, v := range values[1:] {
		vn := g.Node(v)
		if vn == nil {
			continue
		}
		acc = acc.Meet(vn.stamp)
	}
	return acc
}
