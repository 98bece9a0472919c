package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitcore/internal/cfg"
	"jitcore/internal/graph"
	"jitcore/internal/stamp"
)

func buildCleanStraightLine(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	entry := g.AddBegin(false)
	require.NoError(t, g.SetSuccessors(g.Start(), []graph.ID{entry}))
	p := g.AddParameter(0, stamp.IntTop(32, true))
	k := g.AddConstant(int64(1), stamp.IntConstant(32, true, 1))
	sum, err := g.AddBinary(graph.OpAdd, p, k)
	require.NoError(t, err)
	ret := g.AddReturn(sum, entry)
	require.NoError(t, g.SetSuccessors(entry, []graph.ID{ret}))
	return g
}

func TestVerifyGraphAcceptsCleanStraightLineGraph(t *testing.T) {
	g := buildCleanStraightLine(t)
	res := VerifyGraph(g)
	assert.True(t, res.OK(), "%v", res.Violations)
}

func TestVerifyGraphCatchesDanglingInputToDeletedNode(t *testing.T) {
	g := graph.New()
	entry := g.AddBegin(false)
	require.NoError(t, g.SetSuccessors(g.Start(), []graph.ID{entry}))

	a := g.AddConstant(int64(1), stamp.IntConstant(32, true, 1))
	c := g.AddConstant(int64(2), stamp.IntConstant(32, true, 2))
	b, err := g.AddBinary(graph.OpAdd, a, a)
	require.NoError(t, err)
	ret := g.AddReturn(b, entry)
	require.NoError(t, g.SetSuccessors(entry, []graph.ID{ret}))

	// Retarget b's inputs away from a, delete a (now unused), then
	// rewire b's first slot back onto the now-deleted node.
	g.ReplaceAtUsages(a, c)
	require.NoError(t, g.SafeDelete(a))
	require.NoError(t, g.SetInput(b, 0, a))

	res := VerifyGraph(g)
	require.False(t, res.OK())
	assert.Contains(t, res.Violations[0].Message, "not live")
}

func TestVerifyGraphCatchesPhiArityMismatch(t *testing.T) {
	g := graph.New()
	entry := g.AddBegin(false)
	require.NoError(t, g.SetSuccessors(g.Start(), []graph.ID{entry}))

	thenEnd := g.AddEnd()
	elseEnd := g.AddEnd()
	merge2 := g.AddMerge([]graph.ID{thenEnd, elseEnd})

	onlyEnd := g.AddEnd()
	merge1 := g.AddMerge([]graph.ID{onlyEnd})

	v1 := g.AddConstant(int64(1), stamp.IntConstant(32, true, 1))
	v2 := g.AddConstant(int64(2), stamp.IntConstant(32, true, 2))
	phi, err := g.AddPhi(merge2, []graph.ID{v1, v2}, stamp.IntTop(32, true))
	require.NoError(t, err)
	ret := g.AddReturn(phi, entry)
	require.NoError(t, g.SetSuccessors(entry, []graph.ID{ret}))

	// Rewire the phi onto merge1 (one end) while it still carries two
	// values: arity mismatch that VerifyGraph must catch.
	require.NoError(t, g.SetInput(phi, 0, merge1))

	res := VerifyGraph(g)
	require.False(t, res.OK())
	assert.Contains(t, res.Violations[0].Message, "phi has")
}

func TestVerifyGraphCatchesCycleOutsideAnyPhi(t *testing.T) {
	g := graph.New()
	entry := g.AddBegin(false)
	require.NoError(t, g.SetSuccessors(g.Start(), []graph.ID{entry}))

	p := g.AddParameter(0, stamp.IntTop(32, true))
	a := g.AddUnary(true, p, stamp.IntTop(32, true))
	bID := g.AddUnary(true, a, stamp.IntTop(32, true))
	ret := g.AddReturn(bID, entry)
	require.NoError(t, g.SetSuccessors(entry, []graph.ID{ret}))

	// a currently depends on p; rewire it onto b, closing a->b->a.
	require.NoError(t, g.SetInput(a, 0, bID))

	res := VerifyGraph(g)
	require.False(t, res.OK())
	found := false
	for _, v := range res.Violations {
		if v.Message == "cycle detected outside any phi back-edge" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestVerifyGraphAllowsPhiLoopCarriedCycle(t *testing.T) {
	g := graph.New()
	preEnd := g.AddEnd()
	backEnd := g.AddEnd()
	merge := g.AddMerge([]graph.ID{preEnd, backEnd})

	init := g.AddConstant(int64(0), stamp.IntConstant(32, true, 0))
	placeholder := g.AddConstant(int64(0), stamp.IntConstant(32, true, 0))
	phi, err := g.AddPhi(merge, []graph.ID{init, placeholder}, stamp.IntTop(32, true))
	require.NoError(t, err)

	one := g.AddConstant(int64(1), stamp.IntConstant(32, true, 1))
	next, err := g.AddBinary(graph.OpAdd, phi, one)
	require.NoError(t, err)

	// Close the loop-carried dependency through the phi's back-edge slot.
	require.NoError(t, g.SetInput(phi, 2, next))

	res := VerifyGraph(g)
	assert.True(t, res.OK(), "%v", res.Violations)
}

func TestVerifyCFGAcceptsWellFormedCFG(t *testing.T) {
	g := buildCleanStraightLine(t)
	c := cfg.Build(g)
	res := VerifyCFG(c)
	assert.True(t, res.OK(), "%v", res.Violations)
}

func buildDiamond(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	entry := g.AddBegin(false)
	require.NoError(t, g.SetSuccessors(g.Start(), []graph.ID{entry}))

	cond := g.AddParameter(0, stamp.IntTop(1, false))
	ifNode := g.AddIf(cond)
	require.NoError(t, g.SetSuccessors(entry, []graph.ID{ifNode}))

	thenBegin := g.AddBegin(false)
	elseBegin := g.AddBegin(false)
	require.NoError(t, g.SetSuccessors(ifNode, []graph.ID{thenBegin, elseBegin}))

	thenVal := g.AddConstant(int64(1), stamp.IntConstant(32, true, 1))
	thenRet := g.AddReturn(thenVal, thenBegin)
	require.NoError(t, g.SetSuccessors(thenBegin, []graph.ID{thenRet}))

	elseVal := g.AddConstant(int64(0), stamp.IntConstant(32, true, 0))
	elseRet := g.AddReturn(elseVal, elseBegin)
	require.NoError(t, g.SetSuccessors(elseBegin, []graph.ID{elseRet}))
	return g
}

func TestVerifyCFGAcceptsDiamond(t *testing.T) {
	g := buildDiamond(t)
	c := cfg.Build(g)
	res := VerifyCFG(c)
	assert.True(t, res.OK(), "%v", res.Violations)
}
