package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitcore/internal/stamp"
)

func TestAddValidatesArity(t *testing.T) {
	g := New()
	c := g.AddConstant(int64(1), stamp.IntConstant(64, true, 1))
	_, err := g.Add(KindBinary, binaryData{Op: OpAdd}, stamp.Stamp{}, []ID{c}, nil)
	assert.Error(t, err)
}

func TestDiamondPhiStampCoversBothConstants(t *testing.T) {
	// Build: if (cond) { x = 40 } else { x = 2 } and infer the merge phi's
	// stamp, mirrors spec.md §8 scenario 1's shape at the graph level.
	g := New()
	cond := g.AddParameter(0, stamp.IntTop(1, false))
	ifNode := g.AddIf(cond)

	thenBegin := g.AddBegin(false)
	elseBegin := g.AddBegin(false)
	require.NoError(t, g.SetSuccessors(ifNode, []ID{thenBegin, elseBegin}))

	c40 := g.AddConstant(int64(40), stamp.IntConstant(64, true, 40))
	c2 := g.AddConstant(int64(2), stamp.IntConstant(64, true, 2))

	thenEnd := g.AddEnd()
	elseEnd := g.AddEnd()
	require.NoError(t, g.SetSuccessors(thenBegin, []ID{}))
	require.NoError(t, g.SetSuccessors(elseBegin, []ID{}))

	merge := g.AddMerge([]ID{thenEnd, elseEnd})
	phi, err := g.AddPhi(merge, []ID{c40, c2}, stamp.Stamp{})
	require.NoError(t, err)
	g.InferStamp(phi)

	phiNode := g.Node(phi)
	assert.Equal(t, int64(2), phiNode.Stamp().Lower())
	assert.Equal(t, int64(40), phiNode.Stamp().Upper())
}

func TestPhiArityMismatchRejected(t *testing.T) {
	g := New()
	e1, e2 := g.AddEnd(), g.AddEnd()
	merge := g.AddMerge([]ID{e1, e2})
	c := g.AddConstant(int64(1), stamp.IntConstant(64, true, 1))
	_, err := g.AddPhi(merge, []ID{c}, stamp.Stamp{})
	assert.Error(t, err)
}

func TestReplaceAtUsagesRewiresAllUsers(t *testing.T) {
	g := New()
	a := g.AddConstant(int64(1), stamp.IntConstant(64, true, 1))
	b := g.AddConstant(int64(2), stamp.IntConstant(64, true, 2))
	sum, err := g.AddBinary(OpAdd, a, a)
	require.NoError(t, err)

	g.ReplaceAtUsages(a, b)
	assert.Empty(t, g.Usages(a))
	assert.ElementsMatch(t, []ID{b, b}, g.Inputs(sum))
}

func TestSafeDeleteFailsWhileInUse(t *testing.T) {
	g := New()
	a := g.AddConstant(int64(1), stamp.IntConstant(64, true, 1))
	_, err := g.AddBinary(OpAdd, a, a)
	require.NoError(t, err)

	assert.Error(t, g.SafeDelete(a))
}

func TestSafeDeleteSucceedsWhenUnused(t *testing.T) {
	g := New()
	a := g.AddConstant(int64(1), stamp.IntConstant(64, true, 1))
	assert.NoError(t, g.SafeDelete(a))
	assert.True(t, g.Node(a).Deleted())
}

func TestValueNumberingDeduplicatesConstants(t *testing.T) {
	g := New()
	a := g.AddConstant(int64(7), stamp.IntConstant(64, true, 7))
	b := g.AddConstant(int64(7), stamp.IntConstant(64, true, 7))
	assert.Equal(t, a, b)
}

func TestSetSuccessorsRejectsNonFixedTarget(t *testing.T) {
	g := New()
	cond := g.AddParameter(0, stamp.IntTop(1, false))
	ifNode := g.AddIf(cond)
	c := g.AddConstant(int64(1), stamp.IntConstant(64, true, 1))
	assert.Error(t, g.SetSuccessors(ifNode, []ID{c}))
}

func TestIterateSnapshotsKind(t *testing.T) {
	g := New()
	g.AddConstant(int64(1), stamp.IntConstant(64, true, 1))
	g.AddConstant(int64(2), stamp.IntConstant(64, true, 2))
	ids := g.Iterate(KindConstant)
	assert.Len(t, ids, 2)
}
