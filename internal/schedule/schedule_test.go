package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitcore/internal/cfg"
	"jitcore/internal/graph"
	"jitcore/internal/stamp"
)

func TestEarliestAnchorsParameterUseAtEntry(t *testing.T) {
	g := graph.New()
	entry := g.AddBegin(false)
	require.NoError(t, g.SetSuccessors(g.Start(), []graph.ID{entry}))
	a := g.AddParameter(0, stamp.IntTop(64, true))
	b := g.AddParameter(1, stamp.IntTop(64, true))
	sum, err := g.AddBinary(graph.OpAdd, a, b)
	require.NoError(t, err)
	ret := g.AddReturn(sum, 0)
	require.NoError(t, g.SetSuccessors(entry, []graph.ID{ret}))

	c := cfg.Build(g)
	r, err := Schedule(g, c, Earliest, MemoryNone)
	require.NoError(t, err)
	assert.Equal(t, c.Entry(), r.BlockOf(sum))
}

func TestFloatingReadAnchoredToGuardStaysAtGuardBlock(t *testing.T) {
	g := graph.New()
	entry := g.AddBegin(false)
	require.NoError(t, g.SetSuccessors(g.Start(), []graph.ID{entry}))

	obj := g.AddParameter(0, stamp.ObjectTop(nil))
	cond := g.AddParameter(1, stamp.IntTop(1, false))
	guard := g.AddFixedGuard(cond, false, graph.DeoptNullCheck)
	require.NoError(t, g.SetSuccessors(entry, []graph.ID{guard}))

	field := graph.FieldRef{Holder: "Point", Name: "x"}
	read := g.AddFloatingRead(obj, 0, guard, field, stamp.IntTop(32, true))
	ret := g.AddReturn(read, 0)
	require.NoError(t, g.SetSuccessors(guard, []graph.ID{ret}))

	c := cfg.Build(g)
	r, err := Schedule(g, c, LatestOutOfLoops, MemoryNone)
	require.NoError(t, err)
	assert.Equal(t, c.BlockOf(guard), r.BlockOf(read), "a read anchored to a guard cannot be hoisted above it")
}

// buildLoopWithInvariant mirrors cfg's loop fixture but adds a Binary
// op computed purely from parameters (loop-invariant) whose only use
// is a StoreField inside the loop body.
func buildLoopWithInvariant(t *testing.T) (*graph.Graph, graph.ID, graph.ID) {
	t.Helper()
	g := graph.New()

	preheader := g.AddBegin(false)
	require.NoError(t, g.SetSuccessors(g.Start(), []graph.ID{preheader}))
	preEnd := g.AddEnd()
	require.NoError(t, g.SetSuccessors(preheader, []graph.ID{preEnd}))

	backBegin := g.AddBegin(false)
	backEnd := g.AddEnd()
	require.NoError(t, g.SetSuccessors(backBegin, []graph.ID{backEnd}))

	header := g.AddMerge([]graph.ID{preEnd, backEnd})
	require.NoError(t, g.SetSuccessors(preEnd, []graph.ID{header}))
	require.NoError(t, g.SetSuccessors(backEnd, []graph.ID{header}))

	bodyBegin := g.AddBegin(false)
	require.NoError(t, g.SetSuccessors(header, []graph.ID{bodyBegin}))

	a := g.AddParameter(0, stamp.IntTop(32, true))
	b := g.AddParameter(1, stamp.IntTop(32, true))
	invariant, err := g.AddBinary(graph.OpAdd, a, b)
	require.NoError(t, err)

	obj := g.AddParameter(2, stamp.ObjectTop(nil))
	field := graph.FieldRef{Holder: "Acc", Name: "v"}
	store := g.AddStoreField(obj, invariant, 0, field)
	require.NoError(t, g.SetSuccessors(bodyBegin, []graph.ID{store}))
	require.NoError(t, g.SetSuccessors(store, []graph.ID{backBegin}))

	return g, invariant, preheader
}

func TestLatestOutOfLoopsHoistsInvariantOutOfLoop(t *testing.T) {
	g, invariant, preheader := buildLoopWithInvariant(t)
	c := cfg.Build(g)

	earliestResult, err := Schedule(g, c, Earliest, MemoryNone)
	require.NoError(t, err)
	assert.Equal(t, c.Entry(), earliestResult.BlockOf(invariant))

	latestResult, err := Schedule(g, c, LatestOutOfLoops, MemoryNone)
	require.NoError(t, err)
	placed := latestResult.BlockOf(invariant)
	assert.Equal(t, 0, placed.LoopDepth(), "loop-invariant computation must be hoisted out of the loop body")
	assert.Equal(t, c.BlockOf(preheader), placed)
}

func TestMemoryOptimalClampsReadAboveAliasingWrite(t *testing.T) {
	// if (cond) { a.x = 1 } ; return <read of a.x>
	// The read's only use sits in the merge block, so without memory
	// awareness LatestOutOfLoops would place it there; the store on the
	// then-branch aliases it, so it must stay at its earliest block.
	g := graph.New()
	entry := g.AddBegin(false)
	require.NoError(t, g.SetSuccessors(g.Start(), []graph.ID{entry}))

	obj := g.AddParameter(0, stamp.ObjectTop(nil))
	cond := g.AddParameter(1, stamp.IntTop(1, false))
	ifNode := g.AddIf(cond)
	require.NoError(t, g.SetSuccessors(entry, []graph.ID{ifNode}))

	thenBegin := g.AddBegin(false)
	elseBegin := g.AddBegin(false)
	require.NoError(t, g.SetSuccessors(ifNode, []graph.ID{thenBegin, elseBegin}))

	field := graph.FieldRef{Holder: "Point", Name: "x"}
	one := g.AddConstant(int64(1), stamp.IntConstant(32, true, 1))
	store := g.AddStoreField(obj, one, 0, field)
	require.NoError(t, g.SetSuccessors(thenBegin, []graph.ID{store}))
	thenEnd := g.AddEnd()
	require.NoError(t, g.SetSuccessors(store, []graph.ID{thenEnd}))
	elseEnd := g.AddEnd()
	require.NoError(t, g.SetSuccessors(elseBegin, []graph.ID{elseEnd}))

	merge := g.AddMerge([]graph.ID{thenEnd, elseEnd})
	require.NoError(t, g.SetSuccessors(thenEnd, []graph.ID{merge}))
	require.NoError(t, g.SetSuccessors(elseEnd, []graph.ID{merge}))

	read := g.AddFloatingRead(obj, 0, 0, field, stamp.IntTop(32, true))
	ret := g.AddReturn(read, 0)
	require.NoError(t, g.SetSuccessors(merge, []graph.ID{ret}))

	c := cfg.Build(g)

	withoutMemAwareness, err := Schedule(g, c, LatestOutOfLoops, MemoryNone)
	require.NoError(t, err)
	assert.Equal(t, c.BlockOf(merge), withoutMemAwareness.BlockOf(read))

	optimal, err := Schedule(g, c, LatestOutOfLoops, MemoryOptimal)
	require.NoError(t, err)
	eb, err := (&scheduler{g: g, c: c, earliestMemo: map[graph.ID]*cfg.Block{}, latestMemo: map[graph.ID]*cfg.Block{}}).earliest(read)
	require.NoError(t, err)
	assert.Equal(t, eb, optimal.BlockOf(read), "aliasing store forces the read to stay at its earliest legal block")
}
