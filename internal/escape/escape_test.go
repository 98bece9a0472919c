package escape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitcore/internal/cfg"
	"jitcore/internal/graph"
	"jitcore/internal/stamp"
)

type integerType struct{}

func (integerType) Name() string     { return "Integer" }
func (integerType) IsInterface() bool { return false }
func (integerType) IsConcrete() bool  { return true }
func (integerType) AssignableFrom(other stamp.TypeRef) bool {
	_, ok := other.(integerType)
	return ok
}
func (t integerType) LeastCommonAncestor(other stamp.TypeRef) stamp.TypeRef {
	if _, ok := other.(integerType); ok {
		return t
	}
	return nil
}

// TestRunVirtualizesConstructorThenAccessor mirrors spec.md §8 scenario 3:
// `Integer a = new Integer(101); return a.intValue();` — a allocates,
// immediately stores its only field, reads it straight back and returns
// it, all inside a single block. After Run the allocation, its store
// and its load are gone from the graph, and the return value is the
// constant fed into the store.
func TestRunVirtualizesConstructorThenAccessor(t *testing.T) {
	g := graph.New()
	ty := integerType{}
	field := graph.FieldRef{Holder: "Integer", Name: "value"}

	alloc := g.AddNewInstance(ty, g.Start())
	hundredOne := g.AddConstant(int64(101), stamp.IntConstant(32, true, 101))
	store := g.AddStoreField(alloc, hundredOne, g.Start(), field)
	load := g.AddLoadField(alloc, g.Start(), field, stamp.IntTop(32, true))
	ret := g.AddReturn(load, g.Start())

	require.NoError(t, g.SetSuccessors(g.Start(), []graph.ID{alloc}))
	require.NoError(t, g.SetSuccessors(alloc, []graph.ID{store}))
	require.NoError(t, g.SetSuccessors(store, []graph.ID{load}))
	require.NoError(t, g.SetSuccessors(load, []graph.ID{ret}))

	c := cfg.Build(g)
	res := Run(g, c)

	assert.True(t, res.Virtualized[alloc])
	assert.True(t, g.Node(alloc).Deleted())
	assert.True(t, g.Node(store).Deleted())
	assert.True(t, g.Node(load).Deleted())

	retInputs := g.Inputs(ret)
	require.Len(t, retInputs, 2)
	assert.Equal(t, hundredOne, retInputs[0])
	assert.Equal(t, []graph.ID{ret}, g.Node(g.Start()).Successors())
}

// TestRunLeavesEscapingAllocationUntouched: when a's identity crosses
// out through an Invoke argument, it escapes and must survive intact.
func TestRunLeavesEscapingAllocationUntouched(t *testing.T) {
	g := graph.New()
	ty := integerType{}
	field := graph.FieldRef{Holder: "Integer", Name: "value"}

	alloc := g.AddNewInstance(ty, g.Start())
	hundredOne := g.AddConstant(int64(101), stamp.IntConstant(32, true, 101))
	store := g.AddStoreField(alloc, hundredOne, g.Start(), field)
	fs := g.AddFrameState(0, "m", nil, 0)
	method := graph.MethodRef{Holder: "Sink", Name: "consume", Sig: "(LInteger;)V"}
	invoke := g.AddInvoke(method, true, alloc, nil, g.Start(), fs, stamp.Void())
	ret := g.AddReturn(invoke, g.Start())

	require.NoError(t, g.SetSuccessors(g.Start(), []graph.ID{alloc}))
	require.NoError(t, g.SetSuccessors(alloc, []graph.ID{store}))
	require.NoError(t, g.SetSuccessors(store, []graph.ID{invoke}))
	require.NoError(t, g.SetSuccessors(invoke, []graph.ID{ret}))

	c := cfg.Build(g)
	res := Run(g, c)

	assert.False(t, res.Virtualized[alloc])
	assert.False(t, g.Node(alloc).Deleted())
	assert.False(t, g.Node(store).Deleted())
}
