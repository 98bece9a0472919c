package graphio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitcore/internal/graph"
	"jitcore/internal/stamp"
	"jitcore/internal/verify"
)

type dogType struct{}

func (dogType) Name() string      { return "Dog" }
func (dogType) IsInterface() bool { return false }
func (dogType) IsConcrete() bool  { return true }
func (dogType) AssignableFrom(other stamp.TypeRef) bool {
	return other != nil && other.Name() == "Dog"
}
func (t dogType) LeastCommonAncestor(other stamp.TypeRef) stamp.TypeRef { return t }

func buildSumOfParams() *graph.Graph {
	g := graph.New()
	entry := g.AddBegin(false)
	_ = g.SetSuccessors(g.Start(), []graph.ID{entry})
	p0 := g.AddParameter(0, stamp.IntTop(32, true))
	p1 := g.AddParameter(1, stamp.IntTop(32, true))
	sum, _ := g.AddBinary(graph.OpAdd, p0, p1)
	ret := g.AddReturn(sum, entry)
	_ = g.SetSuccessors(entry, []graph.ID{ret})
	return g
}

func TestRoundTripPreservesLiveNodesIdsAndEdges(t *testing.T) {
	g := buildSumOfParams()

	blob, err := Encode(g)
	require.NoError(t, err)

	back, err := Decode(blob, nil)
	require.NoError(t, err)

	assert.Equal(t, g.AllLive(), back.AllLive())
	for _, id := range g.AllLive() {
		n, bn := g.Node(id), back.Node(id)
		assert.Equal(t, n.Kind(), bn.Kind())
		assert.Equal(t, n.Inputs(), bn.Inputs())
		assert.Equal(t, n.Successors(), bn.Successors())
	}

	res := verify.VerifyGraph(back)
	assert.True(t, res.OK(), "%v", res.Violations)
}

func TestRoundTripPreservesPhiArityAndLoopCarriedCycle(t *testing.T) {
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
	require.NoError(t, g.SetInput(phi, 2, next))

	blob, err := Encode(g)
	require.NoError(t, err)
	back, err := Decode(blob, nil)
	require.NoError(t, err)

	gotMerge, values := back.PhiMerge(phi)
	assert.Equal(t, merge, gotMerge)
	assert.Equal(t, []graph.ID{init, next}, values)

	res := verify.VerifyGraph(back)
	assert.True(t, res.OK(), "%v", res.Violations)
}

func TestRoundTripResolvesObjectStampTypeNameThroughResolver(t *testing.T) {
	g := graph.New()
	st := stamp.ObjectExact(dogType{})
	param := g.AddParameter(0, st)

	blob, err := Encode(g)
	require.NoError(t, err)

	resolver := func(name string) (stamp.TypeRef, bool) {
		if name == "Dog" {
			return dogType{}, true
		}
		return nil, false
	}
	back, err := Decode(blob, resolver)
	require.NoError(t, err)

	got := back.Node(param).Stamp()
	assert.Equal(t, "Dog", got.Type().Name())
	assert.True(t, got.ExactType())
}

func TestRoundTripWithoutResolverDegradesObjectStampTypeToNil(t *testing.T) {
	g := graph.New()
	param := g.AddParameter(0, stamp.ObjectExact(dogType{}))

	blob, err := Encode(g)
	require.NoError(t, err)

	back, err := Decode(blob, nil)
	require.NoError(t, err)

	assert.Nil(t, back.Node(param).Stamp().Type())
}

func TestRoundTripPreservesTombstonedNodes(t *testing.T) {
	g := graph.New()
	entry := g.AddBegin(false)
	_ = g.SetSuccessors(g.Start(), []graph.ID{entry})
	a := g.AddConstant(int64(1), stamp.IntConstant(32, true, 1))
	c := g.AddConstant(int64(2), stamp.IntConstant(32, true, 2))
	b, err := g.AddBinary(graph.OpAdd, a, a)
	require.NoError(t, err)
	ret := g.AddReturn(b, entry)
	_ = g.SetSuccessors(entry, []graph.ID{ret})

	g.ReplaceAtUsages(a, c)
	require.NoError(t, g.SafeDelete(a))

	blob, err := Encode(g)
	require.NoError(t, err)
	back, err := Decode(blob, nil)
	require.NoError(t, err)

	assert.True(t, back.Node(a).Deleted())
	assert.NotContains(t, back.AllLive(), a)
}
