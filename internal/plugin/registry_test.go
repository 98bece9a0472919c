package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jitcore/internal/graph"
	"jitcore/internal/stamp"
)

func TestLookupPrefersExactOverPolymorphic(t *testing.T) {
	r := NewRegistry()
	exactCalled, polyCalled := false, false

	r.RegisterPolymorphic("Math", "max", func(g *graph.Graph, invoke graph.ID, args []graph.ID) (graph.ID, bool) {
		polyCalled = true
		return 0, true
	})
	r.Register("Math", "max", "(II)I", func(g *graph.Graph, invoke graph.ID, args []graph.ID) (graph.ID, bool) {
		exactCalled = true
		return 0, true
	})

	h, ok := r.Lookup("Math", "max", "(II)I")
	assert.True(t, ok)
	g := graph.New()
	h(g, 0, nil)
	assert.True(t, exactCalled)
	assert.False(t, polyCalled)
}

func TestLookupFallsBackToPolymorphicOnSignatureMiss(t *testing.T) {
	r := NewRegistry()
	r.RegisterPolymorphic("Math", "max", func(g *graph.Graph, invoke graph.ID, args []graph.ID) (graph.ID, bool) {
		return args[0], true
	})

	g := graph.New()
	a := g.AddConstant(int64(1), stamp.IntConstant(32, true, 1))
	h, ok := r.Lookup("Math", "max", "(III)I")
	assert.True(t, ok)
	result, handled := h(g, 0, []graph.ID{a})
	assert.True(t, handled)
	assert.Equal(t, a, result)
}

func TestLookupMissReportsNotHandled(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("Unknown", "thing", "()V")
	assert.False(t, ok)
}
