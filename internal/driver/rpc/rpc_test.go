package rpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitcore/internal/driver"
	"jitcore/internal/graph"
	"jitcore/internal/oracle"
	"jitcore/internal/scope"
	"jitcore/internal/stamp"
)

func buildSumGraph() *graph.Graph {
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

func rawParams(t *testing.T, v interface{}) *json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	raw := json.RawMessage(b)
	return &raw
}

func TestHandleCompileReturnsOkForTrivialLeaf(t *testing.T) {
	h := NewHandler(driver.NewPool(1), oracle.NewStatic(), func(blob []byte) (*graph.Graph, error) {
		return buildSumGraph(), nil
	})

	req := &jsonrpc2.Request{Method: "Compile", Params: rawParams(t, CompileParams{
		Method:         graph.MethodRef{Holder: "Math", Name: "sum", Sig: "(II)I"},
		GraphBlob:      []byte("opaque"),
		NumRegs:        4,
		NumCalleeSaved: 2,
	})}

	result, err := h.handle(context.Background(), nil, req)
	require.NoError(t, err)
	res, ok := result.(*CompileResult)
	require.True(t, ok)
	assert.Equal(t, "ok", res.Kind)
	assert.NotEmpty(t, res.SessionID)
}

func TestHandleUnknownMethodReportsMethodNotFound(t *testing.T) {
	h := NewHandler(driver.NewPool(1), oracle.NewStatic(), nil)
	req := &jsonrpc2.Request{Method: "Bogus"}

	_, err := h.handle(context.Background(), nil, req)
	require.Error(t, err)
	rpcErr, ok := err.(*jsonrpc2.Error)
	require.True(t, ok)
	assert.Equal(t, jsonrpc2.CodeMethodNotFound, rpcErr.Code)
}

func TestHandleCancelIsANoOpForUnknownSession(t *testing.T) {
	h := NewHandler(driver.NewPool(1), oracle.NewStatic(), nil)
	req := &jsonrpc2.Request{Method: "Cancel", Params: rawParams(t, CancelParams{SessionID: "does-not-exist"})}

	_, err := h.handle(context.Background(), nil, req)
	require.NoError(t, err)
}

func TestHandleMetricsReadsScopeCounters(t *testing.T) {
	scope.Push("rpcTest")
	scope.Increment("widgets", 3)
	scope.Pop()

	h := NewHandler(driver.NewPool(1), oracle.NewStatic(), nil)
	req := &jsonrpc2.Request{Method: "Metrics", Params: rawParams(t, MetricsParams{
		ScopePath: []string{"rpcTest"},
		Name:      "widgets",
	})}

	result, err := h.handle(context.Background(), nil, req)
	require.NoError(t, err)
	metrics, ok := result.(*MetricsResult)
	require.True(t, ok)
	assert.Equal(t, int64(3), metrics.Counter)
}

func TestHandleCompileRequiresParams(t *testing.T) {
	h := NewHandler(driver.NewPool(1), oracle.NewStatic(), nil)
	req := &jsonrpc2.Request{Method: "Compile"}

	_, err := h.handle(context.Background(), nil, req)
	require.Error(t, err)
}
