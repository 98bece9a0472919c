package dumpserver

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitcore/internal/graph"
	"jitcore/internal/lir"
	"jitcore/internal/stamp"
)

// captureStream is an in-memory jsonrpc2.ObjectStream that records every
// object written to it, standing in for the shared websocket connection
// internal/driver/rpc's objectStream adapts in production.
type captureStream struct {
	written chan interface{}
	done    chan struct{}
}

func newCaptureStream() *captureStream {
	return &captureStream{written: make(chan interface{}, 8), done: make(chan struct{})}
}

func (s *captureStream) WriteObject(obj interface{}) error {
	s.written <- obj
	return nil
}

func (s *captureStream) ReadObject(v interface{}) error {
	<-s.done
	return io.EOF
}

func (s *captureStream) Close() error {
	close(s.done)
	return nil
}

func newTestConn(t *testing.T) (*jsonrpc2.Conn, *captureStream) {
	t.Helper()
	stream := newCaptureStream()
	conn := jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.HandlerWithError(
		func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
			return nil, nil
		},
	))
	t.Cleanup(func() { _ = conn.Close() })
	return conn, stream
}

func awaitRequest(t *testing.T, stream *captureStream) *jsonrpc2.Request {
	t.Helper()
	select {
	case obj := <-stream.written:
		req, ok := obj.(*jsonrpc2.Request)
		require.True(t, ok, "expected *jsonrpc2.Request, got %T", obj)
		return req
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
		return nil
	}
}

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

func TestSinkDumpSendsGraphBlobNotification(t *testing.T) {
	conn, stream := newTestConn(t)
	sink := NewSink(conn)

	sink.Dump("canon", buildSumGraph())

	req := awaitRequest(t, stream)
	assert.Equal(t, DumpMethod, req.Method)
	assert.True(t, req.Notif)

	var note DumpNotification
	require.NoError(t, json.Unmarshal(*req.Params, &note))
	assert.Equal(t, "canon", note.Phase)
	assert.Equal(t, "graph", note.Kind)
	assert.NotEmpty(t, note.GraphBlob)
	assert.Nil(t, note.Program)
}

func TestSinkDumpSendsLirProgramNotification(t *testing.T) {
	conn, stream := newTestConn(t)
	sink := NewSink(conn)

	prog := &lir.Program{Blocks: []*lir.Block{{BlockID: 0, Insts: []*lir.Instruction{
		{ID: -1, Op: "add", Operands: []lir.Operand{{Mode: lir.ModeDef, Flag: lir.FlagReg}}},
	}}}}
	sink.Dump("lir", prog)

	req := awaitRequest(t, stream)
	var note DumpNotification
	require.NoError(t, json.Unmarshal(*req.Params, &note))
	assert.Equal(t, "lir", note.Kind)
	assert.Empty(t, note.GraphBlob)
	require.NotNil(t, note.Program)
	require.Len(t, note.Program.Blocks, 1)
	assert.Equal(t, "add", note.Program.Blocks[0].Insts[0].Op)
}

func TestSinkDumpIgnoresUnrecognizedPayload(t *testing.T) {
	conn, stream := newTestConn(t)
	sink := NewSink(conn)

	sink.Dump("oracle", "not a graph or program")

	select {
	case obj := <-stream.written:
		t.Fatalf("expected no notification, got %v", obj)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSinkProgressSendsPhaseNotification(t *testing.T) {
	conn, stream := newTestConn(t)
	sink := NewSink(conn)

	sink.Progress("schedule")

	req := awaitRequest(t, stream)
	assert.Equal(t, ProgressMethod, req.Method)

	var note ProgressNotification
	require.NoError(t, json.Unmarshal(*req.Params, &note))
	assert.Equal(t, "schedule", note.Phase)
}

func TestNilSinkMethodsAreNoOps(t *testing.T) {
	var sink *Sink
	assert.NotPanics(t, func() {
		sink.Dump("canon", buildSumGraph())
		sink.Progress("canon")
	})
}
