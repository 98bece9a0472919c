// Package rpc exposes the driver's worker pool as an out-of-process
// control plane (spec.md §5 "the driver may cancel a compilation
// between passes"): Compile, Cancel and Metrics methods over
// github.com/sourcegraph/jsonrpc2, transported on a gorilla/websocket
// connection shared with internal/dumpserver's dump stream.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"
	"github.com/segmentio/ksuid"
	"github.com/sourcegraph/jsonrpc2"

	"jitcore/internal/driver"
	"jitcore/internal/dumpserver"
	"jitcore/internal/graph"
	"jitcore/internal/oracle"
	"jitcore/internal/scope"
)

// GraphDecoder turns an opaque graph blob (cmd/jitdumpd wires
// internal/graphio's binary decoder; tests may pass any []byte-in,
// graph-out function) into a graph ready to compile. Kept as an injected hook rather than
// an import so this package does not need to know graphio's concrete
// wire format.
type GraphDecoder func(blob []byte) (*graph.Graph, error)

// CompileParams is the wire shape of a Compile request.
type CompileParams struct {
	Method         graph.MethodRef `json:"method"`
	GraphBlob      []byte          `json:"graphBlob"`
	NumRegs        int             `json:"numRegs"`
	NumCalleeSaved int             `json:"numCalleeSaved"`
}

// CompileResult is the wire shape of a Compile response.
type CompileResult struct {
	SessionID   string `json:"sessionId"`
	Kind        string `json:"kind"`
	Detail      string `json:"detail,omitempty"`
	InlineCount int    `json:"inlineCount,omitempty"`
}

// CancelParams names the session to cancel.
type CancelParams struct {
	SessionID string `json:"sessionId"`
}

// MetricsParams names the (scope path, counter/timer name) pair to
// read (spec.md §6 "named counters... named timers").
type MetricsParams struct {
	ScopePath []string `json:"scopePath"`
	Name      string   `json:"name"`
}

// MetricsResult reports a counter's value alongside a timer's
// accumulated duration and hit count, whichever the name addresses.
type MetricsResult struct {
	Counter      int64 `json:"counter"`
	TimerNanos   int64 `json:"timerNanos"`
	TimerHits    int64 `json:"timerHits"`
}

// Handler implements the three control-plane methods against a shared
// driver.Pool. One Handler may back several concurrent jsonrpc2.Conn
// instances (one per connected client).
type Handler struct {
	Pool    *driver.Pool
	Oracle  oracle.Oracle
	Decode  GraphDecoder

	mu       deadlock.Mutex
	sessions map[string]context.CancelFunc
}

// NewHandler returns a Handler ready to serve Compile/Cancel/Metrics
// requests against pool using decode to materialize graphs from the
// opaque blobs clients send.
func NewHandler(pool *driver.Pool, o oracle.Oracle, decode GraphDecoder) *Handler {
	return &Handler{Pool: pool, Oracle: o, Decode: decode, sessions: map[string]context.CancelFunc{}}
}

// Serve wraps conn in a jsonrpc2.Conn bound to h's methods, matching
// the teacher's glsp/jsonrpc2 wiring in cmd/kanso-lsp, repurposed from
// LSP methods to compiler-control ones.
func (h *Handler) Serve(ctx context.Context, conn *websocket.Conn) *jsonrpc2.Conn {
	stream := &objectStream{conn: conn}
	return jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(h.handle))
}

func (h *Handler) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	switch req.Method {
	case "Compile":
		var params CompileParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return h.compile(ctx, conn, params)
	case "Cancel":
		var params CancelParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		h.cancel(params.SessionID)
		return struct{}{}, nil
	case "Metrics":
		var params MetricsParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return h.metrics(params), nil
	default:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "unknown method " + req.Method}
	}
}

func (h *Handler) compile(ctx context.Context, conn *jsonrpc2.Conn, params CompileParams) (*CompileResult, error) {
	g, err := h.Decode(params.GraphBlob)
	if err != nil {
		return nil, fmt.Errorf("rpc: decoding graph: %w", err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	sessionID := ksuid.New()
	h.mu.Lock()
	h.sessions[sessionID.String()] = cancel
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.sessions, sessionID.String())
		h.mu.Unlock()
	}()

	sink := dumpserver.NewSink(conn)
	dreq := &driver.Request{
		Method:         params.Method,
		Graph:          g,
		Oracle:         h.Oracle,
		NumRegs:        params.NumRegs,
		NumCalleeSaved: params.NumCalleeSaved,
		Dump:           sink.Dump,
		Progress:       sink.Progress,
	}
	result := <-h.Pool.Submit(sessionCtx, dreq)

	out := &CompileResult{SessionID: sessionID.String(), Kind: result.Kind().String()}
	if artifact, ok := result.Value(); ok {
		out.InlineCount = artifact.InlineCount
		return out, nil
	}
	if err := result.Err(); err != nil {
		out.Detail = err.Error()
	}
	return out, nil
}

func (h *Handler) cancel(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cancel, ok := h.sessions[sessionID]; ok {
		cancel()
		delete(h.sessions, sessionID)
	}
}

func (h *Handler) metrics(params MetricsParams) *MetricsResult {
	nanos, hits := scope.TimerStats(params.ScopePath, params.Name)
	return &MetricsResult{
		Counter:    scope.Counter(params.ScopePath, params.Name),
		TimerNanos: nanos,
		TimerHits:  hits,
	}
}

func unmarshalParams(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return fmt.Errorf("rpc: method %q requires params", req.Method)
	}
	return json.Unmarshal(*req.Params, v)
}

// objectStream adapts a gorilla/websocket connection to
// jsonrpc2.ObjectStream's two-method contract, so one websocket
// connection carries both the jsonrpc2 control-plane traffic and the
// Dump/Progress notifications internal/dumpserver sends over it.
type objectStream struct {
	conn *websocket.Conn
}

func (s *objectStream) WriteObject(obj interface{}) error {
	return s.conn.WriteJSON(obj)
}

func (s *objectStream) ReadObject(v interface{}) error {
	return s.conn.ReadJSON(v)
}
