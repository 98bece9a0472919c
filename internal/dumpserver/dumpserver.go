// Package dumpserver streams one compilation's dump/progress callbacks
// to a connected visualizer (spec.md §11 "websocket dump streaming"):
// a Sink adapts driver.DumpFunc and driver.ProgressFunc to jsonrpc2
// Notify calls sent over the same *jsonrpc2.Conn internal/driver/rpc's
// Handler.Serve already constructs for that client, so one websocket
// connection carries both the control-plane RPCs and the dump/progress
// notification stream the teacher's rpc.go doc comment describes.
package dumpserver

import (
	"context"

	"github.com/sourcegraph/jsonrpc2"

	"jitcore/internal/graph"
	"jitcore/internal/graphio"
	"jitcore/internal/lir"
	"jitcore/internal/log"
)

var logger = log.Get("dumpserver")

// DumpMethod and ProgressMethod name the jsonrpc2 notifications a Sink
// sends; a visualizer client dispatches on these the way it dispatches
// on "Compile"/"Cancel"/"Metrics" for requests.
const (
	DumpMethod     = "Dump"
	ProgressMethod = "Progress"
)

// DumpNotification is the wire shape of one Dump notification. Exactly
// one of GraphBlob or Program is set, matching Kind.
type DumpNotification struct {
	Phase     string       `json:"phase"`
	Kind      string       `json:"kind"`
	GraphBlob []byte       `json:"graphBlob,omitempty"`
	Program   *lir.Program `json:"program,omitempty"`
}

// ProgressNotification is the wire shape of one Progress notification.
type ProgressNotification struct {
	Phase string `json:"phase"`
}

// Sink adapts a live jsonrpc2.Conn to driver.DumpFunc/driver.ProgressFunc.
// A Sink is only ever used by the goroutine running the compilation it
// was built for, matching driver.Request's own single-caller contract.
type Sink struct {
	Conn *jsonrpc2.Conn
}

// NewSink returns a Sink that notifies over conn.
func NewSink(conn *jsonrpc2.Conn) *Sink {
	return &Sink{Conn: conn}
}

// Dump implements driver.DumpFunc. payload is either a *graph.Graph
// (frontend through lowering) or a *lir.Program (the "lir" phase;
// scheduling and regalloc are not dumped); graph.Graph is encoded through internal/graphio
// since its fields are deliberately unexported, while lir.Program's
// already-exported fields travel as plain JSON. A notify failure (the
// client disconnected mid-compile, say) is logged and dropped: losing
// a dump frame must never abort the compilation it only observes.
func (s *Sink) Dump(phase string, payload interface{}) {
	if s == nil || s.Conn == nil {
		return
	}

	note := DumpNotification{Phase: phase}
	switch v := payload.(type) {
	case *graph.Graph:
		blob, err := graphio.Encode(v)
		if err != nil {
			logger.Errorf("encoding graph dump at phase %s: %v", phase, err)
			return
		}
		note.Kind = "graph"
		note.GraphBlob = blob
	case *lir.Program:
		note.Kind = "lir"
		note.Program = v
	default:
		logger.Errorf("phase %s: dump payload of unrecognized type %T", phase, payload)
		return
	}

	if err := s.Conn.Notify(context.Background(), DumpMethod, note); err != nil {
		logger.Errorf("notifying dump at phase %s: %v", phase, err)
	}
}

// Progress implements driver.ProgressFunc.
func (s *Sink) Progress(phase string) {
	if s == nil || s.Conn == nil {
		return
	}
	if err := s.Conn.Notify(context.Background(), ProgressMethod, ProgressNotification{Phase: phase}); err != nil {
		logger.Errorf("notifying progress at phase %s: %v", phase, err)
	}
}
