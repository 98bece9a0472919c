// Package graphio implements the opaque binary graph encode/decode of
// spec.md §12: a gob-based serialization of internal/graph's exported
// Snapshot mirror, letting a graph cross a process boundary (the RPC
// control plane's GraphBlob, a saved test fixture) and come back with
// every node id, edge and stamp intact (spec.md §8's round-trip
// property — decode(encode(g)) is graph-equivalent to g).
package graphio

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"jitcore/internal/graph"
	"jitcore/internal/stamp"
)

func init() {
	// Concrete types ever carried behind PayloadWire.Value (a Constant
	// node's literal) — gob needs every concrete type flowing through an
	// interface{} field registered once, up front.
	gob.Register(int64(0))
	gob.Register(bool(false))
}

// TypeResolver maps an object stamp's or FieldRef's recorded type name
// back onto a live stamp.TypeRef. internal/oracle.Oracle.LookupType has
// exactly this shape; callers with a live oracle pass it directly as
// `oracle.LookupType`.
type TypeResolver func(name string) (stamp.TypeRef, bool)

// Encode serializes g into an opaque binary blob.
func Encode(g *graph.Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(g.Snapshot()); err != nil {
		return nil, fmt.Errorf("graphio: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reconstructs a graph from a blob produced by Encode. resolve
// may be nil when the caller does not need object-typed stamps or
// field types to survive the round trip (e.g. a pure integer-arithmetic
// fixture) — decoded object stamps then degrade to untyped object
// stamps rather than failing the decode.
func Decode(blob []byte, resolve TypeResolver) (*graph.Graph, error) {
	var snap graph.Snapshot
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("graphio: decode: %w", err)
	}
	return graph.FromSnapshot(&snap, (func(string) (stamp.TypeRef, bool))(resolve)), nil
}
