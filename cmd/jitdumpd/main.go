// Command jitdumpd is the long-running compiler-control daemon (spec.md
// §5 "the driver may cancel a compilation between passes", §11
// "websocket dump streaming"): it accepts websocket connections, serves
// internal/driver/rpc's Compile/Cancel/Metrics methods on each one, and
// streams every phase's dump/progress notifications back over the same
// connection via internal/dumpserver. Grounded on the teacher's
// cmd/kanso-lsp (a long-running protocol server wired to one handler)
// and the pack's gorilla/websocket Upgrader idiom.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"jitcore/internal/driver"
	"jitcore/internal/driver/rpc"
	"jitcore/internal/graph"
	"jitcore/internal/graphio"
	jitlog "jitcore/internal/log"
	"jitcore/internal/oracle"
)

// sharedOracle backs both the rpc.Handler's runtime contract and the
// graphio TypeResolver used to decode incoming graph blobs, so an
// object-typed stamp's type name resolves through the same class table
// the compile request itself will query.
var sharedOracle = oracle.NewStatic()

func decodeGraph(blob []byte) (*graph.Graph, error) {
	return graphio.Decode(blob, sharedOracle.LookupType)
}

func main() {
	var (
		addr      = flag.String("addr", ":8899", "listen address for the websocket control plane")
		workers   = flag.Int("workers", 4, "maximum concurrent compilations")
		verbosity = flag.Int("v", 1, "log verbosity (0 silences everything above Critical)")
	)
	flag.Parse()
	jitlog.Configure(*verbosity, "")

	pool := driver.NewPool(*workers)
	handler := rpc.NewHandler(pool, sharedOracle, decodeGraph)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	http.HandleFunc("/compile", func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("jitdumpd: upgrade failed: %v", err)
			return
		}
		conn := handler.Serve(context.Background(), wsConn)
		<-conn.DisconnectNotify()
	})

	log.Printf("jitdumpd: listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}
