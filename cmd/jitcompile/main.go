// Command jitcompile is a standalone CLI driver for the pipeline
// (spec.md §0 "loads a resolved-method fixture... or a small textual
// IR format, runs it through the pipeline, and reports the result"),
// grounded on the teacher's cmd/kanso-cli: read one file, run it
// through the module, print a colored pass/fail report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"jitcore/internal/compileerr"
	"jitcore/internal/driver"
	"jitcore/internal/graph"
	"jitcore/internal/inline"
	"jitcore/internal/irtext"
	"jitcore/internal/log"
	"jitcore/internal/oracle"
)

func main() {
	var (
		numRegs        = flag.Int("regs", 16, "number of allocatable physical registers")
		numCalleeSaved = flag.Int("callee-saved", 6, "number of callee-saved registers available at safepoints")
		verbosity      = flag.Int("v", 0, "log verbosity (0 silences everything above Critical)")
		dumpPhases     = flag.Bool("dump", false, "print the graph/LIR after each phase that produces one, and report every completed phase")
	)
	flag.Parse()
	log.Configure(*verbosity, "")

	if flag.NArg() < 1 {
		fmt.Println("Usage: jitcompile [flags] <file.ir>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read %s: %s", path, err)
		os.Exit(1)
	}

	prog, err := irtext.Parse(path, string(source))
	if err != nil {
		color.Red("❌ syntax error in %s: %s", path, err)
		os.Exit(1)
	}
	if len(prog.Functions) == 0 {
		color.Red("❌ %s declares no function", path)
		os.Exit(1)
	}
	fn := prog.Functions[0]

	g, err := irtext.Build(fn)
	if err != nil {
		color.Red("❌ %s", err)
		os.Exit(1)
	}

	req := &driver.Request{
		Method:         graph.MethodRef{Holder: "Fixture", Name: fn.Name, Sig: signature(fn)},
		Graph:          g,
		Oracle:         oracle.NewStatic(),
		Inline:         inline.Config{MaxMethodSize: 8000, MaxDepth: 8},
		NumRegs:        *numRegs,
		NumCalleeSaved: *numCalleeSaved,
	}
	if *dumpPhases {
		req.Dump = func(phase string, payload interface{}) {
			fmt.Printf("── %s ──\n%#v\n", phase, payload)
		}
		req.Progress = func(phase string) {
			color.Cyan("✓ %s", phase)
		}
	}

	result := driver.Compile(context.Background(), req)
	if !result.IsOk() {
		color.Red("❌ %s", compileerr.Format(compileerr.NewReporter(), result))
		os.Exit(1)
	}

	artifact, _ := result.Value()
	color.Green("✅ compiled %s: %d canon rewrites, %d inlined call(s), %d LIR block(s)",
		fn.Name, artifact.CanonRewrites, artifact.InlineCount, len(artifact.Program.Blocks))
}

// signature builds a crude (paramType,...)returnType signature string
// for display/identity purposes only; jitcore never parses it back.
func signature(fn *irtext.Function) string {
	sig := "("
	for _, p := range fn.Params {
		sig += p.Type
	}
	sig += ")"
	if fn.Return != nil {
		sig += *fn.Return
	} else {
		sig += "void"
	}
	return sig
}

