// Package inline implements the inliner (spec.md §4.7): per-invoke
// decisions driven by configurable thresholds and a type profile,
// monomorphic type-guard splicing, method-substitution/macro-intrinsic
// plugin replacement, and the inline→canonicalize→escape-analyze
// iterative fixpoint.
package inline

import (
	"fmt"
	"strings"

	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"

	"jitcore/internal/canon"
	"jitcore/internal/cfg"
	"jitcore/internal/escape"
	"jitcore/internal/graph"
	"jitcore/internal/oracle"
	"jitcore/internal/plugin"
	"jitcore/internal/stamp"
)

// Config holds the thresholds governing inline decisions.
type Config struct {
	MaxMethodSize int // bytecode bytes; methods larger than this are never inlined
	MaxDepth      int // nesting depth of splices; exceeding it is a fatal bailout
}

// Hint supplies per-call-site information the graph itself does not
// carry (this graph model has no per-Invoke bci, so profile lookup is
// the caller's responsibility): the single receiver type observed by
// profiling, if the call site is monomorphic but not provably so.
type Hint struct {
	MonomorphicType stamp.TypeRef
}

// CalleeResolver returns the already-built graph for a method, or
// ok=false if none is available (e.g. bytecode not yet parsed, or the
// method is abstract/native). Building that graph from bytecode is a
// frontend concern outside this module's scope (spec.md §1 Non-goals);
// the inliner only consumes already-built graphs.
type CalleeResolver func(m graph.MethodRef) (callee *graph.Graph, ok bool)

// Inliner applies Config's thresholds against Oracle/Plugins/Resolve to
// drive inlining over a caller graph.
type Inliner struct {
	Oracle  oracle.Oracle
	Plugins *plugin.Registry
	Resolve CalleeResolver
	Config  Config

	// Root identifies the method g was built for; it seeds the splice
	// ancestry chain used by the call-cycle check below. Zero-valued if
	// unset (a caller not tracking mutual recursion across methods can
	// leave it blank; the cycle check still catches direct self-calls).
	Root graph.MethodRef
}

// DepthExceeded reports that the inlining depth cap was hit. Per
// spec.md §4.7 this is a fatal condition: the caller should bail the
// whole compilation out, not merely skip this call site.
type DepthExceeded struct {
	Depth, Max int
}

func (e *DepthExceeded) Error() string {
	return fmt.Sprintf("inline: depth %d exceeds cap %d", e.Depth, e.Max)
}

// CyclicInline reports that splicing the callee at a call site would
// re-enter a method already active earlier in the same splice chain
// (direct self-recursion or mutual recursion across two or more
// methods). Per spec.md §4.7 this is a fatal bailout like
// DepthExceeded: the depth cap would eventually catch an unbroken
// recursive chain anyway, but a cycle is detectable immediately rather
// than after burning the whole depth budget rediscovering it.
type CyclicInline struct {
	Cycle []string // method keys in the order the dfs walk closed the loop
}

func (e *CyclicInline) Error() string {
	return fmt.Sprintf("inline: call cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// methodKey gives a method a single string identity for the call-graph
// vertices below; Holder+Name+Sig is already how spec.md §2 disambiguates
// overloads, so it doubles as a stable graph vertex id.
func methodKey(m graph.MethodRef) string {
	return m.Holder + "." + m.Name + m.Sig
}

// cyclicChain builds the small, string-keyed directed call graph formed
// by the splice ancestry chain (the methods already spliced into one
// another to reach the current call site) plus the edge to the
// prospective callee, and reports whether closing that edge creates a
// cycle. This graph is rebuilt fresh per call site rather than
// maintained incrementally: chains this small (bounded by Config.MaxDepth)
// make dfs.DetectCycles's O(V+E) walk cheaper than threading incremental
// update bookkeeping through the splice path.
func cyclicChain(chain []graph.MethodRef, next graph.MethodRef) (bool, []string, error) {
	g := core.NewGraph(core.WithDirected(true))
	all := append(append([]graph.MethodRef(nil), chain...), next)
	for _, m := range all {
		if err := g.AddVertex(methodKey(m)); err != nil {
			return false, nil, err
		}
	}
	for i := 0; i+1 < len(all); i++ {
		if _, err := g.AddEdge(methodKey(all[i]), methodKey(all[i+1]), 0); err != nil {
			return false, nil, err
		}
	}
	found, cycles, err := dfs.DetectCycles(g)
	if err != nil || !found {
		return found, nil, err
	}
	return true, cycles[0], nil
}

// sideEffecting kinds disqualify a callee from this inliner's splice:
// see DESIGN.md for the memory-transparent-callee scope decision.
var sideEffectingCalleeKinds = []graph.Kind{
	graph.KindStoreField,
	graph.KindMonitorEnter,
	graph.KindMonitorExit,
	graph.KindNewInstance,
	graph.KindCommitAllocation,
}

// Run applies inline→canonicalize→escape-analyze iteratively over g
// until no further invoke is chosen or the depth cap is exceeded.
// hints supplies per-invoke profiling hints (missing entries mean "no
// profile data", which skips any non-static call). Returns the total
// number of invokes replaced (by splice or by plugin substitution).
//
// Scope decision: one invoke is applied per inline pass (rather than a
// full round of independent decisions applied together) so the CFG
// snapshot handed to the splice machinery is never stale — a splice or
// substitution changes block shape, and this module has no incremental
// CFG update. Coarser-grained batching is a possible later refinement;
// see DESIGN.md.
func (inl *Inliner) Run(g *graph.Graph, hints map[graph.ID]Hint) (int, error) {
	depthOf := map[graph.ID]int{}
	chainOf := map[graph.ID][]graph.MethodRef{}
	total := 0

	for {
		c := cfg.Build(g)
		applied := false

		for _, invoke := range g.Iterate(graph.KindInvoke) {
			n := g.Node(invoke)
			if n == nil || n.Deleted() {
				continue
			}
			depth := depthOf[invoke]
			chain := chainOf[invoke]
			if chain == nil {
				chain = []graph.MethodRef{inl.Root}
			}
			did, newInvokes, splicedChain, err := inl.tryInline(g, c, invoke, hints[invoke], depth, chain)
			if err != nil {
				return total, err
			}
			if did {
				total++
				for _, id := range newInvokes {
					depthOf[id] = depth + 1
					chainOf[id] = splicedChain
				}
				applied = true
				break
			}
		}

		if !applied {
			return total, nil
		}
		canon.NewCanonicalizer().Run(g)
		escape.Run(g, cfg.Build(g))
	}
}

func (inl *Inliner) tryInline(g *graph.Graph, c *cfg.CFG, invoke graph.ID, hint Hint, depth int, chain []graph.MethodRef) (bool, []graph.ID, []graph.MethodRef, error) {
	method, ok := g.InvokeMethod(invoke)
	if !ok {
		return false, nil, nil, nil
	}
	receiver, args, memory, _, ok := g.InvokeOperands(invoke)
	if !ok {
		return false, nil, nil, nil
	}
	if usedAsMemoryOperand(g, invoke) {
		return false, nil, nil, nil // see DESIGN.md: no per-consumer-slot rewrite available
	}

	if inl.Plugins != nil {
		callArgs := args
		if !g.InvokeStatic(invoke) {
			callArgs = append([]graph.ID{receiver}, args...)
		}
		if h, ok := inl.Plugins.Lookup(method.Holder, method.Name, method.Sig); ok {
			if replacement, handled := h(g, invoke, callArgs); handled {
				substituteInvoke(g, c, invoke, replacement, memory)
				return true, nil, nil, nil
			}
		}
	}

	if depth > inl.Config.MaxDepth {
		return false, nil, nil, &DepthExceeded{Depth: depth, Max: inl.Config.MaxDepth}
	}

	static := g.InvokeStatic(invoke)
	if !static && hint.MonomorphicType == nil {
		return false, nil, nil, nil // virtual call, no profile: cannot safely devirtualize
	}

	if inl.Oracle == nil || inl.Resolve == nil {
		return false, nil, nil, nil
	}
	code, ok := inl.Oracle.MethodCode(method)
	if !ok || len(code.Bytecode) > inl.Config.MaxMethodSize {
		return false, nil, nil, nil
	}
	if cyclic, cycle, err := cyclicChain(chain, method); err != nil {
		return false, nil, nil, err
	} else if cyclic {
		return false, nil, nil, &CyclicInline{Cycle: cycle}
	}
	callee, ok := inl.Resolve(method)
	if !ok || hasSideEffectingOp(callee) {
		return false, nil, nil, nil
	}
	if n := len(callee.Iterate(graph.KindReturn)); n != 1 {
		return false, nil, nil, nil // multi-return splice is a deferred scope gap, see DESIGN.md
	}

	effectiveReceiver := receiver
	if !static {
		effectiveReceiver = emitMonomorphicGuard(g, c, invoke, receiver, hint.MonomorphicType, inl.Oracle)
		// the guard insertion just changed invoke's predecessor in the
		// control chain, so the cfg snapshot c was built against is
		// stale for the splice step below.
		c = cfg.Build(g)
	}

	newInvokes, err := spliceCallee(g, c, invoke, callee, effectiveReceiver, args, memory, static)
	if err != nil {
		return false, nil, nil, nil
	}
	return true, newInvokes, append(append([]graph.MethodRef(nil), chain...), method), nil
}

func hasSideEffectingOp(callee *graph.Graph) bool {
	for _, k := range sideEffectingCalleeKinds {
		for _, id := range callee.Iterate(k) {
			if n := callee.Node(id); n != nil && !n.Deleted() {
				return true
			}
		}
	}
	return false
}
