// Package driver owns the compilation pipeline order and the worker
// pool that runs it (spec.md §5): frontend → canonicalize → inline →
// escape analysis → lowering → scheduling → LIR → allocation, with
// cooperative cancellation checked at every phase boundary, an optional
// progress callback invoked after every phase, and an optional dump sink
// invoked after every phase except scheduling and allocation.
package driver

import (
	"context"

	"github.com/segmentio/ksuid"

	"jitcore/internal/canon"
	"jitcore/internal/cfg"
	"jitcore/internal/compileerr"
	"jitcore/internal/escape"
	"jitcore/internal/graph"
	"jitcore/internal/inline"
	"jitcore/internal/lir"
	"jitcore/internal/lower"
	"jitcore/internal/oracle"
	"jitcore/internal/plugin"
	"jitcore/internal/regalloc"
	"jitcore/internal/schedule"
	"jitcore/internal/scope"
)

// DumpFunc receives the compilation's intermediate state at a phase
// boundary: a *graph.Graph after frontend, canonicalize, inline, escape
// and lowering, a *lir.Program after LIR generation. Scheduling and
// register allocation are not dumped. The concrete sink
// (internal/dumpserver) decides how to render or ship it.
type DumpFunc func(phase string, payload interface{})

// ProgressFunc is invoked once per completed phase (spec.md §5 "an
// optional progress callback may be invoked at phase boundaries").
type ProgressFunc func(phase string)

// Request bundles one compilation's inputs. Graph is mutated in place
// by the pipeline; callers that need the pre-compilation graph should
// keep their own copy.
type Request struct {
	Method graph.MethodRef
	Graph  *graph.Graph
	Oracle oracle.Oracle

	Plugins *plugin.Registry
	Resolve inline.CalleeResolver
	Inline  inline.Config
	Hints   map[graph.ID]inline.Hint

	ScheduleStrategy schedule.Strategy
	MemoryMode       schedule.MemoryMode

	Foreign  lir.ForeignCallResolver
	GenHooks map[graph.Kind]lir.GenFunc

	NumRegs        int
	NumCalleeSaved int

	Dump     DumpFunc
	Progress ProgressFunc
}

// Result is one compilation's outcome: Ok(*Artifact) or a typed
// failure. Aliased so callers needn't spell out the generic instance.
type Result = compileerr.Result[*Artifact]

// Artifact is the pipeline's terminal output on success.
type Artifact struct {
	SessionID ksuid.KSUID

	CanonRewrites int
	InlineCount   int
	Escape        *escape.Result
	Lower         *lower.Result

	Program  *lir.Program
	Frame    *lir.Frame
	RegAlloc *regalloc.Result
}

// phaseNames, in pipeline order, matches spec.md §5's declared order.
const (
	phaseFrontend      = "frontend"
	phaseCanonicalize  = "canonicalize"
	phaseInline        = "inline"
	phaseEscape        = "escape"
	phaseLowering      = "lowering"
	phaseScheduling    = "scheduling"
	phaseLIR           = "lir"
	phaseRegalloc      = "regalloc"
)

// Compile runs the full pipeline over req.Graph, returning Ok(artifact)
// on success or the typed failure that stopped it. ctx is polled at
// every phase boundary (spec.md §5 "cooperative... passes poll a
// cancellation flag at phase start").
func Compile(ctx context.Context, req *Request) Result {
	session := ksuid.New()
	scope.Push("compile")
	defer scope.Pop()
	timer := scope.StartTimer("compile")
	defer timer.Stop()

	if r, stop := checkCancel(ctx, phaseFrontend); stop {
		return r
	}
	g := req.Graph
	c := cfg.Build(g)
	req.dump(phaseFrontend, g)
	req.progress(phaseFrontend)

	if r, stop := checkCancel(ctx, phaseCanonicalize); stop {
		return r
	}
	canonFired := 0
	scope.With(phaseCanonicalize, func() {
		canonFired = canon.NewCanonicalizer().Run(g)
		c = cfg.Build(g)
		canonFired += canon.EliminateConditions(g, c)
	})
	req.dump(phaseCanonicalize, g)
	req.progress(phaseCanonicalize)

	if r, stop := checkCancel(ctx, phaseInline); stop {
		return r
	}
	inlineCount := 0
	var inlineErr error
	scope.With(phaseInline, func() {
		inl := &inline.Inliner{Oracle: req.Oracle, Plugins: req.Plugins, Resolve: req.Resolve, Config: req.Inline, Root: req.Method}
		inlineCount, inlineErr = inl.Run(g, req.Hints)
	})
	if inlineErr != nil {
		if depth, ok := inlineErr.(*inline.DepthExceeded); ok {
			return compileerr.Bailout[*Artifact](&compileerr.BailoutRecord{
				Cause:     compileerr.BailoutInliningDepthExceeded,
				Phase:     phaseInline,
				Detail:    depth.Error(),
				ScopePath: scope.Current().Path(),
			})
		}
		if cyc, ok := inlineErr.(*inline.CyclicInline); ok {
			return compileerr.Bailout[*Artifact](&compileerr.BailoutRecord{
				Cause:     compileerr.BailoutInliningCycleDetected,
				Phase:     phaseInline,
				Detail:    cyc.Error(),
				ScopePath: scope.Current().Path(),
			})
		}
		return compileerr.Internal[*Artifact](compileerr.NewInternalError(phaseInline, scope.Current().Path(), inlineErr))
	}
	c = cfg.Build(g)
	req.dump(phaseInline, g)
	req.progress(phaseInline)

	if r, stop := checkCancel(ctx, phaseEscape); stop {
		return r
	}
	var escRes *escape.Result
	scope.With(phaseEscape, func() { escRes = escape.Run(g, c) })
	req.dump(phaseEscape, g)
	req.progress(phaseEscape)

	if r, stop := checkCancel(ctx, phaseLowering); stop {
		return r
	}
	var lowerRes *lower.Result
	scope.With(phaseLowering, func() { lowerRes = lower.Run(g, c) })
	c = cfg.Build(g)
	req.dump(phaseLowering, g)
	req.progress(phaseLowering)

	if r, stop := checkCancel(ctx, phaseScheduling); stop {
		return r
	}
	var sched *schedule.Result
	var schedErr error
	scope.With(phaseScheduling, func() {
		sched, schedErr = schedule.Schedule(g, c, req.ScheduleStrategy, req.MemoryMode)
	})
	if schedErr != nil {
		return compileerr.Internal[*Artifact](compileerr.NewInternalError(phaseScheduling, scope.Current().Path(), schedErr))
	}
	req.progress(phaseScheduling)

	if r, stop := checkCancel(ctx, phaseLIR); stop {
		return r
	}
	var prog *lir.Program
	var frame *lir.Frame
	scope.With(phaseLIR, func() { prog, frame = lir.Generate(g, c, sched, req.Foreign, req.GenHooks) })
	req.dump(phaseLIR, prog)
	req.progress(phaseLIR)

	if r, stop := checkCancel(ctx, phaseRegalloc); stop {
		return r
	}
	var allocResult *regalloc.Result
	var allocErr error
	scope.With(phaseRegalloc, func() {
		allocResult, allocErr = regalloc.Allocate(prog, req.NumRegs, req.NumCalleeSaved)
	})
	if allocErr != nil {
		if insufficient, ok := allocErr.(*regalloc.InsufficientCalleeSaved); ok {
			return compileerr.Bailout[*Artifact](&compileerr.BailoutRecord{
				Cause:     compileerr.BailoutInsufficientCalleeSaved,
				Phase:     phaseRegalloc,
				Detail:    insufficient.Error(),
				ScopePath: scope.Current().Path(),
			})
		}
		return compileerr.Internal[*Artifact](compileerr.NewInternalError(phaseRegalloc, scope.Current().Path(), allocErr))
	}
	req.progress(phaseRegalloc)

	return compileerr.Ok(&Artifact{
		SessionID:      session,
		CanonRewrites:  canonFired,
		InlineCount:    inlineCount,
		Escape:         escRes,
		Lower:          lowerRes,
		Program:        prog,
		Frame:          frame,
		RegAlloc:       allocResult,
	})
}

// checkCancel reports a Bailout(BailoutCancelled) result and stop=true
// if ctx has already been cancelled before entering phase.
func checkCancel(ctx context.Context, phase string) (Result, bool) {
	if ctx == nil {
		return Result{}, false
	}
	select {
	case <-ctx.Done():
		return compileerr.Bailout[*Artifact](&compileerr.BailoutRecord{
			Cause:     compileerr.BailoutCancelled,
			Phase:     phase,
			Detail:    ctx.Err().Error(),
			ScopePath: scope.Current().Path(),
		}), true
	default:
		return Result{}, false
	}
}

func (r *Request) dump(phase string, payload interface{}) {
	if r.Dump != nil {
		r.Dump(phase, payload)
	}
}

func (r *Request) progress(phase string) {
	if r.Progress != nil {
		r.Progress(phase)
	}
}
