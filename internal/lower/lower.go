package lower

import (
	"jitcore/internal/cfg"
	"jitcore/internal/graph"
)

// Result bundles the outcome of the three lowering phases, run in the
// order spec.md §4.8 mandates: floating reads must not be introduced
// after frame-state assignment, and guard lowering must run last.
type Result struct {
	FloatingRead *FloatingReadResult
	FrameState   *FrameStateResult
	GuardLower   *GuardLoweringResult
	Cleared      int
}

// Run applies FloatingReadPhase, then AssignFrameStates, then
// LowerGuards, over g, rebuilding the CFG between the floating-read
// phase and the rest since converting fixed LoadFields to floating
// reads changes block node snapshots that frame-state assignment and
// guard lowering both need current.
func Run(g *graph.Graph, c *cfg.CFG) *Result {
	fr := FloatingReadPhase(g, c)

	c2 := cfg.Build(g)
	fs := AssignFrameStates(g, c2)
	gl := LowerGuards(g, c2, fs)
	cleared := clearOrphanedFrameStates(g)

	return &Result{
		FloatingRead: fr,
		FrameState:   fs,
		GuardLower:   gl,
		Cleared:      cleared,
	}
}
