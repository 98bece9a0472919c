package verify

import (
	"fmt"

	"jitcore/internal/cfg"
)

// CFGViolation is one CFG-verifier finding.
type CFGViolation struct {
	Block   int
	Message string
}

func (v *CFGViolation) Error() string {
	return fmt.Sprintf("block %d: %s", v.Block, v.Message)
}

// CFGResult collects every violation VerifyCFG found.
type CFGResult struct {
	Violations []*CFGViolation
}

func (r *CFGResult) OK() bool { return len(r.Violations) == 0 }

func (r *CFGResult) add(block int, format string, args ...interface{}) {
	r.Violations = append(r.Violations, &CFGViolation{Block: block, Message: fmt.Sprintf(format, args...)})
}

// VerifyCFG checks that RPO numbering is consistent with dominance
// (spec.md §8 "CFG verifier"): the entry block has no immediate
// dominator, and every other block's immediate dominator has a
// strictly smaller RPO number than the block itself — the invariant
// internal/cfg's own dominator computation (Cooper/Harvey/Kennedy)
// relies on to terminate correctly.
func VerifyCFG(c *cfg.CFG) *CFGResult {
	res := &CFGResult{}

	entry := c.Entry()
	if entry == nil {
		res.add(-1, "CFG has no entry block")
		return res
	}
	if entry.Idom() != nil {
		res.add(entry.ID(), "entry block must not have an immediate dominator")
	}
	if entry.RPO() != 0 {
		res.add(entry.ID(), "entry block must have RPO 0, has %d", entry.RPO())
	}

	seenRPO := make(map[int]int)
	for _, b := range c.Blocks() {
		if other, ok := seenRPO[b.RPO()]; ok {
			res.add(b.ID(), "RPO %d shared with block %d", b.RPO(), other)
		}
		seenRPO[b.RPO()] = b.ID()

		if b == entry {
			continue
		}
		if idom := b.Idom(); idom != nil && idom.RPO() >= b.RPO() {
			res.add(b.ID(), "immediate dominator block %d has RPO %d, not less than %d", idom.ID(), idom.RPO(), b.RPO())
		}
	}

	return res
}
