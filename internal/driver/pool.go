package driver

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pool is the bounded goroutine pool of spec.md §5: multiple
// compilations run in parallel, sharing read-only oracles but never a
// graph. Submissions beyond numWorkers block inside errgroup.Group's
// SetLimit rather than spawning unbounded goroutines.
//
// Unlike errgroup.WithContext, Pool's group carries no shared context:
// a bailout or internal error in one compilation must never cancel its
// siblings (spec.md §5 "a bailout... aborts the current compilation
// but never the pool"), so every submitted task always returns a nil
// error to the group and reports its real outcome on its own result
// channel instead.
type Pool struct {
	g *errgroup.Group
}

// NewPool returns a pool that runs at most numWorkers compilations
// concurrently.
func NewPool(numWorkers int) *Pool {
	g := &errgroup.Group{}
	g.SetLimit(numWorkers)
	return &Pool{g: g}
}

// Submit queues req and returns a channel that receives its single
// result once the pipeline finishes (or bails, or errors). Submit itself
// blocks while numWorkers compilations are already running. The channel
// is buffered so the task never blocks sending its result to a caller
// that has not started receiving yet.
func (p *Pool) Submit(ctx context.Context, req *Request) <-chan Result {
	out := make(chan Result, 1)
	p.g.Go(func() error {
		out <- Compile(ctx, req)
		return nil
	})
	return out
}

// Wait blocks until every submitted compilation has finished.
func (p *Pool) Wait() { _ = p.g.Wait() }
