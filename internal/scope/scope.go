// Package scope implements the thread-local debug-scope stack of
// spec.md §5: each compilation goroutine owns a named-scope stack, and
// metrics/timers aggregate across threads via atomic counters keyed by
// (scope, name).
package scope

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
	deadlock "github.com/sasha-s/go-deadlock"
)

// Scope is one named frame on a goroutine's debug-scope stack.
type Scope struct {
	Name   string
	Parent *Scope
}

// Path returns the scope chain from root to this scope, e.g.
// ["compile", "inline", "tryInline"].
func (s *Scope) Path() []string {
	if s == nil {
		return nil
	}
	var rev []string
	for cur := s; cur != nil; cur = cur.Parent {
		rev = append(rev, cur.Name)
	}
	out := make([]string, len(rev))
	for i, name := range rev {
		out[len(rev)-1-i] = name
	}
	return out
}

// stacks maps a goroutine id (github.com/petermattis/goid) to its
// current top-of-stack Scope. A sync.Map rather than a single mutex
// since every compilation goroutine only ever touches its own key.
var stacks sync.Map // map[int64]*Scope

// Push starts a new named scope on the calling goroutine's stack and
// returns it; pair with Pop (typically via defer) to leave it.
func Push(name string) *Scope {
	gid := goid.Get()
	var parent *Scope
	if v, ok := stacks.Load(gid); ok {
		parent = v.(*Scope)
	}
	s := &Scope{Name: name, Parent: parent}
	stacks.Store(gid, s)
	return s
}

// Pop restores the calling goroutine's stack to the scope active
// before the most recent Push.
func Pop() {
	gid := goid.Get()
	v, ok := stacks.Load(gid)
	if !ok {
		return
	}
	cur := v.(*Scope)
	if cur.Parent == nil {
		stacks.Delete(gid)
		return
	}
	stacks.Store(gid, cur.Parent)
}

// Current returns the calling goroutine's active scope, or nil if none
// is open.
func Current() *Scope {
	gid := goid.Get()
	if v, ok := stacks.Load(gid); ok {
		return v.(*Scope)
	}
	return nil
}

// With runs fn with name pushed as the active scope, always popping
// afterward even if fn panics.
func With(name string, fn func()) {
	Push(name)
	defer Pop()
	fn()
}

// metricKey identifies a named counter/timer within a scope path; scope
// is the path joined with "/" so distinct nesting produces distinct
// keys (e.g. "compile/inline" vs "compile/escape").
type metricKey struct {
	scope string
	name  string
}

var (
	metricsMu deadlock.Mutex
	counters  = map[metricKey]*int64{}
	timerSums = map[metricKey]*int64{} // nanoseconds
	timerHits = map[metricKey]*int64{}
)

func cellFor(m map[metricKey]*int64, mu *deadlock.Mutex, k metricKey) *int64 {
	mu.Lock()
	defer mu.Unlock()
	if c, ok := m[k]; ok {
		return c
	}
	c := new(int64)
	m[k] = c
	return c
}

// Increment adds delta to the named counter scoped by the calling
// goroutine's current scope path.
func Increment(name string, delta int64) {
	k := metricKey{scope: pathKey(Current()), name: name}
	atomic.AddInt64(cellFor(counters, &metricsMu, k), delta)
}

// Counter reads the current value of a named counter within scope.
func Counter(scopePath []string, name string) int64 {
	k := metricKey{scope: joinPath(scopePath), name: name}
	metricsMu.Lock()
	c, ok := counters[k]
	metricsMu.Unlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(c)
}

// Timer measures one timed interval and records it on Stop into the
// named timer scoped by the calling goroutine's current scope path.
type Timer struct {
	key   metricKey
	start time.Time
}

// StartTimer begins timing name under the calling goroutine's active
// scope.
func StartTimer(name string) *Timer {
	return &Timer{key: metricKey{scope: pathKey(Current()), name: name}, start: time.Now()}
}

// Stop records the elapsed time since StartTimer and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	atomic.AddInt64(cellFor(timerSums, &metricsMu, t.key), elapsed.Nanoseconds())
	atomic.AddInt64(cellFor(timerHits, &metricsMu, t.key), 1)
	return elapsed
}

// TimerStats returns the total elapsed nanoseconds and hit count
// recorded for a named timer within scope.
func TimerStats(scopePath []string, name string) (totalNanos int64, hits int64) {
	k := metricKey{scope: joinPath(scopePath), name: name}
	metricsMu.Lock()
	sumCell, sumOK := timerSums[k]
	hitCell, hitOK := timerHits[k]
	metricsMu.Unlock()
	if sumOK {
		totalNanos = atomic.LoadInt64(sumCell)
	}
	if hitOK {
		hits = atomic.LoadInt64(hitCell)
	}
	return totalNanos, hits
}

func pathKey(s *Scope) string { return joinPath(s.Path()) }

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}
