package scope

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopBuildsPath(t *testing.T) {
	require.Nil(t, Current())
	Push("compile")
	Push("inline")
	assert.Equal(t, []string{"compile", "inline"}, Current().Path())
	Pop()
	assert.Equal(t, []string{"compile"}, Current().Path())
	Pop()
	assert.Nil(t, Current())
}

func TestWithRestoresOnPanicRecovered(t *testing.T) {
	Push("outer")
	func() {
		defer func() { recover() }()
		With("inner", func() {
			assert.Equal(t, []string{"outer", "inner"}, Current().Path())
			panic("boom")
		})
	}()
	assert.Equal(t, []string{"outer"}, Current().Path())
	Pop()
}

func TestScopesAreGoroutineLocal(t *testing.T) {
	Push("main-goroutine-scope")
	defer Pop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.Nil(t, Current())
		Push("worker")
		assert.Equal(t, []string{"worker"}, Current().Path())
		Pop()
	}()
	wg.Wait()

	assert.Equal(t, []string{"main-goroutine-scope"}, Current().Path())
}

func TestCounterAccumulatesUnderScope(t *testing.T) {
	Push("metrics-test")
	defer Pop()

	Increment("nodes-visited", 3)
	Increment("nodes-visited", 4)

	assert.Equal(t, int64(7), Counter([]string{"metrics-test"}, "nodes-visited"))
}

func TestTimerRecordsElapsedAndHits(t *testing.T) {
	Push("timer-test")
	defer Pop()

	timer := StartTimer("phase")
	elapsed := timer.Stop()
	assert.GreaterOrEqual(t, elapsed.Nanoseconds(), int64(0))

	total, hits := TimerStats([]string{"timer-test"}, "phase")
	assert.Equal(t, int64(1), hits)
	assert.GreaterOrEqual(t, total, int64(0))
}
