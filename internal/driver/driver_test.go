package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitcore/internal/compileerr"
	"jitcore/internal/graph"
	"jitcore/internal/oracle"
	"jitcore/internal/schedule"
	"jitcore/internal/stamp"
)

// buildSumOfParams wires Start->Begin->[param0,param1]->Binary(Add)->Return,
// spec.md §8 scenario 6: "a trivial leaf returning a sum of two parameters".
func buildSumOfParams(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	entry := g.AddBegin(false)
	require.NoError(t, g.SetSuccessors(g.Start(), []graph.ID{entry}))

	p0 := g.AddParameter(0, stamp.IntTop(32, true))
	p1 := g.AddParameter(1, stamp.IntTop(32, true))
	sum, err := g.AddBinary(graph.OpAdd, p0, p1)
	require.NoError(t, err)
	ret := g.AddReturn(sum, entry)
	require.NoError(t, g.SetSuccessors(entry, []graph.ID{ret}))
	return g
}

func TestCompileRunsFullPipelineOnTrivialLeaf(t *testing.T) {
	req := &Request{
		Method:           graph.MethodRef{Holder: "Math", Name: "sum", Sig: "(II)I"},
		Graph:            buildSumOfParams(t),
		Oracle:           oracle.NewStatic(),
		ScheduleStrategy: schedule.Earliest,
		MemoryMode:       schedule.MemoryNone,
		NumRegs:          4,
		NumCalleeSaved:   2,
	}

	var phases []string
	req.Progress = func(phase string) { phases = append(phases, phase) }

	result := Compile(context.Background(), req)
	require.Equal(t, compileerr.KindOk, result.Kind())

	artifact, ok := result.Value()
	require.True(t, ok)
	require.NotNil(t, artifact.Program)
	require.NotNil(t, artifact.RegAlloc)
	assert.Equal(t, 0, artifact.InlineCount)
	assert.Equal(t,
		[]string{phaseFrontend, phaseCanonicalize, phaseInline, phaseEscape, phaseLowering, phaseScheduling, phaseLIR, phaseRegalloc},
		phases)

	var ops []string
	for _, b := range artifact.Program.Blocks {
		for _, inst := range b.Insts {
			ops = append(ops, inst.Op)
		}
	}
	assert.Equal(t, []string{"param", "param", "add", "return"}, ops)
}

func TestCompileReportsCancelledBailoutWhenContextAlreadyDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := &Request{
		Graph:          buildSumOfParams(t),
		Oracle:         oracle.NewStatic(),
		NumRegs:        4,
		NumCalleeSaved: 2,
	}

	result := Compile(ctx, req)
	require.Equal(t, compileerr.KindBailout, result.Kind())
	err, ok := result.Err().(*compileerr.BailoutRecord)
	require.True(t, ok)
	assert.Equal(t, compileerr.BailoutCancelled, err.Cause)
	assert.Equal(t, phaseFrontend, err.Phase)
}

func TestCompileDumpsAfterEveryGraphOrLIRProducingPhase(t *testing.T) {
	req := &Request{
		Graph:          buildSumOfParams(t),
		Oracle:         oracle.NewStatic(),
		NumRegs:        4,
		NumCalleeSaved: 2,
	}
	var dumped []string
	req.Dump = func(phase string, payload interface{}) { dumped = append(dumped, phase) }

	result := Compile(context.Background(), req)
	require.Equal(t, compileerr.KindOk, result.Kind())
	assert.Equal(t, []string{phaseFrontend, phaseCanonicalize, phaseInline, phaseEscape, phaseLowering, phaseLIR}, dumped)
}

func TestPoolRunsSubmittedCompilationsAndReturnsResults(t *testing.T) {
	pool := NewPool(2)
	var channels []<-chan Result
	for i := 0; i < 5; i++ {
		req := &Request{
			Graph:          buildSumOfParams(t),
			Oracle:         oracle.NewStatic(),
			NumRegs:        4,
			NumCalleeSaved: 2,
		}
		channels = append(channels, pool.Submit(context.Background(), req))
	}
	pool.Wait()

	for _, ch := range channels {
		result := <-ch
		assert.Equal(t, compileerr.KindOk, result.Kind())
	}
}
