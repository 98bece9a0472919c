package compileerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultOkRoundTrips(t *testing.T) {
	r := Ok(42)
	assert.Equal(t, KindOk, r.Kind())
	assert.True(t, r.IsOk())
	v, ok := r.Value()
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Nil(t, r.Err())
}

func TestResultBailoutCarriesCause(t *testing.T) {
	r := Bailout[int](&BailoutRecord{Cause: BailoutInliningDepthExceeded, Phase: "inline", Detail: "depth 12 > 8"})
	assert.Equal(t, KindBailout, r.Kind())
	assert.False(t, r.IsOk())
	_, ok := r.Value()
	assert.False(t, ok)
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "inlining depth exceeded")
}

func TestInternalErrorUnwrapsToCause(t *testing.T) {
	root := errors.New("nil map write")
	ie := NewInternalError("lower", []string{"compile", "lower"}, root)
	r := Internal[int](ie)

	assert.Equal(t, KindInternal, r.Kind())
	assert.ErrorIs(t, r.Err(), root)
}

func TestVerificationErrorFormatsWithReporter(t *testing.T) {
	ve := NewVerificationError("canon", "dangling input on node 7")
	r := Verification[int](ve)
	rep := NewReporter()
	out := Format(rep, r)
	assert.Contains(t, out, "verification failed")
	assert.Contains(t, out, "canon")
}

func TestLinkageErrorFormatsWithReporter(t *testing.T) {
	le := &LinkageError{Symbol: "java/lang/Object.hashCode", Cause: errors.New("not found")}
	r := Linkage[int](le)
	rep := NewReporter()
	out := Format(rep, r)
	assert.Contains(t, out, "linkage error")
	assert.Contains(t, out, "java/lang/Object.hashCode")
}

func TestFormatOnOkResultIsEmpty(t *testing.T) {
	rep := NewReporter()
	assert.Equal(t, "", Format(rep, Ok("fine")))
}
