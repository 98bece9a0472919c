package log

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jitcore/internal/scope"
)

func TestTagIncludesActiveScopePath(t *testing.T) {
	l := Get("jitcore.test")

	assert.Equal(t, "hello %s", l.tag("hello %s"))

	scope.Push("compile")
	scope.Push("inline")
	defer scope.Pop()
	defer scope.Pop()

	assert.Equal(t, "[compile/inline] hello %s", l.tag("hello %s"))
}

func TestGetReturnsUsableLogger(t *testing.T) {
	l := Get("jitcore.another")
	assert.NotNil(t, l)
	// Exercise every wrapped level; commonlog writes to its configured
	// sink (stderr by default) rather than returning anything testable.
	l.Debugf("debug %d", 1)
	l.Messagef("message %d", 2)
	l.Errorf("error %d", 3)
}
