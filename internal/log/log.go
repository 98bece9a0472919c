// Package log is the compiler-wide logging facade (spec.md §10.1),
// wrapping github.com/tliron/commonlog the way the teacher's
// cmd/kanso-lsp wires it for LSP protocol logging — repurposed here as
// the compiler's general logging facility, with every line
// automatically tagged with the calling goroutine's active debug-scope
// path (internal/scope).
package log

import (
	"strings"

	"github.com/tliron/commonlog"

	"jitcore/internal/scope"
)

// Configure sets the global maximum verbosity (commonlog's own scale:
// 0 silences everything above Critical, higher numbers show more
// Debug-level detail) and, if logPath is non-empty, directs output to
// that file instead of stderr.
func Configure(maxVerbosity int, logPath string) {
	if logPath == "" {
		commonlog.Configure(maxVerbosity, nil)
		return
	}
	commonlog.Configure(maxVerbosity, &logPath)
}

// Logger is a named logging facade for one package or subsystem.
type Logger struct {
	name string
	inner commonlog.Logger
}

// Get returns the logger for name, matching commonlog.GetLogger's own
// per-name registry semantics (repeated calls with the same name
// return equivalent loggers).
func Get(name string) *Logger {
	return &Logger{name: name, inner: commonlog.GetLogger(name)}
}

func (l *Logger) tag(format string) string {
	path := scope.Current().Path()
	if len(path) == 0 {
		return format
	}
	return "[" + strings.Join(path, "/") + "] " + format
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.inner.Debugf(l.tag(format), args...)
}

func (l *Logger) Messagef(format string, args ...interface{}) {
	l.inner.Messagef(l.tag(format), args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.inner.Errorf(l.tag(format), args...)
}
