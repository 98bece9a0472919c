package compileerr

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Reporter renders Result failures for the CLI and dump sink, adapted
// from the teacher's internal/errors.ErrorReporter: the same
// color/indent pipeline, now formatting compiler-internal records
// instead of source-level diagnostics (there is no source text to show
// a caret under here, so the "context lines" concept becomes "phase +
// scope path").
type Reporter struct{}

func NewReporter() *Reporter { return &Reporter{} }

// Format renders any Result's failure (a no-op, empty string, for Ok).
func Format[T any](rep *Reporter, r Result[T]) string {
	switch r.Kind() {
	case KindOk:
		return ""
	case KindBailout:
		return rep.formatBailout(r.bailout)
	case KindInternal:
		return rep.formatInternal(r.internal)
	case KindVerification:
		return rep.formatVerification(r.verification)
	case KindLinkage:
		return rep.formatLinkage(r.linkage)
	default:
		return ""
	}
}

func (rep *Reporter) formatBailout(b *BailoutRecord) string {
	var out strings.Builder
	warn := color.New(color.FgYellow, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	out.WriteString(fmt.Sprintf("%s: %s\n", warn("bailout"), b.Cause))
	out.WriteString(fmt.Sprintf("  %s phase: %s\n", dim("-->"), b.Phase))
	if b.Detail != "" {
		out.WriteString(fmt.Sprintf("  %s %s\n", dim("│"), b.Detail))
	}
	if len(b.ScopePath) > 0 {
		out.WriteString(fmt.Sprintf("  %s scope: %s\n", dim("│"), strings.Join(b.ScopePath, "/")))
	}
	return out.String()
}

func (rep *Reporter) formatInternal(e *InternalError) string {
	var out strings.Builder
	bad := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	out.WriteString(fmt.Sprintf("%s: %s\n", bad("internal error"), e.Cause))
	out.WriteString(fmt.Sprintf("  %s phase: %s\n", dim("-->"), e.Phase))
	if len(e.ScopePath) > 0 {
		out.WriteString(fmt.Sprintf("  %s scope: %s\n", dim("│"), strings.Join(e.ScopePath, "/")))
	}
	out.WriteString(fmt.Sprintf("  %s %+v\n", dim("│"), e.Cause))
	return out.String()
}

func (rep *Reporter) formatVerification(e *VerificationError) string {
	bad := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	return fmt.Sprintf("%s: %s\n  %s after phase %s\n", bad("verification failed"), e.Message, dim("-->"), e.Phase)
}

func (rep *Reporter) formatLinkage(e *LinkageError) string {
	bad := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	return fmt.Sprintf("%s: %s\n  %s %s\n", bad("linkage error"), e.Symbol, dim("-->"), e.Cause)
}
