package verifyout

import "fmt"

// Severity is an issue's severity level.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Level returns the severity as an ordered int (info=0, warning=1,
// error=2), so the highest-severity issue in a set can be found by
// max.
func (s Severity) Level() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Issue is a generic error/warning representation. StackTrace is the
// single source of truth for location: every derived property below
// comes from StackTrace's last entry, the point of failure — earlier
// entries show the call chain leading to it.
type Issue struct {
	ErrorType  string
	Message    string
	StackTrace []ProgramTrace
	Severity   Severity
}

func (i Issue) lastTrace() ProgramTrace {
	return i.StackTrace[len(i.StackTrace)-1]
}

// SeverityLevel returns Severity.Level() for convenience.
func (i Issue) SeverityLevel() int { return i.Severity.Level() }

// FilePath is the source file of the last trace point.
func (i Issue) FilePath() string { return i.lastTrace().Path }

// LineIndex is the 0-based line of the last trace point.
func (i Issue) LineIndex() int { return i.lastTrace().LineIdx }

// LineNumber is the 1-based line of the last trace point.
func (i Issue) LineNumber() int { return i.lastTrace().LineIdx + 1 }

// FunctionName is the function of the last trace point, if known.
func (i Issue) FunctionName() string { return i.lastTrace().Name }

// StackTraceFormatted renders the stack trace; see FormatStackTrace.
func (i Issue) StackTraceFormatted() string { return FormatStackTrace(i.StackTrace) }

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s (%s:%d)", i.ErrorType, i.Message, i.FilePath(), i.LineNumber())
}

// VerifierIssue extends Issue with a counterexample: the sequence of
// program states a model checker found leading to the bug. Not every
// verifier produces counterexamples (pytest, for instance, only has
// stack traces) — callers that need one should check len(Counterexample) > 0.
type VerifierIssue struct {
	Issue
	Counterexample []CounterexampleProgramTrace
}

// CounterexampleFormatted renders the counterexample; see
// FormatCounterexample.
func (v VerifierIssue) CounterexampleFormatted() string {
	return FormatCounterexample(v.Counterexample)
}

// PrimaryIssue returns the highest-severity issue in issues (ties
// broken by first occurrence). Panics if issues is empty — callers
// must guarantee at least one issue, matching the data model's
// min-length-1 stack-trace invariant one level up.
func PrimaryIssue(issues []VerifierIssue) VerifierIssue {
	best := issues[0]
	for _, iss := range issues[1:] {
		if iss.SeverityLevel() > best.SeverityLevel() {
			best = iss
		}
	}
	return best
}
