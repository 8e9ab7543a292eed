// Package verifyout models a verifier's structured output: the
// Issue/VerifierIssue it reports and the stack/counterexample traces
// backing them.
package verifyout

import "fmt"

// ProgramTrace is one point in a stack trace or counterexample.
type ProgramTrace struct {
	// TraceIndex is this point's position in the trace stack.
	TraceIndex int
	// Path is the source file this trace refers to. It may not exist
	// on disk (e.g. a compiler-supplied system header) and need not
	// be relative.
	Path string
	// Name is the symbol (usually function) the trace points to, if
	// known.
	Name string
	// LineIdx is the 0-based line index of the trace.
	LineIdx int
}

// LineNumber returns the 1-based line number for this trace point.
func (t ProgramTrace) LineNumber() int { return t.LineIdx + 1 }

// CounterexampleProgramTrace extends ProgramTrace with the variable
// assignment observed at this state, as reported by model-checker
// counterexamples.
type CounterexampleProgramTrace struct {
	ProgramTrace
	// Assignment holds the assignment statement(s) for this trace
	// state, e.g. "dist = { 0, 0, 0, 0, 0 }". Empty if the state has
	// no assignment information.
	Assignment string
}

func functionLabel(name string) string {
	if name == "" {
		return "<unknown>"
	}
	return name
}

// FormatStackTrace renders a stack trace the way Issue.StackTraceFormatted
// does: one tab-indented "at <func> in <path>:<line>" line per point.
func FormatStackTrace(trace []ProgramTrace) string {
	out := ""
	for i, t := range trace {
		if i > 0 {
			out += "\n"
		}
		out += fmt.Sprintf("\tat %s in %s:%d", functionLabel(t.Name), t.Path, t.LineNumber())
	}
	return out
}

// FormatCounterexample renders a counterexample trace the way
// VerifierIssue.CounterexampleFormatted does: one "State N: at <func>
// in <path>:<line>" line per state, followed by an optional indented
// assignment line.
func FormatCounterexample(trace []CounterexampleProgramTrace) string {
	out := ""
	first := true
	for _, t := range trace {
		if !first {
			out += "\n"
		}
		first = false
		out += fmt.Sprintf("\tState %d: at %s in %s:%d", t.TraceIndex, functionLabel(t.Name), t.Path, t.LineNumber())
		if t.Assignment != "" {
			out += "\n\t\t" + t.Assignment
		}
	}
	return out
}
