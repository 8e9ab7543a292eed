package verifyout

// Output is the structured result of a single verifier invocation.
// Its Issues hold either a BMC-style property violation (with
// counterexample) or compiler diagnostics, depending on whether the
// verifier produced a verification result or a parse/compile error —
// see internal/verifier's parser for the switch.
type Output struct {
	// ReturnCode is the verifier subprocess's exit code.
	ReturnCode int
	// Raw is the unparsed, merged stdout+stderr of the verifier run.
	Raw string
	// Issues is every issue parsed out of Raw. Unless TimedOut is set,
	// it has at least one element when Successful() is false — the
	// parser fabricates a generic Issue if the verifier exited nonzero
	// but nothing could be parsed from its output. A timed-out Output
	// carries no Issues.
	Issues []VerifierIssue
	// TimedOut is true when the verifier's own "Timed out" sentinel
	// was observed (distinct from the adapter's subprocess timeout,
	// which becomes a VerifierTimeout error rather than an Output).
	TimedOut bool
	// ParseError is true when the verifier reported a source parse
	// error instead of a verification result.
	ParseError bool
}

// Successful reports whether verification passed: return code 0.
func (o Output) Successful() bool { return o.ReturnCode == 0 }

// PrimaryIssue returns the highest-severity issue in Issues. Callers
// must only call this when len(Issues) > 0, i.e. when !Successful().
func (o Output) PrimaryIssue() VerifierIssue { return PrimaryIssue(o.Issues) }
