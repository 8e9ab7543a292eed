package verifier

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/esbmc-ai/esbmc-ai-go/internal/verifyout"
)

const (
	violatedPropertyMarker = "Violated property:"
	counterexampleMarker   = "[Counterexample]"
	stackTraceMarker       = "Stack trace:"
	parsingErrorMarker     = "ERROR: PARSING ERROR"
	timedOutMarker         = "ERROR: Timed out"
)

// stateHeaderRE matches a counterexample state header line, e.g.:
//
//	State 3 file main.c line 12 column 5 function main thread 0
//
// The function clause is optional.
var stateHeaderRE = regexp.MustCompile(`^State (\d+) file (\S+) line (\d+) column (\d+)(?: function (\S+))?(?: thread (\d+))?`)

// clangDiagnosticRE matches a compiler-style diagnostic line, e.g.:
//
//	main.c:12:5: error: expected ';' before '}' token
var clangDiagnosticRE = regexp.MustCompile(`^(\S+):(\d+):(\d+): error: (.+)$`)

// Parse turns raw verifier output into a verifyout.Output. returnCode
// is the verifier subprocess's own exit code, which decides whether
// Parse needs to fabricate a generic Issue when parsing finds nothing
// concrete.
func Parse(raw string, returnCode int) verifyout.Output {
	out := verifyout.Output{ReturnCode: returnCode, Raw: raw}

	// ErrorType classification takes the *last* occurrence of a marker
	// in the output, matching the original parser's use of rfind over
	// find: later sections of ESBMC's output are more specific than
	// earlier ones (e.g. a summary line can repeat an earlier marker).
	if idx := strings.LastIndex(raw, timedOutMarker); idx >= 0 {
		out.TimedOut = true
		return out
	}
	if idx := strings.LastIndex(raw, parsingErrorMarker); idx >= 0 {
		out.ParseError = true
		out.Issues = parseClangDiagnostics(raw)
		return out
	}

	if out.Successful() {
		return out
	}

	if issue, ok := parseViolatedProperty(raw); ok {
		out.Issues = []verifyout.VerifierIssue{issue}
		return out
	}

	if len(out.Issues) == 0 {
		out.Issues = []verifyout.VerifierIssue{genericIssue(raw)}
	}
	return out
}

func genericIssue(raw string) verifyout.VerifierIssue {
	return verifyout.VerifierIssue{
		Issue: verifyout.Issue{
			ErrorType: "unknown",
			Message:   "verifier exited with a nonzero status and no issue could be parsed from its output",
			Severity:  verifyout.SeverityError,
			StackTrace: []verifyout.ProgramTrace{
				{TraceIndex: 0, Path: "", Name: "", LineIdx: 0},
			},
		},
	}
}

// parseViolatedProperty extracts the property violation two lines
// below the "Violated property:" marker, plus the counterexample block
// and the stack trace section, per the verifier's standard BMC-style
// report layout.
func parseViolatedProperty(raw string) (verifyout.VerifierIssue, bool) {
	idx := strings.LastIndex(raw, violatedPropertyMarker)
	if idx < 0 {
		return verifyout.VerifierIssue{}, false
	}
	lines := strings.Split(raw[idx:], "\n")
	errorType := ""
	message := ""
	if len(lines) > 2 {
		// lines[0] is the "Violated property:" marker itself, lines[1] is
		// the location line, lines[2] is the scenario/error-type line —
		// matches esbmc_get_error_type's rfind-then-second-newline walk.
		errorType = strings.TrimSpace(lines[2])
		message = strings.Join(lines[:3], "\n")
	}

	counterexample := parseCounterexample(raw)
	stackTrace := parseStackTrace(raw)
	if len(stackTrace) == 0 {
		// Every Issue requires at least one trace point; fall back to
		// the last counterexample state as the point of failure.
		if len(counterexample) > 0 {
			stackTrace = []verifyout.ProgramTrace{counterexample[len(counterexample)-1].ProgramTrace}
		} else {
			stackTrace = []verifyout.ProgramTrace{{TraceIndex: 0}}
		}
	}

	return verifyout.VerifierIssue{
		Issue: verifyout.Issue{
			ErrorType:  errorType,
			Message:    message,
			Severity:   verifyout.SeverityError,
			StackTrace: stackTrace,
		},
		Counterexample: counterexample,
	}, true
}

func parseCounterexample(raw string) []verifyout.CounterexampleProgramTrace {
	idx := strings.Index(raw, counterexampleMarker)
	if idx < 0 {
		return nil
	}
	section := raw[idx+len(counterexampleMarker):]
	if end := strings.Index(section, stackTraceMarker); end >= 0 {
		section = section[:end]
	}

	var traces []verifyout.CounterexampleProgramTrace
	lines := strings.Split(section, "\n")
	for i := 0; i < len(lines); i++ {
		m := stateHeaderRE.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		traceIdx, _ := strconv.Atoi(m[1])
		lineNum, _ := strconv.Atoi(m[3])
		assignment := ""
		// The assignment, if any, follows a "----" separator (a line of
		// dashes of any length) on the next non-empty line before the
		// next state header.
		for j := i + 1; j < len(lines); j++ {
			trimmed := strings.TrimSpace(lines[j])
			if trimmed != "" && strings.Trim(trimmed, "-") == "" {
				continue
			}
			if trimmed == "" || stateHeaderRE.MatchString(trimmed) {
				break
			}
			assignment = trimmed
			break
		}
		traces = append(traces, verifyout.CounterexampleProgramTrace{
			ProgramTrace: verifyout.ProgramTrace{
				TraceIndex: traceIdx,
				Path:       m[2],
				Name:       m[5],
				LineIdx:    lineNum - 1,
			},
			Assignment: assignment,
		})
	}
	return traces
}

func parseStackTrace(raw string) []verifyout.ProgramTrace {
	idx := strings.Index(raw, stackTraceMarker)
	if idx < 0 {
		return nil
	}
	section := raw[idx+len(stackTraceMarker):]
	var traces []verifyout.ProgramTrace
	for i, line := range strings.Split(section, "\n") {
		m := stateHeaderRE.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		lineNum, _ := strconv.Atoi(m[3])
		traces = append(traces, verifyout.ProgramTrace{
			TraceIndex: i,
			Path:       m[2],
			Name:       m[5],
			LineIdx:    lineNum - 1,
		})
	}
	return traces
}

func parseClangDiagnostics(raw string) []verifyout.VerifierIssue {
	var issues []verifyout.VerifierIssue
	for _, line := range strings.Split(raw, "\n") {
		m := clangDiagnosticRE.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		lineNum, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		_ = col
		issues = append(issues, verifyout.VerifierIssue{
			Issue: verifyout.Issue{
				ErrorType: "parsing error",
				Message:   m[4],
				Severity:  verifyout.SeverityError,
				StackTrace: []verifyout.ProgramTrace{
					{Path: m[1], LineIdx: lineNum - 1},
				},
			},
		})
	}
	if len(issues) == 0 {
		issues = []verifyout.VerifierIssue{genericIssue(raw)}
	}
	return issues
}
