// Package generator implements the Solution Generator: it turns a
// verifier's output and a source file into an LLM prompt, sends it
// through a chat.Interface, and extracts a candidate patch from the
// reply.
package generator

import (
	"fmt"
	"strings"

	"github.com/esbmc-ai/esbmc-ai-go/internal/aprerr"
)

// SourceCodeFormat controls how much of the source is shown to the
// model.
type SourceCodeFormat string

const (
	// SourceCodeFormatFull shows the entire file.
	SourceCodeFormatFull SourceCodeFormat = "full"
	// SourceCodeFormatSingle shows only the line the verifier flagged.
	SourceCodeFormatSingle SourceCodeFormat = "single"
)

// ESBMCOutputType controls how much of the verifier's output is shown
// to the model.
type ESBMCOutputType string

const (
	ESBMCOutputFull             ESBMCOutputType = "full"
	ESBMCOutputViolatedProperty ESBMCOutputType = "violated-property"
	ESBMCOutputCounterexample   ESBMCOutputType = "counterexample"
)

// FormatSourceCode renders the source code according to format. In
// SourceCodeFormatSingle mode, errorLineIdx selects the single
// (0-based) line shown; an out-of-range index is a programmer error
// from a mismatched verifier/source pairing, reported as an
// InvalidParam error rather than panicking.
func FormatSourceCode(format SourceCodeFormat, sourceCode string, errorLineIdx int) (string, error) {
	if format == SourceCodeFormatFull {
		return sourceCode, nil
	}
	lines := strings.Split(sourceCode, "\n")
	if errorLineIdx < 0 || errorLineIdx >= len(lines) {
		return "", aprerr.New(aprerr.KindInvalidParam, fmt.Sprintf("error line index %d out of range for %d-line source", errorLineIdx, len(lines)))
	}
	return lines[errorLineIdx], nil
}

// FormatESBMCOutput renders the verifier output according to
// outputType. violatedProperty and counterexample are the
// pre-extracted sections from verifyout; full is the raw output.
func FormatESBMCOutput(outputType ESBMCOutputType, full, violatedProperty, counterexample string) string {
	switch outputType {
	case ESBMCOutputViolatedProperty:
		return violatedProperty
	case ESBMCOutputCounterexample:
		return counterexample
	default:
		return full
	}
}
