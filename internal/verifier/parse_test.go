package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuccessful(t *testing.T) {
	out := Parse("VERIFICATION SUCCESSFUL\n", 0)
	assert.True(t, out.Successful())
	assert.Empty(t, out.Issues)
}

func TestParseTimedOut(t *testing.T) {
	out := Parse("ERROR: Timed out\n", 1)
	assert.True(t, out.TimedOut)
}

func TestParseParsingError(t *testing.T) {
	raw := "ERROR: PARSING ERROR\nmain.c:12:5: error: expected ';' before '}' token\n"
	out := Parse(raw, 1)
	assert.True(t, out.ParseError)
	require.Len(t, out.Issues, 1)
	assert.Equal(t, "main.c", out.Issues[0].FilePath())
	assert.Equal(t, 12, out.Issues[0].LineNumber())
}

func TestParseViolatedPropertyWithCounterexample(t *testing.T) {
	raw := `
Violated property:
  file main.c line 15 column 3 function main
  array bounds violated: array 'dist' bounds violated

[Counterexample]

State 0 file main.c line 10 column 1 function main thread 0
----------------------------------------------------
dist = { 0, 0, 0, 0, 0 }

State 1 file main.c line 15 column 3 function main thread 0
----------------------------------------------------
dist[0] = 2147483647

Stack trace:
State 1 file main.c line 15 column 3 function main thread 0

VERIFICATION FAILED
`
	out := Parse(raw, 1)
	require.Len(t, out.Issues, 1)
	issue := out.Issues[0]
	assert.Equal(t, "array bounds violated: array 'dist' bounds violated", issue.ErrorType)
	assert.Equal(t, "Violated property:\n  file main.c line 15 column 3 function main\n  array bounds violated: array 'dist' bounds violated", issue.Message)
	require.Len(t, issue.Counterexample, 2)
	assert.Equal(t, "main.c", issue.Counterexample[0].Path)
	assert.Equal(t, 9, issue.Counterexample[0].LineIdx)
	assert.Equal(t, "dist = { 0, 0, 0, 0, 0 }", issue.Counterexample[0].Assignment)
	assert.Equal(t, 14, issue.Counterexample[1].LineIdx)
}

func TestParseErrorTypeIsTheScenarioLineNotTheMarker(t *testing.T) {
	raw := "...Violated property:\n  file a.c line 7 column 7 function f\n  dereference failure: array bounds violated\n...[Counterexample]\nState 1 file a.c line 7 column 7 function f thread 0\n----\n..."
	out := Parse(raw, 1)
	require.Len(t, out.Issues, 1)
	issue := out.Issues[0]
	assert.Equal(t, "dereference failure: array bounds violated", issue.ErrorType)
	assert.Equal(t, 7, issue.LineNumber())
	require.NotEmpty(t, issue.Counterexample)
	assert.Equal(t, "a.c", issue.Counterexample[0].Path)
	assert.Equal(t, 6, issue.Counterexample[0].LineIdx)
}

func TestParseFabricatesGenericIssueWhenNothingParses(t *testing.T) {
	out := Parse("some unrecognized failure output\n", 1)
	require.Len(t, out.Issues, 1)
	assert.Equal(t, "unknown", out.Issues[0].ErrorType)
}
