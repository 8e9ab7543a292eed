package repairloop

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esbmc-ai/esbmc-ai-go/internal/aprerr"
	"github.com/esbmc-ai/esbmc-ai-go/internal/config"
	"github.com/esbmc-ai/esbmc-ai-go/internal/llm"
	"github.com/esbmc-ai/esbmc-ai-go/internal/scenario"
	"github.com/esbmc-ai/esbmc-ai-go/internal/solution"
	"github.com/esbmc-ai/esbmc-ai-go/internal/verifier"
	"github.com/esbmc-ai/esbmc-ai-go/internal/verifyout"
)

// fakeVerifier replays a scripted sequence of (Output, error) results,
// one per call, so the engine's loop can be exercised without shelling
// out to a real verifier binary. The last entry repeats for any call
// past the end of the script.
type fakeVerifier struct {
	script []verifyout.Output
	errs   []error
	calls  int
}

func (f *fakeVerifier) Verify(ctx context.Context, sol *solution.Solution, params verifier.Params, timeoutSeconds int, entryFunction string) (verifyout.Output, error) {
	i := f.calls
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return f.script[i], err
}

func failingOutput(lineIdx int) verifyout.Output {
	return verifyout.Output{
		ReturnCode: 1,
		Raw:        "array bounds violated",
		Issues: []verifyout.VerifierIssue{{
			Issue: verifyout.Issue{
				ErrorType:  "array bounds violated",
				Message:    "array bounds violated",
				StackTrace: []verifyout.ProgramTrace{{Path: "main.c", Name: "main", LineIdx: lineIdx}},
				Severity:   verifyout.SeverityError,
			},
		}},
	}
}

func successOutput() verifyout.Output {
	return verifyout.Output{ReturnCode: 0}
}

func testTable(t *testing.T) *scenario.Table {
	t.Helper()
	tbl, err := scenario.LoadTable([]byte(`
base:
  system: ["You fix C code."]
  initial: "Fix this: {{esbmc_output}}"
array bounds violated:
  system: ["You fix array bounds bugs."]
  initial: "Fix the out-of-bounds access: {{esbmc_output}}"
`))
	require.NoError(t, err)
	return tbl
}

func newTestSolution(t *testing.T, content string) *solution.Solution {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.c")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	sol, err := solution.FromPaths([]string{path}, nil)
	require.NoError(t, err)
	return sol
}

func fixingModel(patch string) *llm.MockChatModel {
	return &llm.MockChatModel{
		InvokeFunc: func(ctx context.Context, messages []llm.Message) (llm.ChatResponse, error) {
			return llm.ChatResponse{
				Message:      llm.Message{Role: llm.RoleAssistant, Content: "```c\n" + patch + "\n```"},
				FinishReason: llm.FinishReasonStop,
			}, nil
		},
	}
}

func testConfig() config.RepairConfig {
	cfg := config.Default()
	cfg.MaxAttempts = 3
	cfg.EntryFunction = "main"
	cfg.TempAutoClean = true
	return cfg
}

// S1: already-verified solutions short-circuit with exactly one
// verifier call and no LLM invocations.
func TestRunAlreadyVerifiedShortCircuits(t *testing.T) {
	sol := newTestSolution(t, "int main() { return 0; }")
	fv := &fakeVerifier{script: []verifyout.Output{successOutput()}}
	model := &llm.MockChatModel{InvokeFunc: func(ctx context.Context, messages []llm.Message) (llm.ChatResponse, error) {
		t.Fatal("model should not be invoked when the initial verification already succeeds")
		return llm.ChatResponse{}, nil
	}}

	e := New(fv, verifier.Params{}, testConfig(), model, testTable(t), nil)
	result, err := e.Run(context.Background(), sol)

	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyVerified, result.Status)
	assert.Equal(t, 0, result.Status.ExitCode())
	assert.Equal(t, 1, fv.calls)
}

// S2: one failing verification followed by a passing re-verification
// repairs in a single attempt.
func TestRunRepairsInOneAttempt(t *testing.T) {
	sol := newTestSolution(t, "int main() {\nint x = 0;\nreturn x;\n}")
	fv := &fakeVerifier{script: []verifyout.Output{failingOutput(1), successOutput()}}
	model := fixingModel("int x = 1;")

	e := New(fv, verifier.Params{}, testConfig(), model, testTable(t), nil)
	result, err := e.Run(context.Background(), sol)

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 1, result.Attempts)
	require.NotNil(t, result.RepairedSolution)
	assert.Contains(t, result.RepairedSolution.Files()[0].Content, "int x = 1;")
	assert.Equal(t, 2, fv.calls)
}

// S3: exhaustion after maxAttempts failed repair attempts yields
// exactly maxAttempts+1 verifier runs (one initial plus one per
// attempt) and exactly maxAttempts LLM calls.
func TestRunExhaustsAfterMaxAttempts(t *testing.T) {
	sol := newTestSolution(t, "int main() {\nint x = 0;\nreturn x;\n}")
	fv := &fakeVerifier{script: []verifyout.Output{
		failingOutput(1), failingOutput(1), failingOutput(1), failingOutput(1),
	}}
	llmCalls := 0
	model := &llm.MockChatModel{InvokeFunc: func(ctx context.Context, messages []llm.Message) (llm.ChatResponse, error) {
		llmCalls++
		return llm.ChatResponse{
			Message:      llm.Message{Role: llm.RoleAssistant, Content: "```c\nint x = 0;\n```"},
			FinishReason: llm.FinishReasonStop,
		}, nil
	}}

	cfg := testConfig()
	cfg.MaxAttempts = 3
	e := New(fv, verifier.Params{}, cfg, model, testTable(t), nil)
	result, err := e.Run(context.Background(), sol)

	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, result.Status)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 4, fv.calls)
	assert.Equal(t, 3, llmCalls)
}

// S4: a first generation that comes back at the model's token limit
// triggers one compression and retry inside the Solution Generator,
// transparent to the engine's attempt accounting.
func TestRunRecoversFromTokenLimitViaCompression(t *testing.T) {
	sol := newTestSolution(t, "int main() {\nint x = 0;\nreturn x;\n}")
	fv := &fakeVerifier{script: []verifyout.Output{failingOutput(1), successOutput()}}

	calls := 0
	model := &llm.MockChatModel{InvokeFunc: func(ctx context.Context, messages []llm.Message) (llm.ChatResponse, error) {
		calls++
		if calls == 1 {
			return llm.ChatResponse{
				Message:      llm.Message{Role: llm.RoleAssistant, Content: "too long"},
				FinishReason: llm.FinishReasonLength,
			}, nil
		}
		return llm.ChatResponse{
			Message:      llm.Message{Role: llm.RoleAssistant, Content: "```c\nint x = 1;\n```"},
			FinishReason: llm.FinishReasonStop,
		}, nil
	}}

	e := New(fv, verifier.Params{}, testConfig(), model, testTable(t), nil)
	result, err := e.Run(context.Background(), sol)

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 2, calls)
}

// S5: a parse error on a re-verification is fed back as evidence for
// the next attempt rather than treated as fatal.
func TestRunFeedsParseErrorBackAsEvidence(t *testing.T) {
	sol := newTestSolution(t, "int main() {\nint x = 0;\nreturn x;\n}")
	parseErrOutput := verifyout.Output{ReturnCode: 1, ParseError: true, Raw: "parse error at line 2"}
	fv := &fakeVerifier{
		script: []verifyout.Output{failingOutput(1), parseErrOutput, successOutput()},
		errs:   []error{nil, aprerr.New(aprerr.KindSourceCodeParseError, "parse error"), nil},
	}
	model := fixingModel("int x = 1;")

	cfg := testConfig()
	cfg.MaxAttempts = 3
	e := New(fv, verifier.Params{}, cfg, model, testTable(t), nil)
	result, err := e.Run(context.Background(), sol)

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 3, fv.calls)
}

// S6: the generated patch is spliced into the surrounding source
// before re-verification in single-line mode, and OnSolutionFound
// observes the repaired content on success.
func TestRunSingleLineModeReinsertsPatchAndSignalsOnSolutionFound(t *testing.T) {
	sol := newTestSolution(t, "int main() {\nint x = 0;\nreturn x;\n}")
	fv := &fakeVerifier{script: []verifyout.Output{failingOutput(1), successOutput()}}
	model := fixingModel("int x = 1;")

	var signaled string
	cfg := testConfig()
	cfg.SourceCodeFormat = config.SourceCodeFormatSingle
	e := New(fv, verifier.Params{}, cfg, model, testTable(t), nil)
	e.OnSolutionFound = func(repairedSource string) { signaled = repairedSource }

	result, err := e.Run(context.Background(), sol)

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "int main() {\nint x = 1;\nreturn x;\n}", signaled)
	assert.Equal(t, signaled, result.RepairedSolution.Files()[0].Content)
}

// recordingGenerator is a bare generatorVariant double that records
// every sourceCode UpdateState is called with, so the engine's
// attempt-to-attempt wiring can be verified directly without going
// through a real chat.Base/ChatModel round trip.
type recordingGenerator struct {
	seenSources []string
	patches     []string
	call        int
}

func (r *recordingGenerator) UpdateState(sourceCode string, output verifyout.Output) error {
	r.seenSources = append(r.seenSources, sourceCode)
	return nil
}
func (r *recordingGenerator) Compress() {}
func (r *recordingGenerator) Generate(ctx context.Context) (string, llm.ChatResponse, error) {
	patch := r.patches[r.call]
	r.call++
	return patch, llm.ChatResponse{FinishReason: llm.FinishReasonStop}, nil
}

// Each attempt's generated candidate must feed the *next* attempt's
// source, not the original unpatched file — otherwise the model keeps
// re-deriving from scratch while being shown verifier evidence from a
// candidate it never saw.
func TestRunFeedsPreviousCandidateForwardAcrossAttempts(t *testing.T) {
	sol := newTestSolution(t, "int main() {\nint x = 0;\nreturn x;\n}")
	fv := &fakeVerifier{script: []verifyout.Output{
		failingOutput(1), failingOutput(1), successOutput(),
	}}
	rg := &recordingGenerator{patches: []string{"int x = 1;", "int x = 2;"}}

	cfg := testConfig()
	cfg.MaxAttempts = 3
	e := New(fv, verifier.Params{}, cfg, &llm.MockChatModel{}, testTable(t), nil)
	e.testGenerator = rg
	result, err := e.Run(context.Background(), sol)

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 2, result.Attempts)
	require.Len(t, rg.seenSources, 2)
	assert.Equal(t, "int main() {\nint x = 0;\nreturn x;\n}", rg.seenSources[0], "attempt 1 must be fed the original source")
	assert.Equal(t, "int x = 1;", rg.seenSources[1], "attempt 2 must be fed attempt 1's candidate, not the original")
}

// A malformed Solution whose in-memory content has drifted from disk
// is materialized to a fresh temp directory before the initial verify,
// rather than failing outright.
func TestRunMaterializesSolutionWithDivergedIntegrity(t *testing.T) {
	sol := newTestSolution(t, "int main() { return 0; }")
	sol.Files()[0].Content = "int main() { return 1; }" // diverge in-memory from disk
	fv := &fakeVerifier{script: []verifyout.Output{successOutput()}}
	model := &llm.MockChatModel{}

	e := New(fv, verifier.Params{}, testConfig(), model, testTable(t), nil)
	result, err := e.Run(context.Background(), sol)

	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyVerified, result.Status)
}
