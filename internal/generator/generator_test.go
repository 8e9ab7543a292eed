package generator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esbmc-ai/esbmc-ai-go/internal/llm"
	"github.com/esbmc-ai/esbmc-ai-go/internal/scenario"
	"github.com/esbmc-ai/esbmc-ai-go/internal/verifyout"
)

func TestExtractCodeFencedBlock(t *testing.T) {
	reply := "Here is the fix:\n```c\nint x = 0;\nreturn x;\n```\nLet me know if that helps."
	assert.Equal(t, "int x = 0;\nreturn x;", ExtractCode(reply))
}

func TestExtractCodeNoFenceReturnsUnchanged(t *testing.T) {
	reply := "no code fences here"
	assert.Equal(t, reply, ExtractCode(reply))
}

func TestExtractCodeSingleFenceReturnsUnchanged(t *testing.T) {
	reply := "```c\nint x = 0;\n"
	assert.Equal(t, reply, ExtractCode(reply))
}

func baseScenarioTable(t *testing.T) *scenario.Table {
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

func sampleOutput() verifyout.Output {
	return verifyout.Output{
		ReturnCode: 1,
		Raw:        "array bounds violated in foo",
		Issues: []verifyout.VerifierIssue{
			{
				Issue: verifyout.Issue{
					ErrorType:  "array bounds violated",
					Message:    "array bounds violated",
					StackTrace: []verifyout.ProgramTrace{{Path: "main.c", Name: "foo", LineIdx: 4}},
					Severity:   verifyout.SeverityError,
				},
			},
		},
	}
}

func TestGenerateUsesClassifiedScenario(t *testing.T) {
	model := &llm.MockChatModel{
		InvokeFunc: func(ctx context.Context, messages []llm.Message) (llm.ChatResponse, error) {
			require.NotEmpty(t, messages)
			assert.Equal(t, llm.RoleSystem, messages[0].Role)
			assert.Contains(t, messages[0].Content, "array bounds")
			return llm.ChatResponse{
				Message:      llm.Message{Role: llm.RoleAssistant, Content: "```c\nfixed();\n```"},
				FinishReason: llm.FinishReasonStop,
			}, nil
		},
	}

	g := NewGenerator(model, baseScenarioTable(t), SourceCodeFormatFull, ESBMCOutputFull)
	require.NoError(t, g.UpdateState("int main() {}", sampleOutput()))

	patch, resp, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixed();", patch)
	assert.Equal(t, llm.FinishReasonStop, resp.FinishReason)
}

func TestGenerateCompressesOnceThenSucceeds(t *testing.T) {
	calls := 0
	model := &llm.MockChatModel{
		InvokeFunc: func(ctx context.Context, messages []llm.Message) (llm.ChatResponse, error) {
			calls++
			if calls == 1 {
				return llm.ChatResponse{
					Message:      llm.Message{Role: llm.RoleAssistant, Content: "too long"},
					FinishReason: llm.FinishReasonLength,
				}, nil
			}
			return llm.ChatResponse{
				Message:      llm.Message{Role: llm.RoleAssistant, Content: "```c\nok();\n```"},
				FinishReason: llm.FinishReasonStop,
			}, nil
		},
	}

	g := NewGenerator(model, baseScenarioTable(t), SourceCodeFormatFull, ESBMCOutputFull)
	require.NoError(t, g.UpdateState("int main() {}", sampleOutput()))

	patch, resp, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok();", patch)
	assert.Equal(t, llm.FinishReasonStop, resp.FinishReason)
	assert.Equal(t, 2, calls)
}

func TestGenerateFatalOnSecondConsecutiveLengthLimit(t *testing.T) {
	model := &llm.MockChatModel{
		InvokeFunc: func(ctx context.Context, messages []llm.Message) (llm.ChatResponse, error) {
			return llm.ChatResponse{
				Message:      llm.Message{Role: llm.RoleAssistant, Content: "still too long"},
				FinishReason: llm.FinishReasonLength,
			}, nil
		},
	}

	g := NewGenerator(model, baseScenarioTable(t), SourceCodeFormatFull, ESBMCOutputFull)
	require.NoError(t, g.UpdateState("int main() {}", sampleOutput()))

	_, _, err := g.Generate(context.Background())
	require.Error(t, err)
}

func TestUpdateStatePropagatesTimeout(t *testing.T) {
	model := &llm.MockChatModel{}
	g := NewGenerator(model, baseScenarioTable(t), SourceCodeFormatFull, ESBMCOutputFull)

	err := g.UpdateState("int main() {}", verifyout.Output{TimedOut: true})
	assert.Error(t, err)
}

func TestGenerateReinsertsSingleLinePatchIntoFullSource(t *testing.T) {
	model := &llm.MockChatModel{
		InvokeFunc: func(ctx context.Context, messages []llm.Message) (llm.ChatResponse, error) {
			return llm.ChatResponse{
				Message:      llm.Message{Role: llm.RoleAssistant, Content: "```c\nint x = 1;\n```"},
				FinishReason: llm.FinishReasonStop,
			}, nil
		},
	}

	g := NewGenerator(model, baseScenarioTable(t), SourceCodeFormatSingle, ESBMCOutputFull)
	source := "int main() {\nint x = 0;\nreturn x;\n}"
	out := sampleOutput()
	out.Issues[0].StackTrace[0].LineIdx = 1
	require.NoError(t, g.UpdateState(source, out))

	patch, _, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "int main() {\nint x = 1;\nreturn x;\n}", patch)
}

func TestLatestStateOnlyGeneratorKeepsFullHistoryButSendsOnlyLatest(t *testing.T) {
	var seenLengths []int
	model := &llm.MockChatModel{
		InvokeFunc: func(ctx context.Context, messages []llm.Message) (llm.ChatResponse, error) {
			seenLengths = append(seenLengths, len(messages))
			return llm.ChatResponse{
				Message:      llm.Message{Role: llm.RoleAssistant, Content: "```c\nok();\n```"},
				FinishReason: llm.FinishReasonStop,
			}, nil
		},
	}

	base := NewGenerator(model, baseScenarioTable(t), SourceCodeFormatFull, ESBMCOutputFull)
	require.NoError(t, base.UpdateState("int main() {}", sampleOutput()))
	g := NewLatestStateOnlyGenerator(base)

	_, _, err := g.Generate(context.Background())
	require.NoError(t, err)

	base.PushMessage(llm.Message{Role: llm.RoleUser, Content: "verification still fails"})
	_, _, err = g.Generate(context.Background())
	require.NoError(t, err)

	// Full history accumulates on the shared conversation...
	assert.GreaterOrEqual(t, len(base.Messages()), 3)
	// ...but the second model call only ever saw the system preamble
	// plus the single latest turn, not the first turn's full exchange.
	require.Len(t, seenLengths, 2)
	assert.LessOrEqual(t, seenLengths[1], seenLengths[0]+2)
}

func TestReverseOrderGeneratorReversesConversationForSend(t *testing.T) {
	var firstContentSeenLast string
	model := &llm.MockChatModel{
		InvokeFunc: func(ctx context.Context, messages []llm.Message) (llm.ChatResponse, error) {
			if len(messages) > 1 {
				firstContentSeenLast = messages[len(messages)-1].Content
			}
			return llm.ChatResponse{
				Message:      llm.Message{Role: llm.RoleAssistant, Content: "```c\nok();\n```"},
				FinishReason: llm.FinishReasonStop,
			}, nil
		},
	}

	base := NewGenerator(model, baseScenarioTable(t), SourceCodeFormatFull, ESBMCOutputFull)
	require.NoError(t, base.UpdateState("int main() {}", sampleOutput()))
	g := NewReverseOrderGenerator(base)

	_, _, err := g.Generate(context.Background())
	require.NoError(t, err)
	// After restoring, the conversation is chronological again.
	msgs := base.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleUser, msgs[0].Role)
	assert.Equal(t, llm.RoleAssistant, msgs[1].Role)

	base.PushMessage(llm.Message{Role: llm.RoleUser, Content: "verification still fails"})
	_, _, err = g.Generate(context.Background())
	require.NoError(t, err)

	// On the second call, the oldest turn was sent last to the model.
	assert.NotEmpty(t, firstContentSeenLast)

	msgs = base.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "verification still fails", msgs[2].Content)
}
