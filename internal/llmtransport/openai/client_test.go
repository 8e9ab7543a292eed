package openai

import (
	"context"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esbmc-ai/esbmc-ai-go/internal/llm"
)

type fakeChatAPI struct {
	completion *openai.ChatCompletion
	err        error
	lastParams openai.ChatCompletionNewParams
}

func (f *fakeChatAPI) createChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return f.completion, nil
}

type fakeTokenizer struct {
	countPerCall int
}

func (f fakeTokenizer) countTokens(text, model string) (int, error) {
	return f.countPerCall, nil
}

func TestInvokeMapsRolesAndFinishReason(t *testing.T) {
	fake := &fakeChatAPI{
		completion: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{
					Message:      openai.ChatCompletionMessage{Content: "fixed code"},
					FinishReason: "stop",
				},
			},
		},
	}
	c := &Client{api: fake, tokenizer: fakeTokenizer{countPerCall: 3}, model: "gpt-4o"}

	resp, err := c.Invoke(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "you fix bugs"},
		{Role: llm.RoleUser, Content: "fix this"},
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed code", resp.Message.Content)
	assert.Equal(t, llm.FinishReasonStop, resp.FinishReason)
	assert.Len(t, fake.lastParams.Messages, 2)
}

func TestInvokeErrorsOnNoChoices(t *testing.T) {
	fake := &fakeChatAPI{completion: &openai.ChatCompletion{}}
	c := &Client{api: fake, tokenizer: fakeTokenizer{}, model: "gpt-4o"}

	_, err := c.Invoke(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	require.Error(t, err)
}

func TestCountTokensSumsPerMessageOverhead(t *testing.T) {
	c := &Client{tokenizer: fakeTokenizer{countPerCall: 10}, model: "gpt-4o"}
	total, err := c.CountTokens(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "a"},
		{Role: llm.RoleAssistant, Content: "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, 28, total) // (10+4)*2
}

func TestTokenLimitFallsBackToDefaultForUnknownModel(t *testing.T) {
	c := &Client{model: "some-future-model"}
	assert.Equal(t, defaultTokenLimit, c.TokenLimit())
}

func TestTokenLimitKnownModel(t *testing.T) {
	c := &Client{model: "gpt-4o"}
	assert.Equal(t, 128000, c.TokenLimit())
}
