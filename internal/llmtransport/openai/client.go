// Package openai adapts the OpenAI chat completions API to the
// llm.ChatModel contract. It is adapted from the teacher's
// internal/openai client: the real-API/tokenizer split behind two
// narrow interfaces is kept (so tests can substitute fakes), but the
// surface is narrowed from a single-prompt GenerateContent call to the
// message-list Invoke the repair loop's chat stack needs.
package openai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/esbmc-ai/esbmc-ai-go/internal/aprerr"
	"github.com/esbmc-ai/esbmc-ai-go/internal/llm"
)

// chatAPI is the subset of the OpenAI client this package calls into.
type chatAPI interface {
	createChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// tokenizerAPI counts tokens for a model's encoding.
type tokenizerAPI interface {
	countTokens(text, model string) (int, error)
}

type realChatAPI struct {
	client openai.Client
}

func (a *realChatAPI) createChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	completion, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, aprerr.Wrap(aprerr.KindLLMTransportError, "openai chat completion failed", err)
	}
	return completion, nil
}

type realTokenizer struct{}

func (realTokenizer) countTokens(text, model string) (int, error) {
	enc, err := tiktoken.GetEncoding(encodingForModel(model))
	if err != nil {
		return 0, aprerr.Wrap(aprerr.KindLLMTransportError, "failed to load tokenizer encoding for "+model, err)
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// encodingForModel returns the tiktoken encoding name for model. Every
// current-generation OpenAI chat model uses cl100k_base.
func encodingForModel(model string) string {
	return "cl100k_base"
}

var modelLimits = map[string]int{
	"gpt-4":         8192,
	"gpt-4-32k":     32768,
	"gpt-4-turbo":   128000,
	"gpt-4o":        128000,
	"gpt-4.1":       1000000,
	"gpt-4.1-mini":  1000000,
	"o4-mini":       1000000,
	"gpt-3.5-turbo": 16385,
}

const defaultTokenLimit = 8192

// Client implements llm.ChatModel against the OpenAI chat completions
// API.
type Client struct {
	api         chatAPI
	tokenizer   tokenizerAPI
	model       string
	temperature *float64
}

// New creates a Client for model, reading OPENAI_API_KEY from the
// environment.
func New(model string, temperature float64) (*Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, aprerr.New(aprerr.KindInvalidParam, "OPENAI_API_KEY environment variable not set")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		api:         &realChatAPI{client: client},
		tokenizer:   realTokenizer{},
		model:       model,
		temperature: &temperature,
	}, nil
}

func toOpenAIMessages(messages []llm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case llm.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func fromFinishReason(reason string) llm.FinishReason {
	switch reason {
	case "length":
		return llm.FinishReasonLength
	case "content_filter":
		return llm.FinishReasonContentFilter
	case "stop":
		return llm.FinishReasonStop
	default:
		return llm.FinishReasonNull
	}
}

// Invoke implements llm.ChatModel.
func (c *Client) Invoke(ctx context.Context, messages []llm.Message) (llm.ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Messages: toOpenAIMessages(messages),
		Model:    c.model,
	}
	if c.temperature != nil {
		params.Temperature = openai.Float(*c.temperature)
	}

	completion, err := c.api.createChatCompletion(ctx, params)
	if err != nil {
		return llm.ChatResponse{}, err
	}
	if len(completion.Choices) == 0 {
		return llm.ChatResponse{}, aprerr.New(aprerr.KindLLMTransportError, "openai returned no completion choices")
	}

	choice := completion.Choices[0]
	return llm.ChatResponse{
		Message:      llm.Message{Role: llm.RoleAssistant, Content: choice.Message.Content},
		TotalTokens:  int(completion.Usage.TotalTokens),
		FinishReason: fromFinishReason(string(choice.FinishReason)),
	}, nil
}

// CountTokens implements llm.ChatModel by summing each message's token
// count as reported by tiktoken — an approximation of the provider's
// own chat-format overhead, which OpenAI does not expose directly.
func (c *Client) CountTokens(ctx context.Context, messages []llm.Message) (int, error) {
	total := 0
	for _, m := range messages {
		n, err := c.tokenizer.countTokens(m.Content, c.model)
		if err != nil {
			return 0, err
		}
		total += n + 4 // role/formatting overhead per OpenAI's own counting guidance
	}
	return total, nil
}

// TokenLimit implements llm.ChatModel.
func (c *Client) TokenLimit() int {
	if limit, ok := modelLimits[c.model]; ok {
		return limit
	}
	return defaultTokenLimit
}

// ModelName implements llm.ChatModel.
func (c *Client) ModelName() string { return c.model }

var _ llm.ChatModel = (*Client)(nil)
