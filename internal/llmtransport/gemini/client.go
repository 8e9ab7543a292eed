// Package gemini adapts Google's genai SDK to the llm.ChatModel
// contract. It is adapted from the teacher's internal/gemini client:
// the genai.Client/GenerativeModel wiring is kept, token limits come
// from a fixed per-model table with a default, and the legacy
// ClientAdapter/geminiLLMAdapter backward-compatibility layers are
// dropped — there is no older Client interface left to bridge to in
// this module.
package gemini

import (
	"context"
	"strings"
	"sync"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/esbmc-ai/esbmc-ai-go/internal/aprerr"
	"github.com/esbmc-ai/esbmc-ai-go/internal/llm"
)

// defaultTemperature, defaultTopP mirror the teacher's
// DefaultModelConfig values for Gemini chat models.
const (
	defaultTemperature = float32(0.9)
	defaultTopP        = float32(1.0)
)

var modelLimits = map[string]int{
	"gemini-1.5-pro":   2097152,
	"gemini-1.5-flash": 1048576,
	"gemini-2.0-flash": 1048576,
}

const defaultTokenLimit = 30720

// Client implements llm.ChatModel against the Gemini generateContent
// API.
type Client struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string

	mu               sync.RWMutex
	cachedTokenLimit int
}

// New creates a Client for modelName. An empty apiKey is rejected
// with an InvalidParam error; the environment is not consulted.
func New(ctx context.Context, apiKey, modelName string) (*Client, error) {
	if modelName == "" {
		return nil, aprerr.New(aprerr.KindInvalidParam, "gemini model name cannot be empty")
	}
	if apiKey == "" {
		return nil, aprerr.New(aprerr.KindInvalidParam, "gemini API key cannot be empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, aprerr.Wrap(aprerr.KindLLMTransportError, "failed to create gemini client", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(defaultTemperature)
	model.SetTopP(defaultTopP)

	return &Client{client: client, model: model, modelName: modelName}, nil
}

func toGeminiParts(messages []llm.Message) (systemInstruction *genai.Content, history []*genai.Content, lastUser genai.Part) {
	var sysLines []string
	for i, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			sysLines = append(sysLines, m.Content)
		case llm.RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			if i == len(messages)-1 {
				lastUser = genai.Text(m.Content)
				continue
			}
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	if len(sysLines) > 0 {
		systemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(sysLines, "\n"))}}
	}
	return systemInstruction, history, lastUser
}

func fromFinishReason(reason genai.FinishReason) llm.FinishReason {
	switch reason {
	case genai.FinishReasonMaxTokens:
		return llm.FinishReasonLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return llm.FinishReasonContentFilter
	case genai.FinishReasonStop:
		return llm.FinishReasonStop
	default:
		return llm.FinishReasonNull
	}
}

// Invoke implements llm.ChatModel.
func (c *Client) Invoke(ctx context.Context, messages []llm.Message) (llm.ChatResponse, error) {
	sysInstr, history, lastUser := toGeminiParts(messages)
	if sysInstr != nil {
		c.model.SystemInstruction = sysInstr
	}

	session := c.model.StartChat()
	session.History = history

	if lastUser == nil {
		lastUser = genai.Text("")
	}
	resp, err := session.SendMessage(ctx, lastUser)
	if err != nil {
		return llm.ChatResponse{}, aprerr.Wrap(aprerr.KindLLMTransportError, "gemini generateContent failed", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return llm.ChatResponse{}, aprerr.New(aprerr.KindLLMTransportError, "gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}

	totalTokens := 0
	if resp.UsageMetadata != nil {
		totalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return llm.ChatResponse{
		Message:      llm.Message{Role: llm.RoleAssistant, Content: text.String()},
		TotalTokens:  totalTokens,
		FinishReason: fromFinishReason(candidate.FinishReason),
	}, nil
}

// CountTokens implements llm.ChatModel using the model's own
// CountTokens RPC.
func (c *Client) CountTokens(ctx context.Context, messages []llm.Message) (int, error) {
	_, history, lastUser := toGeminiParts(messages)
	parts := make([]genai.Part, 0, len(history)+1)
	for _, h := range history {
		parts = append(parts, h.Parts...)
	}
	if lastUser != nil {
		parts = append(parts, lastUser)
	}

	resp, err := c.model.CountTokens(ctx, parts...)
	if err != nil {
		return 0, aprerr.Wrap(aprerr.KindLLMTransportError, "gemini countTokens failed", err)
	}
	return int(resp.TotalTokens), nil
}

// TokenLimit implements llm.ChatModel.
func (c *Client) TokenLimit() int {
	c.mu.RLock()
	if c.cachedTokenLimit != 0 {
		defer c.mu.RUnlock()
		return c.cachedTokenLimit
	}
	c.mu.RUnlock()

	limit := defaultTokenLimit
	if l, ok := modelLimits[c.modelName]; ok {
		limit = l
	}
	c.mu.Lock()
	c.cachedTokenLimit = limit
	c.mu.Unlock()
	return limit
}

// ModelName implements llm.ChatModel.
func (c *Client) ModelName() string { return c.modelName }

// Close releases the underlying genai client's resources.
func (c *Client) Close() error { return c.client.Close() }

var _ llm.ChatModel = (*Client)(nil)
