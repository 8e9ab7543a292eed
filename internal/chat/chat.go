// Package chat implements the Message Stack Manager: a conversation
// built from a frozen system-message preamble plus a growing list of
// turns, sent through a llm.ChatModel with template substitution and
// token-limit-aware compression.
package chat

import (
	"context"

	"github.com/esbmc-ai/esbmc-ai-go/internal/llm"
)

// Interface is the Message Stack Manager contract. Compress is
// implementation-specific: a plain user-chat interface summarizes
// prior turns, while a solution generator resets the conversation
// entirely (see internal/generator).
type Interface interface {
	PushMessage(msg llm.Message)
	Messages() []llm.Message
	ApplyTemplateValue(values map[string]string)
	Send(ctx context.Context, msg *llm.Message) (llm.ChatResponse, error)
	Compress()
}

// Base is the shared Message Stack Manager implementation.
// generator.Generator embeds Base and overrides Compress; the
// history-strategy variants wrap the Generator and override Generate
// to get their own history strategy.
type Base struct {
	Model          llm.ChatModel
	systemMessages []llm.Message
	messages       []llm.Message
}

// NewBase creates a Base chat interface. systemMessages is frozen: it
// is never appended to after construction, only replaced wholesale by
// ApplyTemplateValue's substitution or through SetSystemMessages (see
// generator.Generator.UpdateState).
func NewBase(model llm.ChatModel, systemMessages []llm.Message) *Base {
	return &Base{Model: model, systemMessages: append([]llm.Message(nil), systemMessages...)}
}

// SystemMessages returns a copy of the frozen system-message preamble.
func (b *Base) SystemMessages() []llm.Message {
	return append([]llm.Message(nil), b.systemMessages...)
}

// SetSystemMessages replaces the system-message preamble outright —
// used by the solution generator when a new error scenario is
// selected mid-repair.
func (b *Base) SetSystemMessages(msgs []llm.Message) {
	b.systemMessages = append([]llm.Message(nil), msgs...)
}

// PushMessage appends a turn to the conversation.
func (b *Base) PushMessage(msg llm.Message) {
	b.messages = append(b.messages, msg)
}

// Messages returns a copy of the conversation (not including the
// system-message preamble).
func (b *Base) Messages() []llm.Message {
	return append([]llm.Message(nil), b.messages...)
}

// SetMessages replaces the conversation outright — used by the
// history-strategy generator variants to back up, reset, reverse, and
// restore the message stack around a single generation.
func (b *Base) SetMessages(msgs []llm.Message) {
	b.messages = append([]llm.Message(nil), msgs...)
}

// ApplyTemplateValue substitutes values into both the system messages
// and the conversation, in place. The substitution is permanent: the
// substituted text becomes the new message stack, it is not a
// one-off rendering.
func (b *Base) ApplyTemplateValue(values map[string]string) {
	for i := range b.systemMessages {
		b.systemMessages[i].Content = ApplyTemplate(b.systemMessages[i].Content, values)
	}
	for i := range b.messages {
		b.messages[i].Content = ApplyTemplate(b.messages[i].Content, values)
	}
}

// AppliedMessages returns system messages + conversation with values
// substituted, without mutating the stack — used when a caller wants
// to preview a render without committing to it.
func (b *Base) AppliedMessages(values map[string]string) []llm.Message {
	all := append(b.SystemMessages(), b.Messages()...)
	for i := range all {
		all[i].Content = ApplyTemplate(all[i].Content, values)
	}
	return all
}

// Send optionally pushes msg as a user turn, invokes the model with
// the full system+conversation stack, and pushes the reply. If the
// combined token count (computed via Model.CountTokens over the
// exact messages sent plus the reply) exceeds Model.TokenLimit, the
// returned ChatResponse reports FinishReasonLength with TotalTokens
// set to the limit itself rather than the (larger) actual count — the
// caller only needs to know the limit was exceeded, not by how much.
func (b *Base) Send(ctx context.Context, msg *llm.Message) (llm.ChatResponse, error) {
	if msg != nil {
		b.PushMessage(*msg)
	}
	allMessages := append(b.SystemMessages(), b.Messages()...)

	resp, err := b.Model.Invoke(ctx, allMessages)
	if err != nil {
		return llm.ChatResponse{}, err
	}
	b.PushMessage(resp.Message)

	newTokens, err := b.Model.CountTokens(ctx, append(allMessages, resp.Message))
	if err != nil {
		return llm.ChatResponse{}, err
	}

	limit := b.Model.TokenLimit()
	if newTokens > limit {
		return llm.ChatResponse{Message: resp.Message, FinishReason: llm.FinishReasonLength, TotalTokens: limit}, nil
	}
	return llm.ChatResponse{Message: resp.Message, FinishReason: resp.FinishReason, TotalTokens: newTokens}, nil
}
