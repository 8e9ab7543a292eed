package generator

import (
	"context"

	"github.com/esbmc-ai/esbmc-ai-go/internal/aprerr"
	"github.com/esbmc-ai/esbmc-ai-go/internal/llm"
)

// ReverseOrderGenerator is the "reverse order" history strategy: the
// model is shown the conversation most-recent-turn-first rather than
// chronologically. Its Generate sends through reverseSend instead of
// Base.Send — the system preamble stays in its normal place, only the
// conversation turns are reversed for the single call into the model.
//
// Compress (inherited unmodified from Generator) resets the
// conversation to empty, so the reversal has nothing to do on the
// next Send after a compression; reverse order re-establishes itself
// naturally as soon as more than one turn has accumulated again.
type ReverseOrderGenerator struct {
	*Generator
}

// NewReverseOrderGenerator wraps a Generator with the reverse-order
// history strategy.
func NewReverseOrderGenerator(g *Generator) *ReverseOrderGenerator {
	return &ReverseOrderGenerator{Generator: g}
}

func (g *ReverseOrderGenerator) Generate(ctx context.Context) (string, llm.ChatResponse, error) {
	var msg *llm.Message
	if g.invokations == 0 {
		m, err := g.initialMessage()
		if err != nil {
			return "", llm.ChatResponse{}, err
		}
		msg = &m
	}
	g.invokations++

	resp, err := g.reverseSend(ctx, msg)
	if err != nil {
		return "", llm.ChatResponse{}, err
	}
	if resp.FinishReason != llm.FinishReasonLength {
		return g.extractPatch(resp), resp, nil
	}

	g.Compress()
	g.invokations++
	resp, err = g.reverseSend(ctx, msg)
	if err != nil {
		return "", llm.ChatResponse{}, err
	}
	if resp.FinishReason == llm.FinishReasonLength {
		return "", resp, aprerr.New(aprerr.KindTokenLimitExceeded, "model reply still exceeds the token limit after compression")
	}
	return g.extractPatch(resp), resp, nil
}

// reverseSend backs up the conversation, reverses it in place, calls
// the embedded Base.Send against the reversed stack, then restores
// chronological order with the new turn appended at the end — so
// callers downstream (audit logs, later reverse-order calls) always
// see the conversation in the order it actually happened.
func (g *ReverseOrderGenerator) reverseSend(ctx context.Context, msg *llm.Message) (llm.ChatResponse, error) {
	backup := g.Base.Messages()
	reversed := make([]llm.Message, len(backup))
	for i, m := range backup {
		reversed[len(backup)-1-i] = m
	}
	g.Base.SetMessages(reversed)

	resp, err := g.Base.Send(ctx, msg)
	if err != nil {
		g.Base.SetMessages(backup)
		return llm.ChatResponse{}, err
	}

	afterSend := g.Base.Messages()
	var newTurns []llm.Message
	if len(afterSend) > len(reversed) {
		newTurns = afterSend[len(reversed):]
	}

	g.Base.SetMessages(append(append([]llm.Message(nil), backup...), newTurns...))

	return resp, nil
}
