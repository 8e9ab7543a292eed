package generator

import (
	"context"

	"github.com/esbmc-ai/esbmc-ai-go/internal/llm"
)

// LatestStateOnlyGenerator is the "latest state" history strategy: the
// model only ever sees the system preamble plus the single most recent
// turn the caller pushed (typically a re-verification failure
// message), not the full repair history. It achieves this by backing
// up the conversation before generating, trimming it down to just its
// last entry, letting the embedded Generator generate against that
// reduced slate, and then restoring the backup extended with exactly
// the one new user+assistant turn the generation produced — so from
// the caller's point of view the conversation still grows turn by
// turn, even though the model itself never saw more than the latest
// state.
type LatestStateOnlyGenerator struct {
	*Generator
}

// NewLatestStateOnlyGenerator wraps a Generator with the latest-state
// history strategy.
func NewLatestStateOnlyGenerator(g *Generator) *LatestStateOnlyGenerator {
	return &LatestStateOnlyGenerator{Generator: g}
}

func (g *LatestStateOnlyGenerator) Generate(ctx context.Context) (string, llm.ChatResponse, error) {
	backup := g.Base.Messages()

	var latest []llm.Message
	if len(backup) > 0 {
		latest = []llm.Message{backup[len(backup)-1]}
	}
	g.Base.SetMessages(latest)

	patch, resp, err := g.Generator.Generate(ctx)

	newTurn := g.Base.Messages()
	if len(newTurn) >= len(latest) {
		newTurn = newTurn[len(latest):]
	}
	g.Base.SetMessages(append(append([]llm.Message(nil), backup...), newTurn...))

	return patch, resp, err
}
