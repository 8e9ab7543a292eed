package generator

import (
	"context"
	"strconv"

	"github.com/esbmc-ai/esbmc-ai-go/internal/aprerr"
	"github.com/esbmc-ai/esbmc-ai-go/internal/chat"
	"github.com/esbmc-ai/esbmc-ai-go/internal/llm"
	"github.com/esbmc-ai/esbmc-ai-go/internal/scenario"
	"github.com/esbmc-ai/esbmc-ai-go/internal/solution"
	"github.com/esbmc-ai/esbmc-ai-go/internal/verifyout"
)

// Generator is the Solution Generator: given a verifier's output and
// the source file it points at, it builds a prompt from the matching
// scenario, sends it through the embedded chat.Base, and extracts a
// candidate patch from the reply.
//
// Generate implements a bounded compress-and-retry loop on the
// model's token limit: a generation that comes back FinishReasonLength
// triggers one Compress and one retry; a second consecutive
// FinishReasonLength is fatal rather than looping forever, unlike the
// original's unbounded retry.
type Generator struct {
	*chat.Base

	table           *scenario.Table
	sourceCodeFmt   SourceCodeFormat
	esbmcOutputType ESBMCOutputType

	scenario     scenario.Classification
	sourceCode   string
	errorLineIdx int
	esbmcOutput  verifyout.Output

	invokations int
}

// NewGenerator builds a Generator around model, dispatching prompts
// via table. UpdateState must be called at least once, with the
// first verifier output, before Generate.
func NewGenerator(model llm.ChatModel, table *scenario.Table, sourceCodeFmt SourceCodeFormat, esbmcOutputType ESBMCOutputType) *Generator {
	return &Generator{
		Base:            chat.NewBase(model, nil),
		table:           table,
		sourceCodeFmt:   sourceCodeFmt,
		esbmcOutputType: esbmcOutputType,
	}
}

// UpdateState records a new (source, verifier output) pair and
// re-selects the scenario's system-message preamble to match the
// verifier's primary issue classification. A parse error in the
// verifier output does not propagate out of UpdateState — it is
// recorded so FormatESBMCOutput can still render *something* to the
// model, on the theory that a malformed-but-present verifier output is
// still more useful to the model than refusing to generate at all.
// TimedOut, by contrast, is the adapter's signal that the verifier
// itself could not produce a judgement, so it is surfaced as an error.
func (g *Generator) UpdateState(sourceCode string, output verifyout.Output) error {
	if output.TimedOut {
		return aprerr.New(aprerr.KindVerifierTimeout, "cannot generate a patch from a timed-out verification")
	}

	g.sourceCode = sourceCode
	g.esbmcOutput = output

	if len(output.Issues) > 0 {
		primary := output.PrimaryIssue()
		g.scenario = scenario.Classify(primary.ErrorType)
		g.errorLineIdx = primary.LineIndex()
	} else {
		g.scenario = scenario.Classify("")
		g.errorLineIdx = 0
	}

	sc := g.table.Lookup(g.scenario.Name())
	g.Base.SetSystemMessages(sc.System)
	return nil
}

// Compress resets the conversation to just the scenario's frozen
// system messages, discarding every prior turn, and resets the
// invocation counter — generation restarts as if it were the first
// attempt. This is the Generator's base Compress strategy; the
// history-strategy variants reuse it unmodified.
func (g *Generator) Compress() {
	g.Base = chat.NewBase(g.Base.Model, g.Base.SystemMessages())
	g.invokations = 0
}

// initialMessage builds the first user turn for this scenario, with
// source code and verifier output substituted in.
func (g *Generator) initialMessage() (llm.Message, error) {
	sc := g.table.Lookup(g.scenario.Name())
	msg := sc.Initial

	src, err := FormatSourceCode(g.sourceCodeFmt, g.sourceCode, g.errorLineIdx)
	if err != nil {
		return llm.Message{}, err
	}
	var violatedProperty, counterexample string
	if len(g.esbmcOutput.Issues) > 0 {
		primary := g.esbmcOutput.PrimaryIssue()
		violatedProperty = primary.Message
		counterexample = primary.CounterexampleFormatted()
	}
	out := FormatESBMCOutput(g.esbmcOutputType, g.esbmcOutput.Raw, violatedProperty, counterexample)

	values := map[string]string{
		"source_code":  src,
		"esbmc_output": out,
		"error_line":   strconv.Itoa(g.errorLineIdx + 1),
		"error_type":   g.scenario.Name(),
	}
	msg.Content = chat.ApplyTemplate(msg.Content, values)
	return msg, nil
}

// Generate sends the next turn to the model and returns the extracted
// candidate patch. The first call in a fresh (or freshly compressed)
// conversation sends the scenario's initial message; subsequent calls
// send nil, continuing the existing conversation with whatever the
// caller has pushed onto it (e.g. a re-verification failure message).
func (g *Generator) Generate(ctx context.Context) (string, llm.ChatResponse, error) {
	resp, err := g.generateOnce(ctx)
	if err != nil {
		return "", llm.ChatResponse{}, err
	}
	if resp.FinishReason != llm.FinishReasonLength {
		return g.extractPatch(resp), resp, nil
	}

	g.Compress()
	resp, err = g.generateOnce(ctx)
	if err != nil {
		return "", llm.ChatResponse{}, err
	}
	if resp.FinishReason == llm.FinishReasonLength {
		return "", resp, aprerr.New(aprerr.KindTokenLimitExceeded, "model reply still exceeds the token limit after compression")
	}
	return g.extractPatch(resp), resp, nil
}

func (g *Generator) generateOnce(ctx context.Context) (llm.ChatResponse, error) {
	var msg *llm.Message
	if g.invokations == 0 {
		m, err := g.initialMessage()
		if err != nil {
			return llm.ChatResponse{}, err
		}
		msg = &m
	}
	g.invokations++
	return g.Base.Send(ctx, msg)
}

// extractPatch pulls the candidate patch out of resp and, in
// single-line mode, re-inserts it back into the full source at the
// verifier-reported line (spec step 5 of generation): the model only
// ever saw and edited that one line, so the candidate it returns must
// be spliced back into the surrounding file before it can be
// re-verified.
func (g *Generator) extractPatch(resp llm.ChatResponse) string {
	code := ExtractCode(resp.Message.Content)
	if g.sourceCodeFmt != SourceCodeFormatSingle {
		return code
	}
	return solution.ApplyLinePatch(g.sourceCode, code, g.errorLineIdx, g.errorLineIdx)
}
