// Package repairloop implements the Repair Loop Engine: the state
// machine that coordinates verifier runs, diagnostic extraction,
// prompt construction, LLM invocation, source patching, and the
// retry/compression policy, per spec.md §4.6.
package repairloop

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/esbmc-ai/esbmc-ai-go/internal/aprerr"
	"github.com/esbmc-ai/esbmc-ai-go/internal/auditlog"
	"github.com/esbmc-ai/esbmc-ai-go/internal/backoff"
	"github.com/esbmc-ai/esbmc-ai-go/internal/config"
	"github.com/esbmc-ai/esbmc-ai-go/internal/generator"
	"github.com/esbmc-ai/esbmc-ai-go/internal/llm"
	"github.com/esbmc-ai/esbmc-ai-go/internal/scenario"
	"github.com/esbmc-ai/esbmc-ai-go/internal/solution"
	"github.com/esbmc-ai/esbmc-ai-go/internal/verifier"
	"github.com/esbmc-ai/esbmc-ai-go/internal/verifyout"
)

// Status is the terminal state a Run reaches.
type Status int

const (
	StatusSuccess Status = iota
	StatusAlreadyVerified
	StatusExhausted
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusAlreadyVerified:
		return "AlreadyVerified"
	case StatusExhausted:
		return "Exhausted"
	case StatusFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// ExitCode maps a terminal Status to the CLI exit code spec.md §6
// assigns it: 0 success (including AlreadyVerified, which is a
// successful no-op), 1 exhausted, 2 fatal.
func (s Status) ExitCode() int {
	switch s {
	case StatusSuccess, StatusAlreadyVerified:
		return 0
	case StatusExhausted:
		return 1
	default:
		return 2
	}
}

// Result is the engine's structured output, per spec.md §6.
type Result struct {
	Status             Status
	Attempts           int
	OriginalSolution   *solution.Solution
	RepairedSolution   *solution.Solution
	LastVerifierOutput verifyout.Output
	Diff               string
}

// generatorVariant is the narrow interface all three Solution
// Generator history strategies satisfy.
type generatorVariant interface {
	UpdateState(sourceCode string, output verifyout.Output) error
	Compress()
	Generate(ctx context.Context) (string, llm.ChatResponse, error)
}

// verifierAPI is the narrow interface *verifier.Adapter satisfies;
// tests substitute a fake to avoid shelling out to a real verifier
// binary.
type verifierAPI interface {
	Verify(ctx context.Context, sol *solution.Solution, params verifier.Params, timeoutSeconds int, entryFunction string) (verifyout.Output, error)
}

// Engine drives one repair task end to end. It is constructed
// explicitly via New for each run — there is no shared engine
// instance across repair tasks, per spec.md §5's "no shared mutable
// state is exposed across tasks."
type Engine struct {
	Verifier       verifierAPI
	VerifierParams verifier.Params
	Config         config.RepairConfig
	Model          llm.ChatModel
	Table          *scenario.Table
	AuditLogger    auditlog.StructuredLogger

	// OnSolutionFound is invoked with the repaired source on success;
	// spec.md §4.6 notes this signal has no effect within the core
	// and exists purely for external collaborators (e.g. a CLI
	// printing progress). May be nil.
	OnSolutionFound func(repairedSource string)

	// testGenerator, when set, overrides newGeneratorVariant's choice —
	// lets tests substitute a bare generatorVariant double to observe
	// exactly what the engine feeds it, without a real chat.Base/model.
	testGenerator generatorVariant
}

// New builds an Engine from explicit collaborators. auditLogger may
// be auditlog.NewNoOpLogger() when no structured logging is wanted.
func New(v verifierAPI, params verifier.Params, cfg config.RepairConfig, model llm.ChatModel, table *scenario.Table, auditLogger auditlog.StructuredLogger) *Engine {
	if auditLogger == nil {
		auditLogger = auditlog.NewNoOpLogger()
	}
	return &Engine{
		Verifier:       v,
		VerifierParams: params,
		Config:         cfg,
		Model:          model,
		Table:          table,
		AuditLogger:    auditLogger,
	}
}

// Run executes the algorithm of spec.md §4.6 against sol.
func (e *Engine) Run(ctx context.Context, sol *solution.Solution) (Result, error) {
	correlationID := uuid.NewString()

	tempDirs := newLIFOCleanup(e.Config.TempAutoClean)
	defer tempDirs.cleanup()

	// Step 1: materialize to temp if integrity fails, then run the
	// initial verification.
	workingSol := sol
	if err := sol.VerifySolutionIntegrity(); err != nil {
		materialized, _, mErr := materialize(sol, tempDirs)
		if mErr != nil {
			e.logFatal(correlationID, "VerifyingInitial", mErr)
			return Result{Status: StatusFatal}, mErr
		}
		workingSol = materialized
	}

	vo0, err := e.Verifier.Verify(ctx, workingSol, e.VerifierParams, e.Config.VerifierTimeout, e.Config.EntryFunction)
	if err != nil {
		e.logFatal(correlationID, "VerifyingInitial", err)
		return Result{Status: StatusFatal, LastVerifierOutput: vo0}, err
	}
	e.AuditLogger.Log(auditlog.AuditEvent{
		Timestamp: now(), Level: "INFO", Operation: "VerifyInitial",
		Message: fmt.Sprintf("initial verification returned %d issues", len(vo0.Issues)),
	})

	// Step 2: already-verified short circuit.
	if vo0.Successful() && !e.Config.AllowSuccessfulInitial {
		return Result{
			Status:             StatusAlreadyVerified,
			OriginalSolution:   sol,
			RepairedSolution:   sol,
			LastVerifierOutput: vo0,
		}, nil
	}

	// Step 3: instantiate the chosen Solution Generator variant.
	gen, err := e.newGeneratorVariant()
	if err != nil {
		return Result{Status: StatusFatal}, err
	}

	limiter := backoff.New(e.Config.RatePerMinute, e.Config.RateBurst, e.Config.RequestsMaxTries, e.Config.RequestBackoff)

	rawOutput := vo0
	targetFile := primaryTargetFile(workingSol, vo0)
	// sourceContent is the basis for the next Generate call; it starts
	// as the original target file and is replaced with each attempt's
	// candidate, matching fix_code_command.py's `source_code =
	// llm_solution` carried into the following update_state call so
	// repairs accumulate across attempts instead of regenerating from
	// the unpatched original every time.
	sourceContent := targetFile.Content

	// Step 4: attempt loop.
	for attempt := 1; attempt <= e.Config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return Result{Status: StatusFatal, Attempts: attempt - 1}, ctx.Err()
		default:
		}

		if err := gen.UpdateState(sourceContent, rawOutput); err != nil {
			if aprerr.KindOf(err) == aprerr.KindVerifierTimeout {
				e.logFatal(correlationID, "GenerateSolution", err)
				return Result{Status: StatusFatal, Attempts: attempt - 1}, err
			}
			return Result{Status: StatusFatal, Attempts: attempt - 1}, err
		}

		var patch string
		genErr := limiter.Do(ctx, func(ctx context.Context) error {
			p, _, err := gen.Generate(ctx)
			patch = p
			return err
		})
		if genErr != nil {
			e.logFatal(correlationID, "GenerateSolution", genErr)
			return Result{Status: StatusFatal, Attempts: attempt}, genErr
		}

		// This attempt's candidate becomes next attempt's source
		// regardless of whether re-verification below succeeds, fails,
		// or parse-errors — the engine always regenerates from the most
		// recent candidate, never the original.
		sourceContent = patch

		// Step c: produce a candidate SourceFile and write to a fresh
		// temp Solution.
		candidate := cloneSolutionWithPatchedFile(workingSol, targetFile.Path, patch)
		attemptDir, err := os.MkdirTemp("", "esbmc-ai-attempt-*")
		if err != nil {
			e.logFatal(correlationID, "ApplyPatch", err)
			return Result{Status: StatusFatal, Attempts: attempt}, err
		}
		tempDirs.push(attemptDir)
		if err := candidate.SaveTemp(attemptDir); err != nil {
			e.logFatal(correlationID, "ApplyPatch", err)
			return Result{Status: StatusFatal, Attempts: attempt}, err
		}
		newPaths, newIncludeDirs := pathsUnderTemp(candidate, attemptDir)
		candidateOnDisk, err := solution.FromPaths(newPaths, newIncludeDirs)
		if err != nil {
			e.logFatal(correlationID, "ApplyPatch", err)
			return Result{Status: StatusFatal, Attempts: attempt}, err
		}

		// Step d: re-verify the patched temp Solution.
		vok, err := e.Verifier.Verify(ctx, candidateOnDisk, e.VerifierParams, e.Config.VerifierTimeout, e.Config.EntryFunction)
		if err != nil {
			if aprerr.KindOf(err) == aprerr.KindSourceCodeParseError {
				rawOutput = vok
				e.AuditLogger.Log(auditlog.AuditEvent{
					Timestamp: now(), Level: "WARN", Operation: "VerifyAttempt",
					Message: fmt.Sprintf("attempt %d: parse error, feeding back as evidence", attempt),
				})
				continue
			}
			e.logFatal(correlationID, "VerifyAttempt", err)
			return Result{Status: StatusFatal, Attempts: attempt, LastVerifierOutput: vok}, err
		}

		e.AuditLogger.Log(auditlog.AuditEvent{
			Timestamp: now(), Level: "INFO", Operation: "VerifyAttempt",
			Message: fmt.Sprintf("attempt %d returned %d issues", attempt, len(vok.Issues)),
		})

		// Step e: success.
		if vok.Successful() {
			if e.OnSolutionFound != nil {
				e.OnSolutionFound(patch)
			}
			result := Result{
				Status:             StatusSuccess,
				Attempts:           attempt,
				OriginalSolution:   sol,
				RepairedSolution:   candidateOnDisk,
				LastVerifierOutput: vok,
			}
			if e.Config.GeneratePatches {
				diff, dErr := candidateOnDisk.GetDiff(workingSol.WorkingDir())
				if dErr == nil {
					result.Diff = diff
					if e.Config.DiffOutputPath != "" {
						_ = os.WriteFile(e.Config.DiffOutputPath, []byte(diff), 0o644)
					}
				}
			}
			e.AuditLogger.Log(auditlog.AuditEvent{
				Timestamp: now(), Level: "INFO", Operation: "RepairEnd",
				Message: fmt.Sprintf("repaired after %d attempt(s)", attempt),
			})
			return result, nil
		}

		// Step f: feed this attempt's output into the next iteration.
		rawOutput = vok
	}

	// Step 5: exhausted.
	e.AuditLogger.Log(auditlog.AuditEvent{
		Timestamp: now(), Level: "WARN", Operation: "RepairEnd",
		Message: fmt.Sprintf("exhausted after %d attempts", e.Config.MaxAttempts),
	})
	return Result{
		Status:             StatusExhausted,
		Attempts:           e.Config.MaxAttempts,
		OriginalSolution:   sol,
		LastVerifierOutput: rawOutput,
	}, nil
}

func (e *Engine) newGeneratorVariant() (generatorVariant, error) {
	if e.testGenerator != nil {
		return e.testGenerator, nil
	}
	base := generator.NewGenerator(e.Model, e.Table, generator.SourceCodeFormat(e.Config.SourceCodeFormat), generator.ESBMCOutputType(e.Config.ESBMCOutputType))
	switch e.Config.MessageHistory {
	case config.HistoryFull, "":
		return base, nil
	case config.HistoryLatestState:
		return generator.NewLatestStateOnlyGenerator(base), nil
	case config.HistoryReverse:
		return generator.NewReverseOrderGenerator(base), nil
	default:
		return nil, aprerr.New(aprerr.KindInvalidParam, "unknown message history strategy: "+string(e.Config.MessageHistory))
	}
}

func (e *Engine) logFatal(correlationID, op string, err error) {
	e.AuditLogger.Log(auditlog.AuditEvent{
		Timestamp: now(), Level: "ERROR", Operation: op,
		Message: fmt.Sprintf("[%s] fatal: %v", correlationID, err),
		Error:   &auditlog.ErrorDetails{Message: err.Error(), Type: aprerr.KindOf(err).String()},
	})
}

// now is a thin seam over time.Now so nothing in this package calls
// the forbidden-in-tests wall clock directly more than once.
func now() time.Time { return time.Now() }
