// Package main is the entry point for esbmc-ai-go: it parses flags,
// assembles the Component Registry, drives one Repair Loop Engine run
// per invocation, and reports the result with the exit codes spec.md
// §6 assigns (0 success, 1 exhausted, 2 fatal).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/esbmc-ai/esbmc-ai-go/internal/auditlog"
	"github.com/esbmc-ai/esbmc-ai-go/internal/config"
	"github.com/esbmc-ai/esbmc-ai-go/internal/llm"
	"github.com/esbmc-ai/esbmc-ai-go/internal/llmtransport/gemini"
	"github.com/esbmc-ai/esbmc-ai-go/internal/llmtransport/openai"
	"github.com/esbmc-ai/esbmc-ai-go/internal/logutil"
	"github.com/esbmc-ai/esbmc-ai-go/internal/registry"
	"github.com/esbmc-ai/esbmc-ai-go/internal/repairloop"
	"github.com/esbmc-ai/esbmc-ai-go/internal/scenario"
	"github.com/esbmc-ai/esbmc-ai-go/internal/solution"
	"github.com/esbmc-ai/esbmc-ai-go/internal/verifier"
)

func main() {
	os.Exit(run())
}

// run contains everything main would otherwise do directly; pulled
// out so it can return an exit code instead of calling os.Exit itself
// from deep inside setup.
func run() int {
	opts, err := ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	logger := logutil.WithSecretSanitization(logutil.NewSlogLoggerFromLogLevel(os.Stderr, parseLogLevel(opts)))

	loader := config.NewLoader(logger)
	cfg, err := loader.Load(opts.ConfigPath)
	if err != nil {
		logger.Error("failed to load configuration: %v", err)
		return 2
	}
	cfg = opts.applyTo(cfg)

	model, err := buildModel(opts.Provider, cfg)
	if err != nil {
		logger.Error("failed to construct LLM client: %v", err)
		return 2
	}

	table, err := loadScenarioTable(cfg.ScenarioTablePath)
	if err != nil {
		logger.Error("failed to load scenario table: %v", err)
		return 2
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		logger.Error("failed to build component registry: %v", err)
		return 2
	}
	verifierComp, _ := reg.Verifier("esbmc")

	auditLogger, closeAudit, err := buildAuditLogger(cfg.AuditLogPath)
	if err != nil {
		logger.Error("failed to open audit log: %v", err)
		return 2
	}
	defer closeAudit()

	sol, err := solution.FromPaths(opts.Paths, opts.IncludeDirs)
	if err != nil {
		logger.Error("failed to load source files: %v", err)
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine := repairloop.New(verifierComp.Adapter, verifierComp.Params, cfg, model, table, auditLogger)
	engine.OnSolutionFound = func(repairedSource string) {
		if !opts.Quiet {
			logger.Info("repair found: patched solution verifies")
		}
	}

	result, err := engine.Run(ctx, sol)
	if err != nil {
		logger.Error("repair loop ended with a fatal error: %v", err)
		return result.Status.ExitCode()
	}

	reportResult(result, opts.Quiet)
	if opts.WriteInPlace && result.Status == repairloop.StatusSuccess {
		if err := writeRepairedFiles(result.RepairedSolution); err != nil {
			logger.Error("failed to write repaired files: %v", err)
			return 2
		}
	}
	return result.Status.ExitCode()
}

func buildModel(provider string, cfg config.RepairConfig) (llm.ChatModel, error) {
	switch provider {
	case "gemini":
		apiKey := os.Getenv("GEMINI_API_KEY")
		return gemini.New(context.Background(), apiKey, cfg.ModelID)
	case "openai", "":
		return openai.New(cfg.ModelID, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unknown provider %q (want openai or gemini)", provider)
	}
}

func loadScenarioTable(path string) (*scenario.Table, error) {
	if path == "" {
		return scenario.LoadTable([]byte(defaultScenarioYAML))
	}
	return scenario.LoadTableFile(path)
}

func buildRegistry(cfg config.RepairConfig) (*registry.Registry, error) {
	var cache *verifier.ResultCache
	if cfg.EnableVerifierCache {
		cache = verifier.NewResultCache()
	}
	return registry.New(
		[]registry.VerifierComponent{{
			Name:          "esbmc",
			Adapter:       verifier.New(cache),
			Params:        verifier.Params{Binary: cfg.VerifierBinary, Flags: cfg.VerifierFlags},
			Timeout:       cfg.VerifierTimeout,
			EntryFunction: cfg.EntryFunction,
		}},
		[]registry.CommandComponent{{
			Name:     "fix-code",
			Config:   cfg,
			Verifier: "esbmc",
		}},
	)
}

func buildAuditLogger(path string) (auditlog.StructuredLogger, func(), error) {
	if path == "" {
		return auditlog.NewNoOpLogger(), func() {}, nil
	}
	fl, err := auditlog.NewFileLogger(path)
	if err != nil {
		return nil, nil, err
	}
	return fl, func() { _ = fl.Close() }, nil
}

func reportResult(result repairloop.Result, quiet bool) {
	if quiet {
		return
	}
	switch result.Status {
	case repairloop.StatusAlreadyVerified:
		fmt.Println("Already verified: the program satisfies the verifier with no changes.")
	case repairloop.StatusSuccess:
		fmt.Printf("Repaired after %d attempt(s).\n", result.Attempts)
		if result.Diff != "" {
			fmt.Println(result.Diff)
		}
	case repairloop.StatusExhausted:
		fmt.Printf("Exhausted after %d attempt(s); the program still does not verify.\n", result.Attempts)
		if len(result.LastVerifierOutput.Issues) > 0 {
			fmt.Println(result.LastVerifierOutput.PrimaryIssue().String())
		}
	case repairloop.StatusFatal:
		fmt.Println("Repair loop terminated with a fatal error; see logs for details.")
	}
}

func writeRepairedFiles(sol *solution.Solution) error {
	for _, f := range sol.Files() {
		if err := f.SaveFile(); err != nil {
			return err
		}
	}
	return nil
}

// defaultScenarioYAML is the FixCodeScenarios table shipped with the
// tool when no --scenario-table override is given: a "base" fallback
// plus a handful of common ESBMC violation classifications.
const defaultScenarioYAML = `
base:
  system:
    - "You are a C/C++ program repair assistant working with ESBMC, a bounded model checker. You will be given a source file and a verifier diagnostic. Reply with only the corrected code, in a single fenced code block, and nothing else."
  initial: "The following program fails verification:\n\n{{source_code}}\n\nVerifier output:\n{{esbmc_output}}\n\nFix the issue and return the corrected code."
array bounds violated:
  system:
    - "You are a C/C++ program repair assistant working with ESBMC. The verifier reported an out-of-bounds array access. Reply with only the corrected code, in a single fenced code block, and nothing else."
  initial: "The following program has an array bounds violation:\n\n{{source_code}}\n\nVerifier output:\n{{esbmc_output}}\n\nFix the out-of-bounds access and return the corrected code."
dereference failure:
  system:
    - "You are a C/C++ program repair assistant working with ESBMC. The verifier reported a pointer dereference failure (e.g. a null or dangling pointer). Reply with only the corrected code, in a single fenced code block, and nothing else."
  initial: "The following program has a dereference failure:\n\n{{source_code}}\n\nVerifier output:\n{{esbmc_output}}\n\nFix the dereference and return the corrected code."
overflow:
  system:
    - "You are a C/C++ program repair assistant working with ESBMC. The verifier reported an arithmetic overflow. Reply with only the corrected code, in a single fenced code block, and nothing else."
  initial: "The following program has an arithmetic overflow:\n\n{{source_code}}\n\nVerifier output:\n{{esbmc_output}}\n\nFix the overflow and return the corrected code."
`
