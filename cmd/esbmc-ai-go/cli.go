// Package main provides the command-line interface for esbmc-ai-go.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/esbmc-ai/esbmc-ai-go/internal/config"
	"github.com/esbmc-ai/esbmc-ai-go/internal/logutil"
)

// stringSliceFlag collects repeatable flag occurrences into a slice.
type stringSliceFlag []string

func (s *stringSliceFlag) String() string { return strings.Join(*s, ",") }

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// Options holds every value ParseFlags extracts from argv, before it
// is merged onto a loaded config.RepairConfig.
type Options struct {
	Paths       []string
	IncludeDirs []string

	ConfigPath        string
	ScenarioTablePath string

	Provider    string
	ModelID     string
	Temperature float64

	VerifierBinary  string
	VerifierFlags   []string
	EntryFunction   string
	VerifierTimeout int

	MaxAttempts            int
	MessageHistory         string
	SourceCodeFormat       string
	ESBMCOutputType        string
	AllowSuccessfulInitial bool

	RequestsMaxTries int
	RequestBackoff   time.Duration
	RatePerMinute    int
	RateBurst        int

	TempAutoClean   bool
	GeneratePatches bool
	DiffOutputPath  string
	AuditLogPath    string

	WriteInPlace bool
	LogLevel     string
	Quiet        bool
}

// ParseFlags parses os.Args[1:] into an Options value.
func ParseFlags() (*Options, error) {
	return ParseFlagsWithArgs(flag.CommandLine, os.Args[1:])
}

// ParseFlagsWithArgs parses args against flagSet, returning an Options.
// Split out from ParseFlags so tests can supply a scratch FlagSet.
func ParseFlagsWithArgs(flagSet *flag.FlagSet, args []string) (*Options, error) {
	opts := &Options{}

	flagSet.StringVar(&opts.ConfigPath, "config", "", "Path to a YAML RepairConfig file.")
	flagSet.StringVar(&opts.ScenarioTablePath, "scenario-table", "", "Path to a YAML scenario table overriding the default FixCodeScenarios.")

	flagSet.StringVar(&opts.Provider, "provider", "openai", "LLM provider to invoke: openai or gemini.")
	flagSet.StringVar(&opts.ModelID, "model", "", "Model identifier (e.g. gpt-4o, gemini-1.5-pro). Overrides the config file.")
	flagSet.Float64Var(&opts.Temperature, "temperature", -1, "Sampling temperature. Overrides the config file when >= 0.")

	flagSet.StringVar(&opts.VerifierBinary, "verifier-binary", "", "Path to the verifier executable (default: esbmc on PATH).")
	var verifierFlags stringSliceFlag
	flagSet.Var(&verifierFlags, "verifier-flag", "Extra flag to pass to the verifier (repeatable).")
	flagSet.StringVar(&opts.EntryFunction, "entry-function", "main", "Function under verification.")
	flagSet.IntVar(&opts.VerifierTimeout, "verifier-timeout", 0, "Verifier wall-clock budget in seconds. Overrides the config file when > 0.")

	flagSet.IntVar(&opts.MaxAttempts, "max-attempts", 0, "Maximum repair attempts. Overrides the config file when > 0.")
	flagSet.StringVar(&opts.MessageHistory, "message-history", "", "Solution Generator history strategy: full, latest-state-only, or reverse-order.")
	flagSet.StringVar(&opts.SourceCodeFormat, "source-code-format", "", "Prompt source-code substitution: full or single.")
	flagSet.StringVar(&opts.ESBMCOutputType, "esbmc-output-type", "", "Verifier output substitution: full, violated-property, or counterexample.")
	flagSet.BoolVar(&opts.AllowSuccessfulInitial, "allow-successful-initial", false, "Run the repair loop even if the initial verification already succeeds.")

	flagSet.IntVar(&opts.RequestsMaxTries, "requests-max-tries", 0, "LLM transport-error retry budget. Overrides the config file when > 0.")
	flagSet.DurationVar(&opts.RequestBackoff, "request-backoff", 0, "Delay between LLM transport-error retries.")
	flagSet.IntVar(&opts.RatePerMinute, "rate-per-minute", 0, "LLM request rate limit (0 = unlimited).")
	flagSet.IntVar(&opts.RateBurst, "rate-burst", 0, "LLM request rate-limit burst size.")

	flagSet.BoolVar(&opts.TempAutoClean, "temp-auto-clean", true, "Remove per-attempt temp directories when the run finishes.")
	flagSet.BoolVar(&opts.GeneratePatches, "generate-patches", false, "Compute and emit a unified diff of the repaired solution.")
	flagSet.StringVar(&opts.DiffOutputPath, "diff-output", "", "Path to write the unified diff to, if --generate-patches is set.")
	flagSet.StringVar(&opts.AuditLogPath, "audit-log", "", "Path to append structured JSON Lines audit events to. Disabled if empty.")

	var includeDirs stringSliceFlag
	flagSet.Var(&includeDirs, "include-dir", "Include directory accompanying the source files (repeatable).")

	flagSet.BoolVar(&opts.WriteInPlace, "write", false, "Overwrite the original source files with the repaired solution on success.")
	flagSet.StringVar(&opts.LogLevel, "log-level", "info", "Logging level: debug, info, warn, error.")
	flagSet.BoolVar(&opts.Quiet, "quiet", false, "Suppress informational logging; only print the final result.")

	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <source-file> [more-source-files...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Repeatedly verifies the given C/C++ source against a bounded model\n")
		fmt.Fprintf(os.Stderr, "checker and asks an LLM to patch any violation found, until the\n")
		fmt.Fprintf(os.Stderr, "program verifies, the attempt budget is exhausted, or a fatal error\n")
		fmt.Fprintf(os.Stderr, "occurs.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flagSet.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY: required when --provider=openai\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY: required when --provider=gemini\n")
		fmt.Fprintf(os.Stderr, "  ESBMC_AI_MODEL, ESBMC_AI_TEMPERATURE, ESBMC_AI_VERIFIER_BINARY,\n")
		fmt.Fprintf(os.Stderr, "  ESBMC_AI_MAX_ATTEMPTS, ESBMC_AI_VERIFIER_TIMEOUT, ESBMC_AI_SCENARIO_TABLE:\n")
		fmt.Fprintf(os.Stderr, "  override the loaded config file.\n")
	}

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	opts.Paths = flagSet.Args()
	opts.VerifierFlags = verifierFlags
	opts.IncludeDirs = includeDirs

	if len(opts.Paths) == 0 {
		return nil, fmt.Errorf("at least one source file path must be given")
	}

	return opts, nil
}

// applyTo merges the CLI-supplied overrides in opts onto cfg, leaving
// any value opts left at its zero/sentinel unchanged, so the config
// file (or its defaults) wins for those. EntryFunction and
// TempAutoClean are the exceptions: their flag defaults ("main" and
// true) are not sentinels, so they always replace the config values.
func (opts *Options) applyTo(cfg config.RepairConfig) config.RepairConfig {
	if opts.ModelID != "" {
		cfg.ModelID = opts.ModelID
	}
	if opts.Temperature >= 0 {
		cfg.Temperature = opts.Temperature
	}
	if opts.VerifierBinary != "" {
		cfg.VerifierBinary = opts.VerifierBinary
	}
	if len(opts.VerifierFlags) > 0 {
		cfg.VerifierFlags = opts.VerifierFlags
	}
	if opts.EntryFunction != "" {
		cfg.EntryFunction = opts.EntryFunction
	}
	if opts.VerifierTimeout > 0 {
		cfg.VerifierTimeout = opts.VerifierTimeout
	}
	if opts.MaxAttempts > 0 {
		cfg.MaxAttempts = opts.MaxAttempts
	}
	if opts.MessageHistory != "" {
		cfg.MessageHistory = config.MessageHistory(opts.MessageHistory)
	}
	if opts.SourceCodeFormat != "" {
		cfg.SourceCodeFormat = config.SourceCodeFormat(opts.SourceCodeFormat)
	}
	if opts.ESBMCOutputType != "" {
		cfg.ESBMCOutputType = config.ESBMCOutputType(opts.ESBMCOutputType)
	}
	cfg.AllowSuccessfulInitial = opts.AllowSuccessfulInitial || cfg.AllowSuccessfulInitial
	if opts.RequestsMaxTries > 0 {
		cfg.RequestsMaxTries = opts.RequestsMaxTries
	}
	if opts.RequestBackoff > 0 {
		cfg.RequestBackoff = opts.RequestBackoff
	}
	if opts.RatePerMinute > 0 {
		cfg.RatePerMinute = opts.RatePerMinute
	}
	if opts.RateBurst > 0 {
		cfg.RateBurst = opts.RateBurst
	}
	cfg.TempAutoClean = opts.TempAutoClean
	if opts.GeneratePatches {
		cfg.GeneratePatches = true
	}
	if opts.DiffOutputPath != "" {
		cfg.DiffOutputPath = opts.DiffOutputPath
	}
	if opts.AuditLogPath != "" {
		cfg.AuditLogPath = opts.AuditLogPath
	}
	if opts.ScenarioTablePath != "" {
		cfg.ScenarioTablePath = opts.ScenarioTablePath
	}
	return cfg
}

// parseLogLevel mirrors the teacher's verbose/log-level resolution in
// cmd/thinktank/cli.go, narrowed to this tool's smaller flag set.
func parseLogLevel(opts *Options) logutil.LogLevel {
	if opts.Quiet {
		return logutil.ErrorLevel
	}
	level, err := logutil.ParseLogLevel(opts.LogLevel)
	if err != nil {
		return logutil.InfoLevel
	}
	return level
}
