// Package config loads the frozen configuration record the Repair
// Loop Engine and its collaborators are built from. The engine itself
// never reads files or environment variables — everything it needs
// arrives as this one record, read once at startup and treated as
// read-only process lifecycle state (spec.md's "do not replicate the
// singleton pattern" note applies to the registry and verifier
// runner, not to this value, which is just data).
package config

import "time"

// MessageHistory selects which Solution Generator variant the engine
// instantiates for a repair task.
type MessageHistory string

const (
	HistoryFull        MessageHistory = "full"
	HistoryLatestState MessageHistory = "latest-state-only"
	HistoryReverse     MessageHistory = "reverse-order"
)

// SourceCodeFormat and ESBMCOutputType mirror
// generator.SourceCodeFormat / generator.ESBMCOutputType as plain
// strings so this package does not need to import internal/generator.
type (
	SourceCodeFormat string
	ESBMCOutputType  string
)

const (
	SourceCodeFormatFull   SourceCodeFormat = "full"
	SourceCodeFormatSingle SourceCodeFormat = "single"

	ESBMCOutputFull              ESBMCOutputType = "full"
	ESBMCOutputViolatedProperty  ESBMCOutputType = "violated-property"
	ESBMCOutputCounterexample    ESBMCOutputType = "counterexample"
)

// RepairConfig is the frozen input record a Repair Loop Engine is
// built from. It is spec.md's "repair config" (`maxAttempts`,
// `messageHistory`, `temperature`, `sourceCodeFormat`,
// `esbmcOutputType`, `allowSuccessfulInitial`) together with the
// verifier, retry, and temp-directory knobs spec.md §6's "Engine
// inputs" names alongside it.
type RepairConfig struct {
	// ModelID names the ChatModel to invoke (e.g. "gpt-4o",
	// "gemini-1.5-pro"). Resolving it to a concrete llm.ChatModel is
	// done by the CLI (cmd/esbmc-ai-go's buildModel), not this package.
	ModelID     string  `yaml:"model_id"`
	Temperature float64 `yaml:"temperature"`

	ScenarioTablePath string `yaml:"scenario_table_path"`

	VerifierBinary      string   `yaml:"verifier_binary"`
	VerifierFlags       []string `yaml:"verifier_flags"`
	EntryFunction       string   `yaml:"entry_function"`
	VerifierTimeout     int      `yaml:"verifier_timeout_seconds"`
	EnableVerifierCache bool     `yaml:"enable_verifier_cache"`

	MaxAttempts            int              `yaml:"max_attempts"`
	MessageHistory         MessageHistory   `yaml:"message_history"`
	SourceCodeFormat       SourceCodeFormat `yaml:"source_code_format"`
	ESBMCOutputType        ESBMCOutputType  `yaml:"esbmc_output_type"`
	AllowSuccessfulInitial bool             `yaml:"allow_successful_initial"`

	RequestsMaxTries int           `yaml:"requests_max_tries"`
	RequestBackoff   time.Duration `yaml:"request_backoff"`
	RatePerMinute    int           `yaml:"rate_per_minute"`
	RateBurst        int           `yaml:"rate_burst"`

	TempAutoClean   bool   `yaml:"temp_auto_clean"`
	GeneratePatches bool   `yaml:"generate_patches"`
	DiffOutputPath  string `yaml:"diff_output_path"`

	AuditLogPath string `yaml:"audit_log_path"`
}

// Default returns the same defaults the original esbmc-ai tool ships:
// five repair attempts, full message history, whole files substituted
// into prompts, the full verifier transcript forwarded to the model,
// and a program whose initial verification already passes reported
// as already verified rather than sent through the repair loop.
func Default() RepairConfig {
	return RepairConfig{
		Temperature:            0.0,
		VerifierBinary:         "esbmc",
		VerifierTimeout:        60,
		EnableVerifierCache:    true,
		MaxAttempts:            5,
		MessageHistory:         HistoryFull,
		SourceCodeFormat:       SourceCodeFormatFull,
		ESBMCOutputType:        ESBMCOutputFull,
		AllowSuccessfulInitial: false,
		RequestsMaxTries:       3,
		RequestBackoff:         2 * time.Second,
		TempAutoClean:          true,
		GeneratePatches:        false,
	}
}
