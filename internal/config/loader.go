package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/esbmc-ai/esbmc-ai-go/internal/logutil"
)

// Environment variable overrides, applied over whatever a config file
// supplied (or over Default() if no file was found). Mirrors the
// teacher's THINKTANK_CONFIG_* fallback-for-containers idiom, renamed
// to this tool's domain.
const (
	EnvConfigModel           = "ESBMC_AI_MODEL"
	EnvConfigTemperature     = "ESBMC_AI_TEMPERATURE"
	EnvConfigVerifierBinary  = "ESBMC_AI_VERIFIER_BINARY"
	EnvConfigMaxAttempts     = "ESBMC_AI_MAX_ATTEMPTS"
	EnvConfigVerifierTimeout = "ESBMC_AI_VERIFIER_TIMEOUT"
	EnvConfigScenarioTable   = "ESBMC_AI_SCENARIO_TABLE"
)

// Loader reads a RepairConfig from a YAML file, falling back to
// Default() if path is empty or names a file that does not exist (any
// other read error is returned), then applies environment
// variable overrides on top — the same file-then-env-then-defaults
// layering as the teacher's registry.ConfigLoader.Load, narrowed to
// one record instead of a provider/model catalogue.
type Loader struct {
	Logger logutil.LoggerInterface
}

// NewLoader creates a Loader. A nil logger is replaced with a
// default slog-backed one, matching the teacher's NewConfigLoader.
func NewLoader(logger logutil.LoggerInterface) *Loader {
	if logger == nil {
		logger = logutil.NewSlogLoggerFromLogLevel(os.Stderr, logutil.InfoLevel)
	}
	return &Loader{Logger: logger}
}

// Load reads path (if non-empty) as YAML into a RepairConfig seeded
// with Default(), then applies any ESBMC_AI_* environment overrides.
func (l *Loader) Load(path string) (RepairConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return RepairConfig{}, fmt.Errorf("reading config file %s: %w", path, err)
			}
			l.Logger.Warn("config file %s not found, using defaults", path)
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return RepairConfig{}, fmt.Errorf("parsing config file %s: %w", path, err)
			}
			l.Logger.Info("loaded configuration from %s", path)
		}
	}

	l.applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return RepairConfig{}, err
	}
	return cfg, nil
}

func (l *Loader) applyEnvOverrides(cfg *RepairConfig) {
	if v := os.Getenv(EnvConfigModel); v != "" {
		cfg.ModelID = v
	}
	if v := os.Getenv(EnvConfigVerifierBinary); v != "" {
		cfg.VerifierBinary = v
	}
	if v := os.Getenv(EnvConfigScenarioTable); v != "" {
		cfg.ScenarioTablePath = v
	}
	if v := os.Getenv(EnvConfigTemperature); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Temperature = parsed
		} else {
			l.Logger.Warn("ignoring invalid %s=%q: %v", EnvConfigTemperature, v, err)
		}
	}
	if v := os.Getenv(EnvConfigMaxAttempts); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.MaxAttempts = parsed
		} else {
			l.Logger.Warn("ignoring invalid %s=%q: %v", EnvConfigMaxAttempts, v, err)
		}
	}
	if v := os.Getenv(EnvConfigVerifierTimeout); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.VerifierTimeout = parsed
		} else {
			l.Logger.Warn("ignoring invalid %s=%q: %v", EnvConfigVerifierTimeout, v, err)
		}
	}
}

func validate(cfg RepairConfig) error {
	if cfg.ModelID == "" {
		return fmt.Errorf("config: model_id must be set (or %s)", EnvConfigModel)
	}
	if cfg.MaxAttempts <= 0 {
		return fmt.Errorf("config: max_attempts must be positive, got %d", cfg.MaxAttempts)
	}
	if cfg.VerifierTimeout <= 0 {
		return fmt.Errorf("config: verifier_timeout_seconds must be positive, got %d", cfg.VerifierTimeout)
	}
	switch cfg.MessageHistory {
	case HistoryFull, HistoryLatestState, HistoryReverse:
	default:
		return fmt.Errorf("config: unknown message_history %q", cfg.MessageHistory)
	}
	switch cfg.SourceCodeFormat {
	case SourceCodeFormatFull, SourceCodeFormatSingle:
	default:
		return fmt.Errorf("config: unknown source_code_format %q", cfg.SourceCodeFormat)
	}
	switch cfg.ESBMCOutputType {
	case ESBMCOutputFull, ESBMCOutputViolatedProperty, ESBMCOutputCounterexample:
	default:
		return fmt.Errorf("config: unknown esbmc_output_type %q", cfg.ESBMCOutputType)
	}
	return nil
}
