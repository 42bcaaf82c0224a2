package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
	Storage   StorageConfig   `toml:"storage"`
	EODHD     EODHDConfig     `toml:"eodhd"`
	Collector CollectorConfig `toml:"collector"`
	Gemini    GeminiConfig    `toml:"gemini"`
	Claude    ClaudeConfig    `toml:"claude"`
	LLM       LLMConfig       `toml:"llm"`
	Advisory  AdvisoryConfig  `toml:"advisory"`
	Narrative NarrativeConfig `toml:"narrative"`
	Valuation ValuationConfig `toml:"valuation"`
	Reports   ReportsConfig   `toml:"reports"`
	Batch     BatchConfig     `toml:"batch"`
	Scheduler SchedulerConfig `toml:"scheduler"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host" validate:"required"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"` // "debug", "info", "warn", "error"
	Output []string `toml:"output"`                                       // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

// EODHDConfig configures the market data provider
type EODHDConfig struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url" validate:"omitempty,url"`
	RateLimit int    `toml:"rate_limit" validate:"min=0"` // requests per second
	Timeout   string `toml:"timeout"`                     // duration string, e.g. "30s"
}

// CollectorConfig controls how much history is fetched and how long snapshots are reused
type CollectorConfig struct {
	HistoryDays int    `toml:"history_days" validate:"min=30"` // calendar days of daily bars (covers 52-week range)
	CacheTTL    string `toml:"cache_ttl"`                      // "0" disables the cache
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"` // minimum gap between requests, e.g. "4s"
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the default provider
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"`
}

// AdvisoryConfig configures the one-shot grading request
type AdvisoryConfig struct {
	Enabled     bool    `toml:"enabled"`
	Model       string  `toml:"model"` // empty uses the default provider's model
	Temperature float32 `toml:"temperature" validate:"min=0,max=2"`
	MaxTokens   int     `toml:"max_tokens" validate:"min=1"`
	Timeout     string  `toml:"timeout"`
}

// NarrativeConfig configures free-text analysis generation
type NarrativeConfig struct {
	Enabled     bool    `toml:"enabled"`
	Depth       string  `toml:"depth" validate:"oneof=basic detailed comprehensive"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature" validate:"min=0,max=2"`
	MaxTokens   int     `toml:"max_tokens" validate:"min=1"`
}

// ValuationConfig holds the valuation anchors
type ValuationConfig struct {
	FairPE            float64 `toml:"fair_pe" validate:"gt=0"`
	FairPB            float64 `toml:"fair_pb" validate:"gt=0"`
	RequiredReturn    float64 `toml:"required_return" validate:"gt=0,lt=1"`
	MaxDividendGrowth float64 `toml:"max_dividend_growth" validate:"gte=0"`
	TargetFloor       float64 `toml:"target_floor" validate:"gt=0"`
	TargetCeiling     float64 `toml:"target_ceiling" validate:"gtfield=TargetFloor"`
	CurrentRatio      float64 `toml:"current_ratio" validate:"gt=0"`
	HighBeta          float64 `toml:"high_beta" validate:"gt=0"`
}

// ReportsConfig configures report output
type ReportsConfig struct {
	Dir           string `toml:"dir" validate:"required"`
	DefaultFormat string `toml:"default_format" validate:"oneof=markdown html json pdf"`
}

// BatchConfig bounds multi-symbol runs
type BatchConfig struct {
	Concurrency int `toml:"concurrency" validate:"min=1,max=32"`
	MaxSymbols  int `toml:"max_symbols" validate:"min=1"`
}

// SchedulerConfig configures the watchlist job
type SchedulerConfig struct {
	Enabled  bool     `toml:"enabled"`
	Schedule string   `toml:"schedule"` // 5-field cron expression
	Symbols  []string `toml:"symbols"`
	Format   string   `toml:"format" validate:"omitempty,oneof=markdown html json pdf"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		EODHD: EODHDConfig{
			BaseURL:   "https://eodhd.com/api",
			RateLimit: 10,
			Timeout:   "30s",
		},
		Collector: CollectorConfig{
			HistoryDays: 400,
			CacheTTL:    "6h",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Timeout:     "5m",
			RateLimit:   "4s", // 15 RPM free tier
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-5",
			MaxTokens:   8192,
			Timeout:     "5m",
			RateLimit:   "1s",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Advisory: AdvisoryConfig{
			Enabled:     true,
			Temperature: 0.3, // low for consistent grades
			MaxTokens:   200,
			Timeout:     "30s",
		},
		Narrative: NarrativeConfig{
			Enabled:     true,
			Depth:       "comprehensive",
			Temperature: 0.7,
			MaxTokens:   8192,
		},
		Valuation: ValuationConfig{
			FairPE:            15,
			FairPB:            2.0,
			RequiredReturn:    0.10,
			MaxDividendGrowth: 0.06,
			TargetFloor:       0.5,
			TargetCeiling:     2.0,
			CurrentRatio:      1.5,
			HighBeta:          1.5,
		},
		Reports: ReportsConfig{
			Dir:           "./reports",
			DefaultFormat: "markdown",
		},
		Batch: BatchConfig{
			Concurrency: 3,
			MaxSymbols:  5,
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Schedule: "0 7 * * 1-5", // weekdays before the US open
			Format:   "markdown",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> .env -> env.
// Later files override earlier files; CLI flags are applied afterwards by ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// .env is optional; values already present in the environment win
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies VALUATOR_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("VALUATOR_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("VALUATOR_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if level := os.Getenv("VALUATOR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("VALUATOR_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if badgerPath := os.Getenv("VALUATOR_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if apiKey := os.Getenv("EODHD_API_KEY"); apiKey != "" {
		config.EODHD.APIKey = apiKey
	}
	if apiKey := os.Getenv("VALUATOR_EODHD_API_KEY"); apiKey != "" {
		config.EODHD.APIKey = apiKey // VALUATOR_ prefix takes priority
	}
	if baseURL := os.Getenv("VALUATOR_EODHD_BASE_URL"); baseURL != "" {
		config.EODHD.BaseURL = baseURL
	}

	if ttl := os.Getenv("VALUATOR_COLLECTOR_CACHE_TTL"); ttl != "" {
		config.Collector.CacheTTL = ttl
	}

	if apiKey := os.Getenv("VALUATOR_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("VALUATOR_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if rateLimit := os.Getenv("VALUATOR_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}

	if apiKey := os.Getenv("VALUATOR_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("VALUATOR_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	if provider := os.Getenv("VALUATOR_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}

	if enabled := os.Getenv("VALUATOR_ADVISORY_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Advisory.Enabled = e
		}
	}
	if enabled := os.Getenv("VALUATOR_NARRATIVE_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Narrative.Enabled = e
		}
	}
	if depth := os.Getenv("VALUATOR_NARRATIVE_DEPTH"); depth != "" {
		config.Narrative.Depth = depth
	}

	if dir := os.Getenv("VALUATOR_REPORTS_DIR"); dir != "" {
		config.Reports.Dir = dir
	}
	if maxSymbols := os.Getenv("VALUATOR_MAX_STOCKS_PER_BATCH"); maxSymbols != "" {
		if m, err := strconv.Atoi(maxSymbols); err == nil {
			config.Batch.MaxSymbols = m
		}
	}

	if symbols := os.Getenv("VALUATOR_SCHEDULER_SYMBOLS"); symbols != "" {
		config.Scheduler.Symbols = splitList(symbols)
	}
	if schedule := os.Getenv("VALUATOR_SCHEDULER_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string, reportsDir string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if reportsDir != "" {
		config.Reports.Dir = reportsDir
	}
}

// Validate checks field constraints and the scheduler expression
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Scheduler.Enabled {
		if len(c.Scheduler.Symbols) == 0 {
			return fmt.Errorf("invalid configuration: scheduler enabled without symbols")
		}
		if err := ValidateSchedule(c.Scheduler.Schedule); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return nil
}

// ValidateSchedule validates a standard 5-field cron expression
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// ResolveAPIKey resolves an API key by name. Resolution order: VALUATOR_* environment
// variables, the provider's conventional variable, then the config value.
func ResolveAPIKey(name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"VALUATOR_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"anthropic_api_key": {"VALUATOR_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"claude_api_key":    {"VALUATOR_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"eodhd_api_key":     {"VALUATOR_EODHD_API_KEY", "EODHD_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

// ParseDuration parses a duration string, returning fallback when it is empty or invalid
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
