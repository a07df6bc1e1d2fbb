package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level

	RedisURL     string        `env:"REDIS_URL" envDefault:"localhost:6379"`
	GameStateTTL time.Duration `env:"GAMESTATE_TTL" envDefault:"24h"`
	DataDir      string        `env:"DATA_DIR" envDefault:"data"`

	LLMProvider     string `env:"LLM_PROVIDER" envDefault:"ollama"`
	ModelName       string `env:"MODEL_NAME"`
	BackendModel    string `env:"BACKEND_MODEL_NAME"` // reducer and summaries; defaults to ModelName
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"` // any chat-completions compatible server
	OllamaURL       string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`

	EmbeddingProvider string `env:"EMBEDDING_PROVIDER" envDefault:"ollama"`
	EmbeddingModel    string `env:"EMBEDDING_MODEL"`

	RuleInjection string `env:"RULE_INJECTION"`
	RetrievalTopK int    `env:"RETRIEVAL_TOP_K" envDefault:"5"`
	ConcatPolicy  string `env:"CONCAT_POLICY" envDefault:"simple"`
	MaxTurns      int    `env:"MAX_TURNS" envDefault:"0"`
	Summarization bool   `env:"SUMMARIZATION" envDefault:"false"`
	SummPeriod    int    `env:"SUMM_PERIOD" envDefault:"0"`
	ClearRawLogs  bool   `env:"CLEAR_RAW_LOGS" envDefault:"false"`

	ContentRating string `env:"CONTENT_RATING" envDefault:"PG"` // G, PG and PG-13 filter narration

	GameTimeLimit time.Duration `env:"GAME_TIME_LIMIT" envDefault:"60m"`
	TurnTimeLimit time.Duration `env:"TURN_TIME_LIMIT" envDefault:"1m"`

	ResultsDB string `env:"RESULTS_DB" envDefault:"results.db"`
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks provider and key combinations and numeric ranges.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	case "ollama", "mock":
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.MaxTurns < 0 {
		return fmt.Errorf("MAX_TURNS cannot be negative")
	}
	if c.SummPeriod < 0 {
		return fmt.Errorf("SUMM_PERIOD cannot be negative")
	}
	if c.RetrievalTopK < 1 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be at least 1")
	}
	if c.GameTimeLimit < 0 || c.TurnTimeLimit < 0 {
		return fmt.Errorf("time limits cannot be negative")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
