package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Token        string  `env:"TOKEN"`
	AllowedUsers []int64 `env:"ALLOWED_USERS"`
	DBPath       string  `env:"DB_PATH"       envDefault:"db.sqlite"`

	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	HuggingFaceToken string `env:"HUGGINGFACEHUB_API_TOKEN"`
	UseGemma         bool   `env:"USE_GEMMA"                envDefault:"true"`

	OpenAIModel     string `env:"OPENAI_MODEL"     envDefault:"gpt-4o-mini"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL"  envDefault:"claude-3-5-sonnet-latest"`
	GemmaModel      string `env:"GEMMA_MODEL"      envDefault:"google/gemma-2-2b-it"`
	DefaultProvider string `env:"DEFAULT_PROVIDER" envDefault:"anthropic"`

	ChunkSize   int   `env:"CHUNK_SIZE"    envDefault:"4000"`
	MaxFileSize int64 `env:"MAX_FILE_SIZE" envDefault:"10485760"`

	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT"       envDefault:"30s"`
	MaxRetries          int           `env:"MAX_RETRIES"           envDefault:"3"`
	RetryInitialBackoff time.Duration `env:"RETRY_INITIAL_BACKOFF" envDefault:"4s"`
	RetryMaxBackoff     time.Duration `env:"RETRY_MAX_BACKOFF"     envDefault:"10s"`

	CacheMaxEntries int           `env:"CACHE_MAX_ENTRIES" envDefault:"256"`
	CacheTTL        time.Duration `env:"CACHE_TTL"         envDefault:"1h"`

	HistoryRetention time.Duration `env:"HISTORY_RETENTION" envDefault:"720h"`

	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
}

// Load reads the configuration from the environment. Variables from a .env
// file in the working directory are loaded first when the file exists and
// never override variables that are already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.ChunkSize <= 0 {
		return Config{}, fmt.Errorf("CHUNK_SIZE must be positive (got %d)", cfg.ChunkSize)
	}

	if cfg.MaxRetries < 1 {
		return Config{}, fmt.Errorf("MAX_RETRIES must be at least 1 (got %d)", cfg.MaxRetries)
	}

	return cfg, nil
}
