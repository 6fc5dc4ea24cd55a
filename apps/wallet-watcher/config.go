package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "watcher"

// Config holds env-derived settings, read as WATCHER_<NAME>. Fields with an explicit
// envconfig name also fall back to the unprefixed variable (DATABASE_URL, PORT, ...).
type Config struct {
	// Base58 address of the wallet to follow
	Address string `required:"true"`
	// JSON-RPC endpoint; "synthetic" runs against an in-process fake ledger
	RPCURL string `envconfig:"RPC_URL" default:"https://api.mainnet-beta.solana.com"`
	// Max RPC requests per second, 0 = unlimited
	RPCRPS float64 `envconfig:"RPC_RPS" default:"10"`

	PollInterval  time.Duration `split_words:"true" default:"2s"`
	PageLimit     int           `split_words:"true" default:"100"`
	CacheSize     int           `split_words:"true" default:"10000"`
	MaxConcurrent int           `split_words:"true" default:"8"`
	FetchTimeout  time.Duration `split_words:"true" default:"15s"`

	// file | postgres | sqlite | none
	CheckpointBackend string `split_words:"true" default:"file"`
	// file backend writes <StatePath>.<Address>
	StatePath   string `split_words:"true" default:"watcher_state"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"watcher.db"`

	// console | postgres | sqs
	Sink        string `default:"console"`
	SinkRetries int    `split_words:"true" default:"3"`
	SQSQueueURL string `envconfig:"SQS_QUEUE_URL"`
	AWSRegion   string `envconfig:"AWS_REGION"`

	LogLevel  string `split_words:"true" default:"info"`
	LogFormat string `split_words:"true" default:"json"`
	Port      string `envconfig:"PORT" default:"8080"`
}

// loadConfig applies envFile (or ./.env when present) to the environment, then reads Config.
func loadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	var c Config
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return Config{}, err
	}
	if err := c.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func (c *Config) validate() error {
	c.Address = strings.TrimSpace(c.Address)
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.PageLimit < 1 || c.PageLimit > 1000 {
		return fmt.Errorf("page limit must be between 1 and 1000, got %d", c.PageLimit)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative")
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max concurrent must be at least 1")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}

	switch c.CheckpointBackend {
	case "file", "none", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("checkpoint backend postgres needs DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown checkpoint backend %q", c.CheckpointBackend)
	}

	switch c.Sink {
	case "console":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("sink postgres needs DATABASE_URL")
		}
	case "sqs":
		if c.SQSQueueURL == "" {
			return fmt.Errorf("sink sqs needs SQS_QUEUE_URL")
		}
	default:
		return fmt.Errorf("unknown sink %q", c.Sink)
	}
	return nil
}

// listenAddr allows PORT=8080 or PORT=:8080.
func listenAddr(port string) string {
	p := strings.TrimPrefix(strings.TrimSpace(port), ":")
	if p == "" {
		return ":8080"
	}
	return ":" + p
}
