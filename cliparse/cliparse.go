package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port         int    `env:"PORT" envDefault:"3318"`
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseType string `env:"DATABASE_TYPE" envDefault:"sqlite"`

	// Slack verification tokens accepted on inbound commands
	SlackTokens   []string `env:"SLACK_TOKENS" envSeparator:","`
	CommandName   string   `env:"COMMAND_NAME" envDefault:"/pokerbot"`
	ImageLocation string   `env:"IMAGE_LOCATION"`

	// Optional shared session store; in-process memory when empty
	RedisURL   string        `env:"REDIS_URL"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Optional round event stream; disabled when no brokers are set
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"pokerbot.rounds"`

	StoreTimeout     time.Duration `env:"STORE_TIMEOUT" envDefault:"3s"`
	BroadcastTimeout time.Duration `env:"BROADCAST_TIMEOUT" envDefault:"5s"`
}

// ParseFlags reads the environment, then lets CLI flags override it
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("pokerbot", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", cfg.Port, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", cfg.DatabaseURL, "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", cfg.DatabaseType, "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.RedisURL, "redis", cfg.RedisURL, "Redis URL for shared sessions")
	fs.StringVar(&cfg.ImageLocation, "images", cfg.ImageLocation, "Base URL of the card images")

	// Secrets (prefer env variables, but allow CLI for dev)
	tokens := fs.String("tokens", "", "Comma-separated Slack verification tokens (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *tokens != "" {
		cfg.SlackTokens = splitList(*tokens)
	} else {
		cfg.SlackTokens = splitList(strings.Join(cfg.SlackTokens, ","))
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("invalid database type %q (sqlite or postgres)", cfg.DatabaseType)
	}

	if cfg.BroadcastTimeout <= 0 {
		return Config{}, fmt.Errorf("broadcast timeout must be positive, got %s", cfg.BroadcastTimeout)
	}
	if cfg.StoreTimeout < 0 {
		return Config{}, fmt.Errorf("store timeout must not be negative, got %s", cfg.StoreTimeout)
	}

	// Secrets - MUST be provided
	if len(cfg.SlackTokens) == 0 {
		return Config{}, errors.New("SLACK_TOKENS required")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
