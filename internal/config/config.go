// Package config loads application configuration from an optional TOML file
// and REVIEWMOD_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
)

// EnvPrefix prefixes every environment variable Load reads.
const EnvPrefix = "REVIEWMOD_"

// ConfigFileEnv names the optional TOML file loaded before environment overrides.
const ConfigFileEnv = EnvPrefix + "CONFIG_FILE"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration.
type Config struct {
	ListenAddr string `koanf:"listen_addr"`
	DBPath     string `koanf:"db_path"`

	ReanalysisInterval time.Duration `koanf:"reanalysis_interval"`
	ScoringWorkers     int           `koanf:"scoring_workers"`
	ScorerURL          string        `koanf:"scorer_url"`
	ScorerTimeout      time.Duration `koanf:"scorer_timeout"`

	// StrikeThreshold of 0 disables suspension-candidate escalation.
	StrikeThreshold        int    `koanf:"strike_threshold"`
	OutcomeRecipient       string `koanf:"outcome_recipient"`
	NotifyReporterOnReject bool   `koanf:"notify_reporter_on_reject"`

	NotifyURLs      []string `koanf:"notify_urls"`
	NotifyQueueSize int      `koanf:"notify_queue_size"`

	AdminToken string `koanf:"admin_token"`
}

// keys lists every configuration key. Each maps to EnvPrefix + upper(key).
var keys = []string{
	"listen_addr",
	"db_path",
	"reanalysis_interval",
	"scoring_workers",
	"scorer_url",
	"scorer_timeout",
	"strike_threshold",
	"outcome_recipient",
	"notify_reporter_on_reject",
	"notify_urls",
	"notify_queue_size",
	"admin_token",
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

func defaults() Config {
	return Config{
		ListenAddr:         "127.0.0.1:8080",
		DBPath:             "reviewmod.db",
		ReanalysisInterval: 10 * time.Minute,
		ScoringWorkers:     4,
		ScorerTimeout:      5 * time.Second,
		StrikeThreshold:    3,
		OutcomeRecipient:   string(model.RecipientAuthor),
		NotifyURLs:         []string{},
		NotifyQueueSize:    256,
	}
}

// Load returns the defaults overlaid with the TOML file named by
// REVIEWMOD_CONFIG_FILE (if set) and then with REVIEWMOD_* environment
// variables. The result is validated.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path, ok := os.LookupEnv(ConfigFileEnv); ok && path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	for _, key := range keys {
		v, ok := os.LookupEnv(EnvName(key))
		if !ok {
			continue
		}
		var val any = v
		if key == "notify_urls" {
			val = splitList(v)
		}
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("apply %s: %w", EnvName(key), err)
		}
	}

	cfg := defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.NotifyURLs == nil {
		cfg.NotifyURLs = []string{}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Recipient returns the parsed outcome recipient.
func (c *Config) Recipient() model.RecipientKind {
	kind, err := model.ParseOutcomeRecipient(c.OutcomeRecipient)
	if err != nil {
		return model.RecipientAuthor
	}
	return kind
}

// HasRemoteScorer reports whether a scoring service URL is configured.
func (c *Config) HasRemoteScorer() bool {
	return c.ScorerURL != ""
}

func (c *Config) validate() error {
	switch {
	case c.ListenAddr == "":
		return fmt.Errorf("%w: listen_addr is empty", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path is empty", ErrInvalidConfig)
	case c.ReanalysisInterval <= 0:
		return fmt.Errorf("%w: reanalysis_interval must be positive, got %s", ErrInvalidConfig, c.ReanalysisInterval)
	case c.ScoringWorkers < 1:
		return fmt.Errorf("%w: scoring_workers must be at least 1, got %d", ErrInvalidConfig, c.ScoringWorkers)
	case c.ScorerTimeout <= 0:
		return fmt.Errorf("%w: scorer_timeout must be positive, got %s", ErrInvalidConfig, c.ScorerTimeout)
	case c.StrikeThreshold < 0:
		return fmt.Errorf("%w: strike_threshold must not be negative, got %d", ErrInvalidConfig, c.StrikeThreshold)
	case c.NotifyQueueSize < 1:
		return fmt.Errorf("%w: notify_queue_size must be at least 1, got %d", ErrInvalidConfig, c.NotifyQueueSize)
	}

	if _, err := model.ParseOutcomeRecipient(c.OutcomeRecipient); err != nil {
		return fmt.Errorf("%w: outcome_recipient: %w", ErrInvalidConfig, err)
	}

	return nil
}

func splitList(v string) []string {
	out := []string{}
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
