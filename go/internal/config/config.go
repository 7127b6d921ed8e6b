// Package config loads timez settings from .env, an optional YAML file and
// the environment, in that order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/timez-app/timez/go/internal/session"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "timez.yaml"

// Bounds offered by the setup screen.
const (
	MinQuestions = 1
	MaxQuestions = session.MaxQuestions
	MaxMinutes   = 10
	MaxSeconds   = 59

	// MaxSecondsPerQuestion is the longest per-question budget the setup allows.
	MaxSecondsPerQuestion = MaxMinutes*60 + MaxSeconds
)

// Config is the root of timez.yaml.
type Config struct {
	Session  SessionConfig `yaml:"session"`
	Gateway  GatewayConfig `yaml:"gateway"`
	NATS     NATSConfig    `yaml:"nats"`
	LogLevel string        `yaml:"log_level"`
}

// SessionConfig holds the defaults for a new session.
type SessionConfig struct {
	Questions        int   `yaml:"questions"`
	Minutes          int   `yaml:"minutes"`
	Seconds          int   `yaml:"seconds"`
	ExtensionPresets []int `yaml:"extension_presets"`
}

// SecondsPerQuestion is the combined per-question budget.
func (s SessionConfig) SecondsPerQuestion() int {
	return s.Minutes*60 + s.Seconds
}

// GatewayConfig holds HTTP settings for `timez serve`.
type GatewayConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// NATSConfig holds settings for the JetStream event publisher.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	StreamName    string `yaml:"stream_name"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Session: SessionConfig{
			Questions:        10,
			Minutes:          2,
			Seconds:          0,
			ExtensionPresets: []int{30, 60},
		},
		Gateway: GatewayConfig{
			Port:           "8081",
			AllowedOrigins: []string{"*"},
		},
		NATS: NATSConfig{
			Enabled:       false,
			URL:           nats.DefaultURL,
			StreamName:    "TIMEZ_EVENTS",
			SubjectPrefix: "timez.events",
		},
		LogLevel: "info",
	}
}

// Load reads .env (if present), then the YAML file at path, then environment
// overrides, and validates the result. A missing file at DefaultPath is not
// an error; a missing file at any other explicit path is.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	if err := cfg.loadFile(path); err != nil {
		if !(errors.Is(err, os.ErrNotExist) && path == DefaultPath) {
			return nil, err
		}
		log.Debug().Str("path", path).Msg("no config file, using defaults")
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Session.Questions = getEnvAsInt("TIMEZ_QUESTIONS", c.Session.Questions)
	if secs := getEnvAsInt("TIMEZ_SECONDS_PER_QUESTION", -1); secs >= 0 {
		c.Session.Minutes = secs / 60
		c.Session.Seconds = secs % 60
	}
	c.Gateway.Port = getEnv("TIMEZ_PORT", c.Gateway.Port)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.LogLevel = getEnv("TIMEZ_LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("TIMEZ_NATS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TIMEZ_NATS_ENABLED %q: %w", v, err)
		}
		c.NATS.Enabled = enabled
	}
	return nil
}

// Validate checks the bounds the setup screen enforces.
func (c Config) Validate() error {
	var problems []string

	if c.Session.Questions < MinQuestions || c.Session.Questions > MaxQuestions {
		problems = append(problems, fmt.Sprintf("session.questions must be between %d and %d, got %d", MinQuestions, MaxQuestions, c.Session.Questions))
	}
	if c.Session.Minutes < 0 || c.Session.Minutes > MaxMinutes || c.Session.Seconds < 0 || c.Session.Seconds > MaxSeconds {
		problems = append(problems, fmt.Sprintf("session time %dm%ds is out of range", c.Session.Minutes, c.Session.Seconds))
	}
	if c.Session.SecondsPerQuestion() <= 0 {
		problems = append(problems, "session time per question must be greater than zero")
	}
	if len(c.Session.ExtensionPresets) == 0 {
		problems = append(problems, "session.extension_presets must not be empty")
	}
	for _, p := range c.Session.ExtensionPresets {
		if p <= 0 {
			problems = append(problems, fmt.Sprintf("extension preset must be positive, got %d", p))
		}
	}
	if c.Gateway.Port == "" {
		problems = append(problems, "gateway.port must be set")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("invalid log_level %q", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Level returns the parsed log level, defaulting to info.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring non-integer environment value")
	}
	return defaultValue
}
