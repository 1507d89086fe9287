package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrNoScope is returned when neither a corporation nor an alliance is tracked.
var ErrNoScope = errors.New("either --corporation or --alliance is required")

type Config struct {
	LifetimeSeconds int    `yaml:"lifetime_seconds" env:"EVE_COUNTER_LIFETIME"`
	Fresh           bool   `yaml:"fresh" env:"EVE_COUNTER_FRESH"`
	CorporationID   int64  `yaml:"corporation_id" env:"EVE_COUNTER_CORPORATION"`
	AllianceID      int64  `yaml:"alliance_id" env:"EVE_COUNTER_ALLIANCE"`
	FeedURL         string `yaml:"feed_url" env:"EVE_COUNTER_FEED_URL"`
	KillAPIURL      string `yaml:"kill_api_url" env:"EVE_COUNTER_KILL_API_URL"`
	UserAgent       string `yaml:"user_agent" env:"EVE_COUNTER_USER_AGENT"`
	RedisHost       string `yaml:"redis_host" env:"EVE_COUNTER_REDIS_HOST"`
	RedisPort       int    `yaml:"redis_port" env:"EVE_COUNTER_REDIS_PORT"`
	RedisPassword   string `yaml:"redis_password" env:"EVE_COUNTER_REDIS_PASSWORD"`
	RedisDB         int    `yaml:"redis_db" env:"EVE_COUNTER_REDIS_DB"`
	MQTTHost        string `yaml:"mqtt_host" env:"EVE_COUNTER_MQTT_HOST"`
	MQTTPort        int    `yaml:"mqtt_port" env:"EVE_COUNTER_MQTT_PORT"`
	MQTTTopic       string `yaml:"mqtt_topic" env:"EVE_COUNTER_MQTT_TOPIC"`
	HTTPPort        int    `yaml:"http_port" env:"EVE_COUNTER_HTTP_PORT"` // 0 disables the status server
	LogLevel        string `yaml:"log_level" env:"EVE_COUNTER_LOG_LEVEL"`
}

func defaults() Config {
	return Config{
		LifetimeSeconds: 24 * 60 * 60,
		FeedURL:         "wss://zkillboard.com/websocket/",
		KillAPIURL:      "https://zkillboard.com/api",
		UserAgent:       "eve-counter",
		RedisHost:       "localhost",
		RedisPort:       6379,
		MQTTHost:        "localhost",
		MQTTPort:        1883,
		MQTTTopic:       "eve_counter/custom/eve_counter",
		LogLevel:        "info",
	}
}

// Load builds the configuration from defaults, an optional yaml file and
// EVE_COUNTER_* environment variables, in that order. A missing file is not
// an error. Flags are applied afterwards by the caller; see BindFlags.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse yaml: %w", err)
			}
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.CorporationID <= 0 && c.AllianceID <= 0 {
		return ErrNoScope
	}
	if c.LifetimeSeconds < 1 {
		return errors.New("lifetime must be >=1 second")
	}
	for name, p := range map[string]int{"redis_port": c.RedisPort, "mqtt_port": c.MQTTPort} {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid %s %d", name, p)
		}
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return errors.New("invalid http_port")
	}
	if c.MQTTTopic == "" {
		return errors.New("mqtt_topic must not be empty")
	}
	return nil
}

// Scope is the tracked organization. The corporation wins when both ids are set.
func (c Config) Scope() Scope {
	if c.CorporationID > 0 {
		return Scope{Kind: ScopeCorporation, ID: c.CorporationID}
	}
	return Scope{Kind: ScopeAlliance, ID: c.AllianceID}
}

func (c Config) Lifetime() time.Duration {
	return time.Duration(c.LifetimeSeconds) * time.Second
}

func (c Config) RedisAddr() string {
	return c.RedisHost + ":" + strconv.Itoa(c.RedisPort)
}

const (
	ScopeCorporation = "corporation"
	ScopeAlliance    = "alliance"
)

type Scope struct {
	Kind string // "corporation" or "alliance"
	ID   int64
}

// Channel is the feed subscription channel, e.g. "corporation:98000001".
func (s Scope) Channel() string {
	return s.Kind + ":" + strconv.FormatInt(s.ID, 10)
}

func NewLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
