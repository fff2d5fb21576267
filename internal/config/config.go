package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"quiz-game/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		// TTL bounds how long a cached question bank is served.
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Game Game `yaml:"game"`
	Log  Log  `yaml:"log"`
}

// Game holds the fixed parameters of every session.
type Game struct {
	MaxRounds      int      `yaml:"max_rounds"`
	RoundSeconds   int      `yaml:"round_seconds"`
	PointsPerRound int      `yaml:"points_per_round"`
	PerfectSeconds int      `yaml:"perfect_seconds"`
	HistoryLimit   int      `yaml:"history_limit"`
	Categories     []string `yaml:"categories"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultCategories is the round rotation used when none are configured.
var DefaultCategories = []string{"budgeting", "saving", "investing", "credit", "retirement", "taxes"}

// Load reads YAML config from path and fills in defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize replaces zero values with defaults.
func (c *Config) Normalize() {
	if c.Game.MaxRounds <= 0 {
		c.Game.MaxRounds = domain.DefaultMaxRounds
	}
	if c.Game.RoundSeconds <= 0 {
		c.Game.RoundSeconds = domain.DefaultRoundSeconds
	}
	if c.Game.PointsPerRound <= 0 {
		c.Game.PointsPerRound = domain.DefaultPointsPerRound
	}
	if c.Game.PerfectSeconds <= 0 {
		c.Game.PerfectSeconds = domain.DefaultPerfectSeconds
	}
	if c.Game.HistoryLimit <= 0 {
		c.Game.HistoryLimit = 10
	}
	if len(c.Game.Categories) == 0 {
		c.Game.Categories = append([]string(nil), DefaultCategories...)
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format != "json" && c.Log.Format != "console" {
		c.Log.Format = "json"
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
