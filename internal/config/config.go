// Package config loads runtime settings from the environment and optional
// .env files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds every setting of the task board binary.
type Config struct {
	Addr      string `env:"TASKBOARD_ADDR"       env-default:":8080"`
	DBPath    string `env:"TASKBOARD_DB_PATH"    env-default:"data/taskboard.db"`
	StaticDir string `env:"TASKBOARD_STATIC_DIR"`
	LogLevel  string `env:"TASKBOARD_LOG_LEVEL"  env-default:"info"`

	CORSOrigins []string `env:"TASKBOARD_CORS_ORIGINS" env-separator:","`

	ClientTimeout   time.Duration `env:"TASKBOARD_CLIENT_TIMEOUT"   env-default:"10s"`
	ShutdownTimeout time.Duration `env:"TASKBOARD_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// DefaultEnvFile is read by Load when no files are given.
const DefaultEnvFile = ".env"

// Load reads the given .env files, then the process environment. Missing
// files are skipped and variables already set in the environment win over
// file values.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return errors.New("TASKBOARD_ADDR is empty")
	case strings.TrimSpace(c.DBPath) == "":
		return errors.New("TASKBOARD_DB_PATH is empty")
	case c.ClientTimeout <= 0:
		return fmt.Errorf("TASKBOARD_CLIENT_TIMEOUT must be positive, got %s", c.ClientTimeout)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("TASKBOARD_SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("TASKBOARD_LOG_LEVEL: %w", err)
	}
	return level, nil
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
