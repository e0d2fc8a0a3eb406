// Package config provides configuration loading for leetrack.
//
// Configuration precedence (highest to lowest):
//  1. Command-line flags
//  2. Environment variables (LEETRACK_ prefix, __ as the nesting separator,
//     e.g. LEETRACK_SERVER__ADDR -> server.addr)
//  3. YAML config file
//  4. Hardcoded defaults
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/leetrack/internal/schedule"
)

const envPrefix = "LEETRACK_"

// Config holds the complete leetrack configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	DB        DBConfig        `koanf:"db"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Sync      SyncConfig      `koanf:"sync"`
	Log       LogConfig       `koanf:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DBConfig holds sqlite configuration.
type DBConfig struct {
	Path string `koanf:"path"`
}

// SchedulerConfig selects the interval policy used when a question is
// marked solved. Valid policies: "weeks", "solve-count".
type SchedulerConfig struct {
	Policy string `koanf:"policy"`
}

// SyncConfig holds question-list import configuration. Sources are local
// directories or git URLs.
type SyncConfig struct {
	Sources  []string `koanf:"sources"`
	ReposDir string   `koanf:"repos_dir"`
}

// LogConfig holds logging configuration. Level is one of debug, info,
// warn, error.
type LogConfig struct {
	Level string `koanf:"level"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		DB:        DBConfig{Path: "leetrack.db"},
		Scheduler: SchedulerConfig{Policy: schedule.PolicyWeeks},
		Sync:      SyncConfig{ReposDir: "repos"},
		Log:       LogConfig{Level: "info"},
	}
}

// Load builds the configuration from the YAML file at path (skipped when
// empty or missing), environment variables and the given flag set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	// LEETRACK_SERVER__ADDR -> server.addr
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if flags != nil {
		// Passing k makes posflag skip unchanged flags whose keys are
		// already set by the file or the environment.
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if _, err := schedule.PolicyFromName(cfg.Scheduler.Policy); err != nil {
		return nil, err
	}
	return &cfg, nil
}
