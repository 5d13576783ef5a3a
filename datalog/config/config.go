// Package config loads engine configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wbrown/spanlog/datalog/executor"
	"github.com/wbrown/spanlog/datalog/storage"
)

// Config is the complete engine configuration
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
	Engine EngineConfig `yaml:"engine"`
}

// StoreConfig selects the backing store
type StoreConfig struct {
	Backend string `yaml:"backend"` // memory, badger or sqlite
	Path    string `yaml:"path"`    // empty keeps badger and sqlite in memory
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// EngineConfig tunes evaluation
type EngineConfig struct {
	MaxIterations          int  `yaml:"max_iterations"`
	ParallelClauses        bool `yaml:"parallel_clauses"`
	Workers                int  `yaml:"workers"`
	RemoveUselessRelations bool `yaml:"remove_useless_relations"`
	PruneProjectNodes      bool `yaml:"prune_project_nodes"`
}

// Default returns an in-memory, sequential configuration with both plan
// optimizations enabled
func Default() *Config {
	return &Config{
		Store: StoreConfig{Backend: string(storage.BackendMemory)},
		Log:   LogConfig{Level: "info"},
		Engine: EngineConfig{
			RemoveUselessRelations: true,
			PruneProjectNodes:      true,
		},
	}
}

// Load reads a YAML file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown backends, unknown log levels and negative limits
func (c *Config) Validate() error {
	switch storage.Backend(strings.ToLower(c.Store.Backend)) {
	case storage.BackendMemory, storage.BackendBadger, storage.BackendSQLite, "":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	if c.Engine.MaxIterations < 0 {
		return fmt.Errorf("engine.max_iterations must not be negative, got %d", c.Engine.MaxIterations)
	}
	if c.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must not be negative, got %d", c.Engine.Workers)
	}
	return nil
}

func (c *Config) level() (zapcore.Level, error) {
	if c.Log.Level == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

// Logger builds the configured zap logger: a development logger writing
// to stderr, or a production JSON logger
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}
	var z zap.Config
	if c.Log.Development {
		z = zap.NewDevelopmentConfig()
	} else {
		z = zap.NewProductionConfig()
	}
	z.Level = zap.NewAtomicLevelAt(level)
	z.OutputPaths = []string{"stderr"}
	logger, err := z.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// OpenStore opens the configured backing store
func (c *Config) OpenStore() (storage.Store, error) {
	return storage.Open(storage.Backend(strings.ToLower(c.Store.Backend)), c.Store.Path)
}

// ExecutorOptions returns the engine subset of the configuration
func (c *Config) ExecutorOptions(logger *zap.Logger) executor.Options {
	opts := executor.DefaultOptions()
	if logger != nil {
		opts.Logger = logger
	}
	opts.MaxIterations = c.Engine.MaxIterations
	opts.ParallelClauses = c.Engine.ParallelClauses
	if c.Engine.Workers > 0 {
		opts.Workers = c.Engine.Workers
	}
	return opts
}
