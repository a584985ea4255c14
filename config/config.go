package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/INLOpen/archiv/core"
	"github.com/INLOpen/archiv/trainer"
	units "github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

// CodecConfig holds archive writer/reader configurations.
type CodecConfig struct {
	Level       int    `yaml:"level"`
	Mode        string `yaml:"mode"`          // "plain" or "item"
	Dictionary  string `yaml:"dictionary"`    // Path to a dictionary blob, empty for none
	Prepared    bool   `yaml:"prepared"`      // Digest the dictionary once and reuse it
	MaxItemSize string `yaml:"max_item_size"` // e.g. "2GiB", "512MiB"
	Outer       string `yaml:"outer"`         // Outer layer added by pack: none, zstd, gzip, lz4, snappy
}

// TrainConfig holds dictionary training configurations.
type TrainConfig struct {
	Limit    int    `yaml:"limit"`
	DictSize int    `yaml:"dict_size"`
	Strategy string `yaml:"strategy"` // "accumulator" or "reservoir"
	Seed     uint64 `yaml:"seed"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // e.g., "debug", "info", "warn", "error"
	Output string `yaml:"output"` // e.g., "stderr", "file", "none"
	File   string `yaml:"file"`   // Path to the log file, used if output is "file"
}

// TracingConfig holds configuration for exporting trainer spans.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"` // e.g., "localhost:4317" for gRPC OTLP collector
	Protocol string `yaml:"protocol"` // "grpc" or "http"
}

// Config is the top-level configuration struct.
type Config struct {
	Codec   CodecConfig   `yaml:"codec"`
	Train   TrainConfig   `yaml:"train"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Codec: CodecConfig{
			Level:       core.DefaultCompressionLevel,
			Mode:        "plain",
			MaxItemSize: "2GiB",
			Outer:       "none",
		},
		Train: TrainConfig{
			Limit:    core.DefaultSampleLimit,
			DictSize: core.DefaultDictSize,
			Strategy: "accumulator",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			File:   "archiv.log",
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
			Protocol: "grpc",
		},
	}
}

// Load reads configuration from an io.Reader over the defaults.
// This is the core logic, separated for testability.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()

	// If the reader is nil, it's like an empty file, return defaults.
	if r == nil {
		return cfg, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config data: %w", err)
	}
	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads configuration from a YAML file by path. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Load(nil)
		}
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	return Load(file)
}

// Validate checks values that cannot be expressed by the YAML types alone.
func (c *Config) Validate() error {
	if c.Codec.Level < 0 || c.Codec.Level > 22 {
		return fmt.Errorf("codec.level must be between 0 and 22, got %d", c.Codec.Level)
	}
	if _, err := c.Kind(); err != nil {
		return fmt.Errorf("codec.mode: %w", err)
	}
	if _, err := c.OuterCompression(); err != nil {
		return fmt.Errorf("codec.outer: %w", err)
	}
	if _, err := c.MaxItemSizeBytes(); err != nil {
		return fmt.Errorf("codec.max_item_size: %w", err)
	}
	if c.Train.Limit <= 0 {
		return fmt.Errorf("train.limit must be positive, got %d", c.Train.Limit)
	}
	if c.Train.DictSize <= 0 {
		return fmt.Errorf("train.dict_size must be positive, got %d", c.Train.DictSize)
	}
	if _, err := trainer.ParseStrategy(c.Train.Strategy); err != nil {
		return fmt.Errorf("train.strategy: %w", err)
	}
	if c.Tracing.Enabled {
		switch strings.ToLower(c.Tracing.Protocol) {
		case "grpc", "http":
		default:
			return fmt.Errorf("tracing.protocol: unsupported protocol %q", c.Tracing.Protocol)
		}
		if c.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
		}
	}
	return nil
}

// Kind returns the configured archive layout.
func (c *Config) Kind() (core.Kind, error) {
	return core.ParseKind(c.Codec.Mode)
}

// OuterCompression returns the configured outer layer for pack.
func (c *Config) OuterCompression() (core.CompressionType, error) {
	return core.ParseCompressionType(c.Codec.Outer)
}

// MaxItemSizeBytes parses the item ceiling, which must stay below the
// archive's reserved length range.
func (c *Config) MaxItemSizeBytes() (uint64, error) {
	if c.Codec.MaxItemSize == "" {
		return core.DefaultMaxItemSize, nil
	}
	n, err := units.RAMInBytes(c.Codec.MaxItemSize)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %q", c.Codec.MaxItemSize)
	}
	if uint64(n) >= core.AbsoluteMaxItemSize {
		return 0, fmt.Errorf("%q is not below the reserved length range", c.Codec.MaxItemSize)
	}
	return uint64(n), nil
}

// Strategy returns the configured sampling strategy.
func (c *Config) Strategy() (trainer.Strategy, error) {
	return trainer.ParseStrategy(c.Train.Strategy)
}
