package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/INLOpen/archiv/core"
	"github.com/INLOpen/archiv/trainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	yamlContent := `
codec:
  level: 19
  mode: item
  dictionary: "/tmp/docs.dict"
  prepared: true
  max_item_size: 512MiB
  outer: gzip
train:
  limit: 500
  strategy: reservoir
  seed: 42
logging:
  level: debug
tracing:
  enabled: true
  protocol: http
  endpoint: collector:4318
`
	cfg, err := Load(strings.NewReader(yamlContent))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Check overridden values
	assert.Equal(t, 19, cfg.Codec.Level)
	assert.Equal(t, "/tmp/docs.dict", cfg.Codec.Dictionary)
	assert.True(t, cfg.Codec.Prepared)
	assert.Equal(t, 500, cfg.Train.Limit)
	assert.Equal(t, uint64(42), cfg.Train.Seed)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "collector:4318", cfg.Tracing.Endpoint)

	kind, err := cfg.Kind()
	require.NoError(t, err)
	assert.Equal(t, core.KindItemCompressed, kind)
	outer, err := cfg.OuterCompression()
	require.NoError(t, err)
	assert.Equal(t, core.CompressionGzip, outer)
	size, err := cfg.MaxItemSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(512*1024*1024), size)
	strategy, err := cfg.Strategy()
	require.NoError(t, err)
	assert.Equal(t, trainer.StrategyReservoir, strategy)

	// Check a default value that was not overridden
	assert.Equal(t, core.DefaultDictSize, cfg.Train.DictSize)
	assert.Equal(t, "stderr", cfg.Logging.Output)
}

func TestLoad_EmptyReader(t *testing.T) {
	for name, cfgFn := range map[string]func() (*Config, error){
		"nil reader":   func() (*Config, error) { return Load(nil) },
		"empty string": func() (*Config, error) { return Load(strings.NewReader("")) },
	} {
		t.Run(name, func(t *testing.T) {
			cfg, err := cfgFn()
			require.NoError(t, err)
			assert.Equal(t, Default(), cfg)
			require.NoError(t, cfg.Validate())

			kind, _ := cfg.Kind()
			assert.Equal(t, core.KindPlain, kind)
			size, err := cfg.MaxItemSizeBytes()
			require.NoError(t, err)
			assert.Equal(t, core.DefaultMaxItemSize, size)
			assert.Equal(t, core.DefaultSampleLimit, cfg.Train.Limit)
			assert.Equal(t, core.DefaultCompressionLevel, cfg.Codec.Level)
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	yamlContent := `
codec:
  level: 3
  this: is: invalid: yaml
`
	_, err := Load(strings.NewReader(yamlContent))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal config yaml")
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"level too high", func(c *Config) { c.Codec.Level = 23 }, "codec.level"},
		{"negative level", func(c *Config) { c.Codec.Level = -1 }, "codec.level"},
		{"unknown mode", func(c *Config) { c.Codec.Mode = "zip" }, "codec.mode"},
		{"unknown outer", func(c *Config) { c.Codec.Outer = "brotli" }, "codec.outer"},
		{"bad size", func(c *Config) { c.Codec.MaxItemSize = "lots" }, "codec.max_item_size"},
		{"zero size", func(c *Config) { c.Codec.MaxItemSize = "0" }, "codec.max_item_size"},
		{"zero limit", func(c *Config) { c.Train.Limit = 0 }, "train.limit"},
		{"negative dict size", func(c *Config) { c.Train.DictSize = -1 }, "train.dict_size"},
		{"unknown strategy", func(c *Config) { c.Train.Strategy = "random" }, "train.strategy"},
		{"tracing protocol", func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Protocol = "udp" }, "tracing.protocol"},
		{"tracing endpoint", func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Endpoint = "" }, "tracing.endpoint"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}

	t.Run("disabled tracing is not checked", func(t *testing.T) {
		cfg := Default()
		cfg.Tracing.Protocol = "udp"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Load validates", func(t *testing.T) {
		_, err := Load(strings.NewReader("train:\n  limit: -3\n"))
		assert.ErrorContains(t, err, "train.limit")
	})
}

func TestLoadConfig_FileIntegration(t *testing.T) {
	t.Run("FileExists", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("codec:\n  mode: item\n"), 0644))

		cfg, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, "item", cfg.Codec.Mode)
	})

	t.Run("FileDoesNotExist", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "non_existent_config.yaml"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})
}
