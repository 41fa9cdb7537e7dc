package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 2048, cfg.Atlas.MaxSize)
	assert.Equal(t, 4096, cfg.Atlas.Ceiling)
	assert.Equal(t, 2, cfg.Atlas.Padding)
	assert.Equal(t, 4, cfg.Atlas.MaxBins)
	assert.False(t, cfg.Atlas.SingleBin)
	assert.Empty(t, cfg.Atlas.Channels)

	assert.Equal(t, "png", cfg.Output.Format)
	assert.Equal(t, 90, cfg.Output.Quality)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.LogFile)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
atlas:
  max_size: 4096
  ceiling: 8192
  padding: 4
  single_bin: true
  channels: [baseColor, normal]
output:
  format: jpeg
  quality: 75
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, path))

	assert.Equal(t, 4096, cfg.Atlas.MaxSize)
	assert.Equal(t, 8192, cfg.Atlas.Ceiling)
	assert.Equal(t, 4, cfg.Atlas.Padding)
	assert.True(t, cfg.Atlas.SingleBin)
	assert.Equal(t, []string{"baseColor", "normal"}, cfg.Atlas.Channels)
	assert.Equal(t, "jpeg", cfg.Output.Format)
	assert.Equal(t, 75, cfg.Output.Quality)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched keys keep their defaults.
	assert.Equal(t, 4, cfg.Atlas.MaxBins)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("atlas: ["), 0644))

	cfg := Default()
	assert.Error(t, loadFromFile(cfg, path))
}

func TestSplitChannels(t *testing.T) {
	assert.Equal(t, []string{"baseColor", "normal"}, splitChannels("baseColor, normal"))
	assert.Equal(t, []string{"emissive"}, splitChannels("emissive,"))
	assert.Nil(t, splitChannels(""))
}
