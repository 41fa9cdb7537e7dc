package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("info"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("app.log")
	assert.Equal(t, "app.log", cfg.Path)
	assert.Equal(t, 25, cfg.MaxSizeMB)
	assert.Equal(t, 3, cfg.MaxBackups)
	assert.Equal(t, 7, cfg.MaxAgeDays)
	assert.True(t, cfg.Compress)
}

func TestNewConsoleOnly(t *testing.T) {
	log := New("info", "")
	require.NotNil(t, log)
	log.Info("console message")
	// Sync on stdout can fail with EINVAL depending on the terminal, so its
	// error is not asserted.
	_ = log.Sync()
}

func TestNewWithFileConfigWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	log := NewWithFileConfig("debug", DefaultFileConfig(path), false)
	require.NotNil(t, log)

	log.Info("file message")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file message")
	assert.Contains(t, string(data), "INFO")
}

func TestNewWithFileConfigLevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	log := NewWithFileConfig("warn", DefaultFileConfig(path), false)

	log.Info("dropped")
	log.Warn("kept")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestNewWithFileConfigNoSinks(t *testing.T) {
	log := NewWithFileConfig("info", FileConfig{}, false)
	require.NotNil(t, log)
	log.Info("discarded")
}
