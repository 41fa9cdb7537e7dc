// Package logger builds the zap logger the CLI hands to every pipeline
// component: colored console output plus an optional rotating file sink.
// Library packages never construct loggers themselves; they accept one
// through their builder options and default to a no-op.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig holds the rotating-file sink configuration.
type FileConfig struct {
	// Path is the log file path; empty disables the file sink.
	Path string

	// MaxSizeMB is the size in megabytes at which the file rotates.
	MaxSizeMB int

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int

	// MaxAgeDays is the age in days after which rotated files are deleted.
	MaxAgeDays int

	// Compress gzips rotated files.
	Compress bool
}

// DefaultFileConfig returns the default rotation settings for a log file.
//
// Parameters:
//   - path: the log file path
//
// Returns:
//   - FileConfig: the default configuration
func DefaultFileConfig(path string) FileConfig {
	return FileConfig{
		Path:       path,
		MaxSizeMB:  25,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Compress:   true,
	}
}

// New builds a logger writing to the console and, when logFile is non-empty,
// to a rotating file with default rotation settings.
//
// Parameters:
//   - level: the minimum level ("debug", "info", "warn", "error")
//   - logFile: the log file path, or "" for console only
//
// Returns:
//   - *zap.Logger: the configured logger
func New(level, logFile string) *zap.Logger {
	if logFile != "" {
		return NewWithFileConfig(level, DefaultFileConfig(logFile), true)
	}
	return NewWithFileConfig(level, FileConfig{}, true)
}

// NewWithFileConfig builds a logger with explicit file rotation settings.
// Set console to false to log to the file alone.
//
// Parameters:
//   - level: the minimum level ("debug", "info", "warn", "error")
//   - fileCfg: the file sink configuration; an empty Path disables it
//   - console: whether to also log to stdout
//
// Returns:
//   - *zap.Logger: the configured logger
func NewWithFileConfig(level string, fileCfg FileConfig, console bool) *zap.Logger {
	lvl := parseLevel(level)

	var cores []zapcore.Core
	if console {
		encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			TimeKey:          "time",
			LevelKey:         "level",
			MessageKey:       "msg",
			EncodeTime:       zapcore.TimeEncoderOfLayout("15:04:05"),
			EncodeLevel:      zapcore.CapitalColorLevelEncoder,
			ConsoleSeparator: " ",
		})
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), lvl))
	}

	if fileCfg.Path != "" {
		writer := &lumberjack.Logger{
			Filename:   fileCfg.Path,
			MaxSize:    fileCfg.MaxSizeMB,
			MaxBackups: fileCfg.MaxBackups,
			MaxAge:     fileCfg.MaxAgeDays,
			Compress:   fileCfg.Compress,
			LocalTime:  true,
		}
		encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			TimeKey:          "time",
			LevelKey:         "level",
			MessageKey:       "msg",
			EncodeTime:       zapcore.ISO8601TimeEncoder,
			EncodeLevel:      zapcore.CapitalLevelEncoder,
			ConsoleSeparator: " ",
		})
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(writer), lvl))
	}

	if len(cores) == 0 {
		return zap.NewNop()
	}
	return zap.New(zapcore.NewTee(cores...))
}

// parseLevel converts a configuration string to a zap level, defaulting to
// info.
func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
