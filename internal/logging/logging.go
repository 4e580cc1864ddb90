// Package logging builds the process logger: console output, optionally teed
// into a size-rotated log file.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the optional log file.
const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 5
)

// Config holds logger settings.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Empty means info.
	Level string
	// File, when set, additionally writes logs to this path with rotation.
	File string
}

// NewLogger returns a zap logger writing to stdout and, when configured, a
// rotating log file.
func NewLogger(cfg Config) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	console := zapcore.Lock(os.Stdout)
	core := zapcore.NewCore(encoder, console, level)

	if cfg.File != "" {
		fileSink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
		})
		core = zapcore.NewTee(core, zapcore.NewCore(encoder, fileSink, level))
	}

	return zap.New(core), nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level: %q", level)
	}
}
