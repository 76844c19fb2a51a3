// Package logger builds the process-wide zap logger.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns an info-level JSON logger writing to stderr and, when
// logFilePath is set, appending to that file as well.
func NewLogger(logFilePath string) (*zap.Logger, error) {
	return NewLevelLogger(logFilePath, "info")
}

// NewLevelLogger is NewLogger with an explicit minimum level, for example
// "debug" to see every window hand-off.
func NewLevelLogger(logFilePath, level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	if logFilePath != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, logFilePath)
	}
	return cfg.Build()
}
