// Package log constructs the zap loggers used throughout the streamer.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-style zap logger. debug enables development
// encoding (console, caller, stack traces on warn+) for local runs.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	return cfg.Build()
}

// Noop returns a logger that discards everything, for tests that don't
// care about log output but still need to satisfy the constructor signature.
func Noop() *zap.Logger {
	return zap.NewNop()
}
