// Package logger builds the zap loggers used across autosnap.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// ModeProduction logs JSON at info level, suitable for log collectors
	ModeProduction = "production"
	// ModeDevelopment logs colored console output at debug level
	ModeDevelopment = "development"
)

// New creates a logger for the given mode. An empty level keeps the mode's
// default level.
func New(mode, level string) (*zap.Logger, error) {
	var config zap.Config
	switch mode {
	case ModeProduction:
		config = zap.NewProductionConfig()
	case ModeDevelopment, "":
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log mode %q", mode)
	}

	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("error building logger: %w", err)
	}
	return logger, nil
}

// Sync flushes buffered entries, ignoring the error returned for
// unsyncable outputs such as a terminal
func Sync(logger *zap.Logger) {
	if logger != nil {
		_ = logger.Sync()
	}
}

// Region returns a child logger for one AWS region
func Region(logger *zap.Logger, region string) *zap.Logger {
	return logger.With(zap.String("aws_region", region))
}
