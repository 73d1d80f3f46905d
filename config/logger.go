package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. debug overrides the configured level.
func NewLogger(logging Logging, debug bool) (*zap.Logger, error) {
	level := zap.InfoLevel
	if logging.Level != "" {
		if err := level.UnmarshalText([]byte(logging.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", logging.Level, err)
		}
	}
	if debug {
		level = zap.DebugLevel
	}

	var encoderConfig zapcore.EncoderConfig
	switch logging.Format {
	case "console", "":
		logging.Format = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	case "json":
		encoderConfig = zap.NewProductionEncoderConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q: must be \"json\" or \"console\"", logging.Format)
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         logging.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return zapConfig.Build()
}
