// Package logging builds the process-wide zap logger.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger for the given level ("debug", "info", "warn", "error")
// and format ("console" or "json"). An empty or invalid level falls back to
// info, which keeps CLI startup working with a half-written config file.
func New(level, format string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.Encoding = "console"
	}

	if level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build()
}
