// Package logging builds the zap logger shared by every briefer component.
package logging

import (
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/briefer/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a logger from the log section of the settings document.
// outputs replaces the default stderr sink, e.g. a file while the terminal
// menu owns the screen.
func New(cfg config.LogConfig, outputs ...string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	var zc zap.Config
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		zc = zap.NewProductionConfig()
	case "", "console":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("log.format must be console or json, got %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}
	zc.OutputPaths = outputs
	zc.ErrorOutputPaths = outputs
	return zc.Build()
}
