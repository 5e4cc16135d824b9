// Package logging builds the zap loggers used throughout ynab-connect:
// human-readable colored console output during development, JSON at info
// level when YNAB_CONNECT_ENV=production.
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger named after the component or account it serves.
func New(name string) *zap.Logger {
	var cfg zap.Config
	if os.Getenv("YNAB_CONNECT_ENV") == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		if isatty.IsTerminal(os.Stderr.Fd()) {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}
	logger := zap.Must(cfg.Build())
	if name != "" {
		logger = logger.Named(name)
	}
	return logger
}
