// Package logger provides the application zap logger.
package logger

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mediflow/billing/internal/config"
)

// New builds the root logger for the configured environment.
func New(cfg config.Config) (*zap.Logger, error) {
	var log *zap.Logger
	var err error
	if cfg.IsProduction() {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return log, nil
}

// Module provides the root *zap.Logger.
var Module = fx.Module("logger",
	fx.Provide(New),
)
