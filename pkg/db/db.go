// Package db opens the relational store for the billing service.
package db

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mediflow/billing/internal/config"
)

// Open connects to Postgres. TranslateError keeps unique-constraint failures
// observable as gorm.ErrDuplicatedKey, which the payment processor relies on.
func Open(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	log.Info("database connected")
	return conn, nil
}

// Module provides *gorm.DB and closes the pool on shutdown.
var Module = fx.Module("db",
	fx.Provide(Open),
	fx.Invoke(func(lc fx.Lifecycle, conn *gorm.DB, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				log.Info("closing database pool")
				return sqlDB.Close()
			},
		})
	}),
)
