package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/mediflow/billing/internal/audit"
	"github.com/mediflow/billing/internal/charge"
	"github.com/mediflow/billing/internal/clock"
	"github.com/mediflow/billing/internal/config"
	"github.com/mediflow/billing/internal/events"
	"github.com/mediflow/billing/internal/inventory"
	"github.com/mediflow/billing/internal/logger"
	"github.com/mediflow/billing/internal/migration"
	"github.com/mediflow/billing/internal/observability"
	"github.com/mediflow/billing/internal/payment"
	"github.com/mediflow/billing/internal/pharmacy"
	"github.com/mediflow/billing/internal/refund"
	"github.com/mediflow/billing/internal/registration"
	"github.com/mediflow/billing/internal/seed"
	"github.com/mediflow/billing/internal/server"
	"github.com/mediflow/billing/internal/settlement"
	"github.com/mediflow/billing/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		fx.Invoke(func(conn *gorm.DB, node *snowflake.Node) error {
			if err := migration.AutoMigrate(conn); err != nil {
				return err
			}
			return seed.EnsureDefaultOperator(conn, node)
		}),

		events.Module,
		audit.Module,
		registration.Module,
		inventory.Module,
		pharmacy.Module,
		charge.Module,
		payment.Module,
		refund.Module,
		settlement.Module,

		server.Module,
	)
	app.Run()
}

func registerSnowflake(cfg config.Config) *snowflake.Node {
	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		panic(err)
	}
	return node
}
