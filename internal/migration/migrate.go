// Package migration creates the billing schema.
package migration

import (
	"gorm.io/gorm"

	auditdomain "github.com/mediflow/billing/internal/audit/domain"
	chargedomain "github.com/mediflow/billing/internal/charge/domain"
	"github.com/mediflow/billing/internal/events"
	inventorydomain "github.com/mediflow/billing/internal/inventory/domain"
	operatordomain "github.com/mediflow/billing/internal/operator/domain"
	prescriptiondomain "github.com/mediflow/billing/internal/prescription/domain"
	registrationdomain "github.com/mediflow/billing/internal/registration/domain"
)

// Models lists every persisted type, in creation order.
func Models() []any {
	return []any{
		&operatordomain.Account{},
		&registrationdomain.Registration{},
		&registrationdomain.StatusHistory{},
		&prescriptiondomain.Prescription{},
		&prescriptiondomain.Item{},
		&inventorydomain.StockItem{},
		&chargedomain.Charge{},
		&chargedomain.ChargeDetail{},
		&events.BillingEvent{},
		&auditdomain.AuditLog{},
	}
}

// AutoMigrate applies the schema. Tests run it against sqlite, the service
// against postgres.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
