// Package domain defines the pharmacy stock collaborator contract used by the
// billing engine.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrStockItemNotFound = errors.New("stock_item_not_found")
	ErrInsufficientStock = errors.New("insufficient_stock")
	ErrStockConflict     = errors.New("stock_version_conflict")
	ErrEmptyPrescription = errors.New("prescription_has_no_items")
)

// StockItem tracks on-hand quantity per medicine. Version guards concurrent
// adjustments optimistically.
type StockItem struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	MedicineCode string       `gorm:"type:text;not null;uniqueIndex"`
	MedicineName string       `gorm:"type:text;not null"`
	Quantity     int64        `gorm:"not null"`
	Version      int64        `gorm:"not null;default:0"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (StockItem) TableName() string { return "stock_items" }

// Service adjusts stock for a prescription's line items. Both operations run
// inside the caller's transaction; neither is idempotent on its own, so the
// billing engine calls each at most once per prescription lifecycle edge.
type Service interface {
	ConsumeForPrescription(ctx context.Context, tx *gorm.DB, prescriptionID snowflake.ID) error
	RestoreInventoryOnly(ctx context.Context, tx *gorm.DB, prescriptionID snowflake.ID) error
}
