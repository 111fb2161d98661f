package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mediflow/billing/internal/clock"
	inventorydomain "github.com/mediflow/billing/internal/inventory/domain"
	prescriptiondomain "github.com/mediflow/billing/internal/prescription/domain"
)

// adjustAttempts bounds optimistic retries per line item before the stock
// conflict is surfaced to the caller.
const adjustAttempts = 3

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func NewService(p Params) inventorydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("inventory.service"),
		clock: p.Clock,
	}
}

func (s *Service) ConsumeForPrescription(ctx context.Context, tx *gorm.DB, prescriptionID snowflake.ID) error {
	return s.adjustForPrescription(ctx, tx, prescriptionID, -1)
}

func (s *Service) RestoreInventoryOnly(ctx context.Context, tx *gorm.DB, prescriptionID snowflake.ID) error {
	return s.adjustForPrescription(ctx, tx, prescriptionID, +1)
}

func (s *Service) adjustForPrescription(ctx context.Context, tx *gorm.DB, prescriptionID snowflake.ID, sign int64) error {
	if tx == nil {
		tx = s.db
	}

	var items []prescriptiondomain.Item
	if err := tx.WithContext(ctx).
		Where("prescription_id = ?", prescriptionID).
		Order("id").
		Find(&items).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: %s", inventorydomain.ErrEmptyPrescription, prescriptionID)
	}

	for _, item := range items {
		if err := s.adjustStock(ctx, tx, item.StockItemID, sign*item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) adjustStock(ctx context.Context, tx *gorm.DB, stockItemID snowflake.ID, delta int64) error {
	for attempt := 0; attempt < adjustAttempts; attempt++ {
		applied, err := s.adjustStockOnce(ctx, tx, stockItemID, delta)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
	}
	return fmt.Errorf("%w: stock item %s", inventorydomain.ErrStockConflict, stockItemID)
}

// adjustStockOnce performs one optimistic read-check-update round. A false
// return means the version moved underneath us and the round should be retried.
func (s *Service) adjustStockOnce(ctx context.Context, tx *gorm.DB, stockItemID snowflake.ID, delta int64) (bool, error) {
	var item inventorydomain.StockItem
	if err := tx.WithContext(ctx).First(&item, "id = ?", stockItemID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, fmt.Errorf("%w: %s", inventorydomain.ErrStockItemNotFound, stockItemID)
		}
		return false, err
	}

	next := item.Quantity + delta
	if next < 0 {
		return false, fmt.Errorf("%w: %s has %d, need %d", inventorydomain.ErrInsufficientStock, item.MedicineCode, item.Quantity, -delta)
	}

	result := tx.WithContext(ctx).
		Model(&inventorydomain.StockItem{}).
		Where("id = ? AND version = ?", item.ID, item.Version).
		Updates(map[string]any{
			"quantity":   next,
			"version":    item.Version + 1,
			"updated_at": s.clock.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		s.log.Warn("stock version conflict, retrying",
			zap.String("stock_item_id", item.ID.String()),
			zap.Int64("version", item.Version),
		)
		return false, nil
	}
	return true, nil
}
