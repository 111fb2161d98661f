package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mediflow/billing/internal/clock"
	"github.com/mediflow/billing/internal/events"
	inventorydomain "github.com/mediflow/billing/internal/inventory/domain"
	operatordomain "github.com/mediflow/billing/internal/operator/domain"
	pharmacydomain "github.com/mediflow/billing/internal/pharmacy/domain"
	prescriptiondomain "github.com/mediflow/billing/internal/prescription/domain"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	InventorySvc inventorydomain.Service
	Outbox       *events.Outbox `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	inventorySvc inventorydomain.Service
	outbox       *events.Outbox
}

func NewService(p Params) pharmacydomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("pharmacy.service"),
		clock:        p.Clock,
		inventorySvc: p.InventorySvc,
		outbox:       p.Outbox,
	}
}

// Dispense moves a PAID prescription to DISPENSED and consumes stock for every
// line item. The status flip and the stock decrement share one transaction so
// a stock shortage leaves the prescription payable-refundable, not half-served.
func (s *Service) Dispense(ctx context.Context, prescriptionID snowflake.ID, op operatordomain.Operator) (*prescriptiondomain.Prescription, error) {
	var record prescriptiondomain.Prescription

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).First(&record, "id = ?", prescriptionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return prescriptiondomain.ErrPrescriptionNotFound
			}
			return err
		}
		if record.Status != prescriptiondomain.StatusPaid {
			return fmt.Errorf("%w: %s is %s", pharmacydomain.ErrNotPaid, prescriptionID, record.Status)
		}

		now := s.clock.Now()
		result := tx.WithContext(ctx).
			Model(&prescriptiondomain.Prescription{}).
			Where("id = ? AND status = ?", prescriptionID, prescriptiondomain.StatusPaid).
			Updates(map[string]any{
				"status":       prescriptiondomain.StatusDispensed,
				"dispensed_at": now,
				"updated_at":   now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", prescriptiondomain.ErrTransitionConflict, prescriptionID)
		}

		if err := s.inventorySvc.ConsumeForPrescription(ctx, tx, prescriptionID); err != nil {
			return err
		}

		if s.outbox != nil {
			err := s.outbox.PublishTx(ctx, tx, events.Event{
				Type: events.EventPrescriptionDispensed,
				Payload: map[string]any{
					"prescription_id": prescriptionID.String(),
					"prescription_no": record.PrescriptionNo,
					"registration_id": record.RegistrationID.String(),
				},
				DedupeKey: events.EventPrescriptionDispensed + ":" + record.PrescriptionNo,
			})
			if err != nil {
				return err
			}
		}

		record.Status = prescriptiondomain.StatusDispensed
		record.DispensedAt = &now
		record.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("prescription dispensed",
		zap.String("prescription_id", prescriptionID.String()),
		zap.String("operator", op.Name),
	)
	return &record, nil
}
