package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/mediflow/billing/internal/audit/domain"
	auditservice "github.com/mediflow/billing/internal/audit/service"
	chargedomain "github.com/mediflow/billing/internal/charge/domain"
	"github.com/mediflow/billing/internal/clock"
	"github.com/mediflow/billing/internal/events"
	inventorydomain "github.com/mediflow/billing/internal/inventory/domain"
	"github.com/mediflow/billing/internal/observability/metrics"
	prescriptiondomain "github.com/mediflow/billing/internal/prescription/domain"
	refunddomain "github.com/mediflow/billing/internal/refund/domain"
	registrationdomain "github.com/mediflow/billing/internal/registration/domain"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	ChargeRepo      chargedomain.Repository
	RegistrationSvc registrationdomain.Service
	InventorySvc    inventorydomain.Service
	Outbox          *events.Outbox
	AuditSvc        auditservice.Service    `optional:"true"`
	Metrics         *metrics.BillingMetrics `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	chargeRepo      chargedomain.Repository
	registrationSvc registrationdomain.Service
	inventorySvc    inventorydomain.Service
	outbox          *events.Outbox
	auditSvc        auditservice.Service
	metrics         *metrics.BillingMetrics
}

func NewService(p Params) refunddomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("refund.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		chargeRepo:      p.ChargeRepo,
		registrationSvc: p.RegistrationSvc,
		inventorySvc:    p.InventorySvc,
		outbox:          p.Outbox,
		auditSvc:        p.AuditSvc,
		metrics:         p.Metrics,
	}
}

// Refund returns the full amount of a PAID charge. The money flip, the
// clinical state reverts, and any stock restoration commit together or not
// at all.
func (s *Service) Refund(ctx context.Context, req refunddomain.RefundRequest) (*chargedomain.Charge, error) {
	var refunded *chargedomain.Charge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		charge, err := s.chargeRepo.FindByID(ctx, tx, req.ChargeID)
		if err != nil {
			return err
		}
		if charge.Status != chargedomain.StatusPaid {
			return fmt.Errorf("%w: charge %s is %s", chargedomain.ErrNotPaid, charge.ChargeNo, charge.Status)
		}

		now := s.clock.Now()
		changed, err := s.chargeRepo.MarkRefunded(ctx, tx, charge.ID, chargedomain.RefundUpdate{
			RefundAmount: charge.ActualAmount,
			RefundTime:   now,
			RefundReason: req.Reason,
		})
		if err != nil {
			return err
		}
		if !changed {
			current, err := s.chargeRepo.FindByID(ctx, tx, charge.ID)
			if err != nil {
				return err
			}
			return fmt.Errorf("%w: charge %s is %s", chargedomain.ErrNotPaid, current.ChargeNo, current.Status)
		}

		switch charge.ChargeType {
		case chargedomain.ChargeTypeRegistration:
			err = s.registrationSvc.Transition(ctx, tx,
				charge.RegistrationID, registrationdomain.StatusRefunded,
				req.Operator, req.Reason)
		case chargedomain.ChargeTypePrescription:
			err = s.revertPrescriptions(ctx, tx, charge, now)
		}
		if err != nil {
			return err
		}

		payload := events.ChargeRefundedPayload{
			ChargeID:       charge.ID.String(),
			ChargeNo:       charge.ChargeNo,
			ChargeType:     string(charge.ChargeType),
			RegistrationID: charge.RegistrationID.String(),
			RefundAmount:   charge.ActualAmount.StringFixed(2),
			RefundReason:   req.Reason,
		}
		if err := s.outbox.PublishTx(ctx, tx, events.Event{
			Type:      events.EventChargeRefunded,
			Payload:   payload.ToMap(),
			DedupeKey: events.EventChargeRefunded + ":" + charge.ChargeNo,
		}); err != nil {
			return err
		}

		refunded, err = s.chargeRepo.FindByID(ctx, tx, charge.ID)
		return err
	})
	if err != nil {
		s.metrics.IncRefund("rejected")
		return nil, err
	}

	s.metrics.IncRefund("success")
	amount, _ := refunded.ActualAmount.Float64()
	s.metrics.ObserveRefundAmount(amount)

	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, auditservice.Entry{
			ActorType:  auditdomain.ActorTypeOperator,
			ActorID:    operatorID(req),
			Action:     auditdomain.ActionChargeRefunded,
			TargetType: "charge",
			TargetID:   refunded.ID.String(),
			Metadata: map[string]any{
				"charge_no":     refunded.ChargeNo,
				"charge_type":   string(refunded.ChargeType),
				"refund_amount": refunded.ActualAmount.StringFixed(2),
				"refund_reason": req.Reason,
			},
		})
	}

	s.log.Info("charge refunded",
		zap.String("charge_no", refunded.ChargeNo),
		zap.String("charge_type", string(refunded.ChargeType)),
		zap.String("amount", refunded.ActualAmount.StringFixed(2)),
	)
	return refunded, nil
}

// revertPrescriptions undoes payment per prescription based on where each
// one stands. A paid but undispensed prescription goes back to REVIEWED and
// its stock is untouched. A dispensed one becomes REFUNDED and its medicines
// return to the shelf. Anything else means the pharmacy moved the order in a
// way billing cannot reconcile, so the whole refund fails.
func (s *Service) revertPrescriptions(ctx context.Context, tx *gorm.DB, charge *chargedomain.Charge, now time.Time) error {
	for _, detail := range charge.Details {
		if detail.ItemType != chargedomain.ChargeTypePrescription {
			continue
		}

		var prescription prescriptiondomain.Prescription
		if err := tx.WithContext(ctx).First(&prescription, "id = ?", detail.ItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", prescriptiondomain.ErrPrescriptionNotFound, detail.ItemID)
			}
			return err
		}

		switch prescription.Status {
		case prescriptiondomain.StatusPaid:
			if err := s.flipPrescription(ctx, tx, prescription.ID,
				prescriptiondomain.StatusPaid, prescriptiondomain.StatusReviewed, now); err != nil {
				return err
			}
		case prescriptiondomain.StatusDispensed:
			if err := s.flipPrescription(ctx, tx, prescription.ID,
				prescriptiondomain.StatusDispensed, prescriptiondomain.StatusRefunded, now); err != nil {
				return err
			}
			if err := s.inventorySvc.RestoreInventoryOnly(ctx, tx, prescription.ID); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s is %s", prescriptiondomain.ErrUnexpectedStatus,
				prescription.ID, prescription.Status)
		}
	}
	return nil
}

func (s *Service) flipPrescription(ctx context.Context, tx *gorm.DB, id snowflake.ID, from, to prescriptiondomain.Status, now time.Time) error {
	result := tx.WithContext(ctx).
		Model(&prescriptiondomain.Prescription{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", prescriptiondomain.ErrTransitionConflict, id)
	}
	return nil
}

func operatorID(req refunddomain.RefundRequest) string {
	if req.Operator.ID == nil {
		return ""
	}
	return req.Operator.ID.String()
}
