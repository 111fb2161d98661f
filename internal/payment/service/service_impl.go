package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/mediflow/billing/internal/audit/domain"
	auditservice "github.com/mediflow/billing/internal/audit/service"
	chargedomain "github.com/mediflow/billing/internal/charge/domain"
	"github.com/mediflow/billing/internal/clock"
	"github.com/mediflow/billing/internal/events"
	"github.com/mediflow/billing/internal/observability/metrics"
	paymentdomain "github.com/mediflow/billing/internal/payment/domain"
	prescriptiondomain "github.com/mediflow/billing/internal/prescription/domain"
	registrationdomain "github.com/mediflow/billing/internal/registration/domain"
)

// amountTolerance absorbs cash rounding at the till: paid and owed may differ
// by at most one cent.
var amountTolerance = decimal.New(1, -2)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	ChargeRepo      chargedomain.Repository
	RegistrationSvc registrationdomain.Service
	Authorizer      paymentdomain.Authorizer
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
	authorizer      paymentdomain.Authorizer
	outbox          *events.Outbox
	auditSvc        auditservice.Service
	metrics         *metrics.BillingMetrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("payment.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		chargeRepo:      p.ChargeRepo,
		registrationSvc: p.RegistrationSvc,
		authorizer:      p.Authorizer,
		outbox:          p.Outbox,
		auditSvc:        p.AuditSvc,
		metrics:         p.Metrics,
	}
}

// Pay collects one charge. The status guard on the UPDATE and the unique
// index on the transaction number arbitrate concurrent attempts; this method
// never trusts its own pre-reads.
func (s *Service) Pay(ctx context.Context, req paymentdomain.PayRequest) (*chargedomain.Charge, error) {
	txNo, err := normalizeTransactionNo(req.Method, req.TransactionNo)
	if err != nil {
		s.metrics.IncPayment(string(req.Method), "rejected")
		return nil, err
	}

	charge, err := s.chargeRepo.FindByID(ctx, s.db, req.ChargeID)
	if err != nil {
		return nil, err
	}

	if replay, ok := replayResult(charge, txNo); ok {
		s.metrics.IncPayment(string(req.Method), "duplicate")
		s.log.Info("payment replayed",
			zap.String("charge_no", charge.ChargeNo),
			zap.String("transaction_no", *txNo),
		)
		return replay, nil
	}
	if charge.Status != chargedomain.StatusUnpaid {
		s.metrics.IncPayment(string(req.Method), "rejected")
		return nil, fmt.Errorf("%w: charge %s is %s", chargedomain.ErrAlreadyPaid, charge.ChargeNo, charge.Status)
	}
	if charge.ActualAmount.Sub(req.PaidAmount).Abs().GreaterThan(amountTolerance) {
		s.metrics.IncPayment(string(req.Method), "rejected")
		return nil, fmt.Errorf("%w: owed %s, tendered %s",
			chargedomain.ErrAmountMismatch, charge.ActualAmount, req.PaidAmount)
	}

	if txNo != nil {
		result, err := s.authorizer.Authorize(ctx, paymentdomain.AuthorizeRequest{
			ChargeNo:      charge.ChargeNo,
			Method:        req.Method,
			TransactionNo: *txNo,
			Amount:        charge.ActualAmount,
		})
		if err != nil {
			s.metrics.IncPayment(string(req.Method), "rejected")
			return nil, err
		}
		if !result.Approved {
			s.metrics.IncPayment(string(req.Method), "rejected")
			return nil, fmt.Errorf("%w: %s", paymentdomain.ErrAuthorizationDeclined, result.Code)
		}
	}

	var (
		paid     *chargedomain.Charge
		replayed bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		update := chargedomain.PaymentUpdate{
			Method:        req.Method,
			TransactionNo: txNo,
			ChargeTime:    now,
			OperatorID:    req.Operator.ID,
			OperatorName:  req.Operator.Name,
		}

		changed, err := s.chargeRepo.MarkPaid(ctx, tx, charge.ID, update)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s", chargedomain.ErrDuplicateTransaction, deref(txNo))
			}
			return err
		}
		if !changed {
			current, err := s.chargeRepo.FindByID(ctx, tx, charge.ID)
			if err != nil {
				return err
			}
			if replay, ok := replayResult(current, txNo); ok {
				paid = replay
				replayed = true
				return nil
			}
			return fmt.Errorf("%w: charge %s is %s", chargedomain.ErrAlreadyPaid, current.ChargeNo, current.Status)
		}

		switch charge.ChargeType {
		case chargedomain.ChargeTypeRegistration:
			err = s.registrationSvc.Transition(ctx, tx,
				charge.RegistrationID, registrationdomain.StatusPaidRegistration,
				req.Operator, "registration fee collected")
		case chargedomain.ChargeTypePrescription:
			err = s.markPrescriptionsPaid(ctx, tx, charge, now)
		}
		if err != nil {
			return err
		}

		payload := events.ChargePaidPayload{
			ChargeID:       charge.ID.String(),
			ChargeNo:       charge.ChargeNo,
			ChargeType:     string(charge.ChargeType),
			RegistrationID: charge.RegistrationID.String(),
			PaymentMethod:  string(req.Method),
			ActualAmount:   charge.ActualAmount.StringFixed(2),
			TransactionNo:  txNo,
		}
		if err := s.outbox.PublishTx(ctx, tx, events.Event{
			Type:      events.EventChargePaid,
			Payload:   payload.ToMap(),
			DedupeKey: events.EventChargePaid + ":" + charge.ChargeNo,
		}); err != nil {
			return err
		}

		paid, err = s.chargeRepo.FindByID(ctx, tx, charge.ID)
		return err
	})
	if err != nil {
		if isPaymentConflict(err) {
			s.metrics.IncPayment(string(req.Method), "conflict")
		}
		return nil, err
	}

	if replayed {
		s.metrics.IncPayment(string(req.Method), "duplicate")
		return paid, nil
	}

	s.metrics.IncPayment(string(req.Method), "success")
	amount, _ := paid.ActualAmount.Float64()
	s.metrics.ObservePaymentAmount(string(req.Method), amount)

	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, auditservice.Entry{
			ActorType:  auditdomain.ActorTypeOperator,
			ActorID:    operatorID(req),
			Action:     auditdomain.ActionChargePaid,
			TargetType: "charge",
			TargetID:   paid.ID.String(),
			Metadata: map[string]any{
				"charge_no":      paid.ChargeNo,
				"charge_type":    string(paid.ChargeType),
				"payment_method": string(req.Method),
				"actual_amount":  paid.ActualAmount.StringFixed(2),
			},
		})
	}

	s.log.Info("charge paid",
		zap.String("charge_no", paid.ChargeNo),
		zap.String("charge_type", string(paid.ChargeType)),
		zap.String("method", string(req.Method)),
		zap.String("amount", paid.ActualAmount.StringFixed(2)),
	)
	return paid, nil
}

// markPrescriptionsPaid flips every prescription on the charge from REVIEWED
// to PAID, guarded by the current status.
func (s *Service) markPrescriptionsPaid(ctx context.Context, tx *gorm.DB, charge *chargedomain.Charge, now time.Time) error {
	for _, detail := range charge.Details {
		if detail.ItemType != chargedomain.ChargeTypePrescription {
			continue
		}

		result := tx.WithContext(ctx).
			Model(&prescriptiondomain.Prescription{}).
			Where("id = ? AND status = ?", detail.ItemID, prescriptiondomain.StatusReviewed).
			Updates(map[string]any{
				"status":     prescriptiondomain.StatusPaid,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			continue
		}

		var current prescriptiondomain.Prescription
		if err := tx.WithContext(ctx).First(&current, "id = ?", detail.ItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", prescriptiondomain.ErrPrescriptionNotFound, detail.ItemID)
			}
			return err
		}
		return fmt.Errorf("%w: %s is %s", prescriptiondomain.ErrUnexpectedStatus, current.ID, current.Status)
	}
	return nil
}

func normalizeTransactionNo(method chargedomain.PaymentMethod, raw *string) (*string, error) {
	if !chargedomain.ValidPaymentMethod(method) {
		return nil, fmt.Errorf("%w: %q", chargedomain.ErrInvalidPaymentMethod, method)
	}

	var txNo string
	if raw != nil {
		txNo = strings.TrimSpace(*raw)
	}
	if method.RequiresTransactionNo() {
		if txNo == "" {
			return nil, fmt.Errorf("%w: method %s", chargedomain.ErrMissingTransactionNo, method)
		}
		return &txNo, nil
	}
	// Cash carries no external reference; drop whatever was sent.
	return nil, nil
}

// replayResult reports whether the charge already holds this exact payment.
func replayResult(charge *chargedomain.Charge, txNo *string) (*chargedomain.Charge, bool) {
	if charge.Status != chargedomain.StatusPaid || txNo == nil {
		return nil, false
	}
	if charge.TransactionNo == nil || *charge.TransactionNo != *txNo {
		return nil, false
	}
	return charge, true
}

func isPaymentConflict(err error) bool {
	return errors.Is(err, chargedomain.ErrDuplicateTransaction) ||
		errors.Is(err, chargedomain.ErrAlreadyPaid) ||
		errors.Is(err, registrationdomain.ErrTransitionConflict) ||
		errors.Is(err, prescriptiondomain.ErrTransitionConflict)
}

func operatorID(req paymentdomain.PayRequest) string {
	if req.Operator.ID == nil {
		return ""
	}
	return req.Operator.ID.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
