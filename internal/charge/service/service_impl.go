package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	chargedomain "github.com/mediflow/billing/internal/charge/domain"
	"github.com/mediflow/billing/internal/clock"
	"github.com/mediflow/billing/internal/observability/metrics"
	prescriptiondomain "github.com/mediflow/billing/internal/prescription/domain"
	registrationdomain "github.com/mediflow/billing/internal/registration/domain"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    chargedomain.Repository
	Metrics *metrics.BillingMetrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    chargedomain.Repository
	metrics *metrics.BillingMetrics
}

func NewService(p Params) chargedomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("charge.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) CreateRegistrationCharge(ctx context.Context, registrationID snowflake.ID) (*chargedomain.Charge, error) {
	var charge *chargedomain.Charge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.createRegistrationChargeTx(ctx, tx, registrationID)
		if err != nil {
			return err
		}
		charge = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncChargeCreated(string(chargedomain.ChargeTypeRegistration))
	return charge, nil
}

func (s *Service) CreatePrescriptionCharge(ctx context.Context, registrationID snowflake.ID, prescriptionIDs []snowflake.ID) (*chargedomain.Charge, error) {
	var charge *chargedomain.Charge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.createPrescriptionChargeTx(ctx, tx, registrationID, prescriptionIDs)
		if err != nil {
			return err
		}
		charge = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncChargeCreated(string(chargedomain.ChargeTypePrescription))
	return charge, nil
}

// CreateCombinedCharge keeps the legacy one-call flow: the registration fee
// plus any reviewed prescriptions, still one charge per purpose underneath.
// An already charged or paid fee is skipped so prescription billing is never
// blocked by a settled visit.
func (s *Service) CreateCombinedCharge(ctx context.Context, registrationID snowflake.ID, prescriptionIDs []snowflake.ID) ([]*chargedomain.Charge, error) {
	var charges []*chargedomain.Charge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		charges = charges[:0]

		registrationCharge, err := s.createRegistrationChargeTx(ctx, tx, registrationID)
		switch {
		case err == nil:
			charges = append(charges, registrationCharge)
		case errors.Is(err, chargedomain.ErrAlreadyCharged):
			// Fee already billed or collected; prescriptions may still proceed.
		default:
			return err
		}

		if len(prescriptionIDs) > 0 {
			prescriptionCharge, err := s.createPrescriptionChargeTx(ctx, tx, registrationID, prescriptionIDs)
			if err != nil {
				return err
			}
			charges = append(charges, prescriptionCharge)
		}

		if len(charges) == 0 {
			return chargedomain.ErrNothingToCharge
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, charge := range charges {
		s.metrics.IncChargeCreated(string(charge.ChargeType))
	}
	return charges, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*chargedomain.Charge, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *Service) createRegistrationChargeTx(ctx context.Context, tx *gorm.DB, registrationID snowflake.ID) (*chargedomain.Charge, error) {
	var registration registrationdomain.Registration
	if err := tx.WithContext(ctx).First(&registration, "id = ?", registrationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, registrationdomain.ErrRegistrationNotFound
		}
		return nil, err
	}

	exists, err := s.repo.HasActiveRegistrationCharge(ctx, tx, registrationID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: registration %s", chargedomain.ErrAlreadyCharged, registrationID)
	}

	if registration.Status != registrationdomain.StatusWaiting && registration.Status != registrationdomain.StatusCompleted {
		return nil, fmt.Errorf("%w: registration %s is %s", chargedomain.ErrRegistrationNotPayable, registrationID, registration.Status)
	}

	now := s.clock.Now()
	fee := registration.RegistrationFee.Round(2)
	chargeID := s.genID.Generate()
	charge := &chargedomain.Charge{
		ID:              chargeID,
		ChargeNo:        "CHG-" + chargeID.String(),
		ChargeType:      chargedomain.ChargeTypeRegistration,
		RegistrationID:  registrationID,
		Status:          chargedomain.StatusUnpaid,
		TotalAmount:     fee,
		DiscountAmount:  decimal.Zero,
		InsuranceAmount: decimal.Zero,
		ActualAmount:    fee,
		Details: []chargedomain.ChargeDetail{
			{
				ID:         s.genID.Generate(),
				ChargeID:   chargeID,
				ItemType:   chargedomain.ChargeTypeRegistration,
				ItemID:     registrationID,
				ItemName:   "Registration fee - " + registration.Department,
				ItemAmount: fee,
				CreatedAt:  now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, tx, charge); err != nil {
		return nil, err
	}

	s.log.Info("registration charge created",
		zap.String("charge_no", charge.ChargeNo),
		zap.String("registration_id", registrationID.String()),
	)
	return charge, nil
}

func (s *Service) createPrescriptionChargeTx(ctx context.Context, tx *gorm.DB, registrationID snowflake.ID, prescriptionIDs []snowflake.ID) (*chargedomain.Charge, error) {
	if len(prescriptionIDs) == 0 {
		return nil, fmt.Errorf("%w: no prescriptions given", chargedomain.ErrInvalidChargeRequest)
	}

	var prescriptions []prescriptiondomain.Prescription
	if err := tx.WithContext(ctx).
		Where("id IN ?", prescriptionIDs).
		Find(&prescriptions).Error; err != nil {
		return nil, err
	}

	byID := make(map[snowflake.ID]prescriptiondomain.Prescription, len(prescriptions))
	for _, prescription := range prescriptions {
		byID[prescription.ID] = prescription
	}

	now := s.clock.Now()
	chargeID := s.genID.Generate()
	total := decimal.Zero
	details := make([]chargedomain.ChargeDetail, 0, len(prescriptionIDs))

	for _, id := range prescriptionIDs {
		prescription, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", prescriptiondomain.ErrPrescriptionNotFound, id)
		}
		if prescription.RegistrationID != registrationID {
			return nil, fmt.Errorf("%w: prescription %s belongs to another visit", chargedomain.ErrInvalidChargeRequest, id)
		}
		if prescription.Status != prescriptiondomain.StatusReviewed {
			return nil, fmt.Errorf("%w: %s is %s", prescriptiondomain.ErrNotReviewed, id, prescription.Status)
		}

		amount := prescription.TotalAmount.Round(2)
		total = total.Add(amount)
		details = append(details, chargedomain.ChargeDetail{
			ID:         s.genID.Generate(),
			ChargeID:   chargeID,
			ItemType:   chargedomain.ChargeTypePrescription,
			ItemID:     id,
			ItemName:   "Prescription " + prescription.PrescriptionNo,
			ItemAmount: amount,
			CreatedAt:  now,
		})
	}

	charge := &chargedomain.Charge{
		ID:              chargeID,
		ChargeNo:        "CHG-" + chargeID.String(),
		ChargeType:      chargedomain.ChargeTypePrescription,
		RegistrationID:  registrationID,
		Status:          chargedomain.StatusUnpaid,
		TotalAmount:     total,
		DiscountAmount:  decimal.Zero,
		InsuranceAmount: decimal.Zero,
		ActualAmount:    total,
		Details:         details,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, tx, charge); err != nil {
		return nil, err
	}

	s.log.Info("prescription charge created",
		zap.String("charge_no", charge.ChargeNo),
		zap.String("registration_id", registrationID.String()),
		zap.Int("prescriptions", len(prescriptionIDs)),
	)
	return charge, nil
}
