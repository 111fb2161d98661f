package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mediflow/billing/internal/clock"
	operatordomain "github.com/mediflow/billing/internal/operator/domain"
	registrationdomain "github.com/mediflow/billing/internal/registration/domain"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p Params) registrationdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("registration.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req registrationdomain.CreateRequest) (*registrationdomain.Registration, error) {
	patient := strings.TrimSpace(req.PatientName)
	if patient == "" {
		return nil, fmt.Errorf("%w: patient name required", registrationdomain.ErrInvalidRegistration)
	}
	department := strings.TrimSpace(req.Department)
	if department == "" {
		return nil, fmt.Errorf("%w: department required", registrationdomain.ErrInvalidRegistration)
	}
	if req.RegistrationFee.IsNegative() {
		return nil, fmt.Errorf("%w: negative registration fee", registrationdomain.ErrInvalidRegistration)
	}

	now := s.clock.Now()
	id := s.genID.Generate()
	record := &registrationdomain.Registration{
		ID:              id,
		RegistrationNo:  "REG-" + id.String(),
		PatientName:     patient,
		Department:      department,
		RegistrationFee: req.RegistrationFee.Round(2),
		Status:          registrationdomain.StatusWaiting,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*registrationdomain.Registration, error) {
	var record registrationdomain.Registration
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, registrationdomain.ErrRegistrationNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Transition validates the edge against the transition table, appends the
// history row, then flips the status guarded by the expected current value.
// The caller owns the transaction; payment and refund join their charge
// mutations to the same unit of work.
func (s *Service) Transition(
	ctx context.Context,
	tx *gorm.DB,
	registrationID snowflake.ID,
	to registrationdomain.Status,
	op operatordomain.Operator,
	reason string,
) error {
	if tx == nil {
		tx = s.db
	}

	var current registrationdomain.Registration
	if err := tx.WithContext(ctx).First(&current, "id = ?", registrationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return registrationdomain.ErrRegistrationNotFound
		}
		return err
	}

	if !registrationdomain.CanTransition(current.Status, to) {
		return fmt.Errorf("%w: %s -> %s", registrationdomain.ErrIllegalTransition, current.Status, to)
	}

	now := s.clock.Now()
	history := &registrationdomain.StatusHistory{
		ID:             s.genID.Generate(),
		RegistrationID: registrationID,
		FromStatus:     current.Status,
		ToStatus:       to,
		OperatorType:   string(op.Type),
		OperatorID:     op.ID,
		OperatorName:   op.Name,
		Reason:         strings.TrimSpace(reason),
		CreatedAt:      now,
	}
	if err := tx.WithContext(ctx).Create(history).Error; err != nil {
		return err
	}

	result := tx.WithContext(ctx).
		Model(&registrationdomain.Registration{}).
		Where("id = ? AND status = ?", registrationID, current.Status).
		Updates(map[string]any{
			"status":     to,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// A concurrent transaction won the edge; abort so the history row
		// rolls back with the rest of the unit of work.
		return fmt.Errorf("%w: %s -> %s", registrationdomain.ErrTransitionConflict, current.Status, to)
	}

	s.log.Info("registration transition",
		zap.String("registration_id", registrationID.String()),
		zap.String("from", current.Status.String()),
		zap.String("to", to.String()),
		zap.String("operator", op.Name),
	)
	return nil
}

func (s *Service) Cancel(ctx context.Context, registrationID snowflake.ID, op operatordomain.Operator, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.Transition(ctx, tx, registrationID, registrationdomain.StatusCancelled, op, reason)
	})
}
