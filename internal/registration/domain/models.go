// Package domain contains the visit registration models and the explicit
// status transition table.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	operatordomain "github.com/mediflow/billing/internal/operator/domain"
)

// Status is the visit lifecycle state. Values are persisted as integers and
// must be treated as a closed enumeration, never as arithmetic codes.
type Status int8

const (
	StatusWaiting          Status = 0
	StatusCompleted        Status = 1
	StatusCancelled        Status = 2
	StatusRefunded         Status = 3
	StatusPaidRegistration Status = 4
	StatusInConsultation   Status = 5
)

// String names the status for errors and history rows.
func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "WAITING"
	case StatusCompleted:
		return "COMPLETED"
	case StatusCancelled:
		return "CANCELLED"
	case StatusRefunded:
		return "REFUNDED"
	case StatusPaidRegistration:
		return "PAID_REGISTRATION"
	case StatusInConsultation:
		return "IN_CONSULTATION"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int8(s))
	}
}

// transitions is the only source of truth for legal edges. COMPLETED keeps a
// single outgoing edge to REFUNDED for the cashier refund path.
var transitions = map[Status][]Status{
	StatusWaiting:          {StatusPaidRegistration, StatusCancelled},
	StatusPaidRegistration: {StatusInConsultation, StatusRefunded},
	StatusInConsultation:   {StatusCompleted},
	StatusCompleted:        {StatusRefunded},
	StatusCancelled:        {},
	StatusRefunded:         {},
}

// CanTransition reports whether from→to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var (
	ErrRegistrationNotFound = errors.New("registration_not_found")
	ErrIllegalTransition    = errors.New("illegal_registration_transition")
	ErrTransitionConflict   = errors.New("registration_transition_conflict")
	ErrInvalidRegistration  = errors.New("invalid_registration")
)

// Registration is one clinic visit. The fee is fixed at creation.
type Registration struct {
	ID              snowflake.ID    `gorm:"primaryKey"`
	RegistrationNo  string          `gorm:"type:text;not null;uniqueIndex"`
	PatientName     string          `gorm:"type:text;not null"`
	Department      string          `gorm:"type:text;not null"`
	RegistrationFee decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Status          Status          `gorm:"not null;default:0;index"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Registration) TableName() string { return "registrations" }

// StatusHistory is the append-only audit trail: one row per transition,
// written in the same transaction as the status update.
type StatusHistory struct {
	ID             snowflake.ID  `gorm:"primaryKey"`
	RegistrationID snowflake.ID  `gorm:"not null;index"`
	FromStatus     Status        `gorm:"not null"`
	ToStatus       Status        `gorm:"not null"`
	OperatorType   string        `gorm:"type:text;not null"`
	OperatorID     *snowflake.ID `gorm:""`
	OperatorName   string        `gorm:"type:text;not null"`
	Reason         string        `gorm:"type:text"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (StatusHistory) TableName() string { return "registration_status_histories" }

// CreateRequest opens a new visit in WAITING.
type CreateRequest struct {
	PatientName     string
	Department      string
	RegistrationFee decimal.Decimal
}

// Service is the registration state machine.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Registration, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Registration, error)
	// Transition applies one legal edge inside the caller's transaction,
	// recording a history row before the status flips.
	Transition(ctx context.Context, tx *gorm.DB, registrationID snowflake.ID, to Status, op operatordomain.Operator, reason string) error
	Cancel(ctx context.Context, registrationID snowflake.ID, op operatordomain.Operator, reason string) error
}
