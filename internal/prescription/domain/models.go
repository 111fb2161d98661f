// Package domain contains the pharmacy order models consumed by the billing
// engine.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Status is the prescription lifecycle state. The persisted codes are not
// contiguous: PAID was added later and took the value 5 while DISPENSED and
// REFUNDED kept 3 and 4. Treat this as an ordered enumeration driven by the
// transition table below; status+1 arithmetic is never valid.
type Status int8

const (
	StatusDraft     Status = 0
	StatusIssued    Status = 1
	StatusReviewed  Status = 2
	StatusDispensed Status = 3
	StatusRefunded  Status = 4
	StatusPaid      Status = 5
)

// String names the status for errors and logs.
func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "DRAFT"
	case StatusIssued:
		return "ISSUED"
	case StatusReviewed:
		return "REVIEWED"
	case StatusDispensed:
		return "DISPENSED"
	case StatusRefunded:
		return "REFUNDED"
	case StatusPaid:
		return "PAID"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int8(s))
	}
}

// transitions lists the legal edges. PAID→REVIEWED is the refund revert for
// prescriptions whose stock was never touched.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusIssued},
	StatusIssued:    {StatusReviewed},
	StatusReviewed:  {StatusPaid},
	StatusPaid:      {StatusDispensed, StatusReviewed},
	StatusDispensed: {StatusRefunded},
	StatusRefunded:  {},
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
	ErrPrescriptionNotFound = errors.New("prescription_not_found")
	ErrNotReviewed          = errors.New("prescription_not_reviewed")
	ErrNotPaid              = errors.New("prescription_not_paid")
	ErrTransitionConflict   = errors.New("prescription_transition_conflict")
	ErrUnexpectedStatus     = errors.New("unexpected_prescription_status")
)

// Prescription is one pharmacy order, owned by the clinical module.
type Prescription struct {
	ID             snowflake.ID    `gorm:"primaryKey"`
	PrescriptionNo string          `gorm:"type:text;not null;uniqueIndex"`
	RegistrationID snowflake.ID    `gorm:"not null;index"`
	DoctorName     string          `gorm:"type:text"`
	Status         Status          `gorm:"not null;default:0;index"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	DispensedAt    *time.Time      `gorm:""`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Items []Item `gorm:"foreignKey:PrescriptionID"`
}

// TableName sets the database table name.
func (Prescription) TableName() string { return "prescriptions" }

// Item is one medicine line on a prescription.
type Item struct {
	ID             snowflake.ID    `gorm:"primaryKey"`
	PrescriptionID snowflake.ID    `gorm:"not null;index"`
	StockItemID    snowflake.ID    `gorm:"not null;index"`
	MedicineName   string          `gorm:"type:text;not null"`
	Quantity       int64           `gorm:"not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Item) TableName() string { return "prescription_items" }
