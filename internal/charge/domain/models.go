// Package domain contains the billing charge aggregate and its contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ChargeType says what a charge pays for. A visit that owes both a
// registration fee and prescriptions is modeled as two charges sharing the
// registration reference, never as one merged record.
type ChargeType string

const (
	ChargeTypeRegistration ChargeType = "REGISTRATION"
	ChargeTypePrescription ChargeType = "PRESCRIPTION"
)

// Status is the charge lifecycle. Strictly forward: UNPAID → PAID → REFUNDED.
type Status int8

const (
	StatusUnpaid   Status = 0
	StatusPaid     Status = 1
	StatusRefunded Status = 2
)

// String names the status for errors and logs.
func (s Status) String() string {
	switch s {
	case StatusUnpaid:
		return "UNPAID"
	case StatusPaid:
		return "PAID"
	case StatusRefunded:
		return "REFUNDED"
	default:
		return "UNKNOWN"
	}
}

// PaymentMethod is how the money arrived. Non-cash methods carry an
// externally issued transaction number.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodMobile PaymentMethod = "MOBILE"
)

// ValidPaymentMethod reports whether the method is known.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodMobile:
		return true
	}
	return false
}

// RequiresTransactionNo reports whether the method must carry an external
// transaction number.
func (m PaymentMethod) RequiresTransactionNo() bool {
	return m == PaymentMethodCard || m == PaymentMethodMobile
}

// Charge is one billing event. Rows are created UNPAID by the lifecycle
// manager, mutated only by the payment and refund processors, and never
// physically deleted.
type Charge struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	ChargeNo       string       `gorm:"type:text;not null;uniqueIndex"`
	ChargeType     ChargeType   `gorm:"type:text;not null;index"`
	RegistrationID snowflake.ID `gorm:"not null;index"`
	Status         Status       `gorm:"not null;default:0;index"`

	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	InsuranceAmount decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	ActualAmount    decimal.Decimal `gorm:"type:decimal(10,2);not null"`

	// TransactionNo is the idempotency key: unique across all charges when
	// present. The unique index, not application code, arbitrates duplicates.
	PaymentMethod *PaymentMethod `gorm:"type:text"`
	TransactionNo *string        `gorm:"type:text;uniqueIndex"`
	ChargeTime    *time.Time     `gorm:"index"`
	OperatorID    *snowflake.ID  `gorm:"index"`
	OperatorName  *string        `gorm:"type:text"`

	RefundAmount *decimal.Decimal `gorm:"type:decimal(10,2)"`
	RefundTime   *time.Time       `gorm:"index"`
	RefundReason *string          `gorm:"type:text"`

	Details []ChargeDetail `gorm:"foreignKey:ChargeID"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName sets the database table name.
func (Charge) TableName() string { return "charges" }

// ChargeDetail is one line item, pointing at its source registration or
// prescription by id only; the billing engine never joins the clinical
// aggregate.
type ChargeDetail struct {
	ID         snowflake.ID    `gorm:"primaryKey"`
	ChargeID   snowflake.ID    `gorm:"not null;index"`
	ItemType   ChargeType      `gorm:"type:text;not null"`
	ItemID     snowflake.ID    `gorm:"not null;index"`
	ItemName   string          `gorm:"type:text;not null"`
	ItemAmount decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ChargeDetail) TableName() string { return "charge_details" }
