package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentUpdate carries the fields the payment processor flips on success.
type PaymentUpdate struct {
	Method        PaymentMethod
	TransactionNo *string
	ChargeTime    time.Time
	OperatorID    *snowflake.ID
	OperatorName  string
}

// RefundUpdate carries the fields the refund processor flips on success.
type RefundUpdate struct {
	RefundAmount decimal.Decimal
	RefundTime   time.Time
	RefundReason string
}

// Repository persists charges. Mutating methods take the transaction handle
// so callers control the unit of work.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, charge *Charge) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Charge, error)
	FindByTransactionNo(ctx context.Context, db *gorm.DB, transactionNo string) (*Charge, error)
	// HasActiveRegistrationCharge reports a live (UNPAID or PAID, not
	// soft-deleted) registration-fee charge for the visit.
	HasActiveRegistrationCharge(ctx context.Context, db *gorm.DB, registrationID snowflake.ID) (bool, error)
	// MarkPaid flips UNPAID→PAID guarded by the current status. It reports
	// whether a row actually changed; a unique-constraint failure on the
	// transaction number surfaces as gorm.ErrDuplicatedKey.
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, update PaymentUpdate) (bool, error)
	// MarkRefunded flips PAID→REFUNDED guarded by the current status.
	MarkRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID, update RefundUpdate) (bool, error)
}
