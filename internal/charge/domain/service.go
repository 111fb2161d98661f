package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service is the charge lifecycle manager: it materializes UNPAID charges
// from registrations and reviewed prescriptions.
type Service interface {
	CreateRegistrationCharge(ctx context.Context, registrationID snowflake.ID) (*Charge, error)
	CreatePrescriptionCharge(ctx context.Context, registrationID snowflake.ID, prescriptionIDs []snowflake.ID) (*Charge, error)
	// CreateCombinedCharge charges the registration fee (skipped silently when
	// already charged or paid) plus any reviewed prescriptions in one call.
	CreateCombinedCharge(ctx context.Context, registrationID snowflake.ID, prescriptionIDs []snowflake.ID) ([]*Charge, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Charge, error)
}

var (
	ErrChargeNotFound         = errors.New("charge_not_found")
	ErrAlreadyCharged         = errors.New("registration_already_charged")
	ErrNothingToCharge        = errors.New("nothing_to_charge")
	ErrInvalidChargeRequest   = errors.New("invalid_charge_request")
	ErrRegistrationNotPayable = errors.New("registration_not_payable")
	ErrAmountMismatch         = errors.New("amount_mismatch")
	ErrAlreadyPaid            = errors.New("charge_already_paid")
	ErrNotPaid                = errors.New("charge_not_paid")
	ErrDuplicateTransaction   = errors.New("duplicate_transaction_no")
	ErrInvalidPaymentMethod   = errors.New("invalid_payment_method")
	ErrMissingTransactionNo   = errors.New("transaction_no_required")
)
