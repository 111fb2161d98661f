// Package domain defines the payment processor contract for collecting
// charges.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	chargedomain "github.com/mediflow/billing/internal/charge/domain"
	operatordomain "github.com/mediflow/billing/internal/operator/domain"
)

// PayRequest collects one charge. The transaction number is required for
// terminal-backed methods and forbidden for cash.
type PayRequest struct {
	ChargeID      snowflake.ID
	Method        chargedomain.PaymentMethod
	TransactionNo *string
	PaidAmount    decimal.Decimal
	Operator      operatordomain.Operator
}

// Service flips charges UNPAID to PAID and cascades the paid state into the
// visit and its prescriptions. Replaying the same transaction number against
// the same charge returns the stored result without side effects.
type Service interface {
	Pay(ctx context.Context, req PayRequest) (*chargedomain.Charge, error)
}

var ErrAuthorizationDeclined = errors.New("authorization_declined")
