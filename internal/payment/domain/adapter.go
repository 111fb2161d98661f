package domain

import (
	"context"

	"github.com/shopspring/decimal"

	chargedomain "github.com/mediflow/billing/internal/charge/domain"
)

// AuthorizeRequest is sent to the terminal bridge for non-cash methods.
type AuthorizeRequest struct {
	ChargeNo      string
	Method        chargedomain.PaymentMethod
	TransactionNo string
	Amount        decimal.Decimal
}

// AuthorizeResult is the terminal's verdict.
type AuthorizeResult struct {
	Approved bool
	Code     string
}

// Authorizer verifies a non-cash payment against the issuing terminal before
// the charge is marked paid.
type Authorizer interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (AuthorizeResult, error)
}
