// Package domain defines the refund processor contract.
package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"

	chargedomain "github.com/mediflow/billing/internal/charge/domain"
	operatordomain "github.com/mediflow/billing/internal/operator/domain"
)

// RefundRequest returns the full collected amount of one PAID charge.
type RefundRequest struct {
	ChargeID snowflake.ID
	Reason   string
	Operator operatordomain.Operator
}

// Service flips charges PAID to REFUNDED and reverts the clinical state that
// payment produced. Stock is restored only for prescriptions that were
// actually dispensed.
type Service interface {
	Refund(ctx context.Context, req RefundRequest) (*chargedomain.Charge, error)
}
