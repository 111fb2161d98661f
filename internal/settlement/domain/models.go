// Package domain defines the daily settlement report.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

var ErrInvalidDate = errors.New("invalid_settlement_date")

// DailyRequest selects the business day to settle, optionally narrowed to
// one cashier.
type DailyRequest struct {
	Date       time.Time
	OperatorID *snowflake.ID
}

// MethodBucket is the collected total for one payment method.
type MethodBucket struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
	Count  int64           `json:"count"`
}

// Report is the end-of-day reconciliation. Collected buckets are keyed by
// when the money arrived; the refund bucket by when it left. A charge
// collected and refunded on the same day appears in both.
type Report struct {
	Date        string          `json:"date"`
	OperatorID  *snowflake.ID   `json:"operator_id,omitempty"`
	Methods     []MethodBucket  `json:"methods"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	PaidCount   int64           `json:"paid_count"`
	TotalRefund decimal.Decimal `json:"total_refund"`
	RefundCount int64           `json:"refund_count"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Service builds settlement reports.
type Service interface {
	Daily(ctx context.Context, req DailyRequest) (*Report, error)
}
