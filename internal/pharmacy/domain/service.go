// Package domain defines the dispensing operations of the pharmacy window.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"

	operatordomain "github.com/mediflow/billing/internal/operator/domain"
	prescriptiondomain "github.com/mediflow/billing/internal/prescription/domain"
)

var (
	ErrNotPaid = errors.New("prescription_not_paid_for_dispense")
)

// Service hands out medicine for paid prescriptions. Dispensing decrements
// stock and moves the prescription to DISPENSED in one transaction.
type Service interface {
	Dispense(ctx context.Context, prescriptionID snowflake.ID, op operatordomain.Operator) (*prescriptiondomain.Prescription, error)
}
