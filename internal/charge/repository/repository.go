// Package repository is the GORM-backed charge store.
package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	chargedomain "github.com/mediflow/billing/internal/charge/domain"
)

type Repository struct{}

// Provide constructs the charge repository.
func Provide() chargedomain.Repository {
	return &Repository{}
}

func (r *Repository) Insert(ctx context.Context, db *gorm.DB, charge *chargedomain.Charge) error {
	return db.WithContext(ctx).Create(charge).Error
}

func (r *Repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*chargedomain.Charge, error) {
	var charge chargedomain.Charge
	err := db.WithContext(ctx).
		Preload("Details").
		First(&charge, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, chargedomain.ErrChargeNotFound
		}
		return nil, err
	}
	return &charge, nil
}

func (r *Repository) FindByTransactionNo(ctx context.Context, db *gorm.DB, transactionNo string) (*chargedomain.Charge, error) {
	var charge chargedomain.Charge
	err := db.WithContext(ctx).
		Preload("Details").
		First(&charge, "transaction_no = ?", transactionNo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, chargedomain.ErrChargeNotFound
		}
		return nil, err
	}
	return &charge, nil
}

func (r *Repository) HasActiveRegistrationCharge(ctx context.Context, db *gorm.DB, registrationID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&chargedomain.Charge{}).
		Where("registration_id = ? AND charge_type = ? AND status IN ?",
			registrationID,
			chargedomain.ChargeTypeRegistration,
			[]chargedomain.Status{chargedomain.StatusUnpaid, chargedomain.StatusPaid},
		).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, update chargedomain.PaymentUpdate) (bool, error) {
	values := map[string]any{
		"status":         chargedomain.StatusPaid,
		"payment_method": update.Method,
		"charge_time":    update.ChargeTime,
		"operator_name":  update.OperatorName,
		"updated_at":     update.ChargeTime,
	}
	if update.TransactionNo != nil {
		values["transaction_no"] = *update.TransactionNo
	}
	if update.OperatorID != nil {
		values["operator_id"] = *update.OperatorID
	}

	result := db.WithContext(ctx).
		Model(&chargedomain.Charge{}).
		Where("id = ? AND status = ?", id, chargedomain.StatusUnpaid).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) MarkRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID, update chargedomain.RefundUpdate) (bool, error) {
	result := db.WithContext(ctx).
		Model(&chargedomain.Charge{}).
		Where("id = ? AND status = ?", id, chargedomain.StatusPaid).
		Updates(map[string]any{
			"status":        chargedomain.StatusRefunded,
			"refund_amount": update.RefundAmount,
			"refund_time":   update.RefundTime,
			"refund_reason": update.RefundReason,
			"updated_at":    update.RefundTime,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
