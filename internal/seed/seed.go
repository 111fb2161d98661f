// Package seed bootstraps the default cashier account so a fresh install can
// attribute billing transitions.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/mediflow/billing/internal/auth/password"
	operatordomain "github.com/mediflow/billing/internal/operator/domain"
)

const (
	defaultCashierUsername = "cashier"
	defaultCashierDisplay  = "Front Desk Cashier"
	defaultCashierPassword = "cashier"
)

// EnsureDefaultOperator seeds the default cashier account for startup
// bootstrap. Existing accounts are left untouched.
func EnsureDefaultOperator(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account operatordomain.Account
		err := tx.WithContext(ctx).
			Where("username = ?", defaultCashierUsername).
			First(&account).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := password.Hash(defaultCashierPassword)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		account = operatordomain.Account{
			ID:           node.Generate(),
			Username:     defaultCashierUsername,
			DisplayName:  defaultCashierDisplay,
			Role:         "cashier",
			PasswordHash: hashed,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.WithContext(ctx).Create(&account).Error
	})
}
