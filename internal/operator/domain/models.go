// Package domain holds operator identity shared by billing transitions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// OperatorType distinguishes system-driven transitions from cashier actions.
type OperatorType string

const (
	OperatorTypeSystem OperatorType = "SYSTEM"
	OperatorTypeUser   OperatorType = "USER"
)

// Operator attributes a state transition to its initiator.
type Operator struct {
	ID   *snowflake.ID
	Name string
	Type OperatorType
}

// System is the attribution used for engine-internal transitions.
func System() Operator {
	return Operator{Name: "system", Type: OperatorTypeSystem}
}

// Account is a back-office login able to operate the cashier desk.
type Account struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Username     string       `gorm:"type:text;not null;uniqueIndex"`
	DisplayName  string       `gorm:"type:text;not null"`
	Role         string       `gorm:"type:text;not null;default:cashier"`
	PasswordHash string       `gorm:"type:text;not null"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "operator_accounts" }
