package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is a staff or admin account. Field staff collect installments and
// savings from members; admins disburse loans and manage the cash balance.
type User struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
	Name           string         `gorm:"size:100;not null"`
	Email          string         `gorm:"size:120;not null;unique"`
	HashedPassword []byte         `gorm:"not null"`
	RoleID         *uint          `gorm:"index"`
	Role           Role           `gorm:"foreignKey:RoleID;references:ID"`
	Phone          string         `gorm:"size:20"`
	Position       string         `gorm:"size:100"`
	JoinDate       time.Time
	Salary         decimal.Decimal `gorm:"type:numeric(14,2);default:0"`
}
