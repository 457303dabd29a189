package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SavingCollection is one savings deposit from a customer. Rows are append-only.
type SavingCollection struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CustomerID     uint            `gorm:"index;not null"`
	Customer       Customer        `gorm:"foreignKey:CustomerID;references:ID"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	CollectionDate time.Time       `gorm:"index;not null"`
	StaffID        uint            `gorm:"index;not null"`
	Staff          User            `gorm:"foreignKey:StaffID;references:ID"`
	ReceiptNo      string          `gorm:"size:36;uniqueIndex"`
}
