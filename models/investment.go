package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Investment is a capital injection into the cash balance.
type Investment struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	InvestorName string          `gorm:"size:100;not null"`
	Amount       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Date         time.Time       `gorm:"index;not null"`
	Note         string          `gorm:"size:200"`
}
