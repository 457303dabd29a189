package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Withdrawal types.
const (
	WithdrawalTypeSavings    = "savings"
	WithdrawalTypeInvestment = "investment"
)

// Withdrawal is cash leaving the balance, either a customer taking out
// savings or an investor pulling capital.
type Withdrawal struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CustomerID     *uint           `gorm:"index"`
	Customer       Customer        `gorm:"foreignKey:CustomerID;references:ID"`
	InvestorName   string          `gorm:"size:100"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Date           time.Time       `gorm:"index;not null"`
	Note           string          `gorm:"size:200"`
	WithdrawalType string          `gorm:"size:20;default:savings"`
}
