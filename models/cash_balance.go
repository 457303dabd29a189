package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashBalance is the single organization-wide cash ledger. There is at most
// one row; every money-moving operation reads and writes it inside the same
// transaction as its history row.
type CashBalance struct {
	ID        uint            `gorm:"primaryKey"`
	Balance   decimal.Decimal `gorm:"type:numeric(14,2);default:0"`
	UpdatedAt time.Time
}

func (CashBalance) TableName() string { return "cash_balance" }
