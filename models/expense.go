package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense categories.
const (
	ExpenseSalary    = "Salary"
	ExpenseOffice    = "Office"
	ExpenseTransport = "Transport"
	ExpenseOther     = "Other"
)

// Expense is an operating cost paid out of the cash balance.
type Expense struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Category    string          `gorm:"size:50;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Description string          `gorm:"size:200"`
	Date        time.Time       `gorm:"index;not null"`
}
