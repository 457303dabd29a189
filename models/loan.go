package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan statuses.
const (
	LoanStatusPending = "Pending"
	LoanStatusPaid    = "Paid"
)

// Loan is one disbursement. The interest amount is always derived as
// amount * interest / 100 and never stored; service charge and welfare fee
// go to the cash balance, not to the customer's principal.
type Loan struct {
	ID                uint `gorm:"primaryKey"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CustomerName      string          `gorm:"size:100;not null;index"`
	Amount            decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Interest          decimal.Decimal `gorm:"type:numeric(6,2);default:0"` // percent
	LoanDate          time.Time       `gorm:"index;not null"`
	DueDate           time.Time       `gorm:"not null"`
	InstallmentCount  int             `gorm:"default:0"`
	InstallmentAmount decimal.Decimal `gorm:"type:numeric(14,2);default:0"`
	InstallmentType   string          `gorm:"size:50"`
	ServiceCharge     decimal.Decimal `gorm:"type:numeric(14,2);default:0"`
	WelfareFee        decimal.Decimal `gorm:"type:numeric(14,2);default:0"`
	Status            string          `gorm:"size:20;default:Pending"`
	StaffID           *uint           `gorm:"index"`
	Staff             User            `gorm:"foreignKey:StaffID;references:ID"`
}

// InterestAmount returns the one-time interest derived at disbursement.
func (l *Loan) InterestAmount() decimal.Decimal {
	return l.Amount.Mul(l.Interest).Div(decimal.NewFromInt(100))
}
