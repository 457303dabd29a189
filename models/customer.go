package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a society member. TotalLoan, RemainingLoan and SavingsBalance
// are denormalized running totals over the collection/disbursement history;
// the event rows are the system of record and these fields can be rebuilt
// from them (see pkg/ledger Rebuild).
type Customer struct {
	ID            uint `gorm:"primaryKey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Name          string `gorm:"size:100;not null;index"`
	MemberNo      string `gorm:"size:50"`
	Phone         string `gorm:"size:20"`
	FatherHusband string `gorm:"size:100"`
	Village       string `gorm:"size:100"`
	Post          string `gorm:"size:100"`
	Thana         string `gorm:"size:100"`
	District      string `gorm:"size:100"`
	Granter       string `gorm:"size:100"`
	Profession    string `gorm:"size:100"`
	NIDNo         string `gorm:"size:50"`
	Address       string `gorm:"size:200"`
	StaffID       *uint  `gorm:"index"`
	Staff         User   `gorm:"foreignKey:StaffID;references:ID"`

	AdmissionFee   decimal.Decimal `gorm:"type:numeric(14,2);default:0"`
	WelfareFee     decimal.Decimal `gorm:"type:numeric(14,2);default:0"`
	TotalLoan      decimal.Decimal `gorm:"type:numeric(14,2);default:0"`
	RemainingLoan  decimal.Decimal `gorm:"type:numeric(14,2);default:0"`
	SavingsBalance decimal.Decimal `gorm:"type:numeric(14,2);default:0"`
}
