package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SlipUpload is a payment-slip photo attached to a collection. OCR runs
// over the image and the extracted amount is compared with the recorded
// collection amount; mismatches stay unverified for admin review.
type SlipUpload struct {
	ID               uint `gorm:"primaryKey"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	FileName         string `gorm:"size:255;not null;index"`
	StorePath        string `gorm:"column:store_path;size:512"`
	ContentType      string `gorm:"size:128"`
	LoanCollectionID *uint  `gorm:"index"`
	SavingID         *uint  `gorm:"index"` // saving_collections.id
	StaffID          uint   `gorm:"index;not null"`

	OCRAmount    decimal.Decimal `gorm:"type:numeric(14,2);default:0"`
	OCRRaw       string          `gorm:"size:64"`
	Verified     bool            `gorm:"default:false;index"`
	Failed       bool            `gorm:"default:false;index"`
	FailedReason string          `gorm:"size:255"`
}
