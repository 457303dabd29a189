package ledger

import (
	"fmt"
	"strings"

	"shomiti/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RebuildResult summarizes a replay of the loan history.
type RebuildResult struct {
	Customers       int
	LoansApplied    int
	LoansUnmatched  int
	CollectionsUsed int
}

// Rebuild recomputes every customer's total and remaining loan from the
// event history: totals are zeroed, each loan re-adds amount + interest
// (service charge and welfare fee are not part of the principal), and each
// loan collection subtracts its payment. Loans are
// matched to customers by case-insensitive name plus staff id. Running it
// again produces the same totals.
func (s *Service) Rebuild() (*RebuildResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &RebuildResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var customers []models.Customer
		if err := tx.Find(&customers).Error; err != nil {
			return fmt.Errorf("load customers: %w", err)
		}
		byID := make(map[uint]*models.Customer, len(customers))
		byNameStaff := make(map[string]*models.Customer, len(customers))
		for i := range customers {
			c := &customers[i]
			c.TotalLoan = decimal.Zero
			c.RemainingLoan = decimal.Zero
			byID[c.ID] = c
			byNameStaff[nameStaffKey(c.Name, c.StaffID)] = c
		}
		res.Customers = len(customers)

		var loans []models.Loan
		if err := tx.Find(&loans).Error; err != nil {
			return fmt.Errorf("load loans: %w", err)
		}
		for i := range loans {
			loan := &loans[i]
			customer, ok := byNameStaff[nameStaffKey(loan.CustomerName, loan.StaffID)]
			if !ok {
				res.LoansUnmatched++
				continue
			}
			withInterest := loan.Amount.Add(loan.InterestAmount())
			customer.TotalLoan = customer.TotalLoan.Add(withInterest)
			customer.RemainingLoan = customer.RemainingLoan.Add(withInterest)
			res.LoansApplied++
		}

		var collections []models.LoanCollection
		if err := tx.Find(&collections).Error; err != nil {
			return fmt.Errorf("load loan collections: %w", err)
		}
		for _, col := range collections {
			if customer, ok := byID[col.CustomerID]; ok {
				customer.RemainingLoan = customer.RemainingLoan.Sub(col.Amount)
				res.CollectionsUsed++
			}
		}

		for i := range customers {
			c := &customers[i]
			if err := tx.Model(&models.Customer{}).Where("id = ?", c.ID).
				Updates(map[string]any{
					"total_loan":     c.TotalLoan,
					"remaining_loan": c.RemainingLoan,
				}).Error; err != nil {
				return fmt.Errorf("update customer %d: %w", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RebuildSavings recomputes every customer's savings balance as the sum of
// saving collections minus customer savings withdrawals. Same projection
// argument as Rebuild, same idempotence.
func (s *Service) RebuildSavings() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var customers []models.Customer
		if err := tx.Find(&customers).Error; err != nil {
			return fmt.Errorf("load customers: %w", err)
		}
		byID := make(map[uint]*models.Customer, len(customers))
		for i := range customers {
			customers[i].SavingsBalance = decimal.Zero
			byID[customers[i].ID] = &customers[i]
		}

		var collections []models.SavingCollection
		if err := tx.Find(&collections).Error; err != nil {
			return fmt.Errorf("load saving collections: %w", err)
		}
		for _, col := range collections {
			if c, ok := byID[col.CustomerID]; ok {
				c.SavingsBalance = c.SavingsBalance.Add(col.Amount)
			}
		}

		var withdrawals []models.Withdrawal
		if err := tx.Where("customer_id IS NOT NULL AND withdrawal_type = ?",
			models.WithdrawalTypeSavings).Find(&withdrawals).Error; err != nil {
			return fmt.Errorf("load withdrawals: %w", err)
		}
		for _, wd := range withdrawals {
			if c, ok := byID[*wd.CustomerID]; ok {
				c.SavingsBalance = c.SavingsBalance.Sub(wd.Amount)
			}
		}

		for i := range customers {
			c := &customers[i]
			if err := tx.Model(&models.Customer{}).Where("id = ?", c.ID).
				Update("savings_balance", c.SavingsBalance).Error; err != nil {
				return fmt.Errorf("update customer %d: %w", c.ID, err)
			}
		}
		return nil
	})
}

func nameStaffKey(name string, staffID *uint) string {
	id := uint(0)
	if staffID != nil {
		id = *staffID
	}
	return fmt.Sprintf("%s|%d", strings.ToLower(strings.TrimSpace(name)), id)
}
