package ledger

import (
	"testing"
	"time"

	"shomiti/models"

	"github.com/shopspring/decimal"
)

func seedHistory(t *testing.T, s *Service) *models.Customer {
	t.Helper()
	mustInvest(t, s, "5000")
	c := mustAdmit(t, s, "Rahima Begum", 1, dec("100"))
	if _, _, err := s.DisburseLoan(DisburseRequest{
		CustomerID: c.ID, Amount: dec("1000"), Interest: dec("10"),
		ServiceCharge: dec("50"), WelfareFee: dec("25"),
		DueDate: time.Now().AddDate(0, 6, 0),
	}); err != nil {
		t.Fatalf("disburse: %v", err)
	}
	if _, _, err := s.DisburseLoan(DisburseRequest{
		CustomerID: c.ID, Amount: dec("500"), Interest: dec("12"),
		DueDate: time.Now().AddDate(0, 3, 0),
	}); err != nil {
		t.Fatalf("disburse: %v", err)
	}
	if _, _, err := s.CollectLoan(c.ID, dec("300"), 1); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if _, _, err := s.CollectSaving(c.ID, dec("220"), 1); err != nil {
		t.Fatalf("collect saving: %v", err)
	}
	return c
}

func TestRebuildRestoresDriftedTotals(t *testing.T) {
	s := newTestService(t)
	c := seedHistory(t, s)

	// expected: 1000*1.10 + 500*1.12 - 300 = 1100 + 560 - 300 = 1360
	wantTotal := dec("1660")
	wantRemaining := dec("1360")

	// simulate cache drift
	if err := s.db.Model(&models.Customer{}).Where("id = ?", c.ID).
		Updates(map[string]any{"total_loan": 9999, "remaining_loan": 9999}).Error; err != nil {
		t.Fatalf("corrupt totals: %v", err)
	}

	res, err := s.Rebuild()
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if res.LoansApplied != 2 || res.CollectionsUsed != 1 {
		t.Fatalf("rebuild stats = %+v", res)
	}
	got := reloadCustomer(t, s, c.ID)
	if !got.TotalLoan.Equal(wantTotal) || !got.RemainingLoan.Equal(wantRemaining) {
		t.Fatalf("totals = %s/%s want %s/%s", got.TotalLoan, got.RemainingLoan, wantTotal, wantRemaining)
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	s := newTestService(t)
	c := seedHistory(t, s)

	if _, err := s.Rebuild(); err != nil {
		t.Fatalf("first rebuild: %v", err)
	}
	first := reloadCustomer(t, s, c.ID)
	if _, err := s.Rebuild(); err != nil {
		t.Fatalf("second rebuild: %v", err)
	}
	second := reloadCustomer(t, s, c.ID)

	if !first.TotalLoan.Equal(second.TotalLoan) || !first.RemainingLoan.Equal(second.RemainingLoan) {
		t.Fatalf("rebuild not idempotent: %s/%s then %s/%s",
			first.TotalLoan, first.RemainingLoan, second.TotalLoan, second.RemainingLoan)
	}
}

func TestRebuildMatchesByCaseInsensitiveName(t *testing.T) {
	s := newTestService(t)
	mustInvest(t, s, "2000")
	c := mustAdmit(t, s, "RAHIMA begum", 1, decimal.Zero)
	if _, _, err := s.DisburseLoan(DisburseRequest{
		CustomerID: c.ID, Amount: dec("400"), Interest: dec("5"),
		DueDate: time.Now().AddDate(0, 2, 0),
	}); err != nil {
		t.Fatalf("disburse: %v", err)
	}
	// loans store the name as entered at disbursement time; matching must
	// not depend on its casing
	if err := s.db.Model(&models.Loan{}).Where("1 = 1").
		Update("customer_name", "rahima BEGUM").Error; err != nil {
		t.Fatalf("recase loan: %v", err)
	}

	res, err := s.Rebuild()
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if res.LoansApplied != 1 || res.LoansUnmatched != 0 {
		t.Fatalf("rebuild stats = %+v", res)
	}
	got := reloadCustomer(t, s, c.ID)
	if !got.TotalLoan.Equal(dec("420")) {
		t.Fatalf("total = %s want 420", got.TotalLoan)
	}
}

func TestRebuildSavings(t *testing.T) {
	s := newTestService(t)
	c := seedHistory(t, s)
	cid := c.ID
	if _, err := s.Withdraw(WithdrawRequest{CustomerID: &cid, Amount: dec("70")}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	if err := s.db.Model(&models.Customer{}).Where("id = ?", c.ID).
		Update("savings_balance", 12345).Error; err != nil {
		t.Fatalf("corrupt savings: %v", err)
	}
	if err := s.RebuildSavings(); err != nil {
		t.Fatalf("rebuild savings: %v", err)
	}
	got := reloadCustomer(t, s, c.ID)
	if !got.SavingsBalance.Equal(dec("150")) {
		t.Fatalf("savings = %s want 150", got.SavingsBalance)
	}
}
