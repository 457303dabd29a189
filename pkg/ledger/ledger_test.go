package ledger

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"shomiti/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Role{}, &models.User{}, &models.Customer{}, &models.Loan{},
		&models.LoanCollection{}, &models.SavingCollection{},
		&models.CashBalance{}, &models.Investment{}, &models.Withdrawal{},
		&models.Expense{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(newTestDB(t))
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func mustAdmit(t *testing.T, s *Service, name string, staffID uint, fee decimal.Decimal) *models.Customer {
	t.Helper()
	sid := staffID
	c := &models.Customer{Name: name, StaffID: &sid, AdmissionFee: fee}
	if _, err := s.AdmitCustomer(c); err != nil {
		t.Fatalf("admit %s: %v", name, err)
	}
	return c
}

func mustInvest(t *testing.T, s *Service, amount string) {
	t.Helper()
	if _, err := s.AddInvestment("Investor", dec(amount), ""); err != nil {
		t.Fatalf("invest %s: %v", amount, err)
	}
}

func balanceEquals(t *testing.T, s *Service, want string) {
	t.Helper()
	got, err := s.Balance()
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !got.Equal(dec(want)) {
		t.Fatalf("balance = %s want %s", got, want)
	}
}

func reloadCustomer(t *testing.T, s *Service, id uint) *models.Customer {
	t.Helper()
	var c models.Customer
	if err := s.db.First(&c, id).Error; err != nil {
		t.Fatalf("reload customer %d: %v", id, err)
	}
	return &c
}

func TestDisburseLoanScenario(t *testing.T) {
	// ledger 1000; disburse 500 at 10% -> total/remaining 550, balance 500.
	s := newTestService(t)
	mustInvest(t, s, "1000")
	c := mustAdmit(t, s, "Rahima Begum", 1, decimal.Zero)

	loan, balance, err := s.DisburseLoan(DisburseRequest{
		CustomerID: c.ID,
		Amount:     dec("500"),
		Interest:   dec("10"),
		DueDate:    time.Now().AddDate(0, 6, 0),
	})
	if err != nil {
		t.Fatalf("disburse: %v", err)
	}
	if !loan.InterestAmount().Equal(dec("50")) {
		t.Fatalf("interest amount = %s want 50", loan.InterestAmount())
	}
	got := reloadCustomer(t, s, c.ID)
	if !got.TotalLoan.Equal(dec("550")) || !got.RemainingLoan.Equal(dec("550")) {
		t.Fatalf("totals = %s/%s want 550/550", got.TotalLoan, got.RemainingLoan)
	}
	if !balance.Equal(dec("500")) {
		t.Fatalf("returned balance = %s want 500", balance)
	}
	balanceEquals(t, s, "500")
}

func TestDisburseFeesCreditBalanceNotPrincipal(t *testing.T) {
	s := newTestService(t)
	mustInvest(t, s, "1000")
	c := mustAdmit(t, s, "Karim", 1, decimal.Zero)

	_, balance, err := s.DisburseLoan(DisburseRequest{
		CustomerID:    c.ID,
		Amount:        dec("500"),
		Interest:      dec("10"),
		ServiceCharge: dec("20"),
		WelfareFee:    dec("10"),
		DueDate:       time.Now().AddDate(0, 6, 0),
	})
	if err != nil {
		t.Fatalf("disburse: %v", err)
	}
	// fees come back into cash but never into the customer's debt
	if !balance.Equal(dec("530")) {
		t.Fatalf("balance = %s want 530", balance)
	}
	got := reloadCustomer(t, s, c.ID)
	if !got.TotalLoan.Equal(dec("550")) {
		t.Fatalf("total loan = %s want 550", got.TotalLoan)
	}
}

func TestDisburseInsufficientBalanceRejectedWithoutMutation(t *testing.T) {
	s := newTestService(t)
	mustInvest(t, s, "100")
	c := mustAdmit(t, s, "Karim", 1, decimal.Zero)

	_, _, err := s.DisburseLoan(DisburseRequest{
		CustomerID: c.ID,
		Amount:     dec("500"),
		Interest:   dec("10"),
		DueDate:    time.Now().AddDate(0, 6, 0),
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds got %v", err)
	}
	got := reloadCustomer(t, s, c.ID)
	if !got.TotalLoan.IsZero() || !got.RemainingLoan.IsZero() {
		t.Fatalf("customer mutated on rejected disbursement: %s/%s", got.TotalLoan, got.RemainingLoan)
	}
	balanceEquals(t, s, "100")
	var loanCount int64
	s.db.Model(&models.Loan{}).Count(&loanCount)
	if loanCount != 0 {
		t.Fatalf("loan row created on rejected disbursement")
	}
}

func TestCollectLoanReducesRemaining(t *testing.T) {
	// remaining 550; collect 200 -> remaining 350, balance +200.
	s := newTestService(t)
	mustInvest(t, s, "1000")
	c := mustAdmit(t, s, "Rahima", 1, decimal.Zero)
	if _, _, err := s.DisburseLoan(DisburseRequest{
		CustomerID: c.ID, Amount: dec("500"), Interest: dec("10"),
		DueDate: time.Now().AddDate(0, 6, 0),
	}); err != nil {
		t.Fatalf("disburse: %v", err)
	}

	col, balance, err := s.CollectLoan(c.ID, dec("200"), 1)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if col.ReceiptNo == "" {
		t.Fatalf("collection has no receipt number")
	}
	got := reloadCustomer(t, s, c.ID)
	if !got.RemainingLoan.Equal(dec("350")) {
		t.Fatalf("remaining = %s want 350", got.RemainingLoan)
	}
	if !balance.Equal(dec("700")) {
		t.Fatalf("balance = %s want 700", balance)
	}
}

func TestOverpaymentRejectedWithoutMutation(t *testing.T) {
	// remaining 550; collect 600 -> rejected, remaining still 550.
	s := newTestService(t)
	mustInvest(t, s, "1000")
	c := mustAdmit(t, s, "Rahima", 1, decimal.Zero)
	if _, _, err := s.DisburseLoan(DisburseRequest{
		CustomerID: c.ID, Amount: dec("500"), Interest: dec("10"),
		DueDate: time.Now().AddDate(0, 6, 0),
	}); err != nil {
		t.Fatalf("disburse: %v", err)
	}

	_, _, err := s.CollectLoan(c.ID, dec("600"), 1)
	if !errors.Is(err, ErrOverpayment) {
		t.Fatalf("expected ErrOverpayment got %v", err)
	}
	got := reloadCustomer(t, s, c.ID)
	if !got.RemainingLoan.Equal(dec("550")) {
		t.Fatalf("remaining = %s want 550", got.RemainingLoan)
	}
	balanceEquals(t, s, "500")
	var count int64
	s.db.Model(&models.LoanCollection{}).Count(&count)
	if count != 0 {
		t.Fatalf("collection row created on rejected overpayment")
	}
}

func TestCollectLoanValidation(t *testing.T) {
	s := newTestService(t)
	c := mustAdmit(t, s, "Rahima", 1, decimal.Zero)

	var ve *ValidationError
	if _, _, err := s.CollectLoan(c.ID, decimal.Zero, 1); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for zero amount got %v", err)
	}
	if _, _, err := s.CollectLoan(9999, dec("10"), 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown customer got %v", err)
	}
	if _, _, err := s.CollectLoan(c.ID, dec("10"), 1); !errors.Is(err, ErrNoOutstandingLoan) {
		t.Fatalf("expected ErrNoOutstandingLoan got %v", err)
	}
}

func TestSavingsWithdrawalBoundedByCustomerBalance(t *testing.T) {
	s := newTestService(t)
	mustInvest(t, s, "1000")
	c := mustAdmit(t, s, "Rahima", 1, decimal.Zero)
	if _, _, err := s.CollectSaving(c.ID, dec("100"), 1); err != nil {
		t.Fatalf("collect saving: %v", err)
	}

	cid := c.ID
	if _, err := s.Withdraw(WithdrawRequest{CustomerID: &cid, Amount: dec("150")}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds for savings overdraw got %v", err)
	}
	got := reloadCustomer(t, s, c.ID)
	if !got.SavingsBalance.Equal(dec("100")) {
		t.Fatalf("savings mutated on rejected withdrawal: %s", got.SavingsBalance)
	}

	balance, err := s.Withdraw(WithdrawRequest{CustomerID: &cid, Amount: dec("60")})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	got = reloadCustomer(t, s, c.ID)
	if !got.SavingsBalance.Equal(dec("40")) {
		t.Fatalf("savings = %s want 40", got.SavingsBalance)
	}
	if !balance.Equal(dec("1040")) {
		t.Fatalf("balance = %s want 1040", balance)
	}
}

func TestCombinedCollectWithoutLoanReportsNoOutstanding(t *testing.T) {
	s := newTestService(t)
	mustInvest(t, s, "1000")
	c := mustAdmit(t, s, "Rahima", 1, decimal.Zero)

	if _, err := s.Collect(c.ID, dec("100"), dec("50"), 1); !errors.Is(err, ErrNoOutstandingLoan) {
		t.Fatalf("expected ErrNoOutstandingLoan got %v", err)
	}
	got := reloadCustomer(t, s, c.ID)
	if !got.SavingsBalance.IsZero() {
		t.Fatalf("saving applied despite rejected loan part: %s", got.SavingsBalance)
	}
}

func TestCombinedCollectIsAtomic(t *testing.T) {
	s := newTestService(t)
	mustInvest(t, s, "1000")
	c := mustAdmit(t, s, "Rahima", 1, decimal.Zero)
	if _, _, err := s.DisburseLoan(DisburseRequest{
		CustomerID: c.ID, Amount: dec("500"), Interest: dec("10"),
		DueDate: time.Now().AddDate(0, 6, 0),
	}); err != nil {
		t.Fatalf("disburse: %v", err)
	}

	// loan part overpays, so the saving part must be rolled back too
	if _, err := s.Collect(c.ID, dec("600"), dec("50"), 1); !errors.Is(err, ErrOverpayment) {
		t.Fatalf("expected ErrOverpayment got %v", err)
	}
	got := reloadCustomer(t, s, c.ID)
	if !got.SavingsBalance.IsZero() {
		t.Fatalf("saving applied despite rejected loan part: %s", got.SavingsBalance)
	}
	var count int64
	s.db.Model(&models.SavingCollection{}).Count(&count)
	if count != 0 {
		t.Fatalf("saving collection row left behind")
	}

	res, err := s.Collect(c.ID, dec("200"), dec("50"), 1)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if res.Loan == nil || res.Saving == nil {
		t.Fatalf("expected both collection rows, got %+v", res)
	}
	if !res.Balance.Equal(dec("750")) {
		t.Fatalf("balance = %s want 750", res.Balance)
	}
}

func TestBalanceEqualsSumOfSignedEffects(t *testing.T) {
	// Replay a mixed sequence; the balance must equal the signed sum:
	// +100 admission +1000 investment -500+30 disbursement +200 installment
	// +150 saving -50 withdrawal -80 expense = 850.
	s := newTestService(t)
	c := mustAdmit(t, s, "Rahima", 1, dec("100"))
	mustInvest(t, s, "1000")
	if _, _, err := s.DisburseLoan(DisburseRequest{
		CustomerID: c.ID, Amount: dec("500"), Interest: dec("10"),
		ServiceCharge: dec("20"), WelfareFee: dec("10"),
		DueDate: time.Now().AddDate(0, 6, 0),
	}); err != nil {
		t.Fatalf("disburse: %v", err)
	}
	if _, _, err := s.CollectLoan(c.ID, dec("200"), 1); err != nil {
		t.Fatalf("collect loan: %v", err)
	}
	if _, _, err := s.CollectSaving(c.ID, dec("150"), 1); err != nil {
		t.Fatalf("collect saving: %v", err)
	}
	cid := c.ID
	if _, err := s.Withdraw(WithdrawRequest{CustomerID: &cid, Amount: dec("50")}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, err := s.RecordExpense(models.ExpenseOffice, dec("80"), "rent"); err != nil {
		t.Fatalf("expense: %v", err)
	}
	balanceEquals(t, s, "850")
}

func TestExpenseRequiresCoverage(t *testing.T) {
	s := newTestService(t)
	mustInvest(t, s, "50")
	if _, err := s.RecordExpense(models.ExpenseSalary, dec("80"), ""); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds got %v", err)
	}
	balanceEquals(t, s, "50")
}
