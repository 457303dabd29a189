package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"shomiti/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// Service applies every cash-moving operation as one atomic unit: validate,
// mutate the implicated customer fields, move the singleton cash balance by
// the same signed amount, insert one history row. A single mutex serializes
// all mutations so the balance row never sees concurrent read-modify-write,
// and each operation runs inside one database transaction so a rejection
// leaves no partial state behind.
type Service struct {
	db  *gorm.DB
	mu  sync.Mutex
	now func() time.Time
}

// New creates a ledger Service on top of a gorm connection.
func New(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// cashForUpdate loads the singleton balance row, creating it at zero on
// first use.
func (s *Service) cashForUpdate(tx *gorm.DB) (*models.CashBalance, error) {
	var cash models.CashBalance
	if err := tx.First(&cash).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load cash balance: %w", err)
		}
		cash = models.CashBalance{Balance: decimal.Zero}
		if err := tx.Create(&cash).Error; err != nil {
			return nil, fmt.Errorf("create cash balance: %w", err)
		}
	}
	return &cash, nil
}

func (s *Service) customer(tx *gorm.DB, id uint) (*models.Customer, error) {
	var c models.Customer
	if err := tx.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("customer %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load customer %d: %w", id, err)
	}
	return &c, nil
}

// Balance returns the current cash balance (zero when no row exists yet).
func (s *Service) Balance() (decimal.Decimal, error) {
	var cash models.CashBalance
	if err := s.db.First(&cash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("load cash balance: %w", err)
	}
	return cash.Balance, nil
}

// AdmitCustomer creates a member and credits the admission fee to the cash
// balance. Returns the updated balance.
func (s *Service) AdmitCustomer(c *models.Customer) (decimal.Decimal, error) {
	if c.Name == "" {
		return decimal.Zero, &ValidationError{Field: "name", Reason: "required"}
	}
	if c.AdmissionFee.Sign() < 0 {
		return decimal.Zero, &ValidationError{Field: "admission_fee", Reason: "must not be negative"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var balance decimal.Decimal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		cash, err := s.cashForUpdate(tx)
		if err != nil {
			return err
		}
		cash.Balance = cash.Balance.Add(c.AdmissionFee)
		if err := tx.Save(cash).Error; err != nil {
			return fmt.Errorf("save cash balance: %w", err)
		}
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("create customer: %w", err)
		}
		balance = cash.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// DisburseRequest describes a loan disbursement.
type DisburseRequest struct {
	CustomerID        uint
	Amount            decimal.Decimal
	Interest          decimal.Decimal // percent
	DueDate           time.Time
	InstallmentCount  int
	InstallmentAmount decimal.Decimal
	InstallmentType   string
	ServiceCharge     decimal.Decimal
	WelfareFee        decimal.Decimal
}

// DisburseLoan issues a loan: the customer's loan totals grow by
// amount + interest, the cash balance drops by the principal and gains the
// service charge and welfare fee. Rejected without mutation when the balance
// cannot cover the principal.
func (s *Service) DisburseLoan(req DisburseRequest) (*models.Loan, decimal.Decimal, error) {
	if req.Amount.Sign() <= 0 {
		return nil, decimal.Zero, errPositive("amount")
	}
	if req.Interest.Sign() < 0 {
		return nil, decimal.Zero, &ValidationError{Field: "interest", Reason: "must not be negative"}
	}
	if req.ServiceCharge.Sign() < 0 || req.WelfareFee.Sign() < 0 {
		return nil, decimal.Zero, &ValidationError{Field: "fees", Reason: "must not be negative"}
	}
	if req.DueDate.IsZero() {
		return nil, decimal.Zero, &ValidationError{Field: "due_date", Reason: "required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		loan    *models.Loan
		balance decimal.Decimal
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		customer, err := s.customer(tx, req.CustomerID)
		if err != nil {
			return err
		}
		cash, err := s.cashForUpdate(tx)
		if err != nil {
			return err
		}
		if cash.Balance.LessThan(req.Amount) {
			return ErrInsufficientFunds
		}

		interestAmount := req.Amount.Mul(req.Interest).Div(hundred)
		withInterest := req.Amount.Add(interestAmount)

		loan = &models.Loan{
			CustomerName:      customer.Name,
			Amount:            req.Amount,
			Interest:          req.Interest,
			LoanDate:          s.now(),
			DueDate:           req.DueDate,
			InstallmentCount:  req.InstallmentCount,
			InstallmentAmount: req.InstallmentAmount,
			InstallmentType:   req.InstallmentType,
			ServiceCharge:     req.ServiceCharge,
			WelfareFee:        req.WelfareFee,
			Status:            models.LoanStatusPending,
			StaffID:           customer.StaffID,
		}

		customer.TotalLoan = customer.TotalLoan.Add(withInterest)
		customer.RemainingLoan = customer.RemainingLoan.Add(withInterest)
		cash.Balance = cash.Balance.Sub(req.Amount).Add(req.ServiceCharge).Add(req.WelfareFee)

		if err := tx.Save(customer).Error; err != nil {
			return fmt.Errorf("save customer: %w", err)
		}
		if err := tx.Save(cash).Error; err != nil {
			return fmt.Errorf("save cash balance: %w", err)
		}
		if err := tx.Create(loan).Error; err != nil {
			return fmt.Errorf("create loan: %w", err)
		}
		balance = cash.Balance
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return loan, balance, nil
}

// CollectLoan records an installment payment. The amount must not exceed the
// customer's remaining loan.
func (s *Service) CollectLoan(customerID uint, amount decimal.Decimal, staffID uint) (*models.LoanCollection, decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return nil, decimal.Zero, errPositive("amount")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		col     *models.LoanCollection
		balance decimal.Decimal
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		customer, err := s.customer(tx, customerID)
		if err != nil {
			return err
		}
		if customer.RemainingLoan.Sign() <= 0 {
			return ErrNoOutstandingLoan
		}
		if amount.GreaterThan(customer.RemainingLoan) {
			return ErrOverpayment
		}
		cash, err := s.cashForUpdate(tx)
		if err != nil {
			return err
		}

		customer.RemainingLoan = customer.RemainingLoan.Sub(amount)
		cash.Balance = cash.Balance.Add(amount)
		col = &models.LoanCollection{
			CustomerID:     customer.ID,
			Amount:         amount,
			CollectionDate: s.now(),
			StaffID:        staffID,
			ReceiptNo:      uuid.NewString(),
		}

		if err := tx.Save(customer).Error; err != nil {
			return fmt.Errorf("save customer: %w", err)
		}
		if err := tx.Save(cash).Error; err != nil {
			return fmt.Errorf("save cash balance: %w", err)
		}
		if err := tx.Create(col).Error; err != nil {
			return fmt.Errorf("create loan collection: %w", err)
		}
		balance = cash.Balance
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return col, balance, nil
}

// CollectSaving records a savings deposit.
func (s *Service) CollectSaving(customerID uint, amount decimal.Decimal, staffID uint) (*models.SavingCollection, decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return nil, decimal.Zero, errPositive("amount")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		col     *models.SavingCollection
		balance decimal.Decimal
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		customer, err := s.customer(tx, customerID)
		if err != nil {
			return err
		}
		cash, err := s.cashForUpdate(tx)
		if err != nil {
			return err
		}

		customer.SavingsBalance = customer.SavingsBalance.Add(amount)
		cash.Balance = cash.Balance.Add(amount)
		col = &models.SavingCollection{
			CustomerID:     customer.ID,
			Amount:         amount,
			CollectionDate: s.now(),
			StaffID:        staffID,
			ReceiptNo:      uuid.NewString(),
		}

		if err := tx.Save(customer).Error; err != nil {
			return fmt.Errorf("save customer: %w", err)
		}
		if err := tx.Save(cash).Error; err != nil {
			return fmt.Errorf("save cash balance: %w", err)
		}
		if err := tx.Create(col).Error; err != nil {
			return fmt.Errorf("create saving collection: %w", err)
		}
		balance = cash.Balance
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return col, balance, nil
}

// CollectResult is the outcome of a combined loan+saving collection.
type CollectResult struct {
	Loan           *models.LoanCollection
	Saving         *models.SavingCollection
	Balance        decimal.Decimal
	RemainingLoan  decimal.Decimal
	SavingsBalance decimal.Decimal
}

// Collect records a loan installment and a savings deposit from the same
// visit as one atomic unit. Either amount may be zero, not both.
func (s *Service) Collect(customerID uint, loanAmount, savingAmount decimal.Decimal, staffID uint) (*CollectResult, error) {
	if loanAmount.Sign() < 0 || savingAmount.Sign() < 0 {
		return nil, &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if loanAmount.Sign() == 0 && savingAmount.Sign() == 0 {
		return nil, &ValidationError{Field: "amount", Reason: "loan or saving amount required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &CollectResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		customer, err := s.customer(tx, customerID)
		if err != nil {
			return err
		}
		cash, err := s.cashForUpdate(tx)
		if err != nil {
			return err
		}

		if loanAmount.Sign() > 0 {
			if customer.RemainingLoan.Sign() <= 0 {
				return ErrNoOutstandingLoan
			}
			if loanAmount.GreaterThan(customer.RemainingLoan) {
				return ErrOverpayment
			}
			customer.RemainingLoan = customer.RemainingLoan.Sub(loanAmount)
			cash.Balance = cash.Balance.Add(loanAmount)
			res.Loan = &models.LoanCollection{
				CustomerID:     customer.ID,
				Amount:         loanAmount,
				CollectionDate: s.now(),
				StaffID:        staffID,
				ReceiptNo:      uuid.NewString(),
			}
			if err := tx.Create(res.Loan).Error; err != nil {
				return fmt.Errorf("create loan collection: %w", err)
			}
		}
		if savingAmount.Sign() > 0 {
			customer.SavingsBalance = customer.SavingsBalance.Add(savingAmount)
			cash.Balance = cash.Balance.Add(savingAmount)
			res.Saving = &models.SavingCollection{
				CustomerID:     customer.ID,
				Amount:         savingAmount,
				CollectionDate: s.now(),
				StaffID:        staffID,
				ReceiptNo:      uuid.NewString(),
			}
			if err := tx.Create(res.Saving).Error; err != nil {
				return fmt.Errorf("create saving collection: %w", err)
			}
		}

		if err := tx.Save(customer).Error; err != nil {
			return fmt.Errorf("save customer: %w", err)
		}
		if err := tx.Save(cash).Error; err != nil {
			return fmt.Errorf("save cash balance: %w", err)
		}
		res.Balance = cash.Balance
		res.RemainingLoan = customer.RemainingLoan
		res.SavingsBalance = customer.SavingsBalance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AddInvestment credits investor capital to the cash balance.
func (s *Service) AddInvestment(investorName string, amount decimal.Decimal, note string) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, errPositive("amount")
	}
	if investorName == "" {
		return decimal.Zero, &ValidationError{Field: "investor_name", Reason: "required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var balance decimal.Decimal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		cash, err := s.cashForUpdate(tx)
		if err != nil {
			return err
		}
		cash.Balance = cash.Balance.Add(amount)
		inv := &models.Investment{
			InvestorName: investorName,
			Amount:       amount,
			Date:         s.now(),
			Note:         note,
		}
		if err := tx.Save(cash).Error; err != nil {
			return fmt.Errorf("save cash balance: %w", err)
		}
		if err := tx.Create(inv).Error; err != nil {
			return fmt.Errorf("create investment: %w", err)
		}
		balance = cash.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// WithdrawRequest describes cash leaving the balance.
type WithdrawRequest struct {
	CustomerID     *uint
	InvestorName   string
	Amount         decimal.Decimal
	Note           string
	WithdrawalType string // savings or investment, defaults to savings
}

// Withdraw debits the cash balance. A savings withdrawal tied to a customer
// also debits that customer's savings balance and must not exceed it.
func (s *Service) Withdraw(req WithdrawRequest) (decimal.Decimal, error) {
	if req.Amount.Sign() <= 0 {
		return decimal.Zero, errPositive("amount")
	}
	if req.WithdrawalType == "" {
		req.WithdrawalType = models.WithdrawalTypeSavings
	}
	if req.WithdrawalType != models.WithdrawalTypeSavings && req.WithdrawalType != models.WithdrawalTypeInvestment {
		return decimal.Zero, &ValidationError{Field: "withdrawal_type", Reason: "must be savings or investment"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var balance decimal.Decimal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		cash, err := s.cashForUpdate(tx)
		if err != nil {
			return err
		}
		if cash.Balance.LessThan(req.Amount) {
			return ErrInsufficientFunds
		}

		var customer *models.Customer
		if req.CustomerID != nil && req.WithdrawalType == models.WithdrawalTypeSavings {
			customer, err = s.customer(tx, *req.CustomerID)
			if err != nil {
				return err
			}
			if customer.SavingsBalance.LessThan(req.Amount) {
				return ErrInsufficientFunds
			}
			customer.SavingsBalance = customer.SavingsBalance.Sub(req.Amount)
			if err := tx.Save(customer).Error; err != nil {
				return fmt.Errorf("save customer: %w", err)
			}
		}

		cash.Balance = cash.Balance.Sub(req.Amount)
		wd := &models.Withdrawal{
			CustomerID:     req.CustomerID,
			InvestorName:   req.InvestorName,
			Amount:         req.Amount,
			Date:           s.now(),
			Note:           req.Note,
			WithdrawalType: req.WithdrawalType,
		}
		if err := tx.Save(cash).Error; err != nil {
			return fmt.Errorf("save cash balance: %w", err)
		}
		if err := tx.Create(wd).Error; err != nil {
			return fmt.Errorf("create withdrawal: %w", err)
		}
		balance = cash.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// RecordExpense debits an operating cost from the cash balance.
func (s *Service) RecordExpense(category string, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, errPositive("amount")
	}
	if category == "" {
		return decimal.Zero, &ValidationError{Field: "category", Reason: "required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var balance decimal.Decimal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		cash, err := s.cashForUpdate(tx)
		if err != nil {
			return err
		}
		if cash.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}
		cash.Balance = cash.Balance.Sub(amount)
		exp := &models.Expense{
			Category:    category,
			Amount:      amount,
			Description: description,
			Date:        s.now(),
		}
		if err := tx.Save(cash).Error; err != nil {
			return fmt.Errorf("save cash balance: %w", err)
		}
		if err := tx.Create(exp).Error; err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		balance = cash.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}
