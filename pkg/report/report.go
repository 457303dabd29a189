// Package report derives figures from the raw event history. It never reads
// the cached customer totals for money figures; interest is recomputed from the
// loan rows themselves, so a drifted cache cannot leak into a report.
package report

import (
	"fmt"
	"time"

	"shomiti/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service answers read-only reporting queries over the event tables.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Day returns the window covering the calendar day of t.
func Day(t time.Time) Window {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// Month returns the window covering the given calendar month.
func Month(year int, month time.Month) Window {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// PeriodWindow maps a period name (daily, weekly, monthly, yearly) onto a
// window ending now. Returns ok=false for "all".
func PeriodWindow(period string, now time.Time) (Window, bool) {
	switch period {
	case "daily":
		return Window{Start: Day(now).Start, End: now.Add(time.Second)}, true
	case "weekly":
		return Window{Start: now.AddDate(0, 0, -7), End: now.Add(time.Second)}, true
	case "monthly":
		return Window{Start: now.AddDate(0, -1, 0), End: now.Add(time.Second)}, true
	case "yearly":
		return Window{Start: now.AddDate(-1, 0, 0), End: now.Add(time.Second)}, true
	default:
		return Window{}, false
	}
}

// ProfitLossStart anchors a profit/loss period at its calendar boundary:
// daily at midnight, monthly at the first of the current month, anything
// else at January 1 of the current year. "all" returns the zero time so the
// whole history is covered.
func ProfitLossStart(period string, now time.Time) time.Time {
	switch period {
	case "all":
		return time.Time{}
	case "daily":
		return Day(now).Start
	case "monthly":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	}
}

func inWindow(q *gorm.DB, col string, w Window) *gorm.DB {
	return q.Where(col+" >= ? AND "+col+" < ?", w.Start, w.End)
}

// CustomerDay is one customer's collected amounts within a daily report.
type CustomerDay struct {
	CustomerID   uint            `json:"customer_id"`
	Name         string          `json:"name"`
	MemberNo     string          `json:"member_no"`
	LoanAmount   decimal.Decimal `json:"loan_amount"`
	SavingAmount decimal.Decimal `json:"saving_amount"`
}

// DailyReport is the admin end-of-day sheet.
type DailyReport struct {
	Date              string          `json:"date"`
	Installments      decimal.Decimal `json:"installments"`
	Savings           decimal.Decimal `json:"savings"`
	AdmissionFees     decimal.Decimal `json:"admission_fees"`
	WelfareFees       decimal.Decimal `json:"welfare_fees"`
	ServiceCharges    decimal.Decimal `json:"service_charges"`
	LoansDistributed  decimal.Decimal `json:"loans_distributed"`
	Withdrawals       decimal.Decimal `json:"withdrawals"`
	Expenses          decimal.Decimal `json:"expenses"`
	TotalIncome       decimal.Decimal `json:"total_income"`
	TotalOutflow      decimal.Decimal `json:"total_outflow"`
	CustomerBreakdown []CustomerDay   `json:"customers"`
}

// Daily builds the end-of-day sheet for one calendar day. Net daily balance
// is total inflow (collections + fees) minus total outflow (disbursements +
// withdrawals + expenses).
func (s *Service) Daily(date time.Time) (*DailyReport, error) {
	w := Day(date)

	var loanCols []models.LoanCollection
	if err := inWindow(s.db, "collection_date", w).Find(&loanCols).Error; err != nil {
		return nil, fmt.Errorf("load loan collections: %w", err)
	}
	var savingCols []models.SavingCollection
	if err := inWindow(s.db, "collection_date", w).Find(&savingCols).Error; err != nil {
		return nil, fmt.Errorf("load saving collections: %w", err)
	}
	var loans []models.Loan
	if err := inWindow(s.db, "loan_date", w).Find(&loans).Error; err != nil {
		return nil, fmt.Errorf("load loans: %w", err)
	}
	var withdrawals []models.Withdrawal
	if err := inWindow(s.db, "date", w).Find(&withdrawals).Error; err != nil {
		return nil, fmt.Errorf("load withdrawals: %w", err)
	}
	var expenses []models.Expense
	if err := inWindow(s.db, "date", w).Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	var admitted []models.Customer
	if err := inWindow(s.db, "created_at", w).Find(&admitted).Error; err != nil {
		return nil, fmt.Errorf("load admitted customers: %w", err)
	}

	r := &DailyReport{Date: w.Start.Format("2006-01-02")}
	for _, lc := range loanCols {
		r.Installments = r.Installments.Add(lc.Amount)
	}
	for _, sc := range savingCols {
		r.Savings = r.Savings.Add(sc.Amount)
	}
	for _, c := range admitted {
		r.AdmissionFees = r.AdmissionFees.Add(c.AdmissionFee)
	}
	for _, l := range loans {
		r.WelfareFees = r.WelfareFees.Add(l.WelfareFee)
		r.ServiceCharges = r.ServiceCharges.Add(l.ServiceCharge)
		r.LoansDistributed = r.LoansDistributed.Add(l.Amount)
	}
	for _, wd := range withdrawals {
		r.Withdrawals = r.Withdrawals.Add(wd.Amount)
	}
	for _, e := range expenses {
		r.Expenses = r.Expenses.Add(e.Amount)
	}
	r.TotalIncome = r.Installments.Add(r.Savings).Add(r.AdmissionFees).
		Add(r.WelfareFees).Add(r.ServiceCharges)
	r.TotalOutflow = r.LoansDistributed.Add(r.Withdrawals).Add(r.Expenses)

	// per-customer rows, ordered by member number
	var customers []models.Customer
	if err := s.db.Order("member_no").Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	loanBy := map[uint]decimal.Decimal{}
	for _, lc := range loanCols {
		loanBy[lc.CustomerID] = loanBy[lc.CustomerID].Add(lc.Amount)
	}
	savingBy := map[uint]decimal.Decimal{}
	for _, sc := range savingCols {
		savingBy[sc.CustomerID] = savingBy[sc.CustomerID].Add(sc.Amount)
	}
	for _, c := range customers {
		la, sa := loanBy[c.ID], savingBy[c.ID]
		if la.IsZero() && sa.IsZero() {
			continue
		}
		r.CustomerBreakdown = append(r.CustomerBreakdown, CustomerDay{
			CustomerID: c.ID, Name: c.Name, MemberNo: c.MemberNo,
			LoanAmount: la, SavingAmount: sa,
		})
	}
	return r, nil
}

// MonthlyDay is one row of the monthly ledger sheet.
type MonthlyDay struct {
	Day              int             `json:"day"`
	Installments     decimal.Decimal `json:"installments"`
	Savings          decimal.Decimal `json:"savings"`
	AdmissionFees    decimal.Decimal `json:"admission_fees"`
	WelfareFees      decimal.Decimal `json:"welfare_fees"`
	ServiceCharges   decimal.Decimal `json:"service_charges"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	LoanGiven        decimal.Decimal `json:"loan_given"`
	Interest         decimal.Decimal `json:"interest"`
	LoanWithInterest decimal.Decimal `json:"loan_with_interest"`
	SavingsReturn    decimal.Decimal `json:"savings_return"`
	Expenses         decimal.Decimal `json:"expenses"`
	TotalExpense     decimal.Decimal `json:"total_expense"`
	Net              decimal.Decimal `json:"net"`
	Weekend          bool            `json:"weekend"`
}

// MonthlyReport is the month ledger sheet plus totals.
type MonthlyReport struct {
	Year                 int             `json:"year"`
	Month                time.Month      `json:"month"`
	Days                 []MonthlyDay    `json:"days"`
	TotalCapitalSavings  decimal.Decimal `json:"total_capital_savings"`
	TotalLoanDistributed decimal.Decimal `json:"total_loan_distributed"`
	TotalInterest        decimal.Decimal `json:"total_interest"`
	TotalExpenses        decimal.Decimal `json:"total_expenses"`
	CurrentRemaining     decimal.Decimal `json:"current_remaining"`
	CashBalance          decimal.Decimal `json:"cash_balance"`
}

// Monthly builds the per-day ledger sheet for a month. Interest is derived
// from the loan rows (amount * rate / 100), never read from a stored total.
func (s *Service) Monthly(year int, month time.Month) (*MonthlyReport, error) {
	w := Month(year, month)
	lastDay := w.End.AddDate(0, 0, -1).Day()

	var loanCols []models.LoanCollection
	if err := inWindow(s.db, "collection_date", w).Find(&loanCols).Error; err != nil {
		return nil, fmt.Errorf("load loan collections: %w", err)
	}
	var savingCols []models.SavingCollection
	if err := inWindow(s.db, "collection_date", w).Find(&savingCols).Error; err != nil {
		return nil, fmt.Errorf("load saving collections: %w", err)
	}
	var loans []models.Loan
	if err := inWindow(s.db, "loan_date", w).Find(&loans).Error; err != nil {
		return nil, fmt.Errorf("load loans: %w", err)
	}
	var withdrawals []models.Withdrawal
	if err := inWindow(s.db, "date", w).Find(&withdrawals).Error; err != nil {
		return nil, fmt.Errorf("load withdrawals: %w", err)
	}
	var expenses []models.Expense
	if err := inWindow(s.db, "date", w).Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	var admitted []models.Customer
	if err := inWindow(s.db, "created_at", w).Find(&admitted).Error; err != nil {
		return nil, fmt.Errorf("load admitted customers: %w", err)
	}

	r := &MonthlyReport{Year: year, Month: month, Days: make([]MonthlyDay, lastDay)}
	for d := 1; d <= lastDay; d++ {
		wd := time.Date(year, month, d, 0, 0, 0, 0, time.Local).Weekday()
		r.Days[d-1] = MonthlyDay{
			Day:     d,
			Weekend: wd == time.Friday || wd == time.Saturday,
		}
	}
	dayOf := func(t time.Time) *MonthlyDay {
		d := t.Day()
		if d < 1 || d > lastDay {
			return nil
		}
		return &r.Days[d-1]
	}

	for _, lc := range loanCols {
		if row := dayOf(lc.CollectionDate); row != nil {
			row.Installments = row.Installments.Add(lc.Amount)
		}
	}
	for _, sc := range savingCols {
		if row := dayOf(sc.CollectionDate); row != nil {
			row.Savings = row.Savings.Add(sc.Amount)
		}
		r.TotalCapitalSavings = r.TotalCapitalSavings.Add(sc.Amount)
	}
	for _, c := range admitted {
		if row := dayOf(c.CreatedAt); row != nil {
			row.AdmissionFees = row.AdmissionFees.Add(c.AdmissionFee)
		}
	}
	for _, l := range loans {
		interest := l.InterestAmount()
		if row := dayOf(l.LoanDate); row != nil {
			row.WelfareFees = row.WelfareFees.Add(l.WelfareFee)
			row.ServiceCharges = row.ServiceCharges.Add(l.ServiceCharge)
			row.LoanGiven = row.LoanGiven.Add(l.Amount)
			row.Interest = row.Interest.Add(interest)
		}
		r.TotalLoanDistributed = r.TotalLoanDistributed.Add(l.Amount)
		r.TotalInterest = r.TotalInterest.Add(interest)
	}
	for _, wd := range withdrawals {
		if row := dayOf(wd.Date); row != nil {
			row.SavingsReturn = row.SavingsReturn.Add(wd.Amount)
		}
	}
	for _, e := range expenses {
		if row := dayOf(e.Date); row != nil {
			row.Expenses = row.Expenses.Add(e.Amount)
		}
		r.TotalExpenses = r.TotalExpenses.Add(e.Amount)
	}

	for i := range r.Days {
		row := &r.Days[i]
		row.LoanWithInterest = row.LoanGiven.Add(row.Interest)
		row.TotalIncome = row.Installments.Add(row.Savings).
			Add(row.AdmissionFees).Add(row.WelfareFees).Add(row.ServiceCharges)
		row.TotalExpense = row.LoanGiven.Add(row.SavingsReturn).Add(row.Expenses)
		row.Net = row.TotalIncome.Sub(row.TotalExpense)
	}

	var customers []models.Customer
	if err := s.db.Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	for _, c := range customers {
		r.CurrentRemaining = r.CurrentRemaining.Add(c.RemainingLoan)
	}
	var cash models.CashBalance
	if err := s.db.First(&cash).Error; err == nil {
		r.CashBalance = cash.Balance
	}
	return r, nil
}

// ProfitLoss is the income statement for a period.
type ProfitLoss struct {
	Period           string          `json:"period"`
	LoanCollected    decimal.Decimal `json:"loan_collected"`
	SavingsCollected decimal.Decimal `json:"savings_collected"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	Expenses         decimal.Decimal `json:"expenses"`
	Withdrawals      decimal.Decimal `json:"withdrawals"`
	LoansGiven       decimal.Decimal `json:"loans_given"`
	NetProfit        decimal.Decimal `json:"net_profit"`
}

// ProfitLossSince sums income against outgo from start to now.
func (s *Service) ProfitLossSince(period string, start time.Time) (*ProfitLoss, error) {
	w := Window{Start: start, End: time.Now().Add(time.Second)}

	r := &ProfitLoss{Period: period}
	var loanCols []models.LoanCollection
	if err := inWindow(s.db, "collection_date", w).Find(&loanCols).Error; err != nil {
		return nil, fmt.Errorf("load loan collections: %w", err)
	}
	for _, lc := range loanCols {
		r.LoanCollected = r.LoanCollected.Add(lc.Amount)
	}
	var savingCols []models.SavingCollection
	if err := inWindow(s.db, "collection_date", w).Find(&savingCols).Error; err != nil {
		return nil, fmt.Errorf("load saving collections: %w", err)
	}
	for _, sc := range savingCols {
		r.SavingsCollected = r.SavingsCollected.Add(sc.Amount)
	}
	var expenses []models.Expense
	if err := inWindow(s.db, "date", w).Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	for _, e := range expenses {
		r.Expenses = r.Expenses.Add(e.Amount)
	}
	var withdrawals []models.Withdrawal
	if err := inWindow(s.db, "date", w).Find(&withdrawals).Error; err != nil {
		return nil, fmt.Errorf("load withdrawals: %w", err)
	}
	for _, wd := range withdrawals {
		r.Withdrawals = r.Withdrawals.Add(wd.Amount)
	}
	var loans []models.Loan
	if err := inWindow(s.db, "loan_date", w).Find(&loans).Error; err != nil {
		return nil, fmt.Errorf("load loans: %w", err)
	}
	for _, l := range loans {
		r.LoansGiven = r.LoansGiven.Add(l.Amount)
	}

	r.TotalIncome = r.LoanCollected.Add(r.SavingsCollected)
	r.NetProfit = r.TotalIncome.Sub(r.Expenses.Add(r.Withdrawals).Add(r.LoansGiven))
	return r, nil
}
