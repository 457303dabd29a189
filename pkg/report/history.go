package report

import (
	"fmt"
	"time"

	"shomiti/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CollectionsFilter narrows a collection history query. StaffID 0 and empty
// Customer mean no filter; Period is all/daily/monthly/yearly.
type CollectionsFilter struct {
	StaffID      uint
	CustomerName string
	Period       string
}

// CollectionsHistory is the filtered event lists plus totals.
type CollectionsHistory struct {
	LoanCollections   []models.LoanCollection   `json:"loan_collections"`
	SavingCollections []models.SavingCollection `json:"saving_collections"`
	TotalLoan         decimal.Decimal           `json:"total_loan"`
	TotalSaving       decimal.Decimal           `json:"total_saving"`
}

func (s *Service) collectionQuery(model any, f CollectionsFilter) *gorm.DB {
	q := s.db.Model(model).Preload("Customer").Preload("Staff")
	if f.StaffID != 0 {
		q = q.Where("staff_id = ?", f.StaffID)
	}
	if w, ok := PeriodWindow(f.Period, time.Now()); ok {
		q = inWindow(q, "collection_date", w)
	}
	if f.CustomerName != "" {
		q = q.Where("customer_id IN (?)",
			s.db.Model(&models.Customer{}).Select("id").Where("name LIKE ?", "%"+f.CustomerName+"%"))
	}
	return q.Order("collection_date desc")
}

// Collections returns the loan and saving collection history under a filter.
func (s *Service) Collections(f CollectionsFilter) (*CollectionsHistory, error) {
	h := &CollectionsHistory{}
	if err := s.collectionQuery(&models.LoanCollection{}, f).Find(&h.LoanCollections).Error; err != nil {
		return nil, fmt.Errorf("load loan collections: %w", err)
	}
	if err := s.collectionQuery(&models.SavingCollection{}, f).Find(&h.SavingCollections).Error; err != nil {
		return nil, fmt.Errorf("load saving collections: %w", err)
	}
	for _, lc := range h.LoanCollections {
		h.TotalLoan = h.TotalLoan.Add(lc.Amount)
	}
	for _, sc := range h.SavingCollections {
		h.TotalSaving = h.TotalSaving.Add(sc.Amount)
	}
	return h, nil
}

// WithdrawalSummary lists withdrawals with totals split by type.
type WithdrawalSummary struct {
	Withdrawals     []models.Withdrawal `json:"withdrawals"`
	Total           decimal.Decimal     `json:"total"`
	SavingsTotal    decimal.Decimal     `json:"savings_total"`
	InvestmentTotal decimal.Decimal     `json:"investment_total"`
}

func (s *Service) WithdrawalReport() (*WithdrawalSummary, error) {
	r := &WithdrawalSummary{}
	if err := s.db.Preload("Customer").Order("date desc").Find(&r.Withdrawals).Error; err != nil {
		return nil, fmt.Errorf("load withdrawals: %w", err)
	}
	for _, wd := range r.Withdrawals {
		r.Total = r.Total.Add(wd.Amount)
		switch wd.WithdrawalType {
		case models.WithdrawalTypeSavings:
			r.SavingsTotal = r.SavingsTotal.Add(wd.Amount)
		case models.WithdrawalTypeInvestment:
			r.InvestmentTotal = r.InvestmentTotal.Add(wd.Amount)
		}
	}
	return r, nil
}

// StaffDay is a staff member's collection totals for one day.
type StaffDay struct {
	StaffID     uint            `json:"staff_id"`
	Date        string          `json:"date"`
	TotalLoan   decimal.Decimal `json:"total_loan"`
	TotalSaving decimal.Decimal `json:"total_saving"`
}

func (s *Service) StaffDayReport(staffID uint, date time.Time) (*StaffDay, error) {
	w := Day(date)
	r := &StaffDay{StaffID: staffID, Date: w.Start.Format("2006-01-02")}

	var loanCols []models.LoanCollection
	if err := inWindow(s.db.Where("staff_id = ?", staffID), "collection_date", w).
		Find(&loanCols).Error; err != nil {
		return nil, fmt.Errorf("load loan collections: %w", err)
	}
	for _, lc := range loanCols {
		r.TotalLoan = r.TotalLoan.Add(lc.Amount)
	}
	var savingCols []models.SavingCollection
	if err := inWindow(s.db.Where("staff_id = ?", staffID), "collection_date", w).
		Find(&savingCols).Error; err != nil {
		return nil, fmt.Errorf("load saving collections: %w", err)
	}
	for _, sc := range savingCols {
		r.TotalSaving = r.TotalSaving.Add(sc.Amount)
	}
	return r, nil
}

// AdminDashboard is the headline numbers on the admin landing page.
type AdminDashboard struct {
	StaffCount     int64           `json:"staff_count"`
	TotalCustomers int64           `json:"total_customers"`
	TotalLoans     decimal.Decimal `json:"total_loans"`
	PendingLoans   decimal.Decimal `json:"pending_loans"`
	TotalSavings   decimal.Decimal `json:"total_savings"`
	TotalFees      decimal.Decimal `json:"total_fees"`
	CashBalance    decimal.Decimal `json:"cash_balance"`
}

func (s *Service) AdminSummary() (*AdminDashboard, error) {
	d := &AdminDashboard{}
	if err := s.db.Model(&models.User{}).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.name = ?", models.RoleStaff).
		Count(&d.StaffCount).Error; err != nil {
		return nil, fmt.Errorf("count staff: %w", err)
	}
	var customers []models.Customer
	if err := s.db.Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	d.TotalCustomers = int64(len(customers))
	for _, c := range customers {
		d.TotalLoans = d.TotalLoans.Add(c.TotalLoan)
		d.PendingLoans = d.PendingLoans.Add(c.RemainingLoan)
		d.TotalSavings = d.TotalSavings.Add(c.SavingsBalance)
		d.TotalFees = d.TotalFees.Add(c.AdmissionFee)
	}
	var loans []models.Loan
	if err := s.db.Find(&loans).Error; err != nil {
		return nil, fmt.Errorf("load loans: %w", err)
	}
	for _, l := range loans {
		d.TotalFees = d.TotalFees.Add(l.WelfareFee).Add(l.ServiceCharge)
	}
	var cash models.CashBalance
	if err := s.db.First(&cash).Error; err == nil {
		d.CashBalance = cash.Balance
	}
	return d, nil
}

// StaffDashboard is the headline numbers on a staff member's landing page.
type StaffDashboard struct {
	MyCustomers      int64           `json:"my_customers"`
	TotalRemaining   decimal.Decimal `json:"total_remaining"`
	TodayCollections int64           `json:"today_collections"`
	UnreadMessages   int64           `json:"unread_messages"`
}

func (s *Service) StaffSummary(staffID uint) (*StaffDashboard, error) {
	d := &StaffDashboard{}
	var customers []models.Customer
	if err := s.db.Where("staff_id = ?", staffID).Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	d.MyCustomers = int64(len(customers))
	for _, c := range customers {
		d.TotalRemaining = d.TotalRemaining.Add(c.RemainingLoan)
	}

	w := Day(time.Now())
	var loanToday, savingToday int64
	if err := inWindow(s.db.Model(&models.LoanCollection{}).Where("staff_id = ?", staffID),
		"collection_date", w).Count(&loanToday).Error; err != nil {
		return nil, fmt.Errorf("count loan collections: %w", err)
	}
	if err := inWindow(s.db.Model(&models.SavingCollection{}).Where("staff_id = ?", staffID),
		"collection_date", w).Count(&savingToday).Error; err != nil {
		return nil, fmt.Errorf("count saving collections: %w", err)
	}
	d.TodayCollections = loanToday + savingToday

	if err := s.db.Model(&models.Message{}).
		Where("staff_id = ? AND is_read = ?", staffID, false).
		Count(&d.UnreadMessages).Error; err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	return d, nil
}
