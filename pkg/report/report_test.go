package report

import (
	"bytes"
	"fmt"
	"strings"
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
	dsn := fmt.Sprintf("file:report_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
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
		&models.Expense{}, &models.Message{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func mustCreate(t *testing.T, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

func eq(t *testing.T, got decimal.Decimal, want, label string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s = %s want %s", label, got, want)
	}
}

// March 2024 starts on a Friday, which makes the weekend flags easy to pin.
var day5 = time.Date(2024, time.March, 5, 10, 0, 0, 0, time.Local)

func seedDay(t *testing.T, db *gorm.DB) (staffID uint, customerID uint) {
	staff := models.User{Name: "Karim", Email: "karim@shomiti.test"}
	mustCreate(t, db, &staff)
	sid := staff.ID
	cust := models.Customer{Name: "Rahima Begum", MemberNo: "101",
		StaffID: &sid, AdmissionFee: dec("100")}
	cust.CreatedAt = day5
	mustCreate(t, db, &cust)

	mustCreate(t, db, &models.Loan{CustomerName: cust.Name,
		Amount: dec("1000"), Interest: dec("10"), LoanDate: day5,
		DueDate: day5.AddDate(0, 3, 0),
		ServiceCharge: dec("20"), WelfareFee: dec("30"), StaffID: &sid})
	mustCreate(t, db, &models.LoanCollection{CustomerID: cust.ID,
		Amount: dec("200"), CollectionDate: day5, StaffID: sid, ReceiptNo: "r-1"})
	mustCreate(t, db, &models.SavingCollection{CustomerID: cust.ID,
		Amount: dec("50"), CollectionDate: day5, StaffID: sid, ReceiptNo: "r-2"})
	mustCreate(t, db, &models.Withdrawal{CustomerID: &cust.ID, Amount: dec("40"),
		Date: day5, WithdrawalType: models.WithdrawalTypeSavings})
	mustCreate(t, db, &models.Expense{Category: models.ExpenseOffice,
		Amount: dec("25"), Date: day5})

	// next-day rows that a report for day 5 must not count
	next := day5.AddDate(0, 0, 1)
	mustCreate(t, db, &models.LoanCollection{CustomerID: cust.ID,
		Amount: dec("999"), CollectionDate: next, StaffID: sid, ReceiptNo: "r-3"})
	mustCreate(t, db, &models.Expense{Category: models.ExpenseTransport,
		Amount: dec("999"), Date: next})
	return sid, cust.ID
}

func TestDailyTotals(t *testing.T) {
	db := newTestDB(t)
	seedDay(t, db)

	r, err := New(db).Daily(day5)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	eq(t, r.Installments, "200", "installments")
	eq(t, r.Savings, "50", "savings")
	eq(t, r.AdmissionFees, "100", "admission fees")
	eq(t, r.WelfareFees, "30", "welfare fees")
	eq(t, r.ServiceCharges, "20", "service charges")
	eq(t, r.LoansDistributed, "1000", "loans distributed")
	eq(t, r.Withdrawals, "40", "withdrawals")
	eq(t, r.Expenses, "25", "expenses")
	eq(t, r.TotalIncome, "400", "total income")
	eq(t, r.TotalOutflow, "1065", "total outflow")

	if len(r.CustomerBreakdown) != 1 {
		t.Fatalf("breakdown rows = %d want 1", len(r.CustomerBreakdown))
	}
	eq(t, r.CustomerBreakdown[0].LoanAmount, "200", "breakdown loan")
	eq(t, r.CustomerBreakdown[0].SavingAmount, "50", "breakdown saving")
}

func TestMonthlyRecomputesInterestFromLoans(t *testing.T) {
	db := newTestDB(t)
	_, customerID := seedDay(t, db)

	// corrupt the cached totals; the report must not notice
	if err := db.Model(&models.Customer{}).Where("id = ?", customerID).
		Updates(map[string]any{"total_loan": "99999", "remaining_loan": "777"}).Error; err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	r, err := New(db).Monthly(2024, time.March)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	eq(t, r.TotalInterest, "100", "total interest")
	eq(t, r.TotalLoanDistributed, "1000", "loan distributed")
	eq(t, r.CurrentRemaining, "777", "current remaining")

	if len(r.Days) != 31 {
		t.Fatalf("days = %d want 31", len(r.Days))
	}
	row := r.Days[4]
	eq(t, row.Interest, "100", "day interest")
	eq(t, row.LoanWithInterest, "1100", "loan with interest")
	eq(t, row.TotalIncome, "400", "day income")
	if !row.Net.Equal(dec("-665")) {
		t.Fatalf("net = %s want -665", row.Net)
	}
}

func TestMonthlyWeekendFlags(t *testing.T) {
	db := newTestDB(t)
	r, err := New(db).Monthly(2024, time.March)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	// 1 Mar 2024 Friday, 2 Mar Saturday, 3 Mar Sunday
	if !r.Days[0].Weekend || !r.Days[1].Weekend {
		t.Fatalf("days 1-2 should be weekend")
	}
	if r.Days[2].Weekend {
		t.Fatalf("day 3 should be a working day")
	}
}

func TestPeriodWindow(t *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.Local)
	w, ok := PeriodWindow("daily", now)
	if !ok || w.Start.Day() != 15 {
		t.Fatalf("daily window = %+v ok=%v", w, ok)
	}
	w, ok = PeriodWindow("weekly", now)
	if !ok || !w.Start.Equal(now.AddDate(0, 0, -7)) {
		t.Fatalf("weekly window = %+v ok=%v", w, ok)
	}
	if _, ok := PeriodWindow("all", now); ok {
		t.Fatalf("all must mean no window")
	}
	if _, ok := PeriodWindow("", now); ok {
		t.Fatalf("empty period must mean no window")
	}
}

func TestCollectionsFilterByStaff(t *testing.T) {
	db := newTestDB(t)
	staffID, customerID := seedDay(t, db)

	other := models.User{Name: "Other", Email: "other@shomiti.test"}
	mustCreate(t, db, &other)
	mustCreate(t, db, &models.LoanCollection{CustomerID: customerID,
		Amount: dec("70"), CollectionDate: day5, StaffID: other.ID, ReceiptNo: "r-x"})

	h, err := New(db).Collections(CollectionsFilter{StaffID: staffID})
	if err != nil {
		t.Fatalf("collections: %v", err)
	}
	eq(t, h.TotalLoan, "1199", "loan total") // 200 + next-day 999, never the other staff's 70
	eq(t, h.TotalSaving, "50", "saving total")
	for _, lc := range h.LoanCollections {
		if lc.StaffID != staffID {
			t.Fatalf("leaked collection from staff %d", lc.StaffID)
		}
	}
}

func TestCollectionsFilterByCustomerName(t *testing.T) {
	db := newTestDB(t)
	seedDay(t, db)

	h, err := New(db).Collections(CollectionsFilter{CustomerName: "rahima"})
	if err != nil {
		t.Fatalf("collections: %v", err)
	}
	if len(h.LoanCollections) == 0 {
		t.Fatalf("expected a match for partial name")
	}
	h, err = New(db).Collections(CollectionsFilter{CustomerName: "nobody"})
	if err != nil {
		t.Fatalf("collections: %v", err)
	}
	if len(h.LoanCollections) != 0 || len(h.SavingCollections) != 0 {
		t.Fatalf("expected no match, got %d/%d", len(h.LoanCollections), len(h.SavingCollections))
	}
}

func TestWithdrawalReportSplitsByType(t *testing.T) {
	db := newTestDB(t)
	seedDay(t, db)
	mustCreate(t, db, &models.Withdrawal{InvestorName: "Mr. Rahman",
		Amount: dec("500"), Date: day5, WithdrawalType: models.WithdrawalTypeInvestment})

	r, err := New(db).WithdrawalReport()
	if err != nil {
		t.Fatalf("withdrawals: %v", err)
	}
	eq(t, r.Total, "540", "total")
	eq(t, r.SavingsTotal, "40", "savings total")
	eq(t, r.InvestmentTotal, "500", "investment total")
}

func TestStaffDayReport(t *testing.T) {
	db := newTestDB(t)
	staffID, _ := seedDay(t, db)

	r, err := New(db).StaffDayReport(staffID, day5)
	if err != nil {
		t.Fatalf("staff day: %v", err)
	}
	eq(t, r.TotalLoan, "200", "staff day loan")
	eq(t, r.TotalSaving, "50", "staff day saving")
}

func TestExportMonthlyXLSX(t *testing.T) {
	db := newTestDB(t)
	seedDay(t, db)

	r, err := New(db).Monthly(2024, time.March)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	f, err := ExportMonthlyXLSX(r)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	sheet := "March 2024"
	got, err := f.GetCellValue(sheet, "A1")
	if err != nil || got != "Day" {
		t.Fatalf("A1 = %q err=%v", got, err)
	}
	// day 5 sits on row 6; column B is installments
	got, err = f.GetCellValue(sheet, "B6")
	if err != nil || got != "200" {
		t.Fatalf("B6 = %q err=%v", got, err)
	}
}

func TestExportCollectionsCSV(t *testing.T) {
	db := newTestDB(t)
	seedDay(t, db)

	h, err := New(db).Collections(CollectionsFilter{})
	if err != nil {
		t.Fatalf("collections: %v", err)
	}
	var buf bytes.Buffer
	if err := ExportCollectionsCSV(&buf, h); err != nil {
		t.Fatalf("csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "kind,date,customer,member_no,amount,receipt" {
		t.Fatalf("header = %q", lines[0])
	}
	// 2 loan rows + 1 saving row seeded
	if len(lines) != 4 {
		t.Fatalf("rows = %d want 4", len(lines))
	}
	if !strings.Contains(buf.String(), "Rahima Begum") {
		t.Fatalf("missing customer name in csv")
	}
}

func TestProfitLossStartAnchorsToCalendar(t *testing.T) {
	now := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.Local)
	cases := []struct {
		period string
		want   time.Time
	}{
		{"daily", time.Date(2024, time.March, 15, 0, 0, 0, 0, time.Local)},
		{"monthly", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.Local)},
		{"yearly", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local)},
		{"weekly", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local)},
		{"all", time.Time{}},
	}
	for _, tc := range cases {
		if got := ProfitLossStart(tc.period, now); !got.Equal(tc.want) {
			t.Fatalf("%s: start = %v want %v", tc.period, got, tc.want)
		}
	}
}

func TestProfitLossExcludesEarlierMonths(t *testing.T) {
	db := newTestDB(t)
	seedDay(t, db)
	svc := New(db)

	// seeded collections are in March 2024; a start after them must see none
	start := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.Local)
	r, err := svc.ProfitLossSince("monthly", start)
	if err != nil {
		t.Fatalf("profit loss: %v", err)
	}
	if !r.LoanCollected.IsZero() || !r.SavingsCollected.IsZero() {
		t.Fatalf("collections before the window counted: %s/%s", r.LoanCollected, r.SavingsCollected)
	}

	all, err := svc.ProfitLossSince("all", time.Time{})
	if err != nil {
		t.Fatalf("profit loss all: %v", err)
	}
	if !all.LoanCollected.Equal(dec("1199")) {
		t.Fatalf("all-time loan collected = %s want 1199", all.LoanCollected)
	}
}

func TestExportCollectionsXLSX(t *testing.T) {
	db := newTestDB(t)
	seedDay(t, db)

	h, err := New(db).Collections(CollectionsFilter{})
	if err != nil {
		t.Fatalf("collections: %v", err)
	}
	f, err := ExportCollectionsXLSX(h)
	if err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	got, err := f.GetCellValue("Loan Collections", "A1")
	if err != nil || got != "Date" {
		t.Fatalf("A1 = %q err=%v", got, err)
	}
	name, err := f.GetCellValue("Loan Collections", "B2")
	if err != nil || name == "" {
		t.Fatalf("B2 empty, err=%v", err)
	}
	if _, err := f.GetCellValue("Saving Collections", "A1"); err != nil {
		t.Fatalf("saving sheet missing: %v", err)
	}
}
