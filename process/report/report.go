// Package report prints ledger sheets from the command line for month-end
// checks against the handwritten register.
package report

import (
	"fmt"
	"log"
	"os"
	"time"

	"shomiti/pkg/report"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func mustDBFromEnv() *gorm.DB {
	dsn := os.Getenv("SHOMITI_DATABASE_DSN")
	if dsn == "" {
		log.Fatal("SHOMITI_DATABASE_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

// RunMonthly prints the per-day sheet for a month (YYYY-MM) and its totals.
// With days=false only the totals block is printed.
func RunMonthly(month string, days bool) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		log.Fatalf("invalid month format, expected YYYY-MM: %v", err)
	}
	svc := report.New(mustDBFromEnv())
	r, err := svc.Monthly(t.Year(), t.Month())
	if err != nil {
		log.Fatalf("report failed: %v", err)
	}

	fmt.Printf("Monthly sheet %s %d\n", r.Month, r.Year)
	if days {
		fmt.Println("day | installments | savings | fees | income | loan given | interest | expenses | net")
		for _, d := range r.Days {
			mark := ""
			if d.Weekend {
				mark = " *"
			}
			fees := d.AdmissionFees.Add(d.WelfareFees).Add(d.ServiceCharges)
			fmt.Printf("%3d%s | %s | %s | %s | %s | %s | %s | %s | %s\n",
				d.Day, mark, d.Installments, d.Savings, fees, d.TotalIncome,
				d.LoanGiven, d.Interest, d.Expenses, d.Net)
		}
	}
	fmt.Printf("total capital+savings: %s\n", r.TotalCapitalSavings)
	fmt.Printf("total loan distributed: %s\n", r.TotalLoanDistributed)
	fmt.Printf("total interest: %s\n", r.TotalInterest)
	fmt.Printf("total expenses: %s\n", r.TotalExpenses)
	fmt.Printf("current remaining: %s\n", r.CurrentRemaining)
	fmt.Printf("cash balance: %s\n", r.CashBalance)
}

// RunDaily prints the end-of-day sheet for one date (YYYY-MM-DD).
func RunDaily(date string) {
	t, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		log.Fatalf("invalid date format, expected YYYY-MM-DD: %v", err)
	}
	svc := report.New(mustDBFromEnv())
	r, err := svc.Daily(t)
	if err != nil {
		log.Fatalf("report failed: %v", err)
	}
	fmt.Printf("Daily sheet %s\n", r.Date)
	fmt.Printf("  installments=%s savings=%s admission=%s welfare=%s service=%s\n",
		r.Installments, r.Savings, r.AdmissionFees, r.WelfareFees, r.ServiceCharges)
	fmt.Printf("  loans=%s withdrawals=%s expenses=%s\n", r.LoansDistributed, r.Withdrawals, r.Expenses)
	fmt.Printf("  income=%s outflow=%s\n", r.TotalIncome, r.TotalOutflow)
	for _, row := range r.CustomerBreakdown {
		fmt.Printf("  %s (%s): loan=%s saving=%s\n", row.Name, row.MemberNo, row.LoanAmount, row.SavingAmount)
	}
}
