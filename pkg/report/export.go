package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportMonthlyXLSX renders a monthly report as an xlsx workbook.
func ExportMonthlyXLSX(r *MonthlyReport) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := fmt.Sprintf("%s %d", r.Month.String(), r.Year)
	f.SetSheetName("Sheet1", sheet)

	header := []string{
		"Day", "Installments", "Savings", "Admission Fees", "Welfare Fees",
		"Service Charges", "Total Income", "Loan Given", "Interest",
		"Loan+Interest", "Savings Return", "Expenses", "Total Expense", "Net",
	}
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		_ = f.SetCellStyle(sheet, "A1", last, boldStyle)
	}

	for i, d := range r.Days {
		row := i + 2
		dayLabel := fmt.Sprintf("%d", d.Day)
		if d.Weekend {
			dayLabel += " (off)"
		}
		values := []any{
			dayLabel,
			d.Installments.InexactFloat64(),
			d.Savings.InexactFloat64(),
			d.AdmissionFees.InexactFloat64(),
			d.WelfareFees.InexactFloat64(),
			d.ServiceCharges.InexactFloat64(),
			d.TotalIncome.InexactFloat64(),
			d.LoanGiven.InexactFloat64(),
			d.Interest.InexactFloat64(),
			d.LoanWithInterest.InexactFloat64(),
			d.SavingsReturn.InexactFloat64(),
			d.Expenses.InexactFloat64(),
			d.TotalExpense.InexactFloat64(),
			d.Net.InexactFloat64(),
		}
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	totalsRow := len(r.Days) + 3
	totals := [][2]any{
		{"Total capital + savings", r.TotalCapitalSavings.InexactFloat64()},
		{"Total loan distributed", r.TotalLoanDistributed.InexactFloat64()},
		{"Total interest", r.TotalInterest.InexactFloat64()},
		{"Total expenses", r.TotalExpenses.InexactFloat64()},
		{"Current remaining", r.CurrentRemaining.InexactFloat64()},
		{"Cash balance", r.CashBalance.InexactFloat64()},
	}
	for i, kv := range totals {
		labelCell, _ := excelize.CoordinatesToCellName(1, totalsRow+i)
		valueCell, _ := excelize.CoordinatesToCellName(2, totalsRow+i)
		if err := f.SetCellValue(sheet, labelCell, kv[0]); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, valueCell, kv[1]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// ExportCollectionsCSV writes a collection history as CSV. Loan and saving
// rows are interleaved with a kind column so the file stays one flat table.
func ExportCollectionsCSV(w io.Writer, h *CollectionsHistory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"kind", "date", "customer", "member_no", "amount", "receipt"}); err != nil {
		return err
	}
	for _, lc := range h.LoanCollections {
		rec := []string{
			"loan",
			lc.CollectionDate.Format("2006-01-02"),
			lc.Customer.Name,
			lc.Customer.MemberNo,
			lc.Amount.StringFixed(2),
			lc.ReceiptNo,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	for _, sc := range h.SavingCollections {
		rec := []string{
			"saving",
			sc.CollectionDate.Format("2006-01-02"),
			sc.Customer.Name,
			sc.Customer.MemberNo,
			sc.Amount.StringFixed(2),
			sc.ReceiptNo,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCollectionsXLSX renders a collection history as an xlsx workbook,
// loan and saving collections on separate sheets.
func ExportCollectionsXLSX(h *CollectionsHistory) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Loan Collections")
	if _, err := f.NewSheet("Saving Collections"); err != nil {
		return nil, err
	}

	header := []string{"Date", "Customer", "Member No", "Amount", "Receipt"}
	writeSheet := func(sheet string, rows [][]any, total float64) error {
		for i, hcell := range header {
			cell, err := excelize.CoordinatesToCellName(i+1, 1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, hcell); err != nil {
				return err
			}
		}
		for r, row := range rows {
			for cIdx, v := range row {
				cell, err := excelize.CoordinatesToCellName(cIdx+1, r+2)
				if err != nil {
					return err
				}
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return err
				}
			}
		}
		totalRow := len(rows) + 3
		labelCell, _ := excelize.CoordinatesToCellName(1, totalRow)
		valueCell, _ := excelize.CoordinatesToCellName(4, totalRow)
		if err := f.SetCellValue(sheet, labelCell, "Total"); err != nil {
			return err
		}
		return f.SetCellValue(sheet, valueCell, total)
	}

	loanRows := make([][]any, 0, len(h.LoanCollections))
	for _, lc := range h.LoanCollections {
		loanRows = append(loanRows, []any{
			lc.CollectionDate.Format("2006-01-02"), lc.Customer.Name,
			lc.Customer.MemberNo, lc.Amount.InexactFloat64(), lc.ReceiptNo,
		})
	}
	if err := writeSheet("Loan Collections", loanRows, h.TotalLoan.InexactFloat64()); err != nil {
		return nil, err
	}
	savingRows := make([][]any, 0, len(h.SavingCollections))
	for _, sc := range h.SavingCollections {
		savingRows = append(savingRows, []any{
			sc.CollectionDate.Format("2006-01-02"), sc.Customer.Name,
			sc.Customer.MemberNo, sc.Amount.InexactFloat64(), sc.ReceiptNo,
		})
	}
	if err := writeSheet("Saving Collections", savingRows, h.TotalSaving.InexactFloat64()); err != nil {
		return nil, err
	}
	return f, nil
}

// MonthlyFileName is the download name for a monthly export.
func MonthlyFileName(year int, month time.Month) string {
	return fmt.Sprintf("monthly_report_%04d_%02d.xlsx", year, int(month))
}
