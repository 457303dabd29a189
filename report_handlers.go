package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"shomiti/pkg/report"

	"github.com/gin-gonic/gin"
)

func dailyReportHandler(c *gin.Context) {
	date := time.Now()
	if v := c.Query("date"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad date, want YYYY-MM-DD"})
			return
		}
		date = t
	}
	r, err := reportSvc.Daily(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func parseYearMonth(c *gin.Context) (int, time.Month, bool) {
	now := time.Now()
	year, month := now.Year(), now.Month()
	if v := c.Query("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 2000 || y > 2200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad year"})
			return 0, 0, false
		}
		year = y
	}
	if v := c.Query("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad month"})
			return 0, 0, false
		}
		month = time.Month(m)
	}
	return year, month, true
}

func monthlyReportHandler(c *gin.Context) {
	year, month, ok := parseYearMonth(c)
	if !ok {
		return
	}
	r, err := reportSvc.Monthly(year, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func monthlyExportHandler(c *gin.Context) {
	year, month, ok := parseYearMonth(c)
	if !ok {
		return
	}
	r, err := reportSvc.Monthly(year, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	f, err := report.ExportMonthlyXLSX(r)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	name := report.MonthlyFileName(year, month)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

func profitLossHandler(c *gin.Context) {
	period := c.DefaultQuery("period", "monthly")
	start := report.ProfitLossStart(period, time.Now())
	r, err := reportSvc.ProfitLossSince(period, start)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func collectionsFilterFromQuery(c *gin.Context) (report.CollectionsFilter, bool) {
	f := report.CollectionsFilter{
		CustomerName: c.Query("customer"),
		Period:       c.DefaultQuery("period", "all"),
	}
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return f, false
	}
	if isAdmin(c) {
		if v := c.Query("staff_id"); v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "bad staff_id"})
				return f, false
			}
			f.StaffID = uint(id)
		}
	} else {
		// staff only ever see their own collections
		f.StaffID = user.ID
	}
	return f, true
}

func collectionsHandler(c *gin.Context) {
	f, ok := collectionsFilterFromQuery(c)
	if !ok {
		return
	}
	h, err := reportSvc.Collections(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, h)
}

// collectionsExportHandler downloads the filtered history as CSV, or as an
// xlsx workbook with ?format=xlsx.
func collectionsExportHandler(c *gin.Context) {
	f, ok := collectionsFilterFromQuery(c)
	if !ok {
		return
	}
	h, err := reportSvc.Collections(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if c.Query("format") == "xlsx" {
		wb, err := report.ExportCollectionsXLSX(h)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="collections.xlsx"`)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := wb.Write(c.Writer); err != nil {
			c.Status(http.StatusInternalServerError)
		}
		return
	}
	c.Header("Content-Disposition", `attachment; filename="collections.csv"`)
	c.Header("Content-Type", "text/csv")
	if err := report.ExportCollectionsCSV(c.Writer, h); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

func withdrawalReportHandler(c *gin.Context) {
	r, err := reportSvc.WithdrawalReport()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func staffDayHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	staffID := user.ID
	if isAdmin(c) {
		if v := c.Query("staff_id"); v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "bad staff_id"})
				return
			}
			staffID = uint(id)
		}
	}
	r, err := reportSvc.StaffDayReport(staffID, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, r)
}

// dashboardHandler returns the admin or staff landing numbers by role.
func dashboardHandler(c *gin.Context) {
	if isAdmin(c) {
		r, err := reportSvc.AdminSummary()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		c.JSON(http.StatusOK, r)
		return
	}
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	r, err := reportSvc.StaffSummary(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, r)
}
