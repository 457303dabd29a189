package main

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"shomiti/models"
	"shomiti/pkg/config"
	"shomiti/pkg/ledger"
	"shomiti/pkg/slip"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ledgerErrStatus maps ledger errors onto HTTP statuses so every money
// endpoint reports rejections the same way.
func ledgerErrStatus(err error) int {
	var ve *ledger.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrOverpayment),
		errors.Is(err, ledger.ErrNoOutstandingLoan):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func parseAmount(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// createCustomerHandler admits a member: the admission fee is credited to
// the cash balance in the same transaction that creates the row.
func createCustomerHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		Name          string `json:"name" binding:"required"`
		MemberNo      string `json:"member_no"`
		Phone         string `json:"phone"`
		FatherHusband string `json:"father_husband"`
		Village       string `json:"village"`
		Post          string `json:"post"`
		Thana         string `json:"thana"`
		District      string `json:"district"`
		Granter       string `json:"granter"`
		Profession    string `json:"profession"`
		NIDNo         string `json:"nid_no"`
		Address       string `json:"address"`
		AdmissionFee  string `json:"admission_fee"`
		StaffID       *uint  `json:"staff_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fee, ok2 := parseAmount(req.AdmissionFee)
	if !ok2 || fee.Sign() < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad admission_fee"})
		return
	}
	staffID := user.ID
	if isAdmin(c) && req.StaffID != nil {
		staffID = *req.StaffID
	}
	customer := models.Customer{
		Name: req.Name, MemberNo: req.MemberNo, Phone: req.Phone,
		FatherHusband: req.FatherHusband, Village: req.Village, Post: req.Post,
		Thana: req.Thana, District: req.District, Granter: req.Granter,
		Profession: req.Profession, NIDNo: req.NIDNo, Address: req.Address,
		StaffID: &staffID, AdmissionFee: fee,
	}
	balance, err := ledgerSvc.AdmitCustomer(&customer)
	if err != nil {
		c.JSON(ledgerErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": customer.ID, "cash_balance": balance})
}

func disburseLoanHandler(c *gin.Context) {
	var req struct {
		CustomerID        uint   `json:"customer_id" binding:"required"`
		Amount            string `json:"amount" binding:"required"`
		Interest          string `json:"interest"`
		DueDate           string `json:"due_date" binding:"required"`
		InstallmentCount  int    `json:"installment_count"`
		InstallmentAmount string `json:"installment_amount"`
		InstallmentType   string `json:"installment_type"`
		ServiceCharge     string `json:"service_charge"`
		WelfareFee        string `json:"welfare_fee"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok1 := parseAmount(req.Amount)
	interest, ok2 := parseAmount(req.Interest)
	instAmount, ok3 := parseAmount(req.InstallmentAmount)
	serviceCharge, ok4 := parseAmount(req.ServiceCharge)
	welfareFee, ok5 := parseAmount(req.WelfareFee)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad amount"})
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad due_date, want YYYY-MM-DD"})
		return
	}
	loan, balance, err := ledgerSvc.DisburseLoan(ledger.DisburseRequest{
		CustomerID:        req.CustomerID,
		Amount:            amount,
		Interest:          interest,
		DueDate:           dueDate,
		InstallmentCount:  req.InstallmentCount,
		InstallmentAmount: instAmount,
		InstallmentType:   req.InstallmentType,
		ServiceCharge:     serviceCharge,
		WelfareFee:        welfareFee,
	})
	if err != nil {
		c.JSON(ledgerErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": loan.ID, "cash_balance": balance})
}

func listLoansHandler(c *gin.Context) {
	q := db.Model(&models.Loan{}).Order("id desc").Limit(500)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	var loans []models.Loan
	if err := q.Find(&loans).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, loans)
}

// updateLoanHandler edits a loan row in place. Totals derived from it are
// not touched; run a reconcile afterwards if amount or interest changed.
func updateLoanHandler(c *gin.Context) {
	var loan models.Loan
	if err := db.First(&loan, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "loan not found"})
		return
	}
	var req struct {
		Amount            string `json:"amount"`
		Interest          string `json:"interest"`
		DueDate           string `json:"due_date"`
		InstallmentCount  *int   `json:"installment_count"`
		InstallmentAmount string `json:"installment_amount"`
		InstallmentType   string `json:"installment_type"`
		Status            string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updates := map[string]any{}
	if req.Amount != "" {
		amount, ok := parseAmount(req.Amount)
		if !ok || amount.Sign() <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad amount"})
			return
		}
		updates["amount"] = amount
	}
	if req.Interest != "" {
		interest, ok := parseAmount(req.Interest)
		if !ok || interest.Sign() < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad interest"})
			return
		}
		updates["interest"] = interest
	}
	if req.DueDate != "" {
		t, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad due_date, want YYYY-MM-DD"})
			return
		}
		updates["due_date"] = t
	}
	if req.InstallmentCount != nil {
		updates["installment_count"] = *req.InstallmentCount
	}
	if req.InstallmentAmount != "" {
		amount, ok := parseAmount(req.InstallmentAmount)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad installment_amount"})
			return
		}
		updates["installment_amount"] = amount
	}
	if req.InstallmentType != "" {
		updates["installment_type"] = req.InstallmentType
	}
	if req.Status != "" {
		if req.Status != models.LoanStatusPending && req.Status != models.LoanStatusPaid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad status"})
			return
		}
		updates["status"] = req.Status
	}
	if len(updates) > 0 {
		if err := db.Model(&loan).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// collectHandler records a loan installment and/or a savings deposit in one
// atomic operation. Either amount may be zero, not both.
func collectHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		CustomerID   uint   `json:"customer_id" binding:"required"`
		LoanAmount   string `json:"loan_amount"`
		SavingAmount string `json:"saving_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	loanAmount, ok1 := parseAmount(req.LoanAmount)
	savingAmount, ok2 := parseAmount(req.SavingAmount)
	if !ok1 || !ok2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad amount"})
		return
	}
	if !isAdmin(c) {
		var customer models.Customer
		if err := db.First(&customer, req.CustomerID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
			return
		}
		if customer.StaffID == nil || *customer.StaffID != user.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
	}
	res, err := ledgerSvc.Collect(req.CustomerID, loanAmount, savingAmount, user.ID)
	if err != nil {
		c.JSON(ledgerErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{"cash_balance": res.Balance}
	if res.Loan != nil {
		resp["loan_receipt"] = res.Loan.ReceiptNo
		resp["remaining_loan"] = res.RemainingLoan
	}
	if res.Saving != nil {
		resp["saving_receipt"] = res.Saving.ReceiptNo
		resp["savings_balance"] = res.SavingsBalance
	}
	c.JSON(http.StatusOK, resp)
}

func cashBalanceHandler(c *gin.Context) {
	balance, err := ledgerSvc.Balance()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func createInvestmentHandler(c *gin.Context) {
	var req struct {
		InvestorName string `json:"investor_name" binding:"required"`
		Amount       string `json:"amount" binding:"required"`
		Note         string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad amount"})
		return
	}
	balance, err := ledgerSvc.AddInvestment(req.InvestorName, amount, req.Note)
	if err != nil {
		c.JSON(ledgerErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cash_balance": balance})
}

func listInvestmentsHandler(c *gin.Context) {
	var investments []models.Investment
	if err := db.Order("date desc").Limit(500).Find(&investments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, investments)
}

func createWithdrawalHandler(c *gin.Context) {
	var req struct {
		CustomerID     *uint  `json:"customer_id"`
		InvestorName   string `json:"investor_name"`
		Amount         string `json:"amount" binding:"required"`
		Note           string `json:"note"`
		WithdrawalType string `json:"withdrawal_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad amount"})
		return
	}
	balance, err := ledgerSvc.Withdraw(ledger.WithdrawRequest{
		CustomerID:     req.CustomerID,
		InvestorName:   req.InvestorName,
		Amount:         amount,
		Note:           req.Note,
		WithdrawalType: req.WithdrawalType,
	})
	if err != nil {
		c.JSON(ledgerErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cash_balance": balance})
}

func createExpenseHandler(c *gin.Context) {
	var req struct {
		Category    string `json:"category" binding:"required"`
		Amount      string `json:"amount" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad amount"})
		return
	}
	balance, err := ledgerSvc.RecordExpense(req.Category, amount, req.Description)
	if err != nil {
		c.JSON(ledgerErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cash_balance": balance})
}

func listExpensesHandler(c *gin.Context) {
	q := db.Model(&models.Expense{}).Order("date desc").Limit(500)
	if cat := c.Query("category"); cat != "" {
		q = q.Where("category = ?", cat)
	}
	var expenses []models.Expense
	if err := q.Find(&expenses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, expenses)
}

// reconcileHandler replays the full event history into the denormalized
// customer totals. Safe to run repeatedly.
func reconcileHandler(c *gin.Context) {
	res, err := ledgerSvc.Rebuild()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := ledgerSvc.RebuildSavings(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"customers":       res.Customers,
		"loans_applied":   res.LoansApplied,
		"loans_unmatched": res.LoansUnmatched,
		"collections":     res.CollectionsUsed,
	})
}

// uploadSlipHandler stores a payment-slip photo and OCRs it against the
// keyed-in collection amount. A mismatch or unreadable slip is recorded
// unverified so an admin can look at the photo.
func uploadSlipHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if file.Size > 5*1024*1024 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 5MB)"})
		return
	}
	expected, ok2 := parseAmount(c.PostForm("amount"))
	if !ok2 || expected.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad amount"})
		return
	}

	cfg := config.Get()
	dir := filepath.Join(cfg.Slip.Dir, strconv.FormatUint(uint64(user.ID), 10))
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mkdir failed"})
		return
	}
	fullPath := filepath.Join(dir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, fullPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	up := models.SlipUpload{
		FileName:    file.Filename,
		StorePath:   fullPath,
		ContentType: file.Header.Get("Content-Type"),
		StaffID:     user.ID,
	}
	if v := c.PostForm("loan_collection_id"); v != "" {
		if parsed, err := strconv.ParseUint(v, 10, 64); err == nil && parsed != 0 {
			id := uint(parsed)
			up.LoanCollectionID = &id
		}
	}
	if v := c.PostForm("saving_collection_id"); v != "" {
		if parsed, err := strconv.ParseUint(v, 10, 64); err == nil && parsed != 0 {
			id := uint(parsed)
			up.SavingID = &id
		}
	}

	match, res, err := slip.Verify(fullPath, expected, cfg.Slip.MinConfidence)
	switch {
	case err != nil:
		up.Failed = true
		up.FailedReason = err.Error()
	case match:
		up.Verified = true
		up.OCRAmount = res.Amount
		up.OCRRaw = res.Raw
	default:
		up.OCRAmount = res.Amount
		up.OCRRaw = res.Raw
		up.FailedReason = "amount mismatch"
	}
	if err := db.Create(&up).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id": up.ID, "verified": up.Verified, "ocr_amount": up.OCRAmount,
		"failed": up.Failed, "reason": up.FailedReason,
	})
}

// listSlipsHandler returns slip uploads; staff only see their own.
func listSlipsHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	q := db.Model(&models.SlipUpload{}).Order("id desc").Limit(200)
	if !isAdmin(c) {
		q = q.Where("staff_id = ?", user.ID)
	}
	if c.Query("unverified") == "1" {
		q = q.Where("verified = ?", false)
	}
	var slips []models.SlipUpload
	if err := q.Find(&slips).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, slips)
}
