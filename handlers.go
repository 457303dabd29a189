package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"shomiti/models"
	"shomiti/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func setupRoutes(r *gin.Engine) {
	r.POST("/setup", setupHandler)
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)

	auth := r.Group("")
	auth.Use(jwtAuthMiddleware())
	auth.GET("/me", meHandler)

	auth.GET("/customers", listCustomersHandler)
	auth.GET("/customers/:id", getCustomerHandler)
	auth.POST("/customers", createCustomerHandler)
	auth.PUT("/customers/:id", updateCustomerHandler)

	auth.POST("/collections", collectHandler)
	auth.GET("/collections", collectionsHandler)
	auth.GET("/collections/export", collectionsExportHandler)
	auth.POST("/slips", uploadSlipHandler)
	auth.GET("/slips", listSlipsHandler)

	auth.GET("/messages", listMessagesHandler)
	auth.POST("/messages/:id/read", markMessageReadHandler)

	auth.GET("/reports/staff/today", staffDayHandler)
	auth.GET("/dashboard", dashboardHandler)

	admin := auth.Group("")
	admin.Use(adminOnly())
	admin.GET("/staff", listStaffHandler)
	admin.POST("/staff", createStaffHandler)
	admin.PUT("/staff/:id", updateStaffHandler)
	admin.DELETE("/staff/:id", deleteStaffHandler)
	admin.POST("/messages", createMessageHandler)

	admin.POST("/loans", disburseLoanHandler)
	admin.GET("/loans", listLoansHandler)
	admin.PUT("/loans/:id", updateLoanHandler)
	admin.GET("/cash_balance", cashBalanceHandler)
	admin.POST("/investments", createInvestmentHandler)
	admin.GET("/investments", listInvestmentsHandler)
	admin.POST("/withdrawals", createWithdrawalHandler)
	admin.GET("/withdrawals", withdrawalReportHandler)
	admin.POST("/expenses", createExpenseHandler)
	admin.GET("/expenses", listExpensesHandler)

	admin.GET("/reports/daily", dailyReportHandler)
	admin.GET("/reports/monthly", monthlyReportHandler)
	admin.GET("/reports/monthly/export", monthlyExportHandler)
	admin.GET("/reports/profit_loss", profitLossHandler)
	admin.POST("/reconcile", reconcileHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		email, _ := claims["email"].(string)
		role, _ := claims["role"].(string)
		c.Set("email", email)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, _ := c.Get("role"); role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func isAdmin(c *gin.Context) bool {
	role, _ := c.Get("role")
	return role == models.RoleAdmin
}

// getUserFromContext fetches the authenticated user via the email claim.
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	emailVal, _ := c.Get("email")
	if emailVal == nil {
		return nil, false
	}
	var user models.User
	if err := db.Where("email = ?", emailVal.(string)).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

func meHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	role, _ := c.Get("role")
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "name": user.Name, "email": user.Email, "role": role})
}

// setupHandler creates the very first admin account. Refused once any admin
// exists; after that, staff are added through /staff.
func setupHandler(c *gin.Context) {
	var cnt int64
	db.Model(&models.User{}).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.name = ?", models.RoleAdmin).
		Count(&cnt)
	if cnt > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "setup already completed"})
		return
	}
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := RegisterStaff(req.Name, req.Email, req.Password, models.RoleAdmin)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "message": "admin created"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	tokenString, err := signAccessToken(user, time.Duration(config.Get().JWT.ExpireHours)*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

func signAccessToken(user models.User, ttl time.Duration) (string, error) {
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": user.Email,
		"role":  roleName,
		"uid":   user.ID,
		"exp":   time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(jwtSecret)
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	days := config.Get().JWT.RefreshDays
	rt := models.RefreshToken{UserID: userID, TokenHash: th, ExpiresAt: time.Now().Add(time.Duration(days) * 24 * time.Hour)}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

func findRefreshTokenByRaw(token string) (*models.RefreshToken, error) {
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", th).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	var user models.User
	if err := db.First(&user, rt.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	tokenString, err := signAccessToken(user, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// rotate: revoke existing and create a new one
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

func listStaffHandler(c *gin.Context) {
	var staff []models.User
	q := db.Preload("Role").Order("id")
	if err := q.Find(&staff).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	out := make([]gin.H, 0, len(staff))
	for _, u := range staff {
		out = append(out, gin.H{
			"id": u.ID, "name": u.Name, "email": u.Email, "phone": u.Phone,
			"position": u.Position, "join_date": u.JoinDate, "salary": u.Salary,
			"role": u.Role.Name,
		})
	}
	c.JSON(http.StatusOK, out)
}

func createStaffHandler(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Phone    string `json:"phone"`
		Position string `json:"position"`
		JoinDate string `json:"join_date"`
		Salary   string `json:"salary"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := RegisterStaff(req.Name, req.Email, req.Password, models.RoleStaff)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	updates := map[string]any{"phone": req.Phone, "position": req.Position}
	if req.JoinDate != "" {
		if t, err := time.Parse("2006-01-02", req.JoinDate); err == nil {
			updates["join_date"] = t
		}
	}
	if req.Salary != "" {
		updates["salary"] = req.Salary
	}
	db.Model(user).Updates(updates)
	c.JSON(http.StatusOK, gin.H{"id": user.ID})
}

func updateStaffHandler(c *gin.Context) {
	var user models.User
	if err := db.First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "staff not found"})
		return
	}
	var req struct {
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Position string `json:"position"`
		Salary   string `json:"salary"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updates := map[string]any{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if req.Position != "" {
		updates["position"] = req.Position
	}
	if req.Salary != "" {
		updates["salary"] = req.Salary
	}
	if req.Password != "" {
		if len(req.Password) < 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password too short (min 6)"})
			return
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), config.Get().Security.BcryptCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
			return
		}
		updates["hashed_password"] = hashed
	}
	if len(updates) > 0 {
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func deleteStaffHandler(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
		return
	}
	var user models.User
	if err := db.Preload("Role").First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "staff not found"})
		return
	}
	// only staff accounts are deletable; admins are managed elsewhere
	if user.Role.Name != models.RoleStaff {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only staff accounts can be deleted"})
		return
	}
	// soft delete keeps the row so collection history stays attributable
	if err := db.Delete(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// listCustomersHandler returns customers; staff only see their own book.
func listCustomersHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	q := db.Model(&models.Customer{}).Order("member_no")
	if !isAdmin(c) {
		q = q.Where("staff_id = ?", user.ID)
	}
	if name := c.Query("name"); name != "" {
		q = q.Where("name LIKE ?", "%"+name+"%")
	}
	var customers []models.Customer
	if err := q.Find(&customers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, customers)
}

func getCustomerHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var customer models.Customer
	if err := db.First(&customer, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
		return
	}
	if !isAdmin(c) && (customer.StaffID == nil || *customer.StaffID != user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, customer)
}

func updateCustomerHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var customer models.Customer
	if err := db.First(&customer, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
		return
	}
	if !isAdmin(c) && (customer.StaffID == nil || *customer.StaffID != user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	var req struct {
		Name          string `json:"name"`
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
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updates := map[string]any{}
	set := func(col, v string) {
		if v != "" {
			updates[col] = v
		}
	}
	set("name", req.Name)
	set("phone", req.Phone)
	set("father_husband", req.FatherHusband)
	set("village", req.Village)
	set("post", req.Post)
	set("thana", req.Thana)
	set("district", req.District)
	set("granter", req.Granter)
	set("profession", req.Profession)
	set("nid_no", req.NIDNo)
	set("address", req.Address)
	if len(updates) > 0 {
		if err := db.Model(&customer).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func createMessageHandler(c *gin.Context) {
	var req struct {
		StaffID uint   `json:"staff_id" binding:"required"`
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var staff models.User
	if err := db.First(&staff, req.StaffID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "staff not found"})
		return
	}
	msg := models.Message{StaffID: req.StaffID, Content: req.Content}
	if err := db.Create(&msg).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": msg.ID})
}

func listMessagesHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	q := db.Model(&models.Message{}).Order("id desc").Limit(200)
	if !isAdmin(c) {
		q = q.Where("staff_id = ?", user.ID)
	}
	var msgs []models.Message
	if err := q.Find(&msgs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func markMessageReadHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var msg models.Message
	if err := db.First(&msg, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	if !isAdmin(c) && msg.StaffID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	if err := db.Model(&msg).Update("is_read", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked read"})
}
