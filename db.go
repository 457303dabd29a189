package main

import (
	"log"
	"os"

	"shomiti/models"
	"shomiti/pkg/config"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB(cfg *config.Config) {
	var err error
	dsn := cfg.Database.DSN
	if dsn == "" {
		log.Fatal("database.dsn is not set. Provide a Postgres DSN via config.yaml or SHOMITI_DATABASE_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}

	if cfg.Database.AutoMigrate {
		// Roles first so the users FK can be applied safely.
		if err := db.AutoMigrate(&models.Role{}); err != nil {
			log.Printf("migration warning (roles): %v", err)
		}
		seedRoles()

		// Migrate models individually so a failure on one doesn't block others
		if err := db.AutoMigrate(&models.User{}); err != nil {
			log.Printf("migration warning (users): %v", err)
		}
		if err := db.AutoMigrate(&models.RefreshToken{}); err != nil {
			log.Printf("migration warning (refresh_tokens): %v", err)
		}
		if err := db.AutoMigrate(&models.Customer{}); err != nil {
			log.Printf("migration warning (customers): %v", err)
		}
		if err := db.AutoMigrate(&models.Loan{}); err != nil {
			log.Printf("migration warning (loans): %v", err)
		}
		if err := db.AutoMigrate(&models.LoanCollection{}); err != nil {
			log.Printf("migration warning (loan_collections): %v", err)
		}
		if err := db.AutoMigrate(&models.SavingCollection{}); err != nil {
			log.Printf("migration warning (saving_collections): %v", err)
		}
		if err := db.AutoMigrate(&models.CashBalance{}); err != nil {
			log.Printf("migration warning (cash_balance): %v", err)
		}
		if err := db.AutoMigrate(&models.Investment{}); err != nil {
			log.Printf("migration warning (investments): %v", err)
		}
		if err := db.AutoMigrate(&models.Withdrawal{}); err != nil {
			log.Printf("migration warning (withdrawals): %v", err)
		}
		if err := db.AutoMigrate(&models.Expense{}); err != nil {
			log.Printf("migration warning (expenses): %v", err)
		}
		if err := db.AutoMigrate(&models.Message{}); err != nil {
			log.Printf("migration warning (messages): %v", err)
		}
		if err := db.AutoMigrate(&models.SlipUpload{}); err != nil {
			log.Printf("migration warning (slip_uploads): %v", err)
		}
	}
	seedDB(cfg)
}

func seedRoles() {
	roles := []models.Role{
		{Name: models.RoleAdmin, Description: "full access"},
		{Name: models.RoleStaff, Description: "field collection staff"},
	}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}
}

func seedDB(cfg *config.Config) {
	seedRoles()

	// The cash ledger is a single row; make sure it exists.
	var cnt int64
	db.Model(&models.CashBalance{}).Count(&cnt)
	if cnt == 0 {
		if err := db.Create(&models.CashBalance{}).Error; err != nil {
			log.Printf("failed to seed cash balance row: %v", err)
		}
	}

	// Seed an initial admin only when explicitly asked for; the /setup
	// endpoint is the normal first-admin path.
	if email := os.Getenv("SHOMITI_SEED_ADMIN_EMAIL"); email != "" {
		var userCnt int64
		db.Model(&models.User{}).Where("email = ?", email).Count(&userCnt)
		if userCnt == 0 {
			password := os.Getenv("SHOMITI_SEED_ADMIN_PASSWORD")
			if password == "" {
				password = "admin123"
			}
			var role models.Role
			if err := db.Where("name = ?", models.RoleAdmin).First(&role).Error; err != nil {
				log.Printf("failed to find admin role: %v", err)
				return
			}
			rid := role.ID
			hashed, _ := bcrypt.GenerateFromPassword([]byte(password), cfg.Security.BcryptCost)
			admin := models.User{Name: "Administrator", Email: email, HashedPassword: hashed, RoleID: &rid}
			if err := db.Create(&admin).Error; err != nil {
				log.Printf("failed to seed admin user: %v", err)
			} else {
				log.Printf("Seeded admin user: email=%s", email)
			}
		}
	}

	ensureSlipDir(cfg)
}

// ensureSlipDir creates the base directory slip photos are stored under.
func ensureSlipDir(cfg *config.Config) {
	if err := os.MkdirAll(cfg.Slip.Dir, 0755); err != nil {
		log.Printf("failed to create slip dir %s: %v", cfg.Slip.Dir, err)
	}
}
