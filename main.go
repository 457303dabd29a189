package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"shomiti/pkg/config"
	"shomiti/pkg/ledger"
	"shomiti/pkg/report"

	"github.com/gin-gonic/gin"
)

var jwtSecret []byte

var (
	ledgerSvc *ledger.Service
	reportSvc *report.Service
)

func main() {
	// Auto-load ./.env if present before viper reads the environment.
	loadDotEnv()
	cfg, err := config.Load(os.Getenv("SHOMITI_CONFIG"))
	if err != nil {
		log.Fatal("config:", err)
	}
	jwtSecret = []byte(cfg.JWT.Secret)

	// Lightweight migrate command: `./shomiti migrate` runs AutoMigrate and
	// seeding then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB(cfg)
		fmt.Println("migration and seeding completed")
		return
	}

	initDB(cfg)
	ledgerSvc = ledger.New(db)
	reportSvc = report.New(db)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	setupRoutes(r)

	r.Run(cfg.Server.Addr)
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
