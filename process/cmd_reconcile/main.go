// Replays the full event history into the cached customer totals. Run after
// manual DB surgery or when the register and the app disagree; safe to run
// any number of times.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"shomiti/models"
	"shomiti/pkg/ledger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	list := flag.Bool("list", false, "print per-customer totals after the rebuild")
	flag.Parse()

	dsn := os.Getenv("SHOMITI_DATABASE_DSN")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "SHOMITI_DATABASE_DSN not set; export it and retry")
		os.Exit(2)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	svc := ledger.New(db)
	res, err := svc.Rebuild()
	if err != nil {
		log.Fatalf("rebuild failed: %v", err)
	}
	if err := svc.RebuildSavings(); err != nil {
		log.Fatalf("savings rebuild failed: %v", err)
	}
	fmt.Printf("rebuilt %d customers: loans applied=%d unmatched=%d collections=%d\n",
		res.Customers, res.LoansApplied, res.LoansUnmatched, res.CollectionsUsed)

	if *list {
		var customers []models.Customer
		if err := db.Order("member_no").Find(&customers).Error; err != nil {
			log.Fatalf("load customers: %v", err)
		}
		for _, c := range customers {
			fmt.Printf("%s (%s): total=%s remaining=%s savings=%s\n",
				c.Name, c.MemberNo, c.TotalLoan, c.RemainingLoan, c.SavingsBalance)
		}
	}
}
