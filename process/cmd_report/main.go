package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"shomiti/process/report"
)

func main() {
	month := flag.String("month", time.Now().Format("2006-01"), "month to report (YYYY-MM)")
	date := flag.String("date", "", "print a daily sheet for this date instead (YYYY-MM-DD)")
	days := flag.Bool("days", true, "print the per-day rows of the monthly sheet")
	flag.Parse()

	if os.Getenv("SHOMITI_DATABASE_DSN") == "" {
		fmt.Fprintln(os.Stderr, "SHOMITI_DATABASE_DSN not set; export it and retry")
		os.Exit(2)
	}

	if *date != "" {
		report.RunDaily(*date)
		return
	}
	report.RunMonthly(*month, *days)
}
