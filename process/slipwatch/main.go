// Scans a slip directory, OCRs each photo, and verifies the extracted amount
// against the collection the slip is attached to. With --watch it keeps
// running and processes photos as staff sync them from their phones.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"shomiti/models"
	"shomiti/pkg/slip"
)

var db *gorm.DB

var verbose bool

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("SHOMITI_DATABASE_DSN")
	if dsn == "" {
		log.Fatalf("SHOMITI_DATABASE_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

func main() {
	dirFlag := flag.String("dir", "slips", "directory to scan for slip photos")
	watch := flag.Bool("watch", false, "watch the directory for new files")
	workers := flag.Int("workers", 0, "worker pool size (default NumCPU)")
	minConf := flag.Float64("min-conf", 0.15, "minimum OCR confidence to accept")
	dryRun := flag.Bool("dry-run", false, "OCR and report, but write nothing to the DB")
	flag.BoolVar(&verbose, "verbose", false, "per-file logging")
	flag.Parse()

	if !*dryRun {
		db = mustInitDBFromEnv()
	}

	files := listImageFiles(*dirFlag)
	log.Printf("Scanning %d files (workers=%d)", len(files), effectiveWorkers(*workers))

	if *dryRun {
		for _, f := range files {
			res, err := slip.ExtractAmount(filepath.Join(*dirFlag, f))
			if err != nil {
				log.Printf("DRY %s: %v", f, err)
				continue
			}
			fmt.Printf("DRY %s: amount=%s conf=%.2f raw=%q\n", f, res.Amount, res.Confidence, res.Raw)
		}
		return
	}

	runWorkerPool(*dirFlag, *minConf, files, effectiveWorkers(*workers))

	if *watch {
		if err := watchDirectory(*dirFlag, *minConf, effectiveWorkers(*workers)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

func listImageFiles(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if isSupportedExt(d.Name()) {
			rel, _ := filepath.Rel(dir, path)
			out = append(out, rel)
		}
		return nil
	})
	sort.Strings(out)
	return out
}

func isSupportedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}

// worker pool orchestrator
func runWorkerPool(dir string, minConf float64, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				processSlip(dir, name, minConf)
			}
		}()
	}
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		for _, ch := range extraCh {
			go func(c <-chan string) {
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		if len(extraCh) == 0 {
			close(fileCh)
		}
	}()
	if len(extraCh) == 0 {
		wg.Wait()
	}
}

func watchDirectory(dir string, minConf float64, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		// debounce so half-synced photos are not OCRed mid-write
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					name := filepath.Base(ev.Name)
					if !isSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	go runWorkerPool(dir, minConf, nil, workers, fileCh)
	select {}
}

// processSlip OCRs one photo and settles the matching slip_uploads row:
// verified on a match, flagged with a staff message on a mismatch. Photos
// with no pending row are skipped so reruns stay idempotent.
func processSlip(dir, name string, minConf float64) {
	base := filepath.Base(name)
	var up models.SlipUpload
	err := db.Where("file_name = ? AND verified = ? AND failed = ?", base, false, false).
		Where("ocr_amount = 0 OR ocr_amount IS NULL").
		First(&up).Error
	if err != nil {
		logV("no pending slip row for %s", base)
		return
	}
	expected, ok := expectedAmount(&up)
	if !ok {
		logV("slip %s has no linked collection", base)
		return
	}

	full := filepath.Join(dir, name)
	match, res, err := slip.Verify(full, expected, minConf)
	if err != nil {
		up.Failed = true
		up.FailedReason = err.Error()
		if saveErr := db.Save(&up).Error; saveErr != nil {
			log.Printf("failed update slip %s: %v", base, saveErr)
		}
		return
	}
	up.OCRAmount = res.Amount
	up.OCRRaw = res.Raw
	if match {
		up.Verified = true
	} else {
		up.FailedReason = fmt.Sprintf("amount mismatch: slip says %s, recorded %s", res.Amount, expected)
		notifyStaff(&up)
	}
	if err := db.Save(&up).Error; err != nil {
		log.Printf("failed update slip %s: %v", base, err)
		return
	}
	logV("slip %s: ocr=%s expected=%s verified=%v", base, res.Amount, expected, up.Verified)
}

func expectedAmount(up *models.SlipUpload) (decimal.Decimal, bool) {
	if up.LoanCollectionID != nil {
		var col models.LoanCollection
		if err := db.First(&col, *up.LoanCollectionID).Error; err == nil {
			return col.Amount, true
		}
	}
	if up.SavingID != nil {
		var col models.SavingCollection
		if err := db.First(&col, *up.SavingID).Error; err == nil {
			return col.Amount, true
		}
	}
	return decimal.Zero, false
}

func notifyStaff(up *models.SlipUpload) {
	msg := models.Message{
		StaffID: up.StaffID,
		Content: fmt.Sprintf("Slip %s did not match its recorded collection; please re-check the member's copy.", up.FileName),
	}
	if err := db.Create(&msg).Error; err != nil {
		log.Printf("failed to notify staff %d: %v", up.StaffID, err)
	}
}
