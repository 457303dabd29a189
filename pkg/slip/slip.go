// Package slip reads collection amounts off photographed payment slips so a
// keyed-in figure can be cross-checked against what the member's copy says.
package slip

import (
	"fmt"
	"image"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/shopspring/decimal"
)

const whitelist = "0123456789TtKkBbDdAaJjMmOoLlRrSs৳.,:/()=- "

// Result is one extraction: the chosen amount, the raw substring it came
// from, and a rough confidence in [0,1].
type Result struct {
	Amount     decimal.Decimal
	Raw        string
	Confidence float64
	Text       string
}

// ExtractAmount runs the OCR passes over a slip photo and picks the best
// taka amount. Returns ErrNoAmount when nothing plausible is found.
func ExtractAmount(path string) (*Result, error) {
	texts, err := runPasses(path)
	if err != nil {
		return nil, fmt.Errorf("ocr passes: %w", err)
	}
	joined := strings.Join(texts, " ")
	matches := FindCandidates(joined)
	if len(matches) == 0 {
		log.Printf("slip %s: no candidates, text snippet=%q", path, snippet(joined, 140))
		return nil, ErrNoAmount
	}
	amt, raw, ok := BestAmount(matches)
	if !ok {
		return nil, ErrNoAmount
	}

	conf := 0.4
	lowRaw := strings.ToLower(raw)
	if strings.Contains(lowRaw, "tk") || strings.Contains(lowRaw, "bdt") ||
		strings.Contains(raw, "৳") || strings.HasSuffix(lowRaw, "/-") {
		conf = 0.85
	} else if strings.ContainsAny(raw, ".,") {
		conf = 0.6
	}
	log.Printf("slip %s: candidates=%v chosen=%q amount=%s conf=%.2f", path, matches, raw, amt, conf)
	return &Result{Amount: amt, Raw: raw, Confidence: conf, Text: joined}, nil
}

// Verify extracts an amount and compares it to what the staff keyed in.
// A result below minConfidence is treated as unreadable, not as a mismatch.
func Verify(path string, expected decimal.Decimal, minConfidence float64) (bool, *Result, error) {
	res, err := ExtractAmount(path)
	if err != nil {
		return false, nil, err
	}
	if res.Confidence < minConfidence {
		return false, res, ErrNoAmount
	}
	return res.Amount.Equal(expected), res, nil
}

var candidatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:total|jama|amount|taka)[:\s]*(?:tk|bdt|৳)?\.?\s*([0-9][0-9.,]*(?:/[-=]?)?)`),
	regexp.MustCompile(`(?i)(?:tk|bdt|৳)\.?\s*([0-9][0-9.,]*(?:/[-=]?)?)`),
	regexp.MustCompile(`([0-9][0-9.,]*\s*/[-=]?)`),
	regexp.MustCompile(`([0-9]{1,3}(?:[.,][0-9]{2,3})+)`),
	regexp.MustCompile(`([0-9]{4,})`),
}

// FindCandidates scans OCR text for substrings that could be the slip amount.
// Matches drawn from a currency or total context keep that marker attached so
// scoring can prefer them over bare digit runs.
func FindCandidates(text string) []string {
	text = normalizeText(text)
	var out []string
	seen := map[string]struct{}{}
	for _, re := range candidatePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			s := strings.TrimSpace(m[1])
			if s == "" {
				continue
			}
			full := strings.ToLower(m[0])
			lowS := strings.ToLower(s)
			if (strings.Contains(full, "tk") || strings.Contains(full, "bdt") || strings.Contains(m[0], "৳")) &&
				!strings.Contains(lowS, "tk") && !strings.Contains(lowS, "bdt") && !strings.Contains(s, "৳") {
				s = "Tk" + s
			}
			if strings.Contains(full, "total") && !strings.Contains(lowS, "total") {
				s = "Total " + s
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			if !plausibleAmount(s) {
				continue
			}
			out = append(out, s)
		}
	}
	return out
}

// runPasses OCRs the slip a few ways and returns each pass's text: the
// prepared grayscale with a mixed whitelist, a digits-only pass over the
// same image, and a binarized pass for faint carbon copies.
func runPasses(path string) ([]string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	gray := prepare(img)

	tmp, err := saveTemp(gray, "slip-gray-*.png")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	var texts []string
	for _, wl := range []string{whitelist, "0123456789.,/- "} {
		client := gosseract.NewClient()
		_ = client.SetLanguage("eng")
		_ = client.SetWhitelist(wl)
		client.SetImage(tmp)
		if t, err := client.Text(); err == nil {
			texts = append(texts, normalizeText(t))
		}
		client.Close()
	}

	bin := binarize(gray, 210)
	if tmpBin, err := saveTemp(bin, "slip-bin-*.png"); err == nil {
		client := gosseract.NewClient()
		_ = client.SetLanguage("eng")
		_ = client.SetWhitelist(whitelist)
		client.SetImage(tmpBin)
		if t, err := client.Text(); err == nil {
			texts = append(texts, normalizeText(t))
		}
		client.Close()
		_ = os.Remove(tmpBin)
	}

	if len(texts) == 0 {
		return nil, fmt.Errorf("all ocr passes failed")
	}
	return texts, nil
}

func saveTemp(img *image.NRGBA, pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	if err := imaging.Save(img, name); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("save temp image: %w", err)
	}
	return name, nil
}
