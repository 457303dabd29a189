package slip

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	paisaRE  = regexp.MustCompile(`[.,]\d{2}$`)
	dashEnd  = regexp.MustCompile(`\s*/[-=]?$`)
	markerRE = regexp.MustCompile(`(?i)^(tk|bdt|taka|৳)\.?\s*`)
)

// ParseAmount normalizes a matched substring into a taka amount. Handles
// lakh grouping ("1,00,000"), western grouping ("25,000"), a two-digit paisa
// tail ("2500.00") and the handwritten "/-" suffix ("500/-").
func ParseAmount(found string) (decimal.Decimal, error) {
	s := strings.TrimSpace(found)
	s = markerRE.ReplaceAllString(s, "")
	s = dashEnd.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty match")
	}

	var paisa string
	if paisaRE.MatchString(s) {
		cut := len(s) - 3
		paisa = s[cut+1:]
		s = s[:cut]
	}

	digits := onlyDigits(s)
	if digits == "" {
		return decimal.Zero, fmt.Errorf("no digits in %q", found)
	}
	out, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %q: %w", digits, err)
	}
	if paisa != "" {
		p, err := decimal.NewFromString(paisa)
		if err == nil {
			out = out.Add(p.Div(decimal.NewFromInt(100)))
		}
	}
	return out, nil
}
