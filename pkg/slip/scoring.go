package slip

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BestAmount picks the most trustworthy candidate. Currency-marked matches
// beat bare numbers, a "total"/"jama" context beats a larger figure, and ties
// fall to the larger amount so partial digit runs lose to the full one.
func BestAmount(matches []string) (decimal.Decimal, string, bool) {
	type cand struct {
		amt   decimal.Decimal
		raw   string
		score int
	}
	scoreFor := func(raw string) int {
		s := 0
		low := strings.ToLower(raw)
		if strings.Contains(low, "tk") || strings.Contains(low, "bdt") ||
			strings.Contains(low, "taka") || strings.Contains(raw, "৳") {
			s += 10
		}
		if strings.Contains(low, "total") || strings.Contains(low, "jama") {
			s += 8
		}
		if strings.HasSuffix(strings.TrimSpace(low), "/-") {
			s += 6
		}
		if strings.ContainsAny(raw, ".,") {
			s += 5
		}
		if len(onlyDigits(raw)) >= 4 {
			s++
		}
		return s
	}

	var best *cand
	for _, m := range matches {
		amt, err := ParseAmount(m)
		if err != nil || !amt.IsPositive() {
			continue
		}
		c := cand{amt: amt, raw: m, score: scoreFor(m)}
		switch {
		case best == nil:
			best = &c
		case c.score > best.score:
			best = &c
		case c.score == best.score && c.amt.GreaterThan(best.amt):
			best = &c
		case c.score == best.score && c.amt.Equal(best.amt) && len(c.raw) > len(best.raw):
			best = &c
		}
	}
	if best == nil {
		return decimal.Zero, "", false
	}
	return best.amt, best.raw, true
}
