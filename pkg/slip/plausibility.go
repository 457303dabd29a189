package slip

import "strings"

// plausibleAmount filters numeric matches that are more likely member
// numbers, NID fragments, or phone numbers than money. Anything carrying a
// currency marker passes; bare digit runs must be short and not zero-led.
func plausibleAmount(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	low := strings.ToLower(s)
	if strings.Contains(low, "tk") || strings.Contains(low, "bdt") ||
		strings.Contains(low, "taka") || strings.Contains(s, "৳") ||
		strings.HasSuffix(low, "/-") {
		return true
	}
	d := onlyDigits(s)
	if d == "" || d[0] == '0' {
		return false
	}
	if strings.ContainsAny(s, ".,") {
		return len(d) >= 3
	}
	// bare runs: 11 digits is a local phone number, 10+ a NID
	if len(d) > 7 || len(d) < 2 {
		return false
	}
	return true
}
