package fields

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nmurali/billfiler/internal/textutil"
)

// MoneyCandidate is one parsed monetary token plus the line it came from.
// Raw is the exact matched substring (currency marker + digits) so the chosen
// amount can be traced back to the document.
type MoneyCandidate struct {
	Value float64
	Raw   string
	Line  string
}

var (
	// Optional currency marker, then digits with optional thousands commas and
	// up to two decimals. Handles ₹719.35, Rs 1,234.00, INR 719, $12.50.
	reMoney = regexp.MustCompile(`(?i)(?:(₹|rs\.?|inr|\$)\s*)?(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`)

	// Words that let a bare number (no currency marker) count as money.
	reMoneyContext = regexp.MustCompile(`(?i)\b(total|amount|paid|grand|net|balance)\b`)
)

// ExtractMoneyCandidates scans text line by line for monetary tokens.
// A match without a currency marker is kept only when its line carries a
// total-ish context word; values below 1 are dropped (tax percentages, item
// quantities). Document order is preserved, duplicates are not removed.
func ExtractMoneyCandidates(text string) []MoneyCandidate {
	if text == "" {
		return nil
	}

	var out []MoneyCandidate
	for _, ln := range nonEmptyLines(textutil.NormalizeText(text)) {
		hasContext := reMoneyContext.MatchString(ln)
		for _, m := range reMoney.FindAllStringSubmatch(ln, -1) {
			sym, amt := m[1], m[2]
			if sym == "" && !hasContext {
				continue
			}
			num, err := strconv.ParseFloat(strings.ReplaceAll(amt, ",", ""), 64)
			if err != nil {
				continue
			}
			if num < 1 {
				continue
			}
			out = append(out, MoneyCandidate{
				Value: num,
				Raw:   strings.TrimSpace(sym + amt),
				Line:  ln,
			})
		}
	}
	return out
}

// maxCandidate returns the largest-value candidate, first occurrence winning ties.
func maxCandidate(cands []MoneyCandidate) (MoneyCandidate, bool) {
	if len(cands) == 0 {
		return MoneyCandidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Value > best.Value {
			best = c
		}
	}
	return best, true
}

// nonEmptyLines splits normalized text into trimmed, non-empty lines.
func nonEmptyLines(text string) []string {
	var out []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			out = append(out, ln)
		}
	}
	return out
}
