package fields

import (
	"strings"

	"github.com/nmurali/billfiler/constants"
	"github.com/nmurali/billfiler/internal/textutil"
)

// ExtractAmount finds the payable total. Lines carrying a total keyword and no
// disqualifying context (taxes, fees, subtotal) are collected first and the
// largest monetary value among them wins. When no such line exists, the scan
// falls back to the bottom of the document, where totals conventionally live.
// The returned string is the raw matched token, currency marker included.
func (e *Engine) ExtractAmount(text string) string {
	if text == "" {
		return constants.Unknown
	}
	lines := nonEmptyLines(textutil.NormalizeText(text))

	var best *MoneyCandidate
	for _, ln := range lines {
		low := strings.ToLower(ln)
		if !containsAny(low, e.rules.TotalKeywords) || e.hasBadTotalContext(low) {
			continue
		}
		if c, ok := maxCandidate(ExtractMoneyCandidates(ln)); ok {
			if best == nil || c.Value > best.Value {
				best = &c
			}
		}
	}
	if best != nil {
		return best.Raw
	}

	bottom := lines
	if len(bottom) > e.rules.AmountBottomLines {
		bottom = bottom[len(bottom)-e.rules.AmountBottomLines:]
	}
	if c, ok := maxCandidate(ExtractMoneyCandidates(strings.Join(bottom, "\n"))); ok {
		return c.Raw
	}

	return constants.Unknown
}

// hasBadTotalContext reports whether the line mentions a disqualifying word.
// The literal word "total" is exempt: "subtotal" must disqualify without every
// "Grand Total" line tripping on its own keyword.
func (e *Engine) hasBadTotalContext(low string) bool {
	for _, bad := range e.rules.BadTotalContext {
		if bad == "total" {
			continue
		}
		if strings.Contains(low, bad) {
			return true
		}
	}
	return false
}
