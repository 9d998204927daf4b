package fields

import (
	"strings"

	"github.com/nmurali/billfiler/constants"
	"github.com/nmurali/billfiler/internal/textutil"
)

// ExtractDate finds the transaction date. The first line near the top carrying
// a date label ("Invoice Date", "Bill Date", ...) wins; the value after the
// colon is preferred when one is present. When no labeled line parses, the scan
// widens to any line that normalizes to a date.
func (e *Engine) ExtractDate(text string) string {
	if text == "" {
		return constants.Unknown
	}
	lines := nonEmptyLines(textutil.NormalizeText(text))

	labelWindow := lines
	if len(labelWindow) > e.rules.DateLabelLines {
		labelWindow = labelWindow[:e.rules.DateLabelLines]
	}
	for _, ln := range labelWindow {
		low := strings.ToLower(ln)
		if !containsAny(low, e.rules.DateKeywords) {
			continue
		}
		if _, after, found := strings.Cut(ln, ":"); found {
			if d := textutil.NormalizeDate(after); d != constants.Unknown {
				return d
			}
		}
		if d := textutil.NormalizeDate(ln); d != constants.Unknown {
			return d
		}
	}

	scanWindow := lines
	if len(scanWindow) > e.rules.DateScanLines {
		scanWindow = scanWindow[:e.rules.DateScanLines]
	}
	for _, ln := range scanWindow {
		if d := textutil.NormalizeDate(ln); d != constants.Unknown {
			return d
		}
	}

	return constants.Unknown
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
