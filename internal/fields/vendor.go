package fields

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/nmurali/billfiler/constants"
	"github.com/nmurali/billfiler/internal/textutil"
)

var (
	reVendorJunk = regexp.MustCompile(`[^A-Za-z0-9 &()._\-]+`)
	reWS         = regexp.MustCompile(`\s+`)
	reAlphaToken = regexp.MustCompile(`[a-zA-Z]+`)
	reHasLetter  = regexp.MustCompile(`[A-Za-z]`)
)

// cleanVendor strips a candidate line to filename-friendly vendor characters.
func cleanVendor(line string) string {
	line = reVendorJunk.ReplaceAllString(line, " ")
	return strings.TrimSpace(reWS.ReplaceAllString(line, " "))
}

// ExtractVendor picks the vendor name from the top of the document. Explicit
// "Merchant:" style labels win outright; otherwise every top line is scored and
// the best line is returned, ties broken by first occurrence. Returns UNKNOWN
// when no line clears the threshold.
func (e *Engine) ExtractVendor(text string) string {
	if text == "" {
		return constants.Unknown
	}
	lines := nonEmptyLines(textutil.NormalizeText(text))
	top := lines
	if len(top) > e.rules.VendorTopLines {
		top = top[:e.rules.VendorTopLines]
	}

	for _, ln := range top {
		if m := e.reVendorLabel.FindStringSubmatch(ln); m != nil {
			if cand := cleanVendor(m[1]); len(cand) >= 3 {
				return cand
			}
		}
	}

	best, bestScore := constants.Unknown, -999
	for _, ln := range top {
		cand := cleanVendor(ln)
		if sc := e.vendorScore(cand); sc > bestScore {
			best, bestScore = cand, sc
		}
	}
	if bestScore < e.rules.VendorScoreThreshold {
		return constants.Unknown
	}
	return best
}

// vendorScore rates a cleaned line as a vendor-name candidate. The hard
// negatives disqualify labels, addresses, digit-heavy lines, and stop-word
// dominated lines; the positives prefer short, lettered, uppercase-ish names
// with business-entity markers.
func (e *Engine) vendorScore(line string) int {
	s := strings.TrimSpace(line)
	if s == "" {
		return -999
	}
	low := strings.ToLower(s)

	// label-like, e.g. "Date: 12/12/2024"
	if strings.Contains(s, ":") && len(s) < 35 {
		return -50
	}

	for _, hint := range e.rules.AddressHints {
		if strings.Contains(low, hint) {
			return -30
		}
	}

	digits := 0
	for _, ch := range s {
		if unicode.IsDigit(ch) {
			digits++
		}
	}
	if float64(digits)/float64(max(1, len(s))) > 0.25 {
		return -25
	}

	if tokens := reAlphaToken.FindAllString(low, -1); len(tokens) > 0 {
		stopHits := 0
		for _, t := range tokens {
			if e.stopVendorWords[t] {
				stopHits++
			}
		}
		if float64(stopHits)/float64(len(tokens)) > 0.5 {
			return -20
		}
	}

	score := 0
	if len(s) >= 3 && len(s) <= 40 {
		score += 10
	}
	if reHasLetter.MatchString(s) {
		score += 5
	}
	if e.reEntityMarker.MatchString(low) {
		score += 8
	}
	upper, alpha := 0, 0
	for _, ch := range s {
		if unicode.IsLetter(ch) {
			alpha++
			if unicode.IsUpper(ch) {
				upper++
			}
		}
	}
	if alpha > 0 && float64(upper)/float64(alpha) > 0.5 {
		score += 5
	}
	return score
}
