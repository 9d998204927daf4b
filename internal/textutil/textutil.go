// Package textutil holds the text, filename, and date canonicalization helpers
// shared by the extraction pipeline and the field extractors. Everything here is
// pure: total for any string input, no I/O, never returns an error.
package textutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/nmurali/billfiler/constants"
)

// DefaultMaxFilenameLen bounds filenames produced by SafeFilename.
const DefaultMaxFilenameLen = 60

var (
	reHorizWS   = regexp.MustCompile(`[ \t]+`)
	reCRLF      = regexp.MustCompile(`\r\n?`)
	reBlankRuns = regexp.MustCompile(`\n{3,}`)

	reUnsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._ -]+`)
	reWSRun          = regexp.MustCompile(`\s+`)

	reCanonicalDate = regexp.MustCompile(`^\d{4}_\d{2}_\d{2}$`)
	reISODate       = regexp.MustCompile(`(\d{4})[-/](\d{1,2})[-/](\d{1,2})`)
	reDayFirstDate  = regexp.MustCompile(`(\d{1,2})[-/](\d{1,2})[-/](\d{4})`)
	reTextualDate   = regexp.MustCompile(`(\d{1,2})\s+([A-Za-z]+)\s+(\d{4})`)
)

// months maps lowercase month names and abbreviations to month numbers.
// "sept" is a common four-letter alias for September.
var months = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

// NormalizeText canonicalizes extracted document text for regex parsing:
// NFKC, non-breaking spaces to spaces, horizontal whitespace runs collapsed,
// unix line endings, at most one consecutive blank line, trimmed. Idempotent.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = reHorizWS.ReplaceAllString(text, " ")
	text = reCRLF.ReplaceAllString(text, "\n")
	text = reBlankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// SafeFilename makes s safe for use as a filename component. Path separators
// become hyphens, anything outside [A-Za-z0-9._ -] is stripped, whitespace runs
// join with underscores. Returns the UNKNOWN sentinel when nothing survives.
// maxLen <= 0 means DefaultMaxFilenameLen.
func SafeFilename(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxFilenameLen
	}
	if s == "" {
		return constants.Unknown
	}
	s = NormalizeText(s)
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = reUnsafeFilename.ReplaceAllString(s, "")
	s = reWSRun.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return constants.Unknown
	}
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

// NormalizeDate parses free-form date text into the canonical YYYY_MM_DD form.
// Recognized forms, first match wins: already-canonical, ISO-ish YYYY-MM-DD or
// YYYY/MM/DD, day-first DD-MM-YYYY or DD/MM/YYYY, and "18 November 2025" style
// textual months. Calendar validity is NOT checked: a day of 31 in February is
// passed through verbatim to preserve raw-text fidelity.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return constants.Unknown
	}

	if reCanonicalDate.MatchString(s) {
		return s
	}

	if m := reISODate.FindStringSubmatch(s); m != nil {
		return formatDate(m[1], m[2], m[3])
	}

	if m := reDayFirstDate.FindStringSubmatch(s); m != nil {
		return formatDate(m[3], m[2], m[1])
	}

	if m := reTextualDate.FindStringSubmatch(s); m != nil {
		monTxt := strings.ToLower(m[2])
		mon, ok := months[monTxt]
		if !ok && len(monTxt) >= 3 {
			mon, ok = months[monTxt[:3]]
		}
		if ok {
			d, _ := strconv.Atoi(m[1])
			y, _ := strconv.Atoi(m[3])
			return fmt.Sprintf("%04d_%02d_%02d", y, mon, d)
		}
	}

	return constants.Unknown
}

func formatDate(y, mo, d string) string {
	yi, _ := strconv.Atoi(y)
	mi, _ := strconv.Atoi(mo)
	di, _ := strconv.Atoi(d)
	return fmt.Sprintf("%04d_%02d_%02d", yi, mi, di)
}
