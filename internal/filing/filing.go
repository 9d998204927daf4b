// Package filing turns extracted fields into the final archival filename and
// folder layout (<root>/<year>/<month>/<dd Month yyyy>_<vendor>_<amount><ext>)
// and performs the local move.
package filing

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nmurali/billfiler/constants"
	"github.com/nmurali/billfiler/internal/textutil"
)

const unknownPart = "unknown"

// Plan is the filing decision for one document: where it goes and under what
// name. It carries the normalized pieces so callers can echo them back.
type Plan struct {
	Filename   string `json:"filename"`
	Year       string `json:"year"`  // "2025" or "unknown"
	Month      string `json:"month"` // "November" or "unknown"
	Day        string `json:"day"`   // "18" or "unknown"
	DateNorm   string `json:"date_norm"`   // YYYY_MM_DD or UNKNOWN
	DatePretty string `json:"date_pretty"` // "18 November 2025", or raw date when unparsed
	SafeVendor string `json:"safe_vendor"`
	SafeAmount string `json:"safe_amount"`
}

// BuildPlan derives the archival plan from raw extracted fields. ext keeps its
// dot (".pdf"). Dates that are not already canonical are normalized here; a
// date that stays unknown yields the UNKNOWN_ filename prefix and "unknown"
// folder parts rather than failing.
func BuildPlan(vendor, date, amount, ext string) Plan {
	p := Plan{
		DateNorm:   date,
		DatePretty: date,
		SafeVendor: textutil.SafeFilename(vendor, 0),
		SafeAmount: textutil.SafeFilename(amount, 0),
		Year:       unknownPart,
		Month:      unknownPart,
		Day:        unknownPart,
	}

	if p.DateNorm != constants.Unknown && !isCanonicalDate(p.DateNorm) {
		p.DateNorm = textutil.NormalizeDate(date)
	}

	if p.DateNorm != constants.Unknown {
		if t, err := time.Parse("2006_01_02", p.DateNorm); err == nil {
			p.Year = t.Format("2006")
			p.Month = t.Format("January")
			p.Day = t.Format("02")
			p.DatePretty = t.Format("02 January 2006")
		} else {
			p.DateNorm = constants.Unknown
		}
	}

	if p.DateNorm != constants.Unknown {
		p.Filename = fmt.Sprintf("%s_%s_%s%s", p.DatePretty, p.SafeVendor, p.SafeAmount, ext)
	} else {
		p.Filename = fmt.Sprintf("%s_%s_%s%s", constants.Unknown, p.SafeVendor, p.SafeAmount, ext)
	}
	return p
}

// Dir is the folder the document files under, relative to root.
func (p Plan) Dir(root string) string {
	return filepath.Join(root, p.Year, p.Month)
}

// Move relocates src into the plan's folder under root, creating directories
// as needed, and returns the final path. name overrides the planned filename
// when the caller wants a custom name kept.
func Move(src, root string, p Plan, name string) (string, error) {
	if name == "" {
		name = p.Filename
	}
	dir := p.Dir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create filing dir: %w", err)
	}
	dst := filepath.Join(dir, name)
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("move into filing dir: %w", err)
	}
	return dst, nil
}

// isCanonicalDate matches YYYY_MM_DD without pulling in a regexp.
func isCanonicalDate(s string) bool {
	if len(s) != 10 || s[4] != '_' || s[7] != '_' {
		return false
	}
	for i, ch := range s {
		if i == 4 || i == 7 {
			continue
		}
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
