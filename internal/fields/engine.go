package fields

import (
	"log/slog"
	"regexp"
	"strings"
)

// Result is the outcome of heuristic extraction. Fields hold the UNKNOWN
// sentinel rather than being empty or absent.
type Result struct {
	Vendor string `json:"vendor"`
	Date   string `json:"date"` // YYYY_MM_DD or UNKNOWN
	Amount string `json:"amount"`
}

// Engine runs the three extractors against a shared rule set.
type Engine struct {
	rules  Rules
	logger *slog.Logger

	stopVendorWords map[string]bool
	reVendorLabel   *regexp.Regexp
	reEntityMarker  *regexp.Regexp
}

// NewEngine compiles the rule set into an extraction engine.
func NewEngine(rules Rules, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	stop := make(map[string]bool, len(rules.StopVendorWords))
	for _, w := range rules.StopVendorWords {
		stop[w] = true
	}
	return &Engine{
		rules:           rules,
		logger:          logger,
		stopVendorWords: stop,
		reVendorLabel:   regexp.MustCompile(`(?i)\b(?:` + joinAlternation(rules.VendorLabels) + `)\s*:\s*(.+)$`),
		reEntityMarker:  regexp.MustCompile(`\b(?:` + joinAlternation(rules.EntityMarkers) + `)\b`),
	}
}

// Extract runs vendor, date, and amount extraction over normalized text.
// Total: any input, including empty, yields a fully populated Result.
func (e *Engine) Extract(text string) Result {
	res := Result{
		Vendor: e.ExtractVendor(text),
		Date:   e.ExtractDate(text),
		Amount: e.ExtractAmount(text),
	}
	e.logger.Debug("fields.extract",
		"vendor", res.Vendor,
		"date", res.Date,
		"amount", res.Amount,
		"text_len", len(text),
	)
	return res
}

func joinAlternation(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}
