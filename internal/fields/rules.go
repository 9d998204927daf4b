// Package fields implements the heuristic field extraction engine: a money
// candidate scanner plus independent vendor, date, and amount extractors that
// operate on normalized text. All extractors are total functions of their input
// and return the UNKNOWN sentinel instead of failing.
package fields

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules holds the word lists and scan windows driving the extractors. The lists
// are configuration data, not code: inject a custom Rules to tune behavior, or
// load one from YAML. The zero value is unusable; start from DefaultRules.
type Rules struct {
	// StopVendorWords disqualify a line as a vendor name when they dominate it.
	StopVendorWords []string `yaml:"stop_vendor_words"`
	// AddressHints mark address-ish lines (street names, city names, pincode).
	AddressHints []string `yaml:"address_hints"`
	// EntityMarkers are business suffixes that boost a vendor candidate.
	EntityMarkers []string `yaml:"entity_markers"`
	// VendorLabels are explicit "Merchant:" style labels checked before scoring.
	VendorLabels []string `yaml:"vendor_labels"`
	// DateKeywords are date labels in precedence order.
	DateKeywords []string `yaml:"date_keywords"`
	// TotalKeywords mark lines carrying the payable total, in precedence order.
	TotalKeywords []string `yaml:"total_keywords"`
	// BadTotalContext disqualifies a total line (taxes, fees, subtotal). The
	// literal word "total" is always exempt so that "subtotal" can be listed
	// without poisoning every "Total" line.
	BadTotalContext []string `yaml:"bad_total_context"`

	// VendorScoreThreshold is the minimum score for a scored vendor candidate.
	VendorScoreThreshold int `yaml:"vendor_score_threshold"`
	// VendorTopLines bounds the vendor search to the top of the document.
	VendorTopLines int `yaml:"vendor_top_lines"`
	// DateLabelLines bounds the labeled date scan.
	DateLabelLines int `yaml:"date_label_lines"`
	// DateScanLines bounds the fallback any-date scan.
	DateScanLines int `yaml:"date_scan_lines"`
	// AmountBottomLines bounds the fallback scan near the document bottom.
	AmountBottomLines int `yaml:"amount_bottom_lines"`
}

// DefaultRules returns the built-in extraction rules.
func DefaultRules() Rules {
	return Rules{
		StopVendorWords: []string{
			"tax", "taxes", "gst", "cgst", "sgst", "igst", "invoice", "receipt", "bill",
			"order", "summary", "payment", "paid", "total", "amount", "date",
			"customer", "name", "address", "delivery", "platform", "fee",
		},
		AddressHints: []string{
			"street", "st.", "road", "rd", "layout", "nagar", "floor", "building",
			"bengaluru", "bangalore", "india", "pin", "pincode",
		},
		EntityMarkers: []string{
			"pvt", "ltd", "limited", "inc", "llp", "store", "restaurant", "cafe", "hotel",
		},
		VendorLabels: []string{
			"restaurant name", "merchant", "sold by", "store", "vendor", "billed from",
		},
		DateKeywords: []string{
			"invoice date", "bill date", "order time", "order date", "date",
		},
		TotalKeywords: []string{
			"grand total", "total amount", "amount paid", "total paid",
			"net payable", "net amount", "total", "balance due",
		},
		BadTotalContext: []string{
			"tax", "taxes", "gst", "cgst", "sgst", "igst",
			"discount", "promo", "coupon",
			"tip", "delivery", "platform fee", "packaging", "service charge",
			"subtotal",
		},

		VendorScoreThreshold: 5,
		VendorTopLines:       25,
		DateLabelLines:       80,
		DateScanLines:        120,
		AmountBottomLines:    80,
	}
}

// LoadRules reads a YAML rules file, filling unset fields from DefaultRules.
func LoadRules(path string) (Rules, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	r := DefaultRules()
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Rules{}, fmt.Errorf("parse rules file: %w", err)
	}
	if r.VendorScoreThreshold == 0 {
		r.VendorScoreThreshold = DefaultRules().VendorScoreThreshold
	}
	return r, nil
}
