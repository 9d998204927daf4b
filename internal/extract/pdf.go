package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfStructuredText runs pdftotext in layout mode. This is the best source for
// digitally produced invoices: column alignment survives, so "Total  ₹719.35"
// stays on one line.
func (e *Extractor) pdfStructuredText(ctx context.Context, path string) (string, int, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, fmt.Errorf("pdftotext: %w (%s)", err, truncate(string(errb), 512))
	}
	text := string(out)
	// pdftotext separates pages with form feeds
	pages := 1 + strings.Count(text, "\f")
	return text, pages, nil
}

// pdfRawText reads the PDF content streams directly, ignoring layout. Weaker
// than pdftotext but works on files whose text layer confuses it.
func (e *Extractor) pdfRawText(path string) (text string, pages int, err error) {
	defer func() {
		// the reader panics on some malformed xref tables
		if r := recover(); r != nil {
			err = fmt.Errorf("raw pdf read: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		txt, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(txt)
	}
	return b.String(), total, nil
}
