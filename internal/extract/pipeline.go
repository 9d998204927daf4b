package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/nmurali/billfiler/constants"
	"github.com/nmurali/billfiler/internal/textutil"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit
	TessdataDir   string

	PSM int // page segmentation mode; default 6 (uniform block of text)
	OEM int // OCR engine mode; default 3
}

// Extractor implements TextExtractor over external poppler/tesseract binaries
// plus an in-process raw PDF reader.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	if cfg.OEM <= 0 {
		cfg.OEM = 3
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Extract picks a strategy based on file extension. PDFs walk the fallback
// chain; images run a single OCR pass. An unreadable document is NOT an error
// here: the Result simply carries empty text and the per-stage outcomes.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res := e.extractPDF(ctx, path)
		res.Duration = time.Since(start)
		return res, nil
	case constants.IMAGE:
		res := e.extractImage(ctx, path)
		res.Duration = time.Since(start)
		return res, nil
	default:
		e.logger.Error("extract.unsupported_extension", "extension", ext)
		return Result{}, fmt.Errorf("unsupported extension: %q", ext)
	}
}

// extractPDF walks the three PDF stages in order. A stage that errors is
// recorded as StageError and treated exactly like insufficient text.
func (e *Extractor) extractPDF(ctx context.Context, path string) Result {
	res := Result{}

	// 1) layout-aware text layer
	text, pages, err := e.pdfStructuredText(ctx, path)
	if out, ok := e.settle(&res, constants.SourceStructuredPDF, text, pages, minStructuredChars, err); ok {
		return out
	}

	// 2) raw content streams
	text, pages, err = e.pdfRawText(path)
	if out, ok := e.settle(&res, constants.SourceRawPDF, text, pages, minRawChars, err); ok {
		return out
	}

	// 3) rasterize + OCR
	text, pages, err = e.pdfOCR(ctx, path)
	if out, ok := e.settle(&res, constants.SourceOCR, text, pages, 0, err); ok {
		return out
	}

	e.logger.Warn("extract.pdf.exhausted", "path", path, "stages", len(res.Outcomes))
	return res
}

func (e *Extractor) extractImage(ctx context.Context, path string) Result {
	res := Result{}
	text, err := e.tesseractOCR(ctx, path)
	if out, ok := e.settle(&res, constants.SourceOCR, text, 1, 0, err); ok {
		return out
	}
	e.logger.Warn("extract.image.exhausted", "path", path)
	return res
}

// settle normalizes a stage's text, records its outcome, and reports whether
// the pipeline can stop. Acceptance requires strictly more than minChars of
// normalized text.
func (e *Extractor) settle(res *Result, stage constants.TextSource, text string, pages, minChars int, err error) (Result, bool) {
	if err != nil {
		res.Outcomes = append(res.Outcomes, StageOutcome{Stage: stage, Status: StageError, Err: err})
		e.logger.Debug("extract.stage.error", "stage", string(stage), "error", err)
		return Result{}, false
	}
	normalized := textutil.NormalizeText(text)
	if len(normalized) <= minChars {
		res.Outcomes = append(res.Outcomes, StageOutcome{Stage: stage, Status: StageInsufficient, Chars: len(normalized)})
		e.logger.Debug("extract.stage.insufficient", "stage", string(stage), "chars", len(normalized))
		return Result{}, false
	}
	res.Outcomes = append(res.Outcomes, StageOutcome{Stage: stage, Status: StageOK, Chars: len(normalized)})
	res.Text = normalized
	res.Source = stage
	res.Pages = pages
	e.logger.Info("extract.stage.ok", "stage", string(stage), "chars", len(normalized), "pages", pages)
	return *res, true
}
