// Package extract produces the best-available plain text for a document via an
// ordered fallback chain: layout-aware PDF text, then the raw PDF text stream,
// then rendered-page OCR. Images go straight to OCR. Each stage yields an
// explicit outcome instead of relying on error propagation, so the fallback
// decisions stay auditable.
package extract

import (
	"context"
	"time"

	"github.com/nmurali/billfiler/constants"
)

// StageStatus classifies one attempt in the fallback chain.
type StageStatus string

const (
	StageOK           StageStatus = "ok"           // usable text produced
	StageInsufficient StageStatus = "insufficient" // ran, but too little text
	StageError        StageStatus = "error"        // stage failed outright
)

// StageOutcome records what a single stage did. Err is set only for StageError.
type StageOutcome struct {
	Stage  constants.TextSource
	Status StageStatus
	Chars  int
	Err    error
}

// Result is the terminal output of the pipeline. Text is normalized and may be
// empty when every stage came up short; Source identifies the producing stage.
type Result struct {
	Text     string
	Source   constants.TextSource
	Pages    int
	Duration time.Duration
	Outcomes []StageOutcome
}

// TextExtractor is the interface the orchestrator depends on.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (Result, error)
}

// Acceptance thresholds, in normalized characters. The structured reader is
// held to a higher bar than the raw stream because a layout-aware pass that
// finds almost nothing usually means a scanned document.
const (
	minStructuredChars = 30
	minRawChars        = 20
)
