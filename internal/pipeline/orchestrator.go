// Package pipeline coordinates text extraction with the two field sources:
// the external model and the heuristic engine. It owns the decision of which
// result to trust and how failures degrade.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nmurali/billfiler/constants"
	"github.com/nmurali/billfiler/internal/fields"
	"github.com/nmurali/billfiler/internal/llm"
	"github.com/nmurali/billfiler/internal/textutil"
)

// ErrUnreadableDocument means every extraction stage came up empty: the upload
// must be rejected rather than guessed at.
var ErrUnreadableDocument = errors.New("pipeline: no usable text in document")

// minUsableChars is a loose floor on extracted text; photographed receipts can
// legitimately carry very little.
const minUsableChars = 10

// FieldResult is the terminal artifact of one extraction request. Every field
// is populated, with the UNKNOWN sentinel standing in for anything not found.
type FieldResult struct {
	Vendor string                `json:"vendor"`
	Date   string                `json:"date"` // YYYY_MM_DD or UNKNOWN
	Amount string                `json:"amount"`
	Source constants.FieldSource `json:"source"`

	// RateLimited reports that the model refused with a rate-limit signal and
	// the fields below it came from the heuristic fallback. The caller decides
	// whether to accept them or defer and retry the model; this is never
	// swallowed here.
	RateLimited bool `json:"rate_limited,omitempty"`
}

// Provided carries caller-supplied field overrides. When all three are set the
// pipeline is skipped entirely.
type Provided struct {
	Vendor string
	Date   string
	Amount string
}

func (p Provided) Complete() bool {
	return p.Vendor != "" && p.Date != "" && p.Amount != ""
}

// Orchestrator decides the FieldResult for extracted text.
type Orchestrator struct {
	logger *slog.Logger
	model  llm.FieldExtractor // nil when no model is wired
	engine *fields.Engine
}

func NewOrchestrator(model llm.FieldExtractor, engine *fields.Engine, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{logger: logger, model: model, engine: engine}
}

// Resolve turns normalized document text into a FieldResult.
//
// Decision order: caller-provided fields verbatim; then the model; then the
// heuristic engine when the model is absent, fails, or answers with nothing
// usable. A model rate limit also falls through to the engine but is flagged
// on the result so the caller can prefer deferring over a weaker answer.
func (o *Orchestrator) Resolve(ctx context.Context, text string, provided Provided) (FieldResult, error) {
	if provided.Complete() {
		o.logger.Info("pipeline.fields.provided")
		return FieldResult{
			Vendor: provided.Vendor,
			Date:   provided.Date,
			Amount: provided.Amount,
			Source: constants.FieldSourceProvided,
		}, nil
	}

	if len(text) < minUsableChars {
		return FieldResult{}, ErrUnreadableDocument
	}

	rateLimited := false
	if o.model != nil {
		got, _, err := o.model.ExtractFields(ctx, llm.ExtractRequest{Text: text})
		switch {
		case err == nil && usable(got):
			o.logger.Info("pipeline.fields.llm", "vendor", got.Vendor, "date", got.Date, "amount", got.Amount)
			return FieldResult{
				Vendor: sentinelOr(got.Vendor),
				Date:   canonicalDate(got.Date),
				Amount: sentinelOr(got.Amount),
				Source: constants.FieldSourceLLM,
			}, nil
		case errors.Is(err, llm.ErrRateLimited):
			rateLimited = true
			o.logger.Warn("pipeline.fields.llm_rate_limited")
		case err != nil:
			o.logger.Warn("pipeline.fields.llm_failed", "error", err)
		default:
			o.logger.Warn("pipeline.fields.llm_unusable")
		}
	}

	res := o.engine.Extract(text)
	o.logger.Info("pipeline.fields.regex", "vendor", res.Vendor, "date", res.Date, "amount", res.Amount)
	return FieldResult{
		Vendor:      res.Vendor,
		Date:        res.Date,
		Amount:      res.Amount,
		Source:      constants.FieldSourceRegex,
		RateLimited: rateLimited,
	}, nil
}

// usable reports whether the model found anything at all.
func usable(f llm.InvoiceFields) bool {
	return sentinelOr(f.Vendor) != constants.Unknown ||
		canonicalDate(f.Date) != constants.Unknown ||
		sentinelOr(f.Amount) != constants.Unknown
}

func sentinelOr(s string) string {
	if s == "" {
		return constants.Unknown
	}
	return s
}

// canonicalDate coerces a model-supplied date into YYYY_MM_DD or UNKNOWN.
func canonicalDate(raw string) string {
	if raw == "" || raw == constants.Unknown {
		return constants.Unknown
	}
	return textutil.NormalizeDate(raw)
}
