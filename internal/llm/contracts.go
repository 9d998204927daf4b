// Package llm defines the boundary to the external model that extracts invoice
// fields from plain text, plus the helpers shared by its implementations:
// JSON transport, schema validation, and response cleanup.
package llm

import (
	"context"
	"errors"
)

// InvoiceFields is the normalized shape we want back from the model. Every
// field is either a usable value or the UNKNOWN sentinel, never empty.
type InvoiceFields struct {
	Vendor string `json:"vendor"`
	Date   string `json:"date"`   // YYYY_MM_DD or UNKNOWN
	Amount string `json:"amount"` // numeric string, no currency symbol, <=2 decimals
}

// ExtractRequest carries the document text handed to the model.
type ExtractRequest struct {
	Text         string
	FilenameHint string
}

// FieldExtractor is the interface the orchestrator depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (InvoiceFields, []byte /*rawJSON*/, error)
}

// Failure kinds the orchestrator must distinguish. A rate-limited call is NOT
// interchangeable with other failures: the caller may prefer to retry the model
// over accepting a lower-quality heuristic result.
var (
	ErrRateLimited   = errors.New("llm: rate limited")
	ErrNotConfigured = errors.New("llm: api key not configured")
)
