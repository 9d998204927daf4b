package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmurali/billfiler/constants"
	"github.com/nmurali/billfiler/internal/fields"
	"github.com/nmurali/billfiler/internal/llm"
)

const sampleText = "California Burrito\nInvoice Date: 12/12/2024\nGrand Total: 719.35"

type fakeModel struct {
	fields llm.InvoiceFields
	err    error
	calls  int
}

func (f *fakeModel) ExtractFields(_ context.Context, _ llm.ExtractRequest) (llm.InvoiceFields, []byte, error) {
	f.calls++
	return f.fields, nil, f.err
}

func newTestOrchestrator(t *testing.T, model llm.FieldExtractor) *Orchestrator {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrchestrator(model, fields.NewEngine(fields.DefaultRules(), logger), logger)
}

func TestResolveProvidedFieldsVerbatim(t *testing.T) {
	model := &fakeModel{}
	o := newTestOrchestrator(t, model)

	got, err := o.Resolve(context.Background(), "", Provided{
		Vendor: "My Corner Shop",
		Date:   "2025-01-02", // deliberately not canonical
		Amount: "₹100",
	})
	require.NoError(t, err)

	assert.Equal(t, constants.FieldSourceProvided, got.Source)
	assert.Equal(t, "My Corner Shop", got.Vendor)
	assert.Equal(t, "2025-01-02", got.Date)
	assert.Equal(t, "₹100", got.Amount)
	assert.Zero(t, model.calls, "provided fields skip the model entirely")
}

func TestResolveIncompleteProvidedStillExtracts(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	got, err := o.Resolve(context.Background(), sampleText, Provided{Vendor: "Somewhere"})
	require.NoError(t, err)
	assert.Equal(t, constants.FieldSourceRegex, got.Source)
}

func TestResolveUnreadableText(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	for _, text := range []string{"", "stamp"} {
		_, err := o.Resolve(context.Background(), text, Provided{})
		assert.ErrorIs(t, err, ErrUnreadableDocument, "text %q", text)
	}
}

func TestResolveModelSuccess(t *testing.T) {
	model := &fakeModel{fields: llm.InvoiceFields{
		Vendor: "California Burrito",
		Date:   "2024_12_12",
		Amount: "719.35",
	}}
	o := newTestOrchestrator(t, model)

	got, err := o.Resolve(context.Background(), sampleText, Provided{})
	require.NoError(t, err)

	assert.Equal(t, constants.FieldSourceLLM, got.Source)
	assert.Equal(t, "California Burrito", got.Vendor)
	assert.Equal(t, "2024_12_12", got.Date)
	assert.Equal(t, "719.35", got.Amount)
	assert.False(t, got.RateLimited)
}

func TestResolveModelDateCoercedToCanonical(t *testing.T) {
	model := &fakeModel{fields: llm.InvoiceFields{
		Vendor: "ACME",
		Date:   "12/12/2024",
		Amount: "100",
	}}
	o := newTestOrchestrator(t, model)

	got, err := o.Resolve(context.Background(), sampleText, Provided{})
	require.NoError(t, err)
	assert.Equal(t, "2024_12_12", got.Date)
}

func TestResolveModelAllUnknownFallsBack(t *testing.T) {
	model := &fakeModel{fields: llm.InvoiceFields{
		Vendor: constants.Unknown,
		Date:   constants.Unknown,
		Amount: constants.Unknown,
	}}
	o := newTestOrchestrator(t, model)

	got, err := o.Resolve(context.Background(), sampleText, Provided{})
	require.NoError(t, err)

	assert.Equal(t, constants.FieldSourceRegex, got.Source)
	assert.Equal(t, "California Burrito", got.Vendor)
	assert.Equal(t, "2024_12_12", got.Date)
	assert.Equal(t, "719.35", got.Amount)
	assert.False(t, got.RateLimited)
}

func TestResolveModelErrorFallsBack(t *testing.T) {
	model := &fakeModel{err: errors.New("upstream 500")}
	o := newTestOrchestrator(t, model)

	got, err := o.Resolve(context.Background(), sampleText, Provided{})
	require.NoError(t, err)

	assert.Equal(t, constants.FieldSourceRegex, got.Source)
	assert.False(t, got.RateLimited)
}

func TestResolveRateLimitFlagged(t *testing.T) {
	model := &fakeModel{err: fmt.Errorf("%w: retry in 3s", llm.ErrRateLimited)}
	o := newTestOrchestrator(t, model)

	got, err := o.Resolve(context.Background(), sampleText, Provided{})
	require.NoError(t, err)

	assert.True(t, got.RateLimited)
	assert.Equal(t, constants.FieldSourceRegex, got.Source)
	assert.Equal(t, "California Burrito", got.Vendor, "fallback fields still computed")
}

func TestResolveNoModelUsesEngine(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	got, err := o.Resolve(context.Background(), sampleText, Provided{})
	require.NoError(t, err)

	assert.Equal(t, constants.FieldSourceRegex, got.Source)
	assert.Equal(t, "California Burrito", got.Vendor)
}
