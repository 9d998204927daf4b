package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmurali/billfiler/constants"
	"github.com/nmurali/billfiler/internal/export"
	"github.com/nmurali/billfiler/internal/extract"
	"github.com/nmurali/billfiler/internal/fields"
	"github.com/nmurali/billfiler/internal/history"
	"github.com/nmurali/billfiler/internal/llm"
	"github.com/nmurali/billfiler/internal/pipeline"
)

const receiptText = "California Burrito\nInvoice Date: 12/12/2024\nGrand Total: 719.35"

// stubExtractor returns canned text for any document.
type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) Extract(_ context.Context, _ string) (extract.Result, error) {
	if s.err != nil {
		return extract.Result{}, s.err
	}
	return extract.Result{
		Text:   s.text,
		Source: constants.SourceStructuredPDF,
		Pages:  1,
	}, nil
}

type rateLimitedModel struct{}

func (rateLimitedModel) ExtractFields(context.Context, llm.ExtractRequest) (llm.InvoiceFields, []byte, error) {
	return llm.InvoiceFields{}, nil, fmt.Errorf("%w: quota exhausted", llm.ErrRateLimited)
}

type testEnv struct {
	server *Server
	router http.Handler
	root   string
	store  *history.Store
}

func newTestEnv(t *testing.T, ex extract.TextExtractor, model llm.FieldExtractor) testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := history.Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	orch := pipeline.NewOrchestrator(model, fields.NewEngine(fields.DefaultRules(), logger), logger)
	root := t.TempDir()
	srv := New(logger, ex, orch, store, export.NewService(store, logger), root, t.TempDir())
	return testEnv{server: srv, router: srv.Routes(), root: root, store: store}
}

func multipartUpload(t *testing.T, url, filename string, form map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake document bytes"))
	require.NoError(t, err)
	for k, v := range form {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func doJSON(t *testing.T, router http.Handler, req *http.Request, out any) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out), rr.Body.String())
	}
	return rr
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, stubExtractor{text: receiptText}, nil)
	rr := doJSON(t, env.router, httptest.NewRequest(http.MethodGet, "/healthz", nil), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	env := newTestEnv(t, stubExtractor{text: receiptText}, nil)
	var body map[string]string
	rr := doJSON(t, env.router, multipartUpload(t, "/upload", "notes.txt", nil), &body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, body["detail"], "PDF")
}

func TestUploadRejectsMissingFile(t *testing.T) {
	env := newTestEnv(t, stubExtractor{text: receiptText}, nil)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("provided_vendor", "x"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rr := doJSON(t, env.router, req, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUploadDryRun(t *testing.T) {
	env := newTestEnv(t, stubExtractor{text: receiptText}, nil)

	var body uploadResponse
	rr := doJSON(t, env.router, multipartUpload(t, "/upload?dry_run=1", "order.pdf", nil), &body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Equal(t, "dry_run", body.Status)
	assert.Equal(t, "California Burrito", body.Fields["vendor"])
	assert.Equal(t, "12 December 2024", body.Fields["date"])
	assert.Equal(t, "719.35", body.Fields["amount"])
	assert.Equal(t, "2024_12_12", body.Normalized["date"])
	assert.Equal(t, "12 December 2024_California_Burrito_719.35.pdf", body.PredictedFilename)
	assert.Equal(t, string(constants.FieldSourceRegex), body.Source)
	assert.Empty(t, body.StoredAt)

	// nothing filed, nothing recorded
	recs, err := env.store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestUploadCommitFilesAndRecords(t *testing.T) {
	env := newTestEnv(t, stubExtractor{text: receiptText}, nil)

	var body uploadResponse
	rr := doJSON(t, env.router, multipartUpload(t, "/upload", "order.pdf", nil), &body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Equal(t, "success", body.Status)
	require.NotEmpty(t, body.StoredAt)
	_, err := os.Stat(body.StoredAt)
	assert.NoError(t, err, "stored file exists")

	recs, err := env.store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "order.pdf", recs[0].OriginalFilename)
	assert.Equal(t, body.StoredAt, recs[0].StoredPath)
	assert.Equal(t, "2024_12_12", recs[0].DateNorm)
	assert.Equal(t, string(constants.FieldSourceRegex), recs[0].FieldSource)
	assert.Equal(t, string(constants.SourceStructuredPDF), recs[0].TextSource)
	assert.Equal(t, "success", recs[0].Status)
}

func TestUploadCustomNameKept(t *testing.T) {
	env := newTestEnv(t, stubExtractor{text: receiptText}, nil)

	var body uploadResponse
	rr := doJSON(t, env.router, multipartUpload(t, "/upload?use_custom_name=true", "my-scan.pdf", nil), &body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, body.StoredAt, "my-scan.pdf")
}

func TestUploadProvidedFieldsSkipExtraction(t *testing.T) {
	env := newTestEnv(t, stubExtractor{text: receiptText}, nil)

	form := map[string]string{
		"provided_vendor": "My Shop",
		"provided_date":   "2025_01_02",
		"provided_amount": "42",
	}
	var body uploadResponse
	rr := doJSON(t, env.router, multipartUpload(t, "/upload?dry_run=1", "order.pdf", form), &body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Equal(t, string(constants.FieldSourceProvided), body.Source)
	assert.Equal(t, "My Shop", body.Fields["vendor"])
}

func TestUploadUnreadableDocument(t *testing.T) {
	env := newTestEnv(t, stubExtractor{text: ""}, nil)

	var body map[string]string
	rr := doJSON(t, env.router, multipartUpload(t, "/upload", "blank.pdf", nil), &body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, body["detail"], "invalid image/PDF")
}

func TestUploadRateLimitedDryRunDefers(t *testing.T) {
	env := newTestEnv(t, stubExtractor{text: receiptText}, rateLimitedModel{})

	var body uploadResponse
	rr := doJSON(t, env.router, multipartUpload(t, "/upload?dry_run=1", "order.pdf", nil), &body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "rate_limit", body.Status)
	assert.Equal(t, "WAIT_RETRY_order.pdf", body.PredictedFilename)
}

func TestUploadRateLimitedCommitAcceptsFallback(t *testing.T) {
	env := newTestEnv(t, stubExtractor{text: receiptText}, rateLimitedModel{})

	var body uploadResponse
	rr := doJSON(t, env.router, multipartUpload(t, "/upload", "order.pdf", nil), &body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, string(constants.FieldSourceRegex), body.Source)
}

func TestHistoryEndpoint(t *testing.T) {
	env := newTestEnv(t, stubExtractor{text: receiptText}, nil)

	var recs []history.Record
	rr := doJSON(t, env.router, httptest.NewRequest(http.MethodGet, "/history", nil), &recs)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, recs)

	doJSON(t, env.router, multipartUpload(t, "/upload", "order.pdf", nil), nil)

	rr = doJSON(t, env.router, httptest.NewRequest(http.MethodGet, "/history?limit=5", nil), &recs)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, recs, 1)
}

func TestHistoryExportEndpoint(t *testing.T) {
	env := newTestEnv(t, stubExtractor{text: receiptText}, nil)
	doJSON(t, env.router, multipartUpload(t, "/upload", "order.pdf", nil), nil)

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/history/export", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rr.Header().Get("Content-Type"))
	assert.NotZero(t, rr.Body.Len())
}
