package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nmurali/billfiler/constants"
	"github.com/nmurali/billfiler/internal/filing"
	"github.com/nmurali/billfiler/internal/history"
	"github.com/nmurali/billfiler/internal/pipeline"
)

// uploadResponse is the JSON body for both dry-run and committed uploads.
type uploadResponse struct {
	Status            string            `json:"status"` // success | dry_run | rate_limit
	Detail            string            `json:"detail,omitempty"`
	Fields            map[string]string `json:"fields,omitempty"`
	Normalized        map[string]string `json:"normalized,omitempty"`
	Source            string            `json:"source,omitempty"`
	PredictedFilename string            `json:"predicted_filename,omitempty"`
	StoredAt          string            `json:"stored_at,omitempty"`
}

// handleUpload accepts a multipart document, runs extraction, and either
// previews (dry_run) or files the document and records history.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "malformed multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if !constants.IsAllowedExt(ext) {
		respondError(w, http.StatusBadRequest, "only PDF, PNG, JPG supported")
		return
	}

	dryRun := boolQuery(r, "dry_run")
	useCustomName := boolQuery(r, "use_custom_name")
	provided := pipeline.Provided{
		Vendor: r.FormValue("provided_vendor"),
		Date:   r.FormValue("provided_date"),
		Amount: r.FormValue("provided_amount"),
	}

	// stage to a temp file so the exec-based extractors can see it
	tmp, err := os.CreateTemp(s.tempDir, "upload-*"+ext)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "staging upload failed")
		return
	}
	tmpPath := tmp.Name()
	defer func() {
		if _, statErr := os.Stat(tmpPath); statErr == nil {
			_ = os.Remove(tmpPath)
		}
	}()
	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		respondError(w, http.StatusInternalServerError, "staging upload failed")
		return
	}
	_ = tmp.Close()

	extraction, err := s.extractor.Extract(ctx, tmpPath)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unsupported document")
		return
	}

	result, err := s.orch.Resolve(ctx, extraction.Text, provided)
	if errors.Is(err, pipeline.ErrUnreadableDocument) {
		respondError(w, http.StatusBadRequest, "invalid image/PDF file")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// A rate-limited preview aborts rather than answering with the weaker
	// heuristic result: the user asked what the model would say.
	if result.RateLimited && dryRun {
		respondJSON(w, http.StatusTooManyRequests, uploadResponse{
			Status:            "rate_limit",
			Detail:            "model quota exceeded, retry shortly",
			PredictedFilename: "WAIT_RETRY_" + header.Filename,
		})
		return
	}

	s.finishUpload(w, r, finishParams{
		plan:          filing.BuildPlan(result.Vendor, result.Date, result.Amount, "."+constants.NormalizeExt(ext)),
		result:        result,
		extractionSrc: string(extraction.Source),
		filename:      header.Filename,
		tmpPath:       tmpPath,
		dryRun:        dryRun,
		useCustomName: useCustomName,
	})
}

type finishParams struct {
	plan          filing.Plan
	result        pipeline.FieldResult
	extractionSrc string
	filename      string
	tmpPath       string
	dryRun        bool
	useCustomName bool
}

func (s *Server) finishUpload(w http.ResponseWriter, r *http.Request, p finishParams) {
	ctx := r.Context()

	fieldsBody := map[string]string{
		"vendor": p.result.Vendor,
		"date":   p.plan.DatePretty,
		"amount": p.result.Amount,
	}
	normalizedBody := map[string]string{
		"vendor": p.plan.SafeVendor,
		"date":   p.plan.DateNorm,
		"amount": p.plan.SafeAmount,
	}

	if p.dryRun {
		respondJSON(w, http.StatusOK, uploadResponse{
			Status:            "dry_run",
			Detail:            "analysis complete, file not saved",
			Fields:            fieldsBody,
			Normalized:        normalizedBody,
			Source:            string(p.result.Source),
			PredictedFilename: p.plan.Filename,
		})
		return
	}

	customName := ""
	if p.useCustomName {
		customName = filepath.Base(p.filename)
	}
	storedAt, err := filing.Move(p.tmpPath, s.storageRoot, p.plan, customName)

	rec := history.Record{
		OriginalFilename: p.filename,
		StoredPath:       storedAt,
		VendorRaw:        p.result.Vendor,
		VendorNorm:       p.plan.SafeVendor,
		DateRaw:          p.result.Date,
		DateNorm:         p.plan.DateNorm,
		AmountRaw:        p.result.Amount,
		AmountNorm:       p.plan.SafeAmount,
		FieldSource:      string(p.result.Source),
		TextSource:       p.extractionSrc,
		Status:           "success",
	}
	if err != nil {
		rec.Status = "failed"
		rec.Error = err.Error()
	}
	if s.store != nil {
		if insErr := s.store.Insert(ctx, &rec); insErr != nil {
			s.logger.Error("server.history.insert_failed", "error", insErr)
		}
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("filing failed: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, uploadResponse{
		Status:     "success",
		Fields:     fieldsBody,
		Normalized: normalizedBody,
		Source:     string(p.result.Source),
		StoredAt:   storedAt,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "history store not configured")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("server.history.list_failed", "error", err)
		respondError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	if recs == nil {
		recs = []history.Record{}
	}
	respondJSON(w, http.StatusOK, recs)
}

func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	if s.export == nil {
		respondError(w, http.StatusServiceUnavailable, "export not configured")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	b, err := s.export.ExportHistoryXLSX(r.Context(), limit)
	if err != nil {
		s.logger.Error("server.export.failed", "error", err)
		respondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="history.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func boolQuery(r *http.Request, key string) bool {
	v := r.URL.Query().Get(key)
	return v == "1" || v == "true"
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, code int, detail string) {
	respondJSON(w, code, map[string]string{"detail": detail})
}
