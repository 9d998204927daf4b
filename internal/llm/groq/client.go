// Package groq implements llm.FieldExtractor against a Groq-hosted
// OpenAI-compatible chat/completions endpoint.
package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nmurali/billfiler/internal/llm"
)

type Config struct {
	BaseURL     string // default https://api.groq.com/openai/v1
	Model       string // default llama-3.3-70b-versatile
	APIKey      string
	Temperature float32
	Timeout     time.Duration // default 45s
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

const systemPrompt = "You are a data extraction assistant that outputs only valid JSON."

func userPrompt(req llm.ExtractRequest) string {
	var b strings.Builder
	b.WriteString("Extract the following fields from the invoice/receipt text below:\n")
	b.WriteString("- vendor (store name)\n")
	b.WriteString("- date (format YYYY_MM_DD)\n")
	b.WriteString("- amount (the final total paid: a number with up to 2 decimal places, no currency symbols)\n\n")
	b.WriteString(`Return ONLY a JSON object with keys: "vendor", "date", "amount".` + "\n")
	b.WriteString(`If a field is not found, use "UNKNOWN".` + "\n\n")
	if req.FilenameHint != "" {
		b.WriteString("Filename: " + req.FilenameHint + "\n\n")
	}
	b.WriteString("Text:\n")
	b.WriteString(req.Text)
	return b.String()
}

// ExtractFields sends the document text to the model and returns validated
// fields. HTTP 429 surfaces as llm.ErrRateLimited so the caller can defer
// instead of falling back; a missing API key is llm.ErrNotConfigured.
func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (llm.InvoiceFields, []byte, error) {
	if c.cfg.APIKey == "" {
		return llm.InvoiceFields{}, nil, llm.ErrNotConfigured
	}

	rid := uuid.New().String()
	start := time.Now()
	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"text_len", len(req.Text),
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt(req)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.log)
	if err != nil {
		if status == http.StatusTooManyRequests {
			c.log.Warn("llm.extract.rate_limited", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
			return llm.InvoiceFields{}, raw, fmt.Errorf("%w: %v", llm.ErrRateLimited, err)
		}
		c.log.Error("llm.extract.http_error", "req_id", rid, "status", status, "error", err)
		return llm.InvoiceFields{}, raw, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return llm.InvoiceFields{}, raw, fmt.Errorf("decode chat response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices", "req_id", rid)
		return llm.InvoiceFields{}, raw, fmt.Errorf("no choices in chat response")
	}

	content, err := llm.ExtractJSONObject(cc.Choices[0].Message.Content)
	if err != nil {
		c.log.Error("llm.extract.content_error", "req_id", rid, "error", err)
		return llm.InvoiceFields{}, raw, err
	}

	cleaned, err := llm.SanitizeFields(content)
	if err != nil {
		c.log.Error("llm.extract.sanitize_failed", "req_id", rid, "error", err)
		return llm.InvoiceFields{}, content, err
	}

	schema := llm.BuildInvoiceJSONSchema()
	if err := llm.ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		c.log.Error("llm.extract.schema_validation_failed", "req_id", rid, "error", err, "content", string(cleaned))
		return llm.InvoiceFields{}, cleaned, fmt.Errorf("schema validation failed: %w", err)
	}

	var out llm.InvoiceFields
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return llm.InvoiceFields{}, cleaned, fmt.Errorf("unmarshal fields: %w", err)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"vendor", out.Vendor,
		"date", out.Date,
		"amount", out.Amount,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, cleaned, nil
}
