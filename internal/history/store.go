// Package history persists one row per processed document: the raw and
// normalized fields, where the file ended up, and how processing finished.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	_ "modernc.org/sqlite"             // default embedded driver
)

// Record mirrors the documents table.
type Record struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	OriginalFilename string    `json:"original_filename"`
	StoredPath       string    `json:"stored_path"`
	VendorRaw        string    `json:"vendor_raw"`
	VendorNorm       string    `json:"vendor_norm"`
	DateRaw          string    `json:"date_raw"`
	DateNorm         string    `json:"date_norm"`
	AmountRaw        string    `json:"amount_raw"`
	AmountNorm       string    `json:"amount_norm"`
	FieldSource      string    `json:"field_source"` // llm | regex | provided
	TextSource       string    `json:"text_source"`  // structured-pdf | raw-pdf | ocr
	Status           string    `json:"status"`       // success | failed
	Error            string    `json:"error,omitempty"`
}

// Store wraps database/sql over sqlite (default) or postgres.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	original_filename TEXT NOT NULL DEFAULT '',
	stored_path TEXT NOT NULL DEFAULT '',
	vendor_raw TEXT NOT NULL DEFAULT '',
	vendor_norm TEXT NOT NULL DEFAULT '',
	date_raw TEXT NOT NULL DEFAULT '',
	date_norm TEXT NOT NULL DEFAULT '',
	amount_raw TEXT NOT NULL DEFAULT '',
	amount_norm TEXT NOT NULL DEFAULT '',
	field_source TEXT NOT NULL DEFAULT '',
	text_source TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT ''
)`

// Open connects to the history database and ensures the schema exists.
// DSNs beginning with postgres:// use pgx; anything else is treated as a
// sqlite file path (":memory:" works for tests).
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	driver := "sqlite"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "pgx"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	logger.Info("history.open", "driver", driver)
	return &Store{db: db, driver: driver, logger: logger}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Insert stores a record, assigning ID and CreatedAt when unset.
func (s *Store) Insert(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	q := s.rebind(`INSERT INTO documents (
		id, created_at, original_filename, stored_path,
		vendor_raw, vendor_norm, date_raw, date_norm, amount_raw, amount_norm,
		field_source, text_source, status, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, q,
		rec.ID, rec.CreatedAt.Format(time.RFC3339), rec.OriginalFilename, rec.StoredPath,
		rec.VendorRaw, rec.VendorNorm, rec.DateRaw, rec.DateNorm, rec.AmountRaw, rec.AmountNorm,
		rec.FieldSource, rec.TextSource, rec.Status, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert history row: %w", err)
	}
	return nil
}

// List returns the most recent records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	q := s.rebind(`SELECT id, created_at, original_filename, stored_path,
		vendor_raw, vendor_norm, date_raw, date_norm, amount_raw, amount_norm,
		field_source, text_source, status, error
	FROM documents ORDER BY created_at DESC LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var created string
		if err := rows.Scan(
			&rec.ID, &created, &rec.OriginalFilename, &rec.StoredPath,
			&rec.VendorRaw, &rec.VendorNorm, &rec.DateRaw, &rec.DateNorm, &rec.AmountRaw, &rec.AmountNorm,
			&rec.FieldSource, &rec.TextSource, &rec.Status, &rec.Error,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// rebind rewrites ? placeholders to $N for the postgres driver.
func (s *Store) rebind(q string) string {
	if s.driver != "pgx" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, ch := range q {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
