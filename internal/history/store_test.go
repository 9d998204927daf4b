package history

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := Record{
		OriginalFilename: "order.pdf",
		StoredPath:       "/archive/2024/December/12 December 2024_ACME_719.35.pdf",
		VendorRaw:        "ACME Pvt Ltd",
		VendorNorm:       "ACME_Pvt_Ltd",
		DateRaw:          "2024_12_12",
		DateNorm:         "2024_12_12",
		AmountRaw:        "₹719.35",
		AmountNorm:       "719.35",
		FieldSource:      "llm",
		TextSource:       "structured-pdf",
		Status:           "success",
	}
	require.NoError(t, s.Insert(ctx, &rec))
	assert.NotEmpty(t, rec.ID, "insert assigns an id")
	assert.False(t, rec.CreatedAt.IsZero(), "insert assigns a timestamp")

	got, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, rec.ID, got[0].ID)
	assert.Equal(t, "order.pdf", got[0].OriginalFilename)
	assert.Equal(t, "ACME Pvt Ltd", got[0].VendorRaw)
	assert.Equal(t, "₹719.35", got[0].AmountRaw)
	assert.Equal(t, "llm", got[0].FieldSource)
	assert.Equal(t, "success", got[0].Status)
	assert.Empty(t, got[0].Error)
}

func TestListNewestFirstAndLimited(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := Record{
			ID:               string(rune('a' + i)),
			CreatedAt:        base.Add(time.Duration(i) * time.Hour),
			OriginalFilename: "doc.pdf",
			Status:           "success",
		}
		require.NoError(t, s.Insert(ctx, &rec))
	}

	got, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e", got[0].ID)
	assert.Equal(t, "d", got[1].ID)
	assert.True(t, got[0].CreatedAt.After(got[1].CreatedAt))
}

func TestListEmpty(t *testing.T) {
	s := openTestStore(t)
	got, err := s.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInsertFailedRecordKeepsError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := Record{
		OriginalFilename: "broken.pdf",
		Status:           "failed",
		Error:            "move into filing dir: permission denied",
	}
	require.NoError(t, s.Insert(ctx, &rec))

	got, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "failed", got[0].Status)
	assert.Contains(t, got[0].Error, "permission denied")
}

func TestRebindOnlyForPostgres(t *testing.T) {
	sqlite := &Store{driver: "sqlite"}
	assert.Equal(t, "SELECT ? ?", sqlite.rebind("SELECT ? ?"))

	pg := &Store{driver: "pgx"}
	assert.Equal(t, "SELECT $1 $2", pg.rebind("SELECT ? ?"))
}
