package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/JonMunkholm/DataForge/internal/core"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// newTestStore connects to TEST_DATABASE_URL and skips when it is unset.
func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	store := NewHistoryStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE generation_history"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return store
}

func TestHistoryStore_RecordAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	finished := time.Now().UTC().Truncate(time.Microsecond)
	rec := core.GenerationRecord{
		ID:           uuid.New(),
		Fields:       []string{"full_name", "email"},
		RowCount:     3,
		Seed:         18446744073709551615,
		Seeded:       true,
		Format:       core.FormatCSV,
		Status:       core.StatusCompleted,
		RowsWritten:  3,
		BytesWritten: 120,
		IPAddress:    "10.0.0.1",
		UserAgent:    "go-test",
		StartedAt:    finished.Add(-time.Second),
		FinishedAt:   finished,
	}
	if err := store.Record(ctx, rec); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(rec, got, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	if _, err := store.Get(ctx, uuid.New()); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrRecordNotFound", err)
	}
}

func TestHistoryStore_RecentAndPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		err := store.Record(ctx, core.GenerationRecord{
			ID:         uuid.New(),
			Fields:     []string{"uuid"},
			RowCount:   1,
			Format:     core.FormatJSON,
			Status:     core.StatusCompleted,
			StartedAt:  base.AddDate(0, 0, i),
			FinishedAt: base.AddDate(0, 0, i),
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d records", len(recent))
	}
	if !recent[0].FinishedAt.Equal(base.AddDate(0, 0, 3)) {
		t.Errorf("newest record finished %v", recent[0].FinishedAt)
	}

	pruned, err := store.PruneBefore(ctx, base.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if pruned != 2 {
		t.Errorf("pruned = %d, want 2", pruned)
	}
}
