package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// GenerationStatus is the outcome of one generation.
type GenerationStatus string

const (
	StatusCompleted GenerationStatus = "completed"
	StatusFailed    GenerationStatus = "failed"
	StatusCancelled GenerationStatus = "cancelled"
	StatusRejected  GenerationStatus = "rejected"
)

// GenerationRecord describes a finished generation. It never contains
// generated data, only what is needed to reproduce or audit it.
type GenerationRecord struct {
	ID           uuid.UUID        `json:"id"`
	Fields       []string         `json:"fields"`
	RowCount     int              `json:"row_count"`
	Seed         uint64           `json:"seed,string"`
	Seeded       bool             `json:"seeded"`
	Format       Format           `json:"format"`
	Status       GenerationStatus `json:"status"`
	RowsWritten  int              `json:"rows_written"`
	BytesWritten int64            `json:"bytes_written"`
	Error        string           `json:"error,omitempty"`
	IPAddress    string           `json:"ip_address,omitempty"`
	UserAgent    string           `json:"user_agent,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
}

// Duration returns how long the generation ran.
func (r GenerationRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// HistoryStore persists generation records.
type HistoryStore interface {
	Record(ctx context.Context, rec GenerationRecord) error
	Recent(ctx context.Context, limit int) ([]GenerationRecord, error)
	Get(ctx context.Context, id uuid.UUID) (GenerationRecord, error)
}

// HistoryPruner is implemented by stores that support retention.
type HistoryPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ErrRecordNotFound is returned by HistoryStore.Get.
var ErrRecordNotFound = errors.New("generation record not found")

// DefaultHistorySize bounds MemoryHistory when no size is given.
const DefaultHistorySize = 500

// MemoryHistory keeps the most recent records in a fixed-size ring.
type MemoryHistory struct {
	mu   sync.RWMutex
	ring []GenerationRecord
	next int
	full bool
}

// NewMemoryHistory returns a ring holding up to size records.
func NewMemoryHistory(size int) *MemoryHistory {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &MemoryHistory{ring: make([]GenerationRecord, size)}
}

func (h *MemoryHistory) Record(_ context.Context, rec GenerationRecord) error {
	rec.Fields = append([]string(nil), rec.Fields...)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.ring[h.next] = rec
	h.next = (h.next + 1) % len(h.ring)
	if h.next == 0 {
		h.full = true
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (h *MemoryHistory) Recent(_ context.Context, limit int) ([]GenerationRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.next
	if h.full {
		n = len(h.ring)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]GenerationRecord, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (h.next - 1 - i + len(h.ring)) % len(h.ring)
		out = append(out, h.ring[idx])
	}
	return out, nil
}

func (h *MemoryHistory) Get(_ context.Context, id uuid.UUID) (GenerationRecord, error) {
	if id == uuid.Nil {
		return GenerationRecord{}, ErrRecordNotFound
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, rec := range h.ring {
		if rec.ID == id {
			return rec, nil
		}
	}
	return GenerationRecord{}, ErrRecordNotFound
}

// PruneBefore drops records that finished before cutoff.
func (h *MemoryHistory) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var kept []GenerationRecord
	n := h.next
	if h.full {
		n = len(h.ring)
	}
	// Walk oldest to newest so the ring keeps its order.
	start := 0
	if h.full {
		start = h.next
	}
	for i := 0; i < n; i++ {
		rec := h.ring[(start+i)%len(h.ring)]
		if !rec.FinishedAt.Before(cutoff) {
			kept = append(kept, rec)
		}
	}

	pruned := int64(n - len(kept))
	for i := range h.ring {
		h.ring[i] = GenerationRecord{}
	}
	copy(h.ring, kept)
	h.next = len(kept) % len(h.ring)
	h.full = len(kept) == len(h.ring)
	return pruned, nil
}
