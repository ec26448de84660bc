package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/DataForge/internal/logging"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Options configures a Service.
type Options struct {
	MaxConcurrent int           // Concurrent generations (default 8)
	MaxWait       time.Duration // Wait for a free slot (default 10s)
	FlushEvery    int           // Rows between sink flushes (default 1000)
	UseCRLF       bool          // CSV line terminator
	TableName     string        // SQL output table name
}

// Service ties the catalog, request validation, generation, concurrency
// limiting and history together. It holds no per-generation state.
type Service struct {
	catalog   *Catalog
	presets   *Presets
	builder   *SchemaBuilder
	generator *RecordGenerator
	limiter   *GenerationLimiter
	history   HistoryStore
	opts      Options
}

// NewService builds a service. history may be nil, in which case an
// in-memory ring of DefaultHistorySize records is used.
func NewService(catalog *Catalog, presets *Presets, history HistoryStore, opts Options) *Service {
	if history == nil {
		history = NewMemoryHistory(DefaultHistorySize)
	}
	return &Service{
		catalog:   catalog,
		presets:   presets,
		builder:   NewSchemaBuilder(catalog, presets),
		generator: NewRecordGenerator(catalog),
		limiter:   NewGenerationLimiter(opts.MaxConcurrent, opts.MaxWait),
		history:   history,
		opts:      opts,
	}
}

// Catalog returns the field catalog.
func (s *Service) Catalog() *Catalog { return s.catalog }

// Presets returns the preset set (may be nil).
func (s *Service) Presets() *Presets { return s.presets }

// History returns the history store.
func (s *Service) History() HistoryStore { return s.history }

// BuildRequest validates raw input. See SchemaBuilder.Build.
func (s *Service) BuildRequest(raw RawRequest) (GenerationRequest, error) {
	return s.builder.Build(raw)
}

// LimiterStatus reports generation slot usage.
func (s *Service) LimiterStatus() LimiterStatus { return s.limiter.Status() }

// WaitForGenerations blocks until running generations finish or ctx ends.
func (s *Service) WaitForGenerations(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Prepare reserves a generation slot and resolves req. Nothing is written
// yet, so any error here can still be reported cleanly to the client.
// The returned Generation must be Run or Closed.
func (s *Service) Prepare(ctx context.Context, req GenerationRequest, format Format) (*Generation, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatCSV
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, ErrTooManyGenerations) {
			s.recordRejected(ctx, req, format, err)
		}
		return nil, err
	}

	rows, err := s.generator.Generate(ctx, req)
	if err != nil {
		s.limiter.Release()
		return nil, err
	}

	_, seeded := req.Seed()
	return &Generation{
		service: s,
		ctx:     ctx,
		id:      uuid.New(),
		format:  format,
		rows:    rows,
		record: GenerationRecord{
			Fields:    kindsToStrings(req.Fields()),
			RowCount:  req.RowCount(),
			Seed:      rows.Seed(),
			Seeded:    seeded,
			Format:    format,
			IPAddress: IPAddressFromContext(ctx),
			UserAgent: UserAgentFromContext(ctx),
			StartedAt: time.Now().UTC(),
		},
	}, nil
}

// Generate is Prepare followed by Run.
func (s *Service) Generate(ctx context.Context, req GenerationRequest, format Format, w io.Writer) (GenerationRecord, error) {
	gen, err := s.Prepare(ctx, req, format)
	if err != nil {
		return GenerationRecord{}, err
	}
	return gen.Run(w, nil)
}

// Generation is one prepared, single-use generation.
type Generation struct {
	service *Service
	ctx     context.Context
	id      uuid.UUID
	format  Format
	rows    *Rows
	record  GenerationRecord
	once    sync.Once
}

// ID identifies the generation in logs and history.
func (g *Generation) ID() uuid.UUID { return g.id }

// Seed returns the effective seed, so entropy-seeded output can be reproduced.
func (g *Generation) Seed() uint64 { return g.rows.Seed() }

// Format returns the output format.
func (g *Generation) Format() Format { return g.format }

// Columns returns the output column names.
func (g *Generation) Columns() []string { return g.rows.Columns() }

// Run streams the dataset to w, records it in history and frees the slot.
// progress, when non-nil, is called after each row.
func (g *Generation) Run(w io.Writer, progress func(rows int)) (GenerationRecord, error) {
	var (
		rec GenerationRecord
		err error
	)
	ran := false
	g.once.Do(func() {
		ran = true
		rec, err = g.run(w, progress)
	})
	if !ran {
		return GenerationRecord{}, fmt.Errorf("generation %s already finished", g.id)
	}
	return rec, err
}

// Close releases the slot of a generation that was never Run.
func (g *Generation) Close() error {
	g.once.Do(func() {
		g.rows.Close()
		g.finish(StatusCancelled, 0, 0, context.Canceled)
	})
	return nil
}

func (g *Generation) run(w io.Writer, progress func(rows int)) (GenerationRecord, error) {
	logger := logging.WithFields(g.ctx,
		"generation_id", g.id.String(),
		"format", g.format,
		"rows", g.rows.Total(),
		"fields", len(g.record.Fields),
	)
	logger.Debug("generation started", "seed", g.rows.Seed())

	cw := NewCountingWriter(w)
	enc := g.format.NewEncoder(cw, StreamOptions{UseCRLF: g.service.opts.UseCRLF, TableName: g.service.opts.TableName})
	stats, err := Stream(enc, g.rows, StreamOptions{
		FlushEvery: g.service.opts.FlushEvery,
		Progress:   progress,
	})

	status := StatusCompleted
	switch {
	case err == nil:
	case errors.Is(err, ErrGenerationFailure):
		status = StatusFailed
	default:
		status = StatusCancelled
	}

	rec := g.finish(status, stats.Rows, cw.BytesWritten(), err)

	attrs := []any{
		"status", status,
		"rows_written", stats.Rows,
		"size", humanize.Bytes(uint64(cw.BytesWritten())),
		"duration_ms", rec.Duration().Milliseconds(),
	}
	switch status {
	case StatusCompleted:
		logger.Info("generation completed", attrs...)
	case StatusFailed:
		logger.Error("generation failed", append(attrs, "error", err)...)
	default:
		logger.Warn("generation stopped early", append(attrs, "error", err)...)
	}

	return rec, err
}

func (g *Generation) finish(status GenerationStatus, rows int, bytes int64, err error) GenerationRecord {
	defer g.service.limiter.Release()

	rec := g.record
	rec.ID = g.id
	rec.Status = status
	rec.RowsWritten = rows
	rec.BytesWritten = bytes
	rec.FinishedAt = time.Now().UTC()
	if err != nil {
		rec.Error = err.Error()
	}

	// The request context may already be cancelled; history must still land.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(g.ctx), 5*time.Second)
	defer cancel()
	if herr := g.service.history.Record(ctx, rec); herr != nil {
		slog.Warn("failed to record generation history",
			"generation_id", g.id.String(),
			"error", herr,
		)
	}
	return rec
}

func (s *Service) recordRejected(ctx context.Context, req GenerationRequest, format Format, err error) {
	seed, seeded := req.Seed()
	now := time.Now().UTC()
	rec := GenerationRecord{
		ID:         uuid.New(),
		Fields:     kindsToStrings(req.Fields()),
		RowCount:   req.RowCount(),
		Seed:       seed,
		Seeded:     seeded,
		Format:     format,
		Status:     StatusRejected,
		Error:      err.Error(),
		IPAddress:  IPAddressFromContext(ctx),
		UserAgent:  UserAgentFromContext(ctx),
		StartedAt:  now,
		FinishedAt: now,
	}
	if herr := s.history.Record(context.WithoutCancel(ctx), rec); herr != nil {
		slog.Warn("failed to record rejected generation", "error", herr)
	}
}

func kindsToStrings(kinds []FieldKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
