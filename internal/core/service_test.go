package core

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"
)

func newTestService(t *testing.T, opts Options) (*Service, *MemoryHistory) {
	t.Helper()
	catalog := MustDefaultCatalog()
	presets, err := DefaultPresets(catalog)
	if err != nil {
		t.Fatalf("DefaultPresets: %v", err)
	}
	history := NewMemoryHistory(10)
	return NewService(catalog, presets, history, opts), history
}

func TestService_Generate(t *testing.T) {
	svc, history := newTestService(t, Options{})
	ctx := ContextWithUserAgent(ContextWithIPAddress(context.Background(), "10.0.0.1"), "test-agent")

	req, err := svc.BuildRequest(RawRequest{Preset: "personal", Count: "50", Seed: "7"})
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}

	var buf bytes.Buffer
	rec, err := svc.Generate(ctx, req, FormatCSV, &buf)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if rec.Status != StatusCompleted {
		t.Errorf("Status = %s, want completed", rec.Status)
	}
	if rec.RowsWritten != 50 || rec.RowCount != 50 {
		t.Errorf("RowsWritten/RowCount = %d/%d, want 50", rec.RowsWritten, rec.RowCount)
	}
	if rec.BytesWritten != int64(buf.Len()) {
		t.Errorf("BytesWritten = %d, buffer has %d", rec.BytesWritten, buf.Len())
	}
	if !rec.Seeded || rec.Seed != 7 {
		t.Errorf("seed = (%d, %v), want (7, true)", rec.Seed, rec.Seeded)
	}
	if rec.IPAddress != "10.0.0.1" || rec.UserAgent != "test-agent" {
		t.Errorf("client = %q %q", rec.IPAddress, rec.UserAgent)
	}
	if !strings.HasPrefix(buf.String(), "first_name,last_name,email,") {
		t.Errorf("unexpected header in %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}

	stored, err := history.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("history.Get: %v", err)
	}
	if stored.Status != StatusCompleted {
		t.Errorf("stored status = %s", stored.Status)
	}
	if svc.LimiterStatus().Active != 0 {
		t.Error("generation slot not released")
	}
}

func TestService_SeedReportedForEntropyRuns(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	req, err := svc.BuildRequest(RawRequest{Fields: []string{"email", "uuid"}, Count: "5"})
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	gen, err := svc.Prepare(ctx, req, FormatCSV)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	var first bytes.Buffer
	if _, err := gen.Run(&first, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	replay, err := svc.BuildRequest(RawRequest{Fields: []string{"email", "uuid"}, Count: "5", Seed: strconv.FormatUint(gen.Seed(), 10)})
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	var second bytes.Buffer
	if _, err := svc.Generate(ctx, replay, FormatCSV, &second); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if first.String() != second.String() {
		t.Error("replaying the reported seed produced different output")
	}
}

func TestService_PrepareErrors(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	req, err := svc.BuildRequest(RawRequest{Fields: []string{"email"}, Count: "1"})
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}

	if _, err := svc.Prepare(context.Background(), req, Format("xlsx")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Prepare(xlsx) error = %v, want ErrUnknownFormat", err)
	}
	if svc.LimiterStatus().Active != 0 {
		t.Error("slot held after a rejected format")
	}
}

func TestService_BusyRejectsAndRecords(t *testing.T) {
	svc, history := newTestService(t, Options{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})
	ctx := context.Background()
	req, err := svc.BuildRequest(RawRequest{Fields: []string{"email"}, Count: "1"})
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}

	held, err := svc.Prepare(ctx, req, FormatCSV)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if _, err := svc.Prepare(ctx, req, FormatCSV); !errors.Is(err, ErrTooManyGenerations) {
		t.Fatalf("second Prepare error = %v, want ErrTooManyGenerations", err)
	}

	held.Close()
	if svc.LimiterStatus().Active != 0 {
		t.Error("Close did not release the slot")
	}
	if _, err := held.Run(&bytes.Buffer{}, nil); err == nil {
		t.Error("Run after Close should fail")
	}

	recent, _ := history.Recent(ctx, 0)
	statuses := map[GenerationStatus]int{}
	for _, r := range recent {
		statuses[r.Status]++
	}
	if statuses[StatusRejected] != 1 || statuses[StatusCancelled] != 1 {
		t.Errorf("history statuses = %v, want one rejected and one cancelled", statuses)
	}
}

func TestService_FailureRecorded(t *testing.T) {
	catalog := faultyCatalog(t, 2, true)
	history := NewMemoryHistory(5)
	svc := NewService(catalog, nil, history, Options{FlushEvery: 1})

	req, err := svc.BuildRequest(RawRequest{Fields: []string{"broken"}, Count: "5"})
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}

	var buf bytes.Buffer
	rec, err := svc.Generate(context.Background(), req, FormatJSON, &buf)
	if !errors.Is(err, ErrGenerationFailure) {
		t.Fatalf("Generate() error = %v, want ErrGenerationFailure", err)
	}
	if rec.Status != StatusFailed || rec.RowsWritten != 1 {
		t.Errorf("record = status %s rows %d, want failed after 1 row", rec.Status, rec.RowsWritten)
	}
	if rec.Error == "" {
		t.Error("failure not recorded")
	}
	if svc.LimiterStatus().Active != 0 {
		t.Error("slot held after failure")
	}
}

func TestService_CancelledMidStream(t *testing.T) {
	svc, _ := newTestService(t, Options{FlushEvery: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := svc.BuildRequest(RawRequest{Fields: []string{"email"}, Count: "1000"})
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	gen, err := svc.Prepare(ctx, req, FormatCSV)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	rec, err := gen.Run(&bytes.Buffer{}, func(n int) {
		if n == 3 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if rec.Status != StatusCancelled || rec.RowsWritten != 3 {
		t.Errorf("record = status %s rows %d, want cancelled after 3", rec.Status, rec.RowsWritten)
	}
}
