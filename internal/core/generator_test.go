package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func buildRequest(t *testing.T, b *SchemaBuilder, raw RawRequest) GenerationRequest {
	t.Helper()
	req, err := b.Build(raw)
	if err != nil {
		t.Fatalf("Build(%+v): %v", raw, err)
	}
	return req
}

func collectRows(t *testing.T, rows *Rows) [][]string {
	t.Helper()
	var out [][]string
	for rows.Next() {
		out = append(out, append([]string(nil), rows.Row()...))
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows.Err(): %v", err)
	}
	return out
}

func TestRecordGenerator_Shape(t *testing.T) {
	catalog := MustDefaultCatalog()
	b := NewSchemaBuilder(catalog, nil)
	gen := NewRecordGenerator(catalog)

	tests := []struct {
		name   string
		fields []string
		count  string
		rows   int
	}{
		{name: "single field single row", fields: []string{"email"}, count: "1", rows: 1},
		{name: "several fields", fields: []string{"full_name", "email", "salary", "uuid"}, count: "250", rows: 250},
		{name: "duplicate fields", fields: []string{"email", "email"}, count: "5", rows: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := buildRequest(t, b, RawRequest{Fields: tt.fields, Count: tt.count})
			rows, err := gen.Generate(context.Background(), req)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			got := collectRows(t, rows)
			if len(got) != tt.rows {
				t.Fatalf("got %d rows, want %d", len(got), tt.rows)
			}
			for i, r := range got {
				if len(r) != len(tt.fields) {
					t.Fatalf("row %d has %d values, want %d", i, len(r), len(tt.fields))
				}
			}
			if rows.Produced() != tt.rows || rows.Total() != tt.rows {
				t.Errorf("Produced/Total = %d/%d, want %d", rows.Produced(), rows.Total(), tt.rows)
			}
			if rows.Next() {
				t.Error("Next() returned true after exhaustion")
			}
		})
	}
}

func TestRecordGenerator_Deterministic(t *testing.T) {
	catalog := MustDefaultCatalog()
	b := NewSchemaBuilder(catalog, nil)
	gen := NewRecordGenerator(catalog)

	fields := []string{"full_name", "email", "date_of_birth", "timestamp", "price_usd", "uuid", "ip_address"}
	run := func(seed string) [][]string {
		req := buildRequest(t, b, RawRequest{Fields: fields, Count: "100", Seed: seed})
		rows, err := gen.Generate(context.Background(), req)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		return collectRows(t, rows)
	}

	first, second := run("42"), run("42")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("same seed produced different rows (-first +second):\n%s", diff)
	}

	if cmp.Equal(first, run("43")) {
		t.Error("different seeds produced identical rows")
	}
}

func TestRecordGenerator_EntropySeedReproducible(t *testing.T) {
	catalog := MustDefaultCatalog()
	b := NewSchemaBuilder(catalog, nil)
	gen := NewRecordGenerator(catalog)

	rows, err := gen.Generate(context.Background(), buildRequest(t, b, RawRequest{Fields: []string{"email"}, Count: "20"}))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	first := collectRows(t, rows)

	replay, err := gen.GenerateWithSource(context.Background(),
		buildRequest(t, b, RawRequest{Fields: []string{"email"}, Count: "20"}),
		NewRandomSource(rows.Seed()))
	if err != nil {
		t.Fatalf("GenerateWithSource: %v", err)
	}
	if diff := cmp.Diff(first, collectRows(t, replay)); diff != "" {
		t.Errorf("replay with reported seed differs:\n%s", diff)
	}
}

func TestRecordGenerator_UniqueColumns(t *testing.T) {
	catalog := MustDefaultCatalog()
	b := NewSchemaBuilder(catalog, nil)
	gen := NewRecordGenerator(catalog)

	req := buildRequest(t, b, RawRequest{Fields: []string{"email", "full_name", "email", "email"}, Count: "1"})
	rows, err := gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := []string{"email", "full_name", "email_2", "email_3"}
	if diff := cmp.Diff(want, rows.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestUniqueColumns(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "no duplicates", in: []string{"a", "b"}, want: []string{"a", "b"}},
		{name: "repeated", in: []string{"a", "a", "a"}, want: []string{"a", "a_2", "a_3"}},
		{name: "suffix already taken", in: []string{"a", "a_2", "a"}, want: []string{"a", "a_2", "a_3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, uniqueColumns(tt.in)); diff != "" {
				t.Errorf("uniqueColumns mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// faultyCatalog returns a catalog whose "broken" field fails on failAt.
func faultyCatalog(t *testing.T, failAt int, panics bool) *Catalog {
	t.Helper()
	calls := 0
	catalog, err := NewCatalog(
		Field{Kind: "ok", Generate: constant("fine")},
		Field{Kind: "broken", Generate: func(*RandomSource) (string, error) {
			calls++
			if calls == failAt {
				if panics {
					panic("boom")
				}
				return "", errors.New("backend unavailable")
			}
			return "v", nil
		}},
	)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return catalog
}

func TestRecordGenerator_GeneratorFailure(t *testing.T) {
	for _, panics := range []bool{false, true} {
		name := "error"
		if panics {
			name = "panic"
		}
		t.Run(name, func(t *testing.T) {
			catalog := faultyCatalog(t, 3, panics)
			req := buildRequest(t, NewSchemaBuilder(catalog, nil), RawRequest{Fields: []string{"ok", "broken"}, Count: "10", Seed: "1"})

			rows, err := NewRecordGenerator(catalog).Generate(context.Background(), req)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}

			n := 0
			for rows.Next() {
				n++
			}
			if n != 2 {
				t.Errorf("produced %d rows before failure, want 2", n)
			}

			err = rows.Err()
			if !errors.Is(err, ErrGenerationFailure) {
				t.Fatalf("Err() = %v, want ErrGenerationFailure", err)
			}
			var gerr *GenerationError
			if !errors.As(err, &gerr) {
				t.Fatalf("expected GenerationError, got %T", err)
			}
			if gerr.Row != 3 || gerr.Kind != "broken" {
				t.Errorf("GenerationError = row %d kind %s, want row 3 kind broken", gerr.Row, gerr.Kind)
			}
			if panics && !strings.Contains(err.Error(), "boom") {
				t.Errorf("panic value missing from %q", err)
			}
		})
	}
}

func TestRecordGenerator_ContextCancelled(t *testing.T) {
	catalog := MustDefaultCatalog()
	req := buildRequest(t, NewSchemaBuilder(catalog, nil), RawRequest{Fields: []string{"email"}, Count: "1000"})

	ctx, cancel := context.WithCancel(context.Background())
	rows, err := NewRecordGenerator(catalog).Generate(ctx, req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	n := 0
	for rows.Next() {
		n++
		if n == 10 {
			cancel()
		}
	}
	if n != 10 {
		t.Errorf("produced %d rows, want 10", n)
	}
	if !errors.Is(rows.Err(), context.Canceled) {
		t.Errorf("Err() = %v, want context.Canceled", rows.Err())
	}
}

func TestRecordGenerator_Close(t *testing.T) {
	catalog := MustDefaultCatalog()
	req := buildRequest(t, NewSchemaBuilder(catalog, nil), RawRequest{Fields: []string{"email"}, Count: "100"})

	rows, err := NewRecordGenerator(catalog).Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	rows.Next()
	rows.Close()
	if rows.Next() {
		t.Error("Next() returned true after Close")
	}
	if rows.Err() != nil {
		t.Errorf("Err() after Close = %v, want nil", rows.Err())
	}
}

func TestRecordGenerator_UnresolvedKind(t *testing.T) {
	full := MustDefaultCatalog()
	req := buildRequest(t, NewSchemaBuilder(full, nil), RawRequest{Fields: []string{"email", "uuid"}, Count: "1"})

	small, err := NewCatalog(Field{Kind: "email", Generate: constant("a@b.c")})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	_, err = NewRecordGenerator(small).Generate(context.Background(), req)
	if !errors.Is(err, ErrUnknownFieldKind) {
		t.Errorf("Generate() error = %v, want ErrUnknownFieldKind", err)
	}
}
