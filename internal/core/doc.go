// Package core provides the synthetic dataset generation engine.
//
// This package contains all domain logic independent of any transport. It is
// used by the web server, the datagen CLI and tests without modification.
//
// # Architecture
//
//   - Catalog: an immutable registry of field kinds. Each [Field] maps a
//     [FieldKind] to a column name and a generator drawing from a
//     [RandomSource]. Build it once with [NewDefaultCatalog].
//   - SchemaBuilder: validates raw input into an immutable
//     [GenerationRequest].
//   - RecordGenerator: turns a request into a single-pass [Rows] cursor.
//   - Encoders: stream a cursor as CSV, JSON, XML or SQL via [Stream].
//   - Service: the entry point tying the above to a concurrency limiter
//     and generation history.
//
// # Determinism
//
// Each generation owns one [RandomSource]. Rows are produced in order and,
// within a row, fields are drawn in request order, so the same fields, row
// count and seed always produce byte-identical output:
//
//	req, _ := builder.Build(core.RawRequest{
//	    Fields: []string{"full_name", "email"},
//	    Count:  "3",
//	    Seed:   "42",
//	})
//	rows, _ := core.NewRecordGenerator(catalog).Generate(ctx, req)
//	_, err := core.WriteCSV(w, rows, core.StreamOptions{})
//
// # Streaming
//
// Only the current row exists in memory; the cursor reuses its row buffer
// and encoders write through a bounded buffer flushed every
// [StreamOptions.FlushEvery] rows. Memory is O(fields), not O(rows).
//
// # Error Handling
//
// Validation errors ([ErrUnknownFieldKind], [ErrNoFields],
// [ErrInvalidRowCount], [ErrInvalidSeed], [ErrUnknownFormat],
// [ErrUnknownPreset]) are raised before any output. [ErrGenerationFailure]
// can only occur mid-stream; the consumer must discard the partial output.
// [MapError] maps any of them to a user message with a support code.
package core
