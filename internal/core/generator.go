package core

import (
	"context"
	"fmt"
	"strconv"
)

// Row holds one generated value per requested field, in request order.
type Row []string

// RecordGenerator turns requests into row cursors. It holds only the
// immutable catalog, so one instance serves any number of concurrent
// generations.
type RecordGenerator struct {
	catalog *Catalog
}

// NewRecordGenerator returns a generator drawing from catalog.
func NewRecordGenerator(catalog *Catalog) *RecordGenerator {
	return &RecordGenerator{catalog: catalog}
}

// Generate resolves every field of req and returns a cursor over its rows.
// Each call gets its own RandomSource; requests that carry no seed are
// seeded from system entropy. Resolution errors are returned before any
// row is produced.
func (g *RecordGenerator) Generate(ctx context.Context, req GenerationRequest) (*Rows, error) {
	var src *RandomSource
	if seed, ok := req.Seed(); ok {
		src = NewRandomSource(seed)
	} else {
		src = NewEntropySource()
	}
	return g.GenerateWithSource(ctx, req, src)
}

// GenerateWithSource is Generate with a caller-supplied source. The cursor
// takes ownership of src.
func (g *RecordGenerator) GenerateWithSource(ctx context.Context, req GenerationRequest, src *RandomSource) (*Rows, error) {
	kinds := req.Fields()
	if len(kinds) == 0 {
		return nil, ErrNoFields
	}

	gens := make([]GenerateFunc, len(kinds))
	names := make([]string, len(kinds))
	var unknown []string
	for i, k := range kinds {
		col, gen, err := g.catalog.Resolve(k)
		if err != nil {
			unknown = append(unknown, string(k))
			continue
		}
		names[i] = col
		gens[i] = gen
	}
	if len(unknown) > 0 {
		return nil, &UnknownFieldKindError{Kinds: unknown}
	}

	return &Rows{
		ctx:     ctx,
		kinds:   kinds,
		gens:    gens,
		columns: uniqueColumns(names),
		numeric: g.numericMask(kinds),
		src:     src,
		total:   req.RowCount(),
		row:     make(Row, len(kinds)),
	}, nil
}

func (g *RecordGenerator) numericMask(kinds []FieldKind) []bool {
	mask := make([]bool, len(kinds))
	for i, k := range kinds {
		if f, ok := g.catalog.Field(k); ok {
			mask[i] = f.Numeric
		}
	}
	return mask
}

// Rows is a single-pass cursor over generated rows, modeled on
// database/sql.Rows:
//
//	for rows.Next() {
//	    use(rows.Row())
//	}
//	if err := rows.Err(); err != nil { ... }
//
// Only one row exists at a time; the slice returned by Row is reused and
// is valid until the next call to Next. Rows is not safe for concurrent use.
type Rows struct {
	ctx     context.Context
	kinds   []FieldKind
	gens    []GenerateFunc
	columns []string
	numeric []bool
	src     *RandomSource

	total    int
	produced int
	row      Row
	err      error
	done     bool
}

// Next computes the next row. It returns false when all rows have been
// produced, when a generator failed, or when the context was cancelled;
// Err tells these apart.
func (r *Rows) Next() bool {
	if r.done {
		return false
	}
	if r.produced >= r.total {
		r.done = true
		return false
	}
	if err := r.ctx.Err(); err != nil {
		r.fail(err)
		return false
	}

	for i, gen := range r.gens {
		v, err := callGenerator(gen, r.src)
		if err != nil {
			r.fail(&GenerationError{Row: r.produced + 1, Kind: r.kinds[i], Err: err})
			return false
		}
		r.row[i] = v
	}
	r.produced++
	return true
}

// Row returns the current row. Callers that keep it past the next call to
// Next must copy it.
func (r *Rows) Row() Row { return r.row }

// Err returns the error that stopped iteration, or nil after a complete run.
func (r *Rows) Err() error { return r.err }

// Close stops iteration early. It is safe to call more than once.
func (r *Rows) Close() error {
	r.done = true
	return nil
}

// Columns returns the output column names. Repeated kinds get a numeric
// suffix so every name is unique.
func (r *Rows) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Numeric reports, per column, whether values are numbers.
func (r *Rows) Numeric() []bool {
	return append([]bool(nil), r.numeric...)
}

// Kinds returns the per-column field kinds.
func (r *Rows) Kinds() []FieldKind {
	return append([]FieldKind(nil), r.kinds...)
}

// Seed returns the seed driving this cursor, drawn from entropy when the
// request had none.
func (r *Rows) Seed() uint64 { return r.src.Seed() }

// Produced returns how many rows have been generated so far.
func (r *Rows) Produced() int { return r.produced }

// Total returns the number of rows the cursor will produce when it runs to
// completion.
func (r *Rows) Total() int { return r.total }

func (r *Rows) fail(err error) {
	r.err = err
	r.done = true
}

// callGenerator turns a panicking generator into an error so one bad field
// aborts the generation instead of the process.
func callGenerator(gen GenerateFunc, src *RandomSource) (v string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("generator panic: %v", p)
		}
	}()
	return gen(src)
}

// uniqueColumns keeps the first occurrence of each name and suffixes later
// ones with _2, _3, ... skipping any name already taken.
func uniqueColumns(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	seen := make(map[string]int, len(names))
	for i, n := range names {
		seen[n]++
		if seen[n] == 1 {
			out[i] = n
			continue
		}
		suffix := seen[n]
		candidate := n + "_" + strconv.Itoa(suffix)
		for taken[candidate] {
			suffix++
			candidate = n + "_" + strconv.Itoa(suffix)
		}
		seen[n] = suffix
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}
