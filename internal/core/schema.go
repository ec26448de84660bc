package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Row count bounds for a single generation.
const (
	MinRowCount = 1
	MaxRowCount = 100000
)

// RawRequest is user input as it arrives from a form, query string or CLI.
type RawRequest struct {
	Fields []string // Kinds or aliases; entries may be comma-separated
	Preset string   // Optional preset; its fields precede Fields
	Count  string
	Seed   string // Empty means entropy-seeded
}

// GenerationRequest is a validated, immutable description of one dataset.
type GenerationRequest struct {
	fields []FieldKind
	count  int
	seed   uint64
	seeded bool
}

// Fields returns a copy of the requested kinds in order, duplicates kept.
func (r GenerationRequest) Fields() []FieldKind {
	out := make([]FieldKind, len(r.fields))
	copy(out, r.fields)
	return out
}

// RowCount returns the number of rows to generate.
func (r GenerationRequest) RowCount() int { return r.count }

// Seed returns the requested seed and whether one was given.
func (r GenerationRequest) Seed() (uint64, bool) { return r.seed, r.seeded }

// rowCountRule is checked with validator so the bounds live in one tag.
var rowCountRule = fmt.Sprintf("min=%d,max=%d", MinRowCount, MaxRowCount)

// SchemaBuilder turns raw input into a GenerationRequest.
type SchemaBuilder struct {
	catalog  *Catalog
	presets  *Presets
	validate *validator.Validate
}

// NewSchemaBuilder returns a builder resolving kinds against catalog.
// presets may be nil, in which case RawRequest.Preset must be empty.
func NewSchemaBuilder(catalog *Catalog, presets *Presets) *SchemaBuilder {
	return &SchemaBuilder{
		catalog:  catalog,
		presets:  presets,
		validate: validator.New(),
	}
}

// Build validates raw and returns the request. Errors match
// ErrNoFields, ErrUnknownPreset, ErrUnknownFieldKind, ErrInvalidRowCount
// or ErrInvalidSeed. Build has no side effects.
func (b *SchemaBuilder) Build(raw RawRequest) (GenerationRequest, error) {
	fields, err := b.resolveFields(raw)
	if err != nil {
		return GenerationRequest{}, err
	}

	count, err := b.ParseRowCount(raw.Count)
	if err != nil {
		return GenerationRequest{}, err
	}

	seed, seeded, err := ParseSeed(raw.Seed)
	if err != nil {
		return GenerationRequest{}, err
	}

	return GenerationRequest{
		fields: fields,
		count:  count,
		seed:   seed,
		seeded: seeded,
	}, nil
}

func (b *SchemaBuilder) resolveFields(raw RawRequest) ([]FieldKind, error) {
	var names []string
	if p := strings.TrimSpace(raw.Preset); p != "" {
		if b.presets == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, p)
		}
		preset, ok := b.presets.Get(p)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, p)
		}
		for _, k := range preset.Fields {
			names = append(names, string(k))
		}
	}
	names = append(names, splitFieldList(raw.Fields)...)

	if len(names) == 0 {
		return nil, ErrNoFields
	}

	fields := make([]FieldKind, 0, len(names))
	var unknown []string
	for _, name := range names {
		kind, ok := b.catalog.Lookup(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		fields = append(fields, kind)
	}
	if len(unknown) > 0 {
		return nil, &UnknownFieldKindError{Kinds: unknown}
	}
	return fields, nil
}

// ParseRowCount parses and range-checks a row count.
func (b *SchemaBuilder) ParseRowCount(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &RowCountError{Raw: raw, Reason: RowCountMissing, Min: MinRowCount, Max: MaxRowCount}
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		// Digits that overflow int are a number, just not one we accept.
		if errors.Is(err, strconv.ErrRange) {
			return 0, &RowCountError{Raw: raw, Reason: RowCountOutOfRange, Min: MinRowCount, Max: MaxRowCount}
		}
		return 0, &RowCountError{Raw: raw, Reason: RowCountNotANumber, Min: MinRowCount, Max: MaxRowCount}
	}

	if err := b.validate.Var(n, rowCountRule); err != nil {
		return 0, &RowCountError{Raw: raw, Reason: RowCountOutOfRange, Min: MinRowCount, Max: MaxRowCount}
	}
	return n, nil
}

// ParseSeed parses an optional seed. An empty string means no seed.
func ParseSeed(raw string) (uint64, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	seed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, &SeedError{Raw: raw}
	}
	return seed, true, nil
}

// splitFieldList flattens repeated and comma-separated field parameters.
func splitFieldList(raw []string) []string {
	var out []string
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
