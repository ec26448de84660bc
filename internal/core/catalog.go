package core

import (
	"fmt"
	"sort"
	"strings"
)

// FieldKind names a generatable column type, e.g. "email" or "price_usd".
type FieldKind string

// GenerateFunc draws one value from src. It must depend on src only.
type GenerateFunc func(src *RandomSource) (string, error)

// Field groups shown in the UI and listed by the API.
const (
	GroupPersonal  = "Personal Info"
	GroupBusiness  = "Business Data"
	GroupTechnical = "Technical Data"
	GroupFinance   = "Finance"
	GroupCommerce  = "E-commerce"
)

// Field is one catalog entry.
type Field struct {
	Kind     FieldKind
	Column   string   // Output column name
	Label    string   // Display name
	Group    string   // UI grouping
	Numeric  bool     // Emitted unquoted by keyed encoders (JSON)
	Aliases  []string // Alternate identifiers accepted on input
	Generate GenerateFunc
}

// FieldInfo is the serializable description of a Field.
type FieldInfo struct {
	Kind    FieldKind `json:"kind"`
	Column  string    `json:"column"`
	Label   string    `json:"label"`
	Group   string    `json:"group"`
	Numeric bool      `json:"numeric,omitempty"`
}

// Catalog is an immutable mapping from field kinds to generators.
// Build it once with NewCatalog and share it freely; it is never mutated.
type Catalog struct {
	fields  map[FieldKind]Field
	aliases map[string]FieldKind
	order   []FieldKind
}

// NewCatalog builds a catalog from fields. Kinds, column names and aliases
// must be unique and every field needs a generator.
func NewCatalog(fields ...Field) (*Catalog, error) {
	c := &Catalog{
		fields:  make(map[FieldKind]Field, len(fields)),
		aliases: make(map[string]FieldKind),
		order:   make([]FieldKind, 0, len(fields)),
	}

	columns := make(map[string]FieldKind, len(fields))
	for _, f := range fields {
		if f.Kind == "" {
			return nil, fmt.Errorf("catalog: field with empty kind")
		}
		if f.Generate == nil {
			return nil, fmt.Errorf("catalog: field %s has no generator", f.Kind)
		}
		if _, dup := c.fields[f.Kind]; dup {
			return nil, fmt.Errorf("catalog: duplicate field kind %s", f.Kind)
		}
		if f.Column == "" {
			f.Column = string(f.Kind)
		}
		if f.Label == "" {
			f.Label = f.Column
		}
		if other, dup := columns[f.Column]; dup {
			return nil, fmt.Errorf("catalog: column %q used by %s and %s", f.Column, other, f.Kind)
		}
		columns[f.Column] = f.Kind

		for _, a := range f.Aliases {
			key := normalizeKind(a)
			if other, dup := c.aliases[key]; dup {
				return nil, fmt.Errorf("catalog: alias %q used by %s and %s", a, other, f.Kind)
			}
			c.aliases[key] = f.Kind
		}

		c.fields[f.Kind] = f
		c.order = append(c.order, f.Kind)
	}

	for alias, kind := range c.aliases {
		if _, clash := c.fields[FieldKind(alias)]; clash && FieldKind(alias) != kind {
			return nil, fmt.Errorf("catalog: alias %q shadows field kind", alias)
		}
	}

	return c, nil
}

// Resolve returns the column name and generator for kind.
// Fails with an error matching ErrUnknownFieldKind if kind is not registered.
func (c *Catalog) Resolve(kind FieldKind) (string, GenerateFunc, error) {
	f, ok := c.fields[kind]
	if !ok {
		return "", nil, &UnknownFieldKindError{Kinds: []string{string(kind)}}
	}
	return f.Column, f.Generate, nil
}

// Field returns the full entry for kind.
func (c *Catalog) Field(kind FieldKind) (Field, bool) {
	f, ok := c.fields[kind]
	return f, ok
}

// Lookup maps a raw user-supplied identifier (kind or alias, any case)
// to its canonical kind.
func (c *Catalog) Lookup(raw string) (FieldKind, bool) {
	if _, ok := c.fields[FieldKind(raw)]; ok {
		return FieldKind(raw), true
	}
	key := normalizeKind(raw)
	if _, ok := c.fields[FieldKind(key)]; ok {
		return FieldKind(key), true
	}
	kind, ok := c.aliases[key]
	return kind, ok
}

// Kinds returns all kinds in registration order.
func (c *Catalog) Kinds() []FieldKind {
	out := make([]FieldKind, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of registered kinds.
func (c *Catalog) Len() int { return len(c.order) }

// Groups returns the distinct groups in registration order.
func (c *Catalog) Groups() []string {
	seen := make(map[string]bool)
	var groups []string
	for _, k := range c.order {
		g := c.fields[k].Group
		if !seen[g] {
			seen[g] = true
			groups = append(groups, g)
		}
	}
	return groups
}

// ByGroup returns the fields of group in registration order.
func (c *Catalog) ByGroup(group string) []FieldInfo {
	var out []FieldInfo
	for _, k := range c.order {
		if f := c.fields[k]; f.Group == group {
			out = append(out, f.Info())
		}
	}
	return out
}

// Infos describes every field, sorted by group then kind.
func (c *Catalog) Infos() []FieldInfo {
	out := make([]FieldInfo, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.fields[k].Info())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Info returns the serializable description of f.
func (f Field) Info() FieldInfo {
	return FieldInfo{
		Kind:    f.Kind,
		Column:  f.Column,
		Label:   f.Label,
		Group:   f.Group,
		Numeric: f.Numeric,
	}
}

// normalizeKind lowercases and converts camelCase and dashes to snake_case,
// so "dateOfBirth", "Date-Of-Birth" and "date_of_birth" compare equal.
func normalizeKind(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	b.Grow(len(raw) + 4)
	for i, r := range raw {
		switch {
		case r >= 'A' && r <= 'Z':
			if i > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		case r == '-' || r == ' ':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
