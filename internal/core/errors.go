package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors below match these through errors.Is so
// callers can branch on the category without caring about the detail.
var (
	ErrUnknownFieldKind  = errors.New("unknown field kind")
	ErrNoFields          = errors.New("no fields selected")
	ErrInvalidRowCount   = errors.New("invalid row count")
	ErrInvalidSeed       = errors.New("invalid seed")
	ErrUnknownFormat     = errors.New("unsupported output format")
	ErrUnknownPreset     = errors.New("unknown preset")
	ErrGenerationFailure = errors.New("generation failed")
	ErrMalformedRequest  = errors.New("malformed request")
)

// UnknownFieldKindError lists every requested kind missing from the catalog.
type UnknownFieldKindError struct {
	Kinds []string
}

func (e *UnknownFieldKindError) Error() string {
	return fmt.Sprintf("unknown field kind: %s", strings.Join(e.Kinds, ", "))
}

func (e *UnknownFieldKindError) Is(target error) bool {
	return target == ErrUnknownFieldKind
}

// RowCountReason tells the user which rule a row count broke.
type RowCountReason int

const (
	RowCountMissing RowCountReason = iota
	RowCountNotANumber
	RowCountOutOfRange
)

// RowCountError is returned when the requested row count cannot be used.
type RowCountError struct {
	Raw    string
	Reason RowCountReason
	Min    int
	Max    int
}

func (e *RowCountError) Error() string {
	switch e.Reason {
	case RowCountMissing:
		return fmt.Sprintf("invalid row count: row count is required (allowed %d-%d)", e.Min, e.Max)
	case RowCountNotANumber:
		return fmt.Sprintf("invalid row count: %q is not a number (allowed %d-%d)", e.Raw, e.Min, e.Max)
	default:
		return fmt.Sprintf("invalid row count: %s is out of range (allowed %d-%d)", e.Raw, e.Min, e.Max)
	}
}

func (e *RowCountError) Is(target error) bool {
	return target == ErrInvalidRowCount
}

// SeedError is returned for a seed that is not an unsigned 64-bit integer.
type SeedError struct {
	Raw string
}

func (e *SeedError) Error() string {
	return fmt.Sprintf("invalid seed: %q must be a non-negative integer", e.Raw)
}

func (e *SeedError) Is(target error) bool {
	return target == ErrInvalidSeed
}

// GenerationError reports the row and field whose generator faulted.
// Rows before Row were already handed to the consumer.
type GenerationError struct {
	Row  int
	Kind FieldKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed at row %d (%s): %v", e.Row, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailure
}

// IsValidationError reports whether err was raised while validating input,
// i.e. before any output could have been produced.
func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrUnknownFieldKind),
		errors.Is(err, ErrNoFields),
		errors.Is(err, ErrInvalidRowCount),
		errors.Is(err, ErrInvalidSeed),
		errors.Is(err, ErrUnknownFormat),
		errors.Is(err, ErrUnknownPreset),
		errors.Is(err, ErrMalformedRequest):
		return true
	}
	return false
}
