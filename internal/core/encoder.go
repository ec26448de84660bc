package core

// encoder.go streams a row cursor into an output format.
//
// Every encoder writes incrementally: the header (or preamble) first, then
// one row at a time. Nothing beyond the current row and the encoder's own
// write buffer is held in memory, so a 100,000 row request costs the same
// memory as a 10 row one.
//
// A generation failure stops the stream without writing the trailer and
// without flushing the encoder buffer, so callers never see output that
// looks complete.

import (
	"fmt"
	"io"
	"strings"
)

// DefaultFlushEvery is how many rows are buffered between flushes.
const DefaultFlushEvery = 1000

// DefaultTableName is used by the SQL encoder.
const DefaultTableName = "generated_data"

// Encoder serializes rows into one output format.
type Encoder interface {
	// Begin writes the header. numeric marks columns holding numbers.
	Begin(columns []string, numeric []bool) error
	// Encode writes one row.
	Encode(row Row) error
	// Flush pushes buffered bytes to the sink and flushes the sink when it
	// supports flushing (http.Flusher and friends).
	Flush() error
	// End writes any trailer and flushes.
	End() error
}

// StreamOptions tunes Stream and the encoders built by Format.NewEncoder.
type StreamOptions struct {
	FlushEvery int            // Rows between flushes; 0 uses DefaultFlushEvery, <0 never
	UseCRLF    bool           // CSV line terminator
	TableName  string         // SQL table name
	Progress   func(rows int) // Called after each encoded row
}

// StreamStats summarizes a finished or aborted stream.
type StreamStats struct {
	Rows int
}

// Stream drains rows into enc. It returns the generation error when the
// cursor fails, which callers must treat as a truncated, invalid result.
func Stream(enc Encoder, rows *Rows, opts StreamOptions) (StreamStats, error) {
	var stats StreamStats

	flushEvery := opts.FlushEvery
	if flushEvery == 0 {
		flushEvery = DefaultFlushEvery
	}

	if err := enc.Begin(rows.Columns(), rows.Numeric()); err != nil {
		rows.Close()
		return stats, fmt.Errorf("write header: %w", err)
	}

	for rows.Next() {
		if err := enc.Encode(rows.Row()); err != nil {
			// Sink gone (client disconnected): stop generating.
			rows.Close()
			return stats, fmt.Errorf("write row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		if flushEvery > 0 && stats.Rows%flushEvery == 0 {
			if err := enc.Flush(); err != nil {
				rows.Close()
				return stats, fmt.Errorf("flush after row %d: %w", stats.Rows, err)
			}
		}
		if opts.Progress != nil {
			opts.Progress(stats.Rows)
		}
	}

	if err := rows.Err(); err != nil {
		return stats, err
	}

	if err := enc.End(); err != nil {
		return stats, fmt.Errorf("finish output: %w", err)
	}
	return stats, nil
}

// WriteCSV streams rows to w as CSV: one header line, then one line per row.
func WriteCSV(w io.Writer, rows *Rows, opts StreamOptions) (StreamStats, error) {
	return Stream(NewCSVEncoder(w, opts.UseCRLF), rows, opts)
}

// Format identifies an output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatSQL  Format = "sql"
)

// Formats lists the supported formats, CSV first.
func Formats() []Format {
	return []Format{FormatCSV, FormatJSON, FormatXML, FormatSQL}
}

// ParseFormat maps user input to a Format. Empty input selects CSV.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatXML, FormatSQL:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXML:
		return "application/xml"
	case FormatSQL:
		return "application/sql"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	if f == "" {
		return string(FormatCSV)
	}
	return string(f)
}

// NewEncoder builds the encoder for f writing to w.
func (f Format) NewEncoder(w io.Writer, opts StreamOptions) Encoder {
	switch f {
	case FormatJSON:
		return NewJSONEncoder(w)
	case FormatXML:
		return NewXMLEncoder(w)
	case FormatSQL:
		return NewSQLEncoder(w, opts.TableName)
	default:
		return NewCSVEncoder(w, opts.UseCRLF)
	}
}

// flushSink flushes w when it knows how to.
func flushSink(w io.Writer) error {
	switch f := w.(type) {
	case interface{ Flush() error }:
		return f.Flush()
	case interface{ Flush() }:
		f.Flush()
	}
	return nil
}
