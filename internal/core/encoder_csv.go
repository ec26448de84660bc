package core

import (
	"encoding/csv"
	"io"
)

// CSVEncoder writes RFC 4180 CSV. A field is quoted when it contains a
// comma, a double quote or a line break; embedded quotes are doubled.
type CSVEncoder struct {
	sink io.Writer
	w    *csv.Writer
}

// NewCSVEncoder returns a CSV encoder writing to w with LF line endings,
// or CRLF when useCRLF is set.
func NewCSVEncoder(w io.Writer, useCRLF bool) *CSVEncoder {
	cw := csv.NewWriter(w)
	cw.UseCRLF = useCRLF
	return &CSVEncoder{sink: w, w: cw}
}

func (e *CSVEncoder) Begin(columns []string, _ []bool) error {
	return e.w.Write(columns)
}

func (e *CSVEncoder) Encode(row Row) error {
	return e.w.Write(row)
}

func (e *CSVEncoder) Flush() error {
	e.w.Flush()
	if err := e.w.Error(); err != nil {
		return err
	}
	return flushSink(e.sink)
}

func (e *CSVEncoder) End() error {
	return e.Flush()
}
