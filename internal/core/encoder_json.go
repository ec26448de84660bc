package core

import (
	"bufio"
	"encoding/json"
	"io"
	"strconv"
)

// JSONEncoder writes a single JSON array with one object per row. Keys
// follow column order; numeric columns are emitted as JSON numbers.
type JSONEncoder struct {
	sink    io.Writer
	w       *bufio.Writer
	keys    [][]byte
	numeric []bool
	rows    int
}

// NewJSONEncoder returns a JSON encoder writing to w.
func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{sink: w, w: bufio.NewWriter(w)}
}

func (e *JSONEncoder) Begin(columns []string, numeric []bool) error {
	e.keys = make([][]byte, len(columns))
	for i, c := range columns {
		k, err := json.Marshal(c)
		if err != nil {
			return err
		}
		e.keys[i] = k
	}
	e.numeric = numeric
	_, err := e.w.WriteString("[")
	return err
}

func (e *JSONEncoder) Encode(row Row) error {
	if e.rows > 0 {
		e.w.WriteByte(',')
	}
	e.rows++
	e.w.WriteString("\n  {")
	for i, v := range row {
		if i > 0 {
			e.w.WriteString(", ")
		}
		e.w.Write(e.keys[i])
		e.w.WriteString(": ")
		if e.isNumber(i, v) {
			e.w.WriteString(v)
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		e.w.Write(b)
	}
	_, err := e.w.WriteString("}")
	return err
}

func (e *JSONEncoder) isNumber(i int, v string) bool {
	if i >= len(e.numeric) || !e.numeric[i] {
		return false
	}
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

func (e *JSONEncoder) Flush() error {
	if err := e.w.Flush(); err != nil {
		return err
	}
	return flushSink(e.sink)
}

func (e *JSONEncoder) End() error {
	if e.rows > 0 {
		e.w.WriteString("\n")
	}
	if _, err := e.w.WriteString("]\n"); err != nil {
		return err
	}
	return e.Flush()
}
