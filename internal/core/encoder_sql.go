package core

import (
	"bufio"
	"io"
	"strings"
)

// SQLEncoder writes a CREATE TABLE statement followed by one INSERT per row.
// All columns are TEXT; values are single-quoted with embedded quotes doubled.
type SQLEncoder struct {
	sink   io.Writer
	w      *bufio.Writer
	table  string
	insert string
}

// NewSQLEncoder returns a SQL encoder for table (DefaultTableName if empty).
func NewSQLEncoder(w io.Writer, table string) *SQLEncoder {
	if table == "" {
		table = DefaultTableName
	}
	return &SQLEncoder{sink: w, w: bufio.NewWriter(w), table: table}
}

func (e *SQLEncoder) Begin(columns []string, _ []bool) error {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = c + " TEXT"
	}
	e.insert = "INSERT INTO " + e.table + " (" + strings.Join(columns, ", ") + ") VALUES ("
	_, err := e.w.WriteString("CREATE TABLE " + e.table + " (" + strings.Join(defs, ", ") + ");\n")
	return err
}

func (e *SQLEncoder) Encode(row Row) error {
	e.w.WriteString(e.insert)
	for i, v := range row {
		if i > 0 {
			e.w.WriteString(", ")
		}
		e.w.WriteByte('\'')
		e.w.WriteString(strings.ReplaceAll(v, "'", "''"))
		e.w.WriteByte('\'')
	}
	_, err := e.w.WriteString(");\n")
	return err
}

func (e *SQLEncoder) Flush() error {
	if err := e.w.Flush(); err != nil {
		return err
	}
	return flushSink(e.sink)
}

func (e *SQLEncoder) End() error {
	return e.Flush()
}
