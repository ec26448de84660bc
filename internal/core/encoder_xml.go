package core

import (
	"encoding/xml"
	"io"
)

// XML element names used by XMLEncoder.
const (
	xmlRootElement   = "data"
	xmlRecordElement = "record"
)

// XMLEncoder writes <data><record><column>value</column>...</record></data>.
type XMLEncoder struct {
	sink    io.Writer
	enc     *xml.Encoder
	columns []xml.Name
}

// NewXMLEncoder returns an XML encoder writing to w.
func NewXMLEncoder(w io.Writer) *XMLEncoder {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return &XMLEncoder{sink: w, enc: enc}
}

func (e *XMLEncoder) Begin(columns []string, _ []bool) error {
	e.columns = make([]xml.Name, len(columns))
	for i, c := range columns {
		e.columns[i] = xml.Name{Local: c}
	}
	if err := e.enc.EncodeToken(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)}); err != nil {
		return err
	}
	return e.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: xmlRootElement}})
}

func (e *XMLEncoder) Encode(row Row) error {
	record := xml.StartElement{Name: xml.Name{Local: xmlRecordElement}}
	if err := e.enc.EncodeToken(record); err != nil {
		return err
	}
	// EncodeElement flushes on every call; raw tokens stay buffered until Flush.
	for i, v := range row {
		start := xml.StartElement{Name: e.columns[i]}
		if err := e.enc.EncodeToken(start); err != nil {
			return err
		}
		if err := e.enc.EncodeToken(xml.CharData(v)); err != nil {
			return err
		}
		if err := e.enc.EncodeToken(start.End()); err != nil {
			return err
		}
	}
	return e.enc.EncodeToken(record.End())
}

func (e *XMLEncoder) Flush() error {
	if err := e.enc.Flush(); err != nil {
		return err
	}
	return flushSink(e.sink)
}

func (e *XMLEncoder) End() error {
	if err := e.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: xmlRootElement}}); err != nil {
		return err
	}
	if err := e.enc.Flush(); err != nil {
		return err
	}
	if _, err := io.WriteString(e.sink, "\n"); err != nil {
		return err
	}
	return flushSink(e.sink)
}
