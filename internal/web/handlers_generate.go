package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/DataForge/internal/core"
	"github.com/JonMunkholm/DataForge/internal/logging"
)

// maxRequestBody bounds form and JSON bodies; a request is a few field names.
const maxRequestBody = 1 << 20

// generateInput is the JSON body accepted by POST /api/generate. The
// alternate names match the form and query parameters.
type generateInput struct {
	Fields       []string   `json:"fields"`
	Columns      []string   `json:"columns"`
	Preset       string     `json:"preset"`
	Count        flexString `json:"count"`
	RecordCount  flexString `json:"recordCount"`
	Rows         flexString `json:"rows"`
	Seed         flexString `json:"seed"`
	Format       string     `json:"format"`
	OutputFormat string     `json:"outputFormat"`
}

// flexString accepts a JSON string or number and keeps its text, so
// validation messages match form input and large seeds keep full precision.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	default:
		*f = flexString(data)
		return nil
	}
}

// handleGenerate validates the request, then streams the dataset as a
// download. Errors found before the first byte is sent get a normal error
// response; once output has started the connection is aborted so the
// client cannot mistake a truncated file for a complete one.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	raw, rawFormat, err := parseGenerateInput(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	req, err := s.service.BuildRequest(raw)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}
	format, err := core.ParseFormat(rawFormat)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	ctx := r.Context()
	if s.cfg.Generate.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Generate.Timeout)
		defer cancel()
	}
	ctx = WithRequestMetadata(ctx, r)

	gen, err := s.service.Prepare(ctx, req, format)
	if err != nil {
		if errors.Is(err, core.ErrTooManyGenerations) {
			w.Header().Set("Retry-After", "5")
		}
		s.respondError(w, r, err, statusForError(err))
		return
	}

	h := w.Header()
	h.Set("Content-Type", format.ContentType())
	h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, downloadName(format, time.Now())))
	h.Set("Cache-Control", "no-store")
	h.Set("X-Generation-ID", gen.ID().String())
	h.Set("X-Generation-Seed", strconv.FormatUint(gen.Seed(), 10))

	rec, err := gen.Run(newResponseSink(w), nil)
	if err == nil {
		return
	}

	if rec.BytesWritten == 0 {
		for _, k := range []string{"Content-Disposition", "Cache-Control", "X-Generation-ID", "X-Generation-Seed"} {
			h.Del(k)
		}
		s.respondError(w, r, err, statusForError(err))
		return
	}

	logging.FromContext(r.Context()).Error("aborting partial download",
		"generation_id", gen.ID().String(),
		"rows_written", rec.RowsWritten,
		"bytes_written", rec.BytesWritten,
		"error", err,
	)
	panic(http.ErrAbortHandler)
}

// parseGenerateInput reads a JSON body or form/query parameters.
func parseGenerateInput(w http.ResponseWriter, r *http.Request) (core.RawRequest, string, error) {
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	}

	if r.Method == http.MethodPost && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var in generateInput
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&in); err != nil {
			return core.RawRequest{}, "", fmt.Errorf("%w: %v", core.ErrMalformedRequest, err)
		}
		return core.RawRequest{
			Fields: append(in.Fields, in.Columns...),
			Preset: in.Preset,
			Count:  firstNonEmpty(string(in.Count), string(in.RecordCount), string(in.Rows)),
			Seed:   string(in.Seed),
		}, firstNonEmpty(in.Format, in.OutputFormat), nil
	}

	if err := r.ParseForm(); err != nil {
		return core.RawRequest{}, "", fmt.Errorf("%w: %v", core.ErrMalformedRequest, err)
	}
	f := r.Form
	return core.RawRequest{
		Fields: append(f["fields"], f["columns"]...),
		Preset: f.Get("preset"),
		Count:  firstNonEmpty(f.Get("count"), f.Get("recordCount"), f.Get("rows")),
		Seed:   f.Get("seed"),
	}, firstNonEmpty(f.Get("format"), f.Get("outputFormat")), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// downloadName builds e.g. dataforge_20240131_154500.csv.
func downloadName(format core.Format, now time.Time) string {
	return "dataforge_" + now.UTC().Format("20060102_150405") + "." + format.Extension()
}

// responseSink writes to the response and pushes buffered bytes to the
// client on every encoder flush.
type responseSink struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newResponseSink(w http.ResponseWriter) *responseSink {
	return &responseSink{w: w, rc: http.NewResponseController(w)}
}

func (s *responseSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s *responseSink) Flush() error {
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
