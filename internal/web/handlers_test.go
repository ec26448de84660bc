package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/DataForge/internal/config"
	"github.com/JonMunkholm/DataForge/internal/core"
	"github.com/google/go-cmp/cmp"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			RequestTimeout: 5 * time.Second,
		},
		Generate: config.GenerateConfig{
			MaxConcurrent:   2,
			MaxWaitTime:     20 * time.Millisecond,
			FlushEvery:      1000,
			DefaultRowCount: 1000,
			TableName:       "generated_data",
			Timeout:         time.Minute,
		},
		Security: config.SecurityConfig{EnableCSP: true},
		History:  config.HistoryConfig{Size: 50},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, catalog *core.Catalog) (*Server, *core.Service) {
	t.Helper()
	// Presets reference default kinds, so custom catalogs run without them.
	var presets *core.Presets
	if catalog == nil {
		catalog = core.MustDefaultCatalog()
		var err error
		if presets, err = core.DefaultPresets(catalog); err != nil {
			t.Fatalf("DefaultPresets: %v", err)
		}
	}
	svc := core.NewService(catalog, presets, core.NewMemoryHistory(cfg.History.Size), core.Options{
		MaxConcurrent: cfg.Generate.MaxConcurrent,
		MaxWait:       cfg.Generate.MaxWaitTime,
		FlushEvery:    cfg.Generate.FlushEvery,
		TableName:     cfg.Generate.TableName,
	})
	srv := NewServer(cfg, svc)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, svc
}

func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, body io.Reader) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func TestGenerate_SeededCSV(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)
	target := "/api/generate?fields=full_name,email&count=3&seed=42"

	first := doRequest(srv, httptest.NewRequest(http.MethodGet, target, nil))
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", first.Code, first.Body.String())
	}

	lines := strings.Split(strings.TrimSuffix(first.Body.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), first.Body.String())
	}
	if lines[0] != "full_name,email" {
		t.Errorf("header = %q", lines[0])
	}

	h := first.Header()
	if got := h.Get("Content-Type"); got != "text/csv; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	disposition := regexp.MustCompile(`^attachment; filename="dataforge_\d{8}_\d{6}\.csv"$`)
	if got := h.Get("Content-Disposition"); !disposition.MatchString(got) {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := h.Get("X-Generation-Seed"); got != "42" {
		t.Errorf("X-Generation-Seed = %q, want 42", got)
	}
	if h.Get("X-Generation-ID") == "" {
		t.Error("missing X-Generation-ID")
	}

	second := doRequest(srv, httptest.NewRequest(http.MethodGet, target, nil))
	if diff := cmp.Diff(first.Body.String(), second.Body.String()); diff != "" {
		t.Errorf("seeded output differs between runs (-first +second):\n%s", diff)
	}
}

func TestGenerate_ValidationErrors(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"no fields", "count=10", "FLD002"},
		{"unknown field", "fields=email,shoe_size&count=10", "FLD001"},
		{"missing count", "fields=email", "CNT001"},
		{"count not a number", "fields=email&count=ten", "CNT002"},
		{"count zero", "fields=email&count=0", "CNT003"},
		{"count too large", "fields=email&count=100001", "CNT003"},
		{"negative seed", "fields=email&count=5&seed=-1", "SEED001"},
		{"unknown format", "fields=email&count=5&format=yaml", "FMT001"},
		{"unknown preset", "preset=astronomy&count=5", "PRE001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/generate?"+tt.query, nil))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if got := rec.Header().Get("Content-Disposition"); got != "" {
				t.Errorf("Content-Disposition = %q on error", got)
			}
			resp := decodeError(t, rec.Body)
			if resp.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Code, tt.code)
			}
			if resp.Detail == "" {
				t.Error("validation error should carry detail")
			}
		})
	}
}

func TestGenerate_JSONBody(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	body := `{"columns":["email","quantity"],"recordCount":5,"seed":"42","outputFormat":"json"}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if !strings.HasSuffix(rec.Header().Get("Content-Disposition"), `.json"`) {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}

	var rows []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want 5", len(rows))
	}
	if _, ok := rows[0]["quantity"].(float64); !ok {
		t.Errorf("quantity = %#v, want a JSON number", rows[0]["quantity"])
	}
}

func TestGenerate_MalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"fields":`))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(srv, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp := decodeError(t, rec.Body); resp.Code != "REQ003" {
		t.Errorf("code = %s, want REQ003", resp.Code)
	}
}

func TestGenerate_FormPost(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	form := url.Values{
		"preset": {"technical"},
		"count":  {"25"},
		"format": {"sql"},
	}
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := doRequest(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := strings.Count(rec.Body.String(), "INSERT INTO"); got != 25 {
		t.Errorf("got %d INSERT statements, want 25", got)
	}
}

func TestGenerate_FormErrorRendersPage(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	form := url.Values{"fields": {"email"}, "count": {"0"}}
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := doRequest(srv, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want html", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "CNT003") {
		t.Error("page should show the error code")
	}
	if !strings.Contains(body, `value="email" checked`) {
		t.Error("page should keep the selected field checked")
	}
}

func TestGenerate_Busy(t *testing.T) {
	cfg := testConfig()
	cfg.Generate.MaxConcurrent = 1
	srv, svc := newTestServer(t, cfg, nil)

	req, err := svc.BuildRequest(core.RawRequest{Fields: []string{"email"}, Count: "1"})
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	held, err := svc.Prepare(context.Background(), req, core.FormatCSV)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer held.Close()

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/generate?fields=email&count=5", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if resp := decodeError(t, rec.Body); resp.Code != "GEN002" {
		t.Errorf("code = %s, want GEN002", resp.Code)
	}
}

// failingCatalog fails the "broken" column on its failAt-th value.
func failingCatalog(t *testing.T, failAt int) *core.Catalog {
	t.Helper()
	calls := 0
	catalog, err := core.NewCatalog(
		core.Field{Kind: "ok", Generate: func(*core.RandomSource) (string, error) { return "fine", nil }},
		core.Field{Kind: "broken", Generate: func(*core.RandomSource) (string, error) {
			calls++
			if calls == failAt {
				return "", errors.New("backend unavailable")
			}
			return "v", nil
		}},
	)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return catalog
}

func TestGenerate_FailureBeforeOutput(t *testing.T) {
	srv, svc := newTestServer(t, testConfig(), failingCatalog(t, 3))

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/generate?fields=ok,broken&count=10", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != "" {
		t.Errorf("Content-Disposition = %q on failure", got)
	}
	if resp := decodeError(t, rec.Body); resp.Code != "GEN001" {
		t.Errorf("code = %s, want GEN001", resp.Code)
	}

	records, err := svc.History().Recent(context.Background(), 1)
	if err != nil || len(records) != 1 {
		t.Fatalf("Recent = %v, %v", records, err)
	}
	if records[0].Status != core.StatusFailed {
		t.Errorf("history status = %s, want failed", records[0].Status)
	}
}

func TestGenerate_FailureMidStreamAborts(t *testing.T) {
	cfg := testConfig()
	cfg.Generate.FlushEvery = 1
	srv, _ := newTestServer(t, cfg, failingCatalog(t, 50))

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/generate?fields=ok,broken&count=100")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 before the failure", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err == nil {
		t.Fatalf("read completed without error; truncated output looks complete:\n%s", body)
	}
	if strings.Count(string(body), "\n") > 50 {
		t.Errorf("received %d lines, want at most 50", strings.Count(string(body), "\n"))
	}
}

func TestListFields(t *testing.T) {
	srv, svc := newTestServer(t, testConfig(), nil)

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/fields", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Groups []struct {
			Name   string           `json:"name"`
			Fields []core.FieldInfo `json:"fields"`
		} `json:"groups"`
		MaxRowCount int `json:"max_row_count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	total := 0
	var names []string
	for _, g := range resp.Groups {
		names = append(names, g.Name)
		total += len(g.Fields)
	}
	if total != svc.Catalog().Len() {
		t.Errorf("listed %d fields, catalog has %d", total, svc.Catalog().Len())
	}
	if diff := cmp.Diff(svc.Catalog().Groups(), names); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
	if resp.MaxRowCount != core.MaxRowCount {
		t.Errorf("max_row_count = %d", resp.MaxRowCount)
	}
}

func TestListPresets(t *testing.T) {
	srv, svc := newTestServer(t, testConfig(), nil)

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/presets", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Presets []core.Preset `json:"presets"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(svc.Presets().All(), resp.Presets); diff != "" {
		t.Errorf("presets mismatch (-want +got):\n%s", diff)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	gen := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/generate?fields=uuid&count=7&seed=9", nil))
	if gen.Code != http.StatusOK {
		t.Fatalf("generate status = %d", gen.Code)
	}
	id := gen.Header().Get("X-Generation-ID")

	list := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/history?limit=5", nil))
	var listed struct {
		Records []core.GenerationRecord `json:"records"`
	}
	if err := json.NewDecoder(list.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Records) != 1 || listed.Records[0].ID.String() != id {
		t.Fatalf("history = %+v, want the one generation %s", listed.Records, id)
	}

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"found", "/api/history/" + id, http.StatusOK},
		{"bad id", "/api/history/not-a-uuid", http.StatusBadRequest},
		{"unknown id", "/api/history/6f1c2a34-0d0e-4c43-9d8e-2b1f0f7c9a11", http.StatusNotFound},
		{"bad limit", "/api/history?limit=zero", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}

	got := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/history/"+id, nil))
	var rec core.GenerationRecord
	if err := json.NewDecoder(got.Body).Decode(&rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.Status != core.StatusCompleted || rec.RowsWritten != 7 || rec.Seed != 9 {
		t.Errorf("record = %+v", rec)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	srv, _ := newTestServer(t, cfg, nil)

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/fields", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/fields", nil)
	req.Header.Set("X-API-Key", "secret")
	if rec := doRequest(srv, req); rec.Code != http.StatusOK {
		t.Errorf("valid key: status = %d, want 200", rec.Code)
	}

	// The browser form is not behind the API key.
	if rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/", nil)); rec.Code != http.StatusOK {
		t.Errorf("index: status = %d, want 200", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, GenerateLimit: 2}
	srv, _ := newTestServer(t, cfg, nil)

	var codes []int
	for range 3 {
		rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/generate?fields=email&count=1", nil))
		codes = append(codes, rec.Code)
	}
	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	if diff := cmp.Diff(want, codes); diff != "" {
		t.Errorf("status codes mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	index := doRequest(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if index.Code != http.StatusOK {
		t.Fatalf("index status = %d", index.Code)
	}
	if !strings.Contains(index.Body.String(), `name="fields"`) {
		t.Error("index should render field checkboxes")
	}
	if got := index.Header().Get("Content-Security-Policy"); got == "" {
		t.Error("missing Content-Security-Policy")
	}

	health := doRequest(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var resp healthResponse
	if err := json.NewDecoder(health.Body).Decode(&resp); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.Status != "ok" || resp.Generations.MaxConcurrent != 2 {
		t.Errorf("health = %+v", resp)
	}
}
