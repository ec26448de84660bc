package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/DataForge/internal/core"
	"github.com/JonMunkholm/DataForge/internal/web/templates"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Upper bound for GET /api/history?limit=.
const maxHistoryLimit = 500

type fieldGroupResponse struct {
	Name   string           `json:"name"`
	Fields []core.FieldInfo `json:"fields"`
}

type healthResponse struct {
	Status      string             `json:"status"`
	Generations core.LimiterStatus `json:"generations"`
}

// handleListFields returns the catalog grouped for display.
func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	catalog := s.service.Catalog()
	groups := make([]fieldGroupResponse, 0, len(catalog.Groups()))
	for _, g := range catalog.Groups() {
		groups = append(groups, fieldGroupResponse{Name: g, Fields: catalog.ByGroup(g)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"groups":        groups,
		"min_row_count": core.MinRowCount,
		"max_row_count": core.MaxRowCount,
		"formats":       core.Formats(),
	})
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets := []core.Preset{}
	if p := s.service.Presets(); p != nil {
		presets = p.All()
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": presets})
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondErrorJSON(w, core.UserMessage{
				Message: "Invalid limit",
				Action:  "Use a positive whole number",
				Code:    "REQ004",
			}, http.StatusBadRequest, "")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := s.service.History().Recent(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []core.GenerationRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondErrorJSON(w, core.UserMessage{
			Message: "Invalid generation ID",
			Action:  "Use the ID from the X-Generation-ID header",
			Code:    "REQ005",
		}, http.StatusBadRequest, "")
		return
	}

	rec, err := s.service.History().Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleHealth reports liveness plus generation slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Generations: s.service.LimiterStatus(),
	})
}

// indexParams assembles the form. msg and selected are set when the form
// is re-rendered after a rejected submission.
func (s *Server) indexParams(msg *core.UserMessage, selected map[core.FieldKind]bool) templates.IndexParams {
	catalog := s.service.Catalog()
	groups := make([]templates.FieldGroup, 0, len(catalog.Groups()))
	for _, g := range catalog.Groups() {
		groups = append(groups, templates.FieldGroup{Name: g, Fields: catalog.ByGroup(g)})
	}

	var presets []core.Preset
	if p := s.service.Presets(); p != nil {
		presets = p.All()
	}

	return templates.IndexParams{
		Groups:          groups,
		Presets:         presets,
		Formats:         core.Formats(),
		DefaultRowCount: s.cfg.Generate.DefaultRowCount,
		MaxRowCount:     core.MaxRowCount,
		Error:           msg,
		Selected:        selected,
	}
}
