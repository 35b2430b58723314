package server

import (
	"net/http"
	"net/url"
	"sort"

	"github.com/go-chi/chi/v5"
)

// listPrompts handles GET /prompt.
func (s *Server) listPrompts(w http.ResponseWriter, _ *http.Request) {
	names := s.prompts.Names()
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string]any{"prompts": names})
}

type promptView struct {
	Name           string   `json:"name"`
	Model          string   `json:"model"`
	Action         bool     `json:"action"`
	OptionalModels []string `json:"optionalModels,omitempty"`
	ParamKeys      []string `json:"paramKeys,omitempty"`
	TokenCost      int      `json:"tokenCost"`
}

// getPrompt handles GET /prompt/{name}.
func (s *Server) getPrompt(w http.ResponseWriter, r *http.Request) {
	// Prompt names contain spaces, so the path segment arrives escaped.
	name := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}

	p, err := s.prompts.Get(name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, promptView{
		Name:           p.Name(),
		Model:          p.Model(),
		Action:         p.IsAction(),
		OptionalModels: p.OptionalModels(),
		ParamKeys:      p.ParamKeys(),
		TokenCost:      p.TokenCost(),
	})
}

// listModels handles GET /model: every model the registered providers can
// serve, plus the configured default.
func (s *Server) listModels(w http.ResponseWriter, _ *http.Request) {
	models := s.factory.AllModels()

	var defaultID string
	if m, err := s.factory.DefaultModel(); err == nil {
		defaultID = m.ID
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"models":  models,
		"default": defaultID,
	})
}
