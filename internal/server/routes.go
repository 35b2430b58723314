package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Session routes
	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.createSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Patch("/", s.updateSession)
			r.Delete("/", s.deleteSession)

			r.Get("/message", s.getMessages)
			r.Post("/message", s.sendMessage) // Streaming response
			r.Post("/fork", s.forkSession)
			r.Post("/revert", s.revertSession)
		})
	})

	// Prompt routes
	r.Route("/prompt", func(r chi.Router) {
		r.Get("/", s.listPrompts)
		r.Get("/{name}", s.getPrompt)
	})

	// Models
	r.Get("/model", s.listModels)

	// Event streaming (SSE)
	r.Get("/event", s.events)

	// Operational endpoints
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
