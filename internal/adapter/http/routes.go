package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Sessions
		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions/count", h.GetSessionCount)
		r.Get("/sessions/{id}", h.GetSession)
		r.Post("/sessions/{id}/votes", h.SubmitVote)
		r.Post("/sessions/{id}/wait", h.WaitForResolution)
		r.Post("/sessions/{id}/human-decision", h.SubmitHumanDecision)

		// Channel-routed votes (by subject / message id)
		r.Post("/votes", h.PublishVote)

		// Subjects
		r.Get("/subjects/{subjectID}/votes", h.GetVotes)
		r.Get("/subjects/{subjectID}/audit", h.GetAudit)
	})
}
