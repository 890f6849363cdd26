package chat

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers chat session routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/chat/session", func(r chi.Router) {
		r.Post("/", h.StartSession)
		r.Get("/{id}", h.GetSession)
		r.Post("/{id}/message", h.SendMessage)
		r.Post("/{id}/dataset", h.UploadDataset)
		r.Post("/{id}/reset", h.ResetSession)
		r.Get("/{id}/report", h.ExportReport)
	})
}
