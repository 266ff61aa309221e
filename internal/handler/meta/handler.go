package meta

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/studyai/backend/pkg/utils"
)

const (
	serviceName    = "StudyAI API"
	serviceVersion = "1.0.0"
)

// Handler serves the static service descriptor and liveness probe.
type Handler struct {
	defaultAgent string
}

func New(defaultAgent string) *Handler {
	return &Handler{defaultAgent: defaultAgent}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleRoot)
	r.Get("/health", h.handleHealth)
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"service":   serviceName,
		"version":   serviceVersion,
		"modes":     "flashcards | practice | exam",
		"websocket": "/ws/{user_id}",
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"agent":  h.defaultAgent,
	})
}
