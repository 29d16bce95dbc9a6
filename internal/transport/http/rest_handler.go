package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/vibhuti45/vishwaas-academy/internal/app"
)

// RESTHandler serves the read-only reporting endpoints consumed by the
// faculty results table and the student dashboard.
type RESTHandler struct {
	service *app.AttemptService
}

func NewRESTHandler(service *app.AttemptService) *RESTHandler {
	return &RESTHandler{service: service}
}

// Register mounts the endpoints on mux.
func (h *RESTHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /quizzes/{id}/leaderboard", h.leaderboard)
	mux.HandleFunc("GET /students/{id}/results", h.studentResults)
}

func (h *RESTHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Leaderboard(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "failed to load leaderboard", http.StatusInternalServerError)
		log.Printf("leaderboard: %v", err)
		return
	}
	writeJSON(w, rows)
}

func (h *RESTHandler) studentResults(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.StudentHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "failed to load results", http.StatusInternalServerError)
		log.Printf("student results: %v", err)
		return
	}
	writeJSON(w, summaries)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}
