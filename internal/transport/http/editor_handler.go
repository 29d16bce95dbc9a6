package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/vibhuti45/vishwaas-academy/internal/app"
	"github.com/vibhuti45/vishwaas-academy/internal/domain"
)

// EditorHandler exposes the faculty quiz-editing operations. Authentication
// happens upstream; by the time a request lands here the caller is a
// verified faculty member.
type EditorHandler struct {
	editor *app.EditorService
}

func NewEditorHandler(editor *app.EditorService) *EditorHandler {
	return &EditorHandler{editor: editor}
}

func (h *EditorHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /quizzes", h.createQuiz)
	mux.HandleFunc("POST /quizzes/{id}/questions", h.addQuestion)
	mux.HandleFunc("PUT /quizzes/{id}/marking", h.setMarking)
	mux.HandleFunc("PUT /quizzes/{id}/published", h.setPublished)
}

type createQuizRequest struct {
	CourseID        string `json:"courseId"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"durationMinutes"`
}

func (h *EditorHandler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	quiz, err := h.editor.CreateQuiz(r.Context(), req.CourseID, req.Title, req.DurationMinutes)
	if err != nil {
		writeEditorError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, quiz)
}

type addQuestionRequest struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
}

func (h *EditorHandler) addQuestion(w http.ResponseWriter, r *http.Request) {
	var req addQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	err := h.editor.AddQuestion(r.Context(), r.PathValue("id"), req.Prompt, req.Options, req.CorrectOption)
	if err != nil {
		writeEditorError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EditorHandler) setMarking(w http.ResponseWriter, r *http.Request) {
	var marking domain.MarkingScheme
	if err := json.NewDecoder(r.Body).Decode(&marking); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.editor.SetMarkingScheme(r.Context(), r.PathValue("id"), marking); err != nil {
		writeEditorError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setPublishedRequest struct {
	Published bool `json:"published"`
}

func (h *EditorHandler) setPublished(w http.ResponseWriter, r *http.Request) {
	var req setPublishedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.editor.SetPublished(r.Context(), r.PathValue("id"), req.Published); err != nil {
		writeEditorError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeEditorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		http.Error(w, "quiz not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidMarking), errors.Is(err, domain.ErrInvalidSelection):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrStoreUnavailable):
		http.Error(w, "storage temporarily unavailable", http.StatusServiceUnavailable)
		log.Printf("editor: %v", err)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
