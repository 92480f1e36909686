package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"pubquiz-service/internal/app"
	"pubquiz-service/internal/domain"
)

// GameHandler exposes the host's setup operations over plain HTTP: uploading
// quiz content and creating a game session for it. Everything after that
// happens over the websocket.
type GameHandler struct {
	service *app.GameService
	saver   app.QuizSaver
}

func NewGameHandler(service *app.GameService, saver app.QuizSaver) *GameHandler {
	return &GameHandler{service: service, saver: saver}
}

type createGameRequest struct {
	QuizID string `json:"quizId"`
}

type createGameResponse struct {
	Code string `json:"code"`
}

// CreateGame handles POST /games.
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" {
		http.Error(w, "quizId required", http.StatusBadRequest)
		return
	}

	code, err := h.service.CreateGame(r.Context(), req.QuizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createGameResponse{Code: code})
}

// CreateQuiz handles POST /quizzes.
func (h *GameHandler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var quiz domain.Quiz
	if err := json.NewDecoder(r.Body).Decode(&quiz); err != nil {
		http.Error(w, "invalid quiz payload", http.StatusBadRequest)
		return
	}

	if err := h.service.CreateQuiz(r.Context(), h.saver, quiz); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrPlayerNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrSessionFinished):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrStoreUnconfigured):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, "failed, try again", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
