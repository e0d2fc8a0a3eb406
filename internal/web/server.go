package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/leetrack/internal/domain"
	"github.com/conorfennell/leetrack/internal/storage"
)

// Server holds the dependencies for the HTTP server. It owns no scheduling
// state: it validates requests, calls the store and serializes the results.
type Server struct {
	db       *storage.DB
	router   *http.ServeMux
	validate *validator.Validate
	log      *slog.Logger
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, log *slog.Logger) *Server {
	s := &Server{
		db:       db,
		router:   http.NewServeMux(),
		validate: validator.New(),
		log:      log,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("/questions", s.handleQuestions())
	s.router.HandleFunc("/due-questions", s.handleDueQuestions())
}

// handleQuestions dispatches on method for the question collection.
func (s *Server) handleQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleListQuestions(w, r)
		case http.MethodPost:
			s.handleCreateQuestion(w, r)
		case http.MethodDelete:
			s.handleDeleteQuestion(w, r)
		case http.MethodPatch:
			s.handleMarkSolved(w, r)
		default:
			s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// questionJSON is the wire representation of a question. Timestamps are
// RFC3339; null means unset.
type questionJSON struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	SourceURL    string     `json:"sourceURL"`
	Difficulty   string     `json:"difficulty"`
	LastSolvedAt *time.Time `json:"lastSolvedAt"`
	NextReviewAt *time.Time `json:"nextReviewAt"`
	SolveCount   int        `json:"solveCount"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func toJSON(q domain.Question) questionJSON {
	return questionJSON{
		ID:           q.ID,
		Title:        q.Title,
		SourceURL:    q.SourceURL,
		Difficulty:   string(q.Difficulty),
		LastSolvedAt: q.LastSolvedAt,
		NextReviewAt: q.NextReviewAt,
		SolveCount:   q.SolveCount,
		CreatedAt:    q.CreatedAt,
	}
}

func toJSONList(questions []domain.Question) []questionJSON {
	out := make([]questionJSON, 0, len(questions))
	for _, q := range questions {
		out = append(out, toJSON(q))
	}
	return out
}

// handleListQuestions returns all questions, newest first. An optional
// ?title= query narrows by case-insensitive substring.
func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := s.db.List(r.Context(), storage.ListFilter{
		TitleContains: r.URL.Query().Get("title"),
	})
	if err != nil {
		s.log.Error("failed to list questions", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch questions")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"questions": toJSONList(questions)})
}

// handleDueQuestions returns only questions due for review, most overdue
// first. Questions that were never scheduled sort ahead of everything.
func (s *Server) handleDueQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		questions, err := s.db.List(r.Context(), storage.ListFilter{DueOnly: true})
		if err != nil {
			s.log.Error("failed to list due questions", "error", err)
			s.writeError(w, http.StatusInternalServerError, "Failed to fetch due questions")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"questions": toJSONList(questions)})
	}
}

type createQuestionRequest struct {
	Title      string `json:"title" validate:"required"`
	SourceURL  string `json:"sourceURL" validate:"required,contains=leetcode.com"`
	Difficulty string `json:"difficulty" validate:"required,oneof=Easy Medium Hard"`
}

// handleCreateQuestion validates and stores a new question. The stored
// question starts unscheduled and therefore due immediately.
func (s *Server) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req createQuestionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if msg, ok := s.checkCreateRequest(req); !ok {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	question, err := s.db.Create(r.Context(), req.Title, req.SourceURL, domain.Difficulty(req.Difficulty))
	if err != nil {
		s.writeStoreError(w, err, "Failed to add question")
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Question added successfully",
		"question": toJSON(*question),
	})
}

// checkCreateRequest maps validator failures to the API's error messages.
func (s *Server) checkCreateRequest(req createQuestionRequest) (string, bool) {
	err := s.validate.Struct(req)
	if err == nil {
		return "", true
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Invalid request body", false
	}
	fe := fieldErrs[0]
	switch {
	case fe.Tag() == "required":
		return "Missing required fields: title, sourceURL, and difficulty are required", false
	case fe.Field() == "Difficulty":
		return "Invalid difficulty. Must be Easy, Medium, or Hard", false
	case fe.Field() == "SourceURL":
		return "Invalid URL. Must be a LeetCode URL", false
	}
	return "Invalid request body", false
}

// handleDeleteQuestion removes a question by the id query parameter.
func (s *Server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Query().Get("id")
	if idStr == "" {
		s.writeError(w, http.StatusBadRequest, "Missing required query parameter: id")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid question ID")
		return
	}

	if err := s.db.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, err, "Failed to delete question")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"message": "Question deleted successfully"})
}

type markSolvedRequest struct {
	ID            int64 `json:"id" validate:"required"`
	IntervalWeeks int   `json:"intervalWeeks" validate:"required,gte=1"`
}

// handleMarkSolved records a solve and returns the rescheduled question.
func (s *Server) handleMarkSolved(w http.ResponseWriter, r *http.Request) {
	var req markSolvedRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Missing required fields: id and a positive intervalWeeks are required")
		return
	}

	question, err := s.db.MarkSolved(r.Context(), req.ID, req.IntervalWeeks)
	if err != nil {
		s.writeStoreError(w, err, "Failed to update question")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Question marked as solved",
		"question": toJSON(*question),
	})
}

// decode reads a JSON request body. On failure it writes a 400 and returns
// false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}
	return true
}

// writeStoreError maps the domain error taxonomy to status codes. Anything
// unrecognized is logged with detail and reported generically; internal
// storage errors never reach the caller verbatim.
func (s *Server) writeStoreError(w http.ResponseWriter, err error, generic string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		s.writeError(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, domain.ErrConflict):
		s.writeError(w, http.StatusConflict, "Question with this URL already exists")
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "Question not found")
	default:
		s.log.Error("storage operation failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, generic)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"message": message})
}
