package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/conorfennell/leetrack/internal/schedule"
	"github.com/conorfennell/leetrack/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "leetrack.db"), schedule.WeeksPolicy{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewServer(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Failed to decode response body %q: %v", rec.Body.String(), err)
	}
	return payload
}

func createQuestion(t *testing.T, s *Server, title, url, difficulty string) map[string]any {
	t.Helper()
	body := `{"title":` + strconv.Quote(title) +
		`,"sourceURL":` + strconv.Quote(url) +
		`,"difficulty":` + strconv.Quote(difficulty) + `}`
	rec := doRequest(t, s, http.MethodPost, "/questions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 creating %s, but got %d: %s", url, rec.Code, rec.Body.String())
	}
	return decodeBody(t, rec)["question"].(map[string]any)
}

func TestCreateQuestion(t *testing.T) {
	s := newTestServer(t)

	created := createQuestion(t, s, "Two Sum", "https://leetcode.com/problems/two-sum/", "Easy")
	if created["title"] != "Two Sum" {
		t.Errorf("Expected title 'Two Sum', but got %v", created["title"])
	}
	if created["lastSolvedAt"] != nil || created["nextReviewAt"] != nil {
		t.Errorf("Expected a new question to be unscheduled, but got lastSolvedAt=%v nextReviewAt=%v",
			created["lastSolvedAt"], created["nextReviewAt"])
	}
	if created["id"] == nil {
		t.Error("Expected the created question to carry an id")
	}

	// A new question is due immediately.
	rec := doRequest(t, s, http.MethodGet, "/due-questions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, but got %d", rec.Code)
	}
	due := decodeBody(t, rec)["questions"].([]any)
	if len(due) != 1 {
		t.Errorf("Expected 1 due question right after creation, but got %d", len(due))
	}
}

func TestCreateQuestionValidation(t *testing.T) {
	s := newTestServer(t)

	testCases := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name:     "missing fields",
			body:     `{"title":"Two Sum"}`,
			expected: "Missing required fields",
		},
		{
			name:     "invalid difficulty",
			body:     `{"title":"Two Sum","sourceURL":"https://leetcode.com/problems/two-sum/","difficulty":"easy"}`,
			expected: "Invalid difficulty",
		},
		{
			name:     "non leetcode URL",
			body:     `{"title":"Two Sum","sourceURL":"https://example.com/two-sum/","difficulty":"Easy"}`,
			expected: "Invalid URL",
		},
		{
			name:     "malformed JSON",
			body:     `{"title":`,
			expected: "Invalid JSON",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/questions", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, but got %d: %s", rec.Code, rec.Body.String())
			}
			if msg, _ := decodeBody(t, rec)["message"].(string); !strings.Contains(msg, tc.expected) {
				t.Errorf("Expected message containing %q, but got %q", tc.expected, msg)
			}
		})
	}
}

func TestCreateQuestionDuplicate(t *testing.T) {
	s := newTestServer(t)
	createQuestion(t, s, "Two Sum", "https://leetcode.com/problems/two-sum/", "Easy")

	rec := doRequest(t, s, http.MethodPost, "/questions",
		`{"title":"Two Sum","sourceURL":"  https://leetcode.com/problems/two-sum/ ","difficulty":"Easy"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected status 409 for duplicate URL, but got %d: %s", rec.Code, rec.Body.String())
	}

	list := decodeBody(t, doRequest(t, s, http.MethodGet, "/questions", ""))["questions"].([]any)
	if len(list) != 1 {
		t.Errorf("Expected exactly 1 stored question, but got %d", len(list))
	}
}

func TestListQuestions(t *testing.T) {
	s := newTestServer(t)
	createQuestion(t, s, "Two Sum", "https://leetcode.com/problems/two-sum/", "Easy")
	createQuestion(t, s, "Word Ladder", "https://leetcode.com/problems/word-ladder/", "Hard")

	rec := doRequest(t, s, http.MethodGet, "/questions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, but got %d", rec.Code)
	}
	questions := decodeBody(t, rec)["questions"].([]any)
	if len(questions) != 2 {
		t.Fatalf("Expected 2 questions, but got %d", len(questions))
	}

	filtered := decodeBody(t, doRequest(t, s, http.MethodGet, "/questions?title=ladder", ""))["questions"].([]any)
	if len(filtered) != 1 {
		t.Fatalf("Expected 1 question matching 'ladder', but got %d", len(filtered))
	}
}

func TestMarkSolvedFlow(t *testing.T) {
	s := newTestServer(t)
	created := createQuestion(t, s, "Two Sum", "https://leetcode.com/problems/two-sum/", "Easy")
	id := int64(created["id"].(float64))

	before := time.Now()
	rec := doRequest(t, s, http.MethodPatch, "/questions",
		`{"id":`+strconv.FormatInt(id, 10)+`,"intervalWeeks":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, but got %d: %s", rec.Code, rec.Body.String())
	}
	question := decodeBody(t, rec)["question"].(map[string]any)

	nextReview, err := time.Parse(time.RFC3339, question["nextReviewAt"].(string))
	if err != nil {
		t.Fatalf("Failed to parse nextReviewAt: %v", err)
	}
	expected := before.Add(14 * 24 * time.Hour)
	if diff := nextReview.Sub(expected); diff < -time.Minute || diff > time.Minute {
		t.Errorf("Expected nextReviewAt near %v, but got %v", expected, nextReview)
	}
	if question["lastSolvedAt"] == nil {
		t.Error("Expected lastSolvedAt to be set after marking solved")
	}

	// Freshly rescheduled, so no longer due.
	due := decodeBody(t, doRequest(t, s, http.MethodGet, "/due-questions", ""))["questions"].([]any)
	if len(due) != 0 {
		t.Errorf("Expected no due questions after marking solved, but got %d", len(due))
	}
}

func TestMarkSolvedErrors(t *testing.T) {
	s := newTestServer(t)
	created := createQuestion(t, s, "Two Sum", "https://leetcode.com/problems/two-sum/", "Easy")
	id := int64(created["id"].(float64))

	testCases := []struct {
		name     string
		body     string
		expected int
	}{
		{name: "unknown id", body: `{"id":9999,"intervalWeeks":2}`, expected: http.StatusNotFound},
		{name: "missing interval", body: `{"id":` + strconv.FormatInt(id, 10) + `}`, expected: http.StatusBadRequest},
		{name: "zero interval", body: `{"id":` + strconv.FormatInt(id, 10) + `,"intervalWeeks":0}`, expected: http.StatusBadRequest},
		{name: "negative interval", body: `{"id":` + strconv.FormatInt(id, 10) + `,"intervalWeeks":-2}`, expected: http.StatusBadRequest},
		{name: "missing id", body: `{"intervalWeeks":2}`, expected: http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPatch, "/questions", tc.body)
			if rec.Code != tc.expected {
				t.Errorf("Expected status %d, but got %d: %s", tc.expected, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDeleteQuestion(t *testing.T) {
	s := newTestServer(t)
	created := createQuestion(t, s, "Two Sum", "https://leetcode.com/problems/two-sum/", "Easy")
	id := strconv.FormatInt(int64(created["id"].(float64)), 10)

	if rec := doRequest(t, s, http.MethodDelete, "/questions", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing id, but got %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodDelete, "/questions?id=abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed id, but got %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodDelete, "/questions?id="+id, ""); rec.Code != http.StatusOK {
		t.Errorf("Expected status 200 for first delete, but got %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodDelete, "/questions?id="+id, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for repeated delete, but got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	if rec := doRequest(t, s, http.MethodPut, "/questions", "{}"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405 for PUT /questions, but got %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodPost, "/due-questions", "{}"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405 for POST /due-questions, but got %d", rec.Code)
	}
}
