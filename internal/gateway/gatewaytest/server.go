// Package gatewaytest provides an in-memory requirements service for tests.
// It serves the endpoints the board uses and records every API call.
package gatewaytest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/h0rv/reqboard/internal/domain"
)

const sessionCookie = "session"

// Call is one recorded API request.
type Call struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
}

// Response overrides the answer of the update endpoint.
type Response struct {
	Code int
	Body string
}

// Server is a fake requirements service backed by httptest.Server.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	projects     map[string][]string
	requirements map[string]domain.Requirement
	calls        []Call
	update       *Response
	users        map[string]string
	requireLogin bool
}

// NewServer starts a fake service. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		projects:     make(map[string][]string),
		requirements: make(map[string]domain.Requirement),
		users:        make(map[string]string),
	}

	r := mux.NewRouter()
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.record, s.authenticate)
	api.HandleFunc("/requirements/{id}/update", s.handleUpdate).Methods(http.MethodPost)
	api.HandleFunc("/requirements/{project_id}", s.handleList).Methods(http.MethodGet)

	s.Server = httptest.NewServer(r)
	return s
}

// AddUser registers credentials and turns on session checks for /api.
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
	s.requireLogin = true
}

// AddRequirement stores a requirement under a project.
func (s *Server) AddRequirement(projectID string, req domain.Requirement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requirements[req.ID]; !exists {
		s.projects[projectID] = append(s.projects[projectID], req.ID)
	}
	s.requirements[req.ID] = req
}

// Requirement returns the stored state of one requirement.
func (s *Server) Requirement(id string) (domain.Requirement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requirements[id]
	return req, ok
}

// RespondUpdate makes the update endpoint answer with a canned response
// instead of applying the change.
func (s *Server) RespondUpdate(code int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.update = &Response{Code: code, Body: body}
}

// Calls returns a copy of the recorded API calls.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]Call, len(s.calls))
	copy(calls, s.calls)
	return calls
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method:      r.Method,
			Path:        r.URL.EscapedPath(),
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		required := s.requireLogin
		s.mu.Unlock()

		if required {
			if c, err := r.Cookie(sessionCookie); err != nil || c.Value == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "login required"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	s.mu.Lock()
	expected, ok := s.users[username]
	s.mu.Unlock()

	if !ok || expected != password {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "<html><body>invalid username or password</body></html>")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: username, Path: "/"})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]

	s.mu.Lock()
	items := make([]map[string]any, 0, len(s.projects[projectID]))
	for _, id := range s.projects[projectID] {
		items = append(items, requirementBody(s.requirements[id]))
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.update != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.update.Code)
		_, _ = io.WriteString(w, s.update.Body)
		return
	}

	req, ok := s.requirements[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "not found"})
		return
	}

	var body struct {
		Status *string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}
	if body.Status != nil {
		req.Status = domain.Status(*body.Status)
		s.requirements[id] = req
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func requirementBody(req domain.Requirement) map[string]any {
	var id any = req.ID
	if n, err := strconv.Atoi(req.ID); err == nil {
		id = n
	}
	return map[string]any{
		"id":                  id,
		"title":               req.Title,
		"description":         req.Description,
		"requirement_type":    req.RequirementType,
		"scenario":            req.Scenario,
		"problem":             req.Problem,
		"goal":                req.Goal,
		"expected_solution":   req.ExpectedSolution,
		"acceptance_criteria": req.AcceptanceCriteria,
		"source":              req.Source,
		"category":            req.Category,
		"priority":            req.Priority,
		"status":              string(req.Status),
		"estimated_roi":       req.EstimatedROI,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
