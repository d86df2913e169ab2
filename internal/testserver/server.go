// Package testserver provides an in-memory runbook backend for tests.
// It serves the same routes and error shapes as the real service so client,
// session and command code can be exercised end to end over HTTP.
package testserver

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/opsbook/opsbook/internal/api"
	"github.com/opsbook/opsbook/internal/constants"
)

// BlockHandler decides the response to a block execution request.
// It returns the HTTP status and the response body.
type BlockHandler func(req api.ExecuteBlockRequest) (int, any)

// Request is a recorded incoming request.
type Request struct {
	Method string
	Path   string
	Query  string
	APIKey string
	Body   []byte
}

type user struct {
	id       string
	password string
	apiKey   string
	role     string
}

type failure struct {
	status int
	detail any
}

type executionState struct {
	execution api.Execution
	steps     []api.ExecutionStep
	pending   []constants.ExecutionStatus
}

// Server is a fake backend listening on a local port.
type Server struct {
	mu     sync.Mutex
	router *chi.Mux
	http   *httptest.Server

	users        map[string]*user
	runbooks     map[string]*api.Runbook
	runbookOrder []string
	versions     map[string][]api.Runbook
	executions   map[string]*executionState
	execOrder    []string
	credentials  []api.Credential
	environments map[string]*api.Environment
	envOrder     []string
	audit        []api.AuditLogEntry
	requests     []Request
	failures     map[string]failure

	blockHandler BlockHandler
}

// New starts a server and registers its shutdown with t.Cleanup.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:        make(map[string]*user),
		runbooks:     make(map[string]*api.Runbook),
		versions:     make(map[string][]api.Runbook),
		executions:   make(map[string]*executionState),
		environments: make(map[string]*api.Environment),
		failures:     make(map[string]failure),
	}
	s.router = s.routes()
	s.http = httptest.NewServer(s.router)
	t.Cleanup(s.http.Close)
	return s
}

// URL returns the API base URL, including the /api prefix.
func (s *Server) URL() string {
	return s.http.URL + "/api"
}

// Close stops the server before the test ends.
func (s *Server) Close() {
	s.http.Close()
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(s.recordMiddleware)
	r.Use(setContentTypeJSON)
	r.Use(s.failureMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Post("/users/signup", s.handleSignup)
		r.Post("/users/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/users/logout", s.handleLogout)

			r.Route("/runbooks", func(r chi.Router) {
				r.Get("/", s.handleListRunbooks)
				r.Post("/", s.handleCreateRunbook)
				r.Get("/{id}", s.handleGetRunbook)
				r.Put("/{id}", s.handleUpdateRunbook)
				r.Delete("/{id}", s.handleDeleteRunbook)
				r.Post("/{id}/execute", s.handleExecuteRunbook)
				r.Get("/{id}/versions", s.handleListVersions)
				r.Post("/{id}/versions/{version}/rollback", s.handleRollback)
			})

			r.Post("/blocks/execute", s.handleExecuteBlock)

			r.Get("/executions", s.handleListExecutions)
			r.Delete("/executions/clear", s.handleClearExecutions)
			r.Get("/executions/{id}", s.handleGetExecution)
			r.Post("/executions/{id}/control", s.handleControlExecution)

			r.Get("/credentials", s.handleListCredentials)
			r.Post("/credentials", s.handleCreateCredential)
			r.Delete("/credentials/{id}", s.handleDeleteCredential)

			r.Get("/environments", s.handleListEnvironments)
			r.Post("/environments", s.handleCreateEnvironment)
			r.Get("/environments/{id}", s.handleGetEnvironment)
			r.Put("/environments/{id}", s.handleUpdateEnvironment)
			r.Delete("/environments/{id}", s.handleDeleteEnvironment)

			r.Get("/audit", s.handleListAudit)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return r
}

// setContentTypeJSON middleware sets Content-Type to application/json for all responses
func setContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set(constants.ContentTypeHeader, "application/json")
		next.ServeHTTP(w, req)
	})
}

func (s *Server) recordMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var body []byte
		if req.Body != nil {
			body, _ = io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: req.Method,
			Path:   strings.TrimPrefix(req.URL.Path, "/api"),
			Query:  req.URL.RawQuery,
			APIKey: req.Header.Get(constants.APIKeyHeader),
			Body:   body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, req)
	})
}

func (s *Server) failureMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		f, ok := s.failures[failureKey(req.Method, strings.TrimPrefix(req.URL.Path, "/api"))]
		s.mu.Unlock()
		if ok {
			writeJSON(w, f.status, api.ErrorResponse{Detail: f.detail})
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		key := req.Header.Get(constants.APIKeyHeader)
		if key == "" {
			writeDetail(w, http.StatusUnauthorized, "Missing API key")
			return
		}
		s.mu.Lock()
		u := s.userByKey(key)
		s.mu.Unlock()
		if u == nil {
			writeDetail(w, http.StatusUnauthorized, "Invalid API key")
			return
		}
		next.ServeHTTP(w, req.WithContext(withUser(req.Context(), u)))
	})
}

func (s *Server) userByKey(key string) *user {
	for _, u := range s.users {
		if u.apiKey == key {
			return u
		}
	}
	return nil
}

func failureKey(method, path string) string {
	return method + " " + path
}

// Fail makes every request matching method and path (without the /api
// prefix) answer with status and {"detail": detail}.
func (s *Server) Fail(method, path string, status int, detail any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[failureKey(method, path)] = failure{status: status, detail: detail}
}

// ClearFailures removes every failure registered with Fail.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]failure)
}

// SetBlockHandler overrides how /blocks/execute answers.
func (s *Server) SetBlockHandler(h BlockHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockHandler = h
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// RequestsTo returns the recorded requests for one method and path.
func (s *Server) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests forgets recorded requests.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}
