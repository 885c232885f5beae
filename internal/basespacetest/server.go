// Package basespacetest provides an in-memory BaseSpace API for tests.
package basespacetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"basespace-dl/internal/api"
)

// Account is the data one access token can see.
type Account struct {
	User     api.User
	Projects []api.Project
	// Samples by project id.
	Samples map[string][]api.Sample
	// Files by sample id.
	Files map[string][]api.DataFile
}

// Server is a fake BaseSpace endpoint keyed by access token.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]*Account
	content  map[string]string
	requests []string
	before   func(r *http.Request, fileID string)
	failures map[string]int
}

// NewServer starts a fake server. Close it when done.
func NewServer() *Server {
	s := &Server{
		accounts: map[string]*Account{},
		content:  map[string]string{},
		failures: map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// AddAccount registers token as belonging to acct.
func (s *Server) AddAccount(token string, acct *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct.Samples == nil {
		acct.Samples = map[string][]api.Sample{}
	}
	if acct.Files == nil {
		acct.Files = map[string][]api.DataFile{}
	}
	s.accounts[token] = acct
}

// SetContent sets the bytes served for a file id.
func (s *Server) SetContent(fileID, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[fileID] = body
}

// BeforeContent registers fn to run before each file content response.
func (s *Server) BeforeContent(fn func(r *http.Request, fileID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.before = fn
}

// FailPath makes every request for path answer with status.
func (s *Server) FailPath(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = status
}

// Requests returns the request paths seen so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.URL.Path)
	acct, ok := s.accounts[r.Header.Get("x-access-token")]
	failure := s.failures[r.URL.Path]
	s.mu.Unlock()

	if failure != 0 {
		writeError(w, failure, "BASESPACE.INTERNAL_ERROR", "injected failure")
		return
	}

	if !ok {
		writeError(w, http.StatusUnauthorized, "BASESPACE.UNAUTHORIZED", "invalid access token")
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.URL.Path == "/users/current":
		writeJSON(w, map[string]any{"Response": acct.User})
	case r.URL.Path == "/users/current/projects":
		writeItems(w, r, acct.Projects)
	case len(parts) == 3 && parts[0] == "projects" && parts[2] == "samples":
		writeItems(w, r, acct.Samples[parts[1]])
	case len(parts) == 3 && parts[0] == "samples" && parts[2] == "files":
		writeItems(w, r, acct.Files[parts[1]])
	case len(parts) == 3 && parts[0] == "files" && parts[2] == "content":
		s.mu.Lock()
		body, found := s.content[parts[1]]
		before := s.before
		s.mu.Unlock()
		if before != nil {
			before(r, parts[1])
		}
		if !found {
			writeError(w, http.StatusNotFound, "BASESPACE.NOT_FOUND", "file not found")
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write([]byte(body))
	default:
		writeError(w, http.StatusNotFound, "BASESPACE.NOT_FOUND", "unknown route "+r.URL.Path)
	}
}

func writeItems[T any](w http.ResponseWriter, r *http.Request, items []T) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = len(items)
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	page := items[offset:end]
	if page == nil {
		page = []T{}
	}
	writeJSON(w, map[string]any{"Response": map[string]any{
		"Items":          page,
		"DisplayedCount": len(page),
		"TotalCount":     len(items),
		"Offset":         offset,
		"Limit":          limit,
	}})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ResponseStatus": map[string]string{"ErrorCode": code, "Message": message},
	})
}
