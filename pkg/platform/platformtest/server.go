// Package platformtest provides a scriptable stand-in for the platform API.
package platformtest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Response is one scripted reply.
type Response struct {
	Status int
	Body   string
}

type Server struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string][]Response
	served map[string]int
	calls  []string
	tokens []string
}

// New starts a server that is closed when the test ends. Unscripted routes
// answer 404.
func New(t testing.TB) *Server {
	s := &Server{
		routes: make(map[string][]Response),
		served: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Reply scripts a fixed reply for method and path.
func (s *Server) Reply(method, path string, status int, body string) {
	s.Sequence(method, path, Response{Status: status, Body: body})
}

// Sequence scripts successive replies; the last one repeats.
func (s *Server) Sequence(method, path string, responses ...Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[key(method, path)] = responses
}

// Calls lists "METHOD /path" for every request received, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Count returns how many times method and path were requested.
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.served[key(method, path)]
}

// Tokens lists the bearer tokens seen, in order.
func (s *Server) Tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tokens...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	k := key(r.Method, r.URL.Path)

	s.mu.Lock()
	s.calls = append(s.calls, k)
	s.tokens = append(s.tokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	responses, ok := s.routes[k]
	n := s.served[k]
	s.served[k] = n + 1
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok || len(responses) == 0 {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"record-not-found","message":"not found"}}`))
		return
	}
	if n >= len(responses) {
		n = len(responses) - 1
	}
	w.WriteHeader(responses[n].Status)
	_, _ = w.Write([]byte(responses[n].Body))
}

func key(method, path string) string {
	return method + " /" + strings.TrimLeft(path, "/")
}
