// Package halserver serves fixture entities from SQLite as HAL documents. It
// backs the integration tests and the halserver command.
package halserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	halclient "github.com/reoring/halclient"
)

// Children rendering modes for GET /parents/{id}?children=...
const (
	ModeEmbed  = "embed"  // _embedded.children with full bodies
	ModeLink   = "link"   // _links.children hrefs only
	ModeInline = "inline" // state "children" holding wrapped resources
	ModeMixed  = "mixed"  // state "children" alternating bodies and bare hrefs
)

// Server renders Store rows as HAL and counts requests per path.
type Server struct {
	store  *Store
	json   halclient.JSONDriver
	logger *slog.Logger

	mu   sync.Mutex
	hits map[string]int
}

// New returns a server over store. A nil logger uses slog.Default().
func New(store *Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, json: halclient.GoJSON(), logger: logger, hits: map[string]int{}}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /simpleEntities/{id}", s.getSimpleEntity)
	mux.HandleFunc("GET /simpleEntities/{id}/related", s.getRelated)
	mux.HandleFunc("GET /parents/{id}", s.getParent)
	mux.HandleFunc("GET /children/{id}", s.getChild)
	return s.count(mux)
}

// Hits returns how many requests were served for path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// TotalHits returns the number of requests served.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.hits {
		n += c
	}
	return n
}

// ResetHits clears the request counters.
func (s *Server) ResetHits() {
	s.mu.Lock()
	s.hits = map[string]int{}
	s.mu.Unlock()
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("served", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func (s *Server) getSimpleEntity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	e, err := s.store.SimpleEntity(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	res, err := s.simpleEntityResource(e)
	if err != nil {
		s.writeError(w, "Failed to render entity", err.Error(), http.StatusInternalServerError)
		return
	}
	if r.URL.Query().Get("related") == ModeEmbed && e.RelatedID != 0 {
		rel, err := s.store.SimpleEntity(r.Context(), e.RelatedID)
		if err != nil {
			s.storeError(w, err)
			return
		}
		doc, err := s.simpleEntityResource(rel)
		if err != nil {
			s.writeError(w, "Failed to render entity", err.Error(), http.StatusInternalServerError)
			return
		}
		res.EmbedOne("related", doc)
	}
	s.writeJSON(w, res, http.StatusOK)
}

func (s *Server) getRelated(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	e, err := s.store.SimpleEntity(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if e.RelatedID == 0 {
		s.writeError(w, "Not found", fmt.Sprintf("simple entity %d has no related entity", id), http.StatusNotFound)
		return
	}
	rel, err := s.store.SimpleEntity(r.Context(), e.RelatedID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	res, err := s.simpleEntityResource(rel)
	if err != nil {
		s.writeError(w, "Failed to render entity", err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, res, http.StatusOK)
}

func (s *Server) getParent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	p, err := s.store.Parent(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	children, err := s.store.Children(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	mode := r.URL.Query().Get("children")
	if mode == "" {
		mode = ModeEmbed
	}
	res, err := s.parentResource(p, children, mode)
	if err != nil {
		s.writeError(w, "Invalid request", err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, res, http.StatusOK)
}

func (s *Server) getChild(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	c, err := s.store.Child(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	res, err := s.childResource(c)
	if err != nil {
		s.writeError(w, "Failed to render child", err.Error(), http.StatusInternalServerError)
		return
	}
	res.WithLink("parent", parentHref(c.ParentID))
	s.writeJSON(w, res, http.StatusOK)
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, "Invalid ID", fmt.Sprintf("%q is not a positive integer", r.PathValue("id")), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		s.writeError(w, "Not found", err.Error(), http.StatusNotFound)
		return
	}
	s.logger.Error("store failure", "error", err)
	s.writeError(w, "Internal error", err.Error(), http.StatusInternalServerError)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, data any, statusCode int) {
	body, err := s.json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to encode JSON", "error", err)
		http.Error(w, "encode failure", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", halclient.MediaTypeHAL)
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, msg, details string, statusCode int) {
	s.writeJSON(w, ErrorResponse{Error: msg, Details: details}, statusCode)
}
