package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bprzybysz/integra/internal/engine"
	"github.com/bprzybysz/integra/internal/store"
)

// Server is the integra HTTP API. All writes go through the engine so the
// single-writer discipline holds; read models go straight to the store.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	router  chi.Router
	version string
	started time.Time
}

// New creates a Server around the engine and its store.
func New(db *store.DB, eng *engine.Engine, version string) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/usage", s.handleSubmitUsage)
		r.Post("/habits", s.handleSubmitHabit)

		r.Post("/days/{day}/close", s.handleCloseDay)
		r.Get("/days/{day}", s.handleGetDay)
		r.Get("/status", s.handleStatus)
		r.Get("/stack", s.handleStack)

		r.Post("/tasks", s.handleCreateTask)
		r.Post("/tasks/{taskID}/close", s.handleCloseTask)
		r.Get("/tasks", s.handleListTasks)

		r.Get("/approvals", s.handleListApprovals)
		r.Post("/approvals/{approvalID}", s.handleResolveApproval)

		r.Get("/prompts/pending", s.handlePendingPrompts)
		r.Post("/prompts/{promptID}/answer", s.handleAnswerPrompt)
		r.Post("/prompts/{promptID}/defer", s.handleDeferPrompt)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}
