// Package api is the HTTP surface of the template mapping service.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Leolion08/ctom-sub000/internal/config"
	"github.com/Leolion08/ctom-sub000/internal/importer"
	"github.com/Leolion08/ctom-sub000/internal/insert"
	"github.com/Leolion08/ctom-sub000/internal/store"
)

// Server is the HTTP API server.
type Server struct {
	router    chi.Router
	templates *store.TemplateStore
	customers *store.CustomerStore
	imports   *importer.Orchestrator
	engine    *insert.Engine
	log       *slog.Logger
	cfg       config.Config

	renderStats *OpStats
	insertStats *OpStats
	mergeStats  *OpStats
}

// NewServer creates and configures the HTTP server.
func NewServer(templates *store.TemplateStore, customers *store.CustomerStore, imports *importer.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		templates: templates,
		customers: customers,
		imports:   imports,
		engine: &insert.Engine{
			MaxTableNestingLevel: cfg.MaxTableNestingLevel,
			Log:                  log,
		},
		log:         log,
		cfg:         cfg,
		renderStats: NewOpStats(time.Hour),
		insertStats: NewOpStats(time.Hour),
		mergeStats:  NewOpStats(time.Hour),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/templates", func(r chi.Router) {
				r.Post("/", s.handleCreateTemplate)
				r.Get("/", s.handleListTemplates)
				r.Route("/{templateID}", func(r chi.Router) {
					r.Get("/", s.handleGetTemplate)
					r.Put("/", s.handleUpdateTemplate)
					r.Delete("/", s.handleDeleteTemplate)
					r.Get("/document", s.handleDownloadTemplate)
					r.Get("/render", s.handleRenderTemplate)
					r.Get("/fields", s.handleListFields)
					r.Post("/fields", s.handleInsertFields)
					r.Post("/preview", s.handlePreview)
					r.Post("/export", s.handleExport)
				})
			})

			r.Route("/customers", func(r chi.Router) {
				r.Post("/import", s.handleImportCustomers)
				r.Get("/import/{jobID}/status", s.handleImportStatus)
				r.Get("/", s.handleListCustomers)
				r.Post("/", s.handleCreateCustomer)
				r.Route("/{customerID}", func(r chi.Router) {
					r.Get("/", s.handleGetCustomer)
					r.Put("/", s.handleUpdateCustomer)
					r.Delete("/", s.handleDeleteCustomer)
				})
			})

			r.Get("/stats", s.handleStats)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"render":       s.renderStats.Snapshot(),
		"insert":       s.insertStats.Snapshot(),
		"merge":        s.mergeStats.Snapshot(),
		"import_queue": s.imports.QueueDepth(),
	})
}
