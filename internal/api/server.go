package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/dataconnect/internal/api/handler"
	mw "github.com/edvin/dataconnect/internal/api/middleware"
	"github.com/edvin/dataconnect/internal/api/response"
	"github.com/edvin/dataconnect/internal/core"
)

// DB is the core database as used by the server: the service queries plus a
// readiness ping.
type DB interface {
	core.DB
	Ping(ctx context.Context) error
}

type Server struct {
	router      chi.Router
	logger      zerolog.Logger
	services    *core.Services
	db          DB
	auditLogger *mw.AuditLogger
}

func NewServer(logger zerolog.Logger, db DB, services *core.Services) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger,
		services:    services,
		db:          db,
		auditLogger: mw.NewAuditLogger(db, logger),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.services.APIKey))
		r.Use(s.auditLogger.Middleware)

		r.Get("/platform-kinds", handler.PlatformKinds(s.services.Registry.Kinds))

		integration := handler.NewIntegration(s.services.Integration, s.services.Resolver)
		query := handler.NewQuery(s.services.Query)
		schema := handler.NewSchema(s.services.Schema)

		r.Get("/integrations", integration.List)
		r.Get("/integrations/{id}", integration.Get)
		r.Post("/integrations/{id}/test", query.Test)
		r.Post("/integrations/{id}/query", query.Execute)
		r.Get("/integrations/{id}/databases", schema.Databases)
		r.Get("/integrations/{id}/databases/{database}/tables", schema.Tables)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequirePlatformAdmin())

			r.Post("/integrations", integration.Create)
			r.Put("/integrations/{id}/config", integration.UpdateConfig)
			r.Put("/integrations/{id}/active", integration.SetActive)
			r.Delete("/integrations/{id}", integration.Delete)

			apiKey := handler.NewAPIKey(s.services.APIKey)
			r.Get("/api-keys", apiKey.List)
			r.Post("/api-keys", apiKey.Create)
			r.Get("/api-keys/{id}", apiKey.Get)
			r.Delete("/api-keys/{id}", apiKey.Revoke)
		})
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{"core_db": "ok"}
	status := http.StatusOK
	if err := s.db.Ping(ctx); err != nil {
		checks["core_db"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	response.WriteJSON(w, status, checks)
}

// Close flushes pending audit entries.
func (s *Server) Close() {
	s.auditLogger.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
