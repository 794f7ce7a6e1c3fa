package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/hallvard/opsuite/internal/api/handler"
	mw "github.com/hallvard/opsuite/internal/api/middleware"
	"github.com/hallvard/opsuite/internal/config"
	"github.com/hallvard/opsuite/internal/core"
)

type Server struct {
	router         chi.Router
	logger         zerolog.Logger
	services       *core.Services
	scheduler      *core.SchedulerService
	pool           *pgxpool.Pool
	temporalClient temporalclient.Client
	cfg            *config.Config
}

func NewServer(logger zerolog.Logger, pool *pgxpool.Pool, temporalClient temporalclient.Client, cfg *config.Config) *Server {
	services := core.NewServices(pool, temporalClient)

	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger,
		services:       services,
		scheduler:      core.NewSchedulerService(pool, services.Backup, logger, cfg.SchedulerConcurrency),
		pool:           pool,
		temporalClient: temporalClient,
		cfg:            cfg,
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
		tenant := handler.NewTenant(s.services.Tenant)
		r.Get("/tenants", tenant.List)
		r.Get("/tenants/{id}", tenant.Get)

		backup := handler.NewBackup(s.services.Backup)
		r.Post("/backups", backup.Create)
		r.Get("/backups", backup.List)
		r.Get("/backups/{id}", backup.Get)
		r.Delete("/backups/{id}", backup.Delete)
		r.Post("/backups/{id}/restore", backup.Restore)

		scheduler := handler.NewScheduler(s.scheduler)
		r.Post("/backups/scheduled", scheduler.Run)

		schedule := handler.NewBackupSchedule(s.services.Schedule)
		r.Get("/backup-schedules", schedule.List)
		r.Post("/backup-schedules", schedule.Create)
		r.Get("/backup-schedules/{tenantID}", schedule.Get)
		r.Put("/backup-schedules/{tenantID}", schedule.Update)
		r.Delete("/backup-schedules/{tenantID}", schedule.Delete)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.pool.Ping(ctx); err != nil {
		checks["db"] = err.Error()
		healthy = false
	} else {
		checks["db"] = "ok"
	}

	if _, err := s.temporalClient.CheckHealth(ctx, &temporalclient.CheckHealthRequest{}); err != nil {
		checks["temporal"] = err.Error()
		healthy = false
	} else {
		checks["temporal"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
