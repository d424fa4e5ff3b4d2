// Package server exposes layout generation, verification and rendering over
// HTTP.
//
// Layouts are persisted in a [store.Store] and rendered through the same
// cached [pipeline.Runner] the CLI uses.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/fieldbook/internal/config"
	"github.com/matzehuels/fieldbook/pkg/buildinfo"
	"github.com/matzehuels/fieldbook/pkg/cache"
	"github.com/matzehuels/fieldbook/pkg/errors"
	"github.com/matzehuels/fieldbook/pkg/observability"
	"github.com/matzehuels/fieldbook/pkg/pipeline"
	"github.com/matzehuels/fieldbook/pkg/store"
)

// layoutCollection is the MongoDB collection holding layout records.
const layoutCollection = "layouts"

// Server is the HTTP API.
type Server struct {
	cfg      *config.Server
	runner   *pipeline.Runner
	store    store.Store
	logger   *log.Logger
	registry *prometheus.Registry
	router   chi.Router
}

// New builds a server. A nil registry disables the /metrics endpoint.
func New(cfg *config.Server, runner *pipeline.Runner, st store.Store, logger *log.Logger, registry *prometheus.Registry) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		cfg:      cfg,
		runner:   runner,
		store:    st,
		logger:   logger,
		registry: registry,
	}
	s.router = s.routes()
	return s
}

// Open connects the backends named in cfg: Redis for the render cache and
// MongoDB for layouts. Unset addresses fall back to no cache and an
// in-memory store.
func Open(ctx context.Context, cfg *config.Server, logger *log.Logger) (*pipeline.Runner, store.Store, error) {
	c := cache.NewNullCache()
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		c = rc
		logger.Info("using redis cache", "addr", cfg.RedisAddr, "prefix", cfg.CachePrefix)
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), cfg.CachePrefix)
	runner := pipeline.NewRunner(c, keyer, logger)

	if cfg.MongoURI == "" {
		logger.Warn("MONGO_URI not set, layouts are kept in memory")
		return runner, store.NewMemory(), nil
	}
	st, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, layoutCollection)
	if err != nil {
		runner.Close()
		return nil, nil, err
	}
	logger.Info("using mongodb store", "database", cfg.MongoDatabase)
	return runner, st, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		}
		r.Post("/verify", s.handleVerify)
		r.Route("/layouts", func(r chi.Router) {
			r.Post("/", s.handleCreateLayout)
			r.Get("/", s.handleListLayouts)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetLayout)
				r.Delete("/", s.handleDeleteLayout)
				r.Get("/verify", s.handleVerifyLayout)
				r.Get("/render/{format}", s.handleRenderLayout)
			})
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr, "version", buildinfo.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "listen on %s", s.cfg.Addr)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(errors.ErrCodeTimeout, err, "shutdown")
	}
	return nil
}

// instrument reports every request to the HTTP hooks under its route
// pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, route)
		hooks.OnResponse(r.Context(), r.Method, route, status, time.Since(start))
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
