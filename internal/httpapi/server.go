package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmylchreest/toastq/internal/config"
	"github.com/jmylchreest/toastq/internal/model"
	"github.com/jmylchreest/toastq/internal/toast"
)

// Service is the queue surface used by the handlers. It is satisfied by
// daemon.Service.
type Service interface {
	Show(ctx context.Context, spec model.Spec) (string, error)
	Dismiss(ctx context.Context, id string) error
	DismissAll(ctx context.Context) error
	Remove(ctx context.Context, id string) error
	RemoveAll(ctx context.Context) error
	Update(ctx context.Context, id string, patch model.Patch) error
	Snapshot(ctx context.Context) ([]model.Toast, error)
	Subscribe(ctx context.Context, fn toast.Listener) (func(), error)
}

// NewRouter wires the chi router, its middleware and every route.
func NewRouter(svc Service, cfg config.HTTPConfig, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	return newRouter(svc, cfg, gatherer, logger, nil)
}

// newRouter is NewRouter with a channel that, once closed, ends open streams.
func newRouter(svc Service, cfg config.HTTPConfig, gatherer prometheus.Gatherer, logger *slog.Logger, closing <-chan struct{}) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = config.DefaultDaemonConfig().HTTP.MaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(maxBody))
	r.Use(RequestID)
	r.Use(RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := &handlers{svc: svc, logger: logger}
	st := &streamer{svc: svc, logger: logger, origins: cfg.AllowedOrigins, closing: closing}

	r.Get("/healthz", h.health)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Literal paths are registered before /{id} routes.
		r.Post("/toasts/dismiss", h.dismissAll)
		r.Get("/toasts", h.list)
		r.Post("/toasts", h.show)
		r.Delete("/toasts", h.removeAll)
		r.Patch("/toasts/{id}", h.update)
		r.Post("/toasts/{id}/dismiss", h.dismiss)
		r.Delete("/toasts/{id}", h.remove)

		r.Post("/events", h.events)
		r.Get("/stream", st.serve)
	})

	return r
}

// Server runs the HTTP listener.
type Server struct {
	cfg     config.HTTPConfig
	handler http.Handler
	logger  *slog.Logger

	srv       *http.Server
	listener  net.Listener
	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer creates a Server serving the toast API on cfg.Listen.
func NewServer(svc Service, cfg config.HTTPConfig, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	closing := make(chan struct{})
	return &Server{
		cfg:     cfg,
		handler: newRouter(svc, cfg, gatherer, logger, closing),
		logger:  logger,
		closing: closing,
	}
}

// Start binds the listener and serves in the background. Serve errors
// other than a clean shutdown are passed to onError.
func (s *Server) Start(onError func(error)) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "error", err)
			if onError != nil {
				onError(err)
			}
		}
	}()

	s.logger.Info("HTTP API listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown closes open streams, stops accepting requests and waits for
// in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
