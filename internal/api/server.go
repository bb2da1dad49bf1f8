package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/entitykit/internal/entity"
	"github.com/nerrad567/entitykit/internal/infrastructure/config"
	"github.com/nerrad567/entitykit/internal/infrastructure/logging"
	"github.com/nerrad567/entitykit/internal/instances"
)

// Server timeouts. The admin surface only serves small documents.
const (
	gracefulShutdownTimeout = 10 * time.Second
	readTimeout             = 5 * time.Second
	writeTimeout            = 10 * time.Second
	idleTimeout             = 60 * time.Second
)

// HealthChecker is implemented by every infrastructure client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies of the admin server.
type Deps struct {
	Config   config.AdminConfig
	Logger   *logging.Logger
	Registry *instances.Registry

	// Gatherer backs /metrics; prometheus.DefaultGatherer when nil.
	Gatherer prometheus.Gatherer

	// Checks are run by /healthz, keyed by component name.
	Checks map[string]HealthChecker

	// Store and Shapes back /entities. Without a store the routes answer 404.
	Store  entity.Store
	Shapes []*entity.Shape

	Version string
}

// Server is the admin HTTP server.
type Server struct {
	cfg      config.AdminConfig
	logger   *logging.Logger
	registry *instances.Registry
	gatherer prometheus.Gatherer
	checks   map[string]HealthChecker
	store    entity.Store
	shapes   map[string]*entity.Shape
	version  string

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates an admin server. It does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("instance registry is required")
	}

	s := &Server{
		cfg:      deps.Config,
		logger:   deps.Logger.Component("admin"),
		registry: deps.Registry,
		gatherer: deps.Gatherer,
		checks:   deps.Checks,
		store:    deps.Store,
		shapes:   make(map[string]*entity.Shape, len(deps.Shapes)),
		version:  deps.Version,
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	for _, shape := range deps.Shapes {
		s.shapes[shape.Name()] = shape
	}
	return s, nil
}

// Handler returns the router, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in the background. Bind errors (port
// in use) are returned directly.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("admin server already started")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		return fmt.Errorf("admin server listen: %w", err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server error", "error", err)
		}
	}()

	s.logger.Info("admin server listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close waits up to gracefulShutdownTimeout for in-flight requests, then
// closes remaining connections.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("admin server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down admin server: %w", err)
	}
	return nil
}
