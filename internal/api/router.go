package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/entitykit/internal/entity"
)

const healthCheckTimeout = 5 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/instances", s.handleInstances)

	r.Route("/entities", func(r chi.Router) {
		r.Get("/", s.handleKinds)
		r.Get("/{kind}", s.handleListEntities)
		r.Get("/{kind}/{id}", s.handleGetEntity)
	})

	return r
}

// handleHealth runs every health check. Any failure turns the response
// into a 503 listing each component's state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, checker := range s.checks {
		if err := checker.HealthCheck(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = ErrCodeUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status":  state,
		"version": s.version,
		"checks":  checks,
	})
}

func (s *Server) handleInstances(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"bindings": s.registry.Bindings(),
	})
}

func (s *Server) handleKinds(w http.ResponseWriter, _ *http.Request) {
	kinds := make([]string, 0, len(s.shapes))
	for name := range s.shapes {
		kinds = append(kinds, name)
	}
	sort.Strings(kinds)
	writeJSON(w, http.StatusOK, map[string]any{"kinds": kinds})
}

// shapeParam resolves the {kind} parameter, writing a 404 when the store is
// absent or the kind is unknown.
func (s *Server) shapeParam(w http.ResponseWriter, r *http.Request) (*entity.Shape, bool) {
	kind := chi.URLParam(r, "kind")
	shape, ok := s.shapes[kind]
	if !ok || s.store == nil {
		writeNotFound(w, "unknown entity kind: "+kind)
		return nil, false
	}
	return shape, true
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	shape, ok := s.shapeParam(w, r)
	if !ok {
		return
	}

	recs, err := s.store.List(r.Context(), shape)
	if err != nil {
		s.logger.Error("listing entities", "kind", shape.Name(), "error", err)
		writeInternalError(w, "listing entities failed")
		return
	}

	docs := make([]map[string]any, len(recs))
	for i, rec := range recs {
		docs[i] = rec.Document()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":     shape.Name(),
		"count":    len(docs),
		"entities": docs,
	})
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	shape, ok := s.shapeParam(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid id")
		return
	}

	rec, err := s.store.Get(r.Context(), shape, id)
	if errors.Is(err, entity.ErrNotFound) {
		writeNotFound(w, shape.Name()+" not found")
		return
	}
	if err != nil {
		s.logger.Error("getting entity", "kind", shape.Name(), "id", id, "error", err)
		writeInternalError(w, "reading entity failed")
		return
	}
	writeJSON(w, http.StatusOK, rec.Document())
}
