package store

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes a Store over the REST surface HTTPStore consumes.
type Server struct {
	store  Store
	logger *slog.Logger
}

// NewServer wraps a store with HTTP handlers. A nil logger uses
// slog.Default.
func NewServer(s Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: s, logger: logger}
}

// Routes returns the router for the flow API, ready to mount under a
// path prefix such as /api.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/flows", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Route("/{flowID}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Put("/", s.handleUpdate)
			r.Delete("/", s.handleDelete)
			r.Post("/publish", s.handlePublish)
			r.Post("/unpublish", s.handleUnpublish)
		})
	})
	return r
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var flow Flow
	if err := json.NewDecoder(r.Body).Decode(&flow); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid flow payload")
		return
	}
	if flow.Name == "" {
		s.writeError(w, http.StatusBadRequest, "flow name is required")
		return
	}

	created, err := s.store.Create(r.Context(), flow)
	if err != nil {
		s.storeError(w, r, "create", err)
		return
	}
	s.logger.Info("flow created", "flow_id", created.ID, "name", created.Name)
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "flowID")

	var flow Flow
	if err := json.NewDecoder(r.Body).Decode(&flow); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid flow payload")
		return
	}

	updated, err := s.store.Update(r.Context(), id, flow)
	if err != nil {
		s.storeError(w, r, "update", err)
		return
	}
	s.logger.Info("flow updated", "flow_id", id, "node_count", updated.NodeCount)
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	flow, err := s.store.Get(r.Context(), chi.URLParam(r, "flowID"))
	if err != nil {
		s.storeError(w, r, "get", err)
		return
	}
	s.writeJSON(w, http.StatusOK, flow)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.List(r.Context())
	if err != nil {
		s.storeError(w, r, "list", err)
		return
	}
	if summaries == nil {
		summaries = []Summary{}
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "flowID")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.storeError(w, r, "delete", err)
		return
	}
	s.logger.Info("flow deleted", "flow_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	flow, err := s.store.Publish(r.Context(), chi.URLParam(r, "flowID"))
	if err != nil {
		s.storeError(w, r, "publish", err)
		return
	}
	s.logger.Info("flow published", "flow_id", flow.ID)
	s.writeJSON(w, http.StatusOK, flow)
}

func (s *Server) handleUnpublish(w http.ResponseWriter, r *http.Request) {
	flow, err := s.store.Unpublish(r.Context(), chi.URLParam(r, "flowID"))
	if err != nil {
		s.storeError(w, r, "unpublish", err)
		return
	}
	s.logger.Info("flow unpublished", "flow_id", flow.ID)
	s.writeJSON(w, http.StatusOK, flow)
}

// storeError maps a store failure onto an HTTP status.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		s.writeError(w, http.StatusNotFound, "flow not found")
	case errors.Is(err, ErrStoreClosed):
		s.writeError(w, http.StatusServiceUnavailable, "flow store unavailable")
	default:
		s.logger.Error("store operation failed", "op", op, "path", r.URL.Path, "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorBody{Error: msg})
}
