package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hazz-dev/statuswatch/internal/auth"
	"github.com/hazz-dev/statuswatch/internal/endpoint"
)

// Directory defines the endpoint operations the server exposes.
type Directory interface {
	Create(ctx context.Context, ownerID string, in endpoint.CreateInput) (endpoint.Endpoint, error)
	Get(ctx context.Context, ownerID, endpointID string) (endpoint.Endpoint, error)
	List(ctx context.Context, ownerID string, refresh bool) ([]endpoint.Endpoint, error)
	Update(ctx context.Context, ownerID, endpointID string, in endpoint.UpdateInput) (endpoint.Endpoint, error)
	Delete(ctx context.Context, ownerID, endpointID string) error
	DeleteByTenant(ctx context.Context, ownerID, tenantID string) (int, error)
}

// Options configures optional server behaviour.
type Options struct {
	// CORSOrigins lists allowed origins; empty allows any.
	CORSOrigins []string
	// QA mounts the simulated health endpoint at /api/qa/health.
	QA bool
}

// Server holds the chi router and its dependencies.
type Server struct {
	dir           Directory
	authenticator func(http.Handler) http.Handler
	opts          Options
	router        chi.Router
	pick          func(n int) int
	logger        *slog.Logger
}

// New creates a new Server and registers all routes. authenticator must put
// the owner id into the request context (see auth.WithOwner).
func New(dir Directory, authenticator func(http.Handler) http.Handler, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		dir:           dir,
		authenticator: authenticator,
		opts:          opts,
		router:        chi.NewRouter(),
		pick:          rand.IntN,
		logger:        logger,
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/api/health", s.handleHealth)
	if s.opts.QA {
		r.Get("/api/qa/health", s.handleQAHealth)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.authenticator)

		r.Get("/api/endpoints", s.handleListEndpoints)
		r.Post("/api/endpoints", s.handleCreateEndpoint)
		r.Get("/api/endpoints/{endpointID}", s.handleGetEndpoint)
		r.Patch("/api/endpoints/{endpointID}", s.handleUpdateEndpoint)
		r.Delete("/api/endpoints/{endpointID}", s.handleDeleteEndpoint)
		r.Delete("/api/tenants/{tenantID}", s.handleDeleteTenant)
	})
}

// --- Response helpers ---

type envelope struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: msg})
}

// writeDirectoryError maps directory errors onto status codes.
func (s *Server) writeDirectoryError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *endpoint.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, endpoint.ErrNotFound):
		writeError(w, http.StatusNotFound, "Endpoint not found")
	default:
		s.logger.Error(op, "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, v interface{}) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleListEndpoints(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.OwnerID(r.Context())

	refresh := false
	if v := r.URL.Query().Get("refresh"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid refresh parameter")
			return
		}
		refresh = b
	}

	endpoints, err := s.dir.List(r.Context(), owner, refresh)
	if err != nil {
		s.writeDirectoryError(w, r, "List", err)
		return
	}
	writeJSON(w, http.StatusOK, endpoints)
}

func (s *Server) handleCreateEndpoint(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.OwnerID(r.Context())

	var in endpoint.CreateInput
	if !decodeBody(r, &in) {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	created, err := s.dir.Create(r.Context(), owner, in)
	if err != nil {
		s.writeDirectoryError(w, r, "Create", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetEndpoint(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.OwnerID(r.Context())

	e, err := s.dir.Get(r.Context(), owner, chi.URLParam(r, "endpointID"))
	if err != nil {
		s.writeDirectoryError(w, r, "Get", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateEndpoint(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.OwnerID(r.Context())

	var in endpoint.UpdateInput
	if !decodeBody(r, &in) {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	updated, err := s.dir.Update(r.Context(), owner, chi.URLParam(r, "endpointID"), in)
	if err != nil {
		s.writeDirectoryError(w, r, "Update", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEndpoint(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.OwnerID(r.Context())

	if err := s.dir.Delete(r.Context(), owner, chi.URLParam(r, "endpointID")); err != nil {
		s.writeDirectoryError(w, r, "Delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type tenantDeletion struct {
	TenantID     string `json:"tenantId"`
	DeletedCount int    `json:"deletedCount"`
}

func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.OwnerID(r.Context())
	tenantID := chi.URLParam(r, "tenantID")

	n, err := s.dir.DeleteByTenant(r.Context(), owner, tenantID)
	if err != nil {
		s.writeDirectoryError(w, r, "DeleteByTenant", err)
		return
	}
	writeJSON(w, http.StatusOK, tenantDeletion{TenantID: tenantID, DeletedCount: n})
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// requestLogger never logs headers; the Authorization header carries the token.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
