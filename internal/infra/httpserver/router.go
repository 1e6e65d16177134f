package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/application/chat"
	"github.com/bryanwahyu/datasense/internal/application/dictionary"
	"github.com/bryanwahyu/datasense/internal/application/pipeline"
	domai "github.com/bryanwahyu/datasense/internal/domain/ai"
	"github.com/bryanwahyu/datasense/internal/domain/fields"
	"github.com/bryanwahyu/datasense/internal/domain/projects"
	"github.com/bryanwahyu/datasense/internal/domain/sessions"
	"github.com/bryanwahyu/datasense/internal/infra/sampler"
	"github.com/bryanwahyu/datasense/internal/middleware"
)

// Datasource is a live database whose tables can be documented.
type Datasource interface {
	ListTables(ctx context.Context) ([]sampler.Table, error)
	Table(name string) fields.Sampler
	Close()
}

// Connector opens a Datasource from a connection string.
type Connector func(ctx context.Context, dsn string) (Datasource, error)

// PostgresConnector is the production Connector.
func PostgresConnector(ctx context.Context, dsn string) (Datasource, error) {
	pg, err := sampler.ConnectPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

// Options wires the router. Archive, Connector, RateLimiter and APIKeys are optional.
type Options struct {
	Pipeline   *pipeline.Service
	Dictionary *dictionary.Service
	Chat       *chat.Service
	Sessions   sessions.Store
	Archive    projects.ArchiveStore
	Connector  Connector
	// DefaultDSN is used when a client sends "default" or "demo" as its connection string.
	DefaultDSN string

	MaxUploadBytes int64
	TempDir        string

	CORSOrigins []string
	APIKeys     map[string]string
	RateLimiter *middleware.RateLimiter
	Health      map[string]middleware.HealthChecker
	Logger      *zap.Logger
}

type Router struct {
	pipeline   *pipeline.Service
	dict       *dictionary.Service
	chat       *chat.Service
	sessions   sessions.Store
	archive    projects.ArchiveStore
	connect    Connector
	defaultDSN string
	maxUpload  int64
	tempDir    string
	logger     *zap.Logger
}

func NewRouter(o Options) http.Handler {
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		pipeline:   o.Pipeline,
		dict:       o.Dictionary,
		chat:       o.Chat,
		sessions:   o.Sessions,
		archive:    o.Archive,
		connect:    o.Connector,
		defaultDSN: o.DefaultDSN,
		maxUpload:  o.MaxUploadBytes,
		tempDir:    o.TempDir,
		logger:     logger.Named("http"),
	}
	if r.maxUpload <= 0 {
		r.maxUpload = 50 << 20
	}
	if r.tempDir == "" {
		r.tempDir = os.TempDir()
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestLogger(logger))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   o.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if len(o.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(o.APIKeys))
	}
	if o.RateLimiter != nil {
		mux.Use(middleware.RateLimitMiddleware(o.RateLimiter))
	}

	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Route("/api", func(rt chi.Router) {
		rt.Get("/health", middleware.HealthHandler(o.Health))

		rt.Post("/upload", r.wrap(r.handleUpload))

		rt.Get("/analysis/{projectId}", r.wrap(r.handleProgress))
		rt.Get("/analysis/{projectId}/logs", r.wrap(r.handleLogs))

		rt.Get("/dictionary/{projectId}", r.wrap(r.handleDictionary))
		rt.Patch("/dictionary/{projectId}/field/{fieldName}", r.wrap(r.handleUpdateField))

		rt.Post("/chat", r.wrap(r.handleChat))

		rt.Get("/projects", r.wrap(r.handleListProjects))
		rt.Get("/projects/{projectId}", r.wrap(r.handleGetProject))
		rt.Delete("/projects/{projectId}", r.wrap(r.handleDeleteProject))

		rt.Post("/connect/test", r.wrap(r.handleConnectTest))
		rt.Post("/connect/introspect", r.wrap(r.handleIntrospect))
		rt.Post("/connect/analyze", r.wrap(r.handleAnalyzeTable))
		rt.Post("/connect/analyze-all", r.wrap(r.handleAnalyzeAll))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// statusError carries an explicit HTTP status and client message.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string { return e.msg }

func badRequest(msg string) error { return &statusError{code: http.StatusBadRequest, msg: msg} }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var se *statusError
		var ve *middleware.ValidationError
		switch {
		case errors.As(err, &se):
			writeError(w, se.code, se.msg)
		case errors.As(err, &ve):
			writeError(w, http.StatusBadRequest, ve.Error())
		case errors.Is(err, projects.ErrNotFound):
			writeError(w, http.StatusNotFound, "Project not found")
		case errors.Is(err, dictionary.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "Invalid status. Use approved, pending or rejected.")
		case errors.Is(err, fields.ErrUnsupportedFile):
			writeError(w, http.StatusBadRequest, "Only CSV and Excel files are supported")
		case errors.Is(err, domai.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "ai quota exceeded")
		default:
			r.logger.Error("request failed",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
		}
	}
}

// projectID parses the {projectId} path parameter. Malformed ids cannot name a
// project, so they report not found.
func projectID(req *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(req, "projectId"))
	if err != nil {
		return uuid.Nil, projects.ErrNotFound
	}
	return id, nil
}

// decode reads a JSON body into v and runs its validate tags.
func decode(req *http.Request, v any) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return badRequest("invalid JSON body")
	}
	return middleware.ValidateStruct(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	_ = writeJSON(w, code, map[string]string{"error": msg})
}
