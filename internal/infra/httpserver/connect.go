package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/application/pipeline"
	"github.com/bryanwahyu/datasense/internal/domain/fields"
	"github.com/bryanwahyu/datasense/internal/domain/projects"
	"github.com/bryanwahyu/datasense/internal/domain/sessions"
	"github.com/bryanwahyu/datasense/internal/infra/sampler"
)

type connectRequest struct {
	ConnectionString string `json:"connectionString" validate:"required"`
}

type introspectRequest struct {
	ConnectionString string `json:"connectionString" validate:"required"`
	TableName        string `json:"tableName" validate:"required,tablename"`
}

type analyzeTableRequest struct {
	TableName string          `json:"tableName" validate:"required,tablename"`
	Fields    []fields.Sample `json:"fields" validate:"required,min=1"`
}

type analyzeAllRequest struct {
	ConnectionString string   `json:"connectionString" validate:"required"`
	Tables           []string `json:"tables" validate:"required,min=1,dive,tablename"`
}

// resolve maps the "default" and "demo" aliases to the configured datasource.
func (r *Router) resolve(conn string) string {
	dsn := strings.TrimSpace(conn)
	if (dsn == "default" || dsn == "demo") && r.defaultDSN != "" {
		return r.defaultDSN
	}
	return dsn
}

func (r *Router) open(ctx context.Context, dsn string) (Datasource, error) {
	if r.connect == nil {
		return nil, errors.New("datasource connections are disabled")
	}
	return r.connect(ctx, dsn)
}

// connectFailed answers 400 {success:false,error} the way every connect route reports failures.
func connectFailed(w http.ResponseWriter, err error) error {
	return connectFailedMsg(w, err.Error())
}

func connectFailedMsg(w http.ResponseWriter, msg string) error {
	return writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": msg})
}

// POST /api/connect/test
func (r *Router) handleConnectTest(w http.ResponseWriter, req *http.Request) error {
	var body connectRequest
	if err := decode(req, &body); err != nil {
		return err
	}
	ds, err := r.open(req.Context(), r.resolve(body.ConnectionString))
	if err != nil {
		return connectFailed(w, err)
	}
	defer ds.Close()

	tables, err := ds.ListTables(req.Context())
	if err != nil {
		return connectFailed(w, err)
	}
	if len(tables) == 0 {
		return connectFailedMsg(w, "No accessible tables found. Check your credentials.")
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "tables": tables})
}

// POST /api/connect/introspect
func (r *Router) handleIntrospect(w http.ResponseWriter, req *http.Request) error {
	var body introspectRequest
	if err := decode(req, &body); err != nil {
		return err
	}
	ds, err := r.open(req.Context(), r.resolve(body.ConnectionString))
	if err != nil {
		return connectFailed(w, err)
	}
	defer ds.Close()

	samples, err := ds.Table(body.TableName).Sample(req.Context())
	if err != nil {
		return connectFailed(w, fmt.Errorf("table %s: %w", body.TableName, err))
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"tableName": body.TableName,
		"fields":    samples,
	})
}

// POST /api/connect/analyze
// Runs the pipeline on fields a client already introspected.
func (r *Router) handleAnalyzeTable(w http.ResponseWriter, req *http.Request) error {
	var body analyzeTableRequest
	if err := decode(req, &body); err != nil {
		return err
	}
	id := uuid.New()
	fileName := body.TableName + " (PostgreSQL)"
	r.pipeline.Start(pipeline.Job{
		ProjectID:  id,
		FileName:   fileName,
		SourceType: projects.SourcePostgres,
		Metadata:   map[string]any{"tableName": body.TableName},
		Fields:     body.Fields,
	})
	return writeJSON(w, http.StatusOK, startedResponse{ProjectID: id, FileName: fileName, Message: "Analysis starting..."})
}

// POST /api/connect/analyze-all
// Documents every listed table as one project. Tables that fail to sample are skipped.
func (r *Router) handleAnalyzeAll(w http.ResponseWriter, req *http.Request) error {
	var body analyzeAllRequest
	if err := decode(req, &body); err != nil {
		return err
	}
	dsn := r.resolve(body.ConnectionString)
	ds, err := r.open(req.Context(), dsn)
	if err != nil {
		return connectFailed(w, err)
	}

	id := uuid.New()
	fileName := fmt.Sprintf("%s (%d tables)", sampler.DatabaseName(dsn), len(body.Tables))

	r.pipeline.Start(pipeline.Job{
		ProjectID:  id,
		FileName:   fileName,
		SourceType: projects.SourcePostgres,
		Metadata:   map[string]any{"tables": body.Tables},
		Source:     &tableSet{ds: ds, names: body.Tables, sessions: r.sessions, projectID: id},
		Cleanup: func() {
			ds.Close()
			r.logger.Debug("datasource closed", zap.String("project_id", id.String()))
		},
	})
	return writeJSON(w, http.StatusOK, startedResponse{ProjectID: id, FileName: fileName, Message: "Full database analysis starting..."})
}

// tableSet samples several tables into one field list, reporting progress to
// the schema agent's log.
type tableSet struct {
	ds        Datasource
	names     []string
	sessions  sessions.Store
	projectID uuid.UUID
}

func (t *tableSet) Sample(ctx context.Context) ([]fields.Sample, error) {
	all := sampler.Tables{
		Source: t,
		Names:  t.names,
		OnSkip: func(table string, err error) {
			t.log("⚠ Skipping %s: %v", table, err)
		},
	}
	out, err := all.Sample(ctx)
	if err != nil {
		return nil, err
	}
	t.log("Total fields collected: %d across %d tables", len(out), len(t.names))
	return out, nil
}

func (t *tableSet) Table(name string) fields.Sampler {
	t.log("Introspecting table: %s", name)
	return t.ds.Table(name)
}

func (t *tableSet) log(format string, args ...any) {
	if t.sessions != nil {
		t.sessions.AddLog(t.projectID, sessions.AgentAtlas, fmt.Sprintf(format, args...))
	}
}
