package httpserver

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bryanwahyu/datasense/internal/application/dictionary"
	"github.com/bryanwahyu/datasense/internal/domain/fields"
	"github.com/bryanwahyu/datasense/internal/domain/projects"
)

// GET /api/analysis/{projectId}
func (r *Router) handleProgress(w http.ResponseWriter, req *http.Request) error {
	id, err := projectID(req)
	if err != nil {
		return err
	}
	p, err := r.dict.Progress(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, p)
}

// GET /api/analysis/{projectId}/logs
func (r *Router) handleLogs(w http.ResponseWriter, req *http.Request) error {
	// unknown or malformed ids simply have no logs
	id, _ := uuid.Parse(chi.URLParam(req, "projectId"))
	return writeJSON(w, http.StatusOK, map[string]any{"logs": r.dict.Logs(id)})
}

// GET /api/dictionary/{projectId}
func (r *Router) handleDictionary(w http.ResponseWriter, req *http.Request) error {
	id, err := projectID(req)
	if err != nil {
		return err
	}
	v, err := r.dict.Dictionary(req.Context(), id)
	if errors.Is(err, dictionary.ErrInProgress) {
		return writeJSON(w, http.StatusAccepted, map[string]any{
			"message": "Analysis still in progress",
			"status":  v.Status,
		})
	}
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, v)
}

type updateFieldRequest struct {
	Status      *fields.ReviewStatus `json:"status" validate:"omitempty,oneof=approved pending rejected"`
	Description *string              `json:"description"`
}

// PATCH /api/dictionary/{projectId}/field/{fieldName}
// Body: {"status": "...", "description": "..."}, both optional.
func (r *Router) handleUpdateField(w http.ResponseWriter, req *http.Request) error {
	id, err := projectID(req)
	if err != nil {
		return err
	}
	fieldName, err := url.PathUnescape(chi.URLParam(req, "fieldName"))
	if err != nil || fieldName == "" {
		return badRequest("invalid field name")
	}
	var body updateFieldRequest
	if err := decode(req, &body); err != nil {
		return err
	}

	field, err := r.dict.UpdateField(req.Context(), id, fieldName, projects.FieldUpdate{
		Status:      body.Status,
		Description: body.Description,
	})
	if errors.Is(err, projects.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Field not found")
		return nil
	}
	if err != nil {
		return err
	}
	if field == nil {
		return writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "field": field})
}

// GET /api/projects
func (r *Router) handleListProjects(w http.ResponseWriter, req *http.Request) error {
	list, err := r.dict.Projects(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"projects": list})
}

// GET /api/projects/{projectId}
func (r *Router) handleGetProject(w http.ResponseWriter, req *http.Request) error {
	id, err := projectID(req)
	if err != nil {
		return err
	}
	p, err := r.dict.Project(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, p)
}

// DELETE /api/projects/{projectId}
func (r *Router) handleDeleteProject(w http.ResponseWriter, req *http.Request) error {
	id, err := projectID(req)
	if err != nil {
		return err
	}
	if err := r.dict.DeleteProject(req.Context(), id); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Project deleted successfully",
	})
}
