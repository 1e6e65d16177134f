package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/application/pipeline"
	"github.com/bryanwahyu/datasense/internal/infra/sampler"
	"github.com/bryanwahyu/datasense/internal/infra/storage"
)

type startedResponse struct {
	ProjectID uuid.UUID `json:"projectId"`
	FileName  string    `json:"fileName"`
	Message   string    `json:"message"`
}

// POST /api/upload (multipart, field "file")
// Responds as soon as the file is on disk; analysis continues in the background.
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+(1<<20))
	file, header, err := req.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return r.tooLarge()
		}
		return badRequest("No file uploaded")
	}
	defer file.Close()

	fileName := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(fileName))
	if !slices.Contains(sampler.AllowedExtensions, ext) {
		return badRequest("Only CSV and Excel files are supported")
	}
	if header.Size > r.maxUpload {
		return r.tooLarge()
	}

	tmp, err := os.CreateTemp(r.tempDir, "datasense_*"+ext)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_, err = io.Copy(tmp, file)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("store upload: %w", err)
	}

	source, sourceType, err := sampler.ForFile(tmpPath, fileName)
	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	id := uuid.New()
	if r.archive != nil {
		if url, err := r.archive.Upload(req.Context(), tmpPath, storage.ArchiveKey(id, fileName)); err != nil {
			r.logger.Warn("archive upload failed", zap.String("project_id", id.String()), zap.Error(err))
		} else {
			r.logger.Info("upload archived", zap.String("project_id", id.String()), zap.String("url", url))
		}
	}

	r.pipeline.Start(pipeline.Job{
		ProjectID:  id,
		FileName:   fileName,
		SourceType: sourceType,
		Source:     source,
		Cleanup: func() {
			if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				r.logger.Warn("failed to delete upload", zap.String("path", tmpPath), zap.Error(err))
			}
		},
	})

	return writeJSON(w, http.StatusOK, startedResponse{
		ProjectID: id,
		FileName:  fileName,
		Message:   "File received. Analysis starting...",
	})
}

func (r *Router) tooLarge() error {
	return badRequest(fmt.Sprintf("File too large. Maximum size is %dMB.", r.maxUpload>>20))
}
