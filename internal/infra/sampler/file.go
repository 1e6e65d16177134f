package sampler

import (
	"path/filepath"
	"strings"

	"github.com/bryanwahyu/datasense/internal/domain/fields"
	"github.com/bryanwahyu/datasense/internal/domain/projects"
)

// AllowedExtensions accepted for uploads.
var AllowedExtensions = []string{".csv", ".xlsx", ".xls"}

// ForFile picks a sampler by the extension of originalName and reads from path.
func ForFile(path, originalName string) (fields.Sampler, projects.SourceType, error) {
	switch strings.ToLower(filepath.Ext(originalName)) {
	case ".csv":
		return CSV{Path: path}, projects.SourceCSV, nil
	case ".xlsx", ".xls":
		return Excel{Path: path}, projects.SourceExcel, nil
	}
	return nil, "", fields.ErrUnsupportedFile
}
