package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bryanwahyu/datasense/internal/domain/fields"
	"github.com/bryanwahyu/datasense/internal/domain/projects"
	"github.com/bryanwahyu/datasense/internal/infra/db"
)

// ProjectRepository stores completed dictionaries in the projects and fields tables.
type ProjectRepository struct{ db *sql.DB }

func NewProjectRepository(conn *sql.DB) *ProjectRepository { return &ProjectRepository{db: conn} }

// SaveProject insert/update project record
func (r *ProjectRepository) SaveProject(ctx context.Context, p *projects.Project) error {
	q := `
INSERT INTO projects (` + db.ProjectColumns + `)
VALUES (` + db.Placeholders(db.ProjectColumnCount, 1) + `)
ON CONFLICT (project_id) DO UPDATE SET
 file_name = EXCLUDED.file_name,
 source_type = EXCLUDED.source_type,
 total_fields = EXCLUDED.total_fields,
 avg_quality = EXCLUDED.avg_quality,
 status = EXCLUDED.status,
 metadata = EXCLUDED.metadata;`

	args, err := db.ProjectArgs(p)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	return err
}

// SaveFields replaces the stored dictionary of a project in one transaction.
func (r *ProjectRepository) SaveFields(ctx context.Context, projectID uuid.UUID, items []fields.Analysis) error {
	insert := `INSERT INTO fields (` + db.FieldColumns + `) VALUES (` + db.Placeholders(db.FieldColumnCount, 1) + `);`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fields WHERE project_id=$1;`, projectID.String()); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range items {
		args, err := db.FieldArgs(projectID, f)
		if err != nil {
			return fmt.Errorf("field %s: %w", f.FieldName, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert field %s: %w", f.FieldName, err)
		}
	}
	return tx.Commit()
}

func (r *ProjectRepository) GetProject(ctx context.Context, projectID uuid.UUID) (*projects.Project, error) {
	q := `SELECT ` + db.ProjectColumns + ` FROM projects WHERE project_id=$1 LIMIT 1;`
	p, err := db.ScanProject(r.db.QueryRowContext(ctx, q, projectID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, projects.ErrNotFound
	}
	return p, err
}

// GetFields returns fields in insertion order.
func (r *ProjectRepository) GetFields(ctx context.Context, projectID uuid.UUID) ([]fields.Analysis, error) {
	q := `SELECT ` + db.FieldColumns + ` FROM fields WHERE project_id=$1 ORDER BY id;`
	rows, err := r.db.QueryContext(ctx, q, projectID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fields.Analysis
	for rows.Next() {
		f, err := db.ScanField(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListProjects newest first
func (r *ProjectRepository) ListProjects(ctx context.Context) ([]*projects.Project, error) {
	q := `SELECT ` + db.ProjectColumns + ` FROM projects ORDER BY created_at DESC;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*projects.Project{}
	for rows.Next() {
		p, err := db.ScanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProjectRepository) UpdateField(ctx context.Context, projectID uuid.UUID, fieldName string, u projects.FieldUpdate) error {
	var (
		sets []string
		args []any
	)
	if u.Status != nil {
		args = append(args, string(*u.Status))
		sets = append(sets, fmt.Sprintf("status=$%d", len(args)))
	}
	if u.Description != nil {
		args = append(args, *u.Description)
		sets = append(sets, fmt.Sprintf("description=$%d", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, projectID.String(), fieldName)
	q := fmt.Sprintf(`UPDATE fields SET %s WHERE project_id=$%d AND field_name=$%d;`,
		strings.Join(sets, ", "), len(args)-1, len(args))

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return projects.ErrNotFound
	}
	return nil
}

// DeleteProject removes the project and its fields.
func (r *ProjectRepository) DeleteProject(ctx context.Context, projectID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fields WHERE project_id=$1;`, projectID.String()); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE project_id=$1;`, projectID.String())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return projects.ErrNotFound
	}
	return tx.Commit()
}

// Ping reports database reachability for the health endpoint.
func (r *ProjectRepository) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }
