package sampler

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bryanwahyu/datasense/internal/domain/fields"
)

// Table is one user table of a connected datasource.
type Table struct {
	Name        string `json:"name"`
	ColumnCount int    `json:"columnCount"`
}

// Postgres is a live connection to a datasource being documented.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool for dsn and checks it answers.
func ConnectPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// DatabaseName extracts the database a DSN points at, in URL or keyword form.
// It returns "Database" when the DSN cannot be parsed or names none.
func DatabaseName(dsn string) string {
	cfg, err := pgx.ParseConfig(strings.TrimSpace(dsn))
	if err != nil || cfg.Database == "" {
		return "Database"
	}
	return cfg.Database
}

// ListTables returns base tables outside the system schemas. Tables outside
// "public" are reported schema-qualified.
func (p *Postgres) ListTables(ctx context.Context) ([]Table, error) {
	const query = `
		SELECT t.table_schema, t.table_name, COUNT(c.column_name)
		FROM information_schema.tables t
		LEFT JOIN information_schema.columns c
		  ON c.table_schema = t.table_schema AND c.table_name = t.table_name
		WHERE t.table_type = 'BASE TABLE'
		  AND t.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		GROUP BY t.table_schema, t.table_name
		ORDER BY t.table_schema, t.table_name
	`
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	tables := []Table{}
	for rows.Next() {
		var schema, name string
		var count int
		if err := rows.Scan(&schema, &name, &count); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		if schema != "public" {
			name = schema + "." + name
		}
		tables = append(tables, Table{Name: name, ColumnCount: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

// Table returns a sampler over the first MaxRows rows of one table.
func (p *Postgres) Table(name string) fields.Sampler {
	return tableSampler{pool: p.pool, table: name}
}

type tableSampler struct {
	pool  *pgxpool.Pool
	table string
}

func (t tableSampler) Sample(ctx context.Context) ([]fields.Sample, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteTable(t.table), MaxRows)
	rows, err := t.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.table, err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	columns := make([]string, len(descs))
	for i, d := range descs {
		columns[i] = d.Name
	}

	var data [][]string
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", t.table, err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.table, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no data in table %q: %w", t.table, fields.ErrEmptySource)
	}
	return Profile(columns, data), nil
}

// quoteTable quotes "table" or "schema.table".
func quoteTable(name string) string {
	if schema, table, ok := strings.Cut(name, "."); ok {
		return pgx.Identifier{schema, table}.Sanitize()
	}
	return pgx.Identifier{name}.Sanitize()
}

// formatValue renders a decoded column value the way it would appear in a CSV export.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	case [16]byte:
		return uuid.UUID(x).String()
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil || dv == nil {
			return ""
		}
		return formatValue(dv)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// Tables samples several tables as one project. Column names are prefixed with
// their table; tables that fail are reported through OnSkip and left out.
type Tables struct {
	Source interface {
		Table(name string) fields.Sampler
	}
	Names  []string
	OnSkip func(table string, err error)
}

func (t Tables) Sample(ctx context.Context) ([]fields.Sample, error) {
	out := []fields.Sample{}
	for _, name := range t.Names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		samples, err := t.Source.Table(name).Sample(ctx)
		if err != nil {
			if t.OnSkip != nil {
				t.OnSkip(name, err)
			}
			continue
		}
		for _, s := range samples {
			s.FieldName = name + "." + s.FieldName
			s.TableName = name
			out = append(out, s)
		}
	}
	return out, nil
}
