package postgres

import (
	"database/sql"
	"embed"
	"fmt"

	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/infra/db"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the dictionary schema up to date on a dedicated connection.
func Migrate(dsn string, logger *zap.Logger) error {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	driver, err := migratepg.WithInstance(conn, &migratepg.Config{})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	return db.RunMigrations(migrations, "migrations", "postgres", driver, logger)
}
