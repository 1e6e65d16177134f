package mysql

import (
	"database/sql"
	"embed"
	"fmt"

	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/infra/db"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the dictionary schema up to date on a dedicated connection.
func Migrate(dsn string, logger *zap.Logger) error {
	dsn, err := normalizeDSN(dsn)
	if err != nil {
		return err
	}
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	driver, err := migratemysql.WithInstance(conn, &migratemysql.Config{})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	return db.RunMigrations(migrations, "migrations", "mysql", driver, logger)
}
