package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// migrationsTable is where golang-migrate records the applied version; both
// drivers use the same default name.
const migrationsTable = "schema_migrations"

var migrationDrivers = map[Dialect]func(*sql.DB) (database.Driver, error){
	DialectSQLite: func(db *sql.DB) (database.Driver, error) {
		return sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: migrationsTable})
	},
	DialectPostgres: func(db *sql.DB) (database.Driver, error) {
		return postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	},
}

// RunMigrations applies every pending up migration for dialect. The migrate
// driver closes its connection on exit, so it gets one of its own.
func RunMigrations(dialect Dialect, dsn string) error {
	newDriver, ok := migrationDrivers[dialect]
	if !ok {
		return fmt.Errorf("unsupported dialect %q", dialect)
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	driver, err := newDriver(db)
	if err != nil {
		return fmt.Errorf("create %s driver: %w", dialect, err)
	}
	source, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, string(dialect), driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// SchemaVersion reports the last applied migration and whether it was left
// half-applied.
func (r *Repository) SchemaVersion(ctx context.Context) (version uint, dirty bool, err error) {
	row := r.db.QueryRowContext(ctx, "SELECT version, dirty FROM "+migrationsTable+" LIMIT 1")
	if err := row.Scan(&version, &dirty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}
