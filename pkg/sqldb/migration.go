package sqldb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	"github.com/nimasrn/invoice-ledger/pkg/logger"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// goose keeps dialect and filesystem in package state
var gooseLock sync.Mutex

func dialect(driver string) (string, string, error) {
	switch driver {
	case DriverPostgres:
		return "postgres", "migrations/postgres", nil
	case DriverSQLite, "":
		return "sqlite3", "migrations/sqlite", nil
	}
	return "", "", fmt.Errorf("unsupported database driver %q", driver)
}

// MigrateDB brings the schema of an already open handle up to date.
func MigrateDB(ctx context.Context, db *sql.DB, driver string) error {
	name, dir, err := dialect(driver)
	if err != nil {
		return err
	}

	gooseLock.Lock()
	defer gooseLock.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(logger.GetLogger())
	if err := goose.SetDialect(name); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Migrate opens its own connection from cfg, used by the cli.
func Migrate(ctx context.Context, cfg Config) error {
	db, err := newSqlConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return MigrateDB(ctx, db, cfg.Driver)
}

// Migrate applies the embedded migrations through the write handle.
func (r *DB) Migrate(ctx context.Context, driver string) error {
	sqlDB, err := r.write.DB()
	if err != nil {
		return err
	}
	return MigrateDB(ctx, sqlDB, driver)
}
