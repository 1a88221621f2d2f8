package sqldb

import (
	"database/sql"
	"fmt"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver   string
	Path     string
	User     string
	Host     string
	Port     string
	Password string
	Database string
}

func (c Config) postgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable", c.Host, c.User, c.Password, c.Database, c.Port)
}

// newSqlConnection opens a plain database/sql handle, used by the migration runner.
// Postgres goes through lib/pq; sqlite through the driver gorm registers.
func newSqlConnection(config Config) (*sql.DB, error) {
	switch config.Driver {
	case DriverPostgres:
		return sql.Open("postgres", config.postgresDSN())
	case DriverSQLite, "":
		return sql.Open("sqlite3", config.Path)
	}
	return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
}
