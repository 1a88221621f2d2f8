package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/invoice-ledger/pkg/logger"
	"github.com/nimasrn/invoice-ledger/pkg/sqldb"
	"github.com/pkg/errors"
)

var config *Config

// Config holds every configuration value of the service. Only this struct
// must be used to read configuration; no direct access to the environment
// or any other config source should be made.
type Config struct {
	AppEnv  string `env:"APP_ENV,default=dev"`
	AppName string `env:"APP_NAME,default=invoice_ledger"`

	AppMetricsAddr string `env:"APP_METRICS_ADDR"`
	AppMetricsURI  string `env:"APP_METRICS_URI,default=/metrics"`
	PromNamespace  string `env:"PROM_NAMESPACE,default=invoice_ledger"`

	HttpListenAddr      string        `env:"HTTP_LISTEN_ADDR,default=:6334"`
	HttpRequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT,default=5s"`
	HttpReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT,default=5s"`
	HttpWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT,default=10s"`
	HttpCorsAllowOrigin string        `env:"HTTP_CORS_ALLOW_ORIGIN,default=*"`

	StaticDir   string `env:"STATIC_DIR,default=static"`
	StaticIndex string `env:"STATIC_INDEX,default=djbilling.html"`

	DBDriver   string `env:"DB_DRIVER,default=sqlite"`
	DBDebug    bool   `env:"DB_DEBUG"`
	SqlitePath string `env:"SQLITE_PATH,default=local_database.db"`

	PostgresHost     string `env:"POSTGRES_HOST,default=localhost"`
	PostgresPort     string `env:"POSTGRES_PORT,default=5432"`
	PostgresUser     string `env:"POSTGRES_USER"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresDatabase string `env:"POSTGRES_DBNAME"`
	PostgresReadHost string `env:"POSTGRES_READ_HOST"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX,default=invoice_ledger:"`

	IdempotencyTTL     time.Duration `env:"IDEMPOTENCY_TTL,default=24h"`
	IdempotencyLockTTL time.Duration `env:"IDEMPOTENCY_LOCK_TTL,default=30s"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	_, err = env.UnmarshalFromEnviron(c)
	if err != nil {
		return errors.Wrap(err, "failed to map env variables to Configuration object")
	}

	if err := c.validate(); err != nil {
		return err
	}

	config = c
	return nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case sqldb.DriverSQLite, sqldb.DriverPostgres:
	default:
		return errors.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.DBDriver == sqldb.DriverPostgres && c.PostgresDatabase == "" {
		return errors.New("POSTGRES_DBNAME is required when DB_DRIVER=postgres")
	}
	if c.HttpListenAddr == "" {
		return errors.New("HTTP_LISTEN_ADDR must not be empty")
	}
	return nil
}

// IdempotencyEnabled reports whether a Redis server is configured.
func (c *Config) IdempotencyEnabled() bool {
	return c.RedisAddr != ""
}

// WriteDatabase is the primary store connection.
func (c *Config) WriteDatabase() sqldb.Config {
	return sqldb.Config{
		Driver:   c.DBDriver,
		Path:     c.SqlitePath,
		User:     c.PostgresUser,
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		Password: c.PostgresPassword,
		Database: c.PostgresDatabase,
	}
}

// ReadDatabase points at the replica when one is configured. ok is false
// when reads should share the write connection.
func (c *Config) ReadDatabase() (cfg sqldb.Config, ok bool) {
	if c.DBDriver != sqldb.DriverPostgres || c.PostgresReadHost == "" {
		return sqldb.Config{}, false
	}
	cfg = c.WriteDatabase()
	cfg.Host = c.PostgresReadHost
	return cfg, true
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
