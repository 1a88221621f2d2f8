package main

import (
	"context"
	"os"
	"strings"

	"github.com/nimasrn/invoice-ledger/internal/config"
	"github.com/nimasrn/invoice-ledger/internal/handlers"
	"github.com/nimasrn/invoice-ledger/internal/idempotency"
	"github.com/nimasrn/invoice-ledger/internal/repository"
	"github.com/nimasrn/invoice-ledger/internal/services"
	xhttp "github.com/nimasrn/invoice-ledger/pkg/http"
	"github.com/nimasrn/invoice-ledger/pkg/logger"
	"github.com/nimasrn/invoice-ledger/pkg/prom"
	"github.com/nimasrn/invoice-ledger/pkg/redis"
	"github.com/nimasrn/invoice-ledger/pkg/sqldb"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()

	if err := logger.Configure(cfg.AppEnv, cfg.LogLevel); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}
	logger.Info("starting invoice ledger", "version", version, "commit", commit, "date", date)

	writeConf := cfg.WriteDatabase()
	var db *sqldb.DB
	if readConf, ok := cfg.ReadDatabase(); ok {
		db, err = sqldb.CreateReadWrite(readConf, writeConf, cfg.DBDebug)
	} else {
		db, err = sqldb.Create(writeConf, cfg.DBDebug)
	}
	if err != nil {
		logger.Error("failed connecting to database", "driver", cfg.DBDriver, "error", err)
		return
	}
	defer db.Close()

	if err := db.Migrate(context.Background(), cfg.DBDriver); err != nil {
		logger.Error("failed creating schema", "error", err)
		return
	}

	if cfg.AppMetricsAddr != "" {
		host, _ := os.Hostname()
		if err := prom.Create(nil, host, cfg.AppEnv, cfg.PromNamespace); err != nil {
			logger.Error("failed registering metrics", "error", err)
		} else {
			go prom.ListenAndServer(cfg.AppMetricsAddr, cfg.AppMetricsURI)
		}
	}

	// transport
	s := newServer(cfg)

	invoiceRepo := repository.NewInvoiceRepository(db)

	// services
	invoiceService := services.NewInvoiceService(invoiceRepo)
	exportService := services.NewExportService(invoiceRepo)
	healthService := services.NewHealthService().AddCheck("database", db)

	// handlers
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService, exportService)
	healthHandler := handlers.NewHealthHandler(healthService)

	if cfg.IdempotencyEnabled() {
		redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
			Addrs:      []string{cfg.RedisAddr},
			ClientName: "default",
			DB:         cfg.RedisDatabase,
			Username:   cfg.RedisUsername,
			Password:   cfg.RedisPassword,
		})
		if err != nil {
			logger.Error("failed connecting to redis", "error", err)
			return
		}
		defer redis.CloseAll()

		idemConf := idempotency.DefaultConfig()
		idemConf.ResponseTTL = cfg.IdempotencyTTL
		idemConf.LockTTL = cfg.IdempotencyLockTTL
		invoiceHandler.WithCreateGuard(idempotency.NewService(redisAdap, idemConf).Guard)
		healthService.AddCheck("redis", redisAdap)
	}

	handlers.RegisterInvoiceRoutes(s.Router, invoiceHandler)
	handlers.RegisterHealthRoutes(s.Router, healthHandler)
	xhttp.ServeUI(s.Router, cfg.StaticDir, cfg.StaticIndex)

	done := make(chan struct{})
	s.CloseOnSignal(done)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.ListenAndServe(cfg.HttpListenAddr)
	}()

	select {
	case <-done:
		logger.Info("http-server stopped")
	case err := <-serveErr:
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, "--env=") {
			path := strings.TrimPrefix(v, "--env=")
			if _, err := os.Stat(path); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return path
		}
	}
	return ""
}
