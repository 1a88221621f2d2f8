package main

import (
	"context"
	"os"
	"strings"

	"github.com/nimasrn/invoice-ledger/internal/config"
	"github.com/nimasrn/invoice-ledger/internal/repository"
	"github.com/nimasrn/invoice-ledger/internal/services"
	"github.com/nimasrn/invoice-ledger/pkg/logger"
	"github.com/nimasrn/invoice-ledger/pkg/sqldb"
)

// main.go [--env=.env] migrates the schema.
// main.go [--env=.env] --export=invoices.xlsx [--filter=pending] also writes a workbook.
func main() {
	err := config.Load(getEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Get()
	ctx := context.Background()

	err = sqldb.Migrate(ctx, cfg.WriteDatabase())
	if err != nil {
		logger.Error("migration: error running migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("migration: schema is up to date", "driver", cfg.DBDriver)

	out := getArg("--export=")
	if out == "" {
		return
	}
	if err := export(ctx, cfg.WriteDatabase(), out, getArg("--filter=")); err != nil {
		logger.Error("export: failed", "file", out, "error", err)
		os.Exit(1)
	}
	logger.Info("export: written", "file", out)
}

func export(ctx context.Context, dbConf sqldb.Config, path string, filter string) error {
	db, err := sqldb.Create(dbConf, false)
	if err != nil {
		return err
	}
	defer db.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	svc := services.NewExportService(repository.NewInvoiceRepository(db))
	if err := svc.Export(ctx, filter, f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

func getEnvPath() string {
	if path := getArg("--env="); path != "" {
		if _, err := os.Stat(path); err != nil {
			logger.Error("failed to open the passed env file, got error" + err.Error())
			return ""
		}
		return path
	}
	if _, err := os.Stat(".env"); err != nil {
		return ""
	}
	return ".env"
}

func getArg(prefix string) string {
	for _, v := range os.Args[1:] {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix)
		}
	}
	return ""
}
