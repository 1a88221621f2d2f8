package repository

import (
	"context"
	"testing"

	"github.com/nimasrn/invoice-ledger/pkg/sqldb"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqldb.DB {
	t.Helper()
	db, err := sqldb.Create(sqldb.Config{Driver: sqldb.DriverSQLite, Path: ":memory:"}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(context.Background(), sqldb.DriverSQLite))
	return db
}
