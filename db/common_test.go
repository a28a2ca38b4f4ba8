package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/evmstore/dbtypes"
	"github.com/ethpandaops/evmstore/types"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	database, err := NewDatabase(&types.DatabaseConfig{
		Engine: "sqlite",
		Sqlite: &types.SqliteDatabaseConfig{
			File: filepath.Join(t.TempDir(), "evmstore.sqlite"),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		database.Close()
	})

	require.NoError(t, database.ApplyEmbeddedDbSchema(-2))
	return database
}

// runTx runs fn in a committed transaction and fails the test on error.
func runTx(t *testing.T, database *Database, fn func(tx *sqlx.Tx) error) {
	t.Helper()
	require.NoError(t, database.RunDBTransaction(context.Background(), fn))
}

func TestNewDatabaseUnknownEngine(t *testing.T) {
	_, err := NewDatabase(&types.DatabaseConfig{Engine: "mysql"})
	assert.ErrorIs(t, err, ErrConnection)

	_, err = NewDatabase(&types.DatabaseConfig{Engine: "sqlite"})
	assert.ErrorIs(t, err, ErrConnection)
}

func TestSchemaMigration(t *testing.T) {
	database := newTestDatabase(t)

	version, err := database.GetCurrentMigration()
	require.NoError(t, err)
	assert.Equal(t, int64(20240601000000), version)

	// applying again is a no-op
	require.NoError(t, database.ApplyEmbeddedDbSchema(-2))
	assert.Equal(t, dbtypes.DBEngineSqlite, database.Engine())
}

func TestEngineQuery(t *testing.T) {
	database := newTestDatabase(t)

	queries := map[dbtypes.DBEngineType]string{
		dbtypes.DBEngineSqlite: "sqlite query",
		dbtypes.DBEngineAny:    "generic query",
	}
	assert.Equal(t, "sqlite query", EngineQuery(database.Reader(), queries))

	runTx(t, database, func(tx *sqlx.Tx) error {
		assert.Equal(t, "sqlite query", EngineQuery(tx, queries))
		return nil
	})

	delete(queries, dbtypes.DBEngineSqlite)
	assert.Equal(t, "generic query", EngineQuery(database.Reader(), queries))
}

func TestRunDBTransactionRollsBackOnError(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()
	handlerErr := errors.New("handler failed")

	err := database.RunDBTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := InsertBlueprint(ctx, tx, &dbtypes.Blueprint{Level: 1, Payload: []byte("a"), Timestamp: 10}); err != nil {
			return err
		}
		return handlerErr
	})
	assert.ErrorIs(t, err, handlerErr)

	count, err := CountBlueprints(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestClassifyError(t *testing.T) {
	assert.Nil(t, classifyError(nil))
	assert.ErrorIs(t, wrapError(errors.New("UNIQUE constraint failed: blocks.level"), "insert"), ErrConstraintViolation)

	wrapped := wrapError(ErrNotFound, "outer")
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.NotErrorIs(t, wrapped, ErrConstraintViolation)

	plain := errors.New("syntax error")
	assert.Equal(t, plain, classifyError(plain))
}

func TestValuesPlaceholders(t *testing.T) {
	assert.Equal(t, "($1, $2)", valuesPlaceholders(1, 2))
	assert.Equal(t, "($1, $2, $3), ($4, $5, $6)", valuesPlaceholders(2, 3))
}
