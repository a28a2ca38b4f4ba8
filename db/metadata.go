package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ethpandaops/evmstore/dbtypes"
)

func SetMetadata(ctx context.Context, tx *sqlx.Tx, key string, value string) error {
	_, err := tx.ExecContext(ctx, EngineQuery(tx, map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: `
			INSERT INTO metadata (key, value)
			VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET
				value = excluded.value`,
		dbtypes.DBEngineSqlite: `
			INSERT OR REPLACE INTO metadata (key, value)
			VALUES ($1, $2)`,
	}), key, value)
	return wrapError(err, "error setting metadata %v", key)
}

func GetMetadata(ctx context.Context, q sqlx.QueryerContext, key string) (string, error) {
	var value string
	err := sqlx.GetContext(ctx, q, &value, `SELECT value FROM metadata WHERE key = $1`, key)
	if err != nil {
		return "", wrapError(err, "error selecting metadata %v", key)
	}
	return value, nil
}

func SetSmartRollupAddress(ctx context.Context, tx *sqlx.Tx, address string) error {
	return SetMetadata(ctx, tx, dbtypes.MetadataKeySmartRollupAddress, address)
}

func GetSmartRollupAddress(ctx context.Context, q sqlx.QueryerContext) (string, error) {
	return GetMetadata(ctx, q, dbtypes.MetadataKeySmartRollupAddress)
}

func SetHistoryMode(ctx context.Context, tx *sqlx.Tx, mode string) error {
	return SetMetadata(ctx, tx, dbtypes.MetadataKeyHistoryMode, mode)
}

func GetHistoryMode(ctx context.Context, q sqlx.QueryerContext) (string, error) {
	return GetMetadata(ctx, q, dbtypes.MetadataKeyHistoryMode)
}
