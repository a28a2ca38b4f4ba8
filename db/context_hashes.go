package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ethpandaops/evmstore/dbtypes"
)

func InsertOrReplaceContextHash(ctx context.Context, tx *sqlx.Tx, contextHash *dbtypes.ContextHash) error {
	_, err := tx.ExecContext(ctx, EngineQuery(tx, map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: `
			INSERT INTO context_hashes (level, context_hash)
			VALUES ($1, $2)
			ON CONFLICT (level) DO UPDATE SET
				context_hash = excluded.context_hash`,
		dbtypes.DBEngineSqlite: `
			INSERT OR REPLACE INTO context_hashes (level, context_hash)
			VALUES ($1, $2)`,
	}), contextHash.Level, contextHash.ContextHash)
	return wrapError(err, "error upserting context hash %v", contextHash.Level)
}

func GetContextHash(ctx context.Context, q sqlx.QueryerContext, level int64) ([]byte, error) {
	var hash []byte
	err := sqlx.GetContext(ctx, q, &hash, `SELECT context_hash FROM context_hashes WHERE level = $1`, level)
	if err != nil {
		return nil, wrapError(err, "error selecting context hash %v", level)
	}
	return hash, nil
}

func GetLatestContextHash(ctx context.Context, q sqlx.QueryerContext) (*dbtypes.ContextHash, error) {
	contextHash := &dbtypes.ContextHash{}
	err := sqlx.GetContext(ctx, q, contextHash, `
		SELECT level, context_hash
		FROM context_hashes
		ORDER BY level DESC
		LIMIT 1`)
	if err != nil {
		return nil, wrapError(err, "error selecting latest context hash")
	}
	return contextHash, nil
}

func GetEarliestContextHash(ctx context.Context, q sqlx.QueryerContext) (*dbtypes.ContextHash, error) {
	contextHash := &dbtypes.ContextHash{}
	err := sqlx.GetContext(ctx, q, contextHash, `
		SELECT level, context_hash
		FROM context_hashes
		ORDER BY level ASC
		LIMIT 1`)
	if err != nil {
		return nil, wrapError(err, "error selecting earliest context hash")
	}
	return contextHash, nil
}

func ClearContextHashesAfter(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM context_hashes WHERE level > $1`, level)
}

func ClearContextHashesBefore(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM context_hashes WHERE level < $1`, level)
}
