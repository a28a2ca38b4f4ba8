package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ethpandaops/evmstore/dbtypes"
)

func InsertIrminChunk(ctx context.Context, tx *sqlx.Tx, chunk *dbtypes.IrminChunk) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO irmin_chunks (level, timestamp)
		VALUES ($1, $2)`,
		chunk.Level, chunk.Timestamp)
	return wrapError(err, "error inserting irmin chunk %v", chunk.Level)
}

// GetNthIrminChunk counts from the newest chunk, offset 0 is the latest one.
func GetNthIrminChunk(ctx context.Context, q sqlx.QueryerContext, offset int64) (*dbtypes.IrminChunk, error) {
	chunk := &dbtypes.IrminChunk{}
	err := sqlx.GetContext(ctx, q, chunk, `
		SELECT level, timestamp
		FROM irmin_chunks
		ORDER BY level DESC
		LIMIT 1 OFFSET $1`, offset)
	if err != nil {
		return nil, wrapError(err, "error selecting irmin chunk at offset %v", offset)
	}
	return chunk, nil
}

func GetLatestIrminChunk(ctx context.Context, q sqlx.QueryerContext) (*dbtypes.IrminChunk, error) {
	return GetNthIrminChunk(ctx, q, 0)
}

func ClearIrminChunks(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM irmin_chunks`)
}

func ClearIrminChunksAfter(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM irmin_chunks WHERE level > $1`, level)
}

func ClearIrminChunksBefore(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM irmin_chunks WHERE level < $1`, level)
}

// ClearIrminChunksBeforeIncluded also removes the chunk at level itself.
func ClearIrminChunksBeforeIncluded(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM irmin_chunks WHERE level <= $1`, level)
}
