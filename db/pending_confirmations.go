package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ethpandaops/evmstore/dbtypes"
)

func InsertPendingConfirmation(ctx context.Context, tx *sqlx.Tx, confirmation *dbtypes.PendingConfirmation) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO pending_confirmations (level, hash)
		VALUES ($1, $2)`,
		confirmation.Level, confirmation.Hash)
	return wrapError(err, "error inserting pending confirmation %v", confirmation.Level)
}

// GetPendingConfirmation returns ErrNotFound while no attestation was received for the level.
func GetPendingConfirmation(ctx context.Context, q sqlx.QueryerContext, level int64) ([]byte, error) {
	var hash []byte
	err := sqlx.GetContext(ctx, q, &hash, `SELECT hash FROM pending_confirmations WHERE level = $1`, level)
	if err != nil {
		return nil, wrapError(err, "error selecting pending confirmation %v", level)
	}
	return hash, nil
}

func DeletePendingConfirmation(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM pending_confirmations WHERE level = $1`, level)
}

func ClearPendingConfirmations(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM pending_confirmations`)
}

func CountPendingConfirmations(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	return selectCount(ctx, q, `SELECT COUNT(*) FROM pending_confirmations`)
}
