package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ethpandaops/evmstore/dbtypes"
)

func InsertDelayedTransaction(ctx context.Context, tx *sqlx.Tx, delayed *dbtypes.DelayedTransaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO delayed_transactions (injected_before, hash, payload)
		VALUES ($1, $2, $3)`,
		delayed.InjectedBefore, delayed.Hash, delayed.Payload)
	return wrapError(err, "error inserting delayed transaction 0x%x", delayed.Hash)
}

// GetDelayedTransactionAtLevel returns the payload of the first delayed
// transaction (by hash) injected before the given level.
func GetDelayedTransactionAtLevel(ctx context.Context, q sqlx.QueryerContext, level int64) ([]byte, error) {
	var payload []byte
	err := sqlx.GetContext(ctx, q, &payload, `
		SELECT payload
		FROM delayed_transactions
		WHERE injected_before = $1
		ORDER BY hash ASC
		LIMIT 1`, level)
	if err != nil {
		return nil, wrapError(err, "error selecting delayed transaction at level %v", level)
	}
	return payload, nil
}

func GetDelayedTransactionByHash(ctx context.Context, q sqlx.QueryerContext, hash []byte) ([]byte, error) {
	var payload []byte
	err := sqlx.GetContext(ctx, q, &payload, `SELECT payload FROM delayed_transactions WHERE hash = $1`, hash)
	if err != nil {
		return nil, wrapError(err, "error selecting delayed transaction 0x%x", hash)
	}
	return payload, nil
}

func ClearDelayedTransactionsAfter(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM delayed_transactions WHERE injected_before > $1`, level)
}

func ClearDelayedTransactionsBefore(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM delayed_transactions WHERE injected_before < $1`, level)
}
