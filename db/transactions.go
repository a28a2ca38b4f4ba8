package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ethpandaops/evmstore/dbtypes"
)

const transactionColumns = 8

// rows per multi-row insert statement, kept below the sqlite variable limit
const transactionInsertBatchSize = 100

func InsertTransaction(ctx context.Context, tx *sqlx.Tx, transaction *dbtypes.Transaction) error {
	return InsertTransactions(ctx, tx, []*dbtypes.Transaction{transaction})
}

// InsertTransactions writes all transactions inside the callers transaction.
// A failure on any row fails the whole call, the caller is expected to roll back.
func InsertTransactions(ctx context.Context, tx *sqlx.Tx, transactions []*dbtypes.Transaction) error {
	for start := 0; start < len(transactions); start += transactionInsertBatchSize {
		end := start + transactionInsertBatchSize
		if end > len(transactions) {
			end = len(transactions)
		}
		batch := transactions[start:end]

		args := make([]any, 0, len(batch)*transactionColumns)
		for _, transaction := range batch {
			args = append(args,
				transaction.Hash,
				transaction.BlockHash,
				transaction.BlockNumber,
				transaction.Index,
				transaction.From,
				nullBytes(transaction.To),
				transaction.ReceiptFields,
				transaction.ObjectFields,
			)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (
				hash, block_hash, block_number, tx_index, from_address, to_address, receipt_fields, object_fields
			) VALUES `+valuesPlaceholders(len(batch), transactionColumns), args...)
		if err != nil {
			return wrapError(err, "error inserting %v transactions", len(batch))
		}
	}
	return nil
}

func GetTransactionReceipt(ctx context.Context, q sqlx.QueryerContext, hash []byte) (*dbtypes.TransactionReceipt, error) {
	receipt := &dbtypes.TransactionReceipt{}
	err := sqlx.GetContext(ctx, q, receipt, `
		SELECT block_hash, block_number, tx_index, hash, from_address, to_address, receipt_fields
		FROM transactions
		WHERE hash = $1`, hash)
	if err != nil {
		return nil, wrapError(err, "error selecting receipt of transaction 0x%x", hash)
	}
	return receipt, nil
}

func GetTransactionObject(ctx context.Context, q sqlx.QueryerContext, hash []byte) (*dbtypes.TransactionObject, error) {
	object := &dbtypes.TransactionObject{}
	err := sqlx.GetContext(ctx, q, object, `
		SELECT block_hash, block_number, tx_index, hash, from_address, to_address, object_fields
		FROM transactions
		WHERE hash = $1`, hash)
	if err != nil {
		return nil, wrapError(err, "error selecting transaction 0x%x", hash)
	}
	return object, nil
}

func GetTransactionReceiptsByBlockNumber(ctx context.Context, q sqlx.QueryerContext, blockNumber int64) ([]*dbtypes.TransactionReceipt, error) {
	receipts := []*dbtypes.TransactionReceipt{}
	err := sqlx.SelectContext(ctx, q, &receipts, `
		SELECT block_hash, block_number, tx_index, hash, from_address, to_address, receipt_fields
		FROM transactions
		WHERE block_number = $1
		ORDER BY tx_index ASC`, blockNumber)
	if err != nil {
		return nil, wrapError(err, "error selecting receipts of block %v", blockNumber)
	}
	return receipts, nil
}

func GetTransactionObjectsByBlockNumber(ctx context.Context, q sqlx.QueryerContext, blockNumber int64) ([]*dbtypes.TransactionObject, error) {
	objects := []*dbtypes.TransactionObject{}
	err := sqlx.SelectContext(ctx, q, &objects, `
		SELECT block_hash, block_number, tx_index, hash, from_address, to_address, object_fields
		FROM transactions
		WHERE block_number = $1
		ORDER BY tx_index ASC`, blockNumber)
	if err != nil {
		return nil, wrapError(err, "error selecting transactions of block %v", blockNumber)
	}
	return objects, nil
}

func ClearTransactionsAfter(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM transactions WHERE block_number > $1`, level)
}

func ClearTransactionsBefore(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM transactions WHERE block_number < $1`, level)
}

func CountTransactions(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	return selectCount(ctx, q, `SELECT COUNT(*) FROM transactions`)
}
