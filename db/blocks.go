package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ethpandaops/evmstore/dbtypes"
)

// InsertBlock fails with ErrConstraintViolation if either the level or the hash is already stored.
func InsertBlock(ctx context.Context, tx *sqlx.Tx, block *dbtypes.Block) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO blocks (level, hash, block)
		VALUES ($1, $2, $3)`,
		block.Level, block.Hash, block.Block)
	return wrapError(err, "error inserting block %v", block.Level)
}

func GetBlockByLevel(ctx context.Context, q sqlx.QueryerContext, level int64) (*dbtypes.Block, error) {
	block := &dbtypes.Block{}
	err := sqlx.GetContext(ctx, q, block, `
		SELECT level, hash, block
		FROM blocks
		WHERE level = $1`, level)
	if err != nil {
		return nil, wrapError(err, "error selecting block %v", level)
	}
	return block, nil
}

func GetBlockByHash(ctx context.Context, q sqlx.QueryerContext, hash []byte) (*dbtypes.Block, error) {
	block := &dbtypes.Block{}
	err := sqlx.GetContext(ctx, q, block, `
		SELECT level, hash, block
		FROM blocks
		WHERE hash = $1`, hash)
	if err != nil {
		return nil, wrapError(err, "error selecting block 0x%x", hash)
	}
	return block, nil
}

func GetBlockHashByLevel(ctx context.Context, q sqlx.QueryerContext, level int64) ([]byte, error) {
	var hash []byte
	err := sqlx.GetContext(ctx, q, &hash, `SELECT hash FROM blocks WHERE level = $1`, level)
	if err != nil {
		return nil, wrapError(err, "error selecting hash of block %v", level)
	}
	return hash, nil
}

func GetBlockLevelByHash(ctx context.Context, q sqlx.QueryerContext, hash []byte) (int64, error) {
	var level int64
	err := sqlx.GetContext(ctx, q, &level, `SELECT level FROM blocks WHERE hash = $1`, hash)
	if err != nil {
		return 0, wrapError(err, "error selecting level of block 0x%x", hash)
	}
	return level, nil
}

// GetContextHashByBlockHash returns the context hash stored at the level of the given block.
func GetContextHashByBlockHash(ctx context.Context, q sqlx.QueryerContext, hash []byte) ([]byte, error) {
	var contextHash []byte
	err := sqlx.GetContext(ctx, q, &contextHash, `
		SELECT context_hashes.context_hash
		FROM context_hashes
		INNER JOIN blocks ON blocks.level = context_hashes.level
		WHERE blocks.hash = $1`, hash)
	if err != nil {
		return nil, wrapError(err, "error selecting context hash of block 0x%x", hash)
	}
	return contextHash, nil
}

func ClearBlocksAfter(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM blocks WHERE level > $1`, level)
}

func ClearBlocksBefore(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM blocks WHERE level < $1`, level)
}

func GetBlockTopLevel(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	return selectLevel(ctx, q, `SELECT level FROM blocks ORDER BY level DESC LIMIT 1`)
}

func GetBlockBaseLevel(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	return selectLevel(ctx, q, `SELECT level FROM blocks ORDER BY level ASC LIMIT 1`)
}

func CountBlocks(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	return selectCount(ctx, q, `SELECT COUNT(*) FROM blocks`)
}
