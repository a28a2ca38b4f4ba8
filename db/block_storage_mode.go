package db

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// IsLegacyBlockStorage reports whether blocks are kept in the legacy storage layout.
func IsLegacyBlockStorage(ctx context.Context, q sqlx.QueryerContext) (bool, error) {
	var legacy int64
	err := sqlx.GetContext(ctx, q, &legacy, `SELECT legacy FROM block_storage_mode LIMIT 1`)
	if err != nil {
		return false, wrapError(err, "error selecting block storage mode")
	}
	return legacy != 0, nil
}

func ForceLegacyBlockStorage(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	return execCount(ctx, tx, `UPDATE block_storage_mode SET legacy = 1`)
}
