package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Kernel and sequencer upgrades share one lifecycle keyed by injected_before:
// inserted unapplied, stamped with the level they were applied before, and
// reset to unapplied when the chain rewinds past that level.

const (
	kernelUpgradesTable    = "kernel_upgrades"
	sequencerUpgradesTable = "sequencer_upgrades"
)

func upgradeActivationLevels(ctx context.Context, q sqlx.QueryerContext, table string) ([]int64, error) {
	levels := []int64{}
	err := sqlx.SelectContext(ctx, q, &levels, fmt.Sprintf(`
		SELECT applied_before
		FROM %s
		WHERE applied_before IS NOT NULL
		ORDER BY applied_before DESC`, table))
	if err != nil {
		return nil, wrapError(err, "error selecting %s activation levels", table)
	}
	return levels, nil
}

func upgradeRecordApply(ctx context.Context, tx *sqlx.Tx, table string, level int64) (int64, error) {
	return execCount(ctx, tx, fmt.Sprintf(`UPDATE %s SET applied_before = $1 WHERE applied_before IS NULL`, table), level)
}

func upgradeNullifyAfter(ctx context.Context, tx *sqlx.Tx, table string, level int64) (int64, error) {
	return execCount(ctx, tx, fmt.Sprintf(`UPDATE %s SET applied_before = NULL WHERE applied_before > $1`, table), level)
}

func upgradeClearAfter(ctx context.Context, tx *sqlx.Tx, table string, level int64) (int64, error) {
	return execCount(ctx, tx, fmt.Sprintf(`DELETE FROM %s WHERE injected_before > $1`, table), level)
}

func upgradeClearBefore(ctx context.Context, tx *sqlx.Tx, table string, level int64) (int64, error) {
	return execCount(ctx, tx, fmt.Sprintf(`DELETE FROM %s WHERE injected_before < $1`, table), level)
}
