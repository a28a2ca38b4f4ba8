package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ethpandaops/evmstore/dbtypes"
)

const kernelUpgradeColumns = `injected_before, root_hash, activation_timestamp, applied_before`

// InsertKernelUpgrade replaces any upgrade injected at the same level. The
// stored upgrade is always unapplied.
func InsertKernelUpgrade(ctx context.Context, tx *sqlx.Tx, upgrade *dbtypes.KernelUpgrade) error {
	_, err := tx.ExecContext(ctx, EngineQuery(tx, map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: `
			INSERT INTO kernel_upgrades (injected_before, root_hash, activation_timestamp, applied_before)
			VALUES ($1, $2, $3, NULL)
			ON CONFLICT (injected_before) DO UPDATE SET
				root_hash = excluded.root_hash,
				activation_timestamp = excluded.activation_timestamp,
				applied_before = NULL`,
		dbtypes.DBEngineSqlite: `
			INSERT OR REPLACE INTO kernel_upgrades (injected_before, root_hash, activation_timestamp, applied_before)
			VALUES ($1, $2, $3, NULL)`,
	}), upgrade.InjectedBefore, upgrade.RootHash, upgrade.ActivationTimestamp)
	return wrapError(err, "error inserting kernel upgrade %v", upgrade.InjectedBefore)
}

func GetKernelActivationLevels(ctx context.Context, q sqlx.QueryerContext) ([]int64, error) {
	return upgradeActivationLevels(ctx, q, kernelUpgradesTable)
}

// GetLatestUnappliedKernelUpgrade returns the most recently injected upgrade that is not applied yet.
func GetLatestUnappliedKernelUpgrade(ctx context.Context, q sqlx.QueryerContext) (*dbtypes.KernelUpgrade, error) {
	upgrade := &dbtypes.KernelUpgrade{}
	err := sqlx.GetContext(ctx, q, upgrade, `
		SELECT `+kernelUpgradeColumns+`
		FROM kernel_upgrades
		WHERE applied_before IS NULL
		ORDER BY injected_before DESC
		LIMIT 1`)
	if err != nil {
		return nil, wrapError(err, "error selecting latest unapplied kernel upgrade")
	}
	return upgrade, nil
}

func FindKernelUpgradeInjectedBefore(ctx context.Context, q sqlx.QueryerContext, level int64) (*dbtypes.KernelUpgrade, error) {
	upgrade := &dbtypes.KernelUpgrade{}
	err := sqlx.GetContext(ctx, q, upgrade, `
		SELECT `+kernelUpgradeColumns+`
		FROM kernel_upgrades
		WHERE injected_before = $1`, level)
	if err != nil {
		return nil, wrapError(err, "error selecting kernel upgrade injected before %v", level)
	}
	return upgrade, nil
}

func FindLatestKernelUpgradeInjectedAfter(ctx context.Context, q sqlx.QueryerContext, level int64) (*dbtypes.KernelUpgrade, error) {
	upgrade := &dbtypes.KernelUpgrade{}
	err := sqlx.GetContext(ctx, q, upgrade, `
		SELECT `+kernelUpgradeColumns+`
		FROM kernel_upgrades
		WHERE injected_before > $1
		ORDER BY injected_before DESC
		LIMIT 1`, level)
	if err != nil {
		return nil, wrapError(err, "error selecting kernel upgrade injected after %v", level)
	}
	return upgrade, nil
}

func RecordKernelUpgradeApply(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return upgradeRecordApply(ctx, tx, kernelUpgradesTable, level)
}

func NullifyKernelUpgradesAfter(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return upgradeNullifyAfter(ctx, tx, kernelUpgradesTable, level)
}

func ClearKernelUpgradesAfter(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return upgradeClearAfter(ctx, tx, kernelUpgradesTable, level)
}

func ClearKernelUpgradesBefore(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return upgradeClearBefore(ctx, tx, kernelUpgradesTable, level)
}
