package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ethpandaops/evmstore/dbtypes"
)

const sequencerUpgradeColumns = `injected_before, sequencer, pool_address, activation_timestamp, applied_before`

func InsertSequencerUpgrade(ctx context.Context, tx *sqlx.Tx, upgrade *dbtypes.SequencerUpgrade) error {
	_, err := tx.ExecContext(ctx, EngineQuery(tx, map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: `
			INSERT INTO sequencer_upgrades (injected_before, sequencer, pool_address, activation_timestamp, applied_before)
			VALUES ($1, $2, $3, $4, NULL)
			ON CONFLICT (injected_before) DO UPDATE SET
				sequencer = excluded.sequencer,
				pool_address = excluded.pool_address,
				activation_timestamp = excluded.activation_timestamp,
				applied_before = NULL`,
		dbtypes.DBEngineSqlite: `
			INSERT OR REPLACE INTO sequencer_upgrades (injected_before, sequencer, pool_address, activation_timestamp, applied_before)
			VALUES ($1, $2, $3, $4, NULL)`,
	}), upgrade.InjectedBefore, upgrade.Sequencer, upgrade.PoolAddress, upgrade.ActivationTimestamp)
	return wrapError(err, "error inserting sequencer upgrade %v", upgrade.InjectedBefore)
}

func GetSequencerActivationLevels(ctx context.Context, q sqlx.QueryerContext) ([]int64, error) {
	return upgradeActivationLevels(ctx, q, sequencerUpgradesTable)
}

func GetLatestUnappliedSequencerUpgrade(ctx context.Context, q sqlx.QueryerContext) (*dbtypes.SequencerUpgrade, error) {
	upgrade := &dbtypes.SequencerUpgrade{}
	err := sqlx.GetContext(ctx, q, upgrade, `
		SELECT `+sequencerUpgradeColumns+`
		FROM sequencer_upgrades
		WHERE applied_before IS NULL
		ORDER BY injected_before DESC
		LIMIT 1`)
	if err != nil {
		return nil, wrapError(err, "error selecting latest unapplied sequencer upgrade")
	}
	return upgrade, nil
}

func FindSequencerUpgradeInjectedBefore(ctx context.Context, q sqlx.QueryerContext, level int64) (*dbtypes.SequencerUpgrade, error) {
	upgrade := &dbtypes.SequencerUpgrade{}
	err := sqlx.GetContext(ctx, q, upgrade, `
		SELECT `+sequencerUpgradeColumns+`
		FROM sequencer_upgrades
		WHERE injected_before = $1`, level)
	if err != nil {
		return nil, wrapError(err, "error selecting sequencer upgrade injected before %v", level)
	}
	return upgrade, nil
}

func FindLatestSequencerUpgradeInjectedAfter(ctx context.Context, q sqlx.QueryerContext, level int64) (*dbtypes.SequencerUpgrade, error) {
	upgrade := &dbtypes.SequencerUpgrade{}
	err := sqlx.GetContext(ctx, q, upgrade, `
		SELECT `+sequencerUpgradeColumns+`
		FROM sequencer_upgrades
		WHERE injected_before > $1
		ORDER BY injected_before DESC
		LIMIT 1`, level)
	if err != nil {
		return nil, wrapError(err, "error selecting sequencer upgrade injected after %v", level)
	}
	return upgrade, nil
}

func RecordSequencerUpgradeApply(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return upgradeRecordApply(ctx, tx, sequencerUpgradesTable, level)
}

func NullifySequencerUpgradesAfter(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return upgradeNullifyAfter(ctx, tx, sequencerUpgradesTable, level)
}

func ClearSequencerUpgradesAfter(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return upgradeClearAfter(ctx, tx, sequencerUpgradesTable, level)
}

func ClearSequencerUpgradesBefore(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return upgradeClearBefore(ctx, tx, sequencerUpgradesTable, level)
}
