package db

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/evmstore/dbtypes"
)

func TestKernelUpgradeLifecycle(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()

	_, err := GetLatestUnappliedKernelUpgrade(ctx, database.Reader())
	assert.ErrorIs(t, err, ErrNotFound)

	runTx(t, database, func(tx *sqlx.Tx) error {
		return InsertKernelUpgrade(ctx, tx, &dbtypes.KernelUpgrade{InjectedBefore: 10, RootHash: []byte("root-a"), ActivationTimestamp: 1000})
	})

	upgrade, err := GetLatestUnappliedKernelUpgrade(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, int64(10), upgrade.InjectedBefore)
	assert.False(t, upgrade.IsApplied())

	var stamped int64
	runTx(t, database, func(tx *sqlx.Tx) error {
		var err error
		stamped, err = RecordKernelUpgradeApply(ctx, tx, 15)
		return err
	})
	assert.Equal(t, int64(1), stamped)

	_, err = GetLatestUnappliedKernelUpgrade(ctx, database.Reader())
	assert.ErrorIs(t, err, ErrNotFound)

	upgrade, err = FindKernelUpgradeInjectedBefore(ctx, database.Reader(), 10)
	require.NoError(t, err)
	require.True(t, upgrade.IsApplied())
	assert.Equal(t, int64(15), *upgrade.AppliedBefore)

	levels, err := GetKernelActivationLevels(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, []int64{15}, levels)

	// rewinding to a level before the application makes the upgrade pending again
	var reset int64
	runTx(t, database, func(tx *sqlx.Tx) error {
		var err error
		reset, err = NullifyKernelUpgradesAfter(ctx, tx, 12)
		return err
	})
	assert.Equal(t, int64(1), reset)

	upgrade, err = GetLatestUnappliedKernelUpgrade(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, int64(10), upgrade.InjectedBefore)
	assert.Nil(t, upgrade.AppliedBefore)
}

func TestKernelUpgradeReplace(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()

	runTx(t, database, func(tx *sqlx.Tx) error {
		if err := InsertKernelUpgrade(ctx, tx, &dbtypes.KernelUpgrade{InjectedBefore: 10, RootHash: []byte("a"), ActivationTimestamp: 1}); err != nil {
			return err
		}
		if _, err := RecordKernelUpgradeApply(ctx, tx, 11); err != nil {
			return err
		}
		return InsertKernelUpgrade(ctx, tx, &dbtypes.KernelUpgrade{InjectedBefore: 10, RootHash: []byte("b"), ActivationTimestamp: 2})
	})

	upgrade, err := FindKernelUpgradeInjectedBefore(ctx, database.Reader(), 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), upgrade.RootHash)
	assert.Equal(t, int64(2), upgrade.ActivationTimestamp)
	assert.Nil(t, upgrade.AppliedBefore)
}

func TestKernelUpgradeInjectionQueries(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()

	runTx(t, database, func(tx *sqlx.Tx) error {
		for _, level := range []int64{5, 10, 20} {
			if err := InsertKernelUpgrade(ctx, tx, &dbtypes.KernelUpgrade{InjectedBefore: level, RootHash: []byte{byte(level)}}); err != nil {
				return err
			}
		}
		return nil
	})

	upgrade, err := FindLatestKernelUpgradeInjectedAfter(ctx, database.Reader(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(20), upgrade.InjectedBefore)

	_, err = FindLatestKernelUpgradeInjectedAfter(ctx, database.Reader(), 20)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = FindKernelUpgradeInjectedBefore(ctx, database.Reader(), 7)
	assert.ErrorIs(t, err, ErrNotFound)

	var after, before int64
	runTx(t, database, func(tx *sqlx.Tx) error {
		var err error
		if after, err = ClearKernelUpgradesAfter(ctx, tx, 10); err != nil {
			return err
		}
		before, err = ClearKernelUpgradesBefore(ctx, tx, 10)
		return err
	})
	assert.Equal(t, int64(1), after)
	assert.Equal(t, int64(1), before)

	upgrade, err = GetLatestUnappliedKernelUpgrade(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, int64(10), upgrade.InjectedBefore)
}

func TestSequencerUpgradeLifecycle(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()

	runTx(t, database, func(tx *sqlx.Tx) error {
		for _, level := range []int64{3, 8} {
			err := InsertSequencerUpgrade(ctx, tx, &dbtypes.SequencerUpgrade{
				InjectedBefore:      level,
				Sequencer:           []byte("seq"),
				PoolAddress:         []byte("pool"),
				ActivationTimestamp: level * 100,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	upgrade, err := GetLatestUnappliedSequencerUpgrade(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, int64(8), upgrade.InjectedBefore)
	assert.Equal(t, []byte("pool"), upgrade.PoolAddress)

	runTx(t, database, func(tx *sqlx.Tx) error {
		_, err := RecordSequencerUpgradeApply(ctx, tx, 9)
		return err
	})

	levels, err := GetSequencerActivationLevels(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 9}, levels)

	upgrade, err = FindLatestSequencerUpgradeInjectedAfter(ctx, database.Reader(), 1)
	require.NoError(t, err)
	assert.True(t, upgrade.IsApplied())

	var reset, removed int64
	runTx(t, database, func(tx *sqlx.Tx) error {
		var err error
		if reset, err = NullifySequencerUpgradesAfter(ctx, tx, 9); err != nil {
			return err
		}
		if removed, err = ClearSequencerUpgradesAfter(ctx, tx, 5); err != nil {
			return err
		}
		_, err = ClearSequencerUpgradesBefore(ctx, tx, 0)
		return err
	})
	assert.Equal(t, int64(0), reset, "applied before 9 is not after 9")
	assert.Equal(t, int64(1), removed)

	upgrade, err = FindSequencerUpgradeInjectedBefore(ctx, database.Reader(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(9), *upgrade.AppliedBefore)
}
