package db

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/evmstore/dbtypes"
)

func TestDelayedTransactions(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()

	runTx(t, database, func(tx *sqlx.Tx) error {
		for _, delayed := range []*dbtypes.DelayedTransaction{
			{InjectedBefore: 1, Hash: []byte("d1"), Payload: []byte("p1")},
			{InjectedBefore: 2, Hash: []byte("d2"), Payload: []byte("p2")},
			{InjectedBefore: 3, Hash: []byte("d3"), Payload: []byte("p3")},
		} {
			if err := InsertDelayedTransaction(ctx, tx, delayed); err != nil {
				return err
			}
		}
		return nil
	})

	payload, err := GetDelayedTransactionAtLevel(ctx, database.Reader(), 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("p2"), payload)

	payload, err = GetDelayedTransactionByHash(ctx, database.Reader(), []byte("d3"))
	require.NoError(t, err)
	assert.Equal(t, []byte("p3"), payload)

	_, err = GetDelayedTransactionByHash(ctx, database.Reader(), []byte("d"))
	assert.ErrorIs(t, err, ErrNotFound)

	var after, before int64
	runTx(t, database, func(tx *sqlx.Tx) error {
		var err error
		if after, err = ClearDelayedTransactionsAfter(ctx, tx, 2); err != nil {
			return err
		}
		before, err = ClearDelayedTransactionsBefore(ctx, tx, 2)
		return err
	})
	assert.Equal(t, int64(1), after)
	assert.Equal(t, int64(1), before)

	_, err = GetDelayedTransactionAtLevel(ctx, database.Reader(), 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIrminChunks(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()

	runTx(t, database, func(tx *sqlx.Tx) error {
		for level := int64(1); level <= 5; level++ {
			if err := InsertIrminChunk(ctx, tx, &dbtypes.IrminChunk{Level: level, Timestamp: level * 10}); err != nil {
				return err
			}
		}
		return nil
	})

	latest, err := GetLatestIrminChunk(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, &dbtypes.IrminChunk{Level: 5, Timestamp: 50}, latest)

	nth, err := GetNthIrminChunk(ctx, database.Reader(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), nth.Level)

	_, err = GetNthIrminChunk(ctx, database.Reader(), 5)
	assert.ErrorIs(t, err, ErrNotFound)

	var after, beforeIncluded, cleared int64
	runTx(t, database, func(tx *sqlx.Tx) error {
		var err error
		if after, err = ClearIrminChunksAfter(ctx, tx, 4); err != nil {
			return err
		}
		beforeIncluded, err = ClearIrminChunksBeforeIncluded(ctx, tx, 2)
		return err
	})
	assert.Equal(t, int64(1), after)
	assert.Equal(t, int64(2), beforeIncluded)

	runTx(t, database, func(tx *sqlx.Tx) error {
		var err error
		cleared, err = ClearIrminChunks(ctx, tx)
		return err
	})
	assert.Equal(t, int64(2), cleared)
}

func TestL1L2LevelRelationships(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()

	runTx(t, database, func(tx *sqlx.Tx) error {
		for _, relationship := range []*dbtypes.L1L2LevelRelationship{
			{LatestL2Level: 10, L1Level: 100},
			{LatestL2Level: 20, L1Level: 101},
			{LatestL2Level: 30, L1Level: 102},
		} {
			if err := InsertL1L2LevelRelationship(ctx, tx, relationship); err != nil {
				return err
			}
		}
		return nil
	})

	latest, err := GetLatestL1L2LevelRelationship(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, &dbtypes.L1L2LevelRelationship{LatestL2Level: 30, L1Level: 102}, latest)

	var after, before int64
	runTx(t, database, func(tx *sqlx.Tx) error {
		var err error
		if after, err = ClearL1L2LevelRelationshipsAfter(ctx, tx, 25); err != nil {
			return err
		}
		before, err = ClearL1L2LevelRelationshipsBefore(ctx, tx, 15)
		return err
	})
	assert.Equal(t, int64(1), after)
	assert.Equal(t, int64(1), before)

	latest, err = GetLatestL1L2LevelRelationship(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, int64(20), latest.LatestL2Level)
}

func TestL1L2FinalizedLevels(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()

	_, err := GetLastFinalizedL2Level(ctx, database.Reader())
	assert.ErrorIs(t, err, ErrNotFound)

	runTx(t, database, func(tx *sqlx.Tx) error {
		for _, finalized := range []*dbtypes.L1L2FinalizedLevel{
			{L1Level: 100, StartL2Level: 0, EndL2Level: 10},
			{L1Level: 101, StartL2Level: 10, EndL2Level: 20},
			{L1Level: 102, StartL2Level: 20, EndL2Level: 25},
			{L1Level: 102, StartL2Level: 20, EndL2Level: 30},
		} {
			if err := InsertOrReplaceL1L2FinalizedLevel(ctx, tx, finalized); err != nil {
				return err
			}
		}
		return nil
	})

	finalized, err := GetL1L2FinalizedLevel(ctx, database.Reader(), 102)
	require.NoError(t, err)
	assert.Equal(t, int64(30), finalized.EndL2Level)

	lastL2, err := GetLastFinalizedL2Level(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, int64(30), lastL2)

	last, err := GetLastL1L2FinalizedLevel(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, int64(102), last.L1Level)

	tests := []struct {
		l2Level int64
		l1Level int64
		found   bool
	}{
		{l2Level: 10, l1Level: 100, found: true},
		{l2Level: 11, l1Level: 101, found: true},
		{l2Level: 30, l1Level: 102, found: true},
		{l2Level: 0, found: false},
		{l2Level: 31, found: false},
	}
	for _, test := range tests {
		l1Level, err := FindFinalizingL1Level(ctx, database.Reader(), test.l2Level)
		if !test.found {
			assert.ErrorIs(t, err, ErrNotFound, "l2 level %v", test.l2Level)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, test.l1Level, l1Level, "l2 level %v", test.l2Level)
	}

	byL2, err := GetL1L2FinalizedLevelsByL2Range(ctx, database.Reader(), 10, 30)
	require.NoError(t, err)
	require.Len(t, byL2, 2)
	assert.Equal(t, int64(101), byL2[0].L1Level)

	byL1, err := GetL1L2FinalizedLevelsByL1Range(ctx, database.Reader(), 100, 101)
	require.NoError(t, err)
	assert.Len(t, byL1, 2)

	var after, before int64
	runTx(t, database, func(tx *sqlx.Tx) error {
		var err error
		if after, err = ClearL1L2FinalizedLevelsAfter(ctx, tx, 20); err != nil {
			return err
		}
		before, err = ClearL1L2FinalizedLevelsBefore(ctx, tx, 5)
		return err
	})
	assert.Equal(t, int64(1), after)
	assert.Equal(t, int64(1), before)
}

func TestMetadata(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()

	_, err := GetHistoryMode(ctx, database.Reader())
	assert.ErrorIs(t, err, ErrNotFound)

	runTx(t, database, func(tx *sqlx.Tx) error {
		if err := SetSmartRollupAddress(ctx, tx, "sr1address"); err != nil {
			return err
		}
		if err := SetHistoryMode(ctx, tx, "archive"); err != nil {
			return err
		}
		return SetHistoryMode(ctx, tx, "rolling:14")
	})

	address, err := GetSmartRollupAddress(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, "sr1address", address)

	mode, err := GetHistoryMode(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, "rolling:14", mode)
}

func TestBlockStorageMode(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()

	legacy, err := IsLegacyBlockStorage(ctx, database.Reader())
	require.NoError(t, err)
	assert.False(t, legacy)

	runTx(t, database, func(tx *sqlx.Tx) error {
		_, err := ForceLegacyBlockStorage(ctx, tx)
		return err
	})

	legacy, err = IsLegacyBlockStorage(ctx, database.Reader())
	require.NoError(t, err)
	assert.True(t, legacy)
}
