package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/evmstore/dbtypes"
)

func insertBlueprints(t *testing.T, database *Database, levels ...int64) {
	t.Helper()
	ctx := context.Background()
	runTx(t, database, func(tx *sqlx.Tx) error {
		for _, level := range levels {
			err := InsertBlueprint(ctx, tx, &dbtypes.Blueprint{
				Level:     level,
				Payload:   []byte{byte(level)},
				Timestamp: level * 10,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func TestBlueprintLookup(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()
	insertBlueprints(t, database, 100)

	blueprint, err := GetBlueprint(ctx, database.Reader(), 100)
	require.NoError(t, err)
	assert.Equal(t, &dbtypes.Blueprint{Level: 100, Payload: []byte{100}, Timestamp: 1000}, blueprint)

	_, err = GetBlueprint(ctx, database.Reader(), 101)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestBlueprintDuplicateLevel(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()
	insertBlueprints(t, database, 5)

	err := database.RunDBTransaction(ctx, func(tx *sqlx.Tx) error {
		return InsertBlueprint(ctx, tx, &dbtypes.Blueprint{Level: 5, Payload: []byte("other"), Timestamp: 1})
	})
	assert.ErrorIs(t, err, ErrConstraintViolation)

	blueprint, err := GetBlueprint(ctx, database.Reader(), 5)
	require.NoError(t, err)
	assert.Equal(t, []byte{5}, blueprint.Payload)
}

func TestBlueprintRange(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()
	insertBlueprints(t, database, 4, 1, 3, 2, 6)

	tests := []struct {
		name   string
		low    int64
		high   int64
		levels []int64
	}{
		{name: "inclusive bounds", low: 2, high: 4, levels: []int64{2, 3, 4}},
		{name: "gap in range", low: 4, high: 10, levels: []int64{4, 6}},
		{name: "single level", low: 1, high: 1, levels: []int64{1}},
		{name: "empty range", low: 7, high: 9, levels: []int64{}},
		{name: "inverted range", low: 4, high: 2, levels: []int64{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			payloads, err := GetBlueprintRange(ctx, database.Reader(), test.low, test.high)
			require.NoError(t, err)

			levels := []int64{}
			for _, payload := range payloads {
				levels = append(levels, payload.Level)
				assert.Equal(t, []byte{byte(payload.Level)}, payload.Payload)
			}
			assert.Equal(t, test.levels, levels)
		})
	}
}

func TestBlueprintTopAndBaseLevel(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()

	_, err := GetBlueprintTopLevel(ctx, database.Reader())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = GetBlueprintBaseLevel(ctx, database.Reader())
	assert.ErrorIs(t, err, ErrNotFound)

	insertBlueprints(t, database, 7, 3, 9)

	top, err := GetBlueprintTopLevel(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, int64(9), top)

	base, err := GetBlueprintBaseLevel(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, int64(3), base)
}

func TestBlueprintClear(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()
	insertBlueprints(t, database, 1, 2, 3, 4, 5)

	var removed int64
	runTx(t, database, func(tx *sqlx.Tx) error {
		var err error
		removed, err = ClearBlueprintsAfter(ctx, tx, 3)
		return err
	})
	assert.Equal(t, int64(2), removed)

	runTx(t, database, func(tx *sqlx.Tx) error {
		var err error
		removed, err = ClearBlueprintsBefore(ctx, tx, 2)
		return err
	})
	assert.Equal(t, int64(1), removed)

	count, err := CountBlueprints(ctx, database.Reader())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// nothing left above the top level
	runTx(t, database, func(tx *sqlx.Tx) error {
		var err error
		removed, err = ClearBlueprintsAfter(ctx, tx, 3)
		return err
	})
	assert.Equal(t, int64(0), removed)
}
