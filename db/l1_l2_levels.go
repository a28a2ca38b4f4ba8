package db

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/ethpandaops/evmstore/dbtypes"
)

func InsertL1L2LevelRelationship(ctx context.Context, tx *sqlx.Tx, relationship *dbtypes.L1L2LevelRelationship) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO l1_l2_levels_relationships (latest_l2_level, l1_level)
		VALUES ($1, $2)`,
		relationship.LatestL2Level, relationship.L1Level)
	return wrapError(err, "error inserting l1/l2 relationship %v", relationship.LatestL2Level)
}

func GetLatestL1L2LevelRelationship(ctx context.Context, q sqlx.QueryerContext) (*dbtypes.L1L2LevelRelationship, error) {
	relationship := &dbtypes.L1L2LevelRelationship{}
	err := sqlx.GetContext(ctx, q, relationship, `
		SELECT latest_l2_level, l1_level
		FROM l1_l2_levels_relationships
		ORDER BY latest_l2_level DESC
		LIMIT 1`)
	if err != nil {
		return nil, wrapError(err, "error selecting latest l1/l2 relationship")
	}
	return relationship, nil
}

func ClearL1L2LevelRelationshipsAfter(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM l1_l2_levels_relationships WHERE latest_l2_level > $1`, level)
}

func ClearL1L2LevelRelationshipsBefore(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM l1_l2_levels_relationships WHERE latest_l2_level < $1`, level)
}

func InsertOrReplaceL1L2FinalizedLevel(ctx context.Context, tx *sqlx.Tx, finalized *dbtypes.L1L2FinalizedLevel) error {
	_, err := tx.ExecContext(ctx, EngineQuery(tx, map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: `
			INSERT INTO l1_l2_finalized_levels (l1_level, start_l2_level, end_l2_level)
			VALUES ($1, $2, $3)
			ON CONFLICT (l1_level) DO UPDATE SET
				start_l2_level = excluded.start_l2_level,
				end_l2_level = excluded.end_l2_level`,
		dbtypes.DBEngineSqlite: `
			INSERT OR REPLACE INTO l1_l2_finalized_levels (l1_level, start_l2_level, end_l2_level)
			VALUES ($1, $2, $3)`,
	}), finalized.L1Level, finalized.StartL2Level, finalized.EndL2Level)
	return wrapError(err, "error upserting finalized l1 level %v", finalized.L1Level)
}

func GetL1L2FinalizedLevel(ctx context.Context, q sqlx.QueryerContext, l1Level int64) (*dbtypes.L1L2FinalizedLevel, error) {
	finalized := &dbtypes.L1L2FinalizedLevel{}
	err := sqlx.GetContext(ctx, q, finalized, `
		SELECT l1_level, start_l2_level, end_l2_level
		FROM l1_l2_finalized_levels
		WHERE l1_level = $1`, l1Level)
	if err != nil {
		return nil, wrapError(err, "error selecting finalized l1 level %v", l1Level)
	}
	return finalized, nil
}

// GetLastFinalizedL2Level returns ErrNotFound when no finalized level is stored.
func GetLastFinalizedL2Level(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	var level *int64
	err := sqlx.GetContext(ctx, q, &level, `SELECT MAX(end_l2_level) FROM l1_l2_finalized_levels`)
	if err != nil {
		return 0, wrapError(err, "error selecting last finalized l2 level")
	}
	if level == nil {
		return 0, wrapError(sql.ErrNoRows, "error selecting last finalized l2 level")
	}
	return *level, nil
}

func GetLastL1L2FinalizedLevel(ctx context.Context, q sqlx.QueryerContext) (*dbtypes.L1L2FinalizedLevel, error) {
	finalized := &dbtypes.L1L2FinalizedLevel{}
	err := sqlx.GetContext(ctx, q, finalized, `
		SELECT l1_level, start_l2_level, end_l2_level
		FROM l1_l2_finalized_levels
		ORDER BY l1_level DESC
		LIMIT 1`)
	if err != nil {
		return nil, wrapError(err, "error selecting last finalized l1 level")
	}
	return finalized, nil
}

// FindFinalizingL1Level returns the l1 level whose finalized range (start, end] holds l2Level.
func FindFinalizingL1Level(ctx context.Context, q sqlx.QueryerContext, l2Level int64) (int64, error) {
	var l1Level int64
	err := sqlx.GetContext(ctx, q, &l1Level, `
		SELECT l1_level
		FROM l1_l2_finalized_levels
		WHERE start_l2_level < $1 AND end_l2_level >= $1
		ORDER BY l1_level DESC
		LIMIT 1`, l2Level)
	if err != nil {
		return 0, wrapError(err, "error selecting l1 level finalizing %v", l2Level)
	}
	return l1Level, nil
}

func GetL1L2FinalizedLevelsByL2Range(ctx context.Context, q sqlx.QueryerContext, startL2 int64, endL2 int64) ([]*dbtypes.L1L2FinalizedLevel, error) {
	levels := []*dbtypes.L1L2FinalizedLevel{}
	err := sqlx.SelectContext(ctx, q, &levels, `
		SELECT l1_level, start_l2_level, end_l2_level
		FROM l1_l2_finalized_levels
		WHERE start_l2_level >= $1 AND end_l2_level <= $2
		ORDER BY l1_level ASC`, startL2, endL2)
	if err != nil {
		return nil, wrapError(err, "error selecting finalized levels for l2 %v-%v", startL2, endL2)
	}
	return levels, nil
}

func GetL1L2FinalizedLevelsByL1Range(ctx context.Context, q sqlx.QueryerContext, startL1 int64, endL1 int64) ([]*dbtypes.L1L2FinalizedLevel, error) {
	levels := []*dbtypes.L1L2FinalizedLevel{}
	err := sqlx.SelectContext(ctx, q, &levels, `
		SELECT l1_level, start_l2_level, end_l2_level
		FROM l1_l2_finalized_levels
		WHERE l1_level >= $1 AND l1_level <= $2
		ORDER BY l1_level ASC`, startL1, endL1)
	if err != nil {
		return nil, wrapError(err, "error selecting finalized levels for l1 %v-%v", startL1, endL1)
	}
	return levels, nil
}

func ClearL1L2FinalizedLevelsAfter(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM l1_l2_finalized_levels WHERE end_l2_level > $1`, level)
}

func ClearL1L2FinalizedLevelsBefore(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM l1_l2_finalized_levels WHERE start_l2_level < $1`, level)
}
