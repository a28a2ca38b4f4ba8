package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ethpandaops/evmstore/dbtypes"
)

func InsertBlueprint(ctx context.Context, tx *sqlx.Tx, blueprint *dbtypes.Blueprint) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO blueprints (level, payload, timestamp)
		VALUES ($1, $2, $3)`,
		blueprint.Level, blueprint.Payload, blueprint.Timestamp)
	return wrapError(err, "error inserting blueprint %v", blueprint.Level)
}

func GetBlueprint(ctx context.Context, q sqlx.QueryerContext, level int64) (*dbtypes.Blueprint, error) {
	blueprint := &dbtypes.Blueprint{}
	err := sqlx.GetContext(ctx, q, blueprint, `
		SELECT level, payload, timestamp
		FROM blueprints
		WHERE level = $1`, level)
	if err != nil {
		return nil, wrapError(err, "error selecting blueprint %v", level)
	}
	return blueprint, nil
}

// GetBlueprintRange returns the payloads of levels low..high (both included) in ascending order.
func GetBlueprintRange(ctx context.Context, q sqlx.QueryerContext, low int64, high int64) ([]*dbtypes.BlueprintPayload, error) {
	payloads := []*dbtypes.BlueprintPayload{}
	err := sqlx.SelectContext(ctx, q, &payloads, `
		SELECT level, payload
		FROM blueprints
		WHERE level >= $1 AND level <= $2
		ORDER BY level ASC`, low, high)
	if err != nil {
		return nil, wrapError(err, "error selecting blueprints from level %v to %v", low, high)
	}
	return payloads, nil
}

func ClearBlueprintsAfter(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM blueprints WHERE level > $1`, level)
}

func ClearBlueprintsBefore(ctx context.Context, tx *sqlx.Tx, level int64) (int64, error) {
	return execCount(ctx, tx, `DELETE FROM blueprints WHERE level < $1`, level)
}

func GetBlueprintTopLevel(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	return selectLevel(ctx, q, `SELECT level FROM blueprints ORDER BY level DESC LIMIT 1`)
}

func GetBlueprintBaseLevel(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	return selectLevel(ctx, q, `SELECT level FROM blueprints ORDER BY level ASC LIMIT 1`)
}

func CountBlueprints(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	return selectCount(ctx, q, `SELECT COUNT(*) FROM blueprints`)
}
