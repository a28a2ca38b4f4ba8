package main

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/evmstore/db"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the store state",
	Long:  "Print row counts, level bounds, metadata and schema version of the configured store",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// optionalLevel turns a NotFound lookup on an empty table into a nil field.
func optionalLevel(level int64, err error) (any, error) {
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return level, nil
}

func optionalString(value string, err error) (any, error) {
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, database, err := openStore(cmd, false)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	reader := database.Reader()

	fields := logrus.Fields{}
	steps := []struct {
		name  string
		value func(q sqlx.QueryerContext) (any, error)
	}{
		{"blueprints", func(q sqlx.QueryerContext) (any, error) { return db.CountBlueprints(ctx, q) }},
		{"blocks", func(q sqlx.QueryerContext) (any, error) { return db.CountBlocks(ctx, q) }},
		{"transactions", func(q sqlx.QueryerContext) (any, error) { return db.CountTransactions(ctx, q) }},
		{"pending_confirmations", func(q sqlx.QueryerContext) (any, error) { return db.CountPendingConfirmations(ctx, q) }},
		{"base_level", func(q sqlx.QueryerContext) (any, error) { return optionalLevel(db.GetBlueprintBaseLevel(ctx, q)) }},
		{"top_level", func(q sqlx.QueryerContext) (any, error) { return optionalLevel(db.GetBlueprintTopLevel(ctx, q)) }},
		{"finalized_l2_level", func(q sqlx.QueryerContext) (any, error) { return optionalLevel(db.GetLastFinalizedL2Level(ctx, q)) }},
		{"history_mode", func(q sqlx.QueryerContext) (any, error) { return optionalString(db.GetHistoryMode(ctx, q)) }},
		{"smart_rollup_address", func(q sqlx.QueryerContext) (any, error) { return optionalString(db.GetSmartRollupAddress(ctx, q)) }},
		{"legacy_block_storage", func(q sqlx.QueryerContext) (any, error) { return db.IsLegacyBlockStorage(ctx, q) }},
	}
	for _, step := range steps {
		value, err := step.value(reader)
		if err != nil {
			return err
		}
		fields[step.name] = value
	}

	version, err := database.GetCurrentMigration()
	if err != nil {
		return err
	}
	fields["schema_version"] = version

	logResult(fields, "store status")
	return nil
}
