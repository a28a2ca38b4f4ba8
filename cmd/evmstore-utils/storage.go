package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/evmstore/db"
)

var upgradesCmd = &cobra.Command{
	Use:   "record-upgrades <level>",
	Short: "Mark all unapplied kernel and sequencer upgrades as applied before a level",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordUpgrades,
}

var legacyStorageCmd = &cobra.Command{
	Use:   "force-legacy-storage",
	Short: "Switch the block storage mode to the legacy layout",
	RunE:  runForceLegacyStorage,
}

func init() {
	rootCmd.AddCommand(upgradesCmd)
	rootCmd.AddCommand(legacyStorageCmd)
}

func runRecordUpgrades(cmd *cobra.Command, args []string) error {
	level, err := parseLevel(args[0])
	if err != nil {
		return err
	}

	ledger, database, err := openStore(cmd, true)
	if err != nil {
		return err
	}
	defer database.Close()

	kernel, sequencer, err := ledger.RecordUpgradesApplied(context.Background(), level)
	if err != nil {
		return err
	}

	logResult(logrus.Fields{
		"level":     level,
		"kernel":    kernel,
		"sequencer": sequencer,
	}, "upgrades recorded")
	return nil
}

func runForceLegacyStorage(cmd *cobra.Command, args []string) error {
	_, database, err := openStore(cmd, true)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	var updated int64
	err = database.RunDBTransaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		updated, err = db.ForceLegacyBlockStorage(ctx, tx)
		return err
	})
	if err != nil {
		return err
	}

	logResult(logrus.Fields{"updated": updated}, "block storage mode set to legacy")
	return nil
}
