package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/evmstore/dbtypes"
)

var clearAfterCmd = &cobra.Command{
	Use:   "clear-after <level>",
	Short: "Remove all level data above a level",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRollback(cmd, args[0], true)
	},
}

var clearBeforeCmd = &cobra.Command{
	Use:   "clear-before <level>",
	Short: "Remove all level data below a level",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRollback(cmd, args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(clearAfterCmd)
	rootCmd.AddCommand(clearBeforeCmd)
}

func runRollback(cmd *cobra.Command, levelArg string, after bool) error {
	level, err := parseLevel(levelArg)
	if err != nil {
		return err
	}

	ledger, database, err := openStore(cmd, true)
	if err != nil {
		return err
	}
	defer database.Close()

	var result *dbtypes.RollbackResult
	if after {
		result, err = ledger.ClearAfter(context.Background(), level)
	} else {
		result, err = ledger.ClearBefore(context.Background(), level)
	}
	if err != nil {
		return err
	}

	logResult(logrus.Fields{
		"level":              level,
		"blueprints":         result.Blueprints,
		"blocks":             result.Blocks,
		"transactions":       result.Transactions,
		"context_hashes":     result.ContextHashes,
		"kernel_upgrades":    result.KernelUpgrades,
		"sequencer_upgrades": result.SequencerUpgrades,
		"total":              result.Total(),
	}, "rollback completed")
	return nil
}

func parseLevel(arg string) (int64, error) {
	level, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid level %q: %w", arg, err)
	}
	return level, nil
}
