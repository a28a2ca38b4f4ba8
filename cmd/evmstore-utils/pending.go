package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/evmstore/db"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Inspect or drop pending confirmations",
	Long:  "Print the number of pending confirmations, optionally deleting one level or all of them",
	RunE:  runPending,
}

func init() {
	rootCmd.AddCommand(pendingCmd)

	pendingCmd.Flags().Int64("delete", -1, "Delete the pending confirmation of this level")
	pendingCmd.Flags().Bool("clear", false, "Delete all pending confirmations")
}

func runPending(cmd *cobra.Command, args []string) error {
	deleteLevel, _ := cmd.Flags().GetInt64("delete")
	clearAll, _ := cmd.Flags().GetBool("clear")

	ledger, database, err := openStore(cmd, true)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	var deleted int64
	if clearAll || deleteLevel >= 0 {
		err = ledger.Database().RunDBTransaction(ctx, func(tx *sqlx.Tx) error {
			var err error
			if clearAll {
				deleted, err = db.ClearPendingConfirmations(ctx, tx)
			} else {
				deleted, err = db.DeletePendingConfirmation(ctx, tx, deleteLevel)
			}
			return err
		})
		if err != nil {
			return err
		}
	}

	count, err := db.CountPendingConfirmations(ctx, database.Reader())
	if err != nil {
		return err
	}

	logResult(logrus.Fields{
		"deleted": deleted,
		"pending": count,
	}, "pending confirmations")
	return nil
}
