package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Apply the embedded database schema",
	Long:  "Apply the embedded schema migrations to the configured database. -2 applies all, -1 one step, any other value migrates up to that version.",
	RunE:  runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().Int64("version", -2, "Target schema version")
}

func runSchema(cmd *cobra.Command, args []string) error {
	version, _ := cmd.Flags().GetInt64("version")

	_, database, err := openStore(cmd, false)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.ApplyEmbeddedDbSchema(version); err != nil {
		return fmt.Errorf("failed applying schema: %w", err)
	}

	current, err := database.GetCurrentMigration()
	if err != nil {
		return err
	}

	logResult(logrus.Fields{"version": current}, "schema applied")
	return nil
}
