package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/evmstore/db"
	"github.com/ethpandaops/evmstore/services"
	"github.com/ethpandaops/evmstore/types"
	"github.com/ethpandaops/evmstore/utils"
)

var rootCmd = &cobra.Command{
	Use:   "evmstore-utils",
	Short: "EVM node store utilities",
	Long:  "Maintenance utilities for the EVM node store including schema migration, status inspection and level rollbacks",
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the config file, if empty string defaults will be used")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore loads the config, opens the configured database and wraps it in a ledger.
// The caller has to close the returned database.
func openStore(cmd *cobra.Command, migrate bool) (*services.LevelLedger, *db.Database, error) {
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg := &types.Config{}
	if err := utils.ReadConfig(cfg, configPath); err != nil {
		return nil, nil, err
	}
	if debug {
		cfg.Logging.OutputLevel = "debug"
	}
	cfg.Logging.FilePath = ""
	_, logger := utils.InitLogger(cfg)

	database, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if migrate {
		if err := database.ApplyEmbeddedDbSchema(-2); err != nil {
			database.Close()
			return nil, nil, err
		}
	}

	ledger := services.NewLevelLedger(logger.WithField("module", "ledger"), database, cfg.Ledger.BlockCacheSize)
	return ledger, database, nil
}

func logResult(fields logrus.Fields, msg string) {
	logrus.WithFields(fields).Info(msg)
}
