package utils

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/evmstore/config"
	"github.com/ethpandaops/evmstore/types"
)

// ReadConfig loads the embedded defaults, merges the config file at path
// (if any) over them and applies environment overrides last.
func ReadConfig(cfg *types.Config, path string) error {
	err := yaml.Unmarshal([]byte(config.DefaultConfigYml), cfg)
	if err != nil {
		return fmt.Errorf("error decoding default config: %v", err)
	}

	if path != "" {
		fileCfg := &types.Config{}
		err = readConfigFile(fileCfg, path)
		if err != nil {
			return err
		}

		err = mergo.Merge(cfg, fileCfg, mergo.WithOverride)
		if err != nil {
			return fmt.Errorf("error merging config file %v: %v", path, err)
		}
	}

	err = readConfigEnv(cfg)
	if err != nil {
		return fmt.Errorf("error reading config from environment: %v", err)
	}

	if cfg.Database.Engine == "" {
		return fmt.Errorf("missing database engine")
	}

	logrus.WithFields(logrus.Fields{
		"dbEngine":       cfg.Database.Engine,
		"blockCacheSize": cfg.Ledger.BlockCacheSize,
	}).Debugf("did init config")

	return nil
}

func readConfigFile(cfg *types.Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening config file %v: %v", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(cfg)
	if err != nil {
		return fmt.Errorf("error decoding config file %v: %v", path, err)
	}

	return nil
}

func readConfigEnv(cfg *types.Config) error {
	return envconfig.Process("", cfg)
}
