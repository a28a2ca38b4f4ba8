package config

import (
	_ "embed"
)

// node store config
//
//go:embed default.config.yml
var DefaultConfigYml string
