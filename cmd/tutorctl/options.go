package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/Rrens/rag-tutor/internal/config"
	"github.com/Rrens/rag-tutor/internal/logger"
)

type Options struct {
	ConfigPath string
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&o.ConfigPath, "config", "c", "", "config file, defaults to $CONFIG_PATH or ./configs/config.yaml")
}

// load reads configuration and installs the logger
func (o *Options) load() (*config.Config, error) {
	if o.ConfigPath != "" {
		if err := os.Setenv("CONFIG_PATH", o.ConfigPath); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if _, err := logger.Setup(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return cfg, nil
}
