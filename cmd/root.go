package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Billy-Davies-2/fightpick/internal/config"
	"github.com/Billy-Davies-2/fightpick/internal/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "fightpick",
	Short:         "Fury vs Usyk prediction contest",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          serve,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (YAML or JSON); defaults to $FIGHTPICK_CONFIG")
}

// Execute runs the CLI
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configuration and initialises logging from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.LogLevel)
	return cfg, nil
}
