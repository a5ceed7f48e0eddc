// cmd/airmod/root.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ventio/airmod/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "airmod",
	Short: "Modbus polling bridge for ventilation units",
	Long: `Airmod discovers which Modbus registers a ventilation unit actually
implements, then polls the discovered subset in batched reads and serves
the values to home-automation consumers.

Commands:
  run    daemon: scan once, then poll on an interval
  scan   one-shot capability scan, prints the device profile
  write  validated write to a single register`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "airmod.yaml", "Configuration file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads, validates and normalizes the configured file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

// findUnit resolves a unit by id, or returns the only unit when id is empty.
func findUnit(cfg *config.Config, id string) (config.UnitConfig, error) {
	if id == "" {
		if len(cfg.Airmod.Units) == 1 {
			return cfg.Airmod.Units[0], nil
		}
		return config.UnitConfig{}, fmt.Errorf("multiple units configured, pick one with --unit")
	}
	for _, u := range cfg.Airmod.Units {
		if u.ID == id {
			return u, nil
		}
	}
	return config.UnitConfig{}, fmt.Errorf("unit %q not found", id)
}
