package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/deckhandhq/deckhand/internal/adapters/secondary/config"
	"github.com/deckhandhq/deckhand/internal/domain/services"
)

// configCmd groups configuration helpers
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and bootstrap configuration",
}

// configInitCmd writes a starter config file
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file to the user config directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver := services.NewConfigResolver(config.NewTOMLStore(), config.NewMerger())
		path, err := resolver.Bootstrap()
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

// configShowCmd prints the resolved configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration after file, env, and flag overrides",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfiguration(cmd, nil)
		if err != nil {
			return err
		}
		encoder := toml.NewEncoder(os.Stdout)
		encoder.Indent = "  "
		return encoder.Encode(cfg)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
