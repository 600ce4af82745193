// Command boneprune removes bones from skinned models (MU BMD, glTF, GLB).
// Influences on removed bones move to their nearest kept ancestor, and the
// pruned skin data is written next to the model.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"bone-pruner/internal/config"
)

var (
	configFile string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config JSON file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")
}

var rootCmd = &cobra.Command{
	Use:           "boneprune",
	Short:         "Delete bones from a skinned model and retarget their weights",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// loadConfig reads --config if given and resolves it for modelPath.
func loadConfig(flags config.Flags, modelPath string) (config.Config, error) {
	var cfg config.Config
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return config.Config{}, err
		}
	}
	cfg.Resolve(flags, modelPath)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
