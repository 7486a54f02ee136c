// Package main is the entry point for the edumon schedule engine.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EduMonSwent/EduMon-sub001/internal/config"
	"github.com/EduMonSwent/EduMon-sub001/internal/logging"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

var (
	// Global flags
	configPath string
	dataDir    string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "edumon",
	Short: "Unified schedule engine for students",
	Long: `edumon merges tasks, classes, exams and holidays into one schedule.

Calendars are imported from iCalendar files or URLs, and a weekly planner
rolls missed work forward and pulls next week's work in when time frees up.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if verbose {
			cfg.LogLevel = "debug"
		}

		logger, err = logging.New(cfg.LogLevel, cfg.LogDevelopment)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "edumon.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "Data directory (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, importCmd, weekCmd, planCmd, healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
