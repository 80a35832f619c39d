package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vjranagit/drought/internal/config"
	"github.com/vjranagit/drought/pkg/storage"
)

//nolint:gochecknoglobals // Global vars needed for cobra CLI
var (
	cfgFile string
	logger  *logrus.Logger
)

//nolint:gochecknoglobals // Cobra commands are typically global
var rootCmd = &cobra.Command{
	Use:   "drought",
	Short: "Monthly per-region drought tables",
	Long: `drought builds monthly per-region climate, vegetation and ground-truth
tables, caches them in a table store and serves them over HTTP.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./drought.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides the config file")

	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// loadConfig reads the config file and sets the logger level from it or
// from --log-level
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfgFile == "" {
		cfgFile = "./drought.yaml"
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logLevel := cfg.Logging
	if flag, err := cmd.Flags().GetString("log-level"); err == nil && flag != "" {
		logLevel = flag
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, defaulting to info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return cfg, nil
}

// openStore loads the config and opens its table store
func openStore(cmd *cobra.Command) (*config.Config, storage.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.New(cfg.ToStorageConfig(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open table store: %w", err)
	}
	return cfg, store, nil
}

func closeStore(store storage.Store) {
	if err := store.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close table store")
	}
}
