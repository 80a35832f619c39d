package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vjranagit/drought/pkg/api"
)

const shutdownTimeout = 30 * time.Second

//nolint:gochecknoglobals // Cobra commands are typically global
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the stored tables over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(store)

	logger.WithFields(logrus.Fields{
		"listen_addr": cfg.Server.ListenAddr,
		"backend":     cfg.Storage.Backend,
		"path":        cfg.Storage.Path,
	}).Info("Configuration loaded")

	server := api.NewServer(cfg.Server.ListenAddr, cfg.Server.Timeout, store, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigChan:
		logger.WithField("signal", sig.String()).Info("Shutdown signal received, stopping server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		return err
	}

	logger.Info("Server stopped")
	return nil
}
