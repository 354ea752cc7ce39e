package main

import (
	"context"
	"fmt"

	"github.com/cuemby/promptrelay/pkg/api"
	"github.com/cuemby/promptrelay/pkg/config"
	"github.com/cuemby/promptrelay/pkg/engine"
	"github.com/cuemby/promptrelay/pkg/log"
	"github.com/cuemby/promptrelay/pkg/metrics"
	"github.com/cuemby/promptrelay/pkg/responder"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the promptrelay broker: queue, single dispatch worker, and HTTP/SSE API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("config", "", "Path to a YAML config file (optional; env vars and defaults still apply)")
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	metrics.SetVersion(Version)

	e := engine.New(cfg, responder.Echo{})
	e.Run()

	server := api.NewServer(e, cfg.KeepaliveInterval)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		waitForShutdownSignal()
		log.Info("shutdown signal received")
		cancel()
	}()

	serveErr := api.Start(ctx, cfg.Addr(), server.Handler(), log.WithComponent("api"))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Logger.Error().Err(err).Msg("engine shutdown did not complete cleanly")
	}

	return serveErr
}
