package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/framewell/renderfarm/pkg/api"
	"github.com/framewell/renderfarm/pkg/audit"
	"github.com/framewell/renderfarm/pkg/config"
	"github.com/framewell/renderfarm/pkg/events"
	"github.com/framewell/renderfarm/pkg/farm"
	"github.com/framewell/renderfarm/pkg/log"
	"github.com/framewell/renderfarm/pkg/metrics"
	"github.com/framewell/renderfarm/pkg/scheduler"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the farm scheduler daemon",
	Long: `Start the scheduling loop, the metrics collector and the HTTP API.

The fleet defined in the configuration file is registered at startup;
jobs arrive through the API.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("config", "c", "", "Path to farmd.yaml (optional)")
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})
	logger := log.WithComponent("farmd")

	auditLog := audit.New(cfg.Audit.MaxEntries)
	if cfg.Audit.Path != "" {
		store, err := audit.NewBoltStore(cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		defer store.Close()
		auditLog.WithStore(store)
	}

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	manager := farm.New(farm.Config{
		Scheduler: scheduler.Options{
			SafetyMarginHours: cfg.Scheduler.SafetyMarginHours,
			EnablePreemption:  cfg.Scheduler.EnablePreemption,
		},
		Events: broker,
		Audit:  auditLog,
	})

	for _, c := range cfg.Clients {
		if err := manager.AddClient(c.ToClient()); err != nil {
			return fmt.Errorf("failed to register client %s: %w", c.ID, err)
		}
	}
	for _, n := range cfg.Nodes {
		if err := manager.AddNode(n.ToNode()); err != nil {
			return fmt.Errorf("failed to register node %s: %w", n.ID, err)
		}
	}
	logger.Info().Int("clients", len(cfg.Clients)).Int("nodes", len(cfg.Nodes)).
		Msg("fleet registered")

	loop := scheduler.NewLoop(manager, time.Duration(cfg.Scheduler.Interval))
	loop.Start()
	defer loop.Stop()

	collector := metrics.NewCollector(manager)
	collector.Start()
	defer collector.Stop()

	server := api.NewServer(manager, auditLog)
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.API.ListenAddr); err != nil {
			errCh <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
