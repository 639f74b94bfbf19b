package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/wikisync/internal/api"
	"github.com/dgallion1/wikisync/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the sync API and run queued passes",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("invalid configuration: WIKISYNC_API_KEY is required")
	}
	log, closeLog := newLogger(cfg)
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := newClient(cfg)

	orch := pipeline.NewOrchestrator(cfg, pipeline.NewRunner(client, cfg, log), log)
	orch.Start(ctx)

	srv := api.NewServer(orch, client.Stats(), log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		client.Close()
	}()

	log.Info("starting wikisync", "port", cfg.Port, "space", cfg.SpaceKey, "site_file", cfg.SiteFile, "dry_run", cfg.DryRun)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		return err
	}
	return nil
}
