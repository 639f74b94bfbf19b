package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/wikisync/internal/pipeline"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass and print the report",
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closeLog := newLogger(cfg)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := newClient(cfg)
	defer client.Close()

	run := pipeline.NewRun(cfg.DryRun)
	sum, err := pipeline.NewRunner(client, cfg, log).Process(ctx, run)
	if sum != nil {
		if werr := sum.WriteReport(os.Stdout); werr != nil {
			log.Warn("write report failed", "error", werr)
		}
	}
	if err != nil {
		return err
	}

	snap := run.Snapshot()
	log.Info("sync finished",
		"run_id", snap.ID,
		"status", snap.Status,
		"created", snap.Progress.Created,
		"updated", snap.Progress.Updated,
		"failed", snap.Progress.Failed,
		"duration", sum.Duration.String(),
	)
	if snap.Status != pipeline.StatusCompleted {
		return fmt.Errorf("sync %s: %d of %d pages failed", snap.Status, snap.Progress.Failed, snap.Progress.PagesTotal)
	}
	return nil
}
