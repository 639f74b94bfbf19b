package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/wikisync/internal/doctree"
	"github.com/dgallion1/wikisync/internal/pipeline"
	"github.com/dgallion1/wikisync/internal/render"
	"github.com/dgallion1/wikisync/internal/watch"
)

var debounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync once, then again whenever the docs tree changes",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "quiet period before a change triggers a pass")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closeLog := newLogger(cfg)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := &doctree.Loader{IsDocument: render.IsSupportedExtension, Log: log}
	tree, _, err := loader.LoadSite(cfg.SiteFile)
	if err != nil {
		return err
	}
	docsDir := tree.DocsDir

	client := newClient(cfg)
	defer client.Close()
	runner := pipeline.NewRunner(client, cfg, log)

	pass := func(ctx context.Context) {
		run := pipeline.NewRun(cfg.DryRun)
		if _, err := runner.Process(ctx, run); err != nil {
			log.Error("sync pass failed", "run_id", run.ID, "error", err)
			return
		}
		snap := run.Snapshot()
		log.Info("sync pass finished", "run_id", snap.ID, "status", snap.Status,
			"created", snap.Progress.Created, "updated", snap.Progress.Updated, "failed", snap.Progress.Failed)
	}

	w, err := watch.New([]string{cfg.SiteFile, docsDir}, debounce, log)
	if err != nil {
		return err
	}
	defer w.Close()

	pass(ctx)
	log.Info("watching for changes", "site_file", cfg.SiteFile, "docs_dir", docsDir, "debounce", debounce.String())
	if err := w.Run(ctx, pass); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
