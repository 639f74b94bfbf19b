package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/wikisync/internal/config"
	"github.com/dgallion1/wikisync/internal/doctree"
	"github.com/dgallion1/wikisync/internal/render"
	"github.com/dgallion1/wikisync/internal/syncer"
)

// Runner loads the local site, renders its pages and runs a sync pass.
type Runner struct {
	gw  syncer.Gateway
	cfg config.Config
	log *slog.Logger
}

func NewRunner(gw syncer.Gateway, cfg config.Config, log *slog.Logger) *Runner {
	return &Runner{gw: gw, cfg: cfg, log: log}
}

// Process runs one full pass for run and returns its summary. Status and
// progress on run are kept current while the pass advances.
func (r *Runner) Process(ctx context.Context, run *Run) (*syncer.Summary, error) {
	log := r.log.With("run_id", run.ID, "dry_run", run.DryRun)

	// Phase 1: load the navigation tree and render every page.
	run.SetStatus(StatusLoading, "loading site")
	loader := &doctree.Loader{IsDocument: render.IsSupportedExtension, Log: log}
	tree, site, err := loader.LoadSite(r.cfg.SiteFile)
	if err != nil {
		log.Error("load site failed", "site_file", r.cfg.SiteFile, "error", err)
		run.AddError(err.Error())
		run.SetStatus(StatusFailed, "loading site")
		return nil, err
	}
	pages := tree.Pages()
	run.SetTotalPages(len(pages))
	log.Info("site loaded", "site", site.Name, "docs_dir", tree.DocsDir, "pages", len(pages))

	units, renderErrs := BuildUnits(tree)
	for _, rerr := range renderErrs {
		log.Error("render failed", "error", rerr)
		run.RecordResult(syncer.Result{Title: rerr.Title, Action: syncer.ActionSkipped}, rerr.Err)
	}

	// Phase 2: sync units one at a time.
	run.SetStatus(StatusSyncing, "syncing pages")
	gw := r.gw
	if run.DryRun {
		gw = syncer.NewDryRunGateway(r.gw, log)
	}
	engine := syncer.NewEngine(gw, r.engineOptions(), log)
	pass := syncer.NewPass(engine, doctree.NewIndex(tree), run.DryRun, log)
	pass.Observe(func(processed, total int, res syncer.Result, err error) {
		run.RecordResult(res, err)
	})

	sum, err := pass.Run(ctx, units)
	run.SetReport(sum.Report)
	if err != nil {
		run.SetStatus(StatusFailed, "syncing pages")
		return sum, err
	}

	failed := sum.Failed() + len(renderErrs)
	switch {
	case failed == 0:
		run.SetStatus(StatusCompleted, "done")
	case sum.Created+sum.Updated > 0:
		run.SetStatus(StatusPartial, "done")
	default:
		run.SetStatus(StatusFailed, "syncing pages")
	}
	return sum, nil
}

func (r *Runner) engineOptions() syncer.Options {
	backoff := syncer.FixedBackoff(r.cfg.RetryDelay)
	if r.cfg.RetryExponential {
		backoff = syncer.ExponentialBackoff(r.cfg.RetryDelay, 8*r.cfg.RetryDelay)
	}
	return syncer.Options{
		SpaceKey:        r.cfg.SpaceKey,
		MainParentTitle: r.cfg.MainParentTitle,
		RetryAttempts:   r.cfg.RetryAttempts,
		Backoff:         backoff,
		Waiter: syncer.Waiter{
			Interval: r.cfg.VisibilityPoll,
			Timeout:  r.cfg.VisibilityTimeout,
		},
	}
}

// RenderError is a page that could not be read or rendered.
type RenderError struct {
	Title string
	Path  string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Path, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// BuildUnits reads and renders every page of tree, in nav order. Local image
// references are rewritten into attachment images and collected as assets.
func BuildUnits(tree *doctree.Tree) ([]*syncer.Unit, []*RenderError) {
	var units []*syncer.Unit
	var errs []*RenderError
	for _, n := range tree.Pages() {
		abs := filepath.Join(tree.DocsDir, filepath.FromSlash(n.Path))
		body, err := renderFile(abs)
		if err != nil {
			errs = append(errs, &RenderError{Title: n.Title, Path: n.Path, Err: err})
			continue
		}
		body, assets := render.RewriteImages(body, filepath.Dir(abs))
		units = append(units, &syncer.Unit{Node: n, Body: body, Assets: assets})
	}
	return units, errs
}

func renderFile(path string) (string, error) {
	r, err := render.ForFile(path)
	if err != nil {
		return "", err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	return r.Render(src, filepath.Base(path))
}
