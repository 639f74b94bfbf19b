package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgallion1/wikisync/internal/doctree"
)

// UnitError records a unit that was aborted.
type UnitError struct {
	Title string
	Kind  string
	Err   error
}

func (e UnitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Title, e.Err)
}

// Summary is the outcome of one pass.
type Summary struct {
	Total        int
	Processed    int
	Created      int
	Updated      int
	Skipped      int // units left alone without an error
	Placeholders int
	Attachments  int
	Results      []Result
	Errors       []UnitError
	Warnings     []string // non-fatal attachment problems
	Report       []string
	Duration     time.Duration
}

// Failed is the number of aborted units.
func (s *Summary) Failed() int {
	return len(s.Errors)
}

// WriteReport prints one report line per row.
func (s *Summary) WriteReport(w io.Writer) error {
	for _, line := range s.Report {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Observer is told about every finished unit. Processed counts the units
// handled so far, including this one.
type Observer func(processed, total int, res Result, err error)

// Pass holds the state of one sync pass: the navigation index used to phrase
// the report and the running count of processed units. Units are synced one
// at a time in order.
type Pass struct {
	engine   *Engine
	index    *doctree.Index
	dryRun   bool
	log      *slog.Logger
	observer Observer

	processed int
}

func NewPass(engine *Engine, index *doctree.Index, dryRun bool, log *slog.Logger) *Pass {
	return &Pass{engine: engine, index: index, dryRun: dryRun, log: log}
}

// Observe registers fn to be called after every unit.
func (p *Pass) Observe(fn Observer) {
	p.observer = fn
}

// Run syncs units in order. Unit errors are recorded and the pass moves on;
// a pass-fatal error stops it and is returned along with what was done so
// far.
func (p *Pass) Run(ctx context.Context, units []*Unit) (*Summary, error) {
	start := time.Now()
	sum := &Summary{Total: len(units)}
	dry := strconv.FormatBool(p.dryRun)
	defer func() {
		sum.Duration = time.Since(start)
		passDuration.Observe(sum.Duration.Seconds())
	}()

	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		p.processed++
		sum.Processed = p.processed
		log := p.log.With("title", u.Node.Title, "path", u.Node.Path)
		log.Info("syncing page", "progress", fmt.Sprintf("%d/%d", p.processed, len(units)))

		res, err := p.engine.SyncPage(ctx, u)
		sum.Results = append(sum.Results, res)
		p.record(sum, u, res, err)
		action := string(res.Action)
		if err != nil {
			action = "failed"
		}
		pagesTotal.WithLabelValues(action, dry).Inc()

		for _, aerr := range res.AttachmentErrors {
			log.Warn("attachment not uploaded", "error", aerr)
			sum.Warnings = append(sum.Warnings, fmt.Sprintf("%s: %v", u.Node.Title, aerr))
		}

		if err != nil {
			kind := errorKind(err)
			unitErrorsTotal.WithLabelValues(kind).Inc()
			sum.Errors = append(sum.Errors, UnitError{Title: u.Node.Title, Kind: kind, Err: err})
			sum.Report = append(sum.Report, fmt.Sprintf("%s *FAILED(%s)*", p.index.Label(u.Node.Title), kind))
			if p.observer != nil {
				p.observer(p.processed, len(units), res, err)
			}
			if IsPassFatal(err) {
				log.Error("pass aborted", "error", err)
				return sum, err
			}
			log.Error("page sync failed", "kind", kind, "parent", u.ParentTitle, "error", err)
			continue
		}
		if p.observer != nil {
			p.observer(p.processed, len(units), res, nil)
		}
	}

	p.log.Info("pass complete",
		"pages", sum.Total,
		"created", sum.Created,
		"updated", sum.Updated,
		"failed", sum.Failed(),
		"placeholders", sum.Placeholders,
		"attachments", sum.Attachments,
		"dry_run", p.dryRun,
	)
	return sum, nil
}

func (p *Pass) record(sum *Summary, u *Unit, res Result, err error) {
	for _, title := range res.Placeholders {
		sum.Report = append(sum.Report, p.index.Label(title)+" *NEW PAGE*")
	}
	sum.Placeholders += len(res.Placeholders)

	switch res.Action {
	case ActionCreated:
		sum.Created++
		sum.Report = append(sum.Report, p.index.Label(res.Title)+" *NEW PAGE*")
	case ActionUpdated:
		sum.Updated++
		sum.Report = append(sum.Report, p.index.Label(res.Title)+" *UPDATE*")
	default:
		if err == nil {
			sum.Skipped++
		}
		return
	}
	if len(u.Assets) > 0 {
		sum.Report = append(sum.Report, fmt.Sprintf("%s *NEW ATTACHMENTS(%d)*", p.index.Label(res.Title), len(u.Assets)))
	}
	sum.Attachments += res.Attachments
}
