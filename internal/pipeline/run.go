package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/wikisync/internal/syncer"
	"github.com/google/uuid"
)

// RunStatus represents the state of a sync run.
type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusLoading   RunStatus = "loading"
	StatusSyncing   RunStatus = "syncing"
	StatusCompleted RunStatus = "completed"
	StatusPartial   RunStatus = "partial"
	StatusFailed    RunStatus = "failed"
)

// Run tracks the state of a single sync pass.
type Run struct {
	mu sync.Mutex

	ID     string `json:"run_id"`
	DryRun bool   `json:"dry_run"`

	Status RunStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	errors []string
	report []string
}

// Progress tracks processing progress.
type Progress struct {
	PagesTotal     int      `json:"pages_total"`
	PagesProcessed int      `json:"pages_processed"`
	Created        int      `json:"created"`
	Updated        int      `json:"updated"`
	Skipped        int      `json:"skipped"`
	Failed         int      `json:"failed"`
	Placeholders   int      `json:"placeholders"`
	Attachments    int      `json:"attachments"`
	Errors         []string `json:"errors"`
}

// NewRun returns a queued run with a fresh ID.
func NewRun(dryRun bool) *Run {
	now := time.Now()
	return &Run{
		ID:        uuid.NewString(),
		DryRun:    dryRun,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RunStore is a thread-safe in-memory run registry with TTL eviction.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	return &RunStore{
		runs: make(map[string]*Run),
		ttl:  ttl,
	}
}

func (s *RunStore) Put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// Cleanup removes expired runs.
func (s *RunStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, run := range s.runs {
		run.mu.Lock()
		updated := run.UpdatedAt
		run.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.runs, id)
		}
	}
}

// SetStatus updates run status atomically.
func (r *Run) SetStatus(status RunStatus, phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	r.Phase = phase
	r.UpdatedAt = time.Now()
}

// AddError records an error.
func (r *Run) AddError(err string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
	r.Progress.Errors = r.errors
	r.UpdatedAt = time.Now()
}

// SetTotalPages records how many pages the pass will visit.
func (r *Run) SetTotalPages(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.PagesTotal = n
	r.UpdatedAt = time.Now()
}

// RecordResult folds one finished unit into the counters.
func (r *Run) RecordResult(res syncer.Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.PagesProcessed++
	r.Progress.Placeholders += len(res.Placeholders)
	r.Progress.Attachments += res.Attachments
	switch {
	case err != nil:
		r.Progress.Failed++
		r.errors = append(r.errors, res.Title+": "+err.Error())
		r.Progress.Errors = r.errors
	case res.Action == syncer.ActionCreated:
		r.Progress.Created++
	case res.Action == syncer.ActionUpdated:
		r.Progress.Updated++
	default:
		r.Progress.Skipped++
	}
	r.UpdatedAt = time.Now()
}

// SetReport stores the pass report.
func (r *Run) SetReport(lines []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report = append([]string(nil), lines...)
	r.UpdatedAt = time.Now()
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID        string    `json:"run_id"`
	DryRun    bool      `json:"dry_run"`
	Status    RunStatus `json:"status"`
	Phase     string    `json:"phase"`
	Progress  Progress  `json:"progress"`
	Report    []string  `json:"report"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	progress := r.Progress
	progress.Errors = append([]string{}, r.errors...)
	return RunSnapshot{
		ID:        r.ID,
		DryRun:    r.DryRun,
		Status:    r.Status,
		Phase:     r.Phase,
		Progress:  progress,
		Report:    append([]string{}, r.report...),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
