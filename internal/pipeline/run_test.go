package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/wikisync/internal/syncer"
)

func TestNewRun(t *testing.T) {
	a, b := NewRun(false), NewRun(true)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct non-empty ids, got %q and %q", a.ID, b.ID)
	}
	if a.Status != StatusQueued || !b.DryRun {
		t.Errorf("unexpected initial state %+v", a.Snapshot())
	}
}

func TestRun_StateTransitions(t *testing.T) {
	run := NewRun(false)

	transitions := []struct {
		status RunStatus
		phase  string
	}{
		{StatusLoading, "loading site"},
		{StatusSyncing, "syncing pages"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := run.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		run.SetStatus(tr.status, tr.phase)

		if run.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, run.Status)
		}
		if run.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, run.Phase)
		}
		if !run.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestRun_RecordResult(t *testing.T) {
	run := NewRun(false)
	run.SetTotalPages(4)
	run.RecordResult(syncer.Result{Title: "Install", Action: syncer.ActionCreated, Placeholders: []string{"Guides"}, Attachments: 2}, nil)
	run.RecordResult(syncer.Result{Title: "FAQ", Action: syncer.ActionUpdated}, nil)
	run.RecordResult(syncer.Result{Title: "Old", Action: syncer.ActionSkipped}, errors.New("mismatch"))
	run.RecordResult(syncer.Result{Title: "Same", Action: syncer.ActionSkipped}, nil)

	p := run.Snapshot().Progress
	if p.PagesTotal != 4 || p.PagesProcessed != 4 {
		t.Errorf("unexpected page counts %+v", p)
	}
	if p.Created != 1 || p.Updated != 1 || p.Failed != 1 || p.Skipped != 1 {
		t.Errorf("unexpected action counts %+v", p)
	}
	if p.Placeholders != 1 || p.Attachments != 2 {
		t.Errorf("unexpected placeholder/attachment counts %+v", p)
	}
	if len(p.Errors) != 1 || p.Errors[0] != "Old: mismatch" {
		t.Errorf("unexpected errors %v", p.Errors)
	}
}

func TestRun_AddError(t *testing.T) {
	run := NewRun(false)
	run.AddError("site file missing")
	run.AddError("second")

	snap := run.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "site file missing" {
		t.Errorf("expected first error %q, got %q", "site file missing", snap.Progress.Errors[0])
	}
}

func TestRun_SnapshotSlicesNotNil(t *testing.T) {
	// Snapshot should always return non-nil slices for JSON.
	snap := NewRun(false).Snapshot()
	if snap.Progress.Errors == nil || snap.Report == nil {
		t.Error("expected non-nil errors and report in snapshot")
	}
}

func TestRun_SnapshotIsACopy(t *testing.T) {
	run := NewRun(false)
	run.SetReport([]string{"FAQ *NEW PAGE*"})
	snap := run.Snapshot()
	snap.Report[0] = "changed"
	if run.Snapshot().Report[0] != "FAQ *NEW PAGE*" {
		t.Error("snapshot shares memory with the run")
	}
}

func TestRunStore_PutGet(t *testing.T) {
	store := NewRunStore(time.Hour)
	run := NewRun(false)
	store.Put(run)

	got := store.Get(run.ID)
	if got == nil {
		t.Fatal("expected to get run back")
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing run")
	}
}

func TestRunStore_TTLCleanup(t *testing.T) {
	store := NewRunStore(50 * time.Millisecond)

	expired := NewRun(false)
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	fresh := NewRun(false)
	store.Put(fresh)

	store.Cleanup()

	if store.Get(expired.ID) != nil {
		t.Error("expected expired run to be cleaned up")
	}
	if store.Get(fresh.ID) == nil {
		t.Error("expected fresh run to survive cleanup")
	}
}
