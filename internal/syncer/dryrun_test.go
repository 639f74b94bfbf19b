package syncer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/wikisync/internal/doctree"
)

func seededGateway() *fakeGateway {
	gw := newFakeGateway()
	gw.addPage("DOCS", "")
	gw.addPage("Guides", "DOCS")
	gw.addPage("Upgrade", "Guides")
	return gw
}

func TestDryRun_SameTraceAndReport(t *testing.T) {
	dir := t.TempDir()
	logo := filepath.Join(dir, "logo.png")
	if err := os.WriteFile(logo, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	tree := buildTree("Guides/Install", "Guides/Upgrade", "Reference/API/Endpoints", "FAQ")

	run := func(gw Gateway, dryRun bool) (*Summary, []string) {
		tr := &tracer{next: gw}
		units := unitsFor(tree)
		units[0].Assets = []string{logo}
		e := newTestEngine(tr, testOptions())
		sum, err := NewPass(e, doctree.NewIndex(tree), dryRun, discardLogger()).Run(context.Background(), units)
		if err != nil {
			t.Fatalf("dry=%v: unexpected error: %v", dryRun, err)
		}
		return sum, tr.trace
	}

	real := seededGateway()
	realSum, realTrace := run(real, false)

	backing := seededGateway()
	dry := NewDryRunGateway(backing, discardLogger())
	drySum, dryTrace := run(dry, true)

	if strings.Join(realSum.Report, "\n") != strings.Join(drySum.Report, "\n") {
		t.Fatalf("reports differ:\nreal:\n%s\ndry:\n%s", strings.Join(realSum.Report, "\n"), strings.Join(drySum.Report, "\n"))
	}
	if strings.Join(realTrace, ",") != strings.Join(dryTrace, ",") {
		t.Fatalf("call traces differ:\nreal: %v\ndry:  %v", realTrace, dryTrace)
	}
	if muts := backing.mutations(); len(muts) != 0 {
		t.Fatalf("dry run reached the remote: %v", muts)
	}
	if realSum.Created != drySum.Created || realSum.Updated != drySum.Updated || realSum.Placeholders != drySum.Placeholders {
		t.Errorf("summaries differ: %+v vs %+v", realSum, drySum)
	}

	want := []string{"Install", "Reference", "API", "Endpoints", "FAQ"}
	if got := dry.Created(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected synthetic pages %v, got %v", want, got)
	}
}

func TestDryRun_OverlayVisibleToReads(t *testing.T) {
	backing := seededGateway()
	dry := NewDryRunGateway(backing, discardLogger())
	ctx := context.Background()

	guides, err := dry.GetPageByTitle(ctx, "DOCS", "Guides", false)
	if err != nil || guides == nil {
		t.Fatalf("expected Guides from backing gateway, got %v %v", guides, err)
	}
	created, err := dry.CreatePage(ctx, "DOCS", "Install", "<p/>", guides.ID)
	if err != nil {
		t.Fatal(err)
	}
	if created.ID != "dryrun-1" {
		t.Errorf("expected synthetic id, got %q", created.ID)
	}

	got, err := dry.GetPageByTitle(ctx, "DOCS", "Install", true)
	if err != nil || got == nil {
		t.Fatalf("expected overlay page, got %v %v", got, err)
	}
	if got.ParentTitle() != "Guides" {
		t.Errorf("expected overlay parent Guides, got %q", got.ParentTitle())
	}
	anc, err := dry.GetAncestors(ctx, created.ID)
	if err != nil || len(anc) == 0 || anc[len(anc)-1].Title != "Guides" {
		t.Errorf("expected ancestors ending at Guides, got %v %v", anc, err)
	}

	updated, err := dry.UpdatePage(ctx, got, "<p>x</p>")
	if err != nil || updated.Version != 2 {
		t.Errorf("expected synthetic version bump, got %+v %v", updated, err)
	}
	if err := dry.UploadAttachment(ctx, created.ID, "a.png", []byte("x"), "image/png"); err != nil {
		t.Errorf("unexpected upload error: %v", err)
	}
	if muts := backing.mutations(); len(muts) != 0 {
		t.Errorf("expected no remote mutations, got %v", muts)
	}
}
