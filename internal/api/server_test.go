package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/wikisync/internal/config"
	"github.com/dgallion1/wikisync/internal/confluence"
	"github.com/dgallion1/wikisync/internal/pipeline"
)

type fakeQueue struct {
	runs map[string]*pipeline.Run
	full bool
}

func (q *fakeQueue) Submit(run *pipeline.Run) error {
	if q.full {
		return errors.New("run queue is full (1)")
	}
	q.runs[run.ID] = run
	return nil
}

func (q *fakeQueue) GetRun(id string) *pipeline.Run { return q.runs[id] }

func (q *fakeQueue) QueueDepth() int { return len(q.runs) }

func newTestServer(t *testing.T, cfg config.Config) (*Server, *fakeQueue, *confluence.CallStats) {
	t.Helper()
	if cfg.APIKey == "" {
		cfg.APIKey = "secret"
	}
	q := &fakeQueue{runs: make(map[string]*pipeline.Run)}
	stats := confluence.NewCallStats(time.Hour)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(q, stats, log, cfg), q, stats
}

func do(t *testing.T, s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	s, _, _ := newTestServer(t, config.Config{})

	if rec := do(t, s, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, s, http.MethodGet, "/metrics", "", ""); rec.Code != http.StatusOK {
		t.Errorf("expected metrics to be served, got %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	s, _, _ := newTestServer(t, config.Config{})

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"wrong", "nope"},
	}
	for _, tt := range tests {
		rec := do(t, s, http.MethodPost, "/api/sync", "", tt.token)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s token: expected 401, got %d", tt.name, rec.Code)
		}
	}
}

func TestSync_QueuesRun(t *testing.T) {
	s, q, _ := newTestServer(t, config.Config{DryRun: true})

	tests := []struct {
		name string
		body string
		dry  bool
	}{
		{"empty body uses configured dry run", "", true},
		{"explicit real run", `{"dry_run": false}`, false},
		{"explicit dry run", `{"dry_run": true}`, true},
	}
	for _, tt := range tests {
		rec := do(t, s, http.MethodPost, "/api/sync", tt.body, "secret")
		if rec.Code != http.StatusAccepted {
			t.Fatalf("%s: expected 202, got %d %s", tt.name, rec.Code, rec.Body.String())
		}
		var resp struct {
			RunID   string `json:"run_id"`
			DryRun  bool   `json:"dry_run"`
			PollURL string `json:"poll_url"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.DryRun != tt.dry {
			t.Errorf("%s: expected dry_run=%v", tt.name, tt.dry)
		}
		if q.runs[resp.RunID] == nil || resp.PollURL != "/api/sync/"+resp.RunID+"/status" {
			t.Errorf("%s: run not queued or bad poll url %q", tt.name, resp.PollURL)
		}
	}
}

func TestSync_InvalidBody(t *testing.T) {
	s, _, _ := newTestServer(t, config.Config{})
	if rec := do(t, s, http.MethodPost, "/api/sync", `{"dry_run":`, "secret"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSync_QueueFull(t *testing.T) {
	s, q, _ := newTestServer(t, config.Config{})
	q.full = true
	if rec := do(t, s, http.MethodPost, "/api/sync", "", "secret"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestSyncStatus(t *testing.T) {
	s, q, _ := newTestServer(t, config.Config{})

	if rec := do(t, s, http.MethodGet, "/api/sync/unknown/status", "", "secret"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	run := pipeline.NewRun(false)
	run.SetReport([]string{"FAQ *NEW PAGE*"})
	run.SetStatus(pipeline.StatusCompleted, "done")
	q.runs[run.ID] = run

	rec := do(t, s, http.MethodGet, "/api/sync/"+run.ID+"/status", "", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap pipeline.RunSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Status != pipeline.StatusCompleted || len(snap.Report) != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestGatewayStats(t *testing.T) {
	s, _, stats := newTestServer(t, config.Config{SpaceKey: "DOCS"})
	stats.Record("get_page", 20*time.Millisecond, nil)

	rec := do(t, s, http.MethodGet, "/api/stats/gateway", "", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Space string                           `json:"space"`
		Stats map[string]confluence.OpSnapshot `json:"stats"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Space != "DOCS" || resp.Stats["get_page"].Count != 1 {
		t.Errorf("unexpected stats %+v", resp)
	}
}

func TestNav(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "docs", "guides"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"mkdocs.yml":             "site_name: Handbook\nnav:\n  - Guides:\n      - Install: guides/install.md\n",
		"docs/guides/install.md": "# Install",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s, _, _ := newTestServer(t, config.Config{SiteFile: filepath.Join(dir, "mkdocs.yml"), SpaceKey: "DOCS"})
	rec := do(t, s, http.MethodGet, "/api/nav", "", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Site    string     `json:"site"`
		Root    string     `json:"root"`
		Pages   int        `json:"pages"`
		Entries []navEntry `json:"entries"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Site != "Handbook" || resp.Root != "DOCS" || resp.Pages != 1 {
		t.Errorf("unexpected nav response %+v", resp)
	}
	if len(resp.Entries) != 2 || resp.Entries[1].Label != "  Install" || resp.Entries[0].Kind != "section" {
		t.Errorf("unexpected entries %+v", resp.Entries)
	}
}
