package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"WIKI_URL", "WIKI_SPACE", "WIKI_PARENT_PAGE", "RETRY_ATTEMPTS", "RETRY_DELAY", "SITE_FILE", "WIKI_DRY_RUN"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.RetryAttempts != 10 {
		t.Errorf("expected 10 retry attempts, got %d", cfg.RetryAttempts)
	}
	if cfg.RetryDelay != 5*time.Second {
		t.Errorf("expected 5s retry delay, got %s", cfg.RetryDelay)
	}
	if cfg.SiteFile != "mkdocs.yml" {
		t.Errorf("expected default site file, got %q", cfg.SiteFile)
	}
	if cfg.DryRun {
		t.Error("expected dry run off by default")
	}
}

func TestLoad_TrimsTrailingSlash(t *testing.T) {
	t.Setenv("WIKI_URL", "https://wiki.example.com/")
	cfg := Load()
	if cfg.WikiURL != "https://wiki.example.com" {
		t.Errorf("expected trimmed url, got %q", cfg.WikiURL)
	}
}

func TestRootTitle(t *testing.T) {
	tests := []struct {
		space, parent, want string
	}{
		{"DOCS", "", "DOCS"},
		{"DOCS", "Handbook", "Handbook"},
		{"", "", ""},
	}
	for _, tt := range tests {
		cfg := Config{SpaceKey: tt.space, MainParentTitle: tt.parent}
		if got := cfg.RootTitle(); got != tt.want {
			t.Errorf("space=%q parent=%q: expected %q, got %q", tt.space, tt.parent, tt.want, got)
		}
	}
}

func TestValidate(t *testing.T) {
	base := Config{WikiURL: "https://wiki", SpaceKey: "DOCS", WikiToken: "tok", SiteFile: "mkdocs.yml"}
	if err := base.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	noSpace := base
	noSpace.SpaceKey = ""
	if err := noSpace.Validate(); err == nil {
		t.Error("expected error for missing space")
	}

	basic := base
	basic.WikiToken = ""
	basic.WikiUsername = "bob"
	if err := basic.Validate(); err == nil {
		t.Error("expected error for username without password")
	}
	basic.WikiPassword = "secret"
	if err := basic.Validate(); err != nil {
		t.Errorf("unexpected error for basic auth: %v", err)
	}
}

func TestSlogLevel(t *testing.T) {
	if (Config{LogLevel: "DEBUG"}).SlogLevel() != slog.LevelDebug {
		t.Error("expected debug level")
	}
	if (Config{LogLevel: "nonsense"}).SlogLevel() != slog.LevelInfo {
		t.Error("expected info fallback")
	}
}
