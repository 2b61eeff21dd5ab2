package bank

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/halcyonlabs/membank/internal/policy"
)

func setup(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, MemoryDir), 0755); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestOpen_MissingBank(t *testing.T) {
	if _, _, err := Open(t.TempDir()); err == nil {
		t.Error("expected error when memory/ does not exist")
	}
}

func TestOpen_DefaultsWithoutConfig(t *testing.T) {
	b, warnings, err := Open(setup(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Errorf("missing config should be silent, got %v", warnings)
	}
	if b.Policy != policy.Default() {
		t.Errorf("expected default policy, got %+v", b.Policy)
	}
}

func TestOpen_MalformedConfigWarns(t *testing.T) {
	root := setup(t)
	cfg := filepath.Join(root, MemoryDir, ConfigFile)
	if err := os.WriteFile(cfg, []byte("{{{"), 0644); err != nil {
		t.Fatal(err)
	}

	b, warnings, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) == 0 {
		t.Error("expected a warning for malformed config")
	}
	if b.Policy != policy.Default() {
		t.Errorf("expected default policy, got %+v", b.Policy)
	}
}

func TestPaths(t *testing.T) {
	b := &Bank{Root: "/project"}
	if got := b.LogPath(); got != filepath.Join("/project", "memory", "GLOBAL_DAILY_LOG.md") {
		t.Errorf("LogPath = %s", got)
	}
	if got := b.ArchivePath("2026-08-01", LogFilename); got != filepath.Join("/project", "memory", "archive", "2026-08-01", "GLOBAL_DAILY_LOG.md") {
		t.Errorf("ArchivePath = %s", got)
	}
	if got := b.WorkflowsPath(); got != filepath.Join("/project", "memory", "workflows") {
		t.Errorf("WorkflowsPath = %s", got)
	}
}

func TestSetPolicyValue(t *testing.T) {
	root := setup(t)
	b, _, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}

	if err := b.SetPolicyValue("log_retention_days", "30"); err != nil {
		t.Fatal(err)
	}
	if err := b.SetPolicyValue("archive_completed_sprints", "false"); err != nil {
		t.Fatal(err)
	}

	// Reopen and confirm persistence.
	b2, _, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if b2.Policy.LogRetentionDays != 30 {
		t.Errorf("retention not persisted: %d", b2.Policy.LogRetentionDays)
	}
	if b2.Policy.ArchiveCompletedSprints {
		t.Error("archive_completed_sprints not persisted")
	}
}

func TestSetPolicyValue_Invalid(t *testing.T) {
	b, _, err := Open(setup(t))
	if err != nil {
		t.Fatal(err)
	}
	for key, value := range map[string]string{
		"log_retention_days":        "400",
		"archive_completed_sprints": "maybe",
		"warn_tier1_tokens":         "-1",
		"warn_log_lines":            "zero",
		"unknown_key":               "x",
	} {
		if err := b.SetPolicyValue(key, value); err == nil {
			t.Errorf("expected error for %s=%s", key, value)
		}
	}
}
