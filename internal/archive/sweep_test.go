package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/halcyonlabs/membank/internal/bank"
)

func writeSprint(t *testing.T, b *bank.Bank, project, name, content string) string {
	t.Helper()
	dir := b.Path(bank.WorkflowsDir, project)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSweep_CompletedIsArchivedAndRemoved(t *testing.T) {
	b := testBank(t)
	now := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	content := "# Sprint 3\n\n## Status: COMPLETED\n\nAll done.\n"
	src := writeSprint(t, b, "webapp", "SPRINT_3.md", content)

	report, err := SweepCompleted(b, now, false)
	if err != nil {
		t.Fatal(err)
	}
	if report.UnitsArchived != 1 {
		t.Fatalf("expected 1 unit archived, got %d", report.UnitsArchived)
	}

	dest := b.ArchivePath("2020-06-01", bank.WorkflowsDir, "webapp", "SPRINT_3.md")
	if readFile(t, dest) != content {
		t.Error("archived copy differs from original content")
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("original should be removed after archiving")
	}
}

func TestSweep_StatusMatchingRules(t *testing.T) {
	cases := []struct {
		line  string
		swept bool
	}{
		{"## Status: COMPLETED", true},
		{"## status: completed", true},
		{"  ## STATUS: Archived   ", true},
		{"## Status: IN_PROGRESS", false},
		{"## Status: COMPLETED soon", false},
		{"Status: COMPLETED", false},
	}
	for _, tc := range cases {
		b := testBank(t)
		writeSprint(t, b, "proj", "SPRINT_1.md", "# Sprint\n\n"+tc.line+"\n")

		report, err := SweepCompleted(b, time.Now(), false)
		if err != nil {
			t.Fatal(err)
		}
		if swept := report.UnitsArchived == 1; swept != tc.swept {
			t.Errorf("line %q: swept = %t, want %t", tc.line, swept, tc.swept)
		}
	}
}

func TestSweep_IgnoresNonSprintFiles(t *testing.T) {
	b := testBank(t)
	writeSprint(t, b, "proj", "NOTES.md", "## Status: COMPLETED\n")
	writeSprint(t, b, "proj", "SPRINT_1.txt", "## Status: COMPLETED\n")

	report, err := SweepCompleted(b, time.Now(), false)
	if err != nil {
		t.Fatal(err)
	}
	if report.UnitsArchived != 0 {
		t.Errorf("non-sprint files must not be swept, got %d", report.UnitsArchived)
	}
}

func TestSweep_PlainFileInWorkflowsRootIgnored(t *testing.T) {
	b := testBank(t)
	if err := os.MkdirAll(b.WorkflowsPath(), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(b.WorkflowsPath(), "SPRINT_0.md"), []byte("## Status: COMPLETED\n"), 0644); err != nil {
		t.Fatal(err)
	}

	report, err := SweepCompleted(b, time.Now(), false)
	if err != nil {
		t.Fatal(err)
	}
	if report.UnitsArchived != 0 {
		t.Error("files directly in the workflows root are not work units")
	}
}

func TestSweep_MissingWorkflowsTreeIsQuiet(t *testing.T) {
	b := testBank(t)
	report, err := SweepCompleted(b, time.Now(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Warnings) != 0 || report.UnitsArchived != 0 {
		t.Errorf("missing workflows tree should be a quiet no-op, got %+v", report)
	}
}

func TestSweep_Idempotent(t *testing.T) {
	b := testBank(t)
	now := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	writeSprint(t, b, "proj", "SPRINT_1.md", "## Status: COMPLETED\n")

	if _, err := SweepCompleted(b, now, false); err != nil {
		t.Fatal(err)
	}
	report, err := SweepCompleted(b, now, false)
	if err != nil {
		t.Fatal(err)
	}
	if report.UnitsArchived != 0 {
		t.Errorf("second sweep should archive nothing, got %d", report.UnitsArchived)
	}
}

func TestSweep_DryRunLeavesOriginals(t *testing.T) {
	b := testBank(t)
	now := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	src := writeSprint(t, b, "proj", "SPRINT_1.md", "## Status: COMPLETED\n")

	report, err := SweepCompleted(b, now, true)
	if err != nil {
		t.Fatal(err)
	}
	if report.UnitsArchived != 1 {
		t.Errorf("dry run should still count, got %d", report.UnitsArchived)
	}
	if _, err := os.Stat(src); err != nil {
		t.Error("dry run removed the original")
	}
	if _, err := os.Stat(b.ArchivePath("2020-06-01", bank.WorkflowsDir, "proj", "SPRINT_1.md")); !os.IsNotExist(err) {
		t.Error("dry run wrote an archive copy")
	}
}

func TestSweep_DeleteFailureWarnsAndCountsArchived(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions do not bind for root")
	}
	b := testBank(t)
	now := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	content := "# Sprint 9\n\n## Status: COMPLETED\n"
	src := writeSprint(t, b, "webapp", "SPRINT_9.md", content)

	// Read-only project directory: the copy to the archive tree still
	// works, but removing the original fails.
	dir := filepath.Dir(src)
	if err := os.Chmod(dir, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	report, err := SweepCompleted(b, now, false)
	if err != nil {
		t.Fatal(err)
	}
	if report.UnitsArchived != 1 {
		t.Fatalf("unit should still count as archived, got %d", report.UnitsArchived)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected one warning for the failed delete, got %v", report.Warnings)
	}

	dest := b.ArchivePath("2020-06-01", bank.WorkflowsDir, "webapp", "SPRINT_9.md")
	if readFile(t, dest) != content {
		t.Error("archived copy differs from original content")
	}
	if _, err := os.Stat(src); err != nil {
		t.Error("original should remain in place when the delete fails")
	}
}

func TestSweep_UnreadableProjectIsolated(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions do not bind for root")
	}
	b := testBank(t)
	now := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	writeSprint(t, b, "alpha", "SPRINT_1.md", "## Status: COMPLETED\n")
	src := writeSprint(t, b, "beta", "SPRINT_2.md", "## Status: COMPLETED\n")

	locked := b.Path(bank.WorkflowsDir, "alpha")
	if err := os.Chmod(locked, 0000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	report, err := SweepCompleted(b, now, false)
	if err != nil {
		t.Fatal(err)
	}
	if report.UnitsArchived != 1 {
		t.Fatalf("readable sibling should still be swept, got %d units", report.UnitsArchived)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected one warning for the unreadable project, got %v", report.Warnings)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("sibling project's completed sprint should be removed")
	}
}

func TestRun_HonorsSweepToggle(t *testing.T) {
	b := testBank(t)
	b.Policy.ArchiveCompletedSprints = false
	writeLog(t, b, logWith("2020-06-01"))
	src := writeSprint(t, b, "proj", "SPRINT_1.md", "## Status: COMPLETED\n")

	report, err := Run(b, time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), false)
	if err != nil {
		t.Fatal(err)
	}
	if report.Sweep.UnitsArchived != 0 {
		t.Error("sweep should be disabled by policy")
	}
	if _, err := os.Stat(src); err != nil {
		t.Error("sprint file should be untouched when sweep is disabled")
	}
}

func TestRun_EndToEnd(t *testing.T) {
	b := testBank(t)
	now := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	writeLog(t, b, logWith("2020-01-01", "2020-06-01"))
	writeSprint(t, b, "proj", "SPRINT_1.md", "## Status: ARCHIVED\n")

	// Retention 365: nothing expires.
	b.Policy.LogRetentionDays = 365
	report, err := Run(b, now, false)
	if err != nil {
		t.Fatal(err)
	}
	if report.Log.SectionsArchived != 0 {
		t.Errorf("365-day retention should archive nothing, got %d", report.Log.SectionsArchived)
	}
	if report.Sweep.UnitsArchived != 1 {
		t.Errorf("sweep should archive the completed sprint, got %d", report.Sweep.UnitsArchived)
	}

	// Retention 1: the 2020-01-01 section expires.
	b.Policy.LogRetentionDays = 1
	report, err = Run(b, now, false)
	if err != nil {
		t.Fatal(err)
	}
	if report.Log.SectionsArchived != 1 {
		t.Errorf("1-day retention should archive the old section, got %d", report.Log.SectionsArchived)
	}
}
