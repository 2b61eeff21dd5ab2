package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/halcyonlabs/membank/internal/bank"
	"github.com/halcyonlabs/membank/internal/fsio"
)

// Status marker lines that mark a sprint file as done. The whole
// trimmed line must match, case-insensitively.
var completedMarkers = []string{
	"## Status: COMPLETED",
	"## Status: ARCHIVED",
}

// SweepReport summarizes one completed-sprint sweep.
type SweepReport struct {
	UnitsArchived int
	Archived      []string // project/filename pairs
	Warnings      []string
}

// SweepCompleted scans each project directory under the workflows tree
// for sprint files carrying a completion marker, copies them into the
// dated archive tree, and removes the originals. Read and list
// failures are isolated to their scope so one unreadable project does
// not stop the others; a failed delete after a successful copy is
// surfaced as a warning and the file still counts as archived, since
// the archived copy holds the data either way.
func SweepCompleted(b *bank.Bank, now time.Time, dryRun bool) (*SweepReport, error) {
	report := &SweepReport{}
	today := now.UTC().Format("2006-01-02")

	projects, err := os.ReadDir(b.WorkflowsPath())
	if err != nil {
		if !os.IsNotExist(err) {
			report.Warnings = append(report.Warnings, fmt.Sprintf("cannot read workflows tree: %v", err))
		}
		return report, nil
	}

	for _, proj := range projects {
		if !proj.IsDir() {
			continue
		}
		if err := sweepProject(b, proj.Name(), today, dryRun, report); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func sweepProject(b *bank.Bank, project, today string, dryRun bool, report *SweepReport) error {
	dir := b.Path(bank.WorkflowsDir, project)
	files, err := os.ReadDir(dir)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("cannot read project %s: %v", project, err))
		return nil
	}

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		name := f.Name()
		if !strings.Contains(name, bank.SprintMarker) || !strings.HasSuffix(name, ".md") {
			continue
		}

		src := filepath.Join(dir, name)
		data, err := os.ReadFile(src)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("cannot read %s: %v", src, err))
			continue
		}
		if !markedComplete(string(data)) {
			continue
		}

		if !dryRun {
			dest := b.ArchivePath(today, bank.WorkflowsDir, project, name)
			if err := fsio.EnsureDirectory(filepath.Dir(dest)); err != nil {
				return err
			}
			if err := fsio.AtomicWrite(dest, data); err != nil {
				return fmt.Errorf("failed to archive %s: %w", src, err)
			}
			if err := os.Remove(src); err != nil {
				// The archived copy is already safe; the original is
				// now a duplicate, which must be surfaced, not hidden.
				report.Warnings = append(report.Warnings, fmt.Sprintf("archived %s but could not remove the original: %v", src, err))
			}
		}
		report.UnitsArchived++
		report.Archived = append(report.Archived, filepath.Join(project, name))
	}
	return nil
}

// markedComplete reports whether any line of content is a completion
// status marker.
func markedComplete(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		for _, marker := range completedMarkers {
			if strings.EqualFold(trimmed, marker) {
				return true
			}
		}
	}
	return false
}
