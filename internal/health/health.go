// Package health computes per-file statistics and budget checks for a
// memory bank. It only ever reads; the archive engine is the writer.
package health

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/halcyonlabs/membank/internal/bank"
)

// Issue is a health check finding.
type Issue struct {
	Severity string // "warning" or "error"
	Message  string
}

// FileStat holds the per-file numbers reported by `membank health`.
type FileStat struct {
	Name    string
	Lines   int
	Chars   int
	Tokens  int // chars/4 estimate
	AgeDays int // days since last modification
	Missing bool
}

// Report aggregates file stats and budget findings for one inspection.
type Report struct {
	Files       []FileStat
	Tier1Tokens int
	LogLines    int
	SprintCount int
	Issues      []Issue
}

// HasErrors reports whether any finding is error-severity.
func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == "error" {
			return true
		}
	}
	return false
}

// Inspect reads the tier-1 files, the daily log, and the workflows
// tree, and checks the aggregate numbers against the policy budgets.
// Unreadable files are reported and skipped, never fatal.
func Inspect(b *bank.Bank, now time.Time) *Report {
	report := &Report{}

	for _, name := range bank.Tier1Files {
		stat := statFile(b.Path(name), name, now)
		report.Files = append(report.Files, stat)
		if stat.Missing {
			report.Issues = append(report.Issues, Issue{"warning", fmt.Sprintf("missing tier-1 file: %s", name)})
			continue
		}
		report.Tier1Tokens += stat.Tokens
	}

	logStat := statFile(b.LogPath(), bank.LogFilename, now)
	report.Files = append(report.Files, logStat)
	if logStat.Missing {
		report.Issues = append(report.Issues, Issue{"error", fmt.Sprintf("missing daily log: %s (run 'membank init')", b.LogPath())})
	} else {
		report.LogLines = logStat.Lines
	}

	report.SprintCount = countSprints(b, report)

	if float64(report.Tier1Tokens) > b.Policy.WarnTier1Tokens {
		report.Issues = append(report.Issues, Issue{"warning",
			fmt.Sprintf("tier-1 files hold ~%d tokens, over the %g budget — consider trimming USER.md/PROJECT.md/DECISIONS.md", report.Tier1Tokens, b.Policy.WarnTier1Tokens)})
	}
	if float64(report.LogLines) > b.Policy.WarnLogLines {
		report.Issues = append(report.Issues, Issue{"warning",
			fmt.Sprintf("daily log is %d lines, over the %g budget — run 'membank archive'", report.LogLines, b.Policy.WarnLogLines)})
	}

	return report
}

// statFile computes stats for one file. A missing or unreadable file
// yields a Missing stat.
func statFile(path, name string, now time.Time) FileStat {
	stat := FileStat{Name: name}

	info, err := os.Stat(path)
	if err != nil {
		stat.Missing = true
		return stat
	}
	data, err := os.ReadFile(path)
	if err != nil {
		stat.Missing = true
		return stat
	}

	content := string(data)
	stat.Chars = len(content)
	stat.Tokens = stat.Chars / 4
	stat.Lines = len(strings.Split(content, "\n"))
	if age := now.Sub(info.ModTime()); age > 0 {
		stat.AgeDays = int(age.Hours() / 24)
	}
	return stat
}

// countSprints tallies sprint files across the workflows tree. List
// failures are isolated per project directory.
func countSprints(b *bank.Bank, report *Report) int {
	projects, err := os.ReadDir(b.WorkflowsPath())
	if err != nil {
		return 0 // absent tree is normal for a fresh bank
	}

	count := 0
	for _, proj := range projects {
		if !proj.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(b.WorkflowsPath(), proj.Name()))
		if err != nil {
			report.Issues = append(report.Issues, Issue{"warning", fmt.Sprintf("cannot read workflows project %s: %v", proj.Name(), err)})
			continue
		}
		for _, f := range files {
			if !f.IsDir() && strings.Contains(f.Name(), bank.SprintMarker) && strings.HasSuffix(f.Name(), ".md") {
				count++
			}
		}
	}
	return count
}
