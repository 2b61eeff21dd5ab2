package archive

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/halcyonlabs/membank/internal/bank"
	"github.com/halcyonlabs/membank/internal/fsio"
)

// LogReport summarizes one log rotation pass.
type LogReport struct {
	SectionsArchived int
	LinesBefore      int
	LinesAfter       int
	Rewritten        bool
	Warnings         []string
}

// RotateLog partitions the daily log by the retention cutoff, flushes
// expired sections into per-date archive files, and rewrites the live
// log. Bucket writes happen before the live rewrite, so a crash in
// between leaves the data in both places rather than neither. When
// nothing expired the live log is not touched at all.
func RotateLog(b *bank.Bank, now time.Time, dryRun bool) (*LogReport, error) {
	report := &LogReport{}

	raw, err := os.ReadFile(b.LogPath())
	if os.IsNotExist(err) {
		report.Warnings = append(report.Warnings, fmt.Sprintf("no daily log at %s, skipping rotation", b.LogPath()))
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read daily log %s: %w", b.LogPath(), err)
	}

	doc := ParseLog(string(raw))
	cutoff := CutoffDate(now, b.Policy.LogRetentionDays)
	kept, expired := Partition(doc.Sections, cutoff)

	report.LinesBefore = len(strings.Split(string(raw), "\n"))
	report.LinesAfter = report.LinesBefore
	report.SectionsArchived = len(expired)

	if len(expired) == 0 {
		return report, nil
	}

	// Bucket expired sections by date, preserving encounter order
	// within and across dates.
	var order []string
	buckets := make(map[string][]string)
	for _, s := range expired {
		date := s.DateString()
		if _, seen := buckets[date]; !seen {
			order = append(order, date)
		}
		buckets[date] = append(buckets[date], s.Content)
	}

	if !dryRun {
		for _, date := range order {
			if err := flushBucket(b, date, buckets[date]); err != nil {
				return nil, err
			}
		}
	}

	rewritten := rewriteContent(doc.Header, kept)
	report.LinesAfter = len(strings.Split(rewritten, "\n"))
	report.Rewritten = true

	if !dryRun {
		if err := fsio.AtomicWrite(b.LogPath(), []byte(rewritten)); err != nil {
			return nil, fmt.Errorf("failed to rewrite daily log: %w", err)
		}
	}
	return report, nil
}

// flushBucket writes one date's expired sections to its archive file.
// New entries are prepended ahead of previously archived content for
// the same date; existing content is never discarded.
func flushBucket(b *bank.Bank, date string, entries []string) error {
	dir := b.ArchivePath(date)
	if err := fsio.EnsureDirectory(dir); err != nil {
		return err
	}

	dest := b.ArchivePath(date, bank.LogFilename)
	existing, err := os.ReadFile(dest)
	if err != nil && !os.IsNotExist(err) {
		// An unreadable archive file would be silently clobbered by
		// the write below, so this aborts the run.
		return fmt.Errorf("cannot read existing archive %s: %w", dest, err)
	}

	content := strings.Join(entries, "\n\n")
	if len(existing) > 0 {
		// Existing bytes are carried over unmodified; only the
		// separator is added.
		content += "\n\n" + string(existing)
	}
	if err := fsio.AtomicWrite(dest, []byte(content)); err != nil {
		return fmt.Errorf("failed to write archive %s: %w", dest, err)
	}
	return nil
}

// rewriteContent rebuilds the live log from the preserved header and
// the kept sections.
func rewriteContent(header string, kept []Section) string {
	if len(kept) == 0 {
		return header + "\n"
	}
	contents := make([]string, len(kept))
	for i, s := range kept {
		contents[i] = s.Content
	}
	return header + "\n\n" + strings.Join(contents, "\n\n") + "\n"
}
