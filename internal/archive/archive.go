// Package archive rotates expired sections out of the daily log and
// sweeps completed sprint files into the dated archive tree.
//
// A run is one sequential pass: parse, classify, flush archive
// buckets, rewrite the live log, sweep sprint files. No locks are
// taken; two archive runs racing on the same project is a known
// limitation of the single-shot CLI model.
package archive

import (
	"time"

	"github.com/halcyonlabs/membank/internal/bank"
)

// Report aggregates the log rotation and sprint sweep results for one
// archive run.
type Report struct {
	Log      LogReport
	Sweep    SweepReport
	Warnings []string
}

// Run executes a full archive pass against the bank. The sprint sweep
// honors the archive_completed_sprints policy toggle.
func Run(b *bank.Bank, now time.Time, dryRun bool) (*Report, error) {
	report := &Report{}

	logReport, err := RotateLog(b, now, dryRun)
	if err != nil {
		return nil, err
	}
	report.Log = *logReport
	report.Warnings = append(report.Warnings, logReport.Warnings...)

	if b.Policy.ArchiveCompletedSprints {
		sweepReport, err := SweepCompleted(b, now, dryRun)
		if err != nil {
			return nil, err
		}
		report.Sweep = *sweepReport
		report.Warnings = append(report.Warnings, sweepReport.Warnings...)
	}

	return report, nil
}
