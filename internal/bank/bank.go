// Package bank models the on-disk memory bank: the fixed layout under
// a project's memory/ directory plus the loaded retention policy.
package bank

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/halcyonlabs/membank/internal/policy"
)

// Fixed layout, relative to the project root.
const (
	MemoryDir    = "memory"
	LogFilename  = "GLOBAL_DAILY_LOG.md"
	WorkflowsDir = "workflows"
	ArchiveDir   = "archive"
	ConfigFile   = "config.yaml"

	// SprintMarker is the filename substring that identifies a
	// work-unit file inside a workflows project directory.
	SprintMarker = "SPRINT_"

	// IgnoreLine is kept present in the project .gitignore so rotated
	// archives stay out of version control.
	IgnoreLine = "memory/archive/"
)

// Tier1Files are the always-loaded memory files counted against the
// warn_tier1_tokens budget.
var Tier1Files = []string{"USER.md", "PROJECT.md", "DECISIONS.md"}

// Bank is an opened memory bank rooted at a project directory.
type Bank struct {
	Root   string // project root (not the memory dir)
	Policy policy.Policy
}

// Open loads the memory bank at root. The retention policy is read
// fresh on every call; policy problems degrade to defaults and are
// returned as warnings rather than errors.
func Open(root string) (*Bank, []string, error) {
	memDir := filepath.Join(root, MemoryDir)
	info, err := os.Stat(memDir)
	if err != nil {
		return nil, nil, fmt.Errorf("no memory bank at %s — run 'membank init' first: %w", memDir, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%s exists but is not a directory", memDir)
	}

	p, warnings := policy.Load(filepath.Join(memDir, ConfigFile))
	return &Bank{Root: root, Policy: p}, warnings, nil
}

// Path resolves parts under the memory directory.
func (b *Bank) Path(parts ...string) string {
	all := append([]string{b.Root, MemoryDir}, parts...)
	return filepath.Join(all...)
}

// LogPath returns the daily log location.
func (b *Bank) LogPath() string { return b.Path(LogFilename) }

// WorkflowsPath returns the workflows tree root.
func (b *Bank) WorkflowsPath() string { return b.Path(WorkflowsDir) }

// ArchivePath resolves parts under the archive tree.
func (b *Bank) ArchivePath(parts ...string) string {
	return b.Path(append([]string{ArchiveDir}, parts...)...)
}

// ConfigPath returns the retention policy file location.
func (b *Bank) ConfigPath() string { return b.Path(ConfigFile) }

// SetPolicyValue updates one policy field by key and persists the
// config file.
func (b *Bank) SetPolicyValue(key, value string) error {
	switch key {
	case "log_retention_days":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 365 {
			return fmt.Errorf("log_retention_days must be an integer between 1 and 365")
		}
		b.Policy.LogRetentionDays = n
	case "archive_completed_sprints":
		switch value {
		case "true":
			b.Policy.ArchiveCompletedSprints = true
		case "false":
			b.Policy.ArchiveCompletedSprints = false
		default:
			return fmt.Errorf("archive_completed_sprints must be true or false")
		}
	case "warn_tier1_tokens":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("warn_tier1_tokens must be a positive number")
		}
		b.Policy.WarnTier1Tokens = f
	case "warn_log_lines":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("warn_log_lines must be a positive number")
		}
		b.Policy.WarnLogLines = f
	default:
		return fmt.Errorf("unknown policy key: %s\nValid keys: log_retention_days, archive_completed_sprints, warn_tier1_tokens, warn_log_lines", key)
	}
	return policy.Save(b.ConfigPath(), b.Policy)
}
