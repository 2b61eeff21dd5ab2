package policy

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy holds the retention settings for archive runs and health
// budgets. Fields are validated independently: a bad value falls back
// to its own default without invalidating its siblings.
type Policy struct {
	LogRetentionDays        int     `yaml:"log_retention_days"`
	ArchiveCompletedSprints bool    `yaml:"archive_completed_sprints"`
	WarnTier1Tokens         float64 `yaml:"warn_tier1_tokens"`
	WarnLogLines            float64 `yaml:"warn_log_lines"`
}

// Default returns the policy used when no config file exists.
func Default() Policy {
	return Policy{
		LogRetentionDays:        14,
		ArchiveCompletedSprints: true,
		WarnTier1Tokens:         4000,
		WarnLogLines:            500,
	}
}

// Load reads the policy file at path. Absence is normal and silent; a
// file that is not valid YAML falls back to all defaults with a
// warning. Loaded fields are validated one at a time.
func Load(path string) (Policy, []string) {
	p := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return p, []string{fmt.Sprintf("cannot read policy file %s: %v (using defaults)", path, err)}
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return p, []string{fmt.Sprintf("policy file %s is not valid YAML: %v (using defaults)", path, err)}
	}

	var warnings []string

	if v, ok := raw["log_retention_days"]; ok {
		if n, ok := asInt(v); ok && n >= 1 && n <= 365 {
			p.LogRetentionDays = n
		} else {
			warnings = append(warnings, fmt.Sprintf("log_retention_days: %v is not an integer in 1..365 (using %d)", v, p.LogRetentionDays))
		}
	}

	if v, ok := raw["archive_completed_sprints"]; ok {
		if b, ok := v.(bool); ok {
			p.ArchiveCompletedSprints = b
		} else {
			warnings = append(warnings, fmt.Sprintf("archive_completed_sprints: %v is not a boolean (using %t)", v, p.ArchiveCompletedSprints))
		}
	}

	if v, ok := raw["warn_tier1_tokens"]; ok {
		if f, ok := asFloat(v); ok && f > 0 {
			p.WarnTier1Tokens = f
		} else {
			warnings = append(warnings, fmt.Sprintf("warn_tier1_tokens: %v is not a positive number (using %g)", v, p.WarnTier1Tokens))
		}
	}

	if v, ok := raw["warn_log_lines"]; ok {
		if f, ok := asFloat(v); ok && f > 0 {
			p.WarnLogLines = f
		} else {
			warnings = append(warnings, fmt.Sprintf("warn_log_lines: %v is not a positive number (using %g)", v, p.WarnLogLines))
		}
	}

	return p, warnings
}

// Save writes the policy to path as YAML.
func Save(path string, p Policy) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal policy: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write policy: %w", err)
	}
	return nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
