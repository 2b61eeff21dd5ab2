package archive

import (
	"regexp"
	"strings"
	"time"
)

// separatorToken ends the header region of the daily log.
const separatorToken = "---"

// headingPrefix starts a dated section.
const headingPrefix = "## "

// Document is a parsed daily log: a verbatim header (everything up to
// and including the first separator line, empty if none) and an
// ordered list of sections.
type Document struct {
	Header   string
	Sections []Section
}

// Section is a heading-delimited block of the log body.
type Section struct {
	Heading string     // the full heading line
	Content string     // heading plus body, trailing blank lines trimmed
	Date    *time.Time // UTC midnight, nil when the heading has no date
}

// DateString returns the section date as YYYY-MM-DD, or "" when the
// heading carried no parseable date.
func (s Section) DateString() string {
	if s.Date == nil {
		return ""
	}
	return s.Date.Format("2006-01-02")
}

var headingDate = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)

// ParseLog splits raw text into header and sections. Two passes: find
// the header boundary, then segment the remaining lines by heading.
// Lines before the first heading in a document without a separator are
// dropped; they are neither header nor section content.
func ParseLog(raw string) Document {
	lines := strings.Split(raw, "\n")

	var doc Document
	body := lines
	for i, line := range lines {
		if strings.TrimSpace(line) == separatorToken {
			doc.Header = strings.Join(lines[:i+1], "\n")
			body = lines[i+1:]
			break
		}
	}

	var current []string
	flush := func() {
		if current == nil {
			return
		}
		// Drop trailing blank lines so sections re-join cleanly.
		end := len(current)
		for end > 0 && strings.TrimSpace(current[end-1]) == "" {
			end--
		}
		heading := current[0]
		doc.Sections = append(doc.Sections, Section{
			Heading: heading,
			Content: strings.Join(current[:end], "\n"),
			Date:    parseHeadingDate(heading),
		})
		current = nil
	}

	for _, line := range body {
		if strings.HasPrefix(line, headingPrefix) {
			flush()
			current = []string{line}
			continue
		}
		if current != nil {
			current = append(current, line)
		}
	}
	flush()

	return doc
}

// parseHeadingDate reads an ISO date at the start of a heading, after
// stripping the "## " prefix and surrounding whitespace. Returns nil
// for anything that does not parse as a real calendar date.
func parseHeadingDate(heading string) *time.Time {
	text := strings.TrimSpace(strings.TrimPrefix(heading, headingPrefix))
	m := headingDate.FindString(text)
	if m == "" {
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02", m, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

// CutoffDate derives the expiry boundary: whole days, not timestamps.
// A section dated exactly on the cutoff day is retained.
func CutoffDate(now time.Time, retentionDays int) time.Time {
	n := now.UTC()
	return time.Date(n.Year(), n.Month(), n.Day()-retentionDays, 0, 0, 0, 0, time.UTC)
}

// Expired reports whether the section's date is strictly before the
// cutoff. Sections without a parseable date are conservatively kept.
func (s Section) Expired(cutoff time.Time) bool {
	return s.Date != nil && s.Date.Before(cutoff)
}

// Partition splits sections into kept and expired, preserving the
// original relative order in both halves.
func Partition(sections []Section, cutoff time.Time) (kept, expired []Section) {
	for _, s := range sections {
		if s.Expired(cutoff) {
			expired = append(expired, s)
		} else {
			kept = append(kept, s)
		}
	}
	return kept, expired
}
