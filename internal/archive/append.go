package archive

import (
	"fmt"
	"os"
	"time"

	"github.com/halcyonlabs/membank/internal/bank"
	"github.com/halcyonlabs/membank/internal/fsio"
)

// AppendEntry adds text as a bullet under today's section of the daily
// log, creating the section at the top of the body when absent. The
// log document itself must already exist.
func AppendEntry(b *bank.Bank, now time.Time, text string) error {
	if text == "" {
		return fmt.Errorf("log entry text is empty")
	}

	raw, err := os.ReadFile(b.LogPath())
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("daily log does not exist at %s — run 'membank init' first", b.LogPath())
		}
		return fmt.Errorf("cannot read daily log: %w", err)
	}

	doc := ParseLog(string(raw))
	today := now.UTC().Format("2006-01-02")
	entry := "- " + text

	found := false
	for i, s := range doc.Sections {
		if s.DateString() == today {
			doc.Sections[i].Content = s.Content + "\n" + entry
			found = true
			break
		}
	}
	if !found {
		heading := "## " + today
		section := Section{
			Heading: heading,
			Content: heading + "\n\n" + entry,
		}
		doc.Sections = append([]Section{section}, doc.Sections...)
	}

	return fsio.AtomicWrite(b.LogPath(), []byte(rewriteContent(doc.Header, doc.Sections)))
}
