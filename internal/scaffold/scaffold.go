// Package scaffold creates the memory bank tree from embedded
// templates and keeps the project ignore file marked.
package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/halcyonlabs/membank/internal/bank"
	"github.com/halcyonlabs/membank/internal/fsio"
	"github.com/halcyonlabs/membank/internal/policy"
)

//go:embed templates/*.md
var templateFS embed.FS

// templateData is injected into every scaffold template.
type templateData struct {
	Project string
	Date    string
}

// Result reports what Init changed.
type Result struct {
	Created      []string
	Skipped      []string // already present, left untouched
	IgnoreResult fsio.LineResult
}

// Init scaffolds the memory bank under root. Existing files are left
// alone unless force is set; a bank that already exists without force
// is an error, matching `membank init --force` semantics.
func Init(root string, force bool) (*Result, error) {
	memDir := filepath.Join(root, bank.MemoryDir)
	if _, err := os.Stat(memDir); err == nil && !force {
		return nil, fmt.Errorf("memory bank already exists at %s (use --force to reinitialize)", memDir)
	}

	for _, dir := range []string{
		memDir,
		filepath.Join(memDir, bank.WorkflowsDir),
		filepath.Join(memDir, bank.ArchiveDir),
	} {
		if err := fsio.EnsureDirectory(dir); err != nil {
			return nil, err
		}
	}

	data := templateData{
		Project: filepath.Base(root),
		Date:    time.Now().UTC().Format("2006-01-02"),
	}

	result := &Result{}
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded templates: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		dest := filepath.Join(memDir, name)
		if _, err := os.Stat(dest); err == nil && !force {
			result.Skipped = append(result.Skipped, name)
			continue
		}
		content, err := renderTemplate(name, data)
		if err != nil {
			return nil, err
		}
		if err := fsio.AtomicWrite(dest, content); err != nil {
			return nil, err
		}
		result.Created = append(result.Created, name)
	}

	cfgPath := filepath.Join(memDir, bank.ConfigFile)
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) || force {
		if err := policy.Save(cfgPath, policy.Default()); err != nil {
			return nil, err
		}
		result.Created = append(result.Created, bank.ConfigFile)
	} else {
		result.Skipped = append(result.Skipped, bank.ConfigFile)
	}

	ignoreRes, err := fsio.EnsureLinePresent(filepath.Join(root, ".gitignore"), bank.IgnoreLine)
	if err != nil {
		return nil, err
	}
	result.IgnoreResult = ignoreRes

	return result, nil
}

func renderTemplate(name string, data templateData) ([]byte, error) {
	raw, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("template not found: %s: %w", name, err)
	}
	tmpl, err := template.New(name).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
