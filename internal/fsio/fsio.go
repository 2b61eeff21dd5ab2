// Package fsio provides the safe file primitives the rest of membank
// builds on: atomic whole-file writes, idempotent directory creation,
// and append-once marker lines.
package fsio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AtomicWrite writes content to path via a uniquely-named sibling temp
// file renamed into place. It refuses to write through an existing
// symlink. The temp file is removed on any failure after creation; a
// successful write leaves no .tmp artifact behind.
func AtomicWrite(path string, content []byte) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("atomic write: path is empty")
	}

	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("atomic write: refusing to write through symlink %s", path)
	}

	dir := filepath.Dir(path)
	if err := EnsureDirectory(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("atomic write: create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("atomic write: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("atomic write: close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("atomic write: rename to %s: %w", path, err)
	}
	return nil
}

// EnsureDirectory creates path and any missing parents. A no-op if the
// directory already exists.
func EnsureDirectory(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("ensure directory: path is empty")
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("ensure directory %s: %w", path, err)
	}
	return nil
}

// LineResult reports the outcome of EnsureLinePresent.
type LineResult string

const (
	LineAdded     LineResult = "added"
	LineUnchanged LineResult = "unchanged"
)

// EnsureLinePresent guarantees that path contains line. A missing file
// is created holding only the line. An existing file is appended to
// only if no existing line matches after trimming.
func EnsureLinePresent(path, line string) (LineResult, error) {
	target := strings.TrimSpace(line)
	if target == "" {
		return "", fmt.Errorf("ensure line: line is empty")
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := AtomicWrite(path, []byte(target+"\n")); err != nil {
			return "", err
		}
		return LineAdded, nil
	}
	if err != nil {
		return "", fmt.Errorf("ensure line: read %s: %w", path, err)
	}

	for _, existing := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(existing) == target {
			return LineUnchanged, nil
		}
	}

	out := string(data)
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	out += target + "\n"
	if err := AtomicWrite(path, []byte(out)); err != nil {
		return "", err
	}
	return LineAdded, nil
}
