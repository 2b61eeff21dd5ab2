package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Root markers, checked in priority order at each level.
const (
	MarkerGit      = ".git"
	MarkerManifest = "package.json"
)

// maxTraversalDepth bounds the upward walk from the starting directory.
const maxTraversalDepth = 5

var (
	// ErrInvalidArg is returned when an argument is empty or malformed.
	ErrInvalidArg = errors.New("invalid argument")

	// ErrNoRoot is returned when no root marker is found within the
	// traversal bound.
	ErrNoRoot = errors.New("no project root found")

	// ErrPathEscape is returned when a relative path resolves outside
	// the project root.
	ErrPathEscape = errors.New("path escapes project root")
)

// Root describes a located project root.
type Root struct {
	Dir    string
	Marker string // which marker matched (".git" or "package.json")
}

// FindRoot walks upward from startDir looking for a root marker.
// A stat failure on a candidate marker is treated as "marker absent at
// this level" so a single unreadable directory does not abort the walk.
func FindRoot(startDir string) (*Root, error) {
	if strings.TrimSpace(startDir) == "" {
		return nil, fmt.Errorf("%w: start directory is empty", ErrInvalidArg)
	}

	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArg, err)
	}

	for depth := 0; depth <= maxTraversalDepth; depth++ {
		for _, marker := range []string{MarkerGit, MarkerManifest} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return &Root{Dir: dir, Marker: marker}, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // filesystem root
		}
		dir = parent
	}

	return nil, fmt.Errorf("%w: searched %d levels up from %s", ErrNoRoot, maxTraversalDepth, startDir)
}

// ResolveContained resolves relativePath against root and rejects any
// result outside the normalized root. The containment check is
// case-insensitive on platforms with case-insensitive filesystems.
func ResolveContained(root, relativePath string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", fmt.Errorf("%w: root is empty", ErrInvalidArg)
	}
	if strings.TrimSpace(relativePath) == "" {
		return "", fmt.Errorf("%w: relative path is empty", ErrInvalidArg)
	}

	absRoot, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArg, err)
	}

	resolved := filepath.Clean(filepath.Join(absRoot, relativePath))
	if !contains(absRoot, resolved) {
		return "", fmt.Errorf("%w: %s resolves outside %s", ErrPathEscape, relativePath, absRoot)
	}
	return resolved, nil
}

// contains reports whether path is root itself or nested under it.
func contains(root, path string) bool {
	r, p := root, path
	if caseInsensitiveFS() {
		r, p = strings.ToLower(r), strings.ToLower(p)
	}
	if p == r {
		return true
	}
	return strings.HasPrefix(p, r+string(filepath.Separator))
}

func caseInsensitiveFS() bool {
	return runtime.GOOS == "darwin" || runtime.GOOS == "windows"
}
