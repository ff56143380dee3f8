// Package source enumerates the document corpus on disk.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File is a candidate document found during a corpus scan.
type File struct {
	Path    string // Relative path from the corpus root, slash-normalized (e.g. "physics/charge.md")
	AbsPath string // Absolute file path
}

// Scanner walks a corpus root and returns the indexable documents beneath it.
type Scanner struct {
	root string
}

// NewScanner creates a scanner for the given corpus root directory.
func NewScanner(root string) *Scanner {
	return &Scanner{root: root}
}

// indexableExts are the file extensions treated as text documents.
var indexableExts = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// Scan walks the corpus root and returns every indexable file whose relative
// path does not match one of the excluded prefixes. Hidden directories are skipped.
func (s *Scanner) Scan(ctx context.Context, excluded []string) ([]File, error) {
	var files []File

	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		relPath, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, relErr)
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if path != s.root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			if path != s.root && MatchesPrefix(relPath, excluded) {
				return filepath.SkipDir
			}
			return nil
		}

		if !indexableExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if MatchesPrefix(relPath, excluded) {
			return nil
		}

		files = append(files, File{Path: relPath, AbsPath: path})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// MatchesPrefix reports whether path equals one of the prefixes or lives beneath one.
// Prefixes are slash-normalized relative paths without trailing slashes.
func MatchesPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
