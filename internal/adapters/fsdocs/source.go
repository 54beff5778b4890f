// Package fsdocs implements ports.DocumentSource over a directory tree.
// Document identifiers are slash-separated paths relative to the root,
// listed in lexical order so rankings are reproducible.
package fsdocs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxSize is the largest file read when Source.MaxSize is zero.
const DefaultMaxSize = 1 << 20

// skipDirs lists directories never descended into (matches the fsnotify watcher).
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	".venv":        true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
	".scoreweb":    true,
}

// Source lists and reads documents under Root.
type Source struct {
	Root string

	// Extensions restricts documents to these lowercase extensions
	// (with leading dot). Empty means every regular file.
	Extensions []string

	// Recursive descends into subdirectories; otherwise only Root's
	// direct children are documents.
	Recursive bool

	// MaxSize skips larger files at List time. Zero means DefaultMaxSize;
	// negative disables the limit.
	MaxSize int64
}

// List returns every document identifier under Root, sorted.
func (s *Source) List() ([]string, error) {
	absRoot, err := filepath.Abs(s.Root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", s.Root)
	}

	exts := make(map[string]bool, len(s.Extensions))
	for _, e := range s.Extensions {
		exts[normalizeExt(e)] = true
	}
	maxSize := s.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}

	var ids []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable
		}
		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if !s.Recursive || skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if len(exts) > 0 && !exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if maxSize > 0 {
			fi, err := d.Info()
			if err != nil || fi.Size() > maxSize {
				return nil
			}
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		ids = append(ids, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(ids)
	return ids, nil
}

// Read returns the full text of the document id.
func (s *Source) Read(id string) (string, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Path resolves a document identifier to a filesystem path.
func (s *Source) Path(id string) string {
	return filepath.Join(s.Root, filepath.FromSlash(id))
}

// Matches reports whether path (absolute or relative to Root) would be listed
// as a document, ignoring size. Used to filter watcher events.
func (s *Source) Matches(path string) bool {
	absRoot, err := filepath.Abs(s.Root)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if !s.Recursive && len(parts) > 1 {
		return false
	}
	for _, dir := range parts[:len(parts)-1] {
		if skipDirs[dir] {
			return false
		}
	}
	if len(s.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	for _, e := range s.Extensions {
		if normalizeExt(e) == ext {
			return true
		}
	}
	return false
}

func normalizeExt(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	if e != "" && !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return e
}
