// Package source discovers and loads knowledge-base documents from a
// directory of markdown files.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Document is one knowledge-base file, identified by its stable file name.
type Document struct {
	Key     string // File name, e.g. "faq.md". Used as the chunk source key.
	Path    string // Absolute path on disk.
	Content string
}

// List returns every eligible document in dir in deterministic name order.
// Only .md files are eligible; names matching any skip pattern are excluded.
// Patterns may be plain file names or globs (** supported).
func List(dir string, skip []string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading knowledge dir %s: %w", dir, err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".md") || skipped(name, skip) {
			continue
		}

		doc, err := Load(dir, name)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Key < docs[j].Key })
	return docs, nil
}

// Load reads a single named document from dir.
func Load(dir, name string) (Document, error) {
	path := filepath.Join(dir, name)
	content, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading document %s: %w", name, err)
	}
	return Document{Key: name, Path: path, Content: string(content)}, nil
}

func skipped(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern == name {
			return true
		}
		// Fall back to glob matching for patterns like "*-draft.md".
		if matched, err := doublestar.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}
