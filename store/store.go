// Package store persists generated care-cases as addressable JSON records on
// disk. One signal maps to one case ID and therefore one location, so
// re-running intake over the same signal lands on the same file; the store
// itself never special-cases "already exists" (the proposal controller owns
// idempotency decisions).
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/c360studio/guardian/carecase"
)

const (
	casePrefix = "carecase."
	caseSuffix = ".json"
)

// Entry is one persisted care-case with its location.
type Entry struct {
	// Location is the case file path relative to the store root.
	Location string
	Case     *carecase.CareCase
}

// Store is a file-backed case store rooted at a generated-cases directory.
type Store struct {
	root string
}

// New creates a store rooted at dir. The directory is created on first write.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// locationFor returns the store-relative location for a case ID.
func locationFor(caseID string) string {
	return casePrefix + caseID + caseSuffix
}

// Persist writes a care-case to its deterministic location and returns that
// location. The write is atomic from a reader's perspective: content lands in
// a temp file in the same directory and is renamed into place.
func (s *Store) Persist(ctx context.Context, c *carecase.CareCase) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.ID == "" {
		return "", fmt.Errorf("care-case has no ID")
	}

	if err := os.MkdirAll(s.root, 0755); err != nil {
		return "", fmt.Errorf("create store directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal care-case: %w", err)
	}
	data = append(data, '\n')

	location := locationFor(c.ID)
	path := filepath.Join(s.root, location)

	tmp, err := os.CreateTemp(s.root, casePrefix+"*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write care-case: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close care-case file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename care-case into place: %w", err)
	}

	return location, nil
}

// List returns all persisted care-cases sorted lexicographically by location,
// so enumeration order is stable across runs. Files that do not look like
// case records are ignored.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read store directory: %w", err)
	}

	var result []Entry
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, casePrefix) || !strings.HasSuffix(name, caseSuffix) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.root, name))
		if err != nil {
			return nil, fmt.Errorf("read case %s: %w", name, err)
		}

		var c carecase.CareCase
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse case %s: %w", name, err)
		}

		result = append(result, Entry{Location: name, Case: &c})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Location < result[j].Location
	})

	return result, nil
}
