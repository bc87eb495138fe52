package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paperscroll/paper-scroll-service/internal/domain"
)

// StarStore persists user-starred papers, one JSON file per paper. The
// filename is derived from the DOI by domain.StarFileKey and the existence of
// the file is the starred flag; there is no separate index.
type StarStore struct {
	dir string
}

// NewStarStore opens (and creates, if needed) the starred-papers directory.
func NewStarStore(dir string) (*StarStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create starred dir: %w", err)
	}
	return &StarStore{dir: dir}, nil
}

// IsStarred reports whether a paper with the given DOI is starred.
func (s *StarStore) IsStarred(doi string) bool {
	_, err := os.Stat(s.path(doi))
	return err == nil
}

// Star persists the paper. Starring an already-starred paper is a no-op.
func (s *StarStore) Star(p *domain.Paper) error {
	if s.IsStarred(p.DOI) {
		return nil
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal starred paper %s: %w", p.DOI, err)
	}
	if err := os.WriteFile(s.path(p.DOI), data, 0o644); err != nil {
		return fmt.Errorf("write starred paper %s: %w", p.DOI, err)
	}
	return nil
}

// Unstar removes the starred file. Unstarring a non-starred paper is a no-op.
func (s *StarStore) Unstar(doi string) error {
	if err := os.Remove(s.path(doi)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unstar %s: %w", doi, err)
	}
	return nil
}

// List returns all starred papers, ordered by filename.
func (s *StarStore) List() ([]domain.Paper, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list starred papers: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	papers := make([]domain.Paper, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("read starred paper %s: %w", name, err)
		}
		var p domain.Paper
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse starred paper %s: %w", name, err)
		}
		papers = append(papers, p)
	}
	return papers, nil
}

func (s *StarStore) path(doi string) string {
	return filepath.Join(s.dir, domain.StarFileKey(doi))
}
