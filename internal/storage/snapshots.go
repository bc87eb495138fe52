// Package storage implements the file-backed stores of the service: journal
// snapshots, starred papers and user settings. Every store keeps one JSON
// file per entity and uses the filename as the key, so directory listings are
// the only index.
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

// SnapshotStore persists journal-year snapshots as {name}-{year}.json files.
type SnapshotStore struct {
	dir string
}

// NewSnapshotStore opens (and creates, if needed) the snapshot directory.
func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &SnapshotStore{dir: dir}, nil
}

// Keys lists the identity keys of all snapshots on disk, sorted.
func (s *SnapshotStore) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}

// Exists reports whether a snapshot with the given key is on disk.
func (s *SnapshotStore) Exists(key string) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}

// Save writes a snapshot under its identity key, replacing any previous file.
func (s *SnapshotStore) Save(snap *domain.JournalSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap.Key(), err)
	}
	if err := os.WriteFile(s.path(snap.Key()), data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", snap.Key(), err)
	}
	return nil
}

// Load reads one snapshot by key.
func (s *SnapshotStore) Load(key string) (*domain.JournalSnapshot, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewNotFoundError("snapshot", key)
		}
		return nil, fmt.Errorf("read snapshot %s: %w", key, err)
	}

	var snap domain.JournalSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", key, err)
	}
	return &snap, nil
}

// Delete removes a snapshot. Deleting a missing snapshot is a no-op.
func (s *SnapshotStore) Delete(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

// LoadItems flattens the items of every snapshot currently on disk, in key
// order. This is the raw material for the paper index.
func (s *SnapshotStore) LoadItems() ([]domain.SnapshotItem, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}

	var items []domain.SnapshotItem
	for _, key := range keys {
		snap, err := s.Load(key)
		if err != nil {
			return nil, err
		}
		items = append(items, snap.Items...)
	}
	return items, nil
}

func (s *SnapshotStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
