package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SnapshotItem is one entry of a journal snapshot. Only the DOI survives
// snapshotting; everything else the catalog API returns is discarded and
// re-fetched lazily at resolution time.
type SnapshotItem struct {
	DOI string `json:"DOI"`
}

// JournalSnapshot is the persisted record of all paper identifiers published
// by one journal in one year. Snapshots are immutable once written; the
// syncer deletes and re-derives them, never mutates them in place.
type JournalSnapshot struct {
	ISSN  string         `json:"issn"`
	Name  string         `json:"name"`
	Year  int            `json:"year"`
	Items []SnapshotItem `json:"items"`
}

// Key returns the snapshot identity key, "{name}-{year}".
func (s *JournalSnapshot) Key() string {
	return SnapshotKey(s.Name, s.Year)
}

// SnapshotKey builds the identity key for a (journal name, year) pair.
func SnapshotKey(name string, year int) string {
	return fmt.Sprintf("%s-%d", name, year)
}

// ParseSnapshotKey splits a snapshot key back into journal name and year.
// Journal names may themselves contain hyphens, so the year is taken from the
// segment after the last hyphen.
func ParseSnapshotKey(key string) (name string, year int, err error) {
	idx := strings.LastIndex(key, "-")
	if idx <= 0 {
		return "", 0, fmt.Errorf("snapshot key %q: %w", key, ErrInvalidInput)
	}
	year, convErr := strconv.Atoi(key[idx+1:])
	if convErr != nil {
		return "", 0, fmt.Errorf("snapshot key %q has no parseable year: %w", key, ErrInvalidInput)
	}
	return key[:idx], year, nil
}

// SyncWindow is the inclusive range of publication years to keep in sync.
type SyncWindow struct {
	StartYear int
	EndYear   int
}

// Validate checks the window invariant.
func (w SyncWindow) Validate() error {
	if w.StartYear > w.EndYear {
		return NewValidationError("start_year", fmt.Sprintf("must be <= end_year (%d > %d)", w.StartYear, w.EndYear))
	}
	return nil
}

// Contains reports whether the year falls inside the window.
func (w SyncWindow) Contains(year int) bool {
	return year >= w.StartYear && year <= w.EndYear
}

// Years returns the years of the window in ascending order.
func (w SyncWindow) Years() []int {
	if w.StartYear > w.EndYear {
		return nil
	}
	years := make([]int, 0, w.EndYear-w.StartYear+1)
	for y := w.StartYear; y <= w.EndYear; y++ {
		years = append(years, y)
	}
	return years
}
