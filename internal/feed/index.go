// Package feed serves the endless stream of random papers. An Index holds the
// DOIs of every synced work; a Buffer prefetches fully resolved papers so a
// client swipe is answered from memory instead of waiting on the network.
package feed

import (
	"math/rand"

	"github.com/paperscroll/paper-scroll-service/internal/domain"
)

// FallbackDOI is served when no snapshots have been synced yet, so the feed
// always has at least one paper to show.
const FallbackDOI = "10.1038/s41586-020-2649-2"

// Index is an immutable set of candidate DOIs. A new Index is built after
// every sync and swapped into the buffer atomically; it is never empty.
type Index struct {
	dois []string
}

// NewIndex builds an index from snapshot items, dropping entries without a
// DOI. When nothing usable remains the index holds only FallbackDOI.
func NewIndex(items []domain.SnapshotItem) *Index {
	dois := make([]string, 0, len(items))
	for _, item := range items {
		if item.DOI == "" {
			continue
		}
		dois = append(dois, item.DOI)
	}
	if len(dois) == 0 {
		dois = []string{FallbackDOI}
	}
	return &Index{dois: dois}
}

// Len returns the number of candidate DOIs.
func (ix *Index) Len() int {
	return len(ix.dois)
}

// Random returns a uniformly random DOI from the index.
func (ix *Index) Random() string {
	return ix.dois[rand.Intn(len(ix.dois))]
}
