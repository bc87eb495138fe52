// Package syncer reconciles the on-disk journal snapshots with the configured
// journal list and sync window, fetching missing journal-year snapshots from
// the catalog one at a time.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paperscroll/paper-scroll-service/internal/domain"
	"github.com/paperscroll/paper-scroll-service/internal/observability"
)

// CatalogClient lists the works a journal published in a given year.
type CatalogClient interface {
	JournalYear(ctx context.Context, issn string, year int) ([]domain.SnapshotItem, error)
}

// Store is the snapshot persistence the syncer drives.
type Store interface {
	Keys() ([]string, error)
	Exists(key string) bool
	Save(snap *domain.JournalSnapshot) error
	Delete(key string) error
}

// Status is a point-in-time view of sync progress, consumed by the status
// endpoint and the progress stream.
type Status struct {
	// Message describes the most recent step in a user-facing sentence.
	Message string `json:"message"`

	// Progress runs from 0 to 1; 1 means no sync is in flight.
	Progress float64 `json:"progress"`
}

// Syncer runs at most one sync at a time and publishes its progress. A sync
// has two passes: reconciliation deletes snapshots that no longer match the
// configuration, then the fetch pass fills in every missing journal-year
// combination.
type Syncer struct {
	store   Store
	catalog CatalogClient
	logger  zerolog.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	status  Status
	running bool
}

// New creates a syncer. The initial status reports an idle service.
func New(store Store, catalog CatalogClient, logger zerolog.Logger, metrics *observability.Metrics) *Syncer {
	return &Syncer{
		store:   store,
		catalog: catalog,
		logger:  logger.With().Str("component", "syncer").Logger(),
		metrics: metrics,
		status:  Status{Message: "Idle.", Progress: 1},
	}
}

// Status returns the current sync status.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Running reports whether a sync is in flight.
func (s *Syncer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Syncer) setStatus(message string, progress float64) {
	s.mu.Lock()
	s.status = Status{Message: message, Progress: progress}
	s.mu.Unlock()
}

// Begin reserves the syncer for a single run, failing when one is already in
// flight. Callers that acknowledge a sync before running it call Begin
// synchronously and Run in the background; the reservation is released when
// Run returns.
func (s *Syncer) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return domain.ErrSyncInProgress
	}
	s.running = true
	s.status = Status{Message: "Sync started.", Progress: 0}
	return nil
}

func (s *Syncer) end() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Sync brings the snapshot directory in line with the configured journals and
// window. Only one sync runs at a time; a concurrent call fails with
// ErrSyncInProgress. The fetch pass aborts on the first catalog error,
// leaving already-written snapshots in place.
func (s *Syncer) Sync(ctx context.Context, window domain.SyncWindow, journals []domain.Journal) error {
	if err := window.Validate(); err != nil {
		return err
	}
	if err := s.Begin(); err != nil {
		return err
	}
	return s.Run(ctx, window, journals)
}

// Run executes a pass previously reserved with Begin and releases the
// reservation when it returns. The window must already be validated.
func (s *Syncer) Run(ctx context.Context, window domain.SyncWindow, journals []domain.Journal) error {
	defer s.end()

	runID := uuid.NewString()
	logger := s.logger.With().Str("sync_run_id", runID).Logger()
	started := time.Now()
	s.metrics.RecordSyncStarted()
	logger.Info().
		Int("start_year", window.StartYear).
		Int("end_year", window.EndYear).
		Int("journals", len(journals)).
		Msg("sync started")

	if err := s.reconcile(logger, window, journals); err != nil {
		s.metrics.RecordSyncFailed(time.Since(started).Seconds())
		s.setStatus(fmt.Sprintf("Sync failed: %v", err), 1)
		return err
	}

	if err := s.fetchMissing(ctx, logger, window, journals); err != nil {
		s.metrics.RecordSyncFailed(time.Since(started).Seconds())
		s.setStatus(fmt.Sprintf("Sync failed: %v", err), 1)
		return err
	}

	s.metrics.RecordSyncCompleted(time.Since(started).Seconds())
	logger.Info().Dur("duration", time.Since(started)).Msg("sync completed")
	return nil
}

// reconcile deletes snapshots whose journal is no longer configured, whose
// year falls outside the window, or whose filename cannot be parsed.
func (s *Syncer) reconcile(logger zerolog.Logger, window domain.SyncWindow, journals []domain.Journal) error {
	keys, err := s.store.Keys()
	if err != nil {
		return fmt.Errorf("listing snapshots: %w", err)
	}

	configured := make(map[string]bool, len(journals))
	for _, journal := range journals {
		configured[journal.Name] = true
	}

	for _, key := range keys {
		name, year, err := domain.ParseSnapshotKey(key)
		stale := err != nil || !configured[name] || !window.Contains(year)
		if !stale {
			continue
		}
		if err := s.store.Delete(key); err != nil {
			return fmt.Errorf("deleting stale snapshot %s: %w", key, err)
		}
		s.metrics.RecordSnapshotDeleted()
		logger.Info().Str("snapshot", key).Msg("stale snapshot deleted")
	}
	return nil
}

// fetchMissing walks the journal x year cross product and fetches every
// combination without a snapshot on disk. Progress counts all combinations,
// but only actual fetches update the status message; skips advance silently.
func (s *Syncer) fetchMissing(ctx context.Context, logger zerolog.Logger, window domain.SyncWindow, journals []domain.Journal) error {
	years := window.Years()
	total := len(journals) * len(years)
	if total == 0 {
		s.setStatus("No journals configured.", 1)
		return nil
	}

	done := 0
	for _, journal := range journals {
		for _, year := range years {
			done++
			key := domain.SnapshotKey(journal.Name, year)
			if s.store.Exists(key) {
				continue
			}

			jlog := observability.WithSyncContext(logger, journal.Name, year)
			items, err := s.catalog.JournalYear(ctx, journal.ISSN, year)
			if err != nil {
				jlog.Error().Err(err).Msg("journal fetch failed")
				return fmt.Errorf("fetching %s %d: %w", journal.Name, year, err)
			}

			snap := &domain.JournalSnapshot{
				ISSN:  journal.ISSN,
				Name:  journal.Name,
				Year:  year,
				Items: items,
			}
			if err := s.store.Save(snap); err != nil {
				return fmt.Errorf("saving snapshot %s: %w", key, err)
			}

			s.metrics.RecordSnapshotFetched(len(items))
			jlog.Info().Int("items", len(items)).Msg("snapshot fetched")
			s.setStatus(
				fmt.Sprintf("Fetched %d papers for %s in %d.", len(items), journal.Name, year),
				float64(done)/float64(total))
		}
	}

	s.setStatus("All journals updated.", 1)
	return nil
}
