package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/paperscroll/paper-scroll-service/internal/domain"
	"github.com/paperscroll/paper-scroll-service/internal/feed"
)

// getSettings handles GET /api/v1/config.
func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Get())
}

// patchSettings handles PATCH /api/v1/config. Only the fields present in the
// body change; unknown fields are rejected.
func (s *Server) patchSettings(w http.ResponseWriter, r *http.Request) {
	var update domain.SettingsUpdate
	if err := decodeJSONBody(r, &update); err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := s.settings.Update(func(settings *domain.Settings) error {
		settings.Apply(update)
		if verr := s.validate.Struct(settings); verr != nil {
			return domain.NewValidationError("settings", validationMessage(verr))
		}
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// addJournal handles POST /api/v1/journals. Adding a journal whose ISSN is
// already configured is a no-op.
func (s *Server) addJournal(w http.ResponseWriter, r *http.Request) {
	var journal domain.Journal
	if err := decodeJSONBody(r, &journal); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.validate.Struct(journal); err != nil {
		writeDomainError(w, domain.NewValidationError("journal", validationMessage(err)))
		return
	}

	updated, err := s.settings.Update(func(settings *domain.Settings) error {
		settings.AddJournal(journal)
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, updated)
}

// removeJournal handles DELETE /api/v1/journals/{issn}.
func (s *Server) removeJournal(w http.ResponseWriter, r *http.Request) {
	issn := chi.URLParam(r, "issn")

	updated, err := s.settings.Update(func(settings *domain.Settings) error {
		found := false
		for _, j := range settings.Journals {
			if j.ISSN == issn {
				found = true
				break
			}
		}
		if !found {
			return domain.NewNotFoundError("journal", issn)
		}
		settings.RemoveJournal(issn)
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// startSync handles POST /api/v1/journals/sync. The sync runs in the
// background; progress is available from the status endpoint and the
// progress stream. The reservation happens before the 202, so concurrent
// requests cannot both be told the sync is theirs.
func (s *Server) startSync(w http.ResponseWriter, r *http.Request) {
	settings := s.settings.Get()
	if err := settings.Window().Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.syncer.Begin(); err != nil {
		writeDomainError(w, err)
		return
	}

	go func() {
		if err := s.syncer.Run(s.baseCtx, settings.Window(), settings.Journals); err != nil {
			s.logger.Error().Err(err).Msg("background sync failed")
			return
		}
		if rerr := s.reloadIndex(); rerr != nil {
			s.logger.Error().Err(rerr).Msg("rebuilding paper index failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "Sync started.",
	})
}

// getStatus handles GET /api/v1/status.
func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.syncer.Status())
}

// reloadIndex rebuilds the paper index from the snapshots on disk and swaps
// it into the feed buffer.
func (s *Server) reloadIndex() error {
	items, err := s.snapshots.LoadItems()
	if err != nil {
		return err
	}
	index := feed.NewIndex(items)
	s.buffer.SetIndex(index)
	s.logger.Info().Int("dois", index.Len()).Msg("paper index rebuilt")
	return nil
}
