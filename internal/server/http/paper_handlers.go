package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/paperscroll/paper-scroll-service/internal/domain"
)

// paperWithStar decorates a paper with its starred flag for feed responses.
type paperWithStar struct {
	domain.Paper
	Starred bool `json:"starred"`
}

// getRandomPaper handles GET /api/v1/papers/random.
func (s *Server) getRandomPaper(w http.ResponseWriter, r *http.Request) {
	paper, err := s.buffer.Next(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paperWithStar{
		Paper:   *paper,
		Starred: s.stars.IsStarred(paper.DOI),
	})
}

// listStarredPapers handles GET /api/v1/papers/starred.
func (s *Server) listStarredPapers(w http.ResponseWriter, r *http.Request) {
	papers, err := s.stars.List()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Paper{"papers": papers})
}

// starPaper handles POST /api/v1/papers/star. The full paper record travels
// in the body so starring needs no further network round trip. Clients echo
// the document served by the feed, so the starred flag is accepted too.
func (s *Server) starPaper(w http.ResponseWriter, r *http.Request) {
	var body paperWithStar
	if err := decodeJSONBody(r, &body); err != nil {
		writeDomainError(w, err)
		return
	}
	if body.DOI == "" {
		writeDomainError(w, domain.NewValidationError("doi", "DOI is required"))
		return
	}

	if err := s.stars.Star(&body.Paper); err != nil {
		writeDomainError(w, err)
		return
	}
	s.metrics.RecordStarOperation("star")

	writeJSON(w, http.StatusCreated, map[string]bool{"starred": true})
}

// getStarState handles GET /api/v1/papers/star/{doi}. The DOI is the
// wildcard remainder of the path because DOIs contain slashes.
func (s *Server) getStarState(w http.ResponseWriter, r *http.Request) {
	doi := chi.URLParam(r, "*")
	if doi == "" {
		writeDomainError(w, domain.NewValidationError("doi", "DOI is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"starred": s.stars.IsStarred(doi)})
}

// unstarPaper handles DELETE /api/v1/papers/star/{doi}.
func (s *Server) unstarPaper(w http.ResponseWriter, r *http.Request) {
	doi := chi.URLParam(r, "*")
	if doi == "" {
		writeDomainError(w, domain.NewValidationError("doi", "DOI is required"))
		return
	}

	if err := s.stars.Unstar(doi); err != nil {
		writeDomainError(w, err)
		return
	}
	s.metrics.RecordStarOperation("unstar")

	writeJSON(w, http.StatusOK, map[string]bool{"starred": false})
}

// exportPaper handles POST /api/v1/papers/export. The paper in the body is
// pushed to the user's Zotero library using the credentials from settings.
// As with starring, the body may carry the served starred flag.
func (s *Server) exportPaper(w http.ResponseWriter, r *http.Request) {
	var body paperWithStar
	if err := decodeJSONBody(r, &body); err != nil {
		writeDomainError(w, err)
		return
	}
	if body.DOI == "" {
		writeDomainError(w, domain.NewValidationError("doi", "DOI is required"))
		return
	}

	settings := s.settings.Get()
	key, err := s.exporter.Export(r.Context(), &body.Paper, settings.ZoteroID, settings.ZoteroKey)
	s.metrics.RecordExport(err != nil)
	if err != nil {
		s.logger.Error().Err(err).Str("doi", body.DOI).Msg("export failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"item_key": key})
}
