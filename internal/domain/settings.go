package domain

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Journal is one configured journal. Journals are owned by user settings and
// read-only to the sync/feed core.
type Journal struct {
	Name string `json:"name" validate:"required"`
	ISSN string `json:"issn" validate:"required,issn"`
}

// Settings is the user-mutable runtime configuration, persisted as
// config.json under the storage root. It is distinct from the service
// configuration loaded at startup.
type Settings struct {
	StartYear int       `json:"start_year" validate:"gte=1500,lte=2100"`
	EndYear   int       `json:"end_year" validate:"gte=1500,lte=2100,gtefield=StartYear"`
	TextSize  int       `json:"text_size" validate:"gt=0"`
	Email     string    `json:"email" validate:"omitempty,email"`
	ZoteroKey string    `json:"zotero_key"`
	ZoteroID  string    `json:"zotero_id"`
	Journals  []Journal `json:"journals" validate:"dive"`
}

// SettingsUpdate is a by-field update of Settings. Nil fields are left
// untouched; unknown JSON fields are rejected at the decoding layer.
type SettingsUpdate struct {
	StartYear *int       `json:"start_year"`
	EndYear   *int       `json:"end_year"`
	TextSize  *int       `json:"text_size"`
	Email     *string    `json:"email"`
	ZoteroKey *string    `json:"zotero_key"`
	ZoteroID  *string    `json:"zotero_id"`
	Journals  *[]Journal `json:"journals"`
}

// DefaultSettings returns the settings written on first start.
func DefaultSettings() Settings {
	return Settings{
		StartYear: 2021,
		EndYear:   2021,
		TextSize:  16,
		Journals: []Journal{
			{Name: "aer", ISSN: "0002-8282"},
		},
	}
}

// Apply merges the non-nil fields of the update into the settings.
func (s *Settings) Apply(u SettingsUpdate) {
	if u.StartYear != nil {
		s.StartYear = *u.StartYear
	}
	if u.EndYear != nil {
		s.EndYear = *u.EndYear
	}
	if u.TextSize != nil {
		s.TextSize = *u.TextSize
	}
	if u.Email != nil {
		s.Email = *u.Email
	}
	if u.ZoteroKey != nil {
		s.ZoteroKey = *u.ZoteroKey
	}
	if u.ZoteroID != nil {
		s.ZoteroID = *u.ZoteroID
	}
	if u.Journals != nil {
		s.Journals = *u.Journals
	}
}

// Window returns the sync window described by the settings.
func (s *Settings) Window() SyncWindow {
	return SyncWindow{StartYear: s.StartYear, EndYear: s.EndYear}
}

// AddJournal appends a journal unless one with the same ISSN already exists.
func (s *Settings) AddJournal(j Journal) {
	for _, existing := range s.Journals {
		if existing.ISSN == j.ISSN {
			return
		}
	}
	s.Journals = append(s.Journals, j)
}

// RemoveJournal drops the journal with the given ISSN, if present.
func (s *Settings) RemoveJournal(issn string) {
	kept := s.Journals[:0]
	for _, j := range s.Journals {
		if j.ISSN != issn {
			kept = append(kept, j)
		}
	}
	s.Journals = kept
}

var issnPattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{3}[0-9xX]$`)

// NewValidator returns a validator with the custom "issn" format rule
// registered. The same instance is shared by the HTTP layer and the settings
// store.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// RegisterValidation only errors on an empty tag name.
	_ = v.RegisterValidation("issn", func(fl validator.FieldLevel) bool {
		return issnPattern.MatchString(fl.Field().String())
	})
	return v
}
