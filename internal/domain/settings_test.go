package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, 2021, s.StartYear)
	assert.Equal(t, 2021, s.EndYear)
	assert.Equal(t, 16, s.TextSize)
	require.Len(t, s.Journals, 1)
	assert.Equal(t, "aer", s.Journals[0].Name)
	assert.Equal(t, "0002-8282", s.Journals[0].ISSN)
}

func TestSettingsApply(t *testing.T) {
	s := DefaultSettings()

	start := 2019
	email := "reader@example.com"
	s.Apply(SettingsUpdate{StartYear: &start, Email: &email})

	assert.Equal(t, 2019, s.StartYear)
	assert.Equal(t, "reader@example.com", s.Email)
	// Untouched fields keep their values.
	assert.Equal(t, 2021, s.EndYear)
	assert.Equal(t, 16, s.TextSize)
}

func TestAddJournalDeduplicatesByISSN(t *testing.T) {
	s := DefaultSettings()

	s.AddJournal(Journal{Name: "qje", ISSN: "0033-5533"})
	s.AddJournal(Journal{Name: "qje again", ISSN: "0033-5533"})

	require.Len(t, s.Journals, 2)
	assert.Equal(t, "qje", s.Journals[1].Name)
}

func TestRemoveJournal(t *testing.T) {
	s := DefaultSettings()
	s.AddJournal(Journal{Name: "qje", ISSN: "0033-5533"})

	s.RemoveJournal("0002-8282")

	require.Len(t, s.Journals, 1)
	assert.Equal(t, "qje", s.Journals[0].Name)

	// Removing an unknown ISSN is a no-op.
	s.RemoveJournal("9999-9999")
	assert.Len(t, s.Journals, 1)
}

func TestValidatorISSNRule(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Struct(Journal{Name: "aer", ISSN: "0002-8282"}))
	assert.NoError(t, v.Struct(Journal{Name: "x", ISSN: "2049-363X"}))
	assert.Error(t, v.Struct(Journal{Name: "bad", ISSN: "00028282"}))
	assert.Error(t, v.Struct(Journal{Name: "bad", ISSN: "0002-828"}))
	assert.Error(t, v.Struct(Journal{Name: "", ISSN: "0002-8282"}))
}

func TestValidatorSettings(t *testing.T) {
	v := NewValidator()

	s := DefaultSettings()
	assert.NoError(t, v.Struct(s))

	s.EndYear = s.StartYear - 1
	assert.Error(t, v.Struct(s))

	s = DefaultSettings()
	s.TextSize = 0
	assert.Error(t, v.Struct(s))

	s = DefaultSettings()
	s.Email = "not-an-email"
	assert.Error(t, v.Struct(s))
}
