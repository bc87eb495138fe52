package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperscroll/paper-scroll-service/internal/domain"
)

func TestGetSettings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var settings domain.Settings
	decodeBody(t, rec, &settings)
	assert.Equal(t, domain.DefaultSettings(), settings)
}

func TestPatchSettings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/api/v1/config", map[string]interface{}{
		"text_size": 20,
		"end_year":  2023,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var settings domain.Settings
	decodeBody(t, rec, &settings)
	assert.Equal(t, 20, settings.TextSize)
	assert.Equal(t, 2023, settings.EndYear)

	// Untouched fields keep their values.
	assert.Equal(t, domain.DefaultSettings().StartYear, settings.StartYear)
	assert.Equal(t, domain.DefaultSettings().Journals, settings.Journals)
}

func TestPatchSettingsRejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/api/v1/config", map[string]interface{}{
		"font_size": 20,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Settings are untouched after a rejected patch.
	assert.Equal(t, domain.DefaultSettings(), env.settings.Get())
}

func TestPatchSettingsRejectsInvalidValues(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"end year before start year", map[string]interface{}{"end_year": 1999}},
		{"zero text size", map[string]interface{}{"text_size": 0}},
		{"malformed email", map[string]interface{}{"email": "not-an-email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPatch, "/api/v1/config", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAddJournal(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/journals", domain.Journal{
		Name: "qje",
		ISSN: "0033-5533",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var settings domain.Settings
	decodeBody(t, rec, &settings)
	require.Len(t, settings.Journals, 2)
	assert.Equal(t, "qje", settings.Journals[1].Name)
}

func TestAddJournalDuplicateIsNoOp(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/journals", domain.Journal{
		Name: "aer",
		ISSN: "0002-8282",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var settings domain.Settings
	decodeBody(t, rec, &settings)
	assert.Len(t, settings.Journals, 1)
}

func TestAddJournalRejectsInvalidISSN(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/journals", domain.Journal{
		Name: "bogus",
		ISSN: "not-an-issn",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveJournal(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/api/v1/journals/0002-8282", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var settings domain.Settings
	decodeBody(t, rec, &settings)
	assert.Empty(t, settings.Journals)
}

func TestRemoveJournalNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/api/v1/journals/0033-5533", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartSync(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.items["0002-8282-2021"] = []domain.SnapshotItem{
		{DOI: "10.1257/aer.1"},
		{DOI: "10.1257/aer.2"},
	}

	rec := env.do(t, http.MethodPost, "/api/v1/journals/sync", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "Sync started.", body["message"])

	require.Eventually(t, func() bool {
		return env.syncer.Status().Message == "All journals updated."
	}, 5*time.Second, 10*time.Millisecond)

	assert.True(t, env.snapshots.Exists("aer-2021"))
}

func TestStartSyncConflict(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.block = make(chan struct{})

	rec := env.do(t, http.MethodPost, "/api/v1/journals/sync", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	// The reservation is taken before the 202 is written, so a second
	// request conflicts immediately, with no window to slip through.
	rec = env.do(t, http.MethodPost, "/api/v1/journals/sync", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(env.catalog.block)
	require.Eventually(t, func() bool {
		return !env.syncer.Running()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestGetStatusIdle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Message  string  `json:"message"`
		Progress float64 `json:"progress"`
	}
	decodeBody(t, rec, &status)
	assert.Equal(t, "Idle.", status.Message)
	assert.Equal(t, 1.0, status.Progress)
}
