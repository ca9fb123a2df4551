package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "github.com/partdb/backend/internal/application/logsystem"
	appparts "github.com/partdb/backend/internal/application/parts"
)

func findEntry(t *testing.T, entries []applog.LogEntryResponse, typ string) applog.LogEntryResponse {
	t.Helper()
	for _, e := range entries {
		if e.Type == typ {
			return e
		}
	}
	t.Fatalf("no %s entry in %d entries", typ, len(entries))
	return applog.LogEntryResponse{}
}

func TestLogHandler_ListFiltersByTarget(t *testing.T) {
	app := newTestApp(t)
	p := app.part(t, "ATmega328P", app.category(t, "MCUs"), 3)

	rec := app.do(t, http.MethodGet, fmt.Sprintf("/api/v1/log?target_type=part&target_id=%d", p.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entries := decode[[]applog.LogEntryResponse](t, rec)
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Equal(t, "part", e.TargetType)
		assert.Equal(t, p.ID, e.TargetID)
	}
	created := findEntry(t, entries, "element_created")
	assert.Equal(t, "tester", created.Username)

	rec = app.do(t, http.MethodGet, fmt.Sprintf("/api/v1/log/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[applog.LogEntryResponse](t, rec).ID)
}

func TestLogHandler_UndoEdit(t *testing.T) {
	app := newTestApp(t)
	p := app.part(t, "TL431", app.category(t, "References"), 0)
	partPath := fmt.Sprintf("/api/v1/parts/%d", p.ID)

	rec := app.do(t, http.MethodPut, partPath, map[string]any{"description": "Shunt regulator"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, partPath+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	edit := findEntry(t, decode[[]applog.LogEntryResponse](t, rec), "element_edited")
	require.True(t, edit.Undoable)

	rec = app.do(t, http.MethodPost, "/api/v1/log/undo", map[string]any{"undo": edit.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[applog.UndoResponse](t, rec)
	assert.Equal(t, "undo", result.Mode)
	assert.Equal(t, edit.ID, result.LogID)

	rec = app.do(t, http.MethodGet, partPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[appparts.PartResponse](t, rec).Description)
}

func TestLogHandler_UndoNeedsTarget(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/v1/log/undo", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogHandler_ElementAt(t *testing.T) {
	app := newTestApp(t)
	id := app.category(t, "Old name")

	rec := app.do(t, http.MethodPut, fmt.Sprintf("/api/v1/categories/%d", id), map[string]any{"name": "New name"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, fmt.Sprintf("/api/v1/log/elements/category/%d/at", id), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "New name", decode[applog.ElementStateResponse](t, rec).Data["name"])

	rec = app.do(t, http.MethodGet, fmt.Sprintf("/api/v1/log/elements/category/%d/at?timestamp=%s", id,
		url.QueryEscape("yesterday")), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, fmt.Sprintf("/api/v1/log/elements/category/%d/last_editor", id), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "tester", decode[applog.LogEntryResponse](t, rec).Username)
}
