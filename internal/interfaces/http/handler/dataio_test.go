package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdb/backend/internal/application/dataio"
	appparts "github.com/partdb/backend/internal/application/parts"
)

// upload posts a multipart form with the given fields and an optional file
func (a *testApp) upload(t *testing.T, path string, fields map[string]string, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func TestDataIOHandler_MassCreate(t *testing.T) {
	app := newTestApp(t)

	rec := app.upload(t, "/api/v1/categories/import", map[string]string{
		"text": "Passives -> Resistors\nPassives -> Capacitors\n\nActives",
	}, "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[dataio.ImportResult](t, rec)
	assert.Equal(t, 3, result.TotalRows)
	assert.Empty(t, result.Errors)

	rec = app.do(t, http.MethodGet, "/api/v1/categories/tree", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tree := decode[[]appparts.TreeNode](t, rec)
	require.Len(t, tree, 2)
}

func TestDataIOHandler_ExportStructural(t *testing.T) {
	app := newTestApp(t)
	app.category(t, "Connectors")

	rec := app.do(t, http.MethodGet, "/api/v1/categories/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	assert.Contains(t, rec.Body.String(), "Connectors")

	rec = app.do(t, http.MethodGet, "/api/v1/categories/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_FORMAT", errorCode(t, rec))
}

func TestDataIOHandler_ImportStructuralFile(t *testing.T) {
	app := newTestApp(t)

	rec := app.upload(t, "/api/v1/storage_locations/import", map[string]string{"comment": "initial setup"},
		"locations.json", `[{"name":"Cabinet"},{"name":"Drawer","comment":"left"}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[dataio.ImportResult](t, rec).ImportedRows)

	rec = app.upload(t, "/api/v1/storage_locations/import", nil, "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDataIOHandler_ExportParts(t *testing.T) {
	app := newTestApp(t)
	app.part(t, "1N4148", app.category(t, "Diodes"), 25)

	rec := app.do(t, http.MethodGet, "/api/v1/parts/export", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "1N4148")
}
