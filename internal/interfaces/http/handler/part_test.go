package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "github.com/partdb/backend/internal/application/logsystem"
	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/interfaces/http/dto"
)

func TestPartHandler_CreateAndGet(t *testing.T) {
	app := newTestApp(t)
	categoryID := app.category(t, "Resistors")

	rec := app.do(t, http.MethodPost, "/api/v1/parts", map[string]any{
		"name":        "10k 0603",
		"category_id": categoryID,
		"initial_lot": map[string]any{"amount": 100},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[appparts.PartResponse](t, rec)
	assert.Equal(t, "10k 0603", created.Name)
	assert.InDelta(t, 100, created.TotalAmount, 1e-9)

	rec = app.do(t, http.MethodGet, fmt.Sprintf("/api/v1/parts/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[appparts.PartResponse](t, rec)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, categoryID, got.CategoryID)
}

func TestPartHandler_CreateValidation(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/v1/parts", map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPartHandler_UnknownCategory(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/v1/parts", map[string]any{"name": "Orphan", "category_id": 999})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_CATEGORY", errorCode(t, rec))
}

func TestPartHandler_NotFound(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/v1/parts/4242", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/parts/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPartHandler_ListPaginates(t *testing.T) {
	app := newTestApp(t)
	categoryID := app.category(t, "Capacitors")
	for i := 0; i < 3; i++ {
		app.part(t, fmt.Sprintf("C%d", i), categoryID, 1)
	}

	rec := app.do(t, http.MethodGet, "/api/v1/parts?page=1&page_size=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp APIResponse[[]appparts.PartResponse]
	decodeInto(t, rec, &resp)
	assert.Len(t, resp.Data, 2)
	require.NotNil(t, resp.Meta)
	assert.EqualValues(t, 3, resp.Meta.Total)
}

func TestPartHandler_UpdateDeleteAndHistory(t *testing.T) {
	app := newTestApp(t)
	p := app.part(t, "LM358", app.category(t, "ICs"), 5)
	path := fmt.Sprintf("/api/v1/parts/%d", p.ID)

	rec := app.do(t, http.MethodPut, path, map[string]any{"description": "Dual op amp", "change_comment": "datasheet"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Dual op amp", decode[appparts.PartResponse](t, rec).Description)

	rec = app.do(t, http.MethodGet, path+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]applog.LogEntryResponse](t, rec)
	require.NotEmpty(t, history)
	types := make([]string, 0, len(history))
	for _, e := range history {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, "element_created")
	assert.Contains(t, types, "element_edited")

	rec = app.do(t, http.MethodDelete, path+"?comment=obsolete", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLotHandler_StockOperations(t *testing.T) {
	app := newTestApp(t)
	p := app.part(t, "BC547", app.category(t, "Transistors"), 10)
	require.Len(t, p.Lots, 1)
	lotPath := fmt.Sprintf("/api/v1/lots/%d", p.Lots[0].ID)

	rec := app.do(t, http.MethodPost, lotPath+"/withdraw", map[string]any{"amount": 4, "comment": "prototype"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 6, decode[appparts.LotResponse](t, rec).Amount, 1e-9)

	rec = app.do(t, http.MethodPost, lotPath+"/add", map[string]any{"amount": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 8, decode[appparts.LotResponse](t, rec).Amount, 1e-9)

	rec = app.do(t, http.MethodPost, lotPath+"/withdraw", map[string]any{"amount": 50})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, dto.ErrCodeInsufficientStock, errorCode(t, rec))

	rec = app.do(t, http.MethodPost, lotPath+"/withdraw", map[string]any{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLotHandler_CreateForPart(t *testing.T) {
	app := newTestApp(t)
	p := app.part(t, "NE555", app.category(t, "Timers"), 1)

	rec := app.do(t, http.MethodPost, fmt.Sprintf("/api/v1/parts/%d/lots", p.ID), map[string]any{"amount": 20, "description": "Reel"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, fmt.Sprintf("/api/v1/parts/%d/lots", p.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]appparts.LotResponse](t, rec), 2)
}
