package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	applog "github.com/partdb/backend/internal/application/logsystem"
	"github.com/partdb/backend/internal/domain/shared"
)

// LogHandler serves the event log, undo and time travel
type LogHandler struct {
	BaseHandler
	logService  *applog.LogService
	undoService *applog.UndoService
}

// NewLogHandler creates a new LogHandler
func NewLogHandler(logService *applog.LogService, undoService *applog.UndoService) *LogHandler {
	return &LogHandler{
		logService:  logService,
		undoService: undoService,
	}
}

// List handles GET /log
//
// @Summary      List log entries
// @Tags         log
// @Produce      json
// @Param        filter query applog.LogListFilter false "Filters"
// @Success      200 {object} dto.Response{data=[]applog.LogEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /log [get]
func (h *LogHandler) List(c *gin.Context) {
	var filter applog.LogListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)

	entries, total, err := h.logService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, entries, total, filter.Page, filter.PageSize)
}

// Get handles GET /log/:id
//
// @Summary      Get a log entry
// @Tags         log
// @Produce      json
// @Param        id path integer true "Element ID"
// @Success      200 {object} dto.Response{data=applog.LogEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /log/{id} [get]
func (h *LogHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	entry, err := h.logService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// Delete handles DELETE /log/:id
//
// @Summary      Delete a log entry
// @Tags         log
// @Produce      json
// @Param        id path integer true "Element ID"
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /log/{id} [delete]
func (h *LogHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	if err := h.logService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Undo handles POST /log/undo. The body selects either an entry to undo or
// an entry to revert its element to; undo wins when both are given.
//
// @Summary      Undo a change or revert an element
// @Tags         log
// @Accept       json
// @Produce      json
// @Param        request body applog.UndoRequest true "Request body"
// @Success      200 {object} dto.Response{data=applog.UndoResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /log/undo [post]
func (h *LogHandler) Undo(c *gin.Context) {
	var req applog.UndoRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Undo == 0 && req.Revert == 0 {
		h.BadRequest(c, "undo or revert is required")
		return
	}

	result, err := h.undoService.UndoRevert(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ElementAt handles GET /log/elements/:type/:id/at?timestamp=RFC3339. It
// returns the element as it was at that time.
//
// @Summary      Element state at a point in time
// @Tags         log
// @Produce      json
// @Param        type path string true "Element type"
// @Param        id path integer true "Element ID"
// @Param        timestamp query string false "RFC 3339 time"
// @Success      200 {object} dto.Response{data=applog.ElementStateResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /log/elements/{type}/{id}/at [get]
func (h *LogHandler) ElementAt(c *gin.Context) {
	t := shared.TargetType(c.Param("type"))
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	at := time.Now()
	if raw := c.Query("timestamp"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "Invalid timestamp, use RFC 3339")
			return
		}
		at = parsed
	}

	state, err := h.logService.ElementAt(c.Request.Context(), t, id, at)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, state)
}

// LastEditor handles GET /log/elements/:type/:id/last_editor
//
// @Summary      Last edit of an element
// @Tags         log
// @Produce      json
// @Param        type path string true "Element type"
// @Param        id path integer true "Element ID"
// @Success      200 {object} dto.Response{data=applog.LogEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /log/elements/{type}/{id}/last_editor [get]
func (h *LogHandler) LastEditor(c *gin.Context) {
	t := shared.TargetType(c.Param("type"))
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	entry, err := h.logService.LastEditor(c.Request.Context(), t, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}
