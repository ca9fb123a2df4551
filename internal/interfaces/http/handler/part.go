package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	applog "github.com/partdb/backend/internal/application/logsystem"
	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/domain/shared"
)

// PartHandler handles part endpoints
type PartHandler struct {
	BaseHandler
	partService *appparts.PartService
	logService  *applog.LogService
}

// NewPartHandler creates a new PartHandler
func NewPartHandler(partService *appparts.PartService, logService *applog.LogService) *PartHandler {
	return &PartHandler{
		partService: partService,
		logService:  logService,
	}
}

// List handles GET /parts
//
// @Summary      List parts
// @Tags         parts
// @Produce      json
// @Param        filter query appparts.PartListFilter false "Filters"
// @Success      200 {object} dto.Response{data=[]appparts.PartResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /parts [get]
func (h *PartHandler) List(c *gin.Context) {
	var filter appparts.PartListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)

	items, total, err := h.partService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Get handles GET /parts/:id
//
// @Summary      Get a part
// @Tags         parts
// @Produce      json
// @Param        id path integer true "Element ID"
// @Success      200 {object} dto.Response{data=appparts.PartResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /parts/{id} [get]
func (h *PartHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	part, err := h.partService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, part)
}

// Create handles POST /parts. An initial lot can be created along with the part.
//
// @Summary      Create a part
// @Tags         parts
// @Accept       json
// @Produce      json
// @Param        request body appparts.CreatePartRequest true "Request body"
// @Success      201 {object} dto.Response{data=appparts.PartResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /parts [post]
func (h *PartHandler) Create(c *gin.Context) {
	var req appparts.CreatePartRequest
	if !h.bindJSON(c, &req) {
		return
	}

	part, err := h.partService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, part)
}

// Update handles PUT /parts/:id
//
// @Summary      Update a part
// @Tags         parts
// @Accept       json
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        request body appparts.UpdatePartRequest true "Request body"
// @Success      200 {object} dto.Response{data=appparts.PartResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /parts/{id} [put]
func (h *PartHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req appparts.UpdatePartRequest
	if !h.bindJSON(c, &req) {
		return
	}

	part, err := h.partService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, part)
}

// Delete handles DELETE /parts/:id
//
// @Summary      Delete a part
// @Tags         parts
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        comment query string false "Change comment for the log"
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /parts/{id} [delete]
func (h *PartHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	if err := h.partService.Delete(c.Request.Context(), id, deleteComment(c)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// AveragePriceResponse is the mean unit price of a part
type AveragePriceResponse struct {
	Quantity     decimal.Decimal  `json:"quantity"`
	AveragePrice *decimal.Decimal `json:"average_price"`
}

// AveragePrice handles GET /parts/:id/price?quantity=N
//
// @Summary      Average unit price
// @Tags         parts
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        quantity query number false "Order quantity"
// @Success      200 {object} dto.Response{data=AveragePriceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /parts/{id}/price [get]
func (h *PartHandler) AveragePrice(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	quantity, err := queryDecimal(c, "quantity", decimal.NewFromInt(1))
	if err != nil || !quantity.IsPositive() {
		h.BadRequest(c, "Invalid quantity")
		return
	}

	price, err := h.partService.AveragePrice(c.Request.Context(), id, quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, AveragePriceResponse{Quantity: quantity, AveragePrice: price})
}

// History handles GET /parts/:id/history
//
// @Summary      Log entries of a part
// @Tags         parts
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        page query integer false "Page number"
// @Param        page_size query integer false "Page size"
// @Success      200 {object} dto.Response{data=[]applog.LogEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /parts/{id}/history [get]
func (h *PartHandler) History(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	writeHistory(c, &h.BaseHandler, h.logService, shared.TargetPart, id)
}

// writeHistory answers with the paginated log entries of one element
func writeHistory(c *gin.Context, h *BaseHandler, logs *applog.LogService, t shared.TargetType, id uint) {
	var q pageQuery
	if !h.bindQuery(c, &q) {
		return
	}
	q.Page, q.PageSize = normalizePage(q.Page, q.PageSize)

	entries, total, err := logs.History(c.Request.Context(), t, id, q.Page, q.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, entries, total, q.Page, q.PageSize)
}
