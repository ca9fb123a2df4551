package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appparts "github.com/partdb/backend/internal/application/parts"
)

// LotHandler handles part lot endpoints and stock operations
type LotHandler struct {
	BaseHandler
	lotService *appparts.LotService
}

// NewLotHandler creates a new LotHandler
func NewLotHandler(lotService *appparts.LotService) *LotHandler {
	return &LotHandler{lotService: lotService}
}

// ListByPart handles GET /parts/:id/lots
//
// @Summary      List lots of a part
// @Tags         lots
// @Produce      json
// @Param        id path integer true "Element ID"
// @Success      200 {object} dto.Response{data=[]appparts.LotResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /parts/{id}/lots [get]
func (h *LotHandler) ListByPart(c *gin.Context) {
	partID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	lots, err := h.lotService.ListByPart(c.Request.Context(), partID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, lots)
}

// Create handles POST /parts/:id/lots
//
// @Summary      Create a lot
// @Tags         lots
// @Accept       json
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        request body appparts.CreateLotRequest true "Request body"
// @Success      201 {object} dto.Response{data=appparts.LotResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /parts/{id}/lots [post]
func (h *LotHandler) Create(c *gin.Context) {
	partID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req appparts.CreateLotRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lot, err := h.lotService.Create(c.Request.Context(), partID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, lot)
}

// Get handles GET /lots/:id
//
// @Summary      Get a lot
// @Tags         lots
// @Produce      json
// @Param        id path integer true "Element ID"
// @Success      200 {object} dto.Response{data=appparts.LotResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /lots/{id} [get]
func (h *LotHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	lot, err := h.lotService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, lot)
}

// Update handles PUT /lots/:id
//
// @Summary      Update a lot
// @Tags         lots
// @Accept       json
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        request body appparts.UpdateLotRequest true "Request body"
// @Success      200 {object} dto.Response{data=appparts.LotResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /lots/{id} [put]
func (h *LotHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req appparts.UpdateLotRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lot, err := h.lotService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, lot)
}

// Delete handles DELETE /lots/:id
//
// @Summary      Delete a lot
// @Tags         lots
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        comment query string false "Change comment for the log"
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /lots/{id} [delete]
func (h *LotHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	if err := h.lotService.Delete(c.Request.Context(), id, deleteComment(c)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Add handles POST /lots/:id/add
//
// @Summary      Add stock
// @Tags         lots
// @Accept       json
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        request body appparts.StockRequest true "Request body"
// @Success      200 {object} dto.Response{data=appparts.LotResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /lots/{id}/add [post]
func (h *LotHandler) Add(c *gin.Context) {
	h.stock(c, h.lotService.Add)
}

// Withdraw handles POST /lots/:id/withdraw. The lot is removed when it runs
// empty and delete_lot_if_empty is set; the response data is then null.
//
// @Summary      Withdraw stock
// @Tags         lots
// @Accept       json
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        request body appparts.StockRequest true "Request body"
// @Success      200 {object} dto.Response{data=appparts.LotResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /lots/{id}/withdraw [post]
func (h *LotHandler) Withdraw(c *gin.Context) {
	h.stock(c, h.lotService.Withdraw)
}

func (h *LotHandler) stock(c *gin.Context, op func(ctx context.Context, id uint, req appparts.StockRequest) (*appparts.LotResponse, error)) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req appparts.StockRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lot, err := op(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, lot)
}

// Move handles POST /lots/:id/move
//
// @Summary      Move stock to another lot
// @Tags         lots
// @Accept       json
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        request body appparts.MoveRequest true "Request body"
// @Success      200 {object} dto.Response{data=appparts.LotResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /lots/{id}/move [post]
func (h *LotHandler) Move(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req appparts.MoveRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lot, err := h.lotService.Move(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, lot)
}
