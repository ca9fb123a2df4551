package handler

import (
	"github.com/gin-gonic/gin"

	appparts "github.com/partdb/backend/internal/application/parts"
)

// OrderdetailHandler handles orderdetails and their price steps
type OrderdetailHandler struct {
	BaseHandler
	orderdetailService *appparts.OrderdetailService
}

// NewOrderdetailHandler creates a new OrderdetailHandler
func NewOrderdetailHandler(orderdetailService *appparts.OrderdetailService) *OrderdetailHandler {
	return &OrderdetailHandler{orderdetailService: orderdetailService}
}

// ListByPart handles GET /parts/:id/orderdetails
//
// @Summary      List orderdetails of a part
// @Tags         orderdetails
// @Produce      json
// @Param        id path integer true "Element ID"
// @Success      200 {object} dto.Response{data=[]appparts.OrderdetailResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /parts/{id}/orderdetails [get]
func (h *OrderdetailHandler) ListByPart(c *gin.Context) {
	partID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	ods, err := h.orderdetailService.ListByPart(c.Request.Context(), partID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ods)
}

// Create handles POST /parts/:id/orderdetails
//
// @Summary      Create an orderdetail
// @Tags         orderdetails
// @Accept       json
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        request body appparts.CreateOrderdetailRequest true "Request body"
// @Success      201 {object} dto.Response{data=appparts.OrderdetailResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /parts/{id}/orderdetails [post]
func (h *OrderdetailHandler) Create(c *gin.Context) {
	partID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req appparts.CreateOrderdetailRequest
	if !h.bindJSON(c, &req) {
		return
	}

	od, err := h.orderdetailService.Create(c.Request.Context(), partID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, od)
}

// Get handles GET /orderdetails/:id
//
// @Summary      Get an orderdetail
// @Tags         orderdetails
// @Produce      json
// @Param        id path integer true "Element ID"
// @Success      200 {object} dto.Response{data=appparts.OrderdetailResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orderdetails/{id} [get]
func (h *OrderdetailHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	od, err := h.orderdetailService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, od)
}

// Update handles PUT /orderdetails/:id
//
// @Summary      Update an orderdetail
// @Tags         orderdetails
// @Accept       json
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        request body appparts.UpdateOrderdetailRequest true "Request body"
// @Success      200 {object} dto.Response{data=appparts.OrderdetailResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orderdetails/{id} [put]
func (h *OrderdetailHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req appparts.UpdateOrderdetailRequest
	if !h.bindJSON(c, &req) {
		return
	}

	od, err := h.orderdetailService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, od)
}

// Delete handles DELETE /orderdetails/:id
//
// @Summary      Delete an orderdetail
// @Tags         orderdetails
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        comment query string false "Change comment for the log"
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orderdetails/{id} [delete]
func (h *OrderdetailHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	if err := h.orderdetailService.Delete(c.Request.Context(), id, deleteComment(c)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// AddPricedetail handles POST /orderdetails/:id/pricedetails
//
// @Summary      Add a price break
// @Tags         orderdetails
// @Accept       json
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        request body appparts.PricedetailRequest true "Request body"
// @Success      201 {object} dto.Response{data=pricing.Pricedetail}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orderdetails/{id}/pricedetails [post]
func (h *OrderdetailHandler) AddPricedetail(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req appparts.PricedetailRequest
	if !h.bindJSON(c, &req) {
		return
	}

	pd, err := h.orderdetailService.AddPricedetail(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, pd)
}

// UpdatePricedetail handles PUT /pricedetails/:id
//
// @Summary      Update a price break
// @Tags         orderdetails
// @Accept       json
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        request body appparts.PricedetailRequest true "Request body"
// @Success      200 {object} dto.Response{data=pricing.Pricedetail}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /pricedetails/{id} [put]
func (h *OrderdetailHandler) UpdatePricedetail(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req appparts.PricedetailRequest
	if !h.bindJSON(c, &req) {
		return
	}

	pd, err := h.orderdetailService.UpdatePricedetail(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, pd)
}

// DeletePricedetail handles DELETE /pricedetails/:id
//
// @Summary      Delete a price break
// @Tags         orderdetails
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        comment query string false "Change comment for the log"
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /pricedetails/{id} [delete]
func (h *OrderdetailHandler) DeletePricedetail(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	if err := h.orderdetailService.DeletePricedetail(c.Request.Context(), id, deleteComment(c)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
