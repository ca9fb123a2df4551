package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/partdb/backend/internal/application/tools"
)

// ToolsHandler serves the small helper tools
type ToolsHandler struct {
	BaseHandler
	statistics *tools.StatisticsService
}

// NewToolsHandler creates a new ToolsHandler
func NewToolsHandler(statistics *tools.StatisticsService) *ToolsHandler {
	return &ToolsHandler{statistics: statistics}
}

// ReelCalculator handles POST /tools/reel_calculator
//
// @Summary      Estimate parts left on a reel
// @Tags         tools
// @Accept       json
// @Produce      json
// @Param        request body tools.ReelInput true "Request body"
// @Success      200 {object} dto.Response{data=tools.ReelResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /tools/reel_calculator [post]
func (h *ToolsHandler) ReelCalculator(c *gin.Context) {
	var req tools.ReelInput
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := tools.CalculateReel(req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Statistics handles GET /tools/statistics
//
// @Summary      Inventory statistics
// @Tags         tools
// @Produce      json
// @Success      200 {object} dto.Response{data=tools.Statistics}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /tools/statistics [get]
func (h *ToolsHandler) Statistics(c *gin.Context) {
	stats, err := h.statistics.Collect(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}
