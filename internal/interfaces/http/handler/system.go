package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/partdb/backend/internal/application/tools"
	"github.com/partdb/backend/internal/interfaces/http/dto"
)

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	serverInfo *tools.ServerInfoService
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(serverInfo *tools.ServerInfoService) *SystemHandler {
	return &SystemHandler{serverInfo: serverInfo}
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// GetSystemInfo handles GET /system/info. It reports version, database
// driver, storage backend and the active info providers.
//
// @Summary      Server information
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=tools.ServerInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, h.serverInfo.Info())
}

// Ping handles GET /system/ping
//
// @Summary      Liveness check
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=PingResponse}
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	response := PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}
