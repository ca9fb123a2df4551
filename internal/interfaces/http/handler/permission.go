package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/partdb/backend/internal/application/identity"
)

// PermissionHandler reads and changes the permissions of users and groups
type PermissionHandler struct {
	BaseHandler
	permissionService *identity.PermissionService
}

// NewPermissionHandler creates a new PermissionHandler
func NewPermissionHandler(permissionService *identity.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService}
}

// Schema handles GET /permissions/schema
//
// @Summary      Permission schema
// @Tags         permissions
// @Produce      json
// @Success      200 {object} dto.Response{data=object}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /permissions/schema [get]
func (h *PermissionHandler) Schema(c *gin.Context) {
	h.Success(c, h.permissionService.Schema())
}

// GetUserPermissions handles GET /users/:id/permissions. It returns the
// effective values after group inheritance.
//
// @Summary      Effective permissions of a user
// @Tags         permissions
// @Produce      json
// @Param        id path integer true "Element ID"
// @Success      200 {object} dto.Response{data=identity.ResolvedPermissions}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users/{id}/permissions [get]
func (h *PermissionHandler) GetUserPermissions(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	resolved, err := h.permissionService.Resolved(c.Request.Context(), &id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resolved)
}

// SetUserPermissions handles PUT /users/:id/permissions
//
// @Summary      Set permissions of a user
// @Tags         permissions
// @Accept       json
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        request body identity.SetPermissionsInput true "Request body"
// @Success      200 {object} dto.Response{data=identity.ResolvedPermissions}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /users/{id}/permissions [put]
func (h *PermissionHandler) SetUserPermissions(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req identity.SetPermissionsInput
	if !h.bindJSON(c, &req) {
		return
	}

	if _, err := h.permissionService.SetUserPermissions(c.Request.Context(), id, req.Changes, req.Comment); err != nil {
		h.HandleError(c, err)
		return
	}

	resolved, err := h.permissionService.Resolved(c.Request.Context(), &id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resolved)
}

// SetGroupPermissions handles PUT /groups/:id/permissions
//
// @Summary      Set permissions of a group
// @Tags         permissions
// @Accept       json
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        request body identity.SetPermissionsInput true "Request body"
// @Success      200 {object} dto.Response{data=object}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /groups/{id}/permissions [put]
func (h *PermissionHandler) SetGroupPermissions(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req identity.SetPermissionsInput
	if !h.bindJSON(c, &req) {
		return
	}

	group, err := h.permissionService.SetGroupPermissions(c.Request.Context(), id, req.Changes, req.Comment)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, group)
}
