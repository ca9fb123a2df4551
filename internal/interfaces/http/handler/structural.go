package handler

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	applog "github.com/partdb/backend/internal/application/logsystem"
	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/domain/shared"
)

// StructuralRoutes maps the URL segment of each structural kind to its type
var StructuralRoutes = map[string]shared.TargetType{
	"categories":        shared.TargetCategory,
	"storage_locations": shared.TargetStorageLocation,
	"footprints":        shared.TargetFootprint,
	"manufacturers":     shared.TargetManufacturer,
	"suppliers":         shared.TargetSupplier,
	"measurement_units": shared.TargetMeasurementUnit,
	"currencies":        shared.TargetCurrency,
	"attachment_types":  shared.TargetAttachmentType,
	"groups":            shared.TargetGroup,
}

// readOnlyFields are dropped from request bodies. Permissions are changed
// through the permission endpoints only.
var readOnlyFields = []string{"id", "created_at", "updated_at", "change_comment", "permissions"}

// StructuralHandler serves the tree shaped element kinds. Each method
// returns the handler for one kind.
type StructuralHandler struct {
	BaseHandler
	kinds      appparts.Kinds
	logService *applog.LogService
}

// NewStructuralHandler creates a new StructuralHandler
func NewStructuralHandler(kinds appparts.Kinds, logService *applog.LogService) *StructuralHandler {
	return &StructuralHandler{kinds: kinds, logService: logService}
}

// List handles GET /<kind>
//
// @Summary      List elements of a kind
// @Tags         structure
// @Produce      json
// @Param        kind path string true "Structural kind" Enums(categories, storage_locations, footprints, manufacturers, suppliers, measurement_units, currencies, attachment_types, groups)
// @Success      200 {object} dto.Response{data=[]StructuralResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{kind} [get]
func (h *StructuralHandler) List(t shared.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := h.kind(c, t)
		if !ok {
			return
		}
		all, err := kind.List(c.Request.Context())
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, all)
	}
}

// Tree handles GET /<kind>/tree
//
// @Summary      Element tree of a kind
// @Tags         structure
// @Produce      json
// @Param        kind path string true "Structural kind" Enums(categories, storage_locations, footprints, manufacturers, suppliers, measurement_units, currencies, attachment_types, groups)
// @Success      200 {object} dto.Response{data=[]StructuralResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{kind}/tree [get]
func (h *StructuralHandler) Tree(t shared.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := h.kind(c, t)
		if !ok {
			return
		}
		tree, err := kind.Tree(c.Request.Context())
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, tree)
	}
}

// StructuralResponse is an element with its full path
type StructuralResponse struct {
	Element  shared.Structural `json:"element"`
	FullPath string            `json:"full_path"`
}

// Get handles GET /<kind>/:id
//
// @Summary      Get an element
// @Tags         structure
// @Produce      json
// @Param        kind path string true "Structural kind" Enums(categories, storage_locations, footprints, manufacturers, suppliers, measurement_units, currencies, attachment_types, groups)
// @Param        id path integer true "Element ID"
// @Success      200 {object} dto.Response{data=StructuralResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{kind}/{id} [get]
func (h *StructuralHandler) Get(t shared.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := h.kind(c, t)
		if !ok {
			return
		}
		id, ok := h.parseID(c, "id")
		if !ok {
			return
		}
		el, err := kind.Get(c.Request.Context(), id)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.respond(c, kind, el, false)
	}
}

// Create handles POST /<kind>. The body is the element itself plus an
// optional change_comment.
//
// @Summary      Create an element
// @Tags         structure
// @Accept       json
// @Produce      json
// @Param        kind path string true "Structural kind" Enums(categories, storage_locations, footprints, manufacturers, suppliers, measurement_units, currencies, attachment_types, groups)
// @Param        request body object true "Request body"
// @Success      201 {object} dto.Response{data=StructuralResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{kind} [post]
func (h *StructuralHandler) Create(t shared.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := h.kind(c, t)
		if !ok {
			return
		}

		fields, comment, ok := h.readFields(c)
		if !ok {
			return
		}
		el := kind.New()
		if err := shared.ApplySnapshot(el, fields); err != nil {
			h.BadRequest(c, "Invalid request body")
			return
		}

		if err := kind.Create(c.Request.Context(), el, comment); err != nil {
			h.HandleError(c, err)
			return
		}
		h.respond(c, kind, el, true)
	}
}

// Update handles PUT /<kind>/:id. Only the fields present in the body change.
//
// @Summary      Update an element
// @Tags         structure
// @Accept       json
// @Produce      json
// @Param        kind path string true "Structural kind" Enums(categories, storage_locations, footprints, manufacturers, suppliers, measurement_units, currencies, attachment_types, groups)
// @Param        id path integer true "Element ID"
// @Param        request body object true "Request body"
// @Success      200 {object} dto.Response{data=StructuralResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{kind}/{id} [put]
func (h *StructuralHandler) Update(t shared.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := h.kind(c, t)
		if !ok {
			return
		}
		id, ok := h.parseID(c, "id")
		if !ok {
			return
		}

		patch, comment, ok := h.readFields(c)
		if !ok {
			return
		}

		el, err := kind.Update(c.Request.Context(), id, patch, comment)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.respond(c, kind, el, false)
	}
}

// Delete handles DELETE /<kind>/:id
//
// @Summary      Delete an element
// @Tags         structure
// @Produce      json
// @Param        kind path string true "Structural kind" Enums(categories, storage_locations, footprints, manufacturers, suppliers, measurement_units, currencies, attachment_types, groups)
// @Param        id path integer true "Element ID"
// @Param        comment query string false "Change comment for the log"
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{kind}/{id} [delete]
func (h *StructuralHandler) Delete(t shared.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := h.kind(c, t)
		if !ok {
			return
		}
		id, ok := h.parseID(c, "id")
		if !ok {
			return
		}
		if err := kind.Delete(c.Request.Context(), id, deleteComment(c)); err != nil {
			h.HandleError(c, err)
			return
		}
		h.NoContent(c)
	}
}

// History handles GET /<kind>/:id/history
//
// @Summary      Log entries of an element
// @Tags         structure
// @Produce      json
// @Param        kind path string true "Structural kind" Enums(categories, storage_locations, footprints, manufacturers, suppliers, measurement_units, currencies, attachment_types, groups)
// @Param        id path integer true "Element ID"
// @Param        page query integer false "Page number"
// @Param        page_size query integer false "Page size"
// @Success      200 {object} dto.Response{data=[]applog.LogEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{kind}/{id}/history [get]
func (h *StructuralHandler) History(t shared.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.parseID(c, "id")
		if !ok {
			return
		}
		writeHistory(c, &h.BaseHandler, h.logService, t, id)
	}
}

// readFields decodes a JSON object body without the read-only fields and
// returns it with the change comment
func (h *StructuralHandler) readFields(c *gin.Context) (map[string]any, string, bool) {
	var fields map[string]any
	if err := json.NewDecoder(c.Request.Body).Decode(&fields); err != nil || fields == nil {
		h.BadRequest(c, "Invalid request body")
		return nil, "", false
	}
	comment, _ := fields["change_comment"].(string)
	for _, f := range readOnlyFields {
		delete(fields, f)
	}
	return fields, comment, true
}

func (h *StructuralHandler) kind(c *gin.Context, t shared.TargetType) (appparts.Kind, bool) {
	kind, err := h.kinds.Get(t)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return kind, true
}

func (h *StructuralHandler) respond(c *gin.Context, kind appparts.Kind, el shared.Structural, created bool) {
	path, err := kind.FullPath(c.Request.Context(), el.GetID())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := StructuralResponse{Element: el, FullPath: path}
	if created {
		h.Created(c, resp)
		return
	}
	h.Success(c, resp)
}
