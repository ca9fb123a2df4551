package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	applabels "github.com/partdb/backend/internal/application/labels"
	"github.com/partdb/backend/internal/domain/labels"
)

// LabelHandler manages label profiles and generates labels
type LabelHandler struct {
	BaseHandler
	labelService *applabels.Service
}

// NewLabelHandler creates a new LabelHandler
func NewLabelHandler(labelService *applabels.Service) *LabelHandler {
	return &LabelHandler{labelService: labelService}
}

// ListProfiles handles GET /labels/profiles?element=part
//
// @Summary      List label profiles
// @Tags         labels
// @Produce      json
// @Param        element query string false "Supported element"
// @Success      200 {object} dto.Response{data=[]labels.Profile}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /labels/profiles [get]
func (h *LabelHandler) ListProfiles(c *gin.Context) {
	profiles, err := h.labelService.ListProfiles(c.Request.Context(), labels.SupportedElement(c.Query("element")))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, profiles)
}

// GetProfile handles GET /labels/profiles/:id
//
// @Summary      Get a label profile
// @Tags         labels
// @Produce      json
// @Param        id path integer true "Element ID"
// @Success      200 {object} dto.Response{data=labels.Profile}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /labels/profiles/{id} [get]
func (h *LabelHandler) GetProfile(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	profile, err := h.labelService.GetProfile(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, profile)
}

// CreateProfile handles POST /labels/profiles
//
// @Summary      Create a label profile
// @Tags         labels
// @Accept       json
// @Produce      json
// @Param        request body applabels.ProfileInput true "Request body"
// @Success      201 {object} dto.Response{data=labels.Profile}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /labels/profiles [post]
func (h *LabelHandler) CreateProfile(c *gin.Context) {
	var req applabels.ProfileInput
	if !h.bindJSON(c, &req) {
		return
	}

	profile, err := h.labelService.CreateProfile(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, profile)
}

// UpdateProfile handles PUT /labels/profiles/:id
//
// @Summary      Update a label profile
// @Tags         labels
// @Accept       json
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        request body applabels.ProfileInput true "Request body"
// @Success      200 {object} dto.Response{data=labels.Profile}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /labels/profiles/{id} [put]
func (h *LabelHandler) UpdateProfile(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req applabels.ProfileInput
	if !h.bindJSON(c, &req) {
		return
	}

	profile, err := h.labelService.UpdateProfile(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, profile)
}

// DeleteProfile handles DELETE /labels/profiles/:id
//
// @Summary      Delete a label profile
// @Tags         labels
// @Produce      json
// @Param        id path integer true "Element ID"
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /labels/profiles/{id} [delete]
func (h *LabelHandler) DeleteProfile(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	if err := h.labelService.DeleteProfile(c.Request.Context(), id, deleteComment(c)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Generate handles POST /labels/generate and answers with the HTML or PDF
// document
//
// @Summary      Render labels as PDF
// @Tags         labels
// @Accept       json
// @Produce      application/pdf
// @Param        request body applabels.GenerateInput true "Request body"
// @Success      200 {file} file
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /labels/generate [post]
func (h *LabelHandler) Generate(c *gin.Context) {
	var req applabels.GenerateInput
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.labelService.Generate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", "inline; filename=\""+result.Filename+"\"")
	c.Header("X-Label-Count", strconv.Itoa(result.Count))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
