package handler

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appattachment "github.com/partdb/backend/internal/application/attachment"
	"github.com/partdb/backend/internal/domain/shared"
)

// AttachmentHandler handles attachment uploads, links and downloads
type AttachmentHandler struct {
	BaseHandler
	attachmentService *appattachment.Service
}

// NewAttachmentHandler creates a new AttachmentHandler
func NewAttachmentHandler(attachmentService *appattachment.Service) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService}
}

// AttachmentListQuery filters the attachment list. With element_type and
// element_id set only the attachments of that element are returned.
type AttachmentListQuery struct {
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=500"`
	Search      string `form:"search"`
	ElementType string `form:"element_type"`
	ElementID   uint   `form:"element_id"`
}

// List handles GET /attachments
//
// @Summary      List attachments
// @Tags         attachments
// @Produce      json
// @Param        query query AttachmentListQuery false "Filters"
// @Success      200 {object} dto.Response{data=[]appattachment.AttachmentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /attachments [get]
func (h *AttachmentHandler) List(c *gin.Context) {
	var q AttachmentListQuery
	if !h.bindQuery(c, &q) {
		return
	}

	if q.ElementType != "" && q.ElementID != 0 {
		items, err := h.attachmentService.ListByElement(c.Request.Context(), shared.TargetType(q.ElementType), q.ElementID)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, items)
		return
	}

	filter := shared.DefaultFilter()
	filter.Page, filter.PageSize = normalizePage(q.Page, q.PageSize)
	filter.Search = q.Search
	if q.ElementType != "" {
		filter.Filters = map[string]any{"element_type": q.ElementType}
	}

	result, err := h.attachmentService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Get handles GET /attachments/:id
//
// @Summary      Get an attachment
// @Tags         attachments
// @Produce      json
// @Param        id path integer true "Element ID"
// @Success      200 {object} dto.Response{data=appattachment.AttachmentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /attachments/{id} [get]
func (h *AttachmentHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	a, err := h.attachmentService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, a)
}

// Upload handles POST /attachments as multipart form with the fields
// element_type, element_id, attachment_type_id, name, show_in_table,
// private, comment and the file itself.
//
// @Summary      Upload an attachment
// @Tags         attachments
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "File"
// @Param        element_type formData string true "Owner type"
// @Param        element_id formData integer true "Owner ID"
// @Param        attachment_type_id formData integer true "Attachment type"
// @Param        name formData string false "Name"
// @Param        comment formData string false "Change comment"
// @Success      201 {object} dto.Response{data=appattachment.AttachmentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	elementID, err := strconv.ParseUint(c.PostForm("element_id"), 10, 64)
	if err != nil || elementID == 0 {
		h.BadRequest(c, "Invalid element_id format")
		return
	}
	typeID, err := strconv.ParseUint(c.PostForm("attachment_type_id"), 10, 64)
	if err != nil || typeID == 0 {
		h.BadRequest(c, "Invalid attachment_type_id format")
		return
	}

	a, err := h.attachmentService.Upload(c.Request.Context(), appattachment.UploadInput{
		ElementType:      shared.TargetType(c.PostForm("element_type")),
		ElementID:        uint(elementID),
		AttachmentTypeID: uint(typeID),
		Name:             c.PostForm("name"),
		Filename:         header.Filename,
		Size:             header.Size,
		Content:          file,
		ShowInTable:      formBool(c, "show_in_table"),
		Private:          formBool(c, "private"),
		Comment:          c.PostForm("comment"),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, a)
}

// CreateLink handles POST /attachments/link for URLs and builtin resources
//
// @Summary      Attach a URL
// @Tags         attachments
// @Accept       json
// @Produce      json
// @Param        request body appattachment.LinkInput true "Request body"
// @Success      201 {object} dto.Response{data=appattachment.AttachmentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /attachments/link [post]
func (h *AttachmentHandler) CreateLink(c *gin.Context) {
	var req appattachment.LinkInput
	if !h.bindJSON(c, &req) {
		return
	}

	a, err := h.attachmentService.CreateLink(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, a)
}

// Update handles PUT /attachments/:id
//
// @Summary      Update an attachment
// @Tags         attachments
// @Accept       json
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        request body appattachment.UpdateInput true "Request body"
// @Success      200 {object} dto.Response{data=appattachment.AttachmentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /attachments/{id} [put]
func (h *AttachmentHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req appattachment.UpdateInput
	if !h.bindJSON(c, &req) {
		return
	}

	a, err := h.attachmentService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, a)
}

// Download handles GET /attachments/:id/download. Object stores that
// support presigned URLs answer with a redirect, otherwise the file is
// streamed.
//
// @Summary      Download an attachment
// @Tags         attachments
// @Produce      octet-stream
// @Param        id path integer true "Element ID"
// @Param        download query boolean false "Send as attachment"
// @Success      200 {file} file
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /attachments/{id}/download [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	d, err := h.attachmentService.Download(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if d.URL != "" {
		c.Redirect(http.StatusFound, d.URL)
		return
	}
	defer d.Content.Close()

	disposition := "inline"
	if queryBool(c, "download", false) {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": d.Filename}))
	contentType := d.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, d.Content); err != nil {
		_ = c.Error(err)
	}
}

// Delete handles DELETE /attachments/:id
//
// @Summary      Delete an attachment
// @Tags         attachments
// @Produce      json
// @Param        id path integer true "Element ID"
// @Param        comment query string false "Change comment for the log"
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /attachments/{id} [delete]
func (h *AttachmentHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	if err := h.attachmentService.Delete(c.Request.Context(), id, deleteComment(c)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
