package handler

import (
	"bytes"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/partdb/backend/internal/application/dataio"
	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/domain/shared"
	"github.com/partdb/backend/internal/interfaces/http/dto"
)

const maxImportFileSize = 10 << 20

// DataIOHandler exports and imports structural elements and parts
type DataIOHandler struct {
	BaseHandler
	exporter *dataio.Exporter
	importer *dataio.Importer
}

// NewDataIOHandler creates a new DataIOHandler
func NewDataIOHandler(exporter *dataio.Exporter, importer *dataio.Importer) *DataIOHandler {
	return &DataIOHandler{exporter: exporter, importer: importer}
}

// ExportStructural handles GET /<kind>/export?format=json|yaml|csv
//
// @Summary      Export elements of a kind
// @Tags         import-export
// @Produce      octet-stream
// @Param        kind path string true "Structural kind" Enums(categories, storage_locations, footprints, manufacturers, suppliers, measurement_units, currencies, attachment_types, groups)
// @Param        format query string false "json, yaml or csv"
// @Success      200 {file} file
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{kind}/export [get]
func (h *DataIOHandler) ExportStructural(t shared.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		format, ok := h.format(c, c.DefaultQuery("format", "json"))
		if !ok {
			return
		}
		var buf bytes.Buffer
		if _, err := h.exporter.ExportStructural(c.Request.Context(), t, format, &buf); err != nil {
			h.HandleError(c, err)
			return
		}
		h.attachment(c, string(t), format, buf.Bytes())
	}
}

// ExportParts handles GET /parts/export. The part list filters apply.
//
// @Summary      Export parts
// @Tags         import-export
// @Produce      octet-stream
// @Param        format query string false "json, yaml or csv"
// @Success      200 {file} file
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /parts/export [get]
func (h *DataIOHandler) ExportParts(c *gin.Context) {
	format, ok := h.format(c, c.DefaultQuery("format", "json"))
	if !ok {
		return
	}
	var filter appparts.PartListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	var buf bytes.Buffer
	if _, err := h.exporter.ExportParts(c.Request.Context(), filter, format, &buf); err != nil {
		h.HandleError(c, err)
		return
	}
	h.attachment(c, "parts", format, buf.Bytes())
}

// ImportStructural handles POST /<kind>/import. The multipart form carries
// either a file or a text field with one "A -> B -> C" path per line.
//
// @Summary      Import elements of a kind
// @Tags         import-export
// @Accept       multipart/form-data
// @Produce      json
// @Param        kind path string true "Structural kind" Enums(categories, storage_locations, footprints, manufacturers, suppliers, measurement_units, currencies, attachment_types, groups)
// @Param        file formData file false "Import file"
// @Param        text formData string false "One path per line"
// @Param        format formData string false "json, yaml or csv"
// @Param        parent_id formData integer false "Parent element"
// @Param        create_unknown formData boolean false "Create missing referenced elements"
// @Param        comment formData string false "Change comment"
// @Success      200 {object} dto.Response{data=dataio.ImportResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /{kind}/import [post]
func (h *DataIOHandler) ImportStructural(t shared.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts, ok := h.options(c)
		if !ok {
			return
		}

		var (
			result *dataio.ImportResult
			err    error
		)
		if text := c.PostForm("text"); text != "" {
			result, err = h.importer.MassCreate(c.Request.Context(), t, text, opts)
		} else {
			content, format, ok := h.upload(c, opts.Format)
			if !ok {
				return
			}
			opts.Format = format
			result, err = h.importer.ImportStructural(c.Request.Context(), t, content, opts)
		}
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.importResult(c, result)
	}
}

// ImportParts handles POST /parts/import
//
// @Summary      Import parts
// @Tags         import-export
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Import file"
// @Param        format formData string false "json, yaml or csv"
// @Param        create_unknown formData boolean false "Create missing referenced elements"
// @Param        comment formData string false "Change comment"
// @Success      200 {object} dto.Response{data=dataio.ImportResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /parts/import [post]
func (h *DataIOHandler) ImportParts(c *gin.Context) {
	opts, ok := h.options(c)
	if !ok {
		return
	}
	content, format, ok := h.upload(c, opts.Format)
	if !ok {
		return
	}
	opts.Format = format

	result, err := h.importer.ImportParts(c.Request.Context(), content, opts)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.importResult(c, result)
}

func (h *DataIOHandler) options(c *gin.Context) (dataio.ImportOptions, bool) {
	opts := dataio.ImportOptions{
		CreateUnknown: formBool(c, "create_unknown"),
		Comment:       c.PostForm("comment"),
	}
	if raw := c.PostForm("format"); raw != "" {
		format, ok := h.format(c, raw)
		if !ok {
			return opts, false
		}
		opts.Format = format
	}
	if raw := c.PostForm("parent_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			h.BadRequest(c, "Invalid parent_id format")
			return opts, false
		}
		parent := uint(id)
		opts.ParentID = &parent
	}
	return opts, true
}

// upload returns the uploaded file. Without an explicit format it is
// derived from the file extension.
func (h *DataIOHandler) upload(c *gin.Context, format dataio.Format) (io.Reader, dataio.Format, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return nil, "", false
	}
	defer file.Close()

	if header.Size > maxImportFileSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeValidation, "file exceeds maximum size of 10MB")
		return nil, "", false
	}
	if format == "" {
		f, ok := h.format(c, filepath.Ext(header.Filename))
		if !ok {
			return nil, "", false
		}
		format = f
	}

	content, err := io.ReadAll(io.LimitReader(file, maxImportFileSize))
	if err != nil {
		h.BadRequest(c, "Failed to read file")
		return nil, "", false
	}
	return bytes.NewReader(content), format, true
}

func (h *DataIOHandler) format(c *gin.Context, raw string) (dataio.Format, bool) {
	f, err := dataio.ParseFormat(raw)
	if err != nil {
		h.HandleError(c, err)
		return "", false
	}
	return f, true
}

// importResult answers 422 when rows failed validation, nothing was written then
func (h *DataIOHandler) importResult(c *gin.Context, result *dataio.ImportResult) {
	if len(result.Errors) > 0 {
		resp := dto.NewErrorResponseWithRequestID("IMPORT_FAILED", "The file contains invalid rows, nothing was imported", getRequestID(c))
		resp.Data = result
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}
	h.Success(c, result)
}

func (h *DataIOHandler) attachment(c *gin.Context, name string, format dataio.Format, data []byte) {
	filename := "export_" + name + "_" + time.Now().Format("20060102_150405") + "." + format.Extension()
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, format.ContentType(), data)
}
