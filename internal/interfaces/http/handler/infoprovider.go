package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/partdb/backend/internal/application/infoprovider"
	"github.com/partdb/backend/internal/infrastructure/logger"
	"github.com/partdb/backend/internal/interfaces/http/dto"
)

// InfoProviderHandler searches external part databases and creates parts
// from their results
type InfoProviderHandler struct {
	BaseHandler
	service *infoprovider.Service
}

// NewInfoProviderHandler creates a new InfoProviderHandler
func NewInfoProviderHandler(service *infoprovider.Service) *InfoProviderHandler {
	return &InfoProviderHandler{service: service}
}

// SearchRequest is a keyword search over some or all active providers
type SearchRequest struct {
	Keyword   string   `json:"keyword" form:"keyword" binding:"required"`
	Providers []string `json:"providers" form:"providers"`
}

// Providers handles GET /tools/info_providers/providers
//
// @Summary      List info providers
// @Tags         info-providers
// @Produce      json
// @Success      200 {object} dto.Response{data=[]infoprovider.ProviderView}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /tools/info_providers/providers [get]
func (h *InfoProviderHandler) Providers(c *gin.Context) {
	h.Success(c, h.service.Retriever().Registry().Views())
}

// Search handles GET and POST /tools/info_providers/search. GET takes the
// providers as comma separated list.
//
// @Summary      Search info providers
// @Tags         info-providers
// @Produce      json
// @Param        keyword query string true "Search keyword"
// @Param        providers query string false "Comma separated provider keys"
// @Success      200 {object} dto.Response{data=[]infoprovider.SearchResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /tools/info_providers/search [get]
// @Router       /tools/info_providers/search [post]
func (h *InfoProviderHandler) Search(c *gin.Context) {
	var req SearchRequest
	if c.Request.Method == http.MethodGet {
		if !h.bindQuery(c, &req) {
			return
		}
		req.Providers = splitProviders(req.Providers)
	} else if !h.bindJSON(c, &req) {
		return
	}

	results, err := h.service.Retriever().SearchByKeyword(c.Request.Context(), req.Keyword, req.Providers)
	if err != nil {
		h.providerError(c, err)
		return
	}

	h.Success(c, results)
}

// Details handles GET /tools/info_providers/:provider/:id
//
// @Summary      Part details from a provider
// @Tags         info-providers
// @Produce      json
// @Param        provider path string true "Provider key"
// @Param        id path string true "Provider part ID"
// @Success      200 {object} dto.Response{data=infoprovider.PartDetail}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /tools/info_providers/{provider}/{id} [get]
func (h *InfoProviderHandler) Details(c *gin.Context) {
	detail, err := h.service.Retriever().GetDetails(c.Request.Context(), c.Param("provider"), c.Param("id"))
	if err != nil {
		h.providerError(c, err)
		return
	}

	h.Success(c, detail)
}

// CreatePartRequest places a provider result in a category
type CreatePartRequest struct {
	CategoryID    uint   `json:"category_id" binding:"required"`
	ChangeComment string `json:"change_comment"`
}

// CreatePart handles POST /tools/info_providers/:provider/:id/create
//
// @Summary      Create a part from provider data
// @Tags         info-providers
// @Accept       json
// @Produce      json
// @Param        provider path string true "Provider key"
// @Param        id path string true "Provider part ID"
// @Param        request body CreatePartRequest true "Request body"
// @Success      201 {object} dto.Response{data=appparts.PartResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /tools/info_providers/{provider}/{id}/create [post]
func (h *InfoProviderHandler) CreatePart(c *gin.Context) {
	var req CreatePartRequest
	if !h.bindJSON(c, &req) {
		return
	}

	part, err := h.service.CreatePart(c.Request.Context(), infoprovider.CreatePartInput{
		ProviderKey:   c.Param("provider"),
		ProviderID:    c.Param("id"),
		CategoryID:    req.CategoryID,
		ChangeComment: req.ChangeComment,
	})
	if err != nil {
		h.providerError(c, err)
		return
	}

	h.Created(c, part)
}

// providerError answers failures of the remote API with 502
func (h *InfoProviderHandler) providerError(c *gin.Context, err error) {
	if errors.Is(err, infoprovider.ErrUpstream) {
		logger.L(c.Request.Context()).Warn("Info provider request failed",
			zap.String("provider", c.Param("provider")),
			zap.Error(err))
		h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstream, "The info provider could not be reached")
		return
	}
	h.HandleError(c, err)
}

func splitProviders(in []string) []string {
	var out []string
	for _, v := range in {
		for _, key := range strings.Split(v, ",") {
			if key = strings.TrimSpace(key); key != "" {
				out = append(out, key)
			}
		}
	}
	return out
}
