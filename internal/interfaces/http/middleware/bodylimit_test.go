package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdb/backend/internal/interfaces/http/dto"
)

// partBody is a part create request with a description of n bytes
func partBody(n int) string {
	return `{"name":"BC547","category_id":1,"description":"` + strings.Repeat("x", n) + `"}`
}

func bodyLimitRouter(limit int64) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), BodyLimit(limit))
	router.POST("/api/v1/parts", func(c *gin.Context) {
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidJSON, err.Error()))
			return
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(req.Name))
	})
	return router
}

func TestBodyLimit_DeclaredLength(t *testing.T) {
	router := bodyLimitRouter(1024)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/parts", strings.NewReader(partBody(10)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/parts", strings.NewReader(partBody(2048)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDKey, "req-413")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
	assert.Equal(t, "req-413", resp.Error.RequestID)
}

func TestBodyLimit_StreamedBody(t *testing.T) {
	router := bodyLimitRouter(256)

	// no declared length, the handler fails while decoding
	req := httptest.NewRequest(http.MethodPost, "/api/v1/parts", strings.NewReader(partBody(1024)))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "request body too large")
}

func TestErrCodeRequestTooLarge(t *testing.T) {
	assert.Equal(t, http.StatusRequestEntityTooLarge, dto.GetHTTPStatus(dto.ErrCodeRequestTooLarge))
	assert.Equal(t, dto.ErrCodeRequestTooLarge, dto.NormalizeErrorCode("REQUEST_TOO_LARGE"))
}
