package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// pageQuery is the pagination query shared by history listings
type pageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=500"`
}

// normalizePage fills in defaults for missing pagination values
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// deleteComment returns the change comment of a DELETE request. It is read
// from the query since DELETE bodies are dropped by some clients.
func deleteComment(c *gin.Context) string {
	return c.Query("comment")
}

// queryDecimal parses the decimal query parameter name, falling back to def
func queryDecimal(c *gin.Context, name string, def decimal.Decimal) (decimal.Decimal, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return decimal.NewFromString(raw)
}

// queryBool parses a boolean query parameter, falling back to def
func queryBool(c *gin.Context, name string, def bool) bool {
	v, err := strconv.ParseBool(c.Query(name))
	if err != nil {
		return def
	}
	return v
}

// formBool parses a boolean form field, missing or invalid values are false
func formBool(c *gin.Context, name string) bool {
	v, _ := strconv.ParseBool(c.PostForm(name))
	return v
}
