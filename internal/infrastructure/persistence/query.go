package persistence

import (
	"strings"

	"gorm.io/gorm"

	"github.com/partdb/backend/internal/domain/shared"
)

// orderClause builds an ORDER BY from the filter. Only columns in allowed
// are accepted; anything else falls back to fallback. Without a direction
// the order is ascending.
func orderClause(filter shared.Filter, allowed map[string]bool, fallback string) string {
	col := ValidateSortField(strings.ToLower(filter.OrderBy), allowed, "")
	if col == "" {
		return fallback
	}
	dir := "ASC"
	if strings.TrimSpace(filter.OrderDir) != "" {
		dir = ValidateSortOrder(filter.OrderDir)
	}
	return col + " " + dir
}

// paginate applies offset and limit. A page size of 0 returns everything.
func paginate(q *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.PageSize <= 0 {
		return q
	}
	return q.Offset(filter.Offset()).Limit(filter.PageSize)
}

// likePattern escapes s for use in a LIKE clause
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}

func filterUint(filter shared.Filter, key string) (uint, bool) {
	switch v := filter.Filters[key].(type) {
	case uint:
		return v, true
	case int:
		if v >= 0 {
			return uint(v), true
		}
	case int64:
		if v >= 0 {
			return uint(v), true
		}
	case float64:
		if v >= 0 {
			return uint(v), true
		}
	}
	return 0, false
}

func filterBool(filter shared.Filter, key string) (bool, bool) {
	v, ok := filter.Filters[key].(bool)
	return v, ok
}
