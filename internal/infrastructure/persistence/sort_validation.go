package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// PartSortFields contains allowed sort fields for parts
var PartSortFields = map[string]bool{
	"id":                          true,
	"created_at":                  true,
	"updated_at":                  true,
	"name":                        true,
	"ipn":                         true,
	"manufacturer_product_number": true,
	"min_amount":                  true,
}

// AttachmentSortFields contains allowed sort fields for attachments
var AttachmentSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
}

// UserSortFields contains allowed sort fields for users
var UserSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"last_name":  true,
}

// LogEntrySortFields contains allowed sort fields for log entries. Entries
// have no created_at, their timestamp is the creation time.
var LogEntrySortFields = map[string]bool{
	"id":        true,
	"timestamp": true,
	"level":     true,
	"type":      true,
	"username":  true,
}
