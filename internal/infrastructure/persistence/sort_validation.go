package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC, defaulting
// to DESC on anything unrecognized.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField checks the sort field against a whitelist, falling
// back to defaultField. Field names are never interpolated into SQL
// without passing through here.
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

// StockRecordSortFields contains allowed sort fields for stock records
var StockRecordSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"product_id":        true,
	"location_id":       true,
	"on_hand":           true,
	"committed":         true,
	"average_cost":      true,
	"reorder_threshold": true,
}

// MovementSortFields contains allowed sort fields for movement records
var MovementSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"occurred_on":     true,
	"product_id":      true,
	"stock_record_id": true,
	"kind":            true,
	"quantity_delta":  true,
	"correlation_ref": true,
}

// ReservationSortFields contains allowed sort fields for reservations
var ReservationSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"correlation_ref": true,
	"status":          true,
}
