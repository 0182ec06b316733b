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

// CommonSortFields lists columns nearly every table carries
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// ProductDefinitionSortFields contains allowed sort fields for product definitions
var ProductDefinitionSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"identifier":      true,
	"name":            true,
	"type":            true,
	"currency":        true,
	"interest_rate":   true,
	"minimum_balance": true,
	"active":          true,
}

// ProductInstanceSortFields contains allowed sort fields for product instances
var ProductInstanceSortFields = map[string]bool{
	"id":                    true,
	"created_at":            true,
	"updated_at":            true,
	"account_identifier":    true,
	"definition_identifier": true,
	"customer_id":           true,
	"state":                 true,
	"balance":               true,
	"opened_on":             true,
	"last_transaction_date": true,
}
