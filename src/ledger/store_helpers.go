package ledger

import (
	"strings"

	"github.com/lib/pq"
)

// gorm's postgres driver doesn't expose a typed unique-violation error
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "SQLSTATE 23505") || strings.Contains(message, "duplicate key value")
}

func pqStringArray(values []string) pq.StringArray {
	if values == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(values)
}
