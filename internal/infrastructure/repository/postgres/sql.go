package postgres

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// undefinedTable is the postgres SQLSTATE for a missing relation.
const undefinedTable = "42P01"

func nullableString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// isUndefinedTable reports a query against a schema that was never migrated.
func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == undefinedTable
	}
	return false
}
