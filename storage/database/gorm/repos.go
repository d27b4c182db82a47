// Package gormrepos implements the domain repositories on gorm. All lookups
// are company-scoped by their callers; cross-dialect SQL only (the test suite
// runs on sqlite, deployments on postgres).
package gormrepos

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safisha/backend/core"
)

// orderBy appends an ORDER BY clause for the orderings that map to an
// allowed column; unknown fields are dropped.
func orderBy(q *gorm.DB, orderings []core.DBOrdering, allowed map[string]string) *gorm.DB {
	if clause := core.OrderClause(orderings, allowed); clause != "" {
		q = q.Order(clause)
	}
	return q
}

// search appends a case-insensitive match over the given columns.
func search(q *gorm.DB, keyword string, columns ...string) *gorm.DB {
	if keyword == "" {
		return q
	}
	val := "%" + strings.ToLower(keyword) + "%"
	conds := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		conds = append(conds, "LOWER("+col+") LIKE ?")
		args = append(args, val)
	}
	return q.Where(strings.Join(conds, " OR "), args...)
}

// validUUID guards primary-key lookups against malformed ids.
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
