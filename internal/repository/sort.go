package repository

import (
	"fmt"
	"slices"
	"strings"

	"github.com/noah-isme/sma-course-roster/internal/models"
	"github.com/noah-isme/sma-course-roster/internal/schema"
	appErrors "github.com/noah-isme/sma-course-roster/pkg/errors"
)

// resolvedSort is a validated sort specification.
type resolvedSort struct {
	Field     string
	Column    string
	Direction models.SortDirection
}

// orderBy renders the ORDER BY clause, appending tieBreak (ascending) unless
// the sort already targets it.
func (s resolvedSort) orderBy(tieBreak string) string {
	clause := fmt.Sprintf("ORDER BY %s %s", s.Column, s.Direction)
	if tieBreak != "" && tieBreak != s.Column {
		clause += fmt.Sprintf(", %s ASC", tieBreak)
	}
	return clause
}

// resolveSort validates sort against the sortable columns of table and the
// computed columns, keyed by public sort key. It never touches the store.
func resolveSort(table schema.Table, sort models.Sort, computed map[string]string) (resolvedSort, error) {
	field := strings.TrimSpace(sort.Field)
	if field == "" {
		return resolvedSort{}, appErrors.Validation("sort field is required")
	}
	direction := models.SortDirection(strings.ToUpper(strings.TrimSpace(string(sort.Direction))))
	if direction == "" {
		direction = models.SortAsc
	}
	if !direction.Valid() {
		return resolvedSort{}, appErrors.Validation(fmt.Sprintf("invalid sort direction %q", sort.Direction))
	}
	if column, ok := computed[field]; ok {
		return resolvedSort{Field: field, Column: column, Direction: direction}, nil
	}
	if column, ok := table.SortColumn(field); ok {
		return resolvedSort{Field: field, Column: column, Direction: direction}, nil
	}
	allowed := table.SortKeys()
	for key := range computed {
		allowed = append(allowed, key)
	}
	slices.Sort(allowed)
	return resolvedSort{}, appErrors.Validation(fmt.Sprintf("unknown sort field %q for %s (allowed: %s)",
		field, table.Name, strings.Join(allowed, ", ")))
}
