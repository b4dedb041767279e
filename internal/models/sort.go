package models

import "strings"

// SortDirection is the direction of a sort specification.
type SortDirection string

// Supported sort directions.
const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// Public sort keys.
const (
	SortFieldID          = "id"
	SortFieldName        = "name"
	SortFieldCourseNames = "courseNames"
)

// Sort is a caller supplied field/direction pair.
type Sort struct {
	Field     string
	Direction SortDirection
}

// SortBy builds a Sort normalising the direction casing.
func SortBy(field string, direction SortDirection) Sort {
	return Sort{Field: strings.TrimSpace(field), Direction: SortDirection(strings.ToUpper(string(direction)))}
}

// Valid reports whether the direction is one of ASC or DESC.
func (d SortDirection) Valid() bool {
	return d == SortAsc || d == SortDesc
}

// Descending reports whether the direction is DESC.
func (d SortDirection) Descending() bool {
	return d == SortDesc
}

// CourseOrder selects the per-row ordering inside a student's aggregated
// course names. It is distinct from the ordering of the result rows.
type CourseOrder string

// Supported course orders. The zero value keeps insertion order.
const (
	CourseOrderInsertion CourseOrder = "position"
	CourseOrderName      CourseOrder = "name"
	CourseOrderID        CourseOrder = "id"
)

// Normalize maps the zero value to insertion order.
func (o CourseOrder) Normalize() CourseOrder {
	if o == "" {
		return CourseOrderInsertion
	}
	return o
}

// AggregationQuery parameterises the aggregated course-name listing.
type AggregationQuery struct {
	Sort        Sort
	CourseOrder CourseOrder
}

// Pagination is returned alongside list payloads.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
