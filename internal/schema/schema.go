// Package schema holds the explicit table and association descriptors the
// repositories are written against, and renders them as DDL per dialect.
package schema

import (
	"fmt"
	"strings"

	"github.com/noah-isme/sma-course-roster/internal/dialect"
)

// Column describes a single table column.
type Column struct {
	Name       string
	Kind       dialect.ColumnKind
	PrimaryKey bool
	NotNull    bool
	References *Reference
	// Sort is the public sort key exposing the column, empty when the column
	// cannot be sorted on.
	Sort string
}

// Reference is a foreign key target.
type Reference struct {
	Table           string
	Column          string
	OnDeleteCascade bool
}

// Index is a secondary index.
type Index struct {
	Name    string
	Columns []string
}

// Table describes a stored relation.
type Table struct {
	Name    string
	Alias   string
	Columns []Column
	// Key lists the columns of a composite primary key. Tables with a
	// surrogate key leave it empty and mark the column instead.
	Key     []string
	Indexes []Index
}

// CascadeMode tells which owner operations propagate to association targets.
type CascadeMode int

// Cascade modes.
const (
	CascadeNone CascadeMode = iota
	// CascadeCreate persists unsaved targets when the owner is saved.
	// Updates and deletes of targets are never cascaded.
	CascadeCreate
)

// Association describes a many-to-many relation owned by Owner.
type Association struct {
	Owner        Table
	Target       Table
	Join         Table
	OwnerColumn  string
	TargetColumn string
	// OrderColumn records the position of the target in the owner's list.
	OrderColumn string
	Cascade     CascadeMode
}

// Students is the students table.
var Students = Table{
	Name:  "students",
	Alias: "s",
	Columns: []Column{
		{Name: "id", Kind: dialect.KindInteger, PrimaryKey: true, Sort: "id"},
		{Name: "name", Kind: dialect.KindText, NotNull: true, Sort: "name"},
	},
}

// Courses is the courses table.
var Courses = Table{
	Name:  "courses",
	Alias: "c",
	Columns: []Column{
		{Name: "id", Kind: dialect.KindInteger, PrimaryKey: true, Sort: "id"},
		{Name: "name", Kind: dialect.KindText, NotNull: true, Sort: "name"},
	},
}

// StudentCourseLinks is the join table backing StudentCourses.
var StudentCourseLinks = Table{
	Name:  "student_courses",
	Alias: "sc",
	Columns: []Column{
		{Name: "student_id", Kind: dialect.KindReference, NotNull: true, References: &Reference{Table: "students", Column: "id", OnDeleteCascade: true}},
		{Name: "course_id", Kind: dialect.KindReference, NotNull: true, References: &Reference{Table: "courses", Column: "id"}},
		{Name: "ordinal", Kind: dialect.KindInteger, NotNull: true},
	},
	Key:     []string{"student_id", "course_id"},
	Indexes: []Index{{Name: "idx_student_courses_course_id", Columns: []string{"course_id"}}},
}

// StudentCourses associates students with their courses.
var StudentCourses = Association{
	Owner:        Students,
	Target:       Courses,
	Join:         StudentCourseLinks,
	OwnerColumn:  "student_id",
	TargetColumn: "course_id",
	OrderColumn:  "ordinal",
	Cascade:      CascadeCreate,
}

// CascadesCreate reports whether saving the owner persists unsaved targets.
func (a Association) CascadesCreate() bool {
	return a.Cascade == CascadeCreate
}

// OwnerJoins renders the two joins leading from the owner alias through the
// join table to the target. kind is "" for inner joins or e.g. "LEFT".
func (a Association) OwnerJoins(kind string) string {
	prefix := "JOIN"
	if kind != "" {
		prefix = kind + " JOIN"
	}
	return fmt.Sprintf("%s %s ON %s = %s\n        %s",
		prefix, a.Join.From(), a.Join.Qualify(a.OwnerColumn), a.Owner.Qualify(a.Owner.PrimaryKey()), a.targetJoin(prefix))
}

// LinkSource renders the join table joined to its targets, the FROM clause
// for reading links without the owner.
func (a Association) LinkSource() string {
	return a.Join.From() + "\n        " + a.targetJoin("JOIN")
}

func (a Association) targetJoin(prefix string) string {
	return fmt.Sprintf("%s %s ON %s = %s", prefix, a.Target.From(), a.Target.Qualify(a.Target.PrimaryKey()), a.Join.Qualify(a.TargetColumn))
}

// InsertLinkSQL renders the INSERT of one association row with its ordinal.
func (a Association) InsertLinkSQL() string {
	cols := []string{a.OwnerColumn, a.TargetColumn, a.OrderColumn}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", a.Join.Name, strings.Join(cols, ", "), placeholders(len(cols)))
}

// DeleteLinksSQL renders the DELETE of every association row of one owner.
func (a Association) DeleteLinksSQL() string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = ?", a.Join.Name, a.OwnerColumn)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Tables lists every table in creation order.
var Tables = []Table{Students, Courses, StudentCourseLinks}

// SortColumn resolves a public sort key to an alias qualified column.
func (t Table) SortColumn(field string) (string, bool) {
	for _, col := range t.Columns {
		if col.Sort != "" && col.Sort == field {
			return t.Qualify(col.Name), true
		}
	}
	return "", false
}

// SortKeys returns the public sort keys of the table.
func (t Table) SortKeys() []string {
	keys := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		if col.Sort != "" {
			keys = append(keys, col.Sort)
		}
	}
	return keys
}

// PrimaryKey returns the surrogate key column, or "" for tables keyed by
// a composite key.
func (t Table) PrimaryKey() string {
	for _, col := range t.Columns {
		if col.PrimaryKey {
			return col.Name
		}
	}
	return ""
}

// InsertSQL renders an INSERT of columns that returns the surrogate key.
// Placeholders are "?" and must be rebound by the caller.
func (t Table) InsertSQL(columns ...string) string {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.Name, strings.Join(columns, ", "), placeholders(len(columns)))
	if pk := t.PrimaryKey(); pk != "" {
		query += " RETURNING " + pk
	}
	return query
}

// UpdateSQL renders an UPDATE of columns by surrogate key.
func (t Table) UpdateSQL(columns ...string) string {
	sets := make([]string, len(columns))
	for i, col := range columns {
		sets[i] = col + " = ?"
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", t.Name, strings.Join(sets, ", "), t.PrimaryKey())
}

// DeleteSQL renders a DELETE by surrogate key.
func (t Table) DeleteSQL() string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t.Name, t.PrimaryKey())
}

// Qualify prefixes column with the table alias.
func (t Table) Qualify(column string) string {
	if t.Alias == "" {
		return column
	}
	return t.Alias + "." + column
}

// ColumnList renders the alias qualified column list.
func (t Table) ColumnList() string {
	cols := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		cols[i] = t.Qualify(col.Name)
	}
	return strings.Join(cols, ", ")
}

// From renders "name alias".
func (t Table) From() string {
	if t.Alias == "" {
		return t.Name
	}
	return t.Name + " " + t.Alias
}

// CreateSQL renders the CREATE TABLE and CREATE INDEX statements.
func (t Table) CreateSQL(d dialect.Dialect) []string {
	defs := make([]string, 0, len(t.Columns)+1)
	for _, col := range t.Columns {
		defs = append(defs, columnDefinition(col, d))
	}
	if len(t.Key) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(t.Key, ", ")))
	}
	stmts := []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.Name, strings.Join(defs, ", "))}
	for _, idx := range t.Indexes {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx.Name, t.Name, strings.Join(idx.Columns, ", ")))
	}
	return stmts
}

func columnDefinition(col Column, d dialect.Dialect) string {
	if col.PrimaryKey {
		return col.Name + " " + d.SurrogateKey()
	}
	def := col.Name + " " + d.ColumnType(col.Kind)
	if col.NotNull {
		def += " NOT NULL"
	}
	if ref := col.References; ref != nil {
		def += fmt.Sprintf(" REFERENCES %s(%s)", ref.Table, ref.Column)
		if ref.OnDeleteCascade {
			def += " ON DELETE CASCADE"
		}
	}
	return def
}
