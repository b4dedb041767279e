// Package dialect renders the store specific fragments used by the
// repositories: surrogate keys, column types and the grouped string
// aggregate with optional per-row ordering.
package dialect

import (
	"fmt"
	"strings"
)

// ColumnKind is a portable column type.
type ColumnKind int

// Supported column kinds.
const (
	KindText ColumnKind = iota
	KindInteger
	KindReference
)

// Dialect describes how a relational store spells the fragments the
// repositories need.
type Dialect interface {
	// Name returns the sqlx driver name the dialect targets.
	Name() string
	// StringAgg joins value per group with delimiter in arrival order.
	StringAgg(value, delimiter string) string
	// OrderedStringAgg joins value per group ordered by orderExpr ascending.
	OrderedStringAgg(value, delimiter, orderExpr string) string
	// NativeOrderedAggregate reports whether OrderedStringAgg, and sorting
	// by its result, can be delegated to the store. When false the caller
	// groups, orders and joins in process.
	NativeOrderedAggregate() bool
	// SurrogateKey returns the column definition of a store assigned key.
	SurrogateKey() string
	// ColumnType maps a portable kind to the store type.
	ColumnType(kind ColumnKind) string
}

// ForDriver returns the dialect for a sqlx driver name.
func ForDriver(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "pgx":
		return Postgres{driver: strings.ToLower(driver)}, nil
	case "sqlite":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("no dialect registered for driver %q", driver)
	}
}

func quote(literal string) string {
	return "'" + strings.ReplaceAll(literal, "'", "''") + "'"
}

// coalesce guarantees an empty string rather than NULL for groups without
// contributing rows.
func coalesce(expr string) string {
	return "COALESCE(" + expr + ", '')"
}
