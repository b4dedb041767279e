package dialect

import "fmt"

// SQLite targets the embedded modernc.org/sqlite driver.
type SQLite struct{}

// Name returns the driver name.
func (SQLite) Name() string { return "sqlite" }

// StringAgg renders group_concat, which joins in visit order.
func (SQLite) StringAgg(value, delimiter string) string {
	return coalesce(fmt.Sprintf("group_concat(%s, %s)", value, quote(delimiter)))
}

// OrderedStringAgg renders the aggregate ORDER BY form. Only engines from
// 3.44 onwards accept it, which is why NativeOrderedAggregate is false and
// the repositories order in process instead.
func (SQLite) OrderedStringAgg(value, delimiter, orderExpr string) string {
	if orderExpr == "" {
		return SQLite{}.StringAgg(value, delimiter)
	}
	return coalesce(fmt.Sprintf("group_concat(%s, %s ORDER BY %s)", value, quote(delimiter), orderExpr))
}

// NativeOrderedAggregate is false; see OrderedStringAgg.
func (SQLite) NativeOrderedAggregate() bool { return false }

// SurrogateKey uses the rowid alias with AUTOINCREMENT so ids are never reused.
func (SQLite) SurrogateKey() string { return "INTEGER PRIMARY KEY AUTOINCREMENT" }

// ColumnType maps kinds to SQLite affinities.
func (SQLite) ColumnType(kind ColumnKind) string {
	switch kind {
	case KindInteger, KindReference:
		return "INTEGER"
	default:
		return "TEXT"
	}
}
