package dialect

import "fmt"

// Postgres targets PostgreSQL through lib/pq or pgx.
type Postgres struct {
	driver string
}

// Name returns the driver name.
func (p Postgres) Name() string {
	if p.driver == "" {
		return "postgres"
	}
	return p.driver
}

// StringAgg renders string_agg without an ORDER BY clause.
func (Postgres) StringAgg(value, delimiter string) string {
	return coalesce(fmt.Sprintf("string_agg(%s, %s)", value, quote(delimiter)))
}

// OrderedStringAgg renders string_agg with an aggregate ORDER BY.
func (Postgres) OrderedStringAgg(value, delimiter, orderExpr string) string {
	if orderExpr == "" {
		return Postgres{}.StringAgg(value, delimiter)
	}
	return coalesce(fmt.Sprintf("string_agg(%s, %s ORDER BY %s)", value, quote(delimiter), orderExpr))
}

// NativeOrderedAggregate is always true for PostgreSQL.
func (Postgres) NativeOrderedAggregate() bool { return true }

// SurrogateKey uses a BIGSERIAL primary key.
func (Postgres) SurrogateKey() string { return "BIGSERIAL PRIMARY KEY" }

// ColumnType maps kinds to PostgreSQL types.
func (Postgres) ColumnType(kind ColumnKind) string {
	switch kind {
	case KindInteger:
		return "INTEGER"
	case KindReference:
		return "BIGINT"
	default:
		return "TEXT"
	}
}
