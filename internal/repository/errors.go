package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	appErrors "github.com/noah-isme/sma-course-roster/pkg/errors"
)

// translateError maps driver specific failures onto the typed errors the
// service layer understands. Errors it does not recognise are returned as is.
func translateError(err error, entity string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if constraint, ok := violatedConstraint(err); ok {
		return appErrors.Constraint(err, entity, constraint)
	}
	if isUnavailable(err) {
		return appErrors.Unavailable(err)
	}
	return err
}

func violatedConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		if pqErr.Constraint != "" {
			return pqErr.Constraint, true
		}
		return pqErr.Code.Name(), true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		if pgErr.ConstraintName != "" {
			return pgErr.ConstraintName, true
		}
		return pgErr.Code, true
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return sqliteConstraint(liteErr), true
	}
	return "", false
}

// sqliteConstraint derives a constraint label from the extended result code
// and the "... constraint failed: table.column" message.
func sqliteConstraint(err *sqlite.Error) string {
	kind := "constraint"
	switch err.Code() {
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		kind = "foreign_key"
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		kind = "unique"
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		kind = "primary_key"
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		kind = "not_null"
	}
	msg := err.Error()
	if idx := strings.LastIndex(msg, "constraint failed: "); idx >= 0 {
		target := strings.TrimSpace(msg[idx+len("constraint failed: "):])
		if end := strings.IndexAny(target, " ("); end > 0 {
			target = target[:end]
		}
		if target != "" {
			return kind + ":" + target
		}
	}
	return kind
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return unavailableSQLState(string(pqErr.Code))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return unavailableSQLState(pgErr.Code)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_NOTADB:
			return true
		}
	}
	return false
}

// unavailableSQLState covers connection exceptions (class 08) and operator
// intervention shutdowns.
func unavailableSQLState(code string) bool {
	if strings.HasPrefix(code, "08") {
		return true
	}
	switch code {
	case "57P01", "57P02", "57P03":
		return true
	}
	return false
}
