package dialect

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers relevant to connection setup and schema
// introspection. Hand-rolled rather than imported from
// github.com/VividCortex/mysqlerr (see DESIGN.md): the teacher's own
// internal/tengo/errors.go already establishes this exact pattern, and
// rowdiff only needs a handful of the hundreds of codes that package
// defines, all reachable from mysql.py's create_connection() and
// select_table_schema() error paths.
//
// Reference: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	erAccessDeniedError = 1045
	erBadDB             = 1049
	erNoSuchTable       = 1146
	erDBCreateExists    = 1007
	erDupFieldName      = 1060
)

// IsMySQLAccessDenied reports whether err is the server's "bad user name or
// password" response, matching mysql.py's create_connection() translation
// of mysql.errorcode.ER_ACCESS_DENIED_ERROR into a ConnectError.
func IsMySQLAccessDenied(err error) bool {
	return isMySQLError(err, erAccessDeniedError)
}

// IsMySQLDatabaseNotFound reports whether err is the server's "database
// does not exist" response, matching mysql.py's ER_BAD_DB_ERROR handling.
func IsMySQLDatabaseNotFound(err error) bool {
	return isMySQLError(err, erBadDB)
}

// IsMySQLTableNotFound reports whether err is the server's "no such table"
// response (error 1146), which MySQL returns for a query that references a
// table that does not exist.
func IsMySQLTableNotFound(err error) bool {
	return isMySQLError(err, erNoSuchTable)
}

func isMySQLError(err error, numbers ...uint16) bool {
	var merr *mysql.MySQLError
	if !errors.As(err, &merr) {
		return false
	}
	for _, n := range numbers {
		if merr.Number == n {
			return true
		}
	}
	return false
}
