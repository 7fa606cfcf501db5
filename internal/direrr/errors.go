// Package direrr defines the error taxonomy shared across dbconn,
// tablesegment, and diffengine (spec §7). Each kind is a distinct exported
// struct type implementing error, grounded on the teacher's
// internal/tengo/diff.go pattern (ForbiddenDiffError, UnsupportedDiffError)
// of struct-per-kind errors inspected via errors.As rather than sentinel
// values or string matching.
package direrr

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// ConnectionError indicates a failure to connect to or authenticate against
// a database.
type ConnectionError struct {
	DSN string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %s", e.DSN, e.Err)
}
func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryExecutionError indicates the driver rejected a query, or a query
// failed mid-stream.
type QueryExecutionError struct {
	Query string
	Err   error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %s\nquery: %s", e.Err, e.Query)
}
func (e *QueryExecutionError) Unwrap() error { return e.Err }

// SchemaError indicates a table does not exist, a column is missing, or a
// column's type is unknown and unsupported.
type SchemaError struct {
	TablePath []string
	Column    string
	Reason    string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("schema error for %v column %q: %s", e.TablePath, e.Column, e.Reason)
	}
	return fmt.Sprintf("schema error for %v: %s", e.TablePath, e.Reason)
}

// TableDoesNotExistError is a specific SchemaError raised by
// Database.QueryTableSchema when the information_schema-equivalent query
// returns no rows for the requested table.
type TableDoesNotExistError struct {
	TablePath []string
}

func (e *TableDoesNotExistError) Error() string {
	return fmt.Sprintf("table does not exist: %v", e.TablePath)
}

// TypeCompatibilityError indicates two sides of a diff declare incomparable
// types for a column that is supposed to be shared.
type TypeCompatibilityError struct {
	Column string
	TypeA  fmt.Stringer
	TypeB  fmt.Stringer
}

func (e *TypeCompatibilityError) Error() string {
	return fmt.Sprintf("incompatible types for column %q: %s <-> %s", e.Column, e.TypeA, e.TypeB)
}

// ExtendedError renders a unified diff of TypeA/TypeB's String() forms,
// grounded on internal/tengo's UnsupportedDiffError.ExtendedError, for
// callers that want more than a one-line "A <-> B" summary -- useful when
// the two type strings are long (e.g. two differently-parameterized
// decimal types) and the actual point of disagreement is hard to spot by
// eye in the plain Error() form.
func (e *TypeCompatibilityError) ExtendedError() string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(e.TypeA.String()),
		B:        difflib.SplitLines(e.TypeB.String()),
		FromFile: "side A",
		ToFile:   "side B",
		Context:  0,
	}
	diffText, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("column %q: declared types disagree\n%s", e.Column, diffText)
}

// KeyIntegrityError indicates a duplicate or null primary key was detected
// (JoinDiffer only).
type KeyIntegrityError struct {
	Reason string
}

func (e *KeyIntegrityError) Error() string { return e.Reason }

// DuplicateKeyError is a specific KeyIntegrityError for a key-column set
// that is not actually unique.
type DuplicateKeyError struct {
	KeyColumns []string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate values found for key column(s) %v", e.KeyColumns)
}

// NullKeyError is a specific KeyIntegrityError for a key column containing
// NULL values.
type NullKeyError struct {
	KeyColumns []string
}

func (e *NullKeyError) Error() string {
	return fmt.Sprintf("NULL values found in key column(s) %v", e.KeyColumns)
}

// EmptyTableError indicates a key-range query found no rows at all.
type EmptyTableError struct {
	TablePath []string
}

func (e *EmptyTableError) Error() string {
	return fmt.Sprintf("table %v is empty", e.TablePath)
}

// OverflowError indicates arithmetic on an alphanumeric (or UUID) key would
// exceed its representable range.
type OverflowError struct {
	Reason string
}

func (e *OverflowError) Error() string { return e.Reason }

// InvalidKeyValueError indicates a string key value contains a character
// outside the alphanumeric key-space alphabet (spec §6).
type InvalidKeyValueError struct {
	Value string
}

func (e *InvalidKeyValueError) Error() string {
	return fmt.Sprintf("invalid alphanumeric key value: %q", e.Value)
}

// ConfigurationError indicates invalid parameters were supplied to a Differ
// or to connection setup.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return e.Reason }
