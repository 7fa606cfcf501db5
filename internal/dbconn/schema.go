package dbconn

import (
	"context"
	"fmt"
	"strings"

	"github.com/skeema/rowdiff/internal/direrr"
	"github.com/skeema/rowdiff/internal/typemodel"
)

// selectTableSchemaSQL renders the information_schema.columns query used to
// introspect a table, matching Database.select_table_schema.
func selectTableSchemaSQL(schema, table string) string {
	return fmt.Sprintf(
		"SELECT column_name, data_type, datetime_precision, numeric_precision, numeric_scale "+
			"FROM information_schema.columns "+
			"WHERE table_name = '%s' AND table_schema = '%s'",
		escapeLiteral(table), escapeLiteral(schema))
}

// selectTableUniqueColumnsSQL renders the information_schema.key_column_usage
// query used to discover candidate key columns, matching
// Database.select_table_unique_columns.
func selectTableUniqueColumnsSQL(schema, table string) string {
	return fmt.Sprintf(
		"SELECT column_name FROM information_schema.key_column_usage "+
			"WHERE table_name = '%s' AND table_schema = '%s'",
		escapeLiteral(table), escapeLiteral(schema))
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// QueryTableSchema fetches and parses the column schema for path (a 1- or
// 2-element table path), returning a typemodel.Schema with every column's
// ColumnType resolved by db.Dialect.ParseType (spec §4.3, §4.4).
func (db *Database) QueryTableSchema(ctx context.Context, path []string, caseSensitive bool) (*typemodel.Schema, error) {
	schemaName, tableName, err := normalizeTablePath(path, db.defaultSchema())
	if err != nil {
		return nil, err
	}

	rows, err := db.db.QueryxContext(ctx, selectTableSchemaSQL(schemaName, tableName))
	if err != nil {
		return nil, fmt.Errorf("dbconn: querying schema for %s: %w", strings.Join(path, "."), err)
	}
	defer rows.Close()

	result := typemodel.NewSchema(caseSensitive)
	found := false
	for rows.Next() {
		found = true
		var (
			columnName        string
			dataType          string
			datetimePrecision *int
			numericPrecision  *int
			numericScale      *int
		)
		if err := rows.Scan(&columnName, &dataType, &datetimePrecision, &numericPrecision, &numericScale); err != nil {
			return nil, fmt.Errorf("dbconn: scanning schema row for %s: %w", strings.Join(path, "."), err)
		}
		raw := typemodel.RawColumnInfo{
			ColumnName:        columnName,
			DataType:          dataType,
			DatetimePrecision: datetimePrecision,
			NumericPrecision:  numericPrecision,
			NumericScale:      numericScale,
		}
		result.Add(columnName, db.Dialect.ParseType(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, &direrr.TableDoesNotExistError{TablePath: path}
	}
	return result, nil
}

// SelectTableUniqueColumns returns the column names participating in any
// unique or primary-key constraint on path, matching
// Database.query_table_unique_columns. Returns an error for dialects that
// don't expose key_column_usage semantics the same way (none currently;
// kept for parity with the source's SUPPORTS_UNIQUE_CONSTAINT guard).
func (db *Database) SelectTableUniqueColumns(ctx context.Context, path []string) ([]string, error) {
	schemaName, tableName, err := normalizeTablePath(path, db.defaultSchema())
	if err != nil {
		return nil, err
	}
	rows, err := db.db.QueryxContext(ctx, selectTableUniqueColumnsSQL(schemaName, tableName))
	if err != nil {
		return nil, fmt.Errorf("dbconn: querying unique columns for %s: %w", strings.Join(path, "."), err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// defaultSchema is "" unless a caller configures one; callers typically
// supply fully-qualified 2-element paths, so DefaultSchema is rarely needed,
// but is kept for parity with Database.default_schema.
func (db *Database) defaultSchema() string { return db.DefaultSchema }
