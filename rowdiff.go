// Package rowdiff provides the public API of a cross-database table-diff
// engine: Connect to a database by URI, wrap a table in a TableSegment with
// ConnectToTable, and compare two segments with DiffTables, which streams
// the result as a Yielder of signed rows (spec §6 "External Interfaces").
//
// Grounded on original_source/data_diff/__init__.py's top-level connect/
// connect_to_table/diff_tables functions, re-expressed as three ordinary Go
// functions rather than a package __init__ surface.
package rowdiff

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/skeema/rowdiff/internal/dbconn"
	"github.com/skeema/rowdiff/internal/dialect"
	"github.com/skeema/rowdiff/internal/diffengine"
	"github.com/skeema/rowdiff/internal/direrr"
	"github.com/skeema/rowdiff/internal/keyspace"
	"github.com/skeema/rowdiff/internal/scheduler"
	"github.com/skeema/rowdiff/internal/tablesegment"
	"github.com/skeema/rowdiff/internal/typemodel"
)

// schemeDrivers maps a connection URI scheme to the driver/dialect pair
// that actually has a database/sql driver wired into go.mod. Every other
// spec-named scheme (oracle, snowflake, bigquery, presto, trino,
// databricks, clickhouse, vertica, duckdb, mssql) is recognized by
// Connect only well enough to report a ConfigurationError naming it --
// Snowflake and BigQuery get a Dialect (dialect.NewSnowflake,
// dialect.NewBigQuery) for algorithmic completeness, but no driver import
// backs them, so Connect cannot open a real connection for those schemes
// either.
var schemeDrivers = map[string]struct {
	driverName string
	dialect    func() dialect.Dialect
}{
	"postgresql": {"postgres", func() dialect.Dialect { return dialect.NewPostgres() }},
	"postgres":   {"postgres", func() dialect.Dialect { return dialect.NewPostgres() }},
	"mysql":      {"mysql", func() dialect.Dialect { return dialect.NewMySQL() }},
	"redshift":   {"postgres", func() dialect.Dialect { return dialect.NewRedshift() }},
}

// Connect opens (or reuses, from the shared connection-pool cache) a
// *dbconn.Database for uri, a DSN of the form "scheme://...". A positive
// threadCount caps the Database's connection pool size (SetMaxOpenConns);
// individual diffs still take their own Threaded/MaxThreadpoolSize options.
func Connect(ctx context.Context, uri string, threadCount int) (*dbconn.Database, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, &direrr.ConfigurationError{Reason: fmt.Sprintf("invalid connection URI: %s", err)}
	}
	scheme := strings.ToLower(parsed.Scheme)
	wiring, ok := schemeDrivers[scheme]
	if !ok {
		return nil, &direrr.ConfigurationError{
			Reason: fmt.Sprintf("unsupported or not-yet-wired connection scheme %q", scheme),
		}
	}

	db, err := dbconn.Cached(ctx, wiring.driverName, uri, wiring.dialect())
	if err != nil {
		return nil, &direrr.ConnectionError{DSN: uri, Err: err}
	}
	if threadCount > 0 {
		db.SetMaxOpenConns(threadCount)
	}
	return db, nil
}

// keyArithFor picks the keyspace.Arith "kind selector" matching ct, the
// ColumnType of a key column, mirroring tablesegment.parseWithArith's
// switch on the concrete Arith type -- ConnectToTable uses it to fill in
// TableSegment.KeyArith from the schema that WithSchema fetched and refined.
func keyArithFor(name string, ct typemodel.ColumnType) (keyspace.Arith, error) {
	switch t := ct.(type) {
	case typemodel.Integer:
		return keyspace.IntKey(0), nil
	case typemodel.StringUUID:
		return keyspace.ArithUUID{}, nil
	case typemodel.NativeUUID:
		return keyspace.ArithUUID{}, nil
	case typemodel.StringAlphanum:
		return keyspace.ArithAlphanumeric{MaxLen: t.Len}, nil
	default:
		return nil, &direrr.SchemaError{
			Column: name,
			Reason: fmt.Sprintf("column type %s cannot be used as a bisectable key", ct),
		}
	}
}

// ConnectToTableOptions carries the optional parameters of connect_to_table
// beyond the required key column (spec §6).
type ConnectToTableOptions struct {
	UpdateColumn  string
	ExtraColumns  []string
	Where         string
	CaseSensitive bool
}

// ConnectToTable builds a TableSegment for path/keyColumn, runs WithSchema
// so a text-typed keyColumn gets its sample-and-retype pass (spec §4.5), and
// infers a bisectable Arith for keyColumn from the *refined* ColumnType --
// this is what lets a UUID or alphanumeric primary key stored in a
// varchar/text column actually be used as a key, instead of only the
// database's native UUID/integer types.
func ConnectToTable(ctx context.Context, db *dbconn.Database, path []string, keyColumn string, opts ConnectToTableOptions) (*tablesegment.TableSegment, error) {
	keyCols := []string{keyColumn}

	seg, err := tablesegment.New(tablesegment.TableSegment{
		DB:            db,
		TablePath:     path,
		KeyColumns:    keyCols,
		UpdateColumn:  opts.UpdateColumn,
		ExtraColumns:  opts.ExtraColumns,
		Where:         opts.Where,
		CaseSensitive: opts.CaseSensitive,
	})
	if err != nil {
		return nil, err
	}

	seg, err = seg.WithSchema(ctx)
	if err != nil {
		return nil, err
	}

	arith := make([]keyspace.Arith, len(keyCols))
	for i, col := range keyCols {
		ct, ok := seg.Schema().Get(col)
		if !ok {
			return nil, &direrr.SchemaError{TablePath: path, Column: col, Reason: "key column not found in table schema"}
		}
		a, err := keyArithFor(col, ct)
		if err != nil {
			return nil, err
		}
		arith[i] = a
	}
	seg.KeyArith = arith

	return seg, nil
}

// Algorithm selects which differ DiffTables runs.
type Algorithm string

const (
	// AlgorithmAuto picks JoinDiff when both segments share one Database,
	// HashDiff otherwise (spec §6 "auto picks joindiff iff both sides are
	// the same Database, else hashdiff").
	AlgorithmAuto     Algorithm = "auto"
	AlgorithmHashDiff Algorithm = "hashdiff"
	AlgorithmJoinDiff Algorithm = "joindiff"
)

// DiffOptions carries diff_tables' optional bisection/concurrency/
// materialization parameters (spec §6); zero values resolve to each
// differ's documented defaults, except ValidateUniqueKey, whose zero value
// (false) turns JoinDiffer's duplicate-key validation off.
type DiffOptions struct {
	Algorithm          Algorithm
	BisectionFactor    int
	BisectionThreshold int64
	Threaded           bool
	MaxThreadpoolSize  int

	// JoinDiff-only; ignored when the resolved algorithm is HashDiff.
	ValidateUniqueKey  bool
	MaterializeToTable []string
	MaterializeAllRows bool
	TableWriteLimit    int
	SkipNullKeys       bool
}

// resolveAlgorithm applies the auto rule: joindiff iff a and b share one
// Database connection, else hashdiff.
func resolveAlgorithm(algo Algorithm, a, b *tablesegment.TableSegment) (Algorithm, error) {
	switch algo {
	case "", AlgorithmAuto:
		if a.DB == b.DB {
			return AlgorithmJoinDiff, nil
		}
		return AlgorithmHashDiff, nil
	case AlgorithmHashDiff, AlgorithmJoinDiff:
		return algo, nil
	default:
		return "", &direrr.ConfigurationError{Reason: fmt.Sprintf("unknown algorithm %q", algo)}
	}
}

// DiffTables compares a against b and returns a Yielder streaming DiffRows
// (sign "-" for rows only in a, "+" for rows only in b) as they are found,
// the differ's stats, and any synchronous setup error. The stats value is
// a *diffengine.HashStats or *diffengine.JoinStats depending on which
// algorithm ran; callers type-assert to the one they expect, or to
// whichever resolveAlgorithm would pick given Algorithm. Per
// scheduler.Yielder's contract, callers must drain Results() to completion
// before consulting Err() -- for HashDiff that means Yielder.Err(), since
// HashStats carries no error field of its own; JoinDiffer additionally
// surfaces background validation failures (duplicate/null keys) through
// JoinStats.Err().
func DiffTables(ctx context.Context, a, b *tablesegment.TableSegment, opts DiffOptions) (*scheduler.Yielder[diffengine.DiffRow], any, error) {
	algo, err := resolveAlgorithm(opts.Algorithm, a, b)
	if err != nil {
		return nil, nil, err
	}

	switch algo {
	case AlgorithmHashDiff:
		hd := &diffengine.HashDiffer{
			BisectionFactor:    opts.BisectionFactor,
			BisectionThreshold: opts.BisectionThreshold,
			Threaded:           opts.Threaded,
			MaxThreadpoolSize:  opts.MaxThreadpoolSize,
		}
		y, stats, err := hd.DiffTables(ctx, a, b)
		if err != nil {
			return nil, nil, err
		}
		return y, stats, nil
	case AlgorithmJoinDiff:
		jd := &diffengine.JoinDiffer{
			BisectionFactor:    opts.BisectionFactor,
			BisectionThreshold: opts.BisectionThreshold,
			Threaded:           opts.Threaded,
			MaxThreadpoolSize:  opts.MaxThreadpoolSize,
			ValidateUniqueKey:  opts.ValidateUniqueKey,
			MaterializeToTable: opts.MaterializeToTable,
			MaterializeAllRows: opts.MaterializeAllRows,
			TableWriteLimit:    opts.TableWriteLimit,
			SkipNullKeys:       opts.SkipNullKeys,
		}
		y, stats, err := jd.DiffTables(ctx, a, b)
		if err != nil {
			return nil, nil, err
		}
		return y, stats, nil
	default:
		return nil, nil, &direrr.ConfigurationError{Reason: fmt.Sprintf("unknown algorithm %q", algo)}
	}
}
