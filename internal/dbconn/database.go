// Package dbconn wraps a *sqlx.DB with the dialect-aware query helpers used
// throughout this module (spec §4.3 "Database"): schema introspection,
// table-path parsing, and a connection-pool cache keyed by DSN.
//
// Grounded on original_source/data_diff/sqeleton/databases/base.py's
// Database/ThreadedDatabase split, and on teacher's internal/tengo's
// instance.go (CachedConnectionPool, rawConnectionPool, mutex-protected pool
// map). Go's database/sql (and sqlx atop it) already pools connections
// safely across goroutines for every driver this module targets, so there is
// no Go analogue of ThreadedDatabase's single-worker-thread-per-connection
// workaround for thread-unsafe Python DB-API drivers; RunSequence below
// covers the one case that workaround existed for -- running several
// statements against the same session/cursor in order (e.g. creating a
// scratch table, then inserting into it). It returns no result rows.
package dbconn

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/skeema/rowdiff/internal/dialect"
	"github.com/skeema/rowdiff/internal/queryast"
)

// Database wraps a connection pool for one dialect/DSN combination.
type Database struct {
	Dialect       dialect.Dialect
	DriverName    string
	DSN           string
	DefaultSchema string
	Logger        logrus.FieldLogger

	db         *sqlx.DB
	autocommit bool
}

// Open establishes a new, uncached connection pool for d against dsn using
// driverName (e.g. "mysql", "postgres"). The pool's size and lifetime are
// tuned the way teacher's rawConnectionPool tunes Instance connection pools.
func Open(ctx context.Context, driverName, dsn string, d dialect.Dialect) (*Database, error) {
	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("dbconn: connecting via %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Minute)
	db.SetConnMaxIdleTime(10 * time.Second)

	return &Database{
		Dialect:    d,
		DriverName: driverName,
		DSN:        dsn,
		Logger:     logrus.StandardLogger(),
		db:         db.Unsafe(),
		autocommit: true,
	}, nil
}

// Close releases the underlying connection pool.
func (db *Database) Close() error {
	return db.db.Close()
}

// IsAutocommit reports whether statements issued against this Database
// commit immediately, matching ThreadedDatabase.is_autocommit's role in
// deciding whether queryast.Commit needs to emit COMMIT.
func (db *Database) IsAutocommit() bool { return db.autocommit }

// SetAutocommit overrides the autocommit flag used by Commit; exposed for
// tests and for drivers whose DSN already requests non-default behavior.
func (db *Database) SetAutocommit(v bool) { db.autocommit = v }

// SetMaxOpenConns resizes the underlying pool. Connect uses this to apply
// the caller's requested thread_count (spec §6): Go's database/sql pool
// already does the job the source's ThreadedDatabase worker-thread count
// existed for, so thread_count maps onto pool size rather than a literal
// worker-thread pool.
func (db *Database) SetMaxOpenConns(n int) { db.db.SetMaxOpenConns(n) }

// Query compiles root against db.Dialect and runs it, logging the rendered
// SQL at debug level the way Database.query does in the source.
func (db *Database) Query(ctx context.Context, root queryast.Node) (*sqlx.Rows, error) {
	sql := queryast.Compile(db.Dialect, root)
	db.Logger.WithField("database", db.Dialect.Name()).Debugf("running SQL: %s", sql)
	return db.db.QueryxContext(ctx, sql)
}

// QueryRow compiles root and runs it, expecting exactly one result row.
func (db *Database) QueryRow(ctx context.Context, root queryast.Node) (*sqlx.Row, error) {
	sql := queryast.Compile(db.Dialect, root)
	db.Logger.WithField("database", db.Dialect.Name()).Debugf("running SQL: %s", sql)
	return db.db.QueryRowxContext(ctx, sql), nil
}

// Exec compiles root and runs it for side effects only (DDL/DML statements).
func (db *Database) Exec(ctx context.Context, root queryast.Node) error {
	sql := queryast.Compile(db.Dialect, root)
	if strings.TrimSpace(sql) == "" {
		return nil // e.g. queryast.Commit{Autocommit: true}
	}
	db.Logger.WithField("database", db.Dialect.Name()).Debugf("running SQL: %s", sql)
	_, err := db.db.ExecContext(ctx, sql)
	return err
}

// RunSequence runs each statement in order against the same underlying
// connection, matching ThreadLocalInterpreter's role of executing a
// generator of queries "within the same thread and cursor" -- for when a
// later statement (e.g. an INSERT into a just-created scratch table) depends
// on an earlier one (CREATE TABLE) having been committed or at least visible
// within the same session. Each statement is executed for its side effects;
// any rows a statement returns are discarded.
func (db *Database) RunSequence(ctx context.Context, stmts []queryast.Node) error {
	conn, err := db.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, stmt := range stmts {
		sql := queryast.Compile(db.Dialect, stmt)
		if strings.TrimSpace(sql) == "" {
			continue
		}
		db.Logger.WithField("database", db.Dialect.Name()).Debugf("running SQL: %s", sql)
		if _, err := conn.ExecContext(ctx, sql); err != nil {
			return fmt.Errorf("dbconn: running statement %q: %w", sql, err)
		}
	}
	return nil
}

// ParseTableName splits a dotted table reference into its path components,
// matching base.py's module-level parse_table_name.
func ParseTableName(name string) []string {
	return strings.Split(name, ".")
}

// normalizeTablePath expands a 1-part path to (defaultSchema, table), or
// passes through a 2-part (schema, table) path, mirroring
// Database._normalize_table_path.
func normalizeTablePath(path []string, defaultSchema string) (schema, table string, err error) {
	switch len(path) {
	case 1:
		return defaultSchema, path[0], nil
	case 2:
		return path[0], path[1], nil
	default:
		return "", "", fmt.Errorf("dbconn: bad table path %q, expected schema.table or table", strings.Join(path, "."))
	}
}

var cache struct {
	sync.Mutex
	pools map[string]*Database
}

func init() {
	cache.pools = make(map[string]*Database)
}

// Cached returns a shared *Database for the given driver/dsn/dialect
// combination, opening a new pool only the first time it's requested --
// grounded on teacher's util/cache.go NewInstance and
// Instance.CachedConnectionPool.
func Cached(ctx context.Context, driverName, dsn string, d dialect.Dialect) (*Database, error) {
	key := driverName + ":" + dsn
	cache.Lock()
	defer cache.Unlock()
	if db, ok := cache.pools[key]; ok {
		return db, nil
	}
	db, err := Open(ctx, driverName, dsn, d)
	if err != nil {
		return nil, err
	}
	cache.pools[key] = db
	return db, nil
}

// clearCacheForTests drops all cached pools; used only by this package's
// tests so they don't leak state across test functions.
func clearCacheForTests() {
	cache.Lock()
	defer cache.Unlock()
	cache.pools = make(map[string]*Database)
}
