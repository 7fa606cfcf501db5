// Package dialect generates the per-engine SQL fragments the query
// compiler and TableSegment rely on: identifier quoting, casts, the
// checksum expression, value-normalization expressions, and LIMIT/OFFSET
// clauses (spec §4.1).
//
// Grounded on the teacher's internal/tengo Flavor abstraction (flavor.go),
// generalized from "one vendor, many behavior flags" to "one interface,
// one implementation per vendor" the way
// original_source/data_diff/sqeleton/databases/base.py's BaseDialect and
// its per-engine subclasses (mysql.py, postgresql.py) are structured.
package dialect

import (
	"fmt"
	"math"

	"github.com/skeema/rowdiff/internal/typemodel"
)

// Checksum layout constants shared byte-for-byte across every Dialect
// implementation (spec §4.1 "md5_as_int"). CHECKSUM_HEXDIGITS must stay at
// or below 15 or SUM() can overflow a 64-bit accumulator.
const (
	MD5HexDigits      = 32
	ChecksumHexDigits = 15
	checksumBitSize   = ChecksumHexDigits << 2 // 60

	// ChecksumMask keeps the low 60 bits of the truncated MD5 integer.
	ChecksumMask = (int64(1) << checksumBitSize) - 1

	// ChecksumOffset centers the unsigned 60-bit checksum range around
	// zero, matching the source's CHECKSUM_OFFSET so that row contributions
	// sum without a large constant bias dominating the total.
	ChecksumOffset = int64(1) << (checksumBitSize - 1)

	// DefaultDatetimePrecision and DefaultNumericPrecision backfill a
	// column's precision when the schema query returned none.
	DefaultDatetimePrecision = 6
	DefaultNumericPrecision  = 24

	// TimestampPrecisionPos is len("2022-06-03 12:24:35.") == 20, the offset
	// at which fractional-second digits begin in a normalized timestamp.
	TimestampPrecisionPos = 20
)

// Dialect is implemented once per supported database engine. Every method
// returns a fragment of SQL text (or, for parse/compile-time decisions, a
// Go value) rather than executing anything itself -- the Dialect has no
// connection of its own.
type Dialect interface {
	// Name is the human-readable engine name, e.g. "MySQL".
	Name() string

	// RoundsOnPrecisionLoss reports whether this engine rounds (true) or
	// truncates (false) when casting a timestamp down to lower precision.
	RoundsOnPrecisionLoss() bool

	// SupportsPrimaryKey reports whether CREATE TABLE ... PRIMARY KEY is
	// honored (affects whether scratch/materialized tables get a real key).
	SupportsPrimaryKey() bool

	Quote(identifier string) string
	ToString(expr string) string
	Concat(exprs []string) string
	IsDistinctFrom(a, b string) string
	Random() string
	CurrentTimestamp() string
	OffsetLimit(offset, limit *int) (string, error)
	SetTimezoneToUTC() string
	TimestampValue(isoTimestamp string) string

	// MD5AsInt returns an expression yielding a deterministic integer
	// truncation of md5(expr): the low ChecksumHexDigits hex digits of the
	// hash, as a signed 60-bit integer centered by ChecksumOffset (spec
	// §4.1). Every dialect must agree on this bit slice for a given input
	// byte string.
	MD5AsInt(expr string) string

	// Normalize* render `value` (already known to carry the given
	// ColumnType) as a canonical string expression comparable across
	// engines (spec §3 "Cross-dialect value normalization contract").
	NormalizeTimestamp(value string, ct typemodel.TemporalType) string
	NormalizeNumber(value string, ct typemodel.NumericType) string
	NormalizeBoolean(value string) string
	NormalizeUUID(value string, ct typemodel.ColumnType) string
	NormalizeJSON(value string) (string, error)

	// NormalizeValueByType dispatches to the Normalize* method matching
	// ct's kind, falling back to ToString for everything else (Integer,
	// Text, Unknown). This is the single entry point the compiler's
	// NormalizeAsString node calls (spec §4.2).
	NormalizeValueByType(value string, ct typemodel.ColumnType) (string, error)

	// ParseType converts a raw information_schema row into a ColumnType,
	// applying this dialect's RoundsOnPrecisionLoss and precision defaults
	// (spec §4.1 "parse_type").
	ParseType(raw typemodel.RawColumnInfo) typemodel.ColumnType
}

// base centralizes the behavior that BaseDialect supplies by default in
// the source (offset_limit, concat, is_distinct_from, current_timestamp,
// timestamp_value) so each concrete Dialect only overrides what its engine
// actually does differently, matching the teacher's habit of small
// per-flavor structs embedding shared defaults.
type base struct {
	rounds             bool
	supportsPrimaryKey bool
	quoteChar          string
}

func (b base) RoundsOnPrecisionLoss() bool { return b.rounds }
func (b base) SupportsPrimaryKey() bool    { return b.supportsPrimaryKey }

func (b base) Quote(identifier string) string {
	return b.quoteChar + identifier + b.quoteChar
}

func (b base) Concat(exprs []string) string {
	if len(exprs) < 2 {
		panic("dialect: Concat requires at least 2 expressions")
	}
	out := "concat(" + exprs[0]
	for _, e := range exprs[1:] {
		out += ", " + e
	}
	return out + ")"
}

func (b base) IsDistinctFrom(a, bExpr string) string {
	return fmt.Sprintf("%s is distinct from %s", a, bExpr)
}

func (b base) Random() string { return "random()" }

func (b base) CurrentTimestamp() string { return "current_timestamp()" }

func (b base) TimestampValue(isoTimestamp string) string { return "'" + isoTimestamp + "'" }

// SetTimezoneToUTC has no portable default: most engines the original
// source supports either lack a session timezone concept worth adjusting
// (Snowflake normalizes through explicit casts instead) or require a
// dialect-specific override (MySQL, Postgres). Concrete dialects without
// their own need override this only if a caller actually invokes it.
func (b base) SetTimezoneToUTC() string {
	return ""
}

func (b base) OffsetLimit(offset, limit *int) (string, error) {
	if offset != nil {
		return "", fmt.Errorf("dialect: OFFSET is not supported in this query form")
	}
	if limit == nil {
		return "", nil
	}
	return fmt.Sprintf("LIMIT %d", *limit), nil
}

// convertBinaryPrecisionToDigits mirrors
// BaseDialect._convert_db_precision_to_digits: floats report precision in
// bits; this converts to the equivalent number of decimal digits.
func convertBinaryPrecisionToDigits(bits int) int {
	return int(math.Floor(math.Log10(math.Pow(2, float64(bits)))))
}
