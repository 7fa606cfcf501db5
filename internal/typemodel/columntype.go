// Package typemodel holds the tagged-union column type model shared by every
// Dialect, plus the Schema abstraction used to look up a table's columns.
//
// ColumnType is a closed set of variants (see SPEC_FULL.md §3): dispatch is
// via type switch, not virtual methods, matching the teacher's own closed
// enums (tengo.DiffType, tengo.Vendor).
package typemodel

import "fmt"

// ColumnType is a tagged variant describing a single column's data type, as
// parsed from a database's information_schema-equivalent metadata. The set
// of concrete implementations is closed; see SPEC_FULL.md §3.
type ColumnType interface {
	fmt.Stringer

	// IsKey reports whether values of this type may be used as a primary or
	// composite key column (participate in Vector comparisons/arithmetic).
	IsKey() bool

	isColumnType() // unexported marker restricts implementations to this package
}

// Integer is a whole-number column type. Precision is always 0.
type Integer struct{}

func (Integer) String() string { return "integer" }
func (Integer) IsKey() bool    { return true }
func (Integer) isColumnType()  {}

// Decimal is a fixed-point numeric type. Precision is the number of
// fractional digits retained for comparison purposes. Only usable as a key
// when Precision is 0.
type Decimal struct {
	Precision int
}

func (d Decimal) String() string { return fmt.Sprintf("decimal(%d)", d.Precision) }
func (d Decimal) IsKey() bool    { return d.Precision == 0 }
func (Decimal) isColumnType()    {}

// Float is a binary floating-point type. Precision is expressed in decimal
// digits, derived from the column's binary precision as floor(p*log10(2)).
type Float struct {
	Precision int
}

func (f Float) String() string { return fmt.Sprintf("float(%d)", f.Precision) }
func (Float) IsKey() bool      { return false }
func (Float) isColumnType()    {}

// Boolean is a two-valued type, normalized to the strings "0" or "1".
type Boolean struct{}

func (Boolean) String() string { return "boolean" }
func (Boolean) IsKey() bool    { return false }
func (Boolean) isColumnType()  {}

// TemporalType is implemented by every time-related ColumnType variant, so
// that precision-reduction logic (HashDiffer step 1) can operate on them
// uniformly regardless of the specific variant.
type TemporalType interface {
	ColumnType
	TemporalPrecision() int
	RoundsOnPrecisionLoss() bool
	WithPrecision(precision int, rounds bool) TemporalType
}

// Timestamp is a timezone-naive instant with fractional-second Precision
// digits (0-6). RoundsOnLoss reports whether the owning Dialect rounds
// (true) or truncates (false) on precision loss.
type Timestamp struct {
	Precision    int
	RoundsOnLoss bool
}

func (t Timestamp) String() string             { return fmt.Sprintf("timestamp(%d)", t.Precision) }
func (Timestamp) IsKey() bool                  { return false }
func (Timestamp) isColumnType()                {}
func (t Timestamp) TemporalPrecision() int     { return t.Precision }
func (t Timestamp) RoundsOnPrecisionLoss() bool { return t.RoundsOnLoss }
func (t Timestamp) WithPrecision(p int, r bool) TemporalType {
	t.Precision, t.RoundsOnLoss = p, r
	return t
}

// TimestampTZ is a timezone-aware instant.
type TimestampTZ struct {
	Precision    int
	RoundsOnLoss bool
}

func (t TimestampTZ) String() string              { return fmt.Sprintf("timestamptz(%d)", t.Precision) }
func (TimestampTZ) IsKey() bool                   { return false }
func (TimestampTZ) isColumnType()                 {}
func (t TimestampTZ) TemporalPrecision() int      { return t.Precision }
func (t TimestampTZ) RoundsOnPrecisionLoss() bool { return t.RoundsOnLoss }
func (t TimestampTZ) WithPrecision(p int, r bool) TemporalType {
	t.Precision, t.RoundsOnLoss = p, r
	return t
}

// Datetime is a civil timestamp with no implied timezone semantics distinct
// from Timestamp (some engines, e.g. MySQL, distinguish DATETIME from
// TIMESTAMP at the storage/conversion level even though both are naive).
type Datetime struct {
	Precision    int
	RoundsOnLoss bool
}

func (t Datetime) String() string              { return fmt.Sprintf("datetime(%d)", t.Precision) }
func (Datetime) IsKey() bool                   { return false }
func (Datetime) isColumnType()                 {}
func (t Datetime) TemporalPrecision() int      { return t.Precision }
func (t Datetime) RoundsOnPrecisionLoss() bool { return t.RoundsOnLoss }
func (t Datetime) WithPrecision(p int, r bool) TemporalType {
	t.Precision, t.RoundsOnLoss = p, r
	return t
}

// Date is a calendar date with no time-of-day component. Precision is
// always 0.
type Date struct{}

func (Date) String() string                        { return "date" }
func (Date) IsKey() bool                            { return false }
func (Date) isColumnType()                          {}
func (Date) TemporalPrecision() int                 { return 0 }
func (Date) RoundsOnPrecisionLoss() bool            { return false }
func (d Date) WithPrecision(int, bool) TemporalType { return d }

// Text is an ordinary string column. Not a key by default; with_schema may
// refine a sample of Text columns into StringUUID or StringAlphanum.
type Text struct{}

func (Text) String() string { return "text" }
func (Text) IsKey() bool    { return false }
func (Text) isColumnType()  {}

// StringUUID is a UUID stored as a plain string column (as opposed to a
// driver-native UUID type).
type StringUUID struct {
	Lowercase bool // records the letter case of stored values; no dialect's NormalizeUUID reads it, so values are compared in the case the database returns
}

func (StringUUID) String() string { return "uuid(string)" }
func (StringUUID) IsKey() bool    { return true }
func (StringUUID) isColumnType()  {}

// NativeUUID is a UUID stored using the database's native UUID type.
type NativeUUID struct {
	Lowercase bool
}

func (NativeUUID) String() string { return "uuid(native)" }
func (NativeUUID) IsKey() bool    { return true }
func (NativeUUID) isColumnType()  {}

// StringAlphanum is a string column whose sampled values all matched the
// key-space alphabet (see internal/keyspace), making it usable as an
// arithmetic key via ArithAlphanumeric. Fixed reports whether all sampled
// values shared one length (Len is then authoritative); otherwise lengths
// vary and Len is the maximum observed length.
type StringAlphanum struct {
	Fixed bool
	Len   int
}

func (s StringAlphanum) String() string {
	if s.Fixed {
		return fmt.Sprintf("alphanum(%d)", s.Len)
	}
	return fmt.Sprintf("alphanum(<=%d)", s.Len)
}
func (StringAlphanum) IsKey() bool   { return true }
func (StringAlphanum) isColumnType() {}

// JSON is a semi-structured column compared only via its canonical
// string-serialized form.
type JSON struct{}

func (JSON) String() string { return "json" }
func (JSON) IsKey() bool    { return false }
func (JSON) isColumnType()  {}

// Array is a homogeneous sequence column of the given item type, compared
// only via its string-serialized form.
type Array struct {
	Item ColumnType
}

func (a Array) String() string { return fmt.Sprintf("array<%s>", a.Item) }
func (Array) IsKey() bool      { return false }
func (Array) isColumnType()    {}

// Struct is a heterogeneous composite column, compared only via its
// string-serialized form.
type Struct struct{}

func (Struct) String() string { return "struct" }
func (Struct) IsKey() bool    { return false }
func (Struct) isColumnType()  {}

// Unknown represents a raw type string the owning Dialect could not parse.
// Unknown columns may only pass through unnormalized; diffing a relevant
// column of this type without special handling should be treated as
// unsupported by callers.
type Unknown struct {
	Raw string
}

func (u Unknown) String() string { return fmt.Sprintf("unknown(%s)", u.Raw) }
func (Unknown) IsKey() bool      { return false }
func (Unknown) isColumnType()    {}

// NumericType is implemented by Decimal and Float (but not Integer, whose
// precision is fixed at 0) so that HashDiffer's mutual-precision reduction
// (spec §4.4) can treat fractional numeric types uniformly.
type NumericType interface {
	ColumnType
	NumericPrecision() int
	WithNumericPrecision(precision int) ColumnType
}

func (d Decimal) NumericPrecision() int                { return d.Precision }
func (d Decimal) WithNumericPrecision(p int) ColumnType { d.Precision = p; return d }
func (f Float) NumericPrecision() int                   { return f.Precision }
func (f Float) WithNumericPrecision(p int) ColumnType    { f.Precision = p; return f }
