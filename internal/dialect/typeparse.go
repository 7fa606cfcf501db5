package dialect

import (
	"strings"

	"github.com/skeema/rowdiff/internal/typemodel"
)

// typeClass builds a ColumnType from a raw information_schema row, given
// the owning dialect (for RoundsOnPrecisionLoss and precision-unit
// conversions). This is the Go analogue of BaseDialect.parse_type's
// per-TYPE_CLASSES-entry dispatch in
// original_source/data_diff/sqeleton/databases/base.py.
type typeClass func(d Dialect, raw typemodel.RawColumnInfo) typemodel.ColumnType

// classFixed returns a typeClass that ignores raw and always returns ct,
// for types with no precision of their own (Integer, Boolean, Date, Text).
func classFixed(ct typemodel.ColumnType) typeClass {
	return func(Dialect, typemodel.RawColumnInfo) typemodel.ColumnType { return ct }
}

// classTemporal returns a typeClass for a TemporalType variant, applying
// the raw datetime_precision (defaulting to DefaultDatetimePrecision) and
// the dialect's RoundsOnPrecisionLoss flag.
func classTemporal(zero func() typemodel.TemporalType) typeClass {
	return func(d Dialect, raw typemodel.RawColumnInfo) typemodel.ColumnType {
		precision := DefaultDatetimePrecision
		if raw.DatetimePrecision != nil {
			precision = *raw.DatetimePrecision
		}
		return zero().WithPrecision(precision, d.RoundsOnPrecisionLoss())
	}
}

// classDecimal builds a typemodel.Decimal from raw.NumericScale
// (defaulting to 0, needed for engines like Oracle that omit it).
func classDecimal(_ Dialect, raw typemodel.RawColumnInfo) typemodel.ColumnType {
	scale := 0
	if raw.NumericScale != nil {
		scale = *raw.NumericScale
	}
	return typemodel.Decimal{Precision: scale}
}

// classFloat builds a typemodel.Float, converting raw.NumericPrecision
// (binary bits, defaulting to DefaultNumericPrecision) to decimal digits.
func classFloat(_ Dialect, raw typemodel.RawColumnInfo) typemodel.ColumnType {
	bits := DefaultNumericPrecision
	if raw.NumericPrecision != nil {
		bits = *raw.NumericPrecision
	}
	return typemodel.Float{Precision: convertBinaryPrecisionToDigits(bits)}
}

// parseType looks up raw.DataType (case-folded) in classes and invokes the
// matching typeClass, falling back to typemodel.Unknown when the raw type
// string isn't recognized by this dialect.
func parseType(d Dialect, classes map[string]typeClass, raw typemodel.RawColumnInfo) typemodel.ColumnType {
	cls, ok := classes[strings.ToLower(raw.DataType)]
	if !ok {
		return typemodel.Unknown{Raw: raw.DataType}
	}
	return cls(d, raw)
}

// normalizeValueByType is the shared NormalizeValueByType dispatcher every
// concrete Dialect delegates to: it matches ct's kind and calls the
// corresponding Normalize* method, falling back to ToString for Integer,
// Text, StringAlphanum, Array, Struct and Unknown -- mirroring
// AbstractMixin_NormalizeValue.normalize_value_by_type.
func normalizeValueByType(d Dialect, value string, ct typemodel.ColumnType) (string, error) {
	switch c := ct.(type) {
	case typemodel.TemporalType:
		return d.NormalizeTimestamp(value, c), nil
	case typemodel.NumericType:
		return d.NormalizeNumber(value, c), nil
	case typemodel.Boolean:
		return d.NormalizeBoolean(value), nil
	case typemodel.StringUUID:
		return d.NormalizeUUID(value, c), nil
	case typemodel.NativeUUID:
		return d.NormalizeUUID(value, c), nil
	case typemodel.JSON:
		return d.NormalizeJSON(value)
	case typemodel.Array:
		return d.NormalizeJSON(value)
	case typemodel.Struct:
		return d.NormalizeJSON(value)
	default:
		return d.ToString(value), nil
	}
}
