package dialect

import (
	"fmt"
	"strings"

	"github.com/skeema/rowdiff/internal/typemodel"
)

// Postgres implements Dialect for PostgreSQL, grounded on
// original_source/data_diff/sqeleton/databases/postgresql.py.
type Postgres struct{ base }

func NewPostgres() *Postgres {
	return &Postgres{base{rounds: true, supportsPrimaryKey: true, quoteChar: `"`}}
}

func (d *Postgres) Name() string { return "PostgreSQL" }

func (d *Postgres) ToString(s string) string { return s + "::varchar" }

func (d *Postgres) SetTimezoneToUTC() string { return "SET TIME ZONE 'UTC'" }

func (d *Postgres) CurrentTimestamp() string { return "current_timestamp" }

// MD5AsInt mirrors postgresql.py: reinterpret the low ChecksumHexDigits hex
// digits as a bit string, cast to bigint, then subtract ChecksumOffset to
// center the range.
func (d *Postgres) MD5AsInt(s string) string {
	return fmt.Sprintf("('x' || substring(md5(%s), %d))::bit(%d)::bigint - %d",
		s, 1+MD5HexDigits-ChecksumHexDigits, checksumBitSize, ChecksumOffset)
}

func (d *Postgres) NormalizeTimestamp(value string, ct typemodel.TemporalType) string {
	if ct.RoundsOnPrecisionLoss() {
		return fmt.Sprintf("to_char(%s::timestamp(%d), 'YYYY-mm-dd HH24:MI:SS.US')", value, ct.TemporalPrecision())
	}
	ts6 := fmt.Sprintf("to_char(%s::timestamp(6), 'YYYY-mm-dd HH24:MI:SS.US')", value)
	return fmt.Sprintf("RPAD(LEFT(%s, %d), %d, '0')",
		ts6, TimestampPrecisionPos+ct.TemporalPrecision(), TimestampPrecisionPos+6)
}

func (d *Postgres) NormalizeNumber(value string, ct typemodel.NumericType) string {
	return d.ToString(fmt.Sprintf("%s::decimal(38, %d)", value, ct.NumericPrecision()))
}

func (d *Postgres) NormalizeBoolean(value string) string {
	return d.ToString(fmt.Sprintf("%s::int", value))
}

func (d *Postgres) NormalizeUUID(value string, ct typemodel.ColumnType) string {
	if _, ok := ct.(typemodel.StringUUID); ok {
		return fmt.Sprintf("TRIM(%s)", value)
	}
	return d.ToString(value)
}

func (d *Postgres) NormalizeJSON(value string) (string, error) {
	return fmt.Sprintf("%s::jsonb::text", value), nil
}

func (d *Postgres) NormalizeValueByType(value string, ct typemodel.ColumnType) (string, error) {
	return normalizeValueByType(d, value, ct)
}

// convertBinaryPrecisionToDigits is adjusted by -2 relative to the shared
// helper, matching postgresql.py's comment about "weird precision issues
// in PostgreSQL".
func (d *Postgres) convertBinaryPrecisionToDigits(bits int) int {
	return convertBinaryPrecisionToDigits(bits) - 2
}

func (d *Postgres) ParseType(raw typemodel.RawColumnInfo) typemodel.ColumnType {
	cls, ok := postgresTypeClasses[strings.ToLower(raw.DataType)]
	if !ok {
		return typemodel.Unknown{Raw: raw.DataType}
	}
	ct := cls(d, raw)
	if _, isFloat := ct.(typemodel.Float); isFloat {
		bits := DefaultNumericPrecision
		if raw.NumericPrecision != nil {
			bits = *raw.NumericPrecision
		}
		return typemodel.Float{Precision: d.convertBinaryPrecisionToDigits(bits)}
	}
	return ct
}

var postgresTypeClasses = map[string]typeClass{
	"timestamp with time zone":    classTemporal(func() typemodel.TemporalType { return typemodel.TimestampTZ{} }),
	"timestamp without time zone": classTemporal(func() typemodel.TemporalType { return typemodel.Timestamp{} }),
	"timestamp":                   classTemporal(func() typemodel.TemporalType { return typemodel.Timestamp{} }),
	"double precision":            classFloat,
	"real":                        classFloat,
	"decimal":                     classDecimal,
	"integer":                     classFixed(typemodel.Integer{}),
	"numeric":                     classDecimal,
	"bigint":                      classFixed(typemodel.Integer{}),
	"character":                   classFixed(typemodel.Text{}),
	"character varying":          classFixed(typemodel.Text{}),
	"varchar":                     classFixed(typemodel.Text{}),
	"text":                        classFixed(typemodel.Text{}),
	"uuid":                        classFixed(typemodel.NativeUUID{Lowercase: true}),
	"boolean":                     classFixed(typemodel.Boolean{}),
}
