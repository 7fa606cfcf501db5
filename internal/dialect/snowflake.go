package dialect

import (
	"fmt"

	"github.com/skeema/rowdiff/internal/typemodel"
)

// Snowflake implements Dialect for Snowflake. Grounded on
// original_source/data_diff/databases/snowflake.py; no driver is wired in
// dbconn (see DESIGN.md's "Root package (rowdiff.go)" section), so this dialect is
// exercised only at the compiler/checksum level.
type Snowflake struct{ base }

func NewSnowflake() *Snowflake {
	return &Snowflake{base{rounds: false, supportsPrimaryKey: false, quoteChar: `"`}}
}

func (d *Snowflake) Name() string { return "Snowflake" }

func (d *Snowflake) ToString(s string) string { return fmt.Sprintf("cast(%s as string)", s) }

// MD5AsInt mirrors snowflake.py: mask down to the low ChecksumHexDigits hex
// digits, then subtract ChecksumOffset to center the range like every other
// dialect's MD5AsInt.
func (d *Snowflake) MD5AsInt(s string) string {
	return fmt.Sprintf("BITAND(md5_number_lower64(%s), %d) - %d", s, ChecksumMask, ChecksumOffset)
}

func (d *Snowflake) NormalizeTimestamp(value string, ct typemodel.TemporalType) string {
	return fmt.Sprintf("to_char(%s::timestamp_ntz(%d), 'YYYY-MM-DD HH24:MI:SS.FF6')", value, ct.TemporalPrecision())
}

func (d *Snowflake) NormalizeNumber(value string, ct typemodel.NumericType) string {
	return d.ToString(fmt.Sprintf("%s::decimal(38, %d)", value, ct.NumericPrecision()))
}

func (d *Snowflake) NormalizeBoolean(value string) string {
	return d.ToString(fmt.Sprintf("%s::int", value))
}

func (d *Snowflake) NormalizeUUID(value string, ct typemodel.ColumnType) string {
	return d.ToString(value)
}

func (d *Snowflake) NormalizeJSON(value string) (string, error) {
	return fmt.Sprintf("TO_JSON(%s)", value), nil
}

func (d *Snowflake) NormalizeValueByType(value string, ct typemodel.ColumnType) (string, error) {
	return normalizeValueByType(d, value, ct)
}

func (d *Snowflake) ParseType(raw typemodel.RawColumnInfo) typemodel.ColumnType {
	return parseType(d, snowflakeTypeClasses, raw)
}

var snowflakeTypeClasses = map[string]typeClass{
	"timestamp_ntz": classTemporal(func() typemodel.TemporalType { return typemodel.Timestamp{} }),
	"timestamp_ltz": classTemporal(func() typemodel.TemporalType { return typemodel.Timestamp{} }),
	"timestamp_tz":  classTemporal(func() typemodel.TemporalType { return typemodel.TimestampTZ{} }),
	"number":        classDecimal,
	"float":         classFloat,
	"text":          classFixed(typemodel.Text{}),
}
