package dialect

import (
	"fmt"

	"github.com/skeema/rowdiff/internal/typemodel"
)

// MySQL implements Dialect for MySQL/MariaDB, grounded on
// original_source/data_diff/sqeleton/databases/mysql.py.
type MySQL struct{ base }

// NewMySQL returns the MySQL dialect. MySQL always rounds on timestamp
// precision loss and supports declaring a real PRIMARY KEY on scratch
// tables.
func NewMySQL() *MySQL {
	return &MySQL{base{rounds: true, supportsPrimaryKey: true, quoteChar: "`"}}
}

func (d *MySQL) Name() string { return "MySQL" }

func (d *MySQL) ToString(s string) string { return fmt.Sprintf("cast(%s as char)", s) }

func (d *MySQL) IsDistinctFrom(a, b string) string {
	return fmt.Sprintf("not (%s <=> %s)", a, b)
}

func (d *MySQL) Random() string { return "RAND()" }

func (d *MySQL) SetTimezoneToUTC() string { return "SET @@session.time_zone='+00:00'" }

// MD5AsInt mirrors mysql.py's Mixin_MD5: conv() reinterprets the low
// ChecksumHexDigits hex digits of the MD5 hash as base-10, cast to a signed
// integer (the value fits comfortably under 2^63), then ChecksumOffset is
// subtracted to center the range -- every dialect must do this subtraction
// itself so the same row produces the same signed integer everywhere.
func (d *MySQL) MD5AsInt(s string) string {
	return fmt.Sprintf("cast(conv(substring(md5(%s), %d), 16, 10) as signed) - %d",
		s, 1+MD5HexDigits-ChecksumHexDigits, ChecksumOffset)
}

func (d *MySQL) NormalizeTimestamp(value string, ct typemodel.TemporalType) string {
	if ct.RoundsOnPrecisionLoss() {
		return d.ToString(fmt.Sprintf("cast( cast(%s as datetime(%d)) as datetime(6))", value, ct.TemporalPrecision()))
	}
	s := d.ToString(fmt.Sprintf("cast(%s as datetime(6))", value))
	return fmt.Sprintf("RPAD(RPAD(%s, %d, '.'), %d, '0')",
		s, TimestampPrecisionPos+ct.TemporalPrecision(), TimestampPrecisionPos+6)
}

func (d *MySQL) NormalizeNumber(value string, ct typemodel.NumericType) string {
	return d.ToString(fmt.Sprintf("cast(%s as decimal(38, %d))", value, ct.NumericPrecision()))
}

func (d *MySQL) NormalizeBoolean(value string) string { return d.ToString(value) }

func (d *MySQL) NormalizeUUID(value string, ct typemodel.ColumnType) string {
	return fmt.Sprintf("TRIM(CAST(%s AS char))", value)
}

// NormalizeJSON has no portable MySQL expression for minified-JSON
// rendering across the 5.7/8.0 versions this package targets (JSON_COMPACT
// only exists starting in some forks); callers get the same
// not-implemented signal the source raises.
func (d *MySQL) NormalizeJSON(value string) (string, error) {
	return "", fmt.Errorf("dialect: MySQL does not support JSON column normalization")
}

func (d *MySQL) NormalizeValueByType(value string, ct typemodel.ColumnType) (string, error) {
	return normalizeValueByType(d, value, ct)
}

func (d *MySQL) ParseType(raw typemodel.RawColumnInfo) typemodel.ColumnType {
	return parseType(d, mysqlTypeClasses, raw)
}

var mysqlTypeClasses = map[string]typeClass{
	"datetime":  classTemporal(func() typemodel.TemporalType { return typemodel.Datetime{} }),
	"timestamp": classTemporal(func() typemodel.TemporalType { return typemodel.Timestamp{} }),
	"date":      classFixed(typemodel.Date{}),
	"double":    classFloat,
	"float":     classFloat,
	"decimal":   classDecimal,
	"int":       classFixed(typemodel.Integer{}),
	"bigint":    classFixed(typemodel.Integer{}),
	"smallint":  classFixed(typemodel.Integer{}),
	"tinyint":   classFixed(typemodel.Integer{}),
	"varchar":   classFixed(typemodel.Text{}),
	"char":      classFixed(typemodel.Text{}),
	"varbinary": classFixed(typemodel.Text{}),
	"binary":    classFixed(typemodel.Text{}),
	"text":      classFixed(typemodel.Text{}),
	"mediumtext": classFixed(typemodel.Text{}),
	"longtext":  classFixed(typemodel.Text{}),
	"tinytext":  classFixed(typemodel.Text{}),
	"boolean":   classFixed(typemodel.Boolean{}),
}
