package dialect

import (
	"fmt"
	"strings"

	"github.com/skeema/rowdiff/internal/typemodel"
)

// Redshift implements Dialect for Amazon Redshift, which the source treats
// as a PostgreSQL variant with a handful of overrides (Redshift's
// extract()-based timestamp normalization and a different md5-to-int cast
// chain). Grounded on original_source/data_diff/databases/redshift.py.
type Redshift struct {
	*Postgres
}

func NewRedshift() *Redshift {
	return &Redshift{NewPostgres()}
}

func (d *Redshift) Name() string { return "Redshift" }

// MD5AsInt mirrors redshift.py's strtol-based cast chain, then subtracts
// ChecksumOffset to center the range like every other dialect's MD5AsInt.
func (d *Redshift) MD5AsInt(s string) string {
	return fmt.Sprintf("strtol(substring(md5(%s), %d), 16)::decimal(38) - %d",
		s, 1+MD5HexDigits-ChecksumHexDigits, ChecksumOffset)
}

func (d *Redshift) Concat(items []string) string {
	if len(items) < 2 {
		panic("dialect: Concat requires at least 2 expressions")
	}
	out := "(" + items[0]
	for _, e := range items[1:] {
		out += " || " + e
	}
	return out + ")"
}

func (d *Redshift) IsDistinctFrom(a, b string) string {
	return fmt.Sprintf("(%s IS NULL AND NOT %s IS NULL) OR (NOT %s IS NULL AND %s IS NULL) OR %s!=%s", a, b, a, b, a, b)
}

func (d *Redshift) NormalizeTimestamp(value string, ct typemodel.TemporalType) string {
	p := ct.TemporalPrecision()
	var timestamp6 string
	if ct.RoundsOnPrecisionLoss() {
		ts := fmt.Sprintf("%s::timestamp(6)", value)
		secs := fmt.Sprintf("timestamp 'epoch' + round(extract(epoch from %s)::decimal(38)", ts)
		ms := fmt.Sprintf("extract(ms from %s)", ts)
		us := fmt.Sprintf("extract(us from %s)", ts)
		epoch := fmt.Sprintf("%s*1000000 + %s*1000 + %s", secs, ms, us)
		timestamp6 = fmt.Sprintf("to_char(%s, -6+%d) * interval '0.000001 seconds', 'YYYY-mm-dd HH24:MI:SS.US')", epoch, p)
	} else {
		timestamp6 = fmt.Sprintf("to_char(%s::timestamp(6), 'YYYY-mm-dd HH24:MI:SS.US')", value)
	}
	return fmt.Sprintf("RPAD(LEFT(%s, %d), %d, '0')", timestamp6, TimestampPrecisionPos+p, TimestampPrecisionPos+6)
}

func (d *Redshift) NormalizeNumber(value string, ct typemodel.NumericType) string {
	return d.ToString(fmt.Sprintf("%s::decimal(38,%d)", value, ct.NumericPrecision()))
}

func (d *Redshift) NormalizeValueByType(value string, ct typemodel.ColumnType) (string, error) {
	return normalizeValueByType(d, value, ct)
}

func (d *Redshift) ParseType(raw typemodel.RawColumnInfo) typemodel.ColumnType {
	cls, ok := redshiftTypeClasses[strings.ToLower(raw.DataType)]
	if ok {
		return cls(d, raw)
	}
	return d.Postgres.ParseType(raw)
}

var redshiftTypeClasses = map[string]typeClass{
	"double": classFloat,
	"real":   classFloat,
}
