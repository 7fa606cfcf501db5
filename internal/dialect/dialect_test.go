package dialect

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skeema/rowdiff/internal/typemodel"
)

func allDialects() map[string]Dialect {
	return map[string]Dialect{
		"mysql":      NewMySQL(),
		"postgres":   NewPostgres(),
		"bigquery":   NewBigQuery(),
		"snowflake":  NewSnowflake(),
		"redshift":   NewRedshift(),
	}
}

func TestQuoteIsEngineSpecific(t *testing.T) {
	assert.Equal(t, "`col`", NewMySQL().Quote("col"))
	assert.Equal(t, `"col"`, NewPostgres().Quote("col"))
	assert.Equal(t, `"col"`, NewRedshift().Quote("col"))
}

func TestMD5AsIntIsNonEmptyForEveryDialect(t *testing.T) {
	for name, d := range allDialects() {
		expr := d.MD5AsInt("x")
		assert.NotEmpty(t, expr, "dialect %s", name)
	}
}

// TestMD5AsIntCentersByChecksumOffsetInEveryDialect guards spec §8's
// cross-dialect checksum equivalence property: every dialect must center
// its unsigned 60-bit MD5 truncation by subtracting the same ChecksumOffset,
// or two engines would produce different integers for the same byte string.
func TestMD5AsIntCentersByChecksumOffsetInEveryDialect(t *testing.T) {
	offset := fmt.Sprintf("%d", ChecksumOffset)
	for name, d := range allDialects() {
		expr := d.MD5AsInt("x")
		assert.Contains(t, expr, offset, "dialect %s must subtract ChecksumOffset", name)
	}
}

func TestParseTypeAppliesRoundsOnPrecisionLoss(t *testing.T) {
	my := NewMySQL()
	ct := my.ParseType(typemodel.RawColumnInfo{DataType: "datetime", DatetimePrecision: intPtr(3)})
	dt, ok := ct.(typemodel.TemporalType)
	require.True(t, ok)
	assert.Equal(t, 3, dt.TemporalPrecision())
	assert.True(t, dt.RoundsOnPrecisionLoss())

	bq := NewBigQuery()
	ct2 := bq.ParseType(typemodel.RawColumnInfo{DataType: "TIMESTAMP"})
	dt2, ok := ct2.(typemodel.TemporalType)
	require.True(t, ok)
	assert.False(t, dt2.RoundsOnPrecisionLoss())
}

func TestParseTypeUnknownFallsBackToUnknownVariant(t *testing.T) {
	ct := NewMySQL().ParseType(typemodel.RawColumnInfo{DataType: "geometry"})
	_, ok := ct.(typemodel.Unknown)
	assert.True(t, ok)
}

func TestParseTypeDecimalUsesNumericScale(t *testing.T) {
	ct := NewPostgres().ParseType(typemodel.RawColumnInfo{DataType: "numeric", NumericScale: intPtr(4)})
	dec, ok := ct.(typemodel.Decimal)
	require.True(t, ok)
	assert.Equal(t, 4, dec.Precision)
}

func TestNormalizeValueByTypeDispatchesByKind(t *testing.T) {
	d := NewMySQL()

	out, err := d.NormalizeValueByType("col", typemodel.Boolean{})
	require.NoError(t, err)
	assert.Contains(t, out, "col")

	out, err = d.NormalizeValueByType("col", typemodel.Integer{})
	require.NoError(t, err)
	assert.Equal(t, d.ToString("col"), out)

	out, err = d.NormalizeValueByType("col", typemodel.Timestamp{Precision: 6, RoundsOnLoss: true})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRedshiftInheritsPostgresDefaultsButOverridesMD5(t *testing.T) {
	rs := NewRedshift()
	pg := NewPostgres()
	assert.NotEqual(t, pg.MD5AsInt("x"), rs.MD5AsInt("x"))
	assert.Equal(t, pg.Quote("t"), rs.Quote("t"))
}

func intPtr(n int) *int { return &n }
