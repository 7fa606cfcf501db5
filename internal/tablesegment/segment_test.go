package tablesegment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skeema/rowdiff/internal/dialect"
	"github.com/skeema/rowdiff/internal/keyspace"
	"github.com/skeema/rowdiff/internal/queryast"
	"github.com/skeema/rowdiff/internal/typemodel"
)

func TestNewRejectsUpdateRangeWithoutUpdateColumn(t *testing.T) {
	minUpdate := "2020-01-01"
	_, err := New(TableSegment{
		TablePath:  []string{"t"},
		KeyColumns: []string{"id"},
		MinUpdate:  &minUpdate,
	})
	assert.Error(t, err)
}

func TestNewRejectsInvertedKeyBounds(t *testing.T) {
	_, err := New(TableSegment{
		TablePath:  []string{"t"},
		KeyColumns: []string{"id"},
		MinKey:     keyspace.Vector{keyspace.IntKey(10)},
		MaxKey:     keyspace.Vector{keyspace.IntKey(1)},
	})
	assert.Error(t, err)
}

func TestRelevantColumnsOrdersKeysUpdateThenExtras(t *testing.T) {
	ts, err := New(TableSegment{
		TablePath:    []string{"t"},
		KeyColumns:   []string{"id"},
		UpdateColumn: "updated_at",
		ExtraColumns: []string{"name", "email"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "updated_at", "name", "email"}, ts.RelevantColumns())
}

func TestRelevantColumnsSkipsUpdateColumnAlreadyInExtras(t *testing.T) {
	ts, err := New(TableSegment{
		TablePath:    []string{"t"},
		KeyColumns:   []string{"id"},
		UpdateColumn: "updated_at",
		ExtraColumns: []string{"updated_at", "name"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "updated_at", "name"}, ts.RelevantColumns())
}

func TestIsBounded(t *testing.T) {
	ts, err := New(TableSegment{TablePath: []string{"t"}, KeyColumns: []string{"id"}})
	require.NoError(t, err)
	assert.False(t, ts.IsBounded())

	bounded, err := New(TableSegment{
		TablePath:  []string{"t"},
		KeyColumns: []string{"id"},
		MinKey:     keyspace.Vector{keyspace.IntKey(1)},
		MaxKey:     keyspace.Vector{keyspace.IntKey(100)},
	})
	require.NoError(t, err)
	assert.True(t, bounded.IsBounded())
}

func TestMakeSelectRendersKeyRangeFilters(t *testing.T) {
	ts, err := New(TableSegment{
		TablePath:  []string{"public", "orders"},
		KeyColumns: []string{"id"},
		MinKey:     keyspace.Vector{keyspace.IntKey(1)},
		MaxKey:     keyspace.Vector{keyspace.IntKey(100)},
		Where:      "status = 'active'",
	})
	require.NoError(t, err)

	sql := queryast.Compile(dialect.NewPostgres(), ts.MakeSelect())
	assert.Contains(t, sql, `"public"."orders"`)
	assert.Contains(t, sql, `1 <= "id"`)
	assert.Contains(t, sql, `"id" < 100`)
	assert.Contains(t, sql, "status = 'active'")
}

func TestNewKeyBoundsRejectsOutOfRangeBounds(t *testing.T) {
	ts, err := New(TableSegment{
		TablePath:  []string{"t"},
		KeyColumns: []string{"id"},
		MinKey:     keyspace.Vector{keyspace.IntKey(0)},
		MaxKey:     keyspace.Vector{keyspace.IntKey(100)},
	})
	require.NoError(t, err)

	_, err = ts.NewKeyBounds(keyspace.Vector{keyspace.IntKey(50)}, keyspace.Vector{keyspace.IntKey(200)})
	assert.Error(t, err)

	narrowed, err := ts.NewKeyBounds(keyspace.Vector{keyspace.IntKey(10)}, keyspace.Vector{keyspace.IntKey(20)})
	require.NoError(t, err)
	assert.Equal(t, keyspace.Vector{keyspace.IntKey(10)}, narrowed.MinKey)
	assert.Equal(t, keyspace.Vector{keyspace.IntKey(20)}, narrowed.MaxKey)
}

func TestApproximateSize(t *testing.T) {
	ts, err := New(TableSegment{
		TablePath:  []string{"t"},
		KeyColumns: []string{"id"},
		MinKey:     keyspace.Vector{keyspace.IntKey(0)},
		MaxKey:     keyspace.Vector{keyspace.IntKey(100)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), ts.ApproximateSize())
}

func TestApproximateSizePanicsWhenUnbounded(t *testing.T) {
	ts, err := New(TableSegment{TablePath: []string{"t"}, KeyColumns: []string{"id"}})
	require.NoError(t, err)
	assert.Panics(t, func() { ts.ApproximateSize() })
}

func TestApproximateSizeClampsOnInt64Overflow(t *testing.T) {
	min, err := keyspace.NewArithUUID("00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	max, err := keyspace.NewArithUUID("ffffffff-ffff-ffff-ffff-ffffffffffff")
	require.NoError(t, err)

	ts, err := New(TableSegment{
		TablePath:  []string{"t"},
		KeyColumns: []string{"id"},
		MinKey:     keyspace.Vector{min},
		MaxKey:     keyspace.Vector{max},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), ts.ApproximateSize())
}

func TestRefineTextSampleRetypesUUID(t *testing.T) {
	ct, warning := refineTextSample([]string{
		"3fa85f64-5717-4562-b3fc-2c963f66afa6",
		"4fa85f64-5717-4562-b3fc-2c963f66afa6",
	})
	assert.Equal(t, typemodel.StringUUID{}, ct)
	assert.Empty(t, warning)
}

func TestRefineTextSampleRetypesFixedLengthAlphanumeric(t *testing.T) {
	ct, warning := refineTextSample([]string{"ABC123", "XYZ987"})
	assert.Equal(t, typemodel.StringAlphanum{Fixed: true, Len: 6}, ct)
	assert.Empty(t, warning)
}

func TestRefineTextSampleRetypesVaryingLengthAlphanumeric(t *testing.T) {
	ct, warning := refineTextSample([]string{"ABC123", "XY9"})
	assert.Equal(t, typemodel.StringAlphanum{Fixed: false, Len: 6}, ct)
	assert.Empty(t, warning)
}

func TestRefineTextSampleLeavesMixedValuesAsTextWithWarning(t *testing.T) {
	ct, warning := refineTextSample([]string{"3fa85f64-5717-4562-b3fc-2c963f66afa6", "not a uuid!"})
	assert.Nil(t, ct)
	assert.NotEmpty(t, warning)
}

func TestRefineTextSampleWithNoSamplesLeavesTextUnchanged(t *testing.T) {
	ct, warning := refineTextSample(nil)
	assert.Nil(t, ct)
	assert.Empty(t, warning)
}

func TestChooseCheckpointsRequiresBoundedSegment(t *testing.T) {
	ts, err := New(TableSegment{TablePath: []string{"t"}, KeyColumns: []string{"id"}})
	require.NoError(t, err)
	_, err = ts.ChooseCheckpoints(4)
	assert.Error(t, err)
}

func TestChooseCheckpointsAndSegmentByCheckpointsRoundTrip(t *testing.T) {
	ts, err := New(TableSegment{
		TablePath:  []string{"t"},
		KeyColumns: []string{"id"},
		MinKey:     keyspace.Vector{keyspace.IntKey(0)},
		MaxKey:     keyspace.Vector{keyspace.IntKey(100)},
	})
	require.NoError(t, err)

	checkpoints, err := ts.ChooseCheckpoints(4)
	require.NoError(t, err)
	segments, err := ts.SegmentByCheckpoints(checkpoints)
	require.NoError(t, err)
	require.NotEmpty(t, segments)

	for _, seg := range segments {
		assert.True(t, seg.IsBounded())
		assert.True(t, ts.MinKey.Compare(seg.MinKey) <= 0)
		assert.True(t, ts.MaxKey.Compare(seg.MaxKey) >= 0)
	}
}
