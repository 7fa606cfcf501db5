package diffengine

import (
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skeema/rowdiff/internal/keyspace"
)

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestIncrementVectorAddsOneToEachComponent(t *testing.T) {
	out, err := incrementVector(keyspace.Vector{keyspace.IntKey(10), keyspace.IntKey(99)})
	require.NoError(t, err)
	assert.Equal(t, keyspace.Vector{keyspace.IntKey(11), keyspace.IntKey(100)}, out)
}

func TestChecksumsEqual(t *testing.T) {
	a, b := decimal.NewFromInt(5), decimal.NewFromInt(5)
	assert.True(t, checksumsEqual(&a, &b))

	c := decimal.NewFromInt(6)
	assert.False(t, checksumsEqual(&a, &c))

	assert.True(t, checksumsEqual(nil, nil))
	assert.False(t, checksumsEqual(&a, nil))
	assert.False(t, checksumsEqual(nil, &b))
}

func TestRowKeyJoinsWithUnitSeparator(t *testing.T) {
	assert.Equal(t, "1\x1fjane", rowKey([]string{"1", "jane"}))
}

func TestDiffSetsFindsRowsExclusiveToEachSide(t *testing.T) {
	hd := &HashDiffer{}
	rowsA := [][]string{{"1", "jane"}, {"2", "bob"}}
	rowsB := [][]string{{"1", "jane"}, {"3", "amy"}}

	diffs := hd.diffSets(rowsA, rowsB, nil, []string{"id", "name"}, discardLogger())

	require.Len(t, diffs, 2)
	var signs []string
	for _, d := range diffs {
		signs = append(signs, d.Sign)
	}
	assert.ElementsMatch(t, []string{"-", "+"}, signs)
}

func TestDiffSetsReturnsNoneWhenSetsMatch(t *testing.T) {
	hd := &HashDiffer{}
	rows := [][]string{{"1", "jane"}, {"2", "bob"}}
	diffs := hd.diffSets(rows, rows, nil, []string{"id", "name"}, discardLogger())
	assert.Empty(t, diffs)
}

func TestDiffSetsOrdersGroupsByKey(t *testing.T) {
	hd := &HashDiffer{}
	rowsA := [][]string{{"3", "x"}, {"1", "y"}}
	rowsB := [][]string{}
	diffs := hd.diffSets(rowsA, rowsB, nil, []string{"id", "v"}, discardLogger())

	require.Len(t, diffs, 2)
	assert.Equal(t, []string{"1", "y"}, diffs[0].Values)
	assert.Equal(t, []string{"3", "x"}, diffs[1].Values)
}

func TestJsonValuesEquivalentIgnoresKeyOrderAndWhitespace(t *testing.T) {
	eq, err := jsonValuesEquivalent(`{"a": 1, "b": 2}`, `{ "b":2,  "a":1 }`)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestJsonValuesEquivalentDetectsRealDifference(t *testing.T) {
	eq, err := jsonValuesEquivalent(`{"a": 1}`, `{"a": 2}`)
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestJsonValuesEquivalentPropagatesParseError(t *testing.T) {
	_, err := jsonValuesEquivalent(`not json`, `{}`)
	assert.Error(t, err)
}

func TestDiffSetsTreatsEquivalentJSONAsUnchanged(t *testing.T) {
	hd := &HashDiffer{}
	rowsA := [][]string{{"1", `{"a": 1, "b": 2}`}}
	rowsB := [][]string{{"1", `{"b": 2, "a": 1}`}}

	diffs := hd.diffSets(rowsA, rowsB, []int{1}, []string{"id", "payload"}, discardLogger())
	assert.Empty(t, diffs)
}

func TestDiffSetsStillReportsNonJSONColumnDifference(t *testing.T) {
	hd := &HashDiffer{}
	rowsA := [][]string{{"1", "jane", `{"a": 1}`}}
	rowsB := [][]string{{"1", "janet", `{"a": 1}`}}

	diffs := hd.diffSets(rowsA, rowsB, []int{2}, []string{"id", "name", "payload"}, discardLogger())
	require.Len(t, diffs, 2)
}

func TestJsonGroupEquivalentRejectsGroupsOfWrongShape(t *testing.T) {
	hd := &HashDiffer{}
	// Same sign on both rows: can't be a matched exclusive pair.
	group := []signedRow{
		{sign: "-", row: []string{"1", `{"a":1}`}},
		{sign: "-", row: []string{"1", `{"a":1}`}},
	}
	assert.False(t, hd.jsonGroupEquivalent(group, []int{1}, []string{"id", "payload"}, discardLogger()))
}

func TestWarnJSONEquivalenceOnceWarnsOnlyOncePerColumn(t *testing.T) {
	hd := &HashDiffer{}
	logger := discardLogger()
	hd.warnJSONEquivalenceOnce("payload", logger)
	hd.warnJSONEquivalenceOnce("payload", logger)
	assert.True(t, hd.jsonWarned["payload"])
	assert.Len(t, hd.jsonWarned, 1)
}
