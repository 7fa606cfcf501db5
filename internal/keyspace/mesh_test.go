package keyspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// When the range size is evenly divisible by count+1, SplitKeySpace produces
// truly uniform gaps (spec §8 testable property 5).
func TestSplitKeySpaceUniformWhenEvenlyDivisible(t *testing.T) {
	points, err := SplitKeySpace(IntKey(0), IntKey(12), 3) // size = 12, divisor = 4, step = 13/4 = 3
	require.NoError(t, err)
	require.Len(t, points, 5) // min + 3 checkpoints + max

	var gaps []int64
	for i := 1; i < len(points); i++ {
		gaps = append(gaps, int64(points[i].(IntKey))-int64(points[i-1].(IntKey)))
	}
	for _, g := range gaps {
		assert.Equal(t, gaps[0], g, "expected uniform gaps, got %v", gaps)
	}
}

// When the range size isn't evenly divisible, the source's own algorithm
// produces at most one oversized tail gap rather than strict uniformity.
func TestSplitKeySpaceTailSkewWhenNotDivisible(t *testing.T) {
	points, err := SplitKeySpace(IntKey(0), IntKey(10), 3)
	require.NoError(t, err)

	var gaps []int64
	for i := 1; i < len(points); i++ {
		gaps = append(gaps, int64(points[i].(IntKey))-int64(points[i-1].(IntKey)))
	}
	distinct := map[int64]bool{}
	for _, g := range gaps {
		distinct[g] = true
	}
	assert.LessOrEqual(t, len(distinct), 2, "expected at most one distinct tail gap, got %v", gaps)
}

func TestSplitKeySpaceBoundaryIsInclusive(t *testing.T) {
	points, err := SplitKeySpace(IntKey(100), IntKey(200), 5)
	require.NoError(t, err)
	assert.Equal(t, IntKey(100), points[0])
	assert.Equal(t, IntKey(200), points[len(points)-1])
}

func TestSplitKeySpaceSmallRangeCollapsesToSinglePartition(t *testing.T) {
	points, err := SplitKeySpace(IntKey(0), IntKey(1), 10)
	require.NoError(t, err)
	assert.Equal(t, []KeyValue{IntKey(0), IntKey(1)}, points)
}

func TestSplitKeySpaceRejectsEmptyRange(t *testing.T) {
	_, err := SplitKeySpace(IntKey(5), IntKey(5), 3)
	assert.Error(t, err)
}

func TestNthRootCount(t *testing.T) {
	assert.Equal(t, 10, NthRootCount(10, 1))
	assert.Equal(t, 3, NthRootCount(9, 2))
	assert.Equal(t, 1, NthRootCount(0, 2))
}

// CreateMeshFromPoints must produce a gap-free, non-overlapping partition of
// the original range: every child box's max equals the next box's min, and
// the first/last boxes touch the original bounds (spec §8 testable
// property 6, "mesh completeness").
func TestCreateMeshFromPointsCoversWithoutGaps(t *testing.T) {
	dimA, err := SplitKeySpace(IntKey(0), IntKey(12), 3)
	require.NoError(t, err)
	dimB, err := SplitKeySpace(IntKey(0), IntKey(6), 2)
	require.NoError(t, err)

	mesh, err := CreateMeshFromPoints([][]KeyValue{dimA, dimB})
	require.NoError(t, err)
	assert.Len(t, mesh, (len(dimA)-1)*(len(dimB)-1))

	assert.Equal(t, IntKey(0), mesh[0][0][0])
	assert.Equal(t, IntKey(0), mesh[0][0][1])
	last := mesh[len(mesh)-1]
	assert.Equal(t, IntKey(12), last[1][0])
	assert.Equal(t, IntKey(6), last[1][1])

	for _, box := range mesh {
		lo, hi := box[0], box[1]
		assert.False(t, hi.Less(lo), "box max must not precede box min")
	}
}

func TestCreateMeshFromPointsRejectsDegenerateDimension(t *testing.T) {
	_, err := CreateMeshFromPoints([][]KeyValue{{IntKey(0)}})
	assert.Error(t, err)
}
