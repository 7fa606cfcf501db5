package diffengine

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skeema/rowdiff/internal/dialect"
	"github.com/skeema/rowdiff/internal/queryast"
)

func TestTruthy(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.True(t, truthy(true))
	assert.False(t, truthy(false))
	assert.True(t, truthy(int64(1)))
	assert.False(t, truthy(int64(0)))
	assert.True(t, truthy(1))
	assert.True(t, truthy([]byte("1")))
	assert.False(t, truthy([]byte("0")))
	assert.True(t, truthy("1"))
	assert.False(t, truthy("0"))
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", stringify(nil))
	assert.Equal(t, "42", stringify(42))
	assert.Equal(t, "jane", stringify("jane"))
}

func TestAndAllChainsWithAND(t *testing.T) {
	expr := andAll([]queryast.Node{
		queryast.Raw("a IS NULL"),
		queryast.Raw("b IS NULL"),
		queryast.Raw("c IS NULL"),
	})
	sql := queryast.Compile(dialect.NewPostgres(), queryast.Select{
		Table:   &queryast.TablePath{Path: []string{"t"}},
		Columns: []queryast.Node{expr},
	})
	assert.Contains(t, sql, "((a IS NULL AND b IS NULL) AND c IS NULL)")
}

func TestAndAllOfNoExpressionsIsTrue(t *testing.T) {
	sql := queryast.Compile(dialect.NewPostgres(), queryast.Select{
		Table:   &queryast.TablePath{Path: []string{"t"}},
		Columns: []queryast.Node{andAll(nil)},
	})
	assert.Contains(t, sql, "1")
}

func TestOrAllChainsWithOR(t *testing.T) {
	expr := orAll([]queryast.Node{queryast.Raw("is_diff_a = 1"), queryast.Raw("is_diff_b = 1")})
	sql := queryast.Compile(dialect.NewPostgres(), queryast.Select{
		Table:   &queryast.TablePath{Path: []string{"t"}},
		Where:   []queryast.Node{expr},
		Columns: []queryast.Node{queryast.Raw("*")},
	})
	assert.Contains(t, sql, "is_diff_a = 1 OR is_diff_b = 1")
}

func TestBoolToIntRendersCaseWhen(t *testing.T) {
	expr := boolToInt(queryast.Raw("x IS NULL"))
	sql := queryast.Compile(dialect.NewPostgres(), queryast.Select{
		Table:   &queryast.TablePath{Path: []string{"t"}},
		Columns: []queryast.Node{expr},
	})
	assert.Contains(t, sql, "CASE WHEN x IS NULL THEN 1 ELSE 0 END")
}

func TestNewJoinDifferDefaults(t *testing.T) {
	jd := NewJoinDiffer()
	assert.True(t, jd.ValidateUniqueKey)
	assert.Equal(t, DefaultTableWriteLimit, jd.TableWriteLimit)
	assert.False(t, jd.MaterializeAllRows)
}

func TestJoinDifferWorkersDefaultsToOneWhenNotThreaded(t *testing.T) {
	jd := &JoinDiffer{}
	assert.Equal(t, 1, jd.workers())
}

func TestJoinDifferWorkersHonorsMaxThreadpoolSize(t *testing.T) {
	jd := &JoinDiffer{Threaded: true, MaxThreadpoolSize: 4}
	assert.Equal(t, 4, jd.workers())
}

func TestJoinDifferWorkersFallsBackToDefaultWhenThreadedWithoutExplicitSize(t *testing.T) {
	jd := &JoinDiffer{Threaded: true}
	assert.Equal(t, defaultMaxThreadpoolSize, jd.workers())
}

func TestJoinStatsAccumulatesAcrossTables(t *testing.T) {
	stats := newJoinStats()
	stats.setCount(1, 10)
	stats.setCount(2, 12)
	stats.addSum(1, "amount", decimal.NewFromFloat(1.5))
	stats.addSum(1, "amount", decimal.NewFromFloat(2.5))
	stats.addExclusive(3)
	stats.addDiffCount("status", 2)

	assert.Equal(t, int64(10), stats.Table1Count)
	assert.Equal(t, int64(12), stats.Table2Count)
	assert.True(t, stats.Table1Sums["amount"].Equal(decimal.NewFromFloat(4.0)))
	assert.Equal(t, int64(3), stats.ExclusiveCount)
	assert.Equal(t, int64(2), stats.DiffCounts["status"])
}

func TestJoinStatsSetErrKeepsFirstError(t *testing.T) {
	stats := newJoinStats()
	err1 := assert.AnError
	stats.setErr(err1)
	stats.setErr(errors.New("second error"))
	require.Error(t, stats.Err())
	assert.Same(t, err1, stats.Err())
}
