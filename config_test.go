package rowdiff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigParsesJob(t *testing.T) {
	const doc = `
thread_count = 8

[[job]]
name = "orders"
algorithm = "hashdiff"
bisection_factor = 16
bisection_threshold = 8192
threaded = true

  [job.source]
  uri = "mysql://root@localhost/app"
  table = "orders"
  key_column = "id"

  [job.target]
  uri = "postgresql://root@localhost/app"
  table = "orders"
  key_column = "id"
`
	cfg, err := LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.ThreadCount)
	require.Len(t, cfg.Jobs, 1)

	job := cfg.Jobs[0]
	assert.Equal(t, "orders", job.Name)
	assert.Equal(t, "hashdiff", job.Algorithm)
	assert.Equal(t, 16, job.BisectionFactor)
	assert.Equal(t, int64(8192), job.BisectionThreshold)
	assert.True(t, job.Threaded)
	assert.Equal(t, "mysql://root@localhost/app", job.Source.URI)
	assert.Equal(t, "orders", job.Source.Table)
	assert.Equal(t, "id", job.Target.KeyColumn)
}

func TestLoadConfigRejectsMalformedTOML(t *testing.T) {
	_, err := LoadConfig(strings.NewReader("not = valid = toml"))
	assert.Error(t, err)
}

func TestJobConfigToOptionsDefaultsAlgorithmToAuto(t *testing.T) {
	job := JobConfig{Name: "orders"}
	opts := job.ToOptions()
	assert.Equal(t, AlgorithmAuto, opts.Algorithm)
}

func TestJobConfigToOptionsCarriesAlgorithmAndMaterializationFields(t *testing.T) {
	job := JobConfig{
		Algorithm:          "joindiff",
		MaterializeToTable: []string{"sch", "diff_rows"},
		MaterializeAllRows: true,
		TableWriteLimit:    500,
		SkipNullKeys:       true,
		ValidateUniqueKey:  true,
	}
	opts := job.ToOptions()
	assert.Equal(t, AlgorithmJoinDiff, opts.Algorithm)
	assert.Equal(t, []string{"sch", "diff_rows"}, opts.MaterializeToTable)
	assert.True(t, opts.MaterializeAllRows)
	assert.Equal(t, 500, opts.TableWriteLimit)
	assert.True(t, opts.SkipNullKeys)
	assert.True(t, opts.ValidateUniqueKey)
}

func TestLoadConfigFileReportsMissingFile(t *testing.T) {
	_, err := LoadConfigFile("/nonexistent/rowdiff.toml")
	assert.Error(t, err)
}
