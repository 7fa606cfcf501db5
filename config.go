// Config loading for rowdiff: a TOML document describing one or more diff
// jobs (pairs of tables to compare plus their DiffOptions), in the style of
// the teacher's own `.skeema` option-file format, re-expressed with
// `github.com/BurntSushi/toml` structs rather than `mybase`'s option-file
// parser (spec's Non-goals exclude the CLI/config-file layer from the core
// engine, but the library still exposes a loader for whatever thin CLI
// wants to build on it).
package rowdiff

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// ConnectionConfig names one side of a diff job: a connection URI and the
// table/key identifying the segment to compare.
type ConnectionConfig struct {
	URI          string   `toml:"uri"`
	Table        string   `toml:"table"`
	KeyColumn    string   `toml:"key_column"`
	UpdateColumn string   `toml:"update_column"`
	ExtraColumns []string `toml:"extra_columns"`
	Where        string   `toml:"where"`
}

// JobConfig describes one diff_tables invocation: two connections plus the
// bisection/concurrency/materialization parameters of DiffOptions.
type JobConfig struct {
	Name string `toml:"name"`

	Source ConnectionConfig `toml:"source"`
	Target ConnectionConfig `toml:"target"`

	Algorithm          string `toml:"algorithm"`
	BisectionFactor    int    `toml:"bisection_factor"`
	BisectionThreshold int64  `toml:"bisection_threshold"`
	Threaded           bool   `toml:"threaded"`
	MaxThreadpoolSize  int    `toml:"max_threadpool_size"`

	ValidateUniqueKey  bool     `toml:"validate_unique_key"`
	MaterializeToTable []string `toml:"materialize_to_table"`
	MaterializeAllRows bool     `toml:"materialize_all_rows"`
	TableWriteLimit    int      `toml:"table_write_limit"`
	SkipNullKeys       bool     `toml:"skip_null_keys"`
}

// DiffConfig is the root of a rowdiff TOML config file: thread_count
// applies as the default pool-size hint to every Connect call a job
// performs, and Jobs holds one entry per diff to run.
type DiffConfig struct {
	ThreadCount int         `toml:"thread_count"`
	Jobs        []JobConfig `toml:"job"`
}

// ToOptions converts a JobConfig's bisection/concurrency/materialization
// fields into a DiffOptions, leaving Algorithm as AlgorithmAuto when unset.
func (j JobConfig) ToOptions() DiffOptions {
	algo := Algorithm(j.Algorithm)
	if algo == "" {
		algo = AlgorithmAuto
	}
	return DiffOptions{
		Algorithm:          algo,
		BisectionFactor:    j.BisectionFactor,
		BisectionThreshold: j.BisectionThreshold,
		Threaded:           j.Threaded,
		MaxThreadpoolSize:  j.MaxThreadpoolSize,
		ValidateUniqueKey:  j.ValidateUniqueKey,
		MaterializeToTable: j.MaterializeToTable,
		MaterializeAllRows: j.MaterializeAllRows,
		TableWriteLimit:    j.TableWriteLimit,
		SkipNullKeys:       j.SkipNullKeys,
	}
}

// LoadConfigFile opens path and parses it as a DiffConfig TOML document.
func LoadConfigFile(path string) (*DiffConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rowdiff: open config file %q: %w", path, err)
	}
	defer f.Close()
	return LoadConfig(f)
}

// LoadConfig parses a DiffConfig TOML document from r.
func LoadConfig(r io.Reader) (*DiffConfig, error) {
	var cfg DiffConfig
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("rowdiff: decode config: %w", err)
	}
	return &cfg, nil
}
