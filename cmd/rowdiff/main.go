// Command rowdiff is a thin CLI exercising Connect/ConnectToTable/DiffTables
// end to end. Grounded on the teacher's cobra-based command layout (see
// denisvmedia-inventario's cmd/inventario tree) in place of the teacher's
// own mycli/mybase framework, which this module's go.mod does not carry
// (see DESIGN.md). The CLI stays a thin producer of the core engine's
// inputs per spec.md's Non-goals -- it holds no diff logic of its own.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/skeema/rowdiff"
	"github.com/skeema/rowdiff/internal/dbconn"
	"github.com/skeema/rowdiff/internal/diffengine"
)

var (
	sourceURI, targetURI   string
	sourceTable, destTable string
	keyColumn              string
	updateColumn           string
	extraColumns           []string
	algorithm              string
	bisectionFactor        int
	bisectionThreshold     int64
	threaded               bool
	maxThreadpoolSize      int
	jsonOutput             bool
	configFile             string
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "rowdiff",
		Short: "Compare two tables, possibly across different databases",
		RunE:  runDiff,
	}

	flags := root.Flags()
	flags.StringVar(&sourceURI, "source", "", "source connection URI")
	flags.StringVar(&targetURI, "target", "", "target connection URI")
	flags.StringVar(&sourceTable, "source-table", "", "source table name (schema.table)")
	flags.StringVar(&destTable, "target-table", "", "target table name (schema.table); defaults to --source-table")
	flags.StringVar(&keyColumn, "key-column", "", "primary key column shared by both tables")
	flags.StringVar(&updateColumn, "update-column", "", "last-modified column used to narrow the compared range")
	flags.StringSliceVar(&extraColumns, "extra-column", nil, "additional column to compare (repeatable)")
	flags.StringVar(&algorithm, "algorithm", "auto", "auto|hashdiff|joindiff")
	flags.IntVar(&bisectionFactor, "bisection-factor", diffengine.DefaultBisectionFactor, "segments to split into when bisecting")
	flags.Int64Var(&bisectionThreshold, "bisection-threshold", diffengine.DefaultBisectionThreshold, "row count below which a segment is compared directly")
	flags.BoolVar(&threaded, "threaded", false, "run segment comparisons concurrently")
	flags.IntVar(&maxThreadpoolSize, "max-threadpool-size", 0, "worker count when --threaded is set (0 = default)")
	flags.BoolVar(&jsonOutput, "json", false, "emit one JSON array [sign, row] per diff row instead of plain text")
	flags.StringVar(&configFile, "config", "", "run every job in a TOML config file instead of using the flags above")

	return root
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if configFile != "" {
		return runConfigFile(ctx, configFile)
	}
	if sourceURI == "" || targetURI == "" || sourceTable == "" || keyColumn == "" {
		return fmt.Errorf("rowdiff: --source, --target, --source-table, and --key-column are required (or pass --config)")
	}
	if destTable == "" {
		destTable = sourceTable
	}

	job := rowdiff.JobConfig{
		Source: rowdiff.ConnectionConfig{
			URI: sourceURI, Table: sourceTable, KeyColumn: keyColumn,
			UpdateColumn: updateColumn, ExtraColumns: extraColumns,
		},
		Target: rowdiff.ConnectionConfig{
			URI: targetURI, Table: destTable, KeyColumn: keyColumn,
			UpdateColumn: updateColumn, ExtraColumns: extraColumns,
		},
		Algorithm:          algorithm,
		BisectionFactor:    bisectionFactor,
		BisectionThreshold: bisectionThreshold,
		Threaded:           threaded,
		MaxThreadpoolSize:  maxThreadpoolSize,
	}
	return runJob(ctx, job)
}

func runConfigFile(ctx context.Context, path string) error {
	cfg, err := rowdiff.LoadConfigFile(path)
	if err != nil {
		return err
	}
	for _, job := range cfg.Jobs {
		if cfg.ThreadCount > 0 && job.MaxThreadpoolSize == 0 {
			job.MaxThreadpoolSize = cfg.ThreadCount
		}
		if err := runJob(ctx, job); err != nil {
			return fmt.Errorf("rowdiff: job %q: %w", job.Name, err)
		}
	}
	return nil
}

func runJob(ctx context.Context, job rowdiff.JobConfig) error {
	srcDB, err := rowdiff.Connect(ctx, job.Source.URI, job.MaxThreadpoolSize)
	if err != nil {
		return err
	}
	dstDB, err := rowdiff.Connect(ctx, job.Target.URI, job.MaxThreadpoolSize)
	if err != nil {
		return err
	}

	srcSeg, err := rowdiff.ConnectToTable(ctx, srcDB, dbconn.ParseTableName(job.Source.Table), job.Source.KeyColumn, rowdiff.ConnectToTableOptions{
		UpdateColumn: job.Source.UpdateColumn,
		ExtraColumns: job.Source.ExtraColumns,
		Where:        job.Source.Where,
	})
	if err != nil {
		return err
	}
	dstSeg, err := rowdiff.ConnectToTable(ctx, dstDB, dbconn.ParseTableName(job.Target.Table), job.Target.KeyColumn, rowdiff.ConnectToTableOptions{
		UpdateColumn: job.Target.UpdateColumn,
		ExtraColumns: job.Target.ExtraColumns,
		Where:        job.Target.Where,
	})
	if err != nil {
		return err
	}

	yielder, _, err := rowdiff.DiffTables(ctx, srcSeg, dstSeg, job.ToOptions())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for row := range yielder.Results() {
		if jsonOutput {
			if err := enc.Encode([]any{row.Sign, row.Values}); err != nil {
				return err
			}
			continue
		}
		fmt.Println(formatRow(row))
	}
	return yielder.Err()
}

func formatRow(row diffengine.DiffRow) string {
	out := row.Sign
	for _, v := range row.Values {
		out += " " + v
	}
	return out
}

func init() {
	logrus.SetLevel(logrus.InfoLevel)
}
