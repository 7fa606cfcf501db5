package diffengine

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/skeema/rowdiff/internal/dbconn"
	"github.com/skeema/rowdiff/internal/direrr"
	"github.com/skeema/rowdiff/internal/keyspace"
	"github.com/skeema/rowdiff/internal/queryast"
	"github.com/skeema/rowdiff/internal/scheduler"
	"github.com/skeema/rowdiff/internal/tablesegment"
	"github.com/skeema/rowdiff/internal/typemodel"
)

// DefaultTableWriteLimit bounds how many rows a single materialization
// insert writes per segment, matching joindiff_tables.py's TABLE_WRITE_LIMIT.
const DefaultTableWriteLimit = 1000

// JoinStats accumulates JoinDiffer's side-channel findings: per-table row
// counts and numeric-column sums, a diff count per compared column, and the
// exclusive-row count, plus the first error encountered by any background
// check (duplicate/null-key validation, stats collection); errors from the
// per-segment comparison itself go to the Yielder instead (spec §4.8 step 8).
type JoinStats struct {
	mu             sync.Mutex
	err            error
	Table1Count    int64
	Table2Count    int64
	Table1Sums     map[string]decimal.Decimal
	Table2Sums     map[string]decimal.Decimal
	ExclusiveCount int64
	DiffCounts     map[string]int64
	DuplicateKeys  []string // key columns validated (not found to already carry a UNIQUE constraint)
}

func newJoinStats() *JoinStats {
	return &JoinStats{
		Table1Sums: map[string]decimal.Decimal{},
		Table2Sums: map[string]decimal.Decimal{},
		DiffCounts: map[string]int64{},
	}
}

func (s *JoinStats) setErr(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err returns the first error recorded by the background checks, if any.
// Only meaningful once the Yielder returned by DiffTables has been drained:
// its last task waits for the background checks to finish.
func (s *JoinStats) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *JoinStats) setCount(tableNum int, count int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tableNum == 1 {
		s.Table1Count += count
	} else {
		s.Table2Count += count
	}
}

// addSum accumulates v (an exact decimal parsed from the driver's raw
// NUMERIC/DECIMAL text) into col's running sum, grounded on
// denisvmedia-inventario's jsonapi/values.go use of decimal.Decimal for
// monetary totals: a float64 accumulator would silently round large or
// high-scale sums, which a row-count/value diagnostic must not do.
func (s *JoinStats) addSum(tableNum int, col string, v decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.Table1Sums
	if tableNum != 1 {
		m = s.Table2Sums
	}
	m[col] = m[col].Add(v)
}

func (s *JoinStats) addExclusive(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ExclusiveCount += n
}

func (s *JoinStats) addDiffCount(col string, n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DiffCounts[col] += n
}

// JoinDiffer finds the diff between two table segments in the SAME database
// using a single OUTER JOIN query (or a UNION of a LEFT and RIGHT JOIN, on
// dialects without native FULL OUTER JOIN support), with concurrent
// duplicate/null-key validation and per-column statistics (spec §4.8).
//
// Grounded on original_source/data_diff/joindiff_tables.py's JoinDiffer.
type JoinDiffer struct {
	BisectionFactor    int
	BisectionThreshold int64
	Threaded           bool
	MaxThreadpoolSize  int

	ValidateUniqueKey  bool
	MaterializeToTable []string
	MaterializeAllRows bool
	TableWriteLimit    int
	SkipNullKeys       bool
	Logger             logrus.FieldLogger
}

// NewJoinDiffer returns a JoinDiffer with the source's documented defaults:
// unique-key validation on, materialization off, no null-key skipping.
func NewJoinDiffer() *JoinDiffer {
	return &JoinDiffer{ValidateUniqueKey: true, TableWriteLimit: DefaultTableWriteLimit}
}

func (jd *JoinDiffer) workers() int {
	if !jd.Threaded {
		return 1
	}
	if jd.MaxThreadpoolSize > 0 {
		return jd.MaxThreadpoolSize
	}
	return defaultMaxThreadpoolSize
}

func (jd *JoinDiffer) logger() logrus.FieldLogger {
	if jd.Logger != nil {
		return jd.Logger
	}
	return logrus.StandardLogger()
}

// DiffTables runs the join-based comparison and returns a Yielder streaming
// DiffRows, plus the run's stats. As with HashDiffer, parameter/schema/key
// validation failures that are detected up front are returned synchronously.
// Once Results is drained, segment query failures are available from the
// Yielder's Err, and background check failures (duplicate keys, null keys,
// stats queries) from JoinStats.Err.
func (jd *JoinDiffer) DiffTables(ctx context.Context, a, b *tablesegment.TableSegment) (*scheduler.Yielder[DiffRow], *JoinStats, error) {
	if a.DB != b.DB {
		return nil, nil, &direrr.ConfigurationError{Reason: "join diff requires both tables to be in the same database"}
	}
	if jd.BisectionFactor == 0 {
		jd.BisectionFactor = DefaultBisectionFactor
	}
	if jd.BisectionThreshold == 0 {
		jd.BisectionThreshold = DefaultBisectionThreshold
	}
	if jd.TableWriteLimit == 0 {
		jd.TableWriteLimit = DefaultTableWriteLimit
	}
	if err := validateBisectionParams(jd.BisectionFactor, jd.BisectionThreshold); err != nil {
		return nil, nil, err
	}
	logger := jd.logger()

	var aS, bS *tablesegment.TableSegment
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		aS, err = a.WithSchema(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		bS, err = b.WithSchema(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := validateAndAdjustColumns(aS, bS, logger); err != nil {
		return nil, nil, err
	}
	if err := checkKeyColumnTypesAgree(aS, bS); err != nil {
		return nil, nil, err
	}

	if len(jd.MaterializeToTable) > 0 {
		if err := aS.DB.Exec(ctx, queryast.DropTable{Path: &queryast.TablePath{Path: jd.MaterializeToTable}, IfExists: true}); err != nil {
			return nil, nil, err
		}
	}

	segmentsA, segmentsB, err := jd.planSegments(ctx, aS, bS, logger)
	if err != nil {
		return nil, nil, err
	}

	stats := newJoinStats()
	y := scheduler.NewYielder[DiffRow](jd.workers())
	mat := &materializeState{}

	var bg errgroup.Group
	if jd.ValidateUniqueKey {
		bg.Go(func() error { return jd.testDuplicateKeys(ctx, aS, bS, stats, logger) })
	}
	bg.Go(func() error { return jd.testNullKeys(ctx, aS, bS, logger) })
	bg.Go(func() error { return jd.collectStats(ctx, 1, aS, stats) })
	bg.Go(func() error { return jd.collectStats(ctx, 2, bS, stats) })

	for i := range segmentsA {
		segA, segB, idx, n := segmentsA[i], segmentsB[i], i+1, len(segmentsA)
		y.Submit(func() ([]DiffRow, error) {
			return jd.diffSegment(ctx, segA, segB, idx, n, stats, mat, logger)
		}, 0)
	}
	y.Submit(func() ([]DiffRow, error) {
		if err := bg.Wait(); err != nil {
			stats.setErr(err)
		}
		return nil, nil
	}, 0)
	y.Close()

	return y, stats, nil
}

// planSegments decides how many (table1, table2) segment pairs to run the
// outer-join comparison over. Snowflake and BigQuery are left unsegmented,
// letting the warehouse parallelize the join itself, matching
// _diff_tables_root's isinstance check. Otherwise the union of both tables'
// key ranges (widened per key column) is split into up to BisectionFactor pieces using the same checkpoint
// machinery HashDiffer bisects with, run concurrently -- a deliberate
// simplification of the source's fully recursive bisection, since a join
// resolves a segment's diff exactly and has no checksum-equality signal to
// decide whether to split further.
func (jd *JoinDiffer) planSegments(ctx context.Context, a, b *tablesegment.TableSegment, logger logrus.FieldLogger) ([]*tablesegment.TableSegment, []*tablesegment.TableSegment, error) {
	switch a.DB.Dialect.Name() {
	case "Snowflake", "BigQuery":
		return []*tablesegment.TableSegment{a}, []*tablesegment.TableSegment{b}, nil
	}

	var minA, maxA keyspace.Vector
	var err error
	minA, maxA, err = a.QueryKeyRange(ctx)
	if err != nil {
		return nil, nil, err
	}
	minB, maxB, err := b.QueryKeyRange(ctx)
	if err != nil {
		return nil, nil, err
	}
	for i := range minA {
		if minB[i].Compare(minA[i]) < 0 {
			minA[i] = minB[i]
		}
		if maxB[i].Compare(maxA[i]) > 0 {
			maxA[i] = maxB[i]
		}
	}
	maxAExcl, err := incrementVector(maxA)
	if err != nil {
		return nil, nil, err
	}

	boundedA, err := a.NewKeyBounds(minA, maxAExcl)
	if err != nil {
		return nil, nil, err
	}
	boundedB, err := b.NewKeyBounds(minA, maxAExcl)
	if err != nil {
		return nil, nil, err
	}

	if boundedA.ApproximateSize() < jd.BisectionThreshold {
		return []*tablesegment.TableSegment{boundedA}, []*tablesegment.TableSegment{boundedB}, nil
	}

	checkpoints, err := boundedA.ChooseCheckpoints(jd.BisectionFactor - 1)
	if err != nil {
		return nil, nil, err
	}
	segmentsA, err := boundedA.SegmentByCheckpoints(checkpoints)
	if err != nil {
		return nil, nil, err
	}
	segmentsB, err := boundedB.SegmentByCheckpoints(checkpoints)
	if err != nil {
		return nil, nil, err
	}
	if len(segmentsA) != len(segmentsB) {
		return nil, nil, fmt.Errorf("diffengine: segment count mismatch after checkpointing (%d vs %d)", len(segmentsA), len(segmentsB))
	}
	logger.Debugf("join-diffing across %d segments", len(segmentsA))
	return segmentsA, segmentsB, nil
}

// diffSegment builds and runs the outer-join comparison query for one
// segment pair, plus its per-segment diff-count/exclusive-count/materialize
// side queries, and returns the exclusive rows found (spec §4.8 step 6-7).
func (jd *JoinDiffer) diffSegment(ctx context.Context, a, b *tablesegment.TableSegment, idx, n int, stats *JoinStats, mat *materializeState, logger logrus.FieldLogger) ([]DiffRow, error) {
	logger.Debugf("diffing segment %d/%d", idx, n)

	allRows, diffRows, isDiffCols, relCols, err := jd.buildOuterJoin(a, b)
	if err != nil {
		return nil, err
	}

	var side errgroup.Group
	side.Go(func() error { return jd.countDiffPerColumn(ctx, a.DB, diffRows, isDiffCols, relCols, stats) })
	side.Go(func() error { return jd.countExclusive(ctx, a.DB, diffRows, stats) })
	if len(jd.MaterializeToTable) > 0 {
		source := diffRows
		if jd.MaterializeAllRows {
			source = allRows
		}
		side.Go(func() error { return jd.materializeDiff(ctx, a.DB, source, mat) })
	}

	rows, queryErr := jd.queryDiffRows(ctx, a.DB, diffRows, len(relCols))
	if sideErr := side.Wait(); sideErr != nil && queryErr == nil {
		queryErr = sideErr
	}
	return rows, queryErr
}

// queryDiffRows runs diffRows and turns each result row into 0, 1, or 2
// DiffRows, matching _diff_segments' is_xa/is_xb handling: a row exclusive
// to A (is_exclusive_a) only yields a "-"; a row exclusive to B
// (is_exclusive_b) only yields a "+"; a row present on both sides that
// differs yields both.
func (jd *JoinDiffer) queryDiffRows(ctx context.Context, db *dbconn.Database, diffRows *queryast.Select, nCols int) ([]DiffRow, error) {
	sqlRows, err := db.Query(ctx, diffRows)
	if err != nil {
		return nil, err
	}
	defer sqlRows.Close()

	var out []DiffRow
	for sqlRows.Next() {
		raw, err := sqlRows.SliceScan()
		if err != nil {
			return nil, err
		}
		if len(raw) != 2+2*nCols {
			return nil, fmt.Errorf("diffengine: expected %d diff-row columns, got %d", 2+2*nCols, len(raw))
		}
		isExclusiveA := truthy(raw[0])
		isExclusiveB := truthy(raw[1])
		if isExclusiveA && isExclusiveB {
			if jd.SkipNullKeys {
				continue
			}
			return nil, &direrr.NullKeyError{}
		}

		aRow := make([]string, nCols)
		bRow := make([]string, nCols)
		for i := 0; i < nCols; i++ {
			aRow[i] = stringify(raw[2+2*i])
			bRow[i] = stringify(raw[2+2*i+1])
		}
		if !isExclusiveB {
			out = append(out, DiffRow{Sign: "-", Values: aRow})
		}
		if !isExclusiveA {
			out = append(out, DiffRow{Sign: "+", Values: bRow})
		}
	}
	return out, sqlRows.Err()
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int64:
		return t != 0
	case int:
		return t != 0
	case []byte:
		return len(t) == 1 && (t[0] == '1' || t[0] == 1)
	default:
		return fmt.Sprintf("%v", t) == "1"
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// buildOuterJoin constructs the full comparison projection over a and b:
// is_exclusive_a/is_exclusive_b, an is_diff_<col> flag per relevant column,
// and <col>_a/<col>_b normalized value pairs, matching
// _create_outer_join. allRows is the unfiltered join; diffRows wraps it
// with a WHERE clause keeping only rows where some column differs.
func (jd *JoinDiffer) buildOuterJoin(a, b *tablesegment.TableSegment) (allRows *queryast.Select, diffRows *queryast.Select, isDiffCols []string, relCols []string, err error) {
	keys1, keys2 := a.KeyColumns, b.KeyColumns
	if len(keys1) != len(keys2) {
		return nil, nil, nil, nil, fmt.Errorf("diffengine: key column count mismatch")
	}
	cols1, cols2 := a.RelevantColumns(), b.RelevantColumns()
	if len(cols1) != len(cols2) {
		return nil, nil, nil, nil, fmt.Errorf("diffengine: relevant column count mismatch")
	}

	selA, selB := a.MakeSelect(), b.MakeSelect()

	on := make([]queryast.Node, len(keys1))
	for i := range keys1 {
		on[i] = queryast.BinOp{Op: "=", Left: queryast.Column{Source: selA, Name: keys1[i]}, Right: queryast.Column{Source: selB, Name: keys2[i]}}
	}

	var exclusiveAChecks, exclusiveBChecks []queryast.Node
	for _, k := range keys2 {
		exclusiveAChecks = append(exclusiveAChecks, queryast.IsNull{Expr: queryast.Column{Source: selB, Name: k}})
	}
	for _, k := range keys1 {
		exclusiveBChecks = append(exclusiveBChecks, queryast.IsNull{Expr: queryast.Column{Source: selA, Name: k}})
	}
	isExclusiveA := boolToInt(andAll(exclusiveAChecks))
	isExclusiveB := boolToInt(andAll(exclusiveBChecks))

	isDiffCols = make([]string, len(cols1))
	var tailColumns []queryast.Node
	for i := range cols1 {
		name := "is_diff_" + cols1[i]
		isDiffCols[i] = name
		expr := queryast.IsDistinctFrom{A: queryast.Column{Source: selA, Name: cols1[i]}, B: queryast.Column{Source: selB, Name: cols2[i]}}
		tailColumns = append(tailColumns, queryast.Alias{Expr: boolToInt(expr), Name: name})
	}
	relCols = append([]string{}, cols1...)
	for i := range cols1 {
		ct1, _ := a.Schema().Get(cols1[i])
		ct2, _ := b.Schema().Get(cols2[i])
		tailColumns = append(tailColumns,
			queryast.Alias{Expr: queryast.NormalizeAsString{Expr: queryast.Column{Source: selA, Name: cols1[i]}, Type: ct1}, Name: cols1[i] + "_a"},
			queryast.Alias{Expr: queryast.NormalizeAsString{Expr: queryast.Column{Source: selB, Name: cols2[i]}, Type: ct2}, Name: cols2[i] + "_b"},
		)
	}

	var joinNode queryast.Table
	if a.DB.Dialect.Name() == "MySQL" {
		// No FULL OUTER JOIN: union a LEFT JOIN (is_exclusive_b forced false)
		// with a RIGHT JOIN (is_exclusive_a forced false), matching _outerjoin's
		// MySQL branch.
		leftColumns := append([]queryast.Node{
			queryast.Alias{Expr: isExclusiveA, Name: "is_exclusive_a"},
			queryast.Alias{Expr: queryast.Lit{Value: 0}, Name: "is_exclusive_b"},
		}, tailColumns...)
		rightColumns := append([]queryast.Node{
			queryast.Alias{Expr: queryast.Lit{Value: 0}, Name: "is_exclusive_a"},
			queryast.Alias{Expr: isExclusiveB, Name: "is_exclusive_b"},
		}, tailColumns...)
		left := &queryast.Join{Tables: []queryast.Table{selA, selB}, Op: "LEFT", On: on, Columns: leftColumns}
		right := &queryast.Join{Tables: []queryast.Table{selA, selB}, Op: "RIGHT", On: on, Columns: rightColumns}
		joinNode = queryast.TableOp{Op: "UNION", Left: left, Right: right}
	} else {
		fullColumns := append([]queryast.Node{
			queryast.Alias{Expr: isExclusiveA, Name: "is_exclusive_a"},
			queryast.Alias{Expr: isExclusiveB, Name: "is_exclusive_b"},
		}, tailColumns...)
		joinNode = &queryast.Join{Tables: []queryast.Table{selA, selB}, Op: "FULL OUTER", On: on, Columns: fullColumns}
	}

	allRows = &queryast.Select{Table: joinNode}

	var diffChecks []queryast.Node
	for _, name := range isDiffCols {
		diffChecks = append(diffChecks, queryast.BinOp{Op: "=", Left: queryast.Column{Name: name}, Right: queryast.Lit{Value: 1}})
	}
	diffRows = &queryast.Select{Table: joinNode, Where: []queryast.Node{orAll(diffChecks)}}
	return allRows, diffRows, isDiffCols, relCols, nil
}

func boolToInt(expr queryast.Node) queryast.Node {
	return queryast.CaseWhen{Cases: []queryast.WhenThen{{When: expr, Then: queryast.Lit{Value: 1}}}, Else: queryast.Lit{Value: 0}}
}

func andAll(exprs []queryast.Node) queryast.Node {
	if len(exprs) == 0 {
		return queryast.Lit{Value: true}
	}
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = queryast.BinOp{Op: "AND", Left: out, Right: e}
	}
	return out
}

func orAll(exprs []queryast.Node) queryast.Node {
	if len(exprs) == 0 {
		return queryast.Lit{Value: false}
	}
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = queryast.BinOp{Op: "OR", Left: out, Right: e}
	}
	return out
}

// countDiffPerColumn sums each is_diff_<col> flag over diffRows and
// accumulates the result into stats, matching _count_diff_per_column.
func (jd *JoinDiffer) countDiffPerColumn(ctx context.Context, db *dbconn.Database, diffRows *queryast.Select, isDiffCols, relCols []string, stats *JoinStats) error {
	sumExprs := make([]queryast.Node, len(isDiffCols))
	for i, name := range isDiffCols {
		sumExprs[i] = queryast.Func{Name: "sum", Args: []queryast.Node{queryast.Column{Name: name}}}
	}
	sel := &queryast.Select{Table: diffRows, Columns: sumExprs}
	row, err := db.QueryRow(ctx, sel)
	if err != nil {
		return err
	}
	counts := make([]sql.NullInt64, len(isDiffCols))
	scanArgs := make([]any, len(counts))
	for i := range counts {
		scanArgs[i] = &counts[i]
	}
	if err := row.Scan(scanArgs...); err != nil {
		return err
	}
	for i, c := range counts {
		if c.Valid {
			stats.addDiffCount(relCols[i], c.Int64)
		}
	}
	return nil
}

// countExclusive counts rows where either side of the join is exclusive
// (i.e. the key is absent from the other table), matching
// _sample_and_count_exclusive's counting path (row sampling into a scratch
// table is not reproduced: it needs the source's generator-driven
// create-temp-table-then-query protocol, which this module's Database
// doesn't expose, so only the count is tracked).
func (jd *JoinDiffer) countExclusive(ctx context.Context, db *dbconn.Database, diffRows *queryast.Select, stats *JoinStats) error {
	where := queryast.BinOp{Op: "OR",
		Left:  queryast.BinOp{Op: "=", Left: queryast.Column{Name: "is_exclusive_a"}, Right: queryast.Lit{Value: 1}},
		Right: queryast.BinOp{Op: "=", Left: queryast.Column{Name: "is_exclusive_b"}, Right: queryast.Lit{Value: 1}},
	}
	sel := &queryast.Select{Table: diffRows, Where: []queryast.Node{where}, Columns: []queryast.Node{queryast.Count{}}}
	row, err := db.QueryRow(ctx, sel)
	if err != nil {
		return err
	}
	var count int64
	if err := row.Scan(&count); err != nil {
		return err
	}
	stats.addExclusive(count)
	return nil
}

// materializeState guards the table-creation half of materializeDiff so that
// concurrently running segments create MaterializeToTable exactly once.
type materializeState struct {
	once sync.Once
	err  error
}

// materializeDiff appends source's rows (limited to TableWriteLimit per
// segment) to MaterializeToTable, matching append_to_table. The table is
// created empty (a same-shaped, always-false-filtered SELECT) the first time
// any segment calls in, then every segment -- including the first -- inserts
// its own rows; queryast's CreateTable only supports the CREATE ... AS SELECT
// form, so creating it pre-populated with the first segment's rows and then
// also inserting those rows again would double-count them.
func (jd *JoinDiffer) materializeDiff(ctx context.Context, db *dbconn.Database, source *queryast.Select, mat *materializeState) error {
	path := &queryast.TablePath{Path: jd.MaterializeToTable}

	mat.once.Do(func() {
		empty := *source
		empty.Where = append(append([]queryast.Node{}, source.Where...), queryast.Raw("1 = 0"))
		mat.err = db.Exec(ctx, queryast.CreateTable{Path: path, Source: &empty, IfNotExists: true})
	})
	if mat.err != nil {
		return mat.err
	}

	limited := *source
	limit := jd.TableWriteLimit
	limited.Limit = &limit
	return db.Exec(ctx, queryast.InsertToTable{Path: path, Source: &limited})
}

// testDuplicateKeys validates that each table's key columns, if not already
// covered by a UNIQUE constraint the database reports, actually hold
// distinct values, matching _test_duplicate_keys.
func (jd *JoinDiffer) testDuplicateKeys(ctx context.Context, a, b *tablesegment.TableSegment, stats *JoinStats, logger logrus.FieldLogger) error {
	for _, ts := range []*tablesegment.TableSegment{a, b} {
		unique, err := ts.DB.SelectTableUniqueColumns(ctx, ts.TablePath)
		if err != nil {
			return err
		}
		uniqueSet := make(map[string]bool, len(unique))
		for _, c := range unique {
			uniqueSet[c] = true
		}
		var unvalidated []string
		for _, k := range ts.KeyColumns {
			if !uniqueSet[k] {
				unvalidated = append(unvalidated, k)
			}
		}
		if len(unvalidated) == 0 {
			continue
		}
		logger.Infof("validating that there are no duplicate keys in columns: %v", unvalidated)
		stats.mu.Lock()
		stats.DuplicateKeys = append(stats.DuplicateKeys, unvalidated...)
		stats.mu.Unlock()

		sel := ts.MakeSelect()
		keyExprs := make([]queryast.Node, len(unvalidated))
		for i, k := range unvalidated {
			keyExprs[i] = queryast.Column{Source: sel, Name: k}
		}
		sel.Columns = []queryast.Node{
			queryast.Alias{Expr: queryast.Count{}, Name: "total"},
			queryast.Alias{Expr: queryast.Count{Expr: queryast.Concat{Exprs: keyExprs}, Distinct: true}, Name: "total_distinct"},
		}
		row, err := ts.DB.QueryRow(ctx, sel)
		if err != nil {
			return err
		}
		var total, totalDistinct int64
		if err := row.Scan(&total, &totalDistinct); err != nil {
			return err
		}
		if total != totalDistinct {
			return &direrr.DuplicateKeyError{KeyColumns: unvalidated}
		}
	}
	return nil
}

// testNullKeys validates that no row has a NULL value in any key column,
// matching _test_null_keys.
func (jd *JoinDiffer) testNullKeys(ctx context.Context, a, b *tablesegment.TableSegment, logger logrus.FieldLogger) error {
	for _, ts := range []*tablesegment.TableSegment{a, b} {
		sel := ts.MakeSelect()
		var checks []queryast.Node
		for _, k := range ts.KeyColumns {
			checks = append(checks, queryast.IsNull{Expr: queryast.Column{Source: sel, Name: k}})
		}
		sel.Columns = []queryast.Node{queryast.Count{}}
		sel.Where = append(sel.Where, orAll(checks))
		row, err := ts.DB.QueryRow(ctx, sel)
		if err != nil {
			return err
		}
		var count int64
		if err := row.Scan(&count); err != nil {
			return err
		}
		if count == 0 {
			continue
		}
		if jd.SkipNullKeys {
			logger.Warnf("NULL values in one or more primary keys of %v; skipping rows with NULL keys", ts.TablePath)
			continue
		}
		return &direrr.NullKeyError{KeyColumns: ts.KeyColumns}
	}
	return nil
}

// collectStats runs a single row-count-plus-numeric-column-sums query over
// ts and records the result under tableNum (1 or 2), matching
// _collect_stats.
func (jd *JoinDiffer) collectStats(ctx context.Context, tableNum int, ts *tablesegment.TableSegment, stats *JoinStats) error {
	keySet := make(map[string]bool, len(ts.KeyColumns))
	for _, k := range ts.KeyColumns {
		keySet[k] = true
	}

	sel := ts.MakeSelect()
	var sumNames []string
	columns := []queryast.Node{queryast.Alias{Expr: queryast.Count{}, Name: "count"}}
	for _, c := range ts.RelevantColumns() {
		if keySet[c] {
			continue
		}
		ct, _ := ts.Schema().Get(c)
		if _, ok := ct.(typemodel.NumericType); !ok {
			continue
		}
		sumNames = append(sumNames, c)
		columns = append(columns, queryast.Alias{Expr: queryast.Func{Name: "sum", Args: []queryast.Node{queryast.Column{Source: sel, Name: c}}}, Name: "sum_" + c})
	}
	sel.Columns = columns

	row, err := ts.DB.QueryRow(ctx, sel)
	if err != nil {
		return err
	}
	var count int64
	sums := make([]sql.NullString, len(sumNames))
	scanArgs := make([]any, 1+len(sums))
	scanArgs[0] = &count
	for i := range sums {
		scanArgs[1+i] = &sums[i]
	}
	if err := row.Scan(scanArgs...); err != nil {
		return err
	}
	stats.setCount(tableNum, count)
	for i, name := range sumNames {
		if !sums[i].Valid {
			continue
		}
		v, err := decimal.NewFromString(sums[i].String)
		if err != nil {
			return fmt.Errorf("diffengine: parsing sum(%s) = %q: %w", name, sums[i].String, err)
		}
		stats.addSum(tableNum, name, v)
	}
	return nil
}
