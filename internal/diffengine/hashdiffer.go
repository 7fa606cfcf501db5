package diffengine

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/skeema/rowdiff/internal/keyspace"
	"github.com/skeema/rowdiff/internal/scheduler"
	"github.com/skeema/rowdiff/internal/tablesegment"
	"github.com/skeema/rowdiff/internal/typemodel"
)

// Defaults for HashDiffer's bisection parameters (spec §4.7).
const (
	DefaultBisectionFactor    = 32
	DefaultBisectionThreshold = 16384
	defaultMaxThreadpoolSize  = 16
)

// HashStats accumulates the counters spec §4.7 step 7/§6 statistics mode
// expects, safe for concurrent updates from multiple workers.
type HashStats struct {
	mu             sync.Mutex
	Table1Count    int64
	Table2Count    int64
	DiffCount      int64
	RowsDownloaded int64
}

func (s *HashStats) setLevel0Counts(a, b int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Table1Count = a
	s.Table2Count = b
}

func (s *HashStats) addCounts(a, b int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Table1Count += a
	s.Table2Count += b
}

func (s *HashStats) addDiff(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DiffCount += n
}

func (s *HashStats) addDownloaded(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RowsDownloaded += n
}

// HashDiffer finds the diff between two (possibly cross-database) table
// segments by recursively bisecting their shared key range, checksumming
// each candidate segment, and only downloading rows once a segment is
// small enough to compare locally (spec §4.7).
//
// Grounded on original_source/data_diff/hashdiff_tables.py's HashDiffer and
// diff_tables.py's TableDiffer.diff_tables/_bisect_and_diff_tables/
// _diff_tables.
type HashDiffer struct {
	BisectionFactor    int
	BisectionThreshold int64
	Threaded           bool
	MaxThreadpoolSize  int
	Logger             logrus.FieldLogger

	jsonMu     sync.Mutex
	jsonWarned map[string]bool
}

func (hd *HashDiffer) workers() int {
	if !hd.Threaded {
		return 1
	}
	if hd.MaxThreadpoolSize > 0 {
		return hd.MaxThreadpoolSize
	}
	return defaultMaxThreadpoolSize
}

func (hd *HashDiffer) logger() logrus.FieldLogger {
	if hd.Logger != nil {
		return hd.Logger
	}
	return logrus.StandardLogger()
}

// DiffTables runs the full algorithm and returns a Yielder streaming
// DiffRows as they're found (callers must drain Results() to completion and
// then check Err, per scheduler.Yielder's contract) along with the run's
// accumulated stats. Schema mismatches, key-type disagreements, and
// parameter validation failures are returned directly as a synchronous
// error instead, since they're detected before any scheduler work starts.
func (hd *HashDiffer) DiffTables(ctx context.Context, a, b *tablesegment.TableSegment) (*scheduler.Yielder[DiffRow], *HashStats, error) {
	if hd.BisectionFactor == 0 {
		hd.BisectionFactor = DefaultBisectionFactor
	}
	if hd.BisectionThreshold == 0 {
		hd.BisectionThreshold = DefaultBisectionThreshold
	}
	if err := validateBisectionParams(hd.BisectionFactor, hd.BisectionThreshold); err != nil {
		return nil, nil, err
	}
	logger := hd.logger()

	// Step 1-2: schemas, mutual precision reduction, key-class agreement.
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

	// Step 3: concurrent key-range fetch, seeding the main bounds from one
	// side and scheduling pre/post "missed range" segments from the other.
	var minA, maxA, minB, maxB keyspace.Vector
	g2, gctx2 := errgroup.WithContext(ctx)
	g2.Go(func() error {
		var err error
		minA, maxA, err = aS.QueryKeyRange(gctx2)
		return err
	})
	g2.Go(func() error {
		var err error
		minB, maxB, err = bS.QueryKeyRange(gctx2)
		return err
	})
	if err := g2.Wait(); err != nil {
		return nil, nil, err
	}

	maxAExcl, err := incrementVector(maxA)
	if err != nil {
		return nil, nil, err
	}
	maxBExcl, err := incrementVector(maxB)
	if err != nil {
		return nil, nil, err
	}

	mainA, err := aS.NewKeyBounds(minA, maxAExcl)
	if err != nil {
		return nil, nil, err
	}
	mainB, err := bS.NewKeyBounds(minA, maxAExcl)
	if err != nil {
		return nil, nil, err
	}

	logger.Infof("diffing tables | segments: %d, bisection threshold: %d, key-range: %s..%s",
		hd.BisectionFactor, hd.BisectionThreshold, minA, maxAExcl)

	stats := &HashStats{}
	y := scheduler.NewYielder[DiffRow](hd.workers())

	y.Submit(hd.bisectAndDiffTask(ctx, y, mainA, mainB, 0, nil, stats, logger), 0)

	// "Missed" ranges: parts of B's observed range lying outside A's.
	if minB.Compare(minA) < 0 {
		preA, errA := aS.NewKeyBounds(minB, minA)
		preB, errB := bS.NewKeyBounds(minB, minA)
		if errA == nil && errB == nil {
			y.Submit(hd.bisectAndDiffTask(ctx, y, preA, preB, 0, nil, stats, logger), 0)
		} else {
			logger.Warnf("could not schedule pre-range segment below the common key range: %v / %v", errA, errB)
		}
	}
	if maxBExcl.Compare(maxAExcl) > 0 {
		postA, errA := aS.NewKeyBounds(maxAExcl, maxBExcl)
		postB, errB := bS.NewKeyBounds(maxAExcl, maxBExcl)
		if errA == nil && errB == nil {
			y.Submit(hd.bisectAndDiffTask(ctx, y, postA, postB, 0, nil, stats, logger), 0)
		} else {
			logger.Warnf("could not schedule post-range segment above the common key range: %v / %v", errA, errB)
		}
	}

	y.Close()
	return y, stats, nil
}

// incrementVector adds 1 to each component of v's arithmetic representation,
// converting an inclusive observed maximum into an exclusive upper bound
// suitable for TableSegment's key-range filters, matching
// TableDiffer._parse_key_range_result's `cls(mx) + 1`.
func incrementVector(v keyspace.Vector) (keyspace.Vector, error) {
	out := make(keyspace.Vector, len(v))
	for i, kv := range v {
		a, ok := kv.(keyspace.Arith)
		if !ok {
			return nil, fmt.Errorf("diffengine: key value %s is not arithmetic", kv)
		}
		next, err := a.FromInt(new(big.Int).Add(a.Int(), big.NewInt(1)))
		if err != nil {
			return nil, err
		}
		out[i] = next
	}
	return out, nil
}

func (hd *HashDiffer) bisectAndDiffTask(
	ctx context.Context, y *scheduler.Yielder[DiffRow], a, b *tablesegment.TableSegment,
	level int, maxRows *int64, stats *HashStats, logger logrus.FieldLogger,
) scheduler.Task[DiffRow] {
	return func() ([]DiffRow, error) {
		return hd.bisectAndDiff(ctx, y, a, b, level, maxRows, stats, logger)
	}
}

// bisectAndDiff implements spec §4.7 step 5: download-and-diff leaf
// segments directly, or split into BisectionFactor children and submit each
// pair for further comparison.
func (hd *HashDiffer) bisectAndDiff(
	ctx context.Context, y *scheduler.Yielder[DiffRow], a, b *tablesegment.TableSegment,
	level int, maxRows *int64, stats *HashStats, logger logrus.FieldLogger,
) ([]DiffRow, error) {
	sizeA, sizeB := a.ApproximateSize(), b.ApproximateSize()
	size := sizeA
	if sizeB > size {
		size = sizeB
	}
	mr := size
	if maxRows != nil {
		mr = *maxRows
	}

	if mr < hd.BisectionThreshold || size < int64(hd.BisectionFactor)*2 {
		var rowsA, rowsB [][]string
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			rowsA, err = a.GetValues(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			rowsB, err = b.GetValues(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		jsonCols, colNames := jsonColumnIndexes(a)
		diffs := hd.diffSets(rowsA, rowsB, jsonCols, colNames, logger)

		if level == 0 {
			stats.setLevel0Counts(int64(len(rowsA)), int64(len(rowsB)))
		}
		stats.addDiff(int64(len(diffs)))
		downloaded := len(rowsA)
		if len(rowsB) > downloaded {
			downloaded = len(rowsB)
		}
		stats.addDownloaded(int64(downloaded))

		logger.Debugf("%sdiff found %d different rows", strings.Repeat(". ", level), len(diffs))
		return diffs, nil
	}

	biggest := a
	if b.ApproximateSize() > a.ApproximateSize() {
		biggest = b
	}
	checkpoints, err := biggest.ChooseCheckpoints(hd.BisectionFactor - 1)
	if err != nil {
		return nil, err
	}
	segmentsA, err := a.SegmentByCheckpoints(checkpoints)
	if err != nil {
		return nil, err
	}
	segmentsB, err := b.SegmentByCheckpoints(checkpoints)
	if err != nil {
		return nil, err
	}
	if len(segmentsA) != len(segmentsB) {
		return nil, fmt.Errorf("diffengine: segment count mismatch after checkpointing (%d vs %d)", len(segmentsA), len(segmentsB))
	}

	for i := range segmentsA {
		childA, childB := segmentsA[i], segmentsB[i]
		y.Submit(hd.diffSegmentsTask(ctx, y, childA, childB, mr, level+1, i+1, len(segmentsA), stats, logger), level)
	}
	return nil, nil
}

func (hd *HashDiffer) diffSegmentsTask(
	ctx context.Context, y *scheduler.Yielder[DiffRow], a, b *tablesegment.TableSegment,
	maxRows int64, level, idx, n int, stats *HashStats, logger logrus.FieldLogger,
) scheduler.Task[DiffRow] {
	return func() ([]DiffRow, error) {
		return hd.diffSegments(ctx, y, a, b, maxRows, level, idx, n, stats, logger)
	}
}

// diffSegments implements spec §4.7 step 6: count+checksum both sides, and
// recurse via bisectAndDiff only if they disagree.
func (hd *HashDiffer) diffSegments(
	ctx context.Context, y *scheduler.Yielder[DiffRow], a, b *tablesegment.TableSegment,
	maxRows int64, level, idx, n int, stats *HashStats, logger logrus.FieldLogger,
) ([]DiffRow, error) {
	logger.Debugf("%sdiffing segment %d/%d, size <= %d", strings.Repeat(". ", level), idx, n, maxRows)

	var count1, count2 int64
	var sum1, sum2 *decimal.Decimal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		count1, sum1, err = a.CountAndChecksum(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		count2, sum2, err = b.CountAndChecksum(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if count1 == 0 && count2 == 0 {
		return nil, nil
	}
	if level == 1 {
		stats.addCounts(count1, count2)
	}
	if count1 == count2 && checksumsEqual(sum1, sum2) {
		return nil, nil
	}

	newMax := count1
	if count2 > newMax {
		newMax = count2
	}
	return hd.bisectAndDiff(ctx, y, a, b, level, &newMax, stats, logger)
}

func checksumsEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// jsonColumnIndexes returns the positions (within ts.RelevantColumns()) of
// JSON-typed columns, and the full column name list, used by diffSets'
// JSON-equivalence special case.
func jsonColumnIndexes(ts *tablesegment.TableSegment) ([]int, []string) {
	names := ts.RelevantColumns()
	var idx []int
	for i, name := range names {
		if ct, ok := ts.Schema().Get(name); ok {
			if _, isJSON := ct.(typemodel.JSON); isJSON {
				idx = append(idx, i)
			}
		}
	}
	return idx, names
}

type signedRow struct {
	sign string
	row  []string
}

func rowKey(r []string) string { return strings.Join(r, "\x1f") }

// diffSets computes the local set-difference between two downloaded row
// sets, matching hashdiff_tables.py's diff_sets: grouped by the first
// (key) column, sorted by key, emitting "-" rows from A then "+" rows from
// B for each differing key. If jsonCols names any JSON-typed columns, a
// group whose only differences are JSON values that parse to equal
// structures is treated as unchanged (spec §2 "JSON-aware local diffing"),
// with a one-time warning per affected column.
func (hd *HashDiffer) diffSets(rowsA, rowsB [][]string, jsonCols []int, colNames []string, logger logrus.FieldLogger) []DiffRow {
	setB := make(map[string]bool, len(rowsB))
	for _, r := range rowsB {
		setB[rowKey(r)] = true
	}
	setA := make(map[string]bool, len(rowsA))
	for _, r := range rowsA {
		setA[rowKey(r)] = true
	}

	grouped := make(map[string][]signedRow)
	var keys []string
	addGroup := func(k string, sr signedRow) {
		if _, ok := grouped[k]; !ok {
			keys = append(keys, k)
		}
		grouped[k] = append(grouped[k], sr)
	}
	for _, r := range rowsA {
		if !setB[rowKey(r)] {
			k := ""
			if len(r) > 0 {
				k = r[0]
			}
			addGroup(k, signedRow{"-", r})
		}
	}
	for _, r := range rowsB {
		if !setA[rowKey(r)] {
			k := ""
			if len(r) > 0 {
				k = r[0]
			}
			addGroup(k, signedRow{"+", r})
		}
	}
	sort.Strings(keys)

	var out []DiffRow
	for _, k := range keys {
		group := grouped[k]
		if len(jsonCols) > 0 && hd.jsonGroupEquivalent(group, jsonCols, colNames, logger) {
			continue
		}
		for _, sr := range group {
			out = append(out, DiffRow{Sign: sr.sign, Values: sr.row})
		}
	}
	return out
}

// jsonGroupEquivalent reports whether a pair of differing rows for one key
// differ only in JSON columns whose values parse to structurally equal
// JSON, in which case the pair is not a real diff.
func (hd *HashDiffer) jsonGroupEquivalent(group []signedRow, jsonCols []int, colNames []string, logger logrus.FieldLogger) bool {
	if len(group) != 2 || group[0].sign == group[1].sign {
		return false
	}
	rowA, rowB := group[0].row, group[1].row
	if group[0].sign == "+" {
		rowA, rowB = rowB, rowA
	}
	if len(rowA) != len(rowB) {
		return false
	}

	isJSONCol := make(map[int]bool, len(jsonCols))
	for _, i := range jsonCols {
		isJSONCol[i] = true
	}

	var equivalentCols []int
	for i := range rowA {
		if rowA[i] == rowB[i] {
			continue
		}
		if isJSONCol[i] {
			if eq, err := jsonValuesEquivalent(rowA[i], rowB[i]); err == nil && eq {
				equivalentCols = append(equivalentCols, i)
				continue
			}
		}
		return false
	}
	for _, i := range equivalentCols {
		name := "?"
		if i < len(colNames) {
			name = colNames[i]
		}
		hd.warnJSONEquivalenceOnce(name, logger)
	}
	return true
}

func jsonValuesEquivalent(a, b string) (bool, error) {
	var va, vb any
	if err := json.Unmarshal([]byte(a), &va); err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(b), &vb); err != nil {
		return false, err
	}
	return reflect.DeepEqual(va, vb), nil
}

func (hd *HashDiffer) warnJSONEquivalenceOnce(column string, logger logrus.FieldLogger) {
	hd.jsonMu.Lock()
	defer hd.jsonMu.Unlock()
	if hd.jsonWarned == nil {
		hd.jsonWarned = make(map[string]bool)
	}
	if hd.jsonWarned[column] {
		return
	}
	hd.jsonWarned[column] = true
	logger.Warnf("equivalent JSON objects with different string representations detected in column %q. "+
		"These cases are NOT reported as differences.", column)
}
