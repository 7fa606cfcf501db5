// Package tablesegment implements TableSegment, an immutable description of
// a (possibly bounded) slice of rows and columns within one table, and the
// bisection operations used to recursively split it for HashDiffer (spec
// §4.5).
//
// Grounded on original_source/data_diff/table_segment.py (the TableSegment
// dataclass and its choose_checkpoints/segment_by_checkpoints/
// count_and_checksum/query_key_range methods), re-expressed as a Go struct
// whose With* methods return a new value rather than calling dataclasses'
// replace(), matching teacher's "every mutation returns a new value" style
// seen in internal/tengo's diff-building types.
package tablesegment

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/skeema/rowdiff/internal/dbconn"
	"github.com/skeema/rowdiff/internal/keyspace"
	"github.com/skeema/rowdiff/internal/queryast"
	"github.com/skeema/rowdiff/internal/typemodel"
)

// RecommendedChecksumDuration is the threshold past which CountAndChecksum
// logs a warning suggesting a larger bisection factor or fewer threads,
// matching table_segment.py's RECOMMENDED_CHECKSUM_DURATION (20s).
const RecommendedChecksumDuration = 20 * time.Second

// textSampleSize bounds how many rows WithSchema samples per Text column
// when deciding whether it can be retyped as a UUID or alphanumeric key
// (spec §4.5 "with_schema": "draw a 16-row sample").
const textSampleSize = 16

// TableSegment describes a slice of one table: which columns participate in
// the comparison, and the (optional) key/update-column bounds restricting
// which rows are in scope.
type TableSegment struct {
	DB        *dbconn.Database
	TablePath []string

	KeyColumns   []string
	KeyArith     []keyspace.Arith // parses this segment's key columns into comparable/bisectable values
	UpdateColumn string
	ExtraColumns []string

	MinKey, MaxKey         keyspace.Vector
	MinUpdate, MaxUpdate   *string
	Where                  string
	CaseSensitive          bool

	schema *typemodel.Schema
	Logger logrus.FieldLogger
}

// New validates cfg and returns a TableSegment, matching
// TableSegment.__post_init__'s validation (update-range requires an update
// column; min/max bounds must be properly ordered).
func New(cfg TableSegment) (*TableSegment, error) {
	ts := cfg
	if ts.Logger == nil {
		ts.Logger = logrus.StandardLogger()
	}
	if ts.UpdateColumn == "" && (ts.MinUpdate != nil || ts.MaxUpdate != nil) {
		return nil, fmt.Errorf("tablesegment: min_update/max_update requires UpdateColumn to be set")
	}
	if ts.MinKey != nil && ts.MaxKey != nil && ts.MinKey.Compare(ts.MaxKey) >= 0 {
		return nil, fmt.Errorf("tablesegment: MinKey (%s) must be smaller than MaxKey (%s)", ts.MinKey, ts.MaxKey)
	}
	if ts.MinUpdate != nil && ts.MaxUpdate != nil && *ts.MinUpdate >= *ts.MaxUpdate {
		return nil, fmt.Errorf("tablesegment: MinUpdate (%s) must be smaller than MaxUpdate (%s)", *ts.MinUpdate, *ts.MaxUpdate)
	}
	return &ts, nil
}

func (ts *TableSegment) clone() *TableSegment {
	cp := *ts
	return &cp
}

// IsBounded reports whether both MinKey and MaxKey are set.
func (ts *TableSegment) IsBounded() bool {
	return ts.MinKey != nil && ts.MaxKey != nil
}

// RelevantColumns returns the key columns followed by the update column (if
// any, and not already present) followed by the extra columns, matching
// TableSegment.relevant_columns.
func (ts *TableSegment) RelevantColumns() []string {
	cols := append([]string{}, ts.KeyColumns...)
	if ts.UpdateColumn != "" {
		already := false
		for _, c := range ts.ExtraColumns {
			if c == ts.UpdateColumn {
				already = true
				break
			}
		}
		if !already {
			cols = append(cols, ts.UpdateColumn)
		}
	}
	cols = append(cols, ts.ExtraColumns...)
	return cols
}

// Schema returns the segment's schema, if WithSchema has been called.
func (ts *TableSegment) Schema() *typemodel.Schema { return ts.schema }

// WithSchema queries the table's schema (restricted to RelevantColumns) if
// it hasn't been fetched yet, samples every Text column to see if it can be
// retyped as a UUID or alphanumeric key, and returns a new TableSegment
// carrying the result, matching TableSegment.with_schema.
func (ts *TableSegment) WithSchema(ctx context.Context) (*TableSegment, error) {
	if ts.schema != nil {
		return ts, nil
	}
	full, err := ts.DB.QueryTableSchema(ctx, ts.TablePath, ts.CaseSensitive)
	if err != nil {
		return nil, err
	}

	relevant := make(map[string]bool, len(ts.RelevantColumns()))
	for _, c := range ts.RelevantColumns() {
		relevant[c] = true
	}
	filtered := typemodel.NewSchema(ts.CaseSensitive)
	for _, name := range full.Names() {
		if !relevant[name] {
			continue
		}
		ct, _ := full.Get(name)
		filtered.Add(name, ct)
	}
	filtered.Warnings = append(filtered.Warnings, full.Warnings...)

	cp := ts.clone()
	cp.schema = filtered
	if err := cp.refineTextColumns(ctx); err != nil {
		return nil, err
	}
	return cp, nil
}

// refineTextColumns draws up to textSampleSize rows of every Text column in
// ts.schema and retypes a column to StringUUID if every non-null sampled
// value parses as a UUID, or to StringAlphanum if every non-null sampled
// value is drawn from keyspace.Alphabet (fixed-length if all samples share
// one length, else varying); mixed samples are left as Text with a warning.
// Matches table_segment.py's with_schema -> _refine_coltypes sampling pass
// (spec §4.5, §3 "String_UUID" / "String_Alphanum").
func (ts *TableSegment) refineTextColumns(ctx context.Context) error {
	var textCols []string
	for _, name := range ts.schema.Names() {
		if ct, _ := ts.schema.Get(name); ct != nil {
			if _, ok := ct.(typemodel.Text); ok {
				textCols = append(textCols, name)
			}
		}
	}
	if len(textCols) == 0 {
		return nil
	}

	src := ts.sourceTable()
	cols := make([]queryast.Node, len(textCols))
	for i, name := range textCols {
		cols[i] = queryast.Column{Source: src, Name: name}
	}
	limit := textSampleSize
	sel := ts.MakeSelect()
	sel.Columns = cols
	sel.Limit = &limit

	rows, err := ts.DB.Query(ctx, sel)
	if err != nil {
		return err
	}
	defer rows.Close()

	samples := make([][]string, len(textCols))
	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return err
		}
		for i, v := range raw {
			if v == nil {
				continue
			}
			samples[i] = append(samples[i], fmt.Sprintf("%v", v))
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i, name := range textCols {
		refined, warning := refineTextSample(samples[i])
		if refined != nil {
			ts.schema.Set(name, refined)
		}
		if warning != "" {
			ts.schema.Warnings = append(ts.schema.Warnings, fmt.Sprintf("column %s: %s", name, warning))
		}
	}
	return nil
}

// refineTextSample classifies a column's non-null sample values, returning
// the retyped ColumnType (nil if the column should stay Text) and a warning
// message (empty if none).
func refineTextSample(samples []string) (typemodel.ColumnType, string) {
	if len(samples) == 0 {
		return nil, ""
	}

	allUUID := true
	for _, s := range samples {
		if _, err := keyspace.NewArithUUID(s); err != nil {
			allUUID = false
			break
		}
	}
	if allUUID {
		return typemodel.StringUUID{}, ""
	}

	allAlphanum := true
	fixed := true
	maxLen, firstLen := 0, -1
	for _, s := range samples {
		if _, err := keyspace.NewArithAlphanumeric(s, 0); err != nil {
			allAlphanum = false
			break
		}
		if len(s) > maxLen {
			maxLen = len(s)
		}
		if firstLen == -1 {
			firstLen = len(s)
		} else if len(s) != firstLen {
			fixed = false
		}
	}
	if allAlphanum {
		return typemodel.StringAlphanum{Fixed: fixed, Len: maxLen}, ""
	}

	return nil, "mixed UUID/alphanumeric/plain-text sample values; column cannot be used as a bisectable key"
}

func (ts *TableSegment) sourceTable() *queryast.TablePath {
	return &queryast.TablePath{Path: ts.TablePath}
}

// literalForKeyValue renders a keyspace.KeyValue as a SQL literal node,
// quoting string-shaped key values (UUID, alphanumeric) and leaving
// integer keys bare.
func literalForKeyValue(kv keyspace.KeyValue) queryast.Node {
	switch kv.(type) {
	case keyspace.IntKey:
		return queryast.Raw(kv.String())
	default:
		return queryast.Lit{Value: kv.String()}
	}
}

func (ts *TableSegment) keyRangeFilters() []queryast.Node {
	var filters []queryast.Node
	src := ts.sourceTable()
	if ts.MinKey != nil {
		for i, k := range ts.MinKey {
			col := queryast.Column{Source: src, Name: ts.KeyColumns[i]}
			filters = append(filters, queryast.BinOp{Op: "<=", Left: literalForKeyValue(k), Right: col})
		}
	}
	if ts.MaxKey != nil {
		for i, k := range ts.MaxKey {
			col := queryast.Column{Source: src, Name: ts.KeyColumns[i]}
			filters = append(filters, queryast.BinOp{Op: "<", Left: col, Right: literalForKeyValue(k)})
		}
	}
	return filters
}

func (ts *TableSegment) updateRangeFilters() []queryast.Node {
	var filters []queryast.Node
	src := ts.sourceTable()
	col := queryast.Column{Source: src, Name: ts.UpdateColumn}
	if ts.MinUpdate != nil {
		filters = append(filters, queryast.BinOp{Op: "<=", Left: queryast.Lit{Value: *ts.MinUpdate}, Right: col})
	}
	if ts.MaxUpdate != nil {
		filters = append(filters, queryast.BinOp{Op: "<", Left: col, Right: queryast.Lit{Value: *ts.MaxUpdate}})
	}
	return filters
}

// MakeSelect builds the base Select (all filters, no projected columns) that
// every TableSegment query derives from, matching TableSegment.make_select.
func (ts *TableSegment) MakeSelect() *queryast.Select {
	where := append(ts.keyRangeFilters(), ts.updateRangeFilters()...)
	if ts.Where != "" {
		where = append(where, queryast.Raw("("+ts.Where+")"))
	}
	return &queryast.Select{Table: ts.sourceTable(), Where: where}
}

func (ts *TableSegment) relevantColumnsRepr() []queryast.Node {
	cols := ts.RelevantColumns()
	exprs := make([]queryast.Node, len(cols))
	src := ts.sourceTable()
	for i, c := range cols {
		ct, _ := ts.columnType(c)
		exprs[i] = queryast.NormalizeAsString{Expr: queryast.Column{Source: src, Name: c}, Type: ct}
	}
	return exprs
}

func (ts *TableSegment) columnType(name string) (typemodel.ColumnType, bool) {
	if ts.schema == nil {
		return nil, false
	}
	return ts.schema.Get(name)
}

// GetValues downloads every relevant-column value for every row in the
// segment, matching TableSegment.get_values. Intended for small segments
// only (HashDiffer falls back to this once a segment can't be bisected
// further).
func (ts *TableSegment) GetValues(ctx context.Context) ([][]string, error) {
	sel := ts.MakeSelect()
	sel.Columns = ts.relevantColumnsRepr()
	rows, err := ts.DB.Query(ctx, sel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		row := make([]string, len(raw))
		for i, v := range raw {
			if v == nil {
				continue
			}
			row[i] = fmt.Sprintf("%v", v)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Count returns the number of rows in the segment, matching
// TableSegment.count.
func (ts *TableSegment) Count(ctx context.Context) (int64, error) {
	sel := ts.MakeSelect()
	sel.Columns = []queryast.Node{queryast.Count{}}
	row, err := ts.DB.QueryRow(ctx, sel)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountAndChecksum counts and checksums the segment's rows in one pass,
// matching TableSegment.count_and_checksum, including the
// RecommendedChecksumDuration warning.
//
// The checksum is a SUM() of per-row signed 60-bit integers (spec §4.1 "md5
// as int"); across more than a handful of rows that sum routinely exceeds
// int64's range (and the driver returns it as NUMERIC/DECIMAL text, not an
// int64-compatible value), so it is scanned and compared as a
// decimal.Decimal rather than *int64.
func (ts *TableSegment) CountAndChecksum(ctx context.Context) (count int64, checksum *decimal.Decimal, err error) {
	start := time.Now()
	sel := ts.MakeSelect()
	exprs := ts.relevantColumnsRepr()
	sel.Columns = []queryast.Node{queryast.Count{}, queryast.Checksum{Exprs: exprs}}

	row, err := ts.DB.QueryRow(ctx, sel)
	if err != nil {
		return 0, nil, err
	}
	var rowCount int64
	var sum sql.NullString
	if err := row.Scan(&rowCount, &sum); err != nil {
		return 0, nil, err
	}

	if d := time.Since(start); d > RecommendedChecksumDuration {
		ts.Logger.Warnf("checksum is taking longer than expected (%s); consider increasing the bisection factor or decreasing thread count", d)
	}
	if rowCount > 0 && !sum.Valid {
		return 0, nil, fmt.Errorf("tablesegment: got a non-empty count (%d) but a nil checksum", rowCount)
	}
	if rowCount == 0 {
		return 0, nil, nil
	}
	parsed, err := decimal.NewFromString(sum.String)
	if err != nil {
		return 0, nil, fmt.Errorf("tablesegment: parsing checksum %q: %w", sum.String, err)
	}
	return rowCount, &parsed, nil
}

// QueryKeyRange queries the minimum and maximum value of each key column,
// parsed into keyspace.KeyValue via KeyArith, matching
// TableSegment.query_key_range. Returns an error if the table is empty.
func (ts *TableSegment) QueryKeyRange(ctx context.Context) (min, max keyspace.Vector, err error) {
	src := ts.sourceTable()
	var exprs []queryast.Node
	for _, k := range ts.KeyColumns {
		col := queryast.Column{Source: src, Name: k}
		ct, _ := ts.columnType(k)
		exprs = append(exprs,
			queryast.NormalizeAsString{Expr: queryast.Func{Name: "min", Args: []queryast.Node{col}}, Type: ct},
			queryast.NormalizeAsString{Expr: queryast.Func{Name: "max", Args: []queryast.Node{col}}, Type: ct},
		)
	}
	sel := ts.MakeSelect()
	sel.Columns = exprs

	row, err := ts.DB.QueryRow(ctx, sel)
	if err != nil {
		return nil, nil, err
	}
	raw, err := row.SliceScan()
	if err != nil {
		return nil, nil, fmt.Errorf("tablesegment: querying key range: %w", err)
	}
	for _, v := range raw {
		if v == nil {
			return nil, nil, fmt.Errorf("tablesegment: table %v appears to be empty", ts.TablePath)
		}
	}

	min = make(keyspace.Vector, len(ts.KeyColumns))
	max = make(keyspace.Vector, len(ts.KeyColumns))
	for i := range ts.KeyColumns {
		minRaw, maxRaw := fmt.Sprintf("%v", raw[2*i]), fmt.Sprintf("%v", raw[2*i+1])
		minVal, err := parseWithArith(ts.KeyArith[i], minRaw)
		if err != nil {
			return nil, nil, err
		}
		maxVal, err := parseWithArith(ts.KeyArith[i], maxRaw)
		if err != nil {
			return nil, nil, err
		}
		min[i], max[i] = minVal, maxVal
	}
	return min, max, nil
}

func parseWithArith(arith keyspace.Arith, raw string) (keyspace.KeyValue, error) {
	switch arith.(type) {
	case keyspace.IntKey:
		var n int64
		if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
			return nil, fmt.Errorf("tablesegment: parsing integer key %q: %w", raw, err)
		}
		return keyspace.IntKey(n), nil
	case keyspace.ArithUUID:
		return keyspace.NewArithUUID(raw)
	case keyspace.ArithAlphanumeric:
		return keyspace.NewArithAlphanumeric(raw, arith.(keyspace.ArithAlphanumeric).MaxLen)
	default:
		return nil, fmt.Errorf("tablesegment: unsupported key arithmetic type %T", arith)
	}
}

// ChooseCheckpoints returns, for each key dimension, the segment's min bound,
// up to NthRootCount(count, dims) evenly-spaced interior checkpoints, and its
// max bound, to bisect by, matching TableSegment.choose_checkpoints.
func (ts *TableSegment) ChooseCheckpoints(count int) ([][]keyspace.KeyValue, error) {
	if !ts.IsBounded() {
		return nil, fmt.Errorf("tablesegment: cannot choose checkpoints on an unbounded segment")
	}
	perDim := keyspace.NthRootCount(count, len(ts.KeyColumns))
	return keyspace.SplitCompoundKeySpace(ts.MinKey, ts.MaxKey, perDim)
}

// SegmentByCheckpoints splits this segment into smaller ones separated by
// checkpoints (one slice of split-points per key dimension, as returned by
// ChooseCheckpoints), matching TableSegment.segment_by_checkpoints.
func (ts *TableSegment) SegmentByCheckpoints(checkpoints [][]keyspace.KeyValue) ([]*TableSegment, error) {
	boxes, err := keyspace.CreateMeshFromPoints(checkpoints)
	if err != nil {
		return nil, err
	}
	out := make([]*TableSegment, len(boxes))
	for i, box := range boxes {
		seg, err := ts.NewKeyBounds(box[0], box[1])
		if err != nil {
			return nil, err
		}
		out[i] = seg
	}
	return out, nil
}

// NewKeyBounds returns a copy of ts restricted to [minKey, maxKey), which
// must lie within ts's own bounds (when ts is itself bounded), matching
// TableSegment.new_key_bounds.
func (ts *TableSegment) NewKeyBounds(minKey, maxKey keyspace.Vector) (*TableSegment, error) {
	if ts.MinKey != nil {
		if ts.MinKey.Compare(minKey) > 0 {
			return nil, fmt.Errorf("tablesegment: new min key %s is below segment's own min %s", minKey, ts.MinKey)
		}
		if ts.MinKey.Compare(maxKey) >= 0 {
			return nil, fmt.Errorf("tablesegment: new max key %s is not above segment's own min %s", maxKey, ts.MinKey)
		}
	}
	if ts.MaxKey != nil {
		if minKey.Compare(ts.MaxKey) >= 0 {
			return nil, fmt.Errorf("tablesegment: new min key %s is not below segment's own max %s", minKey, ts.MaxKey)
		}
		if ts.MaxKey.Compare(maxKey) < 0 {
			return nil, fmt.Errorf("tablesegment: new max key %s is above segment's own max %s", maxKey, ts.MaxKey)
		}
	}
	cp := ts.clone()
	cp.MinKey, cp.MaxKey = minKey, maxKey
	return cp, nil
}

// ApproximateSize estimates the number of distinct key values spanned by a
// bounded segment, matching TableSegment.approximate_size. Panics if the
// segment is unbounded (mirrors the source's RuntimeError).
func (ts *TableSegment) ApproximateSize() int64 {
	if !ts.IsBounded() {
		panic("tablesegment: cannot approximate the size of an unbounded segment")
	}
	total := big.NewInt(1)
	for i, maxK := range ts.MaxKey {
		maxArith, okMax := maxK.(keyspace.Arith)
		minArith, okMin := ts.MinKey[i].(keyspace.Arith)
		if !okMax || !okMin {
			panic(fmt.Sprintf("tablesegment: key column %d is not arithmetic", i))
		}
		diff := new(big.Int).Sub(maxArith.Int(), minArith.Int())
		total.Mul(total, diff)
	}
	if !total.IsInt64() {
		return math.MaxInt64
	}
	return total.Int64()
}
