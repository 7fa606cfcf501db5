// Package diffengine implements the two comparison algorithms built on top
// of TableSegment and the threaded scheduler: HashDiffer (recursive
// bisection across possibly different databases, spec §4.7) and JoinDiffer
// (single-database comparison via an OUTER JOIN, spec §4.8).
//
// Grounded on original_source/data_diff/diff_tables.py (the shared
// TableDiffer base this package's common helpers generalize),
// hashdiff_tables.py, and joindiff_tables.py.
package diffengine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/skeema/rowdiff/internal/direrr"
	"github.com/skeema/rowdiff/internal/tablesegment"
	"github.com/skeema/rowdiff/internal/typemodel"
)

// DiffRow is one emitted difference: Sign is "-" for a row found only on
// the A side, "+" for a row found only on the B side. Values is positionally
// aligned with relevant_columns (key columns, then the update column if
// any, then extra columns), as normalized strings (spec §6 "Diff tuple wire
// shape").
type DiffRow struct {
	Sign   string
	Values []string
}

// validateBisectionParams checks the invariant shared by both differs'
// bisection_factor/bisection_threshold parameters (spec §4.7): factor >= 2
// and factor < threshold.
func validateBisectionParams(factor int, threshold int64) error {
	if factor < 2 {
		return &direrr.ConfigurationError{Reason: fmt.Sprintf("bisection_factor must be >= 2, got %d", factor)}
	}
	if int64(factor) >= threshold {
		return &direrr.ConfigurationError{Reason: fmt.Sprintf("bisection_factor (%d) must be less than bisection_threshold (%d)", factor, threshold)}
	}
	return nil
}

// validateAndAdjustColumns walks both segments' relevant columns pairwise
// (by position, matching TableDiffer._validate_and_adjust_columns), failing
// if either side is missing a column, reducing temporal/numeric columns to
// their mutual lowest precision in place, and requiring that UUID-class and
// string-class columns agree in kind. A final pass warns (but does not
// fail) on any relevant column of an Unknown/unsupported type.
func validateAndAdjustColumns(a, b *tablesegment.TableSegment, logger logrus.FieldLogger) error {
	cols1, cols2 := a.RelevantColumns(), b.RelevantColumns()
	if len(cols1) != len(cols2) {
		return &direrr.ConfigurationError{Reason: fmt.Sprintf(
			"relevant column count mismatch: %d vs %d", len(cols1), len(cols2))}
	}

	for i := range cols1 {
		c1, c2 := cols1[i], cols2[i]
		t1, ok := a.Schema().Get(c1)
		if !ok {
			return &direrr.SchemaError{TablePath: a.TablePath, Column: c1, Reason: "column not found in schema"}
		}
		t2, ok := b.Schema().Get(c2)
		if !ok {
			return &direrr.SchemaError{TablePath: b.TablePath, Column: c2, Reason: "column not found in schema"}
		}

		switch v1 := t1.(type) {
		case typemodel.TemporalType:
			v2, ok := t2.(typemodel.TemporalType)
			if !ok {
				return &direrr.TypeCompatibilityError{Column: c1, TypeA: t1, TypeB: t2}
			}
			lowest := v1.TemporalPrecision()
			if v2.TemporalPrecision() < lowest {
				lowest = v2.TemporalPrecision()
			}
			if v1.TemporalPrecision() != v2.TemporalPrecision() {
				logger.Warnf("using reduced precision %d for column %q. Types=%s, %s", lowest, c1, t1, t2)
			}
			a.Schema().Set(c1, v1.WithPrecision(lowest, v1.RoundsOnPrecisionLoss()))
			b.Schema().Set(c2, v2.WithPrecision(lowest, v2.RoundsOnPrecisionLoss()))

		case typemodel.NumericType:
			v2, ok := t2.(typemodel.NumericType)
			if !ok {
				return &direrr.TypeCompatibilityError{Column: c1, TypeA: t1, TypeB: t2}
			}
			lowest := v1.NumericPrecision()
			if v2.NumericPrecision() < lowest {
				lowest = v2.NumericPrecision()
			}
			if v1.NumericPrecision() != v2.NumericPrecision() {
				logger.Warnf("using reduced precision %d for column %q. Types=%s, %s", lowest, c1, t1, t2)
			}
			a.Schema().Set(c1, v1.WithNumericPrecision(lowest))
			b.Schema().Set(c2, v2.WithNumericPrecision(lowest))

		case typemodel.StringUUID, typemodel.NativeUUID:
			if !isUUIDType(t2) {
				return &direrr.TypeCompatibilityError{Column: c1, TypeA: t1, TypeB: t2}
			}

		case typemodel.Text, typemodel.StringAlphanum:
			if !isStringType(t2) {
				return &direrr.TypeCompatibilityError{Column: c1, TypeA: t1, TypeB: t2}
			}
		}
	}

	for _, ts := range []*tablesegment.TableSegment{a, b} {
		for _, c := range ts.RelevantColumns() {
			ct, _ := ts.Schema().Get(c)
			if _, ok := ct.(typemodel.Unknown); ok {
				logger.Warnf("column %q of table %v has type %s with no compatibility handling; "+
					"if encoding/formatting differs between databases, this may cause false positives", c, ts.TablePath, ct)
			}
		}
	}
	return nil
}

func isUUIDType(ct typemodel.ColumnType) bool {
	switch ct.(type) {
	case typemodel.StringUUID, typemodel.NativeUUID:
		return true
	default:
		return false
	}
}

func isStringType(ct typemodel.ColumnType) bool {
	switch ct.(type) {
	case typemodel.Text, typemodel.StringUUID, typemodel.StringAlphanum:
		return true
	default:
		return false
	}
}

// keyClass classifies a key column's type into the broad families that
// must agree across two segments being diffed (spec §4.7 step 2:
// "Integer-like with Integer-like, UUID with UUID, Alphanumeric with
// Alphanumeric"). Returns "" for a type that cannot be used as a key.
func keyClass(ct typemodel.ColumnType) string {
	if !ct.IsKey() {
		return ""
	}
	switch ct.(type) {
	case typemodel.Integer:
		return "integer"
	case typemodel.StringUUID, typemodel.NativeUUID:
		return "uuid"
	case typemodel.StringAlphanum:
		return "alphanum"
	default:
		return ""
	}
}

// checkKeyColumnTypesAgree validates that every key column of a and b is
// usable as a key and that corresponding columns (by position) agree on
// key class, matching diff_tables.py's IKey/python_type assertions.
func checkKeyColumnTypesAgree(a, b *tablesegment.TableSegment) error {
	if len(a.KeyColumns) != len(b.KeyColumns) {
		return &direrr.ConfigurationError{Reason: "key column count mismatch between the two segments"}
	}
	for i, k1 := range a.KeyColumns {
		k2 := b.KeyColumns[i]
		t1, _ := a.Schema().Get(k1)
		t2, _ := b.Schema().Get(k2)
		c1, c2 := keyClass(t1), keyClass(t2)
		if c1 == "" {
			return &direrr.SchemaError{TablePath: a.TablePath, Column: k1, Reason: fmt.Sprintf("type %s cannot be used as a key", t1)}
		}
		if c2 == "" {
			return &direrr.SchemaError{TablePath: b.TablePath, Column: k2, Reason: fmt.Sprintf("type %s cannot be used as a key", t2)}
		}
		if c1 != c2 {
			return &direrr.TypeCompatibilityError{Column: k1, TypeA: t1, TypeB: t2}
		}
	}
	return nil
}
