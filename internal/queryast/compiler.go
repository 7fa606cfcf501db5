// Package queryast implements the dialect-agnostic SQL builder used to
// construct portable comparison queries (spec §4.2): an immutable tree of
// Node values, compiled against a chosen Dialect by a Compiler that tracks
// CTE registration, alias generation, and the "inside SELECT"/"inside JOIN"
// flags needed to parenthesize and alias nested subqueries correctly.
//
// Grounded on original_source/data_diff/sqeleton/queries/ast_classes.py and
// compiler.py; expressed as a closed Node interface rather than a class
// hierarchy, matching the tagged-union style used throughout this module
// (see internal/typemodel).
package queryast

import (
	"fmt"
	"strings"

	"github.com/skeema/rowdiff/internal/dialect"
)

// Node is any compilable fragment of the query tree.
type Node interface {
	Compile(c *Compiler) string
}

// Table is implemented by every Node that can appear in a FROM clause and
// be referenced as a source of columns.
type Table interface {
	Node
	isTable()
}

// compilerState is shared (by pointer) across every Compiler value derived
// from one root Compile call, so that alias counters and CTE registration
// are visible regardless of how many immutable Compiler copies are made
// while walking the tree -- the Go analogue of the source's mutable
// Compiler dataclass fields threaded through dataclasses.replace calls.
type compilerState struct {
	counter  int
	cteNames []string
	cteSQL   map[string]string
}

// Compiler threads the current dialect, table-aliasing context, and
// "inside SELECT"/"inside JOIN" flags through a Node tree walk (spec
// §4.2). Compiler values are cheap to copy; use With* to derive a scoped
// copy before descending into a child node.
type Compiler struct {
	Dialect      dialect.Dialect
	tableContext []Table
	inSelect     bool
	inJoin       bool
	isRoot       bool
	state        *compilerState
}

// NewCompiler returns the root Compiler for compiling one query tree
// against d.
func NewCompiler(d dialect.Dialect) *Compiler {
	return &Compiler{
		Dialect: d,
		isRoot:  true,
		state:   &compilerState{cteSQL: make(map[string]string)},
	}
}

// Compile renders root to SQL text, wrapping the result in a WITH clause
// if any Cte nodes registered themselves during the walk.
func Compile(d dialect.Dialect, root Node) string {
	c := NewCompiler(d)
	body := c.compileChild(root)
	if len(c.state.cteNames) == 0 {
		return body
	}
	parts := make([]string, len(c.state.cteNames))
	for i, name := range c.state.cteNames {
		parts[i] = fmt.Sprintf("\n  %s AS (%s)", name, c.state.cteSQL[name])
	}
	return fmt.Sprintf("WITH %s\n%s", strings.Join(parts, ", "), body)
}

// compileChild descends into a child node with isRoot cleared, matching
// the source's `elem.compile(self.replace(root=False))`.
func (c *Compiler) compileChild(n Node) string {
	child := *c
	child.isRoot = false
	return n.Compile(&child)
}

func (c *Compiler) withTableContext(tables ...Table) *Compiler {
	n := *c
	n.tableContext = append(append([]Table{}, c.tableContext...), tables...)
	return &n
}

func (c *Compiler) withInSelect(v bool) *Compiler {
	n := *c
	n.inSelect = v
	return &n
}

func (c *Compiler) withInJoin(v bool) *Compiler {
	n := *c
	n.inJoin = v
	return &n
}

// NewUniqueName returns a fresh identifier, e.g. for anonymous subquery
// aliases.
func (c *Compiler) NewUniqueName(prefix string) string {
	c.state.counter++
	return fmt.Sprintf("%s%d", prefix, c.state.counter)
}

// Quote quotes an identifier using the compiler's dialect.
func (c *Compiler) Quote(s string) string { return c.Dialect.Quote(s) }

// registerCte records a compiled CTE body under name, returning name
// unchanged, for Cte.Compile to reference in the FROM clause.
func (c *Compiler) registerCte(name, sql string) string {
	if _, exists := c.state.cteSQL[name]; !exists {
		c.state.cteNames = append(c.state.cteNames, name)
	}
	c.state.cteSQL[name] = sql
	return name
}

// wrapNested parenthesizes select, aliasing it when nested inside another
// SELECT's FROM clause, or leaving it bare (parenthesized only) inside a
// JOIN -- the repeated pattern at the end of Select/Join/GroupBy.compile in
// the source.
func wrapNested(parent *Compiler, c *Compiler, sql string) string {
	switch {
	case parent.inSelect:
		return fmt.Sprintf("(%s) %s", sql, c.NewUniqueName("tmp"))
	case parent.inJoin:
		return fmt.Sprintf("(%s)", sql)
	default:
		return sql
	}
}
