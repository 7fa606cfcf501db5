package queryast

import (
	"fmt"
	"strconv"
	"strings"
)

// Select renders a single SELECT statement: projected Columns over Table,
// with optional filtering/grouping/ordering/limiting clauses (spec §4.2).
// A nil Table with no columns renders "SELECT *" with no FROM clause --
// only meaningful against dialects exposing a placeholder table, which
// this module does not use; every TableSegment-derived Select supplies a
// Table.
type Select struct {
	Table    Table
	Columns  []Node
	Where    []Node
	GroupBy  []Node
	Having   []Node
	OrderBy  []Node
	Limit    *int
	Distinct bool
}

func (TableOp) isTable()  {}
func (GroupBy) isTable()  {}
func (Select) isTable()   {}
func (Join) isTable()     {}

func (s Select) Compile(parent *Compiler) string {
	c := parent.withInSelect(true)

	columns := "*"
	if len(s.Columns) > 0 {
		parts := make([]string, len(s.Columns))
		for i, col := range s.Columns {
			parts[i] = c.compileChild(col)
		}
		columns = strings.Join(parts, ", ")
	}
	distinct := ""
	if s.Distinct {
		distinct = "DISTINCT "
	}
	out := fmt.Sprintf("SELECT %s%s", distinct, columns)

	if s.Table != nil {
		out += " FROM " + c.compileChild(s.Table)
	}
	if len(s.Where) > 0 {
		out += " WHERE " + joinCompiled(c, s.Where, " AND ")
	}
	if len(s.GroupBy) > 0 {
		out += " GROUP BY " + joinCompiled(c, s.GroupBy, ", ")
	}
	if len(s.Having) > 0 {
		out += " HAVING " + joinCompiled(c, s.Having, " AND ")
	}
	if len(s.OrderBy) > 0 {
		out += " ORDER BY " + joinCompiled(c, s.OrderBy, ", ")
	}
	if s.Limit != nil {
		clause, err := c.Dialect.OffsetLimit(nil, s.Limit)
		if err != nil {
			panic(fmt.Sprintf("queryast: %s", err))
		}
		if clause != "" {
			out += " " + clause
		}
	}

	return wrapNested(parent, c, out)
}

func joinCompiled(c *Compiler, nodes []Node, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = c.compileChild(n)
	}
	return strings.Join(parts, sep)
}

// Join renders an N-way JOIN over Tables (auto-aliasing any that aren't
// already a TableAlias), combined with Op (e.g. "FULL OUTER", "LEFT") and
// filtered by On (spec §4.8 JoinDiffer's comparison query).
type Join struct {
	Tables  []Table
	Op      string
	On      []Node
	Columns []Node
}

func (j Join) Compile(parent *Compiler) string {
	aliased := make([]Table, len(j.Tables))
	for i, t := range j.Tables {
		if ta, ok := t.(*TableAlias); ok {
			aliased[i] = ta
			continue
		}
		aliased[i] = &TableAlias{Source: t, Name: parent.NewUniqueName("tmp")}
	}

	c := parent.withTableContext(aliased...).withInJoin(true)
	cSelect := *c
	cSelect.inSelect = false

	op := " JOIN "
	if j.Op != "" {
		op = " " + j.Op + " JOIN "
	}
	parts := make([]string, len(aliased))
	for i, t := range aliased {
		parts[i] = cSelect.compileChild(t)
	}
	joined := strings.Join(parts, op)

	if len(j.On) > 0 {
		joined += " ON " + joinCompiled(&cSelect, j.On, " AND ")
	}

	columns := "*"
	if len(j.Columns) > 0 {
		columns = joinCompiled(&cSelect, j.Columns, ", ")
	}
	out := fmt.Sprintf("SELECT %s FROM %s", columns, joined)

	return wrapNested(parent, c, out)
}

// GroupBy renders a SELECT ... GROUP BY over Table, projecting Keys
// (referenced positionally in the GROUP BY clause, matching the source's
// ordinal-position style) followed by aggregate Values.
type GroupBy struct {
	Table  Table
	Keys   []Node
	Values []Node
	Having []Node
}

func (g GroupBy) Compile(parent *Compiler) string {
	c := parent.withInSelect(true)

	keyPositions := make([]string, len(g.Keys))
	for i := range g.Keys {
		keyPositions[i] = strconv.Itoa(i + 1)
	}
	columns := append(append([]Node{}, g.Keys...), g.Values...)
	columnsStr := joinCompiled(c, columns, ", ")

	having := ""
	if len(g.Having) > 0 {
		having = " HAVING " + joinCompiled(c, g.Having, " AND ")
	}
	out := fmt.Sprintf("SELECT %s FROM %s GROUP BY %s%s",
		columnsStr, c.compileChild(g.Table), strings.Join(keyPositions, ", "), having)

	return wrapNested(parent, c, out)
}

// TableOp renders a set operation (UNION, UNION ALL, EXCEPT, INTERSECT)
// between two tables -- the vehicle for MySQL's FULL OUTER JOIN emulation
// via a UNION of a LEFT JOIN and a RIGHT JOIN (spec §9 design note).
type TableOp struct {
	Op          string
	Left, Right Table
}

func (t TableOp) Compile(parent *Compiler) string {
	c := parent.withInSelect(false).withInJoin(false)
	out := fmt.Sprintf("%s %s %s", c.compileChild(t.Left), t.Op, c.compileChild(t.Right))
	return wrapNested(parent, c, out)
}
