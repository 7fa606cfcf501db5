package queryast

import (
	"fmt"
	"strconv"
	"strings"
)

// Raw passes a literal SQL fragment through unchanged (the Go analogue of
// the source's Code node), e.g. for GROUP BY ordinal positions.
type Raw string

func (r Raw) Compile(*Compiler) string { return string(r) }

// Lit is a constant scalar value: string, int, int64, float64, bool, or nil
// (NULL). Matches Compiler._compile's literal dispatch.
type Lit struct{ Value any }

func (l Lit) Compile(c *Compiler) string {
	switch v := l.Value.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Column references a named column of a source table. Compile resolves
// which table alias (if any) must qualify it, based on how many distinct
// tables are in scope -- mirroring ast_classes.py's Column.compile.
type Column struct {
	Source Table
	Name   string
}

func (col Column) Compile(c *Compiler) string {
	if len(c.tableContext) > 1 {
		var alias *TableAlias
		for _, t := range c.tableContext {
			if ta, ok := t.(*TableAlias); ok && ta.Source == col.Source {
				if alias != nil {
					panic(fmt.Sprintf("queryast: ambiguous alias for column %q", col.Name))
				}
				alias = ta
			}
		}
		if alias == nil {
			return c.Quote(col.Name)
		}
		return fmt.Sprintf("%s.%s", c.Quote(alias.Name), c.Quote(col.Name))
	}
	return c.Quote(col.Name)
}

// Alias renders `expr AS name`.
type Alias struct {
	Expr Node
	Name string
}

func (a Alias) Compile(c *Compiler) string {
	return fmt.Sprintf("%s AS %s", c.compileChild(a.Expr), c.Quote(a.Name))
}

// BinOp renders a two-operand infix operator expression.
type BinOp struct {
	Op          string
	Left, Right Node
}

func (b BinOp) Compile(c *Compiler) string {
	return fmt.Sprintf("(%s %s %s)", c.compileChild(b.Left), b.Op, c.compileChild(b.Right))
}

// UnaryOp renders a single-operand prefix operator expression.
type UnaryOp struct {
	Op   string
	Expr Node
}

func (u UnaryOp) Compile(c *Compiler) string {
	return fmt.Sprintf("(%s %s)", u.Op, c.compileChild(u.Expr))
}

// Func renders a plain SQL function call.
type Func struct {
	Name string
	Args []Node
}

func (f Func) Compile(c *Compiler) string {
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		parts[i] = c.compileChild(a)
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(parts, ", "))
}

// Count renders COUNT(*) when Expr is nil, COUNT(DISTINCT expr) when
// Distinct is set, or COUNT(expr) otherwise.
type Count struct {
	Expr     Node
	Distinct bool
}

func (cnt Count) Compile(c *Compiler) string {
	if cnt.Expr == nil {
		return "COUNT(*)"
	}
	if cnt.Distinct {
		return fmt.Sprintf("COUNT(DISTINCT %s)", c.compileChild(cnt.Expr))
	}
	return fmt.Sprintf("COUNT(%s)", c.compileChild(cnt.Expr))
}

// In renders `expr IN (list...)`.
type In struct {
	Expr Node
	List []Node
}

func (in In) Compile(c *Compiler) string {
	parts := make([]string, len(in.List))
	for i, e := range in.List {
		parts[i] = c.compileChild(e)
	}
	return fmt.Sprintf("%s IN (%s)", c.compileChild(in.Expr), strings.Join(parts, ", "))
}

// Cast renders a SQL CAST expression.
type Cast struct {
	Expr Node
	Type string
}

func (ca Cast) Compile(c *Compiler) string {
	return fmt.Sprintf("CAST(%s AS %s)", c.compileChild(ca.Expr), ca.Type)
}

// Random renders the dialect's random-number expression.
type Random struct{}

func (Random) Compile(c *Compiler) string { return c.Dialect.Random() }

// IsDistinctFrom renders the dialect's null-safe inequality test.
type IsDistinctFrom struct{ A, B Node }

func (d IsDistinctFrom) Compile(c *Compiler) string {
	return c.Dialect.IsDistinctFrom(c.compileChild(d.A), c.compileChild(d.B))
}

// IsNull renders `expr IS NULL`, used by JoinDiffer to build the
// is_exclusive_a/is_exclusive_b predicates (spec §4.8).
type IsNull struct{ Expr Node }

func (n IsNull) Compile(c *Compiler) string {
	return fmt.Sprintf("%s IS NULL", c.compileChild(n.Expr))
}

// Concat renders the dialect's string concatenation over 2+ expressions.
type Concat struct{ Exprs []Node }

func (cc Concat) Compile(c *Compiler) string {
	parts := make([]string, len(cc.Exprs))
	for i, e := range cc.Exprs {
		parts[i] = c.compileChild(e)
	}
	return c.Dialect.Concat(parts)
}

// WhenThen is one branch of a CaseWhen.
type WhenThen struct{ When, Then Node }

// CaseWhen renders a SQL CASE WHEN ... END expression.
type CaseWhen struct {
	Cases []WhenThen
	Else  Node
}

func (cw CaseWhen) Compile(c *Compiler) string {
	var b strings.Builder
	b.WriteString("CASE")
	for _, wt := range cw.Cases {
		fmt.Fprintf(&b, " WHEN %s THEN %s", c.compileChild(wt.When), c.compileChild(wt.Then))
	}
	if cw.Else != nil {
		fmt.Fprintf(&b, " ELSE %s", c.compileChild(cw.Else))
	}
	b.WriteString(" END")
	return b.String()
}
