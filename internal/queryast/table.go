package queryast

import "strings"

// TablePath is a leaf table reference by dotted path (schema.table, or
// just table), the root of every Select/Join tree (spec §4.2).
type TablePath struct{ Path []string }

func (TablePath) isTable() {}

func (t TablePath) Compile(c *Compiler) string {
	quoted := make([]string, len(t.Path))
	for i, p := range t.Path {
		quoted[i] = c.Quote(p)
	}
	return strings.Join(quoted, ".")
}

// TableAlias names a source table expression so it can be referenced
// unambiguously from a Join or multi-table Select (spec §4.2).
type TableAlias struct {
	Source Table
	Name   string
}

func (TableAlias) isTable() {}

func (a TableAlias) Compile(c *Compiler) string {
	return c.compileChild(a.Source) + " " + c.Quote(a.Name)
}

// Cte registers Source as a named common table expression the first time
// it's compiled, and thereafter simply references it by name, for a derived
// table that must be scanned more than once in one query. No differ in this
// module builds Cte nodes.
type Cte struct {
	Source Table
	Name   string
	Params []string
}

func (Cte) isTable() {}

func (cte Cte) Compile(c *Compiler) string {
	inner := *c
	inner.tableContext = nil
	inner.inSelect = false
	compiled := cte.Source.Compile(&inner)

	name := cte.Name
	if name == "" {
		name = c.NewUniqueName("cte")
	}
	nameWithParams := name
	if len(cte.Params) > 0 {
		nameWithParams = name + "(" + strings.Join(cte.Params, ", ") + ")"
	}
	c.registerCte(nameWithParams, compiled)
	return name
}
