package queryast

import "fmt"

// CreateTable renders `CREATE TABLE [IF NOT EXISTS] path AS source`, used
// by JoinDiffer to create its MaterializeToTable output table (spec §4.8). Go-idiomatic
// simplification: unlike the source, this module only ever creates scratch
// tables from a SELECT, never from an explicit column-type schema, so
// there is no literal-schema form to carry a Dialect.TypeRepr method for.
type CreateTable struct {
	Path        *TablePath
	Source      Node
	IfNotExists bool
}

func (ct CreateTable) Compile(c *Compiler) string {
	ne := ""
	if ct.IfNotExists {
		ne = "IF NOT EXISTS "
	}
	return fmt.Sprintf("CREATE TABLE %s%s AS %s", ne, c.compileChild(ct.Path), c.compileChild(ct.Source))
}

// DropTable renders `DROP TABLE [IF EXISTS] path`.
type DropTable struct {
	Path     *TablePath
	IfExists bool
}

func (dt DropTable) Compile(c *Compiler) string {
	ie := ""
	if dt.IfExists {
		ie = "IF EXISTS "
	}
	return fmt.Sprintf("DROP TABLE %s%s", ie, c.compileChild(dt.Path))
}

// TruncateTable renders `TRUNCATE TABLE path`.
type TruncateTable struct{ Path *TablePath }

func (tt TruncateTable) Compile(c *Compiler) string {
	return fmt.Sprintf("TRUNCATE TABLE %s", c.compileChild(tt.Path))
}

// InsertToTable renders `INSERT INTO path(columns...) expr`, where expr is
// typically a Select.
type InsertToTable struct {
	Path    *TablePath
	Source  Node
	Columns []string
}

func (ins InsertToTable) Compile(c *Compiler) string {
	columns := ""
	if len(ins.Columns) > 0 {
		quoted := make([]string, len(ins.Columns))
		for i, col := range ins.Columns {
			quoted[i] = c.Quote(col)
		}
		columns = "(" + joinStrings(quoted, ", ") + ")"
	}
	return fmt.Sprintf("INSERT INTO %s%s %s", c.compileChild(ins.Path), columns, c.compileChild(ins.Source))
}

func joinStrings(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

// Commit renders `COMMIT`, or compiles to the empty string when the
// connection is in autocommit mode (spec §6 "Database" autocommit
// handling), matching the source's SKIP sentinel.
type Commit struct{ Autocommit bool }

func (cm Commit) Compile(*Compiler) string {
	if cm.Autocommit {
		return ""
	}
	return "COMMIT"
}
