package queryast

import (
	"fmt"

	"github.com/skeema/rowdiff/internal/typemodel"
)

// NormalizeAsString renders Expr's dialect-neutral normalized-string form
// for the given column type, via Dialect.NormalizeValueByType (spec §3
// "Cross-dialect value normalization contract"). Panics if the dialect
// cannot normalize this type (e.g. MySQL JSON), since that indicates a
// caller tried to diff or checksum an unsupported column without first
// checking for it -- the same contract ast_classes.py's NormalizeAsString
// implicitly relies on normalize_value_by_type never raising for types the
// caller has already chosen to include.
type NormalizeAsString struct {
	Expr Node
	Type typemodel.ColumnType
}

func (n NormalizeAsString) Compile(c *Compiler) string {
	out, err := c.Dialect.NormalizeValueByType(c.compileChild(n.Expr), n.Type)
	if err != nil {
		panic(fmt.Sprintf("queryast: cannot normalize column type %s: %s", n.Type, err))
	}
	return out
}

// Checksum renders the dialect-neutral row checksum contribution for a
// tuple of already-normalized-string expressions: each is NULL-coalesced
// to the literal "<null>", joined with "|", and reduced to a signed 60-bit
// integer via MD5; SUM() over all rows is the segment checksum (spec §4.2,
// §8 "Dialect-neutral checksum formula"). Both sides of a diff must
// compile this identically for the same normalized byte string.
type Checksum struct{ Exprs []Node }

func (ch Checksum) Compile(c *Compiler) string {
	coalesced := make([]string, len(ch.Exprs))
	for i, e := range ch.Exprs {
		coalesced[i] = fmt.Sprintf("coalesce(%s, '<null>')", c.compileChild(e))
	}
	concatExprs := make([]Node, 0, len(coalesced)*2-1)
	for i, s := range coalesced {
		if i > 0 {
			concatExprs = append(concatExprs, Lit{Value: "|"})
		}
		concatExprs = append(concatExprs, Raw(s))
	}
	var concatenated string
	if len(concatExprs) == 1 {
		concatenated = concatExprs[0].Compile(c)
	} else {
		concatenated = Concat{Exprs: concatExprs}.Compile(c)
	}
	return fmt.Sprintf("sum(%s)", c.Dialect.MD5AsInt(concatenated))
}
