package sqlstore

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"quarry"
	"quarry/sql/adapter"
)

// Statement is a compiled SQL statement with its bind arguments in
// placeholder order.
type Statement struct {
	SQL  string
	Args []any
}

// Compiler turns filters and queries into parameterized SQL for one
// adapter's dialect. Filter arguments are always bound, never spliced
// into the statement text.
type Compiler struct {
	adapter adapter.Adapter
}

// NewCompiler creates a compiler for the given adapter.
func NewCompiler(a adapter.Adapter) *Compiler {
	return &Compiler{adapter: a}
}

// likeEscape is the escape character used in compiled LIKE patterns.
// '!' avoids the backslash, whose meaning differs between engines.
const likeEscape = "!"

// stmt accumulates statement text and bind arguments. bind writes the
// adapter's placeholder for the next argument position.
type stmt struct {
	adapter adapter.Adapter
	text    strings.Builder
	args    []any
}

func (s *stmt) raw(text string) {
	s.text.WriteString(text)
}

func (s *stmt) ident(name string) {
	s.text.WriteString(s.adapter.QuoteIdentifier(name))
}

func (s *stmt) bind(arg any) {
	s.args = append(s.args, bindValue(arg))
	s.text.WriteString(s.adapter.Placeholder(len(s.args)))
}

func (s *stmt) statement() Statement {
	return Statement{SQL: s.text.String(), Args: s.args}
}

// bindValue converts argument types database/sql drivers do not accept
// natively. Decimals travel as their exact string form.
func bindValue(arg any) any {
	if d, ok := arg.(*apd.Decimal); ok {
		return d.String()
	}
	return arg
}

// Select compiles base with q's filter, ordering, offset and limit
// appended. base is a complete SELECT without a WHERE clause.
func (c *Compiler) Select(base string, q *quarry.Query) (Statement, error) {
	s := &stmt{adapter: c.adapter}
	s.raw(base)

	var (
		filter        quarry.F
		limit, offset *int
		order         []quarry.Order
	)
	if q != nil {
		filter = q.Filter
		limit = q.Limit
		offset = q.Offset
		order = q.Order
	}

	if err := c.where(s, filter); err != nil {
		return Statement{}, err
	}

	for i, o := range order {
		if i == 0 {
			s.raw(" ORDER BY ")
		} else {
			s.raw(", ")
		}
		s.ident(o.Field)
		if o.Desc {
			s.raw(" DESC")
		}
	}

	if limit != nil {
		s.raw(" LIMIT ")
		s.bind(max(*limit, 0))
	} else if offset != nil {
		// Some engines reject a bare OFFSET.
		if all := c.adapter.LimitAll(); all != "" {
			s.raw(" LIMIT " + all)
		}
	}
	if offset != nil {
		s.raw(" OFFSET ")
		s.bind(max(*offset, 0))
	}

	return s.statement(), nil
}

// SelectFirst compiles base filtered by f, optionally suffixed with the
// adapter's row locking clause. The caller reads the first row.
func (c *Compiler) SelectFirst(base string, f quarry.F, forUpdate bool) (Statement, error) {
	s := &stmt{adapter: c.adapter}
	s.raw(base)
	if err := c.where(s, f); err != nil {
		return Statement{}, err
	}
	if forUpdate {
		if clause := c.adapter.LockingClause(); clause != "" {
			s.raw(" " + clause)
		}
	}
	return s.statement(), nil
}

// Insert compiles an INSERT of row into table. Columns are emitted in
// sorted order so equal rows compile to equal statements.
func (c *Compiler) Insert(table string, row map[string]any) (Statement, error) {
	if len(row) == 0 {
		return Statement{}, quarry.WrapQueryError(quarry.ErrInvalidQuery, "insert", table, "", nil)
	}

	s := &stmt{adapter: c.adapter}
	s.raw("INSERT INTO ")
	s.ident(table)
	s.raw(" (")
	for i, column := range sortedColumns(row) {
		if i > 0 {
			s.raw(", ")
		}
		s.ident(column)
	}
	s.raw(") VALUES (")
	for i, column := range sortedColumns(row) {
		if i > 0 {
			s.raw(", ")
		}
		s.bind(row[column])
	}
	s.raw(")")
	return s.statement(), nil
}

// Update compiles an UPDATE of table setting row's columns on records
// matching f.
func (c *Compiler) Update(table string, row map[string]any, f quarry.F) (Statement, error) {
	if len(row) == 0 {
		return Statement{}, quarry.WrapQueryError(quarry.ErrInvalidQuery, "update", table, "", nil)
	}

	s := &stmt{adapter: c.adapter}
	s.raw("UPDATE ")
	s.ident(table)
	s.raw(" SET ")
	for i, column := range sortedColumns(row) {
		if i > 0 {
			s.raw(", ")
		}
		s.ident(column)
		s.raw(" = ")
		s.bind(row[column])
	}
	if err := c.where(s, f); err != nil {
		return Statement{}, err
	}
	return s.statement(), nil
}

// Delete compiles a DELETE from table of records matching f.
func (c *Compiler) Delete(table string, f quarry.F) (Statement, error) {
	s := &stmt{adapter: c.adapter}
	s.raw("DELETE FROM ")
	s.ident(table)
	if err := c.where(s, f); err != nil {
		return Statement{}, err
	}
	return s.statement(), nil
}

// Exists compiles an existence probe around base filtered by f.
func (c *Compiler) Exists(base string, f quarry.F) (Statement, error) {
	s := &stmt{adapter: c.adapter}
	s.raw("SELECT EXISTS (")
	s.raw(base)
	if err := c.where(s, f); err != nil {
		return Statement{}, err
	}
	s.raw(")")
	return s.statement(), nil
}

// Count compiles a row count around base filtered by f. A nil f counts
// every record.
func (c *Compiler) Count(base string, f quarry.F) (Statement, error) {
	s := &stmt{adapter: c.adapter}
	s.raw("SELECT COUNT(1) FROM (")
	s.raw(base)
	if err := c.where(s, f); err != nil {
		return Statement{}, err
	}
	s.raw(") AS q")
	return s.statement(), nil
}

// where appends " WHERE <condition>" for f. A nil filter appends nothing.
func (c *Compiler) where(s *stmt, f quarry.F) error {
	if f == nil {
		return nil
	}
	s.raw(" WHERE ")
	return c.condition(s, f)
}

func (c *Compiler) condition(s *stmt, f quarry.F) error {
	switch v := f.(type) {
	case quarry.And:
		return c.junction(s, []quarry.F(v), " AND ", "TRUE")
	case quarry.Or:
		return c.junction(s, []quarry.F(v), " OR ", "FALSE")
	case quarry.Not:
		if v.Child == nil {
			s.raw("FALSE")
			return nil
		}
		s.raw("NOT (")
		if err := c.condition(s, v.Child); err != nil {
			return err
		}
		s.raw(")")
		return nil
	case quarry.IsNone:
		s.ident(v.Field)
		s.raw(" IS NULL")
		return nil
	case quarry.Cond:
		return c.operator(s, v.Field, v.Op)
	default:
		return quarry.WrapQueryError(
			fmt.Errorf("unsupported filter node %T", f),
			"compile", "", "", nil)
	}
}

// junction compiles an AND/OR list. Empty lists compile to the
// junction's identity so boolean algebra holds in SQL too.
func (c *Compiler) junction(s *stmt, children []quarry.F, sep, identity string) error {
	if len(children) == 0 {
		s.raw(identity)
		return nil
	}
	s.raw("(")
	for i, child := range children {
		if i > 0 {
			s.raw(sep)
		}
		if err := c.condition(s, child); err != nil {
			return err
		}
	}
	s.raw(")")
	return nil
}

func (c *Compiler) operator(s *stmt, field string, op quarry.Op) error {
	switch o := op.(type) {
	case quarry.Compare[string]:
		compileCompare(s, field, o.Cmp, o.Arg)
	case quarry.Compare[int64]:
		compileCompare(s, field, o.Cmp, o.Arg)
	case quarry.Compare[float64]:
		compileCompare(s, field, o.Cmp, o.Arg)
	case quarry.Compare[bool]:
		compileCompare(s, field, o.Cmp, o.Arg)
	case quarry.Compare[time.Time]:
		compileCompare(s, field, o.Cmp, o.Arg)
	case quarry.Compare[uuid.UUID]:
		compileCompare(s, field, o.Cmp, o.Arg)
	case quarry.Compare[*apd.Decimal]:
		compileCompare(s, field, o.Cmp, o.Arg)
	case quarry.Between:
		s.ident(field)
		s.raw(" BETWEEN ")
		s.bind(o.Lo)
		s.raw(" AND ")
		s.bind(o.Hi)
	case quarry.In[string]:
		compileIn(s, field, o.Args)
	case quarry.In[int64]:
		compileIn(s, field, o.Args)
	case quarry.In[uuid.UUID]:
		compileIn(s, field, o.Args)
	case quarry.Pattern:
		s.ident(field)
		s.raw(" LIKE ")
		s.bind(likePattern(o))
		s.raw(" ESCAPE '" + likeEscape + "'")
	default:
		return quarry.WrapQueryError(
			fmt.Errorf("unsupported operator %T on field %s", op, field),
			"compile", "", "", nil)
	}
	return nil
}

func compileCompare(s *stmt, field string, cmp quarry.Cmp, arg any) {
	s.ident(field)
	s.raw(" " + cmpToken(cmp) + " ")
	s.bind(arg)
}

// compileIn compiles set membership. An empty set matches nothing and
// compiles to FALSE because IN () is not valid SQL.
func compileIn[V quarry.Member](s *stmt, field string, args []V) {
	if len(args) == 0 {
		s.raw("FALSE")
		return
	}
	s.ident(field)
	s.raw(" IN (")
	for i, arg := range args {
		if i > 0 {
			s.raw(", ")
		}
		s.bind(arg)
	}
	s.raw(")")
}

func cmpToken(cmp quarry.Cmp) string {
	switch cmp {
	case quarry.CmpEq:
		return "="
	case quarry.CmpNe:
		return "!="
	case quarry.CmpLt:
		return "<"
	case quarry.CmpGt:
		return ">"
	case quarry.CmpLte:
		return "<="
	case quarry.CmpGte:
		return ">="
	default:
		panic("sqlstore: unknown comparison")
	}
}

// likePattern builds the bound LIKE pattern for a substring match. The
// argument is escaped so it matches literally.
func likePattern(p quarry.Pattern) string {
	arg := escapeLike(p.Arg)
	switch p.Match {
	case quarry.MatchPrefix:
		return arg + "%"
	case quarry.MatchSuffix:
		return "%" + arg
	default:
		return "%" + arg + "%"
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(
		likeEscape, likeEscape+likeEscape,
		"%", likeEscape+"%",
		"_", likeEscape+"_",
	)
	return r.Replace(s)
}

func sortedColumns(row map[string]any) []string {
	columns := make([]string, 0, len(row))
	for column := range row {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}
