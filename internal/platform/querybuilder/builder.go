// Package querybuilder builds parameterized Postgres statements. It covers
// the small SELECT/INSERT/UPDATE surface the repositories need; anything
// fancier belongs in hand-written SQL.
package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// sqlWriter accumulates SQL text and the positional args that go with it.
type sqlWriter struct {
	sb   strings.Builder
	args []any
}

func (w *sqlWriter) str(s string) { w.sb.WriteString(s) }

// arg registers a value and returns its $n placeholder.
func (w *sqlWriter) arg(v any) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

// expr copies raw SQL, swapping each ? for the next positional placeholder.
func (w *sqlWriter) expr(sql string, exprArgs []any) {
	if len(exprArgs) == 0 {
		w.str(sql)
		return
	}
	next := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] == '?' && next < len(exprArgs) {
			w.str(w.arg(exprArgs[next]))
			next++
			continue
		}
		w.sb.WriteByte(sql[i])
	}
}

func (w *sqlWriter) where(conds []Condition) {
	for i, c := range conds {
		if i == 0 {
			w.str(" WHERE ")
		} else {
			w.str(" AND ")
		}
		c.render(w)
	}
}

type Condition interface {
	render(w *sqlWriter)
}

type eqCond struct {
	column string
	value  any
}

func Eq(column string, value any) Condition {
	return eqCond{column: column, value: value}
}

func (c eqCond) render(w *sqlWriter) {
	w.str(c.column)
	w.str(" = ")
	w.str(w.arg(c.value))
}

type inCond struct {
	column string
	values []any
}

func In(column string, values []any) Condition {
	return inCond{column: column, values: values}
}

func (c inCond) render(w *sqlWriter) {
	// empty IN matches nothing, by construction
	if len(c.values) == 0 {
		w.str("1=0")
		return
	}
	w.str(c.column)
	w.str(" IN (")
	for i, v := range c.values {
		if i > 0 {
			w.str(", ")
		}
		w.str(w.arg(v))
	}
	w.str(")")
}

type exprCond struct {
	sql  string
	args []any
}

// Expr embeds raw SQL with ? placeholders, e.g. Expr("kickoff_at <= ?", t).
func Expr(sql string, args ...any) Condition {
	return exprCond{sql: sql, args: args}
}

func (c exprCond) render(w *sqlWriter) {
	w.expr(c.sql, c.args)
}

type SelectBuilder struct {
	columns []string
	table   string
	conds   []Condition
	orderBy []string
	limit   int
	suffix  string
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conds ...Condition) *SelectBuilder {
	b.conds = append(b.conds, conds...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

// Suffix appends raw SQL after every other clause, e.g. row locking hints.
func (b *SelectBuilder) Suffix(sql string) *SelectBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}

	var w sqlWriter
	w.str("SELECT ")
	w.str(strings.Join(b.columns, ", "))
	w.str(" FROM ")
	w.str(b.table)
	w.where(b.conds)
	if len(b.orderBy) > 0 {
		w.str(" ORDER BY ")
		w.str(strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		w.str(" LIMIT ")
		w.str(strconv.Itoa(b.limit))
	}
	if b.suffix != "" {
		w.str(" ")
		w.str(b.suffix)
	}
	return w.sb.String(), w.args, nil
}

type InsertBuilder struct {
	table   string
	columns []string
	rows    [][]any
	suffix  string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, append([]any(nil), values...))
	return b
}

// Suffix appends raw SQL such as ON CONFLICT clauses.
func (b *InsertBuilder) Suffix(sql string) *InsertBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("insert table is required")
	}
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("insert columns are required")
	}
	if len(b.rows) == 0 {
		return "", nil, fmt.Errorf("insert values are required")
	}

	var w sqlWriter
	w.str("INSERT INTO ")
	w.str(b.table)
	w.str(" (")
	w.str(strings.Join(b.columns, ", "))
	w.str(") VALUES ")
	for i, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert row %d has %d values, expected %d", i, len(row), len(b.columns))
		}
		if i > 0 {
			w.str(", ")
		}
		w.str("(")
		for j, v := range row {
			if j > 0 {
				w.str(", ")
			}
			w.str(w.arg(v))
		}
		w.str(")")
	}
	if b.suffix != "" {
		w.str(" ")
		w.str(b.suffix)
	}
	return w.sb.String(), w.args, nil
}

type UpdateBuilder struct {
	table  string
	cols   []string
	vals   []any
	conds  []Condition
	suffix string
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.cols = append(b.cols, column)
	b.vals = append(b.vals, value)
	return b
}

func (b *UpdateBuilder) Where(conds ...Condition) *UpdateBuilder {
	b.conds = append(b.conds, conds...)
	return b
}

func (b *UpdateBuilder) Suffix(sql string) *UpdateBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("update table is required")
	}
	if len(b.cols) == 0 {
		return "", nil, fmt.Errorf("update sets are required")
	}

	var w sqlWriter
	w.str("UPDATE ")
	w.str(b.table)
	w.str(" SET ")
	for i, col := range b.cols {
		if i > 0 {
			w.str(", ")
		}
		w.str(col)
		w.str(" = ")
		w.str(w.arg(b.vals[i]))
	}
	w.where(b.conds)
	if b.suffix != "" {
		w.str(" ")
		w.str(b.suffix)
	}
	return w.sb.String(), w.args, nil
}
