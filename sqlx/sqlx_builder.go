package sqlx

import (
	"fmt"
	"strings"

	"github.com/kcmvp/arx/entity"
	"github.com/samber/lo"
)

// -----------------------------
// Internal WHERE helpers
// -----------------------------

type whereFunc[E entity.Entity] func() (string, []any)

func (f whereFunc[E]) Build() (string, []any) { return f() }

func (f whereFunc[E]) bound(*E) {}

func join[E entity.Entity](sep string, wheres ...Where[E]) Where[E] {
	f := func() (string, []any) {
		clauses := make([]string, 0, len(wheres))
		var allArgs []any
		for _, w := range wheres {
			if w == nil {
				continue
			}
			clause, args := w.Build()
			if clause == "" {
				continue
			}
			clauses = append(clauses, clause)
			allArgs = append(allArgs, args...)
		}
		if len(clauses) == 0 {
			return "", nil
		}
		return fmt.Sprintf("(%s)", strings.Join(clauses, sep)), allArgs
	}
	return whereFunc[E](f)
}

func and[E entity.Entity](wheres ...Where[E]) Where[E] {
	return join(" AND ", wheres...)
}

func or[E entity.Entity](wheres ...Where[E]) Where[E] {
	return join(" OR ", wheres...)
}

// makePlaceholders returns a comma-separated list of '?' placeholders.
func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func op[E entity.Entity](col entity.Column[E], operator string, value any) Where[E] {
	f := func() (string, []any) {
		return fmt.Sprintf("%s %s ?", col.Name(), operator), []any{value}
	}
	return whereFunc[E](f)
}

// inWhere renders an always-false condition for an empty value list.
func inWhere[E entity.Entity](col entity.Column[E], values ...any) Where[E] {
	if len(values) == 0 {
		return whereFunc[E](func() (string, []any) { return "1=0", nil })
	}
	clause := fmt.Sprintf("%s IN (%s)", col.Name(), makePlaceholders(len(values)))
	return whereFunc[E](func() (string, []any) { return clause, values })
}

// conditionsWhere resolves column names against the mapping. Unknown columns and an empty
// list are rejected.
func conditionsWhere[E entity.Entity](m *entity.Mapping[E], conds []Condition) (Where[E], error) {
	if len(conds) == 0 {
		return nil, fmt.Errorf("%w: at least one condition is required", ErrInvalidState)
	}
	wheres := make([]Where[E], 0, len(conds))
	for _, c := range conds {
		col, ok := m.Column(c.Column).Get()
		if !ok {
			return nil, fmt.Errorf("%w: %s has no column %q", ErrInvalidState, m.Table(), c.Column)
		}
		wheres = append(wheres, op(col, "=", c.Value))
	}
	return and(wheres...), nil
}

// -----------------------------
// Internal SELECT builder
// -----------------------------

func selectSQL[E entity.Entity](m *entity.Mapping[E], where Where[E]) (string, []any) {
	sql := fmt.Sprintf("SELECT * FROM %s", m.Table())
	if where == nil {
		return sql, nil
	}
	clause, args := where.Build()
	if clause == "" {
		return sql, nil
	}
	return sql + " WHERE " + clause, args
}

// -----------------------------
// Internal CRUD builders
// -----------------------------

type assignment struct {
	column string
	value  any
}

// present returns the set columns of e in declaration order.
func present[E entity.Entity](m *entity.Mapping[E], e *E) []assignment {
	return lo.FilterMap(m.Columns(), func(c entity.Column[E], _ int) (assignment, bool) {
		v, ok := c.Value(e).Get()
		return assignment{column: c.Name(), value: v}, ok
	})
}

func insertSQL[E entity.Entity](m *entity.Mapping[E], e *E, returning bool) (string, []any, error) {
	values := present(m, e)
	if len(values) == 0 {
		return "", nil, fmt.Errorf("%w: no values to insert into %s", ErrPersistence, m.Table())
	}
	cols := lo.Map(values, func(a assignment, _ int) string { return a.column })
	args := lo.Map(values, func(a assignment, _ int) any { return a.value })
	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		m.Table(),
		strings.Join(cols, ", "),
		makePlaceholders(len(cols)),
	)
	if returning {
		sql += " RETURNING " + m.PK().Name()
	}
	return sql, args, nil
}

func updateSQL[E entity.Entity](m *entity.Mapping[E], e *E) (string, []any, error) {
	pk := m.PK()
	id, ok := pk.Value(e).Get()
	if !ok {
		return "", nil, fmt.Errorf("%w: cannot update an object without an identifier", ErrInvalidState)
	}
	values := lo.Filter(present(m, e), func(a assignment, _ int) bool {
		return a.column != pk.Name()
	})
	if len(values) == 0 {
		return "", nil, fmt.Errorf("%w: no values to update in %s", ErrPersistence, m.Table())
	}
	sets := lo.Map(values, func(a assignment, _ int) string { return a.column + " = ?" })
	args := lo.Map(values, func(a assignment, _ int) any { return a.value })
	sql := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = ?",
		m.Table(),
		strings.Join(sets, ", "),
		pk.Name(),
	)
	return sql, append(args, id), nil
}

func deleteSQL[E entity.Entity](m *entity.Mapping[E], e *E) (string, []any, error) {
	id, ok := m.PK().Value(e).Get()
	if !ok {
		return "", nil, fmt.Errorf("%w: cannot delete an object without an identifier", ErrInvalidState)
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s = ?", m.Table(), m.PK().Name()), []any{id}, nil
}

func createTableSQL[E entity.Entity](m *entity.Mapping[E], d Dialect) string {
	defs := lo.Map(m.Columns(), func(c entity.Column[E], _ int) string {
		return fmt.Sprintf("%s %s", c.Name(), d.ColumnType(c.Meta()))
	})
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", m.Table(), strings.Join(defs, ", "))
}
