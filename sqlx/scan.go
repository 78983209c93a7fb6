package sqlx

import (
	"database/sql"

	"github.com/kcmvp/arx/entity"
)

// hydrate reads every row into a new E. Result columns are matched to the mapping by name,
// ignoring case; columns the mapping does not declare are discarded.
func hydrate[E entity.Entity](m *entity.Mapping[E], rows *sql.Rows) ([]E, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	targets := make([]entity.Column[E], len(names))
	for i, name := range names {
		targets[i] = m.Column(name).OrElse(nil)
	}
	out := make([]E, 0)
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err = rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		var e E
		for i, c := range targets {
			if c == nil {
				continue
			}
			if err = c.Assign(&e, vals[i]); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
