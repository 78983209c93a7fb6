package sqlx

import (
	"context"
	"fmt"

	"github.com/kcmvp/arx/entity"
	"github.com/samber/mo"
)

// -----------------------------
// Public DSL (end-user API)
// -----------------------------

// Where is a query condition bound to a specific entity type E.
// Conditions are built by the functions of this package only.
type Where[E entity.Entity] interface {
	// Build returns the SQL clause string and its corresponding arguments.
	Build() (string, []any)
	// bound carries E in the method set for type inference.
	bound(*E)
}

// And combines multiple Where conditions with the AND operator.
// It filters out any nil or empty Where functions.
func And[E entity.Entity](wheres ...Where[E]) Where[E] {
	return and(wheres...)
}

// Or combines multiple Where conditions with the OR operator.
// It filters out any nil or empty Where functions.
func Or[E entity.Entity](wheres ...Where[E]) Where[E] {
	return or(wheres...)
}

func Eq[E entity.Entity](col entity.Column[E], value any) Where[E] {
	return op(col, "=", value)
}
func Ne[E entity.Entity](col entity.Column[E], value any) Where[E] {
	return op(col, "!=", value)
}
func Gt[E entity.Entity](col entity.Column[E], value any) Where[E] {
	return op(col, ">", value)
}
func Gte[E entity.Entity](col entity.Column[E], value any) Where[E] {
	return op(col, ">=", value)
}
func Lt[E entity.Entity](col entity.Column[E], value any) Where[E] {
	return op(col, "<", value)
}
func Lte[E entity.Entity](col entity.Column[E], value any) Where[E] {
	return op(col, "<=", value)
}
func Like[E entity.Entity](col entity.Column[E], value string) Where[E] {
	return op(col, "LIKE", value)
}

// In creates an "IN (... )" condition.
// An empty value list yields an always-false condition rather than invalid SQL.
func In[E entity.Entity](col entity.Column[E], values ...any) Where[E] {
	return inWhere(col, values...)
}

// Condition is a column equality used by FindWhere.
type Condition struct {
	Column string
	Value  any
}

// -----------------------------
// Public core API (end-user API)
// -----------------------------

// conn returns db, or the default datasource when db is nil.
func conn(db DB) (DB, error) {
	if db != nil {
		return db, nil
	}
	if d, ok := DefaultDS(); ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: no datasource, call SetConnection first", entity.ErrConfiguration)
}

// TableName returns the table E is stored in.
func TableName[E entity.Entity]() (string, error) {
	m, err := entity.Of[E]()
	if err != nil {
		return "", err
	}
	return m.Table(), nil
}

// Save persists e: an update when its primary key is set, an insert otherwise.
// After an insert the generated key, if any, is written back into e.
func Save[E entity.Entity](ctx context.Context, db DB, e *E) (*E, error) {
	m, err := entity.Of[E]()
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: nil %s", ErrInvalidState, m.Table())
	}
	if m.PK().Value(e).IsPresent() {
		return update(ctx, db, m, e)
	}
	return insert(ctx, db, m, e)
}

// Insert persists e as a new row whether or not its primary key is set.
func Insert[E entity.Entity](ctx context.Context, db DB, e *E) (*E, error) {
	m, err := entity.Of[E]()
	if err != nil {
		return nil, err
	}
	return insert(ctx, db, m, e)
}

// Update writes the set columns of e to the row identified by its primary key.
// Updating a missing row is not an error.
func Update[E entity.Entity](ctx context.Context, db DB, e *E) (*E, error) {
	m, err := entity.Of[E]()
	if err != nil {
		return nil, err
	}
	return update(ctx, db, m, e)
}

func validate[E entity.Entity](m *entity.Mapping[E], e *E) error {
	if e == nil {
		return fmt.Errorf("%w: nil %s", ErrInvalidState, m.Table())
	}
	if err := m.Validate(e); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return nil
}

func insert[E entity.Entity](ctx context.Context, db DB, m *entity.Mapping[E], e *E) (*E, error) {
	if err := validate(m, e); err != nil {
		return nil, err
	}
	db, err := conn(db)
	if err != nil {
		return nil, err
	}
	pk := m.PK()
	returning := db.Dialect().Returning() && pk.Value(e).IsAbsent()
	stmt, args, err := insertSQL(m, e, returning)
	if err != nil {
		return nil, err
	}
	stmt = db.Dialect().Rebind(stmt)
	if returning {
		rows, err := db.QueryContext(ctx, stmt, args...)
		if err != nil {
			return nil, persistenceErr("insert", m.Table(), err)
		}
		defer func() { _ = rows.Close() }()
		if !rows.Next() {
			if err = rows.Err(); err == nil {
				err = fmt.Errorf("no generated %s returned", pk.Name())
			}
			return nil, persistenceErr("insert", m.Table(), err)
		}
		var id any
		if err = rows.Scan(&id); err != nil {
			return nil, persistenceErr("insert", m.Table(), err)
		}
		if err = pk.Assign(e, id); err != nil {
			return nil, persistenceErr("insert", m.Table(), err)
		}
		return e, nil
	}
	res, err := db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, persistenceErr("insert", m.Table(), err)
	}
	if pk.Meta().AutoIncrement && pk.Value(e).IsAbsent() {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, persistenceErr("insert", m.Table(), err)
		}
		if err = pk.Assign(e, id); err != nil {
			return nil, persistenceErr("insert", m.Table(), err)
		}
	}
	return e, nil
}

func update[E entity.Entity](ctx context.Context, db DB, m *entity.Mapping[E], e *E) (*E, error) {
	if err := validate(m, e); err != nil {
		return nil, err
	}
	stmt, args, err := updateSQL(m, e)
	if err != nil {
		return nil, err
	}
	db, err = conn(db)
	if err != nil {
		return nil, err
	}
	if _, err = db.ExecContext(ctx, db.Dialect().Rebind(stmt), args...); err != nil {
		return nil, persistenceErr("update", m.Table(), err)
	}
	return e, nil
}

// Delete removes the row identified by the primary key of e and returns e.
// An entity without primary key is rejected before the database is reached.
func Delete[E entity.Entity](ctx context.Context, db DB, e *E) (*E, error) {
	m, err := entity.Of[E]()
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: nil %s", ErrInvalidState, m.Table())
	}
	stmt, args, err := deleteSQL(m, e)
	if err != nil {
		return nil, err
	}
	db, err = conn(db)
	if err != nil {
		return nil, err
	}
	if _, err = db.ExecContext(ctx, db.Dialect().Rebind(stmt), args...); err != nil {
		return nil, persistenceErr("delete", m.Table(), err)
	}
	return e, nil
}

// FindByID loads the entity whose primary key equals id.
func FindByID[E entity.Entity](ctx context.Context, db DB, id any) (mo.Option[E], error) {
	m, err := entity.Of[E]()
	if err != nil {
		return mo.None[E](), err
	}
	list, err := query(ctx, db, m, Eq(m.PK(), id))
	if err != nil {
		return mo.None[E](), err
	}
	if len(list) == 0 {
		return mo.None[E](), nil
	}
	return mo.Some(list[0]), nil
}

// FindAll loads every row of the table in the order the database returns them.
func FindAll[E entity.Entity](ctx context.Context, db DB) ([]E, error) {
	m, err := entity.Of[E]()
	if err != nil {
		return nil, err
	}
	return query[E](ctx, db, m, nil)
}

// Find loads the rows whose column equals value.
func Find[E entity.Entity](ctx context.Context, db DB, column string, value any) ([]E, error) {
	return FindWhere[E](ctx, db, Condition{Column: column, Value: value})
}

// FindWhere loads the rows matching every condition.
func FindWhere[E entity.Entity](ctx context.Context, db DB, conds ...Condition) ([]E, error) {
	m, err := entity.Of[E]()
	if err != nil {
		return nil, err
	}
	where, err := conditionsWhere(m, conds)
	if err != nil {
		return nil, err
	}
	return query(ctx, db, m, where)
}

// Query loads the rows matching where. A nil where selects every row.
func Query[E entity.Entity](ctx context.Context, db DB, where Where[E]) ([]E, error) {
	m, err := entity.Of[E]()
	if err != nil {
		return nil, err
	}
	return query(ctx, db, m, where)
}

func query[E entity.Entity](ctx context.Context, db DB, m *entity.Mapping[E], where Where[E]) ([]E, error) {
	db, err := conn(db)
	if err != nil {
		return nil, err
	}
	sql, args := selectSQL(m, where)
	rows, err := db.QueryContext(ctx, db.Dialect().Rebind(sql), args...)
	if err != nil {
		return nil, queryErr("select", m.Table(), err)
	}
	defer func() { _ = rows.Close() }()
	list, err := hydrate(m, rows)
	if err != nil {
		return nil, queryErr("select", m.Table(), err)
	}
	return list, nil
}

// CreateTable creates the table of E from its mapping unless it already exists.
func CreateTable[E entity.Entity](ctx context.Context, db DB) error {
	m, err := entity.Of[E]()
	if err != nil {
		return err
	}
	db, err = conn(db)
	if err != nil {
		return err
	}
	if _, err = db.ExecContext(ctx, createTableSQL(m, db.Dialect())); err != nil {
		return persistenceErr("create table", m.Table(), err)
	}
	return nil
}
