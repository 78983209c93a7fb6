package entity

import (
	"database/sql"
	"fmt"

	"github.com/kcmvp/arx/constraint"
	"github.com/kcmvp/arx/meta"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Column is a persisted field of entity E.
//
// Implementations are created with Col, PK or AutoPK; the unexported seal
// method prevents other packages from implementing it.
type Column[E Entity] interface {
	// Name returns the database column name.
	Name() string
	// Meta returns the column metadata.
	Meta() meta.FieldMeta
	// Value returns the value held by e, absent when the field is unset.
	Value(e *E) mo.Option[any]
	// Assign stores a driver value into e, converting it to the field type.
	// A nil value clears the field.
	Assign(e *E, v any) error
	// Validate runs the column validators against the value held by e.
	// Unset fields are not validated.
	Validate(e *E) error
	// Parse converts a textual value into the column's Go type.
	Parse(s string) (any, error)
	seal()
}

// Ref points at the storage of a field inside an entity.
type Ref[E Entity, T meta.FieldType] func(e *E) *mo.Option[T]

type field[E Entity, T meta.FieldType] struct {
	meta       meta.FieldMeta
	ref        Ref[E, T]
	validators []constraint.ValidateFunc[T]
}

func (f field[E, T]) seal() {}

func (f field[E, T]) Name() string { return f.meta.Column }

func (f field[E, T]) Meta() meta.FieldMeta { return f.meta }

func (f field[E, T]) Value(e *E) mo.Option[any] {
	if v, ok := f.ref(e).Get(); ok {
		return mo.Some[any](v)
	}
	return mo.None[any]()
}

func (f field[E, T]) Assign(e *E, v any) error {
	if v == nil {
		*f.ref(e) = mo.None[T]()
		return nil
	}
	if tv, ok := v.(T); ok {
		*f.ref(e) = mo.Some(tv)
		return nil
	}
	// sql.Null performs the same conversions database/sql applies when scanning.
	var n sql.Null[T]
	if err := n.Scan(v); err != nil {
		return fmt.Errorf("column %s: %w", f.meta.Column, err)
	}
	*f.ref(e) = mo.Some(n.V)
	return nil
}

func (f field[E, T]) Validate(e *E) error {
	v, ok := f.ref(e).Get()
	if !ok {
		return nil
	}
	for _, vf := range f.validators {
		name, validate := vf()
		if err := validate(v); err != nil {
			return fmt.Errorf("column %s %s: %w", f.meta.Column, name, err)
		}
	}
	return nil
}

func (f field[E, T]) Parse(s string) (any, error) {
	v, err := meta.ParseStringTo[T](s)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", f.meta.Column, err)
	}
	return v, nil
}

func newField[E Entity, T meta.FieldType](name string, ref Ref[E, T], vfs []constraint.ValidateFunc[T]) field[E, T] {
	lo.Assert(name != "", "column name must not be empty")
	lo.Assert(ref != nil, "column ref must not be nil")
	return field[E, T]{meta: meta.Field[T](name), ref: ref, validators: vfs}
}

// Col declares a column of E stored in the field returned by ref.
//
//	entity.Col[User, string]("email", func(u *User) *mo.Option[string] { return &u.Email }, constraint.Email())
func Col[E Entity, T meta.FieldType](name string, ref Ref[E, T], vfs ...constraint.ValidateFunc[T]) Column[E] {
	return newField(name, ref, vfs)
}

// PK declares the primary key of E. Its value is assigned by the application.
func PK[E Entity, T meta.FieldType](name string, ref Ref[E, T], vfs ...constraint.ValidateFunc[T]) Column[E] {
	f := newField(name, ref, vfs)
	f.meta.IsPK = true
	return f
}

// AutoPK declares a primary key generated by the database on insert.
func AutoPK[E Entity, T meta.Number](name string, ref Ref[E, T]) Column[E] {
	f := newField[E, T](name, ref, nil)
	f.meta.IsPK = true
	f.meta.AutoIncrement = true
	return f
}

func withOrder[E Entity](c Column[E], order int) Column[E] {
	return ordered[E]{Column: c, order: order}
}

// ordered records the declaration position of a column inside its mapping.
type ordered[E Entity] struct {
	Column[E]
	order int
}

func (o ordered[E]) Meta() meta.FieldMeta {
	m := o.Column.Meta()
	m.Order = o.order
	return m
}
