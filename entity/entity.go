package entity

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// ErrConfiguration reports missing or inconsistent entity metadata.
var ErrConfiguration = errors.New("entity configuration")

// Entity defines the contract for database-aware models.
type Entity interface {
	Table() string
}

// Mapping is the persistence metadata of entity E: its table, its ordered
// columns and its primary key. A Mapping is immutable once defined.
type Mapping[E Entity] struct {
	table   string
	pk      Column[E]
	columns []Column[E]
	index   map[string]Column[E]
}

// Table returns the table name.
func (m *Mapping[E]) Table() string { return m.table }

// PK returns the primary key column.
func (m *Mapping[E]) PK() Column[E] { return m.pk }

// Columns returns all columns, primary key included, in declaration order.
func (m *Mapping[E]) Columns() []Column[E] {
	return append([]Column[E]{}, m.columns...)
}

// Column looks a column up by name, ignoring case.
func (m *Mapping[E]) Column(name string) mo.Option[Column[E]] {
	if c, ok := m.index[strings.ToLower(name)]; ok {
		return mo.Some(c)
	}
	return mo.None[Column[E]]()
}

// Validate runs every column validator against e.
func (m *Mapping[E]) Validate(e *E) error {
	for _, c := range m.columns {
		if err := c.Validate(e); err != nil {
			return err
		}
	}
	return nil
}

// Define builds the mapping of E from its column declarations.
//
// It fails with ErrConfiguration when the table name is empty, when no column
// is declared, when the number of primary keys is not exactly one or when a
// column name is declared twice.
func Define[E Entity](columns ...Column[E]) (*Mapping[E], error) {
	var e E
	typ := fmt.Sprintf("%T", e)
	table := strings.TrimSpace(e.Table())
	if table == "" {
		return nil, fmt.Errorf("%w: %s declares no table name", ErrConfiguration, typ)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s declares no column", ErrConfiguration, typ)
	}
	m := &Mapping[E]{
		table:   table,
		columns: make([]Column[E], 0, len(columns)),
		index:   make(map[string]Column[E], len(columns)),
	}
	for i, c := range columns {
		if c == nil {
			return nil, fmt.Errorf("%w: %s column #%d is nil", ErrConfiguration, typ, i)
		}
		key := strings.ToLower(c.Name())
		if _, dup := m.index[key]; dup {
			return nil, fmt.Errorf("%w: %s declares column %s twice", ErrConfiguration, typ, c.Name())
		}
		c = withOrder(c, i)
		if c.Meta().IsPK {
			if m.pk != nil {
				return nil, fmt.Errorf("%w: %s declares more than one primary key", ErrConfiguration, typ)
			}
			m.pk = c
		}
		m.index[key] = c
		m.columns = append(m.columns, c)
	}
	if m.pk == nil {
		return nil, fmt.Errorf("%w: %s declares no primary key", ErrConfiguration, typ)
	}
	return m, nil
}

var (
	registry   = map[reflect.Type]any{}
	registryMu sync.RWMutex
)

// Register defines the mapping of E and makes it available through Of.
// A later registration of the same type replaces the earlier one.
func Register[E Entity](columns ...Column[E]) (*Mapping[E], error) {
	m, err := Define(columns...)
	if err != nil {
		return nil, err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reflect.TypeFor[E]()] = m
	return m, nil
}

// MustRegister is Register for package level declarations; it panics on
// configuration errors.
func MustRegister[E Entity](columns ...Column[E]) *Mapping[E] {
	return lo.Must(Register(columns...))
}

// Of returns the registered mapping of E.
func Of[E Entity]() (*Mapping[E], error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if m, ok := registry[reflect.TypeFor[E]()]; ok {
		return m.(*Mapping[E]), nil
	}
	var e E
	return nil, fmt.Errorf("%w: no mapping registered for %T", ErrConfiguration, e)
}
