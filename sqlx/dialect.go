package sqlx

import (
	"fmt"
	"strings"

	jsqlx "github.com/jmoiron/sqlx"
	"github.com/kcmvp/arx/meta"
)

// Dialect holds the SQL differences between the supported databases.
type Dialect interface {
	// Name returns the driver name the dialect was resolved from.
	Name() string
	// Rebind rewrites '?' placeholders into the dialect's bind style.
	Rebind(query string) string
	// Returning reports whether INSERT ... RETURNING is supported.
	Returning() bool
	// ColumnType returns the DDL type of a column.
	ColumnType(fm meta.FieldMeta) string
}

type dialect struct {
	name      string
	bindType  int
	returning bool
	types     map[meta.Kind]string
	autoPK    string
}

func (d dialect) Name() string { return d.name }

func (d dialect) Rebind(query string) string { return jsqlx.Rebind(d.bindType, query) }

func (d dialect) Returning() bool { return d.returning }

func (d dialect) ColumnType(fm meta.FieldMeta) string {
	if fm.IsPK && fm.AutoIncrement {
		return d.autoPK
	}
	t := d.types[fm.Kind]
	if fm.IsPK {
		t += " PRIMARY KEY"
	}
	return t
}

var (
	SQLite = dialect{
		name:     "sqlite3",
		bindType: jsqlx.QUESTION,
		types: map[meta.Kind]string{
			meta.KindString: "TEXT",
			meta.KindInt:    "INTEGER",
			meta.KindUint:   "INTEGER",
			meta.KindFloat:  "REAL",
			meta.KindBool:   "BOOLEAN",
			meta.KindTime:   "DATETIME",
		},
		autoPK: "INTEGER PRIMARY KEY AUTOINCREMENT",
	}
	MySQL = dialect{
		name:     "mysql",
		bindType: jsqlx.QUESTION,
		types: map[meta.Kind]string{
			meta.KindString: "VARCHAR(255)",
			meta.KindInt:    "BIGINT",
			meta.KindUint:   "BIGINT UNSIGNED",
			meta.KindFloat:  "DOUBLE",
			meta.KindBool:   "BOOLEAN",
			meta.KindTime:   "DATETIME",
		},
		autoPK: "BIGINT PRIMARY KEY AUTO_INCREMENT",
	}
	Postgres = dialect{
		name:      "postgres",
		bindType:  jsqlx.DOLLAR,
		returning: true,
		types: map[meta.Kind]string{
			meta.KindString: "TEXT",
			meta.KindInt:    "BIGINT",
			meta.KindUint:   "BIGINT",
			meta.KindFloat:  "DOUBLE PRECISION",
			meta.KindBool:   "BOOLEAN",
			meta.KindTime:   "TIMESTAMP",
		},
		autoPK: "BIGSERIAL PRIMARY KEY",
	}
)

// DialectOf resolves the dialect of a database/sql driver name.
func DialectOf(driver string) (Dialect, error) {
	d := strings.ToLower(strings.TrimSpace(driver))
	switch jsqlx.BindType(d) {
	case jsqlx.DOLLAR:
		if d == "postgres" || d == "pgx" || d == "pq-timeouts" || d == "cloudsqlpostgres" {
			return withName(Postgres, d), nil
		}
	case jsqlx.QUESTION:
		switch {
		case d == "mysql":
			return MySQL, nil
		case strings.HasPrefix(d, "sqlite"):
			return withName(SQLite, d), nil
		}
	}
	return nil, fmt.Errorf("unsupported driver %q", driver)
}

func withName(d dialect, name string) dialect {
	d.name = name
	return d
}
