package sqlx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

var (
	// ErrInvalidState reports an operation that the entity's current state does not allow,
	// such as deleting an entity without identifier or querying an undeclared column.
	ErrInvalidState = errors.New("invalid state")
	// ErrPersistence reports a failed write.
	ErrPersistence = errors.New("persistence")
	// ErrQuery reports a failed read.
	ErrQuery = errors.New("query")
)

type SQLError int

const (
	UnknownErr SQLError = iota
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	NoTableErr
	NoColumnErr
	DataTruncatedErr
)

func (c SQLError) String() string {
	switch c {
	case DuplicateKeyErr:
		return "duplicate key"
	case NotNullViolationErr:
		return "not null violation"
	case ForeignKeyViolationErr:
		return "foreign key violation"
	case CheckConstraintViolationErr:
		return "check constraint violation"
	case NoTableErr:
		return "no such table"
	case NoColumnErr:
		return "no such column"
	case DataTruncatedErr:
		return "data truncated"
	default:
		return "unknown"
	}
}

// Error is a driver failure raised while executing a statement.
// errors.Is matches both its Kind (ErrPersistence or ErrQuery) and the driver error.
type Error struct {
	Kind  error
	Op    string
	Table string
	Code  SQLError
	Err   error
}

func (e *Error) Error() string {
	if e.Code == UnknownErr {
		return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("%s: %s %s (%s): %v", e.Kind, e.Op, e.Table, e.Code, e.Err)
}

func (e *Error) Unwrap() []error { return []error{e.Kind, e.Err} }

func persistenceErr(op, table string, err error) error {
	return &Error{Kind: ErrPersistence, Op: op, Table: table, Code: Classify(err), Err: err}
}

func queryErr(op, table string, err error) error {
	return &Error{Kind: ErrQuery, Op: op, Table: table, Code: Classify(err), Err: err}
}

// Classify maps a driver error to a SQLError.
func Classify(err error) SQLError {
	if err == nil {
		return UnknownErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1062:
			return DuplicateKeyErr
		case 1048:
			return NotNullViolationErr
		case 1216, 1217, 1451, 1452:
			return ForeignKeyViolationErr
		case 3819:
			return CheckConstraintViolationErr
		case 1146:
			return NoTableErr
		case 1054:
			return NoColumnErr
		case 1265, 1406:
			return DataTruncatedErr
		default:
			return UnknownErr
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return DuplicateKeyErr
		case "23502":
			return NotNullViolationErr
		case "23503":
			return ForeignKeyViolationErr
		case "23514":
			return CheckConstraintViolationErr
		case "42P01":
			return NoTableErr
		case "42703":
			return NoColumnErr
		case "22001":
			return DataTruncatedErr
		default:
			return UnknownErr
		}
	}
	// sqlite3 errors need cgo to inspect, their messages are stable enough.
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "unique constraint failed"):
		return DuplicateKeyErr
	case strings.Contains(s, "not null constraint failed"):
		return NotNullViolationErr
	case strings.Contains(s, "foreign key constraint failed"):
		return ForeignKeyViolationErr
	case strings.Contains(s, "check constraint failed"):
		return CheckConstraintViolationErr
	case strings.Contains(s, "no such table"):
		return NoTableErr
	case strings.Contains(s, "no such column"), strings.Contains(s, "has no column named"):
		return NoColumnErr
	}
	return UnknownErr
}
