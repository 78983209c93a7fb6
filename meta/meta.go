package meta

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// ErrIntegerOverflow is returned when a parsed number does not fit the target type.
var ErrIntegerOverflow = errors.New("integer overflow")

type Number interface {
	uint | uint8 | uint16 | uint32 | uint64 | int | int8 | int16 | int32 | int64 | float32 | float64
}

// FieldType is the set of Go types a column can hold.
type FieldType interface {
	Number | string | time.Time | bool
}

// Kind classifies a FieldType for schema generation.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindUint
	KindFloat
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return "string"
	}
}

// FieldMeta contains canonical metadata for a mapped column.
// It has no dependency on higher-level packages and is shared by the entity
// descriptors, the SQL builders and the code generator.
type FieldMeta struct {
	// Column is the database column name (e.g. "email").
	Column string
	// GoType is the Go type name of the field value (e.g. "int64" or "time.Time").
	GoType string
	// Kind drives the SQL type chosen by a dialect.
	Kind Kind
	// IsPK marks this column as the primary key.
	IsPK bool
	// AutoIncrement marks a primary key generated by the database.
	AutoIncrement bool
	// Order is the declaration position inside the mapping, starting at zero.
	Order int
}

// Field creates the FieldMeta for a column holding values of type T.
func Field[T FieldType](column string) FieldMeta {
	var zero T
	return FieldMeta{
		Column: column,
		GoType: fmt.Sprintf("%T", zero),
		Kind:   KindOf[T](),
	}
}

// KindOf reports the Kind of T.
func KindOf[T FieldType]() Kind {
	var zero T
	switch any(zero).(type) {
	case string:
		return KindString
	case bool:
		return KindBool
	case time.Time:
		return KindTime
	case float32, float64:
		return KindFloat
	case uint, uint8, uint16, uint32, uint64:
		return KindUint
	default:
		return KindInt
	}
}

// DefaultTimeLayouts are the layouts tried, in order, when parsing time strings.
var DefaultTimeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

// ParseStringTo converts a string into the specified FieldType T.
func ParseStringTo[T FieldType](s string) (T, error) {
	var zero T
	targetType := reflect.TypeOf(zero)

	switch targetType.Kind() {
	case reflect.String:
		return any(s).(T), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return zero, fmt.Errorf("could not parse '%s' as bool: %w", s, err)
		}
		return any(b).(T), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		val, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return zero, fmt.Errorf("could not parse '%s' as int: %w", s, err)
		}
		if reflect.New(targetType).Elem().OverflowInt(val) {
			return zero, OverflowError(zero)
		}
		return reflect.ValueOf(val).Convert(targetType).Interface().(T), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		val, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return zero, fmt.Errorf("could not parse '%s' as uint: %w", s, err)
		}
		if reflect.New(targetType).Elem().OverflowUint(val) {
			return zero, OverflowError(zero)
		}
		return reflect.ValueOf(val).Convert(targetType).Interface().(T), nil
	case reflect.Float32, reflect.Float64:
		val, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return zero, fmt.Errorf("could not parse '%s' as float: %w", s, err)
		}
		if reflect.New(targetType).Elem().OverflowFloat(val) {
			return zero, fmt.Errorf("value %f overflows type %T", val, zero)
		}
		return reflect.ValueOf(val).Convert(targetType).Interface().(T), nil
	case reflect.Struct:
		if targetType == reflect.TypeOf(time.Time{}) {
			for _, layout := range DefaultTimeLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return any(t).(T), nil
				}
			}
			return zero, fmt.Errorf("incorrect date format for string '%s'", s)
		}
		fallthrough
	default:
		return zero, fmt.Errorf("type mismatch or unsupported type %T", zero)
	}
}

// OverflowError returns a standard overflow error wrapping ErrIntegerOverflow.
func OverflowError[T any](v T) error {
	return fmt.Errorf("for type %T: %w", v, ErrIntegerOverflow)
}
