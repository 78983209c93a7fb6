package constraint

import (
	"cmp"
	"errors"
	"fmt"
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/tidwall/match"
)

var (
	ErrLengthMin     = errors.New("length must be at least")
	ErrLengthMax     = errors.New("length must be at most")
	ErrLengthBetween = errors.New("length must be between")

	ErrNotMatch      = errors.New("not match pattern")
	ErrNotValidEmail = errors.New("not valid email address")
	ErrNotOneOf      = errors.New("value must be one of")
	ErrMustGt        = errors.New("must be greater than")
	ErrMustGte       = errors.New("must be greater than or equal to")
	ErrMustLt        = errors.New("must be less than")
	ErrMustLte       = errors.New("must be less than or equal to")
	ErrMustBetween   = errors.New("must be between")
)

// MinLength validates that a string has at least min characters.
func MinLength(min int) ValidateFunc[string] {
	return func() (string, Validator[string]) {
		return "min_length", func(str string) error {
			return lo.Ternary(utf8.RuneCountInString(str) < min, fmt.Errorf("%w %d", ErrLengthMin, min), nil)
		}
	}
}

// MaxLength validates that a string has at most max characters.
func MaxLength(max int) ValidateFunc[string] {
	return func() (string, Validator[string]) {
		return "max_length", func(str string) error {
			return lo.Ternary(utf8.RuneCountInString(str) > max, fmt.Errorf("%w %d", ErrLengthMax, max), nil)
		}
	}
}

// LengthBetween validates that a string's length is within [min, max].
func LengthBetween(min, max int) ValidateFunc[string] {
	return func() (string, Validator[string]) {
		return "length_between", func(str string) error {
			n := utf8.RuneCountInString(str)
			return lo.Ternary(n < min || n > max, fmt.Errorf("%w %d and %d", ErrLengthBetween, min, max), nil)
		}
	}
}

// Match validates that a string matches a wildcard pattern:
// `?` stands for one character and `*` for any number of characters.
func Match(pattern string) ValidateFunc[string] {
	lo.Assertf(match.IsPattern(pattern), "invalid pattern `%s`: `?` stands for one character, `*` stands for any number of characters", pattern)
	return func() (string, Validator[string]) {
		return "match", func(str string) error {
			return lo.Ternary(!match.Match(str, pattern), fmt.Errorf("%w %s", ErrNotMatch, pattern), nil)
		}
	}
}

// Email validates that a string is a valid email address.
func Email() ValidateFunc[string] {
	return func() (string, Validator[string]) {
		return "email", func(str string) error {
			return lo.Ternary(mo.TupleToResult[*mail.Address](mail.ParseAddress(str)).IsError(), fmt.Errorf("%w: %s", ErrNotValidEmail, str), nil)
		}
	}
}

// OneOf validates that a value is one of the allowed values.
func OneOf[T string | bool | Ordered](allowed ...T) ValidateFunc[T] {
	return func() (string, Validator[T]) {
		return "one_of", func(val T) error {
			return lo.Ternary(!lo.Contains(allowed, val), fmt.Errorf("%w: %v", ErrNotOneOf, allowed), nil)
		}
	}
}

// Gt validates that a value is strictly greater than min.
func Gt[T Ordered](min T) ValidateFunc[T] {
	return func() (string, Validator[T]) {
		return "gt", func(val T) error {
			return lo.Ternary(compare(val, min) <= 0, fmt.Errorf("%w %v", ErrMustGt, min), nil)
		}
	}
}

// Gte validates that a value is greater than or equal to min.
func Gte[T Ordered](min T) ValidateFunc[T] {
	return func() (string, Validator[T]) {
		return "gte", func(val T) error {
			return lo.Ternary(compare(val, min) < 0, fmt.Errorf("%w %v", ErrMustGte, min), nil)
		}
	}
}

// Lt validates that a value is strictly less than max.
func Lt[T Ordered](max T) ValidateFunc[T] {
	return func() (string, Validator[T]) {
		return "lt", func(val T) error {
			return lo.Ternary(compare(val, max) >= 0, fmt.Errorf("%w %v", ErrMustLt, max), nil)
		}
	}
}

// Lte validates that a value is less than or equal to max.
func Lte[T Ordered](max T) ValidateFunc[T] {
	return func() (string, Validator[T]) {
		return "lte", func(val T) error {
			return lo.Ternary(compare(val, max) > 0, fmt.Errorf("%w %v", ErrMustLte, max), nil)
		}
	}
}

// Between validates that a value is within [min, max].
func Between[T Ordered](min, max T) ValidateFunc[T] {
	return func() (string, Validator[T]) {
		return "between", func(val T) error {
			return lo.Ternary(compare(val, min) < 0 || compare(val, max) > 0, fmt.Errorf("%w %v and %v", ErrMustBetween, min, max), nil)
		}
	}
}

// compare orders two values of the same Ordered type.
func compare[T Ordered](a, b T) int {
	switch v := any(a).(type) {
	case time.Time:
		return v.Compare(any(b).(time.Time))
	case int:
		return cmp.Compare(v, any(b).(int))
	case int8:
		return cmp.Compare(v, any(b).(int8))
	case int16:
		return cmp.Compare(v, any(b).(int16))
	case int32:
		return cmp.Compare(v, any(b).(int32))
	case int64:
		return cmp.Compare(v, any(b).(int64))
	case uint:
		return cmp.Compare(v, any(b).(uint))
	case uint8:
		return cmp.Compare(v, any(b).(uint8))
	case uint16:
		return cmp.Compare(v, any(b).(uint16))
	case uint32:
		return cmp.Compare(v, any(b).(uint32))
	case uint64:
		return cmp.Compare(v, any(b).(uint64))
	case float32:
		return cmp.Compare(v, any(b).(float32))
	case float64:
		return cmp.Compare(v, any(b).(float64))
	}
	return 0
}
