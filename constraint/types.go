package constraint

import (
	"time"

	"github.com/kcmvp/arx/meta"
)

// Ordered is the set of column types with a natural order.
type Ordered interface {
	meta.Number | time.Time
}

// Validator checks a single column value.
type Validator[T meta.FieldType] func(v T) error

// ValidateFunc returns the validator name together with the validator.
type ValidateFunc[T meta.FieldType] func() (string, Validator[T])
