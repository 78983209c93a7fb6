package constraint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStringValidators(t *testing.T) {
	tests := []struct {
		name    string
		vf      ValidateFunc[string]
		value   string
		wantErr error
	}{
		{"min length too short", MinLength(3), "ab", ErrLengthMin},
		{"min length ok", MinLength(3), "abc", nil},
		{"min length counts runes", MinLength(2), "日本", nil},
		{"max length too long", MaxLength(3), "abcd", ErrLengthMax},
		{"max length ok", MaxLength(3), "abc", nil},
		{"between below", LengthBetween(2, 4), "a", ErrLengthBetween},
		{"between above", LengthBetween(2, 4), "abcde", ErrLengthBetween},
		{"between ok", LengthBetween(2, 4), "abc", nil},
		{"match ok", Match("+1-*"), "+1-5550100", nil},
		{"match fails", Match("+1-*"), "+44-20", ErrNotMatch},
		{"email ok", Email(), "alice@example.com", nil},
		{"email fails", Email(), "alice", ErrNotValidEmail},
		{"one of ok", OneOf("a", "b"), "b", nil},
		{"one of fails", OneOf("a", "b"), "c", ErrNotOneOf},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, v := tt.vf()
			err := v(tt.value)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOrderedValidators(t *testing.T) {
	tests := []struct {
		name    string
		vf      ValidateFunc[int]
		value   int
		wantErr error
	}{
		{"gt equal", Gt(5), 5, ErrMustGt},
		{"gt ok", Gt(5), 6, nil},
		{"gte equal", Gte(5), 5, nil},
		{"gte below", Gte(5), 4, ErrMustGte},
		{"lt equal", Lt(5), 5, ErrMustLt},
		{"lt ok", Lt(5), 4, nil},
		{"lte equal", Lte(5), 5, nil},
		{"lte above", Lte(5), 6, ErrMustLte},
		{"between low edge", Between(0, 150), 0, nil},
		{"between high edge", Between(0, 150), 150, nil},
		{"between outside", Between(0, 150), 151, ErrMustBetween},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, v := tt.vf()
			err := v(tt.value)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTimeValidators(t *testing.T) {
	now := time.Now()
	_, v := Gt(now)()
	require.NoError(t, v(now.Add(time.Second)))
	require.ErrorIs(t, v(now), ErrMustGt)

	_, v = Between(now.Add(-time.Hour), now.Add(time.Hour))()
	require.NoError(t, v(now))
	require.ErrorIs(t, v(now.Add(2*time.Hour)), ErrMustBetween)
}

func TestValidatorNames(t *testing.T) {
	name, _ := Email()()
	require.Equal(t, "email", name)
	name, _ = Between(1.0, 2.0)()
	require.Equal(t, "between", name)
}

func TestMatchPanicsOnInvalidPattern(t *testing.T) {
	require.Panics(t, func() { Match("plain") })
}
