package entity

import (
	"github.com/samber/mo"
)

// User is an account of the sample application.
type User struct {
	ID       mo.Option[int64]  `arx:"id;pk;auto"`
	Email    mo.Option[string] `arx:"email;validate:constraint.Email()"`
	Name     mo.Option[string] `arx:"name;validate:constraint.LengthBetween(1, 64)"`
	Age      mo.Option[int]    `arx:"validate:constraint.Between(0, 150)"`
	Address  mo.Option[string]
	Password mo.Option[string]
	Phone    mo.Option[string]
	// not persisted
	Verified bool
}

func (User) Table() string {
	return "users"
}
