package broken

import "github.com/samber/mo"

type TwoKeys struct {
	A mo.Option[int64] `arx:"a;pk"`
	B mo.Option[int64] `arx:"b;pk"`
}

func (TwoKeys) Table() string { return "two_keys" }

type NoKey struct {
	Name mo.Option[string]
}

func (NoKey) Table() string { return "no_key" }

type Blob struct {
	ID   mo.Option[int64]  `arx:"id;pk;auto"`
	Data mo.Option[[]byte] `arx:"data"`
}

func (Blob) Table() string { return "blobs" }

type Base struct {
	ID mo.Option[int64] `arx:"id;pk;auto"`
}

type Embedded struct {
	Base
	Name mo.Option[string]
}

func (Embedded) Table() string { return "embedded" }

type Twice struct {
	ID    mo.Option[int64]  `arx:"id;pk;auto"`
	Name  mo.Option[string] `arx:"label"`
	Label mo.Option[string]
}

func (Twice) Table() string { return "twice" }

type Empty struct {
	Notes string
}

func (Empty) Table() string { return "empty" }
