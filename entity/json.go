package entity

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Decode builds a new E from a JSON object keyed by column name.
// Keys without a matching column are ignored; null values leave the field unset.
func (m *Mapping[E]) Decode(json string) (*E, error) {
	if !gjson.Valid(json) {
		return nil, fmt.Errorf("invalid json for %s", m.table)
	}
	root := gjson.Parse(json)
	if !root.IsObject() {
		return nil, fmt.Errorf("%s expects a json object", m.table)
	}
	e := new(E)
	for _, c := range m.columns {
		res := root.Get(gjson.Escape(c.Name()))
		if !res.Exists() || res.Type == gjson.Null {
			continue
		}
		raw := res.Raw
		if res.Type == gjson.String {
			raw = res.Str
		}
		v, err := c.Parse(raw)
		if err != nil {
			return nil, err
		}
		if err = c.Assign(e, v); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Values returns the present values of e keyed by column name.
func (m *Mapping[E]) Values(e *E) map[string]any {
	out := make(map[string]any, len(m.columns))
	for _, c := range m.columns {
		if v, ok := c.Value(e).Get(); ok {
			out[c.Name()] = v
		}
	}
	return out
}
