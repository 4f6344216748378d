// Package metadata holds free-form post metadata as a tree of typed values
// and converts it to and from a single storable text scalar.
package metadata

import (
	"fmt"
	"time"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindText
	KindTime
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindTime:
		return "time"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is one node of a metadata tree. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	t    time.Time
	list []Value
	m    Map
}

// Map is the root of a metadata tree.
type Map map[string]Value

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }
func Text(s string) Value { return Value{kind: KindText, s: s} }
func List(items ...Value) Value { return Value{kind: KindList, list: items} }
func Object(m Map) Value { return Value{kind: KindMap, m: m} }

// Time stores t in UTC; the canonical text form keeps nanoseconds.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t.UTC().Round(0)} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }
func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime }
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }
func (v Value) AsMap() (Map, bool) { return v.m, v.kind == KindMap }

// Equal reports structural equality. Times compare by instant.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}

	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindText:
		return v.s == o.s
	case KindTime:
		return v.t.Equal(o.t)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(o.m)
	}

	return false
}

// Equal treats nil and empty maps as equal.
func (m Map) Equal(o Map) bool {
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Any converts v back to plain Go values: nil, bool, float64, string,
// time.Time, []any and map[string]any.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindText:
		return v.s
	case KindTime:
		return v.t
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Any()
		}
		return out
	case KindMap:
		return v.m.Any()
	}
	return nil
}

func (m Map) Any() map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Any()
	}
	return out
}
