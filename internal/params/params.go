// Package params implements the dynamic configuration tree carried by every
// directive: a tagged union of null, string, number, bool, ordered mapping
// and sequence. Accessors never panic on a shape mismatch; they return a
// *TypeError that the schema validator turns into a located diagnostic.
package params

import (
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindMap:
		return "mapping"
	case KindList:
		return "sequence"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Entry is one key of an ordered mapping.
type Entry struct {
	Key   string
	Value Value
}

// Value is an immutable node of the tree. The zero Value is null.
type Value struct {
	kind    Kind
	str     string
	num     float64
	b       bool
	entries []Entry
	items   []Value
}

// TypeError reports an accessor used against the wrong variant.
type TypeError struct {
	Want Kind
	Got  Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("expected %s, got %s", e.Want, e.Got)
}

func Null() Value                { return Value{} }
func String(s string) Value      { return Value{kind: KindString, str: s} }
func Number(f float64) Value     { return Value{kind: KindNumber, num: f} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func List(items ...Value) Value  { return Value{kind: KindList, items: items} }
func Map(entries ...Entry) Value { return Value{kind: KindMap, entries: entries} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) expect(k Kind) error {
	if v.kind != k {
		return &TypeError{Want: k, Got: v.kind}
	}
	return nil
}

// Str returns the string held by v.
func (v Value) Str() (string, error) {
	if err := v.expect(KindString); err != nil {
		return "", err
	}
	return v.str, nil
}

// Float returns the number held by v.
func (v Value) Float() (float64, error) {
	if err := v.expect(KindNumber); err != nil {
		return 0, err
	}
	return v.num, nil
}

// Boolean returns the bool held by v.
func (v Value) Boolean() (bool, error) {
	if err := v.expect(KindBool); err != nil {
		return false, err
	}
	return v.b, nil
}

// Entries returns the mapping held by v in declaration order. Duplicate keys
// are preserved so that the validator can report them.
func (v Value) Entries() ([]Entry, error) {
	if err := v.expect(KindMap); err != nil {
		return nil, err
	}
	return v.entries, nil
}

// Items returns the sequence held by v.
func (v Value) Items() ([]Value, error) {
	if err := v.expect(KindList); err != nil {
		return nil, err
	}
	return v.items, nil
}

// Lookup returns the first entry named key. It reports false when v is not a
// mapping or has no such key.
func (v Value) Lookup(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	for _, e := range v.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Len returns the number of entries or items, zero for scalars.
func (v Value) Len() int {
	switch v.kind {
	case KindMap:
		return len(v.entries)
	case KindList:
		return len(v.items)
	}
	return 0
}

// Interface converts v into plain Go values: map[string]any, []any, string,
// float64, bool or nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindMap:
		out := make(map[string]any, len(v.entries))
		for _, e := range v.entries {
			if _, dup := out[e.Key]; !dup {
				out[e.Key] = e.Value.Interface()
			}
		}
		return out
	case KindList:
		out := make([]any, 0, len(v.items))
		for _, item := range v.items {
			out = append(out, item.Interface())
		}
		return out
	}
	return nil
}
