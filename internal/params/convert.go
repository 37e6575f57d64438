package params

import (
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// FromAny converts decoded Go data into a Value. Map keys are sorted since Go
// maps carry no order; loaders that know the source order build Values
// directly instead.
func FromAny(data any) (Value, error) {
	switch v := data.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	case float64:
		return Number(v), nil
	case float32:
		return Number(float64(v)), nil
	case int:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case []float64:
		items := make([]Value, 0, len(v))
		for _, f := range v {
			items = append(items, Number(f))
		}
		return List(items...), nil
	case []string:
		items := make([]Value, 0, len(v))
		for _, s := range v {
			items = append(items, String(s))
		}
		return List(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]Entry, 0, len(keys))
		for _, k := range keys {
			child, err := FromAny(v[k])
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			entries = append(entries, Entry{Key: k, Value: child})
		}
		return Map(entries...), nil
	case []any:
		items := make([]Value, 0, len(v))
		for i, elem := range v {
			child, err := FromAny(elem)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, child)
		}
		return List(items...), nil
	default:
		return Value{}, fmt.Errorf("unsupported type for conversion to params.Value: %T", v)
	}
}

// FromCty converts a known cty.Value. Object and map attributes come out in
// lexical order, which is the order cty iterates them.
func FromCty(val cty.Value) (Value, error) {
	if val.IsNull() {
		return Null(), nil
	}
	if !val.IsWhollyKnown() {
		return Value{}, fmt.Errorf("value is not known")
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return String(val.AsString()), nil
	case ty == cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return Number(f), nil
	case ty == cty.Bool:
		return Bool(val.True()), nil
	case ty.IsObjectType() || ty.IsMapType():
		entries := make([]Entry, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, elem := it.Element()
			child, err := FromCty(elem)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k.AsString(), err)
			}
			entries = append(entries, Entry{Key: k.AsString(), Value: child})
		}
		return Map(entries...), nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		items := make([]Value, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			child, err := FromCty(elem)
			if err != nil {
				return Value{}, err
			}
			items = append(items, child)
		}
		return List(items...), nil
	default:
		return Value{}, fmt.Errorf("unsupported cty.Type for conversion: %s", ty.FriendlyName())
	}
}

// Cty converts v into a cty.Value with an implied type: mappings become
// objects and sequences become tuples. Duplicate mapping keys keep their
// first value.
func (v Value) Cty() cty.Value {
	switch v.kind {
	case KindString:
		return cty.StringVal(v.str)
	case KindNumber:
		if math.IsNaN(v.num) {
			return cty.NullVal(cty.Number)
		}
		return cty.NumberVal(new(big.Float).SetFloat64(v.num))
	case KindBool:
		return cty.BoolVal(v.b)
	case KindMap:
		if len(v.entries) == 0 {
			return cty.EmptyObjectVal
		}
		attrs := make(map[string]cty.Value, len(v.entries))
		for _, e := range v.entries {
			if _, dup := attrs[e.Key]; !dup {
				attrs[e.Key] = e.Value.Cty()
			}
		}
		return cty.ObjectVal(attrs)
	case KindList:
		if len(v.items) == 0 {
			return cty.EmptyTupleVal
		}
		elems := make([]cty.Value, 0, len(v.items))
		for _, item := range v.items {
			elems = append(elems, item.Cty())
		}
		return cty.TupleVal(elems)
	}
	return cty.NullVal(cty.DynamicPseudoType)
}
