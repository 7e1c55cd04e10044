package devalue

import (
	"encoding/json"
	"iter"
	"maps"
	"reflect"
	"strconv"

	"golang.org/x/exp/constraints"
)

// AnyValue adapts a tree of plain go values - the result of unmarshalling
// JSON or YAML into any - to the [IntoValue] contract. It understands nil,
// bool, string, all native integer and float types, [json.Number], []any and
// map[string]any, with a reflection fallback for named types and typed
// slices/maps (e.g. map[string]string). Values it cannot interpret adapt as
// null.
//
// AnyValue does not consume the underlying tree: map nodes are shallowly
// copied on conversion, so the same tree can be decoded any number of times.
type AnyValue struct {
	Value any
}

var _ IntoValue = AnyValue{}

func (a AnyValue) Kind() ValueKind {
	switch v := a.Value.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBoolean
	case string:
		return KindString
	case json.Number:
		return numberValue(v).Kind
	case int:
		return signedKind(v)
	case int8:
		return signedKind(v)
	case int16:
		return signedKind(v)
	case int32:
		return signedKind(v)
	case int64:
		return signedKind(v)
	case uint, uint8, uint16, uint32, uint64:
		return KindInteger
	case float32, float64:
		return KindFloat
	case []any:
		return KindSequence
	case map[string]any:
		return KindMap
	default:
		return reflectKind(reflect.ValueOf(a.Value))
	}
}

func (a AnyValue) IntoValue() Value {
	switch v := a.Value.(type) {
	case nil:
		return Value{Kind: KindNull}
	case bool:
		return Value{Kind: KindBoolean, Boolean: v}
	case string:
		return Value{Kind: KindString, String: v}
	case json.Number:
		return numberValue(v)
	case int:
		return signedValue(v)
	case int8:
		return signedValue(v)
	case int16:
		return signedValue(v)
	case int32:
		return signedValue(v)
	case int64:
		return signedValue(v)
	case uint:
		return unsignedValue(v)
	case uint8:
		return unsignedValue(v)
	case uint16:
		return unsignedValue(v)
	case uint32:
		return unsignedValue(v)
	case uint64:
		return unsignedValue(v)
	case float32:
		return Value{Kind: KindFloat, Float: float64(v)}
	case float64:
		return Value{Kind: KindFloat, Float: v}
	case []any:
		return Value{Kind: KindSequence, Sequence: anySequence(v)}
	case map[string]any:
		// the view owns its entries, Remove must not mutate the input tree
		return Value{Kind: KindMap, Map: &anyMap{entries: maps.Clone(v)}}
	default:
		return reflectValue(reflect.ValueOf(a.Value))
	}
}

// signedValue classifies a native signed integer into the canonical
// integer/negative-integer split.
func signedValue[T constraints.Signed](v T) Value {
	if v < 0 {
		return Value{Kind: KindNegativeInteger, NegativeInteger: int64(v)}
	}

	return Value{Kind: KindInteger, Integer: uint64(v)}
}

func signedKind[T constraints.Signed](v T) ValueKind {
	if v < 0 {
		return KindNegativeInteger
	}

	return KindInteger
}

func unsignedValue[T constraints.Unsigned](v T) Value {
	return Value{Kind: KindInteger, Integer: uint64(v)}
}

// numberValue classifies a textual number: non-negative integers keep their
// full uint64 range, negative integers their int64 range, everything else
// becomes a float.
func numberValue(n json.Number) Value {
	text := n.String()

	if intValue, err := strconv.ParseUint(text, 10, 64); err == nil {
		return Value{Kind: KindInteger, Integer: intValue}
	}

	if intValue, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Value{Kind: KindNegativeInteger, NegativeInteger: intValue}
	}

	floatValue, _ := n.Float64()
	return Value{Kind: KindFloat, Float: floatValue}
}

func reflectKind(rv reflect.Value) ValueKind {
	switch rv.Kind() {
	case reflect.Bool:
		return KindBoolean

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return signedKind(rv.Int())

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInteger

	case reflect.Float32, reflect.Float64:
		return KindFloat

	case reflect.String:
		return KindString

	case reflect.Slice, reflect.Array:
		return KindSequence

	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return KindMap
		}

		return KindNull

	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return KindNull
		}

		return reflectKind(rv.Elem())

	default:
		return KindNull
	}
}

func reflectValue(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Bool:
		return Value{Kind: KindBoolean, Boolean: rv.Bool()}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return signedValue(rv.Int())

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return unsignedValue(rv.Uint())

	case reflect.Float32, reflect.Float64:
		return Value{Kind: KindFloat, Float: rv.Float()}

	case reflect.String:
		return Value{Kind: KindString, String: rv.String()}

	case reflect.Slice, reflect.Array:
		return Value{Kind: KindSequence, Sequence: reflectSequence{rv: rv}}

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{Kind: KindNull}
		}

		entries := make(map[string]any, rv.Len())
		for it := rv.MapRange(); it.Next(); {
			entries[it.Key().String()] = it.Value().Interface()
		}

		return Value{Kind: KindMap, Map: &anyMap{entries: entries}}

	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return Value{Kind: KindNull}
		}

		return reflectValue(rv.Elem())

	default:
		return Value{Kind: KindNull}
	}
}

type anySequence []any

func (s anySequence) Len() int {
	return len(s)
}

func (s anySequence) Iter() iter.Seq[IntoValue] {
	return func(yield func(IntoValue) bool) {
		for _, item := range s {
			if !yield(AnyValue{Value: item}) {
				return
			}
		}
	}
}

type reflectSequence struct {
	rv reflect.Value
}

func (s reflectSequence) Len() int {
	return s.rv.Len()
}

func (s reflectSequence) Iter() iter.Seq[IntoValue] {
	return func(yield func(IntoValue) bool) {
		for idx := range s.rv.Len() {
			if !yield(AnyValue{Value: s.rv.Index(idx).Interface()}) {
				return
			}
		}
	}
}

type anyMap struct {
	entries map[string]any
}

func (m *anyMap) Len() int {
	return len(m.entries)
}

func (m *anyMap) Remove(key string) (IntoValue, bool) {
	value, ok := m.entries[key]
	if !ok {
		return nil, false
	}

	delete(m.entries, key)
	return AnyValue{Value: value}, true
}

func (m *anyMap) Iter() iter.Seq2[string, IntoValue] {
	return func(yield func(string, IntoValue) bool) {
		for key, value := range m.entries {
			if !yield(key, AnyValue{Value: value}) {
				return
			}
		}
	}
}
