package devalue

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"sync"
)

// NotSupportedError is returned when a target type has no decode logic.
type NotSupportedError struct {
	Type reflect.Type
}

func (n NotSupportedError) Error() string {
	return fmt.Sprintf("type %q is not supported", n.Type)
}

// Unmarshal decodes source onto the value pointed to by target using the
// default [Decoder].
func Unmarshal(source IntoValue, target any) error {
	return dec.Unmarshal(source, target)
}

// UnmarshalNew decodes source into a new instance of T.
func UnmarshalNew[T any](source IntoValue) (T, error) {
	return UnmarshalNewWith[T](&dec, source)
}

// UnmarshalNewWith decodes source into a new instance of T using dec.
func UnmarshalNewWith[T any](dec *Decoder, source IntoValue) (T, error) {
	var target T
	err := dec.Unmarshal(source, &target)
	return target, err
}

// UnknownKeyPolicy decides what happens to map keys that match no declared
// struct field.
type UnknownKeyPolicy int

const (
	// UnknownIgnore silently drops unknown keys.
	UnknownIgnore UnknownKeyPolicy = iota

	// UnknownDeny reports unknown keys through [ErrorBuilder.UnknownKey].
	UnknownDeny
)

// defaultMaxDepth bounds value nesting so adversarial deeply nested input can
// not exhaust the goroutine stack.
const defaultMaxDepth = 1024

// A setter decodes the given source node onto a reflect.Value. It returns the
// error produced by the configured [ErrorBuilder] plus the builder's abort
// decision: a non-nil error with abort == false failed this sub-value but
// allows the caller to keep scanning sibling values.
type setter func(src IntoValue, loc *ValuePointerRef, depth int, target reflect.Value) (error, bool)

// A set of types that are currently in construction
type typeSet map[reflect.Type]struct{}

var tyTextUnmarshaler = reflect.TypeFor[encoding.TextUnmarshaler]()

// The default Decoder instance.
var dec Decoder

// Decoder can be used to customize unmarshalling. This type is typesafe.
type Decoder struct {
	// the struct tag that is used
	structTag string

	// Cache for setters, indexed by reflect.Type
	setterCache sync.Map

	// builds and merges decode errors, AbortOnError when nil
	errs ErrorBuilder

	// policy for map keys matching no declared field
	unknownKeys UnknownKeyPolicy

	// maximum value nesting, defaultMaxDepth when zero
	maxDepth int

	// tagged unions, indexed by interface type
	unions map[reflect.Type]Union
}

func NewDecoder() *Decoder {
	return &Decoder{
		structTag: "json",
	}
}

func (d *Decoder) WithTag(structTag string) *Decoder {
	if d.structTag == structTag {
		return d
	}

	next := d.config()
	next.structTag = structTag
	return next
}

// WithErrorBuilder replaces the [ErrorBuilder] driving construction and
// continue-vs-abort decisions. The default is [AbortOnError].
func (d *Decoder) WithErrorBuilder(errs ErrorBuilder) *Decoder {
	next := d.config()
	next.errs = errs
	return next
}

// WithUnknownKeys replaces the policy applied to undeclared map keys during
// struct decoding. The default is [UnknownIgnore].
func (d *Decoder) WithUnknownKeys(policy UnknownKeyPolicy) *Decoder {
	if d.unknownKeys == policy {
		return d
	}

	next := d.config()
	next.unknownKeys = policy
	return next
}

// WithMaxDepth replaces the nesting limit enforced during decoding.
func (d *Decoder) WithMaxDepth(maxDepth int) *Decoder {
	next := d.config()
	next.maxDepth = maxDepth
	return next
}

// WithUnions registers tagged unions. Decoding into the interface type of a
// registered [Union] dispatches on its tag key.
func (d *Decoder) WithUnions(unions ...Union) *Decoder {
	next := d.config()
	next.unions = make(map[reflect.Type]Union, len(d.unions)+len(unions))
	for ty, u := range d.unions {
		next.unions[ty] = u
	}
	for _, u := range unions {
		next.unions[u.Interface] = u
	}
	return next
}

// config clones the configuration into a fresh Decoder. The setter cache is
// not carried over, cached setters close over the configuration they were
// built with.
func (d *Decoder) config() *Decoder {
	return &Decoder{
		structTag:   d.structTag,
		errs:        d.errs,
		unknownKeys: d.unknownKeys,
		maxDepth:    d.maxDepth,
		unions:      d.unions,
	}
}

func (d *Decoder) errors() ErrorBuilder {
	if d.errs == nil {
		return AbortOnError{}
	}

	return d.errs
}

func (d *Decoder) depthLimit() int {
	if d.maxDepth <= 0 {
		return defaultMaxDepth
	}

	return d.maxDepth
}

func (d *Decoder) Unmarshal(source IntoValue, target any) error {
	targetValue := reflect.ValueOf(target).Elem()

	// build the setter for the targets type
	setter, err := d.setterOf(typeSet{}, targetValue.Type())
	if err != nil {
		return err
	}

	err, _ = setter(source, nil, 0, targetValue)
	return err
}

func (d *Decoder) setterOf(inConstruction typeSet, ty reflect.Type) (setter, error) {
	if cached, ok := d.setterCache.Load(ty); ok {
		return cached.(setter), nil
	}

	if _, ok := inConstruction[ty]; ok {
		// detected a cycle. return a setter that does a cache lookup when executed.
		// we assume that the actual setter will be in the cache once this setter is executed.
		lazySetter := func(src IntoValue, loc *ValuePointerRef, depth int, target reflect.Value) (error, bool) {
			cached, _ := d.setterCache.Load(ty)
			return cached.(setter)(src, loc, depth, target)
		}

		return lazySetter, nil
	}

	inConstruction[ty] = struct{}{}

	setter, err := d.makeSetterOf(inConstruction, ty)
	if err != nil {
		return nil, err
	}

	d.setterCache.Store(ty, setter)

	return setter, nil
}

func (d *Decoder) makeSetterOf(inConstruction typeSet, ty reflect.Type) (setter, error) {
	if reflect.PointerTo(ty).Implements(tyTextUnmarshaler) {
		return d.setTextUnmarshaler, nil
	}

	switch ty.Kind() {
	case reflect.Bool:
		return d.setBool, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return d.makeSetInt(ty.Bits()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return d.makeSetUint(ty.Bits()), nil

	case reflect.Float32, reflect.Float64:
		return d.setFloat, nil

	case reflect.String:
		return d.setString, nil

	case reflect.Pointer:
		return d.makeSetPointer(inConstruction, ty)

	case reflect.Struct:
		return d.makeSetStruct(inConstruction, ty)

	case reflect.Slice:
		return d.makeSetSlice(inConstruction, ty)

	case reflect.Array:
		return d.makeSetArray(inConstruction, ty)

	case reflect.Map:
		return d.makeSetMap(inConstruction, ty)

	case reflect.Interface:
		if u, ok := d.unions[ty]; ok {
			return d.makeSetUnion(inConstruction, u)
		}

		return nil, NotSupportedError{Type: ty}

	default:
		return nil, NotSupportedError{Type: ty}
	}
}

func (d *Decoder) setBool(src IntoValue, loc *ValuePointerRef, _ int, target reflect.Value) (error, bool) {
	if kind := src.Kind(); kind != KindBoolean {
		return d.errors().IncorrectValueKind(nil, kind, []ValueKind{KindBoolean}, loc)
	}

	target.SetBool(src.IntoValue().Boolean)
	return nil, false
}

func (d *Decoder) setString(src IntoValue, loc *ValuePointerRef, _ int, target reflect.Value) (error, bool) {
	if kind := src.Kind(); kind != KindString {
		return d.errors().IncorrectValueKind(nil, kind, []ValueKind{KindString}, loc)
	}

	target.SetString(src.IntoValue().String)
	return nil, false
}

func (d *Decoder) setFloat(src IntoValue, loc *ValuePointerRef, _ int, target reflect.Value) (error, bool) {
	// floats widen from either integer kind
	switch src.Kind() {
	case KindFloat:
		target.SetFloat(src.IntoValue().Float)
		return nil, false

	case KindInteger:
		target.SetFloat(float64(src.IntoValue().Integer))
		return nil, false

	case KindNegativeInteger:
		target.SetFloat(float64(src.IntoValue().NegativeInteger))
		return nil, false

	default:
		return d.errors().IncorrectValueKind(nil, src.Kind(),
			[]ValueKind{KindFloat, KindInteger, KindNegativeInteger}, loc)
	}
}

// makeSetInt builds the setter for a signed integer type of the given bit
// size. Values of either integer kind are accepted; a value outside the
// target range is unexpected, not a kind mismatch.
func (d *Decoder) makeSetInt(bits int) setter {
	maxValue := uint64(1)<<(bits-1) - 1
	minValue := int64(-1) << (bits - 1)

	return func(src IntoValue, loc *ValuePointerRef, _ int, target reflect.Value) (error, bool) {
		switch src.Kind() {
		case KindInteger:
			intValue := src.IntoValue().Integer
			if intValue > maxValue {
				return d.errors().Unexpected(nil,
					fmt.Sprintf("value %d does not fit in int%d", intValue, bits), loc)
			}

			target.SetInt(int64(intValue))
			return nil, false

		case KindNegativeInteger:
			intValue := src.IntoValue().NegativeInteger
			if intValue < minValue {
				return d.errors().Unexpected(nil,
					fmt.Sprintf("value %d does not fit in int%d", intValue, bits), loc)
			}

			target.SetInt(intValue)
			return nil, false

		default:
			return d.errors().IncorrectValueKind(nil, src.Kind(),
				[]ValueKind{KindInteger, KindNegativeInteger}, loc)
		}
	}
}

// makeSetUint builds the setter for an unsigned integer type of the given bit
// size. Negative input is unexpected, never a kind mismatch.
func (d *Decoder) makeSetUint(bits int) setter {
	maxValue := ^uint64(0)
	if bits < 64 {
		maxValue = uint64(1)<<bits - 1
	}

	return func(src IntoValue, loc *ValuePointerRef, _ int, target reflect.Value) (error, bool) {
		switch src.Kind() {
		case KindInteger:
			intValue := src.IntoValue().Integer
			if intValue > maxValue {
				return d.errors().Unexpected(nil,
					fmt.Sprintf("value %d does not fit in uint%d", intValue, bits), loc)
			}

			target.SetUint(intValue)
			return nil, false

		case KindNegativeInteger:
			return d.errors().Unexpected(nil,
				fmt.Sprintf("value %d is negative, expected an unsigned integer", src.IntoValue().NegativeInteger), loc)

		default:
			return d.errors().IncorrectValueKind(nil, src.Kind(),
				[]ValueKind{KindInteger}, loc)
		}
	}
}

func (d *Decoder) setTextUnmarshaler(src IntoValue, loc *ValuePointerRef, _ int, target reflect.Value) (error, bool) {
	if kind := src.Kind(); kind != KindString {
		return d.errors().IncorrectValueKind(nil, kind, []ValueKind{KindString}, loc)
	}

	m := target.Addr().Interface().(encoding.TextUnmarshaler)
	if err := m.UnmarshalText([]byte(src.IntoValue().String)); err != nil {
		return d.errors().Merge(nil, err, loc)
	}

	return nil, false
}

func (d *Decoder) makeSetPointer(inConstruction typeSet, ty reflect.Type) (setter, error) {
	pointeeType := ty.Elem()

	pointeeSetter, err := d.setterOf(inConstruction, pointeeType)
	if err != nil {
		return nil, err
	}

	setter := func(src IntoValue, loc *ValuePointerRef, depth int, target reflect.Value) (error, bool) {
		// null clears the pointer, everything else decodes the pointee
		if src.Kind() == KindNull {
			target.Set(reflect.Zero(ty))
			return nil, false
		}

		// newValue is now a pointer to an instance of the pointeeType
		newValue := reflect.New(pointeeType)
		if err, fatal := pointeeSetter(src, loc, depth, newValue.Elem()); err != nil {
			return err, fatal
		}

		// set pointer to the new value
		target.Set(newValue)

		return nil, false
	}

	return setter, nil
}

func (d *Decoder) makeSetSlice(inConstruction typeSet, ty reflect.Type) (setter, error) {
	elementSetter, err := d.setterOf(inConstruction, ty.Elem())
	if err != nil {
		return nil, fmt.Errorf("setter for element type %q: %w", ty, err)
	}

	// a empty element
	placeholderValue := reflect.New(ty.Elem()).Elem()

	setter := func(src IntoValue, loc *ValuePointerRef, depth int, target reflect.Value) (error, bool) {
		if err, fatal := d.checkDepth(depth, loc); err != nil {
			return err, fatal
		}

		if kind := src.Kind(); kind != KindSequence {
			return d.errors().IncorrectValueKind(nil, kind, []ValueKind{KindSequence}, loc)
		}

		seq := src.IntoValue().Sequence

		out := reflect.MakeSlice(ty, 0, seq.Len())

		idx := 0
		for elementSrc := range seq.Iter() {
			// add an empty element to grow the list
			out = reflect.Append(out, placeholderValue)

			elementValue := out.Index(idx)
			if err, fatal := elementSetter(elementSrc, loc.PushIndex(idx), depth+1, elementValue); err != nil {
				// the first failing element fails the whole sequence
				return err, fatal
			}

			idx++
		}

		target.Set(out)

		return nil, false
	}

	return setter, nil
}

// makeSetArray builds the setter for a fixed length array. The sequence must
// have exactly the array's length; a length mismatch is unexpected, not a
// kind mismatch.
func (d *Decoder) makeSetArray(inConstruction typeSet, ty reflect.Type) (setter, error) {
	elementSetter, err := d.setterOf(inConstruction, ty.Elem())
	if err != nil {
		return nil, fmt.Errorf("setter for element type %q: %w", ty, err)
	}

	// number of elements in the array
	elementCount := ty.Len()

	setter := func(src IntoValue, loc *ValuePointerRef, depth int, target reflect.Value) (error, bool) {
		if err, fatal := d.checkDepth(depth, loc); err != nil {
			return err, fatal
		}

		if kind := src.Kind(); kind != KindSequence {
			return d.errors().IncorrectValueKind(nil, kind, []ValueKind{KindSequence}, loc)
		}

		seq := src.IntoValue().Sequence
		if seq.Len() != elementCount {
			return d.errors().Unexpected(nil,
				fmt.Sprintf("expected a sequence of length %d, got %d", elementCount, seq.Len()), loc)
		}

		idx := 0
		for elementSrc := range seq.Iter() {
			elementValue := target.Index(idx)
			if err, fatal := elementSetter(elementSrc, loc.PushIndex(idx), depth+1, elementValue); err != nil {
				return err, fatal
			}

			idx++
		}

		return nil, false
	}

	return setter, nil
}

func (d *Decoder) makeSetMap(inConstruction typeSet, ty reflect.Type) (setter, error) {
	parseKey, err := d.makeKeyParser(ty.Key())
	if err != nil {
		return nil, fmt.Errorf("key parser for type %q: %w", ty, err)
	}

	valueSetter, err := d.setterOf(inConstruction, ty.Elem())
	if err != nil {
		return nil, fmt.Errorf("setter for value type %q: %w", ty, err)
	}

	keyType := ty.Key()
	valueType := ty.Elem()

	setter := func(src IntoValue, loc *ValuePointerRef, depth int, target reflect.Value) (error, bool) {
		if err, fatal := d.checkDepth(depth, loc); err != nil {
			return err, fatal
		}

		if kind := src.Kind(); kind != KindMap {
			return d.errors().IncorrectValueKind(nil, kind, []ValueKind{KindMap}, loc)
		}

		m := src.IntoValue().Map

		out := reflect.MakeMapWithSize(ty, m.Len())

		for key, valueSrc := range m.Iter() {
			keyTarget := reflect.New(keyType).Elem()
			if err := parseKey(key, keyTarget); err != nil {
				return d.errors().Unexpected(nil,
					fmt.Sprintf("invalid map key %q: %v", key, err), loc)
			}

			valueTarget := reflect.New(valueType).Elem()
			if err, fatal := valueSetter(valueSrc, loc.PushKey(key), depth+1, valueTarget); err != nil {
				// the first failing entry fails the whole map
				return err, fatal
			}

			out.SetMapIndex(keyTarget, valueTarget)
		}

		target.Set(out)

		return nil, false
	}

	return setter, nil
}

// makeKeyParser builds the conversion from a map's string keys to the target
// key type.
func (d *Decoder) makeKeyParser(ty reflect.Type) (func(key string, target reflect.Value) error, error) {
	if reflect.PointerTo(ty).Implements(tyTextUnmarshaler) {
		return func(key string, target reflect.Value) error {
			return target.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(key))
		}, nil
	}

	switch ty.Kind() {
	case reflect.String:
		return func(key string, target reflect.Value) error {
			target.SetString(key)
			return nil
		}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits := ty.Bits()
		return func(key string, target reflect.Value) error {
			intValue, err := strconv.ParseInt(key, 10, bits)
			if err != nil {
				return err
			}

			target.SetInt(intValue)
			return nil
		}, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		bits := ty.Bits()
		return func(key string, target reflect.Value) error {
			intValue, err := strconv.ParseUint(key, 10, bits)
			if err != nil {
				return err
			}

			target.SetUint(intValue)
			return nil
		}, nil

	default:
		return nil, NotSupportedError{Type: ty}
	}
}

// checkDepth aborts the decode once values nest deeper than the configured
// limit, regardless of the error builder's continue-vs-abort preference.
func (d *Decoder) checkDepth(depth int, loc *ValuePointerRef) (error, bool) {
	if depth <= d.depthLimit() {
		return nil, false
	}

	err, _ := d.errors().Unexpected(nil, "maximum decode depth exceeded", loc)
	return err, true
}
