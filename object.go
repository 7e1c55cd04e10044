package devalue

import (
	"fmt"
	"reflect"
)

// Defaulter provides the value used when the map key of a struct field is
// absent from the input. The receiver starts out as the zero value.
//
// Pointer fields need no Defaulter: an absent pointer field defaults to nil.
type Defaulter interface {
	ApplyDefault()
}

var tyDefaulter = reflect.TypeFor[Defaulter]()

// fieldState tracks one struct field over the course of an object decode.
type fieldState int

const (
	// no value seen for the field yet
	fieldMissing fieldState = iota

	// the field's sub-decode failed, but decoding continued to surface
	// further problems
	fieldFailed

	// the field holds a successfully decoded value
	fieldSet
)

// objectSchema is the compiled decode plan for a struct type: the declared
// fields in order, their setters, and the lookup tables derived from them.
type objectSchema struct {
	fields  []field
	setters []setter

	byName map[string]int
	known  []string
}

func (d *Decoder) compileObject(inConstruction typeSet, ty reflect.Type) (*objectSchema, error) {
	structTag := d.structTag
	if structTag == "" {
		structTag = "json"
	}

	fields := structFields(ty, structTag)

	schema := &objectSchema{
		fields: fields,
		byName: make(map[string]int, len(fields)),
		known:  make([]string, len(fields)),
	}

	for idx, field := range fields {
		fieldSetter, err := d.setterOf(inConstruction, field.Type)
		if err != nil {
			return nil, fmt.Errorf("setter for field %q: %w", field.Name, err)
		}

		schema.setters = append(schema.setters, fieldSetter)
		schema.byName[field.Name] = idx
		schema.known[idx] = field.Name
	}

	return schema, nil
}

func (d *Decoder) makeSetStruct(inConstruction typeSet, ty reflect.Type) (setter, error) {
	schema, err := d.compileObject(inConstruction, ty)
	if err != nil {
		return nil, err
	}

	setter := func(src IntoValue, loc *ValuePointerRef, depth int, target reflect.Value) (error, bool) {
		if err, fatal := d.checkDepth(depth, loc); err != nil {
			return err, fatal
		}

		if kind := src.Kind(); kind != KindMap {
			return d.errors().IncorrectValueKind(nil, kind, []ValueKind{KindMap}, loc)
		}

		return d.decodeObject(schema, src.IntoValue().Map, loc, depth, target)
	}

	return setter, nil
}

// decodeObject runs the single-pass field accumulation over the entries of m:
// declared keys decode into their field slot, undeclared keys fall to the
// unknown-key policy, and fields still missing at the end are defaulted or
// reported. The configured [ErrorBuilder] decides after every problem whether
// the scan continues; construction succeeds only when every field decoded.
//
// Tagged-union variant decoding reuses this with the tag entry already
// removed from m.
func (d *Decoder) decodeObject(schema *objectSchema, m Map, loc *ValuePointerRef, depth int, target reflect.Value) (error, bool) {
	states := make([]fieldState, len(schema.fields))

	var accumulated error

	for key, valueSrc := range m.Iter() {
		idx, declared := schema.byName[key]
		if !declared {
			if d.unknownKeys == UnknownIgnore {
				continue
			}

			var fatal bool
			accumulated, fatal = d.errors().UnknownKey(accumulated, key, schema.known, loc)
			if fatal {
				return accumulated, true
			}

			continue
		}

		fieldValue := target.FieldByIndex(schema.fields[idx].Index)

		err, fatal := schema.setters[idx](valueSrc, loc.PushKey(key), depth+1, fieldValue)
		switch {
		case err == nil:
			states[idx] = fieldSet

		case fatal:
			return err, true

		default:
			// record the failure and keep scanning the remaining entries
			states[idx] = fieldFailed

			accumulated, fatal = d.errors().Merge(accumulated, err, loc)
			if fatal {
				return accumulated, true
			}
		}
	}

	for idx, field := range schema.fields {
		if states[idx] != fieldMissing {
			continue
		}

		if applyDefault(field, target.FieldByIndex(field.Index)) {
			states[idx] = fieldSet
			continue
		}

		var fatal bool
		accumulated, fatal = d.errors().MissingField(accumulated, field.Name, loc)
		if fatal {
			return accumulated, true
		}
	}

	if accumulated != nil {
		return accumulated, false
	}

	return nil, false
}

// applyDefault fills in the value of an absent field, reporting whether the
// field's type defines one. Pointer fields default to nil; other types opt in
// by implementing [Defaulter].
func applyDefault(f field, target reflect.Value) bool {
	if f.Type.Kind() == reflect.Pointer {
		return true
	}

	if reflect.PointerTo(f.Type).Implements(tyDefaulter) {
		target.Addr().Interface().(Defaulter).ApplyDefault()
		return true
	}

	return false
}
