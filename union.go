package devalue

import (
	"fmt"
	"reflect"
)

// Union describes an internally tagged union: the input is a map whose Tag
// entry names the active variant, with the remaining entries holding that
// variant's fields. Decoding into the Interface type dispatches on the tag.
type Union struct {
	Interface reflect.Type
	Tag       string
	Variants  []Variant
}

// Variant binds one tag value to the struct type it decodes into. A struct
// without fields acts as a unit variant.
type Variant struct {
	Name string
	Type reflect.Type
}

// UnionOf describes a tagged union decoded into the interface type I.
func UnionOf[I any](tag string, variants ...Variant) Union {
	return Union{Interface: reflect.TypeFor[I](), Tag: tag, Variants: variants}
}

// VariantOf declares that tag value name selects the struct type T.
func VariantOf[T any](name string) Variant {
	return Variant{Name: name, Type: reflect.TypeFor[T]()}
}

type compiledVariant struct {
	ty     reflect.Type
	schema *objectSchema

	// set when the variant satisfies the interface through its pointer type
	wrapPointer bool
}

func (d *Decoder) makeSetUnion(inConstruction typeSet, u Union) (setter, error) {
	variants := make(map[string]compiledVariant, len(u.Variants))

	for _, variant := range u.Variants {
		if variant.Type.Kind() != reflect.Struct {
			return nil, fmt.Errorf("union variant %q: %w", variant.Name, NotSupportedError{Type: variant.Type})
		}

		var wrapPointer bool
		switch {
		case variant.Type.Implements(u.Interface):
		case reflect.PointerTo(variant.Type).Implements(u.Interface):
			wrapPointer = true
		default:
			return nil, fmt.Errorf("union variant %q: %s does not implement %s", variant.Name, variant.Type, u.Interface)
		}

		schema, err := d.compileObject(inConstruction, variant.Type)
		if err != nil {
			return nil, fmt.Errorf("union variant %q: %w", variant.Name, err)
		}

		variants[variant.Name] = compiledVariant{
			ty:          variant.Type,
			schema:      schema,
			wrapPointer: wrapPointer,
		}
	}

	setter := func(src IntoValue, loc *ValuePointerRef, depth int, target reflect.Value) (error, bool) {
		if err, fatal := d.checkDepth(depth, loc); err != nil {
			return err, fatal
		}

		if kind := src.Kind(); kind != KindMap {
			return d.errors().IncorrectValueKind(nil, kind, []ValueKind{KindMap}, loc)
		}

		m := src.IntoValue().Map

		// the tag is extracted before the remaining entries are interpreted,
		// so it never counts as a declared field or an unknown key below
		tagSrc, ok := m.Remove(u.Tag)
		if !ok {
			return d.errors().MissingField(nil, u.Tag, loc)
		}

		if tagSrc.Kind() != KindString {
			return d.errors().Unexpected(nil,
				fmt.Sprintf("the %q tag must be a string", u.Tag), loc.PushKey(u.Tag))
		}

		// tag values match variant names exactly, there is no fallback
		tag := tagSrc.IntoValue().String
		variant, ok := variants[tag]
		if !ok {
			return d.errors().Unexpected(nil,
				fmt.Sprintf("unexpected value %q for tag %q", tag, u.Tag), loc)
		}

		out := reflect.New(variant.ty).Elem()
		if err, fatal := d.decodeObject(variant.schema, m, loc, depth, out); err != nil {
			return err, fatal
		}

		if variant.wrapPointer {
			target.Set(out.Addr())
		} else {
			target.Set(out)
		}

		return nil, false
	}

	return setter, nil
}
