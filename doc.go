// Package devalue decodes an already-parsed, format-agnostic value tree onto go
// types (e.g. structs, slices, strings, etc) while keeping track of precise,
// location-tagged errors.
//
// The [IntoValue] contract adapts an arbitrary backing representation (a JSON
// tree, a YAML tree, a hand-built map) to the canonical [Value] model. The
// [Decoder.Unmarshal] function walks the target type and pulls data out of the
// value tree, similar to [encoding/json.Unmarshal], but with the interpretation of
// errors left to a pluggable [ErrorBuilder]: the application decides, per
// problem, whether decoding aborts immediately or keeps going to surface every
// problem of the input in a single pass.
package devalue
