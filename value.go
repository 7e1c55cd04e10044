package devalue

import "iter"

// ValueKind identifies which variant of a [Value] is active.
//
// Integer and NegativeInteger are deliberately separate kinds: a backing
// format may carry unsigned magnitudes larger than an int64 can hold, so
// non-negative integers travel as uint64 and negative ones as int64.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBoolean
	KindInteger
	KindNegativeInteger
	KindFloat
	KindString
	KindSequence
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindNegativeInteger:
		return "negative integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is the canonical view of one node of parsed input. Exactly one payload
// field is meaningful, indicated by Kind. A Value exclusively owns the
// Sequence or Map it wraps; the sub-views must not be shared with the original
// tree node.
type Value struct {
	Kind            ValueKind
	Boolean         bool
	Integer         uint64
	NegativeInteger int64
	Float           float64
	String          string
	Sequence        Sequence
	Map             Map
}

// IntoValue describes a backing tree node that can be fed into the [Unmarshal]
// function. It is implemented once per backing representation, see [AnyValue]
// for a ready-made implementation over plain go trees.
type IntoValue interface {
	// Kind reports the variant that IntoValue will produce. It must be pure:
	// calling it must not change the node, and repeated calls must agree with
	// each other and with the eventual conversion.
	Kind() ValueKind

	// IntoValue converts the node into its canonical [Value] form. The node is
	// consumed; callers convert each node at most once.
	IntoValue() Value
}

// Sequence is the view of a sequence node. Len must report the accurate
// element count (it is used to size output containers) and Iter must yield
// elements in their original order.
type Sequence interface {
	Len() int
	Iter() iter.Seq[IntoValue]
}

// Map is the view of a map node. Remove extracts the value stored under a key,
// reporting whether it was present; tagged-union decoding relies on it to pull
// the tag out before the remaining entries are interpreted as variant fields.
// Iter yields the (still remaining) entries.
type Map interface {
	Len() int
	Remove(key string) (IntoValue, bool)
	Iter() iter.Seq2[string, IntoValue]
}
