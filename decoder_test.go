package devalue

import (
	"net"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnmarshalStruct(t *testing.T) {
	type Address struct {
		City    string
		ZipCode int32 `json:"zip,omitempty"`
	}

	//goland:noinspection ALL
	type Student struct {
		Name       string
		AgeInYears int64  `json:"age"`
		SkipThis   string `json:"-"`
		Tags       Tags
		Address    *Address
		Height     float32
		Accepted   bool

		// not exported, must not be set
		note string
	}

	source := AnyValue{Value: map[string]any{
		"Name": "Albert",
		"age":  21,

		"Height": 1.76,

		"Tags": "foo,bar",
		"Address": map[string]any{
			"City": "Zürich",
			"zip":  8015,
		},
		"Accepted": true,

		// should not be used
		"SkipThis": "FOOBAR",
		"-":        "FOOBAR",
	}}

	stud, err := UnmarshalNew[Student](source)
	require.Equal(t, err, nil)
	require.Equal(t, stud, Student{
		Name:       "Albert",
		AgeInYears: 21,
		Tags:       Tags{"foo", "bar"},
		Height:     1.76,
		Accepted:   true,
		Address: &Address{
			City:    "Zürich",
			ZipCode: 8015,
		},
	})
}

func TestUnmarshalStructWithMap(t *testing.T) {
	type Struct struct {
		Type   string
		Values map[string]string
	}

	source := AnyValue{Value: map[string]any{
		"Type": "Foo",
		"Values": map[string]any{
			"One": "Eins",
			"Two": "Zwei",
		},
	}}

	stud, err := UnmarshalNew[Struct](source)
	require.Equal(t, err, nil)
	require.Equal(t, stud, Struct{
		Type: "Foo",
		Values: map[string]string{
			"One": "Eins",
			"Two": "Zwei",
		},
	})
}

func TestUnmarshalMapIntKeys(t *testing.T) {
	source := AnyValue{Value: map[string]any{
		"1": "one",
		"2": "two",
	}}

	parsed, err := UnmarshalNew[map[int8]string](source)
	require.NoError(t, err)
	require.Equal(t, parsed, map[int8]string{1: "one", 2: "two"})
}

func TestUnmarshalMapInvalidKey(t *testing.T) {
	source := AnyValue{Value: map[string]any{
		"not a number": "one",
	}}

	_, err := UnmarshalNew[map[int]string](source)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, de.Code, CodeUnexpected)
}

func TestNaming_JsonTagExplicit(t *testing.T) {
	type Struct struct {
		A string
		B string `json:"A"`
	}

	source := AnyValue{Value: map[string]any{
		"A": "A",
	}}

	stud, err := UnmarshalNew[Struct](source)
	require.Equal(t, err, nil)
	require.Equal(t, stud, Struct{B: "A"})
}

func TestNaming_EmbeddedNamingConflict(t *testing.T) {
	type First struct{ A string }
	type Second struct{ A string }

	type Struct struct {
		First
		Second
	}

	source := AnyValue{Value: map[string]any{
		"A": "A",
	}}

	stud, err := UnmarshalNew[Struct](source)
	require.Equal(t, err, nil)
	require.Equal(t, stud, Struct{
		// naming conflict, nothing deserializes
	})
}

func TestNaming_EmbeddedNamingExplicitWinsOnSameNesting(t *testing.T) {
	type First struct {
		A string
	}
	type Second struct {
		A string `json:"A"` // this one wins
	}

	type Struct struct {
		First
		Second
	}

	source := AnyValue{Value: map[string]any{
		"A": "A",
	}}

	stud, err := UnmarshalNew[Struct](source)
	require.Equal(t, err, nil)
	require.Equal(t, stud, Struct{Second: Second{A: "A"}})
}

func TestNaming_EmbeddedLowerNestingWins(t *testing.T) {
	type First struct{ A string }

	type Struct struct {
		First
		A string // this one wins
	}

	source := AnyValue{Value: map[string]any{
		"A": "A",
	}}

	stud, err := UnmarshalNew[Struct](source)
	require.Equal(t, err, nil)
	require.Equal(t, stud, Struct{A: "A"})
}

func TestNaming_NoEmbeddingWithExplicitTag(t *testing.T) {
	type First struct{ A string }

	type Struct struct {
		First `json:"First"`
		A     string
	}

	source := AnyValue{Value: map[string]any{
		"A":     "A",
		"First": map[string]any{"A": "FirstA"},
	}}

	stud, err := UnmarshalNew[Struct](source)
	require.Equal(t, err, nil)
	require.Equal(t, stud, Struct{A: "A", First: First{A: "FirstA"}})
}

func TestNaming_NoEmbeddingWithPointer(t *testing.T) {
	type First struct{ A string }

	type Struct struct {
		*First
	}

	source := AnyValue{Value: map[string]any{}}

	stud, err := UnmarshalNew[Struct](source)
	require.Equal(t, err, nil)
	require.Equal(t, stud, Struct{})
}

func TestUnsupportedType(t *testing.T) {
	type Struct struct{ A any }

	_, err := UnmarshalNew[Struct](AnyValue{Value: map[string]any{}})

	var notSupportedError NotSupportedError
	require.ErrorAs(t, err, &notSupportedError)
	require.Equal(t, notSupportedError.Type, reflect.TypeFor[any]())
}

func TestTypeUint(t *testing.T) {
	type Struct struct{ A uint }

	parsed, err := UnmarshalNew[Struct](AnyValue{Value: map[string]any{"A": 1234}})

	require.NoError(t, err)
	require.Equal(t, parsed, Struct{A: 1234})
}

func TestTypeIntRange(t *testing.T) {
	parsed, err := UnmarshalNew[int8](AnyValue{Value: -128})
	require.NoError(t, err)
	require.Equal(t, parsed, int8(-128))

	// one past the low end
	_, err = UnmarshalNew[int8](AnyValue{Value: -129})

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, de.Code, CodeUnexpected)

	// one past the high end
	_, err = UnmarshalNew[int8](AnyValue{Value: 128})
	require.ErrorAs(t, err, &de)
	require.Equal(t, de.Code, CodeUnexpected)
}

func TestTypeUintRejectsNegative(t *testing.T) {
	// a negative value is in the integer family, rejecting it is an
	// unexpected-value error rather than a kind mismatch
	_, err := UnmarshalNew[uint8](AnyValue{Value: -5})

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, de.Code, CodeUnexpected)

	_, err = UnmarshalNew[uint8](AnyValue{Value: 256})
	require.ErrorAs(t, err, &de)
	require.Equal(t, de.Code, CodeUnexpected)

	parsed, err := UnmarshalNew[uint8](AnyValue{Value: 255})
	require.NoError(t, err)
	require.Equal(t, parsed, uint8(255))
}

func TestTypeFloatWidens(t *testing.T) {
	parsed, err := UnmarshalNew[float64](AnyValue{Value: 21})
	require.NoError(t, err)
	require.Equal(t, parsed, 21.0)

	parsed, err = UnmarshalNew[float64](AnyValue{Value: -21})
	require.NoError(t, err)
	require.Equal(t, parsed, -21.0)

	_, err = UnmarshalNew[float64](AnyValue{Value: "21"})

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, de.Code, CodeIncorrectValueKind)
	require.Equal(t, de.Actual, KindString)
}

func TestTypeBoolKindMismatch(t *testing.T) {
	_, err := UnmarshalNew[bool](AnyValue{Value: "true"})

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, de.Code, CodeIncorrectValueKind)
	require.Equal(t, de.Accepted, []ValueKind{KindBoolean})
}

func TestDecoderWithStructTag(t *testing.T) {
	type Struct struct {
		Foo string `url:"foo" json:"bar"`
	}

	source := AnyValue{Value: map[string]any{"foo": "Url", "bar": "Json"}}

	dec := NewDecoder().WithTag("json")
	parsed, err := UnmarshalNewWith[Struct](dec, source)
	require.NoError(t, err)
	require.Equal(t, parsed, Struct{Foo: "Json"})

	dec = dec.WithTag("url")

	parsed, err = UnmarshalNewWith[Struct](dec, source)
	require.NoError(t, err)
	require.Equal(t, parsed, Struct{Foo: "Url"})
}

type Tags []string

func (t *Tags) UnmarshalText(text []byte) error {
	*t = strings.Split(string(text), ",")
	return nil
}

func TestTextUnmarshaler(t *testing.T) {
	source := AnyValue{Value: map[string]any{
		"Host": "127.0.0.1",
		"Port": 80,
	}}

	type Host struct {
		Host net.IP
		Port *int
	}

	http := 80

	value, err := UnmarshalNew[Host](source)
	require.Equal(t, err, nil)
	require.Equal(t, value, Host{
		Host: net.IPv4(127, 0, 0, 1),
		Port: &http,
	})
}

func TestTextUnmarshalerFailure(t *testing.T) {
	type Host struct {
		Host net.IP
	}

	_, err := UnmarshalNew[Host](AnyValue{Value: map[string]any{
		"Host": "not an ip",
	}})

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, de.Pointer.String(), "/Host")
}

func TestUnmarshalGitCommit(t *testing.T) {
	type GitCommit struct {
		Sha1   string
		Parent *GitCommit
	}

	source := AnyValue{Value: map[string]any{
		"Sha1": "aaaa",
		"Parent": map[string]any{
			"Sha1": "bbbb",
			"Parent": map[string]any{
				"Sha1":   "cccc",
				"Parent": nil,
			},
		},
	}}

	value, err := UnmarshalNew[GitCommit](source)
	require.Equal(t, err, nil)
	require.Equal(t, value, GitCommit{
		Sha1: "aaaa",
		Parent: &GitCommit{
			Sha1: "bbbb",
			Parent: &GitCommit{
				Sha1:   "cccc",
				Parent: nil,
			},
		},
	})
}

func TestUnmarshalSliceValue(t *testing.T) {
	type Article struct {
		Text string
		Tags []string
	}

	source := AnyValue{Value: map[string]any{
		"Text": "some long text",
		"Tags": []any{
			"first",
			"second",
			"third",
		},
	}}

	value, err := UnmarshalNew[Article](source)
	require.Equal(t, err, nil)
	require.Equal(t, value, Article{
		Text: "some long text",
		Tags: []string{
			"first",
			"second",
			"third",
		},
	})
}

func TestUnmarshalSliceFirstErrorWins(t *testing.T) {
	source := AnyValue{Value: []any{1, "two", "three"}}

	_, err := UnmarshalNew[[]int](source)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, de.Code, CodeIncorrectValueKind)
	require.Equal(t, de.Pointer.String(), "/1")
}

func TestUnmarshalArrayValue(t *testing.T) {
	source := AnyValue{Value: []any{"first", "second", "third"}}

	tags, err := UnmarshalNew[[3]string](source)
	require.Equal(t, err, nil)
	require.Equal(t, tags, [3]string{"first", "second", "third"})
}

func TestUnmarshalArrayLengthMismatch(t *testing.T) {
	source := AnyValue{Value: []any{"first", "second", "third"}}

	// an array demands exactly its own length, a shorter or longer
	// sequence is an unexpected-value error rather than a kind mismatch
	_, err := UnmarshalNew[[2]string](source)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, de.Code, CodeUnexpected)

	_, err = UnmarshalNew[[4]string](source)
	require.ErrorAs(t, err, &de)
	require.Equal(t, de.Code, CodeUnexpected)
}

func TestUnmarshalPointerNull(t *testing.T) {
	value := 42
	target := &value

	err := Unmarshal(AnyValue{Value: nil}, &target)
	require.NoError(t, err)
	require.Nil(t, target)
}

func TestMaxDepth(t *testing.T) {
	type Node struct {
		Next *Node
	}

	tree := map[string]any{}
	leaf := tree
	for range 8 {
		next := map[string]any{}
		leaf["Next"] = next
		leaf = next
	}

	_, err := UnmarshalNew[Node](AnyValue{Value: tree})
	require.NoError(t, err)

	dec := NewDecoder().WithMaxDepth(4)
	_, err = UnmarshalNewWith[Node](dec, AnyValue{Value: tree})

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, de.Code, CodeUnexpected)
	require.Equal(t, de.Message, "maximum decode depth exceeded")
}

func TestMaxDepthAlwaysAborts(t *testing.T) {
	type Node struct {
		Next *Node
	}

	tree := map[string]any{}
	leaf := tree
	for range 8 {
		next := map[string]any{}
		leaf["Next"] = next
		leaf = next
	}

	// even a never-aborting builder can not push past the depth limit
	dec := NewDecoder().WithMaxDepth(4).WithErrorBuilder(CollectErrors{})
	_, err := UnmarshalNewWith[Node](dec, AnyValue{Value: tree})

	var des DecodeErrors
	require.ErrorAs(t, err, &des)
	require.Len(t, des, 1)
	require.Equal(t, des[0].Message, "maximum decode depth exceeded")
}
