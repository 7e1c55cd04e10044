package devalue

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// JSONBytes parses a JSON document into an [IntoValue] source. Numbers are
// kept in their textual form so integers retain their full range instead of
// collapsing to float64.
func JSONBytes(data []byte) (IntoValue, error) {
	return JSONReader(bytes.NewReader(data))
}

// JSONReader parses a JSON document from r into an [IntoValue] source.
func JSONReader(r io.Reader) (IntoValue, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	return AnyValue{Value: tree}, nil
}
