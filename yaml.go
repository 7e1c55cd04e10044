package devalue

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLBytes parses a YAML document into an [IntoValue] source. Mappings with
// non-string keys are not supported by the value model and adapt as null.
func YAMLBytes(data []byte) (IntoValue, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	return AnyValue{Value: tree}, nil
}

// YAMLReader parses a YAML document from r into an [IntoValue] source.
func YAMLReader(r io.Reader) (IntoValue, error) {
	dec := yaml.NewDecoder(r)

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	return AnyValue{Value: tree}, nil
}
