package devalue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONBytes(t *testing.T) {
	type Item struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}

	type Order struct {
		ID    uint64 `json:"id"`
		Items []Item `json:"items"`
	}

	source, err := JSONBytes([]byte(`{
		"id": 18446744073709551615,
		"items": [
			{"name": "screws", "price": 2.5},
			{"name": "nails", "price": 1.25}
		]
	}`))
	require.NoError(t, err)

	order, err := UnmarshalNew[Order](source)
	require.NoError(t, err)
	require.Equal(t, order, Order{
		ID: 18446744073709551615,
		Items: []Item{
			{Name: "screws", Price: 2.5},
			{Name: "nails", Price: 1.25},
		},
	})
}

func TestJSONBytesInvalid(t *testing.T) {
	_, err := JSONBytes([]byte(`{"unterminated": `))
	require.Error(t, err)
}

func TestJSONReaderErrorLocation(t *testing.T) {
	type Item struct {
		Price float64 `json:"price"`
	}
	type Order struct {
		Items []Item `json:"items"`
	}

	source, err := JSONReader(strings.NewReader(`{"items": [{"price": 1.0}, {"price": "oops"}]}`))
	require.NoError(t, err)

	_, err = UnmarshalNew[Order](source)
	require.Equal(t, LocationOf(err).String(), "/items/1/price")
}
