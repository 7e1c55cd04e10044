package devalue

import (
	"strconv"
	"strings"
)

// ValuePointerRef is one node of a backward-linked path from the decode root
// to the value currently being processed. A nil *ValuePointerRef is the
// origin. Each Push borrows the parent node, so a ref must not outlive the
// decode call that created it; the error-free path never copies the chain.
type ValuePointerRef struct {
	prev  *ValuePointerRef
	key   string
	index int
	isKey bool
}

// PushKey returns the path extended by a map key.
func (p *ValuePointerRef) PushKey(key string) *ValuePointerRef {
	return &ValuePointerRef{prev: p, key: key, isKey: true}
}

// PushIndex returns the path extended by a sequence index.
func (p *ValuePointerRef) PushIndex(index int) *ValuePointerRef {
	return &ValuePointerRef{prev: p, index: index}
}

// ToOwned copies the borrowed chain into an owned [ValuePointer], reversing it
// into root-first order. This is the only allocation the location machinery
// performs and it happens when an error must survive past the decode call.
func (p *ValuePointerRef) ToOwned() ValuePointer {
	var n int
	for ref := p; ref != nil; ref = ref.prev {
		n++
	}

	components := make([]Component, n)
	for ref := p; ref != nil; ref = ref.prev {
		n--
		if ref.isKey {
			components[n] = Component{Key: ref.key, IsKey: true}
		} else {
			components[n] = Component{Index: ref.index}
		}
	}

	return ValuePointer{Components: components}
}

// Component is one step of an owned pointer: a map key or a sequence index.
type Component struct {
	Key   string
	Index int
	IsKey bool
}

// ValuePointer is the owned form of a decode location, root first.
type ValuePointer struct {
	Components []Component
}

// String renders the pointer in JSON Pointer style, e.g. "/items/2/price".
// The origin renders as the empty string.
func (p ValuePointer) String() string {
	if len(p.Components) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, c := range p.Components {
		sb.WriteByte('/')
		if c.IsKey {
			sb.WriteString(c.Key)
		} else {
			sb.WriteString(strconv.Itoa(c.Index))
		}
	}

	return sb.String()
}
