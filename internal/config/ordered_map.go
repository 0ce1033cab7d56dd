package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"keyforge/internal/errs"
)

// OrderedMap decodes a YAML mapping while preserving both insertion order
// and the source position of each key. The positions let context
// construction point a fault back at the offending entry, which a plain Go
// map cannot do, and there is no ordered-map library anywhere in the
// dependency pack, so this is built directly on yaml.Node.
type OrderedMap[T any] struct {
	keys  []string
	index map[string]int
	values []T
	pos    map[string]errs.Position
}

// NewOrderedMap returns an empty map ready for Set.
func NewOrderedMap[T any]() *OrderedMap[T] {
	return &OrderedMap[T]{index: make(map[string]int)}
}

// Keys returns the keys in insertion order.
func (m *OrderedMap[T]) Keys() []string {
	return m.keys
}

// Len reports the number of entries.
func (m *OrderedMap[T]) Len() int {
	return len(m.keys)
}

// Get looks up a value by key.
func (m *OrderedMap[T]) Get(key string) (T, bool) {
	var zero T
	i, ok := m.index[key]
	if !ok {
		return zero, false
	}
	return m.values[i], true
}

// Position returns the source position of key, if known.
func (m *OrderedMap[T]) Position(key string) errs.Position {
	return m.pos[key]
}

// Has reports whether key is present.
func (m *OrderedMap[T]) Has(key string) bool {
	_, ok := m.index[key]
	return ok
}

// Set inserts or overwrites key, appending to the end if it is new.
func (m *OrderedMap[T]) Set(key string, value T) {
	if i, ok := m.index[key]; ok {
		m.values[i] = value
		return
	}
	m.index[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.values = append(m.values, value)
}

// SetAt is like Set but also records the source position of the key.
func (m *OrderedMap[T]) SetAt(key string, value T, pos errs.Position) {
	m.Set(key, value)
	if m.pos == nil {
		m.pos = make(map[string]errs.Position)
	}
	m.pos[key] = pos
}

// Delete removes key, if present, preserving the order of the rest.
func (m *OrderedMap[T]) Delete(key string) {
	i, ok := m.index[key]
	if !ok {
		return
	}
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.values = append(m.values[:i], m.values[i+1:]...)
	delete(m.index, key)
	for k, idx := range m.index {
		if idx > i {
			m.index[k] = idx - 1
		}
	}
}

// UnmarshalYAML walks node.Content in pairs to decode a mapping node while
// recording insertion order and each key's line/column.
func (m *OrderedMap[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected a YAML mapping, got kind %d at line %d", node.Kind, node.Line)
	}
	*m = *NewOrderedMap[T]()
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]
		var value T
		if err := valNode.Decode(&value); err != nil {
			return fmt.Errorf("decoding value for key %q: %w", keyNode.Value, err)
		}
		m.SetAt(keyNode.Value, value, errs.Position{Line: keyNode.Line, Column: keyNode.Column})
	}
	return nil
}

// MarshalYAML re-emits the map as a mapping node in insertion order.
func (m *OrderedMap[T]) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range m.keys {
		v, _ := m.Get(k)
		var valNode yaml.Node
		if err := valNode.Encode(v); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &valNode)
	}
	return node, nil
}
