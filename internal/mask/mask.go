// Package mask projects Databricks responses onto declarative field allowlists.
//
// A mask is a tree of field names. A leaf keeps the field's value verbatim; an
// inner node keeps only the listed children. When the data is an array the same
// mask is applied to every element, so a mask written for one job also filters a
// list of jobs.
package mask

import (
	"fmt"

	"github.com/revodata/databricks-mcp-server/internal/jsontree"
	"gopkg.in/yaml.v3"
)

// Mask is an immutable field allowlist. The nil Mask and a Mask without
// children are leaves.
type Mask struct {
	keys     []string
	children map[string]*Mask
}

// Leaf returns a mask that keeps a value unchanged
func Leaf() *Mask { return &Mask{} }

// Entry is one named child used by New
type Entry struct {
	Name string
	Mask *Mask
}

// New builds a mask from entries in output order. A nil child mask is a leaf.
func New(entries ...Entry) *Mask {
	m := &Mask{children: make(map[string]*Mask, len(entries))}
	for _, e := range entries {
		if _, dup := m.children[e.Name]; !dup {
			m.keys = append(m.keys, e.Name)
		}
		child := e.Mask
		if child == nil {
			child = Leaf()
		}
		m.children[e.Name] = child
	}
	return m
}

// Fields is shorthand for a mask of leaves
func Fields(names ...string) *Mask {
	entries := make([]Entry, len(names))
	for i, name := range names {
		entries[i] = Entry{Name: name}
	}
	return New(entries...)
}

// IsLeaf reports whether m keeps values without descending
func (m *Mask) IsLeaf() bool {
	return m == nil || len(m.keys) == 0
}

// Keys returns the child names in output order
func (m *Mask) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Child returns the sub-mask for name
func (m *Mask) Child(name string) (*Mask, bool) {
	if m == nil {
		return nil, false
	}
	c, ok := m.children[name]
	return c, ok
}

// Apply filters data through m. It never fails: fields the data lacks are
// skipped and shape mismatches return the data unchanged.
func Apply(data jsontree.Node, m *Mask) jsontree.Node {
	switch data.Kind() {
	case jsontree.Array:
		items := data.Items()
		out := make([]jsontree.Node, len(items))
		for i, item := range items {
			out[i] = Apply(item, m)
		}
		return jsontree.ArrayNode(out...)

	case jsontree.Object:
		if m.IsLeaf() {
			return data
		}
		fields := make([]jsontree.Field, 0, len(m.keys))
		for _, key := range m.keys {
			value, ok := data.Get(key)
			if !ok {
				continue
			}
			fields = append(fields, jsontree.Field{Key: key, Value: Apply(value, m.children[key])})
		}
		return jsontree.ObjectNode(fields...)

	default:
		return data
	}
}

// Parse reads a mask from YAML. Mapping order is output order; null, empty
// mappings, sequences and scalars are leaves.
func Parse(data []byte) (*Mask, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid mask yaml: %w", err)
	}
	if doc.Kind == 0 {
		return Leaf(), nil
	}
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return Leaf(), nil
		}
		return fromYAML(doc.Content[0])
	}
	return fromYAML(&doc)
}

func fromYAML(n *yaml.Node) (*Mask, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		return fromYAML(n.Alias)
	}
	if n.Kind != yaml.MappingNode {
		return Leaf(), nil
	}

	entries := make([]Entry, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valueNode := n.Content[i], n.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mask keys must be scalars", keyNode.Line)
		}
		child, err := fromYAML(valueNode)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: keyNode.Value, Mask: child})
	}
	return New(entries...), nil
}
