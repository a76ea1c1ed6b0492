// Package jsontree provides a tagged-variant JSON tree that keeps object keys
// in document order. Raw Databricks responses are decoded into Nodes so that
// masks can project them without reflection over interface{} values.
package jsontree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies which variant a Node holds
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Node is one value of a JSON document. The zero Node is null.
type Node struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	arr  []Node
	obj  *orderedmap.OrderedMap[string, Node]
}

// Field is a key/value pair used to build objects
type Field struct {
	Key   string
	Value Node
}

// NullNode returns a null node
func NullNode() Node { return Node{} }

// BoolNode returns a boolean node
func BoolNode(v bool) Node { return Node{kind: Bool, b: v} }

// NumberNode returns a number node holding the literal as decoded
func NumberNode(v json.Number) Node { return Node{kind: Number, num: v} }

// IntNode returns a number node for an integer
func IntNode(v int64) Node { return Node{kind: Number, num: json.Number(strconv.FormatInt(v, 10))} }

// StringNode returns a string node
func StringNode(v string) Node { return Node{kind: String, str: v} }

// ArrayNode returns an array node. A nil slice yields an empty array.
func ArrayNode(items ...Node) Node {
	if items == nil {
		items = []Node{}
	}
	return Node{kind: Array, arr: items}
}

// ObjectNode returns an object node with fields in the given order.
// A repeated key keeps its first position and its last value.
func ObjectNode(fields ...Field) Node {
	obj := orderedmap.New[string, Node]()
	for _, f := range fields {
		obj.Set(f.Key, f.Value)
	}
	return Node{kind: Object, obj: obj}
}

// Kind reports the variant held by n
func (n Node) Kind() Kind { return n.kind }

// IsNull reports whether n is null
func (n Node) IsNull() bool { return n.kind == Null }

// Get returns the value stored under key when n is an object
func (n Node) Get(key string) (Node, bool) {
	if n.kind != Object || n.obj == nil {
		return Node{}, false
	}
	return n.obj.Get(key)
}

// Keys returns object keys in order, or nil for non-objects
func (n Node) Keys() []string {
	if n.kind != Object || n.obj == nil {
		return nil
	}
	keys := make([]string, 0, n.obj.Len())
	for pair := n.obj.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Fields returns the object's key/value pairs in order
func (n Node) Fields() []Field {
	if n.kind != Object || n.obj == nil {
		return nil
	}
	fields := make([]Field, 0, n.obj.Len())
	for pair := n.obj.Oldest(); pair != nil; pair = pair.Next() {
		fields = append(fields, Field{Key: pair.Key, Value: pair.Value})
	}
	return fields
}

// Items returns the elements of an array node, or nil for non-arrays
func (n Node) Items() []Node {
	if n.kind != Array {
		return nil
	}
	return n.arr
}

// Len returns the number of elements of an array or fields of an object
func (n Node) Len() int {
	switch n.kind {
	case Array:
		return len(n.arr)
	case Object:
		if n.obj == nil {
			return 0
		}
		return n.obj.Len()
	default:
		return 0
	}
}

// Str returns the string value of a string node
func (n Node) Str() (string, bool) {
	if n.kind != String {
		return "", false
	}
	return n.str, true
}

// Num returns the number literal of a number node
func (n Node) Num() (json.Number, bool) {
	if n.kind != Number {
		return "", false
	}
	return n.num, true
}

// BoolValue returns the value of a bool node
func (n Node) BoolValue() (bool, bool) {
	if n.kind != Bool {
		return false, false
	}
	return n.b, true
}

// StringField is a shortcut for reading a string-valued object field
func (n Node) StringField(key string) string {
	v, ok := n.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.Str()
	return s
}

// Equal reports deep equality, including object key order
func (n Node) Equal(other Node) bool {
	if n.kind != other.kind {
		return false
	}
	switch n.kind {
	case Null:
		return true
	case Bool:
		return n.b == other.b
	case Number:
		return n.num == other.num
	case String:
		return n.str == other.str
	case Array:
		if len(n.arr) != len(other.arr) {
			return false
		}
		for i := range n.arr {
			if !n.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		a, b := n.Fields(), other.Fields()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i].Key != b[i].Key || !a[i].Value.Equal(b[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Parse decodes a single JSON document
func Parse(data []byte) (Node, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a single JSON document from r. Numbers are kept as literals.
func Decode(r io.Reader) (Node, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	n, err := decodeValue(dec)
	if err != nil {
		return Node{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Node{}, errors.New("unexpected data after JSON document")
	}
	return n, nil
}

func decodeValue(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return Node{}, err
	}

	switch v := tok.(type) {
	case nil:
		return NullNode(), nil
	case bool:
		return BoolNode(v), nil
	case json.Number:
		return NumberNode(v), nil
	case string:
		return StringNode(v), nil
	case json.Delim:
		switch v {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return Node{}, fmt.Errorf("unexpected delimiter %q", v)
	default:
		return Node{}, fmt.Errorf("unexpected token %v", tok)
	}
}

func decodeObject(dec *json.Decoder) (Node, error) {
	obj := orderedmap.New[string, Node]()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Node{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Node{}, fmt.Errorf("object key must be a string, got %v", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return Node{}, err
		}
		obj.Set(key, val)
	}
	// closing brace
	if _, err := dec.Token(); err != nil {
		return Node{}, err
	}
	return Node{kind: Object, obj: obj}, nil
}

func decodeArray(dec *json.Decoder) (Node, error) {
	items := make([]Node, 0)
	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return Node{}, err
		}
		items = append(items, val)
	}
	// closing bracket
	if _, err := dec.Token(); err != nil {
		return Node{}, err
	}
	return Node{kind: Array, arr: items}, nil
}

// MarshalJSON encodes n compactly, objects in key order
func (n Node) MarshalJSON() ([]byte, error) {
	return n.appendJSON(make([]byte, 0, 64))
}

// UnmarshalJSON decodes data into n
func (n *Node) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

func (n Node) appendJSON(b []byte) ([]byte, error) {
	switch n.kind {
	case Null:
		return append(b, "null"...), nil
	case Bool:
		return strconv.AppendBool(b, n.b), nil
	case Number:
		if n.num == "" {
			return append(b, '0'), nil
		}
		return append(b, n.num...), nil
	case String:
		return appendString(b, n.str)
	case Array:
		b = append(b, '[')
		for i, item := range n.arr {
			if i > 0 {
				b = append(b, ',')
			}
			var err error
			if b, err = item.appendJSON(b); err != nil {
				return nil, err
			}
		}
		return append(b, ']'), nil
	case Object:
		b = append(b, '{')
		if n.obj != nil {
			first := true
			for pair := n.obj.Oldest(); pair != nil; pair = pair.Next() {
				if !first {
					b = append(b, ',')
				}
				first = false
				var err error
				if b, err = appendString(b, pair.Key); err != nil {
					return nil, err
				}
				b = append(b, ':')
				if b, err = pair.Value.appendJSON(b); err != nil {
					return nil, err
				}
			}
		}
		return append(b, '}'), nil
	default:
		return nil, fmt.Errorf("unknown node kind %d", n.kind)
	}
}

func appendString(b []byte, s string) ([]byte, error) {
	quoted, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return append(b, quoted...), nil
}

// String returns the compact JSON encoding of n
func (n Node) String() string {
	b, err := n.MarshalJSON()
	if err != nil {
		return "<invalid>"
	}
	return string(b)
}
