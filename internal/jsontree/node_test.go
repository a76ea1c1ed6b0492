package jsontree

import (
	"encoding/json"
	"testing"
)

func TestParse_PreservesKeyOrder(t *testing.T) {
	n, err := Parse([]byte(`{"zeta": 1, "alpha": 2, "mid": {"b": true, "a": null}}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	keys := n.Keys()
	want := []string{"zeta", "alpha", "mid"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}

	if got := n.String(); got != `{"zeta":1,"alpha":2,"mid":{"b":true,"a":null}}` {
		t.Errorf("round trip = %s", got)
	}
}

func TestParse_Kinds(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
	}{
		{`null`, Null},
		{`true`, Bool},
		{`12.50`, Number},
		{`"x"`, String},
		{`[1,2]`, Array},
		{`{}`, Object},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			n, err := Parse([]byte(tt.input))
			if err != nil {
				t.Fatalf("Parse(%s) failed: %v", tt.input, err)
			}
			if n.Kind() != tt.want {
				t.Errorf("kind = %s, want %s", n.Kind(), tt.want)
			}
		})
	}
}

func TestParse_KeepsNumberLiterals(t *testing.T) {
	n, err := Parse([]byte(`{"job_id": 1234567890123456789, "ratio": 12.50}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := n.String(); got != `{"job_id":1234567890123456789,"ratio":12.50}` {
		t.Errorf("encoding = %s", got)
	}
}

func TestParse_Errors(t *testing.T) {
	inputs := []string{``, `{`, `{"a":}`, `[1,]`, `{} {}`}
	for _, in := range inputs {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("Parse(%q) expected error", in)
		}
	}
}

func TestNode_Accessors(t *testing.T) {
	n := ObjectNode(
		Field{Key: "name", Value: StringNode("orders")},
		Field{Key: "columns", Value: ArrayNode(IntNode(1), IntNode(2))},
		Field{Key: "active", Value: BoolNode(true)},
	)

	if n.StringField("name") != "orders" {
		t.Errorf("StringField(name) = %q", n.StringField("name"))
	}
	if n.StringField("missing") != "" {
		t.Error("StringField on missing key should be empty")
	}
	cols, ok := n.Get("columns")
	if !ok || cols.Len() != 2 {
		t.Fatalf("columns = %v, %v", cols, ok)
	}
	if num, _ := cols.Items()[1].Num(); num != "2" {
		t.Errorf("columns[1] = %q, want 2", num)
	}
	if b, ok := n.Get("active"); !ok {
		t.Error("active missing")
	} else if v, _ := b.BoolValue(); !v {
		t.Error("active should be true")
	}
	if _, ok := StringNode("x").Get("name"); ok {
		t.Error("Get on a string node should fail")
	}
}

func TestNode_Equal(t *testing.T) {
	a, _ := Parse([]byte(`{"a":1,"b":[1,{"c":"d"}]}`))
	b, _ := Parse([]byte(`{"a":1,"b":[1,{"c":"d"}]}`))
	reordered, _ := Parse([]byte(`{"b":[1,{"c":"d"}],"a":1}`))

	if !a.Equal(b) {
		t.Error("identical documents should be equal")
	}
	if a.Equal(reordered) {
		t.Error("documents with different key order should not be equal")
	}
}

func TestNode_JSONInterop(t *testing.T) {
	type wrapper struct {
		Data Node `json:"data"`
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"data":{"y":1,"x":[true]}}`), &w); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	out, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `{"data":{"y":1,"x":[true]}}` {
		t.Errorf("Marshal = %s", out)
	}
}

func TestArrayNode_NilIsEmpty(t *testing.T) {
	if got := ArrayNode().String(); got != "[]" {
		t.Errorf("ArrayNode() = %s, want []", got)
	}
	if got := NullNode().String(); got != "null" {
		t.Errorf("NullNode() = %s, want null", got)
	}
}
