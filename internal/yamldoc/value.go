// Package yamldoc exposes a parsed YAML document as a shape-agnostic tree.
//
// Question-bank files are validated for shape, so nothing here assumes
// one: every lookup yields a Value that may be absent, and callers decide
// what absence means.
package yamldoc

import (
	"encoding/json"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind classifies a Value.
type Kind int

const (
	// Absent is the Kind of a lookup that found nothing.
	Absent Kind = iota
	Null
	Scalar
	Sequence
	Mapping
)

func (k Kind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Null:
		return "null"
	case Scalar:
		return "scalar"
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is a read-only view over a yaml.Node. The zero Value is absent.
type Value struct {
	node *yaml.Node
}

// FromNode wraps n. Document nodes are unwrapped to their root content and
// aliases are followed to their anchors.
func FromNode(n *yaml.Node) Value {
	return Value{node: resolve(n)}
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null"}
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

// Kind reports the shape of v.
func (v Value) Kind() Kind {
	if v.node == nil {
		return Absent
	}
	switch v.node.Kind {
	case yaml.MappingNode:
		return Mapping
	case yaml.SequenceNode:
		return Sequence
	case yaml.ScalarNode:
		if v.node.ShortTag() == "!!null" {
			return Null
		}
		return Scalar
	default:
		// Zero node: decoder output for an empty stream.
		return Null
	}
}

// Present reports whether v is anything other than Absent. A key whose
// value is null is present.
func (v Value) Present() bool {
	return v.node != nil
}

// Get returns the value stored under key when v is a mapping, and an
// absent Value otherwise. Keys brought in by a merge key (<<) are found
// too; keys written directly in the mapping win over merged ones.
func (v Value) Get(key string) Value {
	var found Value
	v.eachPair(func(k string, val *yaml.Node) bool {
		if k == key {
			found = FromNode(val)
			return false
		}
		return true
	})
	return found
}

// eachPair calls fn for every key of a mapping in lookup order: the
// mapping's own keys first, then the keys of each merged mapping. fn stops
// the walk by returning false.
func (v Value) eachPair(fn func(key string, val *yaml.Node) bool) bool {
	if v.Kind() != Mapping {
		return true
	}
	c := v.node.Content
	var merges []*yaml.Node
	for i := 0; i+1 < len(c); i += 2 {
		k := resolve(c[i])
		if k == nil || k.Kind != yaml.ScalarNode {
			continue
		}
		if isMergeKey(k) {
			merges = append(merges, c[i+1])
			continue
		}
		if !fn(k.Value, c[i+1]) {
			return false
		}
	}
	for _, m := range merges {
		src := FromNode(m)
		switch src.Kind() {
		case Mapping:
			if !src.eachPair(fn) {
				return false
			}
		case Sequence:
			// Earlier mappings in a merge list take precedence.
			for _, it := range src.Items() {
				if !it.eachPair(fn) {
					return false
				}
			}
		}
	}
	return true
}

func isMergeKey(k *yaml.Node) bool {
	return k.ShortTag() == "!!merge"
}

// Has reports whether v is a mapping containing key.
func (v Value) Has(key string) bool {
	return v.Get(key).Present()
}

// Items returns the entries of a sequence, or nil for any other kind.
func (v Value) Items() []Value {
	if v.Kind() != Sequence {
		return nil
	}
	out := make([]Value, len(v.node.Content))
	for i, c := range v.node.Content {
		out[i] = FromNode(c)
	}
	return out
}

// Text returns the literal text of a scalar, or "" for any other kind.
func (v Value) Text() string {
	if v.Kind() != Scalar {
		return ""
	}
	return v.node.Value
}

// IsTrue reports whether v is a boolean scalar equal to true. Strings
// such as "true" and integers such as 1 are not booleans.
func (v Value) IsTrue() bool {
	if v.Kind() != Scalar || v.node.ShortTag() != "!!bool" {
		return false
	}
	var b bool
	if err := v.node.Decode(&b); err != nil {
		return false
	}
	return b
}

// Line returns the 1-based source line of v, or 0 when unknown.
func (v Value) Line() int {
	if v.node == nil {
		return 0
	}
	return v.node.Line
}

// Interface converts v into plain Go values the way encoding/json would
// produce them: map[string]any, []any, string, bool, json.Number or nil.
func (v Value) Interface() any {
	switch v.Kind() {
	case Mapping:
		m := make(map[string]any, len(v.node.Content)/2)
		v.eachPair(func(k string, val *yaml.Node) bool {
			if _, dup := m[k]; !dup {
				m[k] = FromNode(val).Interface()
			}
			return true
		})
		return m
	case Sequence:
		items := v.Items()
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = it.Interface()
		}
		return out
	case Scalar:
		return scalarInterface(v.node)
	default:
		return nil
	}
}

func scalarInterface(n *yaml.Node) any {
	switch n.ShortTag() {
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return b
		}
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return json.Number(strconv.FormatInt(i, 10))
		}
	case "!!float":
		var f float64
		if err := n.Decode(&f); err == nil {
			if b, err := json.Marshal(f); err == nil {
				return json.Number(b)
			}
		}
	}
	return n.Value
}
