package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// NodeKind tells which field of a Node is set.
type NodeKind uint8

const (
	IntNode NodeKind = iota
	StrNode
	ListNode
)

// Node is one element of a source tree: an integer literal, a string token,
// or a list. A list whose first element is a string is a tagged node.
//
//	["set", "a", ["+", "a", 1]]
//	 ^^^^^  ^^^  ^^^^^^^^^^^^^
//	 tag    Str  tagged List
type Node struct {
	Kind  NodeKind
	Int   int
	Str   string
	Items []*Node
}

func Int(n int) *Node          { return &Node{Kind: IntNode, Int: n} }
func Str(s string) *Node        { return &Node{Kind: StrNode, Str: s} }
func List(items ...*Node) *Node { return &Node{Kind: ListNode, Items: items} }

// Tree builds a tagged node.
func Tree(tag string, children ...*Node) *Node {
	return List(append([]*Node{Str(tag)}, children...)...)
}

// Strs builds an untagged list of string tokens, as used for parameter lists.
func Strs(names ...string) *Node {
	items := make([]*Node, len(names))
	for i, n := range names {
		items[i] = Str(n)
	}
	return List(items...)
}

// Tag returns the head of a tagged node.
func (n *Node) Tag() (string, bool) {
	if n == nil || n.Kind != ListNode || len(n.Items) == 0 || n.Items[0].Kind != StrNode {
		return "", false
	}
	return n.Items[0].Str, true
}

// Rest returns the children after the tag.
func (n *Node) Rest() []*Node {
	if n.Kind != ListNode || len(n.Items) == 0 {
		return nil
	}
	return n.Items[1:]
}

// IsList reports whether n is a list (tagged or not).
func (n *Node) IsList() bool { return n != nil && n.Kind == ListNode }

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case IntNode:
		return strconv.Itoa(n.Int)
	case StrNode:
		return strconv.Quote(n.Str)
	}
	parts := make([]string, len(n.Items))
	for i, it := range n.Items {
		parts[i] = it.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ParseTree decodes the JSON form of a source tree: nested arrays of
// integers and strings.
func ParseTree(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	return decodeTree(dec)
}

// ReadTree is ParseTree over a reader.
func ReadTree(r io.Reader) (*Node, error) {
	return decodeTree(json.NewDecoder(r))
}

func decodeTree(dec *json.Decoder) (*Node, error) {
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode source tree: %w", err)
	}
	return fromJSON(raw)
}

func fromJSON(v any) (*Node, error) {
	switch x := v.(type) {
	case json.Number:
		n, err := strconv.Atoi(x.String())
		if err != nil {
			return nil, fmt.Errorf("source tree: non-integer literal %s", x)
		}
		return Int(n), nil
	case string:
		return Str(x), nil
	case []any:
		items := make([]*Node, len(x))
		for i, el := range x {
			child, err := fromJSON(el)
			if err != nil {
				return nil, err
			}
			items[i] = child
		}
		return List(items...), nil
	}
	return nil, fmt.Errorf("source tree: unsupported value %v (%T)", v, v)
}
