package render

import (
	"html"
	"strings"
)

// Node is one renderable element of a resolved document tree. A Node with an
// empty Tag and no children is literal text; an empty Tag with children is a
// transparent fragment that contributes only its children.
type Node struct {
	Tag      string
	Text     string // literal text, or pre-rendered markup when Raw is set
	Attrs    []Attr // ordered attributes
	Children []*Node
	Raw      bool
	Key      string // stable id carried from the source block
}

// Attr is one HTML attribute
type Attr struct {
	Name  string
	Value string
}

// Text creates a literal text node
func Text(text string) *Node {
	return &Node{Text: text}
}

// Elem creates an element node wrapping the given children
func Elem(tag string, children ...*Node) *Node {
	return &Node{Tag: tag, Children: children}
}

// Fragment creates a transparent grouping node
func Fragment(children ...*Node) *Node {
	return &Node{Children: children}
}

// WithAttr appends one attribute and returns the node
func (n *Node) WithAttr(name, value string) *Node {
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return n
}

var voidTags = map[string]bool{
	"img": true,
	"br":  true,
	"hr":  true,
}

// HTML serializes the node tree to markup, escaping all text content and
// attribute values.
func (n *Node) HTML() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	if n == nil {
		return
	}

	if n.Tag == "" && n.Children == nil {
		if n.Raw {
			b.WriteString(n.Text)
		} else {
			b.WriteString(html.EscapeString(n.Text))
		}
		return
	}

	if n.Tag != "" {
		b.WriteString("<")
		b.WriteString(n.Tag)
		for _, a := range n.Attrs {
			b.WriteString(" ")
			b.WriteString(a.Name)
			b.WriteString("=\"")
			b.WriteString(html.EscapeString(a.Value))
			b.WriteString("\"")
		}
		if voidTags[n.Tag] {
			b.WriteString("/>")
			return
		}
		b.WriteString(">")
	}

	for _, child := range n.Children {
		child.write(b)
	}

	if n.Tag != "" {
		b.WriteString("</")
		b.WriteString(n.Tag)
		b.WriteString(">")
	}
}

// RenderAll serializes a node sequence in order
func RenderAll(nodes []*Node) string {
	var b strings.Builder
	for _, n := range nodes {
		n.write(&b)
	}
	return b.String()
}

// CollectText walks the tree and concatenates all literal text, trimmed.
// Raw markup nodes are skipped.
func CollectText(n *Node) string {
	var acc []string
	collectText(n, &acc)
	return strings.TrimSpace(strings.Join(acc, ""))
}

func collectText(n *Node, acc *[]string) {
	if n == nil {
		return
	}
	if n.Tag == "" && n.Children == nil {
		if !n.Raw {
			*acc = append(*acc, n.Text)
		}
		return
	}
	for _, child := range n.Children {
		collectText(child, acc)
	}
}
