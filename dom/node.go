package dom

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/chrisuehlinger/evtarget/events"
)

// Node is one node of a parsed document. It is an event target whose parent
// is the node's parent in the markup, so events dispatched on it capture down
// from the document and bubble back up.
type Node struct {
	*events.Target

	raw      *html.Node
	doc      *Document
	parent   *Node
	children []*Node
}

// Name returns the lower-case tag name for elements and "#text",
// "#comment", "#document" or "#doctype" for the other kinds.
func (n *Node) Name() string {
	switch n.raw.Type {
	case html.ElementNode:
		return n.raw.Data
	case html.TextNode:
		return "#text"
	case html.CommentNode:
		return "#comment"
	case html.DocumentNode:
		return "#document"
	case html.DoctypeNode:
		return "#doctype"
	}
	return "#unknown"
}

// Attr returns the value of the attribute key, or "".
func (n *Node) Attr(key string) string {
	return htmlquery.SelectAttr(n.raw, key)
}

// HasAttr reports whether the node carries the attribute key.
func (n *Node) HasAttr(key string) bool {
	for _, a := range n.raw.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// Text returns the concatenated text content of the node.
func (n *Node) Text() string { return htmlquery.InnerText(n.raw) }

// Raw returns the underlying x/net/html node.
func (n *Node) Raw() *html.Node { return n.raw }

// Document returns the document the node belongs to.
func (n *Node) Document() *Document { return n.doc }

// Parent returns the parent node, or nil for the document.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the child nodes in document order.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// Path returns the node followed by its ancestors up to the document, which
// is the order events bubble in.
func (n *Node) Path() []*Node {
	var path []*Node
	for p := n; p != nil; p = p.parent {
		path = append(path, p)
	}
	return path
}

// Label returns a short selector-like description such as div#main.card.
func (n *Node) Label() string {
	var sb strings.Builder
	sb.WriteString(n.Name())
	if id := n.Attr("id"); id != "" {
		sb.WriteString("#")
		sb.WriteString(id)
	}
	for _, class := range strings.Fields(n.Attr("class")) {
		sb.WriteString(".")
		sb.WriteString(class)
	}
	return sb.String()
}

// String implements fmt.Stringer.
func (n *Node) String() string { return n.Label() }
