// Package html backs ports.Node with golang.org/x/net/html trees, so sessions
// can run against real parsed markup and serialize the result.
package html

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/aretw0/vista/pkg/ports"
)

// Document is a parsed HTML document.
// It is not safe for concurrent use.
type Document struct {
	root  *xhtml.Node
	head  *xhtml.Node
	body  *xhtml.Node
	props map[*xhtml.Node]map[string]any
}

var _ ports.Document = (*Document)(nil)

const skeleton = "<!DOCTYPE html><html><head></head><body></body></html>"

// NewDocument creates an empty document.
func NewDocument() *Document {
	d, err := Parse(strings.NewReader(skeleton))
	if err != nil {
		// The skeleton is constant and always parses.
		panic(err)
	}
	return d
}

// Parse reads a document. The parser always synthesizes head and body.
func Parse(r io.Reader) (*Document, error) {
	root, err := xhtml.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	d := &Document{
		root:  root,
		props: make(map[*xhtml.Node]map[string]any),
	}
	d.head = find(root, atom.Head)
	d.body = find(root, atom.Body)
	if d.head == nil || d.body == nil {
		return nil, fmt.Errorf("document has no head or body")
	}
	return d, nil
}

// Root returns the body element.
func (d *Document) Root() ports.Node { return d.wrap(d.body) }

// Head returns the head element.
func (d *Document) Head() ports.Node { return d.wrap(d.head) }

// CreateElement creates a detached element.
func (d *Document) CreateElement(tag string) (ports.Node, error) {
	if tag == "" || strings.HasPrefix(tag, "#") {
		return nil, fmt.Errorf("invalid tag %q", tag)
	}
	tag = strings.ToLower(tag)
	return d.wrap(&xhtml.Node{
		Type:     xhtml.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}), nil
}

// CreateText creates a detached text node.
func (d *Document) CreateText(text string) (ports.Node, error) {
	return d.wrap(&xhtml.Node{Type: xhtml.TextNode, Data: text}), nil
}

// Render writes the whole document.
func (d *Document) Render(w io.Writer) error {
	return xhtml.Render(w, d.root)
}

// HTML serializes the whole document.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// BodyHTML serializes the body's children only.
func (d *Document) BodyHTML() string {
	var buf bytes.Buffer
	for c := d.body.FirstChild; c != nil; c = c.NextSibling {
		if err := xhtml.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

// Node returns the underlying html node of n, if n belongs to this document.
func (d *Document) Node(n ports.Node) (*xhtml.Node, bool) {
	e, ok := n.(*Element)
	if !ok || e.doc != d {
		return nil, false
	}
	return e.n, true
}

func (d *Document) wrap(n *xhtml.Node) *Element {
	if n == nil {
		return nil
	}
	return &Element{doc: d, n: n}
}

func find(n *xhtml.Node, a atom.Atom) *xhtml.Node {
	if n.Type == xhtml.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}
