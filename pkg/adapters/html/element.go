package html

import (
	"fmt"
	"strings"

	xhtml "golang.org/x/net/html"

	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
)

// Element adapts one *html.Node. Several Element values may wrap the same
// node; they share its identity.
type Element struct {
	doc *Document
	n   *xhtml.Node
}

var _ ports.Node = (*Element)(nil)

// Identity returns the underlying *html.Node.
func (e *Element) Identity() any { return e.n }

// Tag returns the element name, or "#text" for text nodes.
func (e *Element) Tag() string {
	switch e.n.Type {
	case xhtml.TextNode:
		return "#text"
	case xhtml.CommentNode:
		return "#comment"
	}
	return e.n.Data
}

// Parent returns the parent element, or nil when detached or at the document node.
func (e *Element) Parent() ports.Node {
	p := e.n.Parent
	if p == nil || p.Type == xhtml.DocumentNode {
		return nil
	}
	return e.doc.wrap(p)
}

// Children lists element, text and comment children, skipping doctype nodes.
func (e *Element) Children() []ports.Node {
	var out []ports.Node
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xhtml.DoctypeNode {
			continue
		}
		out = append(out, e.doc.wrap(c))
	}
	return out
}

// AppendChild moves child to the end of e's children.
func (e *Element) AppendChild(child ports.Node) (ports.Node, error) {
	c, err := e.own(child)
	if err != nil {
		return nil, err
	}
	if err := e.container(); err != nil {
		return nil, err
	}
	detach(c)
	e.n.AppendChild(c)
	return e.doc.wrap(c), nil
}

// InsertBefore moves newNode before ref. A nil ref appends.
func (e *Element) InsertBefore(newNode, ref ports.Node) (ports.Node, error) {
	if ref == nil {
		return e.AppendChild(newNode)
	}
	c, err := e.own(newNode)
	if err != nil {
		return nil, err
	}
	r, err := e.own(ref)
	if err != nil {
		return nil, err
	}
	if r.Parent != e.n {
		return nil, fmt.Errorf("insert before <%s>: %w", r.Data, domain.ErrNotChild)
	}
	if c == r {
		return e.doc.wrap(c), nil
	}
	detach(c)
	e.n.InsertBefore(c, r)
	return e.doc.wrap(c), nil
}

// ReplaceChild puts newChild where oldChild is and returns oldChild.
func (e *Element) ReplaceChild(newChild, oldChild ports.Node) (ports.Node, error) {
	c, err := e.own(newChild)
	if err != nil {
		return nil, err
	}
	o, err := e.own(oldChild)
	if err != nil {
		return nil, err
	}
	if o.Parent != e.n {
		return nil, fmt.Errorf("replace <%s>: %w", o.Data, domain.ErrNotChild)
	}
	if c != o {
		detach(c)
		e.n.InsertBefore(c, o)
		e.n.RemoveChild(o)
	}
	return e.doc.wrap(o), nil
}

// RemoveChild detaches child and returns it.
func (e *Element) RemoveChild(child ports.Node) (ports.Node, error) {
	c, err := e.own(child)
	if err != nil {
		return nil, err
	}
	if c.Parent != e.n {
		return nil, fmt.Errorf("remove <%s>: %w", c.Data, domain.ErrNotChild)
	}
	e.n.RemoveChild(c)
	return e.doc.wrap(c), nil
}

// Attribute returns the value of key.
func (e *Element) Attribute(key string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttribute sets key.
func (e *Element) SetAttribute(key, value string) error {
	if e.n.Type != xhtml.ElementNode {
		return fmt.Errorf("set attribute %q on %s", key, e.Tag())
	}
	key = strings.ToLower(key)
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			e.n.Attr[i].Val = value
			return nil
		}
	}
	e.n.Attr = append(e.n.Attr, xhtml.Attribute{Key: key, Val: value})
	return nil
}

// RemoveAttribute deletes key.
func (e *Element) RemoveAttribute(key string) error {
	key = strings.ToLower(key)
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			e.n.Attr = append(e.n.Attr[:i], e.n.Attr[i+1:]...)
			return nil
		}
	}
	return nil
}

// SetStyle rewrites one declaration of the style attribute. An empty value
// removes it.
func (e *Element) SetStyle(prop, value string) error {
	current, _ := e.Attribute("style")
	decls := parseStyle(current)
	decls = setDecl(decls, prop, value)
	if len(decls) == 0 {
		return e.RemoveAttribute("style")
	}
	return e.SetAttribute("style", formatStyle(decls))
}

// Style returns one declaration of the style attribute.
func (e *Element) Style(prop string) (string, bool) {
	current, _ := e.Attribute("style")
	for _, d := range parseStyle(current) {
		if d[0] == prop {
			return d[1], true
		}
	}
	return "", false
}

// Property reads a property. "textContent" is computed from the subtree,
// "className" and "id" mirror their attributes.
func (e *Element) Property(name string) (any, bool) {
	switch name {
	case "textContent":
		return textContent(e.n), true
	case "className":
		v, ok := e.Attribute("class")
		return v, ok
	case "id":
		v, ok := e.Attribute("id")
		return v, ok
	}
	v, ok := e.doc.props[e.n][name]
	return v, ok
}

// SetProperty writes a property. "textContent" replaces an element's children
// with one text node; other names are kept beside the tree.
func (e *Element) SetProperty(name string, value any) error {
	switch name {
	case "textContent":
		text := ""
		if value != nil {
			text = fmt.Sprint(value)
		}
		setText(e.n, text)
		return nil
	case "className":
		return e.SetAttribute("class", fmt.Sprint(value))
	case "id":
		return e.SetAttribute("id", fmt.Sprint(value))
	}
	props := e.doc.props[e.n]
	if props == nil {
		props = make(map[string]any)
		e.doc.props[e.n] = props
	}
	props[name] = value
	return nil
}

func (e *Element) String() string {
	return "<" + e.Tag() + ">"
}

func (e *Element) own(other ports.Node) (*xhtml.Node, error) {
	o, ok := other.(*Element)
	if !ok || o == nil {
		return nil, fmt.Errorf("%T: %w", other, domain.ErrForeignNode)
	}
	if o.doc != e.doc {
		return nil, fmt.Errorf("node from another document: %w", domain.ErrForeignNode)
	}
	return o.n, nil
}

func (e *Element) container() error {
	if e.n.Type != xhtml.ElementNode {
		return fmt.Errorf("%s cannot have children", e.Tag())
	}
	return nil
}

func detach(n *xhtml.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func textContent(n *xhtml.Node) string {
	if n.Type == xhtml.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func setText(n *xhtml.Node, text string) {
	if n.Type == xhtml.TextNode {
		n.Data = text
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if text != "" {
		n.AppendChild(&xhtml.Node{Type: xhtml.TextNode, Data: text})
	}
}

func parseStyle(s string) [][2]string {
	var decls [][2]string
	for _, part := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" {
			continue
		}
		decls = append(decls, [2]string{k, v})
	}
	return decls
}

func setDecl(decls [][2]string, prop, value string) [][2]string {
	for i, d := range decls {
		if d[0] != prop {
			continue
		}
		if value == "" {
			return append(decls[:i], decls[i+1:]...)
		}
		decls[i][1] = value
		return decls
	}
	if value == "" {
		return decls
	}
	return append(decls, [2]string{prop, value})
}

func formatStyle(decls [][2]string) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d[0]+": "+d[1])
	}
	return strings.Join(parts, "; ")
}
