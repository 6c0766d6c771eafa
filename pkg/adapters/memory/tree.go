package memory

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
)

// TextTag is the tag reported by text nodes.
const TextTag = "#text"

// Document is an in-memory tree with an html, head and body element.
// It is not safe for concurrent use.
type Document struct {
	html *Node
	head *Node
	body *Node
}

var _ ports.Document = (*Document)(nil)

// NewDocument creates an empty document.
func NewDocument() *Document {
	d := &Document{}
	d.html = d.element("html")
	d.head = d.element("head")
	d.body = d.element("body")
	d.html.children = []*Node{d.head, d.body}
	d.head.parent = d.html
	d.body.parent = d.html
	return d
}

// Root returns the body element.
func (d *Document) Root() ports.Node { return d.body }

// Head returns the head element.
func (d *Document) Head() ports.Node { return d.head }

// Body returns the body element with its concrete type.
func (d *Document) Body() *Node { return d.body }

// CreateElement creates a detached element.
func (d *Document) CreateElement(tag string) (ports.Node, error) {
	if tag == "" || strings.HasPrefix(tag, "#") {
		return nil, fmt.Errorf("invalid tag %q", tag)
	}
	return d.element(strings.ToLower(tag)), nil
}

// CreateText creates a detached text node.
func (d *Document) CreateText(text string) (ports.Node, error) {
	n := d.element(TextTag)
	n.text = text
	return n, nil
}

// HTML serializes the whole document.
func (d *Document) HTML() string {
	return d.html.HTML()
}

func (d *Document) element(tag string) *Node {
	return &Node{doc: d, tag: tag}
}

type attr struct {
	key, value string
}

// Node is an element or text node of a Document.
type Node struct {
	doc      *Document
	tag      string
	text     string
	parent   *Node
	children []*Node
	attrs    []attr
	styles   []attr
	props    map[string]any

	listeners map[string]map[int]func(ports.Event)
	nextID    int
}

var (
	_ ports.Node        = (*Node)(nil)
	_ ports.EventTarget = (*Node)(nil)
)

// Identity returns the node pointer.
func (n *Node) Identity() any { return n }

// Tag returns the element name or "#text".
func (n *Node) Tag() string { return n.tag }

// Parent returns the parent node, or nil when detached.
func (n *Node) Parent() ports.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// Children returns a copy of the child list.
func (n *Node) Children() []ports.Node {
	out := make([]ports.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

// AppendChild moves child to the end of n's children.
func (n *Node) AppendChild(child ports.Node) (ports.Node, error) {
	c, err := n.own(child)
	if err != nil {
		return nil, err
	}
	c.detach()
	c.parent = n
	n.children = append(n.children, c)
	n.dispatch("childList", c)
	return c, nil
}

// InsertBefore moves newNode before ref. A nil ref appends.
func (n *Node) InsertBefore(newNode, ref ports.Node) (ports.Node, error) {
	if ref == nil {
		return n.AppendChild(newNode)
	}
	c, err := n.own(newNode)
	if err != nil {
		return nil, err
	}
	r, err := n.own(ref)
	if err != nil {
		return nil, err
	}
	if r.parent != n {
		return nil, fmt.Errorf("insert before %s: %w", r.label(), domain.ErrNotChild)
	}
	if c == r {
		return c, nil
	}
	c.detach()
	idx := n.indexOf(r)
	n.children = append(n.children[:idx+1], n.children[idx:]...)
	n.children[idx] = c
	c.parent = n
	n.dispatch("childList", c)
	return c, nil
}

// ReplaceChild puts newChild where oldChild is and returns oldChild.
func (n *Node) ReplaceChild(newChild, oldChild ports.Node) (ports.Node, error) {
	c, err := n.own(newChild)
	if err != nil {
		return nil, err
	}
	o, err := n.own(oldChild)
	if err != nil {
		return nil, err
	}
	if o.parent != n {
		return nil, fmt.Errorf("replace %s: %w", o.label(), domain.ErrNotChild)
	}
	if c == o {
		return o, nil
	}
	c.detach()
	idx := n.indexOf(o)
	n.children[idx] = c
	c.parent = n
	o.parent = nil
	n.dispatch("childList", c)
	return o, nil
}

// RemoveChild detaches child and returns it.
func (n *Node) RemoveChild(child ports.Node) (ports.Node, error) {
	c, err := n.own(child)
	if err != nil {
		return nil, err
	}
	if c.parent != n {
		return nil, fmt.Errorf("remove %s: %w", c.label(), domain.ErrNotChild)
	}
	c.detach()
	n.dispatch("childList", c)
	return c, nil
}

// Attribute returns the value of key.
func (n *Node) Attribute(key string) (string, bool) {
	for _, a := range n.attrs {
		if a.key == key {
			return a.value, true
		}
	}
	return "", false
}

// SetAttribute sets key, keeping the original position of existing attributes.
func (n *Node) SetAttribute(key, value string) error {
	if n.tag == TextTag {
		return fmt.Errorf("set attribute %q on text node", key)
	}
	n.attrs = upsert(n.attrs, key, value)
	n.dispatch("attributes", key)
	return nil
}

// RemoveAttribute deletes key. Removing a missing attribute is not an error.
func (n *Node) RemoveAttribute(key string) error {
	n.attrs = remove(n.attrs, key)
	n.dispatch("attributes", key)
	return nil
}

// SetStyle sets one inline style property. An empty value removes it.
func (n *Node) SetStyle(prop, value string) error {
	if n.tag == TextTag {
		return fmt.Errorf("set style %q on text node", prop)
	}
	if value == "" {
		n.styles = remove(n.styles, prop)
	} else {
		n.styles = upsert(n.styles, prop, value)
	}
	n.dispatch("style", prop)
	return nil
}

// Style returns the inline value of prop.
func (n *Node) Style(prop string) (string, bool) {
	for _, s := range n.styles {
		if s.key == prop {
			return s.value, true
		}
	}
	return "", false
}

// Property reads a property. "textContent" is computed from the subtree.
func (n *Node) Property(name string) (any, bool) {
	if name == "textContent" {
		return n.TextContent(), true
	}
	v, ok := n.props[name]
	return v, ok
}

// SetProperty writes a property. Setting "textContent" on an element replaces
// its children with a single text node.
func (n *Node) SetProperty(name string, value any) error {
	if name == "textContent" {
		text := fmt.Sprint(value)
		if value == nil {
			text = ""
		}
		n.setText(text)
		n.dispatch("characterData", text)
		return nil
	}
	if n.props == nil {
		n.props = make(map[string]any)
	}
	n.props[name] = value
	n.dispatch("property", name)
	return nil
}

// TextContent concatenates the text of the subtree.
func (n *Node) TextContent() string {
	if n.tag == TextTag {
		return n.text
	}
	var b strings.Builder
	for _, c := range n.children {
		b.WriteString(c.TextContent())
	}
	return b.String()
}

// AddEventListener registers fn for event. Mutations dispatch "childList",
// "attributes", "style", "characterData" and "property" events.
func (n *Node) AddEventListener(event string, fn func(ports.Event)) func() {
	if n.listeners == nil {
		n.listeners = make(map[string]map[int]func(ports.Event))
	}
	if n.listeners[event] == nil {
		n.listeners[event] = make(map[int]func(ports.Event))
	}
	id := n.nextID
	n.nextID++
	n.listeners[event][id] = fn
	return func() {
		delete(n.listeners[event], id)
	}
}

// HTML serializes the subtree rooted at n.
func (n *Node) HTML() string {
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n *Node) String() string {
	return n.label()
}

func (n *Node) render(b *strings.Builder) {
	if n.tag == TextTag {
		b.WriteString(html.EscapeString(n.text))
		return
	}
	b.WriteString("<" + n.tag)
	for _, a := range n.attrs {
		fmt.Fprintf(b, ` %s="%s"`, a.key, html.EscapeString(a.value))
	}
	if len(n.styles) > 0 {
		parts := make([]string, 0, len(n.styles))
		for _, s := range n.styles {
			parts = append(parts, s.key+": "+s.value)
		}
		fmt.Fprintf(b, ` style="%s"`, html.EscapeString(strings.Join(parts, "; ")))
	}
	b.WriteString(">")
	for _, c := range n.children {
		c.render(b)
	}
	b.WriteString("</" + n.tag + ">")
}

func (n *Node) setText(text string) {
	if n.tag == TextTag {
		n.text = text
		return
	}
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = nil
	if text == "" {
		return
	}
	t := n.doc.element(TextTag)
	t.text = text
	t.parent = n
	n.children = []*Node{t}
}

func (n *Node) own(other ports.Node) (*Node, error) {
	c, ok := other.(*Node)
	if !ok || c == nil {
		return nil, fmt.Errorf("%T: %w", other, domain.ErrForeignNode)
	}
	if c.doc != n.doc {
		return nil, fmt.Errorf("node from another document: %w", domain.ErrForeignNode)
	}
	return c, nil
}

func (n *Node) detach() {
	p := n.parent
	if p == nil {
		return
	}
	if i := p.indexOf(n); i >= 0 {
		p.children = append(p.children[:i], p.children[i+1:]...)
	}
	n.parent = nil
}

func (n *Node) indexOf(c *Node) int {
	for i, x := range n.children {
		if x == c {
			return i
		}
	}
	return -1
}

func (n *Node) label() string {
	if id, ok := n.Attribute("id"); ok && id != "" {
		return n.tag + "#" + id
	}
	return n.tag
}

func (n *Node) dispatch(event string, detail any) {
	fns := n.listeners[event]
	if len(fns) == 0 {
		return
	}
	ids := make([]int, 0, len(fns))
	for id := range fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	ev := ports.Event{Type: event, Target: n, Detail: detail}
	for _, id := range ids {
		if fn, ok := fns[id]; ok {
			fn(ev)
		}
	}
}

func upsert(list []attr, key, value string) []attr {
	for i := range list {
		if list[i].key == key {
			list[i].value = value
			return list
		}
	}
	return append(list, attr{key: key, value: value})
}

func remove(list []attr, key string) []attr {
	for i := range list {
		if list[i].key == key {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
