package rod

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
)

// Node is a live DOM node. Its identity is the backend node id, which stays
// the same across remote object handles of one node.
type Node struct {
	doc *Document
	el  *rod.Element
	id  proto.DOMBackendNodeID
}

var _ ports.Node = (*Node)(nil)

// Element returns the rod element.
func (n *Node) Element() *rod.Element { return n.el }

// Identity returns the backend node id.
func (n *Node) Identity() any {
	if n.id != 0 {
		return n.id
	}
	desc, err := n.el.Describe(0, false)
	if err != nil {
		n.doc.fail(fmt.Errorf("describe node: %w", err))
		return n.el.Object.ObjectID
	}
	n.id = desc.BackendNodeID
	return n.id
}

// Tag returns the local name, or "#text" for text nodes.
func (n *Node) Tag() string {
	res, err := n.el.Eval(`() => this.nodeType === 1 ? this.localName : this.nodeName.toLowerCase()`)
	if err != nil {
		n.doc.fail(fmt.Errorf("read tag: %w", err))
		return ""
	}
	return res.Value.Str()
}

// Parent returns the parent element, or nil at the top or when detached.
func (n *Node) Parent() ports.Node {
	res, err := n.el.Evaluate(rod.Eval(`() => {
		const p = this.parentNode;
		return p && p.nodeType === 1 ? p : null;
	}`).ByObject())
	if err != nil {
		n.doc.fail(fmt.Errorf("read parent: %w", err))
		return nil
	}
	if res.Subtype == proto.RuntimeRemoteObjectSubtypeNull {
		return nil
	}
	p, err := n.doc.fromObject(res)
	if err != nil {
		n.doc.fail(fmt.Errorf("resolve parent: %w", err))
		return nil
	}
	return p
}

// Children returns the live child nodes.
func (n *Node) Children() []ports.Node {
	els, err := n.doc.page.ElementsByJS(rod.Eval(`() => Array.from(this.childNodes)`).This(n.el.Object))
	if err != nil {
		n.doc.fail(fmt.Errorf("read children: %w", err))
		return nil
	}
	out := make([]ports.Node, 0, len(els))
	for _, el := range els {
		out = append(out, n.doc.wrap(el))
	}
	return out
}

// AppendChild moves child to the end of n's children.
func (n *Node) AppendChild(child ports.Node) (ports.Node, error) {
	c, err := n.own(child)
	if err != nil {
		return nil, err
	}
	if _, err := n.el.Eval(`(c) => { this.appendChild(c) }`, c.el.Object); err != nil {
		return nil, fmt.Errorf("append child: %w", err)
	}
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
	ok, err := n.check(`(c, r) => {
		if (r.parentNode !== this) return false;
		this.insertBefore(c, r);
		return true;
	}`, c.el.Object, r.el.Object)
	if err != nil {
		return nil, fmt.Errorf("insert before: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("insert before: %w", domain.ErrNotChild)
	}
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
	ok, err := n.check(`(c, o) => {
		if (o.parentNode !== this) return false;
		if (c !== o) this.replaceChild(c, o);
		return true;
	}`, c.el.Object, o.el.Object)
	if err != nil {
		return nil, fmt.Errorf("replace child: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("replace child: %w", domain.ErrNotChild)
	}
	return o, nil
}

// RemoveChild detaches child and returns it.
func (n *Node) RemoveChild(child ports.Node) (ports.Node, error) {
	c, err := n.own(child)
	if err != nil {
		return nil, err
	}
	ok, err := n.check(`(c) => {
		if (c.parentNode !== this) return false;
		this.removeChild(c);
		return true;
	}`, c.el.Object)
	if err != nil {
		return nil, fmt.Errorf("remove child: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("remove child: %w", domain.ErrNotChild)
	}
	return c, nil
}

// Attribute returns the value of key.
func (n *Node) Attribute(key string) (string, bool) {
	res, err := n.el.Eval(`(k) => this.nodeType === 1 ? this.getAttribute(k) : null`, key)
	if err != nil {
		n.doc.fail(fmt.Errorf("read attribute %q: %w", key, err))
		return "", false
	}
	if res.Value.Nil() {
		return "", false
	}
	return res.Value.Str(), true
}

// SetAttribute sets key.
func (n *Node) SetAttribute(key, value string) error {
	if _, err := n.el.Eval(`(k, v) => { this.setAttribute(k, v) }`, key, value); err != nil {
		return fmt.Errorf("set attribute %q: %w", key, err)
	}
	return nil
}

// RemoveAttribute deletes key.
func (n *Node) RemoveAttribute(key string) error {
	if _, err := n.el.Eval(`(k) => { this.removeAttribute(k) }`, key); err != nil {
		return fmt.Errorf("remove attribute %q: %w", key, err)
	}
	return nil
}

// SetStyle sets one inline style property, in kebab or camel case.
func (n *Node) SetStyle(prop, value string) error {
	_, err := n.el.Eval(`(k, v) => {
		if (k.includes('-')) this.style.setProperty(k, v);
		else this.style[k] = v;
	}`, prop, value)
	if err != nil {
		return fmt.Errorf("set style %q: %w", prop, err)
	}
	return nil
}

// Property reads a JavaScript property by value.
func (n *Node) Property(name string) (any, bool) {
	res, err := n.el.Eval(`(k) => this[k]`, name)
	if err != nil {
		n.doc.fail(fmt.Errorf("read property %q: %w", name, err))
		return nil, false
	}
	if res.Type == proto.RuntimeRemoteObjectTypeUndefined {
		return nil, false
	}
	return res.Value.Val(), true
}

// SetProperty writes a JavaScript property.
func (n *Node) SetProperty(name string, value any) error {
	if _, err := n.el.Eval(`(k, v) => { this[k] = v }`, name, value); err != nil {
		return fmt.Errorf("set property %q: %w", name, err)
	}
	return nil
}

func (n *Node) check(js string, args ...any) (bool, error) {
	res, err := n.el.Eval(js, args...)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (n *Node) own(other ports.Node) (*Node, error) {
	o, ok := other.(*Node)
	if !ok || o == nil {
		return nil, fmt.Errorf("%T: %w", other, domain.ErrForeignNode)
	}
	if o.doc.page != n.doc.page {
		return nil, fmt.Errorf("node from another page: %w", domain.ErrForeignNode)
	}
	return o, nil
}
