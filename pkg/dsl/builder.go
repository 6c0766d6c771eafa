package dsl

import (
	"fmt"

	"github.com/aretw0/vista/pkg/ports"
)

type pair struct {
	key   string
	value string
}

type prop struct {
	name  string
	value any
}

// Element describes an element subtree to be created.
type Element struct {
	tag      string
	text     *string
	attrs    []pair
	styles   []pair
	props    []prop
	children []*Element
}

// El starts an element with the given tag.
func El(tag string) *Element {
	return &Element{tag: tag}
}

// Txt describes a text node.
func Txt(text string) *Element {
	return &Element{text: &text}
}

// ID sets the id attribute.
func (e *Element) ID(id string) *Element {
	return e.Attr("id", id)
}

// Class sets the class attribute.
func (e *Element) Class(class string) *Element {
	return e.Attr("class", class)
}

// Attr sets an attribute. Later calls for the same key win.
func (e *Element) Attr(key, value string) *Element {
	for i := range e.attrs {
		if e.attrs[i].key == key {
			e.attrs[i].value = value
			return e
		}
	}
	e.attrs = append(e.attrs, pair{key, value})
	return e
}

// Style sets an inline style property.
func (e *Element) Style(prop, value string) *Element {
	e.styles = append(e.styles, pair{prop, value})
	return e
}

// Prop sets a property after the attributes.
func (e *Element) Prop(name string, value any) *Element {
	e.props = append(e.props, prop{name, value})
	return e
}

// Text appends a text child.
func (e *Element) Text(text string) *Element {
	return e.Child(Txt(text))
}

// Child appends child elements.
func (e *Element) Child(children ...*Element) *Element {
	e.children = append(e.children, children...)
	return e
}

// Tag returns the element tag, or an empty string for text nodes.
func (e *Element) Tag() string {
	return e.tag
}

// Build creates the detached subtree in doc and returns its root.
func (e *Element) Build(doc ports.Document) (ports.Node, error) {
	if e.text != nil {
		n, err := doc.CreateText(*e.text)
		if err != nil {
			return nil, fmt.Errorf("failed to create text node: %w", err)
		}
		return n, nil
	}
	if e.tag == "" {
		return nil, fmt.Errorf("element has no tag")
	}

	n, err := doc.CreateElement(e.tag)
	if err != nil {
		return nil, fmt.Errorf("failed to create <%s>: %w", e.tag, err)
	}
	for _, a := range e.attrs {
		if err := n.SetAttribute(a.key, a.value); err != nil {
			return nil, fmt.Errorf("<%s> attribute %q: %w", e.tag, a.key, err)
		}
	}
	for _, s := range e.styles {
		if err := n.SetStyle(s.key, s.value); err != nil {
			return nil, fmt.Errorf("<%s> style %q: %w", e.tag, s.key, err)
		}
	}
	for _, p := range e.props {
		if err := n.SetProperty(p.name, p.value); err != nil {
			return nil, fmt.Errorf("<%s> property %q: %w", e.tag, p.name, err)
		}
	}
	for _, c := range e.children {
		child, err := c.Build(doc)
		if err != nil {
			return nil, err
		}
		if _, err := n.AppendChild(child); err != nil {
			return nil, fmt.Errorf("<%s> append child: %w", e.tag, err)
		}
	}
	return n, nil
}

// MountInto builds the subtree and appends it to parent.
func (e *Element) MountInto(doc ports.Document, parent ports.Node) (ports.Node, error) {
	n, err := e.Build(doc)
	if err != nil {
		return nil, err
	}
	if _, err := parent.AppendChild(n); err != nil {
		return nil, fmt.Errorf("failed to mount <%s>: %w", e.tag, err)
	}
	return n, nil
}
