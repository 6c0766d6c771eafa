package shadow

import (
	"errors"
	"fmt"

	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
)

// ErrNilNode is returned when a structural operation receives a nil node.
var ErrNilNode = errors.New("shadow: nil node")

// Wrapper proxies one real node for the renderer.
type Wrapper struct {
	arena        *Arena
	node         ports.Node
	parent       *Wrapper
	children     []*Wrapper
	materialized bool
}

var (
	_ ports.Node        = (*Wrapper)(nil)
	_ ports.EventTarget = (*Wrapper)(nil)
)

// Unwrap returns the real node.
func (w *Wrapper) Unwrap() ports.Node {
	return w.node
}

// Identity returns the identity of the real node.
func (w *Wrapper) Identity() any {
	return w.node.Identity()
}

// Tag returns the real node's tag.
func (w *Wrapper) Tag() string {
	return w.node.Tag()
}

// Parent returns the parent wrapper known to the shadow tree, not the real node's
// live parent, which may lag behind.
func (w *Wrapper) Parent() ports.Node {
	if w.parent == nil {
		return nil
	}
	return w.parent
}

// Children returns the shadow child list, materializing it on first use.
func (w *Wrapper) Children() []ports.Node {
	w.materialize()
	out := make([]ports.Node, len(w.children))
	for i, c := range w.children {
		out[i] = c
	}
	return out
}

// Materialized reports whether the shadow child list was built.
func (w *Wrapper) Materialized() bool {
	return w.materialized
}

// AppendChild appends child to the shadow list and defers the real append.
// It returns the unwrapped child.
func (w *Wrapper) AppendChild(child ports.Node) (ports.Node, error) {
	real := Unwrap(child)
	if real == nil {
		return nil, ErrNilNode
	}
	w.materialize()
	cw := w.arena.adopt(real, w)
	w.children = append(w.children, cw)

	target := w.node
	m := domain.NewMutation(domain.OpAppendChild, Describe(target), func() error {
		_, err := target.AppendChild(real)
		return err
	})
	m.Key = Describe(real)
	return real, w.arena.gate.Do(m)
}

// InsertBefore splices newNode into the shadow list before ref and defers the real
// insertion. A nil or unknown ref inserts at the head of the shadow list; the real
// call receives ref unchanged.
func (w *Wrapper) InsertBefore(newNode, ref ports.Node) (ports.Node, error) {
	real := Unwrap(newNode)
	if real == nil {
		return nil, ErrNilNode
	}
	realRef := Unwrap(ref)

	w.materialize()
	cw := w.arena.adopt(real, w)
	idx := 0
	if realRef != nil {
		if i := w.indexOf(realRef); i >= 0 {
			idx = i
		}
	}
	w.insertAt(idx, cw)

	target := w.node
	m := domain.NewMutation(domain.OpInsertBefore, Describe(target), func() error {
		_, err := target.InsertBefore(real, realRef)
		return err
	})
	m.Key = Describe(real)
	return real, w.arena.gate.Do(m)
}

// ReplaceChild swaps oldChild for newChild in the shadow list and defers the real
// replacement. It returns oldChild. When oldChild is not in the shadow list the
// list is left alone and the real call reports the error.
func (w *Wrapper) ReplaceChild(newChild, oldChild ports.Node) (ports.Node, error) {
	realNew, realOld := Unwrap(newChild), Unwrap(oldChild)
	if realNew == nil || realOld == nil {
		return nil, ErrNilNode
	}

	w.materialize()
	if realNew.Identity() != realOld.Identity() {
		if i := w.indexOf(realOld); i >= 0 {
			old := w.children[i]
			// adopt may detach newChild from this list and shift indexes.
			cw := w.arena.adopt(realNew, w)
			old.parent = nil
			w.children[w.indexOf(realOld)] = cw
		}
	}

	target := w.node
	m := domain.NewMutation(domain.OpReplaceChild, Describe(target), func() error {
		_, err := target.ReplaceChild(realNew, realOld)
		return err
	})
	m.Key = Describe(realOld)
	return oldChild, w.arena.gate.Do(m)
}

// RemoveChild drops child from the shadow list and defers the real removal.
// It returns child.
func (w *Wrapper) RemoveChild(child ports.Node) (ports.Node, error) {
	real := Unwrap(child)
	if real == nil {
		return nil, ErrNilNode
	}

	w.materialize()
	if i := w.indexOf(real); i >= 0 {
		w.children[i].parent = nil
		w.children = append(w.children[:i], w.children[i+1:]...)
	}

	target := w.node
	m := domain.NewMutation(domain.OpRemoveChild, Describe(target), func() error {
		_, err := target.RemoveChild(real)
		return err
	})
	m.Key = Describe(real)
	return child, w.arena.gate.Do(m)
}

// Attribute reads from the real node.
func (w *Wrapper) Attribute(key string) (string, bool) {
	return w.node.Attribute(key)
}

// SetAttribute routes the write through the gate.
func (w *Wrapper) SetAttribute(key, value string) error {
	target := w.node
	m := domain.NewMutation(domain.OpSetAttribute, Describe(target), func() error {
		return target.SetAttribute(key, value)
	})
	m.Key = key
	return w.arena.gate.Do(m)
}

// RemoveAttribute routes the removal through the gate.
func (w *Wrapper) RemoveAttribute(key string) error {
	target := w.node
	m := domain.NewMutation(domain.OpRemoveAttribute, Describe(target), func() error {
		return target.RemoveAttribute(key)
	})
	m.Key = key
	return w.arena.gate.Do(m)
}

// SetStyle routes one style property assignment through the gate.
func (w *Wrapper) SetStyle(prop, value string) error {
	target := w.node
	m := domain.NewMutation(domain.OpSetStyle, Describe(target), func() error {
		return target.SetStyle(prop, value)
	})
	m.Key = prop
	return w.arena.gate.Do(m)
}

// Property reads from the real node.
func (w *Wrapper) Property(name string) (any, bool) {
	return w.node.Property(name)
}

// SetProperty routes the write through the gate.
func (w *Wrapper) SetProperty(name string, value any) error {
	target := w.node
	m := domain.NewMutation(domain.OpSetProperty, Describe(target), func() error {
		return target.SetProperty(name, value)
	})
	m.Key = name
	return w.arena.gate.Do(m)
}

// AddEventListener passes through to the real node when it supports listeners.
func (w *Wrapper) AddEventListener(event string, fn func(ports.Event)) func() {
	if et, ok := w.node.(ports.EventTarget); ok {
		return et.AddEventListener(event, fn)
	}
	return func() {}
}

func (w *Wrapper) String() string {
	return "shadow(" + Describe(w.node) + ")"
}

func (w *Wrapper) materialize() {
	if w.materialized {
		return
	}
	w.materialized = true
	for _, c := range w.node.Children() {
		cw := w.arena.wrap(Unwrap(c), w)
		// Moved away or removed through the shadow tree earlier in this pass.
		if cw.parent != w {
			continue
		}
		w.children = append(w.children, cw)
	}
}

func (w *Wrapper) indexOf(real ports.Node) int {
	id := real.Identity()
	for i, c := range w.children {
		if c.node.Identity() == id {
			return i
		}
	}
	return -1
}

func (w *Wrapper) insertAt(idx int, cw *Wrapper) {
	if idx >= len(w.children) {
		w.children = append(w.children, cw)
		return
	}
	w.children = append(w.children[:idx+1], w.children[idx:]...)
	w.children[idx] = cw
}

func (w *Wrapper) detach(cw *Wrapper) {
	if i := w.indexOf(cw.node); i >= 0 {
		w.children = append(w.children[:i], w.children[i+1:]...)
	}
}

// Describe renders a short label for a node, like "div#hero" or "#text".
func Describe(n ports.Node) string {
	if n == nil {
		return "<nil>"
	}
	n = Unwrap(n)
	label := n.Tag()
	if id, ok := n.Attribute("id"); ok && id != "" {
		label = fmt.Sprintf("%s#%s", label, id)
	}
	return label
}
