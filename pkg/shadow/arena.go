package shadow

import (
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
)

// Gate decides whether a mutation runs now or is queued.
type Gate interface {
	Do(m domain.Mutation) error
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(m domain.Mutation) error

// Do calls f(m).
func (f GateFunc) Do(m domain.Mutation) error {
	return f(m)
}

// Immediate is a Gate that applies every mutation synchronously.
var Immediate Gate = GateFunc(func(m domain.Mutation) error { return m.Apply() })

// Arena owns the wrappers of one render pass, indexed by node identity.
type Arena struct {
	gate    Gate
	records map[any]*Wrapper
	pass    uint64
}

// NewArena creates an arena whose wrappers route mutations through gate.
func NewArena(gate Gate) *Arena {
	if gate == nil {
		gate = Immediate
	}
	return &Arena{
		gate:    gate,
		records: make(map[any]*Wrapper),
		pass:    1,
	}
}

// Reset drops every wrapper record and starts a new pass.
// Wrappers handed out before Reset keep working but are no longer indexed.
func (a *Arena) Reset() {
	a.records = make(map[any]*Wrapper)
	a.pass++
}

// Pass returns the number of the current pass, starting at 1.
func (a *Arena) Pass() uint64 {
	return a.pass
}

// Len returns how many wrappers exist in the current pass.
func (a *Arena) Len() int {
	return len(a.records)
}

// Root wraps node as a tree root: its parent wrapper is nil.
func (a *Arena) Root(node ports.Node) *Wrapper {
	return a.wrap(Unwrap(node), nil)
}

// Lookup returns the wrapper already created for node in this pass.
func (a *Arena) Lookup(node ports.Node) (*Wrapper, bool) {
	real := Unwrap(node)
	if real == nil {
		return nil, false
	}
	w, ok := a.records[real.Identity()]
	return w, ok
}

// wrap returns the record for real, creating it with the given parent if needed.
// Existing records keep their parent.
func (a *Arena) wrap(real ports.Node, parent *Wrapper) *Wrapper {
	key := real.Identity()
	if w, ok := a.records[key]; ok {
		return w
	}
	w := &Wrapper{
		arena:  a,
		node:   real,
		parent: parent,
	}
	a.records[key] = w
	return w
}

// adopt wraps real as a child of parent, detaching it from the shadow list it
// currently sits in so the shadow tree mirrors DOM move semantics.
func (a *Arena) adopt(real ports.Node, parent *Wrapper) *Wrapper {
	w := a.wrap(real, parent)
	if old := w.parent; old != nil && old.materialized {
		old.detach(w)
	}
	w.parent = parent
	return w
}

// Unwrap peels wrappers (of this package or any type exposing Unwrap) until it
// reaches the real node.
func Unwrap(n ports.Node) ports.Node {
	for n != nil {
		u, ok := n.(interface{ Unwrap() ports.Node })
		if !ok {
			return n
		}
		n = u.Unwrap()
	}
	return nil
}

// SameNode reports whether a and b wrap the same real node.
func SameNode(a, b ports.Node) bool {
	ra, rb := Unwrap(a), Unwrap(b)
	if ra == nil || rb == nil {
		return ra == nil && rb == nil
	}
	return ra.Identity() == rb.Identity()
}

// FindByID walks the subtree of n depth-first and returns the first node whose id
// attribute equals id. On wrappers the walk follows the shadow child lists.
func FindByID(n ports.Node, id string) ports.Node {
	if n == nil {
		return nil
	}
	if v, ok := n.Attribute("id"); ok && v == id {
		return n
	}
	for _, c := range n.Children() {
		if found := FindByID(c, id); found != nil {
			return found
		}
	}
	return nil
}
