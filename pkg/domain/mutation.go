package domain

import "fmt"

// Op names the kind of tree mutation a Mutation performs.
type Op string

const (
	OpAppendChild     Op = "append_child"
	OpInsertBefore    Op = "insert_before"
	OpReplaceChild    Op = "replace_child"
	OpRemoveChild     Op = "remove_child"
	OpSetAttribute    Op = "set_attribute"
	OpRemoveAttribute Op = "remove_attribute"
	OpSetStyle        Op = "set_style"
	OpSetProperty     Op = "set_property"
)

// Structural reports whether the op changes the child lists of the tree.
func (o Op) Structural() bool {
	switch o {
	case OpAppendChild, OpInsertBefore, OpReplaceChild, OpRemoveChild:
		return true
	}
	return false
}

// Mutation is a deferred action against the real tree.
// Op, Target and Key are descriptive only; Apply carries the behavior.
type Mutation struct {
	Op     Op
	Target string // Human readable description of the node being mutated
	Key    string // Attribute, style property or property name (when relevant)
	Apply  func() error
}

// NewMutation builds a mutation with the given op and action.
func NewMutation(op Op, target string, apply func() error) Mutation {
	return Mutation{Op: op, Target: target, Apply: apply}
}

func (m Mutation) String() string {
	if m.Key != "" {
		return fmt.Sprintf("%s(%s, %s)", m.Op, m.Target, m.Key)
	}
	return fmt.Sprintf("%s(%s)", m.Op, m.Target)
}
