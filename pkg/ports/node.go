package ports

// Node is the tree contract shared by real nodes and shadow wrappers.
//
// Structural methods mirror DOM return values: AppendChild and InsertBefore return
// the inserted node, ReplaceChild and RemoveChild return the node that left the tree.
type Node interface {
	// Identity returns a comparable value that is stable for the underlying element.
	// Two Node values wrapping the same element must report equal identities.
	Identity() any

	// Tag returns the element name, or "#text" for text nodes.
	Tag() string

	Parent() Node
	Children() []Node

	AppendChild(child Node) (Node, error)
	// InsertBefore inserts newNode before ref. A nil ref appends.
	InsertBefore(newNode, ref Node) (Node, error)
	ReplaceChild(newChild, oldChild Node) (Node, error)
	RemoveChild(child Node) (Node, error)

	Attribute(key string) (string, bool)
	SetAttribute(key, value string) error
	RemoveAttribute(key string) error

	// SetStyle assigns a single inline style property.
	SetStyle(prop, value string) error

	Property(name string) (any, bool)
	SetProperty(name string, value any) error
}

// Event is delivered to listeners registered through EventTarget.
type Event struct {
	Type   string
	Target Node
	Detail any
}

// EventTarget is implemented by nodes that support listener registration.
type EventTarget interface {
	// AddEventListener registers fn and returns a function that removes it.
	AddEventListener(event string, fn func(Event)) func()
}

// Document creates nodes for one tree and exposes its well known anchors.
type Document interface {
	// Root is where the renderer mounts its output.
	Root() Node
	// Head is the document-level style scope.
	Head() Node
	CreateElement(tag string) (Node, error)
	CreateText(text string) (Node, error)
}
