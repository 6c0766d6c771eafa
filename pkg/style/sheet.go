package style

import (
	"fmt"
	"sync"

	"github.com/aretw0/vista/pkg/ports"
)

// Marker is the attribute set on installed style elements.
const Marker = "data-vista"

// Sheet is the style element owned by the transition core in one scope.
type Sheet struct {
	mu      sync.Mutex
	node    ports.Node
	content string
	refs    int // guarded by registry
}

// Write replaces the sheet's rules.
func (s *Sheet) Write(css string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.node.SetProperty("textContent", css); err != nil {
		return fmt.Errorf("write style sheet: %w", err)
	}
	s.content = css
	return nil
}

// Clear removes every rule.
func (s *Sheet) Clear() error {
	return s.Write("")
}

// Content returns the rules last written.
func (s *Sheet) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Node returns the underlying style element.
func (s *Sheet) Node() ports.Node {
	return s.node
}

var registry = struct {
	sync.Mutex
	sheets map[any]*Sheet
}{sheets: make(map[any]*Sheet)}

// Install returns the sheet of scope, creating and appending its style element
// the first time. Later calls for the same scope return the same sheet. Every
// successful Install must be paired with one Uninstall.
func Install(scope ports.Node, create func() (ports.Node, error)) (*Sheet, error) {
	if scope == nil {
		return nil, fmt.Errorf("install style sheet: nil scope")
	}
	key := scope.Identity()

	registry.Lock()
	defer registry.Unlock()

	if s, ok := registry.sheets[key]; ok {
		s.refs++
		return s, nil
	}

	node, err := create()
	if err != nil {
		return nil, fmt.Errorf("create style element: %w", err)
	}
	if err := node.SetAttribute(Marker, "transition"); err != nil {
		return nil, fmt.Errorf("mark style element: %w", err)
	}
	if _, err := scope.AppendChild(node); err != nil {
		return nil, fmt.Errorf("append style element: %w", err)
	}

	s := &Sheet{node: node, refs: 1}
	registry.sheets[key] = s
	return s, nil
}

// Uninstall releases one Install of scope. The style element is detached
// and forgotten when the last holder releases it.
func Uninstall(scope ports.Node) error {
	if scope == nil {
		return nil
	}
	key := scope.Identity()

	registry.Lock()
	s, ok := registry.sheets[key]
	if ok {
		s.refs--
		if s.refs > 0 {
			registry.Unlock()
			return nil
		}
		delete(registry.sheets, key)
	}
	registry.Unlock()

	if !ok {
		return nil
	}
	if _, err := scope.RemoveChild(s.node); err != nil {
		return fmt.Errorf("remove style element: %w", err)
	}
	return nil
}

// Installed reports whether scope has a sheet.
func Installed(scope ports.Node) bool {
	registry.Lock()
	defer registry.Unlock()
	_, ok := registry.sheets[scope.Identity()]
	return ok
}
