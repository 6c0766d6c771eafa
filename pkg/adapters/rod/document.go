// Package rod drives a real browser page over the Chrome DevTools Protocol:
// Node operates on live DOM nodes and Platform on document.startViewTransition.
//
// Read methods of ports.Node cannot return errors; when a read fails the
// zero value is returned and the failure is kept in Document.Err.
package rod

import (
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/aretw0/vista/pkg/ports"
)

// Document is the DOM of one page.
type Document struct {
	page *rod.Page
	head *Node
	body *Node

	mu  sync.Mutex
	err error
}

var _ ports.Document = (*Document)(nil)

// Open binds to the head and body of page.
func Open(page *rod.Page) (*Document, error) {
	d := &Document{page: page}

	head, err := page.Element("head")
	if err != nil {
		return nil, fmt.Errorf("failed to find head: %w", err)
	}
	body, err := page.Element("body")
	if err != nil {
		return nil, fmt.Errorf("failed to find body: %w", err)
	}
	d.head = d.wrap(head)
	d.body = d.wrap(body)
	return d, nil
}

// Root returns the body element.
func (d *Document) Root() ports.Node { return d.body }

// Head returns the head element.
func (d *Document) Head() ports.Node { return d.head }

// Page returns the underlying page.
func (d *Document) Page() *rod.Page { return d.page }

// CreateElement creates a detached element in the page.
func (d *Document) CreateElement(tag string) (ports.Node, error) {
	el, err := d.page.ElementByJS(rod.Eval(`(t) => document.createElement(t)`, tag))
	if err != nil {
		return nil, fmt.Errorf("create element %q: %w", tag, err)
	}
	return d.wrap(el), nil
}

// CreateText creates a detached text node in the page.
func (d *Document) CreateText(text string) (ports.Node, error) {
	el, err := d.page.ElementByJS(rod.Eval(`(s) => document.createTextNode(s)`, text))
	if err != nil {
		return nil, fmt.Errorf("create text: %w", err)
	}
	return d.wrap(el), nil
}

// HTML serializes the live page. Failures are kept in Err.
func (d *Document) HTML() string {
	html, err := d.page.HTML()
	if err != nil {
		d.fail(err)
		return ""
	}
	return html
}

// Err returns the last failure of a read method and clears it.
func (d *Document) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.err
	d.err = nil
	return err
}

func (d *Document) fail(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

func (d *Document) wrap(el *rod.Element) *Node {
	return &Node{doc: d, el: el}
}

func (d *Document) fromObject(obj *proto.RuntimeRemoteObject) (*Node, error) {
	el, err := d.page.ElementFromObject(obj)
	if err != nil {
		return nil, err
	}
	return d.wrap(el), nil
}
