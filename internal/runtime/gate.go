package runtime

import (
	"fmt"

	"github.com/aretw0/vista/pkg/domain"
)

// FlushError reports the queued mutation that failed while the queue was flushed.
// Mutations after it were discarded.
type FlushError struct {
	Index    int
	Mutation domain.Mutation
	Err      error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flush: mutation %d (%s): %v", e.Index, e.Mutation, e.Err)
}

func (e *FlushError) Unwrap() error {
	return e.Err
}

// Gate is the single entry point of every real-tree mutation.
//
// While disarmed it applies mutations immediately. The first mutation seen while
// armed triggers the start callback; mutations issued while capturing are queued
// in order until Flush.
type Gate struct {
	armed     bool
	capturing bool
	queue     []domain.Mutation

	onStart    func()
	onMutation func(m domain.Mutation, deferred bool)
	afterApply func(err error)
}

// Do applies m now or queues it.
func (g *Gate) Do(m domain.Mutation) error {
	if g.armed {
		g.armed = false
		if g.onStart != nil {
			g.onStart()
		}
	}

	if g.capturing {
		g.queue = append(g.queue, m)
		g.observe(m, true)
		return nil
	}

	g.observe(m, false)
	err := m.Apply()
	if fn := g.afterApply; fn != nil {
		g.afterApply = nil
		fn(err)
	}
	return err
}

// Pending returns the number of queued mutations.
func (g *Gate) Pending() int {
	return len(g.queue)
}

// Capturing reports whether mutations are being queued.
func (g *Gate) Capturing() bool {
	return g.capturing
}

// Flush stops capturing and applies the queue in issue order.
// It stops at the first failing mutation and returns it as a *FlushError.
func (g *Gate) Flush() (int, error) {
	g.capturing = false
	queue := g.queue
	g.queue = nil

	for i, m := range queue {
		if err := m.Apply(); err != nil {
			return i, &FlushError{Index: i, Mutation: m, Err: err}
		}
	}
	return len(queue), nil
}

func (g *Gate) arm() {
	g.armed = true
}

func (g *Gate) disarm() {
	g.armed = false
}

func (g *Gate) observe(m domain.Mutation, deferred bool) {
	if g.onMutation != nil {
		g.onMutation(m, deferred)
	}
}
