/*
Package vista lets a declarative renderer's tree mutations be animated by a
platform view transition.

A renderer mutates a live tree synchronously. A view transition primitive
instead needs every mutation of one render pass withheld, then applied inside a
callback it controls, between its "before" and "after" captures. vista sits in
between: the renderer talks to a shadow tree whose reads stay consistent with
the renderer's own writes, while the real mutations wait in an ordered queue.

# Concept

Every real node the renderer touches gets a wrapper (pkg/shadow). Wrappers
route each mutation through a gate owned by the orchestrator
(internal/runtime), which moves through three phases:

  - idle: mutations apply immediately.
  - armed: a transition was requested through the binding attribute
    (pkg/binding); the next mutation starts the capture.
  - in_flight: mutations are queued until the platform runs the update
    callback, which replays them in order and fires the completion signal.
    The phase returns to idle when the platform reports it finished.

Named entries of the request become view-transition-name rules in a single
style element per document (pkg/style), cleared once the transition finishes.
Without a platform the armed pass is applied synchronously.

# Usage

	doc := memory.NewDocument()
	platform := memory.NewPlatform()

	t, err := vista.NewFromDocument(doc, vista.WithPlatform(platform))
	if err != nil {
		log.Fatal(err)
	}
	t.OnComplete(func(ev domain.CompletionEvent) {
		log.Println("transition done:", ev.Names)
	})

	payload := `[{"id":"hero","name":"hero-image"}]`
	_ = t.SetAttribute(&payload)

	root := t.BeginPass()   // hand this to the renderer
	_, _ = root.AppendChild(hero)

	platform.Tick()         // update callback: the append lands here
	platform.Tick()         // finished: styles cleared, phase back to idle

# Adapters

Real trees and platforms live in pkg/adapters: an in-memory tree and
cooperative platform, an html tree (golang.org/x/net/html) and a browser
backend driven over CDP (go-rod). Sessions, journals and transports (HTTP, MCP,
Redis) build on top of the same ports.
*/
package vista
