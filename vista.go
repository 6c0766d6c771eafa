package vista

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/vista/internal/logging"
	"github.com/aretw0/vista/internal/runtime"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
	"github.com/aretw0/vista/pkg/shadow"
	"github.com/aretw0/vista/pkg/style"
)

// Transitioner is the high-level entry point of the library.
// It owns the shadow tree handed to the renderer and the orchestrator that
// decides when the renderer's mutations reach the real tree.
//
// A Transitioner is not safe for concurrent use; see pkg/session for a
// serialized multi-session wrapper.
type Transitioner struct {
	real     ports.Node
	arena    *shadow.Arena
	root     *shadow.Wrapper
	orch     *runtime.Orchestrator
	sheet    *style.Sheet
	platform ports.Platform

	scope       ports.Node
	createStyle func() (ports.Node, error)
	closed      bool

	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	sessionID string

	recordFns map[int]func(domain.Record)
	nextID    int
}

// Option defines a functional option for configuring the Transitioner.
type Option func(*Transitioner)

// WithPlatform sets the view transition primitive. Without it every armed pass
// is applied synchronously.
func WithPlatform(p ports.Platform) Option {
	return func(t *Transitioner) {
		t.platform = p
	}
}

// WithStyleScope sets the document-level scope that receives the style element
// and the function that creates it.
func WithStyleScope(scope ports.Node, create func() (ports.Node, error)) Option {
	return func(t *Transitioner) {
		t.scope = scope
		t.createStyle = create
	}
}

// WithDocument uses the document's head as style scope.
func WithDocument(doc ports.Document) Option {
	return WithStyleScope(doc.Head(), func() (ports.Node, error) {
		return doc.CreateElement("style")
	})
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(t *Transitioner) {
		t.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transitioner) {
		t.logger = logger
	}
}

// WithSessionID tags events, records and logs with a session.
func WithSessionID(id string) Option {
	return func(t *Transitioner) {
		t.sessionID = id
	}
}

// New wraps root, the real container the renderer mounts into.
func New(root ports.Node, opts ...Option) (*Transitioner, error) {
	if root == nil {
		return nil, fmt.Errorf("root node is required")
	}
	t := &Transitioner{
		real:      shadow.Unwrap(root),
		recordFns: make(map[int]func(domain.Record)),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.logger == nil {
		t.logger = logging.NewNop()
	}
	if t.sessionID != "" {
		t.logger = t.logger.With("session_id", t.sessionID)
	}

	rtOpts := []runtime.Option{
		runtime.WithPlatform(t.platform),
		runtime.WithLogger(t.logger),
		runtime.WithSessionID(t.sessionID),
		runtime.WithLifecycleHooks(domain.ChainHooks(t.hooks, domain.LifecycleHooks{
			OnRecord: t.dispatchRecord,
		})),
	}

	if t.scope != nil {
		sheet, err := style.Install(t.scope, t.createStyle)
		if err != nil {
			return nil, fmt.Errorf("failed to install style element: %w", err)
		}
		t.sheet = sheet
		rtOpts = append(rtOpts, runtime.WithStyleSheet(sheet))
	}

	t.orch = runtime.NewOrchestrator(rtOpts...)
	t.arena = shadow.NewArena(t.orch.Gate())
	t.root = t.arena.Root(t.real)
	return t, nil
}

// NewFromDocument mounts on the document root and uses its head as style scope.
func NewFromDocument(doc ports.Document, opts ...Option) (*Transitioner, error) {
	return New(doc.Root(), append([]Option{WithDocument(doc)}, opts...)...)
}

// Root returns the shadow root of the current pass. Hand it to the renderer.
func (t *Transitioner) Root() ports.Node {
	return t.root
}

// BeginPass drops every wrapper of the previous pass and returns a fresh root.
// While mutations wait for the capture callback the real tree lags behind the
// shadow lists, so the current pass is kept and its root returned instead.
func (t *Transitioner) BeginPass() ports.Node {
	if n := t.orch.Pending(); n > 0 {
		t.logger.Debug("render pass kept while mutations are queued", "pass", t.arena.Pass(), "pending", n)
		return t.root
	}
	t.arena.Reset()
	t.root = t.arena.Root(t.real)
	t.logger.Debug("render pass started", "pass", t.arena.Pass())
	return t.root
}

// Pass returns the current pass number.
func (t *Transitioner) Pass() uint64 {
	return t.arena.Pass()
}

// SetAttribute feeds the binding attribute payload. A nil payload means the
// attribute was removed. Malformed payloads are logged and ignored.
func (t *Transitioner) SetAttribute(payload *string) error {
	return t.orch.SetAttribute(payload)
}

// Arm requests a transition for the next mutation.
func (t *Transitioner) Arm(req domain.Request) error {
	return t.orch.Arm(req)
}

// OnComplete registers fn for the completion signal and returns a function
// that removes it.
func (t *Transitioner) OnComplete(fn func(domain.CompletionEvent)) func() {
	return t.orch.OnComplete(fn)
}

// OnRecord registers fn for the record of every finished transition.
func (t *Transitioner) OnRecord(fn func(domain.Record)) func() {
	id := t.nextID
	t.nextID++
	t.recordFns[id] = fn
	return func() {
		delete(t.recordFns, id)
	}
}

// Phase returns the orchestrator phase.
func (t *Transitioner) Phase() domain.Phase {
	return t.orch.Phase()
}

// Pending returns how many mutations wait for the capture callback.
func (t *Transitioner) Pending() int {
	return t.orch.Pending()
}

// Request returns the armed or in-flight request.
func (t *Transitioner) Request() domain.Request {
	return t.orch.Request()
}

// Platform returns the configured platform, which may be nil.
func (t *Transitioner) Platform() ports.Platform {
	return t.platform
}

// Sheet returns the style sheet, or nil without a style scope.
func (t *Transitioner) Sheet() *style.Sheet {
	return t.sheet
}

// Tick advances a cooperative platform by one frame. It reports 0 for
// platforms that run on their own.
func (t *Transitioner) Tick() int {
	if tk, ok := t.platform.(ports.Ticker); ok {
		return tk.Tick()
	}
	return 0
}

// Settle ticks until the transition in flight is finished, up to max ticks.
func (t *Transitioner) Settle(max int) int {
	ticks := 0
	for ticks < max && t.Phase() == domain.PhaseInFlight {
		if t.Tick() == 0 {
			break
		}
		ticks++
	}
	return ticks
}

// Close releases the style element of its scope. The element stays in the
// document while other transitioners on the same scope are open. Calling
// Close again is a no-op.
func (t *Transitioner) Close() error {
	if t.scope == nil || t.closed {
		return nil
	}
	t.closed = true
	return style.Uninstall(t.scope)
}

func (t *Transitioner) dispatchRecord(_ context.Context, rec *domain.Record) {
	for id := 0; id < t.nextID; id++ {
		if fn, ok := t.recordFns[id]; ok {
			fn(*rec)
		}
	}
}
