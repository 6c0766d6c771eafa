package runtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/vista/pkg/binding"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
	"github.com/aretw0/vista/pkg/style"
)

// StyleSheet receives the transition-name rules of the transition in flight.
type StyleSheet interface {
	Write(css string) error
	Clear() error
}

// Orchestrator drives one tree through Idle, Armed and InFlight.
//
// It is not safe for concurrent use: the renderer, the platform callbacks and
// the binding must run on the same goroutine, or be serialized by the owner.
type Orchestrator struct {
	gate     *Gate
	platform ports.Platform
	sheet    StyleSheet

	phase     domain.Phase
	request   domain.Request
	active    domain.Request
	startedAt time.Time
	applied   int
	degraded  bool
	failure   error

	listeners map[int]func(domain.CompletionEvent)
	nextID    int

	sessionID string
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	ctx       context.Context
	now       func() time.Time
}

// NewOrchestrator creates an idle orchestrator.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gate:      &Gate{},
		phase:     domain.PhaseIdle,
		listeners: make(map[int]func(domain.CompletionEvent)),
	}
	for _, opt := range opts {
		opt(o)
	}
	defaults(o)

	o.gate.onStart = o.start
	o.gate.onMutation = o.observe
	return o
}

// Gate returns the mutation gate that wrappers must route through.
func (o *Orchestrator) Gate() *Gate {
	return o.gate
}

// Phase returns the current lifecycle phase.
func (o *Orchestrator) Phase() domain.Phase {
	return o.phase
}

// Request returns the armed request, or the one in flight.
func (o *Orchestrator) Request() domain.Request {
	if o.phase == domain.PhaseInFlight {
		return o.active
	}
	return o.request
}

// Pending returns the number of mutations waiting for the flush.
func (o *Orchestrator) Pending() int {
	return o.gate.Pending()
}

// Arm sets the transition request for the next mutation.
//
// Arming while Armed replaces the request. An empty request disarms.
// Arming while a transition is in flight returns domain.ErrTransitionInFlight.
func (o *Orchestrator) Arm(req domain.Request) error {
	if req.IsEmpty() {
		if o.phase == domain.PhaseArmed {
			o.logger.Debug("transition disarmed", "session_id", o.sessionID)
			o.request = domain.Request{}
			o.phase = domain.PhaseIdle
			o.gate.disarm()
		}
		return nil
	}
	if !o.phase.CanArm() {
		return domain.ErrTransitionInFlight
	}

	o.request = req
	o.phase = domain.PhaseArmed
	o.gate.arm()
	o.logger.Debug("transition armed", "session_id", o.sessionID, "request", req.String())

	if o.hooks.OnArm != nil {
		o.hooks.OnArm(o.ctx, o.transitionEvent(domain.EventArm, req))
	}
	return nil
}

// SetAttribute decodes the binding attribute payload and arms with it.
// A malformed payload is logged and treated as no transition.
func (o *Orchestrator) SetAttribute(payload *string) error {
	req, err := binding.Decode(payload)
	if err != nil {
		o.logger.Warn("ignoring malformed transition attribute", "session_id", o.sessionID, "err", err)
		req = domain.Request{}
	}
	return o.Arm(req)
}

// OnComplete registers fn for completion events and returns a function that
// removes it.
func (o *Orchestrator) OnComplete(fn func(domain.CompletionEvent)) func() {
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	return func() {
		delete(o.listeners, id)
	}
}

// start runs on the first mutation after arming.
func (o *Orchestrator) start() {
	o.active = o.request
	o.request = domain.Request{}
	o.phase = domain.PhaseInFlight
	o.startedAt = o.now()
	o.applied = 0
	o.degraded = false
	o.failure = nil

	if o.platform == nil {
		o.degrade(domain.ErrPlatformUnavailable)
		return
	}

	o.writeStyles()
	o.gate.capturing = true
	tr, err := o.platform.StartTransition(o.update)
	if err != nil {
		o.degrade(err)
		return
	}
	o.logger.Debug("capture started", "session_id", o.sessionID, "names", o.active.Names())
	if o.hooks.OnCaptureStart != nil {
		o.hooks.OnCaptureStart(o.ctx, o.transitionEvent(domain.EventCaptureStart, o.active))
	}
	tr.Finished(o.finish)
}

// update is the platform's update callback.
func (o *Orchestrator) update() error {
	if !o.gate.Capturing() {
		return nil
	}
	n, err := o.gate.Flush()
	o.applied = n
	o.failure = err
	if err != nil {
		o.logger.Error("flush failed", "session_id", o.sessionID, "applied", n, "err", err)
	}
	if o.hooks.OnFlush != nil {
		ev := o.transitionEvent(domain.EventFlush, o.active)
		ev.Pending = n
		ev.Err = err
		o.hooks.OnFlush(o.ctx, ev)
	}
	o.complete(false)
	return err
}

// finish is the platform's finished callback.
func (o *Orchestrator) finish(err error) {
	if o.gate.Capturing() {
		// The platform skipped the update callback; the queue still has to land.
		o.logger.Warn("transition finished before update ran", "session_id", o.sessionID)
		_ = o.update()
	}
	if err != nil && o.failure == nil {
		o.failure = err
	}
	o.clearStyles()
	o.phase = domain.PhaseIdle
	o.logger.Debug("transition finished", "session_id", o.sessionID, "applied", o.applied)

	if o.hooks.OnFinish != nil {
		ev := o.transitionEvent(domain.EventFinish, o.active)
		ev.Err = o.failure
		o.hooks.OnFinish(o.ctx, ev)
	}
	o.record()
	o.active = domain.Request{}
}

// degrade applies everything synchronously when no capture can happen.
// The completion signal fires after the mutation that triggered the start.
func (o *Orchestrator) degrade(cause error) {
	o.degraded = true
	n, err := o.gate.Flush()
	o.applied = n
	o.failure = err
	o.clearStyles()
	o.phase = domain.PhaseIdle

	o.logger.Warn("view transition unavailable, applying mutations directly", "session_id", o.sessionID, "err", cause)
	if o.hooks.OnDegrade != nil {
		ev := o.transitionEvent(domain.EventDegrade, o.active)
		ev.Err = cause
		o.hooks.OnDegrade(o.ctx, ev)
	}

	o.gate.afterApply = func(err error) {
		o.applied++
		if err != nil && o.failure == nil {
			o.failure = err
		}
		o.complete(true)
		o.record()
		o.active = domain.Request{}
	}
}

func (o *Orchestrator) complete(degraded bool) {
	ev := domain.CompletionEvent{
		EventBase: o.base(domain.EventComplete),
		Names:     o.active.Names(),
		Applied:   o.applied,
		Degraded:  degraded,
		Err:       o.failure,
	}
	if o.failure != nil {
		ev.Error = o.failure.Error()
	}
	if o.hooks.OnComplete != nil {
		o.hooks.OnComplete(o.ctx, &ev)
	}
	for id := 0; id < o.nextID; id++ {
		if fn, ok := o.listeners[id]; ok {
			fn(ev)
		}
	}
}

func (o *Orchestrator) record() {
	if o.hooks.OnRecord == nil {
		return
	}
	rec := domain.Record{
		SessionID:  o.sessionID,
		Names:      o.active.Names(),
		Applied:    o.applied,
		Degraded:   o.degraded,
		StartedAt:  o.startedAt,
		FinishedAt: o.now(),
	}
	if o.failure != nil {
		rec.Error = o.failure.Error()
	}
	o.hooks.OnRecord(o.ctx, &rec)
}

func (o *Orchestrator) writeStyles() {
	if o.sheet == nil {
		return
	}
	css := style.Rules(o.active.Named())
	if css == "" {
		return
	}
	if err := o.sheet.Write(css); err != nil {
		o.logger.Warn("failed to write transition styles", "session_id", o.sessionID, "err", err)
	}
}

func (o *Orchestrator) clearStyles() {
	if o.sheet == nil {
		return
	}
	if err := o.sheet.Clear(); err != nil {
		o.logger.Warn("failed to clear transition styles", "session_id", o.sessionID, "err", err)
	}
}

func (o *Orchestrator) observe(m domain.Mutation, deferred bool) {
	if o.hooks.OnMutation == nil {
		return
	}
	o.hooks.OnMutation(o.ctx, &domain.MutationEvent{
		EventBase: o.base(domain.EventMutation),
		Op:        m.Op,
		Target:    m.Target,
		Deferred:  deferred,
	})
}

func (o *Orchestrator) transitionEvent(t domain.EventType, req domain.Request) *domain.TransitionEvent {
	return &domain.TransitionEvent{
		EventBase: o.base(t),
		Phase:     o.phase,
		Names:     req.Names(),
		Pending:   o.gate.Pending(),
	}
}

func (o *Orchestrator) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: o.now(),
		Type:      t,
		SessionID: o.sessionID,
	}
}

// IsFlushError reports whether err came from a failed flush.
func IsFlushError(err error) bool {
	var fe *FlushError
	return errors.As(err, &fe)
}
