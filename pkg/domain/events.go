package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventArm          EventType = "arm"
	EventCaptureStart EventType = "capture_start"
	EventMutation     EventType = "mutation"
	EventFlush        EventType = "flush"
	EventComplete     EventType = "complete"
	EventFinish       EventType = "finish"
	EventDegrade      EventType = "degrade"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// TransitionEvent reports a change of the orchestrator's lifecycle.
type TransitionEvent struct {
	EventBase
	Phase   Phase    `json:"phase"`
	Names   []string `json:"names,omitempty"`
	Pending int      `json:"pending,omitempty"`
	Err     error    `json:"-"`
}

// MutationEvent reports a mutation passing through the gate.
type MutationEvent struct {
	EventBase
	Op       Op     `json:"op"`
	Target   string `json:"target"`
	Deferred bool   `json:"deferred"`
}

// CompletionEvent is the completion signal consumed by the declarative binding.
// It fires after every deferred mutation of the pass was applied.
type CompletionEvent struct {
	EventBase
	Names    []string `json:"names,omitempty"`
	Applied  int      `json:"applied"`
	Degraded bool     `json:"degraded,omitempty"`
	Err      error    `json:"-"`
	Error    string   `json:"error,omitempty"`
}

// LifecycleHooks defines callbacks for orchestrator observability.
type LifecycleHooks struct {
	OnArm          func(context.Context, *TransitionEvent)
	OnCaptureStart func(context.Context, *TransitionEvent)
	OnMutation     func(context.Context, *MutationEvent)
	OnFlush        func(context.Context, *TransitionEvent)
	OnComplete     func(context.Context, *CompletionEvent)
	OnFinish       func(context.Context, *TransitionEvent)
	OnDegrade      func(context.Context, *TransitionEvent)
	OnRecord       func(context.Context, *Record)
}

// ChainHooks fans every callback out to all given hooks, in order.
func ChainHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnArm:          chainTransition(hooks, func(h LifecycleHooks) func(context.Context, *TransitionEvent) { return h.OnArm }),
		OnCaptureStart: chainTransition(hooks, func(h LifecycleHooks) func(context.Context, *TransitionEvent) { return h.OnCaptureStart }),
		OnFlush:        chainTransition(hooks, func(h LifecycleHooks) func(context.Context, *TransitionEvent) { return h.OnFlush }),
		OnFinish:       chainTransition(hooks, func(h LifecycleHooks) func(context.Context, *TransitionEvent) { return h.OnFinish }),
		OnDegrade:      chainTransition(hooks, func(h LifecycleHooks) func(context.Context, *TransitionEvent) { return h.OnDegrade }),
		OnMutation: func(ctx context.Context, e *MutationEvent) {
			for _, h := range hooks {
				if h.OnMutation != nil {
					h.OnMutation(ctx, e)
				}
			}
		},
		OnComplete: func(ctx context.Context, e *CompletionEvent) {
			for _, h := range hooks {
				if h.OnComplete != nil {
					h.OnComplete(ctx, e)
				}
			}
		},
		OnRecord: func(ctx context.Context, r *Record) {
			for _, h := range hooks {
				if h.OnRecord != nil {
					h.OnRecord(ctx, r)
				}
			}
		},
	}
}

func chainTransition(hooks []LifecycleHooks, pick func(LifecycleHooks) func(context.Context, *TransitionEvent)) func(context.Context, *TransitionEvent) {
	return func(ctx context.Context, e *TransitionEvent) {
		for _, h := range hooks {
			if fn := pick(h); fn != nil {
				fn(ctx, e)
			}
		}
	}
}
