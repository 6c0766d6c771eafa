package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/vista/internal/logging"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPlatform sets the view transition primitive.
// Without one, every armed pass takes the degraded path.
func WithPlatform(p ports.Platform) Option {
	return func(o *Orchestrator) {
		o.platform = p
	}
}

// WithStyleSheet sets where transition-name rules are written.
func WithStyleSheet(s StyleSheet) Option {
	return func(o *Orchestrator) {
		o.sheet = s
	}
}

// WithLogger sets a custom logger for the orchestrator.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithLifecycleHooks registers callbacks for orchestrator events.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = hooks
	}
}

// WithSessionID tags every emitted event with the session it belongs to.
func WithSessionID(id string) Option {
	return func(o *Orchestrator) {
		o.sessionID = id
	}
}

// WithContext sets the context handed to lifecycle hooks.
func WithContext(ctx context.Context) Option {
	return func(o *Orchestrator) {
		o.ctx = ctx
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func defaults(o *Orchestrator) {
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.ctx == nil {
		o.ctx = context.Background()
	}
	if o.now == nil {
		o.now = time.Now
	}
}
