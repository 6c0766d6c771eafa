package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/vista/internal/logging"
	"github.com/aretw0/vista/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sc.sigCh:
			sc.mu.Lock()
			sc.sigVal = sig
			sc.mu.Unlock()
			sc.Cancel()
		case <-sc.Context.Done():
			// Context cancelled elsewhere
		}
		sc.stop.Do(func() {
			signal.Stop(sc.sigCh)
		})
	}()

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// NewLogger configures the application logger from the level and format names.
// Logs always go to Stderr so Stdout stays free for reports and JSON-RPC.
func NewLogger(level, format string) (*slog.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.NewFormat(format, lvl)
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return domain.LifecycleHooks{}
	}
	return domain.LifecycleHooks{
		OnArm: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.Debug("Armed", "session_id", e.SessionID, "names", e.Names)
		},
		OnCaptureStart: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.Debug("Capture started", "session_id", e.SessionID, "names", e.Names)
		},
		OnMutation: func(ctx context.Context, e *domain.MutationEvent) {
			logger.Debug("Mutation", "session_id", e.SessionID, "op", e.Op, "target", e.Target, "deferred", e.Deferred)
		},
		OnFlush: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.Debug("Flush", "session_id", e.SessionID, "pending", e.Pending)
		},
		OnDegrade: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.Debug("Degraded", "session_id", e.SessionID, "err", e.Err)
		},
		OnComplete: func(ctx context.Context, e *domain.CompletionEvent) {
			if e.Err != nil {
				logger.Debug("Complete (Error)", "session_id", e.SessionID, "applied", e.Applied, "err", e.Err)
			} else {
				logger.Debug("Complete", "session_id", e.SessionID, "applied", e.Applied, "degraded", e.Degraded)
			}
		},
	}
}
