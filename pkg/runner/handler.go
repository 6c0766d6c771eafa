package runner

import (
	"context"

	"github.com/aretw0/vista/pkg/domain"
)

// Handler receives the progress of a script run.
// This allows switching between Text (CLI) and JSON (structured) output.
type Handler interface {
	// Step reports an executed step.
	Step(ctx context.Context, res StepResult) error

	// Completion reports a completion event observed during the run.
	Completion(ctx context.Context, ev domain.CompletionEvent) error

	// Summary reports the end of the run.
	Summary(ctx context.Context, rep Report) error
}

// ContentRenderer is a function that transforms markdown before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// StepResult describes the state right after a step ran.
type StepResult struct {
	Index   int          `json:"index"`
	Op      Op           `json:"op"`
	Target  string       `json:"target,omitempty"`
	Detail  string       `json:"detail,omitempty"`
	Phase   domain.Phase `json:"phase"`
	Pending int          `json:"pending"`
	Err     error        `json:"-"`
	Error   string       `json:"error,omitempty"`
}

// Report summarizes a run.
type Report struct {
	Script      string                   `json:"script,omitempty"`
	Steps       int                      `json:"steps"`
	Failed      int                      `json:"failed"`
	Completions []domain.CompletionEvent `json:"completions"`
	Phase       domain.Phase             `json:"phase"`
	Pending     int                      `json:"pending"`
	Pass        uint64                   `json:"pass"`
}

// Degraded returns how many completions came from a degraded transition.
func (r Report) Degraded() int {
	n := 0
	for _, ev := range r.Completions {
		if ev.Degraded {
			n++
		}
	}
	return n
}

// Discard is a Handler that drops everything.
var Discard Handler = discard{}

type discard struct{}

func (discard) Step(context.Context, StepResult) error                 { return nil }
func (discard) Completion(context.Context, domain.CompletionEvent) error { return nil }
func (discard) Summary(context.Context, Report) error                    { return nil }
