package runner

import "log/slog"

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithHandler configures where progress is reported.
func WithHandler(h Handler) Option {
	return func(r *Runner) {
		r.Handler = h
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithContinueOnError keeps running after a failing step.
func WithContinueOnError(v bool) Option {
	return func(r *Runner) {
		r.ContinueOnError = v
	}
}

// WithSettleLimit sets how many ticks a settle step may take. Defaults to 64.
func WithSettleLimit(n int) Option {
	return func(r *Runner) {
		r.SettleLimit = n
	}
}
