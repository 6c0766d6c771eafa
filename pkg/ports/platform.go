package ports

// Platform is the view transition primitive.
type Platform interface {
	// StartTransition asks the platform to capture the current visual state, run
	// update, and capture again. update runs later, at a boundary controlled by the
	// platform. An error means the primitive is unavailable; update will not run.
	StartTransition(update func() error) (Transition, error)
}

// Transition is a capture started by a Platform.
type Transition interface {
	// Finished registers fn to run once the platform is done with the transition's
	// visual work. fn receives the error returned by update, if any.
	Finished(fn func(error))
}

// Ticker is implemented by platforms whose callbacks only run when their owner
// advances them. Tick runs the work that was due and reports how many callbacks ran.
type Ticker interface {
	Tick() int
}
