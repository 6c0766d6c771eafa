package memory

import (
	"sync"

	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
)

// Platform is a cooperative view transition primitive. Nothing runs until the
// owner calls Tick, which plays the role of an animation frame: the update
// callback runs on the first tick after StartTransition and the finished
// callbacks on the next one.
type Platform struct {
	mu          sync.Mutex
	tasks       []func()
	unavailable bool
	startErr    error
	skipUpdate  bool
	started     int
}

var (
	_ ports.Platform = (*Platform)(nil)
	_ ports.Ticker   = (*Platform)(nil)
)

// PlatformOption configures a Platform.
type PlatformOption func(*Platform)

// Unavailable makes StartTransition fail with domain.ErrPlatformUnavailable.
func Unavailable() PlatformOption {
	return func(p *Platform) {
		p.unavailable = true
	}
}

// WithStartError makes StartTransition fail with err.
func WithStartError(err error) PlatformOption {
	return func(p *Platform) {
		p.startErr = err
	}
}

// SkipUpdate makes transitions finish without running the update callback,
// like a browser skipping a transition.
func SkipUpdate() PlatformOption {
	return func(p *Platform) {
		p.skipUpdate = true
	}
}

// NewPlatform creates a platform.
func NewPlatform(opts ...PlatformOption) *Platform {
	p := &Platform{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StartTransition schedules update for the next tick.
func (p *Platform) StartTransition(update func() error) (ports.Transition, error) {
	if p.unavailable {
		return nil, domain.ErrPlatformUnavailable
	}
	if p.startErr != nil {
		return nil, p.startErr
	}

	tr := &transition{}
	p.mu.Lock()
	p.started++
	skip := p.skipUpdate
	p.mu.Unlock()

	p.schedule(func() {
		var err error
		if !skip {
			err = update()
		}
		p.schedule(func() { tr.finish(err) })
	})
	return tr, nil
}

// Tick runs the callbacks that were due before the call and returns how many ran.
// Callbacks scheduled while ticking wait for the next tick.
func (p *Platform) Tick() int {
	p.mu.Lock()
	due := p.tasks
	p.tasks = nil
	p.mu.Unlock()

	for _, fn := range due {
		fn()
	}
	return len(due)
}

// Drain ticks until no callback is left and returns the number of ticks.
func (p *Platform) Drain() int {
	ticks := 0
	for p.Pending() > 0 {
		p.Tick()
		ticks++
	}
	return ticks
}

// Pending returns the number of scheduled callbacks.
func (p *Platform) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// Started returns how many transitions were started.
func (p *Platform) Started() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *Platform) schedule(fn func()) {
	p.mu.Lock()
	p.tasks = append(p.tasks, fn)
	p.mu.Unlock()
}

type transition struct {
	mu       sync.Mutex
	done     bool
	err      error
	finished []func(error)
}

func (t *transition) Finished(fn func(error)) {
	t.mu.Lock()
	if t.done {
		err := t.err
		t.mu.Unlock()
		fn(err)
		return
	}
	t.finished = append(t.finished, fn)
	t.mu.Unlock()
}

func (t *transition) finish(err error) {
	t.mu.Lock()
	t.done = true
	t.err = err
	fns := t.finished
	t.finished = nil
	t.mu.Unlock()

	for _, fn := range fns {
		fn(err)
	}
}
