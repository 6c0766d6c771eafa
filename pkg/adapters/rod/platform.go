package rod

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"

	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
)

// startScript starts a view transition whose update callback resolves only
// when Go releases it, after replaying the queued mutations over CDP.
const startScript = `() => {
	if (typeof document.startViewTransition !== 'function') return false;
	const state = {};
	state.captured = new Promise((resolve) => { state.onCapture = resolve; });
	const ready = new Promise((resolve, reject) => {
		state.release = (failed) => failed ? reject(new Error('update failed')) : resolve();
	});
	state.transition = document.startViewTransition(() => {
		state.onCapture(true);
		return ready;
	});
	window.__vista = state;
	return true;
}`

// Platform runs transitions with document.startViewTransition.
//
// Like the memory platform it is cooperative: StartTransition only starts the
// browser side, and each Tick advances one step (wait for the old-state capture
// and run the update, then wait for the animation to finish).
type Platform struct {
	page  *rod.Page
	ctx   context.Context
	mu    sync.Mutex
	tasks []func()
}

var (
	_ ports.Platform = (*Platform)(nil)
	_ ports.Ticker   = (*Platform)(nil)
)

// NewPlatform creates a platform on page. ctx bounds every browser call.
func NewPlatform(ctx context.Context, page *rod.Page) *Platform {
	return &Platform{page: page, ctx: ctx}
}

// Supported reports whether the page exposes document.startViewTransition.
func (p *Platform) Supported() (bool, error) {
	res, err := p.page.Context(p.ctx).Eval(`() => typeof document.startViewTransition === 'function'`)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// StartTransition starts the browser transition and schedules update.
func (p *Platform) StartTransition(update func() error) (ports.Transition, error) {
	page := p.page.Context(p.ctx)
	res, err := page.Evaluate(rod.Eval(startScript))
	if err != nil {
		return nil, fmt.Errorf("start view transition: %w", err)
	}
	if !res.Value.Bool() {
		return nil, domain.ErrPlatformUnavailable
	}

	tr := &transition{}
	p.schedule(func() {
		if _, err := page.Evaluate(rod.Eval(`() => window.__vista.captured`).ByPromise()); err != nil {
			tr.finish(fmt.Errorf("wait for capture: %w", err))
			return
		}
		uerr := update()
		if _, err := page.Evaluate(rod.Eval(`(failed) => { window.__vista.release(failed) }`, uerr != nil)); err != nil && uerr == nil {
			uerr = fmt.Errorf("release update: %w", err)
		}
		p.schedule(func() {
			_, err := page.Evaluate(rod.Eval(`() => window.__vista.transition.finished.then(() => true, () => false)`).ByPromise())
			if uerr == nil && err != nil {
				uerr = fmt.Errorf("wait for finish: %w", err)
			}
			tr.finish(uerr)
		})
	})
	return tr, nil
}

// Tick runs the steps that were due and returns how many ran.
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
