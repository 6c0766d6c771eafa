package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/vista"
	"github.com/aretw0/vista/internal/logging"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/dsl"
	"github.com/aretw0/vista/pkg/ports"
	"github.com/aretw0/vista/pkg/shadow"
)

// ErrUnresolved is returned when a node reference matches nothing.
var ErrUnresolved = errors.New("unresolved node reference")

// ErrExpectation is returned by a failing expect_children step.
var ErrExpectation = errors.New("expectation failed")

// Runner executes scripts.
type Runner struct {
	// Handler receives progress. If nil, output is discarded.
	Handler Handler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// ContinueOnError keeps going after a failing step.
	ContinueOnError bool

	// SettleLimit bounds the ticks of a settle step.
	SettleLimit int
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		Handler:     Discard,
		Logger:      logging.NewNop(),
		SettleLimit: 64,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run holds the state of one script execution.
type run struct {
	t    *vista.Transitioner
	doc  ports.Document
	refs map[string]ports.Node
}

// Run executes script against t. doc creates the nodes of create steps.
// It returns the first step error unless ContinueOnError is set.
func (r *Runner) Run(ctx context.Context, t *vista.Transitioner, doc ports.Document, script Script) (Report, error) {
	handler := r.Handler
	if handler == nil {
		handler = Discard
	}
	logger := r.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	rep := Report{Script: script.Name}
	var events []domain.CompletionEvent
	off := t.OnComplete(func(ev domain.CompletionEvent) {
		events = append(events, ev)
	})
	defer off()

	st := &run{t: t, doc: doc, refs: make(map[string]ports.Node)}
	var firstErr error

	for i, step := range script.Steps {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		detail, err := r.exec(st, step)
		rep.Steps++
		res := StepResult{
			Index:   i,
			Op:      step.Op,
			Target:  step.Target,
			Detail:  detail,
			Phase:   t.Phase(),
			Pending: t.Pending(),
			Err:     err,
		}
		if err != nil {
			rep.Failed++
			res.Error = err.Error()
			logger.Warn("script step failed", "index", i, "op", step.Op, "err", err)
		} else {
			logger.Debug("script step", "index", i, "op", step.Op, "phase", res.Phase)
		}
		if herr := handler.Step(ctx, res); herr != nil {
			return rep, fmt.Errorf("output error: %w", herr)
		}

		for _, ev := range events {
			rep.Completions = append(rep.Completions, ev)
			if herr := handler.Completion(ctx, ev); herr != nil {
				return rep, fmt.Errorf("output error: %w", herr)
			}
		}
		events = events[:0]

		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("step %d (%s): %w", i, step, err)
			}
			if !r.ContinueOnError {
				break
			}
		}
	}

	rep.Phase = t.Phase()
	rep.Pending = t.Pending()
	rep.Pass = t.Pass()
	if herr := handler.Summary(ctx, rep); herr != nil && firstErr == nil {
		firstErr = fmt.Errorf("output error: %w", herr)
	}
	return rep, firstErr
}

func (r *Runner) exec(st *run, s Step) (string, error) {
	switch s.Op {
	case OpTransition:
		return st.transition(s)
	case OpCreate:
		return st.create(s)
	case OpBeginPass:
		st.t.BeginPass()
		return fmt.Sprintf("pass %d", st.t.Pass()), nil
	case OpTick:
		n := s.Count
		if n <= 0 {
			n = 1
		}
		ran := 0
		for i := 0; i < n; i++ {
			ran += st.t.Tick()
		}
		return fmt.Sprintf("%d callbacks", ran), nil
	case OpSettle:
		limit := s.Count
		if limit <= 0 {
			limit = r.SettleLimit
		}
		return fmt.Sprintf("%d ticks", st.t.Settle(limit)), nil
	}

	target, err := st.resolve(s.Target)
	if err != nil {
		return "", err
	}

	switch s.Op {
	case OpAppend:
		child, err := st.resolve(s.Node)
		if err != nil {
			return "", err
		}
		_, err = target.AppendChild(child)
		return shadow.Describe(child), err

	case OpInsertBefore:
		child, err := st.resolve(s.Node)
		if err != nil {
			return "", err
		}
		var ref ports.Node
		if s.Ref != "" {
			// A reference that no longer exists inserts at the head.
			ref, _ = st.resolve(s.Ref)
		}
		_, err = target.InsertBefore(child, ref)
		return shadow.Describe(child), err

	case OpReplace:
		child, err := st.resolve(s.Node)
		if err != nil {
			return "", err
		}
		old, err := st.resolve(s.Ref)
		if err != nil {
			return "", err
		}
		_, err = target.ReplaceChild(child, old)
		return fmt.Sprintf("%s -> %s", shadow.Describe(old), shadow.Describe(child)), err

	case OpRemove:
		child, err := st.resolve(s.Node)
		if err != nil {
			return "", err
		}
		_, err = target.RemoveChild(child)
		return shadow.Describe(child), err

	case OpSetAttribute:
		v, err := SanitizeValue(fmt.Sprint(valueOrEmpty(s.Value)))
		if err != nil {
			return "", err
		}
		return s.Key, target.SetAttribute(s.Key, v)

	case OpRemoveAttribute:
		return s.Key, target.RemoveAttribute(s.Key)

	case OpSetStyle:
		v, err := SanitizeValue(fmt.Sprint(valueOrEmpty(s.Value)))
		if err != nil {
			return "", err
		}
		return s.Key, target.SetStyle(s.Key, v)

	case OpSetProperty:
		v := s.Value
		if str, ok := v.(string); ok {
			clean, err := SanitizeValue(str)
			if err != nil {
				return "", err
			}
			v = clean
		}
		return s.Key, target.SetProperty(s.Key, v)

	case OpExpectChildren:
		got := make([]string, 0)
		for _, c := range target.Children() {
			got = append(got, shadow.Describe(c))
		}
		if !equalLabels(got, s.Expect) {
			return strings.Join(got, ","), fmt.Errorf("%w: children of %s are [%s], want [%s]",
				ErrExpectation, shadow.Describe(target), strings.Join(got, " "), strings.Join(s.Expect, " "))
		}
		return strings.Join(got, ","), nil
	}
	return "", fmt.Errorf("unknown op %q", s.Op)
}

func (st *run) transition(s Step) (string, error) {
	if len(s.Entries) > 0 {
		req := domain.NewRequest(s.Entries...)
		return req.String(), st.t.Arm(req)
	}
	if err := st.t.SetAttribute(s.Payload); err != nil {
		return "", err
	}
	return st.t.Request().String(), nil
}

func (st *run) create(s Step) (string, error) {
	n, err := dsl.FromSpec(*s.Element).Build(st.doc)
	if err != nil {
		return "", err
	}
	st.refs[s.As] = n
	return fmt.Sprintf("$%s = %s", s.As, shadow.Describe(n)), nil
}

// resolve turns a reference into a node of the current pass.
func (st *run) resolve(ref string) (ports.Node, error) {
	switch {
	case ref == "" || ref == "root":
		return st.t.Root(), nil
	case strings.HasPrefix(ref, "#"):
		if n := shadow.FindByID(st.t.Root(), ref[1:]); n != nil {
			return n, nil
		}
	case strings.HasPrefix(ref, "$"):
		if n, ok := st.refs[ref[1:]]; ok {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnresolved, ref)
}

func valueOrEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}

// equalLabels compares child labels. An expected label starting with "#"
// matches by id only.
func equalLabels(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if strings.HasPrefix(want[i], "#") {
			if !strings.HasSuffix(got[i], want[i]) {
				return false
			}
			continue
		}
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
