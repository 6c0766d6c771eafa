package runtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vista/internal/runtime"
	"github.com/aretw0/vista/pkg/adapters/memory"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
	"github.com/aretw0/vista/pkg/shadow"
)

type fixture struct {
	doc      *memory.Document
	platform *memory.Platform
	sheet    *recordingSheet
	orch     *runtime.Orchestrator
	root     *shadow.Wrapper
	events   []domain.CompletionEvent
	records  []domain.Record
}

type recordingSheet struct {
	content string
	writes  []string
}

func (s *recordingSheet) Write(css string) error {
	s.content = css
	s.writes = append(s.writes, css)
	return nil
}

func (s *recordingSheet) Clear() error {
	return s.Write("")
}

func newFixture(t *testing.T, opts ...runtime.Option) *fixture {
	t.Helper()
	f := &fixture{
		doc:      memory.NewDocument(),
		platform: memory.NewPlatform(),
		sheet:    &recordingSheet{},
	}
	hooks := domain.LifecycleHooks{
		OnRecord: func(_ context.Context, r *domain.Record) {
			f.records = append(f.records, *r)
		},
	}
	base := []runtime.Option{
		runtime.WithPlatform(f.platform),
		runtime.WithStyleSheet(f.sheet),
		runtime.WithLifecycleHooks(hooks),
	}
	f.orch = runtime.NewOrchestrator(append(base, opts...)...)
	f.orch.OnComplete(func(ev domain.CompletionEvent) {
		f.events = append(f.events, ev)
	})
	f.root = shadow.NewArena(f.orch.Gate()).Root(f.doc.Root())
	return f
}

func (f *fixture) el(t *testing.T, id string) ports.Node {
	t.Helper()
	n, err := f.doc.CreateElement("div")
	require.NoError(t, err)
	require.NoError(t, n.SetAttribute("id", id))
	return n
}

func realIDs(doc *memory.Document) []string {
	var out []string
	for _, c := range doc.Root().Children() {
		id, _ := c.Attribute("id")
		out = append(out, id)
	}
	return out
}

func TestOrchestrator_IdleAppliesImmediately(t *testing.T) {
	f := newFixture(t)

	_, err := f.root.AppendChild(f.el(t, "a"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, realIDs(f.doc))
	assert.Equal(t, domain.PhaseIdle, f.orch.Phase())
	assert.Equal(t, 0, f.platform.Started())
	assert.Empty(t, f.events)
}

func TestOrchestrator_DefersUntilUpdateCallback(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Arm(domain.NewRequest(domain.Entry{})))
	assert.Equal(t, domain.PhaseArmed, f.orch.Phase())

	_, err := f.root.AppendChild(f.el(t, "a"))
	require.NoError(t, err)
	_, err = f.root.AppendChild(f.el(t, "b"))
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseInFlight, f.orch.Phase())
	assert.Equal(t, 1, f.platform.Started(), "capture starts once per armed pass")
	assert.Empty(t, realIDs(f.doc), "nothing lands before the update callback")
	assert.Equal(t, 2, f.orch.Pending())
	assert.Len(t, f.root.Children(), 2, "reads see the renderer's own writes")

	f.platform.Tick()
	assert.Equal(t, []string{"a", "b"}, realIDs(f.doc))
	require.Len(t, f.events, 1)
	assert.Equal(t, 2, f.events[0].Applied)
	assert.False(t, f.events[0].Degraded)
	assert.Equal(t, domain.PhaseInFlight, f.orch.Phase(), "still in flight until finished")

	f.platform.Tick()
	assert.Equal(t, domain.PhaseIdle, f.orch.Phase())
	require.Len(t, f.records, 1)
	assert.Equal(t, 2, f.records[0].Applied)
}

func TestOrchestrator_MutationsAfterFlushApplyImmediately(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Arm(domain.NewRequest(domain.Entry{})))
	_, err := f.root.AppendChild(f.el(t, "a"))
	require.NoError(t, err)
	f.platform.Tick()

	_, err = f.root.AppendChild(f.el(t, "b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, realIDs(f.doc))
	assert.Equal(t, 1, f.platform.Started())
}

func TestOrchestrator_NamedStylesLifetime(t *testing.T) {
	f := newFixture(t)
	req := domain.NewRequest(domain.Entry{ID: "hero", Name: "hero-image"}, domain.Entry{})
	require.NoError(t, f.orch.Arm(req))
	assert.Empty(t, f.sheet.content, "styles are written when capture starts")

	_, err := f.root.AppendChild(f.el(t, "hero"))
	require.NoError(t, err)
	assert.Equal(t, "#hero{view-transition-name:hero-image;}", f.sheet.content)

	f.platform.Tick()
	assert.NotEmpty(t, f.sheet.content, "styles outlive the update callback")
	require.Len(t, f.events, 1)
	assert.Equal(t, []string{"hero-image"}, f.events[0].Names)

	f.platform.Tick()
	assert.Empty(t, f.sheet.content, "styles are cleared once finished")
}

func TestOrchestrator_DefaultEntryWritesNoStyles(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Arm(domain.NewRequest(domain.Entry{})))
	_, err := f.root.AppendChild(f.el(t, "a"))
	require.NoError(t, err)
	f.platform.Drain()

	for _, w := range f.sheet.writes {
		assert.Empty(t, w)
	}
}

func TestOrchestrator_ArmWhileInFlight(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Arm(domain.NewRequest(domain.Entry{})))
	_, err := f.root.AppendChild(f.el(t, "a"))
	require.NoError(t, err)

	err = f.orch.Arm(domain.NewRequest(domain.Entry{}))
	assert.ErrorIs(t, err, domain.ErrTransitionInFlight)

	f.platform.Tick()
	err = f.orch.Arm(domain.NewRequest(domain.Entry{}))
	assert.ErrorIs(t, err, domain.ErrTransitionInFlight, "refused until the platform finishes")

	f.platform.Tick()
	assert.NoError(t, f.orch.Arm(domain.NewRequest(domain.Entry{})))
}

func TestOrchestrator_RearmReplacesRequest(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Arm(domain.NewRequest(domain.Entry{ID: "a", Name: "first"})))
	require.NoError(t, f.orch.Arm(domain.NewRequest(domain.Entry{ID: "b", Name: "second"})))
	assert.Equal(t, []string{"second"}, f.orch.Request().Names())

	_, err := f.root.AppendChild(f.el(t, "b"))
	require.NoError(t, err)
	assert.Equal(t, "#b{view-transition-name:second;}", f.sheet.content)
}

func TestOrchestrator_EmptyRequestDisarms(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Arm(domain.NewRequest(domain.Entry{})))
	require.NoError(t, f.orch.Arm(domain.Request{}))
	assert.Equal(t, domain.PhaseIdle, f.orch.Phase())

	_, err := f.root.AppendChild(f.el(t, "a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, realIDs(f.doc))
	assert.Equal(t, 0, f.platform.Started())
}

func TestOrchestrator_SetAttribute(t *testing.T) {
	f := newFixture(t)

	payload := `[{"id":"hero","name":"hero"}]`
	require.NoError(t, f.orch.SetAttribute(&payload))
	assert.Equal(t, domain.PhaseArmed, f.orch.Phase())

	require.NoError(t, f.orch.SetAttribute(nil))
	assert.Equal(t, domain.PhaseIdle, f.orch.Phase())

	bad := `[{"id":"hero"}]`
	require.NoError(t, f.orch.SetAttribute(&bad), "malformed payloads are ignored")
	assert.Equal(t, domain.PhaseIdle, f.orch.Phase())
}

func TestOrchestrator_DegradesWithoutPlatform(t *testing.T) {
	sheet := &recordingSheet{}
	var degraded int
	orch := runtime.NewOrchestrator(
		runtime.WithStyleSheet(sheet),
		runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnDegrade: func(context.Context, *domain.TransitionEvent) { degraded++ },
		}),
	)
	doc := memory.NewDocument()
	root := shadow.NewArena(orch.Gate()).Root(doc.Root())

	var events []domain.CompletionEvent
	orch.OnComplete(func(ev domain.CompletionEvent) { events = append(events, ev) })

	require.NoError(t, orch.Arm(domain.NewRequest(domain.Entry{ID: "a", Name: "a"})))
	el, _ := doc.CreateElement("p")
	_, err := root.AppendChild(el)
	require.NoError(t, err)

	assert.Len(t, doc.Root().Children(), 1, "applied synchronously")
	assert.Equal(t, domain.PhaseIdle, orch.Phase())
	assert.Equal(t, 1, degraded)
	require.Len(t, events, 1)
	assert.True(t, events[0].Degraded)
	assert.Equal(t, 1, events[0].Applied)
	assert.Empty(t, sheet.content)

	require.NoError(t, orch.Arm(domain.NewRequest(domain.Entry{})), "can arm again right away")
}

func TestOrchestrator_DegradesWhenStartFails(t *testing.T) {
	f := newFixture(t)
	f.orch = runtime.NewOrchestrator(
		runtime.WithPlatform(memory.NewPlatform(memory.Unavailable())),
		runtime.WithStyleSheet(f.sheet),
	)
	f.root = shadow.NewArena(f.orch.Gate()).Root(f.doc.Root())

	require.NoError(t, f.orch.Arm(domain.NewRequest(domain.Entry{ID: "x", Name: "x"})))
	_, err := f.root.AppendChild(f.el(t, "x"))
	require.NoError(t, err)

	assert.Equal(t, []string{"x"}, realIDs(f.doc))
	assert.Empty(t, f.sheet.content, "styles never outlive a failed start")
	assert.Equal(t, domain.PhaseIdle, f.orch.Phase())
}

func TestOrchestrator_FlushStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Arm(domain.NewRequest(domain.Entry{})))

	stranger := f.el(t, "stranger")
	_, err := f.root.AppendChild(f.el(t, "a"))
	require.NoError(t, err)
	_, err = f.root.RemoveChild(stranger)
	require.NoError(t, err)
	_, err = f.root.AppendChild(f.el(t, "c"))
	require.NoError(t, err)

	f.platform.Tick()
	assert.Equal(t, []string{"a"}, realIDs(f.doc))
	require.Len(t, f.events, 1)

	var fe *runtime.FlushError
	require.True(t, errors.As(f.events[0].Err, &fe))
	assert.Equal(t, 1, fe.Index)
	assert.Equal(t, domain.OpRemoveChild, fe.Mutation.Op)
	assert.ErrorIs(t, f.events[0].Err, domain.ErrNotChild)
	assert.Equal(t, 1, f.events[0].Applied)
	assert.NotEmpty(t, f.events[0].Error)

	f.platform.Tick()
	assert.Equal(t, domain.PhaseIdle, f.orch.Phase())
	require.Len(t, f.records, 1)
	assert.NotEmpty(t, f.records[0].Error)
}

func TestOrchestrator_SkippedUpdateStillFlushes(t *testing.T) {
	f := newFixture(t)
	f.platform = memory.NewPlatform(memory.SkipUpdate())
	f.orch = runtime.NewOrchestrator(runtime.WithPlatform(f.platform))
	f.root = shadow.NewArena(f.orch.Gate()).Root(f.doc.Root())

	require.NoError(t, f.orch.Arm(domain.NewRequest(domain.Entry{})))
	_, err := f.root.AppendChild(f.el(t, "a"))
	require.NoError(t, err)
	f.platform.Drain()

	assert.Equal(t, []string{"a"}, realIDs(f.doc))
	assert.Equal(t, domain.PhaseIdle, f.orch.Phase())
}

func TestOrchestrator_HooksAndRecordTiming(t *testing.T) {
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var seen []domain.EventType
	var mutations []domain.MutationEvent
	note := func(_ context.Context, e *domain.TransitionEvent) { seen = append(seen, e.Type) }

	f := newFixture(t)
	f.orch = runtime.NewOrchestrator(
		runtime.WithPlatform(f.platform),
		runtime.WithSessionID("s1"),
		runtime.WithClock(func() time.Time {
			clock = clock.Add(10 * time.Millisecond)
			return clock
		}),
		runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnArm:          note,
			OnCaptureStart: note,
			OnFlush:        note,
			OnFinish:       note,
			OnMutation: func(_ context.Context, e *domain.MutationEvent) {
				mutations = append(mutations, *e)
			},
			OnComplete: func(_ context.Context, e *domain.CompletionEvent) {
				seen = append(seen, e.Type)
				assert.Equal(t, "s1", e.SessionID)
			},
			OnRecord: func(_ context.Context, r *domain.Record) {
				f.records = append(f.records, *r)
			},
		}),
	)
	f.root = shadow.NewArena(f.orch.Gate()).Root(f.doc.Root())

	_, err := f.root.AppendChild(f.el(t, "before"))
	require.NoError(t, err)
	require.NoError(t, f.orch.Arm(domain.NewRequest(domain.Entry{})))
	_, err = f.root.AppendChild(f.el(t, "during"))
	require.NoError(t, err)
	f.platform.Drain()

	assert.Equal(t, []domain.EventType{
		domain.EventArm, domain.EventCaptureStart, domain.EventFlush, domain.EventComplete, domain.EventFinish,
	}, seen)
	require.Len(t, mutations, 2)
	assert.False(t, mutations[0].Deferred)
	assert.True(t, mutations[1].Deferred)

	require.Len(t, f.records, 1)
	assert.Equal(t, "s1", f.records[0].SessionID)
	assert.Positive(t, f.records[0].Duration())
}

func TestOrchestrator_OnCompleteUnsubscribe(t *testing.T) {
	f := newFixture(t)
	calls := 0
	off := f.orch.OnComplete(func(domain.CompletionEvent) { calls++ })
	off()

	require.NoError(t, f.orch.Arm(domain.NewRequest(domain.Entry{})))
	_, err := f.root.AppendChild(f.el(t, "a"))
	require.NoError(t, err)
	f.platform.Drain()

	assert.Equal(t, 0, calls)
	assert.Len(t, f.events, 1)
}
