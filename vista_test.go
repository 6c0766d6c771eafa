package vista_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vista"
	"github.com/aretw0/vista/pkg/adapters/memory"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
	"github.com/aretw0/vista/pkg/shadow"
	"github.com/aretw0/vista/pkg/style"
)

func newTransitioner(t *testing.T, opts ...vista.Option) (*vista.Transitioner, *memory.Document, *memory.Platform) {
	t.Helper()
	doc := memory.NewDocument()
	platform := memory.NewPlatform()
	tr, err := vista.NewFromDocument(doc, append([]vista.Option{vista.WithPlatform(platform)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr, doc, platform
}

func div(t *testing.T, doc ports.Document, id string) ports.Node {
	t.Helper()
	n, err := doc.CreateElement("div")
	require.NoError(t, err)
	require.NoError(t, n.SetAttribute("id", id))
	return n
}

func TestNew_RequiresRoot(t *testing.T) {
	_, err := vista.New(nil)
	assert.Error(t, err)
}

func TestNew_InstallsStyleElementOnce(t *testing.T) {
	doc := memory.NewDocument()
	a, err := vista.NewFromDocument(doc)
	require.NoError(t, err)
	b, err := vista.NewFromDocument(doc)
	require.NoError(t, err)

	assert.Same(t, a.Sheet(), b.Sheet())
	require.Len(t, doc.Head().Children(), 1)
	marker, ok := doc.Head().Children()[0].Attribute(style.Marker)
	assert.True(t, ok)
	assert.Equal(t, "transition", marker)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.Len(t, doc.Head().Children(), 1, "b still holds the sheet")
	assert.True(t, style.Installed(doc.Head()))

	require.NoError(t, b.Close())
	assert.Empty(t, doc.Head().Children())
	assert.False(t, style.Installed(doc.Head()))
}

func TestTransitioner_CloseKeepsSharedSheetAttached(t *testing.T) {
	doc := memory.NewDocument()
	a, err := vista.NewFromDocument(doc)
	require.NoError(t, err)
	platform := memory.NewPlatform()
	b, err := vista.NewFromDocument(doc, vista.WithPlatform(platform))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, a.Close())

	require.NoError(t, b.Arm(domain.NewRequest(domain.Entry{ID: "x", Name: "y"})))
	_, err = b.Root().AppendChild(div(t, doc, "x"))
	require.NoError(t, err)

	require.Len(t, doc.Head().Children(), 1)
	text, _ := doc.Head().Children()[0].Property("textContent")
	assert.Equal(t, "#x{view-transition-name:y;}", text)

	platform.Drain()
	assert.Len(t, doc.Root().Children(), 1)
}

func TestTransitioner_UnarmedAppendIsSynchronous(t *testing.T) {
	tr, doc, platform := newTransitioner(t)

	_, err := tr.Root().AppendChild(div(t, doc, "a"))
	require.NoError(t, err)

	assert.Len(t, doc.Root().Children(), 1)
	assert.Equal(t, 0, platform.Started())
	assert.Empty(t, tr.Sheet().Content())
}

func TestTransitioner_DefaultOnlyRequestWithSingleAttributeWrite(t *testing.T) {
	tr, doc, platform := newTransitioner(t)
	completions := 0
	tr.OnComplete(func(domain.CompletionEvent) { completions++ })

	payload := `[{}]`
	require.NoError(t, tr.SetAttribute(&payload))

	root := tr.BeginPass()
	require.NoError(t, root.SetAttribute("class", "next"))

	_, ok := doc.Body().Attribute("class")
	assert.False(t, ok, "deferred")
	assert.Empty(t, tr.Sheet().Content())
	assert.Equal(t, 1, platform.Started())

	platform.Tick()
	v, _ := doc.Body().Attribute("class")
	assert.Equal(t, "next", v)
	assert.Equal(t, 1, completions)

	platform.Tick()
	require.NoError(t, tr.BeginPass().SetAttribute("class", "after"))
	v, _ = doc.Body().Attribute("class")
	assert.Equal(t, "after", v, "next pass is immediate again")
	assert.Equal(t, 1, platform.Started())
	assert.Equal(t, 1, completions)
}

func TestTransitioner_FIFOWithoutDedupe(t *testing.T) {
	tr, doc, platform := newTransitioner(t)

	var seen []string
	doc.Body().AddEventListener("attributes", func(e ports.Event) {
		v, _ := doc.Body().Attribute("data-step")
		seen = append(seen, v)
	})

	require.NoError(t, tr.Arm(domain.NewRequest(domain.Entry{})))
	root := tr.Root()
	for _, v := range []string{"1", "2", "2", "3"} {
		require.NoError(t, root.SetAttribute("data-step", v))
	}
	assert.Equal(t, 4, tr.Pending())
	assert.Empty(t, seen)

	platform.Tick()
	assert.Equal(t, []string{"1", "2", "2", "3"}, seen)
}

func TestTransitioner_ShadowReadsWhileInFlight(t *testing.T) {
	tr, doc, platform := newTransitioner(t)
	_, err := tr.Root().AppendChild(div(t, doc, "a"))
	require.NoError(t, err)

	require.NoError(t, tr.Arm(domain.NewRequest(domain.Entry{ID: "b", Name: "b"})))
	root := tr.BeginPass()
	a := root.Children()[0]

	_, err = root.InsertBefore(div(t, doc, "b"), a)
	require.NoError(t, err)
	_, err = root.InsertBefore(div(t, doc, "head"), nil)
	require.NoError(t, err)
	_, err = root.RemoveChild(a)
	require.NoError(t, err)

	var shadowIDs []string
	for _, c := range root.Children() {
		id, _ := c.Attribute("id")
		shadowIDs = append(shadowIDs, id)
	}
	assert.Equal(t, []string{"head", "b"}, shadowIDs)
	assert.Len(t, doc.Root().Children(), 1, "real tree unchanged until flush")

	platform.Drain()
	assert.Equal(t, domain.PhaseIdle, tr.Phase())
	assert.Len(t, doc.Root().Children(), 2)
}

func TestTransitioner_StyleRuleLifetime(t *testing.T) {
	tr, doc, _ := newTransitioner(t)

	payload := `[{"id":"a","name":"x"}]`
	require.NoError(t, tr.SetAttribute(&payload))
	assert.Empty(t, tr.Sheet().Content())

	_, err := tr.Root().AppendChild(div(t, doc, "a"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(tr.Sheet().Content(), "view-transition-name"))
	assert.Contains(t, tr.Sheet().Content(), "#a{view-transition-name:x;}")

	text, _ := tr.Sheet().Node().Property("textContent")
	assert.Equal(t, tr.Sheet().Content(), text)

	assert.Equal(t, 2, tr.Settle(10))
	assert.Empty(t, tr.Sheet().Content())
}

func TestTransitioner_DegradedPlatform(t *testing.T) {
	doc := memory.NewDocument()
	tr2, err := vista.New(doc.Root(), vista.WithPlatform(memory.NewPlatform(memory.Unavailable())))
	require.NoError(t, err)
	assert.Nil(t, tr2.Sheet())

	var events []domain.CompletionEvent
	tr2.OnComplete(func(ev domain.CompletionEvent) { events = append(events, ev) })

	require.NoError(t, tr2.Arm(domain.NewRequest(domain.Entry{})))
	_, err = tr2.Root().AppendChild(div(t, doc, "a"))
	require.NoError(t, err)

	assert.Len(t, doc.Root().Children(), 1)
	require.Len(t, events, 1)
	assert.True(t, events[0].Degraded)
}

func TestTransitioner_OnRecord(t *testing.T) {
	tr, doc, platform := newTransitioner(t, vista.WithSessionID("s-1"))
	var records []domain.Record
	off := tr.OnRecord(func(r domain.Record) { records = append(records, r) })

	require.NoError(t, tr.Arm(domain.NewRequest(domain.Entry{ID: "a", Name: "x"})))
	_, err := tr.Root().AppendChild(div(t, doc, "a"))
	require.NoError(t, err)
	platform.Drain()

	require.Len(t, records, 1)
	assert.Equal(t, "s-1", records[0].SessionID)
	assert.Equal(t, []string{"x"}, records[0].Names)
	assert.Equal(t, 1, records[0].Applied)

	off()
	require.NoError(t, tr.Arm(domain.NewRequest(domain.Entry{})))
	_, err = tr.Root().AppendChild(div(t, doc, "b"))
	require.NoError(t, err)
	platform.Drain()
	assert.Len(t, records, 1)
}

func TestTransitioner_BeginPassResetsArena(t *testing.T) {
	tr, doc, _ := newTransitioner(t)
	first := tr.Root()
	assert.Equal(t, uint64(1), tr.Pass())

	second := tr.BeginPass()
	assert.NotSame(t, first, second)
	assert.Equal(t, uint64(2), tr.Pass())
	assert.Equal(t, doc.Root().Identity(), second.Identity())
}

func TestTransitioner_BeginPassKeepsQueuedStructure(t *testing.T) {
	tr, doc, platform := newTransitioner(t)
	require.NoError(t, tr.Arm(domain.NewRequest(domain.Entry{})))

	first := tr.Root()
	_, err := first.AppendChild(div(t, doc, "new"))
	require.NoError(t, err)
	require.Equal(t, 1, tr.Pending())

	second := tr.BeginPass()
	assert.Same(t, first, second)
	assert.Equal(t, uint64(1), tr.Pass())
	assert.Len(t, second.Children(), 1)
	assert.NotNil(t, shadow.FindByID(second, "new"))

	platform.Drain()
	third := tr.BeginPass()
	assert.NotSame(t, first, third)
	assert.Equal(t, uint64(2), tr.Pass())
	assert.NotNil(t, shadow.FindByID(third, "new"))
}
