package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/vista/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunNodeContract runs a suite of tests to verify that a Document and its Nodes
// adhere to the tree contract the shadow wrapper relies on.
func RunNodeContract(t *testing.T, newDocument func(t *testing.T) Document) {
	t.Run("Append And Read Back", func(t *testing.T) {
		doc := newDocument(t)
		root := doc.Root()

		a := mustElement(t, doc, "div")
		b := mustElement(t, doc, "span")

		got, err := root.AppendChild(a)
		require.NoError(t, err)
		assert.Equal(t, a.Identity(), got.Identity(), "AppendChild should return the appended node")
		_, err = root.AppendChild(b)
		require.NoError(t, err)

		assert.Equal(t, []string{"div", "span"}, tags(root.Children()))
		require.NotNil(t, a.Parent())
		assert.Equal(t, root.Identity(), a.Parent().Identity())
	})

	t.Run("Insert Before", func(t *testing.T) {
		doc := newDocument(t)
		root := doc.Root()
		a := mustElement(t, doc, "a")
		b := mustElement(t, doc, "b")
		c := mustElement(t, doc, "i")

		_, err := root.AppendChild(a)
		require.NoError(t, err)
		_, err = root.InsertBefore(b, a)
		require.NoError(t, err)
		_, err = root.InsertBefore(c, nil)
		require.NoError(t, err, "nil reference should append")

		assert.Equal(t, []string{"b", "a", "i"}, tags(root.Children()))
	})

	t.Run("Replace And Remove", func(t *testing.T) {
		doc := newDocument(t)
		root := doc.Root()
		a := mustElement(t, doc, "a")
		b := mustElement(t, doc, "b")

		_, err := root.AppendChild(a)
		require.NoError(t, err)

		old, err := root.ReplaceChild(b, a)
		require.NoError(t, err)
		assert.Equal(t, a.Identity(), old.Identity())
		assert.Equal(t, []string{"b"}, tags(root.Children()))
		assert.Nil(t, a.Parent())

		removed, err := root.RemoveChild(b)
		require.NoError(t, err)
		assert.Equal(t, b.Identity(), removed.Identity())
		assert.Empty(t, root.Children())

		_, err = root.RemoveChild(b)
		assert.ErrorIs(t, err, domain.ErrNotChild)
	})

	t.Run("Move Between Parents", func(t *testing.T) {
		doc := newDocument(t)
		root := doc.Root()
		left := mustElement(t, doc, "section")
		right := mustElement(t, doc, "aside")
		item := mustElement(t, doc, "p")

		_, err := root.AppendChild(left)
		require.NoError(t, err)
		_, err = root.AppendChild(right)
		require.NoError(t, err)
		_, err = left.AppendChild(item)
		require.NoError(t, err)

		_, err = right.AppendChild(item)
		require.NoError(t, err)
		assert.Empty(t, left.Children())
		assert.Equal(t, []string{"p"}, tags(right.Children()))
	})

	t.Run("Attributes", func(t *testing.T) {
		doc := newDocument(t)
		el := mustElement(t, doc, "div")

		require.NoError(t, el.SetAttribute("id", "hero"))
		v, ok := el.Attribute("id")
		assert.True(t, ok)
		assert.Equal(t, "hero", v)

		require.NoError(t, el.RemoveAttribute("id"))
		_, ok = el.Attribute("id")
		assert.False(t, ok)
	})

	t.Run("Style And Properties", func(t *testing.T) {
		doc := newDocument(t)
		el := mustElement(t, doc, "div")

		require.NoError(t, el.SetStyle("color", "red"))
		require.NoError(t, el.SetProperty("textContent", "hello"))

		v, ok := el.Property("textContent")
		assert.True(t, ok)
		assert.Equal(t, "hello", v)
	})

	t.Run("Identity Is Stable", func(t *testing.T) {
		doc := newDocument(t)
		root := doc.Root()
		el := mustElement(t, doc, "div")
		_, err := root.AppendChild(el)
		require.NoError(t, err)

		children := root.Children()
		require.Len(t, children, 1)
		assert.Equal(t, el.Identity(), children[0].Identity())
	})
}

// RunJournalContract runs a suite of tests to verify that a Journal implementation
// adheres to the defined interface contract.
func RunJournalContract(t *testing.T, journal Journal) {
	ctx := context.Background()
	sessionID := "contract-journal-" + time.Now().Format("20060102150405.000000")
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("Record And History", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			err := journal.Record(ctx, domain.Record{
				SessionID:  sessionID,
				Names:      []string{"hero"},
				Applied:    i + 1,
				StartedAt:  start.Add(time.Duration(i) * time.Second),
				FinishedAt: start.Add(time.Duration(i)*time.Second + 250*time.Millisecond),
			})
			require.NoError(t, err)
		}

		history, err := journal.History(ctx, sessionID, 0)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, 3, history[0].Applied, "newest record first")
		assert.Equal(t, []string{"hero"}, history[0].Names)
		assert.Equal(t, 250*time.Millisecond, history[0].Duration())
	})

	t.Run("History Limit", func(t *testing.T) {
		history, err := journal.History(ctx, sessionID, 2)
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})

	t.Run("Unknown Session", func(t *testing.T) {
		history, err := journal.History(ctx, "unknown-"+sessionID, 0)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("Degraded With Error", func(t *testing.T) {
		id := sessionID + "-degraded"
		err := journal.Record(ctx, domain.Record{
			SessionID: id,
			Degraded:  true,
			Error:     "boom",
			StartedAt: start,
		})
		require.NoError(t, err)

		history, err := journal.History(ctx, id, 1)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.True(t, history[0].Degraded)
		assert.Equal(t, "boom", history[0].Error)
		assert.Empty(t, history[0].Names)
	})
}

func mustElement(t *testing.T, doc Document, tag string) Node {
	t.Helper()
	n, err := doc.CreateElement(tag)
	require.NoError(t, err)
	return n
}

func tags(nodes []Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Tag())
	}
	return out
}
