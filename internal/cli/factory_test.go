package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vista/internal/config"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/session"
)

func TestSessionFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("memory platform defers", func(t *testing.T) {
		s, err := NewSessionFactory(FactoryOptions{Platform: config.PlatformMemory})(ctx, "s1")
		require.NoError(t, err)
		defer s.T.Close()

		require.NoError(t, s.T.Arm(domain.NewRequest(domain.Entry{})))
		require.NoError(t, s.T.Root().SetAttribute("class", "next"))
		assert.Equal(t, domain.PhaseInFlight, s.T.Phase())
		assert.NotContains(t, s.Snapshot(), `class="next"`)

		s.T.Settle(10)
		assert.Equal(t, domain.PhaseIdle, s.T.Phase())
		assert.Contains(t, s.Snapshot(), `class="next"`)
	})

	t.Run("none platform applies synchronously", func(t *testing.T) {
		s, err := NewSessionFactory(FactoryOptions{Platform: config.PlatformNone})(ctx, "s2")
		require.NoError(t, err)
		defer s.T.Close()

		var completions []domain.CompletionEvent
		off := s.T.OnComplete(func(ev domain.CompletionEvent) { completions = append(completions, ev) })
		defer off()

		require.NoError(t, s.T.Arm(domain.NewRequest(domain.Entry{})))
		require.NoError(t, s.T.Root().SetAttribute("class", "next"))
		assert.Equal(t, domain.PhaseIdle, s.T.Phase())
		assert.Contains(t, s.Snapshot(), `class="next"`)
		require.Len(t, completions, 1)
		assert.True(t, completions[0].Degraded)
	})

	t.Run("unknown platform", func(t *testing.T) {
		_, err := NewSessionFactory(FactoryOptions{Platform: "webgl"})(ctx, "s3")
		assert.Error(t, err)
	})

	t.Run("rod without browser", func(t *testing.T) {
		_, err := NewSessionFactory(FactoryOptions{Platform: config.PlatformRod})(ctx, "s4")
		assert.Error(t, err)
	})

	t.Run("works with the manager", func(t *testing.T) {
		mgr := session.NewManager(NewSessionFactory(FactoryOptions{}))
		defer mgr.Shutdown(ctx)

		s, err := mgr.Open(ctx, "")
		require.NoError(t, err)
		assert.NotEmpty(t, s.ID)
		assert.False(t, s.CreatedAt.IsZero())
	})
}
