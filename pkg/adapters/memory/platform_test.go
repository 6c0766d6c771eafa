package memory_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vista/pkg/adapters/memory"
	"github.com/aretw0/vista/pkg/domain"
)

func TestPlatform_RunsUpdateThenFinished(t *testing.T) {
	p := memory.NewPlatform()
	var steps []string

	tr, err := p.StartTransition(func() error {
		steps = append(steps, "update")
		return nil
	})
	require.NoError(t, err)
	tr.Finished(func(err error) {
		assert.NoError(t, err)
		steps = append(steps, "finished")
	})
	assert.Empty(t, steps, "nothing runs before the first tick")

	assert.Equal(t, 1, p.Tick())
	assert.Equal(t, []string{"update"}, steps)

	assert.Equal(t, 1, p.Tick())
	assert.Equal(t, []string{"update", "finished"}, steps)
	assert.Equal(t, 0, p.Pending())
	assert.Equal(t, 1, p.Started())
}

func TestPlatform_FinishedReceivesUpdateError(t *testing.T) {
	p := memory.NewPlatform()
	boom := errors.New("boom")

	tr, err := p.StartTransition(func() error { return boom })
	require.NoError(t, err)
	assert.Equal(t, 2, p.Drain())

	var got error
	tr.Finished(func(err error) { got = err })
	assert.ErrorIs(t, got, boom, "late registration still sees the result")
}

func TestPlatform_Unavailable(t *testing.T) {
	_, err := memory.NewPlatform(memory.Unavailable()).StartTransition(func() error { return nil })
	assert.ErrorIs(t, err, domain.ErrPlatformUnavailable)

	boom := errors.New("no capture")
	_, err = memory.NewPlatform(memory.WithStartError(boom)).StartTransition(func() error { return nil })
	assert.ErrorIs(t, err, boom)
}

func TestPlatform_SkipUpdate(t *testing.T) {
	p := memory.NewPlatform(memory.SkipUpdate())
	ran := false
	tr, err := p.StartTransition(func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)

	finished := false
	tr.Finished(func(error) { finished = true })
	p.Drain()

	assert.False(t, ran)
	assert.True(t, finished)
}
