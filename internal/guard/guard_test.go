package guard

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquire_MutualExclusion(t *testing.T) {
	const callers = 64
	g := New()

	var (
		wg      sync.WaitGroup
		won     atomic.Int32
		busy    atomic.Int32
		start   = make(chan struct{})
		winners = make(chan *Session, callers)
	)

	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			s, err := g.TryAcquire()
			switch {
			case err == nil:
				won.Add(1)
				winners <- s
			case errors.Is(err, ErrBusy):
				busy.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()
	close(winners)

	assert.Equal(t, int32(1), won.Load())
	assert.Equal(t, int32(callers-1), busy.Load())
	assert.True(t, g.Held())

	for s := range winners {
		s.Release()
	}
	assert.False(t, g.Held())
}

func TestTryAcquire_BusyHasNoSideEffects(t *testing.T) {
	g := New()
	first, err := g.TryAcquire()
	require.NoError(t, err)

	s, err := g.TryAcquire()
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, first.Active())
	assert.Equal(t, 1, g.held)
}

func TestRelease_Idempotent(t *testing.T) {
	g := New()
	s, err := g.TryAcquire()
	require.NoError(t, err)

	g.Release(s)
	g.Release(s)
	s.Release()

	assert.False(t, s.Active())
	assert.Equal(t, 0, g.held)
}

func TestRelease_StaleSessionDoesNotFreeNewHolder(t *testing.T) {
	g := New()
	first, err := g.TryAcquire()
	require.NoError(t, err)
	first.Release()

	second, err := g.TryAcquire()
	require.NoError(t, err)

	first.Release()
	assert.True(t, g.Held(), "stale release must not free the new holder")
	assert.True(t, second.Active())

	_, err = g.TryAcquire()
	assert.ErrorIs(t, err, ErrBusy)
}

func TestRelease_NilAndForeign(t *testing.T) {
	g := New()
	other := New()

	s, err := other.TryAcquire()
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		g.Release(nil)
		g.Release(s)
		g.decrement()
	})
	assert.Equal(t, 0, g.held)
	assert.True(t, other.Held())
}

func TestReacquireAfterRelease(t *testing.T) {
	g := New()

	s1, err := g.TryAcquire()
	require.NoError(t, err)
	s1.Release()

	s2, err := g.TryAcquire()
	require.NoError(t, err)
	assert.NotEqual(t, s1.ID(), s2.ID())
	assert.True(t, s2.Active())
}
