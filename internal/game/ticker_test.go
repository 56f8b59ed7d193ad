package game_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmorales/periogame/internal/game"
	"github.com/dmorales/periogame/internal/testutil/mocks"
)

func TestWatchElapsedDeliversTicks(t *testing.T) {
	snap := openSession(3, 0)
	snap.StartedOn = wire(time.Now())
	api := new(mocks.MockGameAPI)
	api.On("GetGame", mock.Anything, testGameID).Return(snap, nil).Once()

	e := newEngine(t, api)
	require.NoError(t, e.Load(context.Background()))

	var ticks atomic.Int64
	ticker := game.WatchElapsed(e, 5*time.Millisecond, func(time.Duration) {
		ticks.Add(1)
	})
	defer ticker.Stop()

	assert.Eventually(t, func() bool { return ticks.Load() >= 3 },
		time.Second, 5*time.Millisecond)
}

func TestWatchElapsedStopsAfterFinish(t *testing.T) {
	api := new(mocks.MockGameAPI)
	api.On("GetGame", mock.Anything, testGameID).Return(closedSession(2, 300), nil).Once()

	e := newEngine(t, api)
	require.NoError(t, e.Load(context.Background()))
	require.Equal(t, game.PhaseFinished, e.Phase())

	var ticks atomic.Int64
	ticker := game.WatchElapsed(e, time.Millisecond, func(time.Duration) {
		ticks.Add(1)
	})

	// One final delivery, then the goroutine exits on its own; Stop only has
	// to reap it.
	assert.Eventually(t, func() bool { return ticks.Load() >= 1 },
		time.Second, time.Millisecond)
	ticker.Stop()
	delivered := ticks.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, delivered, ticks.Load())
}

func TestWatchElapsedStopIsIdempotent(t *testing.T) {
	snap := openSession(3, 0)
	api := new(mocks.MockGameAPI)
	api.On("GetGame", mock.Anything, testGameID).Return(snap, nil).Once()

	e := newEngine(t, api)
	require.NoError(t, e.Load(context.Background()))

	ticker := game.WatchElapsed(e, time.Millisecond, func(time.Duration) {})
	ticker.Stop()
	ticker.Stop()
}
