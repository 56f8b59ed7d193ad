package game

import (
	"sync"
	"time"
)

// ElapsedTicker periodically reports the engine's derived elapsed time. The
// value is display-only; authoritative timestamps stay on the server. The
// ticker stops itself after delivering one final value once the session
// reaches Finished, and must be stopped on teardown to avoid leaking.
type ElapsedTicker struct {
	once sync.Once
	stop chan struct{}
	done chan struct{}
}

// WatchElapsed starts a ticker invoking fn with the current elapsed duration
// at every interval. fn is called from the ticker's goroutine.
func WatchElapsed(e *Engine, interval time.Duration, fn func(time.Duration)) *ElapsedTicker {
	t := &ElapsedTicker{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				fn(e.Elapsed())
				if e.Phase() == PhaseFinished {
					return
				}
			}
		}
	}()
	return t
}

// Stop halts the ticker and waits for its goroutine to exit. Safe to call
// more than once.
func (t *ElapsedTicker) Stop() {
	t.once.Do(func() { close(t.stop) })
	<-t.done
}
