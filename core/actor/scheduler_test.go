package actor

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScheduler_limits_concurrency(t *testing.T) {
	s := NewScheduler(t.Context(), 2)

	var running, peak, done atomic.Int32
	release := make(chan struct{})
	for range 6 {
		s.Schedule(func() {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			done.Add(1)
		})
	}
	close(release)
	s.Wait()

	require.Equal(t, int32(6), done.Load())
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestScheduler_recovers_panics(t *testing.T) {
	s := NewScheduler(t.Context(), 0)
	ran := make(chan struct{})
	s.Schedule(func() { panic("boom") })
	s.Schedule(func() { close(ran) })
	s.Wait()
	<-ran
}
