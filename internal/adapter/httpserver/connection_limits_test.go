package httpserver

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestConnectionLimits_GlobalCap(t *testing.T) {
	l := NewConnectionLimits(clockwork.NewFakeClock(), 2, 10, 100, 100)

	ok, _ := l.Acquire("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Acquire("10.0.0.2")
	assert.True(t, ok)

	ok, reason := l.Acquire("10.0.0.3")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonGlobal, reason)
	assert.Equal(t, int64(2), l.Current())

	l.Release("10.0.0.1")
	ok, _ = l.Acquire("10.0.0.3")
	assert.True(t, ok)
}

func TestConnectionLimits_PerIPCapRollsBackGlobal(t *testing.T) {
	l := NewConnectionLimits(clockwork.NewFakeClock(), 100, 2, 100, 100)

	for i := 0; i < 2; i++ {
		ok, _ := l.Acquire("10.0.0.1")
		assert.True(t, ok)
	}

	ok, reason := l.Acquire("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonPerIP, reason)
	assert.Equal(t, int64(2), l.Current())
	assert.Equal(t, 2, l.CountIP("10.0.0.1"))

	ok, _ = l.Acquire("10.0.0.2")
	assert.True(t, ok)
}

func TestConnectionLimits_RateLimitRefills(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewConnectionLimits(clock, 100, 100, 1, 2)

	for i := 0; i < 2; i++ {
		ok, _ := l.Acquire("10.0.0.1")
		assert.True(t, ok)
	}

	ok, reason := l.Acquire("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonRate, reason)

	// Other IPs have their own bucket.
	ok, _ = l.Acquire("10.0.0.2")
	assert.True(t, ok)

	clock.Advance(time.Second)
	ok, _ = l.Acquire("10.0.0.1")
	assert.True(t, ok)
}

func TestConnectionLimits_ReleaseUnknownIsNoop(t *testing.T) {
	l := NewConnectionLimits(clockwork.NewFakeClock(), 10, 10, 10, 10)
	l.Release("never-seen")
	assert.Equal(t, int64(0), l.Current())
	assert.Equal(t, 0, l.CountIP("never-seen"))
}

func TestConnectionLimits_SweepsIdleRateLimiters(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewConnectionLimits(clock, 10, 10, 10, 10)

	l.Acquire("10.0.0.1")
	l.Release("10.0.0.1")
	assert.Equal(t, 1, l.trackedIPs())

	clock.Advance(rateLimiterIdleTTL + rateLimiterSweepEvery)
	l.Acquire("10.0.0.2")

	assert.Equal(t, 1, l.trackedIPs())
}

func TestConnectionLimits_Concurrent(t *testing.T) {
	l := NewConnectionLimits(clockwork.NewRealClock(), 100, 1000, 1e6, 1000)
	var success, fail atomic.Int64

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if ok, _ := l.Acquire("10.0.0.1"); ok {
				success.Add(1)
			} else {
				fail.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(100), success.Load())
	assert.Equal(t, int64(100), fail.Load())
	assert.Equal(t, int64(100), l.Current())
}
