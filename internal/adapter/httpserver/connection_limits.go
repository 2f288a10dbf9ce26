package httpserver

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	rateLimiterIdleTTL    = 10 * time.Minute
	rateLimiterSweepEvery = 5 * time.Minute
)

// LimitReason describes why a subscriber connection was rejected.
type LimitReason string

const (
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "per_ip_limit"
	LimitReasonRate   LimitReason = "rate_limit"
)

// ConnectionLimits guards the subscriber endpoint with three checks: a
// per-IP connection rate, a global cap on open subscribers and a per-IP cap.
type ConnectionLimits struct {
	clock clockwork.Clock

	globalMax int64
	global    atomic.Int64

	mu       sync.Mutex
	perIPMax int
	perIP    map[string]int

	rate     rate.Limit
	burst    int
	limiters map[string]*rateEntry
	sweepAt  time.Time
}

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewConnectionLimits creates the combined limiter.
// connectionsPerSecond and burst configure the per-IP token bucket.
func NewConnectionLimits(clock clockwork.Clock, globalMax int64, perIPMax int, connectionsPerSecond float64, burst int) *ConnectionLimits {
	return &ConnectionLimits{
		clock:     clock,
		globalMax: globalMax,
		perIPMax:  perIPMax,
		perIP:     make(map[string]int),
		rate:      rate.Limit(connectionsPerSecond),
		burst:     burst,
		limiters:  make(map[string]*rateEntry),
		sweepAt:   clock.Now().Add(rateLimiterSweepEvery),
	}
}

// Acquire reserves a slot for ip. On success the caller must Release it when
// the connection ends.
func (l *ConnectionLimits) Acquire(ip string) (bool, LimitReason) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.allowRate(ip) {
		return false, LimitReasonRate
	}

	if !l.acquireGlobal() {
		return false, LimitReasonGlobal
	}

	if l.perIP[ip] >= l.perIPMax {
		l.global.Add(-1)
		return false, LimitReasonPerIP
	}
	l.perIP[ip]++

	return true, ""
}

// Release returns the slot taken by a successful Acquire.
func (l *ConnectionLimits) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := l.perIP[ip]; n > 0 {
		if n == 1 {
			delete(l.perIP, ip)
		} else {
			l.perIP[ip] = n - 1
		}
		l.global.Add(-1)
	}
}

// Current returns the number of held slots.
func (l *ConnectionLimits) Current() int64 {
	return l.global.Load()
}

// CountIP returns the number of held slots for ip.
func (l *ConnectionLimits) CountIP(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}

func (l *ConnectionLimits) acquireGlobal() bool {
	for {
		current := l.global.Load()
		if current >= l.globalMax {
			return false
		}
		if l.global.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// allowRate must be called with mu held.
func (l *ConnectionLimits) allowRate(ip string) bool {
	now := l.clock.Now()

	if now.After(l.sweepAt) {
		cutoff := now.Add(-rateLimiterIdleTTL)
		for k, e := range l.limiters {
			if e.lastSeen.Before(cutoff) {
				delete(l.limiters, k)
			}
		}
		l.sweepAt = now.Add(rateLimiterSweepEvery)
	}

	e, ok := l.limiters[ip]
	if !ok {
		e = &rateEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (l *ConnectionLimits) trackedIPs() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
