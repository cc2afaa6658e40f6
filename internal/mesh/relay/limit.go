package relay

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiters holds one token bucket per client identity.
type Limiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[int32]*rate.Limiter
}

// NewLimiters returns per-client limiters allowing perSecond messages with
// the given burst. A non-positive perSecond disables limiting.
func NewLimiters(perSecond float64, burst int) *Limiters {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiters{
		limit:    limit,
		burst:    burst,
		limiters: make(map[int32]*rate.Limiter),
	}
}

// Reserve takes one token for the next message of clientID and returns how
// long that message has to wait. Successive reservations of one client never
// shorten, so messages released after their delay keep their order.
func (l *Limiters) Reserve(clientID int32) time.Duration {
	if l == nil || l.limit == rate.Inf {
		return 0
	}
	l.mu.Lock()
	lim, ok := l.limiters[clientID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[clientID] = lim
	}
	l.mu.Unlock()
	return lim.Reserve().Delay()
}

// Forget drops the limiter of a disconnected client.
func (l *Limiters) Forget(clientID int32) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.limiters, clientID)
	l.mu.Unlock()
}
