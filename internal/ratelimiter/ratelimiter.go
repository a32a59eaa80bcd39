package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter interface {
	// Allow reports whether a request from key may proceed and, when it may
	// not, how long the caller should wait before retrying.
	Allow(key string) (bool, time.Duration)
}

type Config struct {
	RequestsPerTimeFrame int
	TimeFrame            time.Duration
	Enabled              bool
}

// TokenBucketLimiter keeps one token bucket per client key. Buckets refill at
// RequestsPerTimeFrame per TimeFrame and allow a full frame as burst.
type TokenBucketLimiter struct {
	mu       sync.Mutex
	limiters map[string]*client
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	lastGC   time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewTokenBucketLimiter(requests int, timeFrame time.Duration) *TokenBucketLimiter {
	if requests <= 0 {
		requests = 1
	}
	if timeFrame <= 0 {
		timeFrame = time.Second
	}

	return &TokenBucketLimiter{
		limiters: make(map[string]*client),
		limit:    rate.Limit(float64(requests) / timeFrame.Seconds()),
		burst:    requests,
		idleTTL:  10 * timeFrame,
		lastGC:   time.Now(),
	}
}

func (l *TokenBucketLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.collect(now)

	c, ok := l.limiters[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = c
	}
	c.lastSeen = now

	reservation := c.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, time.Second
	}

	delay := reservation.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}

	reservation.CancelAt(now)
	return false, delay
}

// collect drops buckets for clients that have been idle for a while.
func (l *TokenBucketLimiter) collect(now time.Time) {
	if now.Sub(l.lastGC) < l.idleTTL {
		return
	}
	for key, c := range l.limiters {
		if now.Sub(c.lastSeen) > l.idleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastGC = now
}
