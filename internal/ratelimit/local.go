package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Local — token bucket на каждый ключ: limit попыток за window с равномерным
// восполнением. Давно не встречавшиеся ключи вычищаются.
type Local struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	entries   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewLocal создаёт лимитер на limit попыток за window.
func NewLocal(limit int, window time.Duration) *Local {
	return &Local{
		limit:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		ttl:     window,
		entries: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow не обращается к внешним ресурсам и никогда не возвращает ошибку.
func (l *Local) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.entries[key]
	if b == nil {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = b
	}
	b.lastSeen = now

	l.sweep(now)

	r := b.lim.ReserveN(now, 1)
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return Result{Allowed: false, RetryAfter: d}, nil
	}

	return Result{Allowed: true}, nil
}

// sweep удаляет ключи, не встречавшиеся дольше ttl. Проход не чаще раза в ttl.
func (l *Local) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.ttl {
		return
	}
	l.lastSweep = now

	for k, v := range l.entries {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.entries, k)
		}
	}
}

func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
