package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultPerSecond is the fallback per-key limit; production deployments
// should always configure an explicit one.
const DefaultPerSecond = 10

type window struct {
	start int64 // unix second
	count int
}

// MemoryLimiter is a process-local fixed-window limiter for tests, dev
// and single-instance deployments without Redis.
type MemoryLimiter struct {
	mu        sync.Mutex
	perSecond int
	windows   map[string]window
	now       func() time.Time
}

func NewMemoryLimiter(perSecond int) *MemoryLimiter {
	if perSecond <= 0 {
		perSecond = DefaultPerSecond
	}
	return &MemoryLimiter{
		perSecond: perSecond,
		windows:   make(map[string]window),
		now:       time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	sec := l.now().Unix()

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w.start != sec {
		w = window{start: sec}
	}
	w.count++
	l.windows[key] = w

	// Opportunistic cleanup keeps the map from growing without bound
	// under many distinct keys.
	if len(l.windows) > 4096 {
		for k, v := range l.windows {
			if v.start != sec {
				delete(l.windows, k)
			}
		}
	}

	return w.count <= l.perSecond, nil
}
