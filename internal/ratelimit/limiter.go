// Package ratelimit provides fixed-window request limiting keyed by
// arbitrary strings (device ids, submitted codes).  Hardware endpoints are
// unauthenticated, so this is the only brake on brute-force scanning.
package ratelimit

import "context"

// Limiter reports whether one more request under key is allowed within
// the current one-second window.  Implementations must be safe for
// concurrent use.  Callers treat an error as "allow" (fail open): a
// limiter outage must not take the door fleet down with it.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
