package daemon

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// warnLimiter caps how many warnings per key are logged in a window. A key's
// window starts with its first warning and expires with the cache entry.
type warnLimiter struct {
	counts     *cache.Cache
	suppressed map[string]int
	maxPerKey  int
}

func newWarnLimiter(maxPerKey int, window time.Duration) *warnLimiter {
	return &warnLimiter{
		counts:     cache.New(window, 2*window),
		suppressed: make(map[string]int),
		maxPerKey:  maxPerKey,
	}
}

// Allow reports whether a warning for key may be logged. When it may, it also
// returns how many warnings for key were dropped since the last one allowed.
func (l *warnLimiter) Allow(key string) (ok bool, dropped int) {
	n, err := l.counts.IncrementInt(key, 1)
	if err != nil {
		// missing or expired: a new window
		l.counts.SetDefault(key, 1)
		n = 1
	}

	if n > l.maxPerKey {
		l.suppressed[key]++
		return false, 0
	}
	dropped = l.suppressed[key]
	delete(l.suppressed, key)
	return true, dropped
}
