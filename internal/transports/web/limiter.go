package web

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// rateLimiter ограничивает число запросов с одного адреса в скользящем окне.
// Адреса без запросов в окне удаляются при очередной чистке.
type rateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	hits      map[string][]time.Time
	lastSweep time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &rateLimiter{limit: limit, window: window, hits: make(map[string][]time.Time)}
}

// Allow отмечает запрос от key и сообщает, уложился ли он в лимит.
func (l *rateLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(cutoff)
		l.lastSweep = now
	}

	recent := within(l.hits[key], cutoff)
	if len(recent) >= l.limit {
		l.hits[key] = recent
		return false
	}
	l.hits[key] = append(recent, now)
	return true
}

// sweep удаляет адреса, у которых не осталось запросов в окне.
func (l *rateLimiter) sweep(cutoff time.Time) {
	for key, hits := range l.hits {
		if recent := within(hits, cutoff); len(recent) > 0 {
			l.hits[key] = recent
		} else {
			delete(l.hits, key)
		}
	}
}

// within оставляет отметки позже cutoff, переиспользуя срез.
func within(hits []time.Time, cutoff time.Time) []time.Time {
	out := hits[:0]
	for _, ts := range hits {
		if ts.After(cutoff) {
			out = append(out, ts)
		}
	}
	return out
}

func (l *rateLimiter) clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimitMiddleware отвечает 429 в том же формате, что и ошибки responder'а.
func (s *Server) rateLimitMiddleware() middleware {
	if s.cfg.RateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := newRateLimiter(s.cfg.RateLimit, s.cfg.RateWindow)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.Allow(clientKey(r), time.Now()) {
				next.ServeHTTP(w, r)
				return
			}
			req := NewRequest(WithEnviron(CGIEnviron(r)), WithRootURL(s.cfg.RootURL))
			res := NewResponse(req)
			res.SetPayload(NewErrorPayload(NewError(http.StatusTooManyRequests,
				"Too many requests", "Slow down and retry later.")))
			if err := res.WriteHTTP(w); err != nil {
				return
			}
			if s.record != nil {
				s.record(r.Context(), req, res)
			}
		})
	}
}
