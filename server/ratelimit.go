package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jrsteele09/go-curation-client/api"
)

// RateLimiter is a fixed-window request counter per client address.
type RateLimiter struct {
	limit   int
	window  time.Duration
	nowTime func() time.Time

	mu      sync.Mutex
	windows map[string]*rateWindow
}

type rateWindow struct {
	start time.Time
	count int
}

// RateDecision is the limiter's verdict for one request.
type RateDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration // Until the current window ends
}

func NewRateLimiter(limit int, window time.Duration, nowTime func() time.Time) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		nowTime: nowTime,
		windows: make(map[string]*rateWindow),
	}
}

// Take counts one request for key.
func (rl *RateLimiter) Take(key string) RateDecision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.nowTime()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.window {
		w = &rateWindow{start: now}
		rl.windows[key] = w
	}

	reset := w.start.Add(rl.window).Sub(now)
	if w.count >= rl.limit {
		return RateDecision{Allowed: false, Limit: rl.limit, Remaining: 0, Reset: reset}
	}
	w.count++
	return RateDecision{Allowed: true, Limit: rl.limit, Remaining: rl.limit - w.count, Reset: reset}
}

func seconds(d time.Duration) string {
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware answers 429 once a client exhausts its window. A request
// carrying the configured bypass token skips the limiter and is told so via
// the echo header.
func (s *Server) RateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.bypassToken != "" && r.Header.Get(api.HeaderRateLimitBypassToken) == s.bypassToken {
			w.Header().Set(api.HeaderRateLimitBypassEcho, api.BypassAccepted)
			next(w, r)
			return
		}

		d := s.limiter.Take(clientKey(r))
		w.Header().Set("RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
		w.Header().Set("RateLimit-Reset", seconds(d.Reset))
		if !d.Allowed {
			w.Header().Set("Retry-After", seconds(d.Reset))
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}
