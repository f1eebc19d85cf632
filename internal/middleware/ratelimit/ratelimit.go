// Package ratelimit throttles state-changing requests per client address.
//
// Each client is tracked with a generic cell rate algorithm: a burst of up to
// RequestsPerMinute is allowed, after which one request is admitted per
// 1/RequestsPerMinute of a minute. There is no wall-clock window to reset.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// idleAfter is how long past its theoretical arrival time a client is kept
// before the sweeper forgets it.
const idleAfter = 10 * time.Minute

type Config struct {
	RequestsPerMinute int
	// CleanupInterval is how often idle clients are swept.
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

// Limiter keeps, per client, the theoretical arrival time of the next
// request at the sustained rate.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]time.Time
	now     func() time.Time

	// interval is the spacing between requests at the sustained rate.
	interval time.Duration
	// burst is how far ahead of now a client's arrival time may run.
	burst time.Duration
	sweep time.Duration

	rejected atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts the idle-client sweeper; call Stop to release it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	interval := time.Minute / time.Duration(config.RequestsPerMinute)
	l := &Limiter{
		clients:  make(map[string]time.Time),
		now:      time.Now,
		interval: interval,
		burst:    interval * time.Duration(config.RequestsPerMinute),
		sweep:    config.CleanupInterval,
		stop:     make(chan struct{}),
	}
	go l.run()
	return l
}

// Allow admits or refuses one request from client.
func (l *Limiter) Allow(client string) bool {
	ok, _ := l.Reserve(client)
	return ok
}

// Reserve is Allow that also returns, on refusal, how long the client has to
// wait before a retry would be admitted. Refused requests cost nothing.
func (l *Limiter) Reserve(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	tat, ok := l.clients[client]
	if !ok || tat.Before(now) {
		tat = now
	}
	next := tat.Add(l.interval)
	if ahead := next.Sub(now); ahead > l.burst {
		l.rejected.Add(1)
		return false, ahead - l.burst
	}
	l.clients[client] = next
	return true, 0
}

func (l *Limiter) run() {
	ticker := time.NewTicker(l.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.forgetIdle()
		case <-l.stop:
			return
		}
	}
}

// forgetIdle drops clients whose arrival time is long past. They have their
// whole burst back, so forgetting them changes nothing.
func (l *Limiter) forgetIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idleAfter)
	for client, tat := range l.clients {
		if tat.Before(cutoff) {
			delete(l.clients, client)
		}
	}
}

func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Metrics is exposed on the metrics endpoint. TotalHits counts refusals.
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (l *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   l.rejected.Load(),
		ClientCount: int64(l.ActiveClients()),
	}
}

// Middleware throttles requests that change state. GET, HEAD and OPTIONS
// pass through, so listings and reports are never throttled. A refused
// request carries Retry-After in whole seconds.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			ok, wait := l.Reserve(extractIP(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(wait)))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}

func retrySeconds(wait time.Duration) int {
	s := int(math.Ceil(wait.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
