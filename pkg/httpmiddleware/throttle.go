package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// ThrottleConfig configures the failed attempt throttle.
type ThrottleConfig struct {
	// MaxFailures is the number of failed attempts a client may make per
	// Window before it is locked out for the rest of that window.
	MaxFailures int
	// Window is the counting window.
	Window time.Duration
	// KeyFunc identifies the client. The client IP when nil.
	KeyFunc func(*http.Request) string
	// Failed reports whether a response status counts as a failed attempt.
	// 400 and 401 count when nil.
	Failed func(status int) bool
}

type attempts struct {
	failures int
	start    time.Time
}

type throttle struct {
	cfg ThrottleConfig
	now func() time.Time

	mu      sync.Mutex
	clients map[string]*attempts
}

func newThrottle(cfg ThrottleConfig) *throttle {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	if cfg.Failed == nil {
		cfg.Failed = func(status int) bool {
			return status == http.StatusBadRequest || status == http.StatusUnauthorized
		}
	}
	return &throttle{
		cfg:     cfg,
		now:     time.Now,
		clients: make(map[string]*attempts),
	}
}

// locked reports whether key is locked out and until when.
func (t *throttle) locked(key string, now time.Time) (bool, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.clients[key]
	if !ok {
		return false, time.Time{}
	}
	until := a.start.Add(t.cfg.Window)
	if !now.Before(until) {
		delete(t.clients, key)
		return false, time.Time{}
	}
	return a.failures >= t.cfg.MaxFailures, until
}

// record counts a failed attempt of key or forgets key after a success.
func (t *throttle) record(key string, failed bool, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !failed {
		delete(t.clients, key)
		return
	}
	a, ok := t.clients[key]
	if !ok || !now.Before(a.start.Add(t.cfg.Window)) {
		a = &attempts{start: now}
		t.clients[key] = a
	}
	a.failures++
}

func (t *throttle) evict(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, a := range t.clients {
		if !now.Before(a.start.Add(t.cfg.Window)) {
			delete(t.clients, key)
		}
	}
}

func (t *throttle) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.evict(now)
		}
	}
}

// Throttle locks a client out after MaxFailures failed attempts within
// Window. A successful attempt forgets the client. Locked out clients get
// 429 with Retry-After. Expired entries are evicted until ctx is done.
func Throttle(ctx context.Context, cfg ThrottleConfig) Middleware {
	t := newThrottle(cfg)
	go t.evictLoop(ctx)
	return t.middleware
}

func (t *throttle) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := t.cfg.KeyFunc(r)
		if locked, until := t.locked(key, t.now()); locked {
			retry := max(time.Until(until), 0)
			zctx.From(r.Context()).Warn("Attempt throttled",
				zap.String("client", key),
				zap.Duration("retry_after", retry),
			)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			writeDetail(w, http.StatusTooManyRequests, "Too many failed attempts. Try again later.")
			return
		}

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		t.record(key, t.cfg.Failed(sw.Status()), t.now())
	})
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the host of
// RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeDetail writes {"detail": msg} with status.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("detail")
	e.Str(msg)
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
