// Package twofa bridges one-time codes arriving over a webhook to scraping
// sessions that are blocked waiting for them. Codes that arrive before
// anyone is waiting are kept in a short look-back cache.
package twofa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var (
	// ErrTimeout is returned when no code arrives within the wait window.
	ErrTimeout = errors.New("timeout waiting for 2FA code")
	// ErrStopped is returned to waiters cancelled by Stop.
	ErrStopped = errors.New("2FA relay stopped")
)

const (
	// DefaultTimeout bounds how long Await blocks for a new capture.
	DefaultTimeout = 60 * time.Second
	// DefaultLookback is the maximum age of a cached code Await will accept.
	DefaultLookback = 10 * time.Second

	// Cached codes linger well past any sane look-back window; go-cache
	// evicts the stragglers.
	cacheTTL      = 5 * time.Minute
	shutdownGrace = 5 * time.Second
)

// Pattern is a named regex whose first capture group is the code.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
}

// DefaultPatterns returns the built-in capture patterns, in match order.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Name: "generic-6digit", Regex: regexp.MustCompile(`(?i)code[:\s]*([0-9]{6})`)},
		{Name: "standard-life-uk", Regex: regexp.MustCompile(`Your Standard Life verification code is ([0-9]{6})`)},
	}
}

type cachedCode struct {
	code       string
	capturedAt time.Time
}

// waiter receives at most once: either from the capture that resolves it or
// never (timeout and stop are handled on the waiting side).
type waiter struct {
	ch chan string
}

// Relay correlates captured codes with waiting callers. All state is owned
// by the relay; Capture and Await are the only entry points that touch it.
type Relay struct {
	logger   *zap.Logger
	patterns []Pattern

	mu      sync.Mutex
	pending map[string][]*waiter
	codes   *cache.Cache
	srv     *http.Server
	stopped chan struct{}
}

// NewRelay builds a relay. With no patterns given the defaults apply.
func NewRelay(logger *zap.Logger, patterns ...Pattern) *Relay {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	return &Relay{
		logger:   logger.Named("2fa"),
		patterns: patterns,
		pending:  make(map[string][]*waiter),
		codes:    cache.New(cacheTTL, time.Minute),
		stopped:  make(chan struct{}),
	}
}

// Start begins serving the capture webhook on the given port. Calling Start
// on a running relay logs a warning and returns nil.
func (r *Relay) Start(port int) error {
	r.mu.Lock()
	if r.srv != nil {
		r.mu.Unlock()
		r.logger.Warn("2FA relay already running")
		return nil
	}
	select {
	case <-r.stopped:
		// restarted after a Stop
		r.stopped = make(chan struct{})
	default:
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("start 2FA relay: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/capture-2fa", r.handleCapture)
	srv := &http.Server{Handler: mux}
	r.srv = srv
	r.mu.Unlock()

	go func() {
		if serr := srv.Serve(ln); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			r.logger.Error("2FA relay server error", zap.Error(serr))
		}
	}()

	r.logger.Info("2FA relay started", zap.Int("port", port))
	return nil
}

// Stop shuts the webhook down, rejects every outstanding waiter with
// ErrStopped and clears the code cache. Stopping a stopped relay is a no-op.
func (r *Relay) Stop() {
	r.mu.Lock()
	if r.srv == nil {
		r.mu.Unlock()
		return
	}
	srv := r.srv
	r.srv = nil
	close(r.stopped)
	r.pending = make(map[string][]*waiter)
	r.codes.Flush()
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		r.logger.Warn("2FA relay shutdown", zap.Error(err))
	}
	r.logger.Info("2FA relay stopped")
}

func (r *Relay) handleCapture(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "unreadable request body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "empty request body", http.StatusBadRequest)
		return
	}

	if r.Capture(string(body)) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Capture matches text against the patterns, first match wins. On a match
// the code is cached for late arrivals and broadcast to every waiter
// currently pending for that pattern, in registration order. Reports
// whether any pattern matched; a miss is a normal outcome.
func (r *Relay) Capture(text string) bool {
	if text == "" {
		return false
	}
	for _, p := range r.patterns {
		m := p.Regex.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		code := m[1]
		r.logger.Info("2FA code captured", zap.String("provider", p.Name))

		// Snapshot and clear the bucket in one critical section so a
		// waiter registering mid-broadcast lands in a fresh bucket.
		r.mu.Lock()
		r.codes.SetDefault(p.Name, cachedCode{code: code, capturedAt: time.Now()})
		snapshot := r.pending[p.Name]
		delete(r.pending, p.Name)
		r.mu.Unlock()

		for _, w := range snapshot {
			w.ch <- code
		}
		return true
	}
	return false
}

// Await blocks until a code for the named pattern is captured, the timeout
// elapses, or the relay stops. A code captured up to lookback before the
// call satisfies it immediately; reading a cached code consumes it.
// Non-positive timeout and lookback fall back to the defaults.
func (r *Relay) Await(provider string, timeout, lookback time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}

	r.mu.Lock()
	if v, ok := r.codes.Get(provider); ok {
		cached := v.(cachedCode)
		age := time.Since(cached.capturedAt)
		r.codes.Delete(provider)
		if age <= lookback {
			r.mu.Unlock()
			r.logger.Debug("using cached 2FA code from before await",
				zap.String("provider", provider), zap.Duration("age", age))
			return cached.code, nil
		}
		r.logger.Debug("cached 2FA code expired",
			zap.String("provider", provider), zap.Duration("age", age))
	}
	w := &waiter{ch: make(chan string, 1)}
	r.pending[provider] = append(r.pending[provider], w)
	stopped := r.stopped
	r.mu.Unlock()

	r.logger.Debug("waiting for 2FA code",
		zap.String("provider", provider), zap.Duration("timeout", timeout))

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case code := <-w.ch:
		return code, nil
	case <-timer.C:
		r.removeWaiter(provider, w)
		// A capture may have snapshotted this waiter just before removal.
		select {
		case code := <-w.ch:
			return code, nil
		default:
		}
		return "", fmt.Errorf("%w from %s", ErrTimeout, provider)
	case <-stopped:
		return "", ErrStopped
	}
}

func (r *Relay) removeWaiter(provider string, target *waiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws := r.pending[provider]
	for i, w := range ws {
		if w == target {
			r.pending[provider] = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	if len(r.pending[provider]) == 0 {
		delete(r.pending, provider)
	}
}
