// Package health provides liveness and readiness probes for the order API.
//
// Every registered check runs in its own goroutine at a fixed interval and
// flips state only after a run of consecutive results, so a single slow
// database ping does not take the instance out of rotation.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// Default thresholds of a check.
const (
	DefaultFailureThreshold = 3
	DefaultSuccessThreshold = 1
)

// CheckFunc reports a problem with a component, or nil when it is healthy.
type CheckFunc func(ctx context.Context) error

// CheckOption configures a single check.
type CheckOption func(*check)

// WithThresholds overrides how many consecutive failures mark a check
// unhealthy and how many consecutive successes mark it healthy again.
func WithThresholds(failure, success int) CheckOption {
	return func(c *check) {
		if failure > 0 {
			c.failureThreshold = failure
		}
		if success > 0 {
			c.successThreshold = success
		}
	}
}

// check is a registered CheckFunc with its state. run is only called from the
// check's own goroutine, so the counters are unsynchronized. healthy and
// lastErr are read by HTTP handlers.
type check struct {
	name             string
	timeout          time.Duration
	fn               CheckFunc
	failureThreshold int
	successThreshold int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func newCheck(name string, timeout time.Duration, fn CheckFunc, opts []CheckOption) *check {
	c := &check{
		name:             name,
		timeout:          timeout,
		fn:               fn,
		failureThreshold: DefaultFailureThreshold,
		successThreshold: DefaultSuccessThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	c.healthy.Store(true)
	return c
}

func (c *check) isHealthy() bool {
	return c.healthy.Load()
}

func (c *check) lastError() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.lastErr.Store(&err)

	if err != nil {
		c.oks = 0
		c.fails++
		if c.fails >= c.failureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.fails = 0
	c.oks++
	if c.oks >= c.successThreshold {
		c.healthy.Store(true)
	}
}

// probe is one group of checks answering a single endpoint.
type probe struct {
	mu     sync.RWMutex
	checks []*check
}

func (p *probe) add(c *check) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks = append(p.checks, c)
}

func (p *probe) snapshot() []*check {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.checks)
}

// failures maps the name of every unhealthy check to its last error.
func (p *probe) failures() map[string]string {
	out := make(map[string]string)
	for _, c := range p.snapshot() {
		if c.isHealthy() {
			continue
		}
		if err := c.lastError(); err != nil {
			out[c.name] = err.Error()
		} else {
			out[c.name] = "check is unhealthy"
		}
	}
	return out
}

// Health manages the liveness and readiness probes of a service.
type Health struct {
	ready     atomic.Bool
	liveness  probe
	readiness probe

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Health that is not ready. Call SetReady(true) once the
// service has finished initialization.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that decides whether the process should
// be restarted.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc, opts ...CheckOption) {
	h.liveness.add(newCheck(name, timeout, fn, opts))
}

// AddReadinessCheck registers a check that decides whether the instance may
// receive traffic.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc, opts ...CheckOption) {
	h.readiness.add(newCheck(name, timeout, fn, opts))
}

// Start runs every registered check at interval until ctx is done or Stop is
// called.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	for _, c := range append(h.liveness.snapshot(), h.readiness.snapshot()...) {
		go loop(ctx, c, interval)
	}
}

func loop(ctx context.Context, c *check, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.run(ctx)
		}
	}
}

// Stop cancels the check goroutines. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady sets the manual readiness flag. Graceful shutdown clears it first
// so that load balancers drain the instance.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the instance is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	for _, c := range h.readiness.snapshot() {
		if !c.isHealthy() {
			return false
		}
	}
	return true
}

// LiveEndpoint serves /livez: 200 {"status":"ok"} or 503 with the failing
// checks.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeResponse(w, h.liveness.failures())
}

// ReadyEndpoint serves /readyz. Besides failing checks it reports
// "_readiness" while the instance is not marked ready.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.readiness.failures()
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeResponse(w, failures)
}

func writeResponse(w http.ResponseWriter, failures map[string]string) {
	status, code := "ok", http.StatusOK
	if len(failures) > 0 {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("status")
	e.Str(status)
	if len(failures) > 0 {
		names := make([]string, 0, len(failures))
		for name := range failures {
			names = append(names, name)
		}
		slices.Sort(names)

		e.FieldStart("checks")
		e.ObjStart()
		for _, name := range names {
			e.FieldStart(name)
			e.Str(failures[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
