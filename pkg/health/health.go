// Package health implements liveness and readiness probes in the style of
// Kubernetes: each registered check runs periodically in the background, and
// a check only flips to unhealthy after failing several times in a row, so a
// single slow poll does not bounce the pod.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc reports the health of one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// failureThreshold is how many consecutive failures mark a check unhealthy.
// One success is enough to recover.
const failureThreshold = 3

// probe is one registered check plus its observed state. The poll loop is
// the only writer; HTTP handlers read under mu.
type probe struct {
	name    string
	timeout time.Duration
	check   CheckFunc

	mu       sync.Mutex
	healthy  bool
	failures int
	lastErr  error
}

func newProbe(name string, timeout time.Duration, check CheckFunc) *probe {
	return &probe{name: name, timeout: timeout, check: check, healthy: true}
}

func (p *probe) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err := p.check(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = err
	if err != nil {
		p.failures++
		if p.failures >= failureThreshold {
			p.healthy = false
		}
		return
	}
	p.failures = 0
	p.healthy = true
}

// state returns the probe's current health and last error.
func (p *probe) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy, p.lastErr
}

// Service aggregates liveness and readiness probes and serves the /livez and
// /readyz endpoints.
type Service struct {
	mu        sync.Mutex
	liveness  []*probe
	readiness []*probe
	ready     bool
	cancel    context.CancelFunc
}

// New returns a Service in the not-ready state. Call SetReady(true) once
// initialization is complete.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a check answering "is this process functional",
// for example a goroutine-leak guard.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, newProbe(name, timeout, check))
}

// AddReadinessCheck registers a check answering "can this process serve
// traffic", for example database connectivity.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, newProbe(name, timeout, check))
}

// Start launches one polling goroutine per registered probe. Register all
// checks before calling Start.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	probes := append(append([]*probe(nil), s.liveness...), s.readiness...)
	s.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			p.poll(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.poll(ctx)
				}
			}
		}(p)
	}
}

// Stop cancels the polling goroutines. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Set false during graceful
// shutdown so load balancers drain the instance.
func (s *Service) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady reports whether the manual gate is open and every readiness probe
// is passing.
func (s *Service) IsReady() bool {
	s.mu.Lock()
	ready := s.ready
	probes := append([]*probe(nil), s.readiness...)
	s.mu.Unlock()

	if !ready {
		return false
	}
	for _, p := range probes {
		if healthy, _ := p.state(); !healthy {
			return false
		}
	}
	return true
}

// LiveEndpoint serves /livez: 200 when all liveness probes pass, otherwise
// 503 with per-check failure messages.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	probes := append([]*probe(nil), s.liveness...)
	s.mu.Unlock()

	writeProbeResponse(w, failuresOf(probes))
}

// ReadyEndpoint serves /readyz: 200 when the service is marked ready and all
// readiness probes pass, otherwise 503 with details.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	ready := s.ready
	probes := append([]*probe(nil), s.readiness...)
	s.mu.Unlock()

	failures := failuresOf(probes)
	if !ready {
		failures["_readiness"] = "service is not ready"
	}
	writeProbeResponse(w, failures)
}

func failuresOf(probes []*probe) map[string]string {
	failures := make(map[string]string)
	for _, p := range probes {
		healthy, err := p.state()
		if healthy {
			continue
		}
		if err != nil {
			failures[p.name] = err.Error()
		} else {
			failures[p.name] = "check is unhealthy"
		}
	}
	return failures
}

func writeProbeResponse(w http.ResponseWriter, failures map[string]string) {
	type response struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks,omitempty"`
	}

	w.Header().Set("Content-Type", "application/json")
	if len(failures) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(response{Status: "unhealthy", Checks: failures})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response{Status: "ok"})
}
