// Package health probes the external stores an evaluation run depends on
// (the Redis document store and the PostgreSQL run store). Probes run
// concurrently and the worst result decides the overall status.
package health

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"
)

type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Pinger is implemented by pkg/redis.Client and pkg/postgres.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Result is the outcome of one probe.
type Result struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency"`
}

// Report lists probe results sorted by name.
type Report struct {
	Status  Status   `json:"status"`
	Results []Result `json:"results"`
}

// Checker holds named probes.
type Checker struct {
	mu      sync.RWMutex
	probes  map[string]Pinger
	timeout time.Duration
}

// NewChecker creates a Checker that gives every probe at most timeout.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{probes: make(map[string]Pinger), timeout: timeout}
}

// Register adds or replaces the probe for name.
func (c *Checker) Register(name string, p Pinger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = p
}

// Run pings every registered store in parallel. With no probes the status
// is up.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	probes := maps.Clone(c.probes)
	c.mu.RUnlock()

	names := slices.Sorted(maps.Keys(probes))
	results := make([]Result, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			start := time.Now()
			err := probes[name].Ping(pctx)
			results[i] = Result{
				Name:    name,
				Status:  StatusUp,
				Latency: time.Since(start).Round(time.Millisecond).String(),
			}
			if err != nil {
				results[i].Status = StatusDown
				results[i].Error = err.Error()
			}
		}()
	}
	wg.Wait()

	report := Report{Status: StatusUp, Results: results}
	for _, r := range results {
		if r.Status == StatusDown {
			report.Status = StatusDown
			break
		}
	}
	return report
}

// ReadyHandler serves the report as JSON, with 503 when any store is down.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if report.Status != StatusUp {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}
