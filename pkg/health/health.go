// Package health serves /health/live and /health/ready for pubsearch. Each
// registered probe runs concurrently under its own timeout. An optional
// backend that is down reports degraded and readiness stays green; a
// critical component (the index) failing makes the process unready.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

func (s Status) severity() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Check probes one component. It must honour ctx.
type Check func(ctx context.Context) ComponentHealth

type ComponentHealth struct {
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	Latency  string `json:"latency,omitempty"`
	Critical bool   `json:"critical,omitempty"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Uptime     string                     `json:"uptime"`
	Timestamp  string                     `json:"timestamp"`
}

type probe struct {
	name     string
	check    Check
	critical bool
}

type Checker struct {
	mu      sync.RWMutex
	probes  []probe
	timeout time.Duration
	started time.Time
	logger  *slog.Logger
}

// NewChecker gives every probe two seconds.
func NewChecker() *Checker {
	return &Checker{
		timeout: 2 * time.Second,
		started: time.Now(),
		logger:  slog.Default().With("component", "health"),
	}
}

// Register adds an optional component, replacing one of the same name.
func (c *Checker) Register(name string, check Check) {
	c.add(probe{name: name, check: check})
}

// RegisterCritical adds a component whose degraded status counts as down.
func (c *Checker) RegisterCritical(name string, check Check) {
	c.add(probe{name: name, check: check, critical: true})
}

func (c *Checker) add(p probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes = slices.DeleteFunc(c.probes, func(q probe) bool { return q.name == p.name })
	c.probes = append(c.probes, p)
}

// Run executes every probe and reports the worst status.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	probes := slices.Clone(c.probes)
	c.mu.RUnlock()

	results := make([]ComponentHealth, len(probes))
	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			results[i] = c.runOne(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(probes)),
		Uptime:     time.Since(c.started).Round(time.Second).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for i, p := range probes {
		res := results[i]
		report.Components[p.name] = res
		effective := res.Status
		if p.critical && effective != StatusUp {
			effective = StatusDown
		}
		if effective.severity() > report.Status.severity() {
			report.Status = effective
		}
	}
	if report.Status != StatusUp {
		c.logger.Warn("health degraded", "status", report.Status)
	}
	return report
}

func (c *Checker) runOne(ctx context.Context, p probe) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	res := p.check(ctx)
	if res.Status == "" {
		res.Status = StatusDown
	}
	if ctx.Err() != nil && res.Status == StatusUp {
		res = ComponentHealth{Status: StatusDegraded, Message: "check timed out"}
	}
	res.Latency = time.Since(start).Round(time.Microsecond).String()
	res.Critical = p.critical
	return res
}

func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers 503 when the overall status is down.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing health response", "error", err)
	}
}
