package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status represents the health of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// SystemHealth represents the overall system health
type SystemHealth struct {
	Status     Status                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Uptime     time.Duration              `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
}

// Checker is implemented by anything that can report its own health.
type Checker interface {
	Check(ctx context.Context) error
	Name() string
}

// CheckFunc adapts a function to the Checker interface.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func NewCheckFunc(name string, fn func(ctx context.Context) error) Checker {
	return CheckFunc{name: name, fn: fn}
}

func (c CheckFunc) Check(ctx context.Context) error { return c.fn(ctx) }
func (c CheckFunc) Name() string                    { return c.name }

// Manager runs registered checkers on demand.
type Manager struct {
	mu       sync.RWMutex
	checkers []Checker
	started  time.Time
	timeout  time.Duration
}

func NewManager() *Manager {
	return &Manager{started: time.Now(), timeout: 3 * time.Second}
}

func (m *Manager) Register(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

// Check runs every registered checker and aggregates the result.
func (m *Manager) Check(ctx context.Context) SystemHealth {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()

	sys := SystemHealth{
		Status:     StatusHealthy,
		Timestamp:  time.Now(),
		Uptime:     time.Since(m.started),
		Components: make(map[string]ComponentHealth, len(checkers)),
	}

	for _, c := range checkers {
		cctx, cancel := context.WithTimeout(ctx, m.timeout)
		start := time.Now()
		err := c.Check(cctx)
		cancel()

		ch := ComponentHealth{
			Name:        c.Name(),
			Status:      StatusHealthy,
			LastChecked: start,
			Duration:    time.Since(start),
		}
		if err != nil {
			ch.Status = StatusUnhealthy
			ch.Error = err.Error()
			sys.Status = StatusUnhealthy
		}
		sys.Components[c.Name()] = ch
	}

	return sys
}

// Handler serves the aggregated health as JSON. Unhealthy maps to 503.
func (m *Manager) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sys := m.Check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if sys.Status != StatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(sys)
	})
}
