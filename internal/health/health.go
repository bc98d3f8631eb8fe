package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

type ComponentHealth struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Latency int64  `json:"latency_ms"`
	Error   string `json:"error,omitempty"`
}

type Response struct {
	Status     Status            `json:"status"`
	Components []ComponentHealth `json:"components,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

type check struct {
	name string
	fn   CheckFunc
}

// Checker probes named components in parallel with a shared timeout.
type Checker struct {
	checks []check
}

func NewChecker() *Checker {
	return &Checker{}
}

// Add registers a named component check.
func (c *Checker) Add(name string, fn CheckFunc) *Checker {
	c.checks = append(c.checks, check{name: name, fn: fn})
	return c
}

// WithDatabase registers a postgres ping check.
func (c *Checker) WithDatabase(pool *pgxpool.Pool) *Checker {
	return c.Add("database", pool.Ping)
}

// WithRedis registers a redis ping check.
func (c *Checker) WithRedis(client *redis.Client) *Checker {
	return c.Add("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// WithStorage registers an object store check.
func (c *Checker) WithStorage(s interface {
	HealthCheck(ctx context.Context) error
}) *Checker {
	return c.Add("storage", s.HealthCheck)
}

func (c *Checker) CheckAll(ctx context.Context) Response {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	components := make([]ComponentHealth, len(c.checks))
	var wg sync.WaitGroup

	for i, chk := range c.checks {
		wg.Add(1)
		go func(i int, chk check) {
			defer wg.Done()

			start := time.Now()
			err := chk.fn(ctx)
			comp := ComponentHealth{
				Name:    chk.name,
				Status:  StatusHealthy,
				Latency: time.Since(start).Milliseconds(),
			}
			if err != nil {
				comp.Status = StatusUnhealthy
				comp.Error = err.Error()
			}
			components[i] = comp
		}(i, chk)
	}
	wg.Wait()

	status := StatusHealthy
	for _, comp := range components {
		if comp.Status == StatusUnhealthy {
			status = StatusUnhealthy
			break
		}
	}

	return Response{
		Status:     status,
		Components: components,
		Timestamp:  time.Now(),
	}
}

func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}
}

func ReadinessHandler(checker *Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := checker.CheckAll(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func HealthHandler(checker *Checker) http.HandlerFunc {
	return ReadinessHandler(checker)
}
