package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_AllHealthy(t *testing.T) {
	checker := NewChecker().
		Add("a", func(ctx context.Context) error { return nil }).
		Add("b", func(ctx context.Context) error { return nil })

	resp := checker.CheckAll(context.Background())
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Len(t, resp.Components, 2)
}

func TestChecker_OneUnhealthy(t *testing.T) {
	checker := NewChecker().
		Add("ok", func(ctx context.Context) error { return nil }).
		Add("broken", func(ctx context.Context) error { return errors.New("down") })

	resp := checker.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, resp.Status)

	var broken *ComponentHealth
	for i := range resp.Components {
		if resp.Components[i].Name == "broken" {
			broken = &resp.Components[i]
		}
	}
	require.NotNil(t, broken)
	assert.Equal(t, StatusUnhealthy, broken.Status)
	assert.Equal(t, "down", broken.Error)
}

func TestReadinessHandler(t *testing.T) {
	healthy := NewChecker().Add("ok", func(ctx context.Context) error { return nil })
	unhealthy := NewChecker().Add("bad", func(ctx context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	ReadinessHandler(healthy)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ReadinessHandler(unhealthy)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
