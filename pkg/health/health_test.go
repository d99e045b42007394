package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(context.Context) ComponentHealth       { return ComponentHealth{Status: StatusUp} }
func degraded(context.Context) ComponentHealth { return ComponentHealth{Status: StatusDegraded} }

func down(context.Context) ComponentHealth {
	return ComponentHealth{Status: StatusDown, Message: "gone"}
}

func TestRunAggregatesWorstStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"all up", map[string]Check{"index": up, "redis": up}, StatusUp},
		{"degraded", map[string]Check{"index": up, "redis": degraded}, StatusDegraded},
		{"down beats degraded", map[string]Check{"index": down, "redis": degraded}, StatusDown},
		{"empty", map[string]Check{}, StatusUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Components, len(tt.checks))
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("redis", degraded)
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	c.Register("index", down)
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, "gone", report.Components["index"].Message)
}

func TestCriticalDegradedIsDown(t *testing.T) {
	c := NewChecker()
	c.Register("redis", degraded)
	assert.Equal(t, StatusDegraded, c.Run(context.Background()).Status)

	c.RegisterCritical("index", degraded)
	report := c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.True(t, report.Components["index"].Critical)
	assert.False(t, report.Components["redis"].Critical)
}

func TestRegisterReplaces(t *testing.T) {
	c := NewChecker()
	c.Register("redis", down)
	c.Register("redis", up)
	report := c.Run(context.Background())
	assert.Equal(t, StatusUp, report.Status)
	assert.Len(t, report.Components, 1)
}

func TestSlowCheckTimesOut(t *testing.T) {
	c := NewChecker()
	c.timeout = 10 * time.Millisecond
	c.Register("slow", func(ctx context.Context) ComponentHealth {
		<-ctx.Done()
		return ComponentHealth{Status: StatusUp}
	})
	res := c.Run(context.Background()).Components["slow"]
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Equal(t, "check timed out", res.Message)
}
