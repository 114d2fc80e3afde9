package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func up(ctx context.Context) error   { return nil }
func down(ctx context.Context) error { return errors.New("connection refused") }

func readiness(t *testing.T, c *Checker) (int, Report) {
	t.Helper()
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	return rec.Code, report
}

func TestReadyWhenAllUp(t *testing.T) {
	c := NewChecker()
	c.Register("index", IndexCheck(func() bool { return true }, func() string { return "3 documents" }))
	c.Register("redis", PingCheck(pingerFunc(up), false))

	code, report := readiness(t, c)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, report.Status)
	assert.Equal(t, "3 documents", report.Components["index"].Message)
}

func TestOptionalDependencyDegrades(t *testing.T) {
	c := NewChecker()
	c.Register("index", IndexCheck(func() bool { return true }, func() string { return "" }))
	c.Register("redis", PingCheck(pingerFunc(down), false))

	code, report := readiness(t, c)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, "connection refused", report.Components["redis"].Message)
}

func TestMissingIndexIsNotReady(t *testing.T) {
	c := NewChecker()
	c.Register("index", IndexCheck(func() bool { return false }, func() string { return "" }))
	c.Register("postgres", PingCheck(pingerFunc(up), true))

	code, report := readiness(t, c)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusDown, report.Status)
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}
