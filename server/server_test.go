package server_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roi-calculator/config"
	"roi-calculator/costmodel"
	"roi-calculator/models"
	"roi-calculator/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(server.New(cfg, logger, models.DefaultScenario()).Routes())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{"/health", "/health/live"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(server.RequestIDHeader))

			var body server.HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "healthy", body.Status)
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health/live", nil)
	require.NoError(t, err)
	req.Header.Set(server.RequestIDHeader, "planner-42")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "planner-42", resp.Header.Get(server.RequestIDHeader))
}

func TestPresets(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := map[string]struct {
		name     string
		status   int
		expected models.Scenario
	}{
		"Default": {name: "default", status: http.StatusOK, expected: models.DefaultScenario()},
		"Zero":    {name: "zero", status: http.StatusOK, expected: models.ZeroScenario()},
		"Unknown": {name: "holiday", status: http.StatusNotFound},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/v1/presets/" + tt.name)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, tt.status, resp.StatusCode)
			if tt.status != http.StatusOK {
				return
			}
			var got models.Scenario
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCompute_JSON(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := map[string]struct {
		body        string
		total       int
		recommended string
	}{
		"EmptyBodyIsDefault": {
			body:        "",
			total:       2200,
			recommended: costmodel.HybridLabel,
		},
		"PartialOverride": {
			body:        `{"model_b": {"cost_per_ai_minute": 40}}`,
			total:       2200,
			recommended: costmodel.HumanOnlyLabel,
		},
		"CustomChannels": {
			body:        `{"channels": [{"id": "email", "name": "Email", "daily_leads": 90, "unresolved_leads": 60}]}`,
			total:       60,
			recommended: costmodel.HybridLabel,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/v1/compute", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var r models.Results
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
			assert.Equal(t, tt.total, r.TotalUnresolved)
			assert.Equal(t, tt.recommended, r.Comparison.Recommended)
		})
	}
}

func TestCompute_Formats(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := map[string]struct {
		query       string
		contentType string
		contains    string
	}{
		"Text":          {query: "?format=text", contentType: "text/plain", contains: "Recommended: AI + Human Hybrid"},
		"TextBreakdown": {query: "?format=text&breakdown=true", contentType: "text/plain", contains: "Value: Ceiling(2200 ÷ 50)"},
		"CSV":           {query: "?format=csv", contentType: "text/csv", contains: "Agents Required,44.00,14.00"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/v1/compute"+tt.query, "application/json", strings.NewReader("{}"))
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), tt.contentType)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), tt.contains)
		})
	}
}

func TestCompute_Errors(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := map[string]struct {
		query string
		body  string
		code  string
	}{
		"UnknownFormat": {query: "?format=xml", body: "{}", code: "INVALID_FORMAT"},
		"UnknownField":  {body: `{"model_c": {}}`, code: "INVALID_SCENARIO"},
		"BadType":       {body: `{"model_a": {"days_per_month": "many"}}`, code: "INVALID_SCENARIO"},
		"Malformed":     {body: `{"channels": [`, code: "INVALID_SCENARIO"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/v1/compute"+tt.query, "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var e server.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestCompute_NonFiniteResult(t *testing.T) {
	ts := newTestServer(t, nil)
	body := `{"model_b":{"avg_ai_minutes":1e200,"cost_per_ai_minute":1e200}}`

	for _, format := range []string{"json", "text", "csv"} {
		t.Run(format, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/v1/compute?format="+format, "application/json", strings.NewReader(body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			var e server.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
			assert.Equal(t, "NON_FINITE_RESULT", e.Code)
			assert.Contains(t, e.Error, "model_b.ai_daily_cost")
		})
	}
}

func TestWriteJSON_EncodeFailureIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	server.WriteJSON(rec, http.StatusOK, map[string]float64{"cost": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var e server.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&e))
	assert.Equal(t, "ENCODE_FAILED", e.Code)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.RequestsPerSecond = 0.001
		cfg.RateLimit.BurstSize = 2
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := http.Get(ts.URL + "/api/v1/presets/default")
		require.NoError(t, err)
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func TestRateLimit_ProxyHeaders(t *testing.T) {
	tests := map[string]struct {
		trust    bool
		expected []int
	}{
		"IgnoredByDefault":   {trust: false, expected: []int{http.StatusOK, http.StatusTooManyRequests}},
		"TrustedBehindProxy": {trust: true, expected: []int{http.StatusOK, http.StatusOK}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t, func(cfg *config.Config) {
				cfg.RateLimit.Enabled = true
				cfg.RateLimit.RequestsPerSecond = 0.001
				cfg.RateLimit.BurstSize = 1
				cfg.RateLimit.TrustProxyHeaders = tt.trust
			})

			statuses := make([]int, 0, 2)
			for _, forwarded := range []string{"203.0.113.7", "198.51.100.23"} {
				req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/presets/default", nil)
				require.NoError(t, err)
				req.Header.Set("X-Forwarded-For", forwarded)
				resp, err := http.DefaultClient.Do(req)
				require.NoError(t, err)
				resp.Body.Close()
				statuses = append(statuses, resp.StatusCode)
			}

			assert.Equal(t, tt.expected, statuses)
		})
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := server.NewRateLimiter(1, 1, time.Minute)
	assert.True(t, rl.Allow("203.0.113.7"))
	assert.False(t, rl.Allow("203.0.113.7"))
	assert.True(t, rl.Allow("198.51.100.23"))
	require.Equal(t, 2, rl.Visitors())

	rl.Sweep(time.Now())
	assert.Equal(t, 2, rl.Visitors())

	rl.Sweep(time.Now().Add(2 * time.Minute))
	assert.Zero(t, rl.Visitors())
}

func TestRateLimiter_RunCleanupStopsWithContext(t *testing.T) {
	rl := server.NewRateLimiter(1, 1, time.Nanosecond)
	rl.Allow("203.0.113.7")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rl.RunCleanup(ctx, time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return rl.Visitors() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup did not stop after cancel")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/api/v1/compute", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `roi_computations_total{source="http"}`)
	assert.Contains(t, string(body), "roi_total_unresolved_leads")
}
