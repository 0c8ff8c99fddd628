package fees

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestEstimate_MapsTiers(t *testing.T) {
	server := newTestServer(t, `{
		"jsonrpc": "2.0",
		"id": 1,
		"result": {
			"per_compute_unit": {
				"extreme": 500000,
				"high": 100000,
				"medium": 50000,
				"low": 10000,
				"percentiles": {"50": 45000}
			}
		}
	}`, http.StatusOK)
	defer server.Close()

	estimator := NewEstimator(Config{Endpoint: server.URL, Account: "acct"}, zap.NewNop())
	tiers, err := estimator.Estimate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(500000), tiers.Max)
	assert.Equal(t, uint64(100000), tiers.High)
	assert.Equal(t, uint64(50000), tiers.Medium)
	assert.Equal(t, uint64(10000), tiers.Low)
	assert.Equal(t, uint64(50000), tiers.Average, "average aliases the medium percentile")
	assert.Equal(t, uint64(45000), tiers.Median)
}

func TestEstimate_ServerError(t *testing.T) {
	server := newTestServer(t, `oops`, http.StatusInternalServerError)
	defer server.Close()

	estimator := NewEstimator(Config{Endpoint: server.URL, MaxTries: 2}, zap.NewNop())
	_, err := estimator.Estimate(context.Background())
	require.Error(t, err)

	var estErr *EstimationError
	assert.ErrorAs(t, err, &estErr)
}

func TestEstimate_RPCError(t *testing.T) {
	server := newTestServer(t, `{"jsonrpc":"2.0","id":1,"error":{"code":-32600,"message":"bad request"}}`, http.StatusOK)
	defer server.Close()

	estimator := NewEstimator(Config{Endpoint: server.URL, MaxTries: 3}, zap.NewNop())
	_, err := estimator.Estimate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad request")
}

func TestResolve(t *testing.T) {
	tiers := Tiers{Max: 6, High: 5, Medium: 4, Low: 3, Average: 2, Median: 1}

	tests := []struct {
		level Level
		want  uint64
	}{
		{LevelMax, 6},
		{LevelHigh, 5},
		{LevelMedium, 4},
		{LevelLow, 3},
		{LevelAverage, 2},
		{LevelMedian, 1},
	}
	for _, tt := range tests {
		got, err := tiers.Resolve(tt.level)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := tiers.Resolve(Level("turbo"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid fee level")
}
