package httputil_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/go-nats-updater/internal/common/httputil"
	"github.com/central-university-dev/go-nats-updater/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func breakerConfig(minCalls, threshold int) *config.Config {
	return &config.Config{
		ExternalRequestTimeout:     time.Second,
		RetryCount:                 3,
		RetryBackoff:               10 * time.Millisecond,
		RetryableStatusCodes:       []int{429, 500, 502, 503, 504},
		CBSlidingWindowSize:        60,
		CBMinimumRequiredCalls:     minCalls,
		CBFailureRateThreshold:     threshold,
		CBPermittedCallsInHalfOpen: 1,
		CBWaitDurationInOpenState:  time.Minute,
	}
}

func TestNewCircuitBreaker_TripsAfterMinimumCalls(t *testing.T) {
	cb := httputil.NewCircuitBreaker(breakerConfig(3, 50), "nats_publish", quietLogger())

	fail := func() (interface{}, error) { return nil, errors.New("publish failed") }

	for i := 0; i < 2; i++ {
		_, _ = cb.Execute(fail)
		assert.Equal(t, gobreaker.StateClosed, cb.State(), "до минимального числа вызовов breaker закрыт")
	}

	_, _ = cb.Execute(fail)
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := cb.Execute(func() (interface{}, error) { return nil, nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestNewCircuitBreaker_StaysClosedBelowThreshold(t *testing.T) {
	cb := httputil.NewCircuitBreaker(breakerConfig(2, 75), "nats_publish", nil)

	ok := func() (interface{}, error) { return nil, nil }
	fail := func() (interface{}, error) { return nil, errors.New("publish failed") }

	_, _ = cb.Execute(ok)
	_, _ = cb.Execute(fail)
	_, _ = cb.Execute(ok)
	_, _ = cb.Execute(fail)

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestResilientClient_RetryPolicy(t *testing.T) {
	tests := []struct {
		name          string
		statuses      []int
		expectedCode  int
		expectedCalls int32
	}{
		{name: "повтор после 502", statuses: []int{502, 502, 200}, expectedCode: 200, expectedCalls: 3},
		{name: "повтор после 429", statuses: []int{429, 200}, expectedCode: 200, expectedCalls: 2},
		{name: "без повтора для 401", statuses: []int{401}, expectedCode: 401, expectedCalls: 1},
		{name: "без повтора для 400", statuses: []int{400}, expectedCode: 400, expectedCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				n := atomic.AddInt32(&calls, 1)

				status := tt.statuses[len(tt.statuses)-1]
				if int(n) <= len(tt.statuses) {
					status = tt.statuses[n-1]
				}

				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
			}))
			defer server.Close()

			client := httputil.CreateResilientHTTPClient(breakerConfig(100, 100), quietLogger(), "telegram")

			resp, err := client.R().Post(server.URL + "/botTOKEN/setWebhook")
			require.NoError(t, err)

			assert.Equal(t, tt.expectedCode, resp.StatusCode())
			assert.Equal(t, tt.expectedCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestResilientClient_OpenBreakerIsNotRetried(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := httputil.CreateResilientHTTPClient(breakerConfig(1, 100), quietLogger(), "telegram")

	_, err := client.R().Get(server.URL + "/botTOKEN/getMe")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "после открытия breaker повторов быть не должно")

	start := time.Now()
	_, err = client.R().Get(server.URL + "/botTOKEN/getMe")

	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
