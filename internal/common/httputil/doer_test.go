package httputil_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/go-nats-updater/internal/common/httputil"
	"github.com/central-university-dev/go-nats-updater/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		ExternalRequestTimeout:     5 * time.Second,
		RetryCount:                 2,
		RetryBackoff:               20 * time.Millisecond,
		RetryableStatusCodes:       []int{500, 502, 503, 504},
		CBSlidingWindowSize:        100,
		CBMinimumRequiredCalls:     10,
		CBFailureRateThreshold:     90,
		CBPermittedCallsInHalfOpen: 3,
		CBWaitDurationInOpenState:  10 * time.Second,
	}
}

func TestRestyDoer_HeadersAndContext(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var receivedContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedContentType = r.Header.Get("Content-Type")

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer server.Close()

	doer := httputil.NewTelegramHTTPClient(testConfig(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/botTOKEN/setWebhook",
		strings.NewReader("url=https%3A%2F%2Fexample.com"))
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := doer.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-www-form-urlencoded", receivedContentType)
	assert.JSONEq(t, `{"ok":true,"result":true}`, string(body))
}

func TestRestyDoer_RetryKeepsBody(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var requestCount int32

	bodies := make(chan string, 3)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies <- string(body)

		if atomic.AddInt32(&requestCount, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	doer := httputil.NewTelegramHTTPClient(testConfig(), logger)

	req, err := http.NewRequest(http.MethodPost, server.URL, strings.NewReader("chat_id=1"))
	require.NoError(t, err)

	resp, err := doer.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount))

	close(bodies)

	for body := range bodies {
		assert.Equal(t, "chat_id=1", body, "Повторный запрос должен содержать то же тело")
	}
}
