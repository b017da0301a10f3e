package middleware_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/central-university-dev/go-nats-updater/internal/common/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_LimitsPerIP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := middleware.NewRateLimiter(ctx, 2, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	handler := limiter.Middleware(okHandler())

	send := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		req.RemoteAddr = remoteAddr

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001").Code)

	rejected := send("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, rejected.Code)
	assert.Equal(t, "2", rejected.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rejected.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rejected.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000").Code)
}

func TestMetrics_PassesThroughStatus(t *testing.T) {
	router := chi.NewRouter()
	router.Use(middleware.Metrics("receiver"))
	router.Post("/webhook", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
