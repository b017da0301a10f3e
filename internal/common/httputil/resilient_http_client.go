package httputil

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/central-university-dev/go-nats-updater/internal/config"
	domainerrors "github.com/central-university-dev/go-nats-updater/internal/domain/errors"
)

// NewCircuitBreaker собирает circuit breaker с окном и порогами из конфига.
func NewCircuitBreaker(cfg *config.Config, name string, logger *slog.Logger) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name + "_circuit_breaker",
		MaxRequests: uint32(cfg.CBPermittedCallsInHalfOpen), //nolint:gosec // G115: Значение из конфига
		Interval:    time.Duration(cfg.CBSlidingWindowSize) * time.Second,
		Timeout:     cfg.CBWaitDurationInOpenState,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return counts.Requests >= uint32(cfg.CBMinimumRequiredCalls) && //nolint:gosec // G115: Значение из конфига
				failureRatio >= float64(cfg.CBFailureRateThreshold)/100.0
		},
	}

	if logger != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker сменил состояние",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		}
	}

	return gobreaker.NewCircuitBreaker(settings)
}

func CreateResilientHTTPClient(cfg *config.Config, logger *slog.Logger, serviceName string) *resty.Client {
	client := resty.New()

	client.SetTimeout(cfg.ExternalRequestTimeout)

	client.SetRetryCount(cfg.RetryCount)
	client.SetRetryWaitTime(cfg.RetryBackoff)
	client.SetRetryMaxWaitTime(cfg.RetryBackoff * 5)

	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			// Открытый breaker не лечится повтором в том же окне.
			return !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests)
		}

		for _, status := range cfg.RetryableStatusCodes {
			if r.StatusCode() == status {
				return true
			}
		}

		return false
	})

	client.SetTransport(&CircuitBreakerTransport{
		circuitBreaker:    NewCircuitBreaker(cfg, serviceName, logger),
		originalTransport: http.DefaultTransport,
		logger:            logger,
		serviceName:       serviceName,
	})

	if logger != nil {
		client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			if resp.Request.Attempt > 1 {
				logger.Info("HTTP client retry attempt",
					"service", serviceName,
					"attempt", resp.Request.Attempt,
					"status", resp.StatusCode(),
				)
			}

			return nil
		})
	}

	return client
}

type CircuitBreakerTransport struct {
	circuitBreaker    *gobreaker.CircuitBreaker
	originalTransport http.RoundTripper
	logger            *slog.Logger
	serviceName       string
}

func (t *CircuitBreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	result, err := t.circuitBreaker.Execute(func() (interface{}, error) {
		resp, err := t.originalTransport.RoundTrip(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, &domainerrors.HTTPError{StatusCode: resp.StatusCode}
		}

		return resp, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) && t.logger != nil {
			// URL Telegram API содержит токен бота, поэтому логируем только сервис.
			t.logger.Warn("Circuit breaker is open",
				"service", t.serviceName,
			)
		}

		return nil, err
	}

	return result.(*http.Response), nil
}
