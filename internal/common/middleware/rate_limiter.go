package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	clientExpiration = 1 * time.Hour
	cleanupInterval  = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter ограничивает частоту запросов с одного IP. Telegram шлёт webhook с
// небольшого пула адресов, поэтому лимит задаётся с запасом.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	logger  *slog.Logger
}

// NewRateLimiter допускает requests запросов за window с одного IP. Устаревшие
// лимитеры удаляются до отмены ctx.
func NewRateLimiter(ctx context.Context, requests int, window time.Duration, logger *slog.Logger) *RateLimiter {
	if requests <= 0 {
		requests = 1
	}

	if window <= 0 {
		window = time.Second
	}

	m := &RateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(float64(requests) / window.Seconds()),
		burst:   requests,
		logger:  logger,
	}

	go m.cleanup(ctx)

	return m
}

func (m *RateLimiter) limiterFor(ip string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, ok := m.clients[ip]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.clients[ip] = client
	}

	client.lastSeen = time.Now()

	return client.limiter
}

func (m *RateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			for ip, client := range m.clients {
				if time.Since(client.lastSeen) > clientExpiration {
					delete(m.clients, ip)
				}
			}
			m.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

func (m *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !m.limiterFor(ip).Allow() {
			retryAfter := int(1 / float64(m.limit))
			if retryAfter < 1 {
				retryAfter = 1
			}

			m.logger.Warn("Превышен лимит запросов", "ip", ip)

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.burst))
			w.Header().Set("X-RateLimit-Remaining", "0")

			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)

			return
		}

		next.ServeHTTP(w, r)
	})
}
