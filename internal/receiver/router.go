package receiver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/central-university-dev/go-nats-updater/internal/common/middleware"
)

const serviceName = "receiver"

// NewRouter собирает HTTP обработчик receiver: webhook по path за лимитером
// запросов и /health. Все маршруты пишут HTTP метрики.
func NewRouter(path string, webhook http.Handler, limiter *middleware.RateLimiter) http.Handler {
	if path == "" {
		path = "/webhook"
	}

	r := chi.NewRouter()
	r.Use(middleware.Metrics(serviceName))

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}

		r.Handle(path, webhook)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	return r
}
