package receiver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"

	"github.com/central-university-dev/go-nats-updater/internal/common/metrics"
	"github.com/central-university-dev/go-nats-updater/internal/domain/models"
	"github.com/central-university-dev/go-nats-updater/internal/domain/transport"
)

// SecretTokenHeader передаётся Telegram в каждом запросе к webhook, если при
// регистрации был указан secret_token.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

const (
	publishStatusPublished   = "published"
	publishStatusFailed      = "failed"
	publishStatusCircuitOpen = "circuit_open"
	publishStatusRejected    = "rejected"
)

type WebhookConfig struct {
	Subject        string
	Secret         string
	MaxBodySize    int64
	PublishTimeout time.Duration
}

// WebhookHandler принимает обновления от Telegram и публикует их в JetStream
// без изменений. Любой ответ, кроме 2xx, заставляет Telegram повторить доставку.
type WebhookHandler struct {
	publisher transport.Publisher
	breaker   *gobreaker.CircuitBreaker
	cfg       WebhookConfig
	logger    *slog.Logger
}

func NewWebhookHandler(
	publisher transport.Publisher,
	breaker *gobreaker.CircuitBreaker,
	cfg WebhookConfig,
	logger *slog.Logger,
) *WebhookHandler {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 1 << 20
	}

	return &WebhookHandler{
		publisher: publisher,
		breaker:   breaker,
		cfg:       cfg,
		logger:    logger,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	if !h.validSecret(r.Header.Get(SecretTokenHeader)) {
		h.logger.Warn("Запрос к webhook с неверным секретом", "remote_addr", r.RemoteAddr)
		metrics.RecordPublish(publishStatusRejected)
		http.Error(w, "unauthorized", http.StatusUnauthorized)

		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodySize))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			metrics.RecordPublish(publishStatusRejected)
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)

			return
		}

		h.logger.Warn("Ошибка чтения тела запроса", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)

		return
	}

	updateID, err := parseUpdateID(body)
	if err != nil {
		h.logger.Warn("Некорректное обновление в webhook", "error", err)
		metrics.RecordPublish(publishStatusRejected)
		http.Error(w, "invalid update", http.StatusBadRequest)

		return
	}

	if err := h.publish(r.Context(), updateID, body); err != nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) validSecret(got string) bool {
	if h.cfg.Secret == "" {
		return true
	}

	return subtle.ConstantTimeCompare([]byte(got), []byte(h.cfg.Secret)) == 1
}

func (h *WebhookHandler) publish(ctx context.Context, updateID int, body []byte) error {
	if h.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, h.cfg.PublishTimeout)
		defer cancel()
	}

	headers := map[string]string{nats.MsgIdHdr: models.MessageID(updateID)}

	_, err := h.breaker.Execute(func() (interface{}, error) {
		return nil, h.publisher.Publish(ctx, h.cfg.Subject, body, headers)
	})

	switch {
	case err == nil:
		metrics.RecordPublish(publishStatusPublished)
		h.logger.Debug("Обновление опубликовано", "update_id", updateID, "subject", h.cfg.Subject)

		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordPublish(publishStatusCircuitOpen)
		h.logger.Warn("Circuit breaker открыт, публикация отклонена", "update_id", updateID)
	default:
		metrics.RecordPublish(publishStatusFailed)
		h.logger.Error("Ошибка публикации обновления",
			"error", err,
			"update_id", updateID,
			"subject", h.cfg.Subject,
		)
	}

	return err
}

func parseUpdateID(body []byte) (int, error) {
	var probe struct {
		UpdateID *int `json:"update_id"`
	}

	if err := json.Unmarshal(body, &probe); err != nil {
		return 0, err
	}

	if probe.UpdateID == nil {
		return 0, errors.New("отсутствует update_id")
	}

	return *probe.UpdateID, nil
}
