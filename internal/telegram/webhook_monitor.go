package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/central-university-dev/go-nats-updater/internal/common/metrics"
)

type WebhookAPI interface {
	GetWebhookInfo(ctx context.Context) (tgbotapi.WebhookInfo, error)
	SetWebhook(ctx context.Context, params WebhookParams) error
}

// WebhookMonitor периодически сверяет webhook в Telegram с ожидаемым и
// восстанавливает его, если URL сменился или webhook был удалён.
type WebhookMonitor struct {
	scheduler *gocron.Scheduler
	api       WebhookAPI
	expected  WebhookParams
	logger    *slog.Logger
	interval  time.Duration
	timeout   time.Duration
}

func NewWebhookMonitor(api WebhookAPI, expected WebhookParams, interval time.Duration, logger *slog.Logger) *WebhookMonitor {
	return &WebhookMonitor{
		scheduler: gocron.NewScheduler(time.UTC),
		api:       api,
		expected:  expected,
		logger:    logger,
		interval:  interval,
		timeout:   30 * time.Second,
	}
}

func (m *WebhookMonitor) Start() {
	m.logger.Info("Запуск мониторинга webhook",
		"interval", m.interval.String(),
	)

	_, err := m.scheduler.Every(m.interval).WaitForSchedule().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		if err := m.Check(ctx); err != nil {
			m.logger.Error("Ошибка при проверке webhook",
				"error", err,
			)
		}
	})
	if err != nil {
		m.logger.Error("Ошибка при настройке мониторинга webhook",
			"error", err,
		)

		return
	}

	m.scheduler.StartAsync()
}

func (m *WebhookMonitor) Stop() {
	m.logger.Info("Остановка мониторинга webhook")
	m.scheduler.Stop()
}

func (m *WebhookMonitor) Check(ctx context.Context) error {
	info, err := m.api.GetWebhookInfo(ctx)
	if err != nil {
		metrics.RecordWebhookCheck("error", 0)
		return err
	}

	result := "ok"

	if info.LastErrorDate != 0 {
		result = "delivery_error"

		m.logger.Warn("Telegram сообщает об ошибке доставки webhook",
			"last_error_date", time.Unix(int64(info.LastErrorDate), 0).UTC(),
			"last_error_message", info.LastErrorMessage,
			"pending_update_count", info.PendingUpdateCount,
		)
	}

	if info.URL != m.expected.URL {
		m.logger.Warn("Webhook не совпадает с ожидаемым, регистрируем заново",
			"current_url_set", info.URL != "",
		)

		if err := m.api.SetWebhook(ctx, m.expected); err != nil {
			metrics.RecordWebhookCheck("error", info.PendingUpdateCount)
			return err
		}

		result = "reregistered"
	}

	metrics.RecordWebhookCheck(result, info.PendingUpdateCount)

	m.logger.Debug("Проверка webhook завершена",
		"result", result,
		"pending_update_count", info.PendingUpdateCount,
	)

	return nil
}
