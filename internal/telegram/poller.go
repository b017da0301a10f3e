package telegram

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/central-university-dev/go-nats-updater/internal/common/metrics"
	"github.com/central-university-dev/go-nats-updater/internal/domain/models"
)

// maxLongPollTimeout ограничивает timeout в getUpdates, в секундах.
const maxLongPollTimeout = 50

// LongPollTimeout подбирает timeout для getUpdates так, чтобы Telegram успевал
// ответить раньше, чем сработает таймаут HTTP клиента.
func LongPollTimeout(requestTimeout time.Duration) int {
	seconds := int((requestTimeout - time.Second) / time.Second)

	switch {
	case seconds < 0:
		return 0
	case seconds > maxLongPollTimeout:
		return maxLongPollTimeout
	default:
		return seconds
	}
}

// UpdatesSource это часть BotAPI, нужная поллеру.
type UpdatesSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poller получает обновления обычным long polling. Используется, когда NATS не
// настроен, и обрабатывает обновления тем же обработчиком, что и updater.
type Poller struct {
	source         UpdatesSource
	handler        models.UpdateHandler
	logger         *slog.Logger
	handlerTimeout time.Duration
	pollTimeout    int

	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// NewPoller принимает requestTimeout HTTP клиента бота: long poll всегда короче него.
func NewPoller(
	source UpdatesSource,
	handler models.UpdateHandler,
	handlerTimeout, requestTimeout time.Duration,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		source:         source,
		handler:        handler,
		logger:         logger,
		handlerTimeout: handlerTimeout,
		pollTimeout:    LongPollTimeout(requestTimeout),
	}
}

func (p *Poller) Start(allowedUpdates []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopChan != nil {
		p.logger.Warn("Telegram поллер уже запущен")
		return
	}

	p.logger.Info("Запуск Telegram поллера",
		"allowed_updates", allowedUpdates,
		"poll_timeout", p.pollTimeout,
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = p.pollTimeout
	u.AllowedUpdates = allowedUpdates

	updatesChan := p.source.GetUpdatesChan(u)
	filter := models.NewAllowedUpdates(allowedUpdates)

	p.stopChan = make(chan struct{})
	p.done = make(chan struct{})

	go func(stopChan, done chan struct{}) {
		defer close(done)

		for {
			select {
			case <-stopChan:
				p.logger.Info("Получен сигнал остановки поллера")
				return
			case update, ok := <-updatesChan:
				if !ok {
					return
				}

				p.processUpdate(&update, filter)
			}
		}
	}(p.stopChan, p.done)
}

// Stop дожидается обработки текущего обновления.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopChan == nil {
		return
	}

	p.logger.Info("Остановка Telegram поллера")

	p.source.StopReceivingUpdates()
	close(p.stopChan)
	<-p.done

	p.stopChan = nil
	p.done = nil
}

func (p *Poller) processUpdate(update *tgbotapi.Update, filter models.AllowedUpdates) {
	updateType := string(models.TypeOf(update))

	if !filter.Allows(update) {
		metrics.RecordUpdate(updateType, metrics.StatusFiltered)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.handlerTimeout)
	defer cancel()

	start := time.Now()
	err := p.handler.HandleUpdate(ctx, update)

	metrics.RecordHandlerDuration(updateType, time.Since(start))

	if err != nil {
		metrics.RecordUpdate(updateType, metrics.StatusFailed)
		p.logger.Error("Ошибка при обработке обновления",
			"error", err,
			"update_id", update.UpdateID,
			"update_type", updateType,
		)

		return
	}

	metrics.RecordUpdate(updateType, metrics.StatusHandled)
}
