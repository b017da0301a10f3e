package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/multierr"

	"github.com/central-university-dev/go-nats-updater/internal/common/metrics"
	"github.com/central-university-dev/go-nats-updater/internal/config"
	domainerrors "github.com/central-university-dev/go-nats-updater/internal/domain/errors"
	"github.com/central-university-dev/go-nats-updater/internal/domain/models"
	"github.com/central-university-dev/go-nats-updater/internal/domain/transport"
	"github.com/central-university-dev/go-nats-updater/internal/telegram"
)

// WebhookRegistrar регистрирует webhook, через который receiver получает обновления.
type WebhookRegistrar interface {
	SetWebhook(ctx context.Context, params telegram.WebhookParams) error
}

// Deduplicator помнит update_id успешно обработанных обновлений. Mark вызывается
// только после успешной обработки, чтобы повторная доставка после ошибки не терялась.
type Deduplicator interface {
	Seen(ctx context.Context, updateID int) (bool, error)
	Mark(ctx context.Context, updateID int) error
}

type StartOptions struct {
	AllowedUpdates     []string
	DropPendingUpdates bool
}

// session держит всё, что нужно циклу выборки одного запуска.
type session struct {
	conn    transport.Connection
	fetcher transport.Fetcher
	handler models.UpdateHandler
	filter  models.AllowedUpdates
}

// Updater получает обновления Telegram из JetStream вместо getUpdates.
//
// Жизненный цикл: Initialize → Start → Stop → Shutdown.
type Updater struct {
	bot     WebhookRegistrar
	dial    transport.Dialer
	cfg     config.NatsConfig
	options options
	logger  *slog.Logger

	// lifecycleMu упорядочивает Initialize, Start, Stop и Shutdown. mu защищает
	// флаги и не удерживается во время сетевых вызовов, поэтому Running не блокируется.
	lifecycleMu sync.Mutex
	mu          sync.Mutex
	initialized bool
	running     bool
	conn        transport.Connection
	cancel      context.CancelFunc
	done        chan struct{}
}

func New(bot WebhookRegistrar, dial transport.Dialer, cfg config.NatsConfig, logger *slog.Logger, opts ...Option) *Updater {
	return &Updater{
		bot:     bot,
		dial:    dial,
		cfg:     cfg,
		options: newOptions(opts),
		logger:  logger,
	}
}

func (u *Updater) Running() bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.running
}

func (u *Updater) Initialize(ctx context.Context) error {
	u.lifecycleMu.Lock()
	defer u.lifecycleMu.Unlock()

	if u.initialized && !u.conn.IsClosed() {
		u.logger.Debug("Updater уже инициализирован")
		return nil
	}

	u.logger.Debug("Подключение к NATS серверу")

	conn, err := u.dial(ctx, u.cfg.URL)
	if err != nil {
		var connErr *domainerrors.ErrConnection
		if errors.As(err, &connErr) {
			return err
		}

		return &domainerrors.ErrConnection{URL: u.cfg.URL, Err: err}
	}

	u.mu.Lock()
	u.conn = conn
	u.initialized = true
	u.mu.Unlock()

	return nil
}

// Start привязывается к consumer, регистрирует webhook и запускает цикл выборки.
// allowed_updates передаётся в setWebhook без изменений и действует на всю сессию.
func (u *Updater) Start(ctx context.Context, handler models.UpdateHandler, opts StartOptions) error {
	u.lifecycleMu.Lock()
	defer u.lifecycleMu.Unlock()

	if u.running {
		return &domainerrors.ErrAlreadyRunning{}
	}

	if !u.initialized {
		return &domainerrors.ErrNotInitialized{}
	}

	filter := models.NewAllowedUpdates(opts.AllowedUpdates)
	if unknown := filter.UnknownNames(); len(unknown) > 0 {
		u.logger.Warn("allowed_updates содержит типы, неизвестные библиотеке",
			"types", unknown,
		)
	}

	fetcher, err := u.conn.BindConsumer(ctx, u.cfg.StreamName, u.cfg.ConsumerName)
	if err != nil {
		return err
	}

	u.logger.Debug("Настройка webhook")

	err = u.bot.SetWebhook(ctx, telegram.WebhookParams{
		URL:                u.cfg.ReceiverURL,
		SecretToken:        u.cfg.ReceiverSecret,
		AllowedUpdates:     opts.AllowedUpdates,
		DropPendingUpdates: opts.DropPendingUpdates,
	})
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	u.mu.Lock()
	u.running = true
	u.cancel = cancel
	u.done = done
	u.mu.Unlock()

	metrics.SetUpdaterRunning(true)

	u.logger.Info("Запуск получения обновлений из NATS",
		"stream", u.cfg.StreamName,
		"consumer", u.cfg.ConsumerName,
	)

	go u.poll(loopCtx, session{
		conn:    u.conn,
		fetcher: fetcher,
		handler: handler,
		filter:  filter,
	}, done)

	return nil
}

// GetUpdatesChan повторяет BotAPI.GetUpdatesChan: обновления приходят в канал,
// AllowedUpdates из config уходит в setWebhook. Сообщение подтверждается после
// того, как обновление попало в канал. Канал закрывается после Stop.
func (u *Updater) GetUpdatesChan(ctx context.Context, updateConfig tgbotapi.UpdateConfig) (tgbotapi.UpdatesChannel, error) {
	ch := make(chan tgbotapi.Update, u.options.channelBuffer)

	handler := models.UpdateHandlerFunc(func(ctx context.Context, update *tgbotapi.Update) error {
		select {
		case ch <- *update:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	if err := u.Start(ctx, handler, StartOptions{AllowedUpdates: updateConfig.AllowedUpdates}); err != nil {
		return nil, err
	}

	u.mu.Lock()
	done := u.done
	u.mu.Unlock()

	go func() {
		<-done
		close(ch)
	}()

	return ch, nil
}

// Stop останавливает цикл выборки, дожидается обработки обновления, которое уже
// передано обработчику, и выполняет drain соединения NATS. Повторный вызов и
// вызов до Start ничего не делают.
func (u *Updater) Stop(ctx context.Context) error {
	u.lifecycleMu.Lock()
	defer u.lifecycleMu.Unlock()

	u.mu.Lock()

	if !u.running {
		u.mu.Unlock()
		u.logger.Debug("Updater не запущен, остановка не требуется")

		return nil
	}

	u.running = false
	done := u.done
	u.cancel()

	u.mu.Unlock()

	u.logger.Debug("Остановка Updater")

	metrics.SetUpdaterRunning(false)

	var err error

	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("не дождались завершения обработки обновлений: %w", ctx.Err())
	}

	u.logger.Info("Drain соединения NATS")

	if drainErr := u.conn.Drain(ctx); drainErr != nil {
		err = multierr.Append(err, drainErr)
	}

	u.logger.Debug("Остановка Updater завершена")

	return err
}

func (u *Updater) Shutdown(ctx context.Context) error {
	u.lifecycleMu.Lock()
	defer u.lifecycleMu.Unlock()

	u.mu.Lock()

	if u.running {
		u.mu.Unlock()
		return &domainerrors.ErrStillRunning{}
	}

	if !u.initialized {
		u.mu.Unlock()
		u.logger.Debug("Updater уже остановлен")

		return nil
	}

	u.initialized = false

	u.mu.Unlock()

	if u.conn.IsClosed() {
		u.logger.Warn("Соединение с NATS уже закрыто")
		return nil
	}

	u.logger.Info("Drain соединения NATS")

	err := u.conn.Drain(ctx)

	u.logger.Info("Закрытие соединения NATS")
	u.conn.Close()

	u.logger.Debug("Завершение работы Updater выполнено")

	return err
}

// Run выполняет полный цикл Initialize → Start → ожидание ctx → Stop → Shutdown.
func (u *Updater) Run(ctx context.Context, handler models.UpdateHandler, opts StartOptions) (err error) {
	if err := u.Initialize(ctx); err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.options.drainTimeout)
		defer cancel()

		err = multierr.Combine(err, u.Stop(shutdownCtx), u.Shutdown(shutdownCtx))
	}()

	if err := u.Start(ctx, handler, opts); err != nil {
		return err
	}

	<-ctx.Done()

	return nil
}

func (u *Updater) poll(ctx context.Context, s session, done chan struct{}) {
	defer close(done)

	for ctx.Err() == nil && !(s.conn.IsDraining() || s.conn.IsClosed()) {
		messages, err := s.fetcher.Fetch(ctx, u.options.fetchBatch, u.options.fetchMaxWait)
		if err != nil {
			u.handleFetchError(ctx, err)
			continue
		}

		if ctx.Err() != nil {
			u.logger.Warn("Updater остановлен, возвращаем только что полученные сообщения")

			u.requeue(messages)

			continue
		}

		for i, message := range messages {
			if ctx.Err() != nil {
				u.requeue(messages[i:])
				break
			}

			u.processMessage(ctx, s, message)
		}
	}
}

// requeue возвращает сообщения последовательно, чтобы сохранить порядок повторной доставки.
func (u *Updater) requeue(messages []transport.Message) {
	for _, message := range messages {
		if err := message.Nak(); err != nil {
			u.logger.Error("Ошибка при возврате сообщения", "error", err)
		}

		metrics.RecordUpdate(string(models.UpdateUnknown), metrics.StatusRequeued)
	}
}

func (u *Updater) handleFetchError(ctx context.Context, err error) {
	switch {
	case errors.Is(err, transport.ErrFetchTimeout), errors.Is(err, context.Canceled):
		return
	case errors.Is(err, transport.ErrServiceUnavailable):
		metrics.RecordFetchError("unavailable")
		u.logger.Warn("NATS сервис недоступен, повторим после паузы",
			"error", err,
			"retry_after", u.options.retryBackoff,
		)
	default:
		metrics.RecordFetchError("unknown")
		u.logger.Error("Неизвестная ошибка при получении сообщений", "error", err)
	}

	select {
	case <-time.After(u.options.retryBackoff):
	case <-ctx.Done():
	}
}

func (u *Updater) processMessage(ctx context.Context, s session, message transport.Message) {
	update, err := decodeUpdate(message.Data())
	if err != nil {
		u.deadLetter(ctx, s.conn, message, err)
		return
	}

	updateType := string(models.TypeOf(update))

	if !s.filter.Allows(update) {
		u.logger.Debug("Обновление отфильтровано по allowed_updates",
			"update_id", update.UpdateID,
			"update_type", updateType,
		)
		u.ack(message, update.UpdateID)
		metrics.RecordUpdate(updateType, metrics.StatusFiltered)

		return
	}

	if u.options.dedup != nil {
		seen, err := u.options.dedup.Seen(ctx, update.UpdateID)
		if err != nil {
			u.logger.Warn("Ошибка проверки дубликата, обрабатываем обновление",
				"error", err,
				"update_id", update.UpdateID,
			)
		} else if seen {
			u.logger.Info("Повторное обновление пропущено", "update_id", update.UpdateID)
			u.ack(message, update.UpdateID)
			metrics.RecordUpdate(updateType, metrics.StatusDuplicate)

			return
		}
	}

	// Отмена цикла не прерывает обработчик: Stop должен дождаться его завершения.
	handlerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.options.handlerTimeout)
	defer cancel()

	start := time.Now()
	err = s.handler.HandleUpdate(handlerCtx, update)

	metrics.RecordHandlerDuration(updateType, time.Since(start))

	if err != nil {
		u.logger.Error("Ошибка при обработке обновления, сообщение будет доставлено повторно",
			"error", err,
			"update_id", update.UpdateID,
			"update_type", updateType,
		)

		if nakErr := message.Nak(); nakErr != nil {
			u.logger.Error("Ошибка при возврате сообщения", "error", nakErr)
		}

		metrics.RecordUpdate(updateType, metrics.StatusFailed)

		return
	}

	if u.options.dedup != nil {
		if err := u.options.dedup.Mark(handlerCtx, update.UpdateID); err != nil {
			u.logger.Warn("Не удалось запомнить обработанное обновление",
				"error", err,
				"update_id", update.UpdateID,
			)
		}
	}

	u.ack(message, update.UpdateID)
	metrics.RecordUpdate(updateType, metrics.StatusHandled)
}

func (u *Updater) ack(message transport.Message, updateID int) {
	if err := message.Ack(); err != nil {
		u.logger.Error("Ошибка при подтверждении сообщения",
			"error", err,
			"update_id", updateID,
		)
	}
}

func (u *Updater) deadLetter(ctx context.Context, conn transport.Publisher, message transport.Message, decodeErr error) {
	u.logger.Error("Ошибка при десериализации обновления", "error", decodeErr)

	metrics.RecordUpdate(string(models.UpdateUnknown), metrics.StatusMalformed)

	if u.options.dlqSubject != "" {
		err := conn.Publish(ctx, u.options.dlqSubject, message.Data(), map[string]string{
			"error":     decodeErr.Error(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
		if err != nil {
			u.logger.Error("Ошибка при отправке сообщения в DLQ",
				"error", err,
				"subject", u.options.dlqSubject,
			)
		} else {
			u.logger.Info("Сообщение отправлено в DLQ", "subject", u.options.dlqSubject)
		}
	}

	// Повторная доставка не исправит битый JSON.
	if err := message.Term(); err != nil {
		u.logger.Error("Ошибка при завершении сообщения", "error", err)
	}
}

func decodeUpdate(data []byte) (*tgbotapi.Update, error) {
	var probe struct {
		UpdateID *int `json:"update_id"`
	}

	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &domainerrors.ErrInvalidUpdate{Reason: err.Error()}
	}

	if probe.UpdateID == nil {
		return nil, &domainerrors.ErrInvalidUpdate{Reason: "отсутствует update_id"}
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(data, &update); err != nil {
		return nil, &domainerrors.ErrInvalidUpdate{Reason: err.Error()}
	}

	return &update, nil
}
