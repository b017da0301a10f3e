package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/central-university-dev/go-nats-updater/internal/bot/handler"
	"github.com/central-university-dev/go-nats-updater/internal/cache"
	"github.com/central-university-dev/go-nats-updater/internal/common/httputil"
	"github.com/central-university-dev/go-nats-updater/internal/common/metrics"
	"github.com/central-university-dev/go-nats-updater/internal/config"
	"github.com/central-university-dev/go-nats-updater/internal/telegram"
	"github.com/central-university-dev/go-nats-updater/internal/updater"
	"github.com/central-university-dev/go-nats-updater/pkg"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка запуска сервиса: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(true)
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	appLogger := pkg.NewLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot, err := telegram.NewBotAPI(cfg.TelegramBotToken, httputil.NewTelegramHTTPClient(cfg, appLogger))
	if err != nil {
		appLogger.Error("Ошибка при создании клиента Telegram",
			"error", err,
		)

		return err
	}

	appLogger.Info("Авторизация в Telegram выполнена", "username", bot.Self.UserName)

	client := telegram.NewClient(bot, appLogger)
	updateHandler := handler.NewUpdateHandler(bot, appLogger)

	if cfg.Nats == nil {
		appLogger.Warn("Переменные NATS_* не заданы, обновления будут получаться через long polling")

		poller := telegram.NewPoller(bot, updateHandler, cfg.HandlerTimeout, cfg.ExternalRequestTimeout, appLogger)
		startMetricsServer(ctx, cfg.BotMetricsPort, nil, appLogger)

		return runPolling(ctx, client, poller, cfg, appLogger)
	}

	var opts []updater.Option

	if cfg.RedisURL != "" {
		dedup, err := cache.NewRedisDeduplicator(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB, cfg.DedupTTL, appLogger)
		if err != nil {
			appLogger.Warn("Продолжаем без дедупликации обновлений",
				"error", err,
			)
		} else {
			defer func() {
				if err := dedup.Close(); err != nil {
					appLogger.Error("Ошибка при закрытии соединения с Redis", "error", err)
				}
			}()

			opts = append(opts, updater.WithDeduplicator(dedup))
		}
	}

	natsUpdater, err := updater.NewFromBot(bot, cfg, appLogger, opts...)
	if err != nil {
		return err
	}

	startMetricsServer(ctx, cfg.BotMetricsPort, natsUpdater.Running, appLogger)

	monitor := telegram.NewWebhookMonitor(client, telegram.WebhookParams{
		URL:            cfg.Nats.ReceiverURL,
		SecretToken:    cfg.Nats.ReceiverSecret,
		AllowedUpdates: cfg.AllowedUpdates,
	}, cfg.WebhookMonitorInterval, appLogger)

	monitor.Start()
	defer monitor.Stop()

	err = natsUpdater.Run(ctx, updateHandler, updater.StartOptions{
		AllowedUpdates:     cfg.AllowedUpdates,
		DropPendingUpdates: cfg.DropPendingUpdates,
	})
	if err != nil {
		appLogger.Error("Updater завершился с ошибкой",
			"error", err,
		)

		return err
	}

	appLogger.Info("Бот успешно остановлен")

	return nil
}

// runPolling снимает webhook, иначе getUpdates вернёт конфликт, и работает до отмены ctx.
func runPolling(
	ctx context.Context,
	client *telegram.Client,
	poller *telegram.Poller,
	cfg *config.Config,
	appLogger *slog.Logger,
) error {
	if err := client.DeleteWebhook(ctx, cfg.DropPendingUpdates); err != nil {
		appLogger.Error("Ошибка при удалении webhook",
			"error", err,
		)

		return err
	}

	poller.Start(cfg.AllowedUpdates)

	<-ctx.Done()
	appLogger.Info("Получен сигнал завершения")

	poller.Stop()

	appLogger.Info("Бот успешно остановлен")

	return nil
}

func startMetricsServer(ctx context.Context, port int, ready metrics.ReadinessFunc, appLogger *slog.Logger) {
	server := metrics.NewMetricsServer(port, ready, appLogger)

	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error("Сервер метрик завершился с ошибкой",
				"error", err,
			)
		}
	}()
}
