package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/central-university-dev/go-nats-updater/internal/common/httputil"
	"github.com/central-university-dev/go-nats-updater/internal/common/metrics"
	"github.com/central-university-dev/go-nats-updater/internal/common/middleware"
	"github.com/central-university-dev/go-nats-updater/internal/config"
	natsinfra "github.com/central-university-dev/go-nats-updater/internal/infrastructure/nats"
	"github.com/central-university-dev/go-nats-updater/internal/receiver"
	"github.com/central-university-dev/go-nats-updater/pkg"
)

const clientName = "telegram-webhook-receiver"

func gracefulShutdown(server *http.Server, conn *natsinfra.Conn, drainTimeout time.Duration,
	stopCh <-chan struct{}, appLogger *slog.Logger) {
	<-stopCh
	appLogger.Info("Получен сигнал завершения")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Ошибка при остановке HTTP сервера",
			"error", err,
		)
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), drainTimeout)
	defer drainCancel()

	if err := conn.Drain(drainCtx); err != nil {
		appLogger.Error("Ошибка при drain соединения NATS",
			"error", err,
		)
		conn.Close()
	}

	appLogger.Info("Receiver успешно остановлен")
}

func startHTTPServer(server *http.Server, port int, stopCh chan<- struct{}, appLogger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverFailed := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			appLogger.Info("Получен системный сигнал",
				"signal", sig.String(),
			)
		case <-serverFailed:
		}

		close(stopCh)
	}()

	go func() {
		appLogger.Info("Запуск HTTP сервера receiver",
			"port", port,
		)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Ошибка при запуске HTTP сервера",
				"error", err,
			)

			close(serverFailed)
		}
	}()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка запуска сервиса: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	appLogger := pkg.NewLogger(os.Stdout, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connectCtx, connectCancel := context.WithTimeout(ctx, cfg.NatsConnectTimeout+time.Second)
	defer connectCancel()

	conn, err := natsinfra.Connect(connectCtx, cfg.Nats.URL, clientName, cfg.NatsConnectTimeout, appLogger)
	if err != nil {
		appLogger.Error("Ошибка при подключении к NATS",
			"error", err,
		)

		return err
	}

	err = natsinfra.EnsureStream(ctx, conn.JetStream(), natsinfra.StreamSpec{
		Stream:        cfg.Nats.StreamName,
		Subjects:      []string{cfg.NatsSubject, cfg.NatsDLQSubject},
		MaxAge:        cfg.NatsStreamMaxAge,
		Consumer:      cfg.Nats.ConsumerName,
		FilterSubject: cfg.NatsSubject,
		AckWait:       cfg.NatsAckWait,
		MaxDeliver:    cfg.NatsMaxDeliver,
	}, appLogger)
	if err != nil {
		appLogger.Error("Ошибка при создании потока JetStream",
			"error", err,
		)
		conn.Close()

		return err
	}

	webhook := receiver.NewWebhookHandler(
		conn,
		httputil.NewCircuitBreaker(cfg, "nats_publish", appLogger),
		receiver.WebhookConfig{
			Subject:        cfg.NatsSubject,
			Secret:         cfg.Nats.ReceiverSecret,
			MaxBodySize:    cfg.ReceiverMaxBodySize,
			PublishTimeout: cfg.ExternalRequestTimeout,
		},
		appLogger,
	)

	rateLimiter := middleware.NewRateLimiter(ctx, cfg.RateLimitRequests, cfg.RateLimitWindow, appLogger)

	metricsServer := metrics.NewMetricsServer(cfg.ReceiverMetricsPort, func() bool {
		return !conn.IsClosed() && !conn.IsDraining()
	}, appLogger)

	go func() {
		if err := metricsServer.Start(ctx); err != nil {
			appLogger.Error("Сервер метрик завершился с ошибкой",
				"error", err,
			)
		}
	}()

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ReceiverServerPort),
		Handler:           receiver.NewRouter(cfg.ReceiverWebhookPath, webhook, rateLimiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCh := make(chan struct{})

	startHTTPServer(httpServer, cfg.ReceiverServerPort, stopCh, appLogger)
	gracefulShutdown(httpServer, conn, cfg.DrainTimeout, stopCh, appLogger)

	return nil
}
