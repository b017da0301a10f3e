package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	domainerrors "github.com/central-university-dev/go-nats-updater/internal/domain/errors"
	"github.com/central-university-dev/go-nats-updater/internal/domain/transport"
)

type Conn struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger

	closed    chan struct{}
	closeOnce sync.Once
}

var _ transport.Connection = (*Conn)(nil)

// NewDialer возвращает transport.Dialer с таймаутом подключения connectTimeout.
// Нулевое значение означает таймаут клиента NATS по умолчанию.
func NewDialer(name string, connectTimeout time.Duration, logger *slog.Logger) transport.Dialer {
	return func(ctx context.Context, url string) (transport.Connection, error) {
		return Connect(ctx, url, name, connectTimeout, logger)
	}
}

func Connect(ctx context.Context, url, name string, connectTimeout time.Duration, logger *slog.Logger) (*Conn, error) {
	if connectTimeout <= 0 {
		connectTimeout = nats.DefaultTimeout
	}

	c := &Conn{
		logger: logger,
		closed: make(chan struct{}),
	}

	logger.Debug("Подключение к NATS серверу", "url", url)

	type result struct {
		nc  *nats.Conn
		err error
	}

	resultCh := make(chan result, 1)

	go func() {
		nc, err := nats.Connect(url,
			nats.Name(name),
			nats.Timeout(connectTimeout),
			nats.MaxReconnects(-1),
			nats.ClosedHandler(func(_ *nats.Conn) {
				c.closeOnce.Do(func() { close(c.closed) })
			}),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					logger.Warn("Соединение с NATS потеряно", "error", err)
				}
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				logger.Info("Соединение с NATS восстановлено", "url", nc.ConnectedUrl())
			}),
		)
		resultCh <- result{nc: nc, err: err}
	}()

	var res result

	select {
	case res = <-resultCh:
	case <-ctx.Done():
		go func() {
			if late := <-resultCh; late.nc != nil {
				late.nc.Close()
			}
		}()

		return nil, &domainerrors.ErrConnection{URL: url, Err: ctx.Err()}
	}

	if res.err != nil {
		return nil, &domainerrors.ErrConnection{URL: url, Err: res.err}
	}

	js, err := jetstream.New(res.nc)
	if err != nil {
		res.nc.Close()
		return nil, fmt.Errorf("ошибка создания JetStream контекста: %w", err)
	}

	c.nc = res.nc
	c.js = js

	logger.Info("Соединение с NATS успешно установлено", "url", res.nc.ConnectedUrl())

	return c, nil
}

func (c *Conn) JetStream() jetstream.JetStream {
	return c.js
}

func (c *Conn) BindConsumer(ctx context.Context, stream, consumer string) (transport.Fetcher, error) {
	cons, err := c.js.Consumer(ctx, stream, consumer)
	if err != nil {
		return nil, fmt.Errorf("ошибка привязки к consumer %s в потоке %s: %w", consumer, stream, err)
	}

	return &fetcher{consumer: cons}, nil
}

func (c *Conn) Publish(ctx context.Context, subject string, data []byte, headers map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data

	var opts []jetstream.PublishOpt

	for key, value := range headers {
		if key == nats.MsgIdHdr {
			opts = append(opts, jetstream.WithMsgID(value))
			continue
		}

		msg.Header.Set(key, value)
	}

	if _, err := c.js.PublishMsg(ctx, msg, opts...); err != nil {
		return fmt.Errorf("ошибка публикации в %s: %w", subject, err)
	}

	return nil
}

func (c *Conn) Drain(ctx context.Context) error {
	if c.nc.IsClosed() {
		return nil
	}

	if !c.nc.IsDraining() {
		if err := c.nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			return fmt.Errorf("ошибка при drain соединения NATS: %w", err)
		}
	}

	select {
	case <-c.closed:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("не дождались закрытия соединения NATS: %w", ctx.Err())
	}
}

func (c *Conn) Close() {
	c.nc.Close()
}

func (c *Conn) IsDraining() bool {
	return c.nc.IsDraining()
}

func (c *Conn) IsClosed() bool {
	return c.nc.IsClosed()
}

type fetcher struct {
	consumer jetstream.Consumer
}

func (f *fetcher) Fetch(ctx context.Context, batch int, maxWait time.Duration) ([]transport.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msgBatch, err := f.consumer.Fetch(batch, jetstream.FetchMaxWait(maxWait))
	if err != nil {
		return nil, mapFetchError(err)
	}

	messages := make([]transport.Message, 0, batch)
	for msg := range msgBatch.Messages() {
		messages = append(messages, msg)
	}

	if err := msgBatch.Error(); err != nil && len(messages) == 0 {
		return nil, mapFetchError(err)
	}

	if len(messages) == 0 {
		return nil, transport.ErrFetchTimeout
	}

	return messages, nil
}

func mapFetchError(err error) error {
	switch {
	case errors.Is(err, nats.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return transport.ErrFetchTimeout
	case errors.Is(err, nats.ErrNoResponders),
		errors.Is(err, jetstream.ErrNoHeartbeat),
		errors.Is(err, nats.ErrConnectionReconnecting):
		return fmt.Errorf("%w: %w", transport.ErrServiceUnavailable, err)
	default:
		return err
	}
}
