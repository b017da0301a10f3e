package transport

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrFetchTimeout возвращается, когда за время ожидания не пришло ни одного сообщения.
	ErrFetchTimeout = errors.New("истекло время ожидания сообщений")

	// ErrServiceUnavailable возвращается, когда JetStream временно не отвечает.
	ErrServiceUnavailable = errors.New("сервис JetStream недоступен")
)

// Message это одно сообщение из потока. jetstream.Msg удовлетворяет интерфейсу.
type Message interface {
	Data() []byte
	Ack() error
	Nak() error
	Term() error
}

type Fetcher interface {
	Fetch(ctx context.Context, batch int, maxWait time.Duration) ([]Message, error)
}

type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, headers map[string]string) error
}

type Connection interface {
	Publisher

	// BindConsumer привязывается к уже существующему durable consumer.
	BindConsumer(ctx context.Context, stream, consumer string) (Fetcher, error)

	// Drain переводит соединение в режим drain и ждёт его закрытия.
	Drain(ctx context.Context) error
	Close()

	IsDraining() bool
	IsClosed() bool
}

type Dialer func(ctx context.Context, url string) (Connection, error)
