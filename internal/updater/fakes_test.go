package updater_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/central-university-dev/go-nats-updater/internal/domain/transport"
)

type fakeMessage struct {
	data []byte

	mu     sync.Mutex
	acked  bool
	naked  bool
	termed bool
}

func newFakeMessage(data []byte) *fakeMessage {
	return &fakeMessage{data: data}
}

func updateMessage(update tgbotapi.Update) *fakeMessage {
	data, err := json.Marshal(update)
	if err != nil {
		panic(err)
	}

	return newFakeMessage(data)
}

func (m *fakeMessage) Data() []byte { return m.data }

func (m *fakeMessage) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.acked = true

	return nil
}

func (m *fakeMessage) Nak() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.naked = true

	return nil
}

func (m *fakeMessage) Term() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.termed = true

	return nil
}

func (m *fakeMessage) state() (acked, naked, termed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.acked, m.naked, m.termed
}

// fakeFetcher отдаёт заранее подготовленные пачки, а в их отсутствие ведёт себя как
// JetStream без сообщений: ждёт maxWait и возвращает ErrFetchTimeout.
type fakeFetcher struct {
	batches chan []transport.Message
	fetchFn func(ctx context.Context) ([]transport.Message, error)
	calls   atomic.Int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{batches: make(chan []transport.Message, 16)}
}

func (f *fakeFetcher) push(messages ...*fakeMessage) {
	batch := make([]transport.Message, 0, len(messages))
	for _, m := range messages {
		batch = append(batch, m)
	}

	f.batches <- batch
}

func (f *fakeFetcher) Fetch(ctx context.Context, _ int, maxWait time.Duration) ([]transport.Message, error) {
	f.calls.Add(1)

	if f.fetchFn != nil {
		return f.fetchFn(ctx)
	}

	select {
	case batch := <-f.batches:
		return batch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(maxWait):
		return nil, transport.ErrFetchTimeout
	}
}

type published struct {
	subject string
	data    []byte
	headers map[string]string
}

type fakeConn struct {
	fetcher *fakeFetcher
	bindErr error

	mu        sync.Mutex
	bound     []string
	published []published
	draining  bool
	closed    bool
	drains    int
}

func newFakeConn(fetcher *fakeFetcher) *fakeConn {
	return &fakeConn{fetcher: fetcher}
}

func (c *fakeConn) Publish(_ context.Context, subject string, data []byte, headers map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.published = append(c.published, published{subject: subject, data: data, headers: headers})

	return nil
}

func (c *fakeConn) BindConsumer(_ context.Context, stream, consumer string) (transport.Fetcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bindErr != nil {
		return nil, c.bindErr
	}

	c.bound = append(c.bound, stream+"/"+consumer)

	return c.fetcher, nil
}

func (c *fakeConn) Drain(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.drains++
	c.draining = false
	c.closed = true

	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
}

func (c *fakeConn) IsDraining() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.draining
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *fakeConn) publishedMessages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]published(nil), c.published...)
}

func (c *fakeConn) drainCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.drains
}

func dialerFor(conn *fakeConn) transport.Dialer {
	return func(_ context.Context, _ string) (transport.Connection, error) {
		return conn, nil
	}
}
