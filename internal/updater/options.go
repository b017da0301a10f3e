package updater

import (
	"time"
)

const (
	defaultFetchBatch     = 10
	defaultFetchMaxWait   = 5 * time.Second
	defaultRetryBackoff   = 2 * time.Second
	defaultHandlerTimeout = 10 * time.Second
	defaultDrainTimeout   = 30 * time.Second
	defaultChannelBuffer  = 100
)

type options struct {
	fetchBatch     int
	fetchMaxWait   time.Duration
	retryBackoff   time.Duration
	handlerTimeout time.Duration
	drainTimeout   time.Duration
	channelBuffer  int
	dlqSubject     string
	dedup          Deduplicator
}

type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		fetchBatch:     defaultFetchBatch,
		fetchMaxWait:   defaultFetchMaxWait,
		retryBackoff:   defaultRetryBackoff,
		handlerTimeout: defaultHandlerTimeout,
		drainTimeout:   defaultDrainTimeout,
		channelBuffer:  defaultChannelBuffer,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func WithFetchBatch(batch int) Option {
	return func(o *options) {
		if batch > 0 {
			o.fetchBatch = batch
		}
	}
}

func WithFetchMaxWait(maxWait time.Duration) Option {
	return func(o *options) {
		if maxWait > 0 {
			o.fetchMaxWait = maxWait
		}
	}
}

func WithRetryBackoff(backoff time.Duration) Option {
	return func(o *options) {
		if backoff > 0 {
			o.retryBackoff = backoff
		}
	}
}

func WithHandlerTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.handlerTimeout = timeout
		}
	}
}

func WithDrainTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.drainTimeout = timeout
		}
	}
}

func WithChannelBuffer(size int) Option {
	return func(o *options) {
		if size >= 0 {
			o.channelBuffer = size
		}
	}
}

// WithDLQSubject включает публикацию неразборчивых сообщений в отдельный subject.
func WithDLQSubject(subject string) Option {
	return func(o *options) {
		o.dlqSubject = subject
	}
}

func WithDeduplicator(dedup Deduplicator) Option {
	return func(o *options) {
		o.dedup = dedup
	}
}
