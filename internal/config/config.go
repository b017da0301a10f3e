package config

import (
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"
)

type Config struct {
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	LogLevel         string `mapstructure:"LOG_LEVEL"`

	Nats *NatsConfig `mapstructure:"-"`

	NatsSubject        string        `mapstructure:"NATS_SUBJECT"`
	NatsDLQSubject     string        `mapstructure:"NATS_DLQ_SUBJECT"`
	NatsConnectTimeout time.Duration `mapstructure:"NATS_CONNECT_TIMEOUT"`
	NatsFetchBatch     int           `mapstructure:"NATS_FETCH_BATCH"`
	NatsFetchMaxWait   time.Duration `mapstructure:"NATS_FETCH_MAX_WAIT"`
	NatsRetryBackoff   time.Duration `mapstructure:"NATS_RETRY_BACKOFF"`
	NatsAckWait        time.Duration `mapstructure:"NATS_ACK_WAIT"`
	NatsMaxDeliver     int           `mapstructure:"NATS_MAX_DELIVER"`
	NatsStreamMaxAge   time.Duration `mapstructure:"NATS_STREAM_MAX_AGE"`

	AllowedUpdates     []string      `mapstructure:"TELEGRAM_ALLOWED_UPDATES"`
	DropPendingUpdates bool          `mapstructure:"TELEGRAM_DROP_PENDING_UPDATES"`
	HandlerTimeout     time.Duration `mapstructure:"HANDLER_TIMEOUT"`
	DrainTimeout       time.Duration `mapstructure:"DRAIN_TIMEOUT"`

	WebhookMonitorInterval time.Duration `mapstructure:"WEBHOOK_MONITOR_INTERVAL"`

	ReceiverServerPort  int    `mapstructure:"RECEIVER_SERVER_PORT"`
	ReceiverWebhookPath string `mapstructure:"RECEIVER_WEBHOOK_PATH"`
	ReceiverMaxBodySize int64  `mapstructure:"RECEIVER_MAX_BODY_SIZE"`
	BotMetricsPort      int    `mapstructure:"BOT_METRICS_PORT"`
	ReceiverMetricsPort int    `mapstructure:"RECEIVER_METRICS_PORT"`

	RedisURL      string        `mapstructure:"REDIS_URL"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	DedupTTL      time.Duration `mapstructure:"DEDUP_TTL"`

	ExternalRequestTimeout time.Duration `mapstructure:"EXTERNAL_REQUEST_TIMEOUT"`

	RateLimitRequests int           `mapstructure:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow   time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`

	RetryCount           int           `mapstructure:"RETRY_COUNT"`
	RetryBackoff         time.Duration `mapstructure:"RETRY_BACKOFF"`
	RetryableStatusCodes []int         `mapstructure:"RETRYABLE_STATUS_CODES"`

	CBSlidingWindowSize        int           `mapstructure:"CB_SLIDING_WINDOW_SIZE"`
	CBMinimumRequiredCalls     int           `mapstructure:"CB_MINIMUM_REQUIRED_CALLS"`
	CBFailureRateThreshold     int           `mapstructure:"CB_FAILURE_RATE_THRESHOLD"`
	CBPermittedCallsInHalfOpen int           `mapstructure:"CB_PERMITTED_CALLS_IN_HALF_OPEN"`
	CBWaitDurationInOpenState  time.Duration `mapstructure:"CB_WAIT_DURATION_IN_OPEN_STATE"`
}

// LoadConfig читает переменные окружения и необязательный .env файл.
// NatsConfig обязателен: без него процесс не может получать обновления.
func LoadConfig() (*Config, error) {
	return Load(false)
}

// Load при natsOptional=true допускает отсутствие NATS_*: тогда Config.Nats равен nil.
func Load(natsOptional bool) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	config := getDefaultConfig()

	if err := v.Unmarshal(config); err != nil {
		config = getDefaultConfig()
	}

	config.AllowedUpdates = normalizeList(config.AllowedUpdates)

	natsConfig, err := natsConfigFrom(v, natsOptional)
	if err != nil {
		return nil, err
	}

	config.Nats = natsConfig

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("NATS_SUBJECT", "telegram.updates")
	v.SetDefault("NATS_DLQ_SUBJECT", "telegram.updates.dlq")
	v.SetDefault("NATS_CONNECT_TIMEOUT", nats.DefaultTimeout.String())
	v.SetDefault("NATS_FETCH_BATCH", 10)
	v.SetDefault("NATS_FETCH_MAX_WAIT", "5s")
	v.SetDefault("NATS_RETRY_BACKOFF", "2s")
	v.SetDefault("NATS_ACK_WAIT", "30s")
	v.SetDefault("NATS_MAX_DELIVER", 5)
	v.SetDefault("NATS_STREAM_MAX_AGE", "24h")

	v.SetDefault("TELEGRAM_ALLOWED_UPDATES", []string{})
	v.SetDefault("TELEGRAM_DROP_PENDING_UPDATES", false)
	v.SetDefault("HANDLER_TIMEOUT", "10s")
	v.SetDefault("DRAIN_TIMEOUT", "30s")

	v.SetDefault("WEBHOOK_MONITOR_INTERVAL", "5m")

	v.SetDefault("RECEIVER_SERVER_PORT", 8080)
	v.SetDefault("RECEIVER_WEBHOOK_PATH", "/webhook")
	v.SetDefault("RECEIVER_MAX_BODY_SIZE", 1<<20)
	v.SetDefault("BOT_METRICS_PORT", 9094)
	v.SetDefault("RECEIVER_METRICS_PORT", 9095)

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DEDUP_TTL", "24h")

	v.SetDefault("EXTERNAL_REQUEST_TIMEOUT", "10s")

	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", "1s")

	v.SetDefault("RETRY_COUNT", 3)
	v.SetDefault("RETRY_BACKOFF", "1s")
	v.SetDefault("RETRYABLE_STATUS_CODES", []int{408, 429, 500, 502, 503, 504})

	v.SetDefault("CB_SLIDING_WINDOW_SIZE", 10)
	v.SetDefault("CB_MINIMUM_REQUIRED_CALLS", 5)
	v.SetDefault("CB_FAILURE_RATE_THRESHOLD", 50)
	v.SetDefault("CB_PERMITTED_CALLS_IN_HALF_OPEN", 2)
	v.SetDefault("CB_WAIT_DURATION_IN_OPEN_STATE", "10s")
}

func getDefaultConfig() *Config {
	return &Config{
		LogLevel: "info",

		NatsSubject:        "telegram.updates",
		NatsDLQSubject:     "telegram.updates.dlq",
		NatsConnectTimeout: nats.DefaultTimeout,
		NatsFetchBatch:     10,
		NatsFetchMaxWait:   5 * time.Second,
		NatsRetryBackoff:   2 * time.Second,
		NatsAckWait:        30 * time.Second,
		NatsMaxDeliver:     5,
		NatsStreamMaxAge:   24 * time.Hour,

		HandlerTimeout: 10 * time.Second,
		DrainTimeout:   30 * time.Second,

		WebhookMonitorInterval: 5 * time.Minute,

		ReceiverServerPort:  8080,
		ReceiverWebhookPath: "/webhook",
		ReceiverMaxBodySize: 1 << 20,
		BotMetricsPort:      9094,
		ReceiverMetricsPort: 9095,

		DedupTTL: 24 * time.Hour,

		ExternalRequestTimeout: 10 * time.Second,

		RateLimitRequests: 100,
		RateLimitWindow:   1 * time.Second,

		RetryCount:           3,
		RetryBackoff:         1 * time.Second,
		RetryableStatusCodes: []int{408, 429, 500, 502, 503, 504},

		CBSlidingWindowSize:        10,
		CBMinimumRequiredCalls:     5,
		CBFailureRateThreshold:     50,
		CBPermittedCallsInHalfOpen: 2,
		CBWaitDurationInOpenState:  10 * time.Second,
	}
}

// normalizeList раскладывает значения вида "message,callback_query" из окружения.
func normalizeList(values []string) []string {
	result := make([]string, 0, len(values))

	for _, value := range values {
		for _, part := range strings.FieldsFunc(value, func(r rune) bool {
			return r == ',' || r == ' '
		}) {
			if part != "" {
				result = append(result, part)
			}
		}
	}

	return result
}
