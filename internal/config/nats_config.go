package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/central-university-dev/go-nats-updater/internal/domain/errors"
)

const natsEnvPrefix = "NATS_"

type NatsConfig struct {
	URL            string
	ConsumerName   string
	ReceiverSecret string
	ReceiverURL    string
	StreamName     string
}

// NatsConfigFromEnv собирает NatsConfig из переменных окружения NATS_*.
// Если хотя бы одной переменной нет, при optional=true возвращается (nil, nil),
// иначе ErrMissingEnv со списком всех отсутствующих ключей.
func NatsConfigFromEnv(optional bool) (*NatsConfig, error) {
	v := viper.New()
	v.AutomaticEnv()

	return natsConfigFrom(v, optional)
}

func natsConfigFrom(v *viper.Viper, optional bool) (*NatsConfig, error) {
	var missing []string

	get := func(key string) string {
		fullKey := natsEnvPrefix + key

		value := strings.TrimSpace(v.GetString(fullKey))
		if value == "" {
			missing = append(missing, fullKey)
		}

		return value
	}

	cfg := &NatsConfig{
		URL:            get("SERVER_URL"),
		ConsumerName:   get("CONSUMER_NAME"),
		ReceiverSecret: get("RECEIVER_SECRET"),
		ReceiverURL:    get("RECEIVER_URL"),
		StreamName:     get("STREAM_NAME"),
	}

	if len(missing) > 0 {
		if optional {
			return nil, nil
		}

		return nil, &errors.ErrMissingEnv{Keys: missing}
	}

	return cfg, nil
}
