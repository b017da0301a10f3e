package config_test

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/go-nats-updater/internal/config"
	"github.com/central-university-dev/go-nats-updater/internal/domain/errors"
)

func setNatsEnv(t *testing.T) {
	t.Helper()

	t.Setenv("NATS_SERVER_URL", "nats://localhost:4222")
	t.Setenv("NATS_CONSUMER_NAME", "bot")
	t.Setenv("NATS_RECEIVER_SECRET", "secret")
	t.Setenv("NATS_RECEIVER_URL", "https://example.com/webhook")
	t.Setenv("NATS_STREAM_NAME", "TELEGRAM")
}

func TestNatsConfigFromEnv_AllPresent(t *testing.T) {
	setNatsEnv(t)

	cfg, err := config.NatsConfigFromEnv(false)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "nats://localhost:4222", cfg.URL)
	assert.Equal(t, "bot", cfg.ConsumerName)
	assert.Equal(t, "secret", cfg.ReceiverSecret)
	assert.Equal(t, "https://example.com/webhook", cfg.ReceiverURL)
	assert.Equal(t, "TELEGRAM", cfg.StreamName)
}

func TestNatsConfigFromEnv_MissingRequired(t *testing.T) {
	setNatsEnv(t)
	t.Setenv("NATS_CONSUMER_NAME", "")
	t.Setenv("NATS_STREAM_NAME", "")

	cfg, err := config.NatsConfigFromEnv(false)
	require.Error(t, err)
	assert.Nil(t, cfg)

	var missingErr *errors.ErrMissingEnv

	require.ErrorAs(t, err, &missingErr)
	assert.ElementsMatch(t, []string{"NATS_CONSUMER_NAME", "NATS_STREAM_NAME"}, missingErr.Keys)
}

func TestNatsConfigFromEnv_MissingOptional(t *testing.T) {
	setNatsEnv(t)
	t.Setenv("NATS_SERVER_URL", "")

	cfg, err := config.NatsConfigFromEnv(true)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_Defaults(t *testing.T) {
	setNatsEnv(t)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, nats.DefaultTimeout, cfg.NatsConnectTimeout)
	assert.Equal(t, 2*time.Second, cfg.NatsRetryBackoff)
	assert.Equal(t, "telegram.updates", cfg.NatsSubject)
	assert.Empty(t, cfg.AllowedUpdates)
	require.NotNil(t, cfg.Nats)
	assert.Equal(t, "TELEGRAM", cfg.Nats.StreamName)
}

func TestLoadConfig_AllowedUpdatesFromEnv(t *testing.T) {
	setNatsEnv(t)
	t.Setenv("TELEGRAM_ALLOWED_UPDATES", "message,callback_query")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"message", "callback_query"}, cfg.AllowedUpdates)
}

func TestLoadConfig_RequiresNats(t *testing.T) {
	setNatsEnv(t)
	t.Setenv("NATS_RECEIVER_URL", "")

	_, err := config.LoadConfig()
	require.Error(t, err)
	assert.ErrorIs(t, err, &errors.ErrMissingEnv{})
}

func TestLoad_OptionalNats(t *testing.T) {
	t.Setenv("NATS_SERVER_URL", "")

	cfg, err := config.Load(true)
	require.NoError(t, err)
	assert.Nil(t, cfg.Nats)
	assert.Equal(t, "/webhook", cfg.ReceiverWebhookPath)

	_, err = config.LoadConfig()
	assert.ErrorIs(t, err, &errors.ErrMissingEnv{})
}
