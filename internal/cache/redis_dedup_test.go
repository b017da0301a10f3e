package cache_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/central-university-dev/go-nats-updater/internal/cache"
)

func TestRedisDeduplicator(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	redisC, redisURL := startRedisContainer(t)
	defer func() {
		if err := redisC.Terminate(context.Background()); err != nil {
			t.Logf("Ошибка при остановке Redis контейнера: %v", err)
		}
	}()

	dedup, err := cache.NewRedisDeduplicator(redisURL, "", 0, 30*time.Second, logger)
	require.NoError(t, err)

	defer dedup.Close()

	ctx := context.Background()

	seen, err := dedup.Seen(ctx, 100)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, dedup.Mark(ctx, 100))

	seen, err = dedup.Seen(ctx, 100)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = dedup.Seen(ctx, 101)
	require.NoError(t, err)
	assert.False(t, seen)

	shortTTL, err := cache.NewRedisDeduplicator(redisURL, "", 0, 1*time.Second, logger)
	require.NoError(t, err)

	defer shortTTL.Close()

	require.NoError(t, shortTTL.Mark(ctx, 200))

	time.Sleep(2 * time.Second)

	seen, err = shortTTL.Seen(ctx, 200)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestNewRedisDeduplicator_Unreachable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	_, err := cache.NewRedisDeduplicator("127.0.0.1:1", "", 0, time.Second, logger)
	require.Error(t, err)
}

func startRedisContainer(t *testing.T) (container testcontainers.Container, addr string) {
	ctx := context.Background()

	redisC, err := tcredis.Run(ctx,
		"redis:7-alpine",
		tcredis.WithLogLevel(tcredis.LogLevelVerbose),
	)
	require.NoError(t, err)

	host, err := redisC.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return redisC, host + ":" + mappedPort.Port()
}
