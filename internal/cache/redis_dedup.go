package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "tg:update:"

// RedisDeduplicator хранит update_id обработанных обновлений с TTL, чтобы
// повторная доставка из JetStream не доходила до обработчика второй раз.
type RedisDeduplicator struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisDeduplicator(redisURL, password string, db int, ttl time.Duration, logger *slog.Logger) (*RedisDeduplicator, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ошибка при подключении к Redis: %w", err)
	}

	logger.Info("Соединение с Redis успешно установлено")

	return &RedisDeduplicator{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func (d *RedisDeduplicator) Seen(ctx context.Context, updateID int) (bool, error) {
	n, err := d.client.Exists(ctx, key(updateID)).Result()
	if err != nil {
		d.logger.Error("Ошибка при проверке обновления в Redis",
			"error", err,
			"update_id", updateID,
		)

		return false, fmt.Errorf("ошибка при проверке обновления в Redis: %w", err)
	}

	return n > 0, nil
}

func (d *RedisDeduplicator) Mark(ctx context.Context, updateID int) error {
	if err := d.client.Set(ctx, key(updateID), 1, d.ttl).Err(); err != nil {
		d.logger.Error("Ошибка при сохранении обновления в Redis",
			"error", err,
			"update_id", updateID,
		)

		return fmt.Errorf("ошибка при сохранении обновления в Redis: %w", err)
	}

	d.logger.Debug("Обновление отмечено как обработанное",
		"update_id", updateID,
		"ttl", d.ttl,
	)

	return nil
}

func (d *RedisDeduplicator) Close() error {
	return d.client.Close()
}

func key(updateID int) string {
	return fmt.Sprintf("%s%d", keyPrefix, updateID)
}
