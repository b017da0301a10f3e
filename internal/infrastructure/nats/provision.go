package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

type StreamSpec struct {
	Stream        string
	Subjects      []string
	MaxAge        time.Duration
	Consumer      string
	FilterSubject string
	AckWait       time.Duration
	MaxDeliver    int
}

// EnsureStream создаёт или обновляет поток и durable pull consumer, к которому затем
// привязывается updater. Окно дубликатов совпадает с MaxAge, чтобы повторная
// доставка webhook с тем же update_id не попадала в поток дважды.
func EnsureStream(ctx context.Context, js jetstream.JetStream, spec StreamSpec, logger *slog.Logger) error {
	duplicates := 2 * time.Minute
	if spec.MaxAge > 0 && spec.MaxAge < duplicates {
		duplicates = spec.MaxAge
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       spec.Stream,
		Subjects:   spec.Subjects,
		Retention:  jetstream.WorkQueuePolicy,
		Storage:    jetstream.FileStorage,
		MaxAge:     spec.MaxAge,
		Duplicates: duplicates,
	})
	if err != nil {
		return fmt.Errorf("ошибка создания потока %s: %w", spec.Stream, err)
	}

	logger.Info("Поток JetStream готов",
		"stream", stream.CachedInfo().Config.Name,
		"subjects", spec.Subjects,
	)

	if spec.Consumer == "" {
		return nil
	}

	_, err = js.CreateOrUpdateConsumer(ctx, spec.Stream, jetstream.ConsumerConfig{
		Durable:       spec.Consumer,
		FilterSubject: spec.FilterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       spec.AckWait,
		MaxDeliver:    spec.MaxDeliver,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("ошибка создания consumer %s: %w", spec.Consumer, err)
	}

	logger.Info("Consumer JetStream готов",
		"stream", spec.Stream,
		"consumer", spec.Consumer,
	)

	return nil
}
