package updater

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/central-university-dev/go-nats-updater/internal/common/httputil"
	"github.com/central-university-dev/go-nats-updater/internal/config"
	natsinfra "github.com/central-university-dev/go-nats-updater/internal/infrastructure/nats"
	"github.com/central-university-dev/go-nats-updater/internal/telegram"
)

const clientName = "telegram-nats-updater"

// CreateUpdater создаёт BotAPI по токену поверх устойчивого HTTP клиента и
// собирает Updater с JetStream транспортом.
func CreateUpdater(token string, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Updater, error) {
	if cfg.Nats == nil {
		return nil, fmt.Errorf("не задана конфигурация NATS")
	}

	bot, err := telegram.NewBotAPI(token, httputil.NewTelegramHTTPClient(cfg, logger))
	if err != nil {
		return nil, err
	}

	return NewFromBot(bot, cfg, logger, opts...)
}

// NewFromBot собирает Updater для уже созданного BotAPI.
func NewFromBot(bot *tgbotapi.BotAPI, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Updater, error) {
	if cfg.Nats == nil {
		return nil, fmt.Errorf("не задана конфигурация NATS")
	}

	client := telegram.NewClient(bot, logger)
	dial := natsinfra.NewDialer(clientName, cfg.NatsConnectTimeout, logger)

	return New(client, dial, *cfg.Nats, logger, append(OptionsFromConfig(cfg), opts...)...), nil
}

func OptionsFromConfig(cfg *config.Config) []Option {
	return []Option{
		WithFetchBatch(cfg.NatsFetchBatch),
		WithFetchMaxWait(cfg.NatsFetchMaxWait),
		WithRetryBackoff(cfg.NatsRetryBackoff),
		WithHandlerTimeout(cfg.HandlerTimeout),
		WithDrainTimeout(cfg.DrainTimeout),
		WithDLQSubject(cfg.NatsDLQSubject),
	}
}
