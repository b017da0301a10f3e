package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/central-university-dev/go-nats-updater/internal/domain/errors"
)

type WebhookParams struct {
	URL                string
	SecretToken        string
	AllowedUpdates     []string
	DropPendingUpdates bool
}

type Client struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

// NewBotAPI создаёт BotAPI поверх переданного HTTP клиента. Конструктор сразу
// вызывает getMe, поэтому неверный токен обнаруживается здесь.
func NewBotAPI(token string, httpClient tgbotapi.HTTPClient) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании Telegram клиента: %w", err)
	}

	return bot, nil
}

func NewClient(bot *tgbotapi.BotAPI, logger *slog.Logger) *Client {
	return &Client{
		bot:    bot,
		logger: logger,
	}
}

// SetWebhook вызывает setWebhook напрямую: WebhookConfig в tgbotapi не умеет secret_token.
// AllowedUpdates передаётся как есть: nil не отправляется, пустой список сбрасывает фильтр.
func (c *Client) SetWebhook(_ context.Context, params WebhookParams) error {
	if params.URL == "" {
		return &errors.ErrWebhookRegistration{Description: "пустой URL"}
	}

	reqParams := make(tgbotapi.Params)
	reqParams["url"] = params.URL
	reqParams.AddNonEmpty("secret_token", params.SecretToken)
	reqParams.AddBool("drop_pending_updates", params.DropPendingUpdates)

	if params.AllowedUpdates != nil {
		if err := reqParams.AddInterface("allowed_updates", params.AllowedUpdates); err != nil {
			return &errors.ErrWebhookRegistration{Err: err}
		}
	}

	resp, err := c.bot.MakeRequest("setWebhook", reqParams)
	if err != nil {
		return &errors.ErrWebhookRegistration{Err: err}
	}

	if !resp.Ok {
		return &errors.ErrWebhookRegistration{Description: resp.Description}
	}

	c.logger.Info("Webhook успешно зарегистрирован",
		"allowed_updates", params.AllowedUpdates,
		"drop_pending_updates", params.DropPendingUpdates,
	)

	return nil
}

func (c *Client) GetWebhookInfo(_ context.Context) (tgbotapi.WebhookInfo, error) {
	info, err := c.bot.GetWebhookInfo()
	if err != nil {
		return tgbotapi.WebhookInfo{}, fmt.Errorf("ошибка при получении информации о webhook: %w", err)
	}

	return info, nil
}

func (c *Client) DeleteWebhook(_ context.Context, dropPendingUpdates bool) error {
	_, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPendingUpdates})
	if err != nil {
		return fmt.Errorf("ошибка при удалении webhook: %w", err)
	}

	return nil
}
