package handler

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/central-university-dev/go-nats-updater/internal/domain/models"
)

const helpText = "Бот получает обновления через NATS JetStream.\n" +
	"/start - приветствие\n" +
	"/help - эта справка"

// Sender это часть BotAPI, через которую обработчик отвечает в чат.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// UpdateHandler отвечает на команды /start и /help и пишет в лог остальные
// обновления. Ошибка отправки возвращается, чтобы обновление было доставлено повторно.
type UpdateHandler struct {
	sender Sender
	logger *slog.Logger
}

var _ models.UpdateHandler = (*UpdateHandler)(nil)

func NewUpdateHandler(sender Sender, logger *slog.Logger) *UpdateHandler {
	return &UpdateHandler{
		sender: sender,
		logger: logger,
	}
}

func (h *UpdateHandler) HandleUpdate(_ context.Context, update *tgbotapi.Update) error {
	h.logger.Info("Получено обновление",
		"update_id", update.UpdateID,
		"update_type", string(models.TypeOf(update)),
	)

	message := update.Message
	if message == nil || !message.IsCommand() || message.Chat == nil {
		return nil
	}

	var text string

	switch message.Command() {
	case "start":
		name := "друг"
		if message.From != nil && message.From.FirstName != "" {
			name = message.From.FirstName
		}

		text = fmt.Sprintf("Привет, %s!\n\n%s", name, helpText)
	case "help":
		text = helpText
	default:
		text = "Неизвестная команда. Используйте /help"
	}

	if _, err := h.sender.Send(tgbotapi.NewMessage(message.Chat.ID, text)); err != nil {
		return fmt.Errorf("ошибка отправки ответа на команду /%s: %w", message.Command(), err)
	}

	return nil
}
