package models

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateHandler обрабатывает одно обновление. Ошибка означает, что обновление
// нужно доставить повторно.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update *tgbotapi.Update) error
}

type UpdateHandlerFunc func(ctx context.Context, update *tgbotapi.Update) error

func (f UpdateHandlerFunc) HandleUpdate(ctx context.Context, update *tgbotapi.Update) error {
	return f(ctx, update)
}
