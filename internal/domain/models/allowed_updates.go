package models

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AllowedUpdates фиксируется при старте сессии и применяется ко всем её обновлениям.
type AllowedUpdates struct {
	types        map[UpdateType]struct{}
	names        []string
	allowUnknown bool
}

func NewAllowedUpdates(names []string) AllowedUpdates {
	if len(names) == 0 {
		return AllowedUpdates{}
	}

	filter := AllowedUpdates{
		types: make(map[UpdateType]struct{}, len(names)),
		names: append([]string(nil), names...),
	}

	for _, name := range names {
		filter.types[UpdateType(name)] = struct{}{}

		// Типы, которые эта версия tgbotapi не разбирает, видны нам как unknown.
		if !IsKnownUpdateType(name) {
			filter.allowUnknown = true
		}
	}

	return filter
}

func (a AllowedUpdates) IsEmpty() bool {
	return len(a.types) == 0
}

func (a AllowedUpdates) Allows(update *tgbotapi.Update) bool {
	if a.IsEmpty() {
		return true
	}

	updateType := TypeOf(update)
	if updateType == UpdateUnknown {
		return a.allowUnknown
	}

	_, ok := a.types[updateType]

	return ok
}

// UnknownNames возвращает имена, которых нет в словаре Telegram, известном библиотеке.
func (a AllowedUpdates) UnknownNames() []string {
	var unknown []string

	for _, name := range a.names {
		if !IsKnownUpdateType(name) {
			unknown = append(unknown, name)
		}
	}

	return unknown
}
