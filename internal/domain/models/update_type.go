package models

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateType совпадает с именами, которые Telegram принимает в allowed_updates.
type UpdateType string

const (
	UpdateMessage            UpdateType = "message"
	UpdateEditedMessage      UpdateType = "edited_message"
	UpdateChannelPost        UpdateType = "channel_post"
	UpdateEditedChannelPost  UpdateType = "edited_channel_post"
	UpdateInlineQuery        UpdateType = "inline_query"
	UpdateChosenInlineResult UpdateType = "chosen_inline_result"
	UpdateCallbackQuery      UpdateType = "callback_query"
	UpdateShippingQuery      UpdateType = "shipping_query"
	UpdatePreCheckoutQuery   UpdateType = "pre_checkout_query"
	UpdatePoll               UpdateType = "poll"
	UpdatePollAnswer         UpdateType = "poll_answer"
	UpdateMyChatMember       UpdateType = "my_chat_member"
	UpdateChatMember         UpdateType = "chat_member"
	UpdateChatJoinRequest    UpdateType = "chat_join_request"
	UpdateUnknown            UpdateType = "unknown"
)

var knownUpdateTypes = map[UpdateType]struct{}{
	UpdateMessage:            {},
	UpdateEditedMessage:      {},
	UpdateChannelPost:        {},
	UpdateEditedChannelPost:  {},
	UpdateInlineQuery:        {},
	UpdateChosenInlineResult: {},
	UpdateCallbackQuery:      {},
	UpdateShippingQuery:      {},
	UpdatePreCheckoutQuery:   {},
	UpdatePoll:               {},
	UpdatePollAnswer:         {},
	UpdateMyChatMember:       {},
	UpdateChatMember:         {},
	UpdateChatJoinRequest:    {},
}

func IsKnownUpdateType(name string) bool {
	_, ok := knownUpdateTypes[UpdateType(name)]
	return ok
}

func TypeOf(update *tgbotapi.Update) UpdateType {
	switch {
	case update == nil:
		return UpdateUnknown
	case update.Message != nil:
		return UpdateMessage
	case update.EditedMessage != nil:
		return UpdateEditedMessage
	case update.ChannelPost != nil:
		return UpdateChannelPost
	case update.EditedChannelPost != nil:
		return UpdateEditedChannelPost
	case update.InlineQuery != nil:
		return UpdateInlineQuery
	case update.ChosenInlineResult != nil:
		return UpdateChosenInlineResult
	case update.CallbackQuery != nil:
		return UpdateCallbackQuery
	case update.ShippingQuery != nil:
		return UpdateShippingQuery
	case update.PreCheckoutQuery != nil:
		return UpdatePreCheckoutQuery
	case update.Poll != nil:
		return UpdatePoll
	case update.PollAnswer != nil:
		return UpdatePollAnswer
	case update.MyChatMember != nil:
		return UpdateMyChatMember
	case update.ChatMember != nil:
		return UpdateChatMember
	case update.ChatJoinRequest != nil:
		return UpdateChatJoinRequest
	default:
		return UpdateUnknown
	}
}

// MessageID это значение Nats-Msg-Id, под которым receiver публикует обновление.
// JetStream отбрасывает повторы с тем же id в пределах окна дубликатов потока.
func MessageID(updateID int) string {
	return "tg-update-" + strconv.Itoa(updateID)
}
