package telegram

import (
	"encoding/json"
	"fmt"
	"io"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/model"
)

// DecodeUpdate reads one webhook body. ok is false for well-formed updates
// the bot does not handle (edits, joins, non-text messages).
func DecodeUpdate(r io.Reader) (upd model.InboundUpdate, ok bool, err error) {
	var raw tgbotapi.Update
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, false, fmt.Errorf("%w: decode update: %v", domain.ErrInvalidArgument, err)
	}
	upd, ok = FromTGUpdate(raw)
	return upd, ok, nil
}

// FromTGUpdate converts a tgbotapi update into the router's tagged union.
func FromTGUpdate(u tgbotapi.Update) (model.InboundUpdate, bool) {
	if q := u.CallbackQuery; q != nil && q.From != nil {
		chatID := q.From.ID
		if q.Message != nil && q.Message.Chat != nil {
			chatID = q.Message.Chat.ID
		}
		return &model.CallbackQuery{
			ID:      u.UpdateID,
			QueryID: q.ID,
			ChatID:  chatID,
			From:    sender(q.From),
			Data:    q.Data,
		}, true
	}

	m := u.Message
	if m == nil || m.Chat == nil || m.Text == "" {
		return nil, false
	}
	var from model.Sender
	if m.From != nil {
		from = sender(m.From)
	}
	return &model.TextMessage{
		ID:     u.UpdateID,
		ChatID: m.Chat.ID,
		From:   from,
		Text:   m.Text,
	}, true
}

func sender(u *tgbotapi.User) model.Sender {
	return model.Sender{ID: u.ID, Username: u.UserName, FirstName: u.FirstName}
}
