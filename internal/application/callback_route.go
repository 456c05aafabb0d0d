package application

import (
	"context"
	"strings"

	"telegram-link-notifier/internal/domain/model"
	"telegram-link-notifier/internal/domain/ports/adapter"
	"telegram-link-notifier/internal/infra/logging"
)

// Telegram rejects callback_data longer than 64 bytes.
const maxCallbackData = 64

type cbHandler func(ctx context.Context, q *model.CallbackQuery, arg string) error

type prefixCB struct {
	Prefix string
	Fn     cbHandler
}

// Exact-match callbacks
func (r *BotRouter) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		"notif:on":  r.notificationsCBRoute(true),
		"notif:off": r.notificationsCBRoute(false),
	}
}

// Prefix-match callbacks; the handler receives the data after the prefix.
func (r *BotRouter) cbPrefixRoutes() []prefixCB {
	return []prefixCB{
		{Prefix: "sub:", Fn: r.subscribeCBRoute},
		{Prefix: "unsub:", Fn: r.unsubscribeCBRoute},
		{Prefix: "cmd:", Fn: r.commandCBRoute},
	}
}

func (r *BotRouter) handleCallback(ctx context.Context, q *model.CallbackQuery) error {
	// Stop the Telegram spinner whatever happens below.
	defer func() {
		if q.QueryID == "" {
			return
		}
		if err := r.bot.AnswerCallback(ctx, q.QueryID, ""); err != nil {
			logging.With(ctx, r.log).Debug().Err(err).Msg("failed to answer callback")
		}
	}()

	data := strings.TrimSpace(q.Data)
	if !r.allow(ctx, q.ChatID, "cb") {
		return r.reply(ctx, q.ChatID, r.t.T("rate_limited"))
	}

	if fn, ok := r.cbRoutes()[data]; ok {
		return fn(ctx, q, "")
	}
	for _, pr := range r.cbPrefixRoutes() {
		if arg, ok := strings.CutPrefix(data, pr.Prefix); ok && strings.TrimSpace(arg) != "" {
			return pr.Fn(ctx, q, strings.TrimSpace(arg))
		}
	}
	return r.reply(ctx, q.ChatID, r.t.T("unknown_action"))
}

func (r *BotRouter) notificationsCBRoute(enabled bool) cbHandler {
	return func(ctx context.Context, q *model.CallbackQuery, _ string) error {
		link, ok, err := r.callbackLink(ctx, q)
		if !ok {
			return err
		}
		if err := r.links.SetNotifications(ctx, link.UserID, enabled); err != nil {
			return r.replyAfter(ctx, q.ChatID, err)
		}
		if enabled {
			return r.reply(ctx, q.ChatID, r.t.T("notif_enabled"))
		}
		return r.reply(ctx, q.ChatID, r.t.T("notif_disabled"))
	}
}

func (r *BotRouter) subscribeCBRoute(ctx context.Context, q *model.CallbackQuery, entityID string) error {
	if _, ok, err := r.callbackLink(ctx, q); !ok {
		return err
	}
	if err := r.subs.SubscribeChat(ctx, q.ChatID, entityID); err != nil {
		return r.replyAfter(ctx, q.ChatID, err)
	}
	var rows [][]adapter.InlineButton
	if data := "unsub:" + entityID; len(data) <= maxCallbackData {
		rows = [][]adapter.InlineButton{{{Text: r.t.T("btn_unfollow"), Data: data}}}
	}
	return r.replyButtons(ctx, q.ChatID, r.t.T("sub_ok", entityID), rows)
}

func (r *BotRouter) unsubscribeCBRoute(ctx context.Context, q *model.CallbackQuery, entityID string) error {
	if err := r.subs.UnsubscribeChat(ctx, q.ChatID, entityID); err != nil {
		return r.replyAfter(ctx, q.ChatID, err)
	}
	return r.reply(ctx, q.ChatID, r.t.T("unsub_ok", entityID))
}

// commandCBRoute runs a menu button as if the command had been typed.
func (r *BotRouter) commandCBRoute(ctx context.Context, q *model.CallbackQuery, command string) error {
	h, ok := r.commandRoutes()[strings.ToLower(command)]
	if !ok {
		return r.reply(ctx, q.ChatID, r.t.T("unknown_action"))
	}
	m := &model.TextMessage{ID: q.ID, ChatID: q.ChatID, From: q.From, Text: "/" + command}
	return h(ctx, m, nil)
}

// callbackLink resolves the chat's link. When ok is false the chat has already been answered.
func (r *BotRouter) callbackLink(ctx context.Context, q *model.CallbackQuery) (*model.AccountLink, bool, error) {
	link, err := r.links.LinkOfChat(ctx, q.ChatID)
	if err != nil {
		return nil, false, r.replyAfter(ctx, q.ChatID, err)
	}
	if link == nil {
		return nil, false, r.reply(ctx, q.ChatID, r.t.T("require_link"))
	}
	return link, true, nil
}
