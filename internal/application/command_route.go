package application

import (
	"context"
	"errors"

	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/model"
	"telegram-link-notifier/internal/domain/ports/adapter"
	"telegram-link-notifier/internal/infra/metrics"
)

type commandHandler func(ctx context.Context, m *model.TextMessage, args []string) error

// commandRoutes maps lower-case command names to their handlers.
func (r *BotRouter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":    r.handleStartCommand,
		"help":     r.handleHelpCommand,
		"link":     r.handleLinkCommand,
		"unlink":   r.handleUnlinkCommand,
		"status":   r.linkedOnly(r.handleStatusCommand),
		"track":    r.linkedOnly(r.handleTrackCommand),
		"alerts":   r.linkedOnly(r.handleAlertsCommand),
		"settings": r.linkedOnly(r.handleSettingsCommand),
	}
}

type linkedHandler func(ctx context.Context, m *model.TextMessage, link *model.AccountLink, args []string) error

// linkedOnly resolves the chat's link and asks unlinked chats to link first.
func (r *BotRouter) linkedOnly(next linkedHandler) commandHandler {
	return func(ctx context.Context, m *model.TextMessage, args []string) error {
		link, err := r.links.LinkOfChat(ctx, m.ChatID)
		if err != nil {
			return r.replyAfter(ctx, m.ChatID, err)
		}
		if link == nil {
			return r.reply(ctx, m.ChatID, r.t.T("require_link"))
		}
		return next(ctx, m, link, args)
	}
}

// /start with a payload comes from a t.me deep link and carries a linking code.
func (r *BotRouter) handleStartCommand(ctx context.Context, m *model.TextMessage, args []string) error {
	if len(args) > 0 {
		return r.handleLinkCommand(ctx, m, args)
	}
	rows := [][]adapter.InlineButton{{
		{Text: r.t.T("btn_status"), Data: "cmd:status"},
		{Text: r.t.T("btn_help"), Data: "cmd:help"},
	}}
	return r.replyButtons(ctx, m.ChatID, r.t.T("start_welcome"), rows)
}

func (r *BotRouter) handleHelpCommand(ctx context.Context, m *model.TextMessage, _ []string) error {
	return r.reply(ctx, m.ChatID, r.t.T("help"))
}

func (r *BotRouter) handleLinkCommand(ctx context.Context, m *model.TextMessage, args []string) error {
	if len(args) == 0 {
		return r.reply(ctx, m.ChatID, r.t.T("link_usage"))
	}

	res, err := r.links.Redeem(ctx, args[0], m.Profile())
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrCodeExpired):
		return r.reply(ctx, m.ChatID, r.t.T("link_expired"))
	case errors.Is(err, domain.ErrCodeAlreadyUsed):
		return r.reply(ctx, m.ChatID, r.t.T("link_already_used"))
	case errors.Is(err, domain.ErrNotFound):
		return r.reply(ctx, m.ChatID, r.t.T("link_not_found"))
	case errors.Is(err, domain.ErrInvalidArgument):
		return r.reply(ctx, m.ChatID, r.t.T("link_usage"))
	default:
		if sendErr := r.reply(ctx, m.ChatID, r.t.T("link_failed")); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return err
	}

	name := m.From.FirstName
	if name == "" {
		name = "there"
	}
	text := r.t.T("link_success", name, res.Role.Title())
	if res.Demo {
		text += "\n\n" + r.t.T("link_demo_note")
	}
	return r.reply(ctx, m.ChatID, text)
}

func (r *BotRouter) handleUnlinkCommand(ctx context.Context, m *model.TextMessage, _ []string) error {
	link, err := r.links.LinkOfChat(ctx, m.ChatID)
	if err != nil {
		return r.replyAfter(ctx, m.ChatID, err)
	}
	if link == nil {
		return r.reply(ctx, m.ChatID, r.t.T("unlink_not_linked"))
	}
	removed, err := r.links.Unlink(ctx, link.UserID)
	if err != nil {
		return r.replyAfter(ctx, m.ChatID, err)
	}
	if !removed {
		// Lost a race with another unlink; the outcome is the same.
		return r.reply(ctx, m.ChatID, r.t.T("unlink_not_linked"))
	}
	metrics.IncUnlink("bot")
	return r.reply(ctx, m.ChatID, r.t.T("unlink_success"))
}

func (r *BotRouter) handleStatusCommand(ctx context.Context, m *model.TextMessage, link *model.AccountLink, _ []string) error {
	prompt := adapter.Prompt{Intent: adapter.IntentStatus, Text: "Give me an overview of my shipments and their status"}
	if text, ok := r.respond(ctx, link, prompt); ok {
		return r.reply(ctx, m.ChatID, r.t.T("status_reply", text))
	}
	return r.reply(ctx, m.ChatID, r.t.T("status_fallback"))
}

func (r *BotRouter) handleTrackCommand(ctx context.Context, m *model.TextMessage, link *model.AccountLink, args []string) error {
	if len(args) == 0 {
		return r.reply(ctx, m.ChatID, r.t.T("track_usage"))
	}
	id := args[0]

	var row []adapter.InlineButton
	if data := "sub:" + id; len(data) <= maxCallbackData {
		row = append(row, adapter.InlineButton{Text: r.t.T("btn_follow"), Data: data})
	}
	if u := r.webURL("/track/" + id); u != "" {
		row = append(row, adapter.InlineButton{Text: r.t.T("btn_open"), URL: u})
	}
	var rows [][]adapter.InlineButton
	if len(row) > 0 {
		rows = append(rows, row)
	}

	prompt := adapter.Prompt{
		Intent:   adapter.IntentTrack,
		EntityID: id,
		Text:     "Track shipment " + id + " and give me its current status and location",
	}
	if text, ok := r.respond(ctx, link, prompt); ok {
		return r.replyButtons(ctx, m.ChatID, r.t.T("track_reply", id, text), rows)
	}
	return r.replyButtons(ctx, m.ChatID, r.t.T("track_fallback", id), rows)
}

func (r *BotRouter) handleAlertsCommand(ctx context.Context, m *model.TextMessage, link *model.AccountLink, _ []string) error {
	prompt := adapter.Prompt{Intent: adapter.IntentAlerts, Text: "Show me any disruption alerts, delays, or issues with my shipments"}
	if text, ok := r.respond(ctx, link, prompt); ok {
		return r.reply(ctx, m.ChatID, r.t.T("alerts_reply", text))
	}
	return r.reply(ctx, m.ChatID, r.t.T("alerts_fallback"))
}

func (r *BotRouter) handleSettingsCommand(ctx context.Context, m *model.TextMessage, link *model.AccountLink, _ []string) error {
	status := r.t.T("settings_disabled")
	toggle := adapter.InlineButton{Text: r.t.T("btn_notif_on"), Data: "notif:on"}
	if link.NotificationsEnabled {
		status = r.t.T("settings_enabled")
		toggle = adapter.InlineButton{Text: r.t.T("btn_notif_off"), Data: "notif:off"}
	}
	return r.replyButtons(ctx, m.ChatID, r.t.T("settings", status), [][]adapter.InlineButton{{toggle}})
}
