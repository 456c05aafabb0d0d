package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebhookStatus is the part of getWebhookInfo worth showing to an operator.
type WebhookStatus struct {
	URL            string
	PendingUpdates int
	MaxConnections int
	LastError      string
	LastErrorAt    time.Time
}

var allowedUpdates = []string{"message", "callback_query"}

// SetWebhook registers url with Telegram. A non-empty secret is echoed back by
// Telegram in the X-Telegram-Bot-Api-Secret-Token header of every delivery.
func (b *BotTransport) SetWebhook(ctx context.Context, url, secret string, dropPending bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := tgbotapi.Params{}
	params["url"] = url
	params.AddNonEmpty("secret_token", secret)
	params.AddBool("drop_pending_updates", dropPending)
	if err := params.AddInterface("allowed_updates", allowedUpdates); err != nil {
		return err
	}
	if _, err := b.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("setWebhook: %w", err)
	}
	b.log.Info().Str("url", url).Bool("secret", secret != "").Msg("webhook registered")
	return nil
}

func (b *BotTransport) DeleteWebhook(ctx context.Context, dropPending bool) error {
	if _, err := b.request(ctx, tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending}); err != nil {
		return fmt.Errorf("deleteWebhook: %w", err)
	}
	return nil
}

func (b *BotTransport) WebhookInfo(ctx context.Context) (WebhookStatus, error) {
	if err := ctx.Err(); err != nil {
		return WebhookStatus{}, err
	}
	info, err := b.api.GetWebhookInfo()
	if err != nil {
		return WebhookStatus{}, fmt.Errorf("getWebhookInfo: %w", err)
	}
	st := WebhookStatus{
		URL:            info.URL,
		PendingUpdates: info.PendingUpdateCount,
		MaxConnections: info.MaxConnections,
		LastError:      info.LastErrorMessage,
	}
	if info.LastErrorDate > 0 {
		st.LastErrorAt = time.Unix(int64(info.LastErrorDate), 0).UTC()
	}
	return st, nil
}

func (b *BotTransport) Me(ctx context.Context) (tgbotapi.User, error) {
	if err := ctx.Err(); err != nil {
		return tgbotapi.User{}, err
	}
	return b.api.GetMe()
}

// SetCommands publishes the command menu shown by Telegram clients.
func (b *BotTransport) SetCommands(ctx context.Context) error {
	cmds := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "link", Description: "Link your FlexMove account"},
		tgbotapi.BotCommand{Command: "status", Description: "Shipment status overview"},
		tgbotapi.BotCommand{Command: "track", Description: "Track a shipment"},
		tgbotapi.BotCommand{Command: "alerts", Description: "Disruption alerts"},
		tgbotapi.BotCommand{Command: "settings", Description: "Notification settings"},
		tgbotapi.BotCommand{Command: "unlink", Description: "Unlink your account"},
		tgbotapi.BotCommand{Command: "help", Description: "Show help"},
	)
	if _, err := b.request(ctx, cmds); err != nil {
		return fmt.Errorf("setMyCommands: %w", err)
	}
	return nil
}
