package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-link-notifier/internal/config"
	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/ports/adapter"
	"telegram-link-notifier/internal/infra/metrics"
)

var _ adapter.ChatTransport = (*BotTransport)(nil)

// BotTransport is the outbound side of the Bot API built on tgbotapi.
type BotTransport struct {
	api *tgbotapi.BotAPI
	log *zerolog.Logger
}

// NewBotTransport connects to the Bot API. tgbotapi calls getMe here, so a bad
// token fails fast.
func NewBotTransport(cfg *config.BotConfig, client *http.Client, logger *zerolog.Logger) (*BotTransport, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("bot token is empty")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}
	compLog := logger.With().Str("component", "TelegramTransport").Logger()
	compLog.Info().Str("bot", api.Self.UserName).Msg("telegram bot authorized")
	return &BotTransport{api: api, log: &compLog}, nil
}

// API exposes the underlying client to the poller.
func (b *BotTransport) API() *tgbotapi.BotAPI { return b.api }

func (b *BotTransport) Username() string { return b.api.Self.UserName }

// SendMessage sends text with an optional inline keyboard.
// - If btn.URL is set, the button opens a link
// - Else if btn.Data is set, the button sends callback data
// - Else the label doubles as callback data
// Markdown that Telegram refuses to parse is resent as plain text.
func (b *BotTransport) SendMessage(ctx context.Context, p adapter.SendMessageParams) error {
	msg := tgbotapi.NewMessage(p.ChatID, p.Text)
	msg.DisableWebPagePreview = true
	if p.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if kb, ok := keyboard(p.Rows); ok {
		msg.ReplyMarkup = kb
	}

	err := b.send(ctx, msg)
	if err != nil && p.Markdown && isParseError(err) {
		b.log.Debug().Int64("chat_id", p.ChatID).Msg("markdown rejected, resending as plain text")
		msg.ParseMode = ""
		err = b.send(ctx, msg)
	}
	if err != nil {
		metrics.IncSendError("sendMessage")
		return fmt.Errorf("%w: sendMessage: %v", domain.ErrTransportFailure, err)
	}
	return nil
}

func (b *BotTransport) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if _, err := b.request(ctx, tgbotapi.NewCallback(callbackID, text)); err != nil {
		metrics.IncSendError("answerCallbackQuery")
		return fmt.Errorf("%w: answerCallbackQuery: %v", domain.ErrTransportFailure, err)
	}
	return nil
}

// send runs the blocking tgbotapi call so that ctx can still cut the wait short.
// The HTTP client timeout bounds the abandoned request.
func (b *BotTransport) send(ctx context.Context, c tgbotapi.Chattable) error {
	_, err := b.request(ctx, c)
	return err
}

func (b *BotTransport) request(ctx context.Context, c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type result struct {
		resp *tgbotapi.APIResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := b.api.Request(c)
		done <- result{resp, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.resp, r.err
	}
}

func keyboard(rows [][]adapter.InlineButton) (tgbotapi.InlineKeyboardMarkup, bool) {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, r)
	}
	if len(kbRows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...), true
}

func isParseError(err error) bool {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return tgErr.Code == http.StatusBadRequest && strings.Contains(tgErr.Message, "can't parse entities")
	}
	return strings.Contains(err.Error(), "can't parse entities")
}
