package telegram

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-link-notifier/internal/domain/ports/adapter"
)

var _ adapter.ChatTransport = (*NoopTransport)(nil)

// NoopTransport logs outgoing messages instead of calling Telegram. Used in dev
// mode when no bot token is configured.
type NoopTransport struct {
	log *zerolog.Logger
}

func NewNoopTransport(logger *zerolog.Logger) *NoopTransport {
	compLog := logger.With().Str("component", "NoopTelegram").Logger()
	return &NoopTransport{log: &compLog}
}

// SendMessage simulates a short round trip and respects ctx.
func (b *NoopTransport) SendMessage(ctx context.Context, p adapter.SendMessageParams) error {
	select {
	case <-time.After(20 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	b.log.Info().Int64("chat_id", p.ChatID).Int("button_rows", len(p.Rows)).Str("text", p.Text).Msg("message")
	return nil
}

func (b *NoopTransport) AnswerCallback(_ context.Context, callbackID, text string) error {
	b.log.Debug().Str("callback_id", callbackID).Str("text", text).Msg("callback answered")
	return nil
}
