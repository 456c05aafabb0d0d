package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-link-notifier/internal/domain/ports/adapter"
)

var _ adapter.Responder = (*NoopResponder)(nil)

// NoopResponder answers with a fixed acknowledgement for local runs without an API key.
type NoopResponder struct {
	log *zerolog.Logger
}

func NewNoopResponder(logger *zerolog.Logger) *NoopResponder {
	compLog := logger.With().Str("component", "NoopResponder").Logger()
	return &NoopResponder{log: &compLog}
}

func (a *NoopResponder) Respond(ctx context.Context, p adapter.Prompt) (string, error) {
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	a.log.Debug().Str("intent", string(p.Intent)).Str("user_id", p.UserID).Msg("prompt")
	if p.Intent == adapter.IntentTrack {
		return fmt.Sprintf("📦 Shipment %s: live data is not connected in this environment.", p.EntityID), nil
	}
	return fmt.Sprintf("(dev) You asked: %s", p.Text), nil
}
