package ai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"telegram-link-notifier/internal/config"
	"telegram-link-notifier/internal/domain/ports/adapter"
)

// NewResponder builds the configured provider behind the concurrency limiter.
// Provider "none" yields nil outside dev mode, which makes the bot use its
// canned replies.
func NewResponder(ctx context.Context, cfg *config.ResponderConfig, dev bool, logger *zerolog.Logger) (adapter.Responder, error) {
	var (
		r   adapter.Responder
		err error
	)
	switch cfg.Provider {
	case "gemini":
		r, err = NewGeminiResponder(ctx, cfg.GeminiKey, cfg.GeminiURL, cfg.Model, cfg.MaxOutputTokens)
	case "openai":
		r, err = NewOpenAIResponder(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.Model, cfg.MaxOutputTokens)
	case "none", "":
		if !dev {
			return nil, nil
		}
		r = NewNoopResponder(logger)
	default:
		return nil, fmt.Errorf("unknown responder provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s responder: %w", cfg.Provider, err)
	}
	logger.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Int("concurrency", cfg.ConcurrentLimit).Msg("responder ready")
	return NewLimitedResponder(r, cfg.Provider, cfg.ConcurrentLimit), nil
}
