package application

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"telegram-link-notifier/internal/domain/model"
	"telegram-link-notifier/internal/domain/ports/adapter"
	"telegram-link-notifier/internal/infra/logging"
	"telegram-link-notifier/internal/infra/metrics"
	red "telegram-link-notifier/internal/infra/redis"

	"github.com/rs/zerolog"
)

type BotRouterDeps struct {
	Links      LinkService
	Subs       SubscriptionService
	Bot        adapter.ChatTransport
	Responder  adapter.Responder // nil: canned replies only
	Translator Translator
	Limiter    RateLimiter   // optional
	Dedup      UpdateDeduper // optional
}

type BotRouterOptions struct {
	BaseURL          string
	RateLimit        int
	RateWindow       time.Duration
	ResponderTimeout time.Duration
	UpdateTimeout    time.Duration
}

// BotRouter turns inbound updates into link operations, responder calls and replies.
// It keeps no conversation state of its own.
type BotRouter struct {
	links   LinkService
	subs    SubscriptionService
	bot     adapter.ChatTransport
	ai      adapter.Responder
	t       Translator
	limiter RateLimiter
	dedup   UpdateDeduper
	opts    BotRouterOptions
	log     *zerolog.Logger
}

func NewBotRouter(deps BotRouterDeps, opts BotRouterOptions, logger *zerolog.Logger) (*BotRouter, error) {
	if deps.Links == nil || deps.Subs == nil {
		return nil, errors.New("bot router: link and subscription services are required")
	}
	if deps.Bot == nil {
		return nil, errors.New("bot router: chat transport is nil")
	}
	if deps.Translator == nil {
		return nil, errors.New("bot router: translator is nil")
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 20
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	if opts.ResponderTimeout <= 0 {
		opts.ResponderTimeout = 20 * time.Second
	}
	if opts.UpdateTimeout <= 0 {
		opts.UpdateTimeout = opts.ResponderTimeout + 15*time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	compLog := logger.With().Str("component", "BotRouter").Logger()
	return &BotRouter{
		links:   deps.Links,
		subs:    deps.Subs,
		bot:     deps.Bot,
		ai:      deps.Responder,
		t:       deps.Translator,
		limiter: deps.Limiter,
		dedup:   deps.Dedup,
		opts:    opts,
		log:     &compLog,
	}, nil
}

// HandleUpdate processes one update to completion. It never fails: errors and
// panics end up in the log and, where possible, as a fallback reply in the chat.
func (r *BotRouter) HandleUpdate(ctx context.Context, upd model.InboundUpdate) {
	if upd == nil || upd.Chat() == 0 {
		metrics.IncUpdate("invalid")
		return
	}
	chatID := upd.Chat()

	// Telegram does not wait for us; the webhook request ending must not abort the reply.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.UpdateTimeout)
	defer cancel()
	ctx = logging.WithChatID(ctx, chatID)
	l := logging.With(ctx, r.log)

	defer func() {
		if rec := recover(); rec != nil {
			l.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("panic while handling update")
			_ = r.reply(ctx, chatID, r.t.T("error_generic"))
		}
	}()

	if r.dedup != nil && upd.UpdateID() != 0 {
		first, err := r.dedup.FirstSeen(ctx, upd.UpdateID())
		if err != nil {
			l.Warn().Err(err).Msg("update de-duplication unavailable")
		} else if !first {
			metrics.IncDuplicateUpdate()
			l.Debug().Int("update_id", upd.UpdateID()).Msg("duplicate update skipped")
			return
		}
	}

	r.links.Touch(ctx, chatID)

	var err error
	switch u := upd.(type) {
	case *model.TextMessage:
		metrics.IncUpdate("message")
		err = r.handleMessage(ctx, u)
	case *model.CallbackQuery:
		metrics.IncUpdate("callback")
		err = r.handleCallback(ctx, u)
	default:
		metrics.IncUpdate("unsupported")
	}
	if err != nil {
		l.Error().Err(err).Msg("failed to handle update")
	}
}

func (r *BotRouter) handleMessage(ctx context.Context, m *model.TextMessage) error {
	name, args, isCommand := m.Command()
	scope := "message"
	if isCommand {
		scope = name
	}
	if !r.allow(ctx, m.ChatID, scope) {
		return r.reply(ctx, m.ChatID, r.t.T("rate_limited"))
	}

	if !isCommand {
		metrics.IncTelegramCommand("message")
		return r.handleFreeText(ctx, m)
	}
	metrics.IncTelegramCommand("/" + name)
	if h, ok := r.commandRoutes()[name]; ok {
		return h(ctx, m, args)
	}
	return r.reply(ctx, m.ChatID, r.t.T("unknown_command", "/"+name))
}

// handleFreeText forwards linked users to the responder and onboards everyone else.
func (r *BotRouter) handleFreeText(ctx context.Context, m *model.TextMessage) error {
	if strings.TrimSpace(m.Text) == "" {
		return nil
	}
	link, err := r.links.LinkOfChat(ctx, m.ChatID)
	if err != nil {
		return r.replyAfter(ctx, m.ChatID, err)
	}
	if link == nil {
		return r.reply(ctx, m.ChatID, r.t.T("onboarding"))
	}

	if text, ok := r.respond(ctx, link, adapter.Prompt{Intent: adapter.IntentChat, Text: m.Text}); ok {
		return r.reply(ctx, m.ChatID, r.t.T("ai_reply", text))
	}
	return r.reply(ctx, m.ChatID, r.t.T(chatFallbackKey(m.Text)))
}

func chatFallbackKey(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "status") || strings.Contains(lower, "shipment"):
		return "chat_fallback_status"
	case strings.Contains(lower, "track"):
		return "chat_fallback_track"
	case strings.Contains(lower, "help"):
		return "chat_fallback_help"
	default:
		return "chat_fallback"
	}
}

// respond calls the responder with a deadline. ok is false when the caller
// should use its canned fallback instead.
func (r *BotRouter) respond(ctx context.Context, link *model.AccountLink, p adapter.Prompt) (text string, ok bool) {
	if r.ai == nil {
		metrics.IncResponderFallback(string(p.Intent))
		return "", false
	}
	p.UserID = link.UserID
	p.UserName = link.DisplayName
	p.LinkedAt = link.LinkedAt

	rctx, cancel := context.WithTimeout(ctx, r.opts.ResponderTimeout)
	defer cancel()

	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("responder panic: %v", rec)
			}
		}()
		text, err = r.ai.Respond(rctx, p)
	}()
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty responder reply")
	}
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Str("intent", string(p.Intent)).Msg("responder failed, using fallback")
		metrics.IncResponderFallback(string(p.Intent))
		return "", false
	}
	return strings.TrimSpace(text), true
}

// allow applies the per-chat rate limit. Limiter outages fail open.
func (r *BotRouter) allow(ctx context.Context, chatID int64, scope string) bool {
	if r.limiter == nil {
		return true
	}
	ok, err := r.limiter.Allow(ctx, red.ChatKey(chatID, scope), r.opts.RateLimit, r.opts.RateWindow)
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	if !ok {
		metrics.IncRateLimitTriggered()
	}
	return ok
}

func (r *BotRouter) reply(ctx context.Context, chatID int64, text string) error {
	return r.replyButtons(ctx, chatID, text, nil)
}

func (r *BotRouter) replyButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	if err := r.bot.SendMessage(ctx, adapter.SendMessageParams{ChatID: chatID, Text: text, Markdown: true, Rows: rows}); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// replyAfter reports an unexpected store error to the chat and returns it for logging.
func (r *BotRouter) replyAfter(ctx context.Context, chatID int64, cause error) error {
	if err := r.reply(ctx, chatID, r.t.T("error_generic")); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (r *BotRouter) webURL(path string) string {
	if r.opts.BaseURL == "" {
		return ""
	}
	return r.opts.BaseURL + path
}
