package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/model"
	"telegram-link-notifier/internal/domain/ports/adapter"
	"telegram-link-notifier/internal/domain/ports/repository"
	"telegram-link-notifier/internal/infra/logging"
	"telegram-link-notifier/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// NotificationUseCase renders platform events and fans them out to linked chats.
// Delivery is best effort: one attempt per recipient, failures are counted, never retried.
type NotificationUseCase interface {
	Dispatch(ctx context.Context, ev model.NotificationEvent) model.DispatchResult

	NotifyShipment(ctx context.Context, s model.Shipment, kind model.EventKind, userIDs []string) (model.DispatchResult, error)
	NotifyDisruption(ctx context.Context, d model.Disruption, s *model.Shipment, userIDs []string) (model.DispatchResult, error)
	SendCustom(ctx context.Context, userIDs []string, message string, links []model.ActionLink) (model.DispatchResult, error)
	Broadcast(ctx context.Context, message string) (model.DispatchResult, error)

	SubscribeUser(ctx context.Context, userID, entityID string) error
	UnsubscribeUser(ctx context.Context, userID, entityID string) error
	SubscribeChat(ctx context.Context, chatID int64, entityID string) error
	UnsubscribeChat(ctx context.Context, chatID int64, entityID string) error
}

type DispatchOptions struct {
	BaseURL     string
	Concurrency int
	SendTimeout time.Duration
}

type notificationUC struct {
	links       repository.AccountLinkRepository
	subs        repository.SubscriptionRepository
	bot         adapter.ChatTransport
	audit       repository.DeliveryLogRepository // optional
	render      renderer
	concurrency int
	sendTimeout time.Duration
	log         *zerolog.Logger
}

func NewNotificationUseCase(
	links repository.AccountLinkRepository,
	subs repository.SubscriptionRepository,
	bot adapter.ChatTransport,
	audit repository.DeliveryLogRepository,
	opts DispatchOptions,
	logger *zerolog.Logger,
) *notificationUC {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 25
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	compLog := logger.With().Str("component", "NotificationDispatcher").Logger()
	return &notificationUC{
		links:       links,
		subs:        subs,
		bot:         bot,
		audit:       audit,
		render:      renderer{baseURL: strings.TrimRight(opts.BaseURL, "/")},
		concurrency: opts.Concurrency,
		sendTimeout: opts.SendTimeout,
		log:         &compLog,
	}
}

func (n *notificationUC) Dispatch(ctx context.Context, ev model.NotificationEvent) model.DispatchResult {
	defer logging.TraceDuration(n.log, "NotificationUC.Dispatch")()

	// Callers cannot cut a fan-out short; only the per-send timeout applies.
	ctx = context.WithoutCancel(ctx)
	if ev.ID == "" {
		ev.ID = ulid.Make().String()
	}
	ctx = logging.WithEventID(ctx, ev.ID)
	l := logging.With(ctx, n.log)

	start := time.Now()
	res := model.DispatchResult{EventID: ev.ID, Kind: ev.Kind, EntityID: ev.EntityID, StartedAt: start}

	chats := n.audience(ctx, ev)
	if len(chats) == 0 {
		l.Info().Str("kind", string(ev.Kind)).Str("entity_id", ev.EntityID).Msg("no recipients for notification")
		res.Duration = time.Since(start).String()
		metrics.ObserveDispatch(string(ev.Kind), 0, 0, time.Since(start))
		return res
	}

	tmpl := adapter.SendMessageParams{Text: ev.Text(), Markdown: true, Rows: buttonRows(ev.Actions)}

	var (
		mu        sync.Mutex
		delivered int
		failed    []int64
	)
	g := new(errgroup.Group)
	g.SetLimit(n.concurrency)
	for _, chatID := range chats {
		g.Go(func() error {
			p := tmpl
			p.ChatID = chatID
			err := n.sendOne(ctx, p)

			mu.Lock()
			if err != nil {
				failed = append(failed, chatID)
			} else {
				delivered++
			}
			mu.Unlock()

			if err != nil {
				l.Warn().Err(err).Int64("chat_id", chatID).Msg("notification delivery failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	took := time.Since(start)
	res.Attempted = len(chats)
	res.Delivered = delivered
	res.Failed = failed
	res.Duration = took.String()

	metrics.ObserveDispatch(string(ev.Kind), res.Attempted, res.Delivered, took)
	l.Info().
		Str("kind", string(ev.Kind)).
		Str("entity_id", ev.EntityID).
		Int("attempted", res.Attempted).
		Int("delivered", res.Delivered).
		Dur("duration", took).
		Msg("notification dispatched")

	n.record(ctx, res)
	return res
}

// sendOne applies the per-recipient timeout and contains transport panics.
func (n *notificationUC) sendOne(ctx context.Context, p adapter.SendMessageParams) (err error) {
	sendCtx, cancel := context.WithTimeout(ctx, n.sendTimeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic: %v", domain.ErrTransportFailure, rec)
		}
	}()
	return n.bot.SendMessage(sendCtx, p)
}

// audience resolves the event to distinct chat ids that want notifications.
func (n *notificationUC) audience(ctx context.Context, ev model.NotificationEvent) []int64 {
	l := logging.With(ctx, n.log)
	seen := make(map[int64]struct{})
	var out []int64
	add := func(link *model.AccountLink) {
		if link == nil || !link.NotificationsEnabled {
			return
		}
		if _, dup := seen[link.ChatID]; dup {
			return
		}
		seen[link.ChatID] = struct{}{}
		out = append(out, link.ChatID)
	}

	switch {
	case ev.Broadcast:
		all, err := n.links.List(ctx)
		if err != nil {
			l.Error().Err(err).Msg("failed to list links for broadcast")
			return nil
		}
		for i := range all {
			add(&all[i])
		}
	case len(ev.Recipients) > 0:
		for _, userID := range ev.Recipients {
			link, err := n.links.GetByUser(ctx, userID)
			if err != nil {
				l.Warn().Err(err).Str("user_id", userID).Msg("recipient lookup failed")
				continue
			}
			add(link)
		}
	default:
		chats, err := n.subs.SubscribersOf(ctx, ev.EntityID)
		if err != nil {
			l.Error().Err(err).Str("entity_id", ev.EntityID).Msg("failed to load subscribers")
			return nil
		}
		for _, chatID := range chats {
			link, err := n.links.GetByChat(ctx, chatID)
			if err != nil {
				l.Warn().Err(err).Int64("chat_id", chatID).Msg("subscriber lookup failed")
				continue
			}
			add(link)
		}
	}
	return out
}

func (n *notificationUC) record(ctx context.Context, res model.DispatchResult) {
	if n.audit == nil {
		return
	}
	auditCtx, cancel := context.WithTimeout(ctx, n.sendTimeout)
	defer cancel()
	err := n.audit.Save(auditCtx, repository.NoTX, model.DeliveryRecord{
		EventID:   res.EventID,
		Kind:      res.Kind,
		EntityID:  res.EntityID,
		Attempted: res.Attempted,
		Delivered: res.Delivered,
		Failed:    res.Failed,
		CreatedAt: res.StartedAt,
	})
	if err != nil {
		logging.With(ctx, n.log).Warn().Err(err).Msg("failed to record delivery outcome")
	}
}

func (n *notificationUC) NotifyShipment(ctx context.Context, s model.Shipment, kind model.EventKind, userIDs []string) (model.DispatchResult, error) {
	if err := s.Validate(); err != nil {
		return model.DispatchResult{}, err
	}
	if _, err := model.ParseShipmentKind(string(kind)); err != nil {
		return model.DispatchResult{}, err
	}
	ev := n.render.shipment(s, kind)
	ev.Recipients = userIDs
	return n.Dispatch(ctx, ev), nil
}

func (n *notificationUC) NotifyDisruption(ctx context.Context, d model.Disruption, s *model.Shipment, userIDs []string) (model.DispatchResult, error) {
	if err := d.Validate(); err != nil {
		return model.DispatchResult{}, err
	}
	ev := n.render.disruption(d, s)
	ev.Recipients = userIDs
	return n.Dispatch(ctx, ev), nil
}

func (n *notificationUC) SendCustom(ctx context.Context, userIDs []string, message string, links []model.ActionLink) (model.DispatchResult, error) {
	if strings.TrimSpace(message) == "" || len(userIDs) == 0 {
		return model.DispatchResult{}, domain.ErrInvalidArgument
	}
	ev := model.NotificationEvent{
		Kind:       model.KindCustom,
		Body:       message,
		Actions:    actions(links...),
		Recipients: userIDs,
	}
	return n.Dispatch(ctx, ev), nil
}

func (n *notificationUC) Broadcast(ctx context.Context, message string) (model.DispatchResult, error) {
	if strings.TrimSpace(message) == "" {
		return model.DispatchResult{}, domain.ErrInvalidArgument
	}
	return n.Dispatch(ctx, model.NotificationEvent{Kind: model.KindBroadcast, Body: message, Broadcast: true}), nil
}

func (n *notificationUC) SubscribeUser(ctx context.Context, userID, entityID string) error {
	link, err := n.linkFor(ctx, userID)
	if err != nil {
		return err
	}
	return n.SubscribeChat(ctx, link.ChatID, entityID)
}

func (n *notificationUC) UnsubscribeUser(ctx context.Context, userID, entityID string) error {
	link, err := n.linkFor(ctx, userID)
	if err != nil {
		return err
	}
	return n.UnsubscribeChat(ctx, link.ChatID, entityID)
}

func (n *notificationUC) SubscribeChat(ctx context.Context, chatID int64, entityID string) error {
	if strings.TrimSpace(entityID) == "" {
		return domain.ErrInvalidArgument
	}
	return n.subs.Subscribe(ctx, chatID, entityID)
}

func (n *notificationUC) UnsubscribeChat(ctx context.Context, chatID int64, entityID string) error {
	if strings.TrimSpace(entityID) == "" {
		return domain.ErrInvalidArgument
	}
	return n.subs.Unsubscribe(ctx, chatID, entityID)
}

func (n *notificationUC) linkFor(ctx context.Context, userID string) (*model.AccountLink, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidArgument
	}
	link, err := n.links.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, domain.ErrLinkNotFound
	}
	return link, nil
}

// buttonRows lays action links out two per row.
func buttonRows(links []model.ActionLink) [][]adapter.InlineButton {
	var rows [][]adapter.InlineButton
	for i := 0; i < len(links); i += 2 {
		end := i + 2
		if end > len(links) {
			end = len(links)
		}
		row := make([]adapter.InlineButton, 0, 2)
		for _, l := range links[i:end] {
			row = append(row, adapter.InlineButton{Text: l.Label, URL: l.URL})
		}
		rows = append(rows, row)
	}
	return rows
}
