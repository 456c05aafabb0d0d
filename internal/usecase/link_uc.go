package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/model"
	"telegram-link-notifier/internal/domain/ports/repository"
	"telegram-link-notifier/internal/infra/logging"
	"telegram-link-notifier/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ LinkUseCase = (*linkUC)(nil)

// LinkUseCase issues and redeems linking codes and manages the resulting account links.
type LinkUseCase interface {
	// SeedDemoCodes installs the built-in demo codes with their long expiry.
	SeedDemoCodes(ctx context.Context) error
	Issue(ctx context.Context, ownerID string, role model.Role) (model.LinkingCode, error)
	Redeem(ctx context.Context, code string, profile model.ChatProfile) (model.Redemption, error)
	Inspect(ctx context.Context, code string) (model.CodeStatus, error)
	SweepExpired(ctx context.Context) int

	LinkOf(ctx context.Context, userID string) (*model.AccountLink, error)
	LinkOfChat(ctx context.Context, chatID int64) (*model.AccountLink, error)
	// Unlink removes the user's link and the subscriptions its chat held.
	Unlink(ctx context.Context, userID string) (bool, error)
	SetNotifications(ctx context.Context, userID string, enabled bool) error
	Touch(ctx context.Context, chatID int64)
}

type LinkPolicy struct {
	CodeTTL        time.Duration
	DemoTTL        time.Duration
	IssueDemoCodes bool
}

type linkUC struct {
	codes  repository.LinkCodeRepository
	links  repository.AccountLinkRepository
	subs   repository.SubscriptionRepository
	policy LinkPolicy
	now    func() time.Time
	newID  func() (string, error)
	log    *zerolog.Logger
}

func NewLinkUseCase(
	codes repository.LinkCodeRepository,
	links repository.AccountLinkRepository,
	subs repository.SubscriptionRepository,
	policy LinkPolicy,
	now func() time.Time,
	logger *zerolog.Logger,
) *linkUC {
	if now == nil {
		now = time.Now
	}
	if policy.CodeTTL <= 0 {
		policy.CodeTTL = 15 * time.Minute
	}
	if policy.DemoTTL <= 0 {
		policy.DemoTTL = 365 * 24 * time.Hour
	}
	compLog := logger.With().Str("component", "LinkUseCase").Logger()
	return &linkUC{
		codes:  codes,
		links:  links,
		subs:   subs,
		policy: policy,
		now:    now,
		newID:  generateLinkCode,
		log:    &compLog,
	}
}

func (u *linkUC) SeedDemoCodes(ctx context.Context) error {
	now := u.now()
	for _, d := range model.DemoCodes() {
		err := u.codes.Put(ctx, model.LinkingCode{
			Code:      d.Code,
			OwnerID:   d.OwnerID,
			Role:      d.Role,
			CreatedAt: now,
			ExpiresAt: now.Add(u.policy.DemoTTL),
			Demo:      true,
		})
		if err != nil {
			return fmt.Errorf("seed demo code %s: %w", d.Code, err)
		}
	}
	u.log.Info().Int("count", len(model.DemoCodes())).Msg("demo linking codes seeded")
	return nil
}

func (u *linkUC) Issue(ctx context.Context, ownerID string, role model.Role) (model.LinkingCode, error) {
	defer logging.TraceDuration(u.log, "LinkUC.Issue")()

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return model.LinkingCode{}, domain.ErrInvalidArgument
	}
	existing, err := u.links.GetByUser(ctx, ownerID)
	if err != nil {
		return model.LinkingCode{}, err
	}
	if existing != nil {
		return model.LinkingCode{}, domain.ErrAlreadyLinked
	}

	now := u.now()
	if u.policy.IssueDemoCodes {
		if demo, ok := model.DemoCodeFor(role); ok {
			c := model.LinkingCode{
				Code:      demo.Code,
				OwnerID:   ownerID,
				Role:      role,
				CreatedAt: now,
				ExpiresAt: now.Add(u.policy.DemoTTL),
				Demo:      true,
			}
			if err := u.codes.Put(ctx, c); err != nil {
				return model.LinkingCode{}, err
			}
			metrics.IncCodeIssued(string(role), true)
			u.log.Info().Str("user_id", ownerID).Str("role", string(role)).Msg("demo linking code re-bound to requester")
			return c, nil
		}
	}

	c, err := u.codes.Reserve(ctx, func() (model.LinkingCode, error) {
		code, err := u.newID()
		if err != nil {
			return model.LinkingCode{}, err
		}
		return model.LinkingCode{
			Code:      code,
			OwnerID:   ownerID,
			Role:      role,
			CreatedAt: now,
			ExpiresAt: now.Add(u.policy.CodeTTL),
		}, nil
	})
	if err != nil {
		return model.LinkingCode{}, fmt.Errorf("issue linking code: %w", err)
	}
	metrics.IncCodeIssued(string(role), false)
	u.log.Debug().Str("user_id", ownerID).Str("role", string(role)).Time("expires_at", c.ExpiresAt).Msg("linking code issued")
	return c, nil
}

func (u *linkUC) Redeem(ctx context.Context, code string, p model.ChatProfile) (model.Redemption, error) {
	defer logging.TraceDuration(u.log, "LinkUC.Redeem")()
	l := logging.With(logging.WithChatID(ctx, p.ChatID), u.log)

	if model.NormalizeCode(code) == "" || p.ChatID == 0 {
		metrics.IncRedemption("invalid")
		return model.Redemption{}, domain.ErrInvalidArgument
	}

	now := u.now()
	c, err := u.codes.Consume(ctx, code, now)
	if err != nil {
		metrics.IncRedemption(domain.Reason(err))
		l.Info().Err(err).Str("code", model.NormalizeCode(code)).Msg("linking code rejected")
		return model.Redemption{}, err
	}

	link, evicted, err := u.links.Upsert(ctx, c.OwnerID, p, now)
	if err != nil {
		metrics.IncRedemption("error")
		return model.Redemption{}, fmt.Errorf("store account link: %w", err)
	}

	out := model.Redemption{Link: link, Role: c.Role, Demo: c.Demo}
	for _, e := range evicted {
		if e.ChatID != p.ChatID {
			out.Replaced = e.ChatID
		}
	}
	if c.Demo && out.Replaced != 0 {
		l.Warn().
			Str("code", c.Code).
			Str("user_id", c.OwnerID).
			Int64("previous_chat_id", out.Replaced).
			Msg("demo code redemption moved the link to a new chat")
	}

	metrics.IncRedemption("ok")
	u.refreshGauge(ctx)
	l.Info().Str("user_id", link.UserID).Str("role", string(c.Role)).Bool("demo", c.Demo).Msg("account linked")
	return out, nil
}

func (u *linkUC) Inspect(ctx context.Context, code string) (model.CodeStatus, error) {
	c, ok := u.codes.Get(ctx, code)
	if !ok {
		return model.CodeStatus{}, domain.ErrCodeNotFound
	}
	now := u.now()
	st := model.CodeStatus{
		Code:      c.Code,
		Valid:     true,
		ExpiresAt: c.ExpiresAt,
		Remaining: c.Remaining(now),
	}
	switch {
	case c.IsExpired(now):
		st.Valid, st.Reason = false, "expired"
	case c.Used && !c.Demo:
		st.Valid, st.Reason = false, "already_used"
	}
	return st, nil
}

func (u *linkUC) SweepExpired(ctx context.Context) int {
	n := u.codes.SweepExpired(ctx, u.now())
	metrics.AddCodesSwept(n)
	return n
}

func (u *linkUC) LinkOf(ctx context.Context, userID string) (*model.AccountLink, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.links.GetByUser(ctx, userID)
}

func (u *linkUC) LinkOfChat(ctx context.Context, chatID int64) (*model.AccountLink, error) {
	return u.links.GetByChat(ctx, chatID)
}

func (u *linkUC) Unlink(ctx context.Context, userID string) (bool, error) {
	link, err := u.links.GetByUser(ctx, userID)
	if err != nil || link == nil {
		return false, err
	}
	removed, err := u.links.Remove(ctx, userID)
	if err != nil || !removed {
		return removed, err
	}

	dropped, err := u.subs.RemoveChat(ctx, link.ChatID)
	if err != nil {
		// The link is gone; orphaned subscriptions are ignored by the dispatcher.
		u.log.Warn().Err(err).Int64("chat_id", link.ChatID).Msg("failed to drop subscriptions on unlink")
	}
	u.refreshGauge(ctx)
	u.log.Info().Str("user_id", userID).Int64("chat_id", link.ChatID).Int("subscriptions_dropped", dropped).Msg("account unlinked")
	return true, nil
}

func (u *linkUC) SetNotifications(ctx context.Context, userID string, enabled bool) error {
	ok, err := u.links.SetNotifications(ctx, userID, enabled)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrLinkNotFound
	}
	return nil
}

func (u *linkUC) Touch(ctx context.Context, chatID int64) {
	if err := u.links.Touch(ctx, chatID, u.now()); err != nil && !errors.Is(err, domain.ErrNotFound) {
		u.log.Debug().Err(err).Int64("chat_id", chatID).Msg("touch failed")
	}
}

func (u *linkUC) refreshGauge(ctx context.Context) {
	if n, err := u.links.Count(ctx); err == nil {
		metrics.SetActiveLinks(n)
	}
}
