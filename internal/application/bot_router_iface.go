package application

import (
	"context"
	"time"

	"telegram-link-notifier/internal/domain/model"
)

// ---- small interfaces that decouple the router from concrete use cases and infra ----

// LinkService is the part of the link use case the bot needs.
type LinkService interface {
	Redeem(ctx context.Context, code string, profile model.ChatProfile) (model.Redemption, error)
	LinkOfChat(ctx context.Context, chatID int64) (*model.AccountLink, error)
	Unlink(ctx context.Context, userID string) (bool, error)
	SetNotifications(ctx context.Context, userID string, enabled bool) error
	Touch(ctx context.Context, chatID int64)
}

// SubscriptionService lets a chat follow or drop a shipment from inline buttons.
type SubscriptionService interface {
	SubscribeChat(ctx context.Context, chatID int64, entityID string) error
	UnsubscribeChat(ctx context.Context, chatID int64, entityID string) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// UpdateDeduper reports whether an update id is seen for the first time.
type UpdateDeduper interface {
	FirstSeen(ctx context.Context, updateID int) (bool, error)
}

type Translator interface {
	T(key string, args ...interface{}) string
}
