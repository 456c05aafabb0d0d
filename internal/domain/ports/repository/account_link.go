package repository

import (
	"context"
	"time"

	"telegram-link-notifier/internal/domain/model"
)

// AccountLinkRepository keeps the 1:1 user <-> chat mapping.
// Lookups return (nil, nil) when nothing is linked.
type AccountLinkRepository interface {
	// Upsert evicts any link held by the same user or the same chat, then stores the pair.
	// The evicted links are returned so callers can tell who lost access.
	Upsert(ctx context.Context, userID string, profile model.ChatProfile, now time.Time) (model.AccountLink, []model.AccountLink, error)
	GetByUser(ctx context.Context, userID string) (*model.AccountLink, error)
	GetByChat(ctx context.Context, chatID int64) (*model.AccountLink, error)
	Remove(ctx context.Context, userID string) (bool, error)
	Touch(ctx context.Context, chatID int64, now time.Time) error
	SetNotifications(ctx context.Context, userID string, enabled bool) (bool, error)
	List(ctx context.Context) ([]model.AccountLink, error)
	Count(ctx context.Context) (int, error)
}
