package repository

import "context"

// SubscriptionRepository is the chat <-> entity multimap.
// Subscribe and Unsubscribe are idempotent.
type SubscriptionRepository interface {
	Subscribe(ctx context.Context, chatID int64, entityID string) error
	Unsubscribe(ctx context.Context, chatID int64, entityID string) error
	SubscribersOf(ctx context.Context, entityID string) ([]int64, error)
	EntitiesOf(ctx context.Context, chatID int64) ([]string, error)
	// RemoveChat drops every subscription held by chatID and reports how many.
	RemoveChat(ctx context.Context, chatID int64) (int, error)
}
