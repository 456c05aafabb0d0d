package repository

import (
	"context"
	"time"

	"telegram-link-notifier/internal/domain/model"
)

// -----------------------------
// Delivery audit log
// -----------------------------

type DeliveryLogRepository interface {
	// Save records the outcome of one dispatch.
	Save(ctx context.Context, tx Tx, rec model.DeliveryRecord) error
	// ListByEntity returns the most recent records for an entity, newest first.
	ListByEntity(ctx context.Context, tx Tx, entityID string, limit int) ([]model.DeliveryRecord, error)
	// CountSince counts dispatches recorded after since.
	CountSince(ctx context.Context, tx Tx, since time.Time) (int, error)
}
